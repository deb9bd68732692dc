package checkpoint

import (
	"context"
	"fmt"

	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
)

// ActiveAt resolves the active checkpoint of round at order.
func ActiveAt(ctx context.Context, store Store, roundID string, order int) (model.Checkpoint, error) {
	cps, err := store.Checkpoints(ctx, roundID)
	if err != nil {
		return model.Checkpoint{}, fmt.Errorf("list checkpoints of %s: %w", roundID, err)
	}
	for _, cp := range cps {
		if cp.Active && cp.Order == order {
			return cp, nil
		}
	}
	return model.Checkpoint{}, fmt.Errorf("%w: round %s order %d", ErrNotFound, roundID, order)
}

// ActiveOrders maps the ids of the active checkpoints in cps to their order.
func ActiveOrders(cps []model.Checkpoint) map[string]int {
	out := make(map[string]int, len(cps))
	for _, cp := range cps {
		if cp.Active {
			out[cp.ID] = cp.Order
		}
	}
	return out
}
