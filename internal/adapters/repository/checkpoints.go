package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/docstore"
	"github.com/ralucacrepcea/scoreapp/internal/domain/checkpoint"
	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
)

var _ checkpoint.Store = (*Repository)(nil)

func checkpointData(cp model.Checkpoint) map[string]any {
	return map[string]any{
		"roundId":   cp.RoundID,
		"order":     cp.Order,
		"isActive":  cp.Active,
		"secret":    cp.Secret,
		"createdAt": cp.CreatedAt,
	}
}

// Checkpoints returns every checkpoint of a round, active or not, by order.
func (r *Repository) Checkpoints(ctx context.Context, roundID string) ([]model.Checkpoint, error) {
	q := docstore.Collection(CollCheckpoints).Where("roundId", docstore.OpEq, roundID)
	docs, err := r.store.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints of %s: %w", roundID, err)
	}
	cps := decodeAll[model.Checkpoint](docs, r.skip(ctx, CollCheckpoints))
	sortCheckpoints(cps)
	return cps, nil
}

// AllCheckpoints returns the checkpoints of every round.
func (r *Repository) AllCheckpoints(ctx context.Context) ([]model.Checkpoint, error) {
	docs, err := r.store.Find(ctx, docstore.Collection(CollCheckpoints))
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	cps := decodeAll[model.Checkpoint](docs, r.skip(ctx, CollCheckpoints))
	sortCheckpoints(cps)
	return cps, nil
}

// Checkpoint returns one checkpoint.
func (r *Repository) Checkpoint(ctx context.Context, id string) (model.Checkpoint, error) {
	var cp model.Checkpoint
	if err := r.get(ctx, CollCheckpoints, id, &cp); err != nil {
		if errors.Is(err, ErrNotFound) {
			return model.Checkpoint{}, fmt.Errorf("%w: %s", checkpoint.ErrNotFound, id)
		}
		return model.Checkpoint{}, err
	}
	return cp, nil
}

// AddCheckpoint stores a new checkpoint under its id.
func (r *Repository) AddCheckpoint(ctx context.Context, cp model.Checkpoint) error {
	if err := r.store.Set(ctx, CollCheckpoints, cp.ID, checkpointData(cp), false); err != nil {
		return fmt.Errorf("add checkpoint %s: %w", cp.ID, err)
	}
	return nil
}

// PatchCheckpoint changes the active flag and/or secret of a checkpoint.
func (r *Repository) PatchCheckpoint(ctx context.Context, id string, p checkpoint.Patch) error {
	var fields []docstore.FieldWrite
	if p.Active != nil {
		fields = append(fields, docstore.Set(*p.Active, "isActive"))
	}
	if p.Secret != nil {
		fields = append(fields, docstore.Set(*p.Secret, "secret"))
	}
	if len(fields) == 0 {
		return nil
	}
	if err := r.store.Update(ctx, CollCheckpoints, id, fields...); err != nil {
		return r.notFound(err, CollCheckpoints, id)
	}
	return nil
}

func sortCheckpoints(cps []model.Checkpoint) {
	sort.Slice(cps, func(i, j int) bool {
		if cps[i].RoundID != cps[j].RoundID {
			return cps[i].RoundID < cps[j].RoundID
		}
		if cps[i].Order != cps[j].Order {
			return cps[i].Order < cps[j].Order
		}
		return cps[i].ID < cps[j].ID
	})
}

// RehomeCheckpoints moves every checkpoint of round from to round to,
// keeping ids, orders and secrets.
func (r *Repository) RehomeCheckpoints(ctx context.Context, from, to string) (BatchReport, error) {
	cps, err := r.Checkpoints(ctx, from)
	if err != nil {
		return BatchReport{}, err
	}
	changes := make([]Change, 0, len(cps))
	for _, cp := range cps {
		changes = append(changes, Change{ID: cp.ID, Writes: []docstore.Write{{
			Kind: docstore.KindUpdate, Collection: CollCheckpoints, ID: cp.ID,
			Fields: []docstore.FieldWrite{docstore.Set(to, "roundId")},
		}}})
	}
	return r.Commit(ctx, changes)
}
