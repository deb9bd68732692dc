package repository

import (
	"context"
	"fmt"
	"sort"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/docstore"
	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
)

func refsData(refs []*float64) []any {
	out := make([]any, len(refs))
	for i, v := range refs {
		if v != nil {
			out[i] = *v
		}
	}
	return out
}

func optional(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func roundData(rd model.Round) map[string]any {
	data := map[string]any{
		"totalCheckpoints": rd.TotalCheckpoints,
		"targetTemp":       optional(rd.TargetTemp),
		"targetHumidity":   optional(rd.TargetHumidity),
		"refTemps":         refsData(rd.RefTemps),
		"refHumidity":      refsData(rd.RefHumidity),
		"createdAt":        rd.CreatedAt,
		"updatedAt":        rd.UpdatedAt,
	}
	if rd.RenamedFrom != "" {
		data["renamedFrom"] = rd.RenamedFrom
	}
	return data
}

// Rounds returns every round ordered by creation time, then id.
func (r *Repository) Rounds(ctx context.Context) ([]model.Round, error) {
	docs, err := r.store.Find(ctx, docstore.Collection(CollRounds))
	if err != nil {
		return nil, fmt.Errorf("list rounds: %w", err)
	}
	rounds := decodeAll[model.Round](docs, r.skip(ctx, CollRounds))
	sortRounds(rounds)
	return rounds, nil
}

// Round returns one round.
func (r *Repository) Round(ctx context.Context, id string) (model.Round, error) {
	var rd model.Round
	if err := r.get(ctx, CollRounds, id, &rd); err != nil {
		return model.Round{}, err
	}
	return rd, nil
}

// PutRound replaces a round document.
func (r *Repository) PutRound(ctx context.Context, rd model.Round) error {
	if err := r.store.Set(ctx, CollRounds, rd.ID, roundData(rd), false); err != nil {
		return fmt.Errorf("put round %s: %w", rd.ID, err)
	}
	return nil
}

// DeleteRound removes a round document. Its checkpoints and scans stay.
func (r *Repository) DeleteRound(ctx context.Context, id string) error {
	if err := r.store.Delete(ctx, CollRounds, id); err != nil {
		return fmt.Errorf("delete round %s: %w", id, err)
	}
	return nil
}

func sortRounds(rounds []model.Round) {
	sort.Slice(rounds, func(i, j int) bool {
		if rounds[i].CreatedAt != rounds[j].CreatedAt {
			return rounds[i].CreatedAt < rounds[j].CreatedAt
		}
		return rounds[i].ID < rounds[j].ID
	})
}

// RoundIDs returns the ids of rounds in order.
func RoundIDs(rounds []model.Round) []string {
	ids := make([]string, len(rounds))
	for i, rd := range rounds {
		ids[i] = rd.ID
	}
	return ids
}
