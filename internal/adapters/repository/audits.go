package repository

import (
	"context"
	"fmt"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/docstore"
	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
)

func auditData(a model.AuditRecord) map[string]any {
	data := map[string]any{
		"uid":     a.Actor,
		"teamId":  a.TeamID,
		"probeId": a.Field,
		"before":  map[string]any{"v": a.Before.Value, "n": a.Before.Note},
		"after":   map[string]any{"v": a.After.Value, "n": a.After.Note},
		"at":      a.At,
	}
	if a.Sub != "" {
		data["colKey"] = a.Sub
	}
	return data
}

// Audits returns the newest audit records of a team; limit 0 returns all.
func (r *Repository) Audits(ctx context.Context, teamID string, limit int) ([]model.AuditRecord, error) {
	q := docstore.Collection(CollAudits).
		Where("teamId", docstore.OpEq, teamID).
		Order("at", true).
		Take(limit)
	docs, err := r.store.Find(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("list audits of %s: %w", teamID, err)
	}
	return decodeAll[model.AuditRecord](docs, r.skip(ctx, CollAudits)), nil
}
