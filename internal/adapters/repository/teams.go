package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/docstore"
	"github.com/ralucacrepcea/scoreapp/internal/domain/editbuf"
	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/pkg/logger"
)

// Teams returns the roster ordered by name, then id.
func (r *Repository) Teams(ctx context.Context) ([]model.Team, error) {
	docs, err := r.store.Find(ctx, docstore.Collection(CollTeams))
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	teams := decodeAll[model.Team](docs, r.skip(ctx, CollTeams))
	sortTeams(teams)
	return teams, nil
}

// Team returns one team.
func (r *Repository) Team(ctx context.Context, id string) (model.Team, error) {
	var t model.Team
	if err := r.get(ctx, CollTeams, id, &t); err != nil {
		return model.Team{}, err
	}
	return t, nil
}

// PutTeam creates a team or renames an existing one, keeping its scores.
func (r *Repository) PutTeam(ctx context.Context, id, name string) error {
	if err := r.store.Set(ctx, CollTeams, id, map[string]any{"name": name}, true); err != nil {
		return fmt.Errorf("put team %s: %w", id, err)
	}
	return nil
}

// CommitSave applies a judge save to the team and appends its audit record
// in one batch.
func (r *Repository) CommitSave(ctx context.Context, teamID string, writes []editbuf.FieldWrite, audit model.AuditRecord) error {
	fields := make([]docstore.FieldWrite, 0, len(writes))
	for _, w := range writes {
		fields = append(fields, docstore.Set(w.Value, w.Path...))
	}
	err := r.store.Batch(ctx, []docstore.Write{
		{Kind: docstore.KindUpdate, Collection: CollTeams, ID: teamID, Fields: fields},
		{Kind: docstore.KindSet, Collection: CollAudits, ID: audit.ID, Data: auditData(audit)},
	})
	if err != nil {
		return fmt.Errorf("commit save on %s: %w", teamID, err)
	}
	return nil
}

func sortTeams(teams []model.Team) {
	sort.Slice(teams, func(i, j int) bool {
		a, b := strings.ToLower(teams[i].DisplayName()), strings.ToLower(teams[j].DisplayName())
		if a != b {
			return a < b
		}
		return teams[i].ID < teams[j].ID
	})
}

func (r *Repository) skip(ctx context.Context, coll string) func(string, error) {
	return func(id string, err error) {
		r.log.Warn(ctx, "skipping undecodable document",
			logger.String("collection", coll),
			logger.String("id", id),
			logger.Error(err))
	}
}
