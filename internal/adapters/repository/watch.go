package repository

import (
	"context"
	"fmt"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/docstore"
	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/internal/domain/rubric"
)

func watch[T any](ctx context.Context, r *Repository, q docstore.Query, sortFn func([]T), fn func([]T)) (docstore.Subscription, error) {
	sub, err := r.store.Subscribe(ctx, q, func(docs []docstore.Document) {
		items := decodeAll[T](docs, r.skip(ctx, q.Collection))
		if sortFn != nil {
			sortFn(items)
		}
		fn(items)
	})
	if err != nil {
		return nil, fmt.Errorf("watch %s: %w", q.Collection, err)
	}
	return sub, nil
}

// WatchTeams calls fn with the roster now and after every change.
func (r *Repository) WatchTeams(ctx context.Context, fn func([]model.Team)) (docstore.Subscription, error) {
	return watch(ctx, r, docstore.Collection(CollTeams), sortTeams, fn)
}

// WatchTopics calls fn with the topics now and after every change.
func (r *Repository) WatchTopics(ctx context.Context, fn func([]rubric.Topic)) (docstore.Subscription, error) {
	return watch(ctx, r, docstore.Collection(CollTopics), sortTopics, fn)
}

// WatchRounds calls fn with the rounds now and after every change.
func (r *Repository) WatchRounds(ctx context.Context, fn func([]model.Round)) (docstore.Subscription, error) {
	return watch(ctx, r, docstore.Collection(CollRounds), sortRounds, fn)
}

// WatchCheckpoints calls fn with every checkpoint now and after every change.
func (r *Repository) WatchCheckpoints(ctx context.Context, fn func([]model.Checkpoint)) (docstore.Subscription, error) {
	return watch(ctx, r, docstore.Collection(CollCheckpoints), sortCheckpoints, fn)
}

// WatchScans calls fn with the scans created since sinceMs, newest first.
func (r *Repository) WatchScans(ctx context.Context, sinceMs int64, limit int, fn func([]model.Scan)) (docstore.Subscription, error) {
	return watch(ctx, r, recentScans(sinceMs, limit), nil, fn)
}
