// Package repository maps scoreboard models onto document store collections.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/docstore"
	"github.com/ralucacrepcea/scoreapp/pkg/logger"
)

// Collection names.
const (
	CollTeams       = "teams"
	CollTopics      = "topics"
	CollRounds      = "rounds"
	CollCheckpoints = "checkpoints"
	CollScans       = "scans"
	CollAudits      = "audits"
)

const (
	defaultBatchSize   = 450
	defaultConcurrency = 4
)

// Repository is typed access to every collection.
type Repository struct {
	store       docstore.Store
	batchSize   int
	concurrency int
	log         logger.Logger
}

// New creates a Repository over store.
func New(store docstore.Store, opts ...Option) *Repository {
	r := &Repository{
		store:       store,
		batchSize:   defaultBatchSize,
		concurrency: defaultConcurrency,
		log:         logger.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Store exposes the underlying document store.
func (r *Repository) Store() docstore.Store { return r.store }

// BatchSize is the number of team writes per roster chunk.
func (r *Repository) BatchSize() int { return r.batchSize }

// Close closes the underlying store.
func (r *Repository) Close() error { return r.store.Close() }

func (r *Repository) get(ctx context.Context, coll, id string, out any) error {
	doc, err := r.store.Get(ctx, coll, id)
	if err != nil {
		if errors.Is(err, docstore.ErrNotFound) {
			return fmt.Errorf("%w: %s/%s", ErrNotFound, coll, id)
		}
		return fmt.Errorf("get %s/%s: %w", coll, id, err)
	}
	return decode(doc, out)
}

// notFound maps a store miss onto ErrNotFound and wraps anything else.
func (r *Repository) notFound(err error, coll, id string) error {
	if errors.Is(err, docstore.ErrNotFound) {
		return fmt.Errorf("%w: %s/%s", ErrNotFound, coll, id)
	}
	return fmt.Errorf("update %s/%s: %w", coll, id, err)
}
