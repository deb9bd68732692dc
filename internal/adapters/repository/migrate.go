package repository

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/docstore"
	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/pkg/logger"
	"github.com/ralucacrepcea/scoreapp/pkg/metrics"
)

// BatchReport lists the records a chunked mutation migrated and the ones
// whose chunk failed. Failed chunks are not retried.
type BatchReport struct {
	Migrated []string `json:"migrated"`
	Failed   []string `json:"failed"`
	Errors   []error  `json:"-"`
}

// Err returns nil when every chunk committed, otherwise ErrPartialBatch
// joined with the chunk errors.
func (b BatchReport) Err() error {
	if len(b.Failed) == 0 {
		return nil
	}
	return errors.Join(append([]error{ErrPartialBatch}, b.Errors...)...)
}

// Change is the set of writes that migrates one record.
type Change struct {
	ID     string
	Writes []docstore.Write
}

// TeamMigration returns the field writes for one team, or none to skip it.
type TeamMigration func(model.Team) []docstore.FieldWrite

// MigrateRoster applies fn to every team in chunks.
func (r *Repository) MigrateRoster(ctx context.Context, fn TeamMigration) (BatchReport, error) {
	teams, err := r.Teams(ctx)
	if err != nil {
		return BatchReport{}, err
	}
	changes := make([]Change, 0, len(teams))
	for _, t := range teams {
		fields := fn(t)
		if len(fields) == 0 {
			continue
		}
		changes = append(changes, Change{ID: t.ID, Writes: []docstore.Write{{
			Kind: docstore.KindUpdate, Collection: CollTeams, ID: t.ID, Fields: fields,
		}}})
	}
	return r.Commit(ctx, changes)
}

// Commit groups changes into batches of at most BatchSize writes and commits
// them with bounded concurrency. A change is never split across batches.
// The returned error is only set for a cancelled context or when some chunk
// failed; the report is filled either way.
func (r *Repository) Commit(ctx context.Context, changes []Change) (BatchReport, error) {
	var (
		mu     sync.Mutex
		report BatchReport
	)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for _, chunk := range r.chunk(changes) {
		g.Go(func() error {
			var writes []docstore.Write
			ids := make([]string, 0, len(chunk))
			for _, c := range chunk {
				writes = append(writes, c.Writes...)
				ids = append(ids, c.ID)
			}
			// A chunk skipped after cancellation is still reported as failed.
			if err := gctx.Err(); err != nil {
				mu.Lock()
				report.Failed = append(report.Failed, ids...)
				report.Errors = append(report.Errors, err)
				mu.Unlock()
				return err
			}
			err := r.store.Batch(gctx, writes)
			metrics.RecordBatchChunk(err == nil, len(ids))

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				r.log.Error(gctx, "batch chunk failed",
					logger.Int("records", len(ids)),
					logger.Error(err))
				report.Failed = append(report.Failed, ids...)
				report.Errors = append(report.Errors, err)
				return nil
			}
			report.Migrated = append(report.Migrated, ids...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return report, fmt.Errorf("batch commit: %w", err)
	}
	return report, report.Err()
}

func (r *Repository) chunk(changes []Change) [][]Change {
	var (
		out  [][]Change
		cur  []Change
		size int
	)
	for _, c := range changes {
		n := len(c.Writes)
		if n == 0 {
			continue
		}
		if size+n > r.batchSize && len(cur) > 0 {
			out = append(out, cur)
			cur, size = nil, 0
		}
		cur = append(cur, c)
		size += n
	}
	if len(cur) > 0 {
		out = append(out, cur)
	}
	return out
}
