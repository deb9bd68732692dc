package repository

import "github.com/ralucacrepcea/scoreapp/pkg/logger"

// Option applies a configuration option to the Repository.
type Option func(*Repository)

// WithBatchSize sets the team writes per roster chunk, capped by the store
// batch limit.
func WithBatchSize(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.batchSize = min(n, 500)
		}
	}
}

// WithConcurrency bounds the roster chunks committed at once.
func WithConcurrency(n int) Option {
	return func(r *Repository) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Repository) {
		if l != nil {
			r.log = l
		}
	}
}
