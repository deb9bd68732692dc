// Package worker drains the scan queue and applies events to the store.
package worker

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"strconv"
	"sync"
	"time"

	"github.com/ralucacrepcea/scoreapp/internal/domain/model"
	"github.com/ralucacrepcea/scoreapp/pkg/logger"
	"github.com/ralucacrepcea/scoreapp/pkg/metrics"
)

const poolShutdownTimeout = 30 * time.Second

// Event abstracts what workers read off the queue.
type Event = model.ScanEvent

// Applier upserts one scan event.
type Applier interface {
	Apply(ctx context.Context, e Event) error
}

// Queue defines how workers receive events.
type Queue interface {
	Dequeue(ctx context.Context) <-chan Event
}

// Worker processes events with the provided Applier.
type Worker interface {
	// Run starts the worker loop until ctx is canceled or the queue closes.
	Run(ctx context.Context)
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue   Queue
	applier Applier
	name    string

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a worker.
func NewInMemoryWorker(q Queue, applier Applier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:    q,
		applier:  applier,
		name:     "worker",
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
		logger:   logger.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)
	return w
}

// Run starts the worker loop.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	events := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			metrics.RecordQueueDequeue()
			if err := w.process(ctx, e); err != nil {
				w.logger.Error(ctx, "error processing scan event", logger.Error(err))
			}
		}
	}
}

// Shutdown stops the worker after its current event.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, e Event) error { //nolint:gocritic // hugeParam: events travel by value
	start := time.Now()
	defer func() {
		metrics.RecordWorkerLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	if err := w.applier.Apply(ctx, e); err != nil {
		metrics.RecordWorkerError()
		metrics.RecordErrorByComponent("worker", "apply")
		w.logger.Error(ctx, "scan apply failed",
			logger.String("eventID", e.EventID),
			logger.String("team", e.TeamID),
			logger.String("checkpoint", e.CheckpointID),
			logger.Error(err))
		return fmt.Errorf("apply scan event %s: %w", e.EventID, err)
	}
	return nil
}

// Pool manages multiple workers over one queue.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue
	logger  logger.Logger
}

// NewPool creates a pool of workerCount workers. A count below one uses
// one worker per CPU.
func NewPool(workerCount int, q Queue, applier Applier, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = runtime.NumCPU()
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Nop(),
	}
	cfg := &InMemoryWorker{logger: logger.Nop()}
	for _, opt := range opts {
		opt(cfg)
	}
	pool.logger = cfg.logger.Named("worker-pool")

	for i := range workerCount {
		workerOpts := append(append([]Option{}, opts...), WithName("worker-"+strconv.Itoa(i)))
		pool.workers[i] = NewInMemoryWorker(q, applier, workerOpts...)
	}
	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Shutdown closes the queue and waits for workers to drain it. Workers still
// busy when ctx, or the pool timeout, expires are stopped after their
// current event.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	drainCtx, cancel := context.WithTimeout(ctx, poolShutdownTimeout)
	defer cancel()

	var errs []error
	for i, w := range p.workers {
		select {
		case <-w.done:
			continue
		case <-drainCtx.Done():
		}
		p.logger.Warn(ctx, "worker did not drain in time", logger.Int("worker_id", i))
		stopCtx, stop := context.WithTimeout(context.Background(), time.Second)
		if err := w.Shutdown(stopCtx); err != nil {
			errs = append(errs, err)
		}
		stop()
	}
	metrics.UpdateWorkerCount(0)
	return errors.Join(errs...)
}
