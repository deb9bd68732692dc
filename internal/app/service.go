// Package service is the scoreboard engine: it wires the store, the scan
// pipeline and the domain rules behind the operations the API exposes.
package service

import (
	"context"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/docstore"
	eventqueue "github.com/ralucacrepcea/scoreapp/internal/adapters/mq/queue"
	workerpool "github.com/ralucacrepcea/scoreapp/internal/adapters/mq/worker"
	"github.com/ralucacrepcea/scoreapp/internal/adapters/repository"
	"github.com/ralucacrepcea/scoreapp/internal/domain/checkpoint"
	"github.com/ralucacrepcea/scoreapp/internal/domain/dedupe"
	"github.com/ralucacrepcea/scoreapp/internal/domain/editbuf"
	"github.com/ralucacrepcea/scoreapp/internal/domain/unlock"
	"github.com/ralucacrepcea/scoreapp/pkg/logger"
	"github.com/ralucacrepcea/scoreapp/pkg/metrics"
)

// Service implements the scoreboard operations.
type Service struct {
	mu sync.RWMutex

	repo       *repository.Repository
	reconciler *checkpoint.Reconciler
	saver      *editbuf.Saver
	buffers    *editbuf.Buffers
	deduper    dedupe.Deduper
	eventQueue eventqueue.Queue
	workerPool *workerpool.Pool
	locks      keyLocks

	stateMu sync.Mutex
	state   atomic.Pointer[Snapshot]
	subs    []docstore.Subscription
	cancel  context.CancelFunc

	// Configuration
	workerCount        int
	queueSize          int
	dedupeSize         int
	grace              time.Duration
	maxCheckpoints     int
	defaultCheckpoints int
	missionWeight      float64
	lookback           time.Duration
	scanLimit          int
	now                func() time.Time

	started bool
	logger  logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithWorkerCount sets the number of scan workers.
func WithWorkerCount(count int) Option {
	return func(s *Service) {
		if count > 0 {
			s.workerCount = count
		}
	}
}

// WithQueueSize sets the capacity of the scan queue.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithDedupeSize sets the capacity of the scan event id cache.
func WithDedupeSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.dedupeSize = size
		}
	}
}

// WithGraceWindow sets how long a scan accepts readings after creation.
func WithGraceWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.grace = d
		}
	}
}

// WithMaxCheckpoints caps the checkpoint count of a round.
func WithMaxCheckpoints(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxCheckpoints = n
		}
	}
}

// WithDefaultCheckpoints sets the count used when a round is created without one.
func WithDefaultCheckpoints(n int) Option {
	return func(s *Service) {
		if n >= 0 {
			s.defaultCheckpoints = n
		}
	}
}

// WithMissionWeight sets the weight of a newly created Mission Performance topic.
func WithMissionWeight(w float64) Option {
	return func(s *Service) {
		if w >= 0 {
			s.missionWeight = w
		}
	}
}

// WithScanLookback limits the live scan view to scans created within d,
// at most limit of them.
func WithScanLookback(d time.Duration, limit int) Option {
	return func(s *Service) {
		if d > 0 {
			s.lookback = d
		}
		if limit > 0 {
			s.scanLimit = limit
		}
	}
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service over repo. Admin, grading and edit operations
// work right away; scan ingestion and the live view need Start.
func New(repo *repository.Repository, opts ...Option) *Service {
	s := &Service{
		repo:               repo,
		workerCount:        runtime.NumCPU(),
		queueSize:          10_000,
		dedupeSize:         100_000,
		grace:              unlock.DefaultGrace,
		maxCheckpoints:     checkpoint.DefaultMax,
		defaultCheckpoints: 6,
		missionWeight:      20,
		lookback:           12 * time.Hour,
		scanLimit:          5000,
		now:                time.Now,
		logger:             logger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}

	s.reconciler = checkpoint.NewReconciler(repo,
		checkpoint.WithMax(s.maxCheckpoints),
		checkpoint.WithClock(s.now),
		checkpoint.WithLogger(s.logger.Named("reconciler")))
	s.saver = editbuf.NewSaver(repo,
		editbuf.WithClock(s.now),
		editbuf.WithLogger(s.logger.Named("saver")))
	s.buffers = editbuf.NewBuffers()
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	return s
}

// Start ensures the Mission Performance topic exists, subscribes the live
// view and starts the scan workers.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	s.logger.Info(ctx, "starting scoreboard service...")

	if _, err := s.EnsureMission(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	if err := s.watch(runCtx); err != nil {
		cancel()
		return err
	}
	s.cancel = cancel

	s.eventQueue = eventqueue.NewInMemoryQueue(eventqueue.WithCapacity(s.queueSize))
	s.workerPool = workerpool.NewPool(s.workerCount, s.eventQueue, s,
		workerpool.WithLogger(s.logger))
	s.workerPool.Start(runCtx)

	s.started = true
	s.logger.Info(ctx, "scoreboard service started",
		logger.Int("workers", s.workerCount),
		logger.Int("queueSize", s.queueSize),
		logger.Int("dedupeSize", s.dedupeSize),
		logger.Int64("graceMs", s.grace.Milliseconds()),
	)
	return nil
}

// Stop drains the scan queue, then drops the live subscriptions.
func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}
	s.logger.Info(ctx, "stopping scoreboard service...")

	if err := s.workerPool.Shutdown(ctx); err != nil {
		s.logger.Warn(ctx, "worker pool shutdown", logger.Error(err))
	}
	for _, sub := range s.subs {
		sub.Close()
	}
	s.subs = nil
	s.cancel()

	s.started = false
	s.logger.Info(ctx, "scoreboard service stopped")
}

func (s *Service) isStarted() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Stats is a monitoring summary.
type Stats struct {
	Started       bool   `json:"started"`
	WorkerCount   int    `json:"workerCount"`
	QueueCapacity int    `json:"queueCapacity"`
	QueueLength   int    `json:"queueLength"`
	DedupeSize    int64  `json:"dedupeSize"`
	Teams         int    `json:"teams"`
	Topics        int    `json:"topics"`
	Rounds        int    `json:"rounds"`
	Scans         int    `json:"scans"`
	BufferedEdits int    `json:"bufferedEdits"`
	GraceMs       int64  `json:"graceMs"`
	Now           string `json:"now"`
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) Stats {
	s.mu.RLock()
	started, q := s.started, s.eventQueue
	s.mu.RUnlock()

	stats := Stats{
		Started:       started,
		WorkerCount:   s.workerCount,
		QueueCapacity: s.queueSize,
		DedupeSize:    s.deduper.Size(),
		BufferedEdits: s.buffers.Total(),
		GraceMs:       s.grace.Milliseconds(),
		Now:           s.now().UTC().Format(time.RFC3339),
	}
	if started {
		stats.QueueLength = q.Len(ctx)
	}
	if st, err := s.snapshot(ctx); err == nil {
		stats.Teams = len(st.Teams)
		stats.Topics = len(st.Topics)
		stats.Rounds = len(st.Rounds)
		stats.Scans = len(st.Scans)
	}
	metrics.UpdateBufferedEdits(stats.BufferedEdits)
	return stats
}
