package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/http/api"
	"github.com/ralucacrepcea/scoreapp/internal/adapters/http/swagger"
	service "github.com/ralucacrepcea/scoreapp/internal/app"
	"github.com/ralucacrepcea/scoreapp/pkg/logger"
	"github.com/ralucacrepcea/scoreapp/pkg/metrics"
)

// HTTP server timeouts.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 30 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	serviceMetricsInterval = 5 * time.Second
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API and the scan workers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
}

func runServe(parent context.Context, opts *rootOptions) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	e, err := setup(ctx, opts)
	if err != nil {
		return err
	}
	defer e.Close()

	if err := e.svc.Start(ctx); err != nil {
		e.log.Error(ctx, "failed to start service", logger.Error(err))
		return err
	}
	defer e.svc.Stop(context.WithoutCancel(ctx))

	go updateServiceMetrics(ctx, e.svc)

	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(e.svc, e.cfg.MaxRankingLimit, e.log.Named("api")).Register(ctx, mux)

	srv := &http.Server{
		Addr:              e.cfg.Addr,
		Handler:           mux,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		e.log.Info(ctx, "starting HTTP server", logger.String("addr", e.cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
	case err := <-errCh:
		if err != nil {
			e.log.Error(ctx, "HTTP server failed", logger.Error(err))
			return err
		}
	}
	e.log.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		e.log.Error(ctx, "server shutdown failed", logger.Error(err))
	}
	e.log.Info(ctx, "server stopped")
	return nil
}

// updateServiceMetrics refreshes the gauges derived from service stats
// until ctx is done.
func updateServiceMetrics(ctx context.Context, svc *service.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			stats := svc.GetStats(ctx)
			metrics.UpdateQueueSize(stats.QueueLength)
			metrics.UpdateQueueCapacity(stats.QueueCapacity)
			metrics.UpdateWorkerCount(stats.WorkerCount)
			metrics.UpdateTeamsTotal(stats.Teams)
		}
	}
}
