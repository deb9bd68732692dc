package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ralucacrepcea/scoreapp/internal/adapters/docstore"
	"github.com/ralucacrepcea/scoreapp/internal/adapters/repository"
	service "github.com/ralucacrepcea/scoreapp/internal/app"
	"github.com/ralucacrepcea/scoreapp/internal/config"
	"github.com/ralucacrepcea/scoreapp/pkg/logger"
)

type rootOptions struct {
	configPath string
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:           "scoreboard",
		Short:         "Competition scoreboard: checkpoint scans, rubric grading and rankings",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	cmd.PersistentFlags().StringVarP(&opts.configPath, "config", "c", "",
		"YAML config file (overrides SCOREBOARD_CONFIG)")

	cmd.AddCommand(
		newServeCmd(opts),
		newExportCmd(opts),
		newReconcileCmd(opts),
	)
	return cmd
}

// env bundles what every command needs once configuration is loaded.
type env struct {
	cfg  *config.Config
	log  logger.Logger
	repo *repository.Repository
	svc  *service.Service
}

func (e *env) Close() {
	if err := e.repo.Close(); err != nil {
		e.log.Warn(context.Background(), "closing store", logger.Error(err))
	}
	_ = logger.Sync()
}

func setup(ctx context.Context, opts *rootOptions) (*env, error) {
	var (
		cfg *config.Config
		err error
	)
	if opts.configPath != "" {
		cfg, err = config.LoadFile(ctx, opts.configPath)
	} else {
		cfg, err = config.Load(ctx)
	}
	if err != nil {
		return nil, err
	}

	if err := logger.InitWith(os.Stderr, cfg.LogFormat); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}
	log := logger.Get()
	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		log.Warn(ctx, "invalid log_level; falling back to info",
			logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	store, err := openStore(cfg)
	if err != nil {
		return nil, err
	}
	log.Info(ctx, "document store opened", logger.String("driver", cfg.StoreDriver))

	repo := repository.New(store,
		repository.WithBatchSize(cfg.BatchSize),
		repository.WithConcurrency(cfg.BatchConcurrency),
		repository.WithLogger(log.Named("repository")))
	return &env{cfg: cfg, log: log, repo: repo, svc: newService(cfg, repo, log)}, nil
}

func openStore(cfg *config.Config) (docstore.Store, error) {
	switch cfg.StoreDriver {
	case config.DriverSQLite:
		s, err := docstore.OpenSQLite(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("open sqlite %s: %w", cfg.SQLitePath, err)
		}
		return s, nil
	case config.DriverMemory:
		return docstore.NewMemoryStore(), nil
	}
	return nil, fmt.Errorf("%w: unknown store_driver %q", config.ErrInvalidConfig, cfg.StoreDriver)
}

func newService(cfg *config.Config, repo *repository.Repository, log logger.Logger) *service.Service {
	return service.New(repo,
		service.WithLogger(log.Named("service")),
		service.WithWorkerCount(cfg.ScanWorkers),
		service.WithQueueSize(cfg.ScanQueueSize),
		service.WithDedupeSize(cfg.DedupeSize),
		service.WithGraceWindow(cfg.GraceWindow()),
		service.WithMaxCheckpoints(cfg.MaxCheckpoints),
		service.WithDefaultCheckpoints(cfg.DefaultRoundCheckpoints),
		service.WithMissionWeight(cfg.DefaultMissionWeight),
		service.WithScanLookback(cfg.ScanLookback(), cfg.ScanQueryLimit),
	)
}
