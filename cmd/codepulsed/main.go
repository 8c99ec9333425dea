package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codepulse-dev/codepulse/internal/aggregation"
	"github.com/codepulse-dev/codepulse/internal/config"
	"github.com/codepulse-dev/codepulse/internal/core/language"
	"github.com/codepulse-dev/codepulse/internal/core/storage/postgres"
	"github.com/codepulse-dev/codepulse/internal/ingestion"
	"github.com/codepulse-dev/codepulse/internal/migrations"
	"github.com/codepulse-dev/codepulse/internal/server"
	"github.com/codepulse-dev/codepulse/internal/sessioncache"
	"github.com/codepulse-dev/codepulse/internal/stats"
	"golang.org/x/sync/errgroup"
)

func main() {
	configPath := flag.String("config", "codepulse.yaml", "Path to configuration file")
	flag.Parse()

	// 0. Initialize Logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// 1. Load Configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	slog.Info("Loaded config", "config", cfg)

	cronInterval, err := time.ParseDuration(cfg.Aggregation.CronInterval)
	if err != nil {
		slog.Error("Invalid aggregation interval", "value", cfg.Aggregation.CronInterval, "error", err)
		os.Exit(1)
	}
	sweepInterval, err := time.ParseDuration(cfg.SessionCache.SweepInterval)
	if err != nil {
		slog.Error("Invalid sweep interval", "value", cfg.SessionCache.SweepInterval, "error", err)
		os.Exit(1)
	}

	// 2. Initialize Storage (PostgreSQL)
	dbAdapter, err := postgres.NewAdapter(
		cfg.Database.DSN,
		cfg.Database.MaxOpenConns,
		cfg.Database.MaxIdleConns,
	)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer dbAdapter.Close()

	// 2.1. Run Database Migrations
	if err := migrations.RunMigrations(dbAdapter.DB(), cfg.Database.AutoMigrate); err != nil {
		slog.Error("Failed to run database migrations", "error", err)
		os.Exit(1)
	}

	watermarkStore := postgres.NewWatermarkAdapter(dbAdapter.DB())
	summaryStore := postgres.NewSummaryAdapter(dbAdapter.DB())
	sessionCache := postgres.NewSessionAdapter(dbAdapter.DB())
	runLocker := postgres.NewAdvisoryLocker(dbAdapter.DB())

	// 3. Initialize Language Normalizer
	normalizer, err := language.NewNormalizer(cfg.Language.AliasDir)
	if err != nil {
		slog.Error("Failed to load language aliases", "dir", cfg.Language.AliasDir, "error", err)
		os.Exit(1)
	}
	slog.Info("Language normalizer initialized", "aliases", normalizer.Count())

	// 4. Initialize Aggregation (Cron-based batch processing)
	scheduler := aggregation.NewScheduler(
		cronInterval,
		dbAdapter, // EventStore
		watermarkStore,
		summaryStore,
		runLocker,
		aggregation.JobParameter{BatchSize: cfg.Aggregation.BatchSize},
	)
	slog.Info("Aggregation scheduler initialized",
		"interval", cronInterval,
		"enabled", cfg.Aggregation.Enabled,
		"batch_size", cfg.Aggregation.BatchSize,
	)

	// 5. Initialize Session Cache Sweeper
	sweeper := sessioncache.NewSweeper(sweepInterval, sessionCache)

	// 6. Initialize HTTP Services
	ingestionSvc := ingestion.NewService(dbAdapter, normalizer, cfg.Server.MaxBodySizeMB)
	statsSvc := stats.NewService(summaryStore)

	srv := server.New(fmtAddr(cfg.Server.Host, cfg.Server.Port), dbAdapter.DB(), cfg.Server.Mode)
	ingestionSvc.RegisterRoutes(srv.Engine)
	statsSvc.RegisterRoutes(srv.Engine)

	// 7. Start Services
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Signal handler triggers the shutdown sequence below.
	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		slog.Info("Signal received, shutting down...")
		cancel()
	}()

	g, gctx := errgroup.WithContext(ctx)

	if cfg.Aggregation.Enabled {
		g.Go(func() error {
			return scheduler.Start(gctx)
		})
	} else {
		slog.Info("Aggregation scheduler disabled by config")
	}

	if cfg.SessionCache.SweepEnabled {
		g.Go(func() error {
			return sweeper.Start(gctx)
		})
	} else {
		slog.Info("Session cache sweeper disabled by config")
	}

	g.Go(func() error {
		return srv.Run(gctx)
	})

	if err := g.Wait(); err != nil {
		slog.Error("Service stopped with error", "error", err)
	}

	slog.Info("Shutdown complete")
}

func fmtAddr(host string, port int) string {
	return fmt.Sprintf("%s:%d", host, port)
}
