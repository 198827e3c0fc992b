package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/faaalmv/saf-gda/constants"
	"github.com/faaalmv/saf-gda/internal/archive"
	"github.com/faaalmv/saf-gda/internal/common"
	"github.com/faaalmv/saf-gda/internal/dashboard"
	"github.com/faaalmv/saf-gda/internal/jobsource"
	"github.com/faaalmv/saf-gda/internal/orchestrator"
	"github.com/faaalmv/saf-gda/internal/pipeline"
	"github.com/faaalmv/saf-gda/internal/repository"
	"github.com/faaalmv/saf-gda/internal/vision"
	"github.com/faaalmv/saf-gda/internal/worker"
)

func main() {
	_ = godotenv.Load()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Batch.SourceDir == "" {
		logger.Error("SAF_SOURCE_DIR is required")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := archive.Open(cfg.Archive.Path, logger)
	if err != nil {
		logger.Error("archive unavailable", "error", err)
		os.Exit(1)
	}
	defer func() { _ = store.Close() }()

	var entryRepo repository.EntryRepository
	if cfg.Database.DSN != "" {
		pool, err := repository.Open(ctx, repository.Config{
			DSN:              cfg.Database.DSN,
			MaxConns:         cfg.Database.MaxConns,
			MinConns:         cfg.Database.MinConns,
			MaxConnLifetime:  cfg.Database.MaxConnLifetime,
			MaxConnIdleTime:  cfg.Database.MaxConnIdleTime,
			DialTimeout:      cfg.Database.DialTimeout,
			StatementTimeout: cfg.Database.StatementTimeout,
		}, logger)
		if err != nil {
			logger.Error("database unavailable", "error", err)
			os.Exit(1)
		}
		defer repository.Close(pool, logger)
		entryRepo = repository.NewEntryRepository(pool, logger)
	} else {
		logger.Warn("SAF_DB_URL not set; results go to the archive only")
	}

	engine := vision.NewEngine(vision.Config{
		Tesseract:    cfg.Vision.Tesseract,
		Zbarimg:      cfg.Vision.Zbarimg,
		Language:     cfg.Vision.Language,
		TessdataDir:  cfg.Vision.TessdataDir,
		ScanStrategy: cfg.Vision.ScanStrategy,
	}, logger)
	unit := worker.NewUnit(pipeline.New(engine, logger), logger)
	source := jobsource.NewDirectorySource(cfg.Batch.SourceDir, logger)

	orch := orchestrator.New(orchestrator.Config{
		Workers:      cfg.Batch.Workers,
		JobTimeout:   cfg.Batch.JobTimeout,
		FetchTimeout: cfg.Batch.FetchTimeout,
	}, source, unit, logger)

	hub := dashboard.NewHub(logger)
	server := dashboard.NewServer(hub, store, logger)

	// Overlapping ticks are skipped: one batch at a time.
	var running atomic.Bool
	runBatch := func() {
		if !running.CompareAndSwap(false, true) {
			logger.Warn("previous batch still running, skipping tick")
			return
		}
		defer running.Store(false)

		batch, err := orch.RunBatch(ctx)
		if err != nil {
			logger.Error("scheduled batch aborted", "error", err)
			return
		}
		if len(batch.Results) == 0 {
			return
		}
		if err := store.SaveBatch(ctx, batch); err != nil {
			logger.Error("archive write failed", "batch_id", batch.ID, "error", err)
		}
		if entryRepo != nil {
			var entries []repository.Entry
			for _, r := range batch.Results {
				if r.Status == constants.StatusOK {
					entries = append(entries, repository.EntryFromResult(r))
				}
			}
			if _, err := entryRepo.BulkCopy(ctx, entries); err != nil {
				logger.Error("bulk load failed", "batch_id", batch.ID, "error", err)
			}
		}
		hub.BroadcastBatch(batch)
	}

	sched := cron.New()
	if _, err := sched.AddFunc(cfg.Batch.CronSpec, runBatch); err != nil {
		logger.Error("invalid batch schedule", "spec", cfg.Batch.CronSpec, "error", err)
		os.Exit(1)
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Start(cfg.Dashboard.Addr)
	})
	g.Go(func() error {
		sched.Start()
		<-gctx.Done()
		stopCtx := sched.Stop()
		<-stopCtx.Done()

		shutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutCtx)
	})

	logger.Info("safgdad started",
		"schedule", cfg.Batch.CronSpec,
		"source_dir", cfg.Batch.SourceDir,
		"dashboard", cfg.Dashboard.Addr,
		"workers", cfg.Batch.Workers,
	)
	if err := g.Wait(); err != nil {
		logger.Error("daemon stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("safgdad stopped")
}
