package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/faaalmv/saf-gda/constants"
	"github.com/faaalmv/saf-gda/internal/common"
	"github.com/faaalmv/saf-gda/internal/export"
	"github.com/faaalmv/saf-gda/internal/jobsource"
	"github.com/faaalmv/saf-gda/internal/orchestrator"
	"github.com/faaalmv/saf-gda/internal/pipeline"
	"github.com/faaalmv/saf-gda/internal/repository"
	"github.com/faaalmv/saf-gda/internal/vision"
	"github.com/faaalmv/saf-gda/internal/worker"
)

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...interface{}) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	var (
		dir      = flag.String("dir", "", "directory of document images to process")
		manifest = flag.String("manifest", "", "JSON job manifest (alternative to --dir)")
		out      = flag.String("out", "", "output XLSX path (optional)")
		load     = flag.Bool("load", false, "bulk-load OK results into Postgres")
		verbose  = flag.Bool("v", false, "debug logging")
	)
	flag.Parse()

	if (*dir == "") == (*manifest == "") {
		printError("Error: exactly one of --dir or --manifest is required\n")
		os.Exit(1)
	}

	_ = godotenv.Load()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	cfg := common.LoadConfig()
	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx := context.Background()

	var source jobsource.Source
	if *dir != "" {
		source = jobsource.NewDirectorySource(*dir, logger)
	} else {
		source = jobsource.NewManifestSource(*manifest, logger)
	}

	engine := vision.NewEngine(vision.Config{
		Tesseract:    cfg.Vision.Tesseract,
		Zbarimg:      cfg.Vision.Zbarimg,
		Language:     cfg.Vision.Language,
		TessdataDir:  cfg.Vision.TessdataDir,
		ScanStrategy: cfg.Vision.ScanStrategy,
	}, logger)
	unit := worker.NewUnit(pipeline.New(engine, logger), logger)

	orch := orchestrator.New(orchestrator.Config{
		Workers:      cfg.Batch.Workers,
		JobTimeout:   cfg.Batch.JobTimeout,
		FetchTimeout: cfg.Batch.FetchTimeout,
	}, source, unit, logger)

	batch, err := orch.RunBatch(ctx)
	if err != nil {
		logger.Error("batch aborted", "error", err)
		os.Exit(1)
	}

	summary, _ := json.Marshal(batch.Metrics)
	fmt.Println(string(summary))

	if *out != "" {
		if err := export.NewService(logger).WriteBatchXLSX(batch, *out); err != nil {
			logger.Error("export failed", "error", err)
			os.Exit(1)
		}
	}

	if *load {
		if cfg.Database.DSN == "" {
			logger.Error("--load requires SAF_DB_URL")
			os.Exit(1)
		}
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

		var entries []repository.Entry
		for _, r := range batch.Results {
			if r.Status == constants.StatusOK {
				entries = append(entries, repository.EntryFromResult(r))
			}
		}
		n, err := repository.NewEntryRepository(pool, logger).BulkCopy(ctx, entries)
		if err != nil {
			logger.Error("bulk load failed", "error", err)
			os.Exit(1)
		}
		logger.Info("bulk load committed", "rows", n)
	}
}
