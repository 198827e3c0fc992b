package worker

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/faaalmv/saf-gda/internal/extract"
	"github.com/faaalmv/saf-gda/internal/jobsource"
	"github.com/faaalmv/saf-gda/internal/pipeline"
)

// Runner executes one job inside an execution slot and always returns a
// fully-populated result, never an error.
type Runner interface {
	Run(ctx context.Context, workerID int, job jobsource.Job) extract.Result
}

// Unit wraps the extraction pipeline and the field rules into a single
// synchronous call. Every failure path (missing document, decode error,
// engine failure) is converted to a FAIL result with the elapsed span and
// executing slot recorded, so failures stay traceable.
type Unit struct {
	pipeline *pipeline.Pipeline
	logger   *slog.Logger
}

func NewUnit(p *pipeline.Pipeline, logger *slog.Logger) *Unit {
	if logger == nil {
		logger = slog.Default()
	}
	return &Unit{pipeline: p, logger: logger}
}

func (u *Unit) Run(ctx context.Context, workerID int, job jobsource.Job) extract.Result {
	start := time.Now()

	raw, err := os.ReadFile(job.DocumentPath)
	if err != nil {
		return u.fail(job, workerID, start, fmt.Errorf("read document: %w", err))
	}

	analysis, err := u.pipeline.Analyze(ctx, raw)
	if err != nil {
		return u.fail(job, workerID, start, err)
	}

	fields := extract.ExtractFields(analysis.Transcript, analysis.BarcodePayload)
	res := extract.OKResult(job.ID, workerID, time.Since(start), fields)
	u.logger.Debug("job extracted",
		"job_id", job.ID,
		"worker_id", workerID,
		"elapsed_s", res.ElapsedSeconds,
		"transcript_bytes", len(analysis.Transcript),
		"has_barcode", analysis.BarcodePayload != "",
	)
	return res
}

func (u *Unit) fail(job jobsource.Job, workerID int, start time.Time, err error) extract.Result {
	u.logger.Warn("job failed", "job_id", job.ID, "worker_id", workerID, "error", err)
	return extract.FailResult(job.ID, workerID, time.Since(start), err.Error())
}
