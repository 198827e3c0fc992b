package orchestrator

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/faaalmv/saf-gda/constants"
	"github.com/faaalmv/saf-gda/internal/extract"
	"github.com/faaalmv/saf-gda/internal/jobsource"
	"github.com/faaalmv/saf-gda/internal/worker"
)

// Config is the explicit batch configuration. It is passed at construction;
// nothing is read from ambient globals.
type Config struct {
	Workers      int           // pool capacity, default 4
	JobTimeout   time.Duration // independent per-job deadline
	FetchTimeout time.Duration // overall job-source fetch deadline
}

func (c *Config) applyDefaults() {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.JobTimeout <= 0 {
		c.JobTimeout = 90 * time.Second
	}
	if c.FetchTimeout <= 0 {
		c.FetchTimeout = 10 * time.Second
	}
}

// Batch is the complete outcome of one orchestrator invocation: one result
// per submitted job, in submission order, plus the reduced metrics.
type Batch struct {
	ID        string           `json:"batch_id"`
	StartedAt time.Time        `json:"started_at"`
	Results   []extract.Result `json:"results"`
	Metrics   Metrics          `json:"metrics"`
}

// Orchestrator is the single cooperative scheduler for a batch: it pulls
// jobs from the source, fans them out over a bounded pool, guards each wait
// with its own deadline, and reassembles results in submission order.
type Orchestrator struct {
	cfg    Config
	source jobsource.Source
	runner worker.Runner
	logger *slog.Logger
}

func New(cfg Config, source jobsource.Source, runner worker.Runner, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}
	cfg.applyDefaults()
	return &Orchestrator{cfg: cfg, source: source, runner: runner, logger: logger}
}

// RunBatch executes one FETCHING -> DISPATCHING -> COLLECTING -> DONE cycle.
// The only error return is a fetch failure or fetch deadline: fail-fast,
// nothing dispatched, no partial results. After dispatch every job yields
// exactly one result; a failing job never aborts its siblings.
func (o *Orchestrator) RunBatch(ctx context.Context) (Batch, error) {
	batch := Batch{ID: uuid.NewString(), StartedAt: time.Now().UTC()}

	// FETCHING
	fetchCtx, cancel := context.WithTimeout(ctx, o.cfg.FetchTimeout)
	jobs, err := o.source.Fetch(fetchCtx)
	cancel()
	if err != nil {
		o.logger.Error("batch fetch failed", "batch_id", batch.ID, "error", err)
		return batch, fmt.Errorf("fetch jobs: %w", err)
	}
	if fetchCtx.Err() != nil {
		return batch, fmt.Errorf("fetch jobs: %w", fetchCtx.Err())
	}
	o.logger.Info("batch fetched", "batch_id", batch.ID, "jobs", len(jobs))
	if len(jobs) == 0 {
		return batch, nil
	}

	// HIGH before NORMAL; stable, so source order survives within a class.
	ordered := make([]jobsource.Job, len(jobs))
	copy(ordered, jobs)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Priority == constants.PriorityHigh && ordered[j].Priority != constants.PriorityHigh
	})

	pool := worker.NewPool(o.runner, o.logger,
		worker.WithWorkers(o.cfg.Workers),
		worker.WithQueueSize(len(ordered)),
		worker.WithRunTimeout(o.cfg.JobTimeout),
	)

	// DISPATCHING: fan out every job without waiting on any of them.
	handles := make([]<-chan extract.Result, len(ordered))
	for i, job := range ordered {
		handles[i] = pool.Submit(job)
	}
	o.logger.Debug("batch dispatched", "batch_id", batch.ID, "jobs", len(ordered))

	// COLLECTING: await all handles concurrently, each under its own
	// deadline. A timeout cancels only that wait; the slot's context is
	// reclaimed by the pool's own run timeout.
	results := make([]extract.Result, len(ordered))
	var wg sync.WaitGroup
	for i, job := range ordered {
		wg.Add(1)
		go func(idx int, job jobsource.Job, h <-chan extract.Result) {
			defer wg.Done()
			timer := time.NewTimer(o.cfg.JobTimeout)
			defer timer.Stop()
			select {
			case res, ok := <-h:
				if !ok {
					results[idx] = extract.InfraErrorResult(job.ID, "execution slot closed without result")
					return
				}
				results[idx] = res
			case <-timer.C:
				o.logger.Warn("job deadline exceeded", "batch_id", batch.ID, "job_id", job.ID, "timeout", o.cfg.JobTimeout)
				results[idx] = extract.TimeoutResult(job.ID, o.cfg.JobTimeout)
			}
		}(i, job, handles[i])
	}
	wg.Wait()

	drainCtx, cancelDrain := context.WithTimeout(context.Background(), o.cfg.JobTimeout)
	pool.Shutdown(drainCtx)
	cancelDrain()

	// DONE
	batch.Results = results
	batch.Metrics = Aggregate(results)
	o.logger.Info("batch done",
		"batch_id", batch.ID,
		"jobs", len(ordered),
		"ok", batch.Metrics.OKCount,
		"failed", batch.Metrics.FailCount,
		"avg_latency_s", batch.Metrics.AverageLatency,
	)
	return batch, nil
}
