package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"log/slog"

	"github.com/faaalmv/saf-gda/internal/extract"
	"github.com/faaalmv/saf-gda/internal/jobsource"
)

// Pool is a fixed-capacity set of execution slots. At most N tasks run
// concurrently; additional submissions queue until a slot frees. Its
// lifetime spans one batch: created before dispatch, drained on Shutdown.
type Pool struct {
	runner  Runner
	logger  *slog.Logger
	workers int
	timeout time.Duration

	ch   chan task
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.Mutex
	closed bool
}

type task struct {
	job jobsource.Job
	out chan extract.Result
}

type Option func(*Pool)

func WithWorkers(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(p *Pool) {
		if n > 0 {
			p.ch = make(chan task, n)
		}
	}
}

// WithRunTimeout caps the context handed to each slot. Abandoned work
// (e.g. after the caller stopped waiting) gets cancelled instead of
// holding an external process open.
func WithRunTimeout(d time.Duration) Option {
	return func(p *Pool) {
		if d > 0 {
			p.timeout = d
		}
	}
}

func NewPool(runner Runner, logger *slog.Logger, opts ...Option) *Pool {
	if logger == nil {
		logger = slog.Default()
	}
	p := &Pool{
		runner:  runner,
		logger:  logger,
		workers: 4,
		timeout: 3 * time.Minute,
		ch:      make(chan task, 256),
	}
	for _, o := range opts {
		o(p)
	}
	p.start()
	return p
}

func (p *Pool) start() {
	p.once.Do(func() {
		for i := 0; i < p.workers; i++ {
			p.wg.Add(1)
			go func(workerID int) {
				defer p.wg.Done()
				p.logger.Debug("worker started", "worker_id", workerID)

				for t := range p.ch {
					t.out <- p.runSafe(workerID, t.job)
					close(t.out)
				}

				p.logger.Debug("worker stopped", "worker_id", workerID)
			}(i + 1)
		}
	})
}

// runSafe confines a crashing slot: a panic surfaces to the caller as an
// INFRA_ERROR result and the slot stays alive for the next task.
func (p *Pool) runSafe(workerID int, job jobsource.Job) (res extract.Result) {
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("worker panicked", "worker_id", workerID, "job_id", job.ID, "panic", r)
			res = extract.InfraErrorResult(job.ID, fmt.Sprintf("worker panic: %v", r))
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), p.timeout)
	defer cancel()
	return p.runner.Run(ctx, workerID, job)
}

// Submit queues a job and returns a 1-buffered channel that delivers its
// result and is then closed. Submitting to a shut-down pool yields an
// immediate INFRA_ERROR result.
func (p *Pool) Submit(job jobsource.Job) <-chan extract.Result {
	out := make(chan extract.Result, 1)

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		p.logger.Warn("submit on closed pool", "job_id", job.ID)
		out <- extract.InfraErrorResult(job.ID, "pool is shut down")
		close(out)
		return out
	}
	p.ch <- task{job: job, out: out}
	return out
}

// Shutdown closes the intake and waits for in-flight work to drain, up to
// the given context.
func (p *Pool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.ch)
	p.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); p.wg.Wait() }()

	select {
	case <-ctx.Done():
		p.logger.Warn("pool shutdown interrupted by context")
	case <-done:
		p.logger.Debug("pool drained, shutdown complete")
	}
}
