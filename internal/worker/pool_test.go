package worker

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/faaalmv/saf-gda/constants"
	"github.com/faaalmv/saf-gda/internal/extract"
	"github.com/faaalmv/saf-gda/internal/jobsource"
)

// countingRunner tracks how many slots run at once.
type countingRunner struct {
	active  atomic.Int32
	peak    atomic.Int32
	runs    atomic.Int32
	block   time.Duration
	panicOn string
}

func (c *countingRunner) Run(_ context.Context, workerID int, job jobsource.Job) extract.Result {
	cur := c.active.Add(1)
	defer c.active.Add(-1)
	for {
		old := c.peak.Load()
		if cur <= old || c.peak.CompareAndSwap(old, cur) {
			break
		}
	}
	c.runs.Add(1)

	if job.ID == c.panicOn {
		panic("simulated crash in " + job.ID)
	}
	if c.block > 0 {
		time.Sleep(c.block)
	}
	return extract.OKResult(job.ID, workerID, c.block, extract.Fields{})
}

func TestPoolBoundsConcurrency(t *testing.T) {
	r := &countingRunner{block: 20 * time.Millisecond}
	p := NewPool(r, nil, WithWorkers(3), WithQueueSize(32))

	var outs []<-chan extract.Result
	for i := 0; i < 12; i++ {
		outs = append(outs, p.Submit(jobsource.Job{ID: "j"}))
	}
	for _, out := range outs {
		<-out
	}
	p.Shutdown(context.Background())

	if peak := r.peak.Load(); peak > 3 {
		t.Errorf("peak concurrency: got %d, want <= 3", peak)
	}
	if runs := r.runs.Load(); runs != 12 {
		t.Errorf("runs: got %d, want 12", runs)
	}
}

func TestPoolSurvivesPanic(t *testing.T) {
	r := &countingRunner{panicOn: "boom"}
	p := NewPool(r, nil, WithWorkers(1), WithQueueSize(8))
	defer p.Shutdown(context.Background())

	crashed := <-p.Submit(jobsource.Job{ID: "boom"})
	if crashed.Status != constants.StatusInfraError {
		t.Fatalf("status: got %s, want INFRA_ERROR", crashed.Status)
	}
	if crashed.ErrorMessage == nil || *crashed.ErrorMessage == "" {
		t.Error("panic result must carry a message")
	}
	if crashed.WorkerID != 0 {
		t.Errorf("worker_id: got %d, want 0 on infra error", crashed.WorkerID)
	}

	// The slot must stay alive for the next job.
	next := <-p.Submit(jobsource.Job{ID: "after"})
	if next.Status != constants.StatusOK {
		t.Errorf("status after crash: got %s, want OK", next.Status)
	}
}

func TestPoolSubmitAfterShutdown(t *testing.T) {
	p := NewPool(&countingRunner{}, nil, WithWorkers(1))
	p.Shutdown(context.Background())

	r := <-p.Submit(jobsource.Job{ID: "late"})
	if r.Status != constants.StatusInfraError {
		t.Fatalf("status: got %s, want INFRA_ERROR", r.Status)
	}
	if r.JobID != "late" {
		t.Errorf("job_id: got %s, want late", r.JobID)
	}
}

func TestPoolShutdownDrainsInFlight(t *testing.T) {
	r := &countingRunner{block: 30 * time.Millisecond}
	p := NewPool(r, nil, WithWorkers(2), WithQueueSize(8))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		out := p.Submit(jobsource.Job{ID: "j"})
		wg.Add(1)
		go func() { defer wg.Done(); <-out }()
	}
	p.Shutdown(context.Background())
	wg.Wait()

	if runs := r.runs.Load(); runs != 4 {
		t.Errorf("runs after drain: got %d, want 4", runs)
	}
}

func TestPoolShutdownIdempotent(t *testing.T) {
	p := NewPool(&countingRunner{}, nil, WithWorkers(1))
	p.Shutdown(context.Background())
	p.Shutdown(context.Background()) // second call must not panic
}
