package orchestrator

import (
	"testing"
	"time"

	"github.com/faaalmv/saf-gda/internal/extract"
)

func TestAggregate(t *testing.T) {
	results := []extract.Result{
		extract.OKResult("a", 1, 1*time.Second, extract.Fields{}),
		extract.OKResult("b", 2, 2*time.Second, extract.Fields{}),
		extract.OKResult("c", 1, 3*time.Second, extract.Fields{}),
		extract.FailResult("d", 2, 5*time.Second, "decode image: bad bytes"),
	}

	m := Aggregate(results)
	if m.OKCount != 3 {
		t.Errorf("ok_count: got %d, want 3", m.OKCount)
	}
	if m.FailCount != 1 {
		t.Errorf("fail_count: got %d, want 1", m.FailCount)
	}
	if m.TotalElapsed != 6.0 {
		t.Errorf("total_elapsed: got %v, want 6.0 (OK results only)", m.TotalElapsed)
	}
	if m.AverageLatency != 2.0 {
		t.Errorf("average_latency: got %v, want 2.0", m.AverageLatency)
	}
}

func TestAggregateCountsEveryNonOKStatusAsFailed(t *testing.T) {
	results := []extract.Result{
		extract.FailResult("a", 1, time.Second, "x"),
		extract.TimeoutResult("b", 30*time.Second),
		extract.InfraErrorResult("c", "worker panic: boom"),
	}

	m := Aggregate(results)
	if m.OKCount != 0 || m.FailCount != 3 {
		t.Errorf("got ok=%d fail=%d, want ok=0 fail=3", m.OKCount, m.FailCount)
	}
	if m.AverageLatency != 0 {
		t.Errorf("average_latency: got %v, want 0 with no OK results", m.AverageLatency)
	}
}

func TestAggregateEmpty(t *testing.T) {
	m := Aggregate(nil)
	if m != (Metrics{}) {
		t.Errorf("got %+v, want zero metrics", m)
	}
}

func TestAggregateRoundsToMilliseconds(t *testing.T) {
	results := []extract.Result{
		extract.OKResult("a", 1, 333333*time.Microsecond, extract.Fields{}),
		extract.OKResult("b", 2, 333333*time.Microsecond, extract.Fields{}),
	}

	m := Aggregate(results)
	if m.TotalElapsed != 0.666 {
		t.Errorf("total_elapsed: got %v, want 0.666", m.TotalElapsed)
	}
	if m.AverageLatency != 0.333 {
		t.Errorf("average_latency: got %v, want 0.333", m.AverageLatency)
	}
}
