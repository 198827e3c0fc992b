package orchestrator

import (
	"math"

	"github.com/faaalmv/saf-gda/constants"
	"github.com/faaalmv/saf-gda/internal/extract"
)

// Metrics is the pure reduction of a batch's result list. Derived,
// recomputed per batch, never authoritative state.
type Metrics struct {
	OKCount        int     `json:"ok_count"`
	FailCount      int     `json:"fail_count"`
	TotalElapsed   float64 `json:"total_elapsed"`   // sum over OK results only
	AverageLatency float64 `json:"average_latency"` // 0 when no OK results
}

// Aggregate reduces results into counts and latency statistics. Inputs are
// not mutated.
func Aggregate(results []extract.Result) Metrics {
	var m Metrics
	for _, r := range results {
		if r.Status == constants.StatusOK {
			m.OKCount++
			m.TotalElapsed += r.ElapsedSeconds
		} else {
			m.FailCount++
		}
	}
	if m.OKCount > 0 {
		m.TotalElapsed = round3(m.TotalElapsed)
		m.AverageLatency = round3(m.TotalElapsed / float64(m.OKCount))
	}
	return m
}

func round3(v float64) float64 {
	return math.Round(v*1000) / 1000
}
