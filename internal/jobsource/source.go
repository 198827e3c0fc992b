package jobsource

import (
	"context"

	"github.com/faaalmv/saf-gda/constants"
)

// Job is one unit of extraction work. Immutable; consumed exactly once.
type Job struct {
	ID           string
	DocumentPath string
	Priority     constants.JobPriority
}

// Source produces the ordered, finite job list for one batch invocation.
// Fetch must honor ctx cancellation; the orchestrator runs it under the
// batch fetch deadline.
type Source interface {
	Fetch(ctx context.Context) ([]Job, error)
}

// StaticSource wraps a fixed job list (e.g. a single uploaded file).
type StaticSource struct {
	Jobs []Job
}

func (s StaticSource) Fetch(_ context.Context) ([]Job, error) {
	out := make([]Job, len(s.Jobs))
	copy(out, s.Jobs)
	return out, nil
}
