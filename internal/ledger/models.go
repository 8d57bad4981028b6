package ledger

import "time"

// Status is the lifecycle state of a run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Run is one workflow invocation.
type Run struct {
	ID         int64
	RunID      string
	Pass       string
	DicomDir   string
	SourceDir  string
	Status     Status
	Totals     Totals
	Error      string
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Totals are the per-run counters written when a run finishes.
type Totals struct {
	Units     int
	Created   int
	Replaced  int
	Preserved int
	Skipped   int
	Warnings  int
}

// Duration returns how long the run took, or zero while it is running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Placement is one artifact written (or preserved) in the source tree.
type Placement struct {
	RunID       string
	Subject     string
	Session     string
	Series      string
	Description string
	Category    string
	Kind        string
	Destination string
	Outcome     string
	CreatedAt   time.Time
}
