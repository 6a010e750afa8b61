package registry

import (
	"time"

	"github.com/google/uuid"

	"github.com/afttdata/aftt-sync/internal/scrape"
)

// Status is the lifecycle state of a job. A job is created running and
// reaches exactly one terminal state.
type Status string

// Job status values. Terminal states are absorbing.
const (
	StatusRunning   Status = "running"
	StatusSuccess   Status = "success"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether the status is absorbing.
func (s Status) Terminal() bool {
	switch s {
	case StatusSuccess, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Job is the progress snapshot of one end-to-end crawl run.
type Job struct {
	ID              uuid.UUID     `json:"id"`
	Family          scrape.Family `json:"family"`
	Trigger         string        `json:"trigger"`
	Status          Status        `json:"status"`
	CancelRequested bool          `json:"cancel_requested,omitempty"`
	StartedAt       time.Time     `json:"started_at"`
	FinishedAt      *time.Time    `json:"finished_at,omitempty"`
	TotalUnits      int           `json:"total_units"`
	CompletedUnits  int           `json:"completed_units"`
	CurrentUnit     string        `json:"current_unit,omitempty"`
	LastSuccess     string        `json:"last_success,omitempty"`
	ErrorCount      int           `json:"error_count"`
	Errors          []string      `json:"errors,omitempty"`
}

// LogEntry is one line of a job's rolling log.
type LogEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Message   string    `json:"message"`
}

// Progress carries the subset of counters a coordinator wants to merge into
// its job. Nil fields are left untouched.
type Progress struct {
	TotalUnits     *int
	CompletedUnits *int
	ErrorCount     *int
	CurrentUnit    *string
	LastSuccess    *string
}
