package database

import (
	"time"
)

// Run is the journal entry for one tool invocation. It records counts and
// paths only; the rename mapping lives in the filenames themselves.
type Run struct {
	ID          string    `db:"id" json:"id"`
	Operation   string    `db:"operation" json:"operation"`
	Source      string    `db:"source" json:"source"`
	Destination string    `db:"destination" json:"destination"`
	Moved       int       `db:"moved" json:"moved"`
	Status      string    `db:"status" json:"status"`
	Error       string    `db:"error" json:"error,omitempty"`
	StartedAt   time.Time `db:"started_at" json:"started_at"`
	FinishedAt  time.Time `db:"finished_at" json:"finished_at"`
}

const (
	RunStatusSuccess = "success"
	RunStatusFailed  = "failed"
)

// Duration is how long the run took.
func (r Run) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
