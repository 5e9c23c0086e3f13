// Package archive keeps a queryable history of fetch runs next to the JSON
// cache files.
package archive

import (
	"context"
	"time"

	"github.com/google/uuid"

	"stockbars/internal/bars"
)

// Run describes one completed fetch-merge-save cycle.
type Run struct {
	ID         string
	Symbol     string
	Start      string // YYYYMMDD
	End        string // YYYYMMDD
	Path       string
	Fetched    int
	Added      int
	StartedAt  time.Time
	FinishedAt time.Time
	Records    []bars.Record
}

// NewRunID returns a fresh identifier for a Run.
func NewRunID() string { return uuid.NewString() }

// Recorder persists fetch runs for later analysis.
type Recorder interface {
	RecordRun(ctx context.Context, run Run) error
	Close() error
}
