// Package store persists the analysis run log.
package store

import (
	"context"
	"encoding/json"

	"github.com/rotisserie/eris"

	"github.com/sells-group/proximity-cli/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("store: run not found")

// DefaultListLimit caps ListRuns when the filter sets no limit.
const DefaultListLimit = 100

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	// Subject matches the subject name ignoring case and accents.
	Subject string `json:"subject,omitempty"`
	Limit   int    `json:"limit,omitempty"`
	Offset  int    `json:"offset,omitempty"`
}

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return DefaultListLimit
	}
	return f.Limit
}

// Store defines the persistence interface for recorded analyses.
type Store interface {
	// CreateRun assigns the run its ID and CreatedAt and saves it.
	CreateRun(ctx context.Context, run *model.AnalysisRun) error
	// GetRun returns a run with its results and buffer.
	GetRun(ctx context.Context, id string) (*model.AnalysisRun, error)
	// ListRuns returns run summaries, newest first, without results.
	ListRuns(ctx context.Context, filter RunFilter) ([]model.AnalysisRun, error)

	Migrate(ctx context.Context) error
	Close() error
}

func marshalCounts(counts map[model.Category]int) ([]byte, error) {
	if counts == nil {
		counts = map[model.Category]int{}
	}
	data, err := json.Marshal(counts)
	return data, eris.Wrap(err, "store: marshal counts")
}
