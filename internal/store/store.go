// Package store persists scrape runs and the records they produced.
package store

import (
	"context"

	"github.com/rotisserie/eris"

	"github.com/sells-group/product-scraper/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = eris.New("not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Status model.RunStatus `json:"status,omitempty"`
	Site   model.Site      `json:"site,omitempty"`
	Term   string          `json:"term,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

const defaultListLimit = 100

func (f RunFilter) limit() int {
	if f.Limit <= 0 {
		return defaultListLimit
	}
	return f.Limit
}

// Store defines the persistence interface for scrape runs.
type Store interface {
	// Runs
	CreateRun(ctx context.Context, req model.SearchRequest) (*model.Run, error)
	UpdateRunStatus(ctx context.Context, runID string, status model.RunStatus) error
	CompleteRun(ctx context.Context, runID string, result *model.RunResult) error
	FailRun(ctx context.Context, runID string, result *model.RunResult) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)

	// Records, kept in the order they were produced.
	SaveRecords(ctx context.Context, runID string, records []model.ProductRecord) error
	ListRecords(ctx context.Context, runID string) ([]model.ProductRecord, error)

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

func runNotFound(runID string) error {
	return eris.Wrapf(ErrNotFound, "run %s", runID)
}
