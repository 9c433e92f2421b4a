// Package store persists the run ledger: one row per batch operation and
// one row per document it touched.
package store

import (
	"context"
	"errors"

	"github.com/sells-group/regrule/internal/model"
)

// ErrNotFound is returned when a run does not exist.
var ErrNotFound = errors.New("store: not found")

// RunFilter specifies criteria for listing runs.
type RunFilter struct {
	Kind   model.RunKind   `json:"kind,omitempty"`
	Status model.RunStatus `json:"status,omitempty"`
	Limit  int             `json:"limit,omitempty"`
	Offset int             `json:"offset,omitempty"`
}

// Store defines the persistence interface for batch runs.
type Store interface {
	CreateRun(ctx context.Context, kind model.RunKind, source string) (*model.Run, error)
	RecordDocuments(ctx context.Context, runID string, docs []model.DocumentResult) error
	CompleteRun(ctx context.Context, runID string, status model.RunStatus, summary *model.RunSummary) error
	GetRun(ctx context.Context, runID string) (*model.Run, error)
	ListRuns(ctx context.Context, filter RunFilter) ([]model.Run, error)
	ListDocuments(ctx context.Context, runID string) ([]model.DocumentResult, error)

	Migrate(ctx context.Context) error
	Close() error
}

const defaultListLimit = 100

// documentColumns is the column order used to insert run_documents rows.
var documentColumns = []string{
	"id", "run_id", "file", "output", "status", "error",
	"clause_count", "row_count", "automatable", "degraded", "duration_ms", "created_at",
}
