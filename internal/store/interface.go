package store

import (
	"context"

	"hlrecap/internal/store/model"
)

// Store is the entry point for database access.
type Store interface {
	// Runs returns a repository bound to the store connection.
	Runs() RunRepository
	// Close closes the store connection.
	Close() error
}

// RunRepository handles recap run bookkeeping.
type RunRepository interface {
	Save(ctx context.Context, run *model.RecapRunModel) error
	// Last returns nil, nil when no run has been recorded yet.
	Last(ctx context.Context) (*model.RecapRunModel, error)
	List(ctx context.Context, limit int) ([]model.RecapRunModel, error)
}
