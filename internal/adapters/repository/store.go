// Package repository keeps screening runs and the saved-symbol list.
package repository

import (
	"context"

	"github.com/google/uuid"

	"github.com/okian/covcall/internal/screening"
)

// SymbolStore persists the user's saved symbols in insertion order.
type SymbolStore interface {
	// Load returns the saved symbols. A store that was never saved returns
	// an empty list, not an error.
	Load(ctx context.Context) ([]string, error)
	// Save replaces the saved symbols.
	Save(ctx context.Context, symbols []string) error
}

// RunStore keeps recent screening results so they can be re-ranked
// without fetching again.
type RunStore interface {
	// Put stores a result under its RunID, evicting the oldest run when full.
	Put(ctx context.Context, res *screening.Result) error
	// Get returns ErrNotFound for unknown or evicted runs.
	Get(ctx context.Context, id uuid.UUID) (*screening.Result, error)
	// Latest returns the most recent run, or ErrNotFound when empty.
	Latest(ctx context.Context) (*screening.Result, error)
	// Count returns the number of runs held.
	Count(ctx context.Context) int
}
