package history

import (
	"context"
	"time"

	"github.com/newthinker/pipboard/internal/core"
)

// Record is a fired alert as kept in the history.
type Record struct {
	ID string `json:"id"`
	core.Alert
}

// Store keeps the alerts fired by past builds.
type Store interface {
	// Save appends an alert and returns the ID it was assigned.
	Save(ctx context.Context, a core.Alert) (string, error)

	// GetByID returns the record with the given ID.
	GetByID(ctx context.Context, id string) (*Record, error)

	// List returns records matching the filter, newest first.
	List(ctx context.Context, filter ListFilter) ([]Record, error)

	// Count returns the number of records matching the filter.
	Count(ctx context.Context, filter ListFilter) (int, error)
}

// ListFilter selects records. Zero fields match everything.
type ListFilter struct {
	Pair     string
	Strategy string
	Kind     core.AlertKind
	From     time.Time
	To       time.Time
	Limit    int
	Offset   int
}
