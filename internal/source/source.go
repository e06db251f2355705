// Package source loads the rate ticks and strategy trades a dashboard is built from.
package source

import (
	"context"
	"time"

	"github.com/newthinker/pipboard/internal/core"
)

// Source provides read access to recorded ticks and trades.
type Source interface {
	// LatestTickTime returns the time the newest tick was recorded.
	// It returns core.ErrNoData when there are no ticks.
	LatestTickTime(ctx context.Context) (time.Time, error)

	// Ticks returns up to n of the newest ticks, oldest first.
	Ticks(ctx context.Context, n int) ([]core.Tick, error)

	// Trades returns up to n of the newest trades of a strategy, newest first.
	Trades(ctx context.Context, strategy string, n int) ([]core.Trade, error)

	Close() error
}
