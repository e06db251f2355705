// Package state persists small pieces of run state between builds.
package state

import (
	"context"
	"time"
)

// Store keeps the timestamp of the newest tick a dashboard was built from,
// per currency pair.
type Store interface {
	// Watermark returns the stored timestamp; ok is false when none is recorded
	Watermark(ctx context.Context, pair string) (ts time.Time, ok bool, err error)

	// SetWatermark records the timestamp for the pair
	SetWatermark(ctx context.Context, pair string, ts time.Time) error

	Close() error
}

func watermarkKey(pair string) []byte {
	return []byte("watermark/" + pair)
}
