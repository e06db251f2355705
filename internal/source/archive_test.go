package source

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/storage/archive"
)

// put writes an object and stamps it with the given modification time.
func put(t *testing.T, dir string, fs *archive.LocalFS, path, body string, mod time.Time) {
	t.Helper()
	require.NoError(t, fs.Write(context.Background(), path, []byte(body)))
	require.NoError(t, os.Chtimes(filepath.Join(dir, filepath.FromSlash(path)), mod, mod))
}

func newArchive(t *testing.T) (string, *archive.LocalFS) {
	t.Helper()
	dir := t.TempDir()
	fs, err := archive.NewLocalFS(dir)
	require.NoError(t, err)
	return dir, fs
}

func TestArchiveSource_Ticks(t *testing.T) {
	dir, fs := newArchive(t)
	base := time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 5; i++ {
		ts := base.Add(time.Duration(i) * 15 * time.Minute)
		body := fmt.Sprintf(`{"timestamp":%q,"rate":%.3f}`, ts.Format(time.RFC3339), 143.8+float64(i)/100)
		put(t, dir, fs, fmt.Sprintf("ticks/%d.json", i), body, ts)
	}

	src := NewArchive(fs, "", "")
	ctx := context.Background()

	latest, err := src.LatestTickTime(ctx)
	require.NoError(t, err)
	assert.True(t, latest.Equal(base.Add(60*time.Minute)))

	ticks, err := src.Ticks(ctx, 3)
	require.NoError(t, err)
	require.Len(t, ticks, 3)
	assert.InDelta(t, 143.82, ticks[0].Rate, 1e-9, "oldest of the newest three first")
	assert.InDelta(t, 143.84, ticks[2].Rate, 1e-9)
	assert.True(t, ticks[0].Timestamp.Before(ticks[2].Timestamp))
}

func TestArchiveSource_NoTicks(t *testing.T) {
	_, fs := newArchive(t)
	src := NewArchive(fs, "", "")

	_, err := src.LatestTickTime(context.Background())
	assert.True(t, errors.Is(err, core.ErrNoData))

	ticks, err := src.Ticks(context.Background(), 15)
	require.NoError(t, err)
	assert.Empty(t, ticks)
}

func TestArchiveSource_InvalidTick(t *testing.T) {
	dir, fs := newArchive(t)
	put(t, dir, fs, "ticks/bad.json", `{"timestamp":"2025-06-02T06:00:00Z"}`, time.Now())

	_, err := NewArchive(fs, "", "").Ticks(context.Background(), 15)
	assert.True(t, errors.Is(err, core.ErrInvalidRecord))
}

func TestArchiveSource_Trades(t *testing.T) {
	dir, fs := newArchive(t)
	base := time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC)

	put(t, dir, fs, "trades/classic/1.json",
		`{"open_time":"2025-06-01T08:00:00Z","open_price":143.5,"direction":"LONG","sl_price":143.2,"tp_price":144.0,
		  "close_time":"2025-06-01T10:00:00Z","close_price":144.0,"result_pips":50}`, base)
	put(t, dir, fs, "trades/classic/2.json",
		`{"open_time":"2025-06-02T06:00:00Z","open_price":143.8,"direction":"SHORT","sl_price":144.1,"tp_price":143.3,"result_pips":0}`,
		base.Add(time.Hour))
	put(t, dir, fs, "trades/anomaly/1.json",
		`{"open_time":"2025-06-02T06:00:00Z","open_price":143.8,"direction":"LONG","sl_price":143.5,"tp_price":144.3}`, base)

	trades, err := NewArchive(fs, "", "").Trades(context.Background(), "classic", 300)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, core.DirectionShort, trades[0].Direction, "newest first")
	assert.False(t, trades[0].IsClosed())
	assert.True(t, trades[1].IsClosed())
	assert.Equal(t, 50.0, trades[1].ResultPips)
}

func TestArchiveSource_TradesLimit(t *testing.T) {
	dir, fs := newArchive(t)
	base := time.Date(2025, 6, 2, 6, 0, 0, 0, time.UTC)
	for i := 0; i < 4; i++ {
		body := fmt.Sprintf(`{"open_time":"2025-06-02T06:00:00Z","open_price":%d,"direction":"LONG"}`, 140+i)
		put(t, dir, fs, fmt.Sprintf("trades/fractal/%d.json", i), body, base.Add(time.Duration(i)*time.Minute))
	}

	trades, err := NewArchive(fs, "", "").Trades(context.Background(), "fractal", 2)
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, 143.0, trades[0].OpenPrice)
	assert.Equal(t, 142.0, trades[1].OpenPrice)
}
