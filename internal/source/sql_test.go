package source

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/pipboard/internal/core"
)

func openSQLite(t *testing.T) *SQLSource {
	t.Helper()
	src, err := OpenSQL(SQLConfig{
		Driver:      "sqlite",
		DSN:         filepath.Join(t.TempDir(), "fx.db"),
		RatesTable:  "eurusd_rates",
		TradeTables: map[string]string{"classic": "eurusd_trades"},
	})
	require.NoError(t, err)
	t.Cleanup(func() { src.Close() })

	stmts := []string{
		`CREATE TABLE eurusd_rates (timestamp TEXT NOT NULL, rate REAL NOT NULL)`,
		`CREATE TABLE eurusd_trades (
			trade_id INTEGER PRIMARY KEY,
			open_time TEXT NOT NULL, open_price REAL NOT NULL, direction TEXT NOT NULL,
			sl_price REAL NOT NULL, tp_price REAL NOT NULL,
			close_time TEXT, close_price REAL, result_pips REAL)`,
	}
	for _, s := range stmts {
		_, err := src.db.Exec(s)
		require.NoError(t, err)
	}
	return src
}

func TestSQLSource_Ticks(t *testing.T) {
	src := openSQLite(t)
	ctx := context.Background()

	_, err := src.LatestTickTime(ctx)
	assert.True(t, errors.Is(err, core.ErrNoData))

	rows := []struct {
		ts   string
		rate float64
	}{
		{"2025-06-02T06:00:00Z", 1.13501},
		{"2025-06-02T06:15:00Z", 1.13522},
		{"2025-06-02T06:30:00Z", 1.13498},
	}
	for _, r := range rows {
		_, err := src.db.Exec(`INSERT INTO eurusd_rates (timestamp, rate) VALUES (?, ?)`, r.ts, r.rate)
		require.NoError(t, err)
	}

	latest, err := src.LatestTickTime(ctx)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2025, 6, 2, 6, 30, 0, 0, time.UTC), latest)

	ticks, err := src.Ticks(ctx, 2)
	require.NoError(t, err)
	require.Len(t, ticks, 2)
	assert.Equal(t, 1.13522, ticks[0].Rate)
	assert.Equal(t, 1.13498, ticks[1].Rate)
}

func TestSQLSource_Trades(t *testing.T) {
	src := openSQLite(t)
	ctx := context.Background()

	_, err := src.db.Exec(`INSERT INTO eurusd_trades
		(open_time, open_price, direction, sl_price, tp_price, close_time, close_price, result_pips)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		"2025-06-01T08:00:00Z", 1.1350, "LONG", 1.1330, 1.1380, "2025-06-01T09:30:00Z", 1.1380, 30.0)
	require.NoError(t, err)
	_, err = src.db.Exec(`INSERT INTO eurusd_trades
		(open_time, open_price, direction, sl_price, tp_price) VALUES (?, ?, ?, ?, ?)`,
		"2025-06-02T08:00:00Z", 1.1360, "SHORT", 1.1380, 1.1330)
	require.NoError(t, err)

	trades, err := src.Trades(ctx, "classic", 100)
	require.NoError(t, err)
	require.Len(t, trades, 2)

	assert.Equal(t, core.DirectionShort, trades[0].Direction)
	assert.False(t, trades[0].IsClosed())
	assert.Nil(t, trades[0].ClosePrice)

	require.True(t, trades[1].IsClosed())
	assert.Equal(t, time.Date(2025, 6, 1, 9, 30, 0, 0, time.UTC), *trades[1].CloseTime)
	assert.Equal(t, 30.0, trades[1].ResultPips)

	_, err = src.Trades(ctx, "fractal", 100)
	assert.True(t, errors.Is(err, core.ErrConfigMissing))
}

func TestOpenSQL_Validation(t *testing.T) {
	tests := []struct {
		name string
		cfg  SQLConfig
	}{
		{"driver", SQLConfig{Driver: "mysql", RatesTable: "rates"}},
		{"rates table", SQLConfig{Driver: "sqlite", RatesTable: "rates; DROP TABLE x"}},
		{"trade table", SQLConfig{Driver: "sqlite", RatesTable: "rates", TradeTables: map[string]string{"classic": "a-b"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := OpenSQL(tt.cfg)
			assert.True(t, errors.Is(err, core.ErrConfigInvalid))
		})
	}
}

func TestParseTime(t *testing.T) {
	want := time.Date(2025, 6, 2, 6, 45, 0, 0, time.UTC)
	tests := []struct {
		name string
		in   any
	}{
		{"time", want.In(time.FixedZone("CEST", 2*3600))},
		{"rfc3339", "2025-06-02T06:45:00Z"},
		{"offset", "2025-06-02 08:45:00+02:00"},
		{"bytes", []byte("2025-06-02 06:45:00")},
		{"unix", want.Unix()},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseTime(tt.in)
			require.NoError(t, err)
			assert.Equal(t, want, got)
		})
	}

	_, err := parseTime(sql.NullString{})
	assert.True(t, errors.Is(err, core.ErrInvalidRecord))
}
