package source

import (
	"context"
	"database/sql"
	"fmt"
	"regexp"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"

	"github.com/newthinker/pipboard/internal/core"
)

var identRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLConfig describes where ticks and trades live in a relational database.
type SQLConfig struct {
	// Driver is "postgres" or "sqlite"
	Driver string
	DSN    string
	// RatesTable holds (timestamp, rate) rows
	RatesTable string
	// TradeTables maps a strategy key to its trade table
	TradeTables map[string]string
}

// SQLSource reads ticks and trades with plain SQL queries.
type SQLSource struct {
	db          *sql.DB
	ratesTable  string
	tradeTables map[string]string
}

// OpenSQL opens the database and validates table names.
func OpenSQL(cfg SQLConfig) (*SQLSource, error) {
	switch cfg.Driver {
	case "postgres", "sqlite":
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unsupported sql driver %q", cfg.Driver))
	}
	if !identRe.MatchString(cfg.RatesTable) {
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("invalid rates table %q", cfg.RatesTable))
	}
	for key, table := range cfg.TradeTables {
		if !identRe.MatchString(table) {
			return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("invalid trade table %q for %s", table, key))
		}
	}

	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, err)
	}
	return NewSQL(db, cfg.RatesTable, cfg.TradeTables), nil
}

// NewSQL wraps an open database. Table names must already be validated.
func NewSQL(db *sql.DB, ratesTable string, tradeTables map[string]string) *SQLSource {
	return &SQLSource{db: db, ratesTable: ratesTable, tradeTables: tradeTables}
}

func (s *SQLSource) LatestTickTime(ctx context.Context) (time.Time, error) {
	var raw any
	err := s.db.QueryRowContext(ctx,
		fmt.Sprintf("SELECT timestamp FROM %s ORDER BY timestamp DESC LIMIT 1", s.ratesTable),
	).Scan(&raw)
	if err == sql.ErrNoRows {
		return time.Time{}, core.ErrNoData
	}
	if err != nil {
		return time.Time{}, core.WrapError(core.ErrSourceFailed, err)
	}
	return parseTime(raw)
}

func (s *SQLSource) Ticks(ctx context.Context, n int) ([]core.Tick, error) {
	rows, err := s.db.QueryContext(ctx,
		fmt.Sprintf("SELECT timestamp, rate FROM %s ORDER BY timestamp DESC LIMIT %d", s.ratesTable, limit(n)))
	if err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, err)
	}
	defer rows.Close()

	var ticks []core.Tick
	for rows.Next() {
		var raw any
		var t core.Tick
		if err := rows.Scan(&raw, &t.Rate); err != nil {
			return nil, core.WrapError(core.ErrInvalidRecord, err)
		}
		if t.Timestamp, err = parseTime(raw); err != nil {
			return nil, err
		}
		ticks = append(ticks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, err)
	}

	for i, j := 0, len(ticks)-1; i < j; i, j = i+1, j-1 {
		ticks[i], ticks[j] = ticks[j], ticks[i]
	}
	return ticks, nil
}

func (s *SQLSource) Trades(ctx context.Context, strategy string, n int) ([]core.Trade, error) {
	table, ok := s.tradeTables[strategy]
	if !ok {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("no trade table for strategy %q", strategy))
	}

	rows, err := s.db.QueryContext(ctx, fmt.Sprintf(
		`SELECT open_time, open_price, direction, sl_price, tp_price, close_time, close_price, result_pips
		 FROM %s ORDER BY open_time DESC LIMIT %d`, table, limit(n)))
	if err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, err)
	}
	defer rows.Close()

	var trades []core.Trade
	for rows.Next() {
		var (
			t                 core.Trade
			openRaw, closeRaw any
			dir               string
			closePrice, pips  sql.NullFloat64
		)
		if err := rows.Scan(&openRaw, &t.OpenPrice, &dir, &t.SLPrice, &t.TPPrice, &closeRaw, &closePrice, &pips); err != nil {
			return nil, core.WrapError(core.ErrInvalidRecord, err)
		}
		if t.OpenTime, err = parseTime(openRaw); err != nil {
			return nil, err
		}
		if closeRaw != nil {
			ct, err := parseTime(closeRaw)
			if err != nil {
				return nil, err
			}
			t.CloseTime = &ct
		}
		if closePrice.Valid {
			v := closePrice.Float64
			t.ClosePrice = &v
		}
		t.Direction = core.Direction(dir)
		t.ResultPips = pips.Float64
		trades = append(trades, t)
	}
	if err := rows.Err(); err != nil {
		return nil, core.WrapError(core.ErrSourceFailed, err)
	}
	return trades, nil
}

func (s *SQLSource) Close() error {
	return s.db.Close()
}

func limit(n int) int {
	if n <= 0 {
		return 1000
	}
	return n
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}

// parseTime converts a timestamp column to UTC. Drivers return time.Time,
// text or unix seconds depending on the column type.
func parseTime(v any) (time.Time, error) {
	switch t := v.(type) {
	case time.Time:
		return t.UTC(), nil
	case int64:
		return time.Unix(t, 0).UTC(), nil
	case []byte:
		return parseTime(string(t))
	case string:
		for _, layout := range timeLayouts {
			if ts, err := time.Parse(layout, t); err == nil {
				return ts.UTC(), nil
			}
		}
	}
	return time.Time{}, core.WrapError(core.ErrInvalidRecord, fmt.Errorf("unrecognised timestamp %v", v))
}
