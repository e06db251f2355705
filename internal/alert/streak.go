package alert

import (
	"fmt"
	"time"

	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/pnl"
)

const (
	DefaultStreakLength    = 3
	DefaultStreakFreshness = 600 * time.Second
)

// StreakRule fires when the newest Length closed trades of a strategy all
// won or all lost, and the newest of them closed less than Freshness ago.
type StreakRule struct {
	Length    int           `mapstructure:"length"`
	Freshness time.Duration `mapstructure:"freshness"`
}

// DefaultStreakRule returns the three-in-a-row rule with a ten minute window.
func DefaultStreakRule() StreakRule {
	return StreakRule{Length: DefaultStreakLength, Freshness: DefaultStreakFreshness}
}

// Detect checks trades (newest first) for a streak at now.
func (r StreakRule) Detect(pair string, strategy core.Strategy, trades []core.Trade, now time.Time) (core.Alert, bool) {
	if r.Length < 1 {
		return core.Alert{}, false
	}
	closed := pnl.Closed(trades)
	if len(closed) < r.Length {
		return core.Alert{}, false
	}

	age := now.Sub(*closed[0].CloseTime)
	if age < 0 {
		age = -age
	}
	if age >= r.Freshness {
		return core.Alert{}, false
	}

	wins, losses := 0, 0
	for _, t := range closed[:r.Length] {
		switch {
		case t.ResultPips > 0:
			wins++
		case t.ResultPips < 0:
			losses++
		}
	}

	alert := core.Alert{
		Pair:     pair,
		Strategy: strategy.Key,
		Streak:   r.Length,
		At:       now,
	}
	switch r.Length {
	case wins:
		alert.Kind = core.AlertWinStreak
		alert.Message = fmt.Sprintf("%s: %d wins in a row", strategy.Title, r.Length)
	case losses:
		alert.Kind = core.AlertLossStreak
		alert.Message = fmt.Sprintf("%s: %d losses in a row", strategy.Title, r.Length)
	default:
		return core.Alert{}, false
	}
	return alert, true
}
