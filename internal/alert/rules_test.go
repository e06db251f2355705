package alert

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/newthinker/pipboard/internal/core"
)

func TestRule_Evaluate(t *testing.T) {
	tests := []struct {
		expr     string
		metrics  map[string]float64
		expected bool
	}{
		{"total_pips > 100", map[string]float64{"total_pips": 120}, true},
		{"total_pips > 100", map[string]float64{"total_pips": 80}, false},
		{"total_pips < -50", map[string]float64{"total_pips": -60}, true},
		{"total_pips < -50", map[string]float64{"total_pips": -40}, false},
		{"open_trades == 0", map[string]float64{"open_trades": 0}, true},
		{"closed_trades >= 10", map[string]float64{"closed_trades": 10}, true},
		{"closed_trades >= 10", map[string]float64{"closed_trades": 9}, false},
		{"last_pips <= -20", map[string]float64{"last_pips": -25}, true},
		{"open_trades != 1", map[string]float64{"open_trades": 2}, true},
		{"missing > 1", map[string]float64{}, false},
		{"not an expression", map[string]float64{}, false},
	}

	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			rule := Rule{Expr: tt.expr}
			assert.Equal(t, tt.expected, rule.Evaluate(tt.metrics))
		})
	}
}

func TestRule_Validate(t *testing.T) {
	assert.NoError(t, (&Rule{Name: "dd", Expr: "total_pips < -50"}).Validate())
	assert.Error(t, (&Rule{Expr: "total_pips < -50"}).Validate())
	assert.Error(t, (&Rule{Name: "dd", Expr: "total_pips <<"}).Validate())
}

func TestStrategyMetrics(t *testing.T) {
	trades := []core.Trade{
		openTrade(),
		closedTrade(-12.3, time.Hour),
		closedTrade(20.1, 2*time.Hour),
	}

	m := StrategyMetrics(trades)
	assert.InDelta(t, 7.8, m[MetricTotalPips], 1e-9)
	assert.Equal(t, -12.3, m[MetricLastPips])
	assert.Equal(t, 2.0, m[MetricClosedTrades])
	assert.Equal(t, 1.0, m[MetricOpenTrades])
	assert.Equal(t, 50.0, m[MetricWinRate])
	assert.InDelta(t, 12.3, m[MetricMaxDrawdown], 1e-9)

	_, hasLast := StrategyMetrics(nil)[MetricLastPips]
	assert.False(t, hasLast)
}

func TestStreakRule_Freshness(t *testing.T) {
	rule := StreakRule{Length: 2, Freshness: time.Hour}
	trades := []core.Trade{closedTrade(5, 30*time.Minute), closedTrade(5, 2*time.Hour)}

	_, ok := rule.Detect("usdjpy", classic, trades, baseNow)
	assert.True(t, ok)

	_, ok = rule.Detect("usdjpy", classic, trades, baseNow.Add(31*time.Minute))
	assert.False(t, ok)
}
