package alert

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/pnl"
)

// Metric names available to threshold rules.
const (
	MetricTotalPips    = "total_pips"
	MetricLastPips     = "last_pips"
	MetricClosedTrades = "closed_trades"
	MetricOpenTrades   = "open_trades"
	MetricWinRate      = "win_rate"
	MetricMaxDrawdown  = "max_drawdown_pips"
)

var exprPattern = regexp.MustCompile(`^(\w+)\s*(>=|<=|==|!=|>|<)\s*(-?[\d.]+)$`)

// Rule is a threshold rule evaluated against the metrics of one strategy.
type Rule struct {
	Name     string        `mapstructure:"name"`
	Expr     string        `mapstructure:"expr"`
	For      time.Duration `mapstructure:"for"`
	Severity string        `mapstructure:"severity"`
	Message  string        `mapstructure:"message"`
}

// Validate checks that the expression can be parsed.
func (r *Rule) Validate() error {
	if r.Name == "" {
		return fmt.Errorf("alert rule: name is required")
	}
	if !exprPattern.MatchString(strings.TrimSpace(r.Expr)) {
		return fmt.Errorf("alert rule %s: invalid expression %q", r.Name, r.Expr)
	}
	return nil
}

// Evaluate evaluates the rule expression against metrics.
func (r *Rule) Evaluate(metrics map[string]float64) bool {
	// "metric op value" with >, <, >=, <=, ==, !=
	matches := exprPattern.FindStringSubmatch(strings.TrimSpace(r.Expr))
	if len(matches) != 4 {
		return false
	}

	metricName := matches[1]
	op := matches[2]
	threshold, err := strconv.ParseFloat(matches[3], 64)
	if err != nil {
		return false
	}

	value, exists := metrics[metricName]
	if !exists {
		return false
	}

	switch op {
	case ">":
		return value > threshold
	case "<":
		return value < threshold
	case ">=":
		return value >= threshold
	case "<=":
		return value <= threshold
	case "==":
		return value == threshold
	case "!=":
		return value != threshold
	default:
		return false
	}
}

// FormatMessage formats the alert message for a strategy.
func (r *Rule) FormatMessage(strategy string, metrics map[string]float64) string {
	msg := fmt.Sprintf("[%s] %s: %s", strings.ToUpper(r.Severity), strategy, r.Message)
	if matches := exprPattern.FindStringSubmatch(strings.TrimSpace(r.Expr)); len(matches) == 4 {
		msg += fmt.Sprintf(" (%s = %.1f)", matches[1], metrics[matches[1]])
	}
	return msg
}

// StrategyMetrics summarises trades (newest first) for threshold rules.
func StrategyMetrics(trades []core.Trade) map[string]float64 {
	m := map[string]float64{
		MetricTotalPips:    0,
		MetricClosedTrades: 0,
		MetricOpenTrades:   0,
	}
	closed := pnl.Closed(trades)
	stats := pnl.CalculateStats(trades)
	m[MetricClosedTrades] = float64(stats.ClosedTrades)
	m[MetricOpenTrades] = float64(stats.TotalTrades - stats.ClosedTrades)
	m[MetricTotalPips] = stats.TotalPips
	m[MetricWinRate] = stats.WinRate
	m[MetricMaxDrawdown] = stats.MaxDrawdownPips
	if len(closed) > 0 {
		m[MetricLastPips] = closed[0].ResultPips
	}
	return m
}
