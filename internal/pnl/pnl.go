// Package pnl aggregates closed trades into cumulative profit-and-loss series
// measured in pips.
package pnl

import (
	"sort"
	"time"

	"github.com/newthinker/pipboard/internal/chart/format"
	"github.com/newthinker/pipboard/internal/core"
	"github.com/shopspring/decimal"
)

// Mode selects how the PnL date axis is built
type Mode string

const (
	// ModeWindow plots a fixed number of days ending today
	ModeWindow Mode = "window"
	// ModeUnion plots the union of the days each strategy has results for
	ModeUnion Mode = "union"
)

// DefaultWindowDays is the length of the fixed PnL window
const DefaultWindowDays = 14

// Options controls Build
type Options struct {
	Mode Mode
	Days int
	Now  time.Time
}

// Chart is the data of one PnL chart: a date axis and one cumulative series
// per strategy.
type Chart struct {
	Labels  []string
	Series  []core.Series
	MinDate string
	MaxDate string
}

// Closed returns the closed trades, keeping order.
func Closed(trades []core.Trade) []core.Trade {
	out := make([]core.Trade, 0, len(trades))
	for _, t := range trades {
		if t.IsClosed() {
			out = append(out, t)
		}
	}
	return out
}

// DailyPips sums the result of closed trades per UTC close date.
func DailyPips(trades []core.Trade) map[string]decimal.Decimal {
	daily := make(map[string]decimal.Decimal)
	for _, t := range trades {
		if !t.IsClosed() {
			continue
		}
		day := t.CloseTime.UTC().Format(format.ISODate)
		daily[day] = daily[day].Add(decimal.NewFromFloat(t.ResultPips))
	}
	return daily
}

// Total returns the sum of pips of all closed trades.
func Total(trades []core.Trade) float64 {
	sum := decimal.Zero
	for _, t := range trades {
		if t.IsClosed() {
			sum = sum.Add(decimal.NewFromFloat(t.ResultPips))
		}
	}
	return sum.InexactFloat64()
}

// WindowLabels returns days consecutive ISO dates ending at end's UTC date.
func WindowLabels(end time.Time, days int) []string {
	if days < 1 {
		return []string{}
	}
	end = end.UTC()
	today := time.Date(end.Year(), end.Month(), end.Day(), 0, 0, 0, 0, time.UTC)

	labels := make([]string, days)
	for i := 0; i < days; i++ {
		labels[i] = today.AddDate(0, 0, i-days+1).Format(format.ISODate)
	}
	return labels
}

// Cumulative returns the running total of daily over labels, rounded to one
// decimal place. Days outside labels do not contribute.
func Cumulative(daily map[string]decimal.Decimal, labels []string) []float64 {
	out := make([]float64, len(labels))
	sum := decimal.Zero
	for i, day := range labels {
		sum = sum.Add(daily[day])
		out[i] = sum.Round(1).InexactFloat64()
	}
	return out
}

// CumulativeByDay returns every day from the first to the last close date of
// trades together with the cumulative pips at the end of that day.
func CumulativeByDay(trades []core.Trade) ([]string, []float64) {
	daily := DailyPips(trades)
	if len(daily) == 0 {
		return []string{}, []float64{}
	}

	days := make([]string, 0, len(daily))
	for d := range daily {
		days = append(days, d)
	}
	sort.Strings(days)

	first, _ := time.Parse(format.ISODate, days[0])
	last, _ := time.Parse(format.ISODate, days[len(days)-1])

	var labels []string
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		labels = append(labels, d.Format(format.ISODate))
	}
	return labels, Cumulative(daily, labels)
}

// UnionLabels merges label sets into one sorted set without duplicates.
func UnionLabels(sets ...[]string) []string {
	seen := make(map[string]struct{})
	for _, set := range sets {
		for _, l := range set {
			seen[l] = struct{}{}
		}
	}

	out := make([]string, 0, len(seen))
	for l := range seen {
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}

// Align maps a series onto a common label axis. Missing points carry the
// last known value forward; points before the first known one take that
// first value. A series with no label in common is all zeros.
func Align(labels []string, values []float64, common []string) []float64 {
	out := make([]float64, len(common))
	if len(common) == 0 {
		return out
	}

	known := make(map[string]float64, len(labels))
	for i, l := range labels {
		if i < len(values) {
			known[l] = values[i]
		}
	}

	firstIdx := -1
	for i, l := range common {
		if _, ok := known[l]; ok {
			firstIdx = i
			break
		}
	}
	if firstIdx < 0 {
		return out
	}

	current := known[common[firstIdx]]
	for i, l := range common {
		if v, ok := known[l]; ok {
			current = v
		}
		out[i] = current
	}
	return out
}

// Build produces the PnL chart for the strategies in order. trades is keyed
// by strategy key.
func Build(strategies []core.Strategy, trades map[string][]core.Trade, opts Options) Chart {
	if opts.Now.IsZero() {
		opts.Now = time.Now()
	}
	if opts.Days <= 0 {
		opts.Days = DefaultWindowDays
	}

	var chart Chart
	switch opts.Mode {
	case ModeUnion:
		labelSets := make([][]string, len(strategies))
		valueSets := make([][]float64, len(strategies))
		for i, s := range strategies {
			labelSets[i], valueSets[i] = CumulativeByDay(trades[s.Key])
		}
		chart.Labels = UnionLabels(labelSets...)
		for i, s := range strategies {
			chart.Series = append(chart.Series, core.Series{
				Name:   s.Title,
				Color:  s.Color,
				Values: Align(labelSets[i], valueSets[i], chart.Labels),
			})
		}
	default:
		chart.Labels = WindowLabels(opts.Now, opts.Days)
		for _, s := range strategies {
			chart.Series = append(chart.Series, core.Series{
				Name:   s.Title,
				Color:  s.Color,
				Values: Cumulative(DailyPips(trades[s.Key]), chart.Labels),
			})
		}
	}

	if n := len(chart.Labels); n > 0 {
		chart.MinDate = chart.Labels[0]
		chart.MaxDate = chart.Labels[n-1]
	}
	return chart
}
