package pnl

import (
	"math"
	"sort"

	"github.com/newthinker/pipboard/internal/core"
)

// Stats summarises the performance of one strategy in pips.
type Stats struct {
	TotalTrades   int
	ClosedTrades  int
	WinningTrades int
	LosingTrades  int
	// WinRate is the share of closed trades with positive pips, in percent
	WinRate   float64
	TotalPips float64
	// MaxDrawdownPips is the largest peak-to-trough fall of cumulative pips
	MaxDrawdownPips float64
	SharpeRatio     float64
}

// CalculateStats computes statistics of trades in any order. Closed trades
// are replayed in close-time order.
func CalculateStats(trades []core.Trade) Stats {
	if len(trades) == 0 {
		return Stats{}
	}

	closed := Closed(trades)
	sort.SliceStable(closed, func(i, j int) bool {
		return closed[i].CloseTime.Before(*closed[j].CloseTime)
	})

	var winning, losing int
	pips := make([]float64, len(closed))
	for i, t := range closed {
		pips[i] = t.ResultPips
		switch {
		case t.ResultPips > 0:
			winning++
		case t.ResultPips < 0:
			losing++
		}
	}

	var winRate float64
	if len(closed) > 0 {
		winRate = float64(winning) / float64(len(closed)) * 100
	}

	return Stats{
		TotalTrades:     len(trades),
		ClosedTrades:    len(closed),
		WinningTrades:   winning,
		LosingTrades:    losing,
		WinRate:         winRate,
		TotalPips:       Total(trades),
		MaxDrawdownPips: maxDrawdown(pips),
		SharpeRatio:     sharpeRatio(pips),
	}
}

// maxDrawdown finds the largest fall of the running pip sum from its peak.
// The sum starts at zero, so an opening loss counts as drawdown.
func maxDrawdown(pips []float64) float64 {
	var maxDD, peak, cumulative float64
	for _, p := range pips {
		cumulative += p
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDD {
			maxDD = dd
		}
	}
	return math.Round(maxDD*10) / 10
}

// sharpeRatio is the mean per-trade result over its standard deviation,
// not annualised.
func sharpeRatio(pips []float64) float64 {
	if len(pips) < 2 {
		return 0
	}

	var sum float64
	for _, p := range pips {
		sum += p
	}
	mean := sum / float64(len(pips))

	var variance float64
	for _, p := range pips {
		variance += (p - mean) * (p - mean)
	}
	stdDev := math.Sqrt(variance / float64(len(pips)-1))

	if stdDev == 0 {
		return 0
	}
	return mean / stdDev
}
