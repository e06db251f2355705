package pnl

import (
	"math"
	"testing"

	"github.com/newthinker/pipboard/internal/core"
)

func TestCalculateStats_Empty(t *testing.T) {
	stats := CalculateStats([]core.Trade{})
	if stats.TotalTrades != 0 {
		t.Error("expected 0 trades for empty input")
	}
}

func TestCalculateStats_WinRate(t *testing.T) {
	trades := []core.Trade{
		closedAt("2025-06-04", 10), // win
		closedAt("2025-06-03", 5),  // win
		closedAt("2025-06-02", -3), // loss
		closedAt("2025-06-01", 2),  // win
	}

	stats := CalculateStats(trades)

	if stats.TotalTrades != 4 {
		t.Errorf("TotalTrades = %d, want 4", stats.TotalTrades)
	}
	if stats.WinningTrades != 3 {
		t.Errorf("WinningTrades = %d, want 3", stats.WinningTrades)
	}
	if stats.WinRate != 75 {
		t.Errorf("WinRate = %f, want 75", stats.WinRate)
	}
	if math.Abs(stats.TotalPips-14) > 0.001 {
		t.Errorf("TotalPips = %f, want 14", stats.TotalPips)
	}
}

func TestCalculateStats_MaxDrawdownFollowsCloseOrder(t *testing.T) {
	// replayed oldest first: +10, +5, -20, +10 -> peak 15, trough -5
	trades := []core.Trade{
		closedAt("2025-06-04", 10),
		closedAt("2025-06-03", -20),
		closedAt("2025-06-02", 5),
		closedAt("2025-06-01", 10),
	}

	stats := CalculateStats(trades)

	if stats.MaxDrawdownPips != 20 {
		t.Errorf("MaxDrawdownPips = %f, want 20", stats.MaxDrawdownPips)
	}
}

func TestMaxDrawdown_OpeningLoss(t *testing.T) {
	if dd := maxDrawdown([]float64{-4.5, 2, -1}); dd != 4.5 {
		t.Errorf("maxDrawdown = %f, want 4.5", dd)
	}
	if dd := maxDrawdown(nil); dd != 0 {
		t.Errorf("maxDrawdown(nil) = %f, want 0", dd)
	}
}

func TestSharpeRatio(t *testing.T) {
	if s := sharpeRatio([]float64{5}); s != 0 {
		t.Errorf("single trade sharpe = %f, want 0", s)
	}
	if s := sharpeRatio([]float64{3, 3, 3}); s != 0 {
		t.Errorf("flat sharpe = %f, want 0", s)
	}
	// mean 2, sample std dev 2
	if s := sharpeRatio([]float64{0, 4, 0, 4}); math.Abs(s-0.866) > 0.001 {
		t.Errorf("sharpe = %f, want ~0.866", s)
	}
}

func TestCalculateStats_IgnoresOpenTrades(t *testing.T) {
	trades := []core.Trade{
		closedAt("2025-06-02", 10), // closed
		openTrade(),                // open - should be ignored
	}

	stats := CalculateStats(trades)

	if stats.WinningTrades != 1 {
		t.Errorf("should only count closed trades, got %d", stats.WinningTrades)
	}
	if stats.ClosedTrades != 1 || stats.TotalTrades != 2 {
		t.Errorf("closed/total = %d/%d, want 1/2", stats.ClosedTrades, stats.TotalTrades)
	}
}
