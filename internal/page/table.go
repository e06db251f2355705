package page

import (
	"github.com/newthinker/pipboard/internal/chart/format"
	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/pnl"
)

const openTimeLayout = "2006-01-02 15:04"

// Table is the trade list of one strategy.
type Table struct {
	Title string
	// Total is the signed sum of pips of the closed trades
	Total string
	Rows  []TradeRow
}

// TradeRow is one trade formatted for display.
type TradeRow struct {
	OpenTime   string
	OpenPrice  string
	Direction  string
	SL         string
	TP         string
	ClosePrice string
	Pips       string
}

// NewTable formats trades (newest first) of a strategy. Prices use the
// pair's decimals; open trades show "-" as close price.
func NewTable(strategy core.Strategy, trades []core.Trade, decimals int) Table {
	rows := make([]TradeRow, len(trades))
	for i, t := range trades {
		closePrice := "-"
		if t.ClosePrice != nil {
			closePrice = format.FormatPrice(*t.ClosePrice, decimals)
		}
		rows[i] = TradeRow{
			OpenTime:   t.OpenTime.UTC().Format(openTimeLayout),
			OpenPrice:  format.FormatPrice(t.OpenPrice, decimals),
			Direction:  string(t.Direction),
			SL:         format.FormatPrice(t.SLPrice, decimals),
			TP:         format.FormatPrice(t.TPPrice, decimals),
			ClosePrice: closePrice,
			Pips:       format.SignedPips(t.ResultPips),
		}
	}
	return Table{
		Title: strategy.Title,
		Total: format.SignedPips(pnl.Total(trades)),
		Rows:  rows,
	}
}
