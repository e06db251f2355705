package dashboard

import (
	"fmt"
	"io"
	"sort"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/newthinker/pipboard/internal/chart/format"
)

// WriteSummary prints one row per strategy of each result.
func WriteSummary(w io.Writer, results []*Result) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(table.Row{"pair", "strategy", "trades", "pips", "win rate", "max dd", "alerts", "page"})

	for _, r := range results {
		if r == nil {
			continue
		}
		alerts := make(map[string]int, len(r.Alerts))
		for _, a := range r.Alerts {
			alerts[a.Strategy]++
		}
		keys := make([]string, 0, len(r.Stats))
		for k := range r.Stats {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for i, k := range keys {
			url := ""
			if i == 0 {
				url = r.PageURL
			}
			st := r.Stats[k]
			t.AppendRow(table.Row{
				r.Pair, k, st.TotalTrades,
				format.SignedPips(st.TotalPips),
				fmt.Sprintf("%.0f%%", st.WinRate),
				fmt.Sprintf("%.1f", st.MaxDrawdownPips),
				alerts[k], url,
			})
		}
		t.AppendSeparator()
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "", fmt.Sprintf("%d pair(s)", countResults(results))})
	t.Render()
}

func countResults(results []*Result) int {
	n := 0
	for _, r := range results {
		if r != nil {
			n++
		}
	}
	return n
}
