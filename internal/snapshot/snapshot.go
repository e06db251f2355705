// Package snapshot renders a PnL chart to a PNG image for clients without
// JavaScript and for notifications.
package snapshot

import (
	"bytes"
	"fmt"
	"strconv"
	"strings"
	"time"

	chart "github.com/wcharczuk/go-chart/v2"
	"github.com/wcharczuk/go-chart/v2/drawing"

	"github.com/newthinker/pipboard/internal/chart/format"
	"github.com/newthinker/pipboard/internal/chart/layout"
	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/pnl"
)

// Image size used when Options leaves it unset.
const (
	DefaultWidth  = 1024
	DefaultHeight = 360
)

// Options sets the image size.
type Options struct {
	Width  int
	Height int
}

// RenderPnL draws the cumulative PnL series with the same tick and date
// formatting as the browser chart. It returns core.ErrNoData when there is
// nothing to plot.
func RenderPnL(c pnl.Chart, opts Options) ([]byte, error) {
	if opts.Width <= 0 {
		opts.Width = DefaultWidth
	}
	if opts.Height <= 0 {
		opts.Height = DefaultHeight
	}
	if len(c.Labels) == 0 || len(c.Series) == 0 {
		return nil, core.ErrNoData
	}

	times := make([]time.Time, len(c.Labels))
	for i, l := range c.Labels {
		t, err := time.Parse(format.ISODate, l)
		if err != nil {
			return nil, core.WrapError(core.ErrRenderFailed, fmt.Errorf("label %q: %w", l, err))
		}
		times[i] = t
	}

	series := make([]chart.Series, 0, len(c.Series))
	values := make([][]float64, 0, len(c.Series))
	for _, s := range c.Series {
		if len(s.Values) != len(times) {
			return nil, core.WrapError(core.ErrInvalidSeries,
				fmt.Errorf("%q: %d labels, %d values", s.Name, len(times), len(s.Values)))
		}
		xs, ys := times, s.Values
		// a line needs two x values
		if len(xs) == 1 {
			xs = []time.Time{times[0], times[0].Add(24 * time.Hour)}
			ys = []float64{s.Values[0], s.Values[0]}
		}
		col := ParseColor(s.Color)
		series = append(series, chart.TimeSeries{
			Name:    s.Name,
			XValues: xs,
			YValues: ys,
			Style: chart.Style{
				StrokeColor: col,
				StrokeWidth: 2,
			},
		})
		values = append(values, s.Values)
	}

	ch := chart.Chart{
		Width:      opts.Width,
		Height:     opts.Height,
		Background: chart.Style{Padding: chart.Box{Top: 20, Left: 16, Right: 16, Bottom: 40}},
		XAxis: chart.XAxis{
			ValueFormatter: chart.TimeValueFormatterWithFormat(format.DisplayDateLayout),
		},
		YAxis:  pnlAxis(values...),
		Series: series,
	}
	ch.Elements = []chart.Renderable{chart.Legend(&ch)}

	var buf bytes.Buffer
	if err := ch.Render(chart.PNG, &buf); err != nil {
		return nil, core.WrapError(core.ErrRenderFailed, err)
	}
	return buf.Bytes(), nil
}

// pnlAxis is the zero-anchored value axis of the PnL chart.
func pnlAxis(values ...[]float64) chart.YAxis {
	yAxis := chart.YAxis{
		ValueFormatter: func(v interface{}) string {
			if f, ok := v.(float64); ok {
				return format.FormatPnLTick(f)
			}
			return ""
		},
	}
	ticks := layout.AxisTicks(true, values...)
	if len(ticks) < 2 {
		return yAxis
	}
	yAxis.Range = &chart.ContinuousRange{Min: ticks[0], Max: ticks[len(ticks)-1]}
	for _, t := range ticks {
		yAxis.Ticks = append(yAxis.Ticks, chart.Tick{Value: t, Label: format.FormatPnLTick(t)})
	}
	return yAxis
}

// ParseColor converts a CSS color ("rgba(r, g, b, a)", "rgb(r, g, b)" or
// "#rrggbb") to a drawing color. Unknown values give the default series color.
func ParseColor(s string) drawing.Color {
	s = strings.TrimSpace(strings.ToLower(s))
	if strings.HasPrefix(s, "#") {
		return drawing.ColorFromHex(strings.TrimPrefix(s, "#"))
	}

	lp, rp := strings.IndexByte(s, '('), strings.LastIndexByte(s, ')')
	if lp < 0 || rp < lp {
		return chart.DefaultColors[0]
	}
	parts := strings.Split(s[lp+1:rp], ",")
	if len(parts) < 3 {
		return chart.DefaultColors[0]
	}

	var rgb [3]uint8
	for i := 0; i < 3; i++ {
		v, err := strconv.Atoi(strings.TrimSpace(parts[i]))
		if err != nil || v < 0 || v > 255 {
			return chart.DefaultColors[0]
		}
		rgb[i] = uint8(v)
	}
	col := drawing.Color{R: rgb[0], G: rgb[1], B: rgb[2], A: 255}
	if len(parts) >= 4 {
		if a, err := strconv.ParseFloat(strings.TrimSpace(parts[3]), 64); err == nil && a >= 0 && a <= 1 {
			col.A = uint8(a*255 + 0.5)
		}
	}
	return col
}
