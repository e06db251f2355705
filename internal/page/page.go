// Package page renders dashboard pages with their chart data embedded in the markup.
package page

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/newthinker/pipboard/internal/chart/axissync"
	"github.com/newthinker/pipboard/internal/chart/format"
	"github.com/newthinker/pipboard/internal/chart/layout"
	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/pnl"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static/pipboard.js
var library string

// DefaultScripts are the browser libraries the pages load.
var DefaultScripts = []string{
	"https://cdn.jsdelivr.net/npm/chart.js",
	"https://cdn.jsdelivr.net/npm/luxon",
	"https://cdn.jsdelivr.net/npm/chartjs-adapter-luxon",
}

// Canvas ids of the two charts.
const (
	RateChartID = "rateChart"
	PnLChartID  = "pnlChart"
)

const (
	// DefaultLang is the html lang attribute of rendered pages
	DefaultLang = "pl"
	// DefaultRateColor is the line color of the rate chart
	DefaultRateColor = "rgba(75, 192, 192, 1)"
)

// HomeIcon is the link icon shown next to the dashboard title.
const HomeIcon = template.HTML(`<svg xmlns="http://www.w3.org/2000/svg" height="45px" viewBox="0 0 24 24" width="45px" fill="currentColor"><path d="M0 0h24v24H0V0z" fill="none"/><path d="M10 20v-6h4v6h5v-8h3L12 3 2 12h3v8z"/></svg>`)

// Rate is the recent rate series shown above the PnL chart.
type Rate struct {
	Name     string
	Labels   []string
	Values   []float64
	Decimals int
}

// Dashboard is the input of the full dashboard page.
type Dashboard struct {
	Title    string
	HomeURL  string
	Rate     Rate
	PnL      pnl.Chart
	Tables   []Table
	Snapshot string
	Updated  time.Time
	Location *time.Location
}

// PnLOnly is the input of the embeddable page with only the PnL chart.
type PnLOnly struct {
	Title    string
	PnL      pnl.Chart
	Snapshot string
}

// Renderer executes the embedded page templates.
type Renderer struct {
	tmpl     *template.Template
	measurer layout.Measurer
	scripts  []string
	lang     string
}

// Option configures a Renderer.
type Option func(*Renderer)

// WithScripts replaces the browser library URLs.
func WithScripts(urls ...string) Option {
	return func(r *Renderer) { r.scripts = urls }
}

// WithLang sets the html lang attribute.
func WithLang(lang string) Option {
	return func(r *Renderer) { r.lang = lang }
}

// WithMeasurer sets how tick label widths are measured.
func WithMeasurer(m layout.Measurer) Option {
	return func(r *Renderer) { r.measurer = m }
}

// NewRenderer parses the embedded templates.
func NewRenderer(opts ...Option) (*Renderer, error) {
	tmpl, err := template.New("").ParseFS(templateFS, "templates/*.html")
	if err != nil {
		return nil, fmt.Errorf("parsing templates: %w", err)
	}
	r := &Renderer{
		tmpl:     tmpl,
		measurer: layout.NewFontMeasurer(),
		scripts:  DefaultScripts,
		lang:     DefaultLang,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// chartView is a chart as the templates see it.
type chartView struct {
	ID        string
	Name      string
	Color     string
	Labels    []string
	Values    []float64
	Decimals  int
	AxisWidth float64
	// Summary is the text alternative of the chart
	Summary  string
	Datasets []dataset
	MinDate  string
	MaxDate  string
}

type dataset struct {
	Label       string    `json:"label"`
	Data        []float64 `json:"data"`
	BorderColor string    `json:"borderColor"`
	Tension     float64   `json:"tension"`
	Fill        bool      `json:"fill"`
}

type view struct {
	Lang     string
	Title    string
	Scripts  []string
	Library  template.JS
	HomeURL  string
	HomeIcon template.HTML
	Charts   int
	Rate     chartView
	PnL      chartView
	Tables   []Table
	Snapshot string
	Updated  string
}

// Dashboard renders the full page: rate chart, PnL chart and trade tables.
func (r *Renderer) Dashboard(d Dashboard) ([]byte, error) {
	if err := validateRate(d.Rate); err != nil {
		return nil, err
	}
	if err := validatePnL(d.PnL); err != nil {
		return nil, err
	}

	rate := r.rateView(d.Rate)
	pnlView := r.pnlView(d.PnL)
	widths := axissync.Align(
		axissync.NewStaticChart(rate.ID, rate.AxisWidth),
		axissync.NewStaticChart(pnlView.ID, pnlView.AxisWidth),
	)
	rate.AxisWidth = widths[rate.ID]
	pnlView.AxisWidth = widths[pnlView.ID]

	loc := d.Location
	if loc == nil {
		loc = time.UTC
	}
	updated := ""
	if !d.Updated.IsZero() {
		updated = "Updated " + d.Updated.In(loc).Format("2006-01-02 15:04 MST")
	}

	v := r.baseView(d.Title)
	v.HomeURL = d.HomeURL
	v.HomeIcon = HomeIcon
	v.Charts = 2
	v.Rate = rate
	v.PnL = pnlView
	v.Tables = d.Tables
	v.Snapshot = d.Snapshot
	v.Updated = updated
	return r.execute("dashboard.html", v)
}

// PnLOnly renders the page holding only the PnL chart.
func (r *Renderer) PnLOnly(p PnLOnly) ([]byte, error) {
	if err := validatePnL(p.PnL); err != nil {
		return nil, err
	}
	v := r.baseView(p.Title)
	v.Charts = 1
	v.PnL = r.pnlView(p.PnL)
	v.Snapshot = p.Snapshot
	return r.execute("pnl_only.html", v)
}

func (r *Renderer) baseView(title string) view {
	return view{
		Lang:    r.lang,
		Title:   title,
		Scripts: r.scripts,
		Library: template.JS(library),
	}
}

func (r *Renderer) execute(name string, v view) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, v); err != nil {
		return nil, core.WrapError(core.ErrRenderFailed, fmt.Errorf("%s: %w", name, err))
	}
	return buf.Bytes(), nil
}

func (r *Renderer) rateView(rate Rate) chartView {
	name := rate.Name
	if name == "" {
		name = "Rate"
	}
	labels := layout.Labels(layout.AxisTicks(false, rate.Values), func(v float64) string {
		return format.FormatPrice(v, rate.Decimals)
	})
	summary := name
	if n := len(rate.Values); n > 0 {
		summary += " " + format.PriceTooltip(rate.Values[n-1], rate.Decimals)
	}
	return chartView{
		ID:        RateChartID,
		Name:      name,
		Summary:   summary,
		Color:     DefaultRateColor,
		Labels:    nonNil(rate.Labels),
		Values:    nonNilFloats(rate.Values),
		Decimals:  rate.Decimals,
		AxisWidth: float64(layout.FitAxis(labels, r.measurer, layout.AxisPadding)),
	}
}

func (r *Renderer) pnlView(c pnl.Chart) chartView {
	values := make([][]float64, len(c.Series))
	sets := make([]dataset, len(c.Series))
	for i, s := range c.Series {
		values[i] = s.Values
		sets[i] = dataset{
			Label:       s.Name,
			Data:        nonNilFloats(s.Values),
			BorderColor: s.Color,
			Tension:     0.1,
		}
	}
	// the browser axis is zero-anchored (beginAtZero) so the fitted ticks are too
	labels := layout.Labels(layout.AxisTicks(true, values...), format.FormatPnLTick)
	return chartView{
		ID:        PnLChartID,
		Labels:    nonNil(c.Labels),
		Datasets:  sets,
		MinDate:   c.MinDate,
		MaxDate:   c.MaxDate,
		Summary:   pnlSummary(c),
		AxisWidth: float64(layout.FitAxis(labels, r.measurer, layout.AxisPadding)),
	}
}

// pnlSummary lists the date range and the final result of every series,
// e.g. "31-05-2025 - 02-06-2025; Strategia 1: +96.0 pips".
func pnlSummary(c pnl.Chart) string {
	var parts []string
	if len(c.Labels) > 0 {
		from, err1 := format.DisplayDate(c.Labels[0])
		to, err2 := format.DisplayDate(c.Labels[len(c.Labels)-1])
		if err1 == nil && err2 == nil {
			parts = append(parts, from+" - "+to)
		}
	}
	for _, s := range c.Series {
		if n := len(s.Values); n > 0 {
			parts = append(parts, format.PipsTooltip(s.Name, s.Values[n-1]))
		}
	}
	if len(parts) == 0 {
		return "PnL"
	}
	return strings.Join(parts, "; ")
}

func validateRate(r Rate) error {
	if len(r.Labels) != len(r.Values) {
		return core.WrapError(core.ErrInvalidSeries,
			fmt.Errorf("rate: %d labels, %d values", len(r.Labels), len(r.Values)))
	}
	return nil
}

func validatePnL(c pnl.Chart) error {
	for _, s := range c.Series {
		if len(s.Values) != len(c.Labels) {
			return core.WrapError(core.ErrInvalidSeries,
				fmt.Errorf("pnl %q: %d labels, %d values", s.Name, len(c.Labels), len(s.Values)))
		}
	}
	return nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func nonNilFloats(s []float64) []float64 {
	if s == nil {
		return []float64{}
	}
	return s
}
