// Package dashboard builds and publishes the pages of one currency pair.
package dashboard

import (
	"context"
	"errors"
	"fmt"
	"math"
	"path"
	"time"

	"github.com/google/uuid"
	"github.com/newthinker/pipboard/internal/alert"
	"github.com/newthinker/pipboard/internal/chart/format"
	"github.com/newthinker/pipboard/internal/config"
	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/metrics"
	"github.com/newthinker/pipboard/internal/page"
	"github.com/newthinker/pipboard/internal/pnl"
	"github.com/newthinker/pipboard/internal/snapshot"
	"github.com/newthinker/pipboard/internal/source"
	"github.com/newthinker/pipboard/internal/storage/archive"
	"github.com/newthinker/pipboard/internal/storage/state"
	"go.uber.org/zap"
)

// Object headers of published pages.
const (
	HTMLContentType = "text/html; charset=utf-8"
	PNGContentType  = "image/png"
	NoCache         = "no-cache"
)

// Build outcomes reported to metrics.
const (
	StatusOK      = "ok"
	StatusSkipped = "skipped"
	StatusError   = "error"
)

// Request is one build of one pair.
type Request struct {
	Pair   config.PairConfig
	Source source.Source
	// Force rebuilds even when no tick arrived since the last build.
	Force bool
}

// Result describes a published build.
type Result struct {
	RunID   string
	Pair    string
	PageURL string
	Pages   []string
	Alerts  []core.Alert
	Ticks   int
	// Stats is keyed by strategy key.
	Stats    map[string]pnl.Stats
	Latest   time.Time
	Duration time.Duration
}

// Builder turns ticks and trades into published pages.
type Builder struct {
	store    archive.Storage
	state    state.Store
	renderer *page.Renderer
	alerts   *alert.Evaluator
	metrics  *metrics.Registry
	logger   *zap.Logger
	now      func() time.Time
	snapshot snapshot.Options
	noPNG    bool
}

// Option configures a Builder.
type Option func(*Builder)

// WithAlerts evaluates and dispatches alerts on every build.
func WithAlerts(e *alert.Evaluator) Option {
	return func(b *Builder) { b.alerts = e }
}

// WithMetrics records build metrics.
func WithMetrics(m *metrics.Registry) Option {
	return func(b *Builder) { b.metrics = m }
}

// WithLogger sets the build logger; nil keeps the no-op one.
func WithLogger(l *zap.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(b *Builder) { b.now = now }
}

// WithSnapshot sets the PNG preview size. Disabled skips the preview.
func WithSnapshot(opts snapshot.Options, disabled bool) Option {
	return func(b *Builder) {
		b.snapshot = opts
		b.noPNG = disabled
	}
}

// NewBuilder creates a builder publishing to store.
func NewBuilder(store archive.Storage, st state.Store, renderer *page.Renderer, opts ...Option) *Builder {
	b := &Builder{
		store:    store,
		state:    st,
		renderer: renderer,
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Build runs one build. It returns core.ErrNoNewData when the newest tick
// is not newer than the watermark of the previous build and req.Force is
// not set.
func (b *Builder) Build(ctx context.Context, req Request) (*Result, error) {
	start := time.Now()
	pair := req.Pair
	res := &Result{
		RunID: uuid.NewString(),
		Pair:  pair.Key,
		Stats: make(map[string]pnl.Stats, len(pair.Strategies)),
	}
	log := b.logger.With(zap.String("run_id", res.RunID), zap.String("pair", pair.Key))

	err := b.build(ctx, req, res, log)
	res.Duration = time.Since(start)

	status := StatusOK
	switch {
	case errors.Is(err, core.ErrNoNewData):
		status = StatusSkipped
		log.Debug("no new ticks, build skipped")
	case err != nil:
		status = StatusError
		log.Error("build failed", zap.Error(err))
	default:
		log.Info("build published",
			zap.String("url", res.PageURL),
			zap.Int("ticks", res.Ticks),
			zap.Int("alerts", len(res.Alerts)),
			zap.Duration("duration", res.Duration),
		)
	}
	if b.metrics != nil {
		b.metrics.RecordBuild(pair.Key, status, res.Duration.Seconds())
		if status == StatusOK {
			b.metrics.SetLastBuild(pair.Key, float64(b.now().Unix()))
		}
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (b *Builder) build(ctx context.Context, req Request, res *Result, log *zap.Logger) error {
	pair := req.Pair
	src := req.Source

	latest, err := src.LatestTickTime(ctx)
	if err != nil {
		return err
	}
	res.Latest = latest

	if !req.Force {
		last, ok, err := b.state.Watermark(ctx, pair.Key)
		if err != nil {
			return err
		}
		if ok && !latest.After(last) {
			return core.ErrNoNewData
		}
	}

	ticks, err := src.Ticks(ctx, pair.TickCount)
	if err != nil {
		return err
	}
	if len(ticks) == 0 {
		return core.WrapError(core.ErrNoData, fmt.Errorf("pair %s: no ticks", pair.Key))
	}
	res.Ticks = len(ticks)
	loc := pair.Location()
	rate := RateSeries(pair.Title, ticks, pair.Decimals, loc)

	trades := make(map[string][]core.Trade, len(pair.Strategies))
	for _, s := range pair.Strategies {
		ts, err := src.Trades(ctx, s.Key, pair.TradeLimit)
		if err != nil {
			return fmt.Errorf("strategy %s: %w", s.Key, err)
		}
		trades[s.Key] = ts
		res.Stats[s.Key] = pnl.CalculateStats(ts)
	}

	now := b.now()
	chart := pnl.Build(pair.Strategies, trades, pnl.Options{
		Mode: pnl.Mode(pair.PnL.Mode),
		Days: pair.PnL.Days,
		Now:  now,
	})

	tables := make([]page.Table, len(pair.Strategies))
	for i, s := range pair.Strategies {
		tables[i] = page.NewTable(s, trades[s.Key], pair.Decimals)
	}

	var png []byte
	if !b.noPNG {
		png, err = snapshot.RenderPnL(chart, b.snapshot)
		if err != nil {
			// the pages do not depend on the preview
			log.Warn("snapshot skipped", zap.Error(err))
			png = nil
		}
	}
	snapshotRef := ""
	if png != nil {
		snapshotRef = relativeRef(pair.Pages.Dashboard, pair.Pages.Snapshot)
	}

	dashboardHTML, err := b.renderer.Dashboard(page.Dashboard{
		Title:    pair.Title,
		HomeURL:  pair.HomeURL,
		Rate:     rate,
		PnL:      chart,
		Tables:   tables,
		Snapshot: snapshotRef,
		Updated:  now,
		Location: loc,
	})
	if err != nil {
		return err
	}
	if png != nil {
		snapshotRef = relativeRef(pair.Pages.PnLOnly, pair.Pages.Snapshot)
	}
	pnlHTML, err := b.renderer.PnLOnly(page.PnLOnly{
		Title:    pair.Title + " PnL",
		PnL:      chart,
		Snapshot: snapshotRef,
	})
	if err != nil {
		return err
	}

	if png != nil {
		if err := b.publish(ctx, pair.Key, "snapshot", pair.Pages.Snapshot, png, PNGContentType, res); err != nil {
			return err
		}
	}
	if err := b.publish(ctx, pair.Key, "pnl_only", pair.Pages.PnLOnly, pnlHTML, HTMLContentType, res); err != nil {
		return err
	}
	if err := b.publish(ctx, pair.Key, "dashboard", pair.Pages.Dashboard, dashboardHTML, HTMLContentType, res); err != nil {
		return err
	}
	res.PageURL = b.store.URL(pair.Pages.Dashboard)

	// alerts only go out for a published build, so a failed one starts no cooldown
	res.Alerts = b.evaluateAlerts(pair, trades, log)

	return b.state.SetWatermark(ctx, pair.Key, latest)
}

func (b *Builder) publish(ctx context.Context, pair, name, key string, data []byte, contentType string, res *Result) error {
	err := b.store.WriteObject(ctx, key, data, archive.WriteOptions{
		ContentType:  contentType,
		CacheControl: NoCache,
	})
	if err != nil {
		return core.WrapError(core.ErrPublishFailed, fmt.Errorf("%s: %w", key, err))
	}
	res.Pages = append(res.Pages, key)
	if b.metrics != nil {
		b.metrics.RecordPagePublished(pair, name)
	}
	return nil
}

func (b *Builder) evaluateAlerts(pair config.PairConfig, trades map[string][]core.Trade, log *zap.Logger) []core.Alert {
	if b.alerts == nil {
		return nil
	}
	var fired []core.Alert
	for _, s := range pair.Strategies {
		fired = append(fired, b.alerts.Evaluate(pair.Key, s, trades[s.Key])...)
	}
	if len(fired) == 0 {
		return nil
	}
	for _, a := range fired {
		log.Info("alert fired",
			zap.String("strategy", a.Strategy),
			zap.String("kind", string(a.Kind)),
			zap.String("message", a.Message),
		)
		if b.metrics != nil {
			b.metrics.RecordAlert(pair.Key, string(a.Kind))
		}
	}
	// delivery failures do not fail the build
	if err := b.alerts.Dispatch(fired); err != nil {
		log.Warn("alert delivery failed", zap.Error(err))
	}
	return fired
}

// RateSeries turns ticks (oldest first) into the rate chart series: labels
// are wall-clock HH:MM in loc and rates are rounded to decimals.
func RateSeries(name string, ticks []core.Tick, decimals int, loc *time.Location) page.Rate {
	if loc == nil {
		loc = time.UTC
	}
	labels := make([]string, len(ticks))
	values := make([]float64, len(ticks))
	scale := math.Pow(10, float64(decimals))
	for i, t := range ticks {
		labels[i] = t.Timestamp.In(loc).Format(format.TimeOfDay)
		values[i] = math.Round(t.Rate*scale) / scale
	}
	return page.Rate{Name: name, Labels: labels, Values: values, Decimals: decimals}
}

// relativeRef returns how a page stored at from refers to the object at to.
func relativeRef(from, to string) string {
	if path.Dir(from) == path.Dir(to) {
		return path.Base(to)
	}
	return "/" + to
}
