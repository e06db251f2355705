package app

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/pipboard/internal/config"
	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/dashboard"
	"github.com/newthinker/pipboard/internal/notifier"
	"github.com/newthinker/pipboard/internal/source"
	"github.com/newthinker/pipboard/internal/storage/history"
	"go.uber.org/zap"
)

// Target is a pair together with the source its pages are built from.
type Target struct {
	Pair   config.PairConfig
	Source source.Source
}

// PairStatus is the outcome of the most recent build of a pair.
type PairStatus struct {
	Pair      string    `json:"pair"`
	LastRun   time.Time `json:"last_run"`
	LastBuild time.Time `json:"last_build,omitempty"`
	RunID     string    `json:"run_id,omitempty"`
	PageURL   string    `json:"page_url,omitempty"`
	Skipped   bool      `json:"skipped"`
	Error     string    `json:"error,omitempty"`
}

// App is the main application orchestrator
type App struct {
	cfg       *config.Config
	logger    *zap.Logger
	builder   *dashboard.Builder
	notifiers *notifier.Registry
	history   history.Store

	targets  []Target
	interval time.Duration
	status   map[string]*PairStatus
	builds   int

	mu      sync.RWMutex
	running bool
	cancel  context.CancelFunc
}

// New creates a new App instance
func New(cfg *config.Config, logger *zap.Logger, builder *dashboard.Builder) *App {
	if logger == nil {
		logger = zap.NewNop()
	}
	interval := time.Minute
	historySize := 0
	if cfg != nil {
		if cfg.Schedule.Interval > 0 {
			interval = cfg.Schedule.Interval
		}
		historySize = cfg.Alerts.HistorySize
	}

	return &App{
		cfg:       cfg,
		logger:    logger,
		builder:   builder,
		notifiers: notifier.NewRegistry(),
		history:   history.NewMemoryStore(historySize),
		interval:  interval,
		status:    make(map[string]*PairStatus),
	}
}

// AddTarget registers a pair to build.
func (a *App) AddTarget(t Target) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.targets = append(a.targets, t)
	a.status[t.Pair.Key] = &PairStatus{Pair: t.Pair.Key}
}

// RegisterNotifier adds a notifier to the app
func (a *App) RegisterNotifier(n notifier.Notifier) error {
	return a.notifiers.Register(n)
}

// Notifiers returns the registered notifiers.
func (a *App) Notifiers() []notifier.Notifier {
	return a.notifiers.GetAll()
}

// TestNotifiers sends a sample alert through every notifier, or through
// the named ones only.
func (a *App) TestNotifiers(names ...string) error {
	sample := core.Alert{
		Pair:     "test",
		Strategy: "test",
		Kind:     core.AlertThreshold,
		Rule:     "notifier_test",
		Message:  "pipboard notifier test",
		At:       time.Now(),
	}
	return a.notifiers.NotifyAll([]core.Alert{sample}, names...)
}

// History returns the store of fired alerts.
func (a *App) History() history.Store {
	return a.history
}

// SetInterval sets the rebuild interval
func (a *App) SetInterval(d time.Duration) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.interval = d
}

// Pairs returns the keys of the registered pairs in order.
func (a *App) Pairs() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	keys := make([]string, len(a.targets))
	for i, t := range a.targets {
		keys[i] = t.Pair.Key
	}
	return keys
}

// PairConfigs returns the configuration of every registered pair.
func (a *App) PairConfigs() []config.PairConfig {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]config.PairConfig, len(a.targets))
	for i, t := range a.targets {
		out[i] = t.Pair
	}
	return out
}

// Start begins the rebuild loop
func (a *App) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("app already running")
	}
	a.running = true

	ctx, cancel := context.WithCancel(ctx)
	a.cancel = cancel
	interval := a.interval
	a.mu.Unlock()

	a.logger.Info("pipboard starting",
		zap.Int("pairs", len(a.Pairs())),
		zap.Duration("interval", interval),
	)

	// Initial run
	a.runCycle(ctx, false)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			a.logger.Info("pipboard shutting down")
			a.mu.Lock()
			a.running = false
			a.mu.Unlock()
			return ctx.Err()
		case <-ticker.C:
			a.runCycle(ctx, false)
		}
	}
}

// Stop stops the rebuild loop
func (a *App) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.cancel != nil {
		a.cancel()
	}
}

func (a *App) runCycle(ctx context.Context, force bool) {
	if _, err := a.RunOnce(ctx, force); err != nil {
		a.logger.Debug("build cycle finished with errors", zap.Error(err))
	}
}

// RunOnce builds the given pairs, or every registered pair when none are
// named. Skipped pairs are not errors; failures of individual pairs are
// joined into the returned error.
func (a *App) RunOnce(ctx context.Context, force bool, pairs ...string) ([]*dashboard.Result, error) {
	targets, err := a.selectTargets(pairs)
	if err != nil {
		return nil, err
	}

	var results []*dashboard.Result
	var errs []error
	for _, t := range targets {
		if ctx.Err() != nil {
			errs = append(errs, ctx.Err())
			break
		}
		res, err := a.builder.Build(ctx, dashboard.Request{Pair: t.Pair, Source: t.Source, Force: force})
		a.record(t.Pair.Key, res, err)
		switch {
		case errors.Is(err, core.ErrNoNewData):
		case err != nil:
			errs = append(errs, fmt.Errorf("%s: %w", t.Pair.Key, err))
		default:
			a.saveAlerts(ctx, res.Alerts)
			results = append(results, res)
		}
	}
	return results, errors.Join(errs...)
}

func (a *App) saveAlerts(ctx context.Context, alerts []core.Alert) {
	for _, al := range alerts {
		if _, err := a.history.Save(ctx, al); err != nil {
			a.logger.Warn("alert not recorded", zap.String("pair", al.Pair), zap.Error(err))
		}
	}
}

func (a *App) selectTargets(keys []string) ([]Target, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if len(keys) == 0 {
		out := make([]Target, len(a.targets))
		copy(out, a.targets)
		return out, nil
	}
	out := make([]Target, 0, len(keys))
	for _, k := range keys {
		found := false
		for _, t := range a.targets {
			if t.Pair.Key == k {
				out = append(out, t)
				found = true
				break
			}
		}
		if !found {
			return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("unknown pair %q", k))
		}
	}
	return out, nil
}

func (a *App) record(pair string, res *dashboard.Result, err error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	st, ok := a.status[pair]
	if !ok {
		st = &PairStatus{Pair: pair}
		a.status[pair] = st
	}
	st.LastRun = time.Now()
	st.Skipped = errors.Is(err, core.ErrNoNewData)
	st.Error = ""
	switch {
	case st.Skipped:
	case err != nil:
		st.Error = err.Error()
	default:
		a.builds++
		st.LastBuild = st.LastRun
		st.RunID = res.RunID
		st.PageURL = res.PageURL
	}
}

// Status returns the latest build outcome of every pair in registration order.
func (a *App) Status() []PairStatus {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]PairStatus, 0, len(a.targets))
	for _, t := range a.targets {
		out = append(out, *a.status[t.Pair.Key])
	}
	return out
}

// GetStats returns application statistics
func (a *App) GetStats() map[string]any {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return map[string]any{
		"running":   a.running,
		"pairs":     len(a.targets),
		"builds":    a.builds,
		"notifiers": len(a.notifiers.GetAll()),
		"interval":  a.interval.String(),
	}
}

// Close releases every source.
func (a *App) Close() error {
	a.mu.RLock()
	defer a.mu.RUnlock()
	var errs []error
	for _, t := range a.targets {
		if err := t.Source.Close(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", t.Pair.Key, err))
		}
	}
	return errors.Join(errs...)
}
