package app

import (
	"errors"
	"fmt"

	"github.com/newthinker/pipboard/internal/alert"
	"github.com/newthinker/pipboard/internal/config"
	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/dashboard"
	"github.com/newthinker/pipboard/internal/metrics"
	"github.com/newthinker/pipboard/internal/notifier"
	"github.com/newthinker/pipboard/internal/notifier/email"
	"github.com/newthinker/pipboard/internal/notifier/telegram"
	"github.com/newthinker/pipboard/internal/notifier/webhook"
	"github.com/newthinker/pipboard/internal/page"
	"github.com/newthinker/pipboard/internal/source"
	"github.com/newthinker/pipboard/internal/storage/archive"
	"github.com/newthinker/pipboard/internal/storage/state"
	"go.uber.org/zap"
)

// Components is everything a configured App owns.
type Components struct {
	App    *App
	Output archive.Storage
	State  state.Store
}

// Close releases the sources and the state store.
func (c *Components) Close() error {
	return errors.Join(c.App.Close(), c.State.Close())
}

// Wire builds an App from configuration. reg may be nil.
func Wire(cfg *config.Config, logger *zap.Logger, reg *metrics.Registry) (*Components, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	output, err := NewStorage(cfg.Storage.Type, cfg.Storage.Path, cfg.Storage.S3)
	if err != nil {
		return nil, fmt.Errorf("output storage: %w", err)
	}

	st, err := NewState(cfg.State)
	if err != nil {
		return nil, fmt.Errorf("state: %w", err)
	}

	renderer, err := page.NewRenderer()
	if err != nil {
		st.Close()
		return nil, err
	}

	opts := []dashboard.Option{
		dashboard.WithLogger(logger),
		dashboard.WithMetrics(reg),
	}

	notifiers := notifier.NewRegistry()
	for name, nc := range cfg.Notifiers {
		if !nc.Enabled {
			continue
		}
		n, err := NewNotifier(name, nc)
		if err != nil {
			st.Close()
			return nil, err
		}
		if err := notifiers.Register(n); err != nil {
			st.Close()
			return nil, err
		}
		logger.Info("notifier enabled", zap.String("name", n.Name()))
	}

	if cfg.Alerts.Enabled {
		var targets []alert.Notifier
		for _, n := range notifiers.GetAll() {
			targets = append(targets, meteredNotifier{Notifier: n, metrics: reg})
		}
		eval := alert.NewEvaluator(targets)
		eval.SetCooldown(cfg.Alerts.Cooldown)
		eval.SetStreakRule(cfg.Alerts.Streak)
		eval.SetRules(cfg.Alerts.Rules)
		opts = append(opts, dashboard.WithAlerts(eval))
	}

	builder := dashboard.NewBuilder(output, st, renderer, opts...)
	a := New(cfg, logger, builder)
	a.notifiers = notifiers

	for _, pc := range cfg.Pairs {
		src, err := NewSource(pc)
		if err != nil {
			a.Close()
			st.Close()
			return nil, fmt.Errorf("pair %s: %w", pc.Key, err)
		}
		a.AddTarget(Target{Pair: pc, Source: src})
	}

	return &Components{App: a, Output: output, State: st}, nil
}

// NewStorage opens a localfs or s3 object store.
func NewStorage(typ, path string, s3 config.S3Config) (archive.Storage, error) {
	switch typ {
	case "localfs":
		return archive.NewLocalFS(path)
	case "s3":
		return archive.NewS3(archive.S3Config{
			Bucket:    s3.Bucket,
			Endpoint:  s3.Endpoint,
			Region:    s3.Region,
			AccessKey: s3.AccessKey,
			SecretKey: s3.SecretKey,
			Prefix:    s3.Prefix,
			PublicURL: s3.PublicURL,
		})
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown storage type %q", typ))
	}
}

// NewState opens the watermark store.
func NewState(cfg config.StateConfig) (state.Store, error) {
	switch cfg.Type {
	case "memory":
		return state.NewMemory(), nil
	case "badger":
		return state.OpenBadger(cfg.Path)
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown state type %q", cfg.Type))
	}
}

// NewSource opens the source a pair reads ticks and trades from.
func NewSource(pc config.PairConfig) (source.Source, error) {
	switch pc.Source.Type {
	case "archive":
		a := pc.Source.Archive
		store, err := NewStorage(a.Type, a.Path, a.S3)
		if err != nil {
			return nil, err
		}
		return source.NewArchive(store, a.TicksPrefix, a.TradesPrefix), nil
	case "sql":
		s := pc.Source.SQL
		return source.OpenSQL(source.SQLConfig{
			Driver:      s.Driver,
			DSN:         s.DSN,
			RatesTable:  s.RatesTable,
			TradeTables: s.TradeTables,
		})
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown source type %q", pc.Source.Type))
	}
}

// NewNotifier creates and initialises a notifier by name.
func NewNotifier(name string, nc config.NotifierConfig) (notifier.Notifier, error) {
	var n notifier.Notifier
	switch name {
	case "email":
		n = email.New("", 0, "", "", "", nil)
	case "webhook":
		n = webhook.New("", nil)
	case "telegram":
		n = telegram.New("", "")
	default:
		return nil, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("unknown notifier %q", name))
	}
	if err := n.Init(notifier.Config{Type: name, Params: nc.Params()}); err != nil {
		return nil, core.WrapError(core.ErrConfigInvalid, err)
	}
	return n, nil
}

// meteredNotifier counts deliveries per notifier.
type meteredNotifier struct {
	notifier.Notifier
	metrics *metrics.Registry
}

func (m meteredNotifier) SendBatch(alerts []core.Alert) error {
	err := m.Notifier.SendBatch(alerts)
	if m.metrics != nil {
		status := "ok"
		if err != nil {
			status = "error"
		}
		m.metrics.RecordNotification(m.Name(), status)
	}
	return err
}
