package alert

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/newthinker/pipboard/internal/core"
)

// Notifier delivers a batch of alerts.
type Notifier interface {
	Name() string
	SendBatch(alerts []core.Alert) error
}

// Evaluator evaluates alert rules and sends notifications.
type Evaluator struct {
	notifiers []Notifier
	streak    StreakRule
	rules     []Rule
	cooldown  time.Duration

	// Track pending threshold alerts (waiting for "for" duration)
	pending map[string]time.Time
	// Track last fired time for cooldown
	lastFired map[string]time.Time

	// For testing: allow time advancement
	now func() time.Time

	mu sync.Mutex
}

// NewEvaluator creates a new alert evaluator with the default streak rule.
func NewEvaluator(notifiers []Notifier) *Evaluator {
	return &Evaluator{
		notifiers: notifiers,
		streak:    DefaultStreakRule(),
		cooldown:  DefaultStreakFreshness,
		pending:   make(map[string]time.Time),
		lastFired: make(map[string]time.Time),
		now:       time.Now,
	}
}

// SetCooldown sets the cooldown duration between repeated alerts.
func (e *Evaluator) SetCooldown(d time.Duration) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.cooldown = d
}

// SetStreakRule replaces the streak rule.
func (e *Evaluator) SetStreakRule(r StreakRule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.streak = r
}

// SetRules replaces the threshold rules.
func (e *Evaluator) SetRules(rules []Rule) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.rules = rules
}

// SetClock overrides the time source.
func (e *Evaluator) SetClock(now func() time.Time) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.now = now
}

// Evaluate runs the streak rule and every threshold rule against the trades
// (newest first) of one strategy and returns the alerts that fired, after
// cooldown. Nothing is sent.
func (e *Evaluator) Evaluate(pair string, strategy core.Strategy, trades []core.Trade) []core.Alert {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now()
	var fired []core.Alert

	if a, ok := e.streak.Detect(pair, strategy, trades, now); ok && e.ready(alertKey(a), now) {
		fired = append(fired, a)
	}

	if len(e.rules) == 0 {
		return fired
	}
	metrics := StrategyMetrics(trades)
	for _, rule := range e.rules {
		key := pair + "/" + strategy.Key + "/" + rule.Name

		// Check if rule condition is met
		if !rule.Evaluate(metrics) {
			delete(e.pending, key)
			continue
		}

		if rule.For > 0 {
			pendingSince, isPending := e.pending[key]
			if !isPending {
				e.pending[key] = now
				continue
			}
			if now.Sub(pendingSince) < rule.For {
				continue // Still waiting
			}
		}

		if !e.ready(key, now) {
			continue
		}
		delete(e.pending, key)
		fired = append(fired, core.Alert{
			Pair:     pair,
			Strategy: strategy.Key,
			Kind:     core.AlertThreshold,
			Rule:     rule.Name,
			Message:  rule.FormatMessage(strategy.Title, metrics),
			At:       now,
		})
	}
	return fired
}

// ready reports whether key is outside its cooldown and marks it fired.
// Callers hold e.mu.
func (e *Evaluator) ready(key string, now time.Time) bool {
	lastFired, hasFired := e.lastFired[key]
	if hasFired && now.Sub(lastFired) < e.cooldown {
		return false // In cooldown
	}
	e.lastFired[key] = now
	return true
}

// Dispatch sends alerts to every notifier as one batch.
func (e *Evaluator) Dispatch(alerts []core.Alert) error {
	if len(alerts) == 0 {
		return nil
	}
	var errs []error
	for _, n := range e.notifiers {
		if err := n.SendBatch(alerts); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", n.Name(), err))
		}
	}
	if len(errs) > 0 {
		return core.WrapError(core.ErrNotifierFailed, errors.Join(errs...))
	}
	return nil
}

func alertKey(a core.Alert) string {
	return a.Pair + "/" + a.Strategy + "/" + string(a.Kind)
}

// advanceTime is for testing - advances the internal clock.
func (e *Evaluator) advanceTime(d time.Duration) {
	oldNow := e.now
	e.now = func() time.Time {
		return oldNow().Add(d)
	}
}
