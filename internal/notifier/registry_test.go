package notifier

import (
	"errors"
	"testing"

	"github.com/newthinker/pipboard/internal/core"
)

type mockNotifier struct {
	name       string
	sendCalled int
	batchCalls int
	shouldFail bool
}

func (m *mockNotifier) Name() string { return m.name }

func (m *mockNotifier) Init(cfg Config) error { return nil }

func (m *mockNotifier) Send(alert core.Alert) error {
	m.sendCalled++
	if m.shouldFail {
		return errors.New("send failed")
	}
	return nil
}

func (m *mockNotifier) SendBatch(alerts []core.Alert) error {
	m.batchCalls++
	if m.shouldFail {
		return errors.New("batch send failed")
	}
	return nil
}

func TestRegistry_Register(t *testing.T) {
	r := NewRegistry()

	mock := &mockNotifier{name: "test"}
	err := r.Register(mock)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	// Duplicate registration should fail
	err = r.Register(mock)
	if err == nil {
		t.Error("expected error for duplicate registration")
	}
}

func TestRegistry_Get(t *testing.T) {
	r := NewRegistry()

	mock := &mockNotifier{name: "test"}
	r.Register(mock)

	n, err := r.Get("test")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Name() != "test" {
		t.Errorf("expected 'test', got '%s'", n.Name())
	}

	// Non-existent notifier
	_, err = r.Get("nonexistent")
	if err == nil {
		t.Error("expected error for non-existent notifier")
	}
}

func TestRegistry_GetAll(t *testing.T) {
	r := NewRegistry()

	r.Register(&mockNotifier{name: "webhook"})
	r.Register(&mockNotifier{name: "email"})

	all := r.GetAll()
	if len(all) != 2 {
		t.Fatalf("expected 2 notifiers, got %d", len(all))
	}
	if all[0].Name() != "email" {
		t.Errorf("expected notifiers ordered by name, got %s first", all[0].Name())
	}
	if got := r.Names(); len(got) != 2 || got[1] != "webhook" {
		t.Errorf("unexpected names %v", got)
	}
}

func TestRegistry_NotifyAll(t *testing.T) {
	r := NewRegistry()

	mock1 := &mockNotifier{name: "n1"}
	mock2 := &mockNotifier{name: "n2"}
	r.Register(mock1)
	r.Register(mock2)

	alerts := []core.Alert{
		{Pair: "usdjpy", Strategy: "classic", Kind: core.AlertWinStreak},
		{Pair: "usdjpy", Strategy: "anomaly", Kind: core.AlertLossStreak},
	}
	if err := r.NotifyAll(alerts); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if mock1.batchCalls != 1 || mock2.batchCalls != 1 {
		t.Errorf("expected one batch each, got %d and %d", mock1.batchCalls, mock2.batchCalls)
	}
}

func TestRegistry_NotifyAll_WithFailure(t *testing.T) {
	r := NewRegistry()

	mock1 := &mockNotifier{name: "n1", shouldFail: true}
	mock2 := &mockNotifier{name: "n2"}
	r.Register(mock1)
	r.Register(mock2)

	err := r.NotifyAll([]core.Alert{{Pair: "usdjpy", Strategy: "classic", Kind: core.AlertWinStreak}})

	if !errors.Is(err, core.ErrNotifierFailed) {
		t.Errorf("expected ErrNotifierFailed, got %v", err)
	}
	if mock2.batchCalls != 1 {
		t.Error("expected n2 to be tried after n1 failed")
	}
}

func TestRegistry_NotifyAll_Named(t *testing.T) {
	r := NewRegistry()

	mock1 := &mockNotifier{name: "n1"}
	mock2 := &mockNotifier{name: "n2"}
	r.Register(mock1)
	r.Register(mock2)

	if err := r.NotifyAll(nil, "n2"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mock1.batchCalls != 0 || mock2.batchCalls != 1 {
		t.Errorf("expected only n2 to be notified, got %d and %d", mock1.batchCalls, mock2.batchCalls)
	}

	if err := r.NotifyAll(nil, "pager"); !errors.Is(err, core.ErrConfigMissing) {
		t.Errorf("expected ErrConfigMissing, got %v", err)
	}
}

func TestParams(t *testing.T) {
	params := map[string]any{
		"host": "smtp.example.com",
		"port": 587.0,
		"to":   []any{"a@example.com", "b@example.com"},
		"cc":   "c@example.com",
	}

	if got := StringParam(params, "host", ""); got != "smtp.example.com" {
		t.Errorf("StringParam = %q", got)
	}
	if got := StringParam(params, "missing", "def"); got != "def" {
		t.Errorf("StringParam default = %q", got)
	}
	if got := IntParam(params, "port", 25); got != 587 {
		t.Errorf("IntParam = %d", got)
	}
	if got := IntParam(params, "missing", 25); got != 25 {
		t.Errorf("IntParam default = %d", got)
	}
	if got := StringsParam(params, "to"); len(got) != 2 || got[1] != "b@example.com" {
		t.Errorf("StringsParam = %v", got)
	}
	if got := StringsParam(params, "cc"); len(got) != 1 {
		t.Errorf("StringsParam single = %v", got)
	}
}
