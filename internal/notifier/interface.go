package notifier

import (
	"github.com/newthinker/pipboard/internal/core"
)

// Config holds notifier configuration
type Config struct {
	Type   string         `mapstructure:"type"`
	Params map[string]any `mapstructure:"params"`
}

// Notifier defines the interface for alert notification
type Notifier interface {
	// Name returns the unique identifier for this notifier
	Name() string

	// Init initializes the notifier with configuration
	Init(cfg Config) error

	// Send sends a single alert
	Send(alert core.Alert) error

	// SendBatch sends all alerts of one build in a single message
	SendBatch(alerts []core.Alert) error
}

// StringParam reads a string parameter, returning def when absent.
func StringParam(params map[string]any, key, def string) string {
	if v, ok := params[key].(string); ok && v != "" {
		return v
	}
	return def
}

// StringsParam reads a list of strings. Config decoders produce []any, so
// both forms are accepted, as is a single string.
func StringsParam(params map[string]any, key string) []string {
	switch v := params[key].(type) {
	case []string:
		return v
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			}
		}
		return out
	case string:
		if v != "" {
			return []string{v}
		}
	}
	return nil
}

// IntParam reads an integer parameter from int, int64 or float64 values.
func IntParam(params map[string]any, key string, def int) int {
	switch v := params[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	}
	return def
}
