package notifier

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/newthinker/pipboard/internal/core"
)

// Registry holds the enabled notifiers by name.
type Registry struct {
	mu        sync.RWMutex
	notifiers map[string]Notifier
}

func NewRegistry() *Registry {
	return &Registry{
		notifiers: make(map[string]Notifier),
	}
}

// Register adds n. Names are unique.
func (r *Registry) Register(n Notifier) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := n.Name()
	if _, exists := r.notifiers[name]; exists {
		return core.WrapError(core.ErrConfigInvalid, fmt.Errorf("notifier %s already registered", name))
	}
	r.notifiers[name] = n
	return nil
}

// Get retrieves a notifier by name.
func (r *Registry) Get(name string) (Notifier, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	n, exists := r.notifiers[name]
	if !exists {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("notifier %s not registered", name))
	}
	return n, nil
}

// Names returns the registered names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.notifiers))
	for name := range r.notifiers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GetAll returns every notifier ordered by name.
func (r *Registry) GetAll() []Notifier {
	names := r.Names()

	r.mu.RLock()
	defer r.mu.RUnlock()
	result := make([]Notifier, 0, len(names))
	for _, name := range names {
		if n, ok := r.notifiers[name]; ok {
			result = append(result, n)
		}
	}
	return result
}

// NotifyAll sends alerts as one batch to every notifier, or to the named
// ones only. Every notifier is tried; failures are joined and each wraps
// core.ErrNotifierFailed.
func (r *Registry) NotifyAll(alerts []core.Alert, names ...string) error {
	targets := r.GetAll()
	if len(names) > 0 {
		targets = targets[:0]
		for _, name := range names {
			n, err := r.Get(name)
			if err != nil {
				return err
			}
			targets = append(targets, n)
		}
	}

	var errs []error
	for _, n := range targets {
		if err := n.SendBatch(alerts); err != nil {
			errs = append(errs, core.WrapError(core.ErrNotifierFailed, fmt.Errorf("%s: %w", n.Name(), err)))
		}
	}
	return errors.Join(errs...)
}
