// Package axissync aligns the value axes of charts stacked on one page so
// that their plot areas start at the same horizontal offset.
//
// A Coordinator is shared by the charts of one page view. Each chart reports
// its layout lifecycle (axis fit, draw, init complete) and the coordinator
// widens narrower axes to the widest one seen in the session.
package axissync

import "sync"

// Chart is a rendered chart whose value axis width can be forced.
type Chart interface {
	ID() string
	AxisWidth() float64
	SetAxisWidth(w float64)
	// Redraw repaints the chart. A redraw without animation must not
	// recompute layout.
	Redraw(animate bool)
}

// Coordinator tracks the widest value axis of a session and the charts
// registered in it.
type Coordinator struct {
	mu       sync.Mutex
	expected int
	maxWidth float64
	charts   []Chart
	aligned  bool
}

// New creates a coordinator with a session expecting the given number of charts.
func New(expected int) *Coordinator {
	c := &Coordinator{}
	c.NewSession(expected)
	return c
}

// NewSession starts a new synchronization session for one page view,
// discarding the previous maximum width and registered charts.
func (c *Coordinator) NewSession(expected int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if expected < 1 {
		expected = 1
	}
	c.expected = expected
	c.maxWidth = 0
	c.charts = nil
	c.aligned = false
}

// AfterFit records the axis width a chart computed from its tick labels.
func (c *Coordinator) AfterFit(ch Chart) {
	w := ch.AxisWidth()

	c.mu.Lock()
	defer c.mu.Unlock()
	if w > c.maxWidth {
		c.maxWidth = w
	}
}

// AfterDraw widens the chart's axis to the session maximum if it is narrower
// and repaints it without layout.
func (c *Coordinator) AfterDraw(ch Chart) {
	max := c.MaxWidth()
	if ch.AxisWidth() < max {
		ch.SetAxisWidth(max)
		ch.Redraw(false)
	}
}

// AfterInit registers a chart that finished initialization. When the
// expected number of charts is registered every chart is forced to the
// session maximum. Charts registering after that are aligned on arrival.
func (c *Coordinator) AfterInit(ch Chart) {
	c.mu.Lock()
	c.charts = append(c.charts, ch)

	var targets []Chart
	switch {
	case !c.aligned && len(c.charts) == c.expected:
		c.aligned = true
		targets = append(targets, c.charts...)
	case c.aligned:
		targets = []Chart{ch}
	}
	max := c.maxWidth
	c.mu.Unlock()

	for _, t := range targets {
		t.SetAxisWidth(max)
		t.Redraw(false)
	}
}

// MaxWidth returns the widest axis seen in the session.
func (c *Coordinator) MaxWidth() float64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.maxWidth
}

// Registered returns the number of charts registered in the session.
func (c *Coordinator) Registered() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.charts)
}

// Aligned reports whether the session's alignment pass has run.
func (c *Coordinator) Aligned() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.aligned
}
