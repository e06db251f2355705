package axissync

// StaticChart is a chart laid out ahead of time, e.g. while a page is being
// generated, whose axis width is then shipped with the page.
type StaticChart struct {
	id      string
	width   float64
	redraws int
}

// NewStaticChart creates a chart with the axis width computed by its fit.
func NewStaticChart(id string, fitted float64) *StaticChart {
	return &StaticChart{id: id, width: fitted}
}

func (s *StaticChart) ID() string             { return s.id }
func (s *StaticChart) AxisWidth() float64     { return s.width }
func (s *StaticChart) SetAxisWidth(w float64) { s.width = w }
func (s *StaticChart) Redraw(animate bool)    { s.redraws++ }
func (s *StaticChart) Redraws() int           { return s.redraws }

// Align runs a full session over charts in document order (fit, draw and
// init for each) and returns the final axis width per chart id.
func Align(charts ...*StaticChart) map[string]float64 {
	c := New(len(charts))
	for _, ch := range charts {
		c.AfterFit(ch)
		c.AfterDraw(ch)
		c.AfterInit(ch)
	}

	out := make(map[string]float64, len(charts))
	for _, ch := range charts {
		out[ch.ID()] = ch.AxisWidth()
	}
	return out
}
