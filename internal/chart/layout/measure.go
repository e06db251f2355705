package layout

import (
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
)

// AxisPadding is the space between the widest tick label and the plot area
const AxisPadding = 10

// Measurer reports the rendered pixel width of a text label
type Measurer interface {
	Width(text string) int
}

// FontMeasurer measures text with a fixed bitmap font face
type FontMeasurer struct {
	face font.Face
}

// NewFontMeasurer returns a measurer backed by the 7x13 basic font.
func NewFontMeasurer() *FontMeasurer {
	return &FontMeasurer{face: basicfont.Face7x13}
}

// Width implements Measurer.
func (m *FontMeasurer) Width(text string) int {
	return font.MeasureString(m.face, text).Ceil()
}

// FitAxis returns the pixel width a value axis needs to show all labels.
func FitAxis(labels []string, m Measurer, padding int) int {
	widest := 0
	for _, l := range labels {
		if w := m.Width(l); w > widest {
			widest = w
		}
	}
	return widest + padding
}
