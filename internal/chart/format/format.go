// Package format renders chart tick labels and tooltips as text.
package format

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// PnLTickWidth is the minimum width of a PnL axis tick label
const PnLTickWidth = 7

const (
	// ISODate is the layout of PnL axis labels in page data
	ISODate = "2006-01-02"
	// DisplayDateLayout is how dates appear on the PnL axis (dd-MM-yyyy)
	DisplayDateLayout = "02-01-2006"
	// TimeOfDay is the layout of rate axis labels
	TimeOfDay = "15:04"
)

// FormatPnLTick formats a PnL axis value with one decimal place, a "+" for
// positive values and left space padding up to PnLTickWidth. Longer values
// are returned as is.
func FormatPnLTick(v float64) string {
	if v == 0 {
		v = 0 // -0
	}
	s := strconv.FormatFloat(v, 'f', 1, 64)
	if v > 0 {
		s = "+" + s
	}
	return PadLeft(s, PnLTickWidth)
}

// PadLeft pads s with spaces on the left to width characters.
func PadLeft(s string, width int) string {
	if n := len(s); n < width {
		return strings.Repeat(" ", width-n) + s
	}
	return s
}

// SignedPips formats pips with an explicit sign, e.g. "+1.5" or "-2.0".
func SignedPips(v float64) string {
	if v == 0 {
		v = 0 // -0
	}
	s := strconv.FormatFloat(v, 'f', 1, 64)
	if v >= 0 && !strings.HasPrefix(s, "-") {
		return "+" + s
	}
	return s
}

// FormatPrice formats a rate with a fixed number of decimals.
func FormatPrice(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}

// PriceTooltip is the tooltip line of a rate chart point.
func PriceTooltip(v float64, decimals int) string {
	return "Cena: " + FormatPrice(v, decimals)
}

// PipsTooltip is the tooltip line of a PnL chart point.
func PipsTooltip(series string, v float64) string {
	return fmt.Sprintf("%s: %s pips", series, SignedPips(v))
}

// DisplayDate converts an ISO date label to the dd-MM-yyyy display form.
func DisplayDate(iso string) (string, error) {
	d, err := time.Parse(ISODate, iso)
	if err != nil {
		return "", fmt.Errorf("parsing date %q: %w", iso, err)
	}
	return d.Format(DisplayDateLayout), nil
}
