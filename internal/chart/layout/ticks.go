// Package layout computes value axis ticks and the pixel width an axis needs
// for its tick labels.
package layout

import "math"

// DefaultMaxTicks is the tick budget of a value axis at the dashboard chart height
const DefaultMaxTicks = 11

// Ticks returns "nice" evenly spaced tick values covering [min, max], in the
// way browser charting libraries lay out a linear axis. At most about
// maxTicks values are returned.
func Ticks(min, max float64, maxTicks int) []float64 {
	if maxTicks < 2 {
		maxTicks = 2
	}
	if math.IsNaN(min) || math.IsNaN(max) || math.IsInf(min, 0) || math.IsInf(max, 0) {
		return nil
	}
	if min > max {
		min, max = max, min
	}
	if min == max {
		min--
		max++
	}

	spacing := niceNum((max-min)/float64(maxTicks-1), true)
	if spacing == 0 {
		return []float64{min, max}
	}

	const eps = 1e-9
	lo := math.Floor(min/spacing + eps)
	hi := math.Ceil(max/spacing - eps)

	decimals := 0
	if spacing < 1 {
		decimals = int(math.Ceil(-math.Log10(spacing) - eps))
	}
	p := math.Pow(10, float64(decimals))

	ticks := make([]float64, 0, int(hi-lo)+1)
	for k := lo; k <= hi; k++ {
		ticks = append(ticks, math.Round(k*spacing*p)/p)
	}
	return ticks
}

// BeginAtZero widens [min, max] so that it includes zero.
func BeginAtZero(min, max float64) (float64, float64) {
	if min > 0 {
		min = 0
	}
	if max < 0 {
		max = 0
	}
	return min, max
}

// AxisTicks returns the ticks of a value axis showing every sequence, or
// nil when there are no values. With zero set the range always includes 0.
func AxisTicks(zero bool, values ...[]float64) []float64 {
	lo, hi, ok := Bounds(values...)
	if !ok {
		return nil
	}
	if zero {
		lo, hi = BeginAtZero(lo, hi)
	}
	return Ticks(lo, hi, DefaultMaxTicks)
}

// Bounds returns the smallest and largest value across all sequences.
func Bounds(values ...[]float64) (float64, float64, bool) {
	lo, hi := math.Inf(1), math.Inf(-1)
	for _, seq := range values {
		for _, v := range seq {
			if math.IsNaN(v) {
				continue
			}
			lo = math.Min(lo, v)
			hi = math.Max(hi, v)
		}
	}
	if math.IsInf(lo, 1) {
		return 0, 0, false
	}
	return lo, hi, true
}

// Labels formats every tick with f.
func Labels(ticks []float64, f func(float64) string) []string {
	out := make([]string, len(ticks))
	for i, v := range ticks {
		out[i] = f(v)
	}
	return out
}

func niceNum(x float64, round bool) float64 {
	if x <= 0 {
		return 0
	}
	exp := math.Floor(math.Log10(x))
	f := x / math.Pow(10, exp)

	var nf float64
	if round {
		switch {
		case f < 1.5:
			nf = 1
		case f < 3:
			nf = 2
		case f < 7:
			nf = 5
		default:
			nf = 10
		}
	} else {
		switch {
		case f <= 1:
			nf = 1
		case f <= 2:
			nf = 2
		case f <= 5:
			nf = 5
		default:
			nf = 10
		}
	}
	return nf * math.Pow(10, exp)
}
