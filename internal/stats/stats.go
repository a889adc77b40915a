// Package stats implements the numeric aggregation used by the summary
// engine: mean, standard deviation, sorted quantiles, and Tukey IQR-fence
// outlier removal.
package stats

import (
	"math"
	"sort"
)

// Mean returns the arithmetic mean of xs, or NaN for an empty input.
func Mean(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

// Stdev returns the population standard deviation of xs.
func Stdev(xs []float64) float64 {
	if len(xs) == 0 {
		return math.NaN()
	}
	mean := Mean(xs)
	var sum float64
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

// Quantile returns the p-quantile (0 <= p <= 1) of an ascending-sorted
// series, using linear interpolation between closest ranks.
func Quantile(sorted []float64, p float64) float64 {
	n := len(sorted)
	if n == 0 {
		return math.NaN()
	}
	pos := p * float64(n-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[hi]*frac
}

// OutlierMode selects which tail of a sample series Tukey filtering removes.
type OutlierMode string

const (
	// OutlierNone disables filtering.
	OutlierNone OutlierMode = ""
	// OutlierAll removes both tails outside the IQR fences.
	OutlierAll OutlierMode = "all"
	// OutlierWorst removes the statistically bad tail: high values when
	// lower is better, low values otherwise.
	OutlierWorst OutlierMode = "worst"
	// OutlierBest removes the statistically good tail.
	OutlierBest OutlierMode = "best"
)

// Valid reports whether m is a recognized mode.
func (m OutlierMode) Valid() bool {
	switch m {
	case OutlierNone, OutlierAll, OutlierWorst, OutlierBest:
		return true
	}
	return false
}

// TukeyFilter removes outliers from xs using the 1.5×IQR fence rule,
// preserving the order of the surviving samples.
func TukeyFilter(xs []float64, mode OutlierMode, lowerIsBetter bool) []float64 {
	if mode == OutlierNone || len(xs) == 0 {
		return xs
	}

	sorted := append([]float64(nil), xs...)
	sort.Float64s(sorted)
	q1 := Quantile(sorted, 0.25)
	q3 := Quantile(sorted, 0.75)
	fence := 1.5 * (q3 - q1)
	lo, hi := q1-fence, q3+fence

	dropLow, dropHigh := false, false
	switch mode {
	case OutlierAll:
		dropLow, dropHigh = true, true
	case OutlierWorst:
		// The bad tail is where values get worse.
		dropLow, dropHigh = !lowerIsBetter, lowerIsBetter
	case OutlierBest:
		dropLow, dropHigh = lowerIsBetter, !lowerIsBetter
	}

	out := make([]float64, 0, len(xs))
	for _, x := range xs {
		if dropLow && x < lo {
			continue
		}
		if dropHigh && x > hi {
			continue
		}
		out = append(out, x)
	}
	return out
}
