// Package indicator implements the technical indicators used by the signal
// compositor. Every indicator is a pure function of a price series: the
// output has the same length as the input, with NaN filling the warm-up
// prefix where the indicator has insufficient history.
package indicator

import (
	"math"

	"github.com/coinlab/strategist/internal/types"
)

// Series is one numeric indicator column, aligned index-for-index with the
// price series it was computed from.
type Series []float64

// NaNSeries returns a series of the given length filled with NaN.
func NaNSeries(length int) Series {
	s := make(Series, length)
	for i := range s {
		s[i] = math.NaN()
	}

	return s
}

// Last returns the final value of the series, or NaN for an empty series.
func (s Series) Last() float64 {
	if len(s) == 0 {
		return math.NaN()
	}

	return s[len(s)-1]
}

// Valid reports whether the value at index i is present and finite.
func (s Series) Valid(i int) bool {
	return i >= 0 && i < len(s) && !math.IsNaN(s[i]) && !math.IsInf(s[i], 0)
}

// Indicator is a configurable, registry-managed indicator. Compute returns
// one or more named output columns; single-output indicators use their own
// name as the key.
type Indicator interface {
	Name() types.IndicatorType
	Config(params ...any) error
	Compute(prices types.PriceSeries) (map[string]Series, error)
}
