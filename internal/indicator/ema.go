package indicator

import (
	"math"

	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// EMA computes the exponential moving average of values over the given
// period. The average is seeded with the SMA of the first period values, so
// the first period-1 entries are NaN.
func EMA(values Series, period int) (Series, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "ema period must be positive, got %d", period)
	}

	out := NaNSeries(len(values))
	if len(values) < period {
		return out, nil
	}

	var seed float64
	for i := 0; i < period; i++ {
		seed += values[i]
	}

	out[period-1] = seed / float64(period)

	multiplier := 2.0 / (float64(period) + 1.0)
	for i := period; i < len(values); i++ {
		out[i] = values[i]*multiplier + out[i-1]*(1.0-multiplier)
	}

	return out, nil
}

// emaOverValid runs an EMA over the tail of values that starts at the first
// non-NaN index. Used to smooth derived series such as the MACD line.
func emaOverValid(values Series, period int) (Series, error) {
	first := len(values)

	for i, v := range values {
		if !math.IsNaN(v) {
			first = i

			break
		}
	}

	out := NaNSeries(len(values))
	if first == len(values) {
		return out, nil
	}

	tail, err := EMA(values[first:], period)
	if err != nil {
		return nil, err
	}

	copy(out[first:], tail)

	return out, nil
}

type emaIndicator struct {
	period int
}

// NewEMA creates an exponential moving average indicator with the default period.
func NewEMA() Indicator {
	return &emaIndicator{period: 20}
}

func (e *emaIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeEMA
}

func (e *emaIndicator) Config(params ...any) error {
	period, err := singleIntParam(params, "period")
	if err != nil {
		return err
	}

	e.period = period

	return nil
}

func (e *emaIndicator) Compute(prices types.PriceSeries) (map[string]Series, error) {
	out, err := EMA(prices.Closes(), e.period)
	if err != nil {
		return nil, err
	}

	return map[string]Series{string(e.Name()): out}, nil
}
