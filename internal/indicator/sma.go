package indicator

import (
	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// SMA computes the simple moving average of values over the given period.
// The first period-1 entries are NaN.
func SMA(values Series, period int) (Series, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "sma period must be positive, got %d", period)
	}

	out := NaNSeries(len(values))

	var sum float64

	for i, v := range values {
		sum += v
		if i >= period {
			sum -= values[i-period]
		}

		if i >= period-1 {
			out[i] = sum / float64(period)
		}
	}

	return out, nil
}

type smaIndicator struct {
	period int
}

// NewSMA creates a simple moving average indicator with the default period.
func NewSMA() Indicator {
	return &smaIndicator{period: 20}
}

func (s *smaIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeSMA
}

func (s *smaIndicator) Config(params ...any) error {
	period, err := singleIntParam(params, "period")
	if err != nil {
		return err
	}

	s.period = period

	return nil
}

func (s *smaIndicator) Compute(prices types.PriceSeries) (map[string]Series, error) {
	out, err := SMA(prices.Closes(), s.period)
	if err != nil {
		return nil, err
	}

	return map[string]Series{string(s.Name()): out}, nil
}

// singleIntParam extracts the single positive-int configuration parameter
// shared by the window-based indicators.
func singleIntParam(params []any, name string) (int, error) {
	if len(params) != 1 {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "Config expects 1 parameter: %s (int)", name)
	}

	value, ok := params[0].(int)
	if !ok {
		return 0, errors.Newf(errors.ErrCodeInvalidParameter, "invalid type for %s parameter, expected int", name)
	}

	if value <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidPeriod, "%s must be a positive integer, got %d", name, value)
	}

	return value, nil
}
