package indicator

import (
	"math"

	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// TrueRange returns the true range column of the series. The first entry
// falls back to high-low since there is no previous close.
func TrueRange(prices types.PriceSeries) Series {
	tr := make(Series, len(prices))

	for i, bar := range prices {
		if i == 0 {
			tr[i] = bar.High - bar.Low

			continue
		}

		prevClose := prices[i-1].Close
		tr[i] = math.Max(
			bar.High-bar.Low,
			math.Max(
				math.Abs(bar.High-prevClose),
				math.Abs(bar.Low-prevClose),
			),
		)
	}

	return tr
}

// ATR computes the average true range with Wilder smoothing. The first
// period-1 entries are NaN.
func ATR(prices types.PriceSeries, period int) (Series, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "atr period must be positive, got %d", period)
	}

	out := NaNSeries(len(prices))
	if len(prices) < period {
		return out, nil
	}

	tr := TrueRange(prices)

	var seed float64
	for i := 0; i < period; i++ {
		seed += tr[i]
	}

	out[period-1] = seed / float64(period)

	for i := period; i < len(prices); i++ {
		out[i] = (out[i-1]*float64(period-1) + tr[i]) / float64(period)
	}

	return out, nil
}

type atrIndicator struct {
	period int
}

// NewATR creates an ATR indicator with the default 14-bar period.
func NewATR() Indicator {
	return &atrIndicator{period: 14}
}

func (a *atrIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeATR
}

func (a *atrIndicator) Config(params ...any) error {
	period, err := singleIntParam(params, "period")
	if err != nil {
		return err
	}

	a.period = period

	return nil
}

func (a *atrIndicator) Compute(prices types.PriceSeries) (map[string]Series, error) {
	out, err := ATR(prices, a.period)
	if err != nil {
		return nil, err
	}

	return map[string]Series{string(a.Name()): out}, nil
}
