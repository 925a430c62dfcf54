package indicator

import (
	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// RSI computes the relative strength index with Wilder smoothing. The first
// period entries are NaN (one change is consumed per pair of bars).
func RSI(values Series, period int) (Series, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "rsi period must be positive, got %d", period)
	}

	out := NaNSeries(len(values))
	if len(values) <= period {
		return out, nil
	}

	var avgGain, avgLoss float64

	for i := 1; i <= period; i++ {
		change := values[i] - values[i-1]
		if change > 0 {
			avgGain += change
		} else {
			avgLoss -= change
		}
	}

	avgGain /= float64(period)
	avgLoss /= float64(period)
	out[period] = rsiFromAverages(avgGain, avgLoss)

	for i := period + 1; i < len(values); i++ {
		change := values[i] - values[i-1]

		var gain, loss float64
		if change > 0 {
			gain = change
		} else {
			loss = -change
		}

		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
		out[i] = rsiFromAverages(avgGain, avgLoss)
	}

	return out, nil
}

func rsiFromAverages(avgGain, avgLoss float64) float64 {
	if avgLoss == 0 {
		if avgGain == 0 {
			// Flat prices carry no momentum either way.
			return 50
		}

		return 100
	}

	rs := avgGain / avgLoss

	return 100 - 100/(1+rs)
}

type rsiIndicator struct {
	period int
}

// NewRSI creates an RSI indicator with the default 14-bar period.
func NewRSI() Indicator {
	return &rsiIndicator{period: 14}
}

func (r *rsiIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeRSI
}

func (r *rsiIndicator) Config(params ...any) error {
	period, err := singleIntParam(params, "period")
	if err != nil {
		return err
	}

	r.period = period

	return nil
}

func (r *rsiIndicator) Compute(prices types.PriceSeries) (map[string]Series, error) {
	out, err := RSI(prices.Closes(), r.period)
	if err != nil {
		return nil, err
	}

	return map[string]Series{string(r.Name()): out}, nil
}
