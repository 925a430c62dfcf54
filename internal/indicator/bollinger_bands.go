package indicator

import (
	"gonum.org/v1/gonum/stat"

	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// BollingerBands computes the middle (SMA), upper and lower bands with the
// given period and standard-deviation multiple. The first period-1 entries
// are NaN.
func BollingerBands(values Series, period int, stdDevMultiple float64) (middle, upper, lower Series, err error) {
	if period <= 0 {
		return nil, nil, nil, errors.Newf(errors.ErrCodeInvalidPeriod, "bollinger period must be positive, got %d", period)
	}

	if stdDevMultiple <= 0 {
		return nil, nil, nil, errors.Newf(errors.ErrCodeInvalidParameter, "bollinger std-dev multiple must be positive, got %f", stdDevMultiple)
	}

	middle, err = SMA(values, period)
	if err != nil {
		return nil, nil, nil, err
	}

	upper = NaNSeries(len(values))
	lower = NaNSeries(len(values))

	for i := period - 1; i < len(values); i++ {
		window := []float64(values[i-period+1 : i+1])
		stdDev := stat.PopStdDev(window, nil)

		upper[i] = middle[i] + stdDevMultiple*stdDev
		lower[i] = middle[i] - stdDevMultiple*stdDev
	}

	return middle, upper, lower, nil
}

type bollingerIndicator struct {
	period         int
	stdDevMultiple float64
}

// NewBollingerBands creates a Bollinger Bands indicator with the conventional
// 20-bar, 2-sigma configuration.
func NewBollingerBands() Indicator {
	return &bollingerIndicator{
		period:         20,
		stdDevMultiple: 2.0,
	}
}

func (b *bollingerIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeBollingerBands
}

// Config configures the indicator. Expected parameters: period (int),
// stdDevMultiple (float64).
func (b *bollingerIndicator) Config(params ...any) error {
	if len(params) != 2 {
		return errors.New(errors.ErrCodeInvalidParameter, "Config expects 2 parameters: period (int), stdDevMultiple (float64)")
	}

	period, ok := params[0].(int)
	if !ok {
		return errors.New(errors.ErrCodeInvalidParameter, "invalid type for period parameter, expected int")
	}

	if period <= 0 {
		return errors.Newf(errors.ErrCodeInvalidPeriod, "period must be a positive integer, got %d", period)
	}

	multiple, ok := params[1].(float64)
	if !ok {
		return errors.New(errors.ErrCodeInvalidParameter, "invalid type for stdDevMultiple parameter, expected float64")
	}

	if multiple <= 0 {
		return errors.Newf(errors.ErrCodeInvalidParameter, "stdDevMultiple must be positive, got %f", multiple)
	}

	b.period = period
	b.stdDevMultiple = multiple

	return nil
}

func (b *bollingerIndicator) Compute(prices types.PriceSeries) (map[string]Series, error) {
	middle, upper, lower, err := BollingerBands(prices.Closes(), b.period, b.stdDevMultiple)
	if err != nil {
		return nil, err
	}

	return map[string]Series{
		"middle": middle,
		"upper":  upper,
		"lower":  lower,
	}, nil
}
