package indicator

import (
	"math"

	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// ADX computes the average directional index with Wilder smoothing. The
// first valid value appears at index 2*period-1 (one period to seed the
// directional movement averages, another to seed the DX average).
func ADX(prices types.PriceSeries, period int) (Series, error) {
	if period <= 0 {
		return nil, errors.Newf(errors.ErrCodeInvalidPeriod, "adx period must be positive, got %d", period)
	}

	out := NaNSeries(len(prices))
	if len(prices) < 2*period {
		return out, nil
	}

	tr := TrueRange(prices)
	plusDM := make(Series, len(prices))
	minusDM := make(Series, len(prices))

	for i := 1; i < len(prices); i++ {
		upMove := prices[i].High - prices[i-1].High
		downMove := prices[i-1].Low - prices[i].Low

		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}

		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
	}

	// Wilder running sums, seeded over bars 1..period.
	var smTR, smPlusDM, smMinusDM float64
	for i := 1; i <= period; i++ {
		smTR += tr[i]
		smPlusDM += plusDM[i]
		smMinusDM += minusDM[i]
	}

	dx := NaNSeries(len(prices))
	dx[period] = dxValue(smPlusDM, smMinusDM, smTR)

	for i := period + 1; i < len(prices); i++ {
		smTR = smTR - smTR/float64(period) + tr[i]
		smPlusDM = smPlusDM - smPlusDM/float64(period) + plusDM[i]
		smMinusDM = smMinusDM - smMinusDM/float64(period) + minusDM[i]
		dx[i] = dxValue(smPlusDM, smMinusDM, smTR)
	}

	var seed float64
	for i := period; i < 2*period; i++ {
		seed += dx[i]
	}

	out[2*period-1] = seed / float64(period)

	for i := 2 * period; i < len(prices); i++ {
		out[i] = (out[i-1]*float64(period-1) + dx[i]) / float64(period)
	}

	return out, nil
}

// dxValue computes the directional index from the smoothed sums. Degenerate
// windows (zero true range, no directional movement) yield 0 rather than NaN
// so flat markets read as trendless instead of poisoning the Wilder average.
func dxValue(smPlusDM, smMinusDM, smTR float64) float64 {
	if smTR == 0 {
		return 0
	}

	plusDI := 100 * smPlusDM / smTR
	minusDI := 100 * smMinusDM / smTR

	sum := plusDI + minusDI
	if sum == 0 {
		return 0
	}

	return 100 * math.Abs(plusDI-minusDI) / sum
}

type adxIndicator struct {
	period int
}

// NewADX creates an ADX indicator with the default 14-bar period.
func NewADX() Indicator {
	return &adxIndicator{period: 14}
}

func (a *adxIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeADX
}

func (a *adxIndicator) Config(params ...any) error {
	period, err := singleIntParam(params, "period")
	if err != nil {
		return err
	}

	a.period = period

	return nil
}

func (a *adxIndicator) Compute(prices types.PriceSeries) (map[string]Series, error) {
	out, err := ADX(prices, a.period)
	if err != nil {
		return nil, err
	}

	return map[string]Series{string(a.Name()): out}, nil
}
