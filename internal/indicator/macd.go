package indicator

import (
	"math"

	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// MACD computes the moving average convergence divergence line, its signal
// line and the histogram. Entries are NaN until both EMAs (and then the
// signal EMA) have warmed up.
func MACD(values Series, fastPeriod, slowPeriod, signalPeriod int) (line, signal, histogram Series, err error) {
	if fastPeriod <= 0 || slowPeriod <= 0 || signalPeriod <= 0 {
		return nil, nil, nil, errors.Newf(errors.ErrCodeInvalidPeriod,
			"macd periods must be positive, got fast=%d slow=%d signal=%d", fastPeriod, slowPeriod, signalPeriod)
	}

	if fastPeriod >= slowPeriod {
		return nil, nil, nil, errors.Newf(errors.ErrCodeInvalidParameter,
			"macd fast period (%d) must be shorter than slow period (%d)", fastPeriod, slowPeriod)
	}

	fast, err := EMA(values, fastPeriod)
	if err != nil {
		return nil, nil, nil, err
	}

	slow, err := EMA(values, slowPeriod)
	if err != nil {
		return nil, nil, nil, err
	}

	line = NaNSeries(len(values))
	for i := range values {
		line[i] = fast[i] - slow[i]
	}

	signal, err = emaOverValid(line, signalPeriod)
	if err != nil {
		return nil, nil, nil, err
	}

	histogram = NaNSeries(len(values))

	for i := range values {
		if !math.IsNaN(line[i]) && !math.IsNaN(signal[i]) {
			histogram[i] = line[i] - signal[i]
		}
	}

	return line, signal, histogram, nil
}

type macdIndicator struct {
	fastPeriod   int
	slowPeriod   int
	signalPeriod int
}

// NewMACD creates a MACD indicator with the conventional 12/26/9 configuration.
func NewMACD() Indicator {
	return &macdIndicator{
		fastPeriod:   12,
		slowPeriod:   26,
		signalPeriod: 9,
	}
}

func (m *macdIndicator) Name() types.IndicatorType {
	return types.IndicatorTypeMACD
}

// Config configures the MACD indicator. Expected parameters: fastPeriod,
// slowPeriod, signalPeriod (all int).
func (m *macdIndicator) Config(params ...any) error {
	if len(params) != 3 {
		return errors.New(errors.ErrCodeInvalidParameter, "Config expects 3 parameters: fastPeriod, slowPeriod, signalPeriod (int)")
	}

	periods := make([]int, 3)

	for i, p := range params {
		value, ok := p.(int)
		if !ok {
			return errors.New(errors.ErrCodeInvalidParameter, "macd periods must be int")
		}

		if value <= 0 {
			return errors.Newf(errors.ErrCodeInvalidPeriod, "macd period must be positive, got %d", value)
		}

		periods[i] = value
	}

	m.fastPeriod, m.slowPeriod, m.signalPeriod = periods[0], periods[1], periods[2]

	return nil
}

func (m *macdIndicator) Compute(prices types.PriceSeries) (map[string]Series, error) {
	line, signal, histogram, err := MACD(prices.Closes(), m.fastPeriod, m.slowPeriod, m.signalPeriod)
	if err != nil {
		return nil, err
	}

	return map[string]Series{
		"macd":      line,
		"signal":    signal,
		"histogram": histogram,
	}, nil
}
