package types

import (
	"math"
	"time"

	"github.com/coinlab/strategist/pkg/errors"
)

// Bar is a single OHLC candle.
type Bar struct {
	Time   time.Time `yaml:"time" json:"time"`
	Open   float64   `yaml:"open" json:"open"`
	High   float64   `yaml:"high" json:"high"`
	Low    float64   `yaml:"low" json:"low"`
	Close  float64   `yaml:"close" json:"close"`
	Volume float64   `yaml:"volume" json:"volume"`
}

// PriceSeries is an ordered, time-indexed sequence of bars.
type PriceSeries []Bar

// Closes returns the close column of the series.
func (p PriceSeries) Closes() []float64 {
	closes := make([]float64, len(p))
	for i, bar := range p {
		closes[i] = bar.Close
	}

	return closes
}

// Validate checks the structural invariants of the series: timestamps
// strictly increasing, all OHLC values finite. Gaps between bars are
// tolerated.
func (p PriceSeries) Validate() error {
	for i, bar := range p {
		for _, v := range []float64{bar.Open, bar.High, bar.Low, bar.Close} {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return errors.Newf(errors.ErrCodeNonFiniteValue, "non-finite price at bar %d", i)
			}
		}

		if i > 0 && !p[i-1].Time.Before(bar.Time) {
			return errors.Newf(errors.ErrCodeInvalidInput, "timestamps not strictly increasing at bar %d", i)
		}
	}

	return nil
}

// IndicatorType identifies a technical indicator.
type IndicatorType string

const (
	IndicatorTypeSMA            IndicatorType = "sma"
	IndicatorTypeEMA            IndicatorType = "ema"
	IndicatorTypeRSI            IndicatorType = "rsi"
	IndicatorTypeMACD           IndicatorType = "macd"
	IndicatorTypeBollingerBands IndicatorType = "bollinger_bands"
	IndicatorTypeATR            IndicatorType = "atr"
	IndicatorTypeADX            IndicatorType = "adx"
)
