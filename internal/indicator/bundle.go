package indicator

import (
	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// BundleParams carries the window parameters for every indicator column the
// signal compositor can reference.
type BundleParams struct {
	FastPeriod     int     `yaml:"fast_period" json:"fast_period" validate:"gt=0"`
	SlowPeriod     int     `yaml:"slow_period" json:"slow_period" validate:"gt=0"`
	RSIPeriod      int     `yaml:"rsi_period" json:"rsi_period" validate:"gt=0"`
	MACDFast       int     `yaml:"macd_fast" json:"macd_fast" validate:"gt=0"`
	MACDSlow       int     `yaml:"macd_slow" json:"macd_slow" validate:"gt=0"`
	MACDSignal     int     `yaml:"macd_signal" json:"macd_signal" validate:"gt=0"`
	BollPeriod     int     `yaml:"boll_period" json:"boll_period" validate:"gt=0"`
	BollStdDev     float64 `yaml:"boll_std_dev" json:"boll_std_dev" validate:"gt=0"`
	ATRPeriod      int     `yaml:"atr_period" json:"atr_period" validate:"gt=0"`
	ADXPeriod      int     `yaml:"adx_period" json:"adx_period" validate:"gt=0"`
}

// DefaultBundleParams returns the conventional window configuration.
func DefaultBundleParams() BundleParams {
	return BundleParams{
		FastPeriod: 10,
		SlowPeriod: 30,
		RSIPeriod:  14,
		MACDFast:   12,
		MACDSlow:   26,
		MACDSignal: 9,
		BollPeriod: 20,
		BollStdDev: 2.0,
		ATRPeriod:  14,
		ADXPeriod:  14,
	}
}

// Bundle holds every indicator column computed once for a price series. The
// compositor's primitive predicates read from it; the backtest engine reads
// the ATR column for stop placement.
type Bundle struct {
	Closes Series

	SMAFast Series
	SMASlow Series
	EMAFast Series
	EMASlow Series

	RSI Series

	MACDLine      Series
	MACDSignal    Series
	MACDHistogram Series

	BollMiddle Series
	BollUpper  Series
	BollLower  Series

	ATR Series
	ADX Series
}

// ComputeBundle evaluates every indicator over the price series.
func ComputeBundle(prices types.PriceSeries, params BundleParams) (Bundle, error) {
	if len(prices) == 0 {
		return Bundle{}, errors.New(errors.ErrCodeInsufficientData, "cannot compute indicators over an empty series")
	}

	closes := Series(prices.Closes())
	bundle := Bundle{Closes: closes}

	var err error

	if bundle.SMAFast, err = SMA(closes, params.FastPeriod); err != nil {
		return Bundle{}, err
	}

	if bundle.SMASlow, err = SMA(closes, params.SlowPeriod); err != nil {
		return Bundle{}, err
	}

	if bundle.EMAFast, err = EMA(closes, params.FastPeriod); err != nil {
		return Bundle{}, err
	}

	if bundle.EMASlow, err = EMA(closes, params.SlowPeriod); err != nil {
		return Bundle{}, err
	}

	if bundle.RSI, err = RSI(closes, params.RSIPeriod); err != nil {
		return Bundle{}, err
	}

	if bundle.MACDLine, bundle.MACDSignal, bundle.MACDHistogram, err = MACD(closes, params.MACDFast, params.MACDSlow, params.MACDSignal); err != nil {
		return Bundle{}, err
	}

	if bundle.BollMiddle, bundle.BollUpper, bundle.BollLower, err = BollingerBands(closes, params.BollPeriod, params.BollStdDev); err != nil {
		return Bundle{}, err
	}

	if bundle.ATR, err = ATR(prices, params.ATRPeriod); err != nil {
		return Bundle{}, err
	}

	if bundle.ADX, err = ADX(prices, params.ADXPeriod); err != nil {
		return Bundle{}, err
	}

	return bundle, nil
}
