package signal

import (
	"github.com/coinlab/strategist/internal/indicator"
	"github.com/coinlab/strategist/pkg/errors"
)

// Primitive identifies one predicate in the fixed vocabulary the expression
// trees are built from. Every primitive evaluates to a boolean series aligned
// with the price series; comparisons involving NaN indicator values (warm-up
// bars) evaluate false, so strategies can safely reference an indicator
// before its history has accumulated.
type Primitive string

const (
	PrimRSIOversold   Primitive = "rsi_oversold"
	PrimRSIOverbought Primitive = "rsi_overbought"

	PrimSMAFastAboveSlow Primitive = "sma_fast_above_slow"
	PrimSMAFastBelowSlow Primitive = "sma_fast_below_slow"
	PrimSMACrossUp       Primitive = "sma_cross_up"
	PrimSMACrossDown     Primitive = "sma_cross_down"

	PrimMACDCrossUp       Primitive = "macd_cross_up"
	PrimMACDCrossDown     Primitive = "macd_cross_down"
	PrimMACDHistPositive  Primitive = "macd_hist_positive"
	PrimMACDHistNegative  Primitive = "macd_hist_negative"

	PrimCloseBelowLowerBand Primitive = "close_below_lower_band"
	PrimCloseAboveUpperBand Primitive = "close_above_upper_band"
	PrimCloseAboveBollMid   Primitive = "close_above_boll_middle"
	PrimCloseBelowBollMid   Primitive = "close_below_boll_middle"

	PrimCloseAboveSlowSMA Primitive = "close_above_slow_sma"
	PrimCloseBelowSlowSMA Primitive = "close_below_slow_sma"

	PrimADXTrending Primitive = "adx_trending"
)

// AllPrimitives lists the vocabulary in a stable order.
func AllPrimitives() []Primitive {
	return []Primitive{
		PrimRSIOversold,
		PrimRSIOverbought,
		PrimSMAFastAboveSlow,
		PrimSMAFastBelowSlow,
		PrimSMACrossUp,
		PrimSMACrossDown,
		PrimMACDCrossUp,
		PrimMACDCrossDown,
		PrimMACDHistPositive,
		PrimMACDHistNegative,
		PrimCloseBelowLowerBand,
		PrimCloseAboveUpperBand,
		PrimCloseAboveBollMid,
		PrimCloseBelowBollMid,
		PrimCloseAboveSlowSMA,
		PrimCloseBelowSlowSMA,
		PrimADXTrending,
	}
}

func knownPrimitive(p Primitive) bool {
	for _, known := range AllPrimitives() {
		if p == known {
			return true
		}
	}

	return false
}

// above returns a[i] > b[i], false on NaN.
func above(a, b indicator.Series) []bool {
	out := make([]bool, len(a))
	for i := range a {
		out[i] = a.Valid(i) && b.Valid(i) && a[i] > b[i]
	}

	return out
}

// below returns a[i] < b[i], false on NaN.
func below(a, b indicator.Series) []bool {
	out := make([]bool, len(a))
	for i := range a {
		out[i] = a.Valid(i) && b.Valid(i) && a[i] < b[i]
	}

	return out
}

// crossUp is true on the bar where a moves from at-or-below b to above b.
func crossUp(a, b indicator.Series) []bool {
	out := make([]bool, len(a))
	for i := 1; i < len(a); i++ {
		if a.Valid(i-1) && b.Valid(i-1) && a.Valid(i) && b.Valid(i) {
			out[i] = a[i-1] <= b[i-1] && a[i] > b[i]
		}
	}

	return out
}

// crossDown is true on the bar where a moves from at-or-above b to below b.
func crossDown(a, b indicator.Series) []bool {
	out := make([]bool, len(a))
	for i := 1; i < len(a); i++ {
		if a.Valid(i-1) && b.Valid(i-1) && a.Valid(i) && b.Valid(i) {
			out[i] = a[i-1] >= b[i-1] && a[i] < b[i]
		}
	}

	return out
}

// threshold materializes a constant series for comparisons against levels.
func threshold(length int, value float64) indicator.Series {
	s := make(indicator.Series, length)
	for i := range s {
		s[i] = value
	}

	return s
}

// evaluatePrimitive computes one predicate column from the indicator bundle.
func evaluatePrimitive(p Primitive, bundle indicator.Bundle, params Params) ([]bool, error) {
	n := len(bundle.Closes)

	switch p {
	case PrimRSIOversold:
		return below(bundle.RSI, threshold(n, params.RSIOversold)), nil
	case PrimRSIOverbought:
		return above(bundle.RSI, threshold(n, params.RSIOverbought)), nil
	case PrimSMAFastAboveSlow:
		return above(bundle.SMAFast, bundle.SMASlow), nil
	case PrimSMAFastBelowSlow:
		return below(bundle.SMAFast, bundle.SMASlow), nil
	case PrimSMACrossUp:
		return crossUp(bundle.SMAFast, bundle.SMASlow), nil
	case PrimSMACrossDown:
		return crossDown(bundle.SMAFast, bundle.SMASlow), nil
	case PrimMACDCrossUp:
		return crossUp(bundle.MACDLine, bundle.MACDSignal), nil
	case PrimMACDCrossDown:
		return crossDown(bundle.MACDLine, bundle.MACDSignal), nil
	case PrimMACDHistPositive:
		return above(bundle.MACDHistogram, threshold(n, 0)), nil
	case PrimMACDHistNegative:
		return below(bundle.MACDHistogram, threshold(n, 0)), nil
	case PrimCloseBelowLowerBand:
		return below(bundle.Closes, bundle.BollLower), nil
	case PrimCloseAboveUpperBand:
		return above(bundle.Closes, bundle.BollUpper), nil
	case PrimCloseAboveBollMid:
		return above(bundle.Closes, bundle.BollMiddle), nil
	case PrimCloseBelowBollMid:
		return below(bundle.Closes, bundle.BollMiddle), nil
	case PrimCloseAboveSlowSMA:
		return above(bundle.Closes, bundle.SMASlow), nil
	case PrimCloseBelowSlowSMA:
		return below(bundle.Closes, bundle.SMASlow), nil
	case PrimADXTrending:
		return above(bundle.ADX, threshold(n, params.ADXThreshold)), nil
	default:
		return nil, errors.Newf(errors.ErrCodePrimitiveUnknown, "unknown primitive predicate %q", p)
	}
}
