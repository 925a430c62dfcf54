package backtest

import (
	"math"

	"github.com/coinlab/strategist/internal/types"
)

// Execution-cost model: spread and slippage are applied multiplicatively to
// the quoted close. A LONG pays the ask on entry and receives the bid on
// exit; a SHORT is the mirror image. The paper trader applies the same
// functions so simulated fills match backtested fills.

func askPrice(close float64, risk types.RiskParameters) float64 {
	return close * (1 + risk.SpreadPct) * (1 + risk.SlippagePct)
}

func bidPrice(close float64, risk types.RiskParameters) float64 {
	return close * (1 - risk.SpreadPct) * (1 - risk.SlippagePct)
}

// EntryPrice returns the fill price for opening a position at the given close.
func EntryPrice(side types.Side, close float64, risk types.RiskParameters) float64 {
	if side == types.SideLong {
		return askPrice(close, risk)
	}

	return bidPrice(close, risk)
}

// ExitPrice returns the fill price for closing a position at the given close.
func ExitPrice(side types.Side, close float64, risk types.RiskParameters) float64 {
	if side == types.SideLong {
		return bidPrice(close, risk)
	}

	return askPrice(close, risk)
}

// InitialStop places the stop-loss price at entry time under the selected
// stop model. Under the ATR model a NaN ATR (indicator warm-up) yields NaN,
// which the caller rejects via the degenerate-trade guard.
func InitialStop(side types.Side, entryPrice, atr float64, risk types.RiskParameters) float64 {
	var distance float64

	switch risk.StopModel {
	case types.StopModelFixed:
		distance = entryPrice * risk.FixedStopLossPct
	case types.StopModelATR:
		distance = atr * risk.ATRMultiple
	default:
		return math.NaN()
	}

	if side == types.SideLong {
		return entryPrice - distance
	}

	return entryPrice + distance
}

// RiskDistance is the per-unit amount at risk between entry and stop.
// Non-positive or NaN distances mark a degenerate trade that must not be
// entered.
func RiskDistance(side types.Side, entryPrice, stopPrice float64) float64 {
	if side == types.SideLong {
		return entryPrice - stopPrice
	}

	return stopPrice - entryPrice
}

// TakeProfitPrice places the take-profit target as a multiple of the initial
// risk distance.
func TakeProfitPrice(side types.Side, entryPrice, riskDistance float64, risk types.RiskParameters) float64 {
	if side == types.SideLong {
		return entryPrice + riskDistance*risk.TakeProfitMultiple
	}

	return entryPrice - riskDistance*risk.TakeProfitMultiple
}

// PnL computes the realized profit of a closed position.
func PnL(side types.Side, entryPrice, exitPrice, sizeUnits float64) float64 {
	if side == types.SideLong {
		return (exitPrice - entryPrice) * sizeUnits
	}

	return (entryPrice - exitPrice) * sizeUnits
}
