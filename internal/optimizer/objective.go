package optimizer

import (
	"context"

	"github.com/coinlab/strategist/internal/backtest"
	"github.com/coinlab/strategist/internal/indicator"
	"github.com/coinlab/strategist/internal/logger"
	"github.com/coinlab/strategist/internal/signal"
	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// Dimension names the backtest objective understands. A space may use any
// subset; values not in the candidate keep their base configuration.
const (
	DimATRPeriod            = "atr_period"
	DimATRMultiple          = "atr_multiple"
	DimFixedStopLossPct     = "fixed_stop_loss_pct"
	DimTakeProfitMultiple   = "take_profit_multiple"
	DimSpreadPct            = "spread_pct"
	DimSlippagePct          = "slippage_pct"
	DimPositionSizeFraction = "position_size_fraction"

	DimFastPeriod    = "fast_period"
	DimSlowPeriod    = "slow_period"
	DimRSIPeriod     = "rsi_period"
	DimRSIOversold   = "rsi_oversold"
	DimRSIOverbought = "rsi_overbought"
	DimADXPeriod     = "adx_period"
	DimADXThreshold  = "adx_threshold"
	DimBollPeriod    = "boll_period"
	DimBollStdDev    = "boll_std_dev"
	DimMACDFast      = "macd_fast"
	DimMACDSlow      = "macd_slow"
	DimMACDSignal    = "macd_signal"
)

// applyCandidate maps candidate values onto the risk and signal parameter
// bundles. Unknown dimension names are an error so a typo in a space fails
// loudly instead of silently searching a constant.
func applyCandidate(candidate Candidate, risk *types.RiskParameters, params *signal.Params) error {
	for name, value := range candidate {
		switch name {
		case DimATRPeriod:
			risk.ATRPeriod = int(value)
			params.Indicators.ATRPeriod = int(value)
		case DimATRMultiple:
			risk.ATRMultiple = value
		case DimFixedStopLossPct:
			risk.FixedStopLossPct = value
		case DimTakeProfitMultiple:
			risk.TakeProfitMultiple = value
		case DimSpreadPct:
			risk.SpreadPct = value
		case DimSlippagePct:
			risk.SlippagePct = value
		case DimPositionSizeFraction:
			risk.PositionSizeFraction = value
		case DimFastPeriod:
			params.Indicators.FastPeriod = int(value)
		case DimSlowPeriod:
			params.Indicators.SlowPeriod = int(value)
		case DimRSIPeriod:
			params.Indicators.RSIPeriod = int(value)
		case DimRSIOversold:
			params.RSIOversold = value
		case DimRSIOverbought:
			params.RSIOverbought = value
		case DimADXPeriod:
			params.Indicators.ADXPeriod = int(value)
		case DimADXThreshold:
			params.ADXThreshold = value
		case DimBollPeriod:
			params.Indicators.BollPeriod = int(value)
		case DimBollStdDev:
			params.Indicators.BollStdDev = value
		case DimMACDFast:
			params.Indicators.MACDFast = int(value)
		case DimMACDSlow:
			params.Indicators.MACDSlow = int(value)
		case DimMACDSignal:
			params.Indicators.MACDSignal = int(value)
		default:
			return errors.Newf(errors.ErrCodeInvalidDimension, "unknown dimension %q", name)
		}
	}

	return nil
}

// NewBacktestObjective builds the standard compose-then-run objective: apply
// the candidate to the base risk and signal parameters, compose the named
// strategy's signals over the price series, replay the series through the
// engine, and let the pool score the result's total profit. Each call is
// independent, so one objective serves every worker.
func NewBacktestObjective(
	prices types.PriceSeries,
	strategyName string,
	baseRisk types.RiskParameters,
	baseParams signal.Params,
) (Objective, error) {
	strategy, err := signal.GetStrategy(strategyName)
	if err != nil {
		return nil, err
	}

	engine := backtest.NewEngine(logger.NewNopLogger())

	return func(_ context.Context, candidate Candidate) (types.BacktestResult, error) {
		risk := baseRisk
		params := baseParams

		if err := applyCandidate(candidate, &risk, &params); err != nil {
			return types.BacktestResult{}, err
		}

		if err := params.Validate(); err != nil {
			return types.BacktestResult{}, err
		}

		bundle, err := indicator.ComputeBundle(prices, params.Indicators)
		if err != nil {
			return types.BacktestResult{}, err
		}

		signals, err := signal.ComposeStrategy(strategy, bundle, params)
		if err != nil {
			return types.BacktestResult{}, err
		}

		return engine.Run(prices, signals, risk, bundle.ATR)
	}, nil
}
