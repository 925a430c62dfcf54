// Package backtest implements the backtesting simulation engine: a
// deterministic bar-by-bar replay of a price series against precomposed
// entry/exit signals, managing at most one open position at a time.
package backtest

import (
	"fmt"
	"math"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/coinlab/strategist/internal/indicator"
	"github.com/coinlab/strategist/internal/logger"
	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// ProgressFunc is invoked once per processed bar.
type ProgressFunc func(current, total int)

// Engine replays one price series against one signal set. It holds no state
// between runs, so a single Engine value may be shared by concurrent workers
// as long as each worker passes its own inputs.
type Engine struct {
	log *logger.Logger
}

// NewEngine creates a backtest engine with the given logger.
func NewEngine(log *logger.Logger) *Engine {
	return &Engine{log: log}
}

// Run replays the series and returns the aggregated result. Identical inputs
// always produce an identical result: there is no randomness, no clock, and
// bar processing is strictly sequential (each bar's trailing-stop ratchet
// depends on the previous bar's state).
func (e *Engine) Run(
	prices types.PriceSeries,
	signals types.SignalSet,
	risk types.RiskParameters,
	atrSeries indicator.Series,
) (types.BacktestResult, error) {
	return e.RunWithProgress(prices, signals, risk, atrSeries, optional.None[ProgressFunc]())
}

// RunWithProgress is Run with an optional per-bar progress callback.
func (e *Engine) RunWithProgress(
	prices types.PriceSeries,
	signals types.SignalSet,
	risk types.RiskParameters,
	atrSeries indicator.Series,
	onBar optional.Option[ProgressFunc],
) (types.BacktestResult, error) {
	if err := validateInputs(prices, signals, risk, atrSeries); err != nil {
		return types.BacktestResult{}, err
	}

	run := &runState{
		capital: risk.InitialCapital,
		risk:    risk,
	}

	lastIndex := len(prices) - 1

	for i, bar := range prices {
		switch {
		case run.position == nil:
			// A position opened on the final bar could never outlive it, so
			// entries there are skipped rather than opened and force-closed
			// in the same breath.
			if i == lastIndex {
				break
			}

			// LONG takes priority when both entries fire on the same bar.
			if signals.LongEntry[i] {
				e.tryOpen(run, types.SideLong, i, bar, atrSeries[i])
			} else if signals.ShortEntry[i] {
				e.tryOpen(run, types.SideShort, i, bar, atrSeries[i])
			}

		default:
			e.updateTrailingStop(run, bar, atrSeries[i])

			exitReason, hit := exitCondition(run.position, signals, i, bar)
			if !hit && i == lastIndex {
				exitReason = types.ExitReasonEndOfData
				hit = true
			}

			if hit {
				e.closePosition(run, i, bar, exitReason)
			}
		}

		if onBar.IsSome() {
			onBar.Unwrap()(i+1, len(prices))
		}
	}

	return aggregate(risk.InitialCapital, run.trades), nil
}

// runState is the mutable state of one replay.
type runState struct {
	capital  float64
	risk     types.RiskParameters
	position *types.Position
	trades   []types.TradeRecord
}

func validateInputs(
	prices types.PriceSeries,
	signals types.SignalSet,
	risk types.RiskParameters,
	atrSeries indicator.Series,
) error {
	if len(prices) < 2 {
		return errors.Newf(errors.ErrCodeInvalidInput, "price series must have at least 2 bars, got %d", len(prices))
	}

	if err := prices.Validate(); err != nil {
		return err
	}

	if err := signals.Validate(len(prices)); err != nil {
		return err
	}

	if len(atrSeries) != len(prices) {
		return errors.Newf(errors.ErrCodeLengthMismatch, "atr series length %d does not match price series length %d", len(atrSeries), len(prices))
	}

	if err := risk.Validate(); err != nil {
		return err
	}

	return nil
}

// tryOpen attempts the FLAT -> LONG/SHORT transition. Degenerate trades
// (non-positive or NaN risk distance, e.g. a zero ATR on a flat bar) are
// skipped and the engine stays FLAT for this bar.
func (e *Engine) tryOpen(run *runState, side types.Side, barIndex int, bar types.Bar, atr float64) {
	entryPrice := EntryPrice(side, bar.Close, run.risk)
	stopPrice := InitialStop(side, entryPrice, atr, run.risk)
	riskDistance := RiskDistance(side, entryPrice, stopPrice)

	if math.IsNaN(riskDistance) || riskDistance <= 0 {
		e.log.Debug("skipping entry with degenerate risk distance",
			zap.Int("bar", barIndex),
			zap.String("side", string(side)),
			zap.Float64("risk_distance", riskDistance),
		)

		return
	}

	sizeUSD := run.capital * run.risk.PositionSizeFraction
	if sizeUSD <= 0 {
		e.log.Debug("skipping entry with no capital available",
			zap.Int("bar", barIndex),
			zap.Float64("capital", run.capital),
		)

		return
	}

	run.capital -= sizeUSD
	run.position = &types.Position{
		Side:            side,
		EntryPrice:      entryPrice,
		EntryBarIndex:   barIndex,
		SizeUSD:         sizeUSD,
		SizeUnits:       sizeUSD / entryPrice,
		StopLossPrice:   stopPrice,
		TakeProfitPrice: TakeProfitPrice(side, entryPrice, riskDistance, run.risk),
		HighestPriceSeen: bar.Close,
		LowestPriceSeen:  bar.Close,
	}

	e.log.Debug("opened position",
		zap.Int("bar", barIndex),
		zap.String("side", string(side)),
		zap.Float64("entry_price", entryPrice),
		zap.Float64("stop_loss", stopPrice),
		zap.Float64("take_profit", run.position.TakeProfitPrice),
		zap.Float64("size_usd", sizeUSD),
	)
}

// updateTrailingStop ratchets the ATR trailing stop. The stop only ever
// tightens: up for a LONG, down for a SHORT. The fixed-percentage stop model
// does not trail. A NaN ATR skips the ratchet for this bar.
func (e *Engine) updateTrailingStop(run *runState, bar types.Bar, atr float64) {
	position := run.position

	if position.Side == types.SideLong {
		position.HighestPriceSeen = math.Max(position.HighestPriceSeen, bar.Close)
	} else {
		position.LowestPriceSeen = math.Min(position.LowestPriceSeen, bar.Close)
	}

	if run.risk.StopModel != types.StopModelATR || math.IsNaN(atr) {
		return
	}

	if position.Side == types.SideLong {
		candidate := position.HighestPriceSeen - atr*run.risk.ATRMultiple
		position.StopLossPrice = math.Max(position.StopLossPrice, candidate)
	} else {
		candidate := position.LowestPriceSeen + atr*run.risk.ATRMultiple
		position.StopLossPrice = math.Min(position.StopLossPrice, candidate)
	}
}

// exitCondition evaluates the exit checks in their fixed precedence order:
// stop-loss first (capital preservation wins on ambiguous bars), then
// take-profit, then the strategy exit signal.
func exitCondition(position *types.Position, signals types.SignalSet, barIndex int, bar types.Bar) (types.ExitReason, bool) {
	if position.Side == types.SideLong {
		switch {
		case bar.Close <= position.StopLossPrice:
			return types.ExitReasonStopLoss, true
		case bar.Close >= position.TakeProfitPrice:
			return types.ExitReasonTakeProfit, true
		case signals.LongExit[barIndex]:
			return types.ExitReasonSignal, true
		}

		return "", false
	}

	switch {
	case bar.Close >= position.StopLossPrice:
		return types.ExitReasonStopLoss, true
	case bar.Close <= position.TakeProfitPrice:
		return types.ExitReasonTakeProfit, true
	case signals.ShortExit[barIndex]:
		return types.ExitReasonSignal, true
	}

	return "", false
}

// closePosition performs the LONG/SHORT -> FLAT transition, converting the
// open position into an immutable trade record.
func (e *Engine) closePosition(run *runState, barIndex int, bar types.Bar, reason types.ExitReason) {
	position := run.position
	exitPrice := ExitPrice(position.Side, bar.Close, run.risk)
	pnl := PnL(position.Side, position.EntryPrice, exitPrice, position.SizeUnits)

	run.capital += position.SizeUSD + pnl

	trade := types.TradeRecord{
		// Deterministic IDs: the run must be byte-identical across calls
		// with identical inputs, so no UUIDs here.
		ID:            fmt.Sprintf("trade-%04d", len(run.trades)+1),
		Side:          position.Side,
		EntryPrice:    position.EntryPrice,
		ExitPrice:     exitPrice,
		EntryBarIndex: position.EntryBarIndex,
		ExitBarIndex:  barIndex,
		SizeUSD:       position.SizeUSD,
		PnLUSD:        pnl,
		Return:        pnl / position.SizeUSD,
		ExitReason:    reason,
	}

	run.trades = append(run.trades, trade)
	run.position = nil

	e.log.Debug("closed position",
		zap.Int("bar", barIndex),
		zap.String("side", string(trade.Side)),
		zap.String("exit_reason", string(reason)),
		zap.Float64("exit_price", exitPrice),
		zap.Float64("pnl_usd", pnl),
	)
}
