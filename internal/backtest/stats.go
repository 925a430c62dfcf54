package backtest

import (
	"github.com/shopspring/decimal"
	"gonum.org/v1/gonum/stat"

	"github.com/coinlab/strategist/internal/types"
)

// aggregate derives the final result entirely from the trade log plus the
// initial capital. Capital sums go through decimals so the conservation
// invariant (final = initial + sum of trade PnLs) holds exactly.
func aggregate(initialCapital float64, trades []types.TradeRecord) types.BacktestResult {
	result := types.BacktestResult{
		InitialCapital: initialCapital,
		TotalTrades:    len(trades),
		TradeLog:       trades,
	}

	totalPnL := decimal.Zero
	longPnL := decimal.Zero
	shortPnL := decimal.Zero

	for _, trade := range trades {
		pnl := decimal.NewFromFloat(trade.PnLUSD)
		totalPnL = totalPnL.Add(pnl)

		if trade.PnLUSD > 0 {
			result.WinningTrades++
		} else {
			result.LosingTrades++
		}

		if trade.Side == types.SideLong {
			result.LongTradesCount++

			longPnL = longPnL.Add(pnl)
		} else {
			result.ShortTradesCount++

			shortPnL = shortPnL.Add(pnl)
		}
	}

	result.TotalProfitLoss, _ = totalPnL.Float64()
	result.FinalCapital, _ = decimal.NewFromFloat(initialCapital).Add(totalPnL).Float64()
	result.LongProfit, _ = longPnL.Float64()
	result.ShortProfit, _ = shortPnL.Float64()

	// Zero trades means zero win rate, never a division by zero.
	if result.TotalTrades > 0 {
		result.WinRate = float64(result.WinningTrades) / float64(result.TotalTrades)
	}

	result.SharpeRatio = sharpeRatio(trades)

	return result
}

// sharpeRatio is the unannualized mean/stddev of per-trade returns. With
// fewer than 2 trades the standard deviation is undefined and the ratio is
// reported as 0.
func sharpeRatio(trades []types.TradeRecord) float64 {
	if len(trades) < 2 {
		return 0
	}

	returns := make([]float64, len(trades))
	for i, trade := range trades {
		returns[i] = trade.Return
	}

	mean, stdDev := stat.MeanStdDev(returns, nil)
	if stdDev == 0 {
		return 0
	}

	return mean / stdDev
}
