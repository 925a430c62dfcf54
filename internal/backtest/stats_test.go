package backtest

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/coinlab/strategist/internal/types"
)

func trade(side types.Side, pnl, size float64) types.TradeRecord {
	return types.TradeRecord{
		Side:    side,
		SizeUSD: size,
		PnLUSD:  pnl,
		Return:  pnl / size,
	}
}

func TestAggregateEmptyLog(t *testing.T) {
	result := aggregate(10000, nil)

	assert.Equal(t, 10000.0, result.FinalCapital)
	assert.Equal(t, 0.0, result.TotalProfitLoss)
	assert.Equal(t, 0, result.TotalTrades)
	assert.Equal(t, 0.0, result.WinRate)
	assert.Equal(t, 0.0, result.SharpeRatio)
}

func TestAggregateCounts(t *testing.T) {
	trades := []types.TradeRecord{
		trade(types.SideLong, 500, 10000),
		trade(types.SideLong, -200, 10000),
		trade(types.SideShort, 300, 10000),
		trade(types.SideShort, 0, 10000), // zero PnL counts as a loss
	}

	result := aggregate(10000, trades)

	assert.Equal(t, 4, result.TotalTrades)
	assert.Equal(t, 2, result.WinningTrades)
	assert.Equal(t, 2, result.LosingTrades)
	assert.InDelta(t, 0.5, result.WinRate, 1e-9)
	assert.Equal(t, 2, result.LongTradesCount)
	assert.Equal(t, 2, result.ShortTradesCount)
	assert.InDelta(t, 300.0, result.LongProfit, 1e-9)
	assert.InDelta(t, 300.0, result.ShortProfit, 1e-9)
	assert.InDelta(t, 600.0, result.TotalProfitLoss, 1e-9)
	assert.InDelta(t, 10600.0, result.FinalCapital, 1e-9)
}

func TestSharpeFewerThanTwoTrades(t *testing.T) {
	assert.Equal(t, 0.0, sharpeRatio(nil))
	assert.Equal(t, 0.0, sharpeRatio([]types.TradeRecord{trade(types.SideLong, 100, 1000)}))
}

func TestSharpeZeroVariance(t *testing.T) {
	trades := []types.TradeRecord{
		trade(types.SideLong, 100, 1000),
		trade(types.SideLong, 100, 1000),
	}

	assert.Equal(t, 0.0, sharpeRatio(trades))
}

func TestSharpeSign(t *testing.T) {
	winning := []types.TradeRecord{
		trade(types.SideLong, 100, 1000),
		trade(types.SideLong, 200, 1000),
		trade(types.SideLong, 150, 1000),
	}
	assert.Greater(t, sharpeRatio(winning), 0.0)

	losing := []types.TradeRecord{
		trade(types.SideLong, -100, 1000),
		trade(types.SideLong, -200, 1000),
		trade(types.SideLong, -150, 1000),
	}
	assert.Less(t, sharpeRatio(losing), 0.0)
}

func TestCostModel(t *testing.T) {
	risk := types.DefaultRiskParameters()
	risk.SpreadPct = 0.01
	risk.SlippagePct = 0.0005

	assert.InDelta(t, 101.0505, EntryPrice(types.SideLong, 100, risk), 1e-9)
	assert.InDelta(t, 100*0.99*0.9995, EntryPrice(types.SideShort, 100, risk), 1e-9)
	assert.InDelta(t, 100*0.99*0.9995, ExitPrice(types.SideLong, 100, risk), 1e-9)
	assert.InDelta(t, 101.0505, ExitPrice(types.SideShort, 100, risk), 1e-9)
}

func TestInitialStopModels(t *testing.T) {
	risk := types.DefaultRiskParameters()
	risk.StopModel = types.StopModelFixed
	risk.FixedStopLossPct = 0.02

	assert.InDelta(t, 98.0, InitialStop(types.SideLong, 100, 5, risk), 1e-9)
	assert.InDelta(t, 102.0, InitialStop(types.SideShort, 100, 5, risk), 1e-9)

	risk.StopModel = types.StopModelATR
	risk.ATRMultiple = 2.0

	assert.InDelta(t, 90.0, InitialStop(types.SideLong, 100, 5, risk), 1e-9)
	assert.InDelta(t, 110.0, InitialStop(types.SideShort, 100, 5, risk), 1e-9)
}

func TestTakeProfitPlacement(t *testing.T) {
	risk := types.DefaultRiskParameters()
	risk.TakeProfitMultiple = 2.0

	assert.InDelta(t, 104.0, TakeProfitPrice(types.SideLong, 100, 2, risk), 1e-9)
	assert.InDelta(t, 96.0, TakeProfitPrice(types.SideShort, 100, 2, risk), 1e-9)
}

func TestPnL(t *testing.T) {
	assert.InDelta(t, 1000.0, PnL(types.SideLong, 100, 110, 100), 1e-9)
	assert.InDelta(t, -1000.0, PnL(types.SideShort, 100, 110, 100), 1e-9)
}
