package types

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// BacktestResult is the final output of one backtest run, derived entirely
// from the trade log plus the initial capital.
type BacktestResult struct {
	// ID is the unique identifier for this backtest run.
	ID string `yaml:"id" json:"id"`
	// Timestamp is when this backtest run was executed.
	Timestamp time.Time `yaml:"timestamp" json:"timestamp"`
	// Symbol of the traded asset.
	Symbol string `yaml:"symbol" json:"symbol"`
	// Strategy is the name of the strategy whose signals were replayed.
	Strategy string `yaml:"strategy" json:"strategy"`

	InitialCapital  float64 `yaml:"initial_capital" json:"initial_capital"`
	FinalCapital    float64 `yaml:"final_capital" json:"final_capital"`
	TotalProfitLoss float64 `yaml:"total_profit_loss" json:"total_profit_loss"`

	TotalTrades   int     `yaml:"total_trades" json:"total_trades"`
	WinningTrades int     `yaml:"winning_trades" json:"winning_trades"`
	LosingTrades  int     `yaml:"losing_trades" json:"losing_trades"`
	WinRate       float64 `yaml:"win_rate" json:"win_rate"`
	SharpeRatio   float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`

	LongTradesCount  int     `yaml:"long_trades_count" json:"long_trades_count"`
	LongProfit       float64 `yaml:"long_profit" json:"long_profit"`
	ShortTradesCount int     `yaml:"short_trades_count" json:"short_trades_count"`
	ShortProfit      float64 `yaml:"short_profit" json:"short_profit"`

	TradeLog []TradeRecord `yaml:"trade_log" json:"trade_log"`
}

// WriteBacktestResult persists a result as a JSON file.
func WriteBacktestResult(path string, result BacktestResult) error {
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal backtest result: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest result to file: %w", err)
	}

	return nil
}

// ReadBacktestResult loads a result previously written with WriteBacktestResult.
func ReadBacktestResult(path string) (BacktestResult, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BacktestResult{}, fmt.Errorf("failed to read backtest result: %w", err)
	}

	var result BacktestResult
	if err := json.Unmarshal(data, &result); err != nil {
		return BacktestResult{}, fmt.Errorf("failed to unmarshal backtest result: %w", err)
	}

	return result, nil
}
