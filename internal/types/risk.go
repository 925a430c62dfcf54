package types

import (
	"github.com/go-playground/validator/v10"

	"github.com/coinlab/strategist/pkg/errors"
)

// StopModel selects how the initial stop-loss price is placed at entry time.
// The two models are mutually exclusive; the caller picks one per run and the
// engine never switches mid-trade.
type StopModel string

const (
	// StopModelATR places the stop a multiple of the ATR away from entry and
	// trails it as price moves favorably.
	StopModelATR StopModel = "ATR"
	// StopModelFixed places the stop a fixed percentage away from entry.
	StopModelFixed StopModel = "FIXED"
)

// RiskParameters is the immutable risk/cost bundle for one backtest run.
type RiskParameters struct {
	ATRPeriod  int     `yaml:"atr_period" json:"atr_period" validate:"required,gt=0"`
	ATRMultiple float64 `yaml:"atr_multiple" json:"atr_multiple" validate:"gte=0"`
	// FixedStopLossPct disables the fixed stop when 0.
	FixedStopLossPct   float64 `yaml:"fixed_stop_loss_pct" json:"fixed_stop_loss_pct" validate:"gte=0,lt=1"`
	TakeProfitMultiple float64 `yaml:"take_profit_multiple" json:"take_profit_multiple" validate:"gt=0"`
	SpreadPct          float64 `yaml:"spread_pct" json:"spread_pct" validate:"gte=0,lt=1"`
	SlippagePct        float64 `yaml:"slippage_pct" json:"slippage_pct" validate:"gte=0,lt=1"`
	InitialCapital     float64 `yaml:"initial_capital" json:"initial_capital" validate:"gt=0"`
	// PositionSizeFraction is the fraction of current capital allocated to a
	// new position. Since at most one position is open at a time, 1.0 means
	// all available capital.
	PositionSizeFraction float64   `yaml:"position_size_fraction" json:"position_size_fraction" validate:"gt=0,lte=1"`
	StopModel            StopModel `yaml:"stop_model" json:"stop_model" validate:"required,oneof=ATR FIXED"`
}

// DefaultRiskParameters returns a conservative baseline bundle.
func DefaultRiskParameters() RiskParameters {
	return RiskParameters{
		ATRPeriod:            14,
		ATRMultiple:          2.0,
		FixedStopLossPct:     0,
		TakeProfitMultiple:   2.0,
		SpreadPct:            0.001,
		SlippagePct:          0.0005,
		InitialCapital:       10000,
		PositionSizeFraction: 1.0,
		StopModel:            StopModelATR,
	}
}

// Validate validates the RiskParameters struct.
func (r *RiskParameters) Validate() error {
	validate := validator.New()
	if err := validate.Struct(r); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid risk parameters", err)
	}

	switch r.StopModel {
	case StopModelATR:
		if r.ATRMultiple <= 0 {
			return errors.New(errors.ErrCodeInvalidStopModel, "ATR stop model requires atr_multiple > 0")
		}
	case StopModelFixed:
		if r.FixedStopLossPct <= 0 {
			return errors.New(errors.ErrCodeInvalidStopModel, "fixed stop model requires fixed_stop_loss_pct > 0")
		}
	}

	return nil
}
