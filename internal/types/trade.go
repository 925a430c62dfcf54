package types

// Side is the direction of a position.
type Side string

const (
	SideLong  Side = "LONG"
	SideShort Side = "SHORT"
)

// ExitReason records why a trade was closed.
type ExitReason string

const (
	ExitReasonSignal     ExitReason = "SIGNAL"
	ExitReasonStopLoss   ExitReason = "STOP_LOSS"
	ExitReasonTakeProfit ExitReason = "TAKE_PROFIT"
	ExitReasonEndOfData  ExitReason = "END_OF_DATA"
)

// Position is the engine-owned state of the single open trade. It exists from
// the bar that opens the trade until the bar that closes it; the engine never
// pyramids or hedges, so at most one Position is live at any time.
type Position struct {
	Side          Side
	EntryPrice    float64
	EntryBarIndex int
	SizeUSD       float64
	SizeUnits     float64
	StopLossPrice   float64
	TakeProfitPrice float64
	// HighestPriceSeen tracks the best close since entry for a LONG; the
	// trailing stop ratchets off it. LowestPriceSeen is the SHORT mirror.
	HighestPriceSeen float64
	LowestPriceSeen  float64
}

// TradeRecord is the immutable log entry for one closed trade.
type TradeRecord struct {
	ID            string     `yaml:"id" json:"id"`
	Side          Side       `yaml:"side" json:"side"`
	EntryPrice    float64    `yaml:"entry_price" json:"entry_price"`
	ExitPrice     float64    `yaml:"exit_price" json:"exit_price"`
	EntryBarIndex int        `yaml:"entry_bar_index" json:"entry_bar_index"`
	ExitBarIndex  int        `yaml:"exit_bar_index" json:"exit_bar_index"`
	SizeUSD       float64    `yaml:"size_usd" json:"size_usd"`
	PnLUSD        float64    `yaml:"pnl_usd" json:"pnl_usd"`
	// Return is PnLUSD / SizeUSD, the per-trade return the Sharpe ratio is
	// computed from.
	Return     float64    `yaml:"return" json:"return"`
	ExitReason ExitReason `yaml:"exit_reason" json:"exit_reason"`
}
