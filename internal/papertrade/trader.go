// Package papertrade runs a strategy against live data with simulated money.
// Fills use the same spread/slippage cost model as the backtest engine, so a
// paper session is directly comparable with the strategy's backtest.
package papertrade

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/moznion/go-optional"
	"go.uber.org/zap"

	"github.com/coinlab/strategist/internal/backtest"
	"github.com/coinlab/strategist/internal/indicator"
	"github.com/coinlab/strategist/internal/logger"
	"github.com/coinlab/strategist/internal/market"
	"github.com/coinlab/strategist/internal/signal"
	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// Config selects what the trader trades and where it journals.
type Config struct {
	Provider string        `yaml:"provider" json:"provider"`
	Symbol   string        `yaml:"symbol" json:"symbol"`
	Interval time.Duration `yaml:"interval" json:"interval"`
	Strategy string        `yaml:"strategy" json:"strategy"`

	// LookbackBars is how much history each tick fetches; it must cover the
	// slowest indicator's warm-up.
	LookbackBars int `yaml:"lookback_bars" json:"lookback_bars"`

	JournalPath string `yaml:"journal_path" json:"journal_path"`
}

// JournalEntry is one closed paper trade as written to the journal file, one
// JSON object per line.
type JournalEntry struct {
	ClosedAt time.Time         `json:"closed_at"`
	Symbol   string            `json:"symbol"`
	Strategy string            `json:"strategy"`
	Trade    types.TradeRecord `json:"trade"`
}

// Status is a point-in-time snapshot for the CLI and API.
type Status struct {
	Capital      float64                        `json:"capital"`
	OpenPosition optional.Option[types.Position] `json:"open_position"`
	ClosedTrades int                            `json:"closed_trades"`
}

// Trader holds one simulated account. Construct per session; all state lives
// on the instance.
type Trader struct {
	market *market.Service
	log    *logger.Logger

	cfg      Config
	strategy signal.Strategy
	params   signal.Params
	risk     types.RiskParameters

	mu       sync.Mutex
	capital  float64
	position optional.Option[types.Position]
	closed   int
	tradeSeq int
}

func NewTrader(
	marketSvc *market.Service,
	cfg Config,
	risk types.RiskParameters,
	params signal.Params,
	log *logger.Logger,
) (*Trader, error) {
	if err := risk.Validate(); err != nil {
		return nil, err
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}

	if cfg.LookbackBars < 2 {
		return nil, errors.New(errors.ErrCodeInvalidConfiguration, "lookback_bars must be at least 2")
	}

	strategy, err := signal.GetStrategy(cfg.Strategy)
	if err != nil {
		return nil, err
	}

	return &Trader{
		market:   marketSvc,
		log:      log,
		cfg:      cfg,
		strategy: strategy,
		params:   params,
		risk:     risk,
		capital:  risk.InitialCapital,
		position: optional.None[types.Position](),
	}, nil
}

// Status returns a snapshot of the account.
func (t *Trader) Status() Status {
	t.mu.Lock()
	defer t.mu.Unlock()

	return Status{
		Capital:      t.capital,
		OpenPosition: t.position,
		ClosedTrades: t.closed,
	}
}

// Tick fetches recent bars, evaluates the strategy on the latest bar and
// applies at most one transition: open a position, update and possibly close
// the open one, or do nothing.
func (t *Trader) Tick(ctx context.Context) error {
	end := time.Now().UTC()
	start := end.Add(-time.Duration(t.cfg.LookbackBars) * t.cfg.Interval)

	prices, err := t.market.History(ctx, t.cfg.Provider, t.cfg.Symbol, t.cfg.Interval, start, end)
	if err != nil {
		return err
	}

	return t.step(prices)
}

// step is Tick minus the fetch, so tests can drive the trader with fixtures.
func (t *Trader) step(prices types.PriceSeries) error {
	if len(prices) < 2 {
		return errors.New(errors.ErrCodeInsufficientData, "need at least 2 bars per tick")
	}

	bundle, err := indicator.ComputeBundle(prices, t.params.Indicators)
	if err != nil {
		return err
	}

	signals, err := signal.ComposeStrategy(t.strategy, bundle, t.params)
	if err != nil {
		return err
	}

	last := len(prices) - 1
	bar := prices[last]
	atr := bundle.ATR[last]

	t.mu.Lock()
	defer t.mu.Unlock()

	if position, err := t.position.Take(); err == nil {
		return t.manage(position, signals, last, bar, atr)
	}

	t.tryOpen(signals, last, bar, atr)

	return nil
}

// tryOpen mirrors the engine's FLAT transition: LONG wins a tie, degenerate
// risk distances skip the entry.
func (t *Trader) tryOpen(signals types.SignalSet, barIndex int, bar types.Bar, atr float64) {
	var side types.Side

	switch {
	case signals.LongEntry[barIndex]:
		side = types.SideLong
	case signals.ShortEntry[barIndex]:
		side = types.SideShort
	default:
		return
	}

	entryPrice := backtest.EntryPrice(side, bar.Close, t.risk)
	stopPrice := backtest.InitialStop(side, entryPrice, atr, t.risk)
	riskDistance := backtest.RiskDistance(side, entryPrice, stopPrice)

	if math.IsNaN(riskDistance) || riskDistance <= 0 {
		t.log.Warn("skipping entry with degenerate risk distance",
			zap.String("side", string(side)),
			zap.Float64("atr", atr))

		return
	}

	sizeUSD := t.capital * t.risk.PositionSizeFraction

	position := types.Position{
		Side:            side,
		EntryPrice:      entryPrice,
		EntryBarIndex:   barIndex,
		SizeUSD:         sizeUSD,
		SizeUnits:       sizeUSD / entryPrice,
		StopLossPrice:   stopPrice,
		TakeProfitPrice: backtest.TakeProfitPrice(side, entryPrice, riskDistance, t.risk),

		HighestPriceSeen: bar.Close,
		LowestPriceSeen:  bar.Close,
	}

	t.capital -= sizeUSD
	t.position = optional.Some(position)

	t.log.Info("paper position opened",
		zap.String("symbol", t.cfg.Symbol),
		zap.String("side", string(side)),
		zap.Float64("entry_price", entryPrice),
		zap.Float64("stop", position.StopLossPrice),
		zap.Float64("take_profit", position.TakeProfitPrice))
}

// manage ratchets the trailing stop and applies the exit precedence the
// engine uses: stop-loss, then take-profit, then signal exit.
func (t *Trader) manage(position types.Position, signals types.SignalSet, barIndex int, bar types.Bar, atr float64) error {
	if position.Side == types.SideLong && bar.Close > position.HighestPriceSeen {
		position.HighestPriceSeen = bar.Close

		if t.risk.StopModel == types.StopModelATR && !math.IsNaN(atr) {
			if trailed := bar.Close - atr*t.risk.ATRMultiple; trailed > position.StopLossPrice {
				position.StopLossPrice = trailed
			}
		}
	}

	if position.Side == types.SideShort && bar.Close < position.LowestPriceSeen {
		position.LowestPriceSeen = bar.Close

		if t.risk.StopModel == types.StopModelATR && !math.IsNaN(atr) {
			if trailed := bar.Close + atr*t.risk.ATRMultiple; trailed < position.StopLossPrice {
				position.StopLossPrice = trailed
			}
		}
	}

	reason, shouldExit := exitReason(position, signals, barIndex, bar)
	if !shouldExit {
		t.position = optional.Some(position)

		return nil
	}

	return t.close(position, barIndex, bar, reason)
}

func exitReason(position types.Position, signals types.SignalSet, barIndex int, bar types.Bar) (types.ExitReason, bool) {
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

func (t *Trader) close(position types.Position, barIndex int, bar types.Bar, reason types.ExitReason) error {
	exitPrice := backtest.ExitPrice(position.Side, bar.Close, t.risk)
	pnl := backtest.PnL(position.Side, position.EntryPrice, exitPrice, position.SizeUnits)

	t.tradeSeq++

	trade := types.TradeRecord{
		ID:            paperTradeID(t.tradeSeq),
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

	t.capital += position.SizeUSD + pnl
	t.position = optional.None[types.Position]()
	t.closed++

	t.log.Info("paper position closed",
		zap.String("symbol", t.cfg.Symbol),
		zap.String("reason", string(reason)),
		zap.Float64("pnl_usd", pnl),
		zap.Float64("capital", t.capital))

	return t.journal(trade)
}

func paperTradeID(seq int) string {
	return fmt.Sprintf("paper-%s-%04d", time.Now().UTC().Format("20060102"), seq)
}

// journal appends the closed trade to the journal file, one JSON object per
// line.
func (t *Trader) journal(trade types.TradeRecord) error {
	if t.cfg.JournalPath == "" {
		return nil
	}

	entry := JournalEntry{
		ClosedAt: time.Now().UTC(),
		Symbol:   t.cfg.Symbol,
		Strategy: t.cfg.Strategy,
		Trade:    trade,
	}

	f, err := os.OpenFile(t.cfg.JournalPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFail, "failed to open trade journal", err)
	}
	defer f.Close()

	if err := json.NewEncoder(f).Encode(entry); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFail, "failed to append trade journal entry", err)
	}

	return nil
}

// ReadJournal loads every entry from a journal file.
func ReadJournal(path string) ([]JournalEntry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeDataNotFound, "failed to open trade journal", err)
	}
	defer f.Close()

	var entries []JournalEntry

	decoder := json.NewDecoder(f)
	for decoder.More() {
		var entry JournalEntry
		if err := decoder.Decode(&entry); err != nil {
			return nil, errors.Wrap(errors.ErrCodeParseFailed, "malformed trade journal entry", err)
		}

		entries = append(entries, entry)
	}

	return entries, nil
}
