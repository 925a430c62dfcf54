package papertrade

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/moznion/go-optional"
	"github.com/stretchr/testify/suite"

	"github.com/coinlab/strategist/internal/logger"
	"github.com/coinlab/strategist/internal/signal"
	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

type TraderTestSuite struct {
	suite.Suite
	journal string
}

func TestTraderTestSuite(t *testing.T) {
	suite.Run(t, new(TraderTestSuite))
}

func (s *TraderTestSuite) SetupTest() {
	s.journal = filepath.Join(s.T().TempDir(), "journal.jsonl")
}

// fastParams uses tiny windows so a ten-bar fixture clears every warm-up.
func fastParams() signal.Params {
	params := signal.DefaultParams()
	params.Indicators.FastPeriod = 2
	params.Indicators.SlowPeriod = 3
	params.Indicators.RSIPeriod = 2
	params.Indicators.MACDFast = 2
	params.Indicators.MACDSlow = 3
	params.Indicators.MACDSignal = 2
	params.Indicators.BollPeriod = 3
	params.Indicators.ATRPeriod = 3
	params.Indicators.ADXPeriod = 2

	return params
}

// smaTrend holds while the 2-bar SMA sits above the 3-bar SMA: any rising
// fixture enters long, any falling fixture exits.
func smaTrend() signal.Strategy {
	return signal.Strategy{
		Name:       "sma-trend-test",
		LongEntry:  signal.Pred(signal.PrimSMAFastAboveSlow),
		ShortEntry: signal.Never(),
		LongExit:   signal.Pred(signal.PrimSMAFastBelowSlow),
		ShortExit:  signal.Never(),
	}
}

func (s *TraderTestSuite) newTrader(risk types.RiskParameters) *Trader {
	risk.ATRPeriod = 3

	return &Trader{
		log: logger.NewNopLogger(),
		cfg: Config{
			Provider:     "fake",
			Symbol:       "BTCUSDT",
			Interval:     time.Hour,
			Strategy:     "sma-trend-test",
			LookbackBars: 10,
			JournalPath:  s.journal,
		},
		strategy: smaTrend(),
		params:   fastParams(),
		risk:     risk,
		capital:  risk.InitialCapital,
		position: optional.None[types.Position](),
	}
}

func bars(closes ...float64) types.PriceSeries {
	start := time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC)

	prices := make(types.PriceSeries, 0, len(closes))
	for i, c := range closes {
		prices = append(prices, types.Bar{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   c,
			High:   c + 0.5,
			Low:    c - 0.5,
			Close:  c,
			Volume: 1,
		})
	}

	return prices
}

func frictionless() types.RiskParameters {
	risk := types.DefaultRiskParameters()
	risk.SpreadPct = 0
	risk.SlippagePct = 0

	return risk
}

func (s *TraderTestSuite) TestStepOpensLongOnRisingSeries() {
	trader := s.newTrader(frictionless())

	s.Require().NoError(trader.step(bars(100, 101, 102, 103, 104, 105, 106, 107, 108, 109)))

	status := trader.Status()
	position, err := status.OpenPosition.Take()
	s.Require().NoError(err)
	s.Equal(types.SideLong, position.Side)
	s.Equal(109.0, position.EntryPrice)
	s.InDelta(0.0, status.Capital, 1e-9) // full position size fraction
	s.Equal(0, status.ClosedTrades)
}

func (s *TraderTestSuite) TestOpenThenSignalExitJournalsTrade() {
	trader := s.newTrader(frictionless())

	rising := bars(100, 101, 102, 103, 104, 105, 106, 107, 108, 109)
	s.Require().NoError(trader.step(rising))
	s.Require().True(trader.Status().OpenPosition.IsSome())

	// Gentle fade: fast SMA slips under the slow SMA while staying above the
	// trailing stop, so the signal exit fires rather than the stop.
	fading := bars(104, 105, 106, 107, 108, 109, 108.8, 108.6, 108.4, 108.2)
	s.Require().NoError(trader.step(fading))

	status := trader.Status()
	s.True(status.OpenPosition.IsNone())
	s.Equal(1, status.ClosedTrades)
	s.InDelta(status.Capital, 10000-(109.0-108.2)/109.0*10000, 1e-6)

	entries, err := ReadJournal(s.journal)
	s.Require().NoError(err)
	s.Require().Len(entries, 1)
	s.Equal("BTCUSDT", entries[0].Symbol)
	s.Equal(types.ExitReasonSignal, entries[0].Trade.ExitReason)
	s.Equal(types.SideLong, entries[0].Trade.Side)
	s.InDelta(108.2, entries[0].Trade.ExitPrice, 1e-9)
}

func (s *TraderTestSuite) TestExitPrecedenceStopBeforeTakeProfitBeforeSignal() {
	signals := types.NewSignalSet(1)
	signals.LongExit[0] = true

	position := types.Position{
		Side:            types.SideLong,
		StopLossPrice:   95,
		TakeProfitPrice: 105,
	}

	bar := types.Bar{Close: 94}
	reason, exit := exitReason(position, signals, 0, bar)
	s.Require().True(exit)
	s.Equal(types.ExitReasonStopLoss, reason)

	bar.Close = 106
	reason, exit = exitReason(position, signals, 0, bar)
	s.Require().True(exit)
	s.Equal(types.ExitReasonTakeProfit, reason)

	bar.Close = 100
	reason, exit = exitReason(position, signals, 0, bar)
	s.Require().True(exit)
	s.Equal(types.ExitReasonSignal, reason)

	signals.LongExit[0] = false
	_, exit = exitReason(position, signals, 0, bar)
	s.False(exit)
}

func (s *TraderTestSuite) TestDegenerateRiskDistanceSkipsEntry() {
	trader := s.newTrader(frictionless())

	signals := types.NewSignalSet(1)
	signals.LongEntry[0] = true

	// NaN ATR during warm-up: entry must be skipped under the ATR stop model.
	trader.tryOpen(signals, 0, types.Bar{Close: 100}, nanValue())

	s.True(trader.Status().OpenPosition.IsNone())
	s.Equal(trader.risk.InitialCapital, trader.Status().Capital)
}

func (s *TraderTestSuite) TestShortTickTooFewBars() {
	trader := s.newTrader(frictionless())

	err := trader.step(bars(100))
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInsufficientData))
}

func (s *TraderTestSuite) TestNewTraderValidation() {
	log := logger.NewNopLogger()
	cfg := Config{Provider: "fake", Symbol: "BTCUSDT", Interval: time.Hour, Strategy: "sma-hold", LookbackBars: 60}

	_, err := NewTrader(nil, cfg, types.DefaultRiskParameters(), signal.DefaultParams(), log)
	s.Require().NoError(err)

	bad := cfg
	bad.LookbackBars = 1
	_, err = NewTrader(nil, bad, types.DefaultRiskParameters(), signal.DefaultParams(), log)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	bad = cfg
	bad.Strategy = "does-not-exist"
	_, err = NewTrader(nil, bad, types.DefaultRiskParameters(), signal.DefaultParams(), log)
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeStrategyNotFound))
}

func nanValue() float64 {
	var zero float64

	return zero / zero
}
