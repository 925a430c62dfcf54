package signal

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/coinlab/strategist/internal/indicator"
	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

type SignalTestSuite struct {
	suite.Suite
}

func TestSignalTestSuite(t *testing.T) {
	suite.Run(t, new(SignalTestSuite))
}

func series(values ...float64) indicator.Series {
	return indicator.Series(values)
}

// bundleOf builds a minimal bundle whose every column is the close series, so
// a test can overwrite just the columns its primitive reads.
func bundleOf(closes indicator.Series) indicator.Bundle {
	return indicator.Bundle{
		Closes:        closes,
		SMAFast:       closes,
		SMASlow:       closes,
		EMAFast:       closes,
		EMASlow:       closes,
		RSI:           closes,
		MACDLine:      closes,
		MACDSignal:    closes,
		MACDHistogram: closes,
		BollMiddle:    closes,
		BollUpper:     closes,
		BollLower:     closes,
		ATR:           closes,
		ADX:           closes,
	}
}

func (s *SignalTestSuite) TestNodeValidate() {
	s.Require().NoError(Pred(PrimRSIOversold).Validate())
	s.Require().NoError(And(Pred(PrimSMACrossUp), Not(Pred(PrimADXTrending))).Validate())
	s.Require().NoError(Never().Validate())

	err := Pred(Primitive("no_such_predicate")).Validate()
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodePrimitiveUnknown))

	err = Node{Op: OpNot, Children: []Node{Pred(PrimRSIOversold), Pred(PrimRSIOverbought)}}.Validate()
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidSignalTree))

	err = Node{Op: NodeOp("xor")}.Validate()
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidSignalTree))

	// Invalid leaves are found at any depth.
	err = Or(And(Pred(Primitive("bogus")))).Validate()
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodePrimitiveUnknown))
}

func (s *SignalTestSuite) TestCrossPrimitives() {
	bundle := bundleOf(series(0, 0, 0, 0, 0))
	bundle.SMAFast = series(1, 3, 2, 2, 4)
	bundle.SMASlow = series(2, 2, 2, 3, 3)

	up, err := evaluatePrimitive(PrimSMACrossUp, bundle, DefaultParams())
	s.Require().NoError(err)
	s.Equal([]bool{false, true, false, false, true}, up)

	down, err := evaluatePrimitive(PrimSMACrossDown, bundle, DefaultParams())
	s.Require().NoError(err)
	s.Equal([]bool{false, false, false, true, false}, down)
}

func (s *SignalTestSuite) TestNaNComparesFalse() {
	nan := math.NaN()
	bundle := bundleOf(series(0, 0, 0, 0))
	bundle.RSI = series(nan, nan, 20, 80)

	oversold, err := evaluatePrimitive(PrimRSIOversold, bundle, DefaultParams())
	s.Require().NoError(err)
	s.Equal([]bool{false, false, true, false}, oversold)

	overbought, err := evaluatePrimitive(PrimRSIOverbought, bundle, DefaultParams())
	s.Require().NoError(err)
	s.Equal([]bool{false, false, false, true}, overbought)

	// A cross is suppressed when either side of either bar is NaN.
	bundle.SMAFast = series(nan, 3, nan, 4)
	bundle.SMASlow = series(2, 2, 2, 2)

	up, err := evaluatePrimitive(PrimSMACrossUp, bundle, DefaultParams())
	s.Require().NoError(err)
	s.Equal([]bool{false, false, false, false}, up)
}

func (s *SignalTestSuite) TestBandAndLevelPrimitives() {
	bundle := bundleOf(series(95, 100, 106))
	bundle.BollLower = series(96, 96, 96)
	bundle.BollMiddle = series(100, 100, 100)
	bundle.BollUpper = series(104, 104, 104)
	bundle.ADX = series(10, 30, 30)

	cases := map[Primitive][]bool{
		PrimCloseBelowLowerBand: {true, false, false},
		PrimCloseAboveUpperBand: {false, false, true},
		PrimCloseAboveBollMid:   {false, false, true},
		PrimCloseBelowBollMid:   {true, false, false},
		PrimADXTrending:         {false, true, true},
	}

	for prim, want := range cases {
		got, err := evaluatePrimitive(prim, bundle, DefaultParams())
		s.Require().NoError(err)
		s.Equal(want, got, string(prim))
	}
}

func (s *SignalTestSuite) TestEveryPrimitiveEvaluates() {
	bundle := bundleOf(series(1, 2, 3, 4, 5))

	for _, prim := range AllPrimitives() {
		column, err := evaluatePrimitive(prim, bundle, DefaultParams())
		s.Require().NoError(err, string(prim))
		s.Len(column, 5, string(prim))
	}
}

func (s *SignalTestSuite) TestEvalTreeCombinators() {
	bundle := bundleOf(series(95, 100, 106))
	bundle.BollLower = series(96, 96, 96)
	bundle.BollUpper = series(104, 104, 104)
	bundle.RSI = series(20, 50, 80)

	ev := newEvaluator(bundle, DefaultParams())

	both, err := ev.evalTree(And(Pred(PrimCloseBelowLowerBand), Pred(PrimRSIOversold)))
	s.Require().NoError(err)
	s.Equal([]bool{true, false, false}, both)

	either, err := ev.evalTree(Or(Pred(PrimCloseBelowLowerBand), Pred(PrimRSIOverbought)))
	s.Require().NoError(err)
	s.Equal([]bool{true, false, true}, either)

	negated, err := ev.evalTree(Not(Pred(PrimRSIOversold)))
	s.Require().NoError(err)
	s.Equal([]bool{false, true, true}, negated)

	never, err := ev.evalTree(Never())
	s.Require().NoError(err)
	s.Equal([]bool{false, false, false}, never)

	// And with no children never fires either; an empty conjunction must not
	// mean "enter on every bar".
	empty, err := ev.evalTree(And())
	s.Require().NoError(err)
	s.Equal([]bool{false, false, false}, empty)
}

func (s *SignalTestSuite) TestEvaluatorMemoizes() {
	bundle := bundleOf(series(1, 2, 3))
	ev := newEvaluator(bundle, DefaultParams())

	first, err := ev.primitive(PrimRSIOversold)
	s.Require().NoError(err)

	second, err := ev.primitive(PrimRSIOversold)
	s.Require().NoError(err)

	// Same backing slice, not a recomputed copy.
	s.Same(&first[0], &second[0])
}

func (s *SignalTestSuite) TestParamsValidate() {
	params := DefaultParams()
	s.Require().NoError(params.Validate())

	params.RSIOversold = 70
	params.RSIOverbought = 30
	err := params.Validate()
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeInvalidParameter))

	params = DefaultParams()
	params.ADXThreshold = 0
	s.Require().Error(params.Validate())

	params = DefaultParams()
	params.Indicators.FastPeriod = 0
	s.Require().Error(params.Validate())
}

func (s *SignalTestSuite) TestBuiltinStrategiesValidate() {
	for _, name := range ListStrategies() {
		strategy, err := GetStrategy(name)
		s.Require().NoError(err)
		s.Equal(name, strategy.Name)
		s.Require().NoError(strategy.Validate(), name)
	}
}

func (s *SignalTestSuite) TestGetStrategyUnknown() {
	_, err := GetStrategy("does-not-exist")
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeStrategyNotFound))
}

func TestListStrategiesIsSorted(t *testing.T) {
	names := ListStrategies()
	require.NotEmpty(t, names)
	assert.IsNonDecreasing(t, names)
	assert.Contains(t, names, "trend-follow")
	assert.Contains(t, names, "mean-revert")
	assert.Contains(t, names, "macd-momentum")
}

func (s *SignalTestSuite) TestComposeStrategyColumnsAligned() {
	bundle := bundleOf(series(95, 100, 106, 101))
	bundle.BollLower = series(96, 96, 96, 96)
	bundle.BollMiddle = series(100, 100, 100, 100)
	bundle.BollUpper = series(104, 104, 104, 104)
	bundle.RSI = series(20, 50, 80, 50)

	strategy, err := GetStrategy("mean-revert")
	s.Require().NoError(err)

	signals, err := ComposeStrategy(strategy, bundle, DefaultParams())
	s.Require().NoError(err)
	s.Require().NoError(signals.Validate(4))

	s.Equal([]bool{true, false, false, false}, signals.LongEntry)
	s.Equal([]bool{false, false, true, false}, signals.ShortEntry)
	s.Equal([]bool{false, false, true, true}, signals.LongExit)
	s.Equal([]bool{true, false, false, false}, signals.ShortExit)
}

func (s *SignalTestSuite) TestComposeEndToEnd() {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	prices := make(types.PriceSeries, 0, 80)

	for i := 0; i < 80; i++ {
		price := 100 + 10*math.Sin(float64(i)/6)
		prices = append(prices, types.Bar{
			Time:   start.Add(time.Duration(i) * time.Hour),
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 1000,
		})
	}

	params := DefaultParams()
	params.Indicators.FastPeriod = 5
	params.Indicators.SlowPeriod = 15

	signals, err := Compose("trend-follow", prices, params)
	s.Require().NoError(err)
	s.Require().NoError(signals.Validate(len(prices)))

	// A sine-wave series crosses the fast SMA through the slow SMA in both
	// directions once warm-up has passed.
	s.True(anyTrue(signals.LongExit) || anyTrue(signals.ShortExit))
}

func (s *SignalTestSuite) TestComposeUnknownStrategy() {
	prices := types.PriceSeries{
		{Time: time.Unix(0, 0), Open: 1, High: 1, Low: 1, Close: 1},
		{Time: time.Unix(60, 0), Open: 1, High: 1, Low: 1, Close: 1},
	}

	_, err := Compose("does-not-exist", prices, DefaultParams())
	s.Require().Error(err)
	s.True(errors.HasCode(err, errors.ErrCodeStrategyNotFound))
}

func anyTrue(column []bool) bool {
	for _, v := range column {
		if v {
			return true
		}
	}

	return false
}
