package types

import (
	"math"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/coinlab/strategist/pkg/errors"
)

type TypesTestSuite struct {
	suite.Suite
}

func TestTypesSuite(t *testing.T) {
	suite.Run(t, new(TypesTestSuite))
}

func (suite *TypesTestSuite) makeSeries(closes ...float64) PriceSeries {
	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	series := make(PriceSeries, len(closes))

	for i, c := range closes {
		series[i] = Bar{
			Time:  start.Add(time.Duration(i) * time.Hour),
			Open:  c,
			High:  c,
			Low:   c,
			Close: c,
		}
	}

	return series
}

func (suite *TypesTestSuite) TestPriceSeriesValidateOK() {
	series := suite.makeSeries(100, 101, 102)
	suite.NoError(series.Validate())
}

func (suite *TypesTestSuite) TestPriceSeriesValidateNonFinite() {
	series := suite.makeSeries(100, math.NaN(), 102)

	err := series.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeNonFiniteValue))
}

func (suite *TypesTestSuite) TestPriceSeriesValidateNonIncreasingTime() {
	series := suite.makeSeries(100, 101)
	series[1].Time = series[0].Time

	err := series.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidInput))
}

func (suite *TypesTestSuite) TestCloses() {
	series := suite.makeSeries(100, 105, 95)
	suite.Equal([]float64{100, 105, 95}, series.Closes())
}

func (suite *TypesTestSuite) TestSignalSetValidate() {
	signals := NewSignalSet(5)
	suite.NoError(signals.Validate(5))

	signals.ShortExit = signals.ShortExit[:4]
	err := signals.Validate(5)
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeLengthMismatch))
}

func (suite *TypesTestSuite) TestDefaultRiskParametersValid() {
	risk := DefaultRiskParameters()
	suite.NoError(risk.Validate())
}

func (suite *TypesTestSuite) TestRiskParametersRejectsZeroCapital() {
	risk := DefaultRiskParameters()
	risk.InitialCapital = 0

	err := risk.Validate()
	suite.Error(err)
	suite.True(errors.IsInvalidInput(err))
}

func (suite *TypesTestSuite) TestRiskParametersStopModelConsistency() {
	risk := DefaultRiskParameters()
	risk.StopModel = StopModelFixed
	risk.FixedStopLossPct = 0

	err := risk.Validate()
	suite.Error(err)
	suite.True(errors.HasCode(err, errors.ErrCodeInvalidStopModel))

	risk.FixedStopLossPct = 0.02
	suite.NoError(risk.Validate())

	risk.StopModel = StopModelATR
	risk.ATRMultiple = 0
	suite.Error(risk.Validate())
}

func (suite *TypesTestSuite) TestBacktestResultRoundTrip() {
	result := BacktestResult{
		ID:              "run-1",
		Timestamp:       time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Symbol:          "BTC",
		Strategy:        "trend-follow",
		InitialCapital:  10000,
		FinalCapital:    10500,
		TotalProfitLoss: 500,
		TotalTrades:     2,
		WinningTrades:   1,
		LosingTrades:    1,
		WinRate:         0.5,
		TradeLog: []TradeRecord{
			{ID: "t-1", Side: SideLong, EntryPrice: 100, ExitPrice: 110, SizeUSD: 10000, PnLUSD: 1000, Return: 0.1, ExitReason: ExitReasonTakeProfit},
			{ID: "t-2", Side: SideShort, EntryPrice: 110, ExitPrice: 115, SizeUSD: 11000, PnLUSD: -500, Return: -0.045, ExitReason: ExitReasonStopLoss},
		},
	}

	path := filepath.Join(suite.T().TempDir(), "result.json")
	suite.Require().NoError(WriteBacktestResult(path, result))

	loaded, err := ReadBacktestResult(path)
	suite.Require().NoError(err)
	suite.Equal(result, loaded)
}
