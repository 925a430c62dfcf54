package api

import (
	"bytes"
	"context"
	"encoding/json"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"github.com/coinlab/strategist/internal/config"
	"github.com/coinlab/strategist/internal/logger"
	"github.com/coinlab/strategist/internal/market"
	"github.com/coinlab/strategist/internal/market/cache"
	"github.com/coinlab/strategist/internal/market/provider"
	"github.com/coinlab/strategist/internal/optimizer"
	"github.com/coinlab/strategist/internal/types"
)

// waveProvider synthesizes a sine-wave series for any requested range.
type waveProvider struct{}

func (waveProvider) Name() string { return "wave" }

func (waveProvider) FetchBars(_ context.Context, _ string, interval time.Duration, start, end time.Time) (types.PriceSeries, error) {
	var bars types.PriceSeries

	for i, ts := 0, start; !ts.After(end); i, ts = i+1, ts.Add(interval) {
		price := 100 + 10*math.Sin(float64(i)/6)
		bars = append(bars, types.Bar{
			Time:   ts,
			Open:   price,
			High:   price + 1,
			Low:    price - 1,
			Close:  price,
			Volume: 100,
		})
	}

	return bars, nil
}

type ServerTestSuite struct {
	suite.Suite
	ts    *httptest.Server
	store *cache.Store
}

func TestServerTestSuite(t *testing.T) {
	suite.Run(t, new(ServerTestSuite))
}

func (s *ServerTestSuite) SetupTest() {
	log := logger.NewNopLogger()

	store, err := cache.NewStore("", log)
	s.Require().NoError(err)
	s.store = store

	registry := provider.NewRegistry()
	registry.Register(waveProvider{})

	cfg := config.DefaultConfig()
	cfg.Market.Provider = "wave"
	cfg.Data.ResultsDir = s.T().TempDir()
	// Small windows so short fixtures clear indicator warm-up.
	cfg.Signal.Indicators.FastPeriod = 5
	cfg.Signal.Indicators.SlowPeriod = 15

	results, err := NewResultStore(cfg.Data.ResultsDir)
	s.Require().NoError(err)

	server := NewServer(cfg, market.NewService(registry, store, log), results, log)
	s.ts = httptest.NewServer(server.Handler())
}

func (s *ServerTestSuite) TearDownTest() {
	s.ts.Close()
	s.Require().NoError(s.store.Close())
}

func (s *ServerTestSuite) getJSON(path string, out any) *http.Response {
	resp, err := http.Get(s.ts.URL + path)
	s.Require().NoError(err)

	defer resp.Body.Close()

	if out != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}

	return resp
}

func (s *ServerTestSuite) postJSON(path string, body, out any) *http.Response {
	raw, err := json.Marshal(body)
	s.Require().NoError(err)

	resp, err := http.Post(s.ts.URL+path, "application/json", bytes.NewReader(raw))
	s.Require().NoError(err)

	defer resp.Body.Close()

	if out != nil {
		s.Require().NoError(json.NewDecoder(resp.Body).Decode(out))
	}

	return resp
}

func backtestRequest() BacktestRequest {
	start := time.Date(2024, 10, 1, 0, 0, 0, 0, time.UTC)

	return BacktestRequest{
		Symbol:   "BTCUSDT",
		Strategy: "sma-hold",
		Interval: "1h",
		Start:    start.Format(time.RFC3339),
		End:      start.Add(96 * time.Hour).Format(time.RFC3339),
	}
}

func (s *ServerTestSuite) TestHealthz() {
	var body map[string]string

	resp := s.getJSON("/healthz", &body)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Equal("ok", body["status"])
}

func (s *ServerTestSuite) TestStrategies() {
	var body struct {
		Strategies []string `json:"strategies"`
		Primitives []string `json:"primitives"`
	}

	resp := s.getJSON("/api/v1/strategies", &body)
	s.Equal(http.StatusOK, resp.StatusCode)
	s.Contains(body.Strategies, "trend-follow")
	s.Contains(body.Strategies, "sma-hold")
	s.Contains(body.Primitives, "rsi_oversold")
}

func (s *ServerTestSuite) TestBacktestRoundTrip() {
	var result types.BacktestResult

	resp := s.postJSON("/api/v1/backtest", backtestRequest(), &result)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.NotEmpty(result.ID)
	s.Equal("BTCUSDT", result.Symbol)
	s.Equal("sma-hold", result.Strategy)
	s.Equal(result.InitialCapital+result.TotalProfitLoss, result.FinalCapital)

	var listing struct {
		Results []ResultSummary `json:"results"`
	}

	resp = s.getJSON("/api/v1/results", &listing)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Require().Len(listing.Results, 1)
	s.Equal(result.ID, listing.Results[0].ID)

	var fetched types.BacktestResult

	resp = s.getJSON("/api/v1/results/"+result.ID, &fetched)
	s.Require().Equal(http.StatusOK, resp.StatusCode)
	s.Equal(result.ID, fetched.ID)
	s.Equal(result.TotalTrades, fetched.TotalTrades)
}

func (s *ServerTestSuite) TestBacktestValidation() {
	req := backtestRequest()
	req.Symbol = ""
	resp := s.postJSON("/api/v1/backtest", req, nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	req = backtestRequest()
	req.Strategy = "does-not-exist"
	resp = s.postJSON("/api/v1/backtest", req, nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	req = backtestRequest()
	req.Interval = "soon"
	resp = s.postJSON("/api/v1/backtest", req, nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)

	req = backtestRequest()
	req.Provider = "kraken"
	resp = s.postJSON("/api/v1/backtest", req, nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func (s *ServerTestSuite) TestResultNotFound() {
	resp := s.getJSON("/api/v1/results/unknown-id", nil)
	s.Equal(http.StatusNotFound, resp.StatusCode)
}

func (s *ServerTestSuite) TestOptimizeSweep() {
	req := OptimizeRequest{
		BacktestRequest: backtestRequest(),
		Space: optimizer.Space{Dimensions: []optimizer.Dimension{
			{Name: optimizer.DimATRMultiple, Min: 1, Max: 3, GridPoints: 3},
		}},
		Sampler: "grid",
		Trials:  10,
		Workers: 2,
	}

	var resp OptimizeResponse

	httpResp := s.postJSON("/api/v1/optimize", req, &resp)
	s.Require().Equal(http.StatusOK, httpResp.StatusCode)
	s.Equal(3, resp.TrialCount)
	s.NotEmpty(resp.BestResult.ID)
	s.Contains(resp.BestCandidate, optimizer.DimATRMultiple)
	s.False(math.IsInf(resp.BestScore, -1))

	// The best run was persisted.
	var fetched types.BacktestResult

	getResp := s.getJSON("/api/v1/results/"+resp.BestResult.ID, &fetched)
	s.Equal(http.StatusOK, getResp.StatusCode)
}

func (s *ServerTestSuite) TestOptimizeRejectsBadSampler() {
	req := OptimizeRequest{
		BacktestRequest: backtestRequest(),
		Space: optimizer.Space{Dimensions: []optimizer.Dimension{
			{Name: optimizer.DimATRMultiple, Min: 1, Max: 3},
		}},
		Sampler: "annealing",
	}

	resp := s.postJSON("/api/v1/optimize", req, nil)
	s.Equal(http.StatusBadRequest, resp.StatusCode)
}

func TestSamplerByName(t *testing.T) {
	for _, name := range []string{"grid", "random", "tpe"} {
		sampler, err := SamplerByName(name)
		if err != nil {
			t.Fatalf("sampler %q: %v", name, err)
		}

		if sampler.Name() != name {
			t.Fatalf("sampler %q reports name %q", name, sampler.Name())
		}
	}

	if _, err := SamplerByName("annealing"); err == nil {
		t.Fatal("expected error for unknown sampler")
	}
}

func TestResultStoreMissingID(t *testing.T) {
	store, err := NewResultStore(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}

	if err := store.Save(types.BacktestResult{}); err == nil {
		t.Fatal("expected error saving a result without an id")
	}

	if _, err := store.Get("nope"); err == nil {
		t.Fatal("expected error for missing result")
	}

	summaries, err := store.List()
	if err != nil {
		t.Fatal(err)
	}

	if len(summaries) != 0 {
		t.Fatalf("expected empty listing, got %d", len(summaries))
	}
}
