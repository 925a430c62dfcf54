// Package api exposes the toolkit over HTTP: run backtests and optimizer
// sweeps, list strategies, browse persisted results. The server is a
// constructed service with injected dependencies; nothing is global.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/coinlab/strategist/internal/backtest"
	"github.com/coinlab/strategist/internal/config"
	"github.com/coinlab/strategist/internal/indicator"
	"github.com/coinlab/strategist/internal/logger"
	"github.com/coinlab/strategist/internal/market"
	"github.com/coinlab/strategist/internal/optimizer"
	"github.com/coinlab/strategist/internal/signal"
	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// Server is the HTTP surface over the market service, engine, optimizer and
// result store.
type Server struct {
	log     *logger.Logger
	cfg     config.Config
	market  *market.Service
	results *ResultStore
	router  *mux.Router
	httpSrv *http.Server
}

func NewServer(cfg config.Config, marketSvc *market.Service, results *ResultStore, log *logger.Logger) *Server {
	s := &Server{
		log:     log,
		cfg:     cfg,
		market:  marketSvc,
		results: results,
		router:  mux.NewRouter(),
	}

	s.routes()

	return s
}

func (s *Server) routes() {
	s.router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	v1 := s.router.PathPrefix("/api/v1").Subrouter()
	v1.HandleFunc("/strategies", s.handleStrategies).Methods(http.MethodGet)
	v1.HandleFunc("/backtest", s.handleBacktest).Methods(http.MethodPost)
	v1.HandleFunc("/optimize", s.handleOptimize).Methods(http.MethodPost)
	v1.HandleFunc("/results", s.handleResults).Methods(http.MethodGet)
	v1.HandleFunc("/results/{id}", s.handleResult).Methods(http.MethodGet)
}

// Handler exposes the router, mostly for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ListenAndServe blocks until the context is cancelled or the listener
// fails.
func (s *Server) ListenAndServe(ctx context.Context) error {
	s.httpSrv = &http.Server{
		Addr:              s.cfg.API.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		_ = s.httpSrv.Shutdown(shutdownCtx)
	}()

	s.log.Info("api server listening", zap.String("addr", s.cfg.API.Addr))

	if err := s.httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(errors.ErrCodeInternalError, "api server failed", err)
	}

	return nil
}

// BacktestRequest is the POST /api/v1/backtest body. Omitted risk and signal
// sections fall back to the server's configured defaults.
type BacktestRequest struct {
	Provider string `json:"provider,omitempty"`
	Symbol   string `json:"symbol"`
	Strategy string `json:"strategy"`
	Interval string `json:"interval"`
	Start    string `json:"start"`
	End      string `json:"end"`

	Risk   *types.RiskParameters `json:"risk,omitempty"`
	Signal *signal.Params        `json:"signal,omitempty"`
}

// OptimizeRequest is the POST /api/v1/optimize body.
type OptimizeRequest struct {
	BacktestRequest

	Space    optimizer.Space `json:"space"`
	Sampler  string          `json:"sampler,omitempty"`
	Trials   int             `json:"trials,omitempty"`
	Workers  int             `json:"workers,omitempty"`
	Seed     int64           `json:"seed,omitempty"`
	Adaptive bool            `json:"adaptive,omitempty"`
}

// OptimizeResponse reports the sweep outcome. The best run's full result is
// persisted and echoed back.
type OptimizeResponse struct {
	BestCandidate optimizer.Candidate  `json:"best_candidate"`
	BestScore     float64              `json:"best_score"`
	BestResult    types.BacktestResult `json:"best_result"`
	TrialCount    int                  `json:"trial_count"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleStrategies(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"strategies": signal.ListStrategies(),
		"primitives": signal.AllPrimitives(),
	})
}

func (s *Server) handleBacktest(w http.ResponseWriter, r *http.Request) {
	var req BacktestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeBadRequest, "malformed request body", err))

		return
	}

	run, err := s.runBacktest(r.Context(), req)
	if err != nil {
		s.writeError(w, err)

		return
	}

	if err := s.results.Save(run); err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, run)
}

func (s *Server) handleOptimize(w http.ResponseWriter, r *http.Request) {
	var req OptimizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, errors.Wrap(errors.ErrCodeBadRequest, "malformed request body", err))

		return
	}

	resp, err := s.runOptimize(r.Context(), req)
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleResults(w http.ResponseWriter, _ *http.Request) {
	summaries, err := s.results.List()
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, map[string]any{"results": summaries})
}

func (s *Server) handleResult(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	result, err := s.results.Get(id)
	if err != nil {
		s.writeError(w, err)

		return
	}

	writeJSON(w, http.StatusOK, result)
}

// resolve fills request defaults and parses the time range.
func (s *Server) resolve(req *BacktestRequest) (time.Duration, time.Time, time.Time, types.RiskParameters, signal.Params, error) {
	if req.Provider == "" {
		req.Provider = s.cfg.Market.Provider
	}

	if req.Symbol == "" || req.Strategy == "" {
		return 0, time.Time{}, time.Time{}, types.RiskParameters{}, signal.Params{},
			errors.New(errors.ErrCodeBadRequest, "symbol and strategy are required")
	}

	interval, err := time.ParseDuration(req.Interval)
	if err != nil || interval <= 0 {
		return 0, time.Time{}, time.Time{}, types.RiskParameters{}, signal.Params{},
			errors.Newf(errors.ErrCodeBadRequest, "invalid interval %q", req.Interval)
	}

	start, err := time.Parse(time.RFC3339, req.Start)
	if err != nil {
		return 0, time.Time{}, time.Time{}, types.RiskParameters{}, signal.Params{},
			errors.Newf(errors.ErrCodeBadRequest, "invalid start time %q", req.Start)
	}

	end, err := time.Parse(time.RFC3339, req.End)
	if err != nil {
		return 0, time.Time{}, time.Time{}, types.RiskParameters{}, signal.Params{},
			errors.Newf(errors.ErrCodeBadRequest, "invalid end time %q", req.End)
	}

	risk := s.cfg.Risk
	if req.Risk != nil {
		risk = *req.Risk
	}

	params := s.cfg.Signal
	if req.Signal != nil {
		params = *req.Signal
	}

	return interval, start, end, risk, params, nil
}

func (s *Server) runBacktest(ctx context.Context, req BacktestRequest) (types.BacktestResult, error) {
	interval, start, end, risk, params, err := s.resolve(&req)
	if err != nil {
		return types.BacktestResult{}, err
	}

	strategy, err := signal.GetStrategy(req.Strategy)
	if err != nil {
		return types.BacktestResult{}, err
	}

	prices, err := s.market.History(ctx, req.Provider, req.Symbol, interval, start, end)
	if err != nil {
		return types.BacktestResult{}, err
	}

	bundle, err := indicator.ComputeBundle(prices, params.Indicators)
	if err != nil {
		return types.BacktestResult{}, err
	}

	signals, err := signal.ComposeStrategy(strategy, bundle, params)
	if err != nil {
		return types.BacktestResult{}, err
	}

	engine := backtest.NewEngine(s.log)

	result, err := engine.Run(prices, signals, risk, bundle.ATR)
	if err != nil {
		return types.BacktestResult{}, err
	}

	result.ID = uuid.New().String()
	result.Timestamp = time.Now().UTC()
	result.Symbol = req.Symbol
	result.Strategy = req.Strategy

	return result, nil
}

func (s *Server) runOptimize(ctx context.Context, req OptimizeRequest) (OptimizeResponse, error) {
	interval, start, end, risk, params, err := s.resolve(&req.BacktestRequest)
	if err != nil {
		return OptimizeResponse{}, err
	}

	prices, err := s.market.History(ctx, req.Provider, req.Symbol, interval, start, end)
	if err != nil {
		return OptimizeResponse{}, err
	}

	objective, err := optimizer.NewBacktestObjective(prices, req.Strategy, risk, params)
	if err != nil {
		return OptimizeResponse{}, err
	}

	samplerName := req.Sampler
	if samplerName == "" {
		samplerName = s.cfg.Optimizer.Sampler
	}

	sampler, err := SamplerByName(samplerName)
	if err != nil {
		return OptimizeResponse{}, err
	}

	trials := req.Trials
	if trials == 0 {
		trials = s.cfg.Optimizer.Trials
	}

	workers := req.Workers
	if workers == 0 {
		workers = s.cfg.Optimizer.Workers
	}

	seed := req.Seed
	if seed == 0 {
		seed = s.cfg.Optimizer.Seed
	}

	search := optimizer.NewSearch(sampler, optimizer.NewPool(workers, s.log), s.log, trials, seed)

	var report optimizer.Report
	if req.Adaptive {
		report, _, err = search.RunAdaptive(ctx, req.Space, objective, optimizer.AdaptiveConfig{})
	} else {
		report, err = search.Run(ctx, req.Space, objective)
	}

	if err != nil {
		return OptimizeResponse{}, err
	}

	best := report.Best.Result
	best.ID = uuid.New().String()
	best.Timestamp = time.Now().UTC()
	best.Symbol = req.Symbol
	best.Strategy = req.Strategy

	if err := s.results.Save(best); err != nil {
		return OptimizeResponse{}, err
	}

	return OptimizeResponse{
		BestCandidate: report.Best.Candidate,
		BestScore:     report.Best.Score,
		BestResult:    best,
		TrialCount:    len(report.Trials),
	}, nil
}

// SamplerByName maps a config or request string onto a sampler.
func SamplerByName(name string) (optimizer.Sampler, error) {
	switch name {
	case "grid":
		return optimizer.GridSampler{}, nil
	case "random":
		return optimizer.RandomSampler{}, nil
	case "tpe":
		return optimizer.TPESampler{}, nil
	default:
		return nil, errors.Newf(errors.ErrCodeBadRequest, "unknown sampler %q", name)
	}
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string           `json:"error"`
	Code  errors.ErrorCode `json:"code"`
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError

	code := errors.GetCode(err)

	switch {
	case errors.IsInvalidInput(err),
		code == errors.ErrCodeBadRequest,
		code == errors.ErrCodeStrategyNotFound,
		code == errors.ErrCodeProviderUnknown,
		code == errors.ErrCodeEmptySearchSpace,
		code == errors.ErrCodeInvalidDimension:
		status = http.StatusBadRequest
	case code == errors.ErrCodeResultNotFound,
		code == errors.ErrCodeDataNotFound:
		status = http.StatusNotFound
	}

	if status == http.StatusInternalServerError {
		s.log.Error("request failed", zap.Error(err))
	}

	writeJSON(w, status, errorResponse{Error: err.Error(), Code: code})
}
