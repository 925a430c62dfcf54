// Command strategist is the research CLI: fetch data, run backtests, sweep
// parameters, serve the HTTP API and paper trade.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/schollz/progressbar/v3"
	"github.com/urfave/cli/v3"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/coinlab/strategist/internal/api"
	"github.com/coinlab/strategist/internal/backtest"
	"github.com/coinlab/strategist/internal/config"
	"github.com/coinlab/strategist/internal/indicator"
	"github.com/coinlab/strategist/internal/logger"
	"github.com/coinlab/strategist/internal/market"
	"github.com/coinlab/strategist/internal/market/cache"
	"github.com/coinlab/strategist/internal/market/provider"
	"github.com/coinlab/strategist/internal/optimizer"
	"github.com/coinlab/strategist/internal/papertrade"
	"github.com/coinlab/strategist/internal/scheduler"
	sig "github.com/coinlab/strategist/internal/signal"
	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
	"github.com/coinlab/strategist/pkg/schema"
)

// app bundles the wiring every command shares.
type app struct {
	cfg     config.Config
	log     *logger.Logger
	store   *cache.Store
	market  *market.Service
	results *api.ResultStore
}

func newApp(configPath string) (*app, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	log, err := logger.NewLogger()
	if err != nil {
		return nil, err
	}

	store, err := cache.NewStore(cfg.Data.CachePath, log)
	if err != nil {
		return nil, err
	}

	rateLimit, err := cfg.RateLimitInterval()
	if err != nil {
		return nil, err
	}

	registry := provider.NewRegistry()
	registry.Register(provider.NewBinanceClient(provider.NewIntervalLimiter(rateLimit)))
	registry.Register(provider.NewCoinGeckoClient("", provider.NewIntervalLimiter(rateLimit)))

	results, err := api.NewResultStore(cfg.Data.ResultsDir)
	if err != nil {
		return nil, err
	}

	return &app{
		cfg:     cfg,
		log:     log,
		store:   store,
		market:  market.NewService(registry, store, log),
		results: results,
	}, nil
}

func (a *app) close() {
	_ = a.store.Close()
	_ = a.log.Sync()
}

func (a *app) history(ctx context.Context, cmd *cli.Command) (types.PriceSeries, time.Duration, error) {
	interval, err := time.ParseDuration(cmd.String("interval"))
	if err != nil || interval <= 0 {
		return nil, 0, errors.Newf(errors.ErrCodeInvalidParameter, "invalid interval %q", cmd.String("interval"))
	}

	providerName := cmd.String("provider")
	if providerName == "" {
		providerName = a.cfg.Market.Provider
	}

	prices, err := a.market.History(ctx, providerName, cmd.String("symbol"), interval,
		cmd.Timestamp("start").UTC(), cmd.Timestamp("end").UTC())
	if err != nil {
		return nil, 0, err
	}

	return prices, interval, nil
}

func rangeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:     "symbol",
			Aliases:  []string{"t"},
			Usage:    "Trading pair or coin id, per the provider",
			Required: true,
		},
		&cli.StringFlag{
			Name:  "provider",
			Aliases: []string{"p"},
			Usage: "Market data provider (binance, coingecko); defaults to the configured one",
		},
		&cli.StringFlag{
			Name:  "interval",
			Aliases: []string{"i"},
			Usage: "Bar interval as a Go duration (1h, 4h, 24h)",
			Value: "1h",
		},
		&cli.TimestampFlag{
			Name:     "start",
			Aliases:  []string{"s"},
			Usage:    "Range start in `YYYY-MM-DD` format",
			Required: true,
			Config: cli.TimestampConfig{
				Layouts: []string{"2006-01-02", time.RFC3339},
			},
		},
		&cli.TimestampFlag{
			Name:    "end",
			Aliases: []string{"e"},
			Usage:   "Range end in `YYYY-MM-DD` format. Defaults to now.",
			Value:   time.Now(),
			Config: cli.TimestampConfig{
				Layouts: []string{"2006-01-02", time.RFC3339},
			},
		},
	}
}

func backtestAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd.String("config"))
	if err != nil {
		return err
	}
	defer a.close()

	prices, _, err := a.history(ctx, cmd)
	if err != nil {
		return err
	}

	strategyName := cmd.String("strategy")

	strategy, err := sig.GetStrategy(strategyName)
	if err != nil {
		return err
	}

	params := a.cfg.Signal

	bundle, err := indicator.ComputeBundle(prices, params.Indicators)
	if err != nil {
		return err
	}

	signals, err := sig.ComposeStrategy(strategy, bundle, params)
	if err != nil {
		return err
	}

	bar := progressbar.Default(int64(len(prices)), "replaying bars")
	progress := backtest.ProgressFunc(func(current, _ int) {
		_ = bar.Set(current)
	})

	engine := backtest.NewEngine(a.log)

	result, err := engine.RunWithProgress(prices, signals, a.cfg.Risk, bundle.ATR, optional.Some(progress))
	if err != nil {
		return err
	}

	result.ID = uuid.New().String()
	result.Timestamp = time.Now().UTC()
	result.Symbol = cmd.String("symbol")
	result.Strategy = strategyName

	if err := a.results.Save(result); err != nil {
		return err
	}

	return printJSON(result)
}

func optimizeAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd.String("config"))
	if err != nil {
		return err
	}
	defer a.close()

	prices, _, err := a.history(ctx, cmd)
	if err != nil {
		return err
	}

	space, err := loadSpace(cmd.String("space"))
	if err != nil {
		return err
	}

	objective, err := optimizer.NewBacktestObjective(prices, cmd.String("strategy"), a.cfg.Risk, a.cfg.Signal)
	if err != nil {
		return err
	}

	samplerName := cmd.String("sampler")
	if samplerName == "" {
		samplerName = a.cfg.Optimizer.Sampler
	}

	sampler, err := api.SamplerByName(samplerName)
	if err != nil {
		return err
	}

	trials := int(cmd.Int("trials"))
	if trials == 0 {
		trials = a.cfg.Optimizer.Trials
	}

	bar := progressbar.Default(int64(trials), "evaluating candidates")

	var mu sync.Mutex

	counted := func(ctx context.Context, candidate optimizer.Candidate) (types.BacktestResult, error) {
		result, err := objective(ctx, candidate)

		mu.Lock()
		_ = bar.Add(1)
		mu.Unlock()

		return result, err
	}

	search := optimizer.NewSearch(sampler,
		optimizer.NewPool(a.cfg.Optimizer.Workers, a.log), a.log, trials, a.cfg.Optimizer.Seed)

	var report optimizer.Report
	if cmd.Bool("adaptive") {
		report, _, err = search.RunAdaptive(ctx, space, counted, optimizer.AdaptiveConfig{})
	} else {
		report, err = search.Run(ctx, space, counted)
	}

	if err != nil {
		return err
	}

	best := report.Best.Result
	best.ID = uuid.New().String()
	best.Timestamp = time.Now().UTC()
	best.Symbol = cmd.String("symbol")
	best.Strategy = cmd.String("strategy")

	if err := a.results.Save(best); err != nil {
		return err
	}

	return printJSON(map[string]any{
		"best_candidate": report.Best.Candidate,
		"best_score":     report.Best.Score,
		"best_result_id": best.ID,
		"trial_count":    len(report.Trials),
	})
}

func fetchAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd.String("config"))
	if err != nil {
		return err
	}
	defer a.close()

	prices, _, err := a.history(ctx, cmd)
	if err != nil {
		return err
	}

	a.log.Info("bars cached",
		zap.String("symbol", cmd.String("symbol")),
		zap.Int("count", len(prices)),
		zap.Time("first", prices[0].Time),
		zap.Time("last", prices[len(prices)-1].Time))

	return nil
}

func serveAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd.String("config"))
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	server := api.NewServer(a.cfg, a.market, a.results, a.log)

	return server.ListenAndServe(ctx)
}

func paperAction(ctx context.Context, cmd *cli.Command) error {
	a, err := newApp(cmd.String("config"))
	if err != nil {
		return err
	}
	defer a.close()

	interval, err := a.cfg.PaperInterval()
	if err != nil {
		return err
	}

	trader, err := papertrade.NewTrader(a.market, papertrade.Config{
		Provider:     a.cfg.Market.Provider,
		Symbol:       a.cfg.Paper.Symbol,
		Interval:     interval,
		Strategy:     a.cfg.Paper.Strategy,
		LookbackBars: a.cfg.Paper.LookbackBars,
		JournalPath:  a.cfg.Paper.JournalPath,
	}, a.cfg.Risk, a.cfg.Signal, a.log)
	if err != nil {
		return err
	}

	sched := scheduler.NewScheduler(a.log)

	if _, err := sched.Add("paper-tick", interval, trader.Tick); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := sched.Start(ctx); err != nil {
		return err
	}

	a.log.Info("paper trading session started",
		zap.String("symbol", a.cfg.Paper.Symbol),
		zap.String("strategy", a.cfg.Paper.Strategy),
		zap.Duration("interval", interval))

	<-ctx.Done()
	sched.Stop()

	return printJSON(trader.Status())
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	var (
		doc string
		err error
	)

	switch target := cmd.String("type"); target {
	case "config":
		doc, err = schema.ToJSONSchema(config.Config{})
	case "risk":
		doc, err = schema.ToJSONSchema(types.RiskParameters{})
	case "signal":
		doc, err = schema.ToJSONSchema(sig.Params{})
	case "space":
		doc, err = schema.ToJSONSchema(optimizer.Space{})
	default:
		return errors.Newf(errors.ErrCodeInvalidParameter, "unknown schema type %q", target)
	}

	if err != nil {
		return err
	}

	fmt.Println(doc)

	return nil
}

// loadSpace reads an optimizer space document from YAML.
func loadSpace(path string) (optimizer.Space, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return optimizer.Space{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read space file %s", path)
	}

	var space optimizer.Space
	if err := yaml.Unmarshal(raw, &space); err != nil {
		return optimizer.Space{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse space file", err)
	}

	if err := space.Validate(); err != nil {
		return optimizer.Space{}, err
	}

	return space, nil
}

func printJSON(v any) error {
	raw, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	fmt.Println(string(raw))

	return nil
}

func main() {
	configFlag := &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to the YAML config file",
	}

	strategyFlag := &cli.StringFlag{
		Name:     "strategy",
		Usage:    "Named strategy to evaluate",
		Required: true,
	}

	cmd := &cli.Command{
		Name:  "strategist",
		Usage: "Crypto strategy research toolkit",
		Commands: []*cli.Command{
			{
				Name:   "backtest",
				Usage:  "Replay a strategy over historical bars",
				Flags:  append(rangeFlags(), configFlag, strategyFlag),
				Action: backtestAction,
			},
			{
				Name:  "optimize",
				Usage: "Sweep a parameter space for the best backtest",
				Flags: append(rangeFlags(), configFlag, strategyFlag,
					&cli.StringFlag{
						Name:     "space",
						Usage:    "Path to a YAML search space document",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "sampler",
						Usage: "Sampler to use (grid, random, tpe); defaults to the configured one",
					},
					&cli.IntFlag{
						Name:  "trials",
						Usage: "Trial budget; defaults to the configured one",
					},
					&cli.BoolFlag{
						Name:  "adaptive",
						Usage: "Widen bounds when the optimum lands on a boundary",
					}),
				Action: optimizeAction,
			},
			{
				Name:   "fetch",
				Usage:  "Download bars into the local cache",
				Flags:  append(rangeFlags(), configFlag),
				Action: fetchAction,
			},
			{
				Name:   "serve",
				Usage:  "Serve the HTTP API",
				Flags:  []cli.Flag{configFlag},
				Action: serveAction,
			},
			{
				Name:   "paper",
				Usage:  "Run a paper trading session with the configured strategy",
				Flags:  []cli.Flag{configFlag},
				Action: paperAction,
			},
			{
				Name:  "schema",
				Usage: "Print the JSON schema of a configuration document",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "type",
						Usage: "Which schema to print (config, risk, signal, space)",
						Value: "config",
					},
				},
				Action: schemaAction,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
