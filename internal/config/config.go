// Package config loads the toolkit's YAML configuration file. Values omitted
// from the file keep their defaults, so a minimal config can be just an API
// address or a provider name.
package config

import (
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/coinlab/strategist/internal/signal"
	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// APIConfig configures the HTTP server.
type APIConfig struct {
	Addr string `yaml:"addr" json:"addr" validate:"required"`
}

// DataConfig locates the on-disk state.
type DataConfig struct {
	// CachePath is the DuckDB bar cache file.
	CachePath string `yaml:"cache_path" json:"cache_path" validate:"required"`

	// ResultsDir holds backtest result JSON files.
	ResultsDir string `yaml:"results_dir" json:"results_dir" validate:"required"`
}

// MarketConfig selects the default provider and its pacing.
type MarketConfig struct {
	Provider string `yaml:"provider" json:"provider" validate:"oneof=binance coingecko"`

	// RateLimit is the minimum spacing between API calls, as a Go duration
	// string.
	RateLimit string `yaml:"rate_limit" json:"rate_limit" validate:"required"`
}

// OptimizerConfig sets sweep defaults; the CLI can override per run.
type OptimizerConfig struct {
	Sampler string `yaml:"sampler" json:"sampler" validate:"oneof=grid random tpe"`
	Trials  int    `yaml:"trials" json:"trials" validate:"gt=0"`
	Workers int    `yaml:"workers" json:"workers" validate:"gt=0"`
	Seed    int64  `yaml:"seed" json:"seed"`
}

// PaperConfig sets the paper trading session defaults.
type PaperConfig struct {
	Symbol       string `yaml:"symbol" json:"symbol" validate:"required"`
	Strategy     string `yaml:"strategy" json:"strategy" validate:"required"`
	Interval     string `yaml:"interval" json:"interval" validate:"required"`
	LookbackBars int    `yaml:"lookback_bars" json:"lookback_bars" validate:"gt=1"`
	JournalPath  string `yaml:"journal_path" json:"journal_path" validate:"required"`
}

// Config is the root configuration document.
type Config struct {
	API       APIConfig             `yaml:"api" json:"api"`
	Data      DataConfig            `yaml:"data" json:"data"`
	Market    MarketConfig          `yaml:"market" json:"market"`
	Risk      types.RiskParameters  `yaml:"risk" json:"risk"`
	Signal    signal.Params         `yaml:"signal" json:"signal"`
	Optimizer OptimizerConfig       `yaml:"optimizer" json:"optimizer"`
	Paper     PaperConfig           `yaml:"paper" json:"paper"`
}

// DefaultConfig returns a complete configuration usable without a file.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{Addr: ":8089"},
		Data: DataConfig{
			CachePath:  "data/bars.duckdb",
			ResultsDir: "data/results",
		},
		Market: MarketConfig{
			Provider:  "binance",
			RateLimit: "500ms",
		},
		Risk:   types.DefaultRiskParameters(),
		Signal: signal.DefaultParams(),
		Optimizer: OptimizerConfig{
			Sampler: "tpe",
			Trials:  50,
			Workers: 4,
			Seed:    1,
		},
		Paper: PaperConfig{
			Symbol:       "BTCUSDT",
			Strategy:     "trend-follow",
			Interval:     "1h",
			LookbackBars: 200,
			JournalPath:  "data/paper-journal.jsonl",
		},
	}
}

// Load reads a YAML file over the defaults and validates the result. An
// empty path returns the validated defaults.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, errors.Wrapf(errors.ErrCodeInvalidConfiguration, err, "failed to read config file %s", path)
		}

		if err := yaml.Unmarshal(raw, &cfg); err != nil {
			return Config{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse config file", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks the document, including the embedded risk and signal
// parameter bundles.
func (c *Config) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid configuration", err)
	}

	if err := c.Risk.Validate(); err != nil {
		return err
	}

	if err := c.Signal.Validate(); err != nil {
		return err
	}

	if _, err := c.RateLimitInterval(); err != nil {
		return err
	}

	if _, err := c.PaperInterval(); err != nil {
		return err
	}

	return nil
}

// RateLimitInterval parses the market rate limit duration.
func (c *Config) RateLimitInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Market.RateLimit)
	if err != nil || d <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidConfiguration, "invalid market rate_limit %q", c.Market.RateLimit)
	}

	return d, nil
}

// PaperInterval parses the paper trading bar interval.
func (c *Config) PaperInterval() (time.Duration, error) {
	d, err := time.ParseDuration(c.Paper.Interval)
	if err != nil || d <= 0 {
		return 0, errors.Newf(errors.ErrCodeInvalidConfiguration, "invalid paper interval %q", c.Paper.Interval)
	}

	return d, nil
}
