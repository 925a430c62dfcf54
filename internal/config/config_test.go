package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coinlab/strategist/pkg/errors"
)

func TestDefaultConfigIsValid(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	rate, err := cfg.RateLimitInterval()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, rate)

	interval, err := cfg.PaperInterval()
	require.NoError(t, err)
	assert.Equal(t, time.Hour, interval)
}

func TestLoadEmptyPathReturnsDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	doc := `
api:
  addr: ":9000"
market:
  provider: coingecko
  rate_limit: 2s
risk:
  initial_capital: 50000
optimizer:
  sampler: grid
  trials: 10
  workers: 2
`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9000", cfg.API.Addr)
	assert.Equal(t, "coingecko", cfg.Market.Provider)
	assert.Equal(t, 50000.0, cfg.Risk.InitialCapital)
	assert.Equal(t, "grid", cfg.Optimizer.Sampler)
	assert.Equal(t, 10, cfg.Optimizer.Trials)

	// Untouched sections keep their defaults.
	assert.Equal(t, DefaultConfig().Data.ResultsDir, cfg.Data.ResultsDir)
	assert.Equal(t, DefaultConfig().Paper.Symbol, cfg.Paper.Symbol)
}

func TestLoadRejectsBadValues(t *testing.T) {
	write := func(doc string) string {
		path := filepath.Join(t.TempDir(), "config.yaml")
		require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

		return path
	}

	_, err := Load(write("market:\n  provider: kraken\n"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	_, err = Load(write("market:\n  rate_limit: not-a-duration\n"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfiguration))

	_, err = Load(write("risk:\n  initial_capital: -5\n"))
	require.Error(t, err)

	_, err = Load(write("optimizer:\n  sampler: annealing\n"))
	require.Error(t, err)

	_, err = Load(write(":::not yaml"))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load("/does/not/exist.yaml")
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.ErrCodeInvalidConfiguration))
}
