// Package market ties providers and the bar cache together: cache-first
// reads, provider fetch on miss, write-back.
package market

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/coinlab/strategist/internal/logger"
	"github.com/coinlab/strategist/internal/market/cache"
	"github.com/coinlab/strategist/internal/market/provider"
	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// Service serves price history for backtests. Constructed with its registry
// and store; holds no other state.
type Service struct {
	registry *provider.Registry
	store    *cache.Store
	log      *logger.Logger
}

func NewService(registry *provider.Registry, store *cache.Store, log *logger.Logger) *Service {
	return &Service{
		registry: registry,
		store:    store,
		log:      log,
	}
}

// History returns bars for [start, end], serving from the cache when it
// already covers the range and fetching through the named provider otherwise.
// Freshly fetched bars are written back before being returned.
func (s *Service) History(ctx context.Context, providerName, symbol string, interval time.Duration, start, end time.Time) (types.PriceSeries, error) {
	cached, err := s.store.ReadRange(ctx, symbol, start, end)
	if err != nil {
		return nil, err
	}

	if covers(cached, interval, start, end) {
		s.log.Debug("serving bars from cache",
			zap.String("symbol", symbol),
			zap.Int("count", len(cached)))

		return cached, nil
	}

	p, err := s.registry.Get(providerName)
	if err != nil {
		return nil, err
	}

	fetched, err := p.FetchBars(ctx, symbol, interval, start, end)
	if err != nil {
		return nil, err
	}

	if len(fetched) == 0 {
		return nil, errors.Newf(errors.ErrCodeDataNotFound, "%s returned no bars for %s", providerName, symbol)
	}

	if err := s.store.UpsertBars(ctx, symbol, fetched); err != nil {
		return nil, err
	}

	s.log.Info("fetched bars",
		zap.String("provider", providerName),
		zap.String("symbol", symbol),
		zap.Int("count", len(fetched)))

	return fetched, nil
}

// covers reports whether the cached series plausibly spans the range: ends
// within one interval of each boundary and has no gap wider than two
// intervals. Aggregator endpoints snap candle boundaries, so this is a
// tolerance check rather than exact arithmetic.
func covers(bars types.PriceSeries, interval time.Duration, start, end time.Time) bool {
	if len(bars) < 2 {
		return false
	}

	if bars[0].Time.Sub(start) > interval || end.Sub(bars[len(bars)-1].Time) > interval {
		return false
	}

	for i := 1; i < len(bars); i++ {
		if bars[i].Time.Sub(bars[i-1].Time) > 2*interval {
			return false
		}
	}

	return true
}
