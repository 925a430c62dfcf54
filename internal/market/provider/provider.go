// Package provider fetches OHLC history from exchange and aggregator APIs.
// Providers are registered by name on a constructed registry; nothing here is
// a package-level singleton, so tests and the API server can each hold their
// own wiring.
package provider

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// Provider fetches bars for one symbol over a closed time range. The returned
// series is ordered by time ascending and satisfies types.PriceSeries
// validation.
type Provider interface {
	Name() string
	FetchBars(ctx context.Context, symbol string, interval time.Duration, start, end time.Time) (types.PriceSeries, error)
}

// Registry maps provider names to implementations.
type Registry struct {
	mu        sync.RWMutex
	providers map[string]Provider
}

func NewRegistry() *Registry {
	return &Registry{providers: make(map[string]Provider)}
}

// Register adds a provider, replacing any previous provider with that name.
func (r *Registry) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.providers[p.Name()] = p
}

// Get returns a registered provider by name.
func (r *Registry) Get(name string) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.providers[name]
	if !ok {
		return nil, errors.Newf(errors.ErrCodeProviderUnknown, "unknown market data provider %q", name)
	}

	return p, nil
}

// List returns the registered provider names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
