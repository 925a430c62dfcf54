package indicator

import (
	"sort"
	"sync"

	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// Registry manages all available indicators.
type Registry interface {
	Register(indicator Indicator) error
	Get(name types.IndicatorType) (Indicator, error)
	List() []types.IndicatorType
	Remove(name types.IndicatorType) error
}

type registryV1 struct {
	indicators map[types.IndicatorType]Indicator
	mu         sync.RWMutex
}

// NewRegistry creates an empty indicator registry.
func NewRegistry() Registry {
	return &registryV1{
		indicators: make(map[types.IndicatorType]Indicator),
		mu:         sync.RWMutex{},
	}
}

// NewDefaultRegistry creates a registry with every built-in indicator registered.
func NewDefaultRegistry() Registry {
	registry := NewRegistry()

	for _, ind := range []Indicator{
		NewSMA(),
		NewEMA(),
		NewRSI(),
		NewMACD(),
		NewBollingerBands(),
		NewATR(),
		NewADX(),
	} {
		// Registration of distinct built-ins cannot collide.
		_ = registry.Register(ind)
	}

	return registry
}

// Register adds an indicator to the registry.
func (r *registryV1) Register(indicator Indicator) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := indicator.Name()
	if _, exists := r.indicators[name]; exists {
		return errors.Newf(errors.ErrCodeIndicatorAlreadyExists, "indicator %s already registered", name)
	}

	r.indicators[name] = indicator

	return nil
}

// Get retrieves an indicator by name.
func (r *registryV1) Get(name types.IndicatorType) (Indicator, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	indicator, exists := r.indicators[name]
	if !exists {
		return nil, errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %s not found", name)
	}

	return indicator, nil
}

// List returns the names of all registered indicators, sorted.
func (r *registryV1) List() []types.IndicatorType {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]types.IndicatorType, 0, len(r.indicators))
	for name := range r.indicators {
		names = append(names, name)
	}

	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })

	return names
}

// Remove deletes an indicator from the registry.
func (r *registryV1) Remove(name types.IndicatorType) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.indicators[name]; !exists {
		return errors.Newf(errors.ErrCodeIndicatorNotFound, "indicator %s not found", name)
	}

	delete(r.indicators, name)

	return nil
}
