package signal

import (
	"github.com/go-playground/validator/v10"

	"github.com/coinlab/strategist/internal/indicator"
	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// Params carries the tunable thresholds of the primitive vocabulary plus the
// indicator window configuration. The optimizer mutates these between trials.
type Params struct {
	Indicators indicator.BundleParams `yaml:"indicators" json:"indicators"`

	RSIOversold   float64 `yaml:"rsi_oversold" json:"rsi_oversold" validate:"gt=0,lt=100"`
	RSIOverbought float64 `yaml:"rsi_overbought" json:"rsi_overbought" validate:"gt=0,lt=100"`
	ADXThreshold  float64 `yaml:"adx_threshold" json:"adx_threshold" validate:"gt=0,lt=100"`
}

// DefaultParams returns the conventional threshold configuration.
func DefaultParams() Params {
	return Params{
		Indicators:    indicator.DefaultBundleParams(),
		RSIOversold:   30,
		RSIOverbought: 70,
		ADXThreshold:  25,
	}
}

// Validate validates the Params struct.
func (p *Params) Validate() error {
	validate := validator.New()
	if err := validate.Struct(p); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidParameter, "invalid signal params", err)
	}

	if p.RSIOversold >= p.RSIOverbought {
		return errors.Newf(errors.ErrCodeInvalidParameter,
			"rsi_oversold (%f) must be below rsi_overbought (%f)", p.RSIOversold, p.RSIOverbought)
	}

	return nil
}

// Strategy binds a name to the four expression trees that produce a
// SignalSet.
type Strategy struct {
	Name       string `yaml:"name" json:"name"`
	LongEntry  Node   `yaml:"long_entry" json:"long_entry"`
	ShortEntry Node   `yaml:"short_entry" json:"short_entry"`
	LongExit   Node   `yaml:"long_exit" json:"long_exit"`
	ShortExit  Node   `yaml:"short_exit" json:"short_exit"`
}

// Validate checks all four trees.
func (s Strategy) Validate() error {
	for _, tree := range []Node{s.LongEntry, s.ShortEntry, s.LongExit, s.ShortExit} {
		if err := tree.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// evaluator caches primitive columns so a predicate shared by several trees
// is computed once per run.
type evaluator struct {
	bundle indicator.Bundle
	params Params
	memo   map[Primitive][]bool
}

func newEvaluator(bundle indicator.Bundle, params Params) *evaluator {
	return &evaluator{
		bundle: bundle,
		params: params,
		memo:   make(map[Primitive][]bool),
	}
}

func (e *evaluator) primitive(p Primitive) ([]bool, error) {
	if column, ok := e.memo[p]; ok {
		return column, nil
	}

	column, err := evaluatePrimitive(p, e.bundle, e.params)
	if err != nil {
		return nil, err
	}

	e.memo[p] = column

	return column, nil
}

// evalTree interprets one expression tree into a boolean series.
func (e *evaluator) evalTree(node Node) ([]bool, error) {
	length := len(e.bundle.Closes)

	switch node.Op {
	case OpPrimitive:
		return e.primitive(node.Primitive)

	case OpAnd:
		out := make([]bool, length)
		for i := range out {
			out[i] = len(node.Children) > 0
		}

		for _, child := range node.Children {
			column, err := e.evalTree(child)
			if err != nil {
				return nil, err
			}

			for i := range out {
				out[i] = out[i] && column[i]
			}
		}

		return out, nil

	case OpOr:
		out := make([]bool, length)

		for _, child := range node.Children {
			column, err := e.evalTree(child)
			if err != nil {
				return nil, err
			}

			for i := range out {
				out[i] = out[i] || column[i]
			}
		}

		return out, nil

	case OpNot:
		if len(node.Children) != 1 {
			return nil, errors.New(errors.ErrCodeInvalidSignalTree, "not node must have exactly 1 child")
		}

		column, err := e.evalTree(node.Children[0])
		if err != nil {
			return nil, err
		}

		out := make([]bool, length)
		for i := range out {
			out[i] = !column[i]
		}

		return out, nil

	default:
		return nil, errors.Newf(errors.ErrCodeInvalidSignalTree, "unknown node op %q", node.Op)
	}
}

// ComposeStrategy evaluates a strategy's four trees over a precomputed
// indicator bundle. The optimizer uses this entry point to reuse one bundle
// across trials that only vary thresholds.
func ComposeStrategy(strategy Strategy, bundle indicator.Bundle, params Params) (types.SignalSet, error) {
	if err := strategy.Validate(); err != nil {
		return types.SignalSet{}, err
	}

	ev := newEvaluator(bundle, params)

	longEntry, err := ev.evalTree(strategy.LongEntry)
	if err != nil {
		return types.SignalSet{}, err
	}

	shortEntry, err := ev.evalTree(strategy.ShortEntry)
	if err != nil {
		return types.SignalSet{}, err
	}

	longExit, err := ev.evalTree(strategy.LongExit)
	if err != nil {
		return types.SignalSet{}, err
	}

	shortExit, err := ev.evalTree(strategy.ShortExit)
	if err != nil {
		return types.SignalSet{}, err
	}

	return types.SignalSet{
		LongEntry:  longEntry,
		ShortEntry: shortEntry,
		LongExit:   longExit,
		ShortExit:  shortExit,
	}, nil
}

// Compose looks up a named strategy, computes the indicator bundle and
// evaluates the strategy into a SignalSet aligned with the price series.
func Compose(strategyName string, prices types.PriceSeries, params Params) (types.SignalSet, error) {
	if err := params.Validate(); err != nil {
		return types.SignalSet{}, err
	}

	strategy, err := GetStrategy(strategyName)
	if err != nil {
		return types.SignalSet{}, err
	}

	bundle, err := indicator.ComputeBundle(prices, params.Indicators)
	if err != nil {
		return types.SignalSet{}, err
	}

	return ComposeStrategy(strategy, bundle, params)
}
