// Package optimizer searches a parameter space for the risk and signal
// configuration that maximizes backtested profit. Samplers propose candidate
// parameter bundles, a worker pool evaluates each candidate as one
// compose-then-run pipeline, and an adaptive outer loop widens a dimension's
// bounds when the optimum lands on a boundary.
package optimizer

import (
	"math"
	"sort"

	"github.com/moznion/go-optional"

	"github.com/coinlab/strategist/pkg/errors"
)

// Dimension describes one axis of the search space. Integer dimensions are
// sampled continuously and rounded, matching how windows and periods behave.
// HardMin/HardMax cap adaptive widening; Min/Max are the current sampling
// bounds and may grow between adaptive rounds.
type Dimension struct {
	Name    string  `yaml:"name" json:"name"`
	Min     float64 `yaml:"min" json:"min"`
	Max     float64 `yaml:"max" json:"max"`
	Integer bool    `yaml:"integer,omitempty" json:"integer,omitempty"`

	// GridPoints is how many evenly spaced values the grid sampler takes on
	// this axis. Zero means the default of 5.
	GridPoints int `yaml:"grid_points,omitempty" json:"grid_points,omitempty"`

	HardMin optional.Option[float64] `yaml:"hard_min,omitempty" json:"hard_min,omitempty"`
	HardMax optional.Option[float64] `yaml:"hard_max,omitempty" json:"hard_max,omitempty"`
}

const defaultGridPoints = 5

func (d Dimension) gridPoints() int {
	if d.GridPoints > 0 {
		return d.GridPoints
	}

	return defaultGridPoints
}

// quantize rounds a raw sample onto the dimension's domain.
func (d Dimension) quantize(value float64) float64 {
	value = math.Max(d.Min, math.Min(d.Max, value))
	if d.Integer {
		value = math.Round(value)
	}

	return value
}

func (d Dimension) validate() error {
	if d.Name == "" {
		return errors.New(errors.ErrCodeInvalidDimension, "dimension name must not be empty")
	}

	if !(d.Min < d.Max) || math.IsNaN(d.Min) || math.IsNaN(d.Max) {
		return errors.Newf(errors.ErrCodeInvalidDimension,
			"dimension %q: min (%f) must be below max (%f)", d.Name, d.Min, d.Max)
	}

	if floor, err := d.HardMin.Take(); err == nil && floor > d.Min {
		return errors.Newf(errors.ErrCodeInvalidDimension,
			"dimension %q: hard_min (%f) above min (%f)", d.Name, floor, d.Min)
	}

	if ceil, err := d.HardMax.Take(); err == nil && ceil < d.Max {
		return errors.Newf(errors.ErrCodeInvalidDimension,
			"dimension %q: hard_max (%f) below max (%f)", d.Name, ceil, d.Max)
	}

	return nil
}

// Space is the full set of dimensions a sampler draws from.
type Space struct {
	Dimensions []Dimension `yaml:"dimensions" json:"dimensions"`
}

// Validate checks the space is non-empty, well-ordered and free of duplicate
// dimension names.
func (s Space) Validate() error {
	if len(s.Dimensions) == 0 {
		return errors.New(errors.ErrCodeEmptySearchSpace, "search space has no dimensions")
	}

	seen := make(map[string]bool, len(s.Dimensions))

	for _, dim := range s.Dimensions {
		if err := dim.validate(); err != nil {
			return err
		}

		if seen[dim.Name] {
			return errors.Newf(errors.ErrCodeInvalidDimension, "duplicate dimension %q", dim.Name)
		}

		seen[dim.Name] = true
	}

	return nil
}

// Candidate is one concrete point in the space, keyed by dimension name.
type Candidate map[string]float64

// Names returns the candidate's dimension names, sorted, so log lines and
// grid enumeration order are stable.
func (c Candidate) Names() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// clone returns an independent copy.
func (c Candidate) clone() Candidate {
	out := make(Candidate, len(c))
	for name, value := range c {
		out[name] = value
	}

	return out
}
