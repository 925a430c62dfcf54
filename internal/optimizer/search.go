package optimizer

import (
	"context"
	"math"
	"math/rand"

	"go.uber.org/zap"

	"github.com/coinlab/strategist/internal/logger"
	"github.com/coinlab/strategist/pkg/errors"
)

// Search drives one sweep: sample, evaluate, repeat until the budget is
// spent. Construct with NewSearch and reuse across sweeps; each Run gets its
// own seeded rng so sweeps are reproducible.
type Search struct {
	sampler Sampler
	pool    *Pool
	log     *logger.Logger

	// Trials is the evaluation budget per sweep.
	Trials int

	// Seed feeds the sampler's rng. Sweeps with the same seed, space and
	// objective produce the same trials.
	Seed int64
}

func NewSearch(sampler Sampler, pool *Pool, log *logger.Logger, trials int, seed int64) *Search {
	return &Search{
		sampler: sampler,
		pool:    pool,
		log:     log,
		Trials:  trials,
		Seed:    seed,
	}
}

// Report is the outcome of one sweep.
type Report struct {
	Best   Trial
	Trials []Trial
}

// Run executes one sweep over the space and returns every trial plus the
// best. It fails if every trial was rejected as invalid input.
func (s *Search) Run(ctx context.Context, space Space, objective Objective) (Report, error) {
	if err := space.Validate(); err != nil {
		return Report{}, err
	}

	if s.Trials < 1 {
		return Report{}, errors.New(errors.ErrCodeInvalidParameter, "trial budget must be at least 1")
	}

	rng := rand.New(rand.NewSource(s.Seed))

	var history []Trial

	for len(history) < s.Trials {
		batch := s.sampler.Plan(space, s.Trials-len(history), history, rng)
		if len(batch) == 0 {
			break
		}

		trials, err := s.pool.Evaluate(ctx, batch, objective)
		if err != nil {
			return Report{}, err
		}

		history = append(history, trials...)
	}

	best, err := bestTrial(history)
	if err != nil {
		return Report{}, err
	}

	s.log.Info("sweep finished",
		zap.String("sampler", s.sampler.Name()),
		zap.Int("trials", len(history)),
		zap.Float64("best_score", best.Score))

	return Report{Best: best, Trials: history}, nil
}

func bestTrial(history []Trial) (Trial, error) {
	best := Trial{Score: math.Inf(-1)}
	found := false

	for _, trial := range history {
		if trial.Err != nil {
			continue
		}

		if !found || trial.Score > best.Score {
			best = trial
			found = true
		}
	}

	if !found {
		return Trial{}, errors.New(errors.ErrCodeTrialFailed, "every trial in the sweep was rejected")
	}

	return best, nil
}

// AdaptiveConfig tunes the bound-widening outer loop.
type AdaptiveConfig struct {
	// EdgeFraction: a best value within this fraction of a bound's range
	// counts as "on the edge". Zero means 0.05.
	EdgeFraction float64

	// WidenFactor: how much of the current range is added past the touched
	// bound. Zero means 1.0 (the range doubles toward that side).
	WidenFactor float64

	// MaxRounds caps re-runs after the initial sweep. Zero means 3.
	MaxRounds int
}

func (c AdaptiveConfig) edgeFraction() float64 {
	if c.EdgeFraction > 0 {
		return c.EdgeFraction
	}

	return 0.05
}

func (c AdaptiveConfig) widenFactor() float64 {
	if c.WidenFactor > 0 {
		return c.WidenFactor
	}

	return 1.0
}

func (c AdaptiveConfig) maxRounds() int {
	if c.MaxRounds > 0 {
		return c.MaxRounds
	}

	return 3
}

// RunAdaptive runs a sweep, and while the best candidate sits within
// EdgeFraction of a dimension's bound, widens that bound (capped at the
// dimension's hard limits) and re-runs. The report of the final round is
// returned along with the space that round searched.
func (s *Search) RunAdaptive(ctx context.Context, space Space, objective Objective, cfg AdaptiveConfig) (Report, Space, error) {
	report, err := s.Run(ctx, space, objective)
	if err != nil {
		return Report{}, Space{}, err
	}

	for round := 0; round < cfg.maxRounds(); round++ {
		widened, changed := widenAroundBest(space, report.Best.Candidate, cfg)
		if !changed {
			break
		}

		s.log.Info("optimum near bound, widening space", zap.Int("round", round+1))

		space = widened

		report, err = s.Run(ctx, space, objective)
		if err != nil {
			return Report{}, Space{}, err
		}
	}

	return report, space, nil
}

// widenAroundBest extends any bound the best candidate is touching.
func widenAroundBest(space Space, best Candidate, cfg AdaptiveConfig) (Space, bool) {
	out := Space{Dimensions: make([]Dimension, len(space.Dimensions))}
	copy(out.Dimensions, space.Dimensions)

	changed := false

	for i, dim := range out.Dimensions {
		value, ok := best[dim.Name]
		if !ok {
			continue
		}

		span := dim.Max - dim.Min
		edge := cfg.edgeFraction() * span
		grow := cfg.widenFactor() * span

		if value-dim.Min <= edge {
			lower := dim.Min - grow
			if floor, err := dim.HardMin.Take(); err == nil {
				lower = math.Max(lower, floor)
			}

			if lower < dim.Min {
				out.Dimensions[i].Min = lower
				changed = true
			}
		}

		if dim.Max-value <= edge {
			upper := dim.Max + grow
			if ceil, err := dim.HardMax.Take(); err == nil {
				upper = math.Min(upper, ceil)
			}

			if upper > dim.Max {
				out.Dimensions[i].Max = upper
				changed = true
			}
		}
	}

	return out, changed
}
