package optimizer

import (
	"math"
	"math/rand"
	"sort"
)

// Sampler proposes the next batch of candidates. Plan is called repeatedly
// until the trial budget is spent; remaining is how many trials the budget
// still allows and history holds every finished trial so far. A sampler may
// return fewer candidates than remaining but never more.
type Sampler interface {
	Name() string
	Plan(space Space, remaining int, history []Trial, rng *rand.Rand) []Candidate
}

// GridSampler enumerates the cartesian product of evenly spaced points on
// every dimension, truncated to the trial budget.
type GridSampler struct{}

func (GridSampler) Name() string { return "grid" }

func (GridSampler) Plan(space Space, remaining int, history []Trial, _ *rand.Rand) []Candidate {
	if len(history) > 0 {
		// The grid is exhaustive on the first call.
		return nil
	}

	axes := make([][]float64, len(space.Dimensions))
	for i, dim := range space.Dimensions {
		axes[i] = gridAxis(dim)
	}

	var out []Candidate

	indices := make([]int, len(axes))
	for {
		candidate := make(Candidate, len(axes))
		for i, dim := range space.Dimensions {
			candidate[dim.Name] = axes[i][indices[i]]
		}

		out = append(out, candidate)
		if len(out) == remaining {
			return out
		}

		// Odometer increment over the axes.
		i := len(indices) - 1
		for ; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(axes[i]) {
				break
			}

			indices[i] = 0
		}

		if i < 0 {
			return out
		}
	}
}

func gridAxis(dim Dimension) []float64 {
	points := dim.gridPoints()
	if points == 1 {
		return []float64{dim.quantize(dim.Min)}
	}

	step := (dim.Max - dim.Min) / float64(points-1)

	values := make([]float64, 0, points)
	for i := 0; i < points; i++ {
		value := dim.quantize(dim.Min + float64(i)*step)
		if len(values) == 0 || values[len(values)-1] != value {
			// Integer rounding can collapse neighbouring points.
			values = append(values, value)
		}
	}

	return values
}

// RandomSampler draws every candidate uniformly from the space.
type RandomSampler struct{}

func (RandomSampler) Name() string { return "random" }

func (RandomSampler) Plan(space Space, remaining int, history []Trial, rng *rand.Rand) []Candidate {
	if len(history) > 0 {
		return nil
	}

	out := make([]Candidate, 0, remaining)
	for i := 0; i < remaining; i++ {
		out = append(out, uniformCandidate(space, rng))
	}

	return out
}

func uniformCandidate(space Space, rng *rand.Rand) Candidate {
	candidate := make(Candidate, len(space.Dimensions))
	for _, dim := range space.Dimensions {
		candidate[dim.Name] = dim.quantize(dim.Min + rng.Float64()*(dim.Max-dim.Min))
	}

	return candidate
}

// TPESampler is a light tree-structured Parzen estimator. After a uniform
// startup phase it splits history at a score quantile, fits one kernel
// density over the good trials and one over the rest, and proposes the
// candidate that maximizes the good/bad density ratio among a pool of draws
// from the good density. Dimensions are treated independently.
type TPESampler struct {
	// StartupTrials is how many uniform trials seed the densities. Zero
	// means 10.
	StartupTrials int

	// Gamma is the fraction of history counted as good. Zero means 0.25.
	Gamma float64

	// CandidatePool is how many draws compete per proposal. Zero means 24.
	CandidatePool int
}

func (TPESampler) Name() string { return "tpe" }

func (t TPESampler) startup() int {
	if t.StartupTrials > 0 {
		return t.StartupTrials
	}

	return 10
}

func (t TPESampler) gamma() float64 {
	if t.Gamma > 0 {
		return t.Gamma
	}

	return 0.25
}

func (t TPESampler) pool() int {
	if t.CandidatePool > 0 {
		return t.CandidatePool
	}

	return 24
}

func (t TPESampler) Plan(space Space, remaining int, history []Trial, rng *rand.Rand) []Candidate {
	if seed := t.startup() - len(history); seed > 0 {
		if seed > remaining {
			seed = remaining
		}

		out := make([]Candidate, 0, seed)
		for i := 0; i < seed; i++ {
			out = append(out, uniformCandidate(space, rng))
		}

		return out
	}

	// Model-based phase proposes one candidate at a time so each proposal
	// sees the freshest history.
	good, bad := t.split(history)

	candidate := make(Candidate, len(space.Dimensions))
	for _, dim := range space.Dimensions {
		candidate[dim.Name] = t.proposeDimension(dim, good, bad, rng)
	}

	return []Candidate{candidate}
}

// split partitions finished trials into the top gamma fraction and the rest.
// Trials that failed with an invalid-input score of -Inf sort to the bottom
// naturally.
func (t TPESampler) split(history []Trial) (good, bad []Trial) {
	sorted := make([]Trial, len(history))
	copy(sorted, history)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Score > sorted[j].Score })

	cut := int(math.Ceil(t.gamma() * float64(len(sorted))))
	if cut < 1 {
		cut = 1
	}

	return sorted[:cut], sorted[cut:]
}

func (t TPESampler) proposeDimension(dim Dimension, good, bad []Trial, rng *rand.Rand) float64 {
	bandwidth := (dim.Max - dim.Min) / math.Max(1, math.Sqrt(float64(len(good))))

	best := math.NaN()
	bestRatio := math.Inf(-1)

	for i := 0; i < t.pool(); i++ {
		// Draw from the good density: a random good trial's value blurred by
		// the kernel bandwidth.
		center := good[rng.Intn(len(good))].Candidate[dim.Name]
		sample := dim.quantize(center + rng.NormFloat64()*bandwidth)

		ratio := kernelDensity(sample, good, dim.Name, bandwidth) /
			math.Max(kernelDensity(sample, bad, dim.Name, bandwidth), 1e-12)
		if ratio > bestRatio {
			bestRatio = ratio
			best = sample
		}
	}

	return best
}

func kernelDensity(x float64, trials []Trial, name string, bandwidth float64) float64 {
	if len(trials) == 0 || bandwidth <= 0 {
		return 0
	}

	var sum float64

	for _, trial := range trials {
		z := (x - trial.Candidate[name]) / bandwidth
		sum += math.Exp(-0.5 * z * z)
	}

	return sum / (float64(len(trials)) * bandwidth * math.Sqrt(2*math.Pi))
}
