package optimizer

import (
	"context"
	"math"
	"sync"

	"go.uber.org/zap"

	"github.com/coinlab/strategist/internal/logger"
	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// Objective evaluates one candidate into a backtest result. Implementations
// must be safe for concurrent calls; the engine itself holds no state between
// runs, so a compose-then-run closure qualifies.
type Objective func(ctx context.Context, candidate Candidate) (types.BacktestResult, error)

// Trial is one finished candidate evaluation. Score is the objective value
// (total profit), or -Inf when the candidate was rejected as invalid input.
type Trial struct {
	Candidate Candidate
	Score     float64
	Result    types.BacktestResult
	Err       error
}

// Pool fans candidate evaluations out over a fixed number of workers. Results
// come back in candidate order regardless of which worker finished first.
type Pool struct {
	workers int
	log     *logger.Logger
}

func NewPool(workers int, log *logger.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}

	return &Pool{workers: workers, log: log}
}

// Evaluate runs the objective over every candidate. A candidate the engine
// rejects as invalid input scores -Inf and the sweep continues; any other
// failure aborts the whole batch.
func (p *Pool) Evaluate(ctx context.Context, candidates []Candidate, objective Objective) ([]Trial, error) {
	trials := make([]Trial, len(candidates))

	jobs := make(chan int)

	var wg sync.WaitGroup

	for w := 0; w < p.workers; w++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			for i := range jobs {
				trials[i] = p.runOne(ctx, candidates[i], objective)
			}
		}()
	}

	for i := range candidates {
		select {
		case jobs <- i:
		case <-ctx.Done():
			close(jobs)
			wg.Wait()

			return nil, errors.Wrap(errors.ErrCodeTrialFailed, "sweep cancelled", ctx.Err())
		}
	}

	close(jobs)
	wg.Wait()

	for _, trial := range trials {
		if trial.Err != nil && !errors.IsInvalidInput(trial.Err) {
			return nil, errors.Wrap(errors.ErrCodeTrialFailed, "trial failed", trial.Err)
		}
	}

	return trials, nil
}

func (p *Pool) runOne(ctx context.Context, candidate Candidate, objective Objective) Trial {
	result, err := objective(ctx, candidate)
	if err != nil {
		if errors.IsInvalidInput(err) {
			p.log.Debug("candidate rejected", zap.Error(err))

			return Trial{Candidate: candidate, Score: math.Inf(-1), Err: err}
		}

		return Trial{Candidate: candidate, Score: math.Inf(-1), Err: err}
	}

	return Trial{Candidate: candidate, Score: result.TotalProfitLoss, Result: result}
}
