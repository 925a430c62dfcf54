package api

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// ResultStore persists backtest results as one JSON file per run id under a
// directory.
type ResultStore struct {
	dir string
}

func NewResultStore(dir string) (*ResultStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrapf(errors.ErrCodeResultWriteFail, err, "failed to create results dir %s", dir)
	}

	return &ResultStore{dir: dir}, nil
}

func (s *ResultStore) path(id string) string {
	return filepath.Join(s.dir, id+".json")
}

// Save writes one result keyed by its id.
func (s *ResultStore) Save(result types.BacktestResult) error {
	if result.ID == "" {
		return errors.New(errors.ErrCodeResultWriteFail, "result has no id")
	}

	if err := types.WriteBacktestResult(s.path(result.ID), result); err != nil {
		return errors.Wrap(errors.ErrCodeResultWriteFail, "failed to persist result", err)
	}

	return nil
}

// Get loads one result by id.
func (s *ResultStore) Get(id string) (types.BacktestResult, error) {
	if _, err := os.Stat(s.path(id)); err != nil {
		return types.BacktestResult{}, errors.Newf(errors.ErrCodeResultNotFound, "no result with id %s", id)
	}

	result, err := types.ReadBacktestResult(s.path(id))
	if err != nil {
		return types.BacktestResult{}, errors.Wrap(errors.ErrCodeResultNotFound, "failed to load result", err)
	}

	return result, nil
}

// ResultSummary is the listing view of a stored result, without the trade
// log.
type ResultSummary struct {
	ID              string  `json:"id"`
	Symbol          string  `json:"symbol"`
	Strategy        string  `json:"strategy"`
	TotalProfitLoss float64 `json:"total_profit_loss"`
	TotalTrades     int     `json:"total_trades"`
	WinRate         float64 `json:"win_rate"`
	SharpeRatio     float64 `json:"sharpe_ratio"`
}

// List returns summaries of every stored result, newest id last.
func (s *ResultStore) List() ([]ResultSummary, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeResultNotFound, "failed to read results dir", err)
	}

	summaries := make([]ResultSummary, 0, len(entries))

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		id := strings.TrimSuffix(entry.Name(), ".json")

		result, err := s.Get(id)
		if err != nil {
			return nil, err
		}

		summaries = append(summaries, ResultSummary{
			ID:              result.ID,
			Symbol:          result.Symbol,
			Strategy:        result.Strategy,
			TotalProfitLoss: result.TotalProfitLoss,
			TotalTrades:     result.TotalTrades,
			WinRate:         result.WinRate,
			SharpeRatio:     result.SharpeRatio,
		})
	}

	sort.Slice(summaries, func(i, j int) bool { return summaries[i].ID < summaries[j].ID })

	return summaries, nil
}
