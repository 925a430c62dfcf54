package signal

import (
	"sort"

	"github.com/coinlab/strategist/pkg/errors"
)

// Built-in strategies. The table is rebuilt on each call so callers can never
// mutate shared state; a strategy is data, not a registered closure.
func builtinStrategies() map[string]Strategy {
	strategies := []Strategy{
		{
			// Enter with the fast/slow SMA cross, but only while ADX reads a
			// trending market; exit on the opposite cross.
			Name:       "trend-follow",
			LongEntry:  And(Pred(PrimSMACrossUp), Pred(PrimADXTrending)),
			ShortEntry: And(Pred(PrimSMACrossDown), Pred(PrimADXTrending)),
			LongExit:   Pred(PrimSMACrossDown),
			ShortExit:  Pred(PrimSMACrossUp),
		},
		{
			// Fade Bollinger band breaks confirmed by RSI extremes; exit at
			// the middle band.
			Name:       "mean-revert",
			LongEntry:  And(Pred(PrimCloseBelowLowerBand), Pred(PrimRSIOversold)),
			ShortEntry: And(Pred(PrimCloseAboveUpperBand), Pred(PrimRSIOverbought)),
			LongExit:   Pred(PrimCloseAboveBollMid),
			ShortExit:  Pred(PrimCloseBelowBollMid),
		},
		{
			// MACD signal-line crosses filtered by the slow SMA trend side.
			Name:       "macd-momentum",
			LongEntry:  And(Pred(PrimMACDCrossUp), Pred(PrimCloseAboveSlowSMA)),
			ShortEntry: And(Pred(PrimMACDCrossDown), Pred(PrimCloseBelowSlowSMA)),
			LongExit:   Pred(PrimMACDCrossDown),
			ShortExit:  Pred(PrimMACDCrossUp),
		},
		{
			// Any bullish trigger enters long, any bearish trigger enters
			// short. The loosest built-in; mostly useful as an optimizer
			// baseline.
			Name:       "all-triggers-or",
			LongEntry:  Or(Pred(PrimSMACrossUp), Pred(PrimMACDCrossUp), Pred(PrimRSIOversold)),
			ShortEntry: Or(Pred(PrimSMACrossDown), Pred(PrimMACDCrossDown), Pred(PrimRSIOverbought)),
			LongExit:   Or(Pred(PrimSMACrossDown), Pred(PrimMACDCrossDown)),
			ShortExit:  Or(Pred(PrimSMACrossUp), Pred(PrimMACDCrossUp)),
		},
		{
			// Long-only trend rider: hold while the fast SMA stays above the
			// slow SMA.
			Name:       "sma-hold",
			LongEntry:  Pred(PrimSMACrossUp),
			ShortEntry: Never(),
			LongExit:   Pred(PrimSMAFastBelowSlow),
			ShortExit:  Never(),
		},
	}

	table := make(map[string]Strategy, len(strategies))
	for _, s := range strategies {
		table[s.Name] = s
	}

	return table
}

// GetStrategy returns a built-in strategy by name.
func GetStrategy(name string) (Strategy, error) {
	strategy, ok := builtinStrategies()[name]
	if !ok {
		return Strategy{}, errors.Newf(errors.ErrCodeStrategyNotFound, "strategy %q not found", name)
	}

	return strategy, nil
}

// ListStrategies returns the names of all built-in strategies, sorted.
func ListStrategies() []string {
	table := builtinStrategies()

	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}
