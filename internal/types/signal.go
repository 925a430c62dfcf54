package types

import (
	"github.com/coinlab/strategist/pkg/errors"
)

// SignalSet holds the four boolean signal columns a backtest consumes, each
// aligned index-for-index with the price series it was composed from. A
// SignalSet is built once per run and never mutated afterwards.
type SignalSet struct {
	LongEntry  []bool `json:"long_entry"`
	ShortEntry []bool `json:"short_entry"`
	LongExit   []bool `json:"long_exit"`
	ShortExit  []bool `json:"short_exit"`
}

// NewSignalSet returns an all-false SignalSet of the given length.
func NewSignalSet(length int) SignalSet {
	return SignalSet{
		LongEntry:  make([]bool, length),
		ShortEntry: make([]bool, length),
		LongExit:   make([]bool, length),
		ShortExit:  make([]bool, length),
	}
}

// Validate checks that all four columns have the expected length.
func (s SignalSet) Validate(expectedLength int) error {
	if len(s.LongEntry) != expectedLength ||
		len(s.ShortEntry) != expectedLength ||
		len(s.LongExit) != expectedLength ||
		len(s.ShortExit) != expectedLength {
		return errors.Newf(errors.ErrCodeLengthMismatch,
			"signal columns must all have length %d, got long_entry=%d short_entry=%d long_exit=%d short_exit=%d",
			expectedLength, len(s.LongEntry), len(s.ShortEntry), len(s.LongExit), len(s.ShortExit))
	}

	return nil
}
