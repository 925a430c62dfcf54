// Package cache persists fetched bars in a local DuckDB file so repeated
// backtests and sweeps over the same range never re-hit a provider.
package cache

import (
	"context"
	"database/sql"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"go.uber.org/zap"

	"github.com/coinlab/strategist/internal/logger"
	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

const createBarsTable = `
CREATE TABLE IF NOT EXISTS bars (
	symbol VARCHAR NOT NULL,
	time TIMESTAMP NOT NULL,
	open DOUBLE NOT NULL,
	high DOUBLE NOT NULL,
	low DOUBLE NOT NULL,
	close DOUBLE NOT NULL,
	volume DOUBLE NOT NULL,
	PRIMARY KEY (symbol, time)
);
`

// Store is a bar cache on one DuckDB database file.
type Store struct {
	db  *sql.DB
	sq  squirrel.StatementBuilderType
	log *logger.Logger
}

// NewStore opens (or creates) the database at path. An empty path opens an
// in-memory database, which tests use.
func NewStore(path string, log *logger.Logger) (*Store, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to open duckdb", err)
	}

	if _, err := db.Exec(createBarsTable); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodeStoreUnavailable, "failed to create bars table", err)
	}

	return &Store{
		db:  db,
		sq:  squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
		log: log,
	}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// UpsertBars writes bars for a symbol, replacing rows that share a timestamp.
func (s *Store) UpsertBars(ctx context.Context, symbol string, bars types.PriceSeries) error {
	if len(bars) == 0 {
		return nil
	}

	insert := s.sq.
		Insert("bars").
		Columns("symbol", "time", "open", "high", "low", "close", "volume").
		Suffix(`ON CONFLICT (symbol, time) DO UPDATE SET
			open = excluded.open,
			high = excluded.high,
			low = excluded.low,
			close = excluded.close,
			volume = excluded.volume`)

	for _, bar := range bars {
		insert = insert.Values(symbol, bar.Time.UTC(), bar.Open, bar.High, bar.Low, bar.Close, bar.Volume)
	}

	query, args, err := insert.ToSql()
	if err != nil {
		return errors.Wrap(errors.ErrCodeCacheWriteFailed, "failed to build upsert", err)
	}

	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		return errors.Wrapf(errors.ErrCodeCacheWriteFailed, err, "failed to upsert %d bars for %s", len(bars), symbol)
	}

	s.log.Debug("cached bars", zap.String("symbol", symbol), zap.Int("count", len(bars)))

	return nil
}

// ReadRange returns the cached bars for a symbol within [start, end], ordered
// by time ascending.
func (s *Store) ReadRange(ctx context.Context, symbol string, start, end time.Time) (types.PriceSeries, error) {
	query, args, err := s.sq.
		Select("time", "open", "high", "low", "close", "volume").
		From("bars").
		Where(squirrel.Eq{"symbol": symbol}).
		Where(squirrel.GtOrEq{"time": start.UTC()}).
		Where(squirrel.LtOrEq{"time": end.UTC()}).
		OrderBy("time ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build range query", err)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to read bars for %s", symbol)
	}
	defer rows.Close()

	var bars types.PriceSeries

	for rows.Next() {
		var bar types.Bar

		if err := rows.Scan(&bar.Time, &bar.Open, &bar.High, &bar.Low, &bar.Close, &bar.Volume); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan bar row", err)
		}

		bar.Time = bar.Time.UTC()
		bars = append(bars, bar)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "bar row iteration failed", err)
	}

	return bars, nil
}

// Count returns how many bars are cached for a symbol.
func (s *Store) Count(ctx context.Context, symbol string) (int, error) {
	query, args, err := s.sq.
		Select("COUNT(*)").
		From("bars").
		Where(squirrel.Eq{"symbol": symbol}).
		ToSql()
	if err != nil {
		return 0, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build count query", err)
	}

	var count int
	if err := s.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return 0, errors.Wrapf(errors.ErrCodeQueryFailed, err, "failed to count bars for %s", symbol)
	}

	return count, nil
}

// Symbols lists the distinct symbols with cached bars, sorted.
func (s *Store) Symbols(ctx context.Context) ([]string, error) {
	query, _, err := s.sq.
		Select("DISTINCT symbol").
		From("bars").
		OrderBy("symbol ASC").
		ToSql()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to build symbols query", err)
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to list symbols", err)
	}
	defer rows.Close()

	var symbols []string

	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan symbol row", err)
		}

		symbols = append(symbols, symbol)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "symbol row iteration failed", err)
	}

	return symbols, nil
}
