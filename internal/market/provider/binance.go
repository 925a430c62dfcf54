package provider

import (
	"context"
	"strconv"
	"time"

	binance "github.com/adshao/go-binance/v2"

	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

// Binance caps klines responses at 1000 rows; larger ranges are paginated by
// resuming from the last close time.
const binancePageSize = 1000

// KlinesService is the slice of the Binance client the provider uses,
// extracted so tests can fake pagination without network access.
type KlinesService interface {
	Fetch(ctx context.Context, symbol, interval string, startMillis, endMillis int64, limit int) ([]*binance.Kline, error)
}

type binanceKlines struct {
	client *binance.Client
}

func (s *binanceKlines) Fetch(ctx context.Context, symbol, interval string, startMillis, endMillis int64, limit int) ([]*binance.Kline, error) {
	return s.client.NewKlinesService().
		Symbol(symbol).
		Interval(interval).
		StartTime(startMillis).
		EndTime(endMillis).
		Limit(limit).
		Do(ctx)
}

// BinanceClient fetches spot klines. Symbols are Binance pair names
// ("BTCUSDT"). No API key is needed for market data.
type BinanceClient struct {
	klines  KlinesService
	limiter RateLimiter
}

func NewBinanceClient(limiter RateLimiter) *BinanceClient {
	return &BinanceClient{
		klines:  &binanceKlines{client: binance.NewClient("", "")},
		limiter: limiter,
	}
}

// NewBinanceClientWithService injects a klines service, for tests.
func NewBinanceClientWithService(klines KlinesService, limiter RateLimiter) *BinanceClient {
	return &BinanceClient{klines: klines, limiter: limiter}
}

func (c *BinanceClient) Name() string { return "binance" }

// FetchBars downloads klines page by page until the range is covered.
func (c *BinanceClient) FetchBars(ctx context.Context, symbol string, interval time.Duration, start, end time.Time) (types.PriceSeries, error) {
	if !start.Before(end) {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "start must be before end")
	}

	binanceInterval, err := binanceIntervalString(interval)
	if err != nil {
		return nil, err
	}

	endMillis := end.UnixMilli()
	cursor := start.UnixMilli()

	var bars types.PriceSeries

	for cursor < endMillis {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, errors.Wrap(errors.ErrCodeRateLimited, "rate limiter interrupted", err)
		}

		klines, err := c.klines.Fetch(ctx, symbol, binanceInterval, cursor, endMillis, binancePageSize)
		if err != nil {
			return nil, errors.Wrapf(errors.ErrCodeFetchFailed, err, "binance klines request for %s failed", symbol)
		}

		if len(klines) == 0 {
			break
		}

		page, err := parseKlines(klines)
		if err != nil {
			return nil, err
		}

		bars = append(bars, page...)

		if len(klines) < binancePageSize {
			break
		}

		// Resume one millisecond past the last candle to avoid re-reading it.
		cursor = klines[len(klines)-1].CloseTime + 1
	}

	if err := bars.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, "binance returned a malformed series", err)
	}

	return bars, nil
}

func parseKlines(klines []*binance.Kline) (types.PriceSeries, error) {
	bars := make(types.PriceSeries, 0, len(klines))

	for _, k := range klines {
		bar := types.Bar{Time: time.UnixMilli(k.OpenTime).UTC()}

		fields := []struct {
			raw string
			dst *float64
		}{
			{k.Open, &bar.Open},
			{k.High, &bar.High},
			{k.Low, &bar.Low},
			{k.Close, &bar.Close},
			{k.Volume, &bar.Volume},
		}

		for _, f := range fields {
			value, err := strconv.ParseFloat(f.raw, 64)
			if err != nil {
				return nil, errors.Wrapf(errors.ErrCodeParseFailed, err, "binance kline field %q is not numeric", f.raw)
			}

			*f.dst = value
		}

		bars = append(bars, bar)
	}

	return bars, nil
}

// binanceIntervalString maps a duration onto Binance's interval notation.
func binanceIntervalString(interval time.Duration) (string, error) {
	switch interval {
	case time.Minute:
		return "1m", nil
	case 5 * time.Minute:
		return "5m", nil
	case 15 * time.Minute:
		return "15m", nil
	case 30 * time.Minute:
		return "30m", nil
	case time.Hour:
		return "1h", nil
	case 4 * time.Hour:
		return "4h", nil
	case 24 * time.Hour:
		return "1d", nil
	case 7 * 24 * time.Hour:
		return "1w", nil
	default:
		return "", errors.Newf(errors.ErrCodeInvalidParameter, "unsupported kline interval %s", interval)
	}
}
