package provider

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"sort"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/coinlab/strategist/internal/types"
	"github.com/coinlab/strategist/pkg/errors"
)

const (
	coinGeckoBaseURL = "https://api.coingecko.com/api/v3"

	// CoinGecko's OHLC endpoint only accepts a fixed set of day windows.
	coinGeckoMaxDays = 365
)

var coinGeckoDayWindows = []int{1, 7, 14, 30, 90, 180, 365}

// CoinGeckoClient fetches OHLC candles from the CoinGecko public API. Symbols
// are CoinGecko coin ids ("bitcoin", "ethereum"). The endpoint returns no
// volume, so bars carry zero volume; the engine never reads it.
type CoinGeckoClient struct {
	http     *resty.Client
	limiter  RateLimiter
	currency string
}

// NewCoinGeckoClient builds a client against the public API. Pass a base URL
// override for tests; empty means the production endpoint.
func NewCoinGeckoClient(baseURL string, limiter RateLimiter) *CoinGeckoClient {
	if baseURL == "" {
		baseURL = coinGeckoBaseURL
	}

	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(30 * time.Second).
		SetRetryCount(3).
		SetRetryWaitTime(2 * time.Second).
		SetRetryMaxWaitTime(20 * time.Second).
		AddRetryCondition(func(r *resty.Response, err error) bool {
			return err == nil && r.StatusCode() == http.StatusTooManyRequests
		})

	return &CoinGeckoClient{
		http:     client,
		limiter:  limiter,
		currency: "usd",
	}
}

func (c *CoinGeckoClient) Name() string { return "coingecko" }

// FetchBars downloads the smallest day window covering [start, end] and trims
// it to the range. The interval is chosen by CoinGecko per window, so the
// argument only sanity-checks the caller's expectation against the data.
func (c *CoinGeckoClient) FetchBars(ctx context.Context, symbol string, _ time.Duration, start, end time.Time) (types.PriceSeries, error) {
	if !start.Before(end) {
		return nil, errors.New(errors.ErrCodeInvalidParameter, "start must be before end")
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, errors.Wrap(errors.ErrCodeRateLimited, "rate limiter interrupted", err)
	}

	var rows [][]float64

	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("id", symbol).
		SetQueryParams(map[string]string{
			"vs_currency": c.currency,
			"days":        fmt.Sprintf("%d", dayWindow(start, end)),
		}).
		SetResult(&rows).
		Get("/coins/{id}/ohlc")
	if err != nil {
		return nil, errors.Wrapf(errors.ErrCodeFetchFailed, err, "coingecko ohlc request for %s failed", symbol)
	}

	if resp.StatusCode() == http.StatusTooManyRequests {
		return nil, errors.Newf(errors.ErrCodeRateLimited, "coingecko rate limit hit for %s", symbol)
	}

	if resp.IsError() {
		return nil, errors.Newf(errors.ErrCodeFetchFailed, "coingecko returned %d for %s", resp.StatusCode(), symbol)
	}

	bars, err := parseCoinGeckoRows(rows, start, end)
	if err != nil {
		return nil, err
	}

	return bars, nil
}

// dayWindow picks the smallest supported window that covers the range.
func dayWindow(start, end time.Time) int {
	days := int(math.Ceil(time.Since(start).Hours() / 24))
	if endAge := int(math.Ceil(end.Sub(start).Hours() / 24)); endAge > days {
		days = endAge
	}

	for _, window := range coinGeckoDayWindows {
		if days <= window {
			return window
		}
	}

	return coinGeckoMaxDays
}

func parseCoinGeckoRows(rows [][]float64, start, end time.Time) (types.PriceSeries, error) {
	bars := make(types.PriceSeries, 0, len(rows))

	for _, row := range rows {
		if len(row) != 5 {
			return nil, errors.Newf(errors.ErrCodeParseFailed, "coingecko ohlc row has %d fields, want 5", len(row))
		}

		ts := time.UnixMilli(int64(row[0])).UTC()
		if ts.Before(start) || ts.After(end) {
			continue
		}

		bars = append(bars, types.Bar{
			Time:  ts,
			Open:  row[1],
			High:  row[2],
			Low:   row[3],
			Close: row[4],
		})
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Time.Before(bars[j].Time) })

	if err := bars.Validate(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeParseFailed, "coingecko returned a malformed series", err)
	}

	return bars, nil
}
