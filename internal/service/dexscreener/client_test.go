package dexscreener_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"TokenPull/internal/domain/models"
	"TokenPull/internal/service/dexscreener"
	xhttp "TokenPull/pkg/http"
)

const searchBody = `{
  "schemaVersion": "1.0.0",
  "pairs": [
    {
      "chainId": "solana",
      "dexId": "raydium",
      "pairAddress": "pair1",
      "baseToken": {"address": "TokA", "name": "Token A", "symbol": "TKA"},
      "priceUsd": "0.0123",
      "txns": {"h24": {"buys": 10, "sells": 5}},
      "volume": {"h24": 1500.5},
      "priceChange": {"h1": 1.5, "h24": -3.2},
      "liquidity": {"usd": 800},
      "fdv": 90000,
      "marketCap": 0
    },
    {
      "chainId": "ethereum",
      "dexId": "uniswap",
      "baseToken": {"address": "0xeth", "name": "Eth Token", "symbol": "ETK"},
      "priceUsd": "1"
    },
    {
      "chainId": "solana",
      "dexId": "orca",
      "baseToken": {"address": "TokB", "name": "Token B", "symbol": "TKB"},
      "priceUsd": "2",
      "volume": {"h24": 40}
    },
    {
      "chainId": "solana",
      "baseToken": {"address": ""}
    }
  ]
}`

func TestFetchAllMapsPairs(t *testing.T) {
	var gotQuery string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/latest/dex/search", r.URL.Path)
		gotQuery = r.URL.Query().Get("q")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	fixed := time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)
	c := dexscreener.New(
		dexscreener.WithBaseURL(srv.URL),
		dexscreener.WithChainID("solana"),
		dexscreener.WithQueries([]string{"sol"}),
	)
	c.SetNow(func() time.Time { return fixed })

	recs, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	require.Equal(t, "sol", gotQuery)
	require.Len(t, recs, 2)

	a := recs[0]
	require.Equal(t, "TokA", a.Address)
	require.Equal(t, "TKA", a.Ticker)
	require.InDelta(t, 0.0123, a.Price, 1e-9)
	require.Equal(t, 90000.0, a.MarketValue, "fdv used when market cap missing")
	require.Equal(t, 1500.5, a.Volume)
	require.Equal(t, 800.0, a.Liquidity)
	require.Equal(t, int64(15), a.TxCount)
	require.Equal(t, 1.5, a.PriceChange[models.Period1h])
	require.Equal(t, -3.2, a.PriceChange[models.Period24h])
	require.Equal(t, "raydium", a.Protocol)
	require.Equal(t, dexscreener.Name, a.Source)
	require.Equal(t, fixed, a.UpdatedAt)

	b := recs[1]
	require.Equal(t, models.EstimateMarketValue(40), b.MarketValue)
	require.Empty(t, b.PriceChange)
}

func TestFetchAllPartialFailureKeepsResults(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("q") == "bad" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(searchBody))
	}))
	defer srv.Close()

	c := dexscreener.New(
		dexscreener.WithBaseURL(srv.URL),
		dexscreener.WithQueries([]string{"bad", "good"}),
		dexscreener.WithQueryDelay(0),
	)
	recs, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 3)
}

func TestFetchAllRateLimitedIsRetryable(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := dexscreener.New(
		dexscreener.WithBaseURL(srv.URL),
		dexscreener.WithHTTPClient(xhttp.NewClient(xhttp.WithTimeout(time.Second))),
	)
	_, err := c.FetchAll(context.Background())
	require.Error(t, err)

	var se *xhttp.StatusError
	require.True(t, errors.As(err, &se))
	require.True(t, se.Retryable())
	require.Equal(t, int32(1), calls.Load())
}

func TestFetchAllHonoursCancellationBetweenQueries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pairs":[]}`))
	}))
	defer srv.Close()

	c := dexscreener.New(
		dexscreener.WithBaseURL(srv.URL),
		dexscreener.WithQueries([]string{"a", "b"}),
		dexscreener.WithQueryDelay(time.Hour),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := c.FetchAll(ctx)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
