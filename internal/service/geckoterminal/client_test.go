package geckoterminal_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"TokenPull/internal/domain/models"
	"TokenPull/internal/service/geckoterminal"
)

const page1 = `{"data":[
  {"id":"solana_pool1","type":"pool",
   "attributes":{"name":"BONK / SOL","base_token_price_usd":"0.00002","fdv_usd":"1200000","market_cap_usd":null,
     "reserve_in_usd":"350000.5","price_change_percentage":{"h1":"0.5","h24":"-12.25"},
     "transactions":{"h24":{"buys":120,"sells":80}},"volume_usd":{"h24":"98000"}},
   "relationships":{"base_token":{"data":{"id":"solana_BonkAddr","type":"token"}},"dex":{"data":{"id":"raydium","type":"dex"}}}},
  {"id":"solana_pool2","type":"pool",
   "attributes":{"name":"WIF / USDC","base_token_price_usd":"2.1","reserve_in_usd":"10","volume_usd":{"h24":"500"}},
   "relationships":{"base_token":{"data":{"id":"solana_WifAddr","type":"token"}},"dex":{"data":{"id":"orca","type":"dex"}}}},
  {"id":"solana_pool3","type":"pool","attributes":{"name":"X / Y"},"relationships":{}}
]}`

func TestFetchAllMapsTrendingPools(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/networks/solana/trending_pools", r.URL.Path)
		require.Equal(t, "1", r.URL.Query().Get("page"))
		_, _ = w.Write([]byte(page1))
	}))
	defer srv.Close()

	c := geckoterminal.New(geckoterminal.WithBaseURL(srv.URL))
	recs, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)

	bonk := recs[0]
	require.Equal(t, "BonkAddr", bonk.Address)
	require.Equal(t, "BONK", bonk.Ticker)
	require.Equal(t, 1200000.0, bonk.MarketValue)
	require.Equal(t, 350000.5, bonk.Liquidity)
	require.Equal(t, int64(200), bonk.TxCount)
	require.Equal(t, -12.25, bonk.PriceChange[models.Period24h])
	require.Equal(t, "raydium", bonk.Protocol)
	require.Equal(t, geckoterminal.Name, bonk.Source)

	wif := recs[1]
	require.Equal(t, models.EstimateMarketValue(500), wif.MarketValue)
	_, has := wif.PriceChange[models.Period1h]
	require.False(t, has)
}

func TestFetchAllStopsOnLaterPageFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("page") == "2" {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		_, _ = w.Write([]byte(page1))
	}))
	defer srv.Close()

	c := geckoterminal.New(
		geckoterminal.WithBaseURL(srv.URL),
		geckoterminal.WithPages(3),
		geckoterminal.WithPageDelay(0),
	)
	recs, err := c.FetchAll(context.Background())
	require.NoError(t, err)
	require.Len(t, recs, 2)
}

func TestFetchAllFirstPageFailureIsError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := geckoterminal.New(geckoterminal.WithBaseURL(srv.URL))
	_, err := c.FetchAll(context.Background())
	require.Error(t, err)
}
