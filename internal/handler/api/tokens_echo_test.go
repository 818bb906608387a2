package api_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"

	"TokenPull/internal/domain/models"
	"TokenPull/internal/domain/repository"
	"TokenPull/internal/handler/api"
	"TokenPull/internal/services/merge"
	"TokenPull/internal/usecase"
	"TokenPull/pkg/cache"
)

type stubProvider struct {
	recs []models.RawRecord
}

func (p stubProvider) Name() string { return "stub" }

func (p stubProvider) FetchAll(context.Context) ([]models.RawRecord, error) {
	return p.recs, nil
}

type denyAll struct{}

func (denyAll) Allow(string) bool { return false }

type fixedSubs int

func (n fixedSubs) Subscribers() int { return int(n) }

func newEcho(t *testing.T, n int, limiter interface{ Allow(string) bool }) *echo.Echo {
	t.Helper()
	recs := make([]models.RawRecord, n)
	for i := range recs {
		recs[i] = models.RawRecord{
			Address:   fmt.Sprintf("ADDR%02d", i),
			Name:      fmt.Sprintf("Token %d", i),
			Ticker:    fmt.Sprintf("TK%d", i),
			Volume:    float64(100 - i),
			Liquidity: float64(i),
			Protocol:  "raydium",
			PriceChange: map[models.Period]float64{
				models.Period1h: float64(i),
			},
		}
	}
	store := cache.NewStore()
	t.Cleanup(func() { _ = store.Close() })
	o := usecase.NewFetchOrchestrator([]repository.TokenProvider{stubProvider{recs: recs}}, nil, nil)
	agg := usecase.NewTokenAggregator(o, merge.New(), store)

	e := echo.New()
	api.NewTokensEchoHandler(nil, agg, store, fixedSubs(3), limiter).RegisterRoutes(e)
	return e
}

func do(e *echo.Echo, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, target, nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestListTokens(t *testing.T) {
	e := newEcho(t, 30, nil)

	rec := do(e, "/api/tokens?limit=5&min_liquidity=10&sort_by=liquidity&sort_dir=asc")
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.TokenListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Records, 5)
	require.Equal(t, 20, body.Metadata.Total)
	require.Equal(t, 5, body.Metadata.Returned)
	require.Equal(t, "5", body.Metadata.NextCursor)
	require.Equal(t, "addr10", body.Records[0].Address)
}

func TestListTokensIgnoresMalformedNumbers(t *testing.T) {
	e := newEcho(t, 30, nil)

	rec := do(e, "/api/tokens?limit=abc&min_volume=lots&cursor=-3")
	require.Equal(t, http.StatusOK, rec.Code)

	var body models.TokenListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Records, models.DefaultPageLimit)
	require.Equal(t, 30, body.Metadata.Total)
	require.Equal(t, "addr00", body.Records[0].Address)
}

func TestSearchTokens(t *testing.T) {
	e := newEcho(t, 30, nil)

	rec := do(e, "/api/tokens/search?q=tk2")
	require.Equal(t, http.StatusOK, rec.Code)
	var body models.TokenListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Records, 11) // TK2, TK20..TK29

	rec = do(e, "/api/tokens/search?q=token")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Len(t, body.Records, usecase.DefaultSearchLimit)

	rec = do(e, "/api/tokens/search")
	require.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetToken(t *testing.T) {
	e := newEcho(t, 3, nil)

	rec := do(e, "/api/tokens/ADDR01")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Status int           `json:"status"`
		Data   models.Record `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "addr01", body.Data.Address)

	rec = do(e, "/api/tokens/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Contains(t, rec.Body.String(), "ERR_NOT_FOUND")
}

func TestHealth(t *testing.T) {
	e := newEcho(t, 1, nil)

	rec := do(e, "/health")
	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data models.HealthResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "ok", body.Data.Status)
	require.False(t, body.Data.RedisUp)
	require.Equal(t, 3, body.Data.Subscribers)
}

func TestRateLimitAppliesToAPIOnly(t *testing.T) {
	e := newEcho(t, 1, denyAll{})

	require.Equal(t, http.StatusTooManyRequests, do(e, "/api/tokens").Code)
	require.Equal(t, http.StatusOK, do(e, "/health").Code)
}
