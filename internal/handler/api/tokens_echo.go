package api

import (
	"errors"
	"net/http"
	"time"

	"TokenPull/internal/domain/models"
	"TokenPull/internal/usecase"
	xhttp "TokenPull/pkg/http"
	"TokenPull/pkg/http/middleware"
	applogger "TokenPull/pkg/logger"

	"github.com/labstack/echo/v4"
)

// CacheStatus reports whether the remote cache tier is in use.
type CacheStatus interface {
	Available() bool
}

// SubscriberCounter reports connected push subscribers.
type SubscriberCounter interface {
	Subscribers() int
}

// TokensEchoHandler serves the pull API.
type TokensEchoHandler struct {
	logger  *applogger.Logger
	agg     *usecase.TokenAggregator
	cache   CacheStatus
	subs    SubscriberCounter
	limiter middleware.Allower
}

func NewTokensEchoHandler(logger *applogger.Logger, agg *usecase.TokenAggregator, cache CacheStatus, subs SubscriberCounter, limiter middleware.Allower) *TokensEchoHandler {
	if logger == nil {
		logger = applogger.Nop()
	}
	return &TokensEchoHandler{logger: logger, agg: agg, cache: cache, subs: subs, limiter: limiter}
}

func (h *TokensEchoHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", h.Health)

	g := e.Group("/api")
	if h.limiter != nil {
		g.Use(middleware.RateLimit(h.limiter))
	}
	g.GET("/tokens", h.List)
	g.GET("/tokens/search", h.Search)
	g.GET("/tokens/:address", h.Get)
}

func (h *TokensEchoHandler) List(c echo.Context) error {
	start := time.Now()
	req := &models.TokenListRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	page, err := h.agg.List(c.Request().Context(), req.View())
	if err != nil {
		h.logger.Error("tokens list error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, listResponse(page.Records, page.Total, page.NextCursor, start))
}

func (h *TokensEchoHandler) Search(c echo.Context) error {
	start := time.Now()
	req := &models.TokenSearchRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	recs, err := h.agg.Search(c.Request().Context(), req.Q)
	if err != nil {
		h.logger.Error("tokens search error", applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return c.JSON(http.StatusOK, listResponse(recs, len(recs), "", start))
}

func (h *TokensEchoHandler) Get(c echo.Context) error {
	req := &models.TokenGetRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rec, err := h.agg.Get(c.Request().Context(), req.Address)
	if errors.Is(err, usecase.ErrNotFound) {
		return xhttp.AppErrorResponse(c, xhttp.NotFoundErrorf("token %s not found", req.Address).WithError(err))
	}
	if err != nil {
		h.logger.Error("tokens get error", applogger.String("address", req.Address), applogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	c.Response().Header().Set(echo.HeaderCacheControl, "private, max-age=5")
	return xhttp.SuccessResponse(c, rec)
}

func (h *TokensEchoHandler) Health(c echo.Context) error {
	res := models.HealthResponse{Status: "ok"}
	if h.cache != nil {
		res.RedisUp = h.cache.Available()
	}
	if h.subs != nil {
		res.Subscribers = h.subs.Subscribers()
	}
	return xhttp.SuccessResponse(c, res)
}

func listResponse(recs []models.Record, total int, next string, start time.Time) models.TokenListResponse {
	if recs == nil {
		recs = []models.Record{}
	}
	return models.TokenListResponse{
		Records: recs,
		Metadata: models.TokenListMetadata{
			Total:          total,
			Returned:       len(recs),
			NextCursor:     next,
			ResponseTimeMs: time.Since(start).Milliseconds(),
		},
	}
}
