package http

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Handler registers a group of routes on the shared Echo instance.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// RouteFunc adapts a plain function to Handler.
type RouteFunc func(e *echo.Echo)

func (f RouteFunc) RegisterRoutes(e *echo.Echo) { f(e) }

// metricsRoutes serves the default Prometheus registry on /metrics.
var metricsRoutes = RouteFunc(func(e *echo.Echo) {
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
})
