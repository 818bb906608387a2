package middleware

import (
	"net/http"
	"slices"

	"github.com/labstack/echo/v4"
)

// The API is read-only, so only GET and preflight requests are allowed
// cross-origin.
const (
	corsAllowMethods = "GET, OPTIONS"
	corsAllowHeaders = "Origin, Content-Type, Accept"
	corsMaxAge       = "600"
)

// CORS allows browsers on the listed origins to read the API. "*" allows any
// origin. A request from an origin not listed gets no CORS headers, so the
// browser blocks it. A preflight from a listed origin is answered with 204.
func CORS(origins []string) echo.MiddlewareFunc {
	wildcard := slices.Contains(origins, "*")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			origin := c.Request().Header.Get(echo.HeaderOrigin)
			if origin == "" {
				return next(c)
			}

			h := c.Response().Header()
			h.Add(echo.HeaderVary, echo.HeaderOrigin)
			if !wildcard && !slices.Contains(origins, origin) {
				return next(c)
			}

			if wildcard {
				h.Set(echo.HeaderAccessControlAllowOrigin, "*")
			} else {
				h.Set(echo.HeaderAccessControlAllowOrigin, origin)
			}

			if c.Request().Method == http.MethodOptions {
				h.Set(echo.HeaderAccessControlAllowMethods, corsAllowMethods)
				h.Set(echo.HeaderAccessControlAllowHeaders, corsAllowHeaders)
				h.Set(echo.HeaderAccessControlMaxAge, corsMaxAge)
				return c.NoContent(http.StatusNoContent)
			}
			return next(c)
		}
	}
}
