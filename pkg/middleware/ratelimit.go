package middleware

import (
	"golang-jobrunner/config"
	"golang-jobrunner/internal/dto"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
)

// NewRateLimiterMiddleware limits API calls per client IP. A zero rate
// disables limiting.
func NewRateLimiterMiddleware(cfg config.API) echo.MiddlewareFunc {
	if cfg.RateLimit <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc {
			return next
		}
	}

	store := middleware.NewRateLimiterMemoryStoreWithConfig(
		middleware.RateLimiterMemoryStoreConfig{
			Rate:      rate.Limit(cfg.RateLimit),
			Burst:     max(cfg.RateBurst, 1),
			ExpiresIn: 3 * time.Minute,
		},
	)

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Skipper: middleware.DefaultSkipper,
		Store:   store,
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			resp := dto.NewResponse(http.StatusForbidden, "rate limiter error", nil)
			return c.JSON(resp.Code, resp)
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			resp := dto.NewResponse(http.StatusTooManyRequests, "too many requests, retry later", nil)
			return c.JSON(resp.Code, resp)
		},
	})
}
