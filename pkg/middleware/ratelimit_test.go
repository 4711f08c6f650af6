package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"golang-jobrunner/config"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
)

func TestNewRateLimiterMiddleware(t *testing.T) {
	tests := []struct {
		name  string
		cfg   config.API
		codes []int
	}{
		{
			name:  "disabled",
			cfg:   config.API{},
			codes: []int{http.StatusOK, http.StatusOK, http.StatusOK},
		},
		{
			name:  "burst exhausted",
			cfg:   config.API{RateLimit: 0.001, RateBurst: 2},
			codes: []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			e.GET("/", func(c echo.Context) error {
				return c.NoContent(http.StatusOK)
			}, NewRateLimiterMiddleware(tt.cfg))

			for i, want := range tt.codes {
				rec := httptest.NewRecorder()
				e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
				assert.Equal(t, want, rec.Code, "request %d", i)
			}
		})
	}
}
