package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"qr_photo/internal/metrics"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func serve(t *testing.T, path string, h echo.HandlerFunc) error {
	t.Helper()

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/things/1", nil)
	c := e.NewContext(req, httptest.NewRecorder())
	c.SetPath(path)

	return PrometheusMetrics(h)(c)
}

func TestPrometheusMetrics(t *testing.T) {
	counter := func(path, status string) float64 {
		return testutil.ToFloat64(metrics.HTTPRequestsTotal.WithLabelValues(http.MethodGet, path, status))
	}

	t.Run("written response", func(t *testing.T) {
		before := counter("/things/:id", "204")
		require.NoError(t, serve(t, "/things/:id", func(c echo.Context) error {
			return c.NoContent(http.StatusNoContent)
		}))
		assert.Equal(t, before+1, counter("/things/:id", "204"))
	})

	t.Run("http error", func(t *testing.T) {
		before := counter("/things/:id", "404")
		err := serve(t, "/things/:id", func(c echo.Context) error {
			return echo.ErrNotFound
		})
		assert.ErrorIs(t, err, echo.ErrNotFound)
		assert.Equal(t, before+1, counter("/things/:id", "404"))
	})

	t.Run("plain error on unmatched route", func(t *testing.T) {
		before := counter("unmatched", "500")
		err := serve(t, "", func(c echo.Context) error {
			return errors.New("boom")
		})
		assert.Error(t, err)
		assert.Equal(t, before+1, counter("unmatched", "500"))
	})
}
