package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func TestPrometheusHandlerServesMetrics(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/metrics", prometheusHandler())

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "go_goroutines")
}

func TestComputeApproximateRequestSize(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/api/payment/create", strings.NewReader(`{"package_id":"p1"}`))
	req.Header.Set("Content-Type", "application/json")

	size := computeApproximateRequestSize(req)
	require.Greater(t, size, len("/api/payment/create"))
	require.GreaterOrEqual(t, size, int(req.ContentLength))
}

func TestMillisecondsSince(t *testing.T) {
	start := time.Now().Add(-250 * time.Millisecond)
	ms := MillisecondsSince(start)
	require.GreaterOrEqual(t, ms, 250.0)
	require.Less(t, ms, 10_000.0)
}
