package observability

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

type fixedHealth struct{ status string }

func (f fixedHealth) Check(context.Context) HealthStatus {
	return HealthStatus{Status: f.status, Timestamp: time.Now().UTC(), Components: map[string]string{"hierarchy": f.status}}
}

func TestHealthEndpoint(t *testing.T) {
	for _, tc := range []struct {
		status string
		code   int
	}{
		{"up", http.StatusOK},
		{"degraded", http.StatusServiceUnavailable},
	} {
		srv := NewServer("", fixedHealth{status: tc.status})
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

		assert.Equal(t, tc.code, rec.Code)
		var got HealthStatus
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
		assert.Equal(t, tc.status, got.Status)
		assert.Equal(t, tc.status, got.Components["hierarchy"])
	}
}

func TestMetricsEndpoint(t *testing.T) {
	QueriesTotal.WithLabelValues("overridden", OutcomeFound).Inc()

	rec := httptest.NewRecorder()
	NewServer("", nil).Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "overrides_queries_total")
}

func TestServerStartStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	srv := NewServer("127.0.0.1:0", fixedHealth{status: "up"})
	require.NoError(t, srv.Start(context.Background()))

	client := &http.Client{Transport: &http.Transport{DisableKeepAlives: true}}
	resp, err := client.Get("http://" + srv.Addr() + "/health")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.True(t, strings.Contains(string(body), `"status":"up"`))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
}

func TestServerStartRejectsBadAddress(t *testing.T) {
	srv := NewServer("256.0.0.1:bad", nil)
	assert.Error(t, srv.Start(context.Background()))
	assert.NoError(t, srv.Stop(context.Background()))
}
