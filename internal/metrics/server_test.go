package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func get(t *testing.T, h http.Handler, path string) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
	return rec
}

func TestServer_Endpoints(t *testing.T) {
	ready := true
	srv := NewServer(":0", func() error {
		if !ready {
			return errors.New("worker not running")
		}
		return nil
	}, zap.NewNop().Sugar())
	h := srv.Handler()

	assert.Equal(t, http.StatusOK, get(t, h, "/live").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/ready").Code)

	ready = false
	assert.Equal(t, http.StatusServiceUnavailable, get(t, h, "/ready").Code)
	assert.Equal(t, http.StatusOK, get(t, h, "/live").Code)
}

func TestServer_MetricsExposed(t *testing.T) {
	TicksTotal.WithLabelValues("test-mode").Inc()

	rec := get(t, NewServer(":0", nil, zap.NewNop().Sugar()).Handler(), "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "datalogger_ticks_total"))
}

func TestCounters(t *testing.T) {
	before := testutil.ToFloat64(FlushErrorsTotal.WithLabelValues("file"))
	FlushErrorsTotal.WithLabelValues("file").Add(2)
	assert.Equal(t, before+2, testutil.ToFloat64(FlushErrorsTotal.WithLabelValues("file")))
}
