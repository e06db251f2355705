package metrics

import (
	"net/http"
	"net/http/httptest"
	"testing"

	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherFamily(t *testing.T, reg *Registry, name string) *dto.MetricFamily {
	t.Helper()
	mfs, err := reg.Gather()
	require.NoError(t, err)
	for _, mf := range mfs {
		if mf.GetName() == name {
			return mf
		}
	}
	return nil
}

func labels(m *dto.Metric) map[string]string {
	out := map[string]string{}
	for _, l := range m.GetLabel() {
		out[l.GetName()] = l.GetValue()
	}
	return out
}

func testMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /pages/{object...}", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	return mux
}

func TestHTTPMiddleware_LabelsByRoute(t *testing.T) {
	reg := NewRegistry()
	wrapped := HTTPMiddleware(reg)(testMux())

	for _, p := range []string{"/pages/usdjpy_dashboard_index.html", "/pages/eurusd_dashboard_index.html"} {
		w := httptest.NewRecorder()
		wrapped.ServeHTTP(w, httptest.NewRequest("GET", p, nil))
		require.Equal(t, http.StatusOK, w.Code)
	}

	mf := gatherFamily(t, reg, "http_requests_total")
	require.NotNil(t, mf)
	require.Len(t, mf.GetMetric(), 1)
	m := mf.GetMetric()[0]
	assert.Equal(t, "GET /pages/{object...}", labels(m)["route"])
	assert.Equal(t, "2xx", labels(m)["status"])
	assert.Equal(t, 2.0, m.GetCounter().GetValue())

	assert.NotNil(t, gatherFamily(t, reg, "http_request_duration_seconds"))
}

func TestHTTPMiddleware_Unmatched(t *testing.T) {
	reg := NewRegistry()
	wrapped := HTTPMiddleware(reg)(testMux())

	w := httptest.NewRecorder()
	wrapped.ServeHTTP(w, httptest.NewRequest("GET", "/wp-login.php", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)

	mf := gatherFamily(t, reg, "http_requests_total")
	require.NotNil(t, mf)
	l := labels(mf.GetMetric()[0])
	assert.Equal(t, unmatchedRoute, l["route"])
	assert.Equal(t, "4xx", l["status"])
}

func TestHTTPMiddleware_TracksInFlight(t *testing.T) {
	reg := NewRegistry()

	during := -1.0
	handler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if mf := gatherFamily(t, reg, "http_requests_in_flight"); mf != nil {
			during = mf.GetMetric()[0].GetGauge().GetValue()
		}
	})

	HTTPMiddleware(reg)(handler).ServeHTTP(httptest.NewRecorder(), httptest.NewRequest("GET", "/", nil))

	assert.Equal(t, 1.0, during)
	mf := gatherFamily(t, reg, "http_requests_in_flight")
	require.NotNil(t, mf)
	assert.Equal(t, 0.0, mf.GetMetric()[0].GetGauge().GetValue())
}
