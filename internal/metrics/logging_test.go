package metrics

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// serveLogged runs req through LoggingMiddleware over a mux and returns the
// recorder and the decoded log line.
func serveLogged(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var buf bytes.Buffer
	core := zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), zapcore.AddSync(&buf), zapcore.InfoLevel)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /pages/{object...}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	w := httptest.NewRecorder()
	LoggingMiddleware(zap.New(core))(mux).ServeHTTP(w, req)

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry), buf.String())
	return w, entry
}

func TestLoggingMiddleware(t *testing.T) {
	req := httptest.NewRequest("GET", "/pages/usdjpy_dashboard_index.html", nil)
	req.RemoteAddr = "192.168.1.1:12345"

	_, entry := serveLogged(t, req)

	assert.Equal(t, "http request", entry["msg"])
	assert.Equal(t, "GET", entry["method"])
	assert.Equal(t, "/pages/usdjpy_dashboard_index.html", entry["path"])
	assert.Equal(t, "GET /pages/{object...}", entry["route"])
	assert.Equal(t, float64(http.StatusNotFound), entry["status"])
	assert.Contains(t, entry, "duration_ms")
}

func TestLoggingMiddleware_RequestID(t *testing.T) {
	w, entry := serveLogged(t, httptest.NewRequest("GET", "/api/health", nil))

	id := w.Header().Get(RequestIDHeader)
	require.NotEmpty(t, id)
	assert.Equal(t, id, entry["request_id"])
	assert.Equal(t, unmatchedRoute, entry["route"])

	req := httptest.NewRequest("GET", "/api/health", nil)
	req.Header.Set(RequestIDHeader, "upstream-42")
	w, entry = serveLogged(t, req)
	assert.Equal(t, "upstream-42", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "upstream-42", entry["request_id"])
}

func TestLoggingMiddleware_ClientIP(t *testing.T) {
	tests := []struct {
		name      string
		forwarded string
		want      string
	}{
		{"remote addr", "", "10.0.0.1:54321"},
		{"forwarded", "203.0.113.50", "203.0.113.50"},
		{"forwarded chain", "203.0.113.50, 70.41.3.18", "203.0.113.50"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest("GET", "/", nil)
			req.RemoteAddr = "10.0.0.1:54321"
			if tt.forwarded != "" {
				req.Header.Set("X-Forwarded-For", tt.forwarded)
			}
			_, entry := serveLogged(t, req)
			assert.Equal(t, tt.want, entry["client_ip"])
		})
	}
}
