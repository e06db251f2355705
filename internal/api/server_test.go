// internal/api/server_test.go
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/newthinker/pipboard/internal/app"
	"github.com/newthinker/pipboard/internal/config"
	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/dashboard"
	"github.com/newthinker/pipboard/internal/metrics"
	"github.com/newthinker/pipboard/internal/page"
	"github.com/newthinker/pipboard/internal/snapshot"
	"github.com/newthinker/pipboard/internal/storage/archive"
	"github.com/newthinker/pipboard/internal/storage/state"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubSource struct{}

func (stubSource) LatestTickTime(ctx context.Context) (time.Time, error) {
	return time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC), nil
}

func (stubSource) Ticks(ctx context.Context, n int) ([]core.Tick, error) {
	return []core.Tick{{Timestamp: time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC), Rate: 143.8}}, nil
}

func (stubSource) Trades(ctx context.Context, strategy string, n int) ([]core.Trade, error) {
	return nil, nil
}

func (stubSource) Close() error { return nil }

func newTestServer(t *testing.T, reg *metrics.Registry) (*Server, archive.Storage) {
	t.Helper()
	store, err := archive.NewLocalFS(t.TempDir())
	require.NoError(t, err)
	renderer, err := page.NewRenderer()
	require.NoError(t, err)

	b := dashboard.NewBuilder(store, state.NewMemory(), renderer,
		dashboard.WithSnapshot(snapshot.Options{}, true))
	a := app.New(config.Defaults(), zap.NewNop(), b)
	p := config.DefaultPair()
	p.Pages = config.PagesConfig{
		Dashboard: "usdjpy_dashboard_index.html",
		PnLOnly:   "usdjpy_pnl_chart_only.html",
		Snapshot:  "usdjpy_pnl.png",
	}
	a.AddTarget(app.Target{Pair: p, Source: stubSource{}})

	srv, err := NewServer(Config{Host: "localhost", Port: 0}, Dependencies{
		App:     a,
		Output:  store,
		Metrics: reg,
	}, zap.NewNop())
	require.NoError(t, err)
	return srv, store
}

func serve(srv *Server, method, target string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, nil)
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)
	return w
}

func TestServer_Health(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := serve(srv, "GET", "/api/health")

	if w.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", w.Code)
	}
	assert.NotEmpty(t, w.Header().Get(metrics.RequestIDHeader))
}

func TestServer_RequiresDependencies(t *testing.T) {
	_, err := NewServer(Config{}, Dependencies{}, nil)
	assert.ErrorIs(t, err, core.ErrConfigMissing)
}

func TestServer_BuildAndServePages(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := serve(srv, "GET", "/pages/usdjpy_dashboard_index.html")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(srv, "POST", "/api/build/usdjpy")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		Data []dashboard.Result `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "usdjpy", resp.Data[0].Pair)

	w = serve(srv, "GET", "/pages/usdjpy_dashboard_index.html")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/html; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Equal(t, "no-cache", w.Header().Get("Cache-Control"))
	assert.Contains(t, w.Body.String(), "rateChart")

	w = serve(srv, "GET", "/")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `href="/pages/usdjpy_dashboard_index.html"`)
	assert.Contains(t, w.Body.String(), "USD/JPY")

	w = serve(srv, "GET", "/api/status")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"pair":"usdjpy"`)
}

func TestServer_BuildUnknownPair(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := serve(srv, "POST", "/api/build/gbpusd")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Contains(t, w.Body.String(), "CONFIG_MISSING")
}

func TestServer_RejectsTraversal(t *testing.T) {
	srv, store := newTestServer(t, nil)
	require.NoError(t, store.Write(context.Background(), "a/b.html", []byte("x")))

	w := serve(srv, "GET", "/pages/a/b.html")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "x", w.Body.String())

	req := httptest.NewRequest("GET", "/pages/x", nil)
	req.SetPathValue("object", "../etc/passwd")
	rec := httptest.NewRecorder()
	srv.handlePage(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestServer_Metrics(t *testing.T) {
	reg := metrics.NewRegistry()
	srv, _ := newTestServer(t, reg)

	serve(srv, "GET", "/api/health")
	w := serve(srv, "GET", "/metrics")

	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "http_requests_total"))
}

func TestServer_NoMetricsEndpointWithoutRegistry(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	w := serve(srv, "GET", "/metrics")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_Alerts(t *testing.T) {
	srv, _ := newTestServer(t, nil)
	ctx := context.Background()
	at := time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC)
	hist := srv.deps.App.History()
	first, err := hist.Save(ctx, core.Alert{Pair: "usdjpy", Strategy: "classic", Kind: core.AlertWinStreak, Streak: 3, At: at})
	require.NoError(t, err)
	_, err = hist.Save(ctx, core.Alert{Pair: "usdjpy", Strategy: "fractal", Kind: core.AlertLossStreak, Streak: 3, At: at.Add(time.Hour)})
	require.NoError(t, err)

	w := serve(srv, "GET", "/api/alerts?pair=usdjpy&limit=1")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp struct {
		Data []map[string]any `json:"data"`
		Meta struct {
			Total int `json:"total"`
			Limit int `json:"limit"`
		} `json:"meta"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, "fractal", resp.Data[0]["strategy"])
	assert.Equal(t, 2, resp.Meta.Total)
	assert.Equal(t, 1, resp.Meta.Limit)

	w = serve(srv, "GET", "/api/alerts?kind=win_streak&from=2025-06-02")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"strategy":"classic"`)
	assert.NotContains(t, w.Body.String(), `"strategy":"fractal"`)

	w = serve(srv, "GET", "/api/alerts/"+first)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"kind":"win_streak"`)

	w = serve(srv, "GET", "/api/alerts/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestServer_AlertsRejectsBadQuery(t *testing.T) {
	srv, _ := newTestServer(t, nil)

	for _, q := range []string{"limit=0", "limit=x", "offset=-1", "from=yesterday"} {
		w := serve(srv, "GET", "/api/alerts?"+q)
		assert.Equal(t, http.StatusBadRequest, w.Code, q)
		assert.Contains(t, w.Body.String(), "CONFIG_INVALID", q)
	}
}

func TestServer_AsyncBuild(t *testing.T) {
	srv, store := newTestServer(t, nil)

	w := serve(srv, "POST", "/api/build/usdjpy?async=true")
	require.Equal(t, http.StatusAccepted, w.Code, w.Body.String())

	var resp struct {
		Data struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.ID)
	assert.Equal(t, "/api/jobs/"+resp.Data.ID, w.Header().Get("Location"))

	assert.Eventually(t, func() bool {
		w := serve(srv, "GET", "/api/jobs/"+resp.Data.ID)
		return w.Code == http.StatusOK && strings.Contains(w.Body.String(), `"status":"complete"`)
	}, 2*time.Second, 10*time.Millisecond)

	ok, err := store.Exists(context.Background(), "usdjpy_dashboard_index.html")
	require.NoError(t, err)
	assert.True(t, ok)

	w = serve(srv, "GET", "/api/jobs")
	assert.Contains(t, w.Body.String(), resp.Data.ID)

	w = serve(srv, "POST", "/api/build/gbpusd?async=true")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = serve(srv, "GET", "/api/jobs/nope")
	assert.Equal(t, http.StatusNotFound, w.Code)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.NoError(t, srv.Shutdown(ctx))
}
