// Package api serves the published pages, build status and metrics over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"html/template"
	"mime"
	"net/http"
	"path"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/newthinker/pipboard/internal/api/job"
	"github.com/newthinker/pipboard/internal/api/response"
	"github.com/newthinker/pipboard/internal/app"
	"github.com/newthinker/pipboard/internal/core"
	"github.com/newthinker/pipboard/internal/metrics"
	"github.com/newthinker/pipboard/internal/storage/archive"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Server represents the HTTP server for pipboard
type Server struct {
	httpServer *http.Server
	logger     *zap.Logger
	mux        *http.ServeMux
	deps       Dependencies
	index      *template.Template

	jobs    *job.Store
	baseCtx context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// Config holds server configuration
type Config struct {
	Host        string
	Port        int
	MetricsPath string
}

// Dependencies are the components the handlers read from.
type Dependencies struct {
	App *app.App
	// Output is where the pages are published.
	Output archive.Storage
	// Metrics may be nil, which disables the metrics endpoint.
	Metrics *metrics.Registry
}

// NewServer creates a new HTTP server
func NewServer(cfg Config, deps Dependencies, logger *zap.Logger) (*Server, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if deps.App == nil || deps.Output == nil {
		return nil, core.WrapError(core.ErrConfigMissing, fmt.Errorf("api: app and output are required"))
	}

	index, err := template.New("index").Parse(indexTemplate)
	if err != nil {
		return nil, fmt.Errorf("parsing index template: %w", err)
	}

	mux := http.NewServeMux()
	baseCtx, cancel := context.WithCancel(context.Background())
	s := &Server{
		logger:  logger,
		mux:     mux,
		deps:    deps,
		index:   index,
		jobs:    job.NewStore(100, time.Hour),
		baseCtx: baseCtx,
		cancel:  cancel,
	}

	var handler http.Handler = mux
	if deps.Metrics != nil {
		handler = metrics.HTTPMiddleware(deps.Metrics)(handler)
	}
	handler = metrics.LoggingMiddleware(logger)(handler)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	s.setupRoutes(cfg)
	return s, nil
}

// setupRoutes configures all HTTP routes
func (s *Server) setupRoutes(cfg Config) {
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
	s.mux.HandleFunc("GET /pages/{object...}", s.handlePage)

	s.mux.HandleFunc("GET /api/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/status", s.handleStatus)
	s.mux.HandleFunc("POST /api/build/{pair}", s.handleBuild)
	s.mux.HandleFunc("GET /api/alerts", s.handleAlerts)
	s.mux.HandleFunc("GET /api/alerts/{id}", s.handleAlert)
	s.mux.HandleFunc("GET /api/jobs", s.handleJobs)
	s.mux.HandleFunc("GET /api/jobs/{id}", s.handleJob)

	if s.deps.Metrics != nil {
		metricsPath := cfg.MetricsPath
		if metricsPath == "" {
			metricsPath = "/metrics"
		}
		s.mux.Handle("GET "+metricsPath, promhttp.HandlerFor(s.deps.Metrics, promhttp.HandlerOpts{}))
	}
}

// Handler returns the root handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start starts the HTTP server
func (s *Server) Start() error {
	s.logger.Info("starting HTTP server", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// Shutdown stops accepting requests, then cancels background builds and
// waits for them until ctx expires.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	err := s.httpServer.Shutdown(ctx)
	s.cancel()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-ctx.Done():
		return errors.Join(err, ctx.Err())
	}
	return err
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"stats":  s.deps.App.GetStats(),
	})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, s.deps.App.Status())
}

// handleBuild force-builds one pair. With async=true it answers 202 with a
// job to poll under /api/jobs/{id}.
func (s *Server) handleBuild(w http.ResponseWriter, r *http.Request) {
	pair := r.PathValue("pair")
	if async, _ := strconv.ParseBool(r.URL.Query().Get("async")); async {
		s.startBuildJob(w, pair)
		return
	}

	results, err := s.deps.App.RunOnce(r.Context(), true, pair)
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, core.ErrConfigMissing) {
			status = http.StatusNotFound
		}
		response.Error(w, status, err)
		return
	}
	response.JSON(w, http.StatusOK, results)
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	object := path.Clean(r.PathValue("object"))
	if object == "." || object == ".." || path.IsAbs(object) || strings.HasPrefix(object, "../") {
		response.Error(w, http.StatusBadRequest, core.WrapError(core.ErrConfigInvalid, fmt.Errorf("bad object %q", object)))
		return
	}

	ok, err := s.deps.Output.Exists(r.Context(), object)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}
	if !ok {
		response.Error(w, http.StatusNotFound, core.WrapError(core.ErrNoData, fmt.Errorf("%s not published", object)))
		return
	}
	data, err := s.deps.Output.Read(r.Context(), object)
	if err != nil {
		response.Error(w, http.StatusInternalServerError, err)
		return
	}

	contentType := mime.TypeByExtension(path.Ext(object))
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Cache-Control", "no-cache")
	w.Write(data)
}

type indexRow struct {
	Key       string
	Title     string
	Dashboard string
	PnLOnly   string
	Status    app.PairStatus
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	status := make(map[string]app.PairStatus)
	for _, st := range s.deps.App.Status() {
		status[st.Pair] = st
	}

	var rows []indexRow
	for _, p := range s.deps.App.PairConfigs() {
		rows = append(rows, indexRow{
			Key:       p.Key,
			Title:     p.Title,
			Dashboard: p.Pages.Dashboard,
			PnLOnly:   p.Pages.PnLOnly,
			Status:    status[p.Key],
		})
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := s.index.Execute(w, rows); err != nil {
		s.logger.Error("rendering index", zap.Error(err))
	}
}

const indexTemplate = `<!DOCTYPE html>
<html>
<head><meta charset="utf-8"><title>pipboard</title></head>
<body>
<h1>pipboard</h1>
<table>
<tr><th>Pair</th><th>Dashboard</th><th>PnL</th><th>Last build</th><th>Status</th></tr>
{{range .}}<tr>
<td>{{.Title}}</td>
<td><a href="/pages/{{.Dashboard}}">{{.Dashboard}}</a></td>
<td><a href="/pages/{{.PnLOnly}}">{{.PnLOnly}}</a></td>
<td>{{if not .Status.LastBuild.IsZero}}{{.Status.LastBuild.UTC.Format "2006-01-02 15:04:05"}}{{else}}-{{end}}</td>
<td>{{if .Status.Error}}{{.Status.Error}}{{else if .Status.Skipped}}up to date{{else}}ok{{end}}</td>
</tr>
{{end}}</table>
</body>
</html>
`
