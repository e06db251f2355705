package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// HTTP metrics
	httpRequestsTotal    *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
	httpRequestsInFlight prometheus.Gauge

	// Build metrics
	buildsTotal     *prometheus.CounterVec
	buildDuration   *prometheus.HistogramVec
	pagesPublished  *prometheus.CounterVec
	alertsFired     *prometheus.CounterVec
	lastBuild       *prometheus.GaugeVec
	notifierResults *prometheus.CounterVec
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		httpRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "route", "status"},
		),

		httpRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "route"},
		),

		httpRequestsInFlight: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "http_requests_in_flight",
				Help: "Number of HTTP requests currently in flight",
			},
		),
	}

	reg.MustRegister(r.httpRequestsTotal)
	reg.MustRegister(r.httpRequestDuration)
	reg.MustRegister(r.httpRequestsInFlight)

	// Build metrics
	r.buildsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipboard_builds_total",
			Help: "Total number of dashboard builds by outcome",
		},
		[]string{"pair", "status"},
	)
	r.buildDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pipboard_build_duration_seconds",
			Help:    "Dashboard build duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"pair"},
	)
	r.pagesPublished = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipboard_pages_published_total",
			Help: "Total number of objects published",
		},
		[]string{"pair", "page"},
	)
	r.alertsFired = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipboard_alerts_fired_total",
			Help: "Total number of alerts fired",
		},
		[]string{"pair", "kind"},
	)
	r.lastBuild = prometheus.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "pipboard_last_build_timestamp_seconds",
			Help: "Unix time of the last successful build",
		},
		[]string{"pair"},
	)
	r.notifierResults = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipboard_notifications_total",
			Help: "Total number of alert batches sent to notifiers",
		},
		[]string{"notifier", "status"},
	)

	reg.MustRegister(r.buildsTotal)
	reg.MustRegister(r.buildDuration)
	reg.MustRegister(r.pagesPublished)
	reg.MustRegister(r.alertsFired)
	reg.MustRegister(r.lastBuild)
	reg.MustRegister(r.notifierResults)

	return r
}

// RecordRequest records metrics for an HTTP request served by route.
func (r *Registry) RecordRequest(method, route string, status int, duration float64) {
	statusStr := statusToString(status)
	r.httpRequestsTotal.WithLabelValues(method, route, statusStr).Inc()
	r.httpRequestDuration.WithLabelValues(method, route).Observe(duration)
}

// InFlightInc increments in-flight requests.
func (r *Registry) InFlightInc() {
	r.httpRequestsInFlight.Inc()
}

// InFlightDec decrements in-flight requests.
func (r *Registry) InFlightDec() {
	r.httpRequestsInFlight.Dec()
}

// RecordBuild records a finished build. status is "ok", "skipped" or "error".
func (r *Registry) RecordBuild(pair, status string, duration float64) {
	r.buildsTotal.WithLabelValues(pair, status).Inc()
	r.buildDuration.WithLabelValues(pair).Observe(duration)
}

// SetLastBuild sets the time of the last successful build.
func (r *Registry) SetLastBuild(pair string, unix float64) {
	r.lastBuild.WithLabelValues(pair).Set(unix)
}

// RecordPagePublished records one published object.
func (r *Registry) RecordPagePublished(pair, page string) {
	r.pagesPublished.WithLabelValues(pair, page).Inc()
}

// RecordAlert records a fired alert.
func (r *Registry) RecordAlert(pair, kind string) {
	r.alertsFired.WithLabelValues(pair, kind).Inc()
}

// RecordNotification records a notifier delivery.
func (r *Registry) RecordNotification(notifier, status string) {
	r.notifierResults.WithLabelValues(notifier, status).Inc()
}

func statusToString(status int) string {
	switch {
	case status >= 500:
		return "5xx"
	case status >= 400:
		return "4xx"
	case status >= 300:
		return "3xx"
	case status >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
