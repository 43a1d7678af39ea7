package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects the Prometheus metrics of the service.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	renders        *prometheus.CounterVec
	renderDuration *prometheus.HistogramVec
	probes         *prometheus.CounterVec
	breaks         *prometheus.CounterVec
}

// NewMetrics creates the registry and every collector.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docrender_http_requests_total",
		Help: "HTTP requests by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docrender_http_request_duration_seconds",
		Help:    "HTTP request duration per route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	renders := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docrender_renders_total",
		Help: "Renders by document kind, template and result.",
	}, []string{"kind", "template", "result"})
	renderDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "docrender_render_duration_seconds",
		Help:    "Render duration by document kind.",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"kind"})
	probes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docrender_pagecount_probes_total",
		Help: "Page count probes by cache outcome.",
	}, []string{"cache"})
	breaks := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "docrender_forced_breaks_total",
		Help: "Forced page breaks by reason.",
	}, []string{"reason"})
	registry.MustRegister(requests, duration, renders, renderDuration, probes, breaks)
	return &Metrics{
		registry:        registry,
		handler:         promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:   requests,
		requestDuration: duration,
		renders:         renders,
		renderDuration:  renderDuration,
		probes:          probes,
		breaks:          breaks,
	}
}

// Handler serves the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObserveRender records one finished render.
func (m *Metrics) ObserveRender(kind, template string, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := "ok"
	if err != nil {
		result = "error"
	}
	m.renders.WithLabelValues(kind, template, result).Inc()
	m.renderDuration.WithLabelValues(kind).Observe(elapsed.Seconds())
}

// ObserveProbe records a page count probe.
func (m *Metrics) ObserveProbe(hit bool) {
	if m == nil {
		return
	}
	label := "miss"
	if hit {
		label = "hit"
	}
	m.probes.WithLabelValues(label).Inc()
}

// ObserveBreak records a forced page break.
func (m *Metrics) ObserveBreak(reason string) {
	if m == nil {
		return
	}
	m.breaks.WithLabelValues(reason).Inc()
}

// Registerer exposes the registry for custom collectors.
func (m *Metrics) Registerer() prometheus.Registerer {
	if m == nil {
		return prometheus.DefaultRegisterer
	}
	return m.registry
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func routePattern(r *http.Request) string {
	if routeCtx := chi.RouteContext(r.Context()); routeCtx != nil {
		if pattern := routeCtx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return "unknown"
}
