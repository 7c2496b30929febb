// Package metrics exposes Prometheus collectors for the API, the line
// generator and the draw importer.
package metrics

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "lottery_insight"

// Metrics owns a registry and every collector registered on it.
type Metrics struct {
	Registry *prometheus.Registry

	httpRequests     *prometheus.CounterVec
	httpDuration     *prometheus.HistogramVec
	linesGenerated   *prometheus.CounterVec
	linesRelaxed     *prometheus.CounterVec
	unsatisfiable    *prometheus.CounterVec
	generateDuration *prometheus.HistogramVec
	analytics        *prometheus.CounterVec
	drawsImported    *prometheus.CounterVec
	wsClients        prometheus.Gauge
}

// New builds and registers the collectors on a fresh registry.
func New() *Metrics {
	m := &Metrics{
		Registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "http", Name: "requests_total",
			Help: "Total number of HTTP requests handled.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "http", Name: "request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.ExponentialBuckets(0.001, 2, 12), // 1ms to ~4s
		}, []string{"method", "route"}),
		linesGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "generator", Name: "lines_total",
			Help: "Candidate lines generated.",
		}, []string{"strategy"}),
		linesRelaxed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "generator", Name: "relaxed_lines_total",
			Help: "Lines that needed avoid_runs dropped to be satisfied.",
		}, []string{"strategy"}),
		unsatisfiable: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "generator", Name: "unsatisfiable_total",
			Help: "Generate requests that failed even after relaxation.",
		}, []string{"strategy"}),
		generateDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "generator", Name: "request_duration_seconds",
			Help:    "Duration of generate requests.",
			Buckets: prometheus.ExponentialBuckets(0.0005, 2, 12),
		}, []string{"strategy"}),
		analytics: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "analytics", Name: "requests_total",
			Help: "Analytics computations served.",
		}, []string{"game_id"}),
		drawsImported: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "importer", Name: "draws_total",
			Help: "Draws upserted by imports.",
		}, []string{"game_id"}),
		wsClients: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "ws", Name: "clients",
			Help: "Connected live feed clients.",
		}),
	}
	m.Registry.MustRegister(
		m.httpRequests, m.httpDuration,
		m.linesGenerated, m.linesRelaxed, m.unsatisfiable, m.generateDuration,
		m.analytics, m.drawsImported, m.wsClients,
		prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		prometheus.NewGoCollector(),
	)
	return m
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

// Instrument records request counts and durations labelled by chi route
// pattern. The wrapped writer still supports hijacking for websockets.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		method := strings.ToUpper(r.Method)
		m.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
		m.httpDuration.WithLabelValues(method, route).Observe(time.Since(start).Seconds())
	})
}

// LineGenerated implements generator.Observer.
func (m *Metrics) LineGenerated(strategy string) { m.linesGenerated.WithLabelValues(strategy).Inc() }

// LineRelaxed implements generator.Observer.
func (m *Metrics) LineRelaxed(strategy string) { m.linesRelaxed.WithLabelValues(strategy).Inc() }

// Unsatisfiable implements generator.Observer.
func (m *Metrics) Unsatisfiable(strategy string) { m.unsatisfiable.WithLabelValues(strategy).Inc() }

// ObserveGenerate records how long a generate request took.
func (m *Metrics) ObserveGenerate(strategy string, d time.Duration) {
	m.generateDuration.WithLabelValues(strategy).Observe(d.Seconds())
}

// AnalyticsServed counts one analytics computation.
func (m *Metrics) AnalyticsServed(gameID string) { m.analytics.WithLabelValues(gameID).Inc() }

// DrawsImported implements importer.Observer.
func (m *Metrics) DrawsImported(_ context.Context, gameID string, n int) {
	m.drawsImported.WithLabelValues(gameID).Add(float64(n))
}

// ClientConnected and ClientDisconnected track live feed clients.
func (m *Metrics) ClientConnected()    { m.wsClients.Inc() }
func (m *Metrics) ClientDisconnected() { m.wsClients.Dec() }
