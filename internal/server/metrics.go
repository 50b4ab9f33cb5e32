package server

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/matzehuels/repobubbles/pkg/observability"
)

var (
	// HTTP request metrics
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repobubbles_http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repobubbles_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)

	// Pipeline metrics
	treesLoadedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repobubbles_trees_loaded_total",
			Help: "Total number of input trees read",
		},
		[]string{"status"},
	)

	layoutDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repobubbles_layout_duration_seconds",
			Help:    "Time spent in one layout pass",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 8),
		},
		[]string{"status"},
	)

	layoutCircles = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "repobubbles_layout_circles",
			Help:    "Number of circles produced by a layout pass",
			Buckets: prometheus.ExponentialBuckets(8, 4, 7),
		},
	)

	layoutsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "repobubbles_layouts_in_flight",
			Help: "Layout passes currently running",
		},
	)

	snapshotLoadsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repobubbles_snapshot_loads_total",
			Help: "Position snapshot lookups by outcome",
		},
		[]string{"found"},
	)

	snapshotSavesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repobubbles_snapshot_saves_total",
			Help: "Position snapshot writes by outcome",
		},
		[]string{"status"},
	)

	snapshotEntries = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "repobubbles_snapshot_entries",
			Help:    "Number of positions in a saved snapshot",
			Buckets: prometheus.ExponentialBuckets(8, 4, 7),
		},
	)

	renderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "repobubbles_render_duration_seconds",
			Help:    "Time spent rendering artifacts",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"status"},
	)

	// Cache metrics
	cacheOpsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repobubbles_cache_operations_total",
			Help: "Cache operations by key type and result",
		},
		[]string{"key_type", "result"},
	)

	cacheBytesWritten = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "repobubbles_cache_bytes_written_total",
			Help: "Bytes written to the cache",
		},
		[]string{"key_type"},
	)

	// Projects held in memory
	projectsActive = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "repobubbles_projects_active",
			Help: "Projects with an engine held in memory",
		},
	)
)

// metricsHandler returns the Prometheus metrics HTTP handler.
func metricsHandler() http.Handler {
	return promhttp.Handler()
}

// metricsMiddleware records request counts and latency by route pattern.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil && rc.RoutePattern() != "" {
			route = rc.RoutePattern()
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

func statusLabel(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}

// =============================================================================
// Observability hooks
// =============================================================================

// metricsHooks feeds pipeline and cache events into Prometheus.
type metricsHooks struct{}

var (
	_ observability.PipelineHooks = metricsHooks{}
	_ observability.CacheHooks    = metricsHooks{}
)

// RegisterHooks installs the Prometheus-backed observability hooks.
func RegisterHooks() {
	observability.SetPipelineHooks(metricsHooks{})
	observability.SetCacheHooks(metricsHooks{})
}

func (metricsHooks) OnTreeLoaded(_ context.Context, _ string, _ int, _ time.Duration, err error) {
	treesLoadedTotal.WithLabelValues(statusLabel(err)).Inc()
}

func (metricsHooks) OnLayoutStart(context.Context, string, int) {
	layoutsInFlight.Inc()
}

func (metricsHooks) OnLayoutComplete(_ context.Context, _ string, circles int, d time.Duration, err error) {
	layoutsInFlight.Dec()
	layoutDuration.WithLabelValues(statusLabel(err)).Observe(d.Seconds())
	if err == nil && circles > 0 {
		layoutCircles.Observe(float64(circles))
	}
}

func (metricsHooks) OnSnapshotLoad(_ context.Context, _ string, found bool) {
	snapshotLoadsTotal.WithLabelValues(strconv.FormatBool(found)).Inc()
}

func (metricsHooks) OnSnapshotSave(_ context.Context, _ string, entries int, err error) {
	snapshotSavesTotal.WithLabelValues(statusLabel(err)).Inc()
	if err == nil {
		snapshotEntries.Observe(float64(entries))
	}
}

func (metricsHooks) OnRenderStart(context.Context, []string) {}

func (metricsHooks) OnRenderComplete(_ context.Context, _ []string, d time.Duration, err error) {
	renderDuration.WithLabelValues(statusLabel(err)).Observe(d.Seconds())
}

func (metricsHooks) OnCacheHit(_ context.Context, keyType string) {
	cacheOpsTotal.WithLabelValues(keyType, "hit").Inc()
}

func (metricsHooks) OnCacheMiss(_ context.Context, keyType string) {
	cacheOpsTotal.WithLabelValues(keyType, "miss").Inc()
}

func (metricsHooks) OnCacheSet(_ context.Context, keyType string, size int) {
	cacheOpsTotal.WithLabelValues(keyType, "set").Inc()
	cacheBytesWritten.WithLabelValues(keyType).Add(float64(size))
}
