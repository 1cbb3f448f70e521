// Package metrics exposes Prometheus collectors for the site server.
package metrics

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequestsTotal          *prometheus.CounterVec
	httpRequestDurationSeconds *prometheus.HistogramVec
	pageViewsTotal             *prometheus.CounterVec
	loaderDecisionsTotal       *prometheus.CounterVec
	loaderStreamsActive        prometheus.Gauge
	schedulingActionsTotal     *prometheus.CounterVec
	samplesReceivedTotal       *prometheus.CounterVec
	linkChecksTotal            *prometheus.CounterVec
	rateLimitedTotal           *prometheus.CounterVec

	once sync.Once
)

// Init registers the collectors with the default registry.
// It is safe to call this function multiple times.
func Init() {
	once.Do(func() {
		httpRequestsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests, labeled by method and code.",
			},
			[]string{"method", "code"},
		)

		httpRequestDurationSeconds = promauto.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "Histogram of HTTP request latencies, labeled by method and route.",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
			},
			[]string{"method", "route"},
		)

		pageViewsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "site_page_views_total",
				Help: "Rendered marketing pages, labeled by page path.",
			},
			[]string{"page"},
		)

		loaderDecisionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "site_loader_decisions_total",
				Help: "Session gate outcomes for the first-visit loader.",
			},
			[]string{"decision"},
		)

		loaderStreamsActive = promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "site_loader_streams_active",
				Help: "Loader frame streams currently open.",
			},
		)

		schedulingActionsTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "site_scheduling_actions_total",
				Help: "Scheduling widget actions, labeled by action and resulting state.",
			},
			[]string{"action", "state"},
		)

		samplesReceivedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "site_metric_samples_received_total",
				Help: "Widget metric samples posted to the collection endpoint, labeled by result.",
			},
			[]string{"result"},
		)

		linkChecksTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "site_link_checks_total",
				Help: "Links visited by the link checker, labeled by host and status class.",
			},
			[]string{"host", "status"},
		)

		rateLimitedTotal = promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "site_rate_limited_total",
				Help: "Requests rejected by a per-client rate limit, labeled by route.",
			},
			[]string{"route"},
		)
	})
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}

// StatusClass buckets an HTTP status into "2xx".."5xx", or "error" for zero.
func StatusClass(code int) string {
	if code < 100 || code > 599 {
		return "error"
	}
	return strconv.Itoa(code/100) + "xx"
}

// Handler returns an http.Handler for exposing Prometheus metrics.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware records request counts and latency by chi route pattern.
func Middleware(next http.Handler) http.Handler {
	Init()
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)
		ObserveHTTPRequest(r.Method, RoutePattern(r), rec.statusCode, time.Since(start))
	})
}

// RoutePattern returns the matched chi pattern, or "unknown".
func RoutePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unknown"
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (rec *statusRecorder) WriteHeader(code int) {
	rec.statusCode = code
	rec.ResponseWriter.WriteHeader(code)
}

// Flush keeps server-sent event streams working behind the recorder.
func (rec *statusRecorder) Flush() {
	if f, ok := rec.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rec *statusRecorder) Unwrap() http.ResponseWriter {
	return rec.ResponseWriter
}

// ObserveHTTPRequest increments the HTTP request metrics.
func ObserveHTTPRequest(method, route string, code int, duration time.Duration) {
	httpRequestsTotal.WithLabelValues(method, strconv.Itoa(code)).Inc()
	httpRequestDurationSeconds.WithLabelValues(method, route).Observe(duration.Seconds())
}

// ObservePageView counts a rendered page.
func ObservePageView(page string) {
	pageViewsTotal.WithLabelValues(page).Inc()
}

// ObserveLoaderDecision counts a session gate outcome.
func ObserveLoaderDecision(decision string) {
	loaderDecisionsTotal.WithLabelValues(decision).Inc()
}

// IncLoaderStreams marks a loader stream as opened.
func IncLoaderStreams() {
	loaderStreamsActive.Inc()
}

// DecLoaderStreams marks a loader stream as closed.
func DecLoaderStreams() {
	loaderStreamsActive.Dec()
}

// ObserveSchedulingAction counts a widget action and the state it produced.
func ObserveSchedulingAction(action, state string) {
	schedulingActionsTotal.WithLabelValues(action, state).Inc()
}

// ObserveSampleReceived counts a metrics endpoint submission.
func ObserveSampleReceived(result string) {
	samplesReceivedTotal.WithLabelValues(result).Inc()
}

// ObserveLinkCheck counts a visited link.
func ObserveLinkCheck(rawURL string, code int) {
	linkChecksTotal.WithLabelValues(SanitizeSite(rawURL), StatusClass(code)).Inc()
}

// ObserveRateLimited counts a throttled request.
func ObserveRateLimited(route string) {
	rateLimitedTotal.WithLabelValues(route).Inc()
}
