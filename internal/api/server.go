package api

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/JakeFAU/zerovo-site/internal/clock"
	"github.com/JakeFAU/zerovo-site/internal/config"
	"github.com/JakeFAU/zerovo-site/internal/id"
	"github.com/JakeFAU/zerovo-site/internal/logging"
	"github.com/JakeFAU/zerovo-site/internal/metrics"
	"github.com/JakeFAU/zerovo-site/internal/metricstore"
	"github.com/JakeFAU/zerovo-site/internal/ratelimit"
	"github.com/JakeFAU/zerovo-site/internal/scheduling"
	"github.com/JakeFAU/zerovo-site/internal/session"
	"github.com/JakeFAU/zerovo-site/internal/site"
	"github.com/JakeFAU/zerovo-site/internal/tracing"
)

// Deps bundles everything the server needs. Catalog, Renderer, Store and
// Registry are required; the rest fall back to sensible defaults.
type Deps struct {
	Config   config.Config
	Logger   *zap.Logger
	Catalog  *site.Catalog
	Renderer *site.Renderer
	Gate     *session.Gate
	Store    *metricstore.Store
	Registry *scheduling.Registry
	Tracing  *tracing.Provider
	Clock    clock.Clock
	IDs      id.Generator
	// SubmitLimiter throttles metric submissions; built from config when nil.
	SubmitLimiter *ratelimit.Limiter
}

// Server wires HTTP handlers to the site components.
type Server struct {
	router   chi.Router
	cfg      config.Config
	logger   *zap.Logger
	catalog  *site.Catalog
	renderer *site.Renderer
	gate     *session.Gate
	store    *metricstore.Store
	registry *scheduling.Registry
	clock    clock.Clock
	ids      id.Generator
	ready    atomic.Bool
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps) (*Server, error) {
	switch {
	case deps.Catalog == nil:
		return nil, errors.New("api: catalog is required")
	case deps.Renderer == nil:
		return nil, errors.New("api: renderer is required")
	case deps.Store == nil:
		return nil, errors.New("api: metric store is required")
	case deps.Registry == nil:
		return nil, errors.New("api: scheduling registry is required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Gate == nil {
		deps.Gate = session.NewGate(deps.Config.Loader.SessionKey, deps.Logger)
	}
	if deps.Clock == nil {
		deps.Clock = clock.System{}
	}
	if deps.IDs == nil {
		deps.IDs = id.New()
	}
	if deps.Tracing == nil {
		deps.Tracing = &tracing.Provider{}
	}
	if deps.SubmitLimiter == nil {
		deps.SubmitLimiter = ratelimit.New(ratelimit.Config{
			RPS:   deps.Config.Metrics.SubmitRPS,
			Burst: deps.Config.Metrics.SubmitBurst,
			Clock: deps.Clock,
		})
	}
	timeout := deps.Config.Server.RequestTimeout()
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	s := &Server{
		cfg:      deps.Config,
		logger:   deps.Logger,
		catalog:  deps.Catalog,
		renderer: deps.Renderer,
		gate:     deps.Gate,
		store:    deps.Store,
		registry: deps.Registry,
		clock:    deps.Clock,
		ids:      deps.IDs,
	}
	s.ready.Store(true)

	r := chi.NewRouter()
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(s.recoverMiddleware)
	r.Use(metrics.Middleware)
	r.Use(deps.Tracing.Middleware(metrics.RoutePattern))

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/sitemap.xml", s.sitemap)
	r.Get("/manifest.webmanifest", s.manifest)
	r.Get("/robots.txt", s.robots)
	r.Method(http.MethodGet, "/static/*", site.StaticHandler())
	// Streams outlive the request budget, so they stay outside the timeout group.
	r.Get(loaderStreamPath, s.loaderStream)

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(timeout))

		r.Route("/api", func(r chi.Router) {
			r.With(throttle(deps.SubmitLimiter)).Post("/metrics", s.submitMetric)
			r.Get("/metrics", s.queryMetrics)
			r.Route("/scheduling/{namespace}", func(r chi.Router) {
				r.Get("/", s.schedulingStatus)
				r.Post("/open", s.schedulingOpen)
				r.Post("/close", s.schedulingClose)
				r.Post("/retry", s.schedulingRetry)
				r.Post("/rendered", s.schedulingRendered)
			})
		})

		r.Group(func(r chi.Router) {
			r.Use(s.gate.Middleware)
			r.Get("/*", s.page)
		})
	})

	s.router = r
	return s, nil
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

// SetReady flips the readiness check; serve clears it while draining.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "draining"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready"})
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID, err := s.ids.NewID()
		if err != nil {
			s.logger.Warn("request id generation failed", zap.Error(err))
			reqID = "unknown"
		}
		ctx := r.Context()
		ctx = withRequestID(ctx, reqID)
		ctx = logging.WithLogger(ctx, s.logger.With(zap.String("request_id", reqID)))
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(ww, r)
		logging.FromContext(r.Context()).Info("request completed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.status),
			zap.Int64("duration_ms", time.Since(start).Milliseconds()),
		)
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logging.FromContext(r.Context()).Error("panic recovered",
					zap.Any("error", rec),
					zap.Stack("stack"),
				)
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

// throttle rejects callers whose bucket is empty with 429.
func throttle(l *ratelimit.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow(ratelimit.ClientKey(r)) {
				metrics.ObserveRateLimited(metrics.RoutePattern(r))
				logging.FromContext(r.Context()).Warn("metrics submission throttled",
					zap.String("client", ratelimit.ClientKey(r)))
				w.Header().Set("Retry-After", "1")
				writeError(w, http.StatusTooManyRequests, "Too many requests")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Flush() {
	if f, ok := rw.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func (rw *responseWriter) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	if h, ok := rw.ResponseWriter.(http.Hijacker); ok {
		conn, buf, err := h.Hijack()
		if err != nil {
			return nil, nil, fmt.Errorf("hijack connection: %w", err)
		}
		return conn, buf, nil
	}
	return nil, nil, errors.New("hijacker not supported")
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		zap.L().Error("write JSON failed", zap.Error(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
