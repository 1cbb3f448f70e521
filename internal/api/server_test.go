package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/JakeFAU/zerovo-site/internal/clock"
	"github.com/JakeFAU/zerovo-site/internal/config"
	"github.com/JakeFAU/zerovo-site/internal/metricstore"
	"github.com/JakeFAU/zerovo-site/internal/scheduling"
	"github.com/JakeFAU/zerovo-site/internal/site"
)

const browserUA = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 Chrome/126.0 Safari/537.36"

type testEnv struct {
	server   *Server
	store    *metricstore.Store
	registry *scheduling.Registry
	clock    *clock.Manual
	widget   *httptest.Server
	// widgetFail makes the embed script endpoint return 503.
	widgetFail *atomic.Bool
}

func testConfig() config.Config {
	return config.Config{
		Server: config.ServerConfig{Port: 8080, RequestTimeoutSeconds: 5},
		Site: config.SiteConfig{
			Name:        "Zerovo Labs",
			BaseURL:     "https://zerovolabs.in",
			Description: "AI Automation & Custom Software Development",
			ThemeColor:  "#0a1929",
		},
		Loader: config.LoaderConfig{Enabled: true, SessionKey: "zerovo_loader_shown", FrameMillis: 1},
		Scheduling: config.SchedulingConfig{
			DefaultLink:      "ravi-zerovo/30min",
			DefaultNamespace: "30min",
			IframeBaseURL:    "https://cal.com",
			BrandColor:       "#38bdf8",
			Layout:           "month_view",
		},
		Metrics: config.MetricsConfig{Capacity: 1000, DefaultLimit: 100, SlowThresholdMs: 3000},
	}
}

func newTestEnv(t *testing.T, mutate func(*config.Config)) *testEnv {
	t.Helper()

	cfg := testConfig()
	if mutate != nil {
		mutate(&cfg)
	}

	fail := &atomic.Bool{}
	widget := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/javascript")
		_, _ = w.Write([]byte("window.Cal = window.Cal || function () {};"))
	}))
	t.Cleanup(widget.Close)

	clk := clock.NewManual(time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC))
	store := metricstore.New(metricstore.Options{Capacity: cfg.Metrics.Capacity, Clock: clk})
	embed := scheduling.NewEmbedClient(widget.URL+"/embed.js", widget.Client(), zap.NewNop())
	registry := scheduling.NewRegistry(scheduling.RegistryOptions{
		Factory: func(sid, ns string, lock *scheduling.ScrollLock) *scheduling.Controller {
			return scheduling.NewController(scheduling.Options{
				Namespace:     ns,
				TimerID:       scheduling.SessionTimerID(sid, ns),
				DefaultLink:   cfg.Scheduling.DefaultLink,
				IframeBaseURL: cfg.Scheduling.IframeBaseURL,
				UI:            scheduling.DefaultUIConfig(cfg.Scheduling.BrandColor, cfg.Scheduling.Layout),
				Client:        embed,
				ScrollLock:    lock,
			})
		},
		IdleTTL: time.Hour,
		Clock:   clk,
	})
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		require.NoError(t, registry.Close(ctx))
	})

	pages, err := site.NewCatalog(site.DefaultPages()...)
	require.NoError(t, err)
	renderer, err := site.NewRenderer()
	require.NoError(t, err)

	srv, err := NewServer(Deps{
		Config:   cfg,
		Logger:   zap.NewNop(),
		Catalog:  pages,
		Renderer: renderer,
		Store:    store,
		Registry: registry,
		Clock:    clk,
	})
	require.NoError(t, err)

	return &testEnv{
		server:     srv,
		store:      store,
		registry:   registry,
		clock:      clk,
		widget:     widget,
		widgetFail: fail,
	}
}

func (e *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	e.server.Handler().ServeHTTP(rec, req)
	return rec
}

func TestNewServerRequiresDependencies(t *testing.T) {
	t.Parallel()

	_, err := NewServer(Deps{})
	require.ErrorContains(t, err, "catalog is required")
}

func TestHealthAndReadiness(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", gjson.Get(rec.Body.String(), "status").String())
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = env.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ready", gjson.Get(rec.Body.String(), "status").String())

	env.server.SetReady(false)
	rec = env.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "draining", gjson.Get(rec.Body.String(), "status").String())
}

func TestPrometheusEndpoint(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	env.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))

	rec := env.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestRecoverMiddlewareConvertsPanics(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	h := env.server.requestIDMiddleware(env.server.recoverMiddleware(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Equal(t, "internal server error", gjson.Get(rec.Body.String(), "error").String())
}

func TestResponseWriterUnwrapsForFlush(t *testing.T) {
	t.Parallel()

	rec := httptest.NewRecorder()
	rw := &responseWriter{ResponseWriter: rec, status: http.StatusOK}
	require.NoError(t, http.NewResponseController(rw).Flush())
	require.True(t, rec.Flushed)

	_, _, err := rw.Hijack()
	require.Error(t, err)
}

func TestSitemapManifestAndRobots(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)

	rec := env.do(httptest.NewRequest(http.MethodGet, "/sitemap.xml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Header().Get("Content-Type"), "application/xml")
	require.Contains(t, rec.Body.String(), "<loc>https://zerovolabs.in</loc>")
	require.Contains(t, rec.Body.String(), "<loc>https://zerovolabs.in/services/ai-automation</loc>")
	require.Contains(t, rec.Body.String(), "<lastmod>2025-03-01T12:00:00Z</lastmod>")

	rec = env.do(httptest.NewRequest(http.MethodGet, "/manifest.webmanifest", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "Zerovo Labs", gjson.Get(rec.Body.String(), "name").String())
	require.Equal(t, "#0a1929", gjson.Get(rec.Body.String(), "theme_color").String())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/robots.txt", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "Sitemap: https://zerovolabs.in/sitemap.xml")
}

func TestStaticAssets(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/static/loader.js", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "EventSource")
}
