package api

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/tidwall/gjson"

	"github.com/JakeFAU/zerovo-site/internal/config"
	"github.com/JakeFAU/zerovo-site/internal/metricstore"
)

func postMetric(env *testEnv, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/api/metrics", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", browserUA)
	return env.do(req)
}

func TestSubmitMetricCreated(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	rec := postMetric(env, `{"id":"30min","calLoadTime":840.5,"iframeLoadTime":120,"totalDuration":960.5,"userAgent":"spoofed"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Equal(t, "no-cache", rec.Header().Get("Cache-Control"))
	require.Equal(t, "2025-03-01T12:00:00Z", rec.Header().Get("X-Metrics-Received"))

	body := rec.Body.String()
	require.True(t, gjson.Get(body, "success").Bool())
	require.Equal(t, "30min", gjson.Get(body, "metrics.id").String())
	require.Equal(t, browserUA, gjson.Get(body, "metrics.userAgent").String())
	require.Equal(t, "2025-03-01T12:00:00Z", gjson.Get(body, "metrics.timestamp").String())
	require.InDelta(t, 840.5, gjson.Get(body, "summary.avgLoadTime").Float(), 0.001)
	require.EqualValues(t, 1, gjson.Get(body, "summary.totalSamples").Int())
	require.Equal(t, 1, env.store.Len())
}

func TestSubmitMetricRejectsMissingLoadTime(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	postMetric(env, `{"id":"seed","calLoadTime":100}`)

	cases := map[string]string{
		"missing load time": `{"id":"30min"}`,
		"zero load time":    `{"id":"30min","calLoadTime":0}`,
		"missing id":        `{"calLoadTime":120}`,
		"malformed json":    `{"id":`,
		"wrong type":        `{"id":"30min","calLoadTime":"fast"}`,
	}
	for name, body := range cases {
		rec := postMetric(env, body)
		require.Equal(t, http.StatusBadRequest, rec.Code, name)
		require.Equal(t, "Invalid payload: id and calLoadTime are required",
			gjson.Get(rec.Body.String(), "error").String(), name)
		require.Empty(t, rec.Header().Get("X-Metrics-Received"), name)
	}
	require.Equal(t, 1, env.store.Len())
}

func TestSubmitMetricEvictsBeyondCapacity(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(c *config.Config) { c.Metrics.Capacity = 3 })
	for i := 1; i <= 5; i++ {
		rec := postMetric(env, fmt.Sprintf(`{"id":"s%d","calLoadTime":%d}`, i, i*100))
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	ids := gjson.Get(rec.Body.String(), "metrics.#.id").Array()
	require.Len(t, ids, 3)
	require.Equal(t, "s3", ids[0].String())
	require.Equal(t, "s5", ids[2].String())
	require.EqualValues(t, 3, gjson.Get(rec.Body.String(), "summary.total").Int())
}

func TestQueryMetricsLimitAndFilter(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	for i := 1; i <= 150; i++ {
		s := metricstore.Sample{ID: fmt.Sprintf("s%d", i), CalLoadTime: float64(i)}
		if i%50 == 0 {
			s.Error = "Failed to load calendar"
		}
		_, _, err := env.store.Submit(s, browserUA)
		require.NoError(t, err)
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Len(t, gjson.Get(body, "metrics").Array(), 100)
	require.Equal(t, "s150", gjson.Get(body, "metrics.99.id").String())
	require.Equal(t, "2025-03-01T12:00:00Z", gjson.Get(body, "timestamp").String())
	require.EqualValues(t, 150, gjson.Get(body, "summary.total").Int())
	require.EqualValues(t, 3, gjson.Get(body, "summary.errors").Int())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/metrics?limit=5", nil))
	ids := gjson.Get(rec.Body.String(), "metrics.#.id").Array()
	require.Len(t, ids, 5)
	require.Equal(t, "s146", ids[0].String())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/metrics?errorOnly=true&limit=2", nil))
	ids = gjson.Get(rec.Body.String(), "metrics.#.id").Array()
	require.Len(t, ids, 2)
	require.Equal(t, "s100", ids[0].String())
	require.Equal(t, "s150", ids[1].String())
	// Filters never narrow the summary.
	require.EqualValues(t, 150, gjson.Get(rec.Body.String(), "summary.total").Int())

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/metrics?errorOnly=yes&limit=abc", nil))
	require.Len(t, gjson.Get(rec.Body.String(), "metrics").Array(), 100)

	rec = env.do(httptest.NewRequest(http.MethodGet, "/api/metrics?limit=0", nil))
	require.True(t, gjson.Get(rec.Body.String(), "metrics").IsArray())
	require.Empty(t, gjson.Get(rec.Body.String(), "metrics").Array())
}

func TestQueryMetricsPercentile(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	for i := 100; i >= 1; i-- {
		_, _, err := env.store.Submit(metricstore.Sample{ID: "p", CalLoadTime: float64(i)}, "")
		require.NoError(t, err)
	}

	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/metrics?limit=1", nil))
	body := rec.Body.String()
	require.InDelta(t, 95, gjson.Get(body, "summary.p95LoadTime").Float(), 0.001)
	require.InDelta(t, 1, gjson.Get(body, "summary.minLoadTime").Float(), 0.001)
	require.InDelta(t, 100, gjson.Get(body, "summary.maxLoadTime").Float(), 0.001)
	require.InDelta(t, 50.5, gjson.Get(body, "summary.avgLoadTime").Float(), 0.001)
}

func TestQueryMetricsEmptyStore(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, nil)
	rec := env.do(httptest.NewRequest(http.MethodGet, "/api/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.EqualValues(t, 0, gjson.Get(body, "summary.total").Int())
	require.EqualValues(t, 0, gjson.Get(body, "summary.p95LoadTime").Int())
	require.True(t, gjson.Get(body, "metrics").IsArray())
}

func TestSubmitMetricThrottledPerClient(t *testing.T) {
	t.Parallel()

	env := newTestEnv(t, func(cfg *config.Config) {
		cfg.Metrics.SubmitRPS = 1
		cfg.Metrics.SubmitBurst = 2
	})
	body := `{"id":"30min","calLoadTime":500}`
	require.Equal(t, http.StatusCreated, postMetric(env, body).Code)
	require.Equal(t, http.StatusCreated, postMetric(env, body).Code)

	rec := postMetric(env, body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "1", rec.Header().Get("Retry-After"))
	require.Equal(t, "Too many requests", gjson.Get(rec.Body.String(), "error").String())
	require.Equal(t, 2, env.store.Len())

	// Reads are never throttled.
	req := httptest.NewRequest(http.MethodGet, "/api/metrics", nil)
	require.Equal(t, http.StatusOK, env.do(req).Code)

	env.clock.Advance(time.Second)
	require.Equal(t, http.StatusCreated, postMetric(env, body).Code)
}
