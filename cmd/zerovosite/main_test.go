package main

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/zerovo-site/internal/config"
)

func testConfig(t *testing.T) config.Config {
	t.Helper()
	cfg, err := config.Load("")
	require.NoError(t, err)
	return cfg
}

func useApp(t *testing.T, cfg config.Config) {
	t.Helper()
	orig := newApp
	newApp = func(string) (*app, error) {
		return &app{cfg: cfg, logger: zap.NewNop()}, nil
	}
	t.Cleanup(func() { newApp = orig })
}

func startSite(t *testing.T, cfg config.Config) *httptest.Server {
	t.Helper()
	svc, err := buildServices(context.Background(), cfg, zap.NewNop(), prometheus.NewRegistry())
	require.NoError(t, err)
	srv := httptest.NewServer(svc.server.Handler())
	t.Cleanup(func() {
		srv.Close()
		svc.close(context.Background())
	})
	return srv
}

func TestRootCommandTree(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "loader", "linkcheck", "vitals"} {
		require.True(t, names[want], want)
	}
	require.NotNil(t, root.PersistentFlags().Lookup("config"))
}

func TestBuildServicesServesSite(t *testing.T) {
	srv := startSite(t, testConfig(t))

	for _, path := range []string{"/healthz", "/", "/services", "/sitemap.xml", "/static/site.css"} {
		resp, err := srv.Client().Get(srv.URL + path)
		require.NoError(t, err, path)
		require.NoError(t, resp.Body.Close())
		require.Equal(t, http.StatusOK, resp.StatusCode, path)
	}
}

func TestBuildServicesRejectsDuplicateCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	cfg := testConfig(t)
	svc, err := buildServices(context.Background(), cfg, zap.NewNop(), reg)
	require.NoError(t, err)
	t.Cleanup(func() { svc.close(context.Background()) })

	_, err = buildServices(context.Background(), cfg, zap.NewNop(), reg)
	require.ErrorContains(t, err, "prometheus sink")
}

func TestLinkCheckCommandPassesOnOwnSite(t *testing.T) {
	cfg := testConfig(t)
	srv := startSite(t, cfg)
	useApp(t, cfg)

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetArgs([]string{"linkcheck", srv.URL})
	require.NoError(t, root.Execute(), out.String())
	require.Contains(t, out.String(), "0 broken, 0 blocked")
}

func TestLinkCheckCommandFailsOnBrokenLinks(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sitemap.xml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		fmt.Fprintf(w, `<urlset xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"><url><loc>http://%s/gone</loc></url></urlset>`, r.Host)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	useApp(t, testConfig(t))

	var out bytes.Buffer
	root := newRootCmd()
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs([]string{"linkcheck", "--json", srv.URL})
	err := root.Execute()
	require.ErrorIs(t, err, errBrokenLinks)
	require.Contains(t, out.String(), `"status": 404`)
}
