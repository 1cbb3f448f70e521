package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestSanitizeSite(t *testing.T) {
	testCases := []struct {
		name     string
		input    string
		expected string
	}{
		{"standard http", "http://example.com/path", "example.com"},
		{"standard https", "https://Example.com/path", "example.com"},
		{"no scheme", "example.com/path", "example.com"},
		{"host with port", "localhost:8080", "localhost"},
		{"invalid url", "http://%", "unknown"},
		{"empty string", "", "unknown"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := SanitizeSite(tc.input); got != tc.expected {
				t.Errorf("SanitizeSite(%q) = %q; want %q", tc.input, got, tc.expected)
			}
		})
	}
}

func TestStatusClass(t *testing.T) {
	for code, want := range map[int]string{200: "2xx", 301: "3xx", 404: "4xx", 503: "5xx", 0: "error", 700: "error"} {
		if got := StatusClass(code); got != want {
			t.Errorf("StatusClass(%d) = %q; want %q", code, got, want)
		}
	}
}

func TestInitIsIdempotent(t *testing.T) {
	Init()
	Init()

	if pageViewsTotal == nil || loaderDecisionsTotal == nil || schedulingActionsTotal == nil || samplesReceivedTotal == nil {
		t.Fatal("Init() did not initialize collectors")
	}

	before := testutil.ToFloat64(pageViewsTotal.WithLabelValues("/init-test"))
	ObservePageView("/init-test")
	if got := testutil.ToFloat64(pageViewsTotal.WithLabelValues("/init-test")); got != before+1 {
		t.Errorf("expected page view counter to increase by 1, got %f -> %f", before, got)
	}
}

func TestDomainObservers(t *testing.T) {
	Init()

	ObserveLoaderDecision("show")
	ObserveSchedulingAction("open", "preloading")
	ObserveSampleReceived("accepted")
	ObserveLinkCheck("http://Example.com/about", 404)
	IncLoaderStreams()
	IncLoaderStreams()
	DecLoaderStreams()

	if got := testutil.ToFloat64(linkChecksTotal.WithLabelValues("example.com", "4xx")); got < 1 {
		t.Errorf("expected link check to be recorded, got %f", got)
	}
	if got := testutil.ToFloat64(loaderStreamsActive); got < 1 {
		t.Errorf("expected an active loader stream, got %f", got)
	}
	if got := testutil.ToFloat64(schedulingActionsTotal.WithLabelValues("open", "preloading")); got < 1 {
		t.Errorf("expected scheduling action to be recorded, got %f", got)
	}
}

// Fuzz test for SanitizeSite.
func FuzzSanitizeSite(f *testing.F) {
	testcases := []string{"http://example.com", "https://zerovolabs.in", "ftp://example.com"}
	for _, tc := range testcases {
		f.Add(tc)
	}
	f.Fuzz(func(t *testing.T, orig string) {
		sanitized := SanitizeSite(orig)
		if sanitized == "" {
			t.Errorf("SanitizeSite(%q) returned an empty string", orig)
		}
	})
}
