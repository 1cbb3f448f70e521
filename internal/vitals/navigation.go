// Package vitals measures page navigation timings in headless Chrome and turns
// them into metric samples.
package vitals

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/JakeFAU/zerovo-site/internal/metricstore"
)

// ErrNoNavigation is returned when the page exposes no navigation timing entry.
var ErrNoNavigation = errors.New("no navigation timing entry")

// Navigation is the PerformanceNavigationTiming subset the browser collects.
// Times are milliseconds relative to navigation start.
type Navigation struct {
	URL              string               `json:"url"`
	FinalURL         string               `json:"finalUrl"`
	Status           int                  `json:"status"`
	Type             string               `json:"type"`
	ResponseStart    float64              `json:"responseStart"`
	DOMInteractive   float64              `json:"domInteractive"`
	DOMContentLoaded float64              `json:"domContentLoadedEventEnd"`
	LoadEventEnd     float64              `json:"loadEventEnd"`
	Duration         float64              `json:"duration"`
	TransferSize     int64                `json:"transferSize"`
	Viewport         metricstore.Viewport `json:"viewport"`
}

// ParseNavigation decodes the JSON produced by the in-page timing script.
func ParseNavigation(raw string) (Navigation, error) {
	if raw == "" || raw == "null" {
		return Navigation{}, ErrNoNavigation
	}
	var nav Navigation
	if err := json.Unmarshal([]byte(raw), &nav); err != nil {
		return Navigation{}, fmt.Errorf("decode navigation timing: %w", err)
	}
	if nav.LoadEventEnd <= 0 {
		return Navigation{}, fmt.Errorf("navigation incomplete: %w", ErrNoNavigation)
	}
	return nav, nil
}

// SampleID names samples by path so repeated measurements of a page line up.
func SampleID(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Path == "" {
		return "vitals:/"
	}
	return "vitals:" + u.Path
}

// Sample maps the navigation onto the widget sample shape: the load event is
// the load time, DOMContentLoaded the render time and duration the total.
func (n Navigation) Sample(at time.Time) metricstore.Sample {
	s := metricstore.Sample{
		ID:             SampleID(n.URL),
		Timestamp:      at,
		CalLoadTime:    n.LoadEventEnd,
		IframeLoadTime: n.DOMContentLoaded,
		TotalDuration:  n.Duration,
	}
	if n.Viewport.Width > 0 && n.Viewport.Height > 0 {
		vp := n.Viewport
		s.Viewport = &vp
	}
	if n.Status >= 400 {
		s.Error = fmt.Sprintf("navigation returned status %d", n.Status)
	}
	return s
}

// navigationScript waits for the load event to finish and returns the timing
// entry as a JSON string, or null while it is still pending.
const navigationScript = `function() {
  const n = performance.getEntriesByType("navigation")[0];
  if (!n || n.loadEventEnd <= 0) { return null; }
  return JSON.stringify({
    type: n.type,
    responseStart: n.responseStart,
    domInteractive: n.domInteractive,
    domContentLoadedEventEnd: n.domContentLoadedEventEnd,
    loadEventEnd: n.loadEventEnd,
    duration: n.duration,
    transferSize: n.transferSize,
    viewport: { width: window.innerWidth, height: window.innerHeight }
  });
}`
