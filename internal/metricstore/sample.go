package metricstore

import (
	"errors"
	"math"
	"sort"
	"time"
)

// ErrInvalidSample is returned when a submitted sample lacks required fields.
var ErrInvalidSample = errors.New("invalid payload: id and calLoadTime are required")

// Viewport is the client viewport at the time of the sample.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Sample is a single widget load measurement. Durations are milliseconds.
type Sample struct {
	ID             string    `json:"id"`
	Timestamp      time.Time `json:"timestamp"`
	CalLoadTime    float64   `json:"calLoadTime"`
	IframeLoadTime float64   `json:"iframeLoadTime"`
	TotalDuration  float64   `json:"totalDuration"`
	Error          string    `json:"error,omitempty"`
	UserAgent      string    `json:"userAgent,omitempty"`
	Viewport       *Viewport `json:"viewport,omitempty"`
}

// Validate checks the fields the endpoint requires. A zero load time counts as
// missing.
func (s Sample) Validate() error {
	if s.ID == "" || s.CalLoadTime == 0 {
		return ErrInvalidSample
	}
	return nil
}

// HasError reports whether the sample recorded a widget failure.
func (s Sample) HasError() bool {
	return s.Error != ""
}

// RunningSummary accompanies every accepted submission.
type RunningSummary struct {
	AvgLoadTime  float64 `json:"avgLoadTime"`
	TotalSamples int     `json:"totalSamples"`
}

// Summary aggregates every stored sample, regardless of query filters.
type Summary struct {
	Total       int     `json:"total"`
	Errors      int     `json:"errors"`
	AvgLoadTime float64 `json:"avgLoadTime"`
	MinLoadTime float64 `json:"minLoadTime"`
	MaxLoadTime float64 `json:"maxLoadTime"`
	P95LoadTime float64 `json:"p95LoadTime"`
}

// Percentile sorts a copy of values ascending and returns the element at
// ceil(n*p)-1, clamped to the first element. Empty input yields 0.
func Percentile(values []float64, p float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	idx := int(math.Ceil(float64(len(sorted))*p)) - 1
	if idx < 0 {
		idx = 0
	}
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func summarize(samples []Sample) Summary {
	sum := Summary{Total: len(samples)}
	if len(samples) == 0 {
		return sum
	}
	loads := make([]float64, 0, len(samples))
	total := 0.0
	sum.MinLoadTime = math.Inf(1)
	sum.MaxLoadTime = math.Inf(-1)
	for _, s := range samples {
		if s.HasError() {
			sum.Errors++
		}
		loads = append(loads, s.CalLoadTime)
		total += s.CalLoadTime
		sum.MinLoadTime = math.Min(sum.MinLoadTime, s.CalLoadTime)
		sum.MaxLoadTime = math.Max(sum.MaxLoadTime, s.CalLoadTime)
	}
	sum.AvgLoadTime = total / float64(len(samples))
	sum.P95LoadTime = Percentile(loads, 0.95)
	return sum
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
