package sinks

import (
	"context"
	"fmt"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/JakeFAU/zerovo-site/internal/metricstore"
)

// PrometheusSink exports widget timings as histograms partitioned by namespace.
type PrometheusSink struct {
	samples    *prometheus.CounterVec
	errors     *prometheus.CounterVec
	loadTime   *prometheus.HistogramVec
	renderTime *prometheus.HistogramVec
}

// NewPrometheusSink registers the collectors against reg.
func NewPrometheusSink(reg prometheus.Registerer) (*PrometheusSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	buckets := []float64{0.1, 0.25, 0.5, 1, 2, 3, 5, 10, 30}
	s := &PrometheusSink{
		samples: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "widget_samples_total",
			Help: "Widget timing samples forwarded by the recorder.",
		}, []string{"namespace"}),
		errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "widget_errors_total",
			Help: "Widget samples that carried an error.",
		}, []string{"namespace"}),
		loadTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "widget_load_seconds",
			Help:    "Scheduling widget API preload time.",
			Buckets: buckets,
		}, []string{"namespace"}),
		renderTime: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "widget_render_seconds",
			Help:    "Scheduling widget iframe render time.",
			Buckets: buckets,
		}, []string{"namespace"}),
	}
	for _, c := range []prometheus.Collector{s.samples, s.errors, s.loadTime, s.renderTime} {
		if err := reg.Register(c); err != nil {
			return nil, fmt.Errorf("register widget collector: %w", err)
		}
	}
	return s, nil
}

// Consume updates the collectors from batch.
func (s *PrometheusSink) Consume(_ context.Context, batch []metricstore.Sample) error {
	for _, sample := range batch {
		ns := sample.ID
		if ns == "" {
			ns = "unknown"
		}
		s.samples.WithLabelValues(ns).Inc()
		if sample.HasError() {
			s.errors.WithLabelValues(ns).Inc()
		}
		if sample.CalLoadTime > 0 {
			s.loadTime.WithLabelValues(ns).Observe(sample.CalLoadTime / 1000)
		}
		if sample.IframeLoadTime > 0 {
			s.renderTime.WithLabelValues(ns).Observe(sample.IframeLoadTime / 1000)
		}
	}
	return nil
}

// Close implements reporting.Sink.
func (s *PrometheusSink) Close(context.Context) error { return nil }
