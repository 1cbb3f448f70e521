package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/JakeFAU/zerovo-site/internal/logging"
	"github.com/JakeFAU/zerovo-site/internal/metrics"
	"github.com/JakeFAU/zerovo-site/internal/metricstore"
)

const (
	tracerName = "github.com/JakeFAU/zerovo-site/internal/api"

	invalidPayloadMessage = "Invalid payload: id and calLoadTime are required"
	processFailedMessage  = "Failed to process metrics"

	maxMetricBody = 64 << 10
)

type submitResponse struct {
	Success bool                       `json:"success"`
	Metrics metricstore.Sample         `json:"metrics"`
	Summary metricstore.RunningSummary `json:"summary"`
}

type queryResponse struct {
	Summary   metricstore.Summary  `json:"summary"`
	Metrics   []metricstore.Sample `json:"metrics"`
	Timestamp time.Time            `json:"timestamp"`
}

// submitMetric handles POST /api/metrics. It returns 201 with the enriched
// sample and the running summary, 400 when the body is not a sample or lacks
// id/calLoadTime, and 500 for anything else.
func (s *Server) submitMetric(w http.ResponseWriter, r *http.Request) {
	ctx, span := otel.Tracer(tracerName).Start(r.Context(), "metrics.submit")
	defer span.End()
	logger := logging.FromContext(ctx)

	var sample metricstore.Sample
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMetricBody)).Decode(&sample); err != nil {
		metrics.ObserveSampleReceived("invalid")
		span.SetStatus(codes.Error, "decode payload")
		logger.Debug("metric payload rejected", zap.Error(err))
		writeError(w, http.StatusBadRequest, invalidPayloadMessage)
		return
	}

	accepted, summary, err := s.store.Submit(sample, r.UserAgent())
	if err != nil {
		span.RecordError(err)
		if errors.Is(err, metricstore.ErrInvalidSample) {
			metrics.ObserveSampleReceived("invalid")
			span.SetStatus(codes.Error, "invalid sample")
			writeError(w, http.StatusBadRequest, invalidPayloadMessage)
			return
		}
		metrics.ObserveSampleReceived("error")
		span.SetStatus(codes.Error, "store sample")
		logger.Error("metric submit failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, processFailedMessage)
		return
	}

	result := "accepted"
	if accepted.HasError() {
		result = "accepted_error"
	}
	metrics.ObserveSampleReceived(result)
	span.SetAttributes(
		attribute.String("metric.id", accepted.ID),
		attribute.Float64("metric.cal_load_ms", accepted.CalLoadTime),
		attribute.Int("metric.total_samples", summary.TotalSamples),
	)

	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Metrics-Received", s.clock.Now().UTC().Format(time.RFC3339Nano))
	writeJSON(w, http.StatusCreated, submitResponse{
		Success: true,
		Metrics: accepted,
		Summary: summary,
	})
}

// queryMetrics handles GET /api/metrics?limit=&errorOnly=. A missing or
// malformed limit falls back to the configured default; errorOnly is only
// honored for the literal "true".
func (s *Server) queryMetrics(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit := s.cfg.Metrics.DefaultLimit
	if limit <= 0 {
		limit = metricstore.DefaultLimit
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}
	errorOnly := q.Get("errorOnly") == "true"

	summary, samples := s.store.Query(limit, errorOnly)
	if samples == nil {
		samples = []metricstore.Sample{}
	}
	writeJSON(w, http.StatusOK, queryResponse{
		Summary:   summary,
		Metrics:   samples,
		Timestamp: s.clock.Now().UTC(),
	})
}
