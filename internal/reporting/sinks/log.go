package sinks

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/zerovo-site/internal/metricstore"
)

// LogSink writes one structured line per sample.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink wires a zap logger to the sink interface.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogSink{logger: logger}
}

// Consume logs each sample.
func (s *LogSink) Consume(_ context.Context, batch []metricstore.Sample) error {
	for _, sample := range batch {
		fields := []zap.Field{
			zap.String("id", sample.ID),
			zap.Time("timestamp", sample.Timestamp),
			zap.Float64("cal_load_ms", sample.CalLoadTime),
			zap.Float64("iframe_load_ms", sample.IframeLoadTime),
			zap.Float64("total_ms", sample.TotalDuration),
		}
		if sample.HasError() {
			s.logger.Warn("widget sample", append(fields, zap.String("error", sample.Error))...)
			continue
		}
		s.logger.Info("widget sample", fields...)
	}
	return nil
}

// Close implements reporting.Sink.
func (s *LogSink) Close(context.Context) error {
	return s.logger.Sync()
}
