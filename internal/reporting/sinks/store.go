package sinks

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/zerovo-site/internal/metricstore"
)

// StoreSink submits samples straight into an in-process metrics store, for
// deployments where the site hosts its own collection endpoint.
type StoreSink struct {
	store     *metricstore.Store
	userAgent string
	logger    *zap.Logger
}

// NewStoreSink wraps store. userAgent is stamped on samples that lack one.
func NewStoreSink(store *metricstore.Store, userAgent string, logger *zap.Logger) *StoreSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StoreSink{store: store, userAgent: userAgent, logger: logger}
}

// Consume submits every sample. Rejected samples are joined into the returned error.
func (s *StoreSink) Consume(ctx context.Context, batch []metricstore.Sample) error {
	if s == nil || s.store == nil {
		return nil
	}
	var errs []error
	for _, sample := range batch {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("store sink: %w", err)
		}
		if _, _, err := s.store.Submit(sample, s.userAgent); err != nil {
			errs = append(errs, fmt.Errorf("submit %s: %w", sample.ID, err))
		}
	}
	return errors.Join(errs...)
}

// Close implements reporting.Sink.
func (s *StoreSink) Close(context.Context) error { return nil }
