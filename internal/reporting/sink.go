package reporting

import (
	"context"

	"github.com/JakeFAU/zerovo-site/internal/metricstore"
)

// Sink consumes batches of samples. Implementations must honor ctx deadlines.
// The hub calls Consume from a single goroutine.
type Sink interface {
	Consume(ctx context.Context, batch []metricstore.Sample) error
	Close(ctx context.Context) error
}

// SinkFunc adapts a function into a Sink with a no-op Close.
type SinkFunc func(ctx context.Context, batch []metricstore.Sample) error

// Consume calls f.
func (f SinkFunc) Consume(ctx context.Context, batch []metricstore.Sample) error {
	return f(ctx, batch)
}

// Close implements Sink.
func (SinkFunc) Close(context.Context) error { return nil }
