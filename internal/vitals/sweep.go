package vitals

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/JakeFAU/zerovo-site/internal/clock"
	"github.com/JakeFAU/zerovo-site/internal/metricstore"
	"github.com/JakeFAU/zerovo-site/internal/reporting"
)

// Measurer loads a page and reports its navigation timings. *Browser satisfies it.
type Measurer interface {
	Measure(ctx context.Context, rawURL string) (Navigation, error)
}

// Outcome pairs a URL with its measurement or failure.
type Outcome struct {
	URL        string
	Navigation Navigation
	Err        error
}

// Sweep measures each URL in order. Failed navigations are reported as error
// samples so a collector sees them; the returned error joins every failure.
// A nil sink skips submission.
func Sweep(ctx context.Context, m Measurer, urls []string, sink reporting.Sink, clk clock.Clock, logger *zap.Logger) ([]Outcome, error) {
	if clk == nil {
		clk = clock.System{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	outcomes := make([]Outcome, 0, len(urls))
	samples := make([]metricstore.Sample, 0, len(urls))
	var errs []error
	for _, u := range urls {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		nav, err := m.Measure(ctx, u)
		outcomes = append(outcomes, Outcome{URL: u, Navigation: nav, Err: err})
		if err != nil {
			logger.Warn("vitals measurement failed", zap.String("url", u), zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", u, err))
			samples = append(samples, failedSample(u, clk, err))
			continue
		}
		samples = append(samples, nav.Sample(clk.Now()))
	}

	if sink != nil && len(samples) > 0 {
		if err := sink.Consume(ctx, samples); err != nil {
			errs = append(errs, fmt.Errorf("submit vitals: %w", err))
		}
	}
	return outcomes, errors.Join(errs...)
}

// failedSample records a navigation that never completed. The load time is
// pinned to 1ms so the collector accepts the payload.
func failedSample(rawURL string, clk clock.Clock, err error) metricstore.Sample {
	return metricstore.Sample{
		ID:          SampleID(rawURL),
		Timestamp:   clk.Now(),
		CalLoadTime: 1,
		Error:       err.Error(),
	}
}
