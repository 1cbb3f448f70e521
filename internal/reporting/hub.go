package reporting

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/JakeFAU/zerovo-site/internal/metricstore"
)

const tracerName = "github.com/JakeFAU/zerovo-site/internal/reporting"

// Config controls buffering and batching for the Hub.
//   - BufferSize: channel capacity (default 1024).
//   - MaxBatch: flush once this many samples queue (default 50).
//   - MaxWait: flush after this long even when the batch is small (default 250ms).
//   - SinkTimeout: per-sink deadline while flushing (default 5s).
type Config struct {
	BufferSize  int
	MaxBatch    int
	MaxWait     time.Duration
	SinkTimeout time.Duration
	BaseContext context.Context
	Logger      *zap.Logger
}

const (
	defaultBufferSize  = 1024
	defaultMaxBatch    = 50
	defaultMaxWait     = 250 * time.Millisecond
	defaultSinkTimeout = 5 * time.Second
	dropLogInterval    = 5 * time.Second
)

// Hub batches samples on a background goroutine. It is safe for concurrent use
// and never blocks callers of Emit.
type Hub struct {
	cfg     Config
	sinks   []Sink
	samples chan metricstore.Sample
	stopCh  chan struct{}
	doneCh  chan struct{}
	logger  *zap.Logger

	dropped     atomic.Int64
	lastDropLog atomic.Int64
	closed      atomic.Bool

	closeOnce sync.Once
	closeCtx  context.Context
}

// NewHub starts a Hub that forwards to sinks. Nil sinks are ignored.
func NewHub(cfg Config, sinks ...Sink) *Hub {
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = defaultBufferSize
	}
	if cfg.MaxBatch <= 0 {
		cfg.MaxBatch = defaultMaxBatch
	}
	if cfg.MaxWait <= 0 {
		cfg.MaxWait = defaultMaxWait
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}
	if cfg.BaseContext == nil {
		cfg.BaseContext = context.Background()
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	h := &Hub{
		cfg:     cfg,
		samples: make(chan metricstore.Sample, cfg.BufferSize),
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
		logger:  cfg.Logger,
	}
	for _, s := range sinks {
		if s != nil {
			h.sinks = append(h.sinks, s)
		}
	}
	go h.run()
	return h
}

// Emit enqueues a sample. Invalid samples are discarded, and samples arriving
// while the buffer is full are counted and dropped.
func (h *Hub) Emit(sample metricstore.Sample) {
	if h == nil || h.closed.Load() {
		return
	}
	if err := sample.Validate(); err != nil {
		h.logger.Debug("discarding invalid widget sample", zap.String("id", sample.ID), zap.Error(err))
		return
	}
	select {
	case h.samples <- sample:
	default:
		h.dropped.Add(1)
		h.maybeLogDrops(time.Now())
	}
}

// Dropped reports samples discarded due to backpressure since the last warning.
func (h *Hub) Dropped() int64 {
	return h.dropped.Load()
}

// Close stops intake, drains the buffer, flushes and closes every sink.
// Repeated calls wait on the same shutdown.
func (h *Hub) Close(ctx context.Context) error {
	if h == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	h.closeOnce.Do(func() {
		h.closed.Store(true)
		h.closeCtx = ctx
		close(h.stopCh)
	})
	select {
	case <-h.doneCh:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("reporting hub close: %w", ctx.Err())
	}
}

func (h *Hub) run() {
	defer close(h.doneCh)
	batch := make([]metricstore.Sample, 0, h.cfg.MaxBatch)
	ticker := time.NewTicker(h.cfg.MaxWait)
	defer ticker.Stop()
	for {
		select {
		case s := <-h.samples:
			batch = append(batch, s)
			if len(batch) >= h.cfg.MaxBatch {
				batch = h.flush(batch)
			}
		case <-ticker.C:
			batch = h.flush(batch)
		case <-h.stopCh:
			h.drain(batch)
			h.closeSinks()
			return
		}
	}
}

func (h *Hub) drain(batch []metricstore.Sample) {
	for {
		select {
		case s := <-h.samples:
			batch = append(batch, s)
			if len(batch) >= h.cfg.MaxBatch {
				batch = h.flush(batch)
			}
		default:
			h.flush(batch)
			return
		}
	}
}

// flush hands a copy of batch to every sink and returns batch truncated for reuse.
func (h *Hub) flush(batch []metricstore.Sample) []metricstore.Sample {
	if len(batch) == 0 {
		return batch
	}
	out := append([]metricstore.Sample(nil), batch...)
	ctx, span := otel.Tracer(tracerName).Start(h.cfg.BaseContext, "reporting.flush")
	span.SetAttributes(attribute.Int("reporting.batch_size", len(out)))
	defer span.End()
	for _, sink := range h.sinks {
		sinkCtx, cancel := context.WithTimeout(ctx, h.cfg.SinkTimeout)
		err := sink.Consume(sinkCtx, out)
		cancel()
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "sink consume failed")
			h.logger.Warn("reporting sink consume failed",
				zap.String("sink", fmt.Sprintf("%T", sink)),
				zap.Int("batch", len(out)),
				zap.Error(err),
			)
		}
	}
	return batch[:0]
}

func (h *Hub) closeSinks() {
	ctx := h.closeCtx
	if ctx == nil {
		ctx = context.Background()
	}
	for _, sink := range h.sinks {
		if err := sink.Close(ctx); err != nil {
			h.logger.Warn("reporting sink close failed", zap.String("sink", fmt.Sprintf("%T", sink)), zap.Error(err))
		}
	}
}

func (h *Hub) maybeLogDrops(now time.Time) {
	last := h.lastDropLog.Load()
	if now.UnixNano()-last < dropLogInterval.Nanoseconds() {
		return
	}
	if !h.lastDropLog.CompareAndSwap(last, now.UnixNano()) {
		return
	}
	h.logger.Warn("widget samples dropped due to backpressure", zap.Int64("dropped", h.dropped.Swap(0)))
}
