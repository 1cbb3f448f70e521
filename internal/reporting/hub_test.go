package reporting

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/JakeFAU/zerovo-site/internal/metricstore"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// TestHubBatchBySize verifies the hub flushes once MaxBatch samples queue.
func TestHubBatchBySize(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	hub := NewHub(Config{BufferSize: 8, MaxBatch: 2, MaxWait: time.Minute}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sample("30min"))
	hub.Emit(sample("30min"))
	require.Eventually(t, func() bool {
		b := sink.Batches()
		return len(b) == 1 && len(b[0]) == 2
	}, time.Second, 10*time.Millisecond)
}

// TestHubBatchByTimer verifies small batches still flush after MaxWait.
func TestHubBatchByTimer(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	hub := NewHub(Config{BufferSize: 4, MaxBatch: 10, MaxWait: 20 * time.Millisecond}, sink)
	defer func() {
		require.NoError(t, hub.Close(context.Background()))
	}()

	hub.Emit(sample("30min"))
	require.Eventually(t, func() bool {
		return len(sink.Batches()) == 1
	}, time.Second, 5*time.Millisecond)
}

// TestHubFlushOnClose ensures Close drains buffered samples and closes sinks.
func TestHubFlushOnClose(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	hub := NewHub(Config{BufferSize: 4, MaxBatch: 100, MaxWait: time.Minute}, sink)
	hub.Emit(sample("a"))
	hub.Emit(sample("b"))

	require.NoError(t, hub.Close(context.Background()))
	require.NoError(t, hub.Close(context.Background()))
	batches := sink.Batches()
	require.Len(t, batches, 1)
	require.Len(t, batches[0], 2)
	require.True(t, sink.closed)

	hub.Emit(sample("late"))
	require.Len(t, sink.Batches(), 1)
}

func TestHubDiscardsInvalidSamples(t *testing.T) {
	t.Parallel()

	sink := &recordingSink{}
	hub := NewHub(Config{MaxBatch: 1, MaxWait: time.Minute}, sink)
	hub.Emit(metricstore.Sample{ID: "no-load-time"})
	require.NoError(t, hub.Close(context.Background()))
	require.Empty(t, sink.Batches())
}

func TestHubEmitNeverBlocks(t *testing.T) {
	t.Parallel()

	hub := &Hub{samples: make(chan metricstore.Sample), logger: zap.NewNop()}
	start := time.Now()
	hub.Emit(sample("30min"))
	hub.Emit(sample("30min"))
	require.Less(t, time.Since(start), 50*time.Millisecond)
	require.EqualValues(t, 1, hub.Dropped(), "first drop is logged and reset")
}

func TestHubLogsSinkFailures(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zap.WarnLevel)
	failing := SinkFunc(func(context.Context, []metricstore.Sample) error {
		return errors.New("collector down")
	})
	ok := &recordingSink{}
	hub := NewHub(Config{MaxBatch: 1, MaxWait: time.Minute, Logger: zap.New(core)}, failing, nil, ok)

	hub.Emit(sample("30min"))
	require.NoError(t, hub.Close(context.Background()))

	require.Len(t, ok.Batches(), 1, "a failing sink must not starve the others")
	require.Equal(t, 1, logs.FilterMessage("reporting sink consume failed").Len())
}

func TestHubCloseHonorsContext(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	blocking := SinkFunc(func(context.Context, []metricstore.Sample) error {
		<-release
		return nil
	})
	hub := NewHub(Config{MaxBatch: 1, MaxWait: time.Minute}, blocking)
	hub.Emit(sample("30min"))

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	require.ErrorIs(t, hub.Close(ctx), context.DeadlineExceeded)

	close(release)
	require.NoError(t, hub.Close(context.Background()))
}

type recordingSink struct {
	mu      sync.Mutex
	batches [][]metricstore.Sample
	closed  bool
}

func (s *recordingSink) Consume(_ context.Context, batch []metricstore.Sample) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches = append(s.batches, append([]metricstore.Sample(nil), batch...))
	return nil
}

func (s *recordingSink) Close(context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
	return nil
}

func (s *recordingSink) Batches() [][]metricstore.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([][]metricstore.Sample(nil), s.batches...)
}

func sample(id string) metricstore.Sample {
	return metricstore.Sample{ID: id, CalLoadTime: 120, TotalDuration: 120, Timestamp: time.Now()}
}
