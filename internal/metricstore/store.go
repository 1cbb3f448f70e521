package metricstore

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/zerovo-site/internal/clock"
)

// DefaultCapacity bounds the ring when Options.Capacity is unset.
const DefaultCapacity = 1000

// DefaultLimit is the query limit used when a caller does not pick one.
const DefaultLimit = 100

// Options configures a Store.
type Options struct {
	Capacity      int
	SlowThreshold time.Duration
	Clock         clock.Clock
	Logger        *zap.Logger
}

// Store is a mutex-guarded FIFO ring of samples. It is safe for concurrent use.
type Store struct {
	mu       sync.Mutex
	ring     []Sample
	start    int
	size     int
	slow     float64
	clock    clock.Clock
	logger   *zap.Logger
	accepted int64
}

// New creates an empty Store.
func New(opts Options) *Store {
	if opts.Capacity <= 0 {
		opts.Capacity = DefaultCapacity
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Store{
		ring:   make([]Sample, opts.Capacity),
		slow:   float64(opts.SlowThreshold.Milliseconds()),
		clock:  opts.Clock,
		logger: opts.Logger,
	}
}

// Submit validates, timestamps and stores a sample, evicting the oldest entry
// when the ring is full. The user agent from the request replaces whatever the
// client reported.
func (s *Store) Submit(sample Sample, userAgent string) (Sample, RunningSummary, error) {
	if err := sample.Validate(); err != nil {
		return Sample{}, RunningSummary{}, err
	}
	sample.Timestamp = s.clock.Now()
	sample.UserAgent = userAgent

	s.mu.Lock()
	s.push(sample)
	s.accepted++
	total := 0.0
	errorCount := 0
	for i := 0; i < s.size; i++ {
		entry := s.at(i)
		total += entry.CalLoadTime
		if entry.HasError() {
			errorCount++
		}
	}
	running := RunningSummary{
		AvgLoadTime:  round2(total / float64(s.size)),
		TotalSamples: s.size,
	}
	s.mu.Unlock()

	s.logger.Debug("widget metrics summary",
		zap.Int("total_samples", running.TotalSamples),
		zap.Float64("avg_load_ms", running.AvgLoadTime),
		zap.Int("errors", errorCount),
		zap.Float64("latest_ms", sample.CalLoadTime),
	)
	if s.slow > 0 && sample.CalLoadTime > s.slow {
		s.logger.Warn("slow scheduling widget load",
			zap.String("id", sample.ID),
			zap.Float64("duration_ms", sample.CalLoadTime),
		)
	}
	return sample, running, nil
}

// Query returns the aggregate summary over all samples plus the newest limit
// samples (optionally only failed ones), oldest first. A non-positive limit
// returns nothing.
func (s *Store) Query(limit int, errorOnly bool) (Summary, []Sample) {
	all := s.Snapshot()
	summary := summarize(all)

	filtered := all
	if errorOnly {
		filtered = make([]Sample, 0, summary.Errors)
		for _, sample := range all {
			if sample.HasError() {
				filtered = append(filtered, sample)
			}
		}
	}
	if limit <= 0 {
		return summary, []Sample{}
	}
	if len(filtered) > limit {
		filtered = filtered[len(filtered)-limit:]
	}
	return summary, filtered
}

// Snapshot copies the stored samples in insertion order.
func (s *Store) Snapshot() []Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Sample, s.size)
	for i := 0; i < s.size; i++ {
		out[i] = s.at(i)
	}
	return out
}

// Len reports the number of stored samples.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.size
}

// Cap reports the ring capacity.
func (s *Store) Cap() int {
	return len(s.ring)
}

// Accepted reports how many samples were accepted since construction or the
// last Reset, including evicted ones.
func (s *Store) Accepted() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.accepted
}

// Reset drops every sample.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	clear(s.ring)
	s.start = 0
	s.size = 0
	s.accepted = 0
}

// push must be called with s.mu held.
func (s *Store) push(sample Sample) {
	capacity := len(s.ring)
	if s.size < capacity {
		s.ring[(s.start+s.size)%capacity] = sample
		s.size++
		return
	}
	s.ring[s.start] = sample
	s.start = (s.start + 1) % capacity
}

// at must be called with s.mu held.
func (s *Store) at(i int) Sample {
	return s.ring[(s.start+i)%len(s.ring)]
}
