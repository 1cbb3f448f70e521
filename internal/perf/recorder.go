// Package perf times scheduling widget load phases per namespace and forwards
// a summary sample every time a phase completes.
//
// Records are keyed by id. An id may be scoped to a browser session with
// ScopedID so concurrent sessions on one namespace keep separate timings;
// forwarded samples always carry the bare namespace.
package perf

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/zerovo-site/internal/clock"
	"github.com/JakeFAU/zerovo-site/internal/metricstore"
)

// DefaultID is the namespace used when callers pass an empty id.
const DefaultID = "default"

const scopeSep = "/"

// ScopedID keys namespace's record under scope. An empty scope returns the
// namespace unchanged.
func ScopedID(scope, namespace string) string {
	if scope == "" {
		return namespace
	}
	return scope + scopeSep + normalize(namespace)
}

// NamespaceOf strips the scope from id.
func NamespaceOf(id string) string {
	if i := strings.LastIndex(id, scopeSep); i >= 0 {
		id = id[i+len(scopeSep):]
	}
	return normalize(id)
}

// Forwarder accepts completed samples without blocking the caller.
type Forwarder interface {
	Emit(sample metricstore.Sample)
}

// AnalyticsHook receives a compact event per completed phase. It is optional.
type AnalyticsHook interface {
	Track(ctx context.Context, event string, value float64, label string)
}

// ErrorTracker receives widget failures. It is optional.
type ErrorTracker interface {
	Capture(ctx context.Context, err error, tags map[string]string)
}

// Timing is the mutable record kept for one namespace.
type Timing struct {
	LoadStart   time.Time
	LoadEnd     time.Time
	RenderStart time.Time
	RenderEnd   time.Time
	Error       string
}

// LoadDuration is the API preload phase, or zero when incomplete.
func (t Timing) LoadDuration() time.Duration {
	return span(t.LoadStart, t.LoadEnd)
}

// RenderDuration is the iframe render phase, or zero when incomplete.
func (t Timing) RenderDuration() time.Duration {
	return span(t.RenderStart, t.RenderEnd)
}

// TotalDuration runs from the preload start to the latest completed phase.
func (t Timing) TotalDuration() time.Duration {
	end := t.LoadEnd
	if t.RenderEnd.After(end) {
		end = t.RenderEnd
	}
	return span(t.LoadStart, end)
}

func span(start, end time.Time) time.Duration {
	if start.IsZero() || end.IsZero() || end.Before(start) {
		return 0
	}
	return end.Sub(start)
}

// Options wires a Recorder's collaborators. Only Forwarder is expected in
// production; nil hooks are skipped.
type Options struct {
	Clock     clock.Clock
	Forwarder Forwarder
	Analytics AnalyticsHook
	Errors    ErrorTracker
	Logger    *zap.Logger
}

// Recorder keeps one Timing per id. It is safe for concurrent use.
// Calls that reference a namespace without a started load timer are no-ops.
type Recorder struct {
	mu      sync.Mutex
	timings map[string]*Timing
	opts    Options
}

// NewRecorder builds a Recorder.
func NewRecorder(opts Options) *Recorder {
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	return &Recorder{timings: map[string]*Timing{}, opts: opts}
}

// StartLoadTimer begins (or restarts) the preload phase for id.
func (r *Recorder) StartLoadTimer(id string) {
	id = normalize(id)
	r.mu.Lock()
	t, ok := r.timings[id]
	if !ok {
		t = &Timing{}
		r.timings[id] = t
	}
	t.LoadStart = r.opts.Clock.Now()
	t.LoadEnd = time.Time{}
	t.Error = ""
	r.mu.Unlock()
	r.opts.Logger.Debug("widget load timer started", zap.String("id", id))
}

// EndLoadTimer completes the preload phase and forwards a sample.
func (r *Recorder) EndLoadTimer(ctx context.Context, id string) {
	id = normalize(id)
	snapshot, ok := r.update(id, func(t *Timing) bool {
		if t.LoadStart.IsZero() {
			return false
		}
		t.LoadEnd = r.opts.Clock.Now()
		return true
	})
	if !ok {
		return
	}
	r.opts.Logger.Debug("widget API loaded",
		zap.String("id", id),
		zap.Duration("duration", snapshot.LoadDuration()),
	)
	r.report(ctx, id, snapshot)
}

// StartRenderTimer begins the iframe render phase. It requires an existing record.
func (r *Recorder) StartRenderTimer(id string) {
	id = normalize(id)
	r.update(id, func(t *Timing) bool {
		t.RenderStart = r.opts.Clock.Now()
		t.RenderEnd = time.Time{}
		return true
	})
}

// EndRenderTimer completes the render phase and forwards a sample.
func (r *Recorder) EndRenderTimer(ctx context.Context, id string) {
	id = normalize(id)
	snapshot, ok := r.update(id, func(t *Timing) bool {
		if t.RenderStart.IsZero() {
			return false
		}
		t.RenderEnd = r.opts.Clock.Now()
		return true
	})
	if !ok {
		return
	}
	r.opts.Logger.Debug("widget iframe rendered",
		zap.String("id", id),
		zap.Duration("duration", snapshot.RenderDuration()),
	)
	r.report(ctx, id, snapshot)
}

// RecordError attaches err to id's record, hands it to the error tracker and
// forwards an error sample. The load phase is closed at the failure time so
// the sample carries how long the failed attempt took.
func (r *Recorder) RecordError(ctx context.Context, err error, id string) {
	if err == nil {
		return
	}
	id = normalize(id)
	snapshot, ok := r.update(id, func(t *Timing) bool {
		t.Error = err.Error()
		if !t.LoadStart.IsZero() && t.LoadEnd.IsZero() {
			t.LoadEnd = r.opts.Clock.Now()
		}
		return true
	})
	if !ok {
		return
	}
	r.opts.Logger.Warn("scheduling widget error", zap.String("id", id), zap.Error(err))
	if r.opts.Errors != nil {
		r.opts.Errors.Capture(ctx, err, map[string]string{"component": "scheduling-widget", "namespace": NamespaceOf(id)})
	}
	r.report(ctx, id, snapshot)
}

// Metrics returns a copy of id's record.
func (r *Recorder) Metrics(id string) (Timing, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timings[normalize(id)]
	if !ok {
		return Timing{}, false
	}
	return *t, true
}

// Clear drops the records for ids, or every record when none are given.
func (r *Recorder) Clear(ids ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(ids) == 0 {
		clear(r.timings)
		return
	}
	for _, id := range ids {
		delete(r.timings, normalize(id))
	}
}

func (r *Recorder) update(id string, fn func(*Timing) bool) (Timing, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.timings[id]
	if !ok || !fn(t) {
		return Timing{}, false
	}
	return *t, true
}

func (r *Recorder) report(ctx context.Context, id string, t Timing) {
	sample := Sample(NamespaceOf(id), r.opts.Clock.Now(), t)
	if r.opts.Forwarder != nil {
		r.opts.Forwarder.Emit(sample)
	}
	if r.opts.Analytics != nil {
		r.opts.Analytics.Track(ctx, "cal_embed_loaded", sample.TotalDuration, sample.ID)
	}
}

// Sample converts a Timing into the payload accepted by the metrics endpoint.
func Sample(id string, at time.Time, t Timing) metricstore.Sample {
	return metricstore.Sample{
		ID:             id,
		Timestamp:      at,
		CalLoadTime:    millis(t.LoadDuration()),
		IframeLoadTime: millis(t.RenderDuration()),
		TotalDuration:  millis(t.TotalDuration()),
		Error:          t.Error,
	}
}

func millis(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}

func normalize(id string) string {
	if id == "" {
		return DefaultID
	}
	return id
}
