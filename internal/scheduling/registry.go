package scheduling

import (
	"context"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/zerovo-site/internal/clock"
	"github.com/JakeFAU/zerovo-site/internal/id"
	"github.com/JakeFAU/zerovo-site/internal/perf"
)

// SessionCookie names the browser-session cookie that keys the registry.
const SessionCookie = "zerovo_sid"

// Factory builds a controller for namespace sharing the session's scroll lock.
// Controllers for the same namespace in different sessions must not share a
// timer key; SessionTimerID derives one.
type Factory func(sessionID, namespace string, lock *ScrollLock) *Controller

// SessionTimerID keys a controller's timings by session and namespace.
func SessionTimerID(sessionID, namespace string) string {
	return perf.ScopedID(sessionID, namespace)
}

// RegistryOptions configures a Registry.
type RegistryOptions struct {
	Factory Factory
	IdleTTL time.Duration
	Clock   clock.Clock
	IDs     id.Generator
	Logger  *zap.Logger
}

type sessionEntry struct {
	lock        *ScrollLock
	controllers map[string]*Controller
	lastSeen    time.Time
}

// Registry holds controllers per (session, namespace).
type Registry struct {
	opts RegistryOptions

	mu       sync.Mutex
	sessions map[string]*sessionEntry
}

// NewRegistry builds an empty Registry. IdleTTL defaults to 30 minutes.
func NewRegistry(opts RegistryOptions) *Registry {
	if opts.IdleTTL <= 0 {
		opts.IdleTTL = 30 * time.Minute
	}
	if opts.Clock == nil {
		opts.Clock = clock.System{}
	}
	if opts.IDs == nil {
		opts.IDs = id.New()
	}
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Factory == nil {
		opts.Factory = func(sessionID, namespace string, lock *ScrollLock) *Controller {
			return NewController(Options{
				Namespace:  namespace,
				TimerID:    SessionTimerID(sessionID, namespace),
				ScrollLock: lock,
				Logger:     opts.Logger,
			})
		}
	}
	return &Registry{opts: opts, sessions: map[string]*sessionEntry{}}
}

// Get returns the controller for (sessionID, namespace), creating it on first use.
func (r *Registry) Get(sessionID, namespace string) *Controller {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sessionID]
	if !ok {
		entry = &sessionEntry{
			lock:        NewScrollLock(BodyStyle{}),
			controllers: map[string]*Controller{},
		}
		r.sessions[sessionID] = entry
	}
	entry.lastSeen = r.opts.Clock.Now()
	ctrl, ok := entry.controllers[namespace]
	if !ok {
		ctrl = r.opts.Factory(sessionID, namespace, entry.lock)
		entry.controllers[namespace] = ctrl
	}
	return ctrl
}

// Lookup returns an existing controller without creating one.
func (r *Registry) Lookup(sessionID, namespace string) (*Controller, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	entry, ok := r.sessions[sessionID]
	if !ok {
		return nil, false
	}
	ctrl, ok := entry.controllers[namespace]
	return ctrl, ok
}

// Sessions reports how many sessions are tracked.
func (r *Registry) Sessions() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep unmounts and forgets sessions idle longer than IdleTTL. It returns the
// number of sessions removed.
func (r *Registry) Sweep() int {
	cutoff := r.opts.Clock.Now().Add(-r.opts.IdleTTL)
	var stale []*sessionEntry
	r.mu.Lock()
	for sid, entry := range r.sessions {
		if entry.lastSeen.Before(cutoff) {
			stale = append(stale, entry)
			delete(r.sessions, sid)
		}
	}
	r.mu.Unlock()
	for _, entry := range stale {
		for _, ctrl := range entry.controllers {
			ctrl.Unmount()
			ctrl.forgetTimings()
		}
	}
	if len(stale) > 0 {
		r.opts.Logger.Debug("scheduling sessions swept", zap.Int("removed", len(stale)))
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

// Close unmounts every controller and waits for in-flight preloads, bounded by ctx.
func (r *Registry) Close(ctx context.Context) error {
	r.mu.Lock()
	var ctrls []*Controller
	for _, entry := range r.sessions {
		for _, ctrl := range entry.controllers {
			ctrls = append(ctrls, ctrl)
		}
	}
	clear(r.sessions)
	r.mu.Unlock()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for _, ctrl := range ctrls {
			ctrl.Unmount()
			ctrl.Wait()
			ctrl.forgetTimings()
		}
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("scheduling registry close: %w", ctx.Err())
	}
}

// SessionID returns the caller's session id from its cookie, issuing a new
// one when the cookie is missing or malformed.
func (r *Registry) SessionID(w http.ResponseWriter, req *http.Request) (string, error) {
	if c, err := req.Cookie(SessionCookie); err == nil && id.Valid(c.Value) {
		return c.Value, nil
	}
	sid, err := r.opts.IDs.NewID()
	if err != nil {
		return "", fmt.Errorf("issue scheduling session: %w", err)
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    sid,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	return sid, nil
}
