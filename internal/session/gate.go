// Package session decides, once per browsing session, whether the first-visit
// loading animation should play.
package session

import (
	"context"
	"errors"
	"net/http"
	"sync"

	"go.uber.org/zap"
)

// LoaderFlagKey is the session-scoped key marking that the loader already ran.
const LoaderFlagKey = "zerovo_loader_shown"

const flagValue = "true"

// Decision is the gate's tri-state answer. The zero value is Unknown so a
// consumer never commits to showing or hiding before storage was consulted.
type Decision int

// Gate outcomes.
const (
	Unknown Decision = iota
	Show
	Hide
)

// String implements fmt.Stringer.
func (d Decision) String() string {
	switch d {
	case Show:
		return "show"
	case Hide:
		return "hide"
	default:
		return "unknown"
	}
}

// Storage is browser-session scoped key/value storage.
type Storage interface {
	Get(key string) (string, bool, error)
	Set(key, value string) error
}

// Gate inspects Storage for the loader flag.
type Gate struct {
	key    string
	logger *zap.Logger
}

// NewGate builds a Gate using key (LoaderFlagKey when empty).
func NewGate(key string, logger *zap.Logger) *Gate {
	if key == "" {
		key = LoaderFlagKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{key: key, logger: logger}
}

// Key returns the storage key the gate reads and writes.
func (g *Gate) Key() string {
	return g.key
}

// Decide returns Show the first time it runs against a session and Hide once
// the flag is present. Read failures count as "not shown yet"; write failures
// are logged and still yield Show.
func (g *Gate) Decide(store Storage) Decision {
	_, found, err := store.Get(g.key)
	if err != nil {
		g.logger.Debug("session flag read failed; showing loader", zap.Error(err))
		found = false
	}
	if found {
		return Hide
	}
	if err := store.Set(g.key, flagValue); err != nil {
		g.logger.Warn("session flag write failed", zap.Error(err))
	}
	return Show
}

type resolverKey struct{}

type resolver struct {
	once     sync.Once
	gate     *Gate
	store    Storage
	decision Decision
}

// Middleware attaches a cookie-backed gate to the request context. The gate
// does not run until the handler calls Resolve, so responses that never offer
// the loader (missing pages, crawlers, a disabled loader) leave the flag unset.
func (g *Gate) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		res := &resolver{gate: g, store: NewCookieStorage(w, r)}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), resolverKey{}, res)))
	})
}

// Resolve runs the request's gate at most once and returns its decision. It
// must be called before the response header is written. Without Middleware
// it returns Unknown.
func Resolve(ctx context.Context) Decision {
	res, ok := ctx.Value(resolverKey{}).(*resolver)
	if !ok {
		return Unknown
	}
	res.once.Do(func() {
		res.decision = res.gate.Decide(res.store)
	})
	return res.decision
}

// ErrStorageUnavailable is returned by storages that cannot be used.
var ErrStorageUnavailable = errors.New("session storage unavailable")
