package scheduling

import (
	"errors"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ErrGuardTripped is returned by Guard.Do while a previous failure is unreset.
var ErrGuardTripped = errors.New("scheduling widget crashed")

// Guard isolates widget failures from the rest of the page. The first panic
// trips it; further calls short-circuit until Reset.
type Guard struct {
	mu     sync.Mutex
	err    error
	logger *zap.Logger
}

// NewGuard returns an untripped Guard.
func NewGuard(logger *zap.Logger) *Guard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{logger: logger}
}

// Do runs fn, converting a panic into an error and tripping the guard.
// Ordinary errors from fn pass through and leave the guard untouched.
func (g *Guard) Do(fn func() error) (err error) {
	if cause := g.Cause(); cause != nil {
		return fmt.Errorf("%w: %v", ErrGuardTripped, cause)
	}
	defer func() {
		if rec := recover(); rec != nil {
			cause := fmt.Errorf("panic: %v", rec)
			g.mu.Lock()
			g.err = cause
			g.mu.Unlock()
			g.logger.Error("scheduling widget panicked", zap.Error(cause))
			err = fmt.Errorf("%w: %v", ErrGuardTripped, cause)
		}
	}()
	return fn()
}

// Cause returns the failure that tripped the guard, or nil.
func (g *Guard) Cause() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.err
}

// Reset clears a tripped guard.
func (g *Guard) Reset() {
	g.mu.Lock()
	g.err = nil
	g.mu.Unlock()
}
