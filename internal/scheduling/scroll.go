package scheduling

import "sync"

// BodyStyle mirrors the page body's overflow property.
type BodyStyle struct {
	Overflow string
}

// ScrollLock hides body overflow while at least one modal holds it and restores
// the previous value when the last holder releases.
type ScrollLock struct {
	mu    sync.Mutex
	body  BodyStyle
	saved string
	count int
}

// NewScrollLock starts with body's current style.
func NewScrollLock(body BodyStyle) *ScrollLock {
	return &ScrollLock{body: body}
}

// Acquire locks scrolling and returns its release func. Calling release more
// than once has no further effect.
func (l *ScrollLock) Acquire() (release func()) {
	l.mu.Lock()
	if l.count == 0 {
		l.saved = l.body.Overflow
		l.body.Overflow = "hidden"
	}
	l.count++
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(l.release)
	}
}

func (l *ScrollLock) release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.count--
	if l.count == 0 {
		l.body.Overflow = l.saved
	}
}

// Locked reports whether any holder remains.
func (l *ScrollLock) Locked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.count > 0
}

// Body returns the current body style.
func (l *ScrollLock) Body() BodyStyle {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.body
}
