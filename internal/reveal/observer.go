// Package reveal implements one-shot scroll reveal: elements marked for reveal
// gain a class the first time at least a threshold fraction of them is visible,
// and never lose it again.
package reveal

import "sync"

// DefaultThreshold is the visible fraction that triggers a reveal.
const DefaultThreshold = 0.1

// Entry reports the visible fraction of one observed element.
type Entry struct {
	ID    string
	Ratio float64
}

// Observer is a single shared visibility observer over many elements. Each
// element is revealed independently; no ordering exists between them.
type Observer struct {
	mu           sync.Mutex
	threshold    float64
	pending      map[string]struct{}
	revealed     map[string]struct{}
	disconnected bool
}

// NewObserver creates an Observer; a non-positive threshold uses DefaultThreshold.
func NewObserver(threshold float64) *Observer {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Observer{
		threshold: threshold,
		pending:   map[string]struct{}{},
		revealed:  map[string]struct{}{},
	}
}

// Observe starts watching ids. Already revealed ids are ignored.
func (o *Observer) Observe(ids ...string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.disconnected {
		return
	}
	for _, id := range ids {
		if _, done := o.revealed[id]; done {
			continue
		}
		o.pending[id] = struct{}{}
	}
}

// Update applies visibility entries and returns the ids revealed by this call,
// in entry order. Entries for unknown or already revealed ids are ignored.
func (o *Observer) Update(entries ...Entry) []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.disconnected {
		return nil
	}
	var out []string
	for _, e := range entries {
		if _, ok := o.pending[e.ID]; !ok {
			continue
		}
		if e.Ratio < o.threshold {
			continue
		}
		delete(o.pending, e.ID)
		o.revealed[e.ID] = struct{}{}
		out = append(out, e.ID)
	}
	return out
}

// Revealed reports whether id has been revealed.
func (o *Observer) Revealed(id string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.revealed[id]
	return ok
}

// Pending reports how many observed elements are still hidden.
func (o *Observer) Pending() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return len(o.pending)
}

// Disconnect stops observing everything. Later Observe and Update calls are
// no-ops.
func (o *Observer) Disconnect() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.disconnected = true
	clear(o.pending)
}
