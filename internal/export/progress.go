package export

import "sync"

// tracker clamps reported progress so callers only ever see a non-decreasing
// sequence ending at 1.
type tracker struct {
	mu   sync.Mutex
	fn   ProgressFunc
	last float64
}

func newTracker(fn ProgressFunc) *tracker {
	return &tracker{fn: fn, last: -1}
}

func (t *tracker) report(fraction float64) {
	if t == nil || t.fn == nil {
		return
	}
	if fraction > 1 {
		fraction = 1
	}
	t.mu.Lock()
	if fraction <= t.last {
		t.mu.Unlock()
		return
	}
	t.last = fraction
	t.mu.Unlock()
	t.fn(fraction)
}
