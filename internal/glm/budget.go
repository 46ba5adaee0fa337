package glm

import (
	"sync"
	"time"
)

// requestBudget is a sliding-window counter limiting outbound API calls.
// The provider bills and throttles per minute; failing fast locally gives a
// clearer error than a provider 429.
type requestBudget struct {
	mu     sync.Mutex
	limit  int
	window time.Duration
	stamps []time.Time
	now    func() time.Time
}

func newRequestBudget(limit int, window time.Duration) *requestBudget {
	return &requestBudget{
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (b *requestBudget) allow() bool {
	if b == nil || b.limit <= 0 {
		return true
	}

	now := b.now()
	cutoff := now.Add(-b.window)

	b.mu.Lock()
	defer b.mu.Unlock()

	kept := b.stamps[:0]
	for _, ts := range b.stamps {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	b.stamps = kept

	if len(b.stamps) >= b.limit {
		return false
	}
	b.stamps = append(b.stamps, now)
	return true
}
