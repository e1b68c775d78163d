package events

import (
	"strings"
	"sync"
)

// Filter selects events. Empty fields match everything.
type Filter struct {
	OperationID string
	Prefix      string
}

// Match reports whether e passes the filter.
func (f Filter) Match(e Event) bool {
	if f.OperationID != "" && e.OperationID != f.OperationID {
		return false
	}
	return strings.HasPrefix(e.Name, f.Prefix)
}

// history keeps the last cap events recorded, for the events endpoint and
// for catching up new stream clients.
type history struct {
	mu    sync.RWMutex
	slots []Event
	next  int
	n     int
}

func newHistory(capacity int) *history {
	return &history{slots: make([]Event, capacity)}
}

func (h *history) add(e Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.slots[h.next] = e
	h.next = (h.next + 1) % len(h.slots)
	if h.n < len(h.slots) {
		h.n++
	}
}

// last returns up to limit matching events, oldest first. A limit of zero
// or less returns every match.
func (h *history) last(limit int, f Filter) []Event {
	h.mu.RLock()
	defer h.mu.RUnlock()

	// Walk newest to oldest so the limit keeps the most recent matches.
	var rev []Event
	for i := 1; i <= h.n; i++ {
		e := h.slots[(h.next-i+len(h.slots))%len(h.slots)]
		if !f.Match(e) {
			continue
		}
		rev = append(rev, e)
		if limit > 0 && len(rev) == limit {
			break
		}
	}
	out := make([]Event, len(rev))
	for i, e := range rev {
		out[len(rev)-1-i] = e
	}
	return out
}

func (h *history) reset() {
	h.mu.Lock()
	defer h.mu.Unlock()
	clear(h.slots)
	h.next = 0
	h.n = 0
}
