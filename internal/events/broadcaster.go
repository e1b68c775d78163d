package events

import "sync"

// streamBuffer is how many events a subscriber may fall behind before new
// ones are dropped for it.
const streamBuffer = 64

// Subscription receives the live events that match its filter.
type Subscription struct {
	C      <-chan Event
	ch     chan Event
	filter Filter
}

var (
	subMu sync.RWMutex
	subs  = map[*Subscription]struct{}{}
)

// Subscribe starts a live subscription to the events matching f.
func Subscribe(f Filter) *Subscription {
	ch := make(chan Event, streamBuffer)
	s := &Subscription{C: ch, ch: ch, filter: f}
	subMu.Lock()
	subs[s] = struct{}{}
	subMu.Unlock()
	return s
}

// Unsubscribe ends s and closes its channel. Ending a subscription twice,
// or after CloseAllSubscribers, is a no-op.
func Unsubscribe(s *Subscription) {
	subMu.Lock()
	defer subMu.Unlock()
	if _, ok := subs[s]; !ok {
		return
	}
	delete(subs, s)
	close(s.ch)
}

// broadcast never blocks Emit: a subscriber with a full channel misses e.
func broadcast(e Event) {
	subMu.RLock()
	defer subMu.RUnlock()
	for s := range subs {
		if !s.filter.Match(e) {
			continue
		}
		select {
		case s.ch <- e:
		default:
		}
	}
}

// SubscriberCount returns the number of live subscriptions.
func SubscriberCount() int {
	subMu.RLock()
	defer subMu.RUnlock()
	return len(subs)
}

// RecentEvents returns up to n of the most recent events matching f,
// oldest first. n <= 0 returns every buffered match.
func RecentEvents(n int, f Filter) []Event {
	return recent.last(n, f)
}

// CloseAllSubscribers ends every subscription. Used on shutdown.
func CloseAllSubscribers() {
	subMu.Lock()
	defer subMu.Unlock()
	for s := range subs {
		delete(subs, s)
		close(s.ch)
	}
}
