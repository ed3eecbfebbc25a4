package events

import (
	"sync"
)

// Subscriber receives every emitted event.
type Subscriber chan Event

// subscriberBuffer bounds how far a slow subscriber may fall behind before
// events are dropped for it.
const subscriberBuffer = 64

var hub = struct {
	mu   sync.RWMutex
	subs map[Subscriber]struct{}
}{subs: make(map[Subscriber]struct{})}

// Subscribe registers a new subscriber channel.
func Subscribe() Subscriber {
	ch := make(Subscriber, subscriberBuffer)
	hub.mu.Lock()
	hub.subs[ch] = struct{}{}
	hub.mu.Unlock()
	return ch
}

// Unsubscribe removes sub and closes it. Unknown subscribers are ignored.
func Unsubscribe(sub Subscriber) {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	if _, ok := hub.subs[sub]; !ok {
		return
	}
	delete(hub.subs, sub)
	close(sub)
}

// CloseAllSubscribers closes every subscriber, e.g. on shutdown.
func CloseAllSubscribers() {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	for sub := range hub.subs {
		delete(hub.subs, sub)
		close(sub)
	}
}

// broadcast never blocks: a full subscriber misses the event.
func broadcast(e Event) {
	hub.mu.RLock()
	defer hub.mu.RUnlock()

	for sub := range hub.subs {
		select {
		case sub <- e:
		default:
		}
	}
}

// SubscriberCount returns the current number of subscribers.
func SubscriberCount() int {
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	return len(hub.subs)
}

// RecentEvents returns the last n buffered events, all of them if n <= 0.
func RecentEvents(n int) []Event {
	return buffer.Last(n)
}
