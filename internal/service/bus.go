package service

import "sync"

// EventBus fans dataset lifecycle events out to subscribers. The latest
// event is replayed to every new subscriber, so a page that connects after
// the load finished still learns its outcome.
type EventBus struct {
	mu   sync.Mutex
	subs map[chan Event]struct{}
	last *Event
}

// NewEventBus creates a new event bus.
func NewEventBus() *EventBus {
	return &EventBus{subs: make(map[chan Event]struct{})}
}

// Publish records e as the latest event and offers it to every subscriber.
// Subscribers with a full buffer miss it.
func (b *EventBus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.last = &e
	for ch := range b.subs {
		select {
		case ch <- e:
		default:
		}
	}
}

// Subscribe returns a buffered channel primed with the latest event, if any.
func (b *EventBus) Subscribe() chan Event {
	ch := make(chan Event, 4)
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last != nil {
		ch <- *b.last
	}
	b.subs[ch] = struct{}{}
	return ch
}

// Last returns the latest event. ok is false before the first Publish.
func (b *EventBus) Last() (e Event, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.last == nil {
		return Event{}, false
	}
	return *b.last, true
}

// Unsubscribe removes a subscriber and closes its channel. Unknown or
// already removed channels are ignored.
func (b *EventBus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.subs[ch]; ok {
		delete(b.subs, ch)
		close(ch)
	}
}

// Subscribers returns the number of live subscriptions.
func (b *EventBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
