package input

import "sync"

// BindsBus broadcasts the current global keybind list to whatever
// presentation layer cares to show it. Subscribers get a snapshot
// channel; slow subscribers never block the publisher, they just skip
// to the latest snapshot.
type BindsBus struct {
	mu   sync.Mutex
	subs map[int]chan []string
	next int
}

// NewBindsBus creates an empty bus.
func NewBindsBus() *BindsBus {
	return &BindsBus{subs: make(map[int]chan []string)}
}

// Subscribe registers a listener. The returned cancel function removes
// the subscription; it is safe to call more than once.
func (b *BindsBus) Subscribe() (<-chan []string, func()) {
	b.mu.Lock()
	defer b.mu.Unlock()

	id := b.next
	b.next++
	ch := make(chan []string, 1)
	b.subs[id] = ch

	cancel := func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if _, ok := b.subs[id]; ok {
			delete(b.subs, id)
			close(ch)
		}
	}
	return ch, cancel
}

// Publish delivers a snapshot to every subscriber. If a subscriber has
// an unread snapshot it is replaced; only the latest list matters.
func (b *BindsBus) Publish(binds []string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	for _, ch := range b.subs {
		select {
		case ch <- binds:
		default:
			// Drop the stale snapshot and install the fresh one.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- binds:
			default:
			}
		}
	}
}

// Subscribers returns the current subscription count.
func (b *BindsBus) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}
