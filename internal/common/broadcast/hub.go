package broadcast

import "sync"

// Hub fans values out to in-process subscribers. Slow subscribers lose
// values instead of blocking the publisher.
type Hub[T any] struct {
	mu     sync.RWMutex
	subs   map[chan T]struct{}
	buffer int
}

func NewHub[T any](buffer int) *Hub[T] {
	if buffer < 1 {
		buffer = 1
	}
	return &Hub[T]{subs: make(map[chan T]struct{}), buffer: buffer}
}

// Subscribe returns a receive channel and a function that closes it.
func (h *Hub[T]) Subscribe() (<-chan T, func()) {
	ch := make(chan T, h.buffer)

	h.mu.Lock()
	h.subs[ch] = struct{}{}
	h.mu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			h.mu.Lock()
			delete(h.subs, ch)
			h.mu.Unlock()
			close(ch)
		})
	}
}

// Publish returns the number of subscribers that received v.
func (h *Hub[T]) Publish(v T) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	delivered := 0
	for ch := range h.subs {
		select {
		case ch <- v:
			delivered++
		default:
		}
	}
	return delivered
}

func (h *Hub[T]) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
