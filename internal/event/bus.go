package event

import (
	"sync"
)

const defaultSubscriberBufferSize = 128

// Bus is a non-blocking fan-out: events for subscribers whose buffer
// is full are dropped rather than stalling the publisher.
type Bus[T any] struct {
	mu          sync.Mutex
	subscribers map[uint64]chan T
	nextSubID   uint64
	closed      bool
	closeOnce   sync.Once
	bufferSize  int
}

func NewBus[T any](bufferSize int) *Bus[T] {
	if bufferSize <= 0 {
		bufferSize = defaultSubscriberBufferSize
	}
	return &Bus[T]{
		subscribers: make(map[uint64]chan T),
		bufferSize:  bufferSize,
	}
}

func (b *Bus[T]) Subscribe() (<-chan T, func()) {
	if b == nil {
		return nil, func() {}
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		ch := make(chan T)
		close(ch)
		return ch, func() {}
	}
	b.nextSubID++
	id := b.nextSubID
	ch := make(chan T, b.bufferSize)
	b.subscribers[id] = ch
	b.mu.Unlock()

	cancel := func() {
		b.mu.Lock()
		if existing, ok := b.subscribers[id]; ok {
			delete(b.subscribers, id)
			close(existing)
		}
		b.mu.Unlock()
	}
	return ch, cancel
}

func (b *Bus[T]) Publish(event T) {
	if b == nil {
		return
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.closed {
		return
	}
	// Sends stay under the lock: they are non-blocking, and the lock
	// orders them against a concurrent cancel closing the channel.
	for _, ch := range b.subscribers {
		select {
		case ch <- event:
		default:
		}
	}
}

func (b *Bus[T]) Close() {
	if b == nil {
		return
	}
	b.closeOnce.Do(func() {
		b.mu.Lock()
		b.closed = true
		for id, ch := range b.subscribers {
			delete(b.subscribers, id)
			close(ch)
		}
		b.mu.Unlock()
	})
}
