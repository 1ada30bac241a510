package utils

import (
	"sync"
	"time"
)

// EventBuffer coalesces a rapid sequence of items into time-windowed
// batches. The first item after an idle period starts a window; everything
// added inside the window is delivered as a single batch, in arrival
// order, once the window elapses. Batches never overlap: the flush
// callback runs one batch at a time.
type EventBuffer[T any] struct {
	window time.Duration
	flush  func([]T)

	mu     sync.Mutex
	items  []T
	timer  *time.Timer
	closed bool

	// serializes flush callbacks
	flushMu sync.Mutex
}

// NewEventBuffer creates a buffer delivering batches to flush after each
// window. A non-positive window falls back to 100ms.
func NewEventBuffer[T any](window time.Duration, flush func([]T)) *EventBuffer[T] {
	if window <= 0 {
		window = 100 * time.Millisecond
	}
	return &EventBuffer[T]{window: window, flush: flush}
}

// Add appends items to the current batch, starting a window if idle.
func (b *EventBuffer[T]) Add(items ...T) {
	if len(items) == 0 {
		return
	}
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.items = append(b.items, items...)
	if b.timer == nil {
		b.timer = time.AfterFunc(b.window, b.fire)
	}
	b.mu.Unlock()
}

func (b *EventBuffer[T]) fire() {
	b.mu.Lock()
	batch := b.items
	b.items = nil
	b.timer = nil
	b.mu.Unlock()

	if len(batch) == 0 {
		return
	}
	b.flushMu.Lock()
	b.flush(batch)
	b.flushMu.Unlock()
}

// Close flushes any pending batch and stops the buffer. Items added after
// Close are dropped.
func (b *EventBuffer[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	if b.timer != nil {
		b.timer.Stop()
		b.timer = nil
	}
	b.mu.Unlock()

	b.fire()
}
