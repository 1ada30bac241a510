package utils

import (
	"sync"
	"time"
)

// Sampler rate-limits a function to at most one execution per interval,
// with leading and trailing edges: a call while the window is idle runs
// immediately; calls arriving inside the window overwrite a single pending
// slot that fires once when the window elapses. The most recent arguments
// always win; intermediate ones are discarded. Executions never overlap.
type Sampler[T any] struct {
	interval time.Duration
	fn       func(T)

	mu      sync.Mutex
	last    time.Time
	timer   *time.Timer
	pending *T

	// serializes fn invocations
	runMu sync.Mutex
}

// NewSampler wraps fn with a sampling window. A non-positive interval
// falls back to 100ms.
func NewSampler[T any](interval time.Duration, fn func(T)) *Sampler[T] {
	if interval <= 0 {
		interval = 100 * time.Millisecond
	}
	return &Sampler[T]{interval: interval, fn: fn}
}

// Call samples an invocation of the wrapped function with v.
func (s *Sampler[T]) Call(v T) {
	s.mu.Lock()
	now := time.Now()
	if s.timer == nil && now.Sub(s.last) >= s.interval {
		s.last = now
		s.mu.Unlock()
		s.run(v)
		return
	}

	s.pending = &v
	if s.timer == nil {
		delay := s.interval - now.Sub(s.last)
		if delay <= 0 {
			delay = s.interval
		}
		s.timer = time.AfterFunc(delay, s.fireTrailing)
	}
	s.mu.Unlock()
}

func (s *Sampler[T]) fireTrailing() {
	s.mu.Lock()
	v := s.pending
	s.pending = nil
	s.timer = nil
	s.last = time.Now()
	s.mu.Unlock()

	if v != nil {
		s.run(*v)
	}
}

func (s *Sampler[T]) run(v T) {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.fn(v)
}

// Flush runs any pending trailing invocation immediately. Intended for
// shutdown and tests.
func (s *Sampler[T]) Flush() {
	s.mu.Lock()
	if s.timer != nil {
		s.timer.Stop()
		s.timer = nil
	}
	v := s.pending
	s.pending = nil
	s.mu.Unlock()

	if v != nil {
		s.run(*v)
	}
}
