package store

import (
	"context"
	"sync"
	"sync/atomic"
)

// Slot holds at most one value that is delivered to exactly one consumer.
// The zero value is an empty slot ready for use.
type Slot[T any] struct {
	mu       sync.Mutex
	value    T
	present  bool
	consumed bool
	notify   chan struct{}
}

// Put replaces the current value. An unconsumed previous value is dropped.
func (s *Slot[T]) Put(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
	s.present = true
	s.consumed = false
	if s.notify != nil {
		close(s.notify)
		s.notify = nil
	}
}

// Take returns the current value and marks it consumed in the same step.
// It reports false when the slot is empty or already consumed.
func (s *Slot[T]) Take() (T, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.takeLocked()
}

// Claim is Take that also tells an empty slot from one whose value was
// already taken.
func (s *Slot[T]) Claim() (v T, consumed bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if v, ok = s.takeLocked(); ok {
		return v, false, true
	}
	return v, s.present && s.consumed, false
}

func (s *Slot[T]) takeLocked() (T, bool) {
	var zero T
	if !s.present || s.consumed {
		return zero, false
	}
	s.consumed = true
	return s.value, true
}

// Peek returns the current value without consuming it. ok is false when
// nothing was ever written.
func (s *Slot[T]) Peek() (v T, consumed bool, ok bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.value, s.consumed, s.present
}

// Discard marks the current value consumed without returning it.
func (s *Slot[T]) Discard() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.consumed = true
}

// Wait blocks until an unconsumed value is available and takes it. It
// returns ctx.Err() when the context ends first.
func (s *Slot[T]) Wait(ctx context.Context) (T, error) {
	for {
		s.mu.Lock()
		if v, ok := s.takeLocked(); ok {
			s.mu.Unlock()
			return v, nil
		}
		if s.notify == nil {
			s.notify = make(chan struct{})
		}
		ch := s.notify
		s.mu.Unlock()

		select {
		case <-ch:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Flag is an edge-triggered boolean: the first observer of a raised flag
// lowers it.
type Flag struct {
	v atomic.Bool
}

func (f *Flag) Raise() { f.v.Store(true) }

// Observe reports whether the flag was raised and resets it.
func (f *Flag) Observe() bool {
	return f.v.CompareAndSwap(true, false)
}
