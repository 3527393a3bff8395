package scheduler

import "sync"

// Slot is a single-value mailbox: a queue of capacity one whose sender
// never blocks. When the previous value has not been received yet, the new
// value is dropped and TrySend reports false. Staleness is acceptable,
// backpressure is not.
type Slot[T any] struct {
	ch        chan T
	closeOnce sync.Once
}

// NewSlot returns an empty slot.
func NewSlot[T any]() *Slot[T] {
	return &Slot[T]{ch: make(chan T, 1)}
}

// TrySend offers v without blocking and reports whether it was accepted.
func (s *Slot[T]) TrySend(v T) bool {
	select {
	case s.ch <- v:
		return true
	default:
		return false
	}
}

// C returns the receive side of the slot. It is closed by Close.
func (s *Slot[T]) C() <-chan T {
	return s.ch
}

// Close closes the receive side. TrySend must not be called afterwards.
func (s *Slot[T]) Close() {
	s.closeOnce.Do(func() { close(s.ch) })
}
