// Package signalbus implements a latest-value, coalescing signal: a single
// slot that holds the most recent value written to it, broadcast to any
// number of independent readers. Unlike a channel or an apimachinery
// watch.Broadcaster, writes never queue -- a burst of rapid updates
// collapses to the last one, so a slow reader only ever sees the newest
// value instead of working through a backlog. Built on stdlib sync
// primitives, using the same "close a channel to broadcast a change" idiom
// context.Context uses for cancellation.
package signalbus

import (
	"context"
	"sync"
)

// Sender is the write side of a signal.
type Sender[T any] struct {
	s *state[T]
}

// Receiver is an independent read cursor over a signal's value.
type Receiver[T any] struct {
	s    *state[T]
	seen uint64 // last generation this receiver observed
}

type state[T any] struct {
	mu         sync.Mutex
	ready      bool
	value      T
	generation uint64
	wake       chan struct{} // closed and replaced on every change
	senders    int
	eq         func(a, b T) bool
}

// New creates a signal over comparable-by-eq values T, returning the sender
// and the first receiver. eq is used by Sender.Set to decide whether a write
// actually changes the value; an equal write is a no-op and does not wake
// receivers.
func New[T any](eq func(a, b T) bool) (Sender[T], Receiver[T]) {
	s := &state[T]{wake: make(chan struct{}), eq: eq, senders: 1}
	return Sender[T]{s: s}, Receiver[T]{s: s}
}

// NewComparable is a convenience constructor for comparable T.
func NewComparable[T comparable]() (Sender[T], Receiver[T]) {
	return New[T](func(a, b T) bool { return a == b })
}

// Clone returns a second sender sharing this signal, incrementing the
// sender refcount used to detect "all senders dropped" for Receiver.Changed.
func (s Sender[T]) Clone() Sender[T] {
	s.s.mu.Lock()
	s.s.senders++
	s.s.mu.Unlock()
	return s
}

// Close drops this sender. Once every sender of a signal has been closed,
// pending and future Receiver.Changed calls return ErrClosed.
func (s Sender[T]) Close() {
	s.s.mu.Lock()
	s.s.senders--
	closed := s.s.senders <= 0
	var wake chan struct{}
	if closed {
		wake = s.s.wake
	}
	s.s.mu.Unlock()
	if closed {
		close(wake)
	}
}

// Set replaces the value if it differs from the current one. A no-op write
// does not wake receivers.
func (s Sender[T]) Set(v T) {
	s.s.mu.Lock()
	defer s.s.mu.Unlock()
	if s.s.ready && s.s.eq(s.s.value, v) {
		return
	}
	s.s.value = v
	s.s.ready = true
	s.s.generation++
	old := s.s.wake
	s.s.wake = make(chan struct{})
	close(old)
}

// Replace supports explicit clearing: Replace(nil) moves the signal back
// to Pending. Replace(&v) behaves like Set(v).
func (s Sender[T]) Replace(v *T) {
	if v != nil {
		s.Set(*v)
		return
	}
	s.s.mu.Lock()
	defer s.s.mu.Unlock()
	if !s.s.ready {
		return
	}
	var zero T
	s.s.value = zero
	s.s.ready = false
	s.s.generation++
	old := s.s.wake
	s.s.wake = make(chan struct{})
	close(old)
}

// Clone returns an independent observation cursor over the same signal. A
// freshly cloned receiver has not observed anything, so its first Changed
// call resolves immediately if the signal is already Ready.
func (r Receiver[T]) Clone() Receiver[T] {
	return Receiver[T]{s: r.s, seen: 0}
}

// ErrClosed is returned by Changed once every sender has been dropped.
type ErrClosed struct{}

func (ErrClosed) Error() string { return "signal: all senders dropped" }

// Get returns the current value, suspending until the signal is Ready.
func (r *Receiver[T]) Get(ctx context.Context) (T, error) {
	for {
		r.s.mu.Lock()
		if r.s.ready {
			v := r.s.value
			r.seen = r.s.generation
			r.s.mu.Unlock()
			return v, nil
		}
		wake := r.s.wake
		r.s.mu.Unlock()
		select {
		case <-wake:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// Changed suspends until the value changes relative to this receiver's last
// observation, including the initial Pending->Ready transition, then
// returns the new value. It returns ErrClosed once all senders are gone,
// or ctx's error if ctx ends first.
func (r *Receiver[T]) Changed(ctx context.Context) (T, error) {
	for {
		r.s.mu.Lock()
		if r.s.ready && r.s.generation != r.seen {
			v := r.s.value
			r.seen = r.s.generation
			r.s.mu.Unlock()
			return v, nil
		}
		closed := r.s.senders <= 0
		wake := r.s.wake
		r.s.mu.Unlock()
		if closed {
			var zero T
			return zero, ErrClosed{}
		}
		select {
		case <-wake:
		case <-ctx.Done():
			var zero T
			return zero, ctx.Err()
		}
	}
}

// TryGet returns the current value without blocking; ok is false if the
// signal is still Pending.
func (r *Receiver[T]) TryGet() (v T, ok bool) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if !r.s.ready {
		return v, false
	}
	return r.s.value, true
}
