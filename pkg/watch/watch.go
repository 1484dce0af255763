// Package watch provides a last-value broadcast channel: a single Sender
// whose latest value is observed by any number of Receivers.
//
// Unlike a plain channel, a watch channel never blocks the sender and never
// queues: each receiver sees only the most recent value. New receivers start
// with the latest value already seen; it is observable at once via Latest or
// Peek, and Changed completes only when a newer value arrives.
package watch

import "sync"

// state is the shared core of one watch channel.
type state[T any] struct {
	mu        sync.Mutex
	value     T
	version   uint64
	notify    chan struct{}
	receivers int
}

// Sender is the writing half of a watch channel.
type Sender[T any] struct {
	st *state[T]
}

// Receiver observes the latest value of a watch channel.
// Receivers are not safe for concurrent use by multiple goroutines;
// create one receiver per consumer with Subscribe.
type Receiver[T any] struct {
	st   *state[T]
	seen uint64

	closeMu sync.Mutex
	closed  bool
}

// New creates a watch channel holding initial. The initial value counts as
// version zero: a receiver subscribed before any Send does not wake until the
// first Send.
func New[T any](initial T) *Sender[T] {
	return &Sender[T]{st: &state[T]{
		value:  initial,
		notify: make(chan struct{}),
	}}
}

// Send stores v as the latest value and wakes all waiting receivers.
// Send never blocks.
func (s *Sender[T]) Send(v T) {
	st := s.st
	st.mu.Lock()
	st.value = v
	st.version++
	close(st.notify)
	st.notify = make(chan struct{})
	st.mu.Unlock()
}

// Subscribe creates a new receiver. The latest value is immediately
// observable via Latest; Changed completes once a value newer than the
// subscription point arrives.
func (s *Sender[T]) Subscribe() *Receiver[T] {
	st := s.st
	st.mu.Lock()
	defer st.mu.Unlock()
	st.receivers++
	return &Receiver[T]{st: st, seen: st.version}
}

// Receivers returns the number of live receivers.
func (s *Sender[T]) Receivers() int {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return s.st.receivers
}

// Peek returns the latest value without affecting any receiver.
func (s *Sender[T]) Peek() T {
	s.st.mu.Lock()
	defer s.st.mu.Unlock()
	return s.st.value
}

// Changed returns a channel that is closed once a value newer than the last
// one returned by Latest is available, or once the receiver is closed.
// Callers must re-check Closed after waking:
//
//	for {
//	    <-rx.Changed()
//	    if rx.Closed() {
//	        return
//	    }
//	    v := rx.Latest()
//	    ...
//	}
func (r *Receiver[T]) Changed() <-chan struct{} {
	if r.Closed() {
		return closedChan
	}

	st := r.st
	st.mu.Lock()
	defer st.mu.Unlock()
	if r.seen < st.version {
		return closedChan
	}
	return st.notify
}

// Latest returns the latest value and marks it as seen.
func (r *Receiver[T]) Latest() T {
	st := r.st
	st.mu.Lock()
	defer st.mu.Unlock()
	r.seen = st.version
	return st.value
}

// Peek returns the latest value without marking it seen.
func (r *Receiver[T]) Peek() T {
	st := r.st
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.value
}

// Close drops the receiver and wakes any goroutine blocked in Changed.
// Safe to call more than once.
func (r *Receiver[T]) Close() {
	r.closeMu.Lock()
	if r.closed {
		r.closeMu.Unlock()
		return
	}
	r.closed = true
	r.closeMu.Unlock()

	st := r.st
	st.mu.Lock()
	st.receivers--
	// Wake every waiter so loops blocked on this state re-check Closed.
	close(st.notify)
	st.notify = make(chan struct{})
	st.mu.Unlock()
}

// Closed reports whether the receiver has been closed.
func (r *Receiver[T]) Closed() bool {
	r.closeMu.Lock()
	defer r.closeMu.Unlock()
	return r.closed
}

// closedChan is returned by Changed when the result is already decided.
var closedChan = func() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}()
