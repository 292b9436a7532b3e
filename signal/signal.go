// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package signal provides a single-slot notification that carries a value
// from any goroutine or interrupt handler to one waiting task.
package signal

import (
	"code.hybscloud.com/coex"
	"code.hybscloud.com/coex/blocking"
)

type state[T any] struct {
	signaled bool
	value    T
	waiter   coex.WakerRegistration
}

// Signal holds at most one value. Signal overwrites a value nobody took
// yet; Wait takes it. The zero value is empty and ready to use.
//
// Only one task should wait at a time: a second waiter displaces the
// first, which is woken and registers again on its next resume.
type Signal[T any] struct {
	mu blocking.CriticalSectionMutex[state[T]]
}

// Signal stores v, replacing any value not taken yet, and wakes the
// waiting task.
func (s *Signal[T]) Signal(v T) {
	s.mu.Lock(func(st *state[T]) {
		st.value, st.signaled = v, true
		st.waiter.Wake()
	})
}

// Reset discards a value not taken yet.
func (s *Signal[T]) Reset() {
	s.mu.Lock(func(st *state[T]) {
		var zero T
		st.value, st.signaled = zero, false
	})
}

// Signaled reports whether a value is waiting to be taken.
func (s *Signal[T]) Signaled() bool {
	return blocking.With(&s.mu, func(st *state[T]) bool { return st.signaled })
}

// TryTake takes the value if there is one.
func (s *Signal[T]) TryTake() (T, bool) {
	var v T
	ok := blocking.With(&s.mu, func(st *state[T]) bool {
		if !st.signaled {
			return false
		}
		v = st.take()
		return true
	})
	return v, ok
}

func (st *state[T]) take() T {
	v := st.value
	var zero T
	st.value, st.signaled = zero, false
	return v
}

// Wait returns a future that completes with the next value.
func (s *Signal[T]) Wait() *Wait[T] {
	return &Wait[T]{s: s}
}

// Wait is the future returned by Signal.Wait. It may be reused: after it
// completed, polling it again waits for the next value.
type Wait[T any] struct {
	s     *Signal[T]
	value T
}

// Poll takes the value if one is stored, otherwise registers the task.
func (w *Wait[T]) Poll(cx *coex.Context) coex.Status {
	return blocking.With(&w.s.mu, func(st *state[T]) coex.Status {
		if st.signaled {
			w.value = st.take()
			return coex.Ready
		}
		st.waiter.Register(cx.Waker())
		return coex.Pending
	})
}

// Value returns the value the future completed with.
func (w *Wait[T]) Value() T {
	return w.value
}
