// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package channel provides a bounded multi-producer single-consumer
// channel between tasks, other goroutines, and interrupt handlers.
//
// Producers may be tasks on any executor (Send), goroutines outside any
// executor (SendBlocking), or interrupt handlers (TrySend). The consumer
// is a single task (Receive) or a single goroutine polling TryReceive.
//
//	ch := channel.New[Event](64)
//
//	// interrupt handler
//	if err := ch.TrySend(ev); channel.IsWouldBlock(err) {
//	    dropped++
//	}
//
//	// consumer task state
//	recv := ch.Receive()
//	...
//	if recv.Poll(cx) == coex.Pending {
//	    return coex.Pending
//	}
//	handle(recv.Value())
package channel

import (
	"context"

	"code.hybscloud.com/coex"
	"code.hybscloud.com/coex/blocking"
	"code.hybscloud.com/iox"
)

// senderWakers bounds the number of blocked sending tasks tracked at once.
// Beyond it, registered senders are woken early and register again.
const senderWakers = 8

type waiters struct {
	receiver coex.WakerRegistration
	senders  *coex.MultiWakerRegistration
}

// Channel is a bounded MPSC channel.
type Channel[T any] struct {
	buf     ring[T]
	waiters blocking.CriticalSectionMutex[waiters]
}

// New creates a channel holding up to capacity values.
// Capacity rounds up to the next power of 2.
// Panics if capacity < 1.
func New[T any](capacity int) *Channel[T] {
	if capacity < 1 {
		panic("channel: capacity must be >= 1")
	}
	c := &Channel[T]{}
	c.buf.init(capacity)
	c.waiters.Lock(func(w *waiters) {
		w.senders = coex.NewMultiWakerRegistration(senderWakers)
	})
	return c
}

// Cap returns the channel capacity.
func (c *Channel[T]) Cap() int {
	return int(c.buf.capacity)
}

// Len returns a snapshot of the number of buffered values.
func (c *Channel[T]) Len() int {
	return c.buf.len()
}

// TrySend adds v without waiting.
// Returns iox.ErrWouldBlock if the channel is full.
func (c *Channel[T]) TrySend(v T) error {
	if err := c.buf.push(v); err != nil {
		return err
	}
	c.waiters.Lock(func(w *waiters) {
		w.receiver.Wake()
	})
	return nil
}

// TryReceive removes the oldest value without waiting (single consumer).
// Returns iox.ErrWouldBlock if the channel is empty.
func (c *Channel[T]) TryReceive() (T, error) {
	v, err := c.buf.pop()
	if err != nil {
		return v, err
	}
	c.waiters.Lock(func(w *waiters) {
		if w.senders.Len() > 0 {
			w.senders.WakeAll()
		}
	})
	return v, nil
}

// SendBlocking adds v, waiting with backoff while the channel is full.
// It is meant for goroutines outside any executor; tasks use Send.
// Returns ctx.Err() if ctx is done first.
func (c *Channel[T]) SendBlocking(ctx context.Context, v T) error {
	backoff := iox.Backoff{}
	for {
		err := c.TrySend(v)
		if err == nil || !iox.IsWouldBlock(err) {
			return err
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		backoff.Wait()
	}
}

// Send returns a future that adds v once there is room.
func (c *Channel[T]) Send(v T) *Send[T] {
	return &Send[T]{c: c, v: v}
}

// Receive returns a future that completes with the next value. It may be
// reused: polling it after completion waits for the next value.
func (c *Channel[T]) Receive() *Receive[T] {
	return &Receive[T]{c: c}
}

// Send is the future returned by Channel.Send.
type Send[T any] struct {
	c    *Channel[T]
	v    T
	done bool
}

// Poll tries to send, registering the task while the channel is full.
func (s *Send[T]) Poll(cx *coex.Context) coex.Status {
	if s.done {
		return coex.Ready
	}
	if s.c.TrySend(s.v) == nil {
		s.done = true
		return coex.Ready
	}
	s.c.waiters.Lock(func(w *waiters) {
		w.senders.Register(cx.Waker())
	})
	// A receive between the failed send and the registration woke nobody.
	if s.c.TrySend(s.v) == nil {
		s.done = true
		return coex.Ready
	}
	return coex.Pending
}

// Receive is the future returned by Channel.Receive.
type Receive[T any] struct {
	c     *Channel[T]
	value T
}

// Poll takes the oldest value, registering the task while the channel is
// empty.
func (r *Receive[T]) Poll(cx *coex.Context) coex.Status {
	if v, err := r.c.TryReceive(); err == nil {
		r.value = v
		return coex.Ready
	}
	r.c.waiters.Lock(func(w *waiters) {
		w.receiver.Register(cx.Waker())
	})
	if v, err := r.c.TryReceive(); err == nil {
		r.value = v
		return coex.Ready
	}
	return coex.Pending
}

// Value returns the value the future completed with.
func (r *Receive[T]) Value() T {
	return r.value
}

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock].
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}
