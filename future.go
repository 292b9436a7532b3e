// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coex

// Status is the outcome of resuming a computation once.
type Status uint8

const (
	// Pending means the computation suspended. Before returning Pending it
	// must have registered the Context's Waker with whatever it waits on.
	Pending Status = iota
	// Ready means the computation completed.
	Ready
)

// String returns "Pending" or "Ready".
func (s Status) String() string {
	if s == Ready {
		return "Ready"
	}
	return "Pending"
}

// Future is a resumable computation: a hand-written state machine that
// advances as far as it can each time Poll is called.
//
// Poll must not block. A Future that returns Pending without arranging for
// its Waker to be woken is never resumed again.
type Future interface {
	Poll(cx *Context) Status
}

// FutureFunc adapts a function to the Future interface.
// State lives in the closure.
type FutureFunc func(cx *Context) Status

// Poll calls f(cx).
func (f FutureFunc) Poll(cx *Context) Status {
	return f(cx)
}

// Context is passed to Future.Poll. It carries the Waker of the task being
// resumed.
type Context struct {
	waker Waker
}

// NewContext returns a Context carrying w. Executors create their own
// contexts; this is for driving futures by hand, for example in
// combinators or tests.
func NewContext(w Waker) *Context {
	return &Context{waker: w}
}

// Waker returns the Waker of the task being resumed.
func (cx *Context) Waker() Waker {
	return cx.waker
}
