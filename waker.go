// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coex

// Waker wakes one task: it puts the task back on its executor's run queue
// and pends the executor. Wakers are small values, safe to copy and to use
// from any goroutine, interrupt handlers included.
//
// Waking is idempotent: waking a task that is already queued does nothing,
// and so does waking a task whose slot was retired.
type Waker struct {
	task TaskRef
}

// WakerFor returns the Waker of t.
func WakerFor(t TaskRef) Waker {
	return Waker{task: t}
}

// Wake wakes the task. Waking the zero Waker does nothing.
func (w Waker) Wake() {
	if w.task.IsZero() {
		return
	}
	WakeTask(w.task)
}

// IsZero reports whether w wakes no task.
func (w Waker) IsZero() bool {
	return w.task.IsZero()
}

// WillWake reports whether w and o wake the same task.
func (w Waker) WillWake(o Waker) bool {
	return w.task.h == o.task.h
}

// TaskFromWaker returns the task w wakes. It is the mapping timer queue
// drivers use to reach a task's metadata and timer queue item.
// Panics if w is the zero Waker.
func TaskFromWaker(w Waker) TaskRef {
	if w.task.IsZero() {
		panic("coex: waker is not bound to a task")
	}
	return w.task
}

// WakeTask puts t on its executor's run queue and pends the executor,
// unless t is already queued or not running.
func WakeTask(t TaskRef) {
	if !t.h.state.runEnqueue() {
		return
	}
	t.h.executor.Load().enqueue(t.h, true)
}

// WakeTaskNoPend is WakeTask without pending the executor. It is meant for
// code running inside the executor's own Poll, such as timer expiry, which
// the current pass picks up.
func WakeTaskNoPend(t TaskRef) {
	if !t.h.state.runEnqueue() {
		return
	}
	t.h.executor.Load().enqueue(t.h, false)
}

// WakerRegistration stores the Waker of the single task waiting on an
// event. The zero value is empty and ready to use. It is not synchronized:
// guard it with the same mutex as the state it belongs to.
type WakerRegistration struct {
	waker Waker
}

// Register stores w. A different waker already registered is woken first,
// so its task re-registers if it still waits.
func (r *WakerRegistration) Register(w Waker) {
	if r.waker.IsZero() || r.waker.WillWake(w) {
		r.waker = w
		return
	}
	old := r.waker
	r.waker = w
	old.Wake()
}

// Wake wakes and clears the registered waker, if any.
func (r *WakerRegistration) Wake() {
	w := r.waker
	r.waker = Waker{}
	w.Wake()
}

// Occupied reports whether a waker is registered.
func (r *WakerRegistration) Occupied() bool {
	return !r.waker.IsZero()
}

// MultiWakerRegistration stores the Wakers of up to a fixed number of tasks
// waiting on the same event. Not synchronized, like WakerRegistration.
type MultiWakerRegistration struct {
	wakers []Waker
}

// NewMultiWakerRegistration creates a registration holding up to n wakers.
// Panics if n < 1.
func NewMultiWakerRegistration(n int) *MultiWakerRegistration {
	if n < 1 {
		panic("coex: waker registration capacity must be >= 1")
	}
	return &MultiWakerRegistration{wakers: make([]Waker, 0, n)}
}

// Register adds w unless it is already present. When the registration is
// full, every stored waker is woken and cleared before w is added.
func (r *MultiWakerRegistration) Register(w Waker) {
	for _, o := range r.wakers {
		if o.WillWake(w) {
			return
		}
	}
	if len(r.wakers) == cap(r.wakers) {
		r.WakeAll()
	}
	r.wakers = append(r.wakers, w)
}

// WakeAll wakes and clears every registered waker.
func (r *MultiWakerRegistration) WakeAll() {
	for i, w := range r.wakers {
		r.wakers[i] = Waker{}
		w.Wake()
	}
	r.wakers = r.wakers[:0]
}

// Len returns the number of registered wakers.
func (r *MultiWakerRegistration) Len() int {
	return len(r.wakers)
}
