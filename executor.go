// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coex

import (
	"code.hybscloud.com/atomix"
	"github.com/joeycumines/logiface"
)

// Pender requests that an executor's Poll be called soon. It is called
// from any goroutine, including interrupt handlers and from within Poll
// itself, and must not block or call Poll directly.
type Pender interface {
	Pend()
}

// PenderFunc adapts a function to the Pender interface.
type PenderFunc func()

// Pend calls f().
func (f PenderFunc) Pend() {
	f()
}

// Executor runs tasks cooperatively: each Poll resumes the tasks woken
// since the previous Poll, one at a time, on the calling goroutine.
//
// An Executor does not decide when to poll. Whoever owns it (a thread-mode
// loop, an interrupt handler; see package arch) calls Poll after the
// Pender fired. Multiple executors may coexist, each with its own run
// queue and pender.
//
// Executors are created by a Builder and must not be copied.
type Executor struct {
	runQueue runQueue
	pender   Pender
	timers   TimerQueueDriver
	logger   *logiface.Logger[logiface.Event]
	name     string

	_       pad
	polling atomix.Uint64
	cx      Context // reused by every resume

	_       pad
	polls   atomix.Uint64
	resumes atomix.Uint64
	spawned atomix.Uint64
	retired atomix.Uint64
	busy    atomix.Uint64
}

// Stats is a snapshot of an executor's counters.
type Stats struct {
	Polls   uint64 // calls to Poll
	Resumes uint64 // computations resumed
	Spawned uint64 // tasks handed over by a Spawner
	Retired uint64 // computations that completed
	Busy    uint64 // spawns refused with ErrBusy
}

// Name returns the executor name given to the Builder.
func (e *Executor) Name() string {
	return e.name
}

// Spawner returns a Spawner that hands tasks to e.
func (e *Executor) Spawner() Spawner {
	return Spawner{ex: e}
}

// Pend calls the executor's Pender.
func (e *Executor) Pend() {
	e.pender.Pend()
}

// Idle reports whether the run queue is empty. A producer in the middle
// of a wake may not be visible yet; its pend follows.
func (e *Executor) Idle() bool {
	return e.runQueue.isEmpty()
}

// Stats returns a snapshot of the executor's counters.
func (e *Executor) Stats() Stats {
	return Stats{
		Polls:   e.polls.LoadRelaxed(),
		Resumes: e.resumes.LoadRelaxed(),
		Spawned: e.spawned.LoadRelaxed(),
		Retired: e.retired.LoadRelaxed(),
		Busy:    e.busy.LoadRelaxed(),
	}
}

// Poll resumes every task that was queued when the pass started, once
// each. Tasks woken during the pass run on the next Poll; their wake has
// pended the executor again.
//
// With a timer queue attached, Poll first wakes the expired tasks and,
// after draining, arms the alarm for the next deadline, repeating the pass
// while that deadline has already elapsed.
//
// Poll must be called by one goroutine at a time and not from within a
// task. Panics raised by a task propagate to the caller.
func (e *Executor) Poll() {
	if !e.polling.CompareAndSwapAcqRel(0, 1) {
		panic("coex: Executor.Poll called reentrantly")
	}
	defer e.polling.StoreRelease(0)
	e.polls.AddAcqRel(1)

	for {
		if e.timers != nil {
			e.timers.DequeueExpired(WakeTaskNoPend)
		}
		e.runQueue.dequeueAll(e.runTask)
		if e.timers == nil || e.timers.Arm() {
			return
		}
	}
}

func (e *Executor) runTask(h *TaskHeader) {
	// Clear the queued bit before resuming: a wake that lands during
	// the resume queues the task again.
	if !h.state.runDequeue() {
		return
	}
	t := h.ref()
	if e.timers != nil {
		t.SetExpiresAt(NoDeadline)
	}

	e.cx.waker = Waker{task: t}
	e.resumes.AddAcqRel(1)
	status := h.task.resume(&e.cx)
	e.cx.waker = Waker{}

	if status == Pending {
		if e.timers != nil {
			e.timers.Update(t)
		}
		return
	}

	// Unlink from the timer queue and drop the computation before the
	// slot becomes claimable again.
	if e.timers != nil {
		t.SetExpiresAt(NoDeadline)
		e.timers.Update(t)
	}
	if b := e.logger.Debug(); b.Enabled() {
		b.Str("executor", e.name).Str("task", t.Name()).Log("task retired")
	}
	h.task.release()
	h.task = nil
	h.state.despawn()
	e.retired.AddAcqRel(1)
}

func (e *Executor) enqueue(h *TaskHeader, pend bool) {
	h.runItem.task = h
	e.runQueue.enqueue(&h.runItem)
	if pend {
		e.pender.Pend()
	}
}

// Spawner hands claimed task slots to an executor. It is a small value
// that may be copied and used from any goroutine.
type Spawner struct {
	ex *Executor
}

// Spawn consumes tok and queues its task on the executor. It returns
// ErrBusy when the slot could not be claimed.
// Panics if tok was already used.
func (s Spawner) Spawn(tok *SpawnToken) error {
	t := tok.take()
	if t.IsZero() {
		s.ex.busy.AddAcqRel(1)
		s.ex.logger.Warning().Str("executor", s.ex.name).Log("spawn refused: task slot busy")
		return ErrBusy
	}
	t.h.executor.Store(s.ex)
	s.ex.spawned.AddAcqRel(1)
	if b := s.ex.logger.Debug(); b.Enabled() {
		b.Str("executor", s.ex.name).Str("task", t.Name()).Log("task spawned")
	}
	s.ex.enqueue(t.h, true)
	return nil
}

// MustSpawn is like Spawn but panics with the error.
func (s Spawner) MustSpawn(tok *SpawnToken) {
	if err := s.Spawn(tok); err != nil {
		panic(err)
	}
}

// Executor returns the executor the spawner hands tasks to.
func (s Spawner) Executor() *Executor {
	return s.ex
}
