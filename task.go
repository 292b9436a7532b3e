// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coex

import (
	"fmt"
	"runtime"
	"sync/atomic"
)

// resumer is the type-erased view of a slot's computation.
type resumer interface {
	resume(cx *Context) Status
	release()
}

// TaskHeader is the type-independent part of a task slot. Wakers, run
// queues, executors, and timer queues all operate on headers.
type TaskHeader struct {
	state    state
	runItem  runQueueItem
	executor atomic.Pointer[Executor]
	task     resumer

	// Guarded by the critical section.
	name      string
	expiresAt uint64

	timerItem TimerQueueItem
}

// TaskRef is a copyable reference to a task slot. The zero TaskRef refers
// to no task.
type TaskRef struct {
	h *TaskHeader
}

func (h *TaskHeader) ref() TaskRef {
	return TaskRef{h: h}
}

// IsZero reports whether r refers to no task.
func (r TaskRef) IsZero() bool {
	return r.h == nil
}

// IsRunning reports whether the slot currently holds a live computation.
func (r TaskRef) IsRunning() bool {
	return r.h.state.spawned()
}

// IsQueued reports whether the task currently sits in a run queue.
func (r TaskRef) IsQueued() bool {
	return r.h.state.queued()
}

// TimerQueueItem returns the timer queue storage of the task.
// Only the linked timer queue driver may use it.
func (r TaskRef) TimerQueueItem() *TimerQueueItem {
	return &r.h.timerItem
}

// TaskStorage is a statically allocated slot holding one computation of
// type F at a time. Declare it as a package-level variable or embed it in
// a long-lived structure; it must not move after the first Spawn.
//
//	var blinky coex.TaskStorage[*Blinky]
//
//	tok := blinky.Spawn(&Blinky{})
//	err := ex.Spawner().Spawn(tok)
//
// A slot is reusable once the executor retired its previous computation.
type TaskStorage[F Future] struct {
	header TaskHeader
	future F
}

// Spawn claims the slot for f and returns a token that must be handed to
// a Spawner. When the slot still runs a previous computation, Spawn returns
// a token that makes Spawner.Spawn fail with ErrBusy.
func (s *TaskStorage[F]) Spawn(f F) *SpawnToken {
	if tok := s.claim(f); tok != nil {
		return tok
	}
	return busyToken()
}

// claim binds f to the slot if it is free, or returns nil.
func (s *TaskStorage[F]) claim(f F) *SpawnToken {
	if !s.header.state.spawn() {
		return nil
	}
	s.future = f
	s.header.task = s
	s.header.name = ""
	s.header.expiresAt = NoDeadline
	return newSpawnToken(s.header.ref())
}

// Ref returns a reference to the slot.
func (s *TaskStorage[F]) Ref() TaskRef {
	return s.header.ref()
}

// IsRunning reports whether the slot holds a live computation.
func (s *TaskStorage[F]) IsRunning() bool {
	return s.header.state.spawned()
}

func (s *TaskStorage[F]) resume(cx *Context) Status {
	return s.future.Poll(cx)
}

func (s *TaskStorage[F]) release() {
	var zero F
	s.future = zero
}

// TaskPool is a fixed array of task slots created once. Spawn uses the
// first free slot.
type TaskPool[F Future] struct {
	slots []TaskStorage[F]
}

// NewTaskPool creates a pool of n slots.
// Panics if n < 1.
func NewTaskPool[F Future](n int) *TaskPool[F] {
	if n < 1 {
		panic("coex: task pool size must be >= 1")
	}
	return &TaskPool[F]{slots: make([]TaskStorage[F], n)}
}

// Spawn claims the first free slot for f. When every slot is running, the
// returned token makes Spawner.Spawn fail with ErrBusy.
func (p *TaskPool[F]) Spawn(f F) *SpawnToken {
	for i := range p.slots {
		if tok := p.slots[i].claim(f); tok != nil {
			return tok
		}
	}
	return busyToken()
}

// Cap returns the number of slots.
func (p *TaskPool[F]) Cap() int {
	return len(p.slots)
}

// Running returns the number of slots holding a live computation.
func (p *TaskPool[F]) Running() int {
	n := 0
	for i := range p.slots {
		if p.slots[i].IsRunning() {
			n++
		}
	}
	return n
}

// SpawnToken is proof that a slot was claimed for a computation which has
// not been handed to an executor yet.
//
// A token must be passed to exactly one Spawner.Spawn. A token that becomes
// unreachable without being spawned is reported to the leak handler.
type SpawnToken struct {
	task    TaskRef
	used    bool
	cleanup runtime.Cleanup
}

func newSpawnToken(t TaskRef) *SpawnToken {
	tok := &SpawnToken{task: t}
	tok.cleanup = runtime.AddCleanup(tok, reportLeakedToken, t)
	return tok
}

func busyToken() *SpawnToken {
	return &SpawnToken{}
}

// Name sets the task name metadata and returns the token.
// It has no effect on a busy token.
func (t *SpawnToken) Name(name string) *SpawnToken {
	if !t.task.IsZero() {
		t.task.SetName(name)
	}
	return t
}

// Task returns the claimed slot, or the zero TaskRef for a busy token.
func (t *SpawnToken) Task() TaskRef {
	return t.task
}

// take consumes the token.
func (t *SpawnToken) take() TaskRef {
	if t.used {
		panic("coex: spawn token used twice")
	}
	t.used = true
	if !t.task.IsZero() {
		t.cleanup.Stop()
	}
	return t.task
}

// LeakHandler is called with the slot of a spawn token that was dropped
// without being spawned.
type LeakHandler func(t TaskRef)

var leakHandler atomic.Pointer[LeakHandler]

// SetLeakHandler replaces the leak handler and returns the previous one.
// A nil handler restores the default, which panics.
func SetLeakHandler(h LeakHandler) LeakHandler {
	var old *LeakHandler
	if h == nil {
		old = leakHandler.Swap(nil)
	} else {
		old = leakHandler.Swap(&h)
	}
	if old == nil {
		return nil
	}
	return *old
}

// reportLeakedToken runs on the cleanup goroutine. The slot is returned to
// the free state after the handler returns.
func reportLeakedToken(t TaskRef) {
	if h := leakHandler.Load(); h != nil {
		(*h)(t)
	} else {
		panic(fmt.Sprintf("coex: spawn token for task %q dropped without being spawned", t.Name()))
	}
	t.h.task.release()
	t.h.task = nil
	t.h.state.word.StoreRelease(0)
}
