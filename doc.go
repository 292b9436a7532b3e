// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package coex provides a cooperative task executor for statically
// allocated computations.
//
// A task is a Future: a state machine resumed by Poll until it returns
// Ready. Tasks live in slots allocated once (TaskStorage, TaskPool); the
// spawn path never allocates a slot. Within one Executor tasks never
// preempt each other. Executors on different interrupt priorities (see
// package arch) may preempt one another.
//
// # Quick Start
//
//	var blink coex.TaskStorage[coex.FutureFunc]
//
//	ex := coex.New().Name("main").Build(pender)
//	ex.Spawner().MustSpawn(blink.Spawn(func(cx *coex.Context) coex.Status {
//	    if !led.Toggle(cx.Waker()) {
//	        return coex.Pending
//	    }
//	    return coex.Ready
//	}))
//
//	for {
//	    ex.Poll()
//	    waitForPend()
//	}
//
// # Task Lifecycle
//
// Spawn claims a slot and returns a SpawnToken; Spawner.Spawn queues the
// task on an executor. Each Poll resumes every task queued when the pass
// started, once. A task that returns Ready is retired: its computation is
// dropped and the slot may be claimed again. Claiming a running slot
// yields ErrBusy at Spawner.Spawn.
//
// A SpawnToken dropped without being spawned is a programming error,
// reported to the leak handler (SetLeakHandler); the default panics.
//
// # Wake Protocol
//
// A task returning Pending must first have stored cx.Waker() with whatever
// will complete its wait. Waker.Wake may be called from any goroutine, any
// number of times: the first wake queues the task and pends its executor,
// further wakes before the next resume do nothing. A wake that lands while
// the task is being resumed queues it for the next pass, so no wake is
// lost.
//
// # Timer Queue
//
// Every task carries a deadline (ExpiresAt) and a TimerQueueItem. The
// executor resets the deadline before each resume and hands the task to
// the attached TimerQueueDriver after it, which is how package timequeue
// implements sleeping without allocation.
//
// # Error Handling
//
// Contract violations (using a token twice, polling reentrantly) panic.
// Exhausted slots are reported with ErrBusy, which wraps iox.ErrWouldBlock.
package coex
