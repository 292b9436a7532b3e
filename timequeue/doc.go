// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package timequeue is a timer queue driver for coex executors, with the
// clocks and futures that sit on top of it.
//
// Time is counted in ticks of a Clock. A task sleeps by lowering its own
// deadline from inside Poll (ScheduleWake, or the Timer and Ticker
// futures); after the resume the executor hands the task to its Queue,
// which keeps it in a sorted list threaded through the task's timer queue
// item and arms the clock's alarm for the earliest deadline. When the
// alarm fires the executor is pended and the expired tasks are woken on
// the next Poll.
//
//	clock := timequeue.NewWallClock(time.Millisecond)
//	ex := coex.New().TimerQueue(timequeue.New(clock)).Build(pender)
//
//	// a task's state holds the timer across resumes
//	b.sleep = timequeue.After(clock, 100)
//	...
//	if b.sleep.Poll(cx) == coex.Pending {
//	    return coex.Pending
//	}
//
// ManualClock moves only when told to, for tests and simulation.
package timequeue
