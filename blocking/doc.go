// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package blocking provides the critical-section mutex family.
//
// Each mutex wraps exactly one value and only exposes scoped access through a
// callback, so a lock can never be released twice or not at all:
//
//	var counter blocking.CriticalSectionMutex[int]
//	counter.Lock(func(v *int) { *v++ })
//	n := blocking.With(&counter, func(v *int) int { return *v })
//
// The variants trade sharing scope for cost:
//
//	CriticalSectionMutex: any task, any interrupt handler
//	NoopMutex:            tasks of a single executor only, zero cost
//	ThreadModeMutex:      thread-mode code only, never interrupts
//
// None of them blocks or queues. A lock must never be held across a task
// suspension point: the callback must return before the task yields.
package blocking
