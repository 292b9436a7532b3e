// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package critical provides the platform primitives the runtime is built on:
// a process-wide critical section and execution-context tracking.
//
// On a microcontroller the critical section masks interrupts. Here it is a
// process-wide spin lock owned by one goroutine at a time; nested entry by
// the owner is allowed, mirroring the save/restore discipline of interrupt
// masking:
//
//	critical.With(func(cs critical.Section) {
//	    // exclusive with every other critical section
//	})
//
// Interrupt handlers are goroutines marked by [RunInterrupt]. Code can ask
// whether it runs in thread mode or inside a handler, which is what the
// thread-mode mutex in package blocking asserts on.
//
// Critical sections are taken for bounded, short durations. Never suspend a
// task or block on I/O while holding one.
package critical
