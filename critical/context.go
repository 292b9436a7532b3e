// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package critical

import (
	"sync"

	"github.com/petermattis/goid"
)

// Priority is an interrupt priority level. Larger values preempt smaller ones.
type Priority uint8

const (
	// PriorityLowest is the lowest interrupt priority.
	PriorityLowest Priority = 1
	// PriorityHighest is the highest interrupt priority.
	PriorityHighest Priority = 255
)

// active maps a goroutine id to the stack of interrupt priorities it is
// currently serving. Goroutines absent from the map run in thread mode.
var active sync.Map // int64 -> *frame

type frame struct {
	prio []Priority
}

// RunInterrupt runs handler as an interrupt handler of the given priority
// on the calling goroutine. Code reached from handler observes
// InInterrupt() == true until handler returns.
func RunInterrupt(prio Priority, handler func()) {
	if prio == 0 {
		panic("critical: interrupt priority must be non-zero")
	}
	id := goid.Get()
	v, _ := active.LoadOrStore(id, &frame{})
	f := v.(*frame)
	f.prio = append(f.prio, prio)
	defer func() {
		f.prio = f.prio[:len(f.prio)-1]
		if len(f.prio) == 0 {
			active.Delete(id)
		}
	}()
	handler()
}

// InInterrupt reports whether the calling goroutine is serving an interrupt.
func InInterrupt() bool {
	_, ok := active.Load(goid.Get())
	return ok
}

// InThreadMode reports whether the calling goroutine runs in thread mode,
// that is outside of any interrupt handler.
func InThreadMode() bool {
	return !InInterrupt()
}

// CurrentPriority returns the priority of the innermost interrupt the
// calling goroutine is serving, or false in thread mode.
func CurrentPriority() (Priority, bool) {
	v, ok := active.Load(goid.Get())
	if !ok {
		return 0, false
	}
	f := v.(*frame)
	return f.prio[len(f.prio)-1], true
}
