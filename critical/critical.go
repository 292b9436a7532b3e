// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package critical

import (
	"runtime"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/spin"
	"github.com/petermattis/goid"
)

// Section is the token handed to code running inside the critical section.
//
// Holding a Section proves that no other goroutine is inside the critical
// section. It must not be retained after the closure that received it
// returns.
type Section struct {
	_ [0]func() // not comparable
}

// RestoreState is returned by Acquire and must be passed to the matching
// Release. It records whether the acquire was nested.
type RestoreState struct {
	nested bool
}

// yieldEvery bounds how long an acquirer spins before yielding the
// processor to let the holder make progress.
const yieldEvery = 128

var global struct {
	_     pad
	owner atomix.Uint64 // goroutine id of the holder, 0 when free
	_     pad
	depth uint64 // nesting depth, written by the holder only
}

// Acquire enters the critical section.
//
// Nested acquisition from the goroutine that already holds the section
// succeeds immediately. Every Acquire must be paired with a Release of the
// returned RestoreState, in reverse order.
func Acquire() RestoreState {
	me := uint64(goid.Get())
	if global.owner.LoadAcquire() == me {
		global.depth++
		return RestoreState{nested: true}
	}

	sw := spin.Wait{}
	for i := 1; !global.owner.CompareAndSwapAcqRel(0, me); i++ {
		if i%yieldEvery == 0 {
			runtime.Gosched()
			sw.Reset()
			continue
		}
		sw.Once()
	}
	global.depth = 1
	return RestoreState{}
}

// Release leaves the critical section entered by the matching Acquire.
func Release(rs RestoreState) {
	if global.owner.LoadRelaxed() != uint64(goid.Get()) {
		panic("critical: release by a goroutine that does not hold the section")
	}
	global.depth--
	if rs.nested {
		return
	}
	if global.depth != 0 {
		panic("critical: unbalanced release")
	}
	global.owner.StoreRelease(0)
}

// With runs f inside the critical section.
//
// The section is released when f returns or panics.
func With(f func(cs Section)) {
	rs := Acquire()
	defer Release(rs)
	f(Section{})
}

// WithValue runs f inside the critical section and returns its result.
func WithValue[R any](f func(cs Section) R) R {
	rs := Acquire()
	defer Release(rs)
	return f(Section{})
}

// Held reports whether the calling goroutine is inside the critical section.
func Held() bool {
	return global.owner.LoadAcquire() == uint64(goid.Get())
}

// pad fills a cache line between hot words.
type pad [64]byte
