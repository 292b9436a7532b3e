// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coex

import (
	"fmt"
	"reflect"
	"unsafe"
)

// TimerQueueItemSize is the size in bytes of the scratch area of a
// TimerQueueItem. It is selected at build time: 16 with the coex_tq_16 tag,
// 64 with the coex_tq_64 tag, 32 otherwise.
const TimerQueueItemSize = timerQueueWords * 8

// TimerQueueItemAlign is the alignment guaranteed for the scratch area.
const TimerQueueItemAlign = 8

// TimerQueueItem is storage embedded in every task slot for the use of the
// timer queue driver linked into the program.
//
// The runtime guarantees that the storage exists for the lifetime of the
// slot and is zero while the slot is fresh; it assigns it no structure.
// The driver owns a task link (Next/SetNext) for chaining tasks into its
// expiry structure, and a pointer-free scratch area it views through a
// TimerQueueView.
type TimerQueueItem struct {
	next    TaskRef
	scratch [timerQueueWords]uint64
}

// Next returns the task linked after this one by the timer queue driver.
func (i *TimerQueueItem) Next() TaskRef {
	return i.next
}

// SetNext links t after this task.
func (i *TimerQueueItem) SetNext(t TaskRef) {
	i.next = t
}

// TimerQueueView reinterprets the scratch area of a TimerQueueItem as a T.
//
// Exactly one record type is expected per program: the one defined by the
// linked timer queue driver.
type TimerQueueView[T any] struct{}

// NewTimerQueueView checks that T fits the scratch area and returns a view.
// It panics when T is too large, over-aligned, or contains pointers; call it
// from a package-level variable initializer so a mismatch fails at start-up.
func NewTimerQueueView[T any]() TimerQueueView[T] {
	var zero T
	if size := unsafe.Sizeof(zero); size > TimerQueueItemSize {
		panic(fmt.Sprintf("coex: timer queue record %T is %d bytes, item holds %d", zero, size, TimerQueueItemSize))
	}
	if align := unsafe.Alignof(zero); align > TimerQueueItemAlign {
		panic(fmt.Sprintf("coex: timer queue record %T needs %d-byte alignment, item has %d", zero, align, TimerQueueItemAlign))
	}
	if typ := reflect.TypeFor[T](); !pointerFree(typ) {
		panic(fmt.Sprintf("coex: timer queue record %v must not contain pointers", typ))
	}
	return TimerQueueView[T]{}
}

// Get returns the record stored in item.
func (TimerQueueView[T]) Get(item *TimerQueueItem) *T {
	return (*T)(unsafe.Pointer(&item.scratch))
}

func pointerFree(t reflect.Type) bool {
	switch t.Kind() {
	case reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return true
	case reflect.Array:
		return t.Len() == 0 || pointerFree(t.Elem())
	case reflect.Struct:
		for i := range t.NumField() {
			if !pointerFree(t.Field(i).Type) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// TimerQueueDriver is the boundary between an executor and the timer queue
// implementation linked into the program.
//
// The executor drives it from Poll, on the executor's own goroutine:
// DequeueExpired before draining the run queue, Update after every resume,
// and Arm once the run queue is drained. Ordering and expiry are entirely
// the driver's business.
type TimerQueueDriver interface {
	// Attach is called once when the executor is built. The driver pends
	// the executor through p when an alarm fires.
	Attach(p Pender)

	// DequeueExpired wakes, through wake, every queued task whose deadline
	// has elapsed and removes it from the driver's structure.
	DequeueExpired(wake func(TaskRef))

	// Update reconciles t with its current ExpiresAt after t was resumed:
	// queue it, move it, or remove it when the deadline is NoDeadline.
	Update(t TaskRef)

	// Arm programs the alarm for the earliest deadline. It reports false
	// when that deadline has already elapsed, in which case the executor
	// runs another pass.
	Arm() bool
}
