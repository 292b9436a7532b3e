// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package blocking

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/coex/critical"
	"github.com/petermattis/goid"
)

// Locker is implemented by every mutex in this package.
//
// Lock runs f with exclusive access to the protected value. There is no
// separate unlock: access ends when f returns.
type Locker[T any] interface {
	Lock(f func(v *T))
}

// With runs f with exclusive access to the value protected by m and returns
// f's result.
func With[T, R any](m Locker[T], f func(v *T) R) R {
	var r R
	m.Lock(func(v *T) { r = f(v) })
	return r
}

// CriticalSectionMutex protects a value shared between any tasks and any
// interrupt handlers.
//
// Lock enters the platform critical section for the duration of the
// callback. Locking the same mutex again from inside the callback panics.
// The zero value is an unlocked mutex holding the zero T.
type CriticalSectionMutex[T any] struct {
	borrowed bool // guarded by the critical section
	data     T
}

// NewCriticalSectionMutex returns a mutex protecting v.
func NewCriticalSectionMutex[T any](v T) *CriticalSectionMutex[T] {
	return &CriticalSectionMutex[T]{data: v}
}

// Lock runs f inside the critical section with access to the value.
func (m *CriticalSectionMutex[T]) Lock(f func(v *T)) {
	critical.With(func(critical.Section) {
		if m.borrowed {
			panic("blocking: CriticalSectionMutex locked reentrantly")
		}
		m.borrowed = true
		defer func() { m.borrowed = false }()
		f(&m.data)
	})
}

// Borrow returns the protected value to code that already holds the
// critical section. The pointer must not outlive the section.
func (m *CriticalSectionMutex[T]) Borrow(_ critical.Section) *T {
	return &m.data
}

// NoopMutex protects a value shared only by tasks of one executor.
//
// It performs no synchronization at all: correctness relies on every
// accessor running cooperatively on the same executor and never suspending
// inside the callback. Reentrant locking panics.
type NoopMutex[T any] struct {
	borrowed bool
	data     T
}

// NewNoopMutex returns a mutex protecting v.
func NewNoopMutex[T any](v T) *NoopMutex[T] {
	return &NoopMutex[T]{data: v}
}

// Lock runs f with access to the value.
func (m *NoopMutex[T]) Lock(f func(v *T)) {
	if m.borrowed {
		panic("blocking: NoopMutex locked reentrantly")
	}
	m.borrowed = true
	defer func() { m.borrowed = false }()
	f(&m.data)
}

// ThreadModeMutex protects a value that may only ever be touched from one
// thread-mode context, never from an interrupt handler.
//
// The first Lock binds the mutex to the calling goroutine. Because that
// single context owns it, the value needs no further synchronization.
// Lock and Drop panic when called from an interrupt or from any other
// goroutine.
type ThreadModeMutex[T any] struct {
	owner    atomix.Uint64 // goroutine id, 0 while unbound
	borrowed bool
	data     T
}

// NewThreadModeMutex returns a mutex protecting v.
func NewThreadModeMutex[T any](v T) *ThreadModeMutex[T] {
	return &ThreadModeMutex[T]{data: v}
}

// Lock runs f with access to the value.
func (m *ThreadModeMutex[T]) Lock(f func(v *T)) {
	if !critical.InThreadMode() {
		panic("blocking: ThreadModeMutex can only be locked from thread mode")
	}
	if !m.bind() {
		panic("blocking: ThreadModeMutex locked from a second thread-mode context")
	}
	if m.borrowed {
		panic("blocking: ThreadModeMutex locked reentrantly")
	}
	m.borrowed = true
	defer func() { m.borrowed = false }()
	f(&m.data)
}

// Drop releases the protected value, resetting it to the zero T.
func (m *ThreadModeMutex[T]) Drop() {
	if !critical.InThreadMode() {
		panic("blocking: ThreadModeMutex can only be dropped from thread mode")
	}
	if !m.bind() {
		panic("blocking: ThreadModeMutex dropped from a second thread-mode context")
	}
	if m.borrowed {
		panic("blocking: ThreadModeMutex dropped while locked")
	}
	var zero T
	m.data = zero
}

// bind reports whether the calling goroutine owns m, claiming it when m is
// still unbound.
func (m *ThreadModeMutex[T]) bind() bool {
	me := uint64(goid.Get())
	if m.owner.LoadAcquire() == me {
		return true
	}
	return m.owner.CompareAndSwapAcqRel(0, me)
}

var (
	_ Locker[int] = (*CriticalSectionMutex[int])(nil)
	_ Locker[int] = (*NoopMutex[int])(nil)
	_ Locker[int] = (*ThreadModeMutex[int])(nil)
)
