// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package blocking_test

import (
	"testing"

	"code.hybscloud.com/coex"
	"code.hybscloud.com/coex/blocking"
	"code.hybscloud.com/coex/critical"
	"github.com/stretchr/testify/require"
	"golang.org/x/sync/errgroup"
)

type pair struct {
	a, b uint64
}

// TestCriticalSectionMutexCounterRace increments a two-word value from
// thread-mode goroutines and simulated interrupt handlers. Both words must
// stay equal: a torn write would split them.
func TestCriticalSectionMutexCounterRace(t *testing.T) {
	if coex.RaceEnabled {
		t.Skip("skip: atomix ordering is invisible to the race detector")
	}
	const rounds = 5000
	var m blocking.CriticalSectionMutex[pair]

	var g errgroup.Group
	for i := range 4 {
		g.Go(func() error {
			for range rounds {
				bump := func() {
					m.Lock(func(v *pair) {
						v.a++
						v.b++
					})
				}
				if i%2 == 0 {
					bump()
				} else {
					critical.RunInterrupt(critical.Priority(i), bump)
				}
			}
			return nil
		})
	}
	g.Go(func() error {
		for range rounds {
			m.Lock(func(v *pair) {
				if v.a != v.b {
					panic("torn write observed")
				}
			})
		}
		return nil
	})
	require.NoError(t, g.Wait())

	got := blocking.With(&m, func(v *pair) pair { return *v })
	require.Equal(t, pair{a: 4 * rounds, b: 4 * rounds}, got)
}

func TestCriticalSectionMutexReentrant(t *testing.T) {
	m := blocking.NewCriticalSectionMutex(1)
	require.PanicsWithValue(t, "blocking: CriticalSectionMutex locked reentrantly", func() {
		m.Lock(func(*int) {
			m.Lock(func(*int) {})
		})
	})
	// the mutex is usable again after the panic unwound
	m.Lock(func(v *int) { *v = 2 })
	require.Equal(t, 2, blocking.With(m, func(v *int) int { return *v }))
}

func TestCriticalSectionMutexBorrow(t *testing.T) {
	var a, b blocking.CriticalSectionMutex[int]
	critical.With(func(cs critical.Section) {
		*a.Borrow(cs) = 1
		*b.Borrow(cs) = *a.Borrow(cs) + 1
	})
	require.Equal(t, 2, blocking.With(&b, func(v *int) int { return *v }))
}

func TestNoopMutex(t *testing.T) {
	m := blocking.NewNoopMutex([]string{})
	m.Lock(func(v *[]string) { *v = append(*v, "a") })
	n := blocking.With(m, func(v *[]string) int { return len(*v) })
	require.Equal(t, 1, n)

	require.PanicsWithValue(t, "blocking: NoopMutex locked reentrantly", func() {
		m.Lock(func(*[]string) {
			m.Lock(func(*[]string) {})
		})
	})
}

func TestThreadModeMutex(t *testing.T) {
	type notShared struct {
		ch chan int
	}
	m := blocking.NewThreadModeMutex(notShared{ch: make(chan int, 1)})
	m.Lock(func(v *notShared) { v.ch <- 1 })

	require.PanicsWithValue(t, "blocking: ThreadModeMutex can only be locked from thread mode", func() {
		critical.RunInterrupt(critical.PriorityLowest, func() {
			m.Lock(func(*notShared) {})
		})
	})
	require.PanicsWithValue(t, "blocking: ThreadModeMutex can only be dropped from thread mode", func() {
		critical.RunInterrupt(critical.PriorityLowest, m.Drop)
	})
	require.PanicsWithValue(t, "blocking: ThreadModeMutex locked reentrantly", func() {
		m.Lock(func(*notShared) {
			m.Lock(func(*notShared) {})
		})
	})

	m.Drop()
	m.Lock(func(v *notShared) { require.Nil(t, v.ch) })
}

func TestThreadModeMutexSingleContext(t *testing.T) {
	m := blocking.NewThreadModeMutex(0)
	m.Lock(func(v *int) { *v++ })

	// A second goroutine is thread mode too, but not the owning context.
	lockErr := make(chan any, 1)
	dropErr := make(chan any, 1)
	go func() {
		defer func() { lockErr <- recover() }()
		m.Lock(func(v *int) { *v++ })
	}()
	go func() {
		defer func() { dropErr <- recover() }()
		m.Drop()
	}()
	require.Equal(t, "blocking: ThreadModeMutex locked from a second thread-mode context", <-lockErr)
	require.Equal(t, "blocking: ThreadModeMutex dropped from a second thread-mode context", <-dropErr)

	m.Lock(func(v *int) { require.Equal(t, 1, *v) })
}
