// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package arch_test

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"code.hybscloud.com/coex"
	"code.hybscloud.com/coex/arch"
	"code.hybscloud.com/coex/critical"
	"github.com/stretchr/testify/require"
)

func TestInterruptCoalescesPends(t *testing.T) {
	if coex.RaceEnabled {
		t.Skip("skip: atomix ordering is invisible to the race detector")
	}
	irq := arch.NewInterrupt(3)
	require.Equal(t, critical.Priority(3), irq.Priority())

	var inInterrupt, prio atomic.Int64
	ran := make(chan struct{}, 4)
	irq.Pend()
	irq.Pend()
	irq.Pend()
	irq.Start(func() {
		if critical.InInterrupt() {
			inInterrupt.Add(1)
		}
		p, _ := critical.CurrentPriority()
		prio.Store(int64(p))
		ran <- struct{}{}
	})
	defer irq.Stop()

	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not run")
	}
	select {
	case <-ran:
		t.Fatal("coalesced pends ran the handler twice")
	case <-time.After(20 * time.Millisecond):
	}
	require.EqualValues(t, 1, inInterrupt.Load())
	require.EqualValues(t, 3, prio.Load())
}

func TestInterruptStartStop(t *testing.T) {
	if coex.RaceEnabled {
		t.Skip("skip: atomix ordering is invisible to the race detector")
	}
	irq := arch.NewInterrupt(critical.PriorityLowest)
	ran := make(chan struct{}, 1)
	irq.Start(func() { ran <- struct{}{} })
	require.Panics(t, func() { irq.Start(func() {}) })
	irq.Stop()
	irq.Stop()

	irq.Pend()
	select {
	case <-ran:
		t.Fatal("stopped line ran its handler")
	case <-time.After(20 * time.Millisecond):
	}

	// The pend survives the stop.
	irq.Start(func() { ran <- struct{}{} })
	defer irq.Stop()
	select {
	case <-ran:
	case <-time.After(5 * time.Second):
		t.Fatal("pending line not served after restart")
	}
	require.Eventually(t, func() bool { return irq.Fired() == 1 }, 5*time.Second, time.Millisecond)
}

func TestInterruptStopFromOwnHandlerPanics(t *testing.T) {
	if coex.RaceEnabled {
		t.Skip("skip: atomix ordering is invisible to the race detector")
	}
	irq := arch.NewInterrupt(critical.PriorityLowest)
	got := make(chan any, 1)
	irq.Start(func() {
		defer func() { got <- recover() }()
		irq.Stop()
	})
	defer irq.Stop()
	irq.Pend()
	select {
	case v := <-got:
		require.Equal(t, "arch: interrupt stopped from its own handler", v)
	case <-time.After(5 * time.Second):
		t.Fatal("handler did not run")
	}
}

func TestNewInterruptZeroPriorityPanics(t *testing.T) {
	require.Panics(t, func() { arch.NewInterrupt(0) })
}

func TestThreadExecutorRunUntil(t *testing.T) {
	if coex.RaceEnabled {
		t.Skip("skip: atomix ordering is invisible to the race detector")
	}
	te := arch.NewThreadExecutor(coex.New().Name("main"))
	var slot coex.TaskStorage[coex.FutureFunc]
	polls := 0
	te.Spawner().MustSpawn(slot.Spawn(func(cx *coex.Context) coex.Status {
		polls++
		if polls < 10 {
			cx.Waker().Wake()
			return coex.Pending
		}
		return coex.Ready
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, te.RunUntil(ctx, func() bool { return !slot.IsRunning() }))
	require.Equal(t, 10, polls)
	require.Equal(t, "main", te.Executor().Name())
	require.EqualValues(t, 10, te.Executor().Stats().Resumes)
}

func TestThreadExecutorRunCancel(t *testing.T) {
	if coex.RaceEnabled {
		t.Skip("skip: atomix ordering is invisible to the race detector")
	}
	te := arch.NewThreadExecutor(nil)
	ctx, cancel := context.WithCancel(context.Background())
	var slot coex.TaskStorage[coex.FutureFunc]
	err := te.Run(ctx, func(s coex.Spawner) {
		s.MustSpawn(slot.Spawn(func(*coex.Context) coex.Status {
			cancel()
			return coex.Ready
		}))
	})
	require.ErrorIs(t, err, context.Canceled)
	require.False(t, slot.IsRunning())
}

func TestThreadExecutorFromInterruptPanics(t *testing.T) {
	te := arch.NewThreadExecutor(nil)
	critical.RunInterrupt(critical.PriorityLowest, func() {
		require.Panics(t, func() { _ = te.Run(context.Background(), nil) })
	})
}

// TestInterruptExecutorWakesThreadTask runs a task in interrupt context
// that hands a value to a thread-mode task and wakes it.
func TestInterruptExecutorWakesThreadTask(t *testing.T) {
	if coex.RaceEnabled {
		t.Skip("skip: atomix ordering is invisible to the race detector")
	}
	te := arch.NewThreadExecutor(coex.New().Name("thread"))
	ie := arch.NewInterruptExecutor(arch.NewInterrupt(critical.PriorityHighest), coex.New().Name("irq"))

	var (
		value     atomic.Int64
		consumer  coex.TaskStorage[coex.FutureFunc]
		producer  coex.TaskStorage[coex.FutureFunc]
		waiter    atomic.Pointer[coex.Waker]
		sawIRQ    atomic.Bool
		gotInTask int64
	)
	te.Spawner().MustSpawn(consumer.Spawn(func(cx *coex.Context) coex.Status {
		if v := value.Load(); v != 0 {
			gotInTask = v
			return coex.Ready
		}
		w := cx.Waker()
		waiter.Store(&w)
		return coex.Pending
	}))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	// Let the consumer register its waker first.
	require.NoError(t, te.RunUntil(ctx, func() bool { return waiter.Load() != nil }))

	spawner := ie.Start()
	defer ie.Stop()
	spawner.MustSpawn(producer.Spawn(func(*coex.Context) coex.Status {
		sawIRQ.Store(critical.InInterrupt())
		value.Store(42)
		waiter.Load().Wake()
		return coex.Ready
	}))

	require.NoError(t, te.RunUntil(ctx, func() bool { return !consumer.IsRunning() }))
	require.EqualValues(t, 42, gotInTask)
	require.Eventually(t, func() bool { return !producer.IsRunning() }, 5*time.Second, time.Millisecond)
	require.True(t, sawIRQ.Load())
	require.EqualValues(t, 1, ie.Executor().Stats().Retired)
}
