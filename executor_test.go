// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coex_test

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"code.hybscloud.com/coex"
	"code.hybscloud.com/iox"
)

type countPender struct {
	n atomic.Int64
}

func (p *countPender) Pend() { p.n.Add(1) }

func (p *countPender) take() int64 { return p.n.Swap(0) }

// gate is a future that stays pending until opened.
type gate struct {
	polls int
	open  atomic.Bool
	waker coex.Waker
}

func (g *gate) Poll(cx *coex.Context) coex.Status {
	g.polls++
	if g.open.Load() {
		return coex.Ready
	}
	g.waker = cx.Waker()
	return coex.Pending
}

func newExecutor(t *testing.T) (*coex.Executor, *countPender) {
	t.Helper()
	p := &countPender{}
	return coex.New().Name(t.Name()).Build(p), p
}

func TestSpawnRunRetire(t *testing.T) {
	ex, p := newExecutor(t)
	var slot coex.TaskStorage[coex.FutureFunc]

	runs := 0
	if err := ex.Spawner().Spawn(slot.Spawn(func(*coex.Context) coex.Status {
		runs++
		return coex.Ready
	})); err != nil {
		t.Fatalf("Spawn: %v", err)
	}
	if p.take() != 1 {
		t.Fatal("spawn did not pend the executor")
	}
	if !slot.IsRunning() || ex.Idle() {
		t.Fatal("spawned task should be running and queued")
	}

	ex.Poll()
	if runs != 1 {
		t.Fatalf("runs: got %d, want 1", runs)
	}
	if slot.IsRunning() {
		t.Fatal("slot still running after Ready")
	}
	if !ex.Idle() {
		t.Fatal("executor not idle after retiring its only task")
	}

	// The slot is reusable once retired.
	ex.Spawner().MustSpawn(slot.Spawn(func(*coex.Context) coex.Status {
		runs++
		return coex.Ready
	}))
	ex.Poll()
	if runs != 2 {
		t.Fatalf("runs after respawn: got %d, want 2", runs)
	}

	st := ex.Stats()
	if st.Spawned != 2 || st.Retired != 2 || st.Resumes != 2 || st.Polls != 2 {
		t.Fatalf("stats: %+v", st)
	}
}

func TestSpawnBusy(t *testing.T) {
	ex, _ := newExecutor(t)
	var slot coex.TaskStorage[*gate]
	g := &gate{}
	ex.Spawner().MustSpawn(slot.Spawn(g))

	err := ex.Spawner().Spawn(slot.Spawn(&gate{}))
	if !errors.Is(err, coex.ErrBusy) || !coex.IsBusy(err) {
		t.Fatalf("second spawn: got %v, want ErrBusy", err)
	}
	if !errors.Is(err, iox.ErrWouldBlock) || !coex.IsWouldBlock(err) {
		t.Fatal("ErrBusy should classify as would-block")
	}
	if ex.Stats().Busy != 1 {
		t.Fatalf("busy counter: got %d, want 1", ex.Stats().Busy)
	}

	ex.Poll()
	g.open.Store(true)
	g.waker.Wake()
	ex.Poll()
	if slot.IsRunning() {
		t.Fatal("slot still running")
	}
	if err := ex.Spawner().Spawn(slot.Spawn(&gate{})); err != nil {
		t.Fatalf("spawn after retire: %v", err)
	}
}

func TestMustSpawnPanicsOnBusy(t *testing.T) {
	ex, _ := newExecutor(t)
	var slot coex.TaskStorage[*gate]
	ex.Spawner().MustSpawn(slot.Spawn(&gate{}))

	defer func() {
		r := recover()
		if err, ok := r.(error); !ok || !errors.Is(err, coex.ErrBusy) {
			t.Fatalf("recover: got %v, want ErrBusy", r)
		}
	}()
	ex.Spawner().MustSpawn(slot.Spawn(&gate{}))
}

func TestTaskPool(t *testing.T) {
	ex, _ := newExecutor(t)
	pool := coex.NewTaskPool[*gate](2)
	if pool.Cap() != 2 {
		t.Fatalf("Cap: got %d, want 2", pool.Cap())
	}
	a, b := &gate{}, &gate{}
	ex.Spawner().MustSpawn(pool.Spawn(a).Name("a"))
	ex.Spawner().MustSpawn(pool.Spawn(b).Name("b"))
	if err := ex.Spawner().Spawn(pool.Spawn(&gate{})); !coex.IsBusy(err) {
		t.Fatalf("third spawn: got %v, want ErrBusy", err)
	}
	if pool.Running() != 2 {
		t.Fatalf("Running: got %d, want 2", pool.Running())
	}

	ex.Poll()
	a.open.Store(true)
	a.waker.Wake()
	ex.Poll()
	if pool.Running() != 1 {
		t.Fatalf("Running after retire: got %d, want 1", pool.Running())
	}
	c := &gate{}
	tok := pool.Spawn(c).Name("c")
	if tok.Task().Name() != "c" {
		t.Fatalf("name: got %q", tok.Task().Name())
	}
	ex.Spawner().MustSpawn(tok)
	ex.Poll()
	if c.polls != 1 {
		t.Fatalf("reused slot not polled: %d", c.polls)
	}
}

func TestNewTaskPoolPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for pool size 0")
		}
	}()
	coex.NewTaskPool[*gate](0)
}

func TestWakeIdempotent(t *testing.T) {
	ex, p := newExecutor(t)
	var slot coex.TaskStorage[*gate]
	g := &gate{}
	ex.Spawner().MustSpawn(slot.Spawn(g))
	ex.Poll()
	p.take()

	for range 5 {
		g.waker.Wake()
	}
	if p.take() != 1 {
		t.Fatal("repeated wakes should pend once")
	}
	if !slot.Ref().IsQueued() {
		t.Fatal("task not queued after wake")
	}
	ex.Poll()
	if g.polls != 2 {
		t.Fatalf("polls: got %d, want 2", g.polls)
	}
	ex.Poll()
	if g.polls != 2 {
		t.Fatal("task resumed without a wake")
	}
}

func TestWakeDuringResumeRunsNextPass(t *testing.T) {
	ex, p := newExecutor(t)
	var slot coex.TaskStorage[coex.FutureFunc]
	polls := 0
	ex.Spawner().MustSpawn(slot.Spawn(func(cx *coex.Context) coex.Status {
		polls++
		if polls < 3 {
			cx.Waker().Wake()
			return coex.Pending
		}
		return coex.Ready
	}))

	for i := 1; i <= 3; i++ {
		p.take()
		ex.Poll()
		if polls != i {
			t.Fatalf("pass %d: polls=%d", i, polls)
		}
		if i < 3 && p.take() != 1 {
			t.Fatalf("pass %d: self-wake did not pend", i)
		}
	}
	if slot.IsRunning() {
		t.Fatal("task not retired")
	}
}

func TestIdleOneCycleIdle(t *testing.T) {
	ex, p := newExecutor(t)
	if !ex.Idle() {
		t.Fatal("new executor not idle")
	}
	ex.Poll()
	if st := ex.Stats(); st.Resumes != 0 {
		t.Fatalf("poll on idle executor resumed %d tasks", st.Resumes)
	}

	var slot coex.TaskStorage[*gate]
	g := &gate{}
	ex.Spawner().MustSpawn(slot.Spawn(g))
	ex.Poll()
	if !ex.Idle() {
		t.Fatal("not idle after pending task")
	}
	p.take()

	g.waker.Wake()
	if ex.Idle() {
		t.Fatal("idle with a woken task")
	}
	ex.Poll()
	if !ex.Idle() || g.polls != 2 {
		t.Fatalf("after one cycle: idle=%v polls=%d", ex.Idle(), g.polls)
	}
	if p.take() != 1 {
		t.Fatal("wake should pend exactly once")
	}
}

func TestWakeAfterRetireIgnored(t *testing.T) {
	ex, p := newExecutor(t)
	var slot coex.TaskStorage[*gate]
	g := &gate{}
	ex.Spawner().MustSpawn(slot.Spawn(g))
	ex.Poll()
	stale := g.waker
	g.open.Store(true)
	stale.Wake()
	ex.Poll()
	p.take()

	stale.Wake()
	if p.take() != 0 || !ex.Idle() {
		t.Fatal("wake of a retired task was not ignored")
	}
}

func TestSpawnTokenUsedTwice(t *testing.T) {
	ex, _ := newExecutor(t)
	var slot coex.TaskStorage[*gate]
	tok := slot.Spawn(&gate{})
	ex.Spawner().MustSpawn(tok)
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic on token reuse")
		}
	}()
	ex.Spawner().MustSpawn(tok)
}

func TestPollReentrantPanics(t *testing.T) {
	ex, _ := newExecutor(t)
	var slot coex.TaskStorage[coex.FutureFunc]
	ex.Spawner().MustSpawn(slot.Spawn(func(*coex.Context) coex.Status {
		ex.Poll()
		return coex.Ready
	}))
	func() {
		defer func() {
			if recover() == nil {
				t.Fatal("expected panic on reentrant Poll")
			}
		}()
		ex.Poll()
	}()
	// The guard is released by the unwinding Poll.
	ex.Poll()
}

func TestBuildNilPenderPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for nil pender")
		}
	}()
	coex.New().Build(nil)
}

func TestMultipleExecutors(t *testing.T) {
	exA, pA := newExecutor(t)
	exB, pB := newExecutor(t)
	var slot coex.TaskStorage[*gate]

	g := &gate{}
	exA.Spawner().MustSpawn(slot.Spawn(g))
	exA.Poll()
	g.open.Store(true)
	g.waker.Wake()
	exA.Poll()
	pA.take()

	// The same slot, respawned on another executor.
	h := &gate{}
	exB.Spawner().MustSpawn(slot.Spawn(h))
	if pA.take() != 0 || pB.take() != 1 {
		t.Fatal("spawn pended the wrong executor")
	}
	exB.Poll()
	h.waker.Wake()
	if pB.take() != 1 || !exA.Idle() || exB.Idle() {
		t.Fatal("wake reached the wrong executor")
	}
}

// TestConcurrentWakers hammers one task with wakes from many goroutines
// and checks that no wake is lost: after the wakers stop, the task has
// observed the final counter value.
func TestConcurrentWakers(t *testing.T) {
	if coex.RaceEnabled {
		t.Skip("skip: atomix ordering is invisible to the race detector")
	}
	const wakers = 8
	const perWaker = 2000

	pend := make(chan struct{}, 1)
	ex := coex.New().Build(coex.PenderFunc(func() {
		select {
		case pend <- struct{}{}:
		default:
		}
	}))

	var counter atomic.Int64
	var seen int64
	var slot coex.TaskStorage[coex.FutureFunc]
	ex.Spawner().MustSpawn(slot.Spawn(func(cx *coex.Context) coex.Status {
		seen = counter.Load()
		if seen == wakers*perWaker {
			return coex.Ready
		}
		return coex.Pending
	}))
	ex.Poll()
	w := coex.WakerFor(slot.Ref())

	var wg sync.WaitGroup
	for range wakers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for range perWaker {
				counter.Add(1)
				w.Wake()
			}
		}()
	}

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	for slot.IsRunning() {
		select {
		case <-pend:
			ex.Poll()
		case <-done:
			select {
			case <-pend:
				ex.Poll()
			default:
				if slot.IsRunning() {
					t.Fatalf("lost wake: task saw %d of %d", seen, wakers*perWaker)
				}
			}
		}
	}
}
