// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coex_test

import (
	"fmt"
	"runtime"
	"sync"
	"testing"

	"code.hybscloud.com/coex"
	"code.hybscloud.com/spin"
)

// =============================================================================
// Executor
// =============================================================================

func BenchmarkSpawnPollRetire(b *testing.B) {
	ex := coex.New().Build(nopPender{})
	var slot coex.TaskStorage[coex.FutureFunc]
	done := coex.FutureFunc(func(*coex.Context) coex.Status { return coex.Ready })

	b.ResetTimer()
	for range b.N {
		ex.Spawner().MustSpawn(slot.Spawn(done))
		ex.Poll()
	}
}

func BenchmarkWakePoll(b *testing.B) {
	ex := coex.New().Build(nopPender{})
	var slot coex.TaskStorage[coex.FutureFunc]
	pending := coex.FutureFunc(func(*coex.Context) coex.Status { return coex.Pending })
	ex.Spawner().MustSpawn(slot.Spawn(pending))
	ex.Poll()
	w := coex.WakerFor(slot.Ref())

	b.ResetTimer()
	for range b.N {
		w.Wake()
		ex.Poll()
	}
}

func BenchmarkWakePoll_ManyTasks(b *testing.B) {
	for _, n := range []int{8, 64, 512} {
		b.Run(fmt.Sprintf("tasks=%d", n), func(b *testing.B) {
			ex := coex.New().Build(nopPender{})
			pool := coex.NewTaskPool[coex.FutureFunc](n)
			pending := coex.FutureFunc(func(*coex.Context) coex.Status { return coex.Pending })
			wakers := make([]coex.Waker, n)
			for i := range n {
				tok := pool.Spawn(pending)
				wakers[i] = coex.WakerFor(tok.Task())
				ex.Spawner().MustSpawn(tok)
			}
			ex.Poll()

			b.ResetTimer()
			for range b.N {
				for _, w := range wakers {
					w.Wake()
				}
				ex.Poll()
			}
		})
	}
}

// =============================================================================
// Cross-goroutine wakes
// =============================================================================

func BenchmarkWakeFromGoroutines(b *testing.B) {
	procs := max(runtime.GOMAXPROCS(0)-1, 1)
	ex := coex.New().Build(nopPender{})
	pool := coex.NewTaskPool[coex.FutureFunc](procs)
	pending := coex.FutureFunc(func(*coex.Context) coex.Status { return coex.Pending })
	wakers := make([]coex.Waker, procs)
	for i := range procs {
		tok := pool.Spawn(pending)
		wakers[i] = coex.WakerFor(tok.Task())
		ex.Spawner().MustSpawn(tok)
	}
	ex.Poll()

	per := b.N/procs + 1
	var wg sync.WaitGroup
	b.ResetTimer()
	for i := range procs {
		wg.Add(1)
		go func(w coex.Waker) {
			defer wg.Done()
			sw := spin.Wait{}
			for range per {
				w.Wake()
				sw.Once()
			}
		}(wakers[i])
	}
	stop := make(chan struct{})
	go func() {
		wg.Wait()
		close(stop)
	}()
	for {
		select {
		case <-stop:
			ex.Poll()
			return
		default:
			ex.Poll()
		}
	}
}
