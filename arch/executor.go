// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package arch

import (
	"context"

	"code.hybscloud.com/coex"
	"code.hybscloud.com/coex/critical"
)

// ThreadExecutor runs an executor on a thread-mode goroutine, parking it
// between polls the way a core sleeps in wait-for-event. A pend from any
// goroutine unparks it.
type ThreadExecutor struct {
	signal chan struct{}
	ex     *coex.Executor
}

// NewThreadExecutor builds the executor from b, or from coex.New() when b
// is nil.
func NewThreadExecutor(b *coex.Builder) *ThreadExecutor {
	if b == nil {
		b = coex.New()
	}
	t := &ThreadExecutor{signal: make(chan struct{}, 1)}
	t.ex = b.Build(coex.PenderFunc(t.pend))
	return t
}

func (t *ThreadExecutor) pend() {
	select {
	case t.signal <- struct{}{}:
	default:
	}
}

// Executor returns the underlying executor.
func (t *ThreadExecutor) Executor() *coex.Executor {
	return t.ex
}

// Spawner returns a spawner for the executor.
func (t *ThreadExecutor) Spawner() coex.Spawner {
	return t.ex.Spawner()
}

// Run calls init with a spawner, then polls the executor each time it is
// pended and parks in between, until ctx is done. It returns ctx.Err().
//
// Panics when called from interrupt context.
func (t *ThreadExecutor) Run(ctx context.Context, init func(s coex.Spawner)) error {
	if !critical.InThreadMode() {
		panic("arch: ThreadExecutor.Run called from interrupt context")
	}
	if init != nil {
		init(t.ex.Spawner())
	}
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.signal:
			t.ex.Poll()
		}
	}
}

// RunUntil is like Run but also returns nil as soon as done reports true
// after a poll.
func (t *ThreadExecutor) RunUntil(ctx context.Context, done func() bool) error {
	if !critical.InThreadMode() {
		panic("arch: ThreadExecutor.RunUntil called from interrupt context")
	}
	for !done() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-t.signal:
			t.ex.Poll()
		}
	}
	return nil
}

// InterruptExecutor runs an executor inside the handler of a software
// interrupt line: pending the executor pends the line, and the handler
// polls. Tasks on it preempt thread-mode tasks and tasks on lower
// priority lines.
type InterruptExecutor struct {
	irq *Interrupt
	ex  *coex.Executor
}

// NewInterruptExecutor builds the executor from b, or from coex.New() when
// b is nil, pended through irq.
func NewInterruptExecutor(irq *Interrupt, b *coex.Builder) *InterruptExecutor {
	if b == nil {
		b = coex.New()
	}
	return &InterruptExecutor{
		irq: irq,
		ex:  b.Build(coex.PenderFunc(irq.Pend)),
	}
}

// Start enables the interrupt line with the executor's Poll as handler and
// returns a spawner. Tasks may be spawned from any goroutine.
// Panics if already started.
func (e *InterruptExecutor) Start() coex.Spawner {
	e.irq.Start(e.ex.Poll)
	return e.ex.Spawner()
}

// Stop disables the line, waiting for a running poll to return.
// Panics when called from a task on this executor.
func (e *InterruptExecutor) Stop() {
	e.irq.Stop()
}

// Executor returns the underlying executor.
func (e *InterruptExecutor) Executor() *coex.Executor {
	return e.ex
}

// Spawner returns a spawner for the executor.
func (e *InterruptExecutor) Spawner() coex.Spawner {
	return e.ex.Spawner()
}

// Interrupt returns the line the executor runs on.
func (e *InterruptExecutor) Interrupt() *Interrupt {
	return e.irq
}
