// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package arch

import (
	"sync"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/coex/critical"
	"github.com/petermattis/goid"
)

// Interrupt is a software interrupt line. Pend marks it pending; a
// dedicated goroutine runs the handler once per pending edge, in interrupt
// context at the line's priority. Pends that arrive while the line is
// already pending coalesce.
type Interrupt struct {
	prio    critical.Priority
	pending chan struct{}

	mu      sync.Mutex
	stop    chan struct{}
	done    chan struct{}
	running bool

	fired  atomix.Uint64
	server atomix.Uint64 // goroutine id of the serve loop, 0 when stopped
}

// NewInterrupt creates a line of the given priority.
// Panics if prio is zero.
func NewInterrupt(prio critical.Priority) *Interrupt {
	if prio == 0 {
		panic("arch: interrupt priority must be non-zero")
	}
	return &Interrupt{
		prio:    prio,
		pending: make(chan struct{}, 1),
	}
}

// Priority returns the line's priority.
func (i *Interrupt) Priority() critical.Priority {
	return i.prio
}

// Pend marks the line pending. It never blocks and may be called from
// any goroutine, including the handler itself.
func (i *Interrupt) Pend() {
	select {
	case i.pending <- struct{}{}:
	default:
	}
}

// Fired returns the number of times the handler ran.
func (i *Interrupt) Fired() uint64 {
	return i.fired.LoadRelaxed()
}

// Start enables the line: handler runs whenever the line is pending.
// A pend that happened before Start is served right away.
// Panics if the line is already started.
func (i *Interrupt) Start(handler func()) {
	i.mu.Lock()
	defer i.mu.Unlock()
	if i.running {
		panic("arch: interrupt already started")
	}
	i.stop = make(chan struct{})
	i.done = make(chan struct{})
	i.running = true
	go i.serve(handler, i.stop, i.done)
}

// Stop disables the line and waits for a running handler to return.
// Pending state is kept. Stop on a stopped line does nothing.
// Panics when called from the line's own handler.
func (i *Interrupt) Stop() {
	if i.server.LoadAcquire() == uint64(goid.Get()) {
		panic("arch: interrupt stopped from its own handler")
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	if !i.running {
		return
	}
	close(i.stop)
	<-i.done
	i.running = false
}

func (i *Interrupt) serve(handler func(), stop <-chan struct{}, done chan<- struct{}) {
	i.server.StoreRelease(uint64(goid.Get()))
	defer close(done)
	defer i.server.StoreRelease(0)
	for {
		select {
		case <-stop:
			return
		case <-i.pending:
			critical.RunInterrupt(i.prio, handler)
			i.fired.AddAcqRel(1)
		}
	}
}
