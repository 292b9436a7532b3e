// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coex

import "github.com/joeycumines/logiface"

// Options configures executor creation.
type Options struct {
	name   string
	logger *logiface.Logger[logiface.Event]
	timers TimerQueueDriver
}

// Builder creates executors with fluent configuration.
//
// Example:
//
//	// Bare executor pended by a thread-mode loop
//	ex := coex.New().Name("main").Build(pender)
//
//	// Executor with a timer queue and logging
//	ex := coex.New().
//	    Name("io").
//	    Logger(logger).
//	    TimerQueue(timequeue.New(clock)).
//	    Build(pender)
type Builder struct {
	opts Options
}

// New creates an executor builder.
func New() *Builder {
	return &Builder{}
}

// Name sets the executor name used in logs.
func (b *Builder) Name(name string) *Builder {
	b.opts.name = name
	return b
}

// Logger sets the logger. A nil logger disables logging.
func (b *Builder) Logger(l *logiface.Logger[logiface.Event]) *Builder {
	b.opts.logger = l
	return b
}

// TimerQueue attaches a timer queue driver. A driver serves one executor.
func (b *Builder) TimerQueue(d TimerQueueDriver) *Builder {
	b.opts.timers = d
	return b
}

// Build creates the executor. p is called whenever the executor needs a
// Poll.
//
// Panics if p is nil.
func (b *Builder) Build(p Pender) *Executor {
	if p == nil {
		panic("coex: pender must not be nil")
	}
	e := &Executor{
		pender: p,
		timers: b.opts.timers,
		logger: b.opts.logger,
		name:   b.opts.name,
	}
	e.runQueue.init()
	if e.timers != nil {
		e.timers.Attach(p)
	}
	return e
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte
