// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package timequeue

import "code.hybscloud.com/coex"

// Timer is a future that becomes ready at a deadline tick.
type Timer struct {
	clock Clock
	at    uint64
}

// At returns a timer expiring at tick at.
func At(c Clock, at uint64) Timer {
	return Timer{clock: c, at: at}
}

// After returns a timer expiring n ticks from now.
func After(c Clock, n uint64) Timer {
	return Timer{clock: c, at: c.Now() + n}
}

// Deadline returns the tick the timer expires at.
func (t Timer) Deadline() uint64 {
	return t.at
}

// Poll returns Ready once the deadline passed, otherwise schedules a wake
// for it.
func (t Timer) Poll(cx *coex.Context) coex.Status {
	if t.clock.Now() >= t.at {
		return coex.Ready
	}
	ScheduleWake(t.at, cx.Waker())
	return coex.Pending
}

// Ticker is a future that becomes ready once per period. Each Ready
// advances the next deadline by one period, so a slow consumer catches up
// without drift.
type Ticker struct {
	clock  Clock
	period uint64
	next   uint64
}

// NewTicker returns a ticker whose first tick is one period from now.
// Panics if period is zero.
func NewTicker(c Clock, period uint64) *Ticker {
	if period == 0 {
		panic("timequeue: ticker period must be positive")
	}
	return &Ticker{clock: c, period: period, next: c.Now() + period}
}

// Poll returns Ready when the next tick is due.
func (t *Ticker) Poll(cx *coex.Context) coex.Status {
	if t.clock.Now() >= t.next {
		t.next += t.period
		return coex.Ready
	}
	ScheduleWake(t.next, cx.Waker())
	return coex.Pending
}

// Reset restarts the ticker so that the next tick is one period from now.
func (t *Ticker) Reset() {
	t.next = t.clock.Now() + t.period
}

// Timeout races a future against a deadline.
type Timeout[F coex.Future] struct {
	inner   F
	timer   Timer
	expired bool
}

// WithTimeout returns a future that completes when f completes or when n
// ticks have passed, whichever comes first.
func WithTimeout[F coex.Future](c Clock, n uint64, f F) *Timeout[F] {
	return &Timeout[F]{inner: f, timer: After(c, n)}
}

// Poll resumes the inner future, then checks the deadline.
func (t *Timeout[F]) Poll(cx *coex.Context) coex.Status {
	if t.inner.Poll(cx) == coex.Ready {
		return coex.Ready
	}
	if t.timer.Poll(cx) == coex.Ready {
		t.expired = true
		return coex.Ready
	}
	return coex.Pending
}

// Expired reports whether the future completed because the deadline
// passed rather than because the inner future completed.
func (t *Timeout[F]) Expired() bool {
	return t.expired
}

// Inner returns the wrapped future.
func (t *Timeout[F]) Inner() F {
	return t.inner
}
