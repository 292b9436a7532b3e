// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package timequeue

import (
	"sync"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/coex/blocking"
	"fortio.org/safecast"
)

// Clock is a monotonic tick counter with alarms.
type Clock interface {
	// Now returns the current tick.
	Now() uint64

	// NewAlarm allocates an alarm that calls fire, on an arbitrary
	// goroutine, when it expires.
	NewAlarm(fire func()) Alarm
}

// Alarm is a one-shot timer of a Clock.
type Alarm interface {
	// Set arms the alarm for tick at, replacing any previous setting.
	// It reports false, leaving the alarm disarmed, when at is not in
	// the future.
	Set(at uint64) bool

	// Cancel disarms the alarm.
	Cancel()
}

// ManualClock is a Clock that only moves when told to. Alarms fire
// synchronously inside Advance and Set, after the clock moved.
// The zero value starts at tick 0.
type ManualClock struct {
	now    atomix.Uint64
	alarms blocking.CriticalSectionMutex[[]*manualAlarm]
}

// NewManualClock creates a clock starting at tick start.
func NewManualClock(start uint64) *ManualClock {
	c := &ManualClock{}
	c.now.StoreRelease(start)
	return c
}

// Now returns the current tick.
func (c *ManualClock) Now() uint64 {
	return c.now.LoadAcquire()
}

// Advance moves the clock forward by n ticks.
func (c *ManualClock) Advance(n uint64) {
	c.move(func(now uint64) uint64 { return now + n })
}

// Set moves the clock to tick t and fires the alarms that became due.
// Panics if t is earlier than the current tick.
func (c *ManualClock) Set(t uint64) {
	c.move(func(now uint64) uint64 {
		if t < now {
			panic("timequeue: ManualClock moved backwards")
		}
		return t
	})
}

func (c *ManualClock) move(next func(now uint64) uint64) {
	var due []func()
	c.alarms.Lock(func(alarms *[]*manualAlarm) {
		t := next(c.now.LoadRelaxed())
		c.now.StoreRelease(t)
		for _, a := range *alarms {
			if a.armed && a.at <= t {
				a.armed = false
				due = append(due, a.fire)
			}
		}
	})
	for _, fire := range due {
		fire()
	}
}

// NewAlarm allocates an alarm on the clock.
func (c *ManualClock) NewAlarm(fire func()) Alarm {
	a := &manualAlarm{c: c, fire: fire}
	c.alarms.Lock(func(alarms *[]*manualAlarm) {
		*alarms = append(*alarms, a)
	})
	return a
}

// manualAlarm fields are guarded by the clock's alarm mutex.
type manualAlarm struct {
	c     *ManualClock
	fire  func()
	at    uint64
	armed bool
}

func (a *manualAlarm) Set(at uint64) bool {
	return blocking.With(&a.c.alarms, func(*[]*manualAlarm) bool {
		if at <= a.c.now.LoadRelaxed() {
			a.armed = false
			return false
		}
		a.at, a.armed = at, true
		return true
	})
}

func (a *manualAlarm) Cancel() {
	a.c.alarms.Lock(func(*[]*manualAlarm) {
		a.armed = false
	})
}

// WallClock is a Clock counting ticks of a fixed duration since its
// creation, with alarms backed by time.AfterFunc.
type WallClock struct {
	start time.Time
	tick  time.Duration
}

// NewWallClock creates a clock whose ticks last tick.
// Panics if tick is not positive.
func NewWallClock(tick time.Duration) *WallClock {
	if tick <= 0 {
		panic("timequeue: tick duration must be positive")
	}
	return &WallClock{start: time.Now(), tick: tick}
}

// Now returns the number of whole ticks elapsed since the clock started.
func (c *WallClock) Now() uint64 {
	return c.Ticks(time.Since(c.start))
}

// Ticks converts d to whole ticks, rounding down. Negative durations
// convert to 0.
func (c *WallClock) Ticks(d time.Duration) uint64 {
	n, err := safecast.Conv[uint64](int64(d / c.tick))
	if err != nil {
		return 0
	}
	return n
}

// Duration converts n ticks to a duration, saturating at the largest
// representable one.
func (c *WallClock) Duration(n uint64) time.Duration {
	v, err := safecast.Conv[int64](n)
	if err != nil || v > int64(maxDuration/c.tick) {
		return maxDuration
	}
	return time.Duration(v) * c.tick
}

const maxDuration = time.Duration(1<<63 - 1)

// NewAlarm allocates an alarm on the clock.
func (c *WallClock) NewAlarm(fire func()) Alarm {
	return &wallAlarm{c: c, fire: fire}
}

type wallAlarm struct {
	c    *WallClock
	fire func()

	mu    sync.Mutex
	timer *time.Timer
}

func (a *wallAlarm) Set(at uint64) bool {
	now := a.c.Now()
	if at <= now {
		a.Cancel()
		return false
	}
	d := a.c.Duration(at - now)
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer == nil {
		a.timer = time.AfterFunc(d, a.fire)
		return true
	}
	a.timer.Stop()
	a.timer.Reset(d)
	return true
}

func (a *wallAlarm) Cancel() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.timer != nil {
		a.timer.Stop()
	}
}
