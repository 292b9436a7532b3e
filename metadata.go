// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coex

import (
	"math"

	"code.hybscloud.com/coex/critical"
)

// NoDeadline is the ExpiresAt value of a task that waits for no deadline.
const NoDeadline uint64 = math.MaxUint64

// Name returns the task name set at spawn time, or "".
func (r TaskRef) Name() string {
	return critical.WithValue(func(critical.Section) string {
		return r.h.name
	})
}

// SetName sets the task name.
func (r TaskRef) SetName(name string) {
	critical.With(func(critical.Section) {
		r.h.name = name
	})
}

// ExpiresAt returns the deadline, in timer queue ticks, at which the timer
// queue wakes the task. NoDeadline means none.
func (r TaskRef) ExpiresAt() uint64 {
	return critical.WithValue(func(critical.Section) uint64 {
		return r.h.expiresAt
	})
}

// SetExpiresAt sets the wake deadline of the task. Futures lower it while
// running; the executor resets it to NoDeadline before each resume and
// hands it to the timer queue driver after.
func (r TaskRef) SetExpiresAt(at uint64) {
	critical.With(func(critical.Section) {
		r.h.expiresAt = at
	})
}

// LowerExpiresAt sets the deadline to at if at is earlier than the current
// one, and reports whether it did.
func (r TaskRef) LowerExpiresAt(at uint64) bool {
	return critical.WithValue(func(critical.Section) bool {
		if at < r.h.expiresAt {
			r.h.expiresAt = at
			return true
		}
		return false
	})
}
