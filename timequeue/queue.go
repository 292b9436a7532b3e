// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package timequeue

import (
	"code.hybscloud.com/coex"
	"code.hybscloud.com/coex/blocking"
	"github.com/joeycumines/logiface"
)

// record is the per-task state kept in the task's timer queue item.
type record struct {
	at     uint64
	queued bool
}

var records = coex.NewTimerQueueView[record]()

type list struct {
	head coex.TaskRef
	len  int
}

// Queue is a timer queue driver: a list of tasks sorted by deadline,
// earliest first, threaded through the tasks' own timer queue items. It
// never allocates per task.
//
// A Queue serves the one executor it is attached to.
type Queue struct {
	clock  Clock
	alarm  Alarm
	logger *logiface.Logger[logiface.Event]

	pender blocking.CriticalSectionMutex[coex.Pender]
	list   blocking.CriticalSectionMutex[list]
}

var _ coex.TimerQueueDriver = (*Queue)(nil)

// New creates a queue on clock.
func New(clock Clock) *Queue {
	q := &Queue{clock: clock}
	q.alarm = clock.NewAlarm(q.onAlarm)
	return q
}

// WithLogger sets the logger and returns q.
func (q *Queue) WithLogger(l *logiface.Logger[logiface.Event]) *Queue {
	q.logger = l
	return q
}

// Clock returns the queue's clock.
func (q *Queue) Clock() Clock {
	return q.clock
}

// Len returns the number of tasks waiting for a deadline.
func (q *Queue) Len() int {
	return blocking.With(&q.list, func(l *list) int { return l.len })
}

// NextExpiration returns the earliest deadline, or coex.NoDeadline.
func (q *Queue) NextExpiration() uint64 {
	return blocking.With(&q.list, func(l *list) uint64 { return l.next() })
}

// Attach binds q to an executor. Panics when q is already attached.
func (q *Queue) Attach(p coex.Pender) {
	q.pender.Lock(func(cur *coex.Pender) {
		if *cur != nil {
			panic("timequeue: queue already attached to an executor")
		}
		*cur = p
	})
}

// DequeueExpired unlinks every task whose deadline is not after the
// current tick and wakes it.
func (q *Queue) DequeueExpired(wake func(coex.TaskRef)) {
	now := q.clock.Now()
	q.list.Lock(func(l *list) {
		for !l.head.IsZero() {
			t := l.head
			rec := records.Get(t.TimerQueueItem())
			if rec.at > now {
				return
			}
			l.unlinkHead()
			wake(t)
		}
	})
}

// Update moves t to the position of its current deadline, or removes it
// when it has none.
func (q *Queue) Update(t coex.TaskRef) {
	at := t.ExpiresAt()
	q.list.Lock(func(l *list) {
		rec := records.Get(t.TimerQueueItem())
		if rec.queued {
			if rec.at == at {
				return
			}
			l.remove(t)
		}
		if at != coex.NoDeadline {
			l.insert(t, at)
		}
	})
}

// Arm sets the alarm for the earliest deadline. It reports false when that
// deadline already passed.
func (q *Queue) Arm() bool {
	next := q.NextExpiration()
	if next == coex.NoDeadline {
		q.alarm.Cancel()
		return true
	}
	return q.alarm.Set(next)
}

func (q *Queue) onAlarm() {
	p := blocking.With(&q.pender, func(p *coex.Pender) coex.Pender { return *p })
	if b := q.logger.Trace(); b.Enabled() {
		b.Uint64("now", q.clock.Now()).Log("timer alarm")
	}
	if p != nil {
		p.Pend()
	}
}

func (l *list) next() uint64 {
	if l.head.IsZero() {
		return coex.NoDeadline
	}
	return records.Get(l.head.TimerQueueItem()).at
}

// insert links t after every task with a deadline not after at.
func (l *list) insert(t coex.TaskRef, at uint64) {
	item := t.TimerQueueItem()
	rec := records.Get(item)
	rec.at, rec.queued = at, true
	l.len++

	if l.head.IsZero() || records.Get(l.head.TimerQueueItem()).at > at {
		item.SetNext(l.head)
		l.head = t
		return
	}
	prev := l.head.TimerQueueItem()
	for {
		next := prev.Next()
		if next.IsZero() || records.Get(next.TimerQueueItem()).at > at {
			item.SetNext(next)
			prev.SetNext(t)
			return
		}
		prev = next.TimerQueueItem()
	}
}

func (l *list) unlinkHead() {
	item := l.head.TimerQueueItem()
	l.head = item.Next()
	item.SetNext(coex.TaskRef{})
	*records.Get(item) = record{}
	l.len--
}

func (l *list) remove(t coex.TaskRef) {
	if l.head == t {
		l.unlinkHead()
		return
	}
	for prev := l.head; !prev.IsZero(); prev = prev.TimerQueueItem().Next() {
		pi := prev.TimerQueueItem()
		if pi.Next() != t {
			continue
		}
		item := t.TimerQueueItem()
		pi.SetNext(item.Next())
		item.SetNext(coex.TaskRef{})
		*records.Get(item) = record{}
		l.len--
		return
	}
}

// ScheduleWake asks the timer queue of the task behind w to wake it no
// later than tick at. It must be called from the task's own Poll, with the
// waker of its Context; the executor hands the deadline to the queue after
// the resume.
func ScheduleWake(at uint64, w coex.Waker) {
	coex.TaskFromWaker(w).LowerExpiresAt(at)
}
