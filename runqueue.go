// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coex

import (
	"sync/atomic"

	"code.hybscloud.com/atomix"
)

// runQueueItem is the intrusive run queue node embedded in every task
// header. It is owned by the run queue while the task is queued.
type runQueueItem struct {
	next atomic.Pointer[runQueueItem]
	task *TaskHeader
}

// runQueue is an intrusive multi-producer single-consumer queue of tasks
// (Vyukov's node-based MPSC with a stub node).
//
// Producers swap the tail and then link the previous tail to the new node,
// so a producer preempted between the two steps leaves the chain briefly
// broken. The consumer stops at such a gap; the producer pends the
// executor after linking, which schedules another pass.
//
// Memory: no allocation. Each task carries its own node.
type runQueue struct {
	_    pad
	tail atomic.Pointer[runQueueItem]
	_    pad
	head *runQueueItem // consumer only
	stub runQueueItem

	_      pad
	pushed atomix.Uint64 // counted after linking
	_      pad
	popped atomix.Uint64 // written by the consumer only
}

func (q *runQueue) init() {
	q.head = &q.stub
	q.tail.Store(&q.stub)
}

// enqueue pushes item. It reports whether the queue was empty before, as a
// hint: a concurrent consumer may have popped in between.
//
// The caller must own the item, that is, hold the queued bit of its task.
func (q *runQueue) enqueue(item *runQueueItem) (wasEmpty bool) {
	q.link(item)
	n := q.pushed.AddAcqRel(1)
	return n-1 <= q.popped.LoadAcquire()
}

func (q *runQueue) link(item *runQueueItem) {
	item.next.Store(nil)
	prev := q.tail.Swap(item)
	prev.next.Store(item)
}

// dequeue pops one task. It returns nil when the queue is empty or a
// producer is in the middle of linking.
func (q *runQueue) dequeue() *TaskHeader {
	head := q.head
	next := head.next.Load()
	if head == &q.stub {
		if next == nil {
			return nil
		}
		q.head = next
		head = next
		next = next.next.Load()
	}
	if next != nil {
		q.head = next
		q.popped.StoreRelease(q.popped.LoadRelaxed() + 1)
		return head.task
	}
	if q.tail.Load() != head {
		return nil
	}
	q.link(&q.stub)
	next = head.next.Load()
	if next == nil {
		return nil
	}
	q.head = next
	q.popped.StoreRelease(q.popped.LoadRelaxed() + 1)
	return head.task
}

// dequeueAll calls f for the tasks that were in the queue when the call
// started. Tasks enqueued while f runs, including by f itself, are left for
// the next call. It returns the number of tasks handed to f.
func (q *runQueue) dequeueAll(f func(*TaskHeader)) int {
	pushed, popped := q.pushed.LoadAcquire(), q.popped.LoadRelaxed()
	if pushed <= popped {
		return 0
	}
	n := 0
	for budget := pushed - popped; budget > 0; budget-- {
		t := q.dequeue()
		if t == nil {
			break
		}
		n++
		f(t)
	}
	return n
}

// isEmpty is a snapshot; producers may be mid-push.
func (q *runQueue) isEmpty() bool {
	return q.pushed.LoadAcquire() <= q.popped.LoadAcquire()
}
