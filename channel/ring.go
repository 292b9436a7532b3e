// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package channel

import (
	"code.hybscloud.com/atomix"
	"code.hybscloud.com/iox"
	"code.hybscloud.com/spin"
)

// ring is a CAS-based multi-producer single-consumer bounded buffer.
//
// Producers claim a position by CAS on tail once the slot's sequence shows
// it free for that round; the single consumer reads positions in order.
// Slots hold values directly and are not padded: a channel carries small
// messages and trades false sharing for density. pop reports a claimed but
// unpublished slot as empty instead of waiting, since the receiving task
// is woken again by that send.
//
// Memory: n slots for capacity n
type ring[T any] struct {
	_        pad
	head     atomix.Uint64 // consumer position
	_        pad
	tail     atomix.Uint64 // producers CAS here
	_        pad
	buffer   []ringSlot[T]
	mask     uint64
	capacity uint64
}

type ringSlot[T any] struct {
	seq  atomix.Uint64
	data T
}

func (r *ring[T]) init(capacity int) {
	n := uint64(roundToPow2(capacity))
	r.buffer = make([]ringSlot[T], n)
	r.mask = n - 1
	r.capacity = n
	for i := uint64(0); i < n; i++ {
		r.buffer[i].seq.StoreRelaxed(i)
	}
}

// push adds v (multiple producers safe).
// Returns iox.ErrWouldBlock if the buffer is full.
func (r *ring[T]) push(v T) error {
	sw := spin.Wait{}
	for {
		tail := r.tail.LoadAcquire()
		head := r.head.LoadAcquire()
		if tail >= head+r.capacity {
			return iox.ErrWouldBlock
		}

		slot := &r.buffer[tail&r.mask]
		seq := slot.seq.LoadAcquire()
		if seq == tail {
			if r.tail.CompareAndSwapAcqRel(tail, tail+1) {
				slot.data = v
				slot.seq.StoreRelease(tail + 1)
				return nil
			}
		} else if seq < tail {
			return iox.ErrWouldBlock
		}
		sw.Once()
	}
}

// pop removes the oldest value (single consumer only).
// Returns iox.ErrWouldBlock if the buffer is empty or the oldest claimed
// slot is still being written.
func (r *ring[T]) pop() (T, error) {
	var zero T
	head := r.head.LoadRelaxed()
	slot := &r.buffer[head&r.mask]
	if slot.seq.LoadAcquire() != head+1 {
		return zero, iox.ErrWouldBlock
	}

	v := slot.data
	slot.data = zero
	slot.seq.StoreRelease(head + r.capacity)
	r.head.StoreRelease(head + 1)
	return v, nil
}

// len is a snapshot of the number of claimed positions.
func (r *ring[T]) len() int {
	head := r.head.LoadAcquire()
	tail := r.tail.LoadAcquire()
	if tail <= head {
		return 0
	}
	return int(tail - head)
}

// roundToPow2 rounds n up to the next power of 2.
func roundToPow2(n int) int {
	if n < 2 {
		return 2
	}
	n--
	n |= n >> 1
	n |= n >> 2
	n |= n >> 4
	n |= n >> 8
	n |= n >> 16
	n |= n >> 32
	return n + 1
}

// pad is cache line padding to prevent false sharing.
type pad [64]byte
