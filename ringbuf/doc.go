// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package ringbuf provides a lock-free single-producer single-consumer byte
// ring buffer over caller-supplied storage.
//
// The typical user is a driver whose interrupt handler produces bytes that a
// task consumes (or the reverse):
//
//	var rx ringbuf.RingBuffer
//	rx.Init(storage[:])
//	w := rx.Writer() // owned by the interrupt handler
//	r := rx.Reader() // owned by the task
//
//	// interrupt handler
//	w.Push(func(buf []byte) int { return copy(buf, fifo) })
//
//	// task
//	r.Pop(func(buf []byte) int { return consume(buf) })
//
// # Memory Ordering
//
// The Writer reads its own cursor relaxed and the Reader's cursor with
// acquire, and publishes with a release store; the Reader is the mirror
// image. IsEmpty and IsFull are relaxed snapshots meant for polling hints.
//
// # Capacity
//
// One byte of the storage is always kept free so that equal cursors mean
// empty. A buffer initialized with n bytes holds at most n-1.
//
// # Uniqueness
//
// The ring buffer does not enforce that only one Reader and one Writer
// exist. Obtaining a second handle of either kind while the first is in use
// corrupts the stream.
package ringbuf
