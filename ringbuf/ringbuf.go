// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package ringbuf

import (
	"errors"

	"code.hybscloud.com/atomix"
)

// ErrNotInitialized is returned by TryReader and TryWriter when the ring
// buffer has no backing storage.
var ErrNotInitialized = errors.New("ringbuf: not initialized")

// RingBuffer is a reusable lock-free byte ring buffer shared by exactly one
// Writer and one Reader, which may run at different execution priorities
// (for example an interrupt handler and a task).
//
// Cursors wrap modulo the backing length and one byte is always kept free,
// so start == end means empty and at most length-1 bytes are buffered.
//
// The zero value is an uninitialized ring buffer; give it storage with Init.
type RingBuffer struct {
	_      pad
	start  atomix.Uint64 // Reader advances
	_      pad
	end    atomix.Uint64 // Writer advances
	_      pad
	length atomix.Uint64
	buf    []byte
}

// Init gives the ring buffer its backing storage and empties it.
//
// Init must not be called while a Reader or Writer is in use.
func (rb *RingBuffer) Init(buf []byte) {
	rb.buf = buf
	rb.length.StoreRelaxed(uint64(len(buf)))
	rb.start.StoreRelaxed(0)
	rb.end.StoreRelaxed(0)
}

// Deinit detaches the backing storage, returning the ring buffer to the
// uninitialized state.
//
// Deinit must not be called while a Reader or Writer is in use.
func (rb *RingBuffer) Deinit() {
	rb.buf = nil
	rb.length.StoreRelaxed(0)
	rb.start.StoreRelaxed(0)
	rb.end.StoreRelaxed(0)
}

// Reader returns the consumer handle.
//
// The caller guarantees that no other Reader of this ring buffer is in use
// and that the ring buffer is initialized.
func (rb *RingBuffer) Reader() *Reader {
	return &Reader{rb: rb}
}

// TryReader is like Reader but fails with ErrNotInitialized when the ring
// buffer has no storage.
func (rb *RingBuffer) TryReader() (*Reader, error) {
	if !rb.IsAvailable() {
		return nil, ErrNotInitialized
	}
	return rb.Reader(), nil
}

// Writer returns the producer handle.
//
// The caller guarantees that no other Writer of this ring buffer is in use
// and that the ring buffer is initialized.
func (rb *RingBuffer) Writer() *Writer {
	return &Writer{rb: rb}
}

// TryWriter is like Writer but fails with ErrNotInitialized when the ring
// buffer has no storage.
func (rb *RingBuffer) TryWriter() (*Writer, error) {
	if !rb.IsAvailable() {
		return nil, ErrNotInitialized
	}
	return rb.Writer(), nil
}

// IsAvailable reports whether the ring buffer has backing storage.
func (rb *RingBuffer) IsAvailable() bool {
	return rb.length.LoadRelaxed() != 0
}

// Len returns the length of the backing storage. Capacity is Len()-1.
func (rb *RingBuffer) Len() int {
	return int(rb.length.LoadRelaxed())
}

// IsEmpty reports whether no bytes are buffered.
// The result is a snapshot and may be stale by the time it is used.
func (rb *RingBuffer) IsEmpty() bool {
	return rb.start.LoadRelaxed() == rb.end.LoadRelaxed()
}

// IsFull reports whether exactly Len()-1 bytes are buffered.
// The result is a snapshot and may be stale by the time it is used.
// An uninitialized ring buffer is reported full.
func (rb *RingBuffer) IsFull() bool {
	n := rb.length.LoadRelaxed()
	if n == 0 {
		return true
	}
	start := rb.start.LoadRelaxed()
	end := rb.end.LoadRelaxed()
	return rb.wrap(end+1, n) == start
}

func (rb *RingBuffer) wrap(i, n uint64) uint64 {
	if i >= n {
		i -= n
	}
	return i
}

// Writer is the producer handle of a RingBuffer.
type Writer struct {
	rb      *RingBuffer
	granted uint64 // bytes exposed by the last PushBuf/PushBufs
}

// PushBuf returns the largest contiguous free region starting at the write
// cursor. The region may be shorter than the total free space when free
// space wraps around the end of the storage.
//
// Write into the region, then commit with PushDone.
func (w *Writer) PushBuf() []byte {
	first, _ := w.regions()
	w.granted = uint64(len(first))
	return first
}

// PushBufs returns up to two free regions: the one at the write cursor and,
// when free space wraps, the one at the start of the storage. Bytes written
// to the second region count only after the first region is filled.
func (w *Writer) PushBufs() ([]byte, []byte) {
	first, second := w.regions()
	w.granted = uint64(len(first) + len(second))
	return first, second
}

func (w *Writer) regions() ([]byte, []byte) {
	rb := w.rb
	n := rb.length.LoadRelaxed()
	if n == 0 {
		return nil, nil
	}
	end := rb.end.LoadRelaxed()
	start := rb.start.LoadAcquire()

	switch {
	case start > end:
		return rb.buf[end : start-1 : start-1], nil
	case start == 0:
		return rb.buf[end : n-1 : n-1], nil
	default:
		return rb.buf[end:n:n], rb.buf[0 : start-1 : start-1]
	}
}

// PushDone commits n bytes written into the last region(s) returned by
// PushBuf or PushBufs, making them visible to the Reader.
func (w *Writer) PushDone(n int) {
	if n < 0 || uint64(n) > w.granted {
		panic("ringbuf: push exceeds the granted region")
	}
	w.granted = 0
	if n == 0 {
		return
	}
	rb := w.rb
	length := rb.length.LoadRelaxed()
	end := rb.end.LoadRelaxed()
	rb.end.StoreRelease(rb.wrap(end+uint64(n), length))
}

// Push calls f with the free region at the write cursor. f writes some
// bytes into it and returns how many; those bytes are committed.
func (w *Writer) Push(f func(buf []byte) int) int {
	n := f(w.PushBuf())
	w.PushDone(n)
	return n
}

// PushOne pushes a single byte. It reports false when the buffer is full.
func (w *Writer) PushOne(b byte) bool {
	n := w.Push(func(buf []byte) int {
		if len(buf) == 0 {
			return 0
		}
		buf[0] = b
		return 1
	})
	return n != 0
}

// Reader is the consumer handle of a RingBuffer.
type Reader struct {
	rb      *RingBuffer
	granted uint64
}

// PopBuf returns the largest contiguous buffered region starting at the
// read cursor. Consume from it, then release with PopDone.
func (r *Reader) PopBuf() []byte {
	rb := r.rb
	n := rb.length.LoadRelaxed()
	if n == 0 {
		r.granted = 0
		return nil
	}
	start := rb.start.LoadRelaxed()
	end := rb.end.LoadAcquire()

	var region []byte
	if end >= start {
		region = rb.buf[start:end:end]
	} else {
		region = rb.buf[start:n:n]
	}
	r.granted = uint64(len(region))
	return region
}

// PopDone releases n bytes of the region returned by PopBuf back to the
// Writer.
func (r *Reader) PopDone(n int) {
	if n < 0 || uint64(n) > r.granted {
		panic("ringbuf: pop exceeds the granted region")
	}
	r.granted = 0
	if n == 0 {
		return
	}
	rb := r.rb
	length := rb.length.LoadRelaxed()
	start := rb.start.LoadRelaxed()
	rb.start.StoreRelease(rb.wrap(start+uint64(n), length))
}

// Pop calls f with the buffered region at the read cursor. f consumes some
// bytes and returns how many; those bytes are released.
func (r *Reader) Pop(f func(buf []byte) int) int {
	n := f(r.PopBuf())
	r.PopDone(n)
	return n
}

// PopOne pops a single byte. It reports false when the buffer is empty.
func (r *Reader) PopOne() (byte, bool) {
	var b byte
	n := r.Pop(func(buf []byte) int {
		if len(buf) == 0 {
			return 0
		}
		b = buf[0]
		return 1
	})
	return b, n != 0
}

// pad fills a cache line between cursors owned by different sides.
type pad [64]byte
