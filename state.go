// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coex

import "code.hybscloud.com/atomix"

const (
	// stateSpawned is set while the slot holds a live computation. It is
	// set by a successful claim and cleared only by the executor after the
	// final resume returned Ready.
	stateSpawned uint64 = 1 << iota
	// stateRunQueued is set while the task sits in a run queue.
	stateRunQueued
)

// state is the lifecycle word of a task slot.
type state struct {
	word atomix.Uint64
}

// spawn claims a free slot, marking it spawned and queued in one step so
// that no wake can enqueue it before the spawner does.
func (s *state) spawn() bool {
	return s.word.CompareAndSwapAcqRel(0, stateSpawned|stateRunQueued)
}

// despawn marks the slot free for reuse.
func (s *state) despawn() {
	for {
		old := s.word.LoadAcquire()
		if s.word.CompareAndSwapAcqRel(old, old&^stateSpawned) {
			return
		}
	}
}

// runEnqueue claims the queued bit. It reports true when the caller must
// push the task onto its run queue: the task is spawned and was not queued.
func (s *state) runEnqueue() bool {
	for {
		old := s.word.LoadAcquire()
		if old&stateRunQueued != 0 || old&stateSpawned == 0 {
			return false
		}
		if s.word.CompareAndSwapAcqRel(old, old|stateRunQueued) {
			return true
		}
	}
}

// runDequeue clears the queued bit after the task left the run queue and
// reports whether the task is still spawned and must be resumed.
func (s *state) runDequeue() bool {
	for {
		old := s.word.LoadAcquire()
		if s.word.CompareAndSwapAcqRel(old, old&^stateRunQueued) {
			return old&stateSpawned != 0
		}
	}
}

func (s *state) spawned() bool {
	return s.word.LoadAcquire()&stateSpawned != 0
}

func (s *state) queued() bool {
	return s.word.LoadAcquire()&stateRunQueued != 0
}
