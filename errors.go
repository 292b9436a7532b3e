// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package coex

import (
	"errors"
	"fmt"

	"code.hybscloud.com/iox"
)

// ErrBusy indicates that a task slot could not be claimed because it still
// runs a previous computation (or, for a TaskPool, that every slot does).
//
// ErrBusy wraps [iox.ErrWouldBlock]: it is a resource-exhaustion signal,
// not a failure, and IsWouldBlock reports true for it. Retry the spawn
// after the slot's computation completed.
//
// Example:
//
//	if err := spawner.Spawn(pool.Spawn(job)); coex.IsBusy(err) {
//	    // every slot is running; drop or defer the job
//	}
var ErrBusy = fmt.Errorf("coex: task slot busy: %w", iox.ErrWouldBlock)

// IsBusy reports whether err is or wraps ErrBusy.
func IsBusy(err error) bool {
	return errors.Is(err, ErrBusy)
}

// IsWouldBlock reports whether err indicates the operation would block.
// Delegates to [iox.IsWouldBlock] for wrapped error support.
func IsWouldBlock(err error) bool {
	return iox.IsWouldBlock(err)
}

// IsSemantic reports whether err is a control flow signal (not a failure).
// Delegates to [iox.IsSemantic].
func IsSemantic(err error) bool {
	return iox.IsSemantic(err)
}

// IsNonFailure reports whether err represents a non-failure condition.
// Delegates to [iox.IsNonFailure].
func IsNonFailure(err error) bool {
	return iox.IsNonFailure(err)
}
