// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

//go:build coex_tq_16 && !coex_tq_64

package coex

// timerQueueWords selects the 16-byte timer queue item.
const timerQueueWords = 2
