// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sim

import (
	"fmt"

	"code.hybscloud.com/coex"
	"code.hybscloud.com/coex/channel"
	"code.hybscloud.com/coex/ringbuf"
	"code.hybscloud.com/coex/signal"
	"code.hybscloud.com/coex/timequeue"
)

// rxConsumer drains the UART ring buffer, checks the byte pattern and
// reports progress to the reporter as EventRx events. It completes once
// every byte was received and reported, or at the first bad byte.
type rxConsumer struct {
	reader *ringbuf.Reader
	ready  *signal.Wait[struct{}]
	events *channel.Channel[Event]
	clock  timequeue.Clock
	total  uint64

	received uint64
	reported uint64
	sending  *channel.Send[Event]
	err      error
}

func (c *rxConsumer) Poll(cx *coex.Context) coex.Status {
	for {
		if c.sending != nil {
			if c.sending.Poll(cx) == coex.Pending {
				return coex.Pending
			}
			c.sending = nil
		}
		if c.received == c.total && c.reported == c.received {
			return coex.Ready
		}
		n := c.reader.Pop(c.check)
		c.received += uint64(n)
		if c.err != nil {
			return coex.Ready
		}
		if n > 0 {
			continue
		}
		if c.received > c.reported {
			c.sending = c.events.Send(Event{Kind: EventRx, N: c.received - c.reported, At: c.clock.Now()})
			c.reported = c.received
			continue
		}
		if c.ready.Poll(cx) == coex.Pending {
			return coex.Pending
		}
	}
}

// check accepts the leading bytes of buf that follow the pattern.
func (c *rxConsumer) check(buf []byte) int {
	for i, b := range buf {
		if off := c.received + uint64(i); b != pattern(off) {
			c.err = fmt.Errorf("%w: offset %d", ErrCorrupted, off)
			return i
		}
	}
	return len(buf)
}
