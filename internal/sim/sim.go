// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

// Package sim runs a small firmware-shaped scenario on the coex runtime:
// a UART receive interrupt feeding a ring buffer, a consumer task on an
// interrupt executor, a periodic task on the thread executor's timer
// queue, and a reporter task collecting events from both over a channel.
package sim

import (
	"context"
	"errors"
	"fmt"
	"time"

	"code.hybscloud.com/atomix"
	"code.hybscloud.com/coex"
	"code.hybscloud.com/coex/arch"
	"code.hybscloud.com/coex/blocking"
	"code.hybscloud.com/coex/channel"
	"code.hybscloud.com/coex/critical"
	"code.hybscloud.com/coex/ringbuf"
	"code.hybscloud.com/coex/signal"
	"code.hybscloud.com/coex/timequeue"
	"code.hybscloud.com/iox"
	"github.com/joeycumines/logiface"
	"golang.org/x/sync/errgroup"
)

// EventKind tells what produced an event.
type EventKind uint8

const (
	EventRx EventKind = iota + 1
	EventTick
)

func (k EventKind) String() string {
	switch k {
	case EventRx:
		return "rx"
	case EventTick:
		return "tick"
	default:
		return fmt.Sprintf("EventKind(%d)", uint8(k))
	}
}

// Event is sent to the reporter task.
type Event struct {
	Kind EventKind
	N    uint64 // bytes for EventRx, tick number for EventTick
	At   uint64 // clock ticks
}

// Report summarizes a finished run.
type Report struct {
	Bytes       uint64
	Ticks       int
	Events      int
	UARTFired   uint64
	Elapsed     time.Duration
	RxStats     coex.Stats
	ThreadStats coex.Stats
}

// ErrCorrupted is returned when the consumer reads bytes out of sequence.
var ErrCorrupted = errors.New("sim: received byte out of sequence")

// pattern is the byte sent at offset i.
func pattern(i uint64) byte {
	return byte(i % 251)
}

// counters is shared by tasks on both executors.
type counters struct {
	ticks  int
	events int
	err    error
}

// Run executes the scenario described by cfg. The calling goroutine acts
// as the thread-mode core and must not be in interrupt context.
func Run(ctx context.Context, cfg Config, logger *logiface.Logger[logiface.Event]) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	tick, _ := cfg.TickDuration()
	timeout, _ := cfg.TimeoutDuration()
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	total := uint64(cfg.UART.Bytes)
	clock := timequeue.NewWallClock(tick)
	events := channel.New[Event](cfg.Channel.Capacity)
	var shared blocking.CriticalSectionMutex[counters]

	// UART receive interrupt: copies the next chunk into the ring buffer.
	var rb ringbuf.RingBuffer
	rb.Init(make([]byte, cfg.UART.Buffer))
	var rxReady signal.Signal[struct{}]
	var produced atomix.Uint64
	uart := arch.NewInterrupt(critical.Priority(cfg.UART.Priority))
	writer := rb.Writer()
	uart.Start(func() {
		off := produced.LoadRelaxed()
		n := writer.Push(func(buf []byte) int {
			n := min(len(buf), cfg.UART.Chunk)
			if left := total - off; uint64(n) > left {
				n = int(left)
			}
			for i := range n {
				buf[i] = pattern(off + uint64(i))
			}
			return n
		})
		if n > 0 {
			produced.StoreRelease(off + uint64(n))
			rxReady.Signal(struct{}{})
		}
	})
	defer uart.Stop()

	// Thread-mode executor with the timer queue.
	tq := timequeue.New(clock).WithLogger(logger)
	te := arch.NewThreadExecutor(coex.New().Name("thread").Logger(logger).TimerQueue(tq))

	// Consumer on its own interrupt executor.
	rx := arch.NewInterruptExecutor(
		arch.NewInterrupt(critical.Priority(cfg.UART.ExecPrio)),
		coex.New().Name("uart-rx").Logger(logger),
	)
	failed := func() error {
		return blocking.With(&shared, func(c *counters) error { return c.err })
	}
	consumer := &rxConsumer{
		reader: rb.Reader(),
		ready:  rxReady.Wait(),
		events: events,
		clock:  clock,
		total:  total,
	}
	var consumerSlot coex.TaskStorage[coex.FutureFunc]
	rx.Start().MustSpawn(consumerSlot.Spawn(func(cx *coex.Context) coex.Status {
		if consumer.Poll(cx) == coex.Pending {
			return coex.Pending
		}
		if consumer.err != nil {
			shared.Lock(func(c *counters) { c.err = consumer.err })
			// The reporter never sees the remaining bytes.
			te.Executor().Pend()
		}
		return coex.Ready
	}).Name("consumer"))
	defer rx.Stop()

	var ticker coex.TaskStorage[coex.FutureFunc]
	if cfg.Ticker.Count > 0 {
		tk := timequeue.NewTicker(clock, cfg.Ticker.Period)
		var n int
		var tickSend *channel.Send[Event]
		te.Spawner().MustSpawn(ticker.Spawn(func(cx *coex.Context) coex.Status {
			for {
				if tickSend != nil {
					if tickSend.Poll(cx) == coex.Pending {
						return coex.Pending
					}
					tickSend = nil
					if n == cfg.Ticker.Count {
						return coex.Ready
					}
				}
				if tk.Poll(cx) == coex.Pending {
					return coex.Pending
				}
				n++
				shared.Lock(func(c *counters) { c.ticks++ })
				tickSend = events.Send(Event{Kind: EventTick, N: uint64(n), At: clock.Now()})
			}
		}).Name("ticker"))
	}

	var rxBytes uint64
	var rxTicks int
	var reporter coex.TaskStorage[coex.FutureFunc]
	recv := events.Receive()
	te.Spawner().MustSpawn(reporter.Spawn(func(cx *coex.Context) coex.Status {
		for {
			if rxBytes == total && rxTicks == cfg.Ticker.Count {
				return coex.Ready
			}
			if recv.Poll(cx) == coex.Pending {
				return coex.Pending
			}
			ev := recv.Value()
			shared.Lock(func(c *counters) { c.events++ })
			switch ev.Kind {
			case EventRx:
				rxBytes += ev.N
			case EventTick:
				rxTicks++
			}
			logger.Debug().
				Str("kind", ev.Kind.String()).
				Uint64("n", ev.N).
				Uint64("at", ev.At).
				Log("event")
		}
	}).Name("reporter"))

	// The feeder plays the UART line: it keeps raising the interrupt until
	// every byte went into the ring buffer.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		backoff := iox.Backoff{}
		last := uint64(0)
		for {
			cur := produced.LoadAcquire()
			if cur == total {
				return nil
			}
			if err := gctx.Err(); err != nil {
				return err
			}
			if cur != last {
				last = cur
				backoff.Reset()
			}
			uart.Pend()
			backoff.Wait()
		}
	})

	start := time.Now()
	runErr := te.RunUntil(ctx, func() bool {
		return !reporter.IsRunning() || failed() != nil
	})
	elapsed := time.Since(start)
	cancel()
	feedErr := g.Wait()
	rx.Stop()

	report := Report{
		Bytes:       rxBytes,
		UARTFired:   uart.Fired(),
		Elapsed:     elapsed,
		RxStats:     rx.Executor().Stats(),
		ThreadStats: te.Executor().Stats(),
	}
	shared.Lock(func(c *counters) {
		report.Ticks = c.ticks
		report.Events = c.events
	})

	if err := failed(); err != nil {
		return report, err
	}
	if runErr != nil {
		return report, fmt.Errorf("sim: run did not finish: %w", runErr)
	}
	if feedErr != nil && !errors.Is(feedErr, context.Canceled) {
		return report, feedErr
	}

	logger.Info().
		Uint64("bytes", report.Bytes).
		Int64("ticks", int64(report.Ticks)).
		Int64("events", int64(report.Events)).
		Uint64("uart_fired", report.UARTFired).
		Dur("elapsed", report.Elapsed).
		Log("simulation finished")
	return report, nil
}
