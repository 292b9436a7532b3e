// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package sim

import (
	"errors"
	"fmt"
	"time"

	"github.com/BurntSushi/toml"
)

// Config describes a simulation scenario.
type Config struct {
	// Tick is the wall clock tick duration, e.g. "1ms".
	Tick string `toml:"tick"`

	// Timeout bounds the whole run, e.g. "10s".
	Timeout string `toml:"timeout"`

	UART    UARTConfig    `toml:"uart"`
	Ticker  TickerConfig  `toml:"ticker"`
	Channel ChannelConfig `toml:"channel"`
}

// UARTConfig configures the simulated receive path: an interrupt handler
// filling a ring buffer drained by a task on an interrupt executor.
type UARTConfig struct {
	Bytes    int `toml:"bytes"`     // total bytes to transfer
	Buffer   int `toml:"buffer"`    // ring buffer storage size
	Chunk    int `toml:"chunk"`     // max bytes written per interrupt
	Priority int `toml:"priority"`  // UART line priority
	ExecPrio int `toml:"exec_prio"` // consumer executor line priority
}

// TickerConfig configures the periodic thread-mode task.
type TickerConfig struct {
	Period uint64 `toml:"period"` // ticks between events
	Count  int    `toml:"count"`  // events before the task completes
}

// ChannelConfig configures the event channel to the reporter task.
type ChannelConfig struct {
	Capacity int `toml:"capacity"`
}

// DefaultConfig returns the scenario used when no file is given.
func DefaultConfig() Config {
	return Config{
		Tick:    "1ms",
		Timeout: "10s",
		UART: UARTConfig{
			Bytes:    64 << 10,
			Buffer:   256,
			Chunk:    32,
			Priority: 200,
			ExecPrio: 100,
		},
		Ticker:  TickerConfig{Period: 5, Count: 10},
		Channel: ChannelConfig{Capacity: 16},
	}
}

// LoadConfig reads a TOML scenario from path. Keys absent from the file
// keep their default values.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return Config{}, fmt.Errorf("%s: failed to parse TOML: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ErrInvalidConfig is wrapped by every validation error.
var ErrInvalidConfig = errors.New("invalid scenario")

// Validate checks the scenario for values the simulation cannot run with.
func (c *Config) Validate() error {
	if _, err := c.TickDuration(); err != nil {
		return err
	}
	if _, err := c.TimeoutDuration(); err != nil {
		return err
	}
	switch {
	case c.UART.Bytes < 1:
		return fmt.Errorf("%w: [uart].bytes must be positive", ErrInvalidConfig)
	case c.UART.Buffer < 2:
		return fmt.Errorf("%w: [uart].buffer must be >= 2", ErrInvalidConfig)
	case c.UART.Chunk < 1:
		return fmt.Errorf("%w: [uart].chunk must be positive", ErrInvalidConfig)
	case c.UART.Priority < 1 || c.UART.Priority > 255:
		return fmt.Errorf("%w: [uart].priority must be in 1..255", ErrInvalidConfig)
	case c.UART.ExecPrio < 1 || c.UART.ExecPrio > 255:
		return fmt.Errorf("%w: [uart].exec_prio must be in 1..255", ErrInvalidConfig)
	case c.Ticker.Period < 1:
		return fmt.Errorf("%w: [ticker].period must be positive", ErrInvalidConfig)
	case c.Ticker.Count < 0:
		return fmt.Errorf("%w: [ticker].count must not be negative", ErrInvalidConfig)
	case c.Channel.Capacity < 1:
		return fmt.Errorf("%w: [channel].capacity must be positive", ErrInvalidConfig)
	}
	return nil
}

// TickDuration parses Tick.
func (c *Config) TickDuration() (time.Duration, error) {
	return parsePositive("tick", c.Tick)
}

// TimeoutDuration parses Timeout.
func (c *Config) TimeoutDuration() (time.Duration, error) {
	return parsePositive("timeout", c.Timeout)
}

func parsePositive(key, s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", ErrInvalidConfig, key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%w: %s must be positive", ErrInvalidConfig, key)
	}
	return d, nil
}
