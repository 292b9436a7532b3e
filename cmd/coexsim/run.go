// ©Hayabusa Cloud Co., Ltd. 2026. All rights reserved.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.

package main

import (
	"fmt"
	"io"
	"strings"

	"code.hybscloud.com/coex/internal/sim"
	"github.com/joeycumines/logiface"
	"github.com/joeycumines/stumpy"
	"github.com/spf13/cobra"
)

var runCmd = &cobra.Command{
	Use:   "run [scenario.toml]",
	Short: "Run a scenario and print a summary",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runScenario,
}

func init() {
	runCmd.Flags().Int("bytes", 0, "override [uart].bytes")
	runCmd.Flags().Int("ticks", -1, "override [ticker].count")
}

func runScenario(cmd *cobra.Command, args []string) error {
	cfg := sim.DefaultConfig()
	if len(args) == 1 {
		var err error
		if cfg, err = sim.LoadConfig(args[0]); err != nil {
			return err
		}
	}
	if n, _ := cmd.Flags().GetInt("bytes"); n > 0 {
		cfg.UART.Bytes = n
	}
	if n, _ := cmd.Flags().GetInt("ticks"); n >= 0 {
		cfg.Ticker.Count = n
	}

	levelName, _ := cmd.Flags().GetString("log-level")
	level, err := parseLevel(levelName)
	if err != nil {
		return err
	}
	logger := newLogger(cmd.ErrOrStderr(), level)

	report, err := sim.Run(cmd.Context(), cfg, logger)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "bytes:      %d\n", report.Bytes)
	fmt.Fprintf(out, "ticks:      %d\n", report.Ticks)
	fmt.Fprintf(out, "events:     %d\n", report.Events)
	fmt.Fprintf(out, "uart irqs:  %d\n", report.UARTFired)
	fmt.Fprintf(out, "rx polls:   %d (resumes %d)\n", report.RxStats.Polls, report.RxStats.Resumes)
	fmt.Fprintf(out, "thr polls:  %d (resumes %d)\n", report.ThreadStats.Polls, report.ThreadStats.Resumes)
	fmt.Fprintf(out, "elapsed:    %s\n", report.Elapsed)
	return nil
}

func parseLevel(s string) (logiface.Level, error) {
	switch strings.ToLower(s) {
	case "error":
		return logiface.LevelError, nil
	case "warning", "warn":
		return logiface.LevelWarning, nil
	case "info":
		return logiface.LevelInformational, nil
	case "debug":
		return logiface.LevelDebug, nil
	case "trace":
		return logiface.LevelTrace, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", s)
	}
}

func newLogger(w io.Writer, level logiface.Level) *logiface.Logger[logiface.Event] {
	return stumpy.L.New(
		stumpy.L.WithStumpy(stumpy.WithWriter(w), stumpy.WithTimeField("")),
		stumpy.L.WithLevel(level),
	).Logger()
}
