// Package main is the usage-sentinel entry point: a daemon that polls
// subscription quota alongside the local conversation logs, and a
// validator that checks the daemon never consumes usage itself.
package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/usage-sentinel/sentinel/internal/config"
	"github.com/usage-sentinel/sentinel/internal/daemon"
	"github.com/usage-sentinel/sentinel/internal/logger"
	"github.com/usage-sentinel/sentinel/internal/validate"
	"github.com/usage-sentinel/sentinel/internal/version"
)

const timeFormat = "2006-01-02 15:04:05"

func main() {
	root := &cobra.Command{
		Use:     "sentinel",
		Short:   "Passive usage telemetry for a metered Claude subscription",
		Version: version.Info(),
	}
	root.AddCommand(newDaemonCommand())
	root.AddCommand(newValidateCommand())

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newDaemonCommand() *cobra.Command {
	var debug bool

	cmd := &cobra.Command{
		Use:   "daemon",
		Short: "Run the polling daemon",
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runDaemon(debug)
		},
	}
	cmd.Flags().BoolVar(&debug, "debug", false, "enable debug logging")
	return cmd
}

func runDaemon(debug bool) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := logger.Setup(cfg.DaemonLogPath(), debug); err != nil {
		return fmt.Errorf("failed to open daemon log: %w", err)
	}
	defer func() {
		if err := logger.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "Warning: error closing log: %v\n", err)
		}
	}()

	d, err := daemon.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to start daemon: %w", err)
	}

	// Cooperative shutdown: the in-flight cycle completes before exit
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	return d.Run(ctx)
}

func newValidateCommand() *cobra.Command {
	var startStr, endStr string

	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Check that polling did not consume usage during an idle window",
		Long: `Replays the raw poll log over a window when you know you were not
using Claude, and reports any session or overage movement. Any
increase during a genuinely idle window would mean observation
itself is being charged.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runValidate(startStr, endStr)
		},
	}
	cmd.Flags().StringVar(&startStr, "start", "", "window start (YYYY-MM-DD HH:MM:SS), prompted if omitted")
	cmd.Flags().StringVar(&endStr, "end", "", "window end (YYYY-MM-DD HH:MM:SS), prompted if omitted")
	return cmd
}

func runValidate(startStr, endStr string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	reader := bufio.NewReader(os.Stdin)

	start, err := resolveTime(reader, startStr, "Start of idle window")
	if err != nil {
		return err
	}
	end, err := resolveTime(reader, endStr, "End of idle window")
	if err != nil {
		return err
	}
	if !end.After(start) {
		return fmt.Errorf("end time must be after start time")
	}

	rawLog := cfg.RawLogPath()
	if _, err := os.Stat(rawLog); err != nil {
		return fmt.Errorf("raw poll log not found at %s (has the daemon been running?)", rawLog)
	}

	points, err := validate.LoadPoints(rawLog, start, end)
	if err != nil {
		return fmt.Errorf("failed to read raw poll log: %w", err)
	}
	if len(points) == 0 {
		return fmt.Errorf("no polls found in the window; the daemon may not have been running")
	}

	report := validate.Analyze(points)
	validate.Render(os.Stdout, report, start, end)

	if !report.Passed() {
		os.Exit(2)
	}
	return nil
}

// resolveTime parses the flag value when given, otherwise prompts.
func resolveTime(reader *bufio.Reader, value, prompt string) (time.Time, error) {
	if value != "" {
		t, err := time.ParseInLocation(timeFormat, value, time.Local)
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid time %q, expected %s", value, timeFormat)
		}
		return t, nil
	}

	fmt.Printf("%s (%s): ", prompt, timeFormat)
	line, err := reader.ReadString('\n')
	if err != nil {
		return time.Time{}, fmt.Errorf("failed to read input: %w", err)
	}
	t, err := time.ParseInLocation(timeFormat, strings.TrimSpace(line), time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q, expected %s", strings.TrimSpace(line), timeFormat)
	}
	return t, nil
}
