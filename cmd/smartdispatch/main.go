// Command smartdispatch folds, queues, packs, and launches batches of
// shell commands onto a PBS/Torque cluster, and runs the per-node
// worker loop that drains them.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	applog "github.com/smartdispatch/smartdispatch/pkg/log"
)

var rootCmd = &cobra.Command{
	Use:           "smartdispatch",
	Short:         "Fold, queue, and launch batches of commands on a PBS/Torque cluster",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().Bool("log-json", false, "Output logs in JSON format")

	cobra.OnInitialize(initLogging)

	rootCmd.AddCommand(launchCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(historyCmd)
}

func initLogging() {
	level, _ := rootCmd.PersistentFlags().GetString("log-level")
	jsonOutput, _ := rootCmd.PersistentFlags().GetBool("log-json")
	applog.Init(applog.Config{
		Level:      applog.Level(level),
		JSONOutput: jsonOutput,
	})
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "smartdispatch: %v\n", err)
		os.Exit(exitCodeFor(err))
	}
}

// exitCode is implemented by errors that carry an explicit CLI exit
// status (spec §6: 0 on success, 2 on argument validation error,
// nonzero on unrecoverable errors).
type exitCode interface {
	ExitCode() int
}

func exitCodeFor(err error) int {
	var ec exitCode
	if e, ok := err.(exitCode); ok {
		ec = e
		return ec.ExitCode()
	}
	return 1
}

// usageError marks an argument-validation failure as exit code 2.
type usageError struct {
	err error
}

func (u usageError) Error() string { return u.err.Error() }
func (u usageError) Unwrap() error { return u.err }
func (u usageError) ExitCode() int { return 2 }

func usageErrorf(format string, args ...any) error {
	return usageError{err: fmt.Errorf(format, args...)}
}
