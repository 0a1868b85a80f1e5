// Package main provides the harness CLI, which runs browser scenario suites
// and writes per-scenario evidence logs.
package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

// errScenariosFailed makes the process exit non-zero without printing a
// second error after the summary.
var errScenariosFailed = errors.New("one or more scenarios failed")

var rootCmd = &cobra.Command{
	Use:           "harness",
	Short:         "Browser scenario harness with per-scenario evidence capture",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.AddCommand(newRunCmd(), versionCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if !errors.Is(err, errScenariosFailed) {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		}
		os.Exit(1)
	}
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the harness version",
	Run: func(cmd *cobra.Command, _ []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "harness %s (%s)\n", version, commit)
	},
}
