// Package cmd holds the cpu-verify command line.
package cmd

import (
	"fmt"

	"cpu-verify/internal/config"
	"cpu-verify/internal/logging"

	"github.com/spf13/cobra"
)

// Version is set at build time with -ldflags "-X cpu-verify/cmd.Version=...".
var Version = "dev"

func Execute() error {
	config.LoadEnvironment()
	return newRootCmd().Execute()
}

func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:           "cpu-verify",
		Short:         "Timed CPU stress verification with power and frequency telemetry",
		Long:          "Runs PTU/PTAT (falling back to stress-ng, then a plain soak) for a fixed duration while sampling turbostat and RAPL energy counters.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if logLevel != "" {
				if err := logging.SetLogLevel(logLevel); err != nil {
					return fmt.Errorf("invalid log level: %w", err)
				}
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Set log level (trace, debug, info, warn, error)")

	rootCmd.AddCommand(newRunCmd())
	rootCmd.AddCommand(newValidateCmd())
	rootCmd.AddCommand(newParseCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}
