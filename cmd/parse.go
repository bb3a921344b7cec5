package cmd

import (
	"cpu-verify/internal/artifacts"
	"cpu-verify/internal/logging"
	"cpu-verify/internal/telemetry"

	"github.com/spf13/cobra"
)

func newParseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "parse <turbostat-file>",
		Short: "Print the per-second frequency trend of a turbostat capture as CSV",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			series := telemetry.ParseFile(args[0])
			if series.Empty() {
				logging.GetLogger().WithField("file", args[0]).Warn("No frequency samples found")
			}
			return artifacts.EncodeTrendCSV(cmd.OutOrStdout(), series)
		},
	}
}
