package cmd

import (
	"context"
	"fmt"
	"io"
	"os/signal"
	"runtime"
	"syscall"

	"cpu-verify/internal/artifacts"
	"cpu-verify/internal/bench"
	"cpu-verify/internal/config"
	"cpu-verify/internal/database"
	"cpu-verify/internal/host"
	"cpu-verify/internal/logging"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	var noArchive bool
	var cf *configFlags

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "Run a CPU verification",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(cf.loadOptions(cmd.Flags()))
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("log-level") && cfg.LogLevel != "" {
				if err := logging.SetLogLevel(cfg.LogLevel); err != nil {
					logging.GetLogger().WithError(err).Warn("Ignoring invalid LOG_LEVEL")
				}
			}
			return runVerification(cmd.Context(), cmd.OutOrStdout(), *cfg, !noArchive)
		},
	}

	cf = addConfigFlags(runCmd)
	runCmd.Flags().BoolVar(&noArchive, "no-archive", false, "Do not pack the run folder into a .tar.gz")

	return runCmd
}

func runVerification(parent context.Context, out io.Writer, cfg config.RunConfig, archive bool) error {
	logger := logging.GetLogger()

	if parent == nil {
		parent = context.Background()
	}
	ctx, stop := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	hostCfg, err := host.GetHostConfig()
	if err != nil {
		logger.WithError(err).Warn("Host information incomplete")
		hostCfg = &host.HostConfig{LogicalCPUs: runtime.NumCPU()}
	}

	deps := bench.Deps{
		Host:    hostCfg,
		Emitter: artifacts.NewEmitter(archive),
	}

	if cfg.Influx.Enabled() {
		client, err := database.NewInfluxDBClient(ctx, cfg.Influx)
		if err != nil {
			logger.WithError(err).Warn("InfluxDB export disabled for this run")
		} else {
			defer client.Close()
			deps.Exporter = client
		}
	}

	outcome, err := bench.NewCoordinator(cfg, deps).Run(ctx)
	if err != nil {
		return err
	}

	logger.WithFields(logrus.Fields{
		"folder": outcome.Paths.Root,
		"status": string(outcome.Status),
	}).Info("Run folder")
	fmt.Fprintln(out, outcome.Paths.Root)

	if !outcome.Succeeded() {
		return fmt.Errorf("run %s finished with status %s", outcome.RunID, outcome.Status)
	}
	return nil
}
