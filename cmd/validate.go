package cmd

import (
	"cpu-verify/internal/config"
	"cpu-verify/internal/logging"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

func newValidateCmd() *cobra.Command {
	var cf *configFlags

	validateCmd := &cobra.Command{
		Use:   "validate",
		Short: "Validate the run configuration and print the effective values",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := logging.GetLogger()

			cfg, err := config.Load(cf.loadOptions(cmd.Flags()))
			if err != nil {
				logger.WithField("config_file", cf.file).WithError(err).Error("Configuration validation failed")
				return err
			}

			shown := *cfg
			if shown.Influx.Token != "" {
				shown.Influx.Token = "********"
			}
			out, err := yaml.Marshal(shown)
			if err != nil {
				return err
			}
			if _, err := cmd.OutOrStdout().Write(out); err != nil {
				return err
			}

			if _, err := config.ParseCoreRange(cfg.Cores); err != nil {
				logger.WithField("cores", cfg.Cores).WithError(err).Warn("Core range will be ignored; workload runs without affinity")
			}
			logger.WithField("config_file", cf.file).Info("Configuration is valid")
			return nil
		},
	}

	cf = addConfigFlags(validateCmd)
	return validateCmd
}
