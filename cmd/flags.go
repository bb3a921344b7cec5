package cmd

import (
	"cpu-verify/internal/config"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// runFlag binds a CLI flag to the environment key it overrides.
type runFlag struct {
	name  string
	key   string
	usage string
}

var runFlags = []runFlag{
	{"duration", config.EnvDuration, "Run duration in seconds"},
	{"load", config.EnvLoad, "Target load percent (0-100)"},
	{"governor", config.EnvGovernor, "CPU governor: keep or performance"},
	{"cores", config.EnvCores, `Core range for taskset ("all" or start-end)`},
	{"profile", config.EnvProfile, "Workload profile: serverlab, simple, avx2, avx512, custom"},
	{"ptu-bin", config.EnvBinary, "Path to the ptat/ptu binary (autodetected when empty)"},
	{"template", config.EnvTemplate, "Command template for the custom profile"},
	{"log-base", config.EnvLogBase, "Directory that receives run folders"},
	{"interval", config.EnvTelemetryInterval, "turbostat sampling interval in seconds"},
	{"grace", config.EnvTelemetryGrace, "Seconds to wait for turbostat beyond the run duration"},
}

// configFlags are shared by run and validate.
type configFlags struct {
	file   string
	values map[string]*string
}

func addConfigFlags(cmd *cobra.Command) *configFlags {
	cf := &configFlags{values: make(map[string]*string, len(runFlags))}
	cmd.Flags().StringVarP(&cf.file, "config", "c", "", "Optional YAML configuration file")
	for _, f := range runFlags {
		cf.values[f.name] = cmd.Flags().String(f.name, "", f.usage+" (env "+f.key+")")
	}
	return cf
}

// loadOptions turns the flags that were set into config overrides.
func (cf *configFlags) loadOptions(flags *pflag.FlagSet) config.LoadOptions {
	overrides := make(map[string]string)
	for _, f := range runFlags {
		if flags.Changed(f.name) {
			overrides[f.key] = *cf.values[f.name]
		}
	}
	return config.LoadOptions{File: cf.file, Overrides: overrides}
}
