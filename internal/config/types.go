package config

import (
	"fmt"
	"time"
)

type Profile string

const (
	ProfileServerLab Profile = "serverlab"
	ProfileSimple    Profile = "simple"
	ProfileAVX2      Profile = "avx2"
	ProfileAVX512    Profile = "avx512"
	ProfileCustom    Profile = "custom"

	// accepted on input, normalized to ProfileSimple
	profileSSE Profile = "sse"
)

type GovernorMode string

const (
	GovernorKeep        GovernorMode = "keep"
	GovernorPerformance GovernorMode = "performance"
)

const (
	DefaultDuration          = 600
	DefaultLoad              = 100
	DefaultGovernor          = GovernorPerformance
	DefaultProfile           = ProfileServerLab
	DefaultCores             = "all"
	DefaultTemplate          = `"{PTU_BIN}" -ct 3 -cp {LOAD} -t {DURATION} -y -q`
	DefaultLogBase           = "/root/Documents/PTU_Linux_Rev4.8.0/PtuLog"
	DefaultTelemetryInterval = 1
	DefaultTelemetryGrace    = 15
)

// RunConfig is everything a single verification run needs. It is built and
// validated before any host state is touched and copied by value afterwards.
type RunConfig struct {
	Duration  int             `yaml:"duration"`
	Load      int             `yaml:"load"`
	Cores     string          `yaml:"cores"`
	Governor  GovernorMode    `yaml:"governor"`
	Profile   Profile         `yaml:"profile"`
	Template  string          `yaml:"template"`
	Binary    string          `yaml:"binary"`
	LogBase   string          `yaml:"log_base"`
	LogLevel  string          `yaml:"log_level"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Influx    InfluxConfig    `yaml:"influxdb"`
}

type TelemetryConfig struct {
	// Interval is the turbostat sampling interval in seconds.
	Interval int `yaml:"interval"`
	// Grace is added to the run duration to bound the telemetry wait.
	Grace int `yaml:"grace"`
}

type InfluxConfig struct {
	Host   string `yaml:"host"`
	Token  string `yaml:"token" json:"-"`
	Org    string `yaml:"org"`
	Bucket string `yaml:"bucket"`
}

func (c InfluxConfig) Enabled() bool {
	return c.Host != ""
}

func Defaults() RunConfig {
	return RunConfig{
		Duration: DefaultDuration,
		Load:     DefaultLoad,
		Cores:    DefaultCores,
		Governor: DefaultGovernor,
		Profile:  DefaultProfile,
		Template: DefaultTemplate,
		LogBase:  DefaultLogBase,
		LogLevel: "info",
		Telemetry: TelemetryConfig{
			Interval: DefaultTelemetryInterval,
			Grace:    DefaultTelemetryGrace,
		},
	}
}

func (c RunConfig) GetDuration() time.Duration {
	return time.Duration(c.Duration) * time.Second
}

// TelemetryDeadline bounds how long the coordinator waits for the telemetry
// process once the workload is done.
func (c RunConfig) TelemetryDeadline() time.Duration {
	return time.Duration(c.Duration+c.Telemetry.Grace) * time.Second
}

// TelemetryGrace bounds the telemetry wait of an interrupted run.
func (c RunConfig) TelemetryGrace() time.Duration {
	return time.Duration(c.Telemetry.Grace) * time.Second
}

// ValidationError is the only error class allowed to abort a run, and it is
// always raised before any side effect.
type ValidationError struct {
	Field  string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s %q: %s", e.Field, e.Value, e.Reason)
}
