package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"cpu-verify/internal/logging"

	"gopkg.in/yaml.v3"
)

const (
	EnvDuration          = "DURATION"
	EnvLoad              = "LOAD"
	EnvGovernor          = "GOVERNOR"
	EnvCores             = "CORES"
	EnvProfile           = "PROFILE"
	EnvBinary            = "PTU_BIN"
	EnvTemplate          = "PTU_TEMPLATE"
	EnvLogBase           = "LOG_BASE"
	EnvLogLevel          = "LOG_LEVEL"
	EnvTelemetryInterval = "TURBOSTAT_INTERVAL"
	EnvTelemetryGrace    = "TELEMETRY_GRACE"
	EnvInfluxHost        = "INFLUXDB_HOST"
	EnvInfluxToken       = "INFLUXDB_TOKEN"
	EnvInfluxOrg         = "INFLUXDB_ORG"
	EnvInfluxBucket      = "INFLUXDB_BUCKET"
)

// LookupFunc has the shape of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

type LoadOptions struct {
	// File is an optional YAML file layered over the defaults.
	File string
	// Lookup reads environment variables; nil means os.LookupEnv.
	Lookup LookupFunc
	// Overrides are keyed like the environment (EnvDuration, ...) and win
	// over both the file and the environment. CLI flags land here.
	Overrides map[string]string
}

// Load builds a validated RunConfig: defaults, then the YAML file, then the
// environment, then explicit overrides.
func Load(opts LoadOptions) (*RunConfig, error) {
	logger := logging.GetLogger()

	cfg := Defaults()

	if opts.File != "" {
		data, err := os.ReadFile(opts.File)
		if err != nil {
			logger.WithField("filepath", opts.File).WithError(err).Error("Failed to read config file")
			return nil, fmt.Errorf("failed to read config %s: %w", opts.File, err)
		}
		expanded := expandEnvVars(string(data))
		if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
			logger.WithField("filepath", opts.File).WithError(err).Error("Failed to parse config file")
			return nil, fmt.Errorf("failed to parse config %s: %w", opts.File, err)
		}
	}

	lookup := opts.Lookup
	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := applyValues(&cfg, lookup); err != nil {
		return nil, err
	}
	if len(opts.Overrides) > 0 {
		if err := applyValues(&cfg, func(key string) (string, bool) {
			v, ok := opts.Overrides[key]
			return v, ok
		}); err != nil {
			return nil, err
		}
	}

	normalize(&cfg)
	if err := Validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func applyValues(cfg *RunConfig, lookup LookupFunc) error {
	get := func(key string) (string, bool) {
		v, ok := lookup(key)
		if !ok {
			return "", false
		}
		v = strings.TrimSpace(v)
		return v, v != ""
	}

	ints := []struct {
		key string
		dst *int
	}{
		{EnvDuration, &cfg.Duration},
		{EnvLoad, &cfg.Load},
		{EnvTelemetryInterval, &cfg.Telemetry.Interval},
		{EnvTelemetryGrace, &cfg.Telemetry.Grace},
	}
	for _, field := range ints {
		raw, ok := get(field.key)
		if !ok {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return &ValidationError{Field: strings.ToLower(field.key), Value: raw, Reason: "not an integer"}
		}
		*field.dst = n
	}

	strs := []struct {
		key string
		dst *string
	}{
		{EnvCores, &cfg.Cores},
		{EnvBinary, &cfg.Binary},
		{EnvTemplate, &cfg.Template},
		{EnvLogBase, &cfg.LogBase},
		{EnvLogLevel, &cfg.LogLevel},
		{EnvInfluxHost, &cfg.Influx.Host},
		{EnvInfluxToken, &cfg.Influx.Token},
		{EnvInfluxOrg, &cfg.Influx.Org},
		{EnvInfluxBucket, &cfg.Influx.Bucket},
	}
	for _, field := range strs {
		if raw, ok := get(field.key); ok {
			*field.dst = raw
		}
	}

	if raw, ok := get(EnvGovernor); ok {
		cfg.Governor = GovernorMode(strings.ToLower(raw))
	}
	if raw, ok := get(EnvProfile); ok {
		cfg.Profile = Profile(strings.ToLower(raw))
	}
	return nil
}

func normalize(cfg *RunConfig) {
	if cfg.Profile == profileSSE {
		cfg.Profile = ProfileSimple
	}
	if cfg.Cores == "" {
		cfg.Cores = DefaultCores
	}
	if cfg.Template == "" {
		cfg.Template = DefaultTemplate
	}
	if cfg.Telemetry.Interval <= 0 {
		cfg.Telemetry.Interval = DefaultTelemetryInterval
	}
	if cfg.Telemetry.Grace < 0 {
		cfg.Telemetry.Grace = DefaultTelemetryGrace
	}
	if cfg.LogBase == "" {
		cfg.LogBase = DefaultLogBase
	}
}

// Validate rejects values that make a run meaningless. The core range is not
// checked here; a malformed range only disables affinity.
func Validate(cfg *RunConfig) error {
	if cfg.Duration <= 0 {
		return &ValidationError{Field: "duration", Value: strconv.Itoa(cfg.Duration), Reason: "must be greater than 0"}
	}
	if cfg.Load < 0 || cfg.Load > 100 {
		return &ValidationError{Field: "load", Value: strconv.Itoa(cfg.Load), Reason: "must be within 0-100"}
	}
	switch cfg.Governor {
	case GovernorKeep, GovernorPerformance:
	default:
		return &ValidationError{Field: "governor", Value: string(cfg.Governor), Reason: "must be keep or performance"}
	}
	switch cfg.Profile {
	case ProfileServerLab, ProfileSimple, ProfileAVX2, ProfileAVX512, ProfileCustom:
	default:
		return &ValidationError{Field: "profile", Value: string(cfg.Profile), Reason: "must be serverlab, simple, avx2, avx512 or custom"}
	}
	if cfg.Influx.Enabled() && (cfg.Influx.Org == "" || cfg.Influx.Bucket == "") {
		return &ValidationError{Field: "influxdb", Value: cfg.Influx.Host, Reason: "org and bucket are required when a host is set"}
	}
	return nil
}

func expandEnvVars(content string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)
	return re.ReplaceAllStringFunc(content, func(match string) string {
		envVar := strings.Trim(match, "${}")
		if value := os.Getenv(envVar); value != "" {
			return value
		}
		return match
	})
}
