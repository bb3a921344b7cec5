package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func envMap(values map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := values[key]
		return v, ok
	}
}

func TestLoad_DefaultsWhenNothingSet(t *testing.T) {
	cfg, err := Load(LoadOptions{Lookup: envMap(nil)})
	require.NoError(t, err)

	assert.Equal(t, DefaultDuration, cfg.Duration)
	assert.Equal(t, DefaultLoad, cfg.Load)
	assert.Equal(t, GovernorPerformance, cfg.Governor)
	assert.Equal(t, ProfileServerLab, cfg.Profile)
	assert.Equal(t, "all", cfg.Cores)
	assert.Equal(t, DefaultTemplate, cfg.Template)
	assert.Equal(t, 1, cfg.Telemetry.Interval)
	assert.Equal(t, 15, cfg.Telemetry.Grace)
	assert.False(t, cfg.Influx.Enabled())
}

func TestLoad_EnvironmentThenOverrides(t *testing.T) {
	cfg, err := Load(LoadOptions{
		Lookup: envMap(map[string]string{
			EnvDuration: "60",
			EnvLoad:     "80",
			EnvGovernor: "KEEP",
			EnvProfile:  "sse",
			EnvCores:    "2-5",
		}),
		Overrides: map[string]string{EnvDuration: "30"},
	})
	require.NoError(t, err)

	assert.Equal(t, 30, cfg.Duration)
	assert.Equal(t, 80, cfg.Load)
	assert.Equal(t, GovernorKeep, cfg.Governor)
	assert.Equal(t, ProfileSimple, cfg.Profile)
	assert.Equal(t, "2-5", cfg.Cores)
	assert.Equal(t, 45*time.Second, cfg.TelemetryDeadline())
}

func TestLoad_NonNumericDurationIsFatal(t *testing.T) {
	_, err := Load(LoadOptions{Lookup: envMap(map[string]string{EnvDuration: "ten"})})
	require.Error(t, err)

	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "duration", verr.Field)
}

func TestLoad_RejectsOutOfRangeValues(t *testing.T) {
	cases := map[string]map[string]string{
		"zero duration":    {EnvDuration: "0"},
		"load above 100":   {EnvLoad: "101"},
		"negative load":    {EnvLoad: "-1"},
		"unknown governor": {EnvGovernor: "powersave"},
		"unknown profile":  {EnvProfile: "avx10"},
		"influx w/o org":   {EnvInfluxHost: "http://localhost:8086"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Load(LoadOptions{Lookup: envMap(env)})
			var verr *ValidationError
			assert.True(t, errors.As(err, &verr), "expected validation error, got %v", err)
		})
	}
}

func TestLoad_MalformedCoresIsNotFatal(t *testing.T) {
	cfg, err := Load(LoadOptions{Lookup: envMap(map[string]string{EnvCores: "x-y"})})
	require.NoError(t, err)
	assert.Equal(t, "x-y", cfg.Cores)
}

func TestLoad_YAMLFileWithEnvExpansion(t *testing.T) {
	t.Setenv("CPU_VERIFY_TEST_BUCKET", "bench")
	path := filepath.Join(t.TempDir(), "run.yml")
	content := `
duration: 120
load: 75
profile: avx2
governor: keep
template: '"{PTU_BIN}" -ct 4 -t {DURATION}'
telemetry:
  interval: 2
influxdb:
  host: http://influx:8086
  org: lab
  bucket: ${CPU_VERIFY_TEST_BUCKET}
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(LoadOptions{File: path, Lookup: envMap(map[string]string{EnvLoad: "90"})})
	require.NoError(t, err)

	assert.Equal(t, 120, cfg.Duration)
	assert.Equal(t, 90, cfg.Load)
	assert.Equal(t, ProfileAVX2, cfg.Profile)
	assert.Equal(t, GovernorKeep, cfg.Governor)
	assert.Equal(t, 2, cfg.Telemetry.Interval)
	assert.Equal(t, "bench", cfg.Influx.Bucket)
	assert.True(t, cfg.Influx.Enabled())
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(LoadOptions{File: filepath.Join(t.TempDir(), "nope.yml"), Lookup: envMap(nil)})
	require.Error(t, err)
}
