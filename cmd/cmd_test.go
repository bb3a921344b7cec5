package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cpu-verify/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestValidate_FlagsOverrideEnvironment(t *testing.T) {
	t.Setenv(config.EnvDuration, "120")
	t.Setenv(config.EnvProfile, "avx2")

	out, err := execute(t, "validate", "--duration", "30", "--profile", "sse")
	require.NoError(t, err)

	var cfg config.RunConfig
	require.NoError(t, yaml.Unmarshal([]byte(out), &cfg))
	assert.Equal(t, 30, cfg.Duration)
	assert.Equal(t, config.ProfileSimple, cfg.Profile)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	_, err := execute(t, "validate", "--duration", "ten")
	var verr *config.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "duration", verr.Field)

	_, err = execute(t, "validate", "--load", "150")
	assert.ErrorAs(t, err, &verr)
}

func TestValidate_MasksToken(t *testing.T) {
	t.Setenv(config.EnvInfluxHost, "http://localhost:8086")
	t.Setenv(config.EnvInfluxToken, "s3cret")
	t.Setenv(config.EnvInfluxOrg, "lab")
	t.Setenv(config.EnvInfluxBucket, "cpu")

	out, err := execute(t, "validate")
	require.NoError(t, err)
	assert.NotContains(t, out, "s3cret")
}

func TestParse_PrintsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "turbostat.txt")
	require.NoError(t, os.WriteFile(path, []byte("Time Avg_MHz Bzy_MHz\n12 2400 0\n12 2600 0\n13 2000 0\n"), 0o644))

	out, err := execute(t, "parse", path)
	require.NoError(t, err)
	assert.Equal(t, "timestamp,avg_mhz\n12,2500.00\n13,2000.00\n", out)
}

func TestParse_RequiresFile(t *testing.T) {
	_, err := execute(t, "parse")
	assert.Error(t, err)
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "cpu-verify dev"))
}
