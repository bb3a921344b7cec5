package logging

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFormatRunLogLine_SortsFieldsAndTagsLevel(t *testing.T) {
	entry := &logrus.Entry{
		Time:    time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC),
		Level:   logrus.WarnLevel,
		Message: "turbostat not found in PATH",
		Data:    logrus.Fields{"tier": "stress-ng", "rc": 1},
	}

	got := FormatRunLogLine(entry)
	assert.Equal(t, "2026-01-02 03:04:05 | [WARN] turbostat not found in PATH rc=1 tier=stress-ng\n", got)
}

func TestFormatRunLogLine_ErrorIsFail(t *testing.T) {
	entry := &logrus.Entry{Level: logrus.ErrorLevel, Message: "boom", Data: logrus.Fields{}}
	assert.Contains(t, FormatRunLogLine(entry), "| [FAIL] boom")
}

func TestAttachRunLog_MirrorsUntilDetached(t *testing.T) {
	SetOutput(&strings.Builder{})
	defer SetOutput(os.Stderr)

	path := filepath.Join(t.TempDir(), "console.log")
	detach, err := AttachRunLog(path)
	require.NoError(t, err)

	GetLogger().WithField("pid", 42).Warn("waiting on telemetry")
	detach()
	GetLogger().Info("after detach")
	detach()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	text := string(data)
	assert.Contains(t, text, "[WARN] waiting on telemetry pid=42")
	assert.NotContains(t, text, "after detach")
}

func TestSetLogLevel(t *testing.T) {
	defer GetLogger().SetLevel(logrus.InfoLevel)

	require.NoError(t, SetLogLevel("debug"))
	assert.Equal(t, logrus.DebugLevel, GetLogger().GetLevel())

	require.NoError(t, SetLogLevel(" FAIL "))
	assert.Equal(t, logrus.ErrorLevel, GetLogger().GetLevel())

	assert.Error(t, SetLogLevel("loud"))
	assert.Equal(t, logrus.ErrorLevel, GetLogger().GetLevel())
}

func TestConsoleLogUsesRunLogTimestamps(t *testing.T) {
	var out strings.Builder
	l := newLogger(&out)
	l.WithField("pid", 7).Info("turbostat started")

	line := out.String()
	assert.Contains(t, line, `msg="turbostat started"`)
	assert.Contains(t, line, "pid=7")
	assert.Regexp(t, `time="\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}"`, line)
}
