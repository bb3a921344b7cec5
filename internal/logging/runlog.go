package logging

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"
)

const runLogTimeFormat = "2006-01-02 15:04:05"

// RunLogHook mirrors every log entry into a run's console log as plain text,
// one "<time> | [LEVEL] message key=value" line per entry.
type RunLogHook struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
}

func NewRunLogHook(w io.Writer) *RunLogHook {
	return &RunLogHook{w: w}
}

func (h *RunLogHook) Levels() []logrus.Level {
	return logrus.AllLevels
}

func (h *RunLogHook) Fire(entry *logrus.Entry) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.w == nil {
		return nil
	}
	_, err := io.WriteString(h.w, FormatRunLogLine(entry))
	return err
}

func (h *RunLogHook) close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.w = nil
	if h.closer != nil {
		err := h.closer.Close()
		h.closer = nil
		return err
	}
	return nil
}

// FormatRunLogLine renders an entry the way the run console log stores it.
func FormatRunLogLine(entry *logrus.Entry) string {
	var b strings.Builder
	b.WriteString(entry.Time.Format(runLogTimeFormat))
	b.WriteString(" | [")
	b.WriteString(levelTag(entry.Level))
	b.WriteString("] ")
	b.WriteString(entry.Message)

	keys := make([]string, 0, len(entry.Data))
	for k := range entry.Data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		fmt.Fprintf(&b, " %s=%v", k, entry.Data[k])
	}
	b.WriteString("\n")
	return b.String()
}

func levelTag(level logrus.Level) string {
	switch level {
	case logrus.WarnLevel:
		return "WARN"
	case logrus.ErrorLevel, logrus.FatalLevel, logrus.PanicLevel:
		return "FAIL"
	default:
		return strings.ToUpper(level.String())
	}
}

// AttachRunLog opens (appending) the console log at path and mirrors the
// package logger into it until the returned detach function is called.
func AttachRunLog(path string) (func(), error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to open run log %s: %w", path, err)
	}
	hook := NewRunLogHook(f)
	hook.closer = f
	logger.AddHook(hook)

	var once sync.Once
	return func() {
		once.Do(func() {
			removeHook(hook)
			_ = hook.close()
		})
	}, nil
}
