// Package logging holds the process-wide logrus logger. The console copy
// goes to stderr so stdout stays free for command output (run folder, CSV);
// AttachRunLog adds the per-run plain-text copy.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var logger = newLogger(os.Stderr)

func newLogger(w io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: runLogTimeFormat,
		PadLevelText:    true,
	})
	l.SetLevel(logrus.InfoLevel)
	return l
}

func GetLogger() *logrus.Logger {
	return logger
}

// ParseLevel accepts logrus level names plus "fail", the tag error entries
// carry in the run log.
func ParseLevel(level string) (logrus.Level, error) {
	if strings.EqualFold(strings.TrimSpace(level), "fail") {
		return logrus.ErrorLevel, nil
	}
	return logrus.ParseLevel(strings.TrimSpace(level))
}

// SetLogLevel leaves the current level untouched when level is invalid.
func SetLogLevel(level string) error {
	lvl, err := ParseLevel(level)
	if err != nil {
		return err
	}
	logger.SetLevel(lvl)
	return nil
}

// SetOutput redirects the console side of the logger, mostly for tests.
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func removeHook(target logrus.Hook) {
	kept := make(logrus.LevelHooks)
	for level, hooks := range logger.Hooks {
		for _, h := range hooks {
			if h != target {
				kept[level] = append(kept[level], h)
			}
		}
	}
	logger.ReplaceHooks(kept)
}
