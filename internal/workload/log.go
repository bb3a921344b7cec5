package workload

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"cpu-verify/internal/process"
)

// Log is the workload log: the command lines that were run and whatever
// those commands printed. Safe for concurrent writers. A nil Log discards.
type Log struct {
	mu     sync.Mutex
	w      io.Writer
	closer io.Closer
	path   string
}

func NewLog(w io.Writer) *Log {
	return &Log{w: w}
}

// OpenLog creates the log file and writes its header.
func OpenLog(path, profile string) (*Log, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return nil, fmt.Errorf("failed to create workload log %s: %w", path, err)
	}
	l := &Log{w: file, closer: file, path: path}
	fmt.Fprintf(l, "# Start: %s\n# Profile: %s\n", time.Now().Format("2006-01-02 15:04:05"), profile)
	return l, nil
}

func (l *Log) Path() string {
	if l == nil {
		return ""
	}
	return l.path
}

func (l *Log) Write(p []byte) (int, error) {
	if l == nil {
		return len(p), nil
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Command records spec as a "$ cmd" line.
func (l *Log) Command(spec process.Spec) {
	fmt.Fprintf(l, "$ %s\n", spec.String())
}

func (l *Log) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
