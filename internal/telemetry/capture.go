// Package telemetry runs turbostat alongside the workload and turns its
// output into a frequency series.
package telemetry

import (
	"context"
	"strconv"
	"strings"
	"time"

	"cpu-verify/internal/logging"
	"cpu-verify/internal/process"

	"github.com/sirupsen/logrus"
)

const turbostatBinary = "turbostat"

// turbostatColumns puts the wall-clock column first, so every row of one
// interval shares the same timestamp token.
var turbostatColumns = "Time_Of_Day_Seconds," + strings.Join(FrequencyColumns, ",")

// Sampler starts the telemetry capture process.
type Sampler struct {
	launcher process.Launcher
	interval int
}

func NewSampler(launcher process.Launcher, interval int) *Sampler {
	if interval < 1 {
		interval = 1
	}
	return &Sampler{launcher: launcher, interval: interval}
}

// Capture is a running telemetry process writing to Path.
type Capture struct {
	Path    string
	Started time.Time

	proc process.Process
}

func (s *Sampler) Args(duration int, outPath string) []string {
	iterations := duration / s.interval
	if iterations < 1 {
		iterations = 1
	}
	return []string{
		"--show", turbostatColumns,
		"--interval", strconv.Itoa(s.interval),
		"--num_iterations", strconv.Itoa(iterations),
		"--out", outPath,
		"--quiet",
	}
}

// Start launches turbostat for duration seconds. A nil Capture with a nil
// error means turbostat is not installed. The process is detached from ctx
// cancellation so it always runs to its own iteration count.
func (s *Sampler) Start(ctx context.Context, duration int, outPath string) (*Capture, error) {
	logger := logging.GetLogger()

	bin, err := s.launcher.LookPath(turbostatBinary)
	if err != nil {
		logger.Warn("turbostat not found in PATH; frequency trend will be empty")
		return nil, nil
	}

	proc, err := s.launcher.Start(context.WithoutCancel(ctx), process.Spec{
		Name: bin,
		Args: s.Args(duration, outPath),
	})
	if err != nil {
		return nil, err
	}

	logger.WithFields(logrus.Fields{
		"pid":  proc.Pid(),
		"file": outPath,
	}).Info("turbostat started")

	return &Capture{Path: outPath, Started: time.Now(), proc: proc}, nil
}

// Pid of the capture process, 0 for a nil capture.
func (c *Capture) Pid() int {
	if c == nil || c.proc == nil {
		return 0
	}
	return c.proc.Pid()
}

// Wait blocks until turbostat exits or bound elapses. Once ctx is done the
// remaining wait is cut to onCancel. On timeout the process is left running
// and whatever it wrote so far is used.
func (c *Capture) Wait(ctx context.Context, bound, onCancel time.Duration) bool {
	if c == nil || c.proc == nil {
		return false
	}
	logger := logging.GetLogger()
	logger.WithField("pid", c.proc.Pid()).Info("Waiting for turbostat")

	code, exited, err := process.WaitBounded(ctx, c.proc, bound, onCancel)
	switch {
	case !exited:
		fields := logrus.Fields{"pid": c.proc.Pid(), "bound": bound}
		if ctx.Err() != nil {
			fields["bound"] = onCancel
			fields["interrupted"] = true
		}
		logger.WithFields(fields).Warn("turbostat still running after bound; using partial data")
		return false
	case err != nil:
		logger.WithError(err).Warn("Waiting for turbostat failed")
	case code != 0:
		logger.WithField("exit_code", code).Warn("turbostat exited with non-zero status")
	}
	return true
}
