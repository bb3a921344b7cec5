// Package process wraps child-process spawning so that every independently
// lived process of a run (telemetry, workload tiers, soak loops) is tracked
// through an explicit handle.
package process

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os/exec"
	"strings"
	"syscall"
	"time"
)

// StopGrace is how long a cancelled child gets between SIGTERM and SIGKILL.
const StopGrace = 10 * time.Second

// Spec is a command ready to be started.
type Spec struct {
	Name   string
	Args   []string
	Stdout io.Writer
	Stderr io.Writer
}

// String renders the command line the way it is recorded in the workload log.
func (s Spec) String() string {
	parts := make([]string, 0, len(s.Args)+1)
	parts = append(parts, quote(s.Name))
	for _, a := range s.Args {
		parts = append(parts, quote(a))
	}
	return strings.Join(parts, " ")
}

func quote(s string) string {
	if s == "" || strings.ContainsAny(s, " \t\"'") {
		return `"` + strings.ReplaceAll(s, `"`, `\"`) + `"`
	}
	return s
}

// Process is a started child.
type Process interface {
	Pid() int
	// Wait blocks until the child exits and returns its exit code. A child
	// that was killed by a signal reports -1. The error is only set when the
	// wait itself failed.
	Wait() (int, error)
}

// Launcher starts processes and resolves executables.
type Launcher interface {
	LookPath(file string) (string, error)
	Start(ctx context.Context, spec Spec) (Process, error)
}

// ExecLauncher is the os/exec backed Launcher.
type ExecLauncher struct{}

func (ExecLauncher) LookPath(file string) (string, error) {
	return exec.LookPath(file)
}

// Start runs spec until it exits or ctx is cancelled. Cancellation sends
// SIGTERM rather than SIGKILL so wrappers such as timeout and taskset can
// pass it on to their child; SIGKILL follows after StopGrace.
func (ExecLauncher) Start(ctx context.Context, spec Spec) (Process, error) {
	cmd := exec.CommandContext(ctx, spec.Name, spec.Args...)
	cmd.Stdout = spec.Stdout
	cmd.Stderr = spec.Stderr
	cmd.Cancel = func() error {
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = StopGrace
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("failed to start %s: %w", spec.Name, err)
	}
	return &execProcess{cmd: cmd}, nil
}

type execProcess struct {
	cmd *exec.Cmd
}

func (p *execProcess) Pid() int {
	if p.cmd.Process == nil {
		return 0
	}
	return p.cmd.Process.Pid
}

func (p *execProcess) Wait() (int, error) {
	err := p.cmd.Wait()
	if err == nil {
		return 0, nil
	}
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode(), nil
	}
	return -1, err
}

// Run starts spec and waits for it.
func Run(ctx context.Context, launcher Launcher, spec Spec) (int, error) {
	proc, err := launcher.Start(ctx, spec)
	if err != nil {
		return -1, err
	}
	return proc.Wait()
}

type waitResult struct {
	code int
	err  error
}

// WaitTimeout waits up to d for p to exit. When the bound is hit it returns
// exited=false and leaves the process running; the helper goroutine finishes
// whenever the child eventually exits.
func WaitTimeout(p Process, d time.Duration) (code int, exited bool, err error) {
	return WaitBounded(context.Background(), p, d, d)
}

// WaitBounded is WaitTimeout that also watches ctx: once ctx is done the
// remaining wait is cut to at most onCancel. The process is never killed.
func WaitBounded(ctx context.Context, p Process, d, onCancel time.Duration) (code int, exited bool, err error) {
	done := make(chan waitResult, 1)
	go func() {
		c, e := p.Wait()
		done <- waitResult{code: c, err: e}
	}()

	deadline := time.Now().Add(d)
	timer := time.NewTimer(d)
	defer timer.Stop()

	cancelled := ctx.Done()
	for {
		select {
		case res := <-done:
			return res.code, true, res.err
		case <-timer.C:
			return 0, false, nil
		case <-cancelled:
			cancelled = nil
			if time.Until(deadline) > onCancel {
				timer.Reset(onCancel)
			}
		}
	}
}
