// Package processtest provides a scriptable process.Launcher for tests.
package processtest

import (
	"context"
	"fmt"
	"os/exec"
	"path/filepath"
	"sync"

	"cpu-verify/internal/process"
)

// Launcher resolves only the programs listed in Paths and records every
// started spec. Exit codes, start failures and blocking are keyed by Program.
type Launcher struct {
	mu sync.Mutex

	// Paths maps a program name (or absolute path) to its resolved path.
	Paths map[string]string
	// ExitCodes defaults to 0 for programs not listed.
	ExitCodes map[string]int
	// StartErrors makes Start fail for the given program.
	StartErrors map[string]error
	// Block keeps Wait from returning until the channel is closed.
	Block map[string]chan struct{}
	// OnStart runs synchronously inside Start.
	OnStart func(spec process.Spec)

	started []process.Spec
	nextPid int
}

func NewLauncher(paths ...string) *Launcher {
	l := &Launcher{
		Paths:       make(map[string]string),
		ExitCodes:   make(map[string]int),
		StartErrors: make(map[string]error),
		Block:       make(map[string]chan struct{}),
	}
	for _, p := range paths {
		l.Install(p)
	}
	return l
}

// Install makes name resolvable; bare names resolve under /usr/bin.
func (l *Launcher) Install(name string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if filepath.IsAbs(name) {
		l.Paths[name] = name
		return
	}
	l.Paths[name] = "/usr/bin/" + name
}

func (l *Launcher) LookPath(file string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.Paths[file]; ok {
		return p, nil
	}
	return "", &exec.Error{Name: file, Err: exec.ErrNotFound}
}

func (l *Launcher) Start(_ context.Context, spec process.Spec) (process.Process, error) {
	prog := Program(spec)

	l.mu.Lock()
	if err, ok := l.StartErrors[prog]; ok {
		l.mu.Unlock()
		return nil, fmt.Errorf("failed to start %s: %w", spec.Name, err)
	}
	l.started = append(l.started, spec)
	l.nextPid++
	proc := &Process{
		pid:   1000 + l.nextPid,
		code:  l.ExitCodes[prog],
		block: l.Block[prog],
	}
	hook := l.OnStart
	l.mu.Unlock()

	if hook != nil {
		hook(spec)
	}
	return proc, nil
}

// Started returns a copy of every spec passed to Start, in order.
func (l *Launcher) Started() []process.Spec {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]process.Spec, len(l.started))
	copy(out, l.started)
	return out
}

// StartedPrograms lists Program(spec) for every started spec.
func (l *Launcher) StartedPrograms() []string {
	specs := l.Started()
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		out = append(out, Program(s))
	}
	return out
}

// Program names the program a spec effectively runs, looking through the
// taskset and timeout wrappers.
func Program(spec process.Spec) string {
	base := filepath.Base(spec.Name)
	switch {
	case base == "taskset" && len(spec.Args) >= 3:
		return filepath.Base(spec.Args[2])
	case base == "timeout" && len(spec.Args) >= 2:
		return filepath.Base(spec.Args[1])
	}
	return base
}

// Process is a fake child.
type Process struct {
	pid   int
	code  int
	block chan struct{}
}

func (p *Process) Pid() int { return p.pid }

func (p *Process) Wait() (int, error) {
	if p.block != nil {
		<-p.block
	}
	return p.code, nil
}
