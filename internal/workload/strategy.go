// Package workload picks and runs the CPU stress generator, falling back
// through progressively simpler tools until one completes.
package workload

import (
	"context"

	"cpu-verify/internal/process"
)

// Outcome of a single strategy attempt.
type Outcome int

const (
	// Skipped means the tool is not available; nothing was run.
	Skipped Outcome = iota
	Success
	Failure
)

func (o Outcome) String() string {
	switch o {
	case Success:
		return "success"
	case Failure:
		return "failure"
	default:
		return "skipped"
	}
}

type Result struct {
	Outcome  Outcome
	ExitCode int
	Command  string
}

// Strategy is one fallback tier.
type Strategy interface {
	Name() string
	Tier() int
	Run(ctx context.Context) Result
}

// Env is what every strategy needs to launch its processes.
type Env struct {
	Launcher process.Launcher
	Log      *Log
	Affinity Affinity
	Duration int
	CPUs     int
}

// runCommand logs, wraps and runs a tier 1 or 2 command to completion.
func (e Env) runCommand(ctx context.Context, spec process.Spec) Result {
	spec = e.Affinity.Wrap(spec)
	spec.Stdout = e.Log
	spec.Stderr = e.Log
	e.Log.Command(spec)

	code, err := process.Run(ctx, e.Launcher, spec)
	res := Result{ExitCode: code, Command: spec.String()}
	if err != nil || code != 0 {
		res.Outcome = Failure
		if code == 0 {
			res.ExitCode = -1
		}
		return res
	}
	res.Outcome = Success
	return res
}
