package workload

import (
	"context"
	"strconv"

	"cpu-verify/internal/logging"
	"cpu-verify/internal/process"

	"github.com/sirupsen/logrus"
)

// StressNG is the generic tier: a matrix-product load on every CPU.
type StressNG struct {
	env Env
}

func NewStressNG(env Env) *StressNG {
	return &StressNG{env: env}
}

func (s *StressNG) Name() string { return "stress-ng" }

func (s *StressNG) Tier() int { return 2 }

func (s *StressNG) Command(bin string) process.Spec {
	return process.Spec{
		Name: bin,
		Args: []string{
			"--cpu", strconv.Itoa(s.env.CPUs),
			"--cpu-method", "matrixprod",
			"--timeout", strconv.Itoa(s.env.Duration) + "s",
			"--metrics-brief",
			"--verify",
		},
	}
}

func (s *StressNG) Run(ctx context.Context) Result {
	logger := logging.GetLogger()

	bin, err := s.env.Launcher.LookPath("stress-ng")
	if err != nil {
		logger.Info("stress-ng not installed; skipping")
		return Result{Outcome: Skipped}
	}

	res := s.env.runCommand(ctx, s.Command(bin))
	entry := logger.WithFields(logrus.Fields{
		"cpus":      s.env.CPUs,
		"exit_code": res.ExitCode,
	})
	if res.Outcome == Success {
		entry.Info("stress-ng completed")
	} else {
		entry.Warn("stress-ng failed")
	}
	return res
}
