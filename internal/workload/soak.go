package workload

import (
	"context"
	"fmt"
	"strconv"

	"cpu-verify/internal/logging"
	"cpu-verify/internal/process"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Soak is the last resort: one "timeout Ds yes" per CPU. It never fails;
// processes that cannot be spawned are only logged.
type Soak struct {
	env Env
}

func NewSoak(env Env) *Soak {
	return &Soak{env: env}
}

func (s *Soak) Name() string { return "soak" }

func (s *Soak) Tier() int { return 3 }

func (s *Soak) resolve(name string) string {
	if path, err := s.env.Launcher.LookPath(name); err == nil {
		return path
	}
	return name
}

func (s *Soak) Run(ctx context.Context) Result {
	logger := logging.GetLogger()

	spec := process.Spec{
		Name: s.resolve("timeout"),
		Args: []string{strconv.Itoa(s.env.Duration) + "s", s.resolve("yes")},
	}
	s.env.Log.Command(spec)

	procs := make([]process.Process, 0, s.env.CPUs)
	for i := 0; i < s.env.CPUs; i++ {
		proc, err := s.env.Launcher.Start(ctx, spec)
		if err != nil {
			logger.WithField("index", i).WithError(err).Warn("Failed to spawn soak process")
			continue
		}
		procs = append(procs, proc)
	}

	logger.WithFields(logrus.Fields{
		"processes": len(procs),
		"requested": s.env.CPUs,
	}).Info("CPU soaker running")

	var group errgroup.Group
	for _, proc := range procs {
		proc := proc
		group.Go(func() error {
			if _, err := proc.Wait(); err != nil {
				return fmt.Errorf("soak process %d: %w", proc.Pid(), err)
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		logger.WithError(err).Debug("Soak process wait failed")
	}

	logger.Info("CPU soaker completed")
	return Result{Outcome: Success, Command: spec.String()}
}
