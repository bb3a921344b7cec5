package workload

import (
	"cpu-verify/internal/config"
	"cpu-verify/internal/logging"
	"cpu-verify/internal/process"

	"github.com/sirupsen/logrus"
)

// Affinity pins tier 1 and 2 commands to a core range through taskset. The
// zero value runs commands unpinned.
type Affinity struct {
	Range   config.CoreRange
	taskset string
}

// ResolveAffinity parses the configured cores leniently. A malformed range
// or a missing taskset leaves the workload unpinned, with a warning.
func ResolveAffinity(launcher process.Launcher, cores string) Affinity {
	logger := logging.GetLogger()

	r, err := config.ParseCoreRange(cores)
	if err != nil {
		logger.WithFields(logrus.Fields{
			"cores": cores,
		}).WithError(err).Warn("Invalid core range; running workload WITHOUT CPU affinity")
		return Affinity{}
	}
	if r.All {
		return Affinity{}
	}

	bin, err := launcher.LookPath("taskset")
	if err != nil {
		logger.WithField("cores", r.String()).Warn("taskset not found; running workload WITHOUT CPU affinity")
		return Affinity{}
	}

	logger.WithField("cores", r.String()).Info("Workload pinned with taskset")
	return Affinity{Range: r, taskset: bin}
}

func (a Affinity) Enabled() bool {
	return a.taskset != ""
}

// Wrap prefixes spec with taskset when pinning is enabled.
func (a Affinity) Wrap(spec process.Spec) process.Spec {
	if !a.Enabled() {
		return spec
	}
	args := append([]string{"-c", a.Range.String(), spec.Name}, spec.Args...)
	return process.Spec{
		Name:   a.taskset,
		Args:   args,
		Stdout: spec.Stdout,
		Stderr: spec.Stderr,
	}
}
