// Package governor switches the cpufreq scaling governor for the duration
// of a run and puts the previous one back afterwards.
package governor

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"

	"cpu-verify/internal/config"
	"cpu-verify/internal/logging"
	"cpu-verify/internal/process"

	"github.com/sirupsen/logrus"
)

const (
	DefaultSysfsPath = "/sys/devices/system/cpu/cpu0/cpufreq/scaling_governor"
	fallbackGovernor = "ondemand"
	cpupowerBinary   = "cpupower"
)

type Controller struct {
	launcher  process.Launcher
	sysfsPath string
}

func NewController(launcher process.Launcher, sysfsPath string) *Controller {
	if sysfsPath == "" {
		sysfsPath = DefaultSysfsPath
	}
	return &Controller{launcher: launcher, sysfsPath: sysfsPath}
}

// Current reads the active governor of cpu0.
func (c *Controller) Current() (string, bool) {
	data, err := os.ReadFile(c.sysfsPath)
	if err != nil {
		return "", false
	}
	gov := strings.TrimSpace(string(data))
	return gov, gov != ""
}

// Acquire applies mode and returns the function that undoes it. restore is
// never nil and runs at most once however often it is called. With keep, or
// without cpupower, nothing is changed.
func (c *Controller) Acquire(ctx context.Context, mode config.GovernorMode) (restore func(), err error) {
	logger := logging.GetLogger()
	noop := func() {}

	if mode == config.GovernorKeep {
		logger.Info("Keeping current CPU governor")
		return noop, nil
	}

	bin, err := c.launcher.LookPath(cpupowerBinary)
	if err != nil {
		logger.WithField("governor", string(mode)).Warn("cpupower not found; governor left unchanged")
		return noop, nil
	}

	previous, ok := c.Current()
	if !ok {
		previous = fallbackGovernor
		logger.WithField("fallback", previous).Debug("Current governor unreadable")
	}

	restore = c.restorer(ctx, bin, previous)

	if err := c.set(ctx, bin, string(mode)); err != nil {
		return restore, err
	}
	logger.WithFields(logrus.Fields{
		"governor": string(mode),
		"previous": previous,
	}).Info("CPU governor set")
	return restore, nil
}

func (c *Controller) restorer(ctx context.Context, bin, previous string) func() {
	var once sync.Once
	detached := context.WithoutCancel(ctx)
	return func() {
		once.Do(func() {
			logger := logging.GetLogger()
			if err := c.set(detached, bin, previous); err != nil {
				logger.WithError(err).Warn("Failed to restore CPU governor")
				return
			}
			logger.WithField("governor", previous).Info("Restored CPU governor")
		})
	}
}

func (c *Controller) set(ctx context.Context, bin, governor string) error {
	code, err := process.Run(ctx, c.launcher, process.Spec{
		Name: bin,
		Args: []string{"frequency-set", "-g", governor},
	})
	if err != nil {
		return fmt.Errorf("failed to set governor %s: %w", governor, err)
	}
	if code != 0 {
		return fmt.Errorf("cpupower frequency-set -g %s exited with %d", governor, code)
	}
	return nil
}
