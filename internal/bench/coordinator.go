// Package bench runs one CPU verification: it holds the governor for the
// run, brackets the workload with energy, cycle and turbostat telemetry, and
// hands the assembled RunOutcome to the sinks.
package bench

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"cpu-verify/internal/collectors"
	"cpu-verify/internal/config"
	"cpu-verify/internal/energy"
	"cpu-verify/internal/governor"
	"cpu-verify/internal/host"
	"cpu-verify/internal/logging"
	"cpu-verify/internal/process"
	"cpu-verify/internal/telemetry"
	"cpu-verify/internal/workload"

	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const outcomeVersion = 1

type GovernorController interface {
	Acquire(ctx context.Context, mode config.GovernorMode) (func(), error)
	Current() (string, bool)
}

type PowerMeter interface {
	Start()
	Stop() energy.Power
}

type CycleReader interface {
	Read() collectors.Frequency
	Close()
}

// Emitter writes the run artifacts.
type Emitter interface {
	Emit(outcome *RunOutcome) error
}

// Exporter ships the outcome to an external sink.
type Exporter interface {
	Export(ctx context.Context, outcome *RunOutcome) error
}

// Deps are the host-facing collaborators of a Coordinator. Zero fields get
// the real implementation.
type Deps struct {
	Launcher   process.Launcher
	Governor   GovernorController
	Power      PowerMeter
	OpenCycles func(cpus []int) (CycleReader, error)
	Host       *host.HostConfig
	Preferred  workload.PreferredOptions
	Emitter    Emitter
	Exporter   Exporter
	Now        func() time.Time
}

type Coordinator struct {
	cfg  config.RunConfig
	deps Deps
}

func NewCoordinator(cfg config.RunConfig, deps Deps) *Coordinator {
	if deps.Launcher == nil {
		deps.Launcher = process.ExecLauncher{}
	}
	if deps.Governor == nil {
		deps.Governor = governor.NewController(deps.Launcher, governor.DefaultSysfsPath)
	}
	if deps.Power == nil {
		deps.Power = energy.NewMeter(energy.DefaultPowercapRoot)
	}
	if deps.OpenCycles == nil {
		deps.OpenCycles = openCycleCounter
	}
	if deps.Host == nil {
		deps.Host = &host.HostConfig{LogicalCPUs: 1}
	}
	if deps.Now == nil {
		deps.Now = time.Now
	}
	return &Coordinator{cfg: cfg, deps: deps}
}

func openCycleCounter(cpus []int) (CycleReader, error) {
	cc, err := collectors.NewCycleCounter(cpus)
	if err != nil {
		return nil, err
	}
	return cc, nil
}

// Run executes the whole verification. The only error returned is a failure
// to create the run folder; everything after that degrades and continues.
func (c *Coordinator) Run(ctx context.Context) (*RunOutcome, error) {
	logger := logging.GetLogger()
	cfg := c.cfg

	start := c.deps.Now()
	paths := NewPaths(cfg.LogBase, start)
	if err := paths.Create(); err != nil {
		return nil, err
	}

	detach, err := logging.AttachRunLog(paths.ConsoleLog)
	if err != nil {
		logger.WithError(err).Warn("Console log unavailable; logging to stderr only")
	} else {
		defer detach()
	}

	c.logSetup(paths)
	c.writeSysinfo(paths)

	workLog, err := workload.OpenLog(paths.WorkloadLog, string(cfg.Profile))
	if err != nil {
		logger.WithError(err).Warn("Workload log unavailable")
	}
	defer workLog.Close()

	restore, err := c.deps.Governor.Acquire(ctx, cfg.Governor)
	if err != nil {
		logger.WithError(err).Warn("Failed to apply CPU governor")
	}
	defer restore()
	applied, _ := c.deps.Governor.Current()

	c.deps.Power.Start()
	cycles := c.openCycles()

	sampler := telemetry.NewSampler(c.deps.Launcher, cfg.Telemetry.Interval)
	capture, err := sampler.Start(ctx, cfg.Duration, paths.TelemetryFile)
	if err != nil {
		logger.WithError(err).Warn("Failed to start turbostat")
	}

	env := workload.Env{
		Launcher: c.deps.Launcher,
		Log:      workLog,
		Affinity: workload.ResolveAffinity(c.deps.Launcher, cfg.Cores),
		Duration: cfg.Duration,
		CPUs:     c.deps.Host.LogicalCPUs,
	}
	preferred, tiers := workload.Tiers(env, cfg, c.deps.Preferred)
	logger.WithField("binary", displayBinary(preferred.Binary())).Info("PTU binary")
	selector := workload.NewSelector(tiers...)

	if capture != nil {
		logger.WithField("lag", time.Since(capture.Started)).Debug("Workload start lag behind telemetry")
	}
	completion := selector.Run(ctx)

	telemetryComplete := capture.Wait(ctx, cfg.TelemetryDeadline(), cfg.TelemetryGrace())

	power := c.deps.Power.Stop()
	frequency := collectors.Frequency{}
	if cycles != nil {
		frequency = cycles.Read()
		cycles.Close()
	}

	series := telemetry.ParseFile(paths.TelemetryFile)
	restore()

	outcome := &RunOutcome{
		Version:           outcomeVersion,
		ID:                uuid.NewString(),
		RunID:             paths.RunID(),
		Config:            cfg,
		Host:              c.deps.Host,
		Paths:             paths,
		Status:            completion.Status,
		Result:            completion,
		PreferredBinary:   preferred.Binary(),
		GovernorRequested: string(cfg.Governor),
		GovernorApplied:   applied,
		Series:            series,
		TelemetryComplete: telemetryComplete,
		Power:             power,
		Frequency:         frequency,
		StartTime:         start,
		EndTime:           c.deps.Now(),
	}

	c.publish(context.WithoutCancel(ctx), outcome)

	entry := logger.WithFields(logrus.Fields{
		"status":    string(outcome.Status),
		"exit_code": completion.ExitCode,
		"power_w":   power.String(),
		"points":    series.Len(),
	})
	if outcome.Succeeded() {
		entry.Info("CPU verification run completed")
	} else {
		entry.Error("CPU verification run encountered issues")
	}
	return outcome, nil
}

func (c *Coordinator) openCycles() CycleReader {
	cpus := lo.Range(c.deps.Host.LogicalCPUs)
	cycles, err := c.deps.OpenCycles(cpus)
	if err != nil {
		logging.GetLogger().WithError(err).Warn("CPU cycle counters unavailable; effective frequency will be N/A")
		return nil
	}
	return cycles
}

func (c *Coordinator) publish(ctx context.Context, outcome *RunOutcome) {
	logger := logging.GetLogger()

	if c.deps.Emitter != nil {
		if err := c.deps.Emitter.Emit(outcome); err != nil {
			logger.WithError(err).Warn("Failed to write some run artifacts")
		}
	}
	if c.deps.Exporter != nil {
		if err := c.deps.Exporter.Export(ctx, outcome); err != nil {
			logger.WithError(err).Warn("Failed to export run to InfluxDB")
		}
	}
}

func (c *Coordinator) logSetup(paths Paths) {
	cfg := c.cfg
	logging.GetLogger().WithFields(logrus.Fields{
		"duration": fmt.Sprintf("%ds", cfg.Duration),
		"load":     cfg.Load,
		"governor": string(cfg.Governor),
		"cores":    cfg.Cores,
		"profile":  string(cfg.Profile),
		"log_dir":  paths.Root,
	}).Info("CPU verification setup")
}

func (c *Coordinator) writeSysinfo(paths Paths) {
	if err := c.deps.Host.WriteYAML(filepath.Join(paths.Sysinfo, "host.yaml")); err != nil {
		logging.GetLogger().WithError(err).Warn("Failed to write host info")
	}
}

func displayBinary(bin string) string {
	if bin == "" {
		return "<not set>"
	}
	return bin
}
