package workload

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"cpu-verify/internal/config"
	"cpu-verify/internal/logging"
	"cpu-verify/internal/process"

	"github.com/google/shlex"
	"github.com/sirupsen/logrus"
)

// DefaultCandidates are probed after the PATH lookups of ptat and ptu.
var DefaultCandidates = []string{
	"/opt/intel/ptu/bin/ptu",
	"/opt/intel/PTU_Server/bin/ptu",
	"/usr/local/bin/ptat",
	"/usr/local/bin/ptu",
}

const DefaultPTUDevice = "/dev/ptusys"

// PreferredTool runs Intel PTU or PTAT with profile-specific arguments.
type PreferredTool struct {
	env      Env
	profile  config.Profile
	load     int
	template string
	binary   string
	found    bool
	device   string
}

type PreferredOptions struct {
	// Binary is the configured path; when empty the tool is autodetected.
	Binary     string
	Candidates []string
	// Device is checked to decide whether ptat needs -id.
	Device string
}

func NewPreferredTool(env Env, cfg config.RunConfig, opts PreferredOptions) *PreferredTool {
	if opts.Candidates == nil {
		opts.Candidates = DefaultCandidates
	}
	if opts.Device == "" {
		opts.Device = DefaultPTUDevice
	}

	binary, found := opts.Binary, false
	if binary == "" {
		binary = autodetect(env.Launcher, opts.Candidates)
		found = binary != ""
	} else {
		found = configuredExists(env.Launcher, binary)
	}

	return &PreferredTool{
		env:      env,
		profile:  cfg.Profile,
		load:     cfg.Load,
		template: cfg.Template,
		binary:   binary,
		found:    found,
		device:   opts.Device,
	}
}

func configuredExists(launcher process.Launcher, binary string) bool {
	if strings.ContainsRune(binary, filepath.Separator) {
		_, err := os.Stat(binary)
		return err == nil
	}
	_, err := launcher.LookPath(binary)
	return err == nil
}

func autodetect(launcher process.Launcher, candidates []string) string {
	for _, name := range []string{"ptat", "ptu"} {
		if path, err := launcher.LookPath(name); err == nil {
			return path
		}
	}
	for _, c := range candidates {
		if isExecutable(c) {
			return c
		}
	}
	return ""
}

func isExecutable(path string) bool {
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return false
	}
	return info.Mode().Perm()&0o111 != 0
}

func (p *PreferredTool) Name() string { return "PTU/PTAT" }

func (p *PreferredTool) Tier() int { return 1 }

// Binary is the resolved tool path, empty when none was found.
func (p *PreferredTool) Binary() string { return p.binary }

// needsIDFlag reports whether a ptat binary has to run in -id mode because
// the PTU driver device is absent.
func (p *PreferredTool) needsIDFlag() bool {
	if !strings.HasPrefix(filepath.Base(p.binary), "ptat") {
		return false
	}
	_, err := os.Stat(p.device)
	return err != nil
}

// Command builds the invocation for the configured profile.
func (p *PreferredTool) Command() (process.Spec, error) {
	duration := strconv.Itoa(p.env.Duration)
	load := strconv.Itoa(p.load)

	if p.profile == config.ProfileCustom {
		return customCommand(p.template, p.binary, load, duration)
	}

	var args []string
	if p.needsIDFlag() {
		args = append(args, "-id")
	}

	ct, cp := "3", load
	switch p.profile {
	case config.ProfileServerLab:
		cp = "100"
	case config.ProfileAVX2:
		ct = "4"
	case config.ProfileAVX512:
		ct = "5"
	}
	args = append(args, "-ct", ct, "-cp", cp, "-t", duration, "-y", "-q")

	return process.Spec{Name: p.binary, Args: args}, nil
}

func customCommand(template, binary, load, duration string) (process.Spec, error) {
	if strings.TrimSpace(template) == "" {
		template = config.DefaultTemplate
	}
	line := strings.NewReplacer(
		"{PTU_BIN}", binary,
		"{LOAD}", load,
		"{DURATION}", duration,
	).Replace(template)

	parts, err := shlex.Split(line)
	if err != nil {
		return process.Spec{}, fmt.Errorf("failed to split custom template: %w", err)
	}
	if len(parts) == 0 {
		return process.Spec{}, fmt.Errorf("custom template is empty")
	}
	return process.Spec{Name: parts[0], Args: parts[1:]}, nil
}

func (p *PreferredTool) Run(ctx context.Context) Result {
	logger := logging.GetLogger()

	if !p.found {
		logger.WithField("binary", p.binary).Info("PTU/PTAT not available; skipping")
		return Result{Outcome: Skipped}
	}

	spec, err := p.Command()
	if err != nil {
		logger.WithError(err).Warn("Cannot build PTU command")
		return Result{Outcome: Failure, ExitCode: -1}
	}

	res := p.env.runCommand(ctx, spec)
	entry := logger.WithFields(logrus.Fields{
		"binary":    p.binary,
		"profile":   string(p.profile),
		"exit_code": res.ExitCode,
	})
	if res.Outcome == Success {
		entry.Info("PTU/PTAT completed")
	} else {
		entry.Warn("PTU/PTAT failed")
	}
	return res
}
