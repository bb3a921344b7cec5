package bench

import (
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const stampLayout = "20060102_150405"

// Paths is the on-disk layout of one run folder.
type Paths struct {
	Root          string `json:"root"`
	Sysinfo       string `json:"sysinfo"`
	Telemetry     string `json:"telemetry"`
	Workload      string `json:"workload"`
	ConsoleLog    string `json:"console_log"`
	TelemetryFile string `json:"telemetry_file"`
	WorkloadLog   string `json:"workload_log"`
	Archive       string `json:"archive"`
}

// NewPaths lays out <base>/run_<stamp>/{sysinfo,telemetry,workload}.
func NewPaths(base string, at time.Time) Paths {
	stamp := at.Format(stampLayout)
	root := filepath.Join(base, "run_"+stamp)
	p := Paths{
		Root:      root,
		Sysinfo:   filepath.Join(root, "sysinfo"),
		Telemetry: filepath.Join(root, "telemetry"),
		Workload:  filepath.Join(root, "workload"),
	}
	p.ConsoleLog = filepath.Join(root, "console_"+stamp+".log")
	p.TelemetryFile = filepath.Join(p.Telemetry, "turbostat_"+stamp+".txt")
	p.WorkloadLog = filepath.Join(p.Workload, "run_"+stamp+".txt")
	p.Archive = root + ".tar.gz"
	return p
}

// RunID is the folder name, unique per second.
func (p Paths) RunID() string {
	return filepath.Base(p.Root)
}

func (p Paths) Create() error {
	for _, dir := range []string{p.Root, p.Sysinfo, p.Telemetry, p.Workload} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create run directory %s: %w", dir, err)
		}
	}
	return nil
}
