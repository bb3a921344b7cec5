package artifacts

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"cpu-verify/internal/bench"
)

const overviewTimeFormat = "2006-01-02 15:04:05"

// RenderOverview is the plain-text run summary.
func RenderOverview(o *bench.RunOutcome) string {
	binary := o.PreferredBinary
	if binary == "" {
		binary = "<not set>"
	}
	governor := o.GovernorRequested
	if o.GovernorApplied != "" && o.GovernorApplied != o.GovernorRequested {
		governor = fmt.Sprintf("%s (active: %s)", o.GovernorRequested, o.GovernorApplied)
	}

	var b strings.Builder
	b.WriteString("==== CPU Verify Overview ====\n")
	fmt.Fprintf(&b, "Start time  : %s\n", o.StartTime.Format(overviewTimeFormat))
	fmt.Fprintf(&b, "End time    : %s\n", o.EndTime.Format(overviewTimeFormat))
	fmt.Fprintf(&b, "Duration    : %ds\n", o.Config.Duration)
	fmt.Fprintf(&b, "Load        : %d%%\n", o.Config.Load)
	fmt.Fprintf(&b, "Cores       : %s\n", o.Config.Cores)
	fmt.Fprintf(&b, "Governor    : %s\n", governor)
	fmt.Fprintf(&b, "Profile     : %s\n", o.Config.Profile)
	fmt.Fprintf(&b, "PTU bin     : %s\n", binary)
	fmt.Fprintf(&b, "Log folder  : %s\n", o.Paths.Root)
	b.WriteString("\n-- Result Summary --\n")
	fmt.Fprintf(&b, "Status      : %s\n", o.Status)
	fmt.Fprintf(&b, "Workload    : %s (tier %d)\n", o.Result.Strategy, o.Result.Tier)
	fmt.Fprintf(&b, "Workload RC : %d\n", o.Result.ExitCode)
	fmt.Fprintf(&b, "Avg Power W : %s\n", o.Power)
	fmt.Fprintf(&b, "Eff. MHz    : %s\n", o.Frequency)
	fmt.Fprintf(&b, "Trend points: %d\n", o.Series.Len())
	if o.Series.Len() > 0 {
		fmt.Fprintf(&b, "Mean MHz    : %.0f\n", o.Series.Mean())
	}
	fmt.Fprintf(&b, "Turbostat   : %s\n", filepath.Base(o.Paths.TelemetryFile))
	fmt.Fprintf(&b, "Workload log: %s\n", filepath.Base(o.Paths.WorkloadLog))
	return b.String()
}

func WriteOverview(path string, o *bench.RunOutcome) error {
	if err := os.WriteFile(path, []byte(RenderOverview(o)), 0o644); err != nil {
		return fmt.Errorf("failed to write overview %s: %w", path, err)
	}
	return nil
}
