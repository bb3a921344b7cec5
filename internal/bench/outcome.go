package bench

import (
	"time"

	"cpu-verify/internal/collectors"
	"cpu-verify/internal/config"
	"cpu-verify/internal/dataframe"
	"cpu-verify/internal/energy"
	"cpu-verify/internal/host"
	"cpu-verify/internal/workload"
)

// RunOutcome is everything known about a finished run. It is assembled once
// by the Coordinator and handed to the sinks read-only.
type RunOutcome struct {
	Version int    `json:"version"`
	ID      string `json:"id"`
	RunID   string `json:"run_id"`

	Config config.RunConfig    `json:"config"`
	Host   *host.HostConfig    `json:"host,omitempty"`
	Paths  Paths               `json:"paths"`
	Status workload.Status     `json:"status"`
	Result workload.Completion `json:"workload"`

	PreferredBinary   string `json:"preferred_binary,omitempty"`
	GovernorRequested string `json:"governor_requested"`
	GovernorApplied   string `json:"governor_applied,omitempty"`

	Series            dataframe.Series     `json:"series"`
	TelemetryComplete bool                 `json:"telemetry_complete"`
	Power             energy.Power         `json:"power"`
	Frequency         collectors.Frequency `json:"frequency"`

	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
}

// Succeeded is true only for a clean success.
func (o *RunOutcome) Succeeded() bool {
	return o.Status == workload.StatusSuccess
}

func (o *RunOutcome) Elapsed() time.Duration {
	return o.EndTime.Sub(o.StartTime)
}
