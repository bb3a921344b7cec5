// Package collectors reads hardware performance counters around a run.
package collectors

import (
	"fmt"
	"sync"
	"time"

	"cpu-verify/internal/logging"

	"github.com/elastic/go-perf"
	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// Frequency is an effective clock rate that may be unavailable.
type Frequency struct {
	Available bool    `json:"available"`
	MHz       float64 `json:"mhz,omitempty"`
	CPUs      int     `json:"cpus,omitempty"`
}

func (f Frequency) String() string {
	if !f.Available {
		return "N/A"
	}
	return fmt.Sprintf("%.0f", f.MHz)
}

// CycleReading is one CPU's counter state at the end of a run.
type CycleReading struct {
	Value   uint64
	Enabled time.Duration
	Running time.Duration
}

// Scaled corrects the count for multiplexing.
func (r CycleReading) Scaled() float64 {
	if r.Running <= 0 || r.Enabled <= 0 {
		return float64(r.Value)
	}
	if r.Running == r.Enabled {
		return float64(r.Value)
	}
	return float64(r.Value) * float64(r.Enabled) / float64(r.Running)
}

// EffectiveMHz averages cycles per second across readings over elapsed.
func EffectiveMHz(readings []CycleReading, elapsed time.Duration) Frequency {
	if len(readings) == 0 || elapsed <= 0 {
		return Frequency{}
	}
	perCPU := lo.Map(readings, func(r CycleReading, _ int) float64 {
		return r.Scaled() / elapsed.Seconds() / 1e6
	})
	return Frequency{
		Available: true,
		MHz:       lo.Sum(perCPU) / float64(len(perCPU)),
		CPUs:      len(perCPU),
	}
}

// CycleCounter holds one system-wide cpu-cycles event per CPU.
type CycleCounter struct {
	events  []*perf.Event
	cpus    []int
	started time.Time
	mutex   sync.Mutex
}

// NewCycleCounter opens and enables the events. Any failure closes what was
// opened and returns an error; callers treat that as "unavailable".
func NewCycleCounter(cpus []int) (*CycleCounter, error) {
	logger := logging.GetLogger()

	cc := &CycleCounter{cpus: cpus}
	for _, cpu := range cpus {
		attr := &perf.Attr{}
		perf.CPUCycles.Configure(attr)
		attr.CountFormat.Enabled = true
		attr.CountFormat.Running = true

		event, err := perf.Open(attr, perf.AllThreads, cpu, nil)
		if err != nil {
			cc.Close()
			logger.WithField("cpu", cpu).WithError(err).Debug("Failed to open cpu-cycles event")
			return nil, fmt.Errorf("failed to open cpu-cycles on cpu %d: %w", cpu, err)
		}
		cc.events = append(cc.events, event)
	}

	for _, event := range cc.events {
		if err := event.Enable(); err != nil {
			cc.Close()
			return nil, fmt.Errorf("failed to enable perf event: %w", err)
		}
	}
	cc.started = time.Now()

	logger.WithField("cpus", len(cpus)).Debug("Cycle counters enabled")
	return cc, nil
}

// Read collects the per-CPU counts and the effective frequency since the
// counters were enabled. CPUs whose read fails are left out.
func (cc *CycleCounter) Read() Frequency {
	if cc == nil {
		return Frequency{}
	}
	cc.mutex.Lock()
	defer cc.mutex.Unlock()

	elapsed := time.Since(cc.started)
	readings := make([]CycleReading, 0, len(cc.events))
	for i, event := range cc.events {
		count, err := event.ReadCount()
		if err != nil {
			logging.GetLogger().WithFields(logrus.Fields{
				"cpu": cc.cpus[i],
			}).WithError(err).Debug("Failed to read cpu-cycles")
			continue
		}
		readings = append(readings, CycleReading{
			Value:   count.Value,
			Enabled: count.Enabled,
			Running: count.Running,
		})
	}
	return EffectiveMHz(readings, elapsed)
}

func (cc *CycleCounter) Close() {
	if cc == nil {
		return
	}
	for _, event := range cc.events {
		if event != nil {
			event.Close()
		}
	}
	cc.events = nil
}
