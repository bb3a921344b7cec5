// Package energy averages package power over a run from the RAPL powercap
// counters.
package energy

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"cpu-verify/internal/logging"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

const DefaultPowercapRoot = "/sys/class/powercap"

// Snapshot maps a counter file to its cumulative microjoule reading. Files
// that could not be read are absent.
type Snapshot struct {
	Taken  time.Time
	Values map[string]uint64
}

// Power is an average wattage that may be unavailable.
type Power struct {
	Available bool    `json:"available"`
	Watts     float64 `json:"watts,omitempty"`
	// DeltaMicrojoules is the summed energy between the snapshots.
	DeltaMicrojoules uint64  `json:"energy_delta_uj,omitempty"`
	Seconds          float64 `json:"seconds,omitempty"`
}

func (p Power) String() string {
	if !p.Available {
		return "N/A"
	}
	return fmt.Sprintf("%.2f", p.Watts)
}

// Discover lists the top-level zone counters under root. Sub-zones such as
// intel-rapl:0:0 are left out since their package zone already includes them.
func Discover(root string) []string {
	matches, err := filepath.Glob(filepath.Join(root, "*", "energy_uj"))
	if err != nil {
		return nil
	}
	files := lo.Filter(matches, func(path string, _ int) bool {
		zone := filepath.Base(filepath.Dir(path))
		return strings.Count(zone, ":") <= 1
	})
	sort.Strings(files)
	return files
}

func readCounter(path string) (uint64, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}
	return strconv.ParseUint(strings.TrimSpace(string(b)), 10, 64)
}

// Take reads every file once.
func Take(files []string) Snapshot {
	logger := logging.GetLogger()
	snap := Snapshot{Taken: time.Now(), Values: make(map[string]uint64, len(files))}
	for _, f := range files {
		v, err := readCounter(f)
		if err != nil {
			logger.WithField("file", f).WithError(err).Debug("Failed to read energy counter")
			continue
		}
		snap.Values[f] = v
	}
	return snap
}

// Delta sums the per-file increase between two snapshots. A file that went
// backwards or is missing from either snapshot adds nothing.
func Delta(start, end Snapshot) uint64 {
	var total uint64
	for f, before := range start.Values {
		after, ok := end.Values[f]
		if !ok || after < before {
			continue
		}
		total += after - before
	}
	return total
}

// Average converts two snapshots to mean watts over their wall-clock span.
func Average(start, end Snapshot) Power {
	delta := Delta(start, end)
	seconds := end.Taken.Sub(start.Taken).Seconds()
	if seconds <= 0 {
		return Power{Available: true, DeltaMicrojoules: delta}
	}
	watts := float64(delta) / 1e6 / seconds
	if watts < 0 {
		watts = 0
	}
	return Power{Available: true, Watts: watts, DeltaMicrojoules: delta, Seconds: seconds}
}

// Meter brackets a run with two snapshots.
type Meter struct {
	root  string
	files []string
	start *Snapshot
}

func NewMeter(root string) *Meter {
	files := Discover(root)
	logging.GetLogger().WithFields(logrus.Fields{
		"root":     root,
		"counters": len(files),
	}).Debug("RAPL counters discovered")
	return &Meter{root: root, files: files}
}

func (m *Meter) Available() bool { return len(m.files) > 0 }

func (m *Meter) Files() []string { return m.files }

// Start takes the first snapshot. Without counters it only warns.
func (m *Meter) Start() {
	if !m.Available() {
		logging.GetLogger().WithField("root", m.root).Warn("No RAPL energy_uj counters found; average power will be N/A")
		return
	}
	snap := Take(m.files)
	m.start = &snap
}

// Stop takes the end snapshot and returns the average since Start.
func (m *Meter) Stop() Power {
	if !m.Available() || m.start == nil {
		return Power{}
	}
	end := Take(m.files)
	power := Average(*m.start, end)
	logging.GetLogger().WithFields(logrus.Fields{
		"watts":           power.String(),
		"energy_delta_uj": power.DeltaMicrojoules,
	}).Info("Average package power (RAPL)")
	return power
}
