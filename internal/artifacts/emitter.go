// Package artifacts writes the files a finished run leaves behind in its
// run folder.
package artifacts

import (
	"errors"
	"path/filepath"

	"cpu-verify/internal/bench"
	"cpu-verify/internal/logging"

	"github.com/sirupsen/logrus"
)

const (
	OverviewFile    = "Overview.txt"
	TrendFile       = "trend.csv"
	RAPLSummaryFile = "rapl_summary.txt"
	OutcomeFile     = "outcome.json.gz"
)

// Emitter writes every artifact of a run. A failing artifact does not stop
// the others.
type Emitter struct {
	// Archive packs the run folder into <folder>.tar.gz as the last step.
	Archive bool
}

func NewEmitter(archive bool) *Emitter {
	return &Emitter{Archive: archive}
}

func (e *Emitter) Emit(o *bench.RunOutcome) error {
	logger := logging.GetLogger()
	var errs []error

	trend := filepath.Join(o.Paths.Telemetry, TrendFile)
	if err := WriteTrendCSV(trend, o.Series); err != nil {
		errs = append(errs, err)
	}

	if o.Power.Available {
		if err := WriteRAPLSummary(filepath.Join(o.Paths.Telemetry, RAPLSummaryFile), o.Power); err != nil {
			errs = append(errs, err)
		}
	}

	overview := filepath.Join(o.Paths.Root, OverviewFile)
	if err := WriteOverview(overview, o); err != nil {
		errs = append(errs, err)
	}

	if _, err := WriteOutcome(filepath.Join(o.Paths.Root, OutcomeFile), o); err != nil {
		errs = append(errs, err)
	}

	logger.WithFields(logrus.Fields{
		"overview": overview,
		"trend":    trend,
	}).Info("Run artifacts written")

	if e.Archive {
		if err := Package(o.Paths.Root, o.Paths.Archive); err != nil {
			errs = append(errs, err)
		} else {
			logger.WithField("archive", o.Paths.Archive).Info("Results packaged")
		}
	}

	return errors.Join(errs...)
}
