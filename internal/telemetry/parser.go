package telemetry

import (
	"bufio"
	"io"
	"math"
	"os"
	"strconv"
	"strings"

	"cpu-verify/internal/dataframe"
	"cpu-verify/internal/logging"

	"github.com/samber/lo"
	"github.com/sirupsen/logrus"
)

// FrequencyColumns are the header names accepted as the frequency column,
// in priority order within the header.
var FrequencyColumns = []string{"Avg_MHz", "Bzy_MHz"}

// ParseFile reads a turbostat output file into a per-second series. Any
// problem with the file yields an empty series.
func ParseFile(path string) dataframe.Series {
	logger := logging.GetLogger()

	file, err := os.Open(path)
	if err != nil {
		logger.WithField("path", path).WithError(err).Debug("Telemetry file not readable")
		return dataframe.Series{}
	}
	defer file.Close()

	return Parse(file)
}

// Parse reads a whitespace table whose first non-blank line is the header.
// Rows whose timestamp or frequency cell does not parse, or that are too
// short to hold the frequency column, are skipped.
func Parse(r io.Reader) dataframe.Series {
	logger := logging.GetLogger()

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	column := -1
	headerSeen := false
	frame := dataframe.NewFrame()
	skipped := 0

	for scanner.Scan() {
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			continue
		}

		if !headerSeen {
			headerSeen = true
			column = frequencyColumn(fields)
			if column < 0 {
				logger.WithField("header", strings.Join(fields, " ")).Debug("No frequency column in telemetry header")
				return dataframe.Series{}
			}
			continue
		}

		if len(fields) <= column {
			skipped++
			continue
		}
		ts, ok := parseTimestamp(fields[0])
		if !ok {
			skipped++
			continue
		}
		value, err := strconv.ParseFloat(fields[column], 64)
		if err != nil || math.IsNaN(value) || math.IsInf(value, 0) {
			skipped++
			continue
		}
		frame.Add(ts, value)
	}

	if err := scanner.Err(); err != nil {
		logger.WithError(err).Warn("Telemetry read stopped early")
	}

	series := frame.Series()
	logger.WithFields(logrus.Fields{
		"points":   series.Len(),
		"readings": frame.Readings(),
		"skipped":  skipped,
	}).Debug("Parsed telemetry")

	return series
}

// parseTimestamp truncates a decimal timestamp to whole seconds. Values that
// are not finite or do not fit in an int64 are rejected.
func parseTimestamp(token string) (int64, bool) {
	ts, err := strconv.ParseFloat(token, 64)
	if err != nil || math.IsNaN(ts) || math.IsInf(ts, 0) {
		return 0, false
	}
	if ts < math.MinInt64 || ts >= math.MaxInt64 {
		return 0, false
	}
	return int64(ts), true
}

func frequencyColumn(header []string) int {
	_, idx, found := lo.FindIndexOf(header, func(name string) bool {
		return lo.Contains(FrequencyColumns, name)
	})
	if !found {
		return -1
	}
	return idx
}
