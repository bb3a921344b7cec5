package artifacts

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"

	"cpu-verify/internal/dataframe"
	"cpu-verify/internal/energy"
)

// WriteTrendCSV writes the series as timestamp,avg_mhz rows.
func WriteTrendCSV(path string, series dataframe.Series) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create trend file %s: %w", path, err)
	}
	defer file.Close()

	if err := EncodeTrendCSV(file, series); err != nil {
		return fmt.Errorf("failed to write trend file %s: %w", path, err)
	}
	return file.Close()
}

func EncodeTrendCSV(w io.Writer, series dataframe.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"timestamp", "avg_mhz"}); err != nil {
		return err
	}
	for _, p := range series {
		row := []string{
			strconv.FormatInt(p.Timestamp, 10),
			strconv.FormatFloat(p.Value, 'f', 2, 64),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteRAPLSummary records the energy figures behind the average power.
func WriteRAPLSummary(path string, power energy.Power) error {
	content := fmt.Sprintf("duration_s=%.0f\nenergy_delta_uj=%d\navg_power_W=%s\n",
		power.Seconds, power.DeltaMicrojoules, power)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		return fmt.Errorf("failed to write RAPL summary %s: %w", path, err)
	}
	return nil
}
