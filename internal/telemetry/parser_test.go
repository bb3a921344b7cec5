package telemetry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"cpu-verify/internal/dataframe"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_AveragesRowsSharingTimestamp(t *testing.T) {
	input := "Time Avg_MHz Bzy_MHz\n12 2400 2500\n12 2600 2700\n"

	series := Parse(strings.NewReader(input))
	assert.Equal(t, dataframe.Series{{Timestamp: 12, Value: 2500.0}}, series)
}

func TestParse_BusyColumnWhenAverageMissing(t *testing.T) {
	input := `
Time    Core  CPU  Bzy_MHz  TSC_MHz
1.4     -     -    3000     2100
1.9     0     0    3200     2100
2.2     0     1    2800     2100
`
	series := Parse(strings.NewReader(input))
	require.Len(t, series, 2)
	assert.Equal(t, int64(1), series[0].Timestamp)
	assert.InDelta(t, 3100.0, series[0].Value, 1e-9)
	assert.Equal(t, int64(2), series[1].Timestamp)
	assert.InDelta(t, 2800.0, series[1].Value, 1e-9)
}

func TestParse_FirstMatchingHeaderTokenWins(t *testing.T) {
	input := "Time Bzy_MHz Avg_MHz\n1 3000 1000\n"

	series := Parse(strings.NewReader(input))
	require.Len(t, series, 1)
	assert.Equal(t, 3000.0, series[0].Value)
}

func TestParse_SkipsMalformedRows(t *testing.T) {
	input := strings.Join([]string{
		"Time Avg_MHz",
		"Time Avg_MHz",
		"3 abc",
		"4",
		"x 2000",
		"NaN 1000",
		"+Inf 2000",
		"-Inf 2000",
		"1e30 3000",
		"6 NaN",
		"7 Inf",
		"5 1800",
	}, "\n")

	series := Parse(strings.NewReader(input))
	assert.Equal(t, dataframe.Series{{Timestamp: 5, Value: 1800}}, series)
}

func TestParse_TimeOfDayRows(t *testing.T) {
	input := `
Time_Of_Day_Seconds Avg_MHz Bzy_MHz
1760000000.104 2100 3300
1760000000.104 2000 3200
1760000000.104 2200 3400
1760000001.107 2400 3500
`
	series := Parse(strings.NewReader(input))
	assert.Equal(t, dataframe.Series{
		{Timestamp: 1760000000, Value: 2100},
		{Timestamp: 1760000001, Value: 2400},
	}, series)
}

func TestParse_EmptyOutcomes(t *testing.T) {
	cases := map[string]string{
		"no input":       "",
		"blank lines":    "\n\n   \n",
		"header only":    "Time Avg_MHz\n",
		"missing column": "Time Core CPU TSC_MHz\n1 0 0 2100\n",
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			series := Parse(strings.NewReader(input))
			assert.True(t, series.Empty())
		})
	}
}

func TestParse_RowOrderDoesNotMatter(t *testing.T) {
	rows := []string{"3 1000", "1 2000", "3 3000", "2 1500", "1 1000"}
	reversed := make([]string, len(rows))
	for i, r := range rows {
		reversed[len(rows)-1-i] = r
	}

	a := Parse(strings.NewReader("Time Avg_MHz\n" + strings.Join(rows, "\n")))
	b := Parse(strings.NewReader("Time Avg_MHz\n" + strings.Join(reversed, "\n")))

	assert.Equal(t, a, b)
	assert.Len(t, a, 3)
}

func TestParseFile(t *testing.T) {
	dir := t.TempDir()

	assert.True(t, ParseFile(filepath.Join(dir, "missing.txt")).Empty())

	empty := filepath.Join(dir, "empty.txt")
	require.NoError(t, os.WriteFile(empty, nil, 0o644))
	assert.True(t, ParseFile(empty).Empty())

	good := filepath.Join(dir, "turbostat.txt")
	require.NoError(t, os.WriteFile(good, []byte("Time Avg_MHz Bzy_MHz\n12 2400 0\n12 2600 0\n"), 0o644))
	assert.Equal(t, dataframe.Series{{Timestamp: 12, Value: 2500}}, ParseFile(good))
}
