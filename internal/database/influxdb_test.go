package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"cpu-verify/internal/bench"
	"cpu-verify/internal/config"
	"cpu-verify/internal/dataframe"
	"cpu-verify/internal/energy"
	"cpu-verify/internal/host"
	"cpu-verify/internal/workload"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingWriter struct {
	points []*write.Point
	err    error
}

func (r *recordingWriter) WritePoint(_ context.Context, points ...*write.Point) error {
	r.points = append(r.points, points...)
	return r.err
}

var start = time.Date(2025, 3, 14, 9, 0, 0, 0, time.UTC)

func outcome() *bench.RunOutcome {
	cfg := config.Defaults()
	cfg.Duration = 60
	return &bench.RunOutcome{
		ID:        "id-1",
		RunID:     "run_20250314_090000",
		Config:    cfg,
		Host:      &host.HostConfig{Hostname: "bench01"},
		Status:    workload.StatusSuccess,
		Result:    workload.Completion{Status: workload.StatusSuccess, Tier: 3, Strategy: "soak"},
		Series:    dataframe.Series{{Timestamp: 12, Value: 2500}, {Timestamp: 13, Value: 2300}},
		Power:     energy.Power{Available: true, Watts: 150, DeltaMicrojoules: 9_000_000_000},
		StartTime: start,
		EndTime:   start.Add(62 * time.Second),
	}
}

func tagsOf(p *write.Point) map[string]string {
	out := map[string]string{}
	for _, t := range p.TagList() {
		out[t.Key] = t.Value
	}
	return out
}

func fieldsOf(p *write.Point) map[string]interface{} {
	out := map[string]interface{}{}
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func TestBuildPoints(t *testing.T) {
	points := BuildPoints(outcome())
	require.Len(t, points, 3)

	trend := points[0]
	assert.Equal(t, TrendMeasurement, trend.Name())
	assert.Equal(t, start.Add(12*time.Second), trend.Time())
	assert.Equal(t, 2500.0, fieldsOf(trend)["avg_mhz"])
	assert.Equal(t, map[string]string{"run_id": "run_20250314_090000", "profile": "serverlab", "host": "bench01"}, tagsOf(trend))

	run := points[2]
	assert.Equal(t, RunMeasurement, run.Name())
	assert.Equal(t, start.Add(62*time.Second), run.Time())
	assert.Equal(t, "success", tagsOf(run)["status"])
	assert.Equal(t, "soak", tagsOf(run)["strategy"])

	fields := fieldsOf(run)
	assert.Equal(t, 150.0, fields["avg_power_w"])
	assert.Equal(t, 2400.0, fields["mean_mhz"])
	assert.NotContains(t, fields, "effective_mhz")
}

func TestBuildPoints_EmptySeriesNoPower(t *testing.T) {
	o := outcome()
	o.Series = dataframe.Series{}
	o.Power = energy.Power{}

	points := BuildPoints(o)
	require.Len(t, points, 1)
	fields := fieldsOf(points[0])
	assert.NotContains(t, fields, "avg_power_w")
	assert.NotContains(t, fields, "mean_mhz")
}

func TestPointTime(t *testing.T) {
	assert.Equal(t, start.Add(5*time.Second), PointTime(start, 5))
	assert.Equal(t, time.Unix(1741942800, 0), PointTime(start, 1741942800))
}

func TestExport(t *testing.T) {
	w := &recordingWriter{}
	require.NoError(t, NewWithWriter(w).Export(context.Background(), outcome()))
	assert.Len(t, w.points, 3)

	failing := &recordingWriter{err: errors.New("unauthorized")}
	assert.Error(t, NewWithWriter(failing).Export(context.Background(), outcome()))
}
