// Package database exports finished runs to InfluxDB.
package database

import (
	"context"
	"fmt"
	"time"

	"cpu-verify/internal/bench"
	"cpu-verify/internal/config"
	"cpu-verify/internal/logging"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/sirupsen/logrus"
)

const (
	TrendMeasurement = "cpu_verify_trend"
	RunMeasurement   = "cpu_verify_run"

	// Turbostat timestamps above this are epoch seconds; below it they are
	// seconds since the run started.
	epochThreshold = 1_000_000_000
)

// PointWriter is the subset of api.WriteAPIBlocking the exporter needs.
type PointWriter interface {
	WritePoint(ctx context.Context, point ...*write.Point) error
}

type InfluxDBClient struct {
	client   influxdb2.Client
	writeAPI PointWriter
	bucket   string
	org      string
}

// NewInfluxDBClient connects and health-checks the server.
func NewInfluxDBClient(ctx context.Context, cfg config.InfluxConfig) (*InfluxDBClient, error) {
	logger := logging.GetLogger()

	client := influxdb2.NewClient(cfg.Host, cfg.Token)

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	health, err := client.Health(ctx)
	if err != nil {
		client.Close()
		logger.WithField("host", cfg.Host).WithError(err).Error("Failed to connect to InfluxDB")
		return nil, fmt.Errorf("failed to connect to InfluxDB at %s: %w", cfg.Host, err)
	}
	if health.Status != "pass" {
		client.Close()
		message := ""
		if health.Message != nil {
			message = *health.Message
		}
		logger.WithFields(logrus.Fields{
			"host":    cfg.Host,
			"status":  health.Status,
			"message": message,
		}).Error("InfluxDB health check failed")
		return nil, fmt.Errorf("InfluxDB health check failed: %s", health.Status)
	}

	logger.WithFields(logrus.Fields{
		"host":   cfg.Host,
		"bucket": cfg.Bucket,
		"org":    cfg.Org,
	}).Info("Connected to InfluxDB")

	return &InfluxDBClient{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		bucket:   cfg.Bucket,
		org:      cfg.Org,
	}, nil
}

// NewWithWriter builds a client around an existing writer.
func NewWithWriter(w PointWriter) *InfluxDBClient {
	return &InfluxDBClient{writeAPI: w}
}

// Export writes the trend series and the run summary.
func (idb *InfluxDBClient) Export(ctx context.Context, o *bench.RunOutcome) error {
	points := BuildPoints(o)
	if err := idb.writeAPI.WritePoint(ctx, points...); err != nil {
		return fmt.Errorf("failed to write %d points: %w", len(points), err)
	}
	logging.GetLogger().WithFields(logrus.Fields{
		"run_id": o.RunID,
		"points": len(points),
	}).Info("Run exported to InfluxDB")
	return nil
}

func (idb *InfluxDBClient) Close() {
	if idb.client != nil {
		idb.client.Close()
	}
}

func runTags(o *bench.RunOutcome) map[string]string {
	tags := map[string]string{
		"run_id":  o.RunID,
		"profile": string(o.Config.Profile),
	}
	if o.Host != nil && o.Host.Hostname != "" {
		tags["host"] = o.Host.Hostname
	}
	return tags
}

// PointTime places a turbostat timestamp on the wall clock.
func PointTime(start time.Time, ts int64) time.Time {
	if ts >= epochThreshold {
		return time.Unix(ts, 0)
	}
	return start.Add(time.Duration(ts) * time.Second)
}

// BuildPoints converts an outcome to one trend point per series entry plus
// a single run point.
func BuildPoints(o *bench.RunOutcome) []*write.Point {
	tags := runTags(o)
	points := make([]*write.Point, 0, len(o.Series)+1)

	for _, p := range o.Series {
		points = append(points, influxdb2.NewPoint(TrendMeasurement,
			tags,
			map[string]interface{}{
				"avg_mhz":   p.Value,
				"timestamp": p.Timestamp,
			},
			PointTime(o.StartTime, p.Timestamp)))
	}

	runTagSet := map[string]string{
		"status":   string(o.Status),
		"strategy": o.Result.Strategy,
	}
	for k, v := range tags {
		runTagSet[k] = v
	}

	fields := map[string]interface{}{
		"id":                 o.ID,
		"duration_seconds":   o.Config.Duration,
		"elapsed_seconds":    o.Elapsed().Seconds(),
		"load":               o.Config.Load,
		"cores":              o.Config.Cores,
		"governor":           o.GovernorRequested,
		"governor_applied":   o.GovernorApplied,
		"binary":             o.PreferredBinary,
		"tier":               o.Result.Tier,
		"exit_code":          o.Result.ExitCode,
		"trend_points":       o.Series.Len(),
		"telemetry_complete": o.TelemetryComplete,
		"run_started":        o.StartTime.Format(time.RFC3339),
		"run_finished":       o.EndTime.Format(time.RFC3339),
	}
	if o.Series.Len() > 0 {
		fields["mean_mhz"] = o.Series.Mean()
	}
	if o.Power.Available {
		fields["avg_power_w"] = o.Power.Watts
		fields["energy_delta_uj"] = o.Power.DeltaMicrojoules
	}
	if o.Frequency.Available {
		fields["effective_mhz"] = o.Frequency.MHz
	}

	points = append(points, influxdb2.NewPoint(RunMeasurement, runTagSet, fields, o.EndTime))
	return points
}
