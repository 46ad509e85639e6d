package metrics

import (
	"context"
	"math"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/lec/core/metrics"
	"github.com/kilianp07/lec/infra/logger"
)

const writeTimeout = 10 * time.Second

// InfluxSink writes optimization runs and hourly schedules to an InfluxDB
// instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

// RecordOptimization writes one point per optimization call.
func (s *InfluxSink) RecordOptimization(res coremetrics.OptimizationResult) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	p := write.NewPointWithMeasurement("optimization").
		AddTag("run_id", res.RunID).
		AddTag("scope", res.Scope).
		AddTag("subject", res.Subject).
		AddTag("status", res.Status).
		AddField("objective", round3(res.Objective)).
		AddField("nodes", res.Nodes).
		AddField("horizon", res.Horizon).
		AddField("duration_ms", round3(res.Duration.Seconds()*1000)).
		SetTime(pointTime(res.Start, res.Time))
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSchedule writes one point per participant and hour. Fields are
// written in name order.
func (s *InfluxSink) RecordSchedule(samples []coremetrics.ScheduleSample) error {
	if len(samples) == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	points := make([]*write.Point, 0, len(samples))
	for _, smp := range samples {
		p := write.NewPointWithMeasurement("schedule").
			AddTag("run_id", smp.RunID).
			AddTag("source", smp.Source)
		names := make([]string, 0, len(smp.Fields))
		for k := range smp.Fields {
			names = append(names, k)
		}
		sort.Strings(names)
		for _, k := range names {
			p = p.AddField(k, round3(smp.Fields[k]))
		}
		points = append(points, p.SetTime(smp.Time))
	}
	return s.writeAPI.WritePoint(ctx, points...)
}

// RecordPrecheckFailure writes a rejected horizon.
func (s *InfluxSink) RecordPrecheckFailure(ev coremetrics.PrecheckEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	p := write.NewPointWithMeasurement("precheck_failure").
		AddTag("run_id", ev.RunID).
		AddTag("kind", ev.Kind).
		AddField("agents", joinInts(ev.Agents)).
		AddField("hours", joinInts(ev.Hours)).
		SetTime(pointTime(ev.Start, ev.Time))
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordPeakLoad writes the peak-load state of a subject.
func (s *InfluxSink) RecordPeakLoad(ev coremetrics.PeakLoadEvent) error {
	ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
	defer cancel()
	p := write.NewPointWithMeasurement("peak_load").
		AddTag("run_id", ev.RunID).
		AddTag("subject", ev.Subject).
		AddField("daily_elec_peak", round3(ev.DailyElecPeak)).
		AddField("average_elec_peak", round3(ev.AverageElecPeak)).
		AddField("monthly_heat", round3(ev.MonthlyHeat)).
		SetTime(ev.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// pointTime prefers the simulated horizon start over the wall clock.
func pointTime(start, now time.Time) time.Time {
	if !start.IsZero() {
		return start
	}
	return now
}

func joinInts(xs []int) string {
	parts := make([]string, len(xs))
	for i, x := range xs {
		parts[i] = strconv.Itoa(x)
	}
	return strings.Join(parts, ",")
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
