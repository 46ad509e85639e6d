package metrics

import "time"

// OptimizationResult is recorded after every optimization call.
type OptimizationResult struct {
	RunID string
	// Scope is "agent" or "community".
	Scope string
	// Subject is the agent id, or the hub id for a community.
	Subject   string
	Start     time.Time
	Horizon   int
	Status    string
	Objective float64
	Nodes     int
	Duration  time.Duration
	Time      time.Time
}

// MetricsSink records optimization results for observability purposes.
type MetricsSink interface {
	RecordOptimization(res OptimizationResult) error
}

// ScheduleSample is one hour of a participant's dispatch.
type ScheduleSample struct {
	RunID  string
	Source string
	Time   time.Time
	Fields map[string]float64
}

// ScheduleRecorder records hourly schedules.
type ScheduleRecorder interface {
	RecordSchedule(samples []ScheduleSample) error
}

// PrecheckEvent captures a horizon rejected before optimization.
type PrecheckEvent struct {
	RunID  string
	Kind   string
	Agents []int
	Hours  []int
	Start  time.Time
	Time   time.Time
}

// PrecheckRecorder records pre-check failures.
type PrecheckRecorder interface {
	RecordPrecheckFailure(ev PrecheckEvent) error
}

// PeakLoadEvent is the peak-load state after a horizon.
type PeakLoadEvent struct {
	RunID           string
	Subject         string
	DailyElecPeak   float64
	AverageElecPeak float64
	MonthlyHeat     float64
	Time            time.Time
}

// PeakLoadRecorder records peak-load state.
type PeakLoadRecorder interface {
	RecordPeakLoad(ev PeakLoadEvent) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordOptimization(OptimizationResult) error { return nil }
func (NopSink) RecordSchedule([]ScheduleSample) error       { return nil }
func (NopSink) RecordPrecheckFailure(PrecheckEvent) error   { return nil }
func (NopSink) RecordPeakLoad(PeakLoadEvent) error          { return nil }
