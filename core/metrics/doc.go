// Package metrics defines the sinks that record optimization runs. Sinks like
// PromSink and InfluxSink live in infra/metrics and register themselves by
// name; NewMetricsSink combines several configured sinks in a MultiSink.
// Optional recorder interfaces cover schedules, pre-check failures and
// peak-load state.
package metrics
