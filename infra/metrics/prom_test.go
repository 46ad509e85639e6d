package metrics

import (
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coremetrics "github.com/kilianp07/lec/core/metrics"
)

func TestPromSink_RecordOptimization(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordOptimization(coremetrics.OptimizationResult{
		Scope: "agent", Subject: "house", Status: "optimal", Objective: 7.5, Nodes: 4, Duration: 20 * time.Millisecond,
	}))
	require.NoError(t, sink.RecordOptimization(coremetrics.OptimizationResult{
		Scope: "agent", Subject: "house", Status: "infeasible", Objective: 99,
	}))

	expected := `
# HELP lec_optimizations_total Optimization calls by scope and solver status
# TYPE lec_optimizations_total counter
lec_optimizations_total{scope="agent",status="infeasible"} 1
lec_optimizations_total{scope="agent",status="optimal"} 1
`
	assert.NoError(t, testutil.CollectAndCompare(sink.runs, strings.NewReader(expected)))
	assert.Equal(t, 7.5, testutil.ToFloat64(sink.objective.WithLabelValues("agent", "house")))
	assert.Equal(t, 1, testutil.CollectAndCount(sink.duration))
}

func TestPromSink_PrecheckAndPeak(t *testing.T) {
	reg := prometheus.NewRegistry()
	sink, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, sink.RecordPrecheckFailure(coremetrics.PrecheckEvent{Kind: "cooling"}))
	require.NoError(t, sink.RecordPrecheckFailure(coremetrics.PrecheckEvent{Kind: "cooling"}))
	require.NoError(t, sink.RecordPeakLoad(coremetrics.PeakLoadEvent{Subject: "hub", DailyElecPeak: 3, AverageElecPeak: 2, MonthlyHeat: 9}))

	assert.Equal(t, 2.0, testutil.ToFloat64(sink.prechecks.WithLabelValues("cooling")))
	assert.Equal(t, 3.0, testutil.ToFloat64(sink.peaks.WithLabelValues("hub", "daily_elec")))
	assert.Equal(t, 2.0, testutil.ToFloat64(sink.peaks.WithLabelValues("hub", "average_elec")))
	assert.Equal(t, 9.0, testutil.ToFloat64(sink.peaks.WithLabelValues("hub", "monthly_heat")))
}

func TestPromSink_ReusesRegisteredCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)
	second, err := NewPromSinkWithRegistry(reg)
	require.NoError(t, err)

	require.NoError(t, second.RecordPrecheckFailure(coremetrics.PrecheckEvent{Kind: "hot_water"}))
	assert.Equal(t, 1.0, testutil.ToFloat64(first.prechecks.WithLabelValues("hot_water")))
}

func TestRegisteredSinks(t *testing.T) {
	names := coremetrics.SinkNames()
	assert.Subset(t, names, []string{"nop", "prometheus", "influx"})
}
