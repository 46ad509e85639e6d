package metrics_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lec/core/factory"
	metrics "github.com/kilianp07/lec/core/metrics"
	_ "github.com/kilianp07/lec/infra/metrics"
)

func TestSinkNames_Builtins(t *testing.T) {
	names := metrics.SinkNames()
	assert.Subset(t, names, []string{"influx", "nop", "prometheus"})
	assert.IsIncreasing(t, names)
}

func TestNewMetricsSink_Unknown(t *testing.T) {
	_, err := metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "missing"}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prometheus")

	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "missing"}})
	assert.Error(t, err)
}

// An unreachable InfluxDB degrades to a no-op sink so a run still completes.
func TestNewMetricsSink_InfluxFallsBackToNop(t *testing.T) {
	s, err := metrics.NewMetricsSink([]factory.ModuleConfig{{
		Type: "influx",
		Conf: map[string]any{"url": "http://127.0.0.1:1", "org": "lec", "bucket": "cems"},
	}})
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	_, err = metrics.NewMetricsSink([]factory.ModuleConfig{{
		Type: "influx",
		Conf: map[string]any{"url": map[string]any{"host": "x"}},
	}})
	assert.Error(t, err)
}

func TestNewMetricsSink_Multi(t *testing.T) {
	s, err := metrics.NewMetricsSink(nil)
	require.NoError(t, err)
	assert.IsType(t, metrics.NopSink{}, s)

	s, err = metrics.NewMetricsSink([]factory.ModuleConfig{{Type: "nop"}, {Type: "nop"}})
	require.NoError(t, err)
	m, ok := s.(*metrics.MultiSink)
	require.True(t, ok, "got %T", s)
	assert.Len(t, m.Sinks, 2)
	assert.NoError(t, m.RecordOptimization(metrics.OptimizationResult{
		RunID:   "run",
		Scope:   "community",
		Subject: "LEC",
		Horizon: 24,
		Status:  "optimal",
		Time:    time.Unix(0, 0),
	}))
}
