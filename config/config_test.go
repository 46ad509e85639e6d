package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	_ "github.com/kilianp07/lec/infra/solver"
)

func writeConfig(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(data), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, "config.yaml", `solver:
  backend: gonum
  parallelism: 2
  options:
    max_nodes: 500
logging:
  level: debug
metrics:
  prometheus_port: ":9100"
  sinks:
    - type: prometheus
    - type: influx
      conf:
        url: http://localhost:8086
        bucket: lec
store:
  path: /tmp/lec.db
mqtt:
  broker: "tcp://localhost:1883"
  topic_prefix: site
  qos:
    schedule: 1
runner:
  scenario: scenarios/demo.yaml
  days: 7
  output_dir: out
`)
	cfg, err := Load(path)
	require.NoError(t, err)

	checks := []struct {
		name string
		got  any
		want any
	}{
		{"solver.backend", cfg.Solver.Backend, "gonum"},
		{"solver.parallelism", cfg.Solver.Parallelism, 2},
		{"solver.options", cfg.Solver.Options["max_nodes"], 500},
		{"logging.level", cfg.Logging.Level, "debug"},
		{"metrics.prometheus_port", cfg.Metrics.PrometheusPort, ":9100"},
		{"metrics.sinks", len(cfg.Metrics.Sinks), 2},
		{"metrics.influx.bucket", cfg.Metrics.Sinks[1].Conf["bucket"], "lec"},
		{"store.path", cfg.Store.Path, "/tmp/lec.db"},
		{"mqtt.broker", cfg.MQTT.Broker, "tcp://localhost:1883"},
		{"mqtt.topic", cfg.MQTT.ScheduleTopic("a"), "site/a/schedule"},
		{"mqtt.qos", cfg.MQTT.QoS["schedule"], byte(1)},
		{"runner.scenario", cfg.Runner.Scenario, "scenarios/demo.yaml"},
		{"runner.days", cfg.Runner.Days, 7},
		{"runner.horizon_hours", cfg.Runner.HorizonHours, 24},
		{"runner.summer_months", cfg.Runner.SummerMonths, []int{5, 6, 7, 8, 9}},
		{"runner.export_format", cfg.Runner.ExportFormat, "json"},
	}
	for _, c := range checks {
		assert.EqualValues(t, c.want, c.got, c.name)
	}
	assert.Equal(t, "gonum", cfg.Solver.Module().Type)
}

func TestLoad_JSONAndEnv(t *testing.T) {
	path := writeConfig(t, "config.json", `{"runner": {"horizon_hours": 24}, "logging": {"level": "warn"}}`)
	t.Setenv("LEC_RUNNER__HORIZON_HOURS", "48")
	t.Setenv("LEC_STORE__DISABLED", "true")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, 48, cfg.Runner.HorizonHours)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.False(t, cfg.Store.Enabled())
	assert.Equal(t, "bnb", cfg.Solver.Backend)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(writeConfig(t, "config.toml", ""))
	assert.ErrorContains(t, err, "unsupported config format")

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "bad.yaml", `solver:
  backend: cplex
logging:
  level: loud
runner:
  horizon_hours: 12
  summer_months: [13]
  export_format: xml
`))
	require.Error(t, err)
	for _, msg := range []string{"unknown backend", "unknown level", "at least 24", "summer month 13", "export format"} {
		assert.ErrorContains(t, err, msg)
	}
}

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.True(t, cfg.Store.Enabled())
	assert.Equal(t, "lec.db", cfg.Store.Path)
	assert.True(t, cfg.Runner.IsSummer(7))
	assert.False(t, cfg.Runner.IsSummer(1))
}
