package scenario

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lec/core/model"
)

func TestLoad(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "community.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "two-buildings", sc.Name)
	assert.True(t, sc.Community)
	assert.Equal(t, time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC), sc.Start)
	assert.Equal(t, 4, sc.Hours, "shortest series wins")

	assert.Equal(t, model.Series{0.5, 0.4, 0.6, 0.55, 0.55}, sc.Tariff.BuyPrice)
	assert.Equal(t, 0.4, sc.Tariff.HeatPrice)
	assert.Equal(t, 0.04, sc.Grid.HeatLoss)
	assert.Equal(t, model.DefaultGridLimits().MarketElecMax, sc.Grid.MarketElecMax)
	assert.Equal(t, 50.0, sc.Chiller.MaxInput)
	assert.Equal(t, model.DefaultChiller().COP, sc.Chiller.COP)

	require.Len(t, sc.Agents, 2)
	res := sc.Agents[0]
	assert.Equal(t, model.Series{1, 1.2, 1.5, 1.1}, res.Profiles.ElecDemand)
	assert.Equal(t, model.Series{0, 0, 1, 2}, res.Profiles.CoolingDemand)
	assert.Equal(t, 10.0, res.Battery.CapacityKWh)
	assert.True(t, res.HeatPump.CoolingCapable)
	assert.True(t, sc.Agents[1].Borehole)

	agents := sc.ModelAgents()
	assert.Equal(t, "office", agents[1].ID)
	assert.Equal(t, model.Series{0, 1, 3, 1}, agents[1].Profiles.PVProduction)
}

func TestScenario_Forecaster(t *testing.T) {
	sc, err := Load(filepath.Join("testdata", "community.yaml"))
	require.NoError(t, err)
	f := sc.Forecaster()
	assert.Equal(t, 4, f.Hours())

	p, err := f.Profiles("residential", 2, 2)
	require.NoError(t, err)
	assert.Equal(t, model.Series{1.5, 1.1}, p.ElecDemand)

	tr, err := f.Tariff(0, 2)
	require.NoError(t, err)
	assert.Equal(t, model.Series{0.3, 0.2}, tr.SellPrice)
	assert.Equal(t, 0.02, tr.ElecPeakLoadFee)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load("missing.yaml")
	assert.Error(t, err)

	dir := t.TempDir()
	write := func(name, body string) string {
		p := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
		return p
	}

	_, err = Load(write("bad.yaml", ":"))
	assert.Error(t, err)

	_, err = Load(write("dup.yaml", `
start: 2024-01-01T00:00:00Z
tariff: {buy_price: [1, 1]}
agents: [{id: a}, {id: a}]
`))
	assert.ErrorContains(t, err, "duplicate id")

	_, err = Load(write("nostart.yaml", `
tariff: {buy_price: [1]}
agents: [{id: a}]
`))
	assert.ErrorContains(t, err, "start is required")

	write("typo.csv", "elec_demnd\n1\n")
	_, err = Load(write("typo.yaml", `
start: 2024-01-01T00:00:00Z
agents: [{id: a, profiles_csv: typo.csv}]
`))
	assert.ErrorContains(t, err, "unknown profile column")
}

func TestParseSeriesCSV(t *testing.T) {
	cols, err := ParseSeriesCSV(strings.NewReader("hour, a ,B\n0,1,\n1,2.5,3\n"))
	require.NoError(t, err)
	assert.Equal(t, map[string]model.Series{"a": {1, 2.5}, "b": {0, 3}}, cols)

	_, err = ParseSeriesCSV(strings.NewReader("a\nx\n"))
	assert.ErrorContains(t, err, "line 2 column a")

	_, err = ParseSeriesCSV(strings.NewReader(""))
	assert.Error(t, err)
}
