package cems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNetTrade(t *testing.T) {
	tr, ok := netTrade(3, "a", HighTempHeat, Local, 9.5, 0.05, 0.4, 0)
	require.True(t, ok)
	assert.Equal(t, Buy, tr.Action)
	assert.InDelta(t, 10, tr.Quantity, 1e-12)
	assert.Zero(t, tr.Price)
	assert.Equal(t, 0.05, tr.Loss)

	tr, ok = netTrade(0, "a", Electricity, External, -2, 0, 0.6, 0.3)
	require.True(t, ok)
	assert.Equal(t, Sell, tr.Action)
	assert.Equal(t, 2.0, tr.Quantity)
	assert.Equal(t, 0.3, tr.Price)

	_, ok = netTrade(0, "a", Electricity, External, 1e-9, 0, 0.6, 0.3)
	assert.False(t, ok)
}

func TestHubTrades_ReportHeatBeforeLoss(t *testing.T) {
	hub := &HubSchedule{ElecBuy: []float64{0}, ElecSell: []float64{0}, HeatBuy: []float64{4}}
	trades := hubTrades(hub, tariff(1, 0.5, 0.3), 0.05)
	require.Len(t, trades, 1)
	assert.Equal(t, HubID, trades[0].Source)
	assert.Equal(t, 4.0, trades[0].Quantity)
	assert.Equal(t, 0.05, trades[0].Loss)
	assert.Equal(t, External, trades[0].Market)
}

func TestEnumsMarshalText(t *testing.T) {
	for v, want := range map[interface{ MarshalText() ([]byte, error) }]string{
		LowTempHeat:       "low_temp_heat",
		Sell:              "sell",
		External:          "external",
		SummerHeat:        "summer",
		PeakSummerCooling: "peak_summer",
	} {
		b, err := v.MarshalText()
		require.NoError(t, err)
		assert.Equal(t, want, string(b))
	}
}

func TestParseEnums(t *testing.T) {
	for _, r := range []Resource{Electricity, HighTempHeat, LowTempHeat, Cooling} {
		got, err := ParseResource(r.String())
		require.NoError(t, err)
		assert.Equal(t, r, got)
	}
	a, err := ParseAction("sell")
	require.NoError(t, err)
	assert.Equal(t, Sell, a)
	m, err := ParseMarket("external")
	require.NoError(t, err)
	assert.Equal(t, External, m)

	_, err = ParseResource("steam")
	assert.Error(t, err)
	_, err = ParseAction("hold")
	assert.Error(t, err)
	_, err = ParseMarket("")
	assert.Error(t, err)
}
