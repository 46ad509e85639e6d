package model

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAgent_MaxCoolingPrefersBorehole(t *testing.T) {
	hp := HeatPump{COP: 3, MaxInput: 2, MaxHeat: 6, CoolingCapable: true}
	cases := []struct {
		name     string
		agent    Agent
		month    int
		want     float64
		freeCool bool
	}{
		{"borehole in spring", Agent{Borehole: true, HeatPump: hp}, 4, Inf, true},
		{"borehole without heat pump", Agent{Borehole: true}, 10, Inf, true},
		{"borehole in peak summer", Agent{Borehole: true, HeatPump: hp}, 7, 4, false},
		{"heat pump only", Agent{HeatPump: hp}, 4, 4, false},
		{"no cooling device", Agent{}, 7, 0, false},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := c.agent.MaxCooling(c.month)
			if math.IsInf(c.want, 1) {
				assert.True(t, math.IsInf(got, 1), "got %g", got)
			} else {
				assert.InDelta(t, c.want, got, 1e-9)
			}
			assert.Equal(t, c.freeCool, c.agent.FreeCooling(c.month))
		})
	}
}

func TestTank_Capacity(t *testing.T) {
	tank := Tank{VolumeM3: 0.5, MaxTempC: 50, Efficiency: 0.9}
	assert.InDelta(t, 0.5*4182*998/3.6e6, tank.KWhPerDegree(), 1e-9)
	assert.InDelta(t, 50*tank.KWhPerDegree(), tank.CapacityKWh(), 1e-9)
	assert.True(t, tank.Present())
	assert.False(t, Tank{}.Present())
}
