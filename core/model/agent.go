package model

import "fmt"

// Series is an hourly time series. Index 0 is the first hour of the horizon.
type Series []float64

// At returns the value at index t or 0 when t is out of range.
func (s Series) At(t int) float64 {
	if t < 0 || t >= len(s) {
		return 0
	}
	return s[t]
}

// Window returns a copy of the values in [start, start+n). Missing values are
// left at zero.
func (s Series) Window(start, n int) Series {
	out := make(Series, n)
	for i := range out {
		out[i] = s.At(start + i)
	}
	return out
}

// Max returns the largest value of the first n elements.
func (s Series) Max(n int) float64 {
	m := 0.0
	for t := 0; t < n && t < len(s); t++ {
		if s[t] > m {
			m = s[t]
		}
	}
	return m
}

// Profiles groups the demand and production series of an agent. All values are
// kWh per hour and non-negative.
type Profiles struct {
	ElecDemand         Series `json:"elec_demand" yaml:"elec_demand"`
	PVProduction       Series `json:"pv_production" yaml:"pv_production"`
	SpaceHeatDemand    Series `json:"space_heat_demand" yaml:"space_heat_demand"`
	HotWaterDemand     Series `json:"hot_water_demand" yaml:"hot_water_demand"`
	CoolingDemand      Series `json:"cooling_demand" yaml:"cooling_demand"`
	ExcessHeatLowTemp  Series `json:"excess_heat_low_temp" yaml:"excess_heat_low_temp"`
	ExcessHeatHighTemp Series `json:"excess_heat_high_temp" yaml:"excess_heat_high_temp"`
}

// Named returns every series keyed by its name. Used for validation messages.
func (p Profiles) Named() map[string]Series {
	return map[string]Series{
		"elec_demand":           p.ElecDemand,
		"pv_production":         p.PVProduction,
		"space_heat_demand":     p.SpaceHeatDemand,
		"hot_water_demand":      p.HotWaterDemand,
		"cooling_demand":        p.CoolingDemand,
		"excess_heat_low_temp":  p.ExcessHeatLowTemp,
		"excess_heat_high_temp": p.ExcessHeatHighTemp,
	}
}

// Window returns the profiles restricted to [start, start+n).
func (p Profiles) Window(start, n int) Profiles {
	return Profiles{
		ElecDemand:         p.ElecDemand.Window(start, n),
		PVProduction:       p.PVProduction.Window(start, n),
		SpaceHeatDemand:    p.SpaceHeatDemand.Window(start, n),
		HotWaterDemand:     p.HotWaterDemand.Window(start, n),
		CoolingDemand:      p.CoolingDemand.Window(start, n),
		ExcessHeatLowTemp:  p.ExcessHeatLowTemp.Window(start, n),
		ExcessHeatHighTemp: p.ExcessHeatHighTemp.Window(start, n),
	}
}

// Agent is a building participating in the energy community. It is owned by
// the caller and must not be mutated while an optimization runs.
type Agent struct {
	ID       string
	Profiles Profiles

	Battery  Battery
	Tank     Tank
	BITES    BITES
	HeatPump HeatPump
	Booster  HeatPump
	// Borehole marks agents that can use free cooling outside peak summer.
	Borehole bool
}

// Validate checks that the agent's static parameters are sound.
func (a Agent) Validate() error {
	if a.ID == "" {
		return fmt.Errorf("agent id is required")
	}
	return nil
}

// MaxCooling returns the cooling the agent can deliver in one hour of the
// given month. Free cooling from a borehole outside peak summer is unbounded.
func (a Agent) MaxCooling(month int) float64 {
	if a.Borehole && !IsPeakSummer(month) {
		return Inf
	}
	return a.HeatPump.MaxCooling()
}

// FreeCooling reports whether the borehole covers the cooling demand in the
// given month.
func (a Agent) FreeCooling(month int) bool {
	return a.Borehole && !IsPeakSummer(month)
}
