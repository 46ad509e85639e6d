package cems

import "github.com/kilianp07/lec/core/model"

// HeatMode selects the heat balance group of the community model.
type HeatMode int

const (
	// WinterHeat serves hot water from high-temperature heat only and forces
	// chiller waste heat to zero.
	WinterHeat HeatMode = iota
	// SummerHeat lets low-temperature heat cover part of the hot water, adds
	// the booster heat pump and recovers chiller waste heat.
	SummerHeat
)

func (h HeatMode) String() string {
	if h == SummerHeat {
		return "summer"
	}
	return "winter"
}

func (h HeatMode) MarshalText() ([]byte, error) { return []byte(h.String()), nil }

// CoolingMode selects the cooling balance group.
type CoolingMode int

const (
	// BoreholeCooling lets agents with a borehole cover their cooling demand
	// for free.
	BoreholeCooling CoolingMode = iota
	// PeakSummerCooling disables free cooling in June, July and August.
	PeakSummerCooling
)

func (c CoolingMode) String() string {
	if c == PeakSummerCooling {
		return "peak_summer"
	}
	return "borehole"
}

func (c CoolingMode) MarshalText() ([]byte, error) { return []byte(c.String()), nil }

// Topology is the resolved seasonal configuration of a horizon. Each field
// picks exactly one constraint group when the model is built.
type Topology struct {
	Heat    HeatMode
	Cooling CoolingMode
}

// ResolveTopology derives the topology from the caller's summer flag and the
// month.
func ResolveTopology(cal model.Calendar) Topology {
	t := Topology{Heat: WinterHeat, Cooling: BoreholeCooling}
	if cal.Summer {
		t.Heat = SummerHeat
	}
	if model.IsPeakSummer(cal.Month) {
		t.Cooling = PeakSummerCooling
	}
	return t
}

// coolingLoad is the cooling demand of an agent that the energy system must
// serve. It is empty when a borehole covers it.
func (tp Topology) coolingLoad(a model.Agent) model.Series {
	if tp.Cooling == BoreholeCooling && a.Borehole {
		return nil
	}
	return a.Profiles.CoolingDemand
}
