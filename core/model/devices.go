package model

import "math"

// Inf is used for unbounded capacities.
var Inf = math.Inf(1)

const (
	// Water properties used for the accumulator tank.
	waterSpecificHeat = 4182.0 // J/(kg °C)
	waterDensity      = 998.0  // kg/m3
	joulesPerKWh      = 3600000.0

	// Thermal mass sizing per m² of floor area used for BITES.
	shallowCapacityPerArea = 0.046
	deepCapacityPerArea    = 0.291
	shallowRatePerArea     = 0.023
	conductancePerArea     = 0.03

	// ShallowRetention and DeepRetention are the fractions of stored energy
	// kept from one hour to the next.
	ShallowRetention = 0.9913
	DeepRetention    = 0.9963
)

// Battery describes an electrical storage device. A zero capacity means the
// agent has no battery.
type Battery struct {
	CapacityKWh    float64 `json:"capacity_kwh" yaml:"capacity_kwh"`
	MaxChargeKW    float64 `json:"max_charge_kw" yaml:"max_charge_kw"`
	MaxDischargeKW float64 `json:"max_discharge_kw" yaml:"max_discharge_kw"`
	Efficiency     float64 `json:"efficiency" yaml:"efficiency"`
	InitialSoC     float64 `json:"initial_soc" yaml:"initial_soc"`
}

// Present reports whether the battery can store energy.
func (b Battery) Present() bool { return b.CapacityKWh > 0 }

// Tank describes a hot-water accumulator tank. A zero volume means no tank.
type Tank struct {
	VolumeM3   float64 `json:"volume_m3" yaml:"volume_m3"`
	MaxTempC   float64 `json:"max_temp_c" yaml:"max_temp_c"`
	Efficiency float64 `json:"efficiency" yaml:"efficiency"`
	InitialSoC float64 `json:"initial_soc" yaml:"initial_soc"`
}

// KWhPerDegree is the energy needed to heat the tank by one degree.
func (t Tank) KWhPerDegree() float64 {
	return t.VolumeM3 * waterSpecificHeat * waterDensity / joulesPerKWh
}

// CapacityKWh is the energy stored in a full tank.
func (t Tank) CapacityKWh() float64 { return t.KWhPerDegree() * t.MaxTempC }

// Present reports whether the tank can store energy.
func (t Tank) Present() bool { return t.KWhPerDegree() > 0 }

// BITES is the building thermal mass used as a two-layer heat buffer.
type BITES struct {
	// AreaM2 is the part of the floor area whose thermal mass is available.
	AreaM2         float64 `json:"area_m2" yaml:"area_m2"`
	InitialShallow float64 `json:"initial_shallow_kwh" yaml:"initial_shallow_kwh"`
	InitialDeep    float64 `json:"initial_deep_kwh" yaml:"initial_deep_kwh"`
}

func (b BITES) ShallowCapacity() float64 { return shallowCapacityPerArea * b.AreaM2 }
func (b BITES) DeepCapacity() float64    { return deepCapacityPerArea * b.AreaM2 }

// ShallowRate bounds the heat charged to or discharged from the shallow layer
// in one hour.
func (b BITES) ShallowRate() float64 { return shallowRatePerArea * b.AreaM2 }

// Conductance scales the heat flow between the layers.
func (b BITES) Conductance() float64 { return conductancePerArea * b.AreaM2 }

// Coupled reports whether heat can flow between the two layers.
func (b BITES) Coupled() bool { return b.ShallowCapacity() > 0 && b.DeepCapacity() > 0 }

// HeatPump describes a heat pump. The same type is used for the booster heat
// pump, which never produces cooling.
type HeatPump struct {
	COP            float64 `json:"cop" yaml:"cop"`
	MaxInput       float64 `json:"max_input_kw" yaml:"max_input_kw"`
	MaxHeat        float64 `json:"max_heat_kw" yaml:"max_heat_kw"`
	CoolingCapable bool    `json:"cooling_capable" yaml:"cooling_capable"`
}

// Present reports whether the heat pump can run at all.
func (h HeatPump) Present() bool { return h.MaxInput > 0 && h.COP > 0 }

// MaxCooling is the cooling produced at full input in cooling duty.
func (h HeatPump) MaxCooling() float64 {
	if !h.CoolingCapable || h.COP <= 1 {
		return 0
	}
	return (h.COP - 1) * h.MaxInput
}

// Chiller is the community compression chiller.
type Chiller struct {
	COP          float64 `json:"cop" yaml:"cop"`
	MaxInput     float64 `json:"max_input_kw" yaml:"max_input_kw"`
	HeatRecovery bool    `json:"heat_recovery" yaml:"heat_recovery"`
}

// MaxCooling is the cooling produced at full input.
func (c Chiller) MaxCooling() float64 { return c.COP * c.MaxInput }

// WasteHeatFactor is the recovered heat per kWh of electricity.
func (c Chiller) WasteHeatFactor() float64 {
	if !c.HeatRecovery {
		return 0
	}
	return 1 + c.COP
}

// DefaultChiller mirrors the usual community chiller sizing.
func DefaultChiller() Chiller {
	return Chiller{COP: 1.5, MaxInput: 100, HeatRecovery: true}
}
