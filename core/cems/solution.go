package cems

import (
	"math"
	"time"

	"github.com/kilianp07/lec/core/milp"
	"github.com/kilianp07/lec/core/model"
)

// AgentSchedule is the hourly dispatch of one agent. Series of absent devices
// and of trades the agent cannot make are nil.
type AgentSchedule struct {
	AgentID string `json:"agent_id"`

	ElecBuy  []float64 `json:"elec_buy"`
	ElecSell []float64 `json:"elec_sell"`
	HeatBuy  []float64 `json:"heat_buy"`
	HeatSell []float64 `json:"heat_sell,omitempty"`
	CoolBuy  []float64 `json:"cool_buy,omitempty"`
	CoolSell []float64 `json:"cool_sell,omitempty"`

	BatteryCharge    []float64 `json:"battery_charge"`
	BatteryDischarge []float64 `json:"battery_discharge"`
	BatterySoC       []float64 `json:"battery_soc,omitempty"`
	BatteryEnergy    []float64 `json:"battery_energy,omitempty"`

	TankCharge    []float64 `json:"tank_charge"`
	TankDischarge []float64 `json:"tank_discharge"`
	TankSoC       []float64 `json:"tank_soc,omitempty"`
	TankEnergy    []float64 `json:"tank_energy,omitempty"`

	BITESCharge      []float64 `json:"bites_charge,omitempty"`
	BITESFlow        []float64 `json:"bites_flow,omitempty"`
	BITESShallow     []float64 `json:"bites_shallow,omitempty"`
	BITESDeep        []float64 `json:"bites_deep,omitempty"`
	BITESShallowLoss []float64 `json:"bites_shallow_loss,omitempty"`
	BITESDeepLoss    []float64 `json:"bites_deep_loss,omitempty"`

	HeatPumpElec []float64 `json:"heat_pump_elec"`
	HeatPumpHeat []float64 `json:"heat_pump_heat"`
	HeatPumpCool []float64 `json:"heat_pump_cool"`
	BoosterElec  []float64 `json:"booster_elec"`
	BoosterHeat  []float64 `json:"booster_heat"`

	HeatDump    []float64 `json:"heat_dump"`
	CoolDump    []float64 `json:"cool_dump,omitempty"`
	CoolCurtail []float64 `json:"cool_curtail,omitempty"`
}

// BITESEnd returns the energy left in both BITES layers after the last step.
func (s AgentSchedule) BITESEnd() (shallow, deep float64, ok bool) {
	if len(s.BITESShallow) == 0 {
		return 0, 0, false
	}
	return s.BITESShallow[len(s.BITESShallow)-1], s.BITESDeep[len(s.BITESDeep)-1], true
}

// HubSchedule is the hourly dispatch of the community hub.
type HubSchedule struct {
	ElecBuy     []float64 `json:"elec_buy"`
	ElecSell    []float64 `json:"elec_sell"`
	HeatBuy     []float64 `json:"heat_buy"`
	ChillerElec []float64 `json:"chiller_elec"`
	ChillerCool []float64 `json:"chiller_cool"`
	ChillerHeat []float64 `json:"chiller_heat"`
	CoolDump    []float64 `json:"cool_dump"`
}

// CostBreakdown splits the objective of a solution. Export is revenue.
type CostBreakdown struct {
	ElecImport float64 `json:"elec_import"`
	ElecExport float64 `json:"elec_export"`
	Heat       float64 `json:"heat"`
	ElecPeak   float64 `json:"elec_peak"`
	HeatPeak   float64 `json:"heat_peak"`
	Penalty    float64 `json:"penalty"`
}

// Total is the cost the optimizer minimized.
func (c CostBreakdown) Total() float64 {
	return c.ElecImport - c.ElecExport + c.Heat + c.ElecPeak + c.HeatPeak + c.Penalty
}

// PeakOutcome holds the realized daily peaks of a horizon and the peak-load
// quantities the fees were charged on.
type PeakOutcome struct {
	DailyElecPeak   float64 `json:"daily_elec_peak"`
	DailyHeat       float64 `json:"daily_heat"`
	AverageElecPeak float64 `json:"average_elec_peak"`
	MonthlyHeat     float64 `json:"monthly_heat"`
}

// Solution is the outcome of one optimization call. Schedules, costs and
// trades are only set when the status carries a solution.
type Solution struct {
	Status    milp.Status   `json:"status"`
	Objective float64       `json:"objective"`
	Nodes     int           `json:"nodes"`
	Duration  time.Duration `json:"duration"`
	Horizon   int           `json:"horizon"`
	Topology  Topology      `json:"topology"`

	Agents []AgentSchedule `json:"agents,omitempty"`
	Hub    *HubSchedule    `json:"hub,omitempty"`
	Cost   CostBreakdown   `json:"cost"`
	Peak   PeakOutcome     `json:"peak"`

	trades []Trade
}

func newSolution(res *milp.Result, h int, tp Topology) *Solution {
	return &Solution{
		Status:    res.Status,
		Objective: res.Objective,
		Nodes:     res.Nodes,
		Duration:  res.Duration,
		Horizon:   h,
		Topology:  tp,
	}
}

// Schedule returns the schedule of the agent with the given id.
func (s *Solution) Schedule(agentID string) (AgentSchedule, bool) {
	for _, a := range s.Agents {
		if a.AgentID == agentID {
			return a, true
		}
	}
	return AgentSchedule{}, false
}

// Trades returns the net trades of the solution, one per participant, hour
// and resource.
func (s *Solution) Trades() []Trade {
	return append([]Trade(nil), s.trades...)
}

func extractAgent(av *agentVars, x []float64) AgentSchedule {
	s := AgentSchedule{
		AgentID:          av.agent.ID,
		ElecBuy:          values(av.elecBuy, x),
		ElecSell:         values(av.elecSell, x),
		HeatBuy:          values(av.heatBuy, x),
		HeatSell:         values(av.heatSell, x),
		CoolBuy:          values(av.coolBuy, x),
		CoolSell:         values(av.coolSell, x),
		BatteryCharge:    values(av.battery.charge, x),
		BatteryDischarge: values(av.battery.discharge, x),
		BatterySoC:       values(av.battery.soc, x),
		TankCharge:       values(av.tank.charge, x),
		TankDischarge:    values(av.tank.discharge, x),
		TankSoC:          values(av.tank.soc, x),
		BITESFlow:        values(av.bites.flow, x),
		BITESShallow:     values(av.bites.shallow, x),
		BITESDeep:        values(av.bites.deep, x),
		HeatPumpElec:     av.heatPump.elec.eval(x),
		HeatPumpHeat:     av.heatPump.heat.eval(x),
		HeatPumpCool:     av.heatPump.cool.eval(x),
		BoosterElec:      av.booster.elec.eval(x),
		BoosterHeat:      av.booster.heat.eval(x),
		HeatDump:         values(av.heatDump, x),
		CoolDump:         values(av.coolDump, x),
		CoolCurtail:      values(av.coolCurtail, x),
	}
	s.BatteryEnergy = scaled(s.BatterySoC, av.battery.capacity)
	s.TankEnergy = scaled(s.TankSoC, av.tank.capacity)
	if av.bites.vars != nil {
		s.BITESCharge = values(av.bites.vars, x)
		s.BITESShallowLoss, s.BITESDeepLoss = av.bites.losses(x)
	}
	return s
}

func marketCosts(tr model.Tariff, h int, buy, sell, heat []float64) CostBreakdown {
	var c CostBreakdown
	for t := 0; t < h; t++ {
		c.ElecImport += buy[t] * tr.ImportPrice(t)
		c.ElecExport += sell[t] * tr.ExportPrice(t)
		c.Heat += heat[t] * tr.HeatPrice
	}
	return c
}

func (c *CostBreakdown) addPeakFees(tr model.Tariff, h int, x []float64, pt peakTerms) {
	c.ElecPeak = float64(h) * tr.ElecPeakLoadFee * x[pt.average]
	c.HeatPeak = float64(h) / 24 * tr.HeatPeakLoadFee * x[pt.monthly]
}

func realizedPeaks(buy, sell, heat, x []float64, pt peakTerms) PeakOutcome {
	out := PeakOutcome{AverageElecPeak: x[pt.average], MonthlyHeat: x[pt.monthly]}
	for t := range buy {
		out.DailyElecPeak = math.Max(out.DailyElecPeak, buy[t]-sell[t])
	}
	out.DailyHeat = sum(heat)
	return out
}

func sum(s []float64) float64 {
	total := 0.0
	for _, v := range s {
		total += v
	}
	return total
}

func scaled(s []float64, k float64) []float64 {
	if s == nil {
		return nil
	}
	out := make([]float64, len(s))
	for i, v := range s {
		out[i] = v * k
	}
	return out
}
