package app

import (
	"time"

	"github.com/kilianp07/lec/core/cems"
	"github.com/kilianp07/lec/core/model"
)

// Keys of the aggregated results stored with every run.
const (
	KeyNetImportElec    = "sum_net_import_elec"
	KeyNetImportHeat    = "sum_net_import_heat"
	KeyMaxNetImportElec = "max_net_import_elec"
	KeyMaxNetImportHeat = "max_net_import_heat"
	KeyTaxPaid          = "tax_paid"
	KeyGridFeesPaid     = "grid_fees_paid"
	KeyTotalCost        = "total_cost"
	KeyLocalElec        = "locally_produced_elec"
	KeyLocalHeat        = "locally_produced_heat"
	KeyLocalCool        = "locally_produced_cool"
	KeySolvedHorizons   = "solved_horizons"
	KeyUnsolvedHorizons = "unsolved_horizons"
	KeyPrecheckFailures = "precheck_failures"
)

// MonthlyKey returns the key of a per-month result, e.g.
// max_net_import_elec_2024_07.
func MonthlyKey(key string, t time.Time) string {
	return key + "_" + t.Format("2006_01")
}

// results accumulates the external exchanges of the community over a run.
// Net imports are summed over every participant trading externally: the hub
// in community mode, each agent otherwise.
type results struct {
	values map[string]float64
}

func newResults() *results {
	return &results{values: map[string]float64{}}
}

// add accounts one solved subject of a horizon. agents are the inputs of the
// horizon, used for the locally produced electricity.
func (r *results) add(start time.Time, tariff model.Tariff, agents []model.Agent, sol *cems.Solution) {
	buy, sell, heat := externalFlows(sol)
	elecKey := MonthlyKey(KeyMaxNetImportElec, start)
	heatKey := MonthlyKey(KeyMaxNetImportHeat, start)
	for t := 0; t < sol.Horizon; t++ {
		net := at(buy, t) - at(sell, t)
		r.values[KeyNetImportElec] += net
		r.values[KeyNetImportHeat] += at(heat, t)
		r.values[KeyTaxPaid] += at(buy, t) * tariff.Tax
		r.values[KeyGridFeesPaid] += at(buy, t) * tariff.TransmissionFee
		r.max(elecKey, net)
		r.max(heatKey, at(heat, t))
	}
	r.values[KeyTotalCost] += sol.Cost.Total()

	pv := make(map[string]model.Series, len(agents))
	for _, a := range agents {
		pv[a.ID] = a.Profiles.PVProduction
	}
	for _, s := range sol.Agents {
		r.values[KeyLocalElec] += sumN(pv[s.AgentID], sol.Horizon)
		r.values[KeyLocalHeat] += sumN(s.HeatPumpHeat, sol.Horizon) + sumN(s.BoosterHeat, sol.Horizon)
		r.values[KeyLocalCool] += sumN(s.HeatPumpCool, sol.Horizon)
	}
	if sol.Hub != nil {
		r.values[KeyLocalHeat] += sumN(sol.Hub.ChillerHeat, sol.Horizon)
		r.values[KeyLocalCool] += sumN(sol.Hub.ChillerCool, sol.Horizon)
	}
}

func (r *results) max(key string, v float64) {
	if cur, ok := r.values[key]; !ok || v > cur {
		r.values[key] = v
	}
}

func (r *results) count(key string) { r.values[key]++ }

// Map returns a copy of the accumulated values.
func (r *results) Map() map[string]float64 {
	out := make(map[string]float64, len(r.values))
	for k, v := range r.values {
		out[k] = v
	}
	return out
}

// externalFlows returns the hourly exchanges with the external market.
func externalFlows(sol *cems.Solution) (buy, sell, heat []float64) {
	if sol.Hub != nil {
		return sol.Hub.ElecBuy, sol.Hub.ElecSell, sol.Hub.HeatBuy
	}
	buy = make([]float64, sol.Horizon)
	sell = make([]float64, sol.Horizon)
	heat = make([]float64, sol.Horizon)
	for _, s := range sol.Agents {
		for t := 0; t < sol.Horizon; t++ {
			buy[t] += at(s.ElecBuy, t)
			sell[t] += at(s.ElecSell, t)
			heat[t] += at(s.HeatBuy, t)
		}
	}
	return buy, sell, heat
}

func sumN(s []float64, n int) float64 {
	total := 0.0
	for t := 0; t < n && t < len(s); t++ {
		total += s[t]
	}
	return total
}

func at(s []float64, t int) float64 {
	if t < 0 || t >= len(s) {
		return 0
	}
	return s[t]
}
