package cems

import (
	"maps"
	"math"
	"slices"
	"strconv"

	"github.com/kilianp07/lec/core/model"
)

// ValidateAgent checks the inputs of a single-agent problem. It returns a
// *ValidationError listing every violation.
func ValidateAgent(p AgentProblem) error {
	var v violations
	validateHorizon(&v, p.Horizon)
	validateAgent(&v, "agent", p.Agent, p.Horizon)
	validateTariff(&v, p.Tariff, p.Horizon)
	validateGrid(&v, p.Grid, false)
	validateCalendar(&v, p.Calendar)
	validatePeaks(&v, p.Peaks)
	return v.err()
}

// ValidateCommunity checks the inputs of a community problem.
func ValidateCommunity(p CommunityProblem) error {
	var v violations
	validateHorizon(&v, p.Horizon)
	if len(p.Agents) == 0 {
		v.addf("community has no agents")
	}
	seen := make(map[string]int, len(p.Agents))
	for i, a := range p.Agents {
		if j, ok := seen[a.ID]; ok && a.ID != "" {
			v.addf("agents %d and %d share id %q", j, i, a.ID)
		}
		seen[a.ID] = i
		validateAgent(&v, agentLabel(i, a), a, p.Horizon)
	}
	validateTariff(&v, p.Tariff, p.Horizon)
	validateGrid(&v, p.Grid, true)
	validateCalendar(&v, p.Calendar)
	validatePeaks(&v, p.Peaks)
	c := p.Chiller
	if !nonNegative(c.COP) || !nonNegative(c.MaxInput) {
		v.addf("chiller: cop and max input must be finite and non-negative")
	}
	if share := p.lowTempShare(); !(share >= 0 && share <= 1) {
		v.addf("low temperature share %g outside [0,1]", share)
	}
	return v.err()
}

func agentLabel(i int, a model.Agent) string {
	if a.ID == "" {
		return "agent[" + strconv.Itoa(i) + "]"
	}
	return "agent " + a.ID
}

func validateHorizon(v *violations, h int) {
	if h < MinHorizon {
		v.addf("horizon %d is shorter than %d hours", h, MinHorizon)
	}
}

func validateAgent(v *violations, label string, a model.Agent, h int) {
	if err := a.Validate(); err != nil {
		v.addf("%s: %v", label, err)
	}
	named := a.Profiles.Named()
	for _, name := range slices.Sorted(maps.Keys(named)) {
		validateSeries(v, label+" "+name, named[name], h, true)
	}

	b := a.Battery
	if !nonNegative(b.CapacityKWh) || !nonNegative(b.MaxChargeKW) || !nonNegative(b.MaxDischargeKW) {
		v.addf("%s: battery ratings must be finite and non-negative", label)
	}
	if b.Present() {
		validateEfficiency(v, label+" battery", b.Efficiency)
		validateSoC(v, label+" battery", b.InitialSoC)
	}

	t := a.Tank
	if !nonNegative(t.VolumeM3) || !finite(t.MaxTempC) {
		v.addf("%s: tank ratings must be finite and non-negative", label)
	}
	if t.VolumeM3 > 0 {
		if t.MaxTempC <= 0 {
			v.addf("%s: tank has volume but max temperature %g", label, t.MaxTempC)
		}
		validateEfficiency(v, label+" tank", t.Efficiency)
		validateSoC(v, label+" tank", t.InitialSoC)
	}

	bt := a.BITES
	if !nonNegative(bt.AreaM2) {
		v.addf("%s: bites area must be finite and non-negative", label)
	}
	if bt.InitialShallow < 0 || bt.InitialShallow > bt.ShallowCapacity()+1e-9 {
		v.addf("%s: initial shallow energy %g outside [0,%g]", label, bt.InitialShallow, bt.ShallowCapacity())
	}
	if bt.InitialDeep < 0 || bt.InitialDeep > bt.DeepCapacity()+1e-9 {
		v.addf("%s: initial deep energy %g outside [0,%g]", label, bt.InitialDeep, bt.DeepCapacity())
	}

	validateHeatPump(v, label+" heat pump", a.HeatPump)
	validateHeatPump(v, label+" booster", a.Booster)
}

func validateHeatPump(v *violations, label string, hp model.HeatPump) {
	if !nonNegative(hp.COP) || !nonNegative(hp.MaxInput) || !nonNegative(hp.MaxHeat) {
		v.addf("%s: ratings must be finite and non-negative", label)
	}
}

func validateTariff(v *violations, tr model.Tariff, h int) {
	validateSeries(v, "buy price", tr.BuyPrice, h, false)
	validateSeries(v, "sell price", tr.SellPrice, h, false)
	if !finite(tr.TransmissionFee) || !finite(tr.Tax) || !finite(tr.FeedInIncentive) {
		v.addf("transmission fee, tax and feed-in incentive must be finite")
	}
	if !nonNegative(tr.HeatPrice) {
		v.addf("heat price must be finite and non-negative")
	}
	if !nonNegative(tr.ElecPeakLoadFee) || !nonNegative(tr.HeatPeakLoadFee) {
		v.addf("peak load fees must be finite and non-negative")
	}
}

func validateGrid(v *violations, g model.GridLimits, community bool) {
	if !nonNegative(g.MarketElecMax) || !nonNegative(g.MarketHeatMax) {
		v.addf("market caps must be finite and non-negative")
	}
	if !community {
		return
	}
	if !nonNegative(g.InternalElecMax) || !nonNegative(g.InternalHeatMax) || !nonNegative(g.InternalCoolMax) {
		v.addf("internal grid caps must be finite and non-negative")
	}
	if !(g.HeatLoss > 0 && g.HeatLoss < 1) {
		v.addf("heat loss %g outside (0,1)", g.HeatLoss)
	}
	if !(g.CoolLoss > 0 && g.CoolLoss < 1) {
		v.addf("cooling loss %g outside (0,1)", g.CoolLoss)
	}
}

func validateCalendar(v *violations, c model.Calendar) {
	if c.Month < 1 || c.Month > 12 {
		v.addf("month %d outside 1..12", c.Month)
	}
}

func validatePeaks(v *violations, p model.PeakLoadHistory) {
	for i, x := range p.DailyElecPeaks {
		if !nonNegative(x) {
			v.addf("daily peak %d must be finite and non-negative", i)
		}
	}
	if !nonNegative(p.MonthlyHeat) {
		v.addf("monthly heat peak must be finite and non-negative")
	}
}

// validateSeries accepts an empty series as all zeros.
func validateSeries(v *violations, name string, s model.Series, h int, nonNeg bool) {
	if len(s) == 0 {
		return
	}
	if len(s) < h {
		v.addf("%s has %d values, need %d", name, len(s), h)
		return
	}
	for t := 0; t < h; t++ {
		switch {
		case !finite(s[t]):
			v.addf("%s[%d] is not finite", name, t)
			return
		case nonNeg && s[t] < 0:
			v.addf("%s[%d] is negative", name, t)
			return
		}
	}
}

func validateEfficiency(v *violations, label string, eff float64) {
	if !(eff > 0 && eff <= 1) {
		v.addf("%s: efficiency %g outside (0,1]", label, eff)
	}
}

func validateSoC(v *violations, label string, soc float64) {
	if !(soc >= 0 && soc <= 1) {
		v.addf("%s: initial soc %g outside [0,1]", label, soc)
	}
}

func finite(x float64) bool { return !math.IsNaN(x) && !math.IsInf(x, 0) }

func nonNegative(x float64) bool { return finite(x) && x >= 0 }
