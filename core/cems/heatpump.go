package cems

import (
	"github.com/kilianp07/lec/core/milp"
	"github.com/kilianp07/lec/core/model"
)

// heatPumpTerms expose the electricity drawn and the heat and cooling
// produced by a heat pump. The expressions are empty when there is none.
type heatPumpTerms struct {
	elec, heat, cool flows

	heatingInput, coolingInput []milp.VarID
	heatingOn, coolingOn       []milp.VarID
}

// buildHeatPump runs the heat pump either in heating or in cooling duty in
// each hour. Heat is COP times the heating-duty input and cooling is COP-1
// times the cooling-duty input, or nothing when the device cannot cool.
func buildHeatPump(b *builder, sc string, hp model.HeatPump) heatPumpTerms {
	if !hp.Present() {
		return heatPumpTerms{elec: emptyFlows(b.h), heat: emptyFlows(b.h), cool: emptyFlows(b.h)}
	}
	ht := heatPumpTerms{
		heatingInput: b.series(sc+"hp_heat_in", 0, hp.MaxInput),
		coolingInput: b.series(sc+"hp_cool_in", 0, hp.MaxInput),
		heatingOn:    b.binaries(sc + "hp_heat_on"),
		coolingOn:    b.binaries(sc + "hp_cool_on"),
		elec:         make(flows, b.h),
	}
	heat := b.series(sc+"hp_heat", 0, hp.MaxHeat)
	cool := b.series(sc+"hp_cool", 0, model.Inf)
	ht.heat, ht.cool = varFlows(heat, 1), varFlows(cool, 1)

	coolCoef := hp.COP - 1
	if !hp.CoolingCapable {
		coolCoef = 0
	}
	for t := 0; t < b.h; t++ {
		hin, cin := ht.heatingInput[t], ht.coolingInput[t]
		ht.elec[t] = milp.Expr{}.Add(hin, 1).Add(cin, 1)

		b.row(sc+"hp_heat_def", t, milp.Expr{}.Add(heat[t], 1).Add(hin, -hp.COP), milp.Equal, 0)
		b.row(sc+"hp_cool_def", t, milp.Expr{}.Add(cool[t], 1).Add(cin, -coolCoef), milp.Equal, 0)
		b.row(sc+"hp_input", t, ht.elec[t], milp.LessEq, hp.MaxInput)
		b.row(sc+"hp_heat_duty", t, milp.Expr{}.Add(hin, 1).Add(ht.heatingOn[t], -hp.MaxInput), milp.LessEq, 0)
		b.row(sc+"hp_cool_duty", t, milp.Expr{}.Add(cin, 1).Add(ht.coolingOn[t], -hp.MaxInput), milp.LessEq, 0)
		b.row(sc+"hp_mode", t, milp.Expr{}.Add(ht.heatingOn[t], 1).Add(ht.coolingOn[t], 1), milp.LessEq, 1)
	}
	return ht
}

// boosterTerms expose the electricity and heat of the booster heat pump.
type boosterTerms struct {
	elec, heat flows
}

func noBooster(h int) boosterTerms {
	return boosterTerms{elec: emptyFlows(h), heat: emptyFlows(h)}
}

// buildBooster lifts the share of the hot water load that low-temperature
// heat cannot cover. Without a booster that share must be zero.
func buildBooster(b *builder, sc string, hp model.HeatPump, load flows, lowTempShare float64) boosterTerms {
	rest := 1 - lowTempShare
	if !hp.Present() {
		for t := 0; t < b.h; t++ {
			b.row(sc+"booster_share", t, milp.Expr{}.AddExpr(load[t], rest), milp.Equal, 0)
		}
		return noBooster(b.h)
	}
	elec := b.series(sc+"booster_in", 0, hp.MaxInput)
	heat := b.series(sc+"booster_heat", 0, hp.MaxHeat)
	for t := 0; t < b.h; t++ {
		b.row(sc+"booster_def", t, milp.Expr{}.Add(heat[t], 1).Add(elec[t], -hp.COP), milp.Equal, 0)
		b.row(sc+"booster_share", t, milp.Expr{}.Add(heat[t], 1).AddExpr(load[t], -rest), milp.Equal, 0)
	}
	return boosterTerms{elec: varFlows(elec, 1), heat: varFlows(heat, 1)}
}
