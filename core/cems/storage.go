package cems

import (
	"github.com/kilianp07/lec/core/milp"
	"github.com/kilianp07/lec/core/model"
)

// storageTerms are the variables of a battery or tank. soc is nil when the
// device is absent.
type storageTerms struct {
	charge, discharge []milp.VarID
	soc               []milp.VarID
	capacity          float64
	initial           float64
}

// tankTerms adds the heat the hot-water demand draws from the heat balance:
// the tank charge when a tank is present, the raw demand otherwise.
type tankTerms struct {
	storageTerms
	load flows
}

func buildBattery(b *builder, sc string, bat model.Battery) storageTerms {
	if !bat.Present() {
		return idleStorage(b, sc+"bat", bat.MaxChargeKW, bat.MaxDischargeKW, bat.InitialSoC)
	}
	st := storageTerms{
		charge:    b.series(sc+"bat_charge", 0, bat.MaxChargeKW),
		discharge: b.series(sc+"bat_discharge", 0, bat.MaxDischargeKW),
		soc:       b.series(sc+"bat_soc", 0, 1),
		capacity:  bat.CapacityKWh,
		initial:   bat.InitialSoC,
	}
	socDynamics(b, sc+"bat", st, bat.Efficiency)
	// A battery that cannot charge or cannot discharge stays idle.
	wc, wd, rhs := 1/bat.MaxChargeKW, 1/bat.MaxDischargeKW, 1.0
	if bat.MaxChargeKW == 0 || bat.MaxDischargeKW == 0 {
		wc, wd, rhs = 1, 1, 0
	}
	for t := 0; t < b.h; t++ {
		b.row(sc+"bat_excl", t, milp.Expr{}.Add(st.charge[t], wc).Add(st.discharge[t], wd), milp.LessEq, rhs)
	}
	return st
}

func buildTank(b *builder, sc string, tank model.Tank, hotWater model.Series) tankTerms {
	if !tank.Present() {
		return tankTerms{
			storageTerms: idleStorage(b, sc+"tank", model.Inf, model.Inf, tank.InitialSoC),
			load:         constFlows(hotWater, b.h),
		}
	}
	capacity := tank.CapacityKWh()
	st := storageTerms{
		charge:    b.series(sc+"tank_charge", 0, capacity),
		discharge: b.series(sc+"tank_discharge", 0, capacity),
		soc:       b.series(sc+"tank_soc", 0, 1),
		capacity:  capacity,
		initial:   tank.InitialSoC,
	}
	socDynamics(b, sc+"tank", st, tank.Efficiency)
	for t := 0; t < b.h; t++ {
		b.row(sc+"tank_hot_water", t, milp.Expr{}.Add(st.discharge[t], 1), milp.Equal, hotWater.At(t))
	}
	return tankTerms{storageTerms: st, load: varFlows(st.charge, 1)}
}

// idleStorage forces charge and discharge of an absent device to zero.
func idleStorage(b *builder, name string, maxCharge, maxDischarge, initial float64) storageTerms {
	st := storageTerms{
		charge:    b.series(name+"_charge", 0, maxCharge),
		discharge: b.series(name+"_discharge", 0, maxDischarge),
		initial:   initial,
	}
	for t := 0; t < b.h; t++ {
		b.row(name+"_idle", t, milp.Expr{}.Add(st.charge[t], 1).Add(st.discharge[t], 1), milp.Equal, 0)
	}
	return st
}

// socDynamics links the state of charge to charge and discharge with the
// round-trip efficiency split between both directions, and returns the
// device to its initial state at the end of the horizon.
func socDynamics(b *builder, name string, st storageTerms, eff float64) {
	for t := 0; t < b.h; t++ {
		e := milp.Expr{}.
			Add(st.soc[t], 1).
			Add(st.charge[t], -eff/st.capacity).
			Add(st.discharge[t], 1/(st.capacity*eff))
		rhs := st.initial
		if t > 0 {
			e = e.Add(st.soc[t-1], -1)
			rhs = 0
		}
		b.row(name+"_soc", t, e, milp.Equal, rhs)
	}
	b.row(name+"_cyclic", b.h-1, milp.Expr{}.Add(st.soc[b.h-1], 1), milp.Equal, st.initial)
}
