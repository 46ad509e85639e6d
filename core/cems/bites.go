package cems

import (
	"github.com/kilianp07/lec/core/milp"
	"github.com/kilianp07/lec/core/model"
)

// bitesTerms are the variables of the building thermal mass. Retention
// losses are substituted into the layer dynamics and recovered from the
// energies when a schedule is extracted.
type bitesTerms struct {
	// charge is the heat stored in (positive) or released from (negative)
	// the shallow layer.
	charge  flows
	vars    []milp.VarID
	flow    []milp.VarID
	shallow []milp.VarID
	deep    []milp.VarID
	params  model.BITES
}

// buildBITES adds the two-layer storage. supplyCap is the largest heat the
// agent can obtain in one hour, which bounds how much the shallow layer can
// absorb on top of the space heating demand.
func buildBITES(b *builder, sc string, bt model.BITES, spaceHeat model.Series, supplyCap float64) bitesTerms {
	if !bt.Coupled() {
		return bitesTerms{charge: emptyFlows(b.h), params: bt}
	}
	capS, capD, rate, k := bt.ShallowCapacity(), bt.DeepCapacity(), bt.ShallowRate(), bt.Conductance()
	bs := bitesTerms{
		vars:    b.series(sc+"bites_charge", -rate, rate),
		flow:    b.series(sc+"bites_flow", -k, k),
		shallow: b.series(sc+"bites_shallow", 0, capS),
		deep:    b.series(sc+"bites_deep", 0, capD),
		params:  bt,
	}
	bs.charge = varFlows(bs.vars, 1)
	for t := 0; t < b.h; t++ {
		es := milp.Expr{}.Add(bs.shallow[t], 1).Add(bs.vars[t], -1).Add(bs.flow[t], 1)
		ed := milp.Expr{}.Add(bs.deep[t], 1).Add(bs.flow[t], -1)
		rs, rd := bt.InitialShallow, bt.InitialDeep
		if t > 0 {
			es = es.Add(bs.shallow[t-1], -model.ShallowRetention)
			ed = ed.Add(bs.deep[t-1], -model.DeepRetention)
			rs, rd = 0, 0
		}
		b.row(sc+"bites_shallow_bal", t, es, milp.Equal, rs)
		b.row(sc+"bites_deep_bal", t, ed, milp.Equal, rd)

		f := milp.Expr{}.Add(bs.flow[t], 1).Add(bs.shallow[t], -k/capS).Add(bs.deep[t], k/capD)
		b.row(sc+"bites_flow_def", t, f, milp.Equal, 0)

		// Discharge cannot exceed the space heating it replaces and charge
		// cannot exceed what is left of the supply.
		b.row(sc+"bites_release", t, milp.Expr{}.Add(bs.vars[t], -1), milp.LessEq, spaceHeat.At(t))
		b.row(sc+"bites_store", t, milp.Expr{}.Add(bs.vars[t], 1), milp.LessEq, supplyCap-spaceHeat.At(t))
	}
	return bs
}

// losses returns the retention losses of each layer per step. The first step
// has none.
func (bs bitesTerms) losses(x []float64) (shallow, deep []float64) {
	if bs.shallow == nil {
		return nil, nil
	}
	shallow = make([]float64, len(bs.shallow))
	deep = make([]float64, len(bs.deep))
	for t := 1; t < len(shallow); t++ {
		shallow[t] = (1 - model.ShallowRetention) * x[bs.shallow[t-1]]
		deep[t] = (1 - model.DeepRetention) * x[bs.deep[t-1]]
	}
	return shallow, deep
}
