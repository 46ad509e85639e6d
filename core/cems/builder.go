package cems

import (
	"fmt"

	"github.com/kilianp07/lec/core/milp"
)

// builder emits variables and constraints of one horizon into a fresh model.
type builder struct {
	m *milp.Model
	h int
}

func newBuilder(name string, h int) *builder {
	return &builder{m: milp.NewModel(name), h: h}
}

// scope prefixes variable names with the agent index. A negative index is the
// single-agent model.
func scope(agent int) string {
	if agent < 0 {
		return ""
	}
	return fmt.Sprintf("a%d.", agent)
}

func (b *builder) series(name string, lo, hi float64) []milp.VarID {
	vs := make([]milp.VarID, b.h)
	for t := range vs {
		vs[t] = b.m.Continuous(fmt.Sprintf("%s[%d]", name, t), lo, hi)
	}
	return vs
}

func (b *builder) binaries(name string) []milp.VarID {
	vs := make([]milp.VarID, b.h)
	for t := range vs {
		vs[t] = b.m.Binary(fmt.Sprintf("%s[%d]", name, t))
	}
	return vs
}

func (b *builder) row(name string, t int, e milp.Expr, s milp.Sense, rhs float64) {
	b.m.AddConstraint(fmt.Sprintf("%s[%d]", name, t), e, s, rhs)
}

// tradePair creates buy and sell series that are never both positive: the
// binary side is 1 when selling.
func (b *builder) tradePair(name string, limit float64) (buy, sell, side []milp.VarID) {
	buy = b.series(name+"_buy", 0, limit)
	sell = b.series(name+"_sell", 0, limit)
	side = b.binaries(name + "_side")
	for t := 0; t < b.h; t++ {
		b.row(name+"_buy_excl", t, milp.Expr{}.Add(buy[t], 1).Add(side[t], limit), milp.LessEq, limit)
		b.row(name+"_sell_excl", t, milp.Expr{}.Add(sell[t], 1).Add(side[t], -limit), milp.LessEq, 0)
	}
	return buy, sell, side
}

// flows holds one linear expression per step. Absent devices contribute
// empty expressions so balances are assembled the same way for every agent.
type flows []milp.Expr

func emptyFlows(h int) flows { return make(flows, h) }

func varFlows(vs []milp.VarID, coef float64) flows {
	f := make(flows, len(vs))
	for t, v := range vs {
		f[t] = milp.Expr{}.Add(v, coef)
	}
	return f
}

func constFlows(s []float64, h int) flows {
	f := make(flows, h)
	for t := range f {
		if t < len(s) {
			f[t] = milp.Expr{}.AddConst(s[t])
		}
	}
	return f
}

func (f flows) eval(x []float64) []float64 {
	out := make([]float64, len(f))
	for t, e := range f {
		out[t] = e.Eval(x)
	}
	return out
}

func values(vs []milp.VarID, x []float64) []float64 {
	if vs == nil {
		return nil
	}
	out := make([]float64, len(vs))
	for t, v := range vs {
		out[t] = x[v]
	}
	return out
}
