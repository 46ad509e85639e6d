package solver

import (
	"fmt"
	"math"

	"github.com/kilianp07/lec/core/milp"
)

const (
	fixTol       = 1e-9
	maxPresolves = 50
)

// presolved is the reduced LP of a model under a set of bounds together with
// the values of the variables that presolve removed.
type presolved struct {
	lp *lpProblem
	// cols maps each LP column to its model variable.
	cols []int
	// x holds the final value of removed variables. Entries of LP columns are
	// filled by expand.
	x []float64
	// offset is the objective contribution of removed variables.
	offset     float64
	infeasible bool
	unbounded  bool
}

// expand maps an LP solution back to a full model assignment.
func (p *presolved) expand(lpx []float64) []float64 {
	x := make([]float64, len(p.x))
	copy(x, p.x)
	for c, j := range p.cols {
		x[j] = lpx[c]
	}
	return x
}

type sparseRow struct {
	vars  []int
	coefs []float64
	sense milp.Sense
	rhs   float64
}

// compileRows merges duplicate terms and drops zero coefficients.
func compileRows(m *milp.Model) []sparseRow {
	cons := m.Constraints()
	rows := make([]sparseRow, len(cons))
	for i, c := range cons {
		idx := make(map[int]int, len(c.Expr.Terms))
		r := sparseRow{sense: c.Sense, rhs: c.RHS}
		for _, t := range c.Expr.Terms {
			j := int(t.Var)
			if k, ok := idx[j]; ok {
				r.coefs[k] += t.Coef
				continue
			}
			idx[j] = len(r.vars)
			r.vars = append(r.vars, j)
			r.coefs = append(r.coefs, t.Coef)
		}
		n := 0
		for k := range r.vars {
			if r.coefs[k] != 0 {
				r.vars[n], r.coefs[n] = r.vars[k], r.coefs[k]
				n++
			}
		}
		r.vars, r.coefs = r.vars[:n], r.coefs[:n]
		rows[i] = r
	}
	return rows
}

func objectiveCosts(m *milp.Model) []float64 {
	cost := make([]float64, m.NumVars())
	for _, t := range m.Objective().Terms {
		cost[t.Var] += t.Coef
	}
	return cost
}

// presolver holds the immutable part of a model shared by every node.
type presolver struct {
	model *milp.Model
	rows  []sparseRow
	cost  []float64
	integ []bool
}

func newPresolver(m *milp.Model) (*presolver, error) {
	ps := &presolver{model: m, rows: compileRows(m), cost: objectiveCosts(m)}
	ps.integ = make([]bool, m.NumVars())
	for j, v := range m.Vars() {
		if math.IsInf(v.Lower, -1) {
			return nil, fmt.Errorf("variable %s has no finite lower bound", v.Name)
		}
		ps.integ[j] = v.Integral()
	}
	return ps, nil
}

// run fixes variables, turns singleton rows into bounds and drops redundant
// rows until nothing changes. lo and hi are modified in place.
func (ps *presolver) run(lo, hi []float64) *presolved {
	out := &presolved{x: make([]float64, len(lo))}
	for j := range lo {
		if ps.integ[j] {
			lo[j] = math.Ceil(lo[j] - intTol)
			hi[j] = math.Floor(hi[j] + intTol)
		}
		if lo[j] > hi[j]+feasTol {
			out.infeasible = true
			return out
		}
	}
	fixed := func(j int) bool { return hi[j]-lo[j] <= fixTol }

	tighten := func(j int, l, u float64) bool {
		if ps.integ[j] {
			l = math.Ceil(l - intTol)
			u = math.Floor(u + intTol)
		}
		if l > lo[j] {
			lo[j] = l
		}
		if u < hi[j] {
			hi[j] = u
		}
		if lo[j] > hi[j]+feasTol {
			return false
		}
		if lo[j] > hi[j] {
			hi[j] = lo[j]
		}
		return true
	}

	active := make([]bool, len(ps.rows))
	for i := range active {
		active[i] = true
	}

	for pass := 0; pass < maxPresolves; pass++ {
		changed := false
		for i, r := range ps.rows {
			if !active[i] {
				continue
			}
			rhs := r.rhs
			free, single := 0, -1
			minAct, maxAct := 0.0, 0.0
			for k, j := range r.vars {
				a := r.coefs[k]
				if fixed(j) {
					rhs -= a * lo[j]
					continue
				}
				free++
				single = k
				if a > 0 {
					minAct += a * lo[j]
					maxAct += a * hi[j]
				} else {
					minAct += a * hi[j]
					maxAct += a * lo[j]
				}
			}
			switch {
			case free == 0:
				if !senseHolds(0, r.sense, rhs) {
					out.infeasible = true
					return out
				}
				active[i] = false
				changed = true
			case free == 1:
				j, a := r.vars[single], r.coefs[single]
				b := rhs / a
				l, u := math.Inf(-1), math.Inf(1)
				switch {
				case r.sense == milp.Equal:
					l, u = b, b
				case (r.sense == milp.LessEq) == (a > 0):
					u = b
				default:
					l = b
				}
				if ok := tighten(j, l, u); !ok {
					out.infeasible = true
					return out
				}
				active[i] = false
				changed = true
			default:
				forceMin, forceMax := false, false
				switch r.sense {
				case milp.LessEq:
					if minAct > rhs+feasTol {
						out.infeasible = true
						return out
					}
					if maxAct <= rhs+feasTol {
						active[i] = false
						changed = true
					}
					forceMin = minAct >= rhs-feasTol
				case milp.GreaterEq:
					if maxAct < rhs-feasTol {
						out.infeasible = true
						return out
					}
					if minAct >= rhs-feasTol {
						active[i] = false
						changed = true
					}
					forceMax = maxAct <= rhs+feasTol
				case milp.Equal:
					if minAct > rhs+feasTol || maxAct < rhs-feasTol {
						out.infeasible = true
						return out
					}
					forceMin = minAct >= rhs-feasTol
					forceMax = !forceMin && maxAct <= rhs+feasTol
				}
				if forceMin || forceMax {
					// Forcing row: every free variable sits at the bound that
					// attains the activity limit.
					for k, j := range r.vars {
						if fixed(j) {
							continue
						}
						atLo := (r.coefs[k] > 0) == forceMin
						if atLo {
							hi[j] = lo[j]
						} else {
							lo[j] = hi[j]
						}
					}
					active[i] = false
					changed = true
				}
			}
		}
		if !changed {
			break
		}
	}

	used := make([]bool, len(lo))
	for i, r := range ps.rows {
		if !active[i] {
			continue
		}
		for _, j := range r.vars {
			used[j] = true
		}
	}
	for j := range lo {
		if fixed(j) || used[j] {
			continue
		}
		switch {
		case ps.cost[j] >= 0:
			hi[j] = lo[j]
		case math.IsInf(hi[j], 1):
			out.unbounded = true
			return out
		default:
			lo[j] = hi[j]
		}
	}

	colOf := make([]int, len(lo))
	lp := &lpProblem{}
	for j := range lo {
		if fixed(j) {
			colOf[j] = -1
			out.x[j] = lo[j]
			out.offset += ps.cost[j] * lo[j]
			continue
		}
		colOf[j] = len(out.cols)
		out.cols = append(out.cols, j)
		lp.lo = append(lp.lo, lo[j])
		lp.hi = append(lp.hi, hi[j])
		lp.cost = append(lp.cost, ps.cost[j])
	}
	out.offset += ps.model.Objective().Constant

	for i, r := range ps.rows {
		if !active[i] {
			continue
		}
		row := lpRow{sense: r.sense, rhs: r.rhs}
		for k, j := range r.vars {
			if c := colOf[j]; c >= 0 {
				row.cols = append(row.cols, c)
				row.coefs = append(row.coefs, r.coefs[k])
			} else {
				row.rhs -= r.coefs[k] * out.x[j]
			}
		}
		if len(row.cols) == 0 {
			if !senseHolds(0, row.sense, row.rhs) {
				out.infeasible = true
				return out
			}
			continue
		}
		lp.rows = append(lp.rows, row)
	}
	out.lp = lp
	return out
}

func senseHolds(lhs float64, s milp.Sense, rhs float64) bool {
	switch s {
	case milp.LessEq:
		return lhs <= rhs+feasTol
	case milp.GreaterEq:
		return lhs >= rhs-feasTol
	default:
		return math.Abs(lhs-rhs) <= feasTol
	}
}
