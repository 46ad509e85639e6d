// Package solver implements milp.Solver backends: a branch-and-bound search
// over LP relaxations solved either by a bounded-variable simplex on a dense
// gonum tableau or by gonum's standard-form simplex.
package solver

import "github.com/kilianp07/lec/core/milp"

const (
	feasTol  = 1e-7
	optTol   = 1e-9
	pivotTol = 1e-9
	intTol   = 1e-6
)

// lpRow is a constraint of a reduced LP over column indices.
type lpRow struct {
	cols  []int
	coefs []float64
	sense milp.Sense
	rhs   float64
}

// lpProblem is a continuous relaxation after presolve. Every lower bound is
// finite; upper bounds may be +Inf.
type lpProblem struct {
	rows []lpRow
	lo   []float64
	hi   []float64
	cost []float64
}

func (p *lpProblem) numCols() int { return len(p.cost) }

type lpStatus int

const (
	lpOptimal lpStatus = iota
	lpInfeasible
	lpUnbounded
	lpIterLimit
)

type lpResult struct {
	status lpStatus
	x      []float64
	obj    float64
	iters  int
}

// lpSolver solves a reduced LP.
type lpSolver interface {
	solve(p *lpProblem) (lpResult, error)
}

// objective evaluates the LP cost at x.
func (p *lpProblem) objective(x []float64) float64 {
	s := 0.0
	for j, c := range p.cost {
		s += c * x[j]
	}
	return s
}
