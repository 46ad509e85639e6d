package solver

import (
	"errors"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/convex/lp"

	"github.com/kilianp07/lec/core/milp"
)

// gonumSimplex solves the relaxation with gonum's standard-form simplex.
// Every row gets its own logical column so the matrix always has full row
// rank: equalities are split into a pair of inequalities and finite upper
// bounds become rows. It builds a dense LU per iteration and is only suited to
// small models.
type gonumSimplex struct {
	tol float64
}

// lpSimplex points to the standard-form solver. Tests replace it to simulate
// solver failures.
var lpSimplex = lp.Simplex

func (s gonumSimplex) solve(p *lpProblem) (lpResult, error) {
	nS := p.numCols()
	if nS == 0 {
		return lpResult{status: lpOptimal, x: []float64{}}, nil
	}
	if len(p.rows) == 0 {
		return solveBoxOnly(p), nil
	}

	type stdRow struct {
		cols  []int
		coefs []float64
		sign  float64
		rhs   float64
	}
	var rows []stdRow
	add := func(r lpRow, sign float64) {
		b := r.rhs
		for k, c := range r.cols {
			b -= r.coefs[k] * p.lo[c]
		}
		rows = append(rows, stdRow{cols: r.cols, coefs: r.coefs, sign: sign, rhs: b})
	}
	for _, r := range p.rows {
		switch r.sense {
		case milp.LessEq:
			add(r, 1)
		case milp.GreaterEq:
			add(r, -1)
		default:
			add(r, 1)
			add(r, -1)
		}
	}
	for j := 0; j < nS; j++ {
		if !math.IsInf(p.hi[j], 1) {
			rows = append(rows, stdRow{cols: []int{j}, coefs: []float64{1}, sign: 1, rhs: p.hi[j] - p.lo[j]})
		}
	}

	m := len(rows)
	n := nS + m
	A := mat.NewDense(m, n, nil)
	b := make([]float64, m)
	for i, r := range rows {
		// sign*(a.x) + s = sign*rhs with s >= 0 covers both <= and >=.
		for k, c := range r.cols {
			A.Set(i, c, A.At(i, c)+r.sign*r.coefs[k])
		}
		A.Set(i, nS+i, 1)
		b[i] = r.sign * r.rhs
	}
	c := make([]float64, n)
	copy(c, p.cost)

	tol := s.tol
	if tol <= 0 {
		tol = 1e-10
	}
	_, sol, err := lpSimplex(c, A, b, tol, nil)
	switch {
	case errors.Is(err, lp.ErrInfeasible):
		return lpResult{status: lpInfeasible}, nil
	case errors.Is(err, lp.ErrUnbounded):
		return lpResult{status: lpUnbounded}, nil
	case err != nil:
		return lpResult{}, err
	}
	x := make([]float64, nS)
	for j := range x {
		x[j] = clamp(p.lo[j]+sol[j], p.lo[j], p.hi[j])
	}
	return lpResult{status: lpOptimal, x: x, obj: p.objective(x)}, nil
}
