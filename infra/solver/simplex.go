package solver

import (
	"math"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/lec/core/milp"
)

const (
	blandAfter   = 50
	phaseOneTol  = 1e-6
	ratioTieTol  = 1e-12
	defaultIters = 20000
)

// boundedSimplex is a two-phase primal simplex that keeps variable bounds out
// of the constraint matrix. Nonbasic columns sit at their lower or upper bound
// and the ratio test allows the entering column to flip between them.
type boundedSimplex struct {
	maxIter int
}

type tableau struct {
	t    *mat.Dense
	m, n int

	ub      []float64
	atUpper []bool
	basis   []int
	rowOf   []int
	beta    []float64
	d       []float64

	nStruct  int
	artStart int

	degenerate int
	bland      bool
	iters      int
	maxIter    int
}

func (s boundedSimplex) solve(p *lpProblem) (lpResult, error) {
	n := p.numCols()
	if n == 0 {
		return lpResult{status: lpOptimal, x: []float64{}}, nil
	}
	if len(p.rows) == 0 {
		return solveBoxOnly(p), nil
	}
	tb := newTableau(p)
	tb.maxIter = s.maxIter
	if tb.maxIter <= 0 {
		tb.maxIter = max(defaultIters, 50*(tb.m+tb.n))
	}

	if tb.artStart < tb.n {
		c1 := make([]float64, tb.n)
		for j := tb.artStart; j < tb.n; j++ {
			c1[j] = 1
		}
		tb.reducedCosts(c1)
		st := tb.iterate()
		if st == lpIterLimit {
			return lpResult{status: st, iters: tb.iters}, nil
		}
		infeas := 0.0
		for i, j := range tb.basis {
			if j >= tb.artStart {
				infeas += tb.beta[i]
			}
		}
		if infeas > phaseOneTol*(1+tb.rhsScale()) {
			return lpResult{status: lpInfeasible, iters: tb.iters}, nil
		}
		for j := tb.artStart; j < tb.n; j++ {
			tb.ub[j] = 0
			tb.atUpper[j] = false
		}
		for i, j := range tb.basis {
			if j >= tb.artStart {
				tb.beta[i] = 0
			}
		}
	}

	c2 := make([]float64, tb.n)
	copy(c2, p.cost)
	tb.reducedCosts(c2)
	st := tb.iterate()
	if st != lpOptimal {
		return lpResult{status: st, iters: tb.iters}, nil
	}

	x := make([]float64, n)
	for j := 0; j < n; j++ {
		v := 0.0
		switch {
		case tb.rowOf[j] >= 0:
			v = tb.beta[tb.rowOf[j]]
		case tb.atUpper[j]:
			v = tb.ub[j]
		}
		x[j] = clamp(p.lo[j]+v, p.lo[j], p.hi[j])
	}
	return lpResult{status: lpOptimal, x: x, obj: p.objective(x), iters: tb.iters}, nil
}

// solveBoxOnly handles an LP without rows: each column goes to its cheaper
// bound.
func solveBoxOnly(p *lpProblem) lpResult {
	x := make([]float64, p.numCols())
	for j, c := range p.cost {
		switch {
		case c >= 0:
			x[j] = p.lo[j]
		case math.IsInf(p.hi[j], 1):
			return lpResult{status: lpUnbounded}
		default:
			x[j] = p.hi[j]
		}
	}
	return lpResult{status: lpOptimal, x: x, obj: p.objective(x)}
}

// newTableau shifts every column to a zero lower bound, normalizes rows to a
// non-negative right-hand side and starts from the slack/artificial basis.
func newTableau(p *lpProblem) *tableau {
	m, nS := len(p.rows), p.numCols()
	rhs := make([]float64, m)
	sign := make([]float64, m)
	nL := 0
	for i, r := range p.rows {
		b := r.rhs
		for k, c := range r.cols {
			b -= r.coefs[k] * p.lo[c]
		}
		rhs[i] = b
		sign[i] = 1
		if b < 0 {
			sign[i] = -1
		}
		if r.sense != milp.Equal {
			nL++
		}
	}
	logical := make([]int, m)
	needArt := make([]bool, m)
	nA, next := 0, nS
	for i, r := range p.rows {
		logical[i] = -1
		if r.sense != milp.Equal {
			logical[i] = next
			next++
		}
		if logicalCoef(r.sense)*sign[i] <= 0 {
			needArt[i] = true
			nA++
		}
	}

	n := nS + nL + nA
	tb := &tableau{
		t:        mat.NewDense(m, n, nil),
		m:        m,
		n:        n,
		ub:       make([]float64, n),
		atUpper:  make([]bool, n),
		basis:    make([]int, m),
		rowOf:    make([]int, n),
		beta:     make([]float64, m),
		d:        make([]float64, n),
		nStruct:  nS,
		artStart: nS + nL,
	}
	for j := range tb.rowOf {
		tb.rowOf[j] = -1
	}
	for j := 0; j < nS; j++ {
		tb.ub[j] = p.hi[j] - p.lo[j]
	}
	for j := nS; j < n; j++ {
		tb.ub[j] = math.Inf(1)
	}

	art := tb.artStart
	for i, r := range p.rows {
		row := tb.t.RawRowView(i)
		for k, c := range r.cols {
			row[c] += sign[i] * r.coefs[k]
		}
		if l := logical[i]; l >= 0 {
			row[l] = sign[i] * logicalCoef(r.sense)
		}
		if needArt[i] {
			row[art] = 1
			tb.basis[i] = art
			art++
		} else {
			tb.basis[i] = logical[i]
		}
		tb.rowOf[tb.basis[i]] = i
		tb.beta[i] = sign[i] * rhs[i]
	}
	return tb
}

func logicalCoef(s milp.Sense) float64 {
	switch s {
	case milp.LessEq:
		return 1
	case milp.GreaterEq:
		return -1
	default:
		return 0
	}
}

func (tb *tableau) rhsScale() float64 {
	s := 0.0
	for _, b := range tb.beta {
		s = math.Max(s, math.Abs(b))
	}
	return s
}

// reducedCosts sets d = c - c_B B^-1 A.
func (tb *tableau) reducedCosts(c []float64) {
	copy(tb.d, c)
	for i, j := range tb.basis {
		if cb := c[j]; cb != 0 {
			floats.AddScaled(tb.d, -cb, tb.t.RawRowView(i))
		}
	}
	for _, j := range tb.basis {
		tb.d[j] = 0
	}
	tb.degenerate = 0
	tb.bland = false
}

// entering picks the column to bring into the basis, or -1 at optimality.
func (tb *tableau) entering() int {
	best, q := 0.0, -1
	for j := 0; j < tb.n; j++ {
		if tb.rowOf[j] >= 0 || tb.ub[j] <= fixTol {
			continue
		}
		dj := tb.d[j]
		var score float64
		switch {
		case !tb.atUpper[j] && dj < -optTol:
			score = -dj
		case tb.atUpper[j] && dj > optTol:
			score = dj
		default:
			continue
		}
		if tb.bland {
			return j
		}
		if score > best {
			best, q = score, j
		}
	}
	return q
}

func (tb *tableau) iterate() lpStatus {
	for ; tb.iters < tb.maxIter; tb.iters++ {
		q := tb.entering()
		if q < 0 {
			return lpOptimal
		}
		dir := 1.0
		if tb.atUpper[q] {
			dir = -1
		}

		theta, r := tb.ub[q], -1
		var alphaR float64
		for i := 0; i < tb.m; i++ {
			a := dir * tb.t.At(i, q)
			var lim float64
			switch {
			case a > pivotTol:
				lim = math.Max(tb.beta[i], 0) / a
			case a < -pivotTol && !math.IsInf(tb.ub[tb.basis[i]], 1):
				lim = math.Max(tb.ub[tb.basis[i]]-tb.beta[i], 0) / -a
			default:
				continue
			}
			switch {
			case lim < theta-ratioTieTol:
			case r >= 0 && lim <= theta+ratioTieTol:
				if tb.bland && tb.basis[i] > tb.basis[r] {
					continue
				}
				if !tb.bland && math.Abs(a) <= math.Abs(alphaR) {
					continue
				}
			default:
				continue
			}
			theta, r, alphaR = lim, i, a
		}
		if r < 0 && math.IsInf(theta, 1) {
			return lpUnbounded
		}

		if theta < ratioTieTol {
			tb.degenerate++
			if tb.degenerate > blandAfter {
				tb.bland = true
			}
		} else {
			tb.degenerate = 0
			tb.bland = false
		}

		if theta > 0 {
			for i := 0; i < tb.m; i++ {
				if a := tb.t.At(i, q); a != 0 {
					tb.beta[i] -= theta * dir * a
				}
			}
		}

		if r < 0 {
			tb.atUpper[q] = !tb.atUpper[q]
			tb.clampBeta()
			continue
		}

		enterVal := dir * theta
		if tb.atUpper[q] {
			enterVal += tb.ub[q]
		}
		leave := tb.basis[r]
		tb.atUpper[leave] = alphaR < 0
		tb.pivot(r, q)
		tb.beta[r] = enterVal
		tb.basis[r] = q
		tb.rowOf[q] = r
		tb.rowOf[leave] = -1
		tb.atUpper[q] = false
		tb.clampBeta()
	}
	return lpIterLimit
}

func (tb *tableau) pivot(r, q int) {
	pr := tb.t.RawRowView(r)
	floats.Scale(1/pr[q], pr)
	pr[q] = 1
	for i := 0; i < tb.m; i++ {
		if i == r {
			continue
		}
		row := tb.t.RawRowView(i)
		if f := row[q]; f != 0 {
			floats.AddScaled(row, -f, pr)
			row[q] = 0
		}
	}
	if f := tb.d[q]; f != 0 {
		floats.AddScaled(tb.d, -f, pr)
		tb.d[q] = 0
	}
}

func (tb *tableau) clampBeta() {
	for i, v := range tb.beta {
		if v < 0 && v > -feasTol {
			tb.beta[i] = 0
		}
		if u := tb.ub[tb.basis[i]]; v > u && v < u+feasTol {
			tb.beta[i] = u
		}
	}
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
