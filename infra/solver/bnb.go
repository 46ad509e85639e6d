package solver

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/kilianp07/lec/core/logger"
	"github.com/kilianp07/lec/core/milp"
	infralogger "github.com/kilianp07/lec/infra/logger"
)

const (
	acceptTol        = 1e-5
	heuristicEvery   = 50
	defaultMaxNodes  = 20000
	defaultRelGap    = 1e-6
	defaultAbsGap    = 1e-6
	defaultTimeout   = 2 * time.Minute
	integralityRound = 0.5
)

// Options configures the branch-and-bound search.
type Options struct {
	// MaxNodes bounds the number of LP relaxations solved.
	MaxNodes int `json:"max_nodes"`
	// RelGap and AbsGap prune nodes that cannot improve the incumbent by more
	// than the larger of the two.
	RelGap float64 `json:"rel_gap"`
	AbsGap float64 `json:"abs_gap"`
	// MaxIter bounds simplex iterations per relaxation. Zero sizes the limit
	// from the tableau.
	MaxIter int `json:"max_iter"`
	// Timeout bounds one Solve call. When it fires the best integer point
	// found so far is returned with StatusFeasible. A negative value disables
	// the limit.
	Timeout time.Duration `json:"timeout"`
}

// DefaultOptions returns the options used when a field is left at zero.
func DefaultOptions() Options {
	return Options{MaxNodes: defaultMaxNodes, RelGap: defaultRelGap, AbsGap: defaultAbsGap, Timeout: defaultTimeout}
}

func (o *Options) setDefaults() {
	d := DefaultOptions()
	if o.MaxNodes <= 0 {
		o.MaxNodes = d.MaxNodes
	}
	if o.RelGap <= 0 {
		o.RelGap = d.RelGap
	}
	if o.AbsGap <= 0 {
		o.AbsGap = d.AbsGap
	}
	if o.Timeout == 0 {
		o.Timeout = d.Timeout
	}
}

// BranchAndBound is a depth-first branch-and-bound MILP solver. The LP
// relaxation of every node is presolved under the node's bounds and handed to
// the configured LP backend.
type BranchAndBound struct {
	name string
	opts Options
	lp   lpSolver
	log  logger.Logger
}

// NewBranchAndBound returns the default backend using the bounded simplex.
func NewBranchAndBound(opts Options, log logger.Logger) *BranchAndBound {
	opts.setDefaults()
	return &BranchAndBound{name: "bnb", opts: opts, lp: boundedSimplex{maxIter: opts.MaxIter}, log: orNop(log)}
}

// NewGonum returns a backend whose relaxations are solved by gonum's
// lp.Simplex.
func NewGonum(opts Options, log logger.Logger) *BranchAndBound {
	opts.setDefaults()
	return &BranchAndBound{name: "gonum", opts: opts, lp: gonumSimplex{}, log: orNop(log)}
}

func orNop(l logger.Logger) logger.Logger {
	if l == nil {
		return infralogger.NopLogger{}
	}
	return l
}

type node struct {
	lo, hi []float64
	bound  float64
	depth  int
}

type search struct {
	model *milp.Model
	ps    *presolver
	lp    lpSolver
	opts  Options

	// colRows lists the constraints each variable appears in.
	colRows [][]int

	hasInc bool
	inc    []float64
	incObj float64
	nodes  int
	lost   bool
}

// Solve implements milp.Solver.
func (b *BranchAndBound) Solve(ctx context.Context, m *milp.Model) (*milp.Result, error) {
	start := time.Now()
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("%s: invalid model %s: %w", b.name, m.Name(), err)
	}
	if b.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.opts.Timeout)
		defer cancel()
	}
	ps, err := newPresolver(m)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.name, err)
	}
	s := &search{model: m, ps: ps, lp: b.lp, opts: b.opts, incObj: math.Inf(1)}
	s.colRows = make([][]int, m.NumVars())
	for i, r := range ps.rows {
		for _, j := range r.vars {
			s.colRows[j] = append(s.colRows[j], i)
		}
	}

	res, err := s.run(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.name, err)
	}
	res.Duration = time.Since(start)
	b.log.Debugw("milp solved", map[string]any{
		"backend":   b.name,
		"model":     m.Name(),
		"vars":      m.NumVars(),
		"integers":  m.NumIntegral(),
		"rows":      len(m.Constraints()),
		"status":    res.Status.String(),
		"objective": res.Objective,
		"nodes":     res.Nodes,
		"duration":  res.Duration.String(),
	})
	return res, nil
}

func (s *search) cutoff() float64 {
	if !s.hasInc {
		return math.Inf(1)
	}
	return s.incObj - math.Max(s.opts.AbsGap, s.opts.RelGap*math.Abs(s.incObj))
}

func (s *search) run(ctx context.Context) (*milp.Result, error) {
	vars := s.model.Vars()
	root := node{lo: make([]float64, len(vars)), hi: make([]float64, len(vars)), bound: math.Inf(-1)}
	for j, v := range vars {
		root.lo[j], root.hi[j] = v.Lower, v.Upper
	}
	rootLo := append([]float64(nil), root.lo...)
	rootHi := append([]float64(nil), root.hi...)

	stack := []node{root}
	limited := false
	for len(stack) > 0 {
		if ctx.Err() != nil || s.nodes >= s.opts.MaxNodes {
			limited = true
			break
		}
		nd := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if nd.bound >= s.cutoff() {
			continue
		}
		s.nodes++

		pre := s.ps.run(nd.lo, nd.hi)
		if pre.infeasible {
			continue
		}
		if pre.unbounded {
			if nd.depth == 0 {
				return &milp.Result{Status: milp.StatusUnbounded, Nodes: s.nodes, Bound: math.Inf(-1)}, nil
			}
			continue
		}
		lpr, err := s.lp.solve(pre.lp)
		if err != nil {
			return nil, fmt.Errorf("relaxation at depth %d: %w", nd.depth, err)
		}
		switch lpr.status {
		case lpInfeasible:
			continue
		case lpUnbounded:
			if nd.depth == 0 {
				return &milp.Result{Status: milp.StatusUnbounded, Nodes: s.nodes, Bound: math.Inf(-1)}, nil
			}
			continue
		case lpIterLimit:
			s.lost = true
			continue
		}
		obj := lpr.obj + pre.offset
		if obj >= s.cutoff() {
			continue
		}
		x := pre.expand(lpr.x)
		j, frac := s.branchVar(x)
		if j < 0 {
			s.accept(x)
			continue
		}
		if nd.depth == 0 || (!s.hasInc && s.nodes%heuristicEvery == 0) {
			s.roundAndFix(x, rootLo, rootHi)
		}

		down := node{lo: append([]float64(nil), nd.lo...), hi: append([]float64(nil), nd.hi...), bound: obj, depth: nd.depth + 1}
		up := node{lo: append([]float64(nil), nd.lo...), hi: append([]float64(nil), nd.hi...), bound: obj, depth: nd.depth + 1}
		down.hi[j] = math.Floor(x[j])
		up.lo[j] = math.Ceil(x[j])
		if frac < integralityRound {
			stack = append(stack, up, down)
		} else {
			stack = append(stack, down, up)
		}
	}

	res := &milp.Result{Nodes: s.nodes, Bound: math.Inf(-1)}
	switch {
	case s.hasInc && !limited && !s.lost:
		res.Status = milp.StatusOptimal
		res.Bound = s.incObj
	case s.hasInc:
		res.Status = milp.StatusFeasible
		res.Bound = s.openBound(stack)
	case limited || s.lost:
		res.Status = milp.StatusLimit
	default:
		res.Status = milp.StatusInfeasible
	}
	if s.hasInc {
		res.Values = s.inc
		res.Objective = s.incObj
	}
	return res, nil
}

func (s *search) openBound(stack []node) float64 {
	b := s.incObj
	for _, nd := range stack {
		b = math.Min(b, nd.bound)
	}
	return b
}

// branchVar returns the integer variable whose value is farthest from an
// integer, with the fractional part of its value.
func (s *search) branchVar(x []float64) (int, float64) {
	best, bestJ, bestFrac := intTol, -1, 0.0
	for j, v := range s.model.Vars() {
		if !v.Integral() {
			continue
		}
		f := x[j] - math.Floor(x[j])
		if d := math.Min(f, 1-f); d > best {
			best, bestJ, bestFrac = d, j, f
		}
	}
	return bestJ, bestFrac
}

// accept records x as the incumbent when it is feasible and improving.
func (s *search) accept(x []float64) {
	for j, v := range s.model.Vars() {
		if v.Integral() {
			x[j] = math.Round(x[j])
		}
	}
	if s.model.Violation(x) > acceptTol {
		return
	}
	obj := s.model.Objective().Eval(x)
	if obj < s.incObj {
		s.inc, s.incObj, s.hasInc = x, obj, true
	}
}

// roundAndFix rounds every integer variable to the value that least violates
// the rows it appears in, then re-solves the relaxation over the continuous
// variables.
func (s *search) roundAndFix(x, rootLo, rootHi []float64) {
	xr := append([]float64(nil), x...)
	lo := append([]float64(nil), rootLo...)
	hi := append([]float64(nil), rootHi...)
	for j, v := range s.model.Vars() {
		if !v.Integral() {
			continue
		}
		fl, cl := math.Floor(xr[j]+intTol), math.Ceil(xr[j]-intTol)
		pick := fl
		if cl != fl {
			xr[j] = fl
			vf := s.rowViolation(j, xr)
			xr[j] = cl
			vc := s.rowViolation(j, xr)
			switch {
			case vc < vf-feasTol:
				pick = cl
			case math.Abs(vc-vf) <= feasTol && x[j]-fl >= integralityRound:
				pick = cl
			}
		}
		pick = clamp(pick, rootLo[j], rootHi[j])
		xr[j] = pick
		lo[j], hi[j] = pick, pick
	}
	pre := s.ps.run(lo, hi)
	if pre.infeasible || pre.unbounded {
		return
	}
	lpr, err := s.lp.solve(pre.lp)
	if err != nil || lpr.status != lpOptimal {
		return
	}
	s.accept(pre.expand(lpr.x))
}

// rowViolation sums the violation of the rows containing variable j at x.
func (s *search) rowViolation(j int, x []float64) float64 {
	total := 0.0
	for _, i := range s.colRows[j] {
		r := s.ps.rows[i]
		lhs := 0.0
		for k, v := range r.vars {
			lhs += r.coefs[k] * x[v]
		}
		switch r.sense {
		case milp.LessEq:
			total += math.Max(0, lhs-r.rhs)
		case milp.GreaterEq:
			total += math.Max(0, r.rhs-lhs)
		default:
			total += math.Abs(lhs - r.rhs)
		}
	}
	return total
}
