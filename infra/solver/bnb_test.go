package solver

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/kilianp07/lec/core/factory"
	"github.com/kilianp07/lec/core/milp"
)

func backends() map[string]milp.Solver {
	return map[string]milp.Solver{
		"bnb":   NewBranchAndBound(Options{}, nil),
		"gonum": NewGonum(Options{}, nil),
	}
}

func twoVarLP() (*milp.Model, milp.VarID, milp.VarID) {
	m := milp.NewModel("lp")
	x := m.Continuous("x", 0, math.Inf(1))
	y := m.Continuous("y", 0, math.Inf(1))
	m.AddConstraint("c1", milp.Expr{}.Add(x, 1).Add(y, 2), milp.LessEq, 4)
	m.AddConstraint("c2", milp.Expr{}.Add(x, 3).Add(y, 1), milp.LessEq, 6)
	m.SetObjective(milp.Expr{}.Add(x, -1).Add(y, -1))
	return m, x, y
}

func TestSolve_LinearProgram(t *testing.T) {
	for name, s := range backends() {
		t.Run(name, func(t *testing.T) {
			m, x, y := twoVarLP()
			res, err := s.Solve(context.Background(), m)
			require.NoError(t, err)
			require.Equal(t, milp.StatusOptimal, res.Status)
			assert.InDelta(t, 1.6, res.Value(x), 1e-6)
			assert.InDelta(t, 1.2, res.Value(y), 1e-6)
			assert.InDelta(t, -2.8, res.Objective, 1e-6)
		})
	}
}

func TestSolve_GreaterEqualRowsNeedPhaseOne(t *testing.T) {
	for name, s := range backends() {
		t.Run(name, func(t *testing.T) {
			m := milp.NewModel("phase1")
			x := m.Continuous("x", 0, 3)
			y := m.Continuous("y", 0, math.Inf(1))
			m.AddConstraint("a", milp.Expr{}.Add(x, 1).Add(y, 1), milp.GreaterEq, 4)
			m.AddConstraint("b", milp.Expr{}.Add(x, 1).Add(y, 3), milp.GreaterEq, 6)
			m.SetObjective(milp.Expr{}.Add(x, 2).Add(y, 3))

			res, err := s.Solve(context.Background(), m)
			require.NoError(t, err)
			require.Equal(t, milp.StatusOptimal, res.Status)
			assert.InDelta(t, 3, res.Value(x), 1e-6)
			assert.InDelta(t, 1, res.Value(y), 1e-6)
			assert.InDelta(t, 9, res.Objective, 1e-6)
		})
	}
}

func TestSolve_EqualityWithShiftedBounds(t *testing.T) {
	m := milp.NewModel("shifted")
	x := m.Continuous("x", -5, 5)
	y := m.Continuous("y", 1, 8)
	m.AddConstraint("sum", milp.Expr{}.Add(x, 1).Add(y, 1), milp.Equal, 4)
	m.SetObjective(milp.Expr{}.Add(x, 1).Add(y, 2).AddConst(10))

	res, err := NewBranchAndBound(Options{}, nil).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, res.Status)
	assert.InDelta(t, 3, res.Value(x), 1e-6)
	assert.InDelta(t, 1, res.Value(y), 1e-6)
	assert.InDelta(t, 15, res.Objective, 1e-6)
}

func TestSolve_BinaryKnapsack(t *testing.T) {
	for name, s := range backends() {
		t.Run(name, func(t *testing.T) {
			m := milp.NewModel("knapsack")
			a, b, c := m.Binary("a"), m.Binary("b"), m.Binary("c")
			m.AddConstraint("w1", milp.Expr{}.Add(a, 2).Add(b, 3).Add(c, 1), milp.LessEq, 5)
			m.AddConstraint("w2", milp.Expr{}.Add(a, 4).Add(b, 1).Add(c, 2), milp.LessEq, 11)
			m.AddConstraint("w3", milp.Expr{}.Add(a, 3).Add(b, 4).Add(c, 2), milp.LessEq, 8)
			m.SetObjective(milp.Expr{}.Add(a, -5).Add(b, -4).Add(c, -3))

			res, err := s.Solve(context.Background(), m)
			require.NoError(t, err)
			require.Equal(t, milp.StatusOptimal, res.Status)
			assert.Equal(t, 1.0, res.Value(a))
			assert.Equal(t, 1.0, res.Value(b))
			assert.Equal(t, 0.0, res.Value(c))
			assert.InDelta(t, -9, res.Objective, 1e-6)
			assert.Less(t, m.Violation(res.Values), 1e-6)
		})
	}
}

func TestSolve_IntegerBoundRounding(t *testing.T) {
	m := milp.NewModel("int")
	x := m.AddVar("x", 0, 10, milp.Integer)
	m.AddConstraint("cap", milp.Expr{}.Add(x, 2), milp.LessEq, 7)
	m.SetObjective(milp.Expr{}.Add(x, -1))

	res, err := NewBranchAndBound(Options{}, nil).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, res.Status)
	assert.Equal(t, 3.0, res.Value(x))
}

func TestSolve_ExclusiveTradePair(t *testing.T) {
	// buy - sell = 3 with buy and sell exclusive: only buying is feasible.
	m := milp.NewModel("trade")
	buy := m.Continuous("buy", 0, 10)
	sell := m.Continuous("sell", 0, 10)
	u := m.Binary("u")
	m.AddConstraint("net", milp.Expr{}.Add(buy, 1).Add(sell, -1), milp.Equal, 3)
	m.AddConstraint("buy_excl", milp.Expr{}.Add(buy, 1).Add(u, 10), milp.LessEq, 10)
	m.AddConstraint("sell_excl", milp.Expr{}.Add(sell, 1).Add(u, -10), milp.LessEq, 0)
	m.SetObjective(milp.Expr{}.Add(buy, 2).Add(sell, -1))

	res, err := NewBranchAndBound(Options{}, nil).Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, res.Status)
	assert.InDelta(t, 3, res.Value(buy), 1e-6)
	assert.InDelta(t, 0, res.Value(sell), 1e-6)
	assert.Equal(t, 0.0, res.Value(u))
}

func TestSolve_Infeasible(t *testing.T) {
	for name, s := range backends() {
		t.Run(name, func(t *testing.T) {
			m := milp.NewModel("infeasible")
			x := m.Continuous("x", 0, math.Inf(1))
			y := m.Continuous("y", 0, math.Inf(1))
			m.AddConstraint("le", milp.Expr{}.Add(x, 1).Add(y, 1), milp.LessEq, 1)
			m.AddConstraint("ge", milp.Expr{}.Add(x, 1).Add(y, 1), milp.GreaterEq, 3)
			m.SetObjective(milp.Expr{}.Add(x, 1))

			res, err := s.Solve(context.Background(), m)
			require.NoError(t, err)
			assert.Equal(t, milp.StatusInfeasible, res.Status)
			assert.Nil(t, res.Values)
		})
	}
}

func TestSolve_InfeasibleBinariesCaughtByPresolve(t *testing.T) {
	m := milp.NewModel("binaries")
	a, b := m.Binary("a"), m.Binary("b")
	m.AddConstraint("ge", milp.Expr{}.Add(a, 1).Add(b, 1), milp.GreaterEq, 3)

	res, err := NewBranchAndBound(Options{}, nil).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, milp.StatusInfeasible, res.Status)
	assert.Equal(t, 1, res.Nodes)
}

func TestSolve_Unbounded(t *testing.T) {
	m := milp.NewModel("unbounded")
	x := m.Continuous("x", 0, math.Inf(1))
	y := m.Continuous("y", 0, math.Inf(1))
	m.AddConstraint("r", milp.Expr{}.Add(x, 1).Add(y, -1), milp.LessEq, 1)
	m.SetObjective(milp.Expr{}.Add(x, -1))

	res, err := NewBranchAndBound(Options{}, nil).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, milp.StatusUnbounded, res.Status)
}

func TestSolve_CancelledBeforeFirstNode(t *testing.T) {
	m, _, _ := twoVarLP()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := NewBranchAndBound(Options{}, nil).Solve(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, milp.StatusLimit, res.Status)
	assert.Zero(t, res.Nodes)
	assert.Nil(t, res.Values)
}

func TestSolve_DeadlinePassedWithoutIncumbent(t *testing.T) {
	m, _, _ := twoVarLP()
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()
	res, err := NewGonum(Options{Timeout: time.Minute}, nil).Solve(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, milp.StatusLimit, res.Status)
	assert.False(t, res.Status.HasSolution())
}

// expiring cancels the solve context once the wrapped LP solver has run
// after times.
type expiring struct {
	lpSolver
	after  int
	calls  int
	cancel context.CancelFunc
}

func (e *expiring) solve(p *lpProblem) (lpResult, error) {
	res, err := e.lpSolver.solve(p)
	e.calls++
	if e.calls >= e.after {
		e.cancel()
	}
	return res, err
}

func TestSolve_TimeoutKeepsIncumbent(t *testing.T) {
	// The root relaxation is fractional; rounding it at the root yields the
	// incumbent a+b=1 before both children are explored.
	m := milp.NewModel("pair")
	a, b := m.Binary("a"), m.Binary("b")
	m.AddConstraint("cap", milp.Expr{}.Add(a, 1).Add(b, 1), milp.LessEq, 1.5)
	m.SetObjective(milp.Expr{}.Add(a, -1).Add(b, -1))

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	bnb := NewBranchAndBound(Options{Timeout: 30 * time.Second}, nil)
	bnb.lp = &expiring{lpSolver: bnb.lp, after: 2, cancel: cancel}

	res, err := bnb.Solve(ctx, m)
	require.NoError(t, err)
	require.Equal(t, milp.StatusFeasible, res.Status)
	assert.Equal(t, 1, res.Nodes)
	assert.InDelta(t, -1, res.Objective, 1e-6)
	assert.InDelta(t, 1, res.Value(a)+res.Value(b), 1e-6)
	assert.Less(t, m.Violation(res.Values), 1e-6)
	assert.LessOrEqual(t, res.Bound, res.Objective)
}

func TestSolve_NodeLimit(t *testing.T) {
	m := milp.NewModel("knapsack")
	a, b, c := m.Binary("a"), m.Binary("b"), m.Binary("c")
	m.AddConstraint("w1", milp.Expr{}.Add(a, 2).Add(b, 3).Add(c, 1), milp.LessEq, 5)
	m.AddConstraint("w3", milp.Expr{}.Add(a, 3).Add(b, 4).Add(c, 2), milp.LessEq, 8)
	m.SetObjective(milp.Expr{}.Add(a, -5).Add(b, -4).Add(c, -3))

	res, err := NewBranchAndBound(Options{MaxNodes: 1}, nil).Solve(context.Background(), m)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Nodes)
	assert.Contains(t, []milp.Status{milp.StatusFeasible, milp.StatusLimit}, res.Status)
}

func TestSolve_InvalidModel(t *testing.T) {
	m := milp.NewModel("bad")
	m.Continuous("x", 2, 1)
	_, err := NewBranchAndBound(Options{}, nil).Solve(context.Background(), m)
	assert.Error(t, err)
}

func TestGonum_SolverFailure(t *testing.T) {
	orig := lpSimplex
	lpSimplex = func(c []float64, A mat.Matrix, b []float64, tol float64, initial []int) (float64, []float64, error) {
		return 0, nil, errors.New("boom")
	}
	defer func() { lpSimplex = orig }()

	m, _, _ := twoVarLP()
	_, err := NewGonum(Options{}, nil).Solve(context.Background(), m)
	assert.ErrorContains(t, err, "boom")
}

func TestRegistry(t *testing.T) {
	assert.Subset(t, milp.SolverNames(), []string{"bnb", "gonum"})
	s, err := milp.NewSolver(factory.ModuleConfig{Type: "bnb", Conf: map[string]any{"max_nodes": 10}})
	require.NoError(t, err)
	bnb, ok := s.(*BranchAndBound)
	require.True(t, ok)
	assert.Equal(t, 10, bnb.opts.MaxNodes)
	assert.Equal(t, defaultRelGap, bnb.opts.RelGap)
	assert.Equal(t, defaultTimeout, bnb.opts.Timeout)

	s, err = milp.NewSolver(factory.ModuleConfig{Type: "bnb", Conf: map[string]any{"timeout": "30s"}})
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, s.(*BranchAndBound).opts.Timeout)
}
