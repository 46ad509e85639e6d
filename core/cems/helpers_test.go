package cems

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lec/core/milp"
	"github.com/kilianp07/lec/core/model"
	"github.com/kilianp07/lec/infra/solver"
)

const tol = 1e-6

func flat(h int, v float64) model.Series {
	s := make(model.Series, h)
	for i := range s {
		s[i] = v
	}
	return s
}

func tariff(h int, buy, sell float64) model.Tariff {
	return model.Tariff{
		BuyPrice:        flat(h, buy),
		SellPrice:       flat(h, sell),
		TransmissionFee: 0.05,
		Tax:             0.05,
		HeatPrice:       0.4,
	}
}

func winter() model.Calendar { return model.Calendar{Month: 1} }

func newSolver() milp.Solver { return solver.NewBranchAndBound(solver.Options{}, nil) }

func newOptimizer(t *testing.T) *Optimizer {
	t.Helper()
	o, err := NewOptimizer(newSolver(), nil, nil, 2)
	require.NoError(t, err)
	return o
}

func agentProblem(a model.Agent, h int) AgentProblem {
	return AgentProblem{
		Agent:    a,
		Horizon:  h,
		Tariff:   tariff(h, 0.5, 0.3),
		Grid:     model.DefaultGridLimits(),
		Calendar: winter(),
	}
}

// solveModel solves a model directly so tests can inspect variables that a
// Solution does not expose.
func solveModel(t *testing.T, m *milp.Model) *milp.Result {
	t.Helper()
	res, err := newSolver().Solve(context.Background(), m)
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, res.Status)
	return res
}
