package cems

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lec/core/milp"
	"github.com/kilianp07/lec/core/model"
)

// countingSolver fails the test's expectations if it is ever reached.
func countingSolver(calls *int) milp.Solver {
	return milp.SolverFunc(func(ctx context.Context, m *milp.Model) (*milp.Result, error) {
		*calls++
		return nil, errors.New("solver must not be called")
	})
}

func TestOptimizeAgent_PrecheckSkipsSolver(t *testing.T) {
	h := 24
	cooling := make(model.Series, h)
	cooling[1], cooling[23] = 2, 1
	p := agentProblem(model.Agent{ID: "office", Profiles: model.Profiles{CoolingDemand: cooling}}, h)
	p.Calendar = model.Calendar{Month: 7, Summer: true}

	calls := 0
	opt, err := NewOptimizer(countingSolver(&calls), nil, nil, 1)
	require.NoError(t, err)
	_, err = opt.OptimizeAgent(context.Background(), p)

	var cerr *CEMSError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, UnfillableCoolingDemand, cerr.Kind)
	assert.Equal(t, []int{1, 23}, cerr.HourIndices)
	assert.Equal(t, []int{0}, cerr.AgentIndices)
	assert.Zero(t, calls)
}

func TestCheckAgent(t *testing.T) {
	h := 24
	cooling := flat(h, 3)
	cooling[2] = 5
	a := model.Agent{ID: "a", Borehole: true, Profiles: model.Profiles{CoolingDemand: cooling}}

	p := agentProblem(a, h)
	p.Calendar.Month = 3
	assert.NoError(t, CheckAgent(p), "borehole covers cooling outside peak summer")

	p.Calendar.Month = 7
	p.Agent.HeatPump = model.HeatPump{COP: 3, MaxInput: 2, MaxHeat: 6, CoolingCapable: true}
	err := CheckAgent(p)
	var cerr *CEMSError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, []int{2}, cerr.HourIndices)
}

func TestCheckCommunity_Cooling(t *testing.T) {
	h := 24
	cooling := make(model.Series, h)
	cooling[3] = 1
	a := model.Agent{ID: "a", Profiles: model.Profiles{CoolingDemand: cooling}}
	b := model.Agent{ID: "b", Profiles: model.Profiles{CoolingDemand: cooling}}
	p := communityProblem(h, a, b)
	p.Calendar = model.Calendar{Month: 7}
	p.Chiller = model.Chiller{COP: 1.5, MaxInput: 1}

	calls := 0
	opt, err := NewOptimizer(countingSolver(&calls), nil, nil, 1)
	require.NoError(t, err)
	_, err = opt.OptimizeCommunity(context.Background(), p)

	var cerr *CEMSError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, UnfillableCoolingDemand, cerr.Kind)
	assert.Equal(t, []int{3}, cerr.HourIndices)
	assert.Empty(t, cerr.AgentIndices)
	assert.Zero(t, calls)
}

func TestCheckCommunity_HotWater(t *testing.T) {
	h := 24
	ok := model.Agent{
		ID:       "ok",
		Profiles: model.Profiles{HotWaterDemand: flat(h, 5)},
		Booster:  model.HeatPump{COP: 3, MaxInput: 2, MaxHeat: 6},
	}
	short := model.Agent{ID: "short", Profiles: model.Profiles{HotWaterDemand: flat(h, 5)}}
	p := communityProblem(h, ok, short)

	assert.NoError(t, CheckCommunity(p), "winter has no booster constraint")

	p.Calendar = model.Calendar{Month: 5, Summer: true}
	err := CheckCommunity(p)
	var cerr *CEMSError
	require.True(t, errors.As(err, &cerr))
	assert.Equal(t, UnfillableHotWaterDemand, cerr.Kind)
	assert.Equal(t, []int{1}, cerr.AgentIndices)

	// A full low-temperature share leaves nothing for the booster.
	full := 1.0
	p.LowTempShare = &full
	assert.NoError(t, CheckCommunity(p))

	// A zero share leaves all hot water to the booster: 5 kWh exceeds a
	// 3 kWh booster that covers the default 40 percent.
	p.Agents[0].Booster.MaxHeat = 3
	p.LowTempShare = nil
	require.True(t, errors.As(CheckCommunity(p), &cerr))
	assert.Equal(t, []int{1}, cerr.AgentIndices)
	none := 0.0
	p.LowTempShare = &none
	require.True(t, errors.As(CheckCommunity(p), &cerr))
	assert.Equal(t, []int{0, 1}, cerr.AgentIndices)
}

func TestCEMSError_Error(t *testing.T) {
	err := &CEMSError{Kind: UnfillableCoolingDemand, Message: "too hot", HourIndices: []int{4, 5}}
	assert.Equal(t, "unfillable_cooling_demand: too hot (hours [4 5])", err.Error())
}
