package cems

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lec/core/model"
)

func TestValidateAgent_Valid(t *testing.T) {
	p := agentProblem(model.Agent{ID: "a", Profiles: model.Profiles{ElecDemand: flat(24, 1)}}, 24)
	assert.NoError(t, ValidateAgent(p))
}

func TestValidateAgent_Violations(t *testing.T) {
	a := model.Agent{
		ID: "a",
		Profiles: model.Profiles{
			ElecDemand:   flat(12, 1),
			PVProduction: append(flat(23, 0), -1),
		},
		Battery: model.Battery{CapacityKWh: 10, MaxChargeKW: 2, MaxDischargeKW: 2, InitialSoC: 1.5},
		Tank:    model.Tank{VolumeM3: 1, Efficiency: 0.9},
		BITES:   model.BITES{AreaM2: 10, InitialShallow: 100},
	}
	p := agentProblem(a, 24)
	p.Tariff.BuyPrice[3] = math.NaN()
	p.Calendar.Month = 13

	err := ValidateAgent(p)
	var verr *ValidationError
	require.True(t, errors.As(err, &verr))
	joined := verr.Error()
	for _, want := range []string{
		"elec_demand has 12 values",
		"pv_production[23] is negative",
		"battery: efficiency 0",
		"battery: initial soc 1.5",
		"tank has volume but max temperature 0",
		"initial shallow energy 100",
		"buy price[3] is not finite",
		"month 13",
	} {
		assert.Contains(t, joined, want)
	}
}

func TestValidateAgent_ShortHorizon(t *testing.T) {
	err := ValidateAgent(agentProblem(model.Agent{ID: "a"}, 12))
	assert.ErrorContains(t, err, "horizon 12 is shorter than 24 hours")
}

func TestValidateCommunity(t *testing.T) {
	p := CommunityProblem{
		Agents:   []model.Agent{{ID: "a"}, {ID: "a"}},
		Horizon:  24,
		Tariff:   tariff(24, 0.5, 0.3),
		Grid:     model.DefaultGridLimits(),
		Chiller:  model.DefaultChiller(),
		Calendar: winter(),
	}
	p.Grid.HeatLoss = 0
	err := ValidateCommunity(p)
	require.Error(t, err)
	assert.Contains(t, err.Error(), `share id "a"`)
	assert.Contains(t, err.Error(), "heat loss 0 outside (0,1)")

	p.Agents[1].ID = "b"
	p.Grid.HeatLoss = 0.05
	assert.NoError(t, ValidateCommunity(p))

	p.Agents = nil
	assert.ErrorContains(t, ValidateCommunity(p), "no agents")
}
