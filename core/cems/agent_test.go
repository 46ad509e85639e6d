package cems

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lec/core/milp"
	"github.com/kilianp07/lec/core/model"
)

func TestOptimizeAgent_BaselineBuysDemand(t *testing.T) {
	h := 24
	demand := make(model.Series, h)
	p := agentProblem(model.Agent{ID: "house"}, h)
	want := 0.0
	for i := range demand {
		demand[i] = float64(2 + i%5)
		p.Tariff.BuyPrice[i] = 0.5 + 0.01*float64(i)
		want += demand[i] * p.Tariff.ImportPrice(i)
	}
	p.Agent.Profiles.ElecDemand = demand

	sol, err := newOptimizer(t).OptimizeAgent(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, sol.Status)
	s, ok := sol.Schedule("house")
	require.True(t, ok)
	for i := 0; i < h; i++ {
		assert.InDelta(t, demand[i], s.ElecBuy[i], tol)
		assert.InDelta(t, 0, s.ElecSell[i], tol)
		assert.InDelta(t, 0, s.HeatDump[i], tol)
		assert.InDelta(t, 0, s.CoolCurtail[i], tol)
	}
	assert.InDelta(t, want, sol.Objective, 1e-5)
	assert.InDelta(t, sol.Objective, sol.Cost.Total(), 1e-5)
	assert.Equal(t, Topology{Heat: WinterHeat, Cooling: BoreholeCooling}, sol.Topology)
}

func TestOptimizeAgent_AbsentStorageStaysIdle(t *testing.T) {
	h := 24
	pv := make(model.Series, h)
	for i := 10; i < 15; i++ {
		pv[i] = 4
	}
	a := model.Agent{
		ID: "house",
		Profiles: model.Profiles{
			ElecDemand:     flat(h, 1),
			PVProduction:   pv,
			HotWaterDemand: flat(h, 1),
		},
		// Ratings without capacity: the device is absent.
		Battery: model.Battery{MaxChargeKW: 5, MaxDischargeKW: 5},
	}
	sol, err := newOptimizer(t).OptimizeAgent(context.Background(), agentProblem(a, h))
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, sol.Status)
	s := sol.Agents[0]
	for i := 0; i < h; i++ {
		assert.Equal(t, 0.0, s.BatteryCharge[i])
		assert.Equal(t, 0.0, s.BatteryDischarge[i])
		assert.Equal(t, 0.0, s.TankCharge[i])
		assert.Equal(t, 0.0, s.TankDischarge[i])
		assert.InDelta(t, 1, s.HeatBuy[i], tol)
	}
	assert.Nil(t, s.BatterySoC)
	assert.Nil(t, s.TankSoC)
}

func TestOptimizeAgent_BatteryCyclesWithinBounds(t *testing.T) {
	h := 24
	a := model.Agent{
		ID:       "house",
		Profiles: model.Profiles{ElecDemand: flat(h, 3)},
		Battery: model.Battery{
			CapacityKWh: 10, MaxChargeKW: 5, MaxDischargeKW: 5,
			Efficiency: 0.95, InitialSoC: 0.5,
		},
	}
	p := agentProblem(a, h)
	p.Tariff.SellPrice = flat(h, 0.05)
	for i := 0; i < h; i++ {
		p.Tariff.BuyPrice[i] = 0.1
		if i >= 12 {
			p.Tariff.BuyPrice[i] = 1
		}
	}

	sol, err := newOptimizer(t).OptimizeAgent(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, sol.Status)
	s := sol.Agents[0]
	require.Len(t, s.BatterySoC, h)
	for i, soc := range s.BatterySoC {
		assert.GreaterOrEqual(t, soc, -tol, "hour %d", i)
		assert.LessOrEqual(t, soc, 1+tol, "hour %d", i)
		assert.InDelta(t, 10*soc, s.BatteryEnergy[i], tol)
	}
	assert.InDelta(t, 0.5, s.BatterySoC[h-1], tol)
	assert.Greater(t, sum(s.BatteryDischarge[12:]), 1.0)
	assert.InDelta(t, sol.Objective, sol.Cost.Total(), 1e-5)
}

func TestOptimizeAgent_TankCyclesWithinBounds(t *testing.T) {
	h := 24
	tank := model.Tank{VolumeM3: 0.5, MaxTempC: 50, Efficiency: 0.9, InitialSoC: 0.5}
	a := model.Agent{
		ID:       "house",
		Profiles: model.Profiles{HotWaterDemand: flat(h, 1)},
		HeatPump: model.HeatPump{COP: 3, MaxInput: 5, MaxHeat: 15},
		Tank:     tank,
	}
	p := agentProblem(a, h)
	for i := 0; i < h; i++ {
		p.Tariff.BuyPrice[i] = 0.1
		if i >= 12 {
			p.Tariff.BuyPrice[i] = 1
		}
	}

	sol, err := newOptimizer(t).OptimizeAgent(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, sol.Status)
	s := sol.Agents[0]
	capacity := tank.CapacityKWh()
	require.Len(t, s.TankSoC, h)
	prev := tank.InitialSoC
	for i, soc := range s.TankSoC {
		assert.InDelta(t, 1, s.TankDischarge[i], tol, "hot water hour %d", i)
		assert.GreaterOrEqual(t, soc, -tol, "hour %d", i)
		assert.LessOrEqual(t, soc, 1+tol, "hour %d", i)
		assert.InDelta(t, capacity*soc, s.TankEnergy[i], 1e-5)
		want := prev + tank.Efficiency*s.TankCharge[i]/capacity - s.TankDischarge[i]/(capacity*tank.Efficiency)
		assert.InDelta(t, want, soc, 1e-5, "hour %d", i)
		prev = soc
	}
	assert.InDelta(t, tank.InitialSoC, s.TankSoC[h-1], tol)
	// The tank is filled while the heat pump runs on cheap electricity.
	assert.Greater(t, sum(s.TankCharge[:12]), sum(s.TankCharge[12:]))
	assert.InDelta(t, sol.Objective, sol.Cost.Total(), 1e-5)
}

func TestAgentModel_TradesAreExclusive(t *testing.T) {
	// Export pays more than import: without exclusivity the agent would buy
	// and sell at the cap in every hour.
	h := 24
	p := agentProblem(model.Agent{ID: "house", Profiles: model.Profiles{ElecDemand: flat(h, 2)}}, h)
	p.Tariff.SellPrice = flat(h, 1)

	am := buildAgentModel(p)
	res := solveModel(t, am.b.m)
	av := am.vars
	for i := 0; i < h; i++ {
		buy, sell, side := res.Value(av.elecBuy[i]), res.Value(av.elecSell[i]), res.Value(av.elecSide[i])
		assert.InDelta(t, 2, buy, tol)
		assert.InDelta(t, 0, sell, tol)
		assert.Equal(t, 0.0, side)
	}
	assert.InDelta(t, float64(h)*2*p.Tariff.ImportPrice(0), res.Objective, 1e-5)
}

func TestAgentModel_HeatPumpWithoutCooling(t *testing.T) {
	h := 24
	a := model.Agent{
		ID:       "house",
		Profiles: model.Profiles{SpaceHeatDemand: flat(h, 6)},
		HeatPump: model.HeatPump{COP: 3, MaxInput: 10, MaxHeat: 30},
	}
	p := agentProblem(a, h)
	p.Tariff.HeatPrice = 2
	p.Tariff.BuyPrice = flat(h, 0.1)
	p.Tariff.SellPrice = flat(h, 0)

	am := buildAgentModel(p)
	hp := am.vars.heatPump
	// Force the heat pump into cooling duty in the first hour.
	am.b.m.AddConstraint("force_cooling", milp.Expr{}.Add(hp.coolingInput[0], 1), milp.GreaterEq, 1)
	res := solveModel(t, am.b.m)

	heat, cool := hp.heat.eval(res.Values), hp.cool.eval(res.Values)
	for i := 0; i < h; i++ {
		assert.InDelta(t, 3*res.Value(hp.heatingInput[i]), heat[i], tol, "hour %d", i)
		assert.Equal(t, 0.0, cool[i], "hour %d", i)
	}
	assert.InDelta(t, 0, heat[0], tol)
	assert.InDelta(t, 6, res.Value(am.vars.heatBuy[0]), tol)
	for i := 1; i < h; i++ {
		assert.InDelta(t, 6, heat[i], tol)
		assert.InDelta(t, 0, res.Value(am.vars.heatBuy[i]), tol)
	}
}

func TestOptimizeAgent_HeatPumpCooling(t *testing.T) {
	h := 24
	a := model.Agent{
		ID:       "office",
		Profiles: model.Profiles{CoolingDemand: flat(h, 4)},
		HeatPump: model.HeatPump{COP: 3, MaxInput: 10, MaxHeat: 30, CoolingCapable: true},
	}
	p := agentProblem(a, h)
	p.Calendar = model.Calendar{Month: 7, Summer: true}

	sol, err := newOptimizer(t).OptimizeAgent(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, sol.Status)
	s := sol.Agents[0]
	for i := 0; i < h; i++ {
		assert.InDelta(t, 4, s.HeatPumpCool[i], tol)
		assert.InDelta(t, 2, s.HeatPumpElec[i], tol)
		assert.InDelta(t, 0, s.HeatPumpHeat[i], tol)
		assert.InDelta(t, 0, s.CoolCurtail[i], tol)
		assert.InDelta(t, 2, s.ElecBuy[i], tol)
	}
}

func TestOptimizeAgent_BITESDynamics(t *testing.T) {
	h := 24
	a := model.Agent{
		ID:       "house",
		Profiles: model.Profiles{SpaceHeatDemand: flat(h, 4)},
		HeatPump: model.HeatPump{COP: 3, MaxInput: 5, MaxHeat: 15},
		BITES:    model.BITES{AreaM2: 100},
	}
	p := agentProblem(a, h)
	p.Tariff.HeatPrice = 5
	for i := 0; i < h; i++ {
		p.Tariff.BuyPrice[i] = 0.05
		if i%12 >= 6 {
			p.Tariff.BuyPrice[i] = 1
		}
	}

	sol, err := newOptimizer(t).OptimizeAgent(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, sol.Status)
	s := sol.Agents[0]
	bt := a.BITES
	capS, capD, k := bt.ShallowCapacity(), bt.DeepCapacity(), bt.Conductance()
	for i := 0; i < h; i++ {
		prevS, prevD := bt.InitialShallow, bt.InitialDeep
		if i > 0 {
			prevS, prevD = s.BITESShallow[i-1], s.BITESDeep[i-1]
			assert.InDelta(t, (1-model.ShallowRetention)*prevS, s.BITESShallowLoss[i], tol)
			assert.InDelta(t, (1-model.DeepRetention)*prevD, s.BITESDeepLoss[i], tol)
			prevS, prevD = prevS*model.ShallowRetention, prevD*model.DeepRetention
		}
		assert.InDelta(t, prevS+s.BITESCharge[i]-s.BITESFlow[i], s.BITESShallow[i], tol, "hour %d", i)
		assert.InDelta(t, prevD+s.BITESFlow[i], s.BITESDeep[i], tol, "hour %d", i)
		assert.InDelta(t, k/capS*s.BITESShallow[i]-k/capD*s.BITESDeep[i], s.BITESFlow[i], tol)
		assert.LessOrEqual(t, s.BITESShallow[i], capS+tol)
		assert.GreaterOrEqual(t, s.BITESDeep[i], -tol)
		assert.LessOrEqual(t, -s.BITESCharge[i], 4+tol)
	}
	shallow, deep, ok := s.BITESEnd()
	require.True(t, ok)
	assert.Equal(t, s.BITESShallow[h-1], shallow)
	assert.Equal(t, s.BITESDeep[h-1], deep)
}

func TestOptimizeAgent_PeakLoadFees(t *testing.T) {
	h := 24
	a := model.Agent{ID: "house", Profiles: model.Profiles{
		ElecDemand:      flat(h, 2),
		SpaceHeatDemand: flat(h, 1),
	}}
	p := agentProblem(a, h)
	p.Tariff.ElecPeakLoadFee = 0.1
	p.Tariff.HeatPeakLoadFee = 1
	p.Peaks = model.PeakLoadHistory{DailyElecPeaks: [3]float64{5, 5, 5}, MonthlyHeat: 10}

	sol, err := newOptimizer(t).OptimizeAgent(context.Background(), p)
	require.NoError(t, err)
	require.Equal(t, milp.StatusOptimal, sol.Status)
	assert.InDelta(t, 2, sol.Peak.DailyElecPeak, tol)
	assert.InDelta(t, 5, sol.Peak.AverageElecPeak, tol)
	assert.InDelta(t, 24, sol.Peak.DailyHeat, tol)
	assert.InDelta(t, 24, sol.Peak.MonthlyHeat, tol)
	assert.InDelta(t, 24*0.1*5, sol.Cost.ElecPeak, 1e-5)
	assert.InDelta(t, 24, sol.Cost.HeatPeak, 1e-5)
	assert.InDelta(t, sol.Objective, sol.Cost.Total(), 1e-5)
}

func TestPenaltyWeight(t *testing.T) {
	tr := tariff(24, 0.5, 0.3)
	assert.Equal(t, 1000.0, penaltyWeight(tr, 24))
	tr.HeatPrice = 200
	assert.Equal(t, 2000.0, penaltyWeight(tr, 24))
	tr.ElecPeakLoadFee = 50
	assert.InDelta(t, 4000, penaltyWeight(tr, 24), 1e-9)
}
