package cems

import (
	"github.com/kilianp07/lec/core/milp"
	"github.com/kilianp07/lec/core/model"
)

// agentVars are the variables of one agent. The single-agent and community
// models differ only in who the agent trades with, which is captured by the
// net trade expressions.
type agentVars struct {
	agent model.Agent

	elecBuy, elecSell, elecSide []milp.VarID
	heatBuy, heatSell           []milp.VarID
	coolBuy, coolSell           []milp.VarID
	heatDump                    []milp.VarID
	coolDump, coolCurtail       []milp.VarID

	// Net supply from trades, positive when energy flows into the agent.
	elecNet, heatNet, coolNet flows
	coolLoad                  model.Series

	battery  storageTerms
	tank     tankTerms
	bites    bitesTerms
	heatPump heatPumpTerms
	booster  boosterTerms
}

// buildDevices adds every device of agent a. heatSupply is the largest heat
// the agent can buy in one hour.
func buildDevices(b *builder, sc string, a model.Agent, heatSupply float64) *agentVars {
	hpHeat := 0.0
	if a.HeatPump.Present() {
		hpHeat = a.HeatPump.MaxHeat
	}
	return &agentVars{
		agent:    a,
		battery:  buildBattery(b, sc, a.Battery),
		tank:     buildTank(b, sc, a.Tank, a.Profiles.HotWaterDemand),
		heatPump: buildHeatPump(b, sc, a.HeatPump),
		bites:    buildBITES(b, sc, a.BITES, a.Profiles.SpaceHeatDemand, hpHeat+heatSupply),
		booster:  noBooster(b.h),
		heatDump: b.series(sc+"heat_dump", 0, model.Inf),
	}
}

func netFlows(in, out []milp.VarID) flows {
	f := make(flows, len(in))
	for t := range f {
		f[t] = milp.Expr{}.Add(in[t], 1).Add(out[t], -1)
	}
	return f
}

// balances adds the electricity, heat and cooling balances of the agent.
// lowTemp is the low-temperature excess heat usable in the heat balance and
// hotWaterShare the part of the hot water load served by it.
func (av *agentVars) balances(b *builder, sc string, lowTemp model.Series, hotWaterShare float64) {
	p := av.agent.Profiles
	for t := 0; t < b.h; t++ {
		e := milp.Expr{}.
			AddExpr(av.elecNet[t], 1).
			Add(av.battery.discharge[t], 1).
			Add(av.battery.charge[t], -1).
			AddExpr(av.heatPump.elec[t], -1).
			AddExpr(av.booster.elec[t], -1)
		b.row(sc+"elec_bal", t, e, milp.Equal, p.ElecDemand.At(t)-p.PVProduction.At(t))

		h := milp.Expr{}.
			AddExpr(av.heatNet[t], 1).
			AddExpr(av.heatPump.heat[t], 1).
			AddExpr(av.bites.charge[t], -1).
			AddExpr(av.tank.load[t], -hotWaterShare).
			Add(av.heatDump[t], -1)
		rhs := p.SpaceHeatDemand.At(t) - p.ExcessHeatHighTemp.At(t) - lowTemp.At(t)
		b.row(sc+"heat_bal", t, h, milp.Equal, rhs)

		c := milp.Expr{}.AddExpr(av.coolNet[t], 1).AddExpr(av.heatPump.cool[t], 1)
		b.row(sc+"cool_bal", t, c, milp.Equal, av.coolLoad.At(t))
	}
}

// agentModel is the single-agent MILP of one horizon.
type agentModel struct {
	b        *builder
	problem  AgentProblem
	topology Topology
	vars     *agentVars
	peaks    peakTerms
	penalty  float64
}

// buildAgentModel builds a fresh model for p. The agent buys and sells
// electricity on the external market, buys heat, and can dump heat or leave
// cooling demand unserved at a penalty.
func buildAgentModel(p AgentProblem) *agentModel {
	b := newBuilder("agent_"+p.Agent.ID, p.Horizon)
	tp := ResolveTopology(p.Calendar)
	g := p.Grid

	av := buildDevices(b, "", p.Agent, g.MarketHeatMax)
	av.elecBuy, av.elecSell, av.elecSide = b.tradePair("elec", g.MarketElecMax)
	av.heatBuy = b.series("heat_buy", 0, g.MarketHeatMax)
	av.coolDump = b.series("cool_dump", 0, model.Inf)
	av.coolCurtail = b.series("cool_curtail", 0, model.Inf)
	av.elecNet = netFlows(av.elecBuy, av.elecSell)
	av.heatNet = varFlows(av.heatBuy, 1)
	av.coolNet = netFlows(av.coolCurtail, av.coolDump)
	av.coolLoad = tp.coolingLoad(p.Agent)
	av.balances(b, "", nil, 1)

	peaks, obj := buildPeaks(b, av.elecBuy, av.elecSell, av.heatBuy, p.Tariff, p.Peaks)
	penalty := penaltyWeight(p.Tariff, p.Horizon)
	for t := 0; t < p.Horizon; t++ {
		obj = obj.AddExpr(marketCost(p.Tariff, t, av.elecBuy[t], av.elecSell[t], av.heatBuy[t]), 1).
			Add(av.heatDump[t], penalty).
			Add(av.coolCurtail[t], penalty)
	}
	b.m.SetObjective(obj)

	return &agentModel{b: b, problem: p, topology: tp, vars: av, peaks: peaks, penalty: penalty}
}

func (am *agentModel) solution(res *milp.Result) *Solution {
	sol := newSolution(res, am.problem.Horizon, am.topology)
	if !res.Status.HasSolution() {
		return sol
	}
	x := res.Values
	s := extractAgent(am.vars, x)
	sol.Agents = []AgentSchedule{s}
	sol.Cost = marketCosts(am.problem.Tariff, am.problem.Horizon, s.ElecBuy, s.ElecSell, s.HeatBuy)
	sol.Cost.Penalty = am.penalty * (sum(s.HeatDump) + sum(s.CoolCurtail))
	sol.Peak = realizedPeaks(s.ElecBuy, s.ElecSell, s.HeatBuy, x, am.peaks)
	sol.Cost.addPeakFees(am.problem.Tariff, am.problem.Horizon, x, am.peaks)
	sol.trades = agentTrades(s, am.problem.Tariff, External, HighTempHeat, 0, 0)
	return sol
}
