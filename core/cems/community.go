package cems

import (
	"github.com/kilianp07/lec/core/milp"
	"github.com/kilianp07/lec/core/model"
)

// hubVars are the variables of the community hub: the external trades and
// the chiller.
type hubVars struct {
	elecBuy, elecSell, elecSide []milp.VarID
	heatBuy                     []milp.VarID
	chillerElec                 []milp.VarID
	coolDump                    []milp.VarID

	chillerCool, chillerHeat flows
}

// communityModel is the community MILP of one horizon.
type communityModel struct {
	b        *builder
	problem  CommunityProblem
	topology Topology
	agents   []*agentVars
	hub      hubVars
	peaks    peakTerms
	penalty  float64
}

// seasonGroup is the heat balance variant selected by the topology.
type seasonGroup struct {
	summer bool
	// hotWaterShare is the part of the hot water load served by the heat
	// network.
	hotWaterShare float64
}

func (tp Topology) season(lowTempShare float64) seasonGroup {
	if tp.Heat == SummerHeat {
		return seasonGroup{summer: true, hotWaterShare: lowTempShare}
	}
	return seasonGroup{hotWaterShare: 1}
}

// buildCommunityModel builds a fresh model for p. Every agent trades
// electricity, heat and cooling with the hub only; the hub balances them
// against the external market and the chiller.
func buildCommunityModel(p CommunityProblem) *communityModel {
	b := newBuilder("community", p.Horizon)
	tp := ResolveTopology(p.Calendar)
	sg := tp.season(p.lowTempShare())
	g := p.Grid

	cm := &communityModel{b: b, problem: p, topology: tp}
	for i, a := range p.Agents {
		sc := scope(i)
		av := buildDevices(b, sc, a, g.InternalHeatMax)
		av.elecBuy, av.elecSell, av.elecSide = b.tradePair(sc+"elec", g.InternalElecMax)
		av.heatBuy = b.series(sc+"heat_buy", 0, g.InternalHeatMax)
		av.heatSell = b.series(sc+"heat_sell", 0, g.InternalHeatMax)
		av.coolBuy = b.series(sc+"cool_buy", 0, g.InternalCoolMax)
		av.coolSell = b.series(sc+"cool_sell", 0, g.InternalCoolMax)
		av.elecNet = netFlows(av.elecBuy, av.elecSell)
		av.heatNet = netFlows(av.heatBuy, av.heatSell)
		av.coolNet = netFlows(av.coolBuy, av.coolSell)
		av.coolLoad = tp.coolingLoad(a)

		var lowTemp model.Series
		if sg.summer {
			av.booster = buildBooster(b, sc, a.Booster, av.tank.load, sg.hotWaterShare)
			lowTemp = a.Profiles.ExcessHeatLowTemp
		}
		av.balances(b, sc, lowTemp, sg.hotWaterShare)
		cm.agents = append(cm.agents, av)
	}

	cm.hub = buildHub(b, p, sg)
	cm.hubBalances()

	peaks, obj := buildPeaks(b, cm.hub.elecBuy, cm.hub.elecSell, cm.hub.heatBuy, p.Tariff, p.Peaks)
	cm.peaks = peaks
	cm.penalty = penaltyWeight(p.Tariff, p.Horizon)
	for t := 0; t < p.Horizon; t++ {
		obj = obj.AddExpr(marketCost(p.Tariff, t, cm.hub.elecBuy[t], cm.hub.elecSell[t], cm.hub.heatBuy[t]), 1)
		for _, av := range cm.agents {
			obj = obj.Add(av.heatDump[t], cm.penalty)
		}
	}
	b.m.SetObjective(obj)
	return cm
}

// buildHub adds the external trades and the chiller. Chiller waste heat is
// recovered into the heat network in summer only.
func buildHub(b *builder, p CommunityProblem, sg seasonGroup) hubVars {
	g, ch := p.Grid, p.Chiller
	var hv hubVars
	hv.elecBuy, hv.elecSell, hv.elecSide = b.tradePair("hub_elec", g.MarketElecMax)
	hv.heatBuy = b.series("hub_heat_buy", 0, g.MarketHeatMax)
	hv.chillerElec = b.series("chiller_elec", 0, ch.MaxInput)
	hv.coolDump = b.series("hub_cool_dump", 0, model.Inf)
	hv.chillerCool = varFlows(hv.chillerElec, ch.COP)
	hv.chillerHeat = emptyFlows(b.h)
	if sg.summer {
		hv.chillerHeat = varFlows(hv.chillerElec, ch.WasteHeatFactor())
	}
	return hv
}

// hubBalances adds the hub electricity, heat and cooling balances. Heat and
// cooling delivered through the network lose a fixed share on the way.
func (cm *communityModel) hubBalances() {
	b, hv, g := cm.b, cm.hub, cm.problem.Grid
	keepHeat, keepCool := 1-g.HeatLoss, 1-g.CoolLoss
	for t := 0; t < b.h; t++ {
		e := milp.Expr{}.
			Add(hv.elecBuy[t], 1).
			Add(hv.elecSell[t], -1).
			Add(hv.chillerElec[t], -1)
		h := milp.Expr{}.
			Add(hv.heatBuy[t], keepHeat).
			AddExpr(hv.chillerHeat[t], keepHeat)
		c := milp.Expr{}.
			AddExpr(hv.chillerCool[t], 1).
			Add(hv.coolDump[t], -1)
		for _, av := range cm.agents {
			e = e.Add(av.elecSell[t], 1).Add(av.elecBuy[t], -1)
			h = h.Add(av.heatSell[t], keepHeat).Add(av.heatBuy[t], -1)
			c = c.Add(av.coolSell[t], keepCool).Add(av.coolBuy[t], -1)
		}
		b.row("hub_elec_bal", t, e, milp.Equal, 0)
		b.row("hub_heat_bal", t, h, milp.Equal, 0)
		b.row("hub_cool_bal", t, c, milp.Equal, 0)
	}
}

func (cm *communityModel) solution(res *milp.Result) *Solution {
	p := cm.problem
	sol := newSolution(res, p.Horizon, cm.topology)
	if !res.Status.HasSolution() {
		return sol
	}
	x := res.Values
	hv := cm.hub
	hub := &HubSchedule{
		ElecBuy:     values(hv.elecBuy, x),
		ElecSell:    values(hv.elecSell, x),
		HeatBuy:     values(hv.heatBuy, x),
		ChillerElec: values(hv.chillerElec, x),
		ChillerCool: hv.chillerCool.eval(x),
		ChillerHeat: hv.chillerHeat.eval(x),
		CoolDump:    values(hv.coolDump, x),
	}
	sol.Hub = hub

	heatRes := HighTempHeat
	if cm.topology.Heat == SummerHeat {
		heatRes = LowTempHeat
	}
	dumped := 0.0
	for _, av := range cm.agents {
		s := extractAgent(av, x)
		sol.Agents = append(sol.Agents, s)
		sol.trades = append(sol.trades, agentTrades(s, p.Tariff, Local, heatRes, p.Grid.HeatLoss, p.Grid.CoolLoss)...)
		dumped += sum(s.HeatDump)
	}
	sol.trades = append(sol.trades, hubTrades(hub, p.Tariff, p.Grid.HeatLoss)...)

	sol.Cost = marketCosts(p.Tariff, p.Horizon, hub.ElecBuy, hub.ElecSell, hub.HeatBuy)
	sol.Cost.Penalty = cm.penalty * dumped
	sol.Cost.addPeakFees(p.Tariff, p.Horizon, x, cm.peaks)
	sol.Peak = realizedPeaks(hub.ElecBuy, hub.ElecSell, hub.HeatBuy, x, cm.peaks)
	return sol
}
