package cems

import (
	"fmt"

	"github.com/kilianp07/lec/core/model"
)

// CheckAgent reports hours in which the agent's cooling demand exceeds what
// it can deliver, as a *CEMSError of kind UnfillableCoolingDemand.
func CheckAgent(p AgentProblem) error {
	limit := p.Agent.MaxCooling(p.Calendar.Month)
	var hours []int
	for t := 0; t < p.Horizon; t++ {
		if p.Agent.Profiles.CoolingDemand.At(t) > limit {
			hours = append(hours, t)
		}
	}
	if len(hours) == 0 {
		return nil
	}
	return &CEMSError{
		Kind:         UnfillableCoolingDemand,
		Message:      fmt.Sprintf("cooling demand of %s exceeds %.3f kW", p.Agent.ID, limit),
		AgentIndices: []int{0},
		HourIndices:  hours,
	}
}

// CheckCommunity compares the community cooling demand with the chiller and
// the agents' own cooling capacity. In summer it also checks that the booster
// heat pumps can supply the part of the hot water demand that neither the tank
// nor low-temperature heat covers.
func CheckCommunity(p CommunityProblem) error {
	if err := checkCommunityCooling(p); err != nil {
		return err
	}
	if ResolveTopology(p.Calendar).Heat == SummerHeat {
		return checkHotWater(p.Agents, p.Horizon, p.lowTempShare())
	}
	return nil
}

func checkCommunityCooling(p CommunityProblem) error {
	capacity := p.Chiller.MaxCooling()
	for _, a := range p.Agents {
		capacity += a.MaxCooling(p.Calendar.Month)
	}
	var hours []int
	for t := 0; t < p.Horizon; t++ {
		demand := 0.0
		for _, a := range p.Agents {
			demand += a.Profiles.CoolingDemand.At(t)
		}
		if demand > capacity {
			hours = append(hours, t)
		}
	}
	if len(hours) == 0 {
		return nil
	}
	return &CEMSError{
		Kind:        UnfillableCoolingDemand,
		Message:     fmt.Sprintf("community cooling demand exceeds %.3f kW", capacity),
		HourIndices: hours,
	}
}

func checkHotWater(agents []model.Agent, h int, share float64) error {
	var idx []int
	for i, a := range agents {
		booster := 0.0
		if a.Booster.Present() {
			booster = a.Booster.MaxHeat
		}
		tank := a.Tank.CapacityKWh()
		for t := 0; t < h; t++ {
			if (a.Profiles.HotWaterDemand.At(t)-tank)*(1-share) > booster {
				idx = append(idx, i)
				break
			}
		}
	}
	if len(idx) == 0 {
		return nil
	}
	return &CEMSError{
		Kind:         UnfillableHotWaterDemand,
		Message:      "booster heat pumps cannot cover summer hot water demand",
		AgentIndices: idx,
	}
}
