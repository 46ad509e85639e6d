// Package cems builds and solves the hourly dispatch MILP of a local energy
// community. A problem is validated, checked for structurally unfillable
// demand, turned into a fresh milp.Model and handed to a milp.Solver. The
// solver's status is returned as is; infeasibility found by the solver is not
// an error.
package cems

import "github.com/kilianp07/lec/core/model"

const (
	// MinHorizon is the shortest supported trading horizon in hours.
	MinHorizon = 24
	// DefaultLowTempShare is the share of hot water that recovered
	// low-temperature heat covers in summer. The booster supplies the rest.
	DefaultLowTempShare = 0.6
	// HubID identifies the community hub in trades and schedules.
	HubID = "LEC"
)

// AgentProblem is one horizon of a single agent trading directly with the
// external market.
type AgentProblem struct {
	Agent    model.Agent
	Horizon  int
	Tariff   model.Tariff
	Grid     model.GridLimits
	Calendar model.Calendar
	Peaks    model.PeakLoadHistory
}

// CommunityProblem is one horizon of a community whose agents trade through
// the hub, which alone trades with the external market.
type CommunityProblem struct {
	Agents   []model.Agent
	Horizon  int
	Tariff   model.Tariff
	Grid     model.GridLimits
	Chiller  model.Chiller
	Calendar model.Calendar
	Peaks    model.PeakLoadHistory
	// LowTempShare overrides DefaultLowTempShare when set. Zero leaves the
	// whole summer hot water load to the boosters.
	LowTempShare *float64
}

func (p CommunityProblem) lowTempShare() float64 {
	if p.LowTempShare != nil {
		return *p.LowTempShare
	}
	return DefaultLowTempShare
}
