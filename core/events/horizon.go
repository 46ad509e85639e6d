package events

import "time"

// HorizonSolvedEvent is published after the optimizer returned a solution
// for a horizon. Status is the solver status, which may carry no schedule.
type HorizonSolvedEvent struct {
	RunID     string
	Index     int
	Start     time.Time
	Scope     string
	Subject   string
	Status    string
	Objective float64
	Duration  time.Duration
}

// PrecheckFailedEvent is published when a horizon has demand that no
// schedule can serve.
type PrecheckFailedEvent struct {
	RunID  string
	Index  int
	Start  time.Time
	Kind   string
	Agents []int
	Hours  []int
}

// PeakLoadEvent carries the peak-load history of a subject once a horizon
// has been accounted for.
type PeakLoadEvent struct {
	RunID           string
	Subject         string
	Start           time.Time
	DailyElecPeak   float64
	AverageElecPeak float64
	MonthlyHeat     float64
}
