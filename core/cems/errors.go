package cems

import (
	"fmt"
	"strings"
)

// ErrorKind classifies structural infeasibility detected before a model is
// built.
type ErrorKind int

const (
	UnfillableCoolingDemand ErrorKind = iota + 1
	UnfillableHotWaterDemand
)

func (k ErrorKind) String() string {
	switch k {
	case UnfillableCoolingDemand:
		return "unfillable_cooling_demand"
	case UnfillableHotWaterDemand:
		return "unfillable_hot_water_demand"
	default:
		return "unknown"
	}
}

// CEMSError reports a demand that no schedule can serve. AgentIndices and
// HourIndices point into the caller's agent slice and the horizon.
type CEMSError struct {
	Kind         ErrorKind
	Message      string
	AgentIndices []int
	HourIndices  []int
}

func (e *CEMSError) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: %s", e.Kind, e.Message)
	if len(e.AgentIndices) > 0 {
		fmt.Fprintf(&b, " (agents %v)", e.AgentIndices)
	}
	if len(e.HourIndices) > 0 {
		fmt.Fprintf(&b, " (hours %v)", e.HourIndices)
	}
	return b.String()
}

// ValidationError lists every problem found in the inputs of an optimization.
type ValidationError struct {
	Violations []string
}

func (e *ValidationError) Error() string {
	return "invalid input: " + strings.Join(e.Violations, "; ")
}

type violations []string

func (v *violations) addf(format string, args ...any) {
	*v = append(*v, fmt.Sprintf(format, args...))
}

func (v violations) err() error {
	if len(v) == 0 {
		return nil
	}
	return &ValidationError{Violations: v}
}
