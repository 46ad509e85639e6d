package milp

import (
	"context"
	"time"
)

// Status is the termination status reported by a solver.
type Status int

const (
	StatusUnknown Status = iota
	StatusOptimal
	// StatusFeasible means an integer-feasible point was found but optimality
	// was not proven, e.g. because the node limit was reached.
	StatusFeasible
	StatusInfeasible
	StatusUnbounded
	// StatusLimit means a limit was reached before any feasible point was found.
	StatusLimit
)

func (s Status) String() string {
	switch s {
	case StatusOptimal:
		return "optimal"
	case StatusFeasible:
		return "feasible"
	case StatusInfeasible:
		return "infeasible"
	case StatusUnbounded:
		return "unbounded"
	case StatusLimit:
		return "limit"
	default:
		return "unknown"
	}
}

// MarshalText encodes the status by name.
func (s Status) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// HasSolution reports whether Result.Values holds a usable assignment.
func (s Status) HasSolution() bool {
	return s == StatusOptimal || s == StatusFeasible
}

// Result is the outcome of one solve.
type Result struct {
	Status    Status
	Objective float64
	// Values holds one value per model variable when Status.HasSolution().
	Values []float64
	// Bound is the best proven lower bound on the objective.
	Bound    float64
	Nodes    int
	Duration time.Duration
}

// Value returns the value of v, or 0 when no solution is available.
func (r *Result) Value(v VarID) float64 {
	if r == nil || int(v) >= len(r.Values) || v < 0 {
		return 0
	}
	return r.Values[v]
}

// Solver solves a model. Implementations must not retain the model after Solve
// returns. Infeasibility is reported through Result.Status, not as an error.
type Solver interface {
	Solve(ctx context.Context, m *Model) (*Result, error)
}

// SolverFunc adapts a function to the Solver interface.
type SolverFunc func(ctx context.Context, m *Model) (*Result, error)

func (f SolverFunc) Solve(ctx context.Context, m *Model) (*Result, error) { return f(ctx, m) }
