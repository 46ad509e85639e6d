package cems

import (
	"context"
	"errors"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/lec/core/logger"
	"github.com/kilianp07/lec/core/metrics"
	"github.com/kilianp07/lec/core/milp"
	infralogger "github.com/kilianp07/lec/infra/logger"
)

// Optimizer validates, pre-checks, builds and solves dispatch problems. It
// holds no state between calls and may be shared by goroutines.
type Optimizer struct {
	solver      milp.Solver
	metrics     metrics.MetricsSink
	log         logger.Logger
	parallelism int
}

// NewOptimizer returns an optimizer using solver. A nil sink or logger
// disables metrics or logging. parallelism bounds OptimizeAgents; zero or
// less means one solve per agent at once.
func NewOptimizer(solver milp.Solver, sink metrics.MetricsSink, log logger.Logger, parallelism int) (*Optimizer, error) {
	if solver == nil {
		return nil, errors.New("cems: nil solver")
	}
	if sink == nil {
		sink = metrics.NopSink{}
	}
	if log == nil {
		log = infralogger.NopLogger{}
	}
	return &Optimizer{solver: solver, metrics: sink, log: log, parallelism: parallelism}, nil
}

// OptimizeAgent solves one horizon of a standalone agent. Validation and
// pre-check failures are returned as *ValidationError and *CEMSError and the
// solver is not invoked. A solver status without a solution is not an error.
func (o *Optimizer) OptimizeAgent(ctx context.Context, p AgentProblem) (*Solution, error) {
	if err := ValidateAgent(p); err != nil {
		return nil, err
	}
	if err := CheckAgent(p); err != nil {
		return nil, err
	}
	am := buildAgentModel(p)
	res, err := o.solve(ctx, am.b.m)
	if err != nil {
		return nil, fmt.Errorf("optimize agent %s: %w", p.Agent.ID, err)
	}
	sol := am.solution(res)
	o.report(ctx, "agent", p.Agent.ID, sol)
	return sol, nil
}

// OptimizeCommunity solves one horizon of the whole community.
func (o *Optimizer) OptimizeCommunity(ctx context.Context, p CommunityProblem) (*Solution, error) {
	if err := ValidateCommunity(p); err != nil {
		return nil, err
	}
	if err := CheckCommunity(p); err != nil {
		return nil, err
	}
	cm := buildCommunityModel(p)
	res, err := o.solve(ctx, cm.b.m)
	if err != nil {
		return nil, fmt.Errorf("optimize community: %w", err)
	}
	sol := cm.solution(res)
	o.report(ctx, "community", HubID, sol)
	return sol, nil
}

// OptimizeAgents solves independent agents concurrently. Solutions are
// returned in the order of ps. The first error cancels the remaining solves.
func (o *Optimizer) OptimizeAgents(ctx context.Context, ps []AgentProblem) ([]*Solution, error) {
	out := make([]*Solution, len(ps))
	g, ctx := errgroup.WithContext(ctx)
	if o.parallelism > 0 {
		g.SetLimit(o.parallelism)
	}
	for i, p := range ps {
		g.Go(func() error {
			sol, err := o.OptimizeAgent(ctx, p)
			if err != nil {
				return err
			}
			out[i] = sol
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *Optimizer) solve(ctx context.Context, m *milp.Model) (*milp.Result, error) {
	o.log.Debugw("solving model", map[string]any{
		"model":    m.Name(),
		"vars":     m.NumVars(),
		"integers": m.NumIntegral(),
		"rows":     len(m.Constraints()),
	})
	res, err := o.solver.Solve(ctx, m)
	if err != nil {
		return nil, err
	}
	if res == nil {
		return nil, errors.New("solver returned no result")
	}
	return res, nil
}

type runKey struct{}

type runInfo struct {
	id    string
	start time.Time
}

// WithRun tags the optimizations made with ctx with a run id and the start
// time of the horizon, both forwarded to the metrics sink.
func WithRun(ctx context.Context, id string, start time.Time) context.Context {
	return context.WithValue(ctx, runKey{}, runInfo{id: id, start: start})
}

func (o *Optimizer) report(ctx context.Context, scope, subject string, sol *Solution) {
	run, _ := ctx.Value(runKey{}).(runInfo)
	if sol.Status.HasSolution() {
		o.log.Infof("%s %s solved: status=%s cost=%.3f nodes=%d", scope, subject, sol.Status, sol.Objective, sol.Nodes)
	} else {
		o.log.Warnf("%s %s not solved: status=%s", scope, subject, sol.Status)
	}
	err := o.metrics.RecordOptimization(metrics.OptimizationResult{
		RunID:     run.id,
		Scope:     scope,
		Subject:   subject,
		Start:     run.start,
		Horizon:   sol.Horizon,
		Status:    sol.Status.String(),
		Objective: sol.Objective,
		Nodes:     sol.Nodes,
		Duration:  sol.Duration,
		Time:      time.Now(),
	})
	if err != nil {
		o.log.Errorf("metrics error: %v", err)
	}
}
