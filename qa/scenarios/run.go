package scenarios

import (
	"context"
	"math"
	"testing"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/lec/app"
	"github.com/kilianp07/lec/core/cems"
	"github.com/kilianp07/lec/infra/logger"
	"github.com/kilianp07/lec/infra/metrics"
	"github.com/kilianp07/lec/infra/mqtt"
	"github.com/kilianp07/lec/infra/solver"
	"github.com/kilianp07/lec/internal/eventbus"
	"github.com/kilianp07/lec/internal/scenario"
)

const resultTolerance = 1e-4

// RunCase simulates the case scenario with a mock publisher and a private
// Prometheus registry, then compares the report with the expectations.
func RunCase(t *testing.T, c *Case) {
	t.Helper()
	sc, err := scenario.Load(c.Scenario)
	if err != nil {
		t.Fatalf("scenario: %v", err)
	}

	reg := prometheus.NewRegistry()
	sink, err := metrics.NewPromSinkWithRegistry(reg)
	if err != nil {
		t.Fatalf("prom sink: %v", err)
	}
	opt, err := cems.NewOptimizer(solver.NewBranchAndBound(solver.Options{}, nil), sink, logger.NopLogger{}, 2)
	if err != nil {
		t.Fatalf("optimizer: %v", err)
	}

	pub := mqtt.NewMockPublisher()
	for _, id := range c.FailAgents {
		pub.FailIDs[id] = true
	}
	bus := eventbus.New()
	defer bus.Close()

	r, err := app.NewRunner(c.RunnerConfig(), sc, opt, 2,
		app.WithPublisher(pub),
		app.WithMetrics(sink),
		app.WithBus(bus),
	)
	if err != nil {
		t.Fatalf("runner: %v", err)
	}
	rep, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("run: %v", err)
	}

	exp := c.Expected
	if rep.Solved != exp.Solved {
		t.Errorf("case %s expected %d solved, got %d", c.Name, exp.Solved, rep.Solved)
	}
	if rep.Unsolved != exp.Unsolved {
		t.Errorf("case %s expected %d unsolved, got %d", c.Name, exp.Unsolved, rep.Unsolved)
	}
	if len(rep.Skipped) != exp.Skipped {
		t.Errorf("case %s expected %d skipped, got %d", c.Name, exp.Skipped, len(rep.Skipped))
	}
	for id, want := range exp.Published {
		if got := pub.Count(id); got != want {
			t.Errorf("case %s expected %d schedules for %s, got %d", c.Name, want, id, got)
		}
	}
	for key, want := range exp.Results {
		got, ok := rep.Results[key]
		if !ok {
			t.Errorf("case %s missing result %s", c.Name, key)
			continue
		}
		if math.Abs(got-want) > resultTolerance {
			t.Errorf("case %s result %s: expected %.4f, got %.4f", c.Name, key, want, got)
		}
	}

	runs, err := counterSum(reg, "lec_optimizations_total")
	if err != nil {
		t.Fatalf("gather: %v", err)
	}
	if want := float64(rep.Solved + rep.Unsolved); runs != want {
		t.Errorf("case %s expected %.0f recorded optimizations, got %.0f", c.Name, want, runs)
	}
}

func counterSum(g prometheus.Gatherer, name string) (float64, error) {
	mfs, err := g.Gather()
	if err != nil {
		return 0, err
	}
	total := 0.0
	for _, mf := range mfs {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			total += m.GetCounter().GetValue()
		}
	}
	return total, nil
}
