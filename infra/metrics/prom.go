package metrics

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/lec/core/metrics"
)

// PromSink records optimization runs in Prometheus metrics.
type PromSink struct {
	runs      *prometheus.CounterVec
	duration  *prometheus.HistogramVec
	objective *prometheus.GaugeVec
	nodes     *prometheus.HistogramVec
	prechecks *prometheus.CounterVec
	peaks     *prometheus.GaugeVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The /metrics endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer. Metrics
// already registered by an earlier sink are reused.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	s := &PromSink{}
	var err error
	if s.runs, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lec_optimizations_total",
		Help: "Optimization calls by scope and solver status",
	}, []string{"scope", "status"})); err != nil {
		return nil, err
	}
	if s.duration, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lec_optimization_duration_seconds",
		Help:    "Wall time spent in the solver",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 14),
	}, []string{"scope"})); err != nil {
		return nil, err
	}
	if s.objective, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lec_optimization_objective",
		Help: "Objective of the last solved horizon",
	}, []string{"scope", "subject"})); err != nil {
		return nil, err
	}
	if s.nodes, err = register(reg, prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "lec_branch_and_bound_nodes",
		Help:    "Branch-and-bound nodes explored per optimization",
		Buckets: prometheus.ExponentialBuckets(1, 4, 8),
	}, []string{"scope"})); err != nil {
		return nil, err
	}
	if s.prechecks, err = register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "lec_precheck_failures_total",
		Help: "Horizons rejected before optimization",
	}, []string{"kind"})); err != nil {
		return nil, err
	}
	if s.peaks, err = register(reg, prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "lec_peak_load",
		Help: "Peak-load state after the last horizon",
	}, []string{"subject", "kind"})); err != nil {
		return nil, err
	}
	return s, nil
}

func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordOptimization counts the run and records its duration, node count and
// objective.
func (s *PromSink) RecordOptimization(res coremetrics.OptimizationResult) error {
	s.runs.WithLabelValues(res.Scope, res.Status).Inc()
	s.duration.WithLabelValues(res.Scope).Observe(res.Duration.Seconds())
	s.nodes.WithLabelValues(res.Scope).Observe(float64(res.Nodes))
	if res.Status == "optimal" || res.Status == "feasible" {
		s.objective.WithLabelValues(res.Scope, res.Subject).Set(res.Objective)
	}
	return nil
}

// RecordPrecheckFailure counts rejected horizons by kind.
func (s *PromSink) RecordPrecheckFailure(ev coremetrics.PrecheckEvent) error {
	s.prechecks.WithLabelValues(ev.Kind).Inc()
	return nil
}

// RecordPeakLoad exposes the peak-load state of a subject.
func (s *PromSink) RecordPeakLoad(ev coremetrics.PeakLoadEvent) error {
	s.peaks.WithLabelValues(ev.Subject, "daily_elec").Set(ev.DailyElecPeak)
	s.peaks.WithLabelValues(ev.Subject, "average_elec").Set(ev.AverageElecPeak)
	s.peaks.WithLabelValues(ev.Subject, "monthly_heat").Set(ev.MonthlyHeat)
	return nil
}
