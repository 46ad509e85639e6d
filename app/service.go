package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/kilianp07/lec/config"
	"github.com/kilianp07/lec/core/cems"
	coremetrics "github.com/kilianp07/lec/core/metrics"
	"github.com/kilianp07/lec/core/milp"
	"github.com/kilianp07/lec/infra/logger"
	"github.com/kilianp07/lec/infra/metrics"
	"github.com/kilianp07/lec/infra/mqtt"
	"github.com/kilianp07/lec/infra/store"
	"github.com/kilianp07/lec/internal/eventbus"
	"github.com/kilianp07/lec/internal/scenario"
	"github.com/kilianp07/lec/pkg/export"

	_ "github.com/kilianp07/lec/infra/solver"
)

// Service wires the runner to the configured solver, sinks, store and
// broker.
type Service struct {
	Runner   *Runner
	Scenario *scenario.Scenario

	cfg     *config.Config
	sink    coremetrics.MetricsSink
	bus     *eventbus.Bus
	log     logger.Logger
	promOn  bool
	closers []func() error
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	logg := logger.New("service")
	sc, err := scenario.Load(cfg.Runner.Scenario)
	if err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	slv, err := milp.NewSolver(cfg.Solver.Module())
	if err != nil {
		return nil, fmt.Errorf("solver: %w", err)
	}
	sink, err := coremetrics.NewMetricsSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics: %w", err)
	}
	opt, err := cems.NewOptimizer(slv, sink, logger.New("cems"), cfg.Solver.Parallelism)
	if err != nil {
		return nil, err
	}

	svc := &Service{Scenario: sc, cfg: cfg, sink: sink, bus: eventbus.New(), log: logg}
	for _, m := range cfg.Metrics.Sinks {
		if m.Type == "prometheus" {
			svc.promOn = true
		}
	}
	opts := []Option{WithMetrics(sink), WithBus(svc.bus), WithLogger(logger.New("runner"))}

	if cfg.Store.Enabled() {
		st, err := store.NewSQLiteStore(cfg.Store.Path)
		if err != nil {
			return nil, fmt.Errorf("store: %w", err)
		}
		svc.closers = append(svc.closers, st.Close)
		opts = append(opts, WithStore(st))
	}
	if cfg.MQTT.Broker != "" {
		client, err := mqtt.NewPahoClient(cfg.MQTT)
		if err != nil {
			_ = svc.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		svc.closers = append(svc.closers, func() error { client.Disconnect(); return nil })
		opts = append(opts, WithPublisher(client))
	}
	if c, ok := sink.(interface{ Close() }); ok {
		svc.closers = append(svc.closers, func() error { c.Close(); return nil })
	}

	svc.Runner, err = NewRunner(cfg.Runner, sc, opt, cfg.Solver.Parallelism, opts...)
	if err != nil {
		_ = svc.Close()
		return nil, err
	}
	return svc, nil
}

// Run simulates the scenario, then writes the outputs. The Prometheus
// endpoint stays up until the run is over.
func (s *Service) Run(ctx context.Context) (*Report, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if s.promOn && s.cfg.Metrics.PrometheusPort != "" {
		go func() {
			addr := ":" + s.cfg.Metrics.PrometheusPort
			if err := metrics.StartPromServer(ctx, addr, prometheus.DefaultGatherer, s.log); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}
	done := metrics.StartEventCollector(ctx, s.bus, s.sink, logger.New("collector"))

	rep, err := s.Runner.Run(ctx)
	s.bus.Close()
	<-done
	if err != nil {
		return rep, err
	}
	if err := s.writeOutputs(rep); err != nil {
		return rep, fmt.Errorf("export: %w", err)
	}
	return rep, nil
}

func (s *Service) writeOutputs(rep *Report) error {
	dir := s.cfg.Runner.OutputDir
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	if s.cfg.Runner.ExportFormat == "csv" {
		if err := writeFile(filepath.Join(dir, rep.RunID+"_schedule.csv"), rep.Outputs, export.WriteScheduleCSV); err != nil {
			return err
		}
		return writeFile(filepath.Join(dir, rep.RunID+"_trades.csv"), rep.Outputs, export.WriteTradesCSV)
	}
	return writeFile(filepath.Join(dir, rep.RunID+".json"), rep.Outputs, export.WriteJSON)
}

func writeFile(path string, hs []export.Horizon, write func(w io.Writer, hs []export.Horizon) error) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()
	return write(f, hs)
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	var errs []error
	for i := len(s.closers) - 1; i >= 0; i-- {
		errs = append(errs, s.closers[i]())
	}
	s.closers = nil
	return errors.Join(errs...)
}
