package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/lec/config"
	"github.com/kilianp07/lec/core/cems"
	"github.com/kilianp07/lec/core/events"
	"github.com/kilianp07/lec/core/logger"
	coremetrics "github.com/kilianp07/lec/core/metrics"
	"github.com/kilianp07/lec/core/model"
	coremqtt "github.com/kilianp07/lec/core/mqtt"
	"github.com/kilianp07/lec/core/prediction"
	infralogger "github.com/kilianp07/lec/infra/logger"
	"github.com/kilianp07/lec/infra/store"
	"github.com/kilianp07/lec/internal/eventbus"
	"github.com/kilianp07/lec/internal/scenario"
	"github.com/kilianp07/lec/pkg/export"
)

const (
	scopeAgent     = "agent"
	scopeCommunity = "community"
)

// Store persists runs. *store.SQLiteStore implements it.
type Store interface {
	CreateJob(ctx context.Context, scenario string, initTime time.Time) (store.Job, error)
	SaveHorizon(ctx context.Context, h store.Horizon) error
	SaveResults(ctx context.Context, jobID string, results map[string]float64) error
	FinishJob(ctx context.Context, id string, end time.Time) error
}

// Option customizes a Runner.
type Option func(*Runner)

// WithStore saves every horizon and the aggregated results.
func WithStore(s Store) Option { return func(r *Runner) { r.store = s } }

// WithPublisher sends each agent its schedule after every horizon.
func WithPublisher(p coremqtt.SchedulePublisher) Option { return func(r *Runner) { r.pub = p } }

// WithMetrics records the hourly schedules in sink.
func WithMetrics(sink coremetrics.MetricsSink) Option { return func(r *Runner) { r.sink = sink } }

// WithBus publishes the horizon events on bus.
func WithBus(bus eventbus.EventBus) Option { return func(r *Runner) { r.bus = bus } }

// WithLogger sets the runner logger.
func WithLogger(l logger.Logger) Option { return func(r *Runner) { r.log = l } }

// WithForecaster replaces the scenario's perfect-foresight forecaster.
func WithForecaster(f prediction.Forecaster) Option { return func(r *Runner) { r.fc = f } }

// Runner optimizes a scenario horizon by horizon. Between horizons it carries
// the peak-load history of every subject and the BITES energy of every agent.
type Runner struct {
	cfg         config.RunnerConfig
	sc          *scenario.Scenario
	opt         *cems.Optimizer
	parallelism int

	fc    prediction.Forecaster
	store Store
	pub   coremqtt.SchedulePublisher
	sink  coremetrics.MetricsSink
	bus   eventbus.EventBus
	log   logger.Logger
}

// NewRunner returns a runner for sc. parallelism bounds the concurrent
// single-agent solves when the scenario is not a community.
func NewRunner(cfg config.RunnerConfig, sc *scenario.Scenario, opt *cems.Optimizer, parallelism int, opts ...Option) (*Runner, error) {
	if sc == nil {
		return nil, errors.New("runner: nil scenario")
	}
	if opt == nil {
		return nil, errors.New("runner: nil optimizer")
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("runner: %w", err)
	}
	r := &Runner{cfg: cfg, sc: sc, opt: opt, parallelism: parallelism}
	for _, o := range opts {
		o(r)
	}
	if r.fc == nil {
		r.fc = sc.Forecaster()
	}
	if r.sink == nil {
		r.sink = coremetrics.NopSink{}
	}
	if r.log == nil {
		r.log = infralogger.NopLogger{}
	}
	return r, nil
}

// Skipped is a horizon, or one agent of it, rejected by the pre-check.
type Skipped struct {
	Index   int
	Start   time.Time
	Subject string
	Err     *cems.CEMSError
}

// Report summarizes a run.
type Report struct {
	RunID    string
	Horizons int
	Solved   int
	Unsolved int
	Skipped  []Skipped
	Results  map[string]float64
	Outputs  []export.Horizon
}

// runState is what one horizon hands to the next.
type runState struct {
	month int
	peaks map[string]*model.PeakLoadHistory
	// bites holds the shallow and deep energy left at the end of the
	// previous horizon.
	bites map[string][2]float64
}

func newRunState() *runState {
	return &runState{peaks: map[string]*model.PeakLoadHistory{}, bites: map[string][2]float64{}}
}

// history returns the peak-load history of subject, seeded from the
// scenario's initial peaks.
func (st *runState) history(sc *scenario.Scenario, subject string) *model.PeakLoadHistory {
	h, ok := st.peaks[subject]
	if !ok {
		p := sc.Peaks
		h = &p
		st.peaks[subject] = h
	}
	return h
}

// rollMonth starts a new billing month: every peak-load history is cleared.
func (st *runState) rollMonth(month int) {
	if st.month != 0 && st.month != month {
		for k := range st.peaks {
			st.peaks[k] = &model.PeakLoadHistory{}
		}
	}
	st.month = month
}

// Run optimizes every complete horizon of the scenario. A horizon rejected by
// the pre-check is reported and skipped; validation and solver errors abort
// the run.
func (r *Runner) Run(ctx context.Context) (*Report, error) {
	h := r.cfg.HorizonHours
	total := r.fc.Hours()
	if r.cfg.Days > 0 {
		total = min(total, r.cfg.Days*24)
	}
	n := total / h
	if n == 0 {
		return nil, fmt.Errorf("scenario %s has %d hours, need at least %d", r.sc.Name, total, h)
	}
	if rest := total - n*h; rest > 0 {
		r.log.Warnf("ignoring the last %d hours: shorter than one horizon", rest)
	}

	rep := &Report{RunID: uuid.NewString(), Horizons: n}
	if r.store != nil {
		job, err := r.store.CreateJob(ctx, r.sc.Name, r.sc.Start)
		if err != nil {
			return nil, fmt.Errorf("create job: %w", err)
		}
		rep.RunID = job.ID
	}
	r.log.Infof("run %s: %d horizons of %d h, community=%t", rep.RunID, n, h, r.sc.Community)

	st := newRunState()
	res := newResults()
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		start := r.sc.Start.Add(time.Duration(i*h) * time.Hour)
		if err := r.horizon(ctx, rep, st, res, i, start); err != nil {
			return rep, fmt.Errorf("horizon %d (%s): %w", i, start.Format(time.RFC3339), err)
		}
	}
	if len(rep.Skipped) > 0 {
		res.values[KeyPrecheckFailures] = float64(len(rep.Skipped))
	}
	rep.Results = res.Map()

	if r.store != nil {
		if err := r.store.SaveResults(ctx, rep.RunID, rep.Results); err != nil {
			return rep, fmt.Errorf("save results: %w", err)
		}
		end := r.sc.Start.Add(time.Duration(n*h) * time.Hour)
		if err := r.store.FinishJob(ctx, rep.RunID, end); err != nil {
			return rep, fmt.Errorf("finish job: %w", err)
		}
	}
	r.log.Infof("run %s done: solved=%d unsolved=%d skipped=%d", rep.RunID, rep.Solved, rep.Unsolved, len(rep.Skipped))
	return rep, nil
}

// horizonInput is the forecast data of one horizon.
type horizonInput struct {
	index  int
	start  time.Time
	agents []model.Agent
	tariff model.Tariff
	cal    model.Calendar
}

func (r *Runner) input(st *runState, i int, start time.Time) (horizonInput, error) {
	h := r.cfg.HorizonHours
	offset := i * h
	tariff, err := r.fc.Tariff(offset, h)
	if err != nil {
		return horizonInput{}, fmt.Errorf("tariff forecast: %w", err)
	}
	agents := r.sc.ModelAgents()
	for j := range agents {
		a := &agents[j]
		p, err := r.fc.Profiles(a.ID, offset, h)
		if err != nil {
			return horizonInput{}, fmt.Errorf("agent %s forecast: %w", a.ID, err)
		}
		a.Profiles = p
		if e, ok := st.bites[a.ID]; ok {
			a.BITES.InitialShallow, a.BITES.InitialDeep = e[0], e[1]
		}
	}
	month := int(start.Month())
	return horizonInput{
		index:  i,
		start:  start,
		agents: agents,
		tariff: tariff,
		cal:    model.Calendar{Month: month, Summer: r.cfg.IsSummer(month)},
	}, nil
}

func (r *Runner) communityProblem(st *runState, in horizonInput) cems.CommunityProblem {
	return cems.CommunityProblem{
		Agents:       in.agents,
		Horizon:      r.cfg.HorizonHours,
		Tariff:       in.tariff,
		Grid:         r.sc.Grid,
		Chiller:      r.sc.Chiller,
		Calendar:     in.cal,
		Peaks:        *st.history(r.sc, cems.HubID),
		LowTempShare: r.sc.LowTempShare,
	}
}

func (r *Runner) agentProblem(st *runState, in horizonInput, a model.Agent) cems.AgentProblem {
	return cems.AgentProblem{
		Agent:    a,
		Horizon:  r.cfg.HorizonHours,
		Tariff:   in.tariff,
		Grid:     r.sc.Grid,
		Calendar: in.cal,
		Peaks:    *st.history(r.sc, a.ID),
	}
}

type subjectSolution struct {
	scope   string
	subject string
	sol     *cems.Solution
}

func (r *Runner) horizon(ctx context.Context, rep *Report, st *runState, res *results, i int, start time.Time) error {
	st.rollMonth(int(start.Month()))
	in, err := r.input(st, i, start)
	if err != nil {
		return err
	}
	ctx = cems.WithRun(ctx, rep.RunID, start)

	var solved []subjectSolution
	if r.sc.Community {
		solved, err = r.solveCommunity(ctx, rep, st, in)
	} else {
		solved, err = r.solveAgents(ctx, rep, st, in)
	}
	if err != nil {
		return err
	}

	for _, s := range solved {
		if err := r.commit(ctx, rep, st, res, in, s); err != nil {
			return err
		}
	}
	return nil
}

func (r *Runner) solveCommunity(ctx context.Context, rep *Report, st *runState, in horizonInput) ([]subjectSolution, error) {
	sol, err := r.opt.OptimizeCommunity(ctx, r.communityProblem(st, in))
	var ce *cems.CEMSError
	if errors.As(err, &ce) {
		r.skip(rep, in, cems.HubID, ce, ce.AgentIndices)
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return []subjectSolution{{scope: scopeCommunity, subject: cems.HubID, sol: sol}}, nil
}

// solveAgents optimizes every agent on its own. An agent rejected by the
// pre-check is skipped without cancelling the others.
func (r *Runner) solveAgents(ctx context.Context, rep *Report, st *runState, in horizonInput) ([]subjectSolution, error) {
	sols := make([]*cems.Solution, len(in.agents))
	rejected := make([]*cems.CEMSError, len(in.agents))
	g, gctx := errgroup.WithContext(ctx)
	if r.parallelism > 0 {
		g.SetLimit(r.parallelism)
	}
	for j, a := range in.agents {
		p := r.agentProblem(st, in, a)
		g.Go(func() error {
			sol, err := r.opt.OptimizeAgent(gctx, p)
			var ce *cems.CEMSError
			if errors.As(err, &ce) {
				rejected[j] = ce
				return nil
			}
			if err != nil {
				return err
			}
			sols[j] = sol
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	var out []subjectSolution
	for j, a := range in.agents {
		if ce := rejected[j]; ce != nil {
			r.skip(rep, in, a.ID, ce, []int{j})
			continue
		}
		out = append(out, subjectSolution{scope: scopeAgent, subject: a.ID, sol: sols[j]})
	}
	return out, nil
}

func (r *Runner) skip(rep *Report, in horizonInput, subject string, ce *cems.CEMSError, agents []int) {
	r.log.Warnf("horizon %d %s skipped: %v", in.index, subject, ce)
	rep.Skipped = append(rep.Skipped, Skipped{Index: in.index, Start: in.start, Subject: subject, Err: ce})
	r.publish(events.PrecheckFailedEvent{
		RunID:  rep.RunID,
		Index:  in.index,
		Start:  in.start,
		Kind:   ce.Kind.String(),
		Agents: agents,
		Hours:  ce.HourIndices,
	})
}

// commit stores a solution and, when it carries a schedule, accounts its
// peaks, carries its BITES energy and hands the schedules out.
func (r *Runner) commit(ctx context.Context, rep *Report, st *runState, res *results, in horizonInput, s subjectSolution) error {
	sol := s.sol
	r.publish(events.HorizonSolvedEvent{
		RunID:     rep.RunID,
		Index:     in.index,
		Start:     in.start,
		Scope:     s.scope,
		Subject:   s.subject,
		Status:    sol.Status.String(),
		Objective: sol.Objective,
		Duration:  sol.Duration,
	})
	if r.store != nil {
		err := r.store.SaveHorizon(ctx, store.Horizon{
			JobID:    rep.RunID,
			Index:    in.index,
			Start:    in.start,
			Scope:    s.scope,
			Subject:  s.subject,
			Solution: sol,
		})
		if err != nil {
			return fmt.Errorf("save %s: %w", s.subject, err)
		}
	}
	if !sol.Status.HasSolution() {
		rep.Unsolved++
		res.count(KeyUnsolvedHorizons)
		r.log.Warnf("horizon %d %s has no schedule: %s", in.index, s.subject, sol.Status)
		return nil
	}
	rep.Solved++
	res.count(KeySolvedHorizons)
	res.add(in.start, in.tariff, in.agents, sol)

	hist := st.history(r.sc, s.subject)
	hist.Push(sol.Peak.DailyElecPeak)
	hist.RecordHeat(sol.Peak.DailyHeat)
	r.publish(events.PeakLoadEvent{
		RunID:           rep.RunID,
		Subject:         s.subject,
		Start:           in.start,
		DailyElecPeak:   sol.Peak.DailyElecPeak,
		AverageElecPeak: sol.Peak.AverageElecPeak,
		MonthlyHeat:     hist.MonthlyHeat,
	})

	for _, a := range sol.Agents {
		if shallow, deep, ok := a.BITESEnd(); ok {
			st.bites[a.AgentID] = [2]float64{shallow, deep}
		}
	}

	rep.Outputs = append(rep.Outputs, export.NewHorizon(in.index, in.start, s.scope, s.subject, sol))
	r.recordSchedules(rep.RunID, in.start, sol)
	r.sendSchedules(rep.RunID, in.start, sol)
	return nil
}

func (r *Runner) recordSchedules(runID string, start time.Time, sol *cems.Solution) {
	rec, ok := r.sink.(coremetrics.ScheduleRecorder)
	if !ok {
		return
	}
	samples := make([]coremetrics.ScheduleSample, 0, len(sol.Agents)*sol.Horizon)
	for _, a := range sol.Agents {
		for t := 0; t < sol.Horizon; t++ {
			fields := map[string]float64{}
			for _, f := range export.AgentFields(a, t) {
				fields[f.Name] = f.Value
			}
			samples = append(samples, coremetrics.ScheduleSample{
				RunID:  runID,
				Source: a.AgentID,
				Time:   start.Add(time.Duration(t) * time.Hour),
				Fields: fields,
			})
		}
	}
	if err := rec.RecordSchedule(samples); err != nil {
		r.log.Errorf("metrics error: %v", err)
	}
}

// sendSchedules publishes one message per agent. Delivery failures are
// logged; the run goes on.
func (r *Runner) sendSchedules(runID string, start time.Time, sol *cems.Solution) {
	if r.pub == nil {
		return
	}
	timeout := time.Duration(r.cfg.AckTimeoutSeconds) * time.Second
	for _, a := range sol.Agents {
		id, err := r.pub.PublishSchedule(coremqtt.NewScheduleMessage(runID, start, a))
		if err != nil {
			r.log.Errorf("publish schedule for %s: %v", a.AgentID, err)
			continue
		}
		if timeout <= 0 {
			continue
		}
		acked, err := r.pub.WaitForAck(id, timeout)
		if err != nil || !acked {
			r.log.Warnf("schedule %s for %s not acknowledged: %v", id, a.AgentID, err)
		}
	}
}

func (r *Runner) publish(ev eventbus.Event) {
	if r.bus != nil {
		r.bus.Publish(ev)
	}
}
