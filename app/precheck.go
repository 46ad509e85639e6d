package app

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/kilianp07/lec/core/cems"
)

// Precheck validates every horizon of the scenario and runs the feasibility
// pre-check without solving. Peak histories and BITES energies stay at their
// initial values. The first invalid horizon aborts the check.
func (r *Runner) Precheck(ctx context.Context) ([]Skipped, error) {
	h := r.cfg.HorizonHours
	total := r.fc.Hours()
	if r.cfg.Days > 0 {
		total = min(total, r.cfg.Days*24)
	}
	st := newRunState()
	var out []Skipped
	for i := 0; i < total/h; i++ {
		if err := ctx.Err(); err != nil {
			return out, err
		}
		start := r.sc.Start.Add(time.Duration(i*h) * time.Hour)
		in, err := r.input(st, i, start)
		if err != nil {
			return out, err
		}
		for subject, err := range r.checks(st, in) {
			var ce *cems.CEMSError
			if errors.As(err, &ce) {
				out = append(out, Skipped{Index: i, Start: start, Subject: subject, Err: ce})
				continue
			}
			return out, fmt.Errorf("horizon %d %s: %w", i, subject, err)
		}
	}
	return out, nil
}

// checks yields the validation or pre-check error of every subject of the
// horizon that has one.
func (r *Runner) checks(st *runState, in horizonInput) iter.Seq2[string, error] {
	return func(yield func(string, error) bool) {
		if r.sc.Community {
			p := r.communityProblem(st, in)
			err := cems.ValidateCommunity(p)
			if err == nil {
				err = cems.CheckCommunity(p)
			}
			if err != nil {
				yield(cems.HubID, err)
			}
			return
		}
		for _, a := range in.agents {
			p := r.agentProblem(st, in, a)
			err := cems.ValidateAgent(p)
			if err == nil {
				err = cems.CheckAgent(p)
			}
			if err != nil && !yield(a.ID, err) {
				return
			}
		}
	}
}
