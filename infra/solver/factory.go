package solver

import (
	"github.com/kilianp07/lec/core/factory"
	"github.com/kilianp07/lec/core/milp"
	"github.com/kilianp07/lec/infra/logger"
)

// init registers the built-in backends.
func init() {
	_ = milp.RegisterSolver("bnb", func(conf map[string]any) (milp.Solver, error) {
		var o Options
		if err := factory.Decode(conf, &o); err != nil {
			return nil, err
		}
		return NewBranchAndBound(o, logger.New("solver")), nil
	})

	_ = milp.RegisterSolver("gonum", func(conf map[string]any) (milp.Solver, error) {
		var o Options
		if err := factory.Decode(conf, &o); err != nil {
			return nil, err
		}
		return NewGonum(o, logger.New("solver")), nil
	})
}
