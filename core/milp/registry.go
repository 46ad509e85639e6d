package milp

import "github.com/kilianp07/lec/core/factory"

var solverRegistry = factory.NewRegistry[Solver]()

// RegisterSolver adds a solver backend factory identified by name.
func RegisterSolver(name string, f factory.Factory[Solver]) error {
	return solverRegistry.Register(name, f)
}

// NewSolver creates the solver backend described by cfg.
func NewSolver(cfg factory.ModuleConfig) (Solver, error) {
	return solverRegistry.Create(cfg)
}

// SolverNames lists the registered backends.
func SolverNames() []string { return solverRegistry.Names() }
