package config

import (
	"fmt"
	"slices"

	"github.com/kilianp07/lec/core/factory"
	"github.com/kilianp07/lec/core/milp"
)

// SolverConfig selects the MILP backend.
type SolverConfig struct {
	// Backend is a registered solver name such as "bnb" or "gonum".
	Backend string         `json:"backend"`
	Options map[string]any `json:"options"`
	// Parallelism bounds concurrent single-agent optimizations.
	Parallelism int `json:"parallelism"`
}

// SetDefaults applies sane defaults.
func (c *SolverConfig) SetDefaults() {
	if c.Backend == "" {
		c.Backend = "bnb"
	}
	if c.Parallelism <= 0 {
		c.Parallelism = 4
	}
}

// Validate checks the backend is registered. Backends register themselves
// when infra/solver is imported.
func (c SolverConfig) Validate() error {
	if names := milp.SolverNames(); len(names) > 0 && !slices.Contains(names, c.Backend) {
		return fmt.Errorf("unknown backend %q, have %v", c.Backend, names)
	}
	return nil
}

// Module returns the factory configuration of the backend.
func (c SolverConfig) Module() factory.ModuleConfig {
	return factory.ModuleConfig{Type: c.Backend, Conf: c.Options}
}
