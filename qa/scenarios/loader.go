// Package scenarios runs QA cases: a scenario file, runner settings and the
// outcome the run must reach.
package scenarios

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/lec/config"
)

// Expected is the outcome of a case. Results lists only the keys to compare.
type Expected struct {
	Solved    int                `yaml:"solved"`
	Unsolved  int                `yaml:"unsolved,omitempty"`
	Skipped   int                `yaml:"skipped,omitempty"`
	Published map[string]int     `yaml:"published,omitempty"`
	Results   map[string]float64 `yaml:"results,omitempty"`
}

// Case is one QA case.
type Case struct {
	Name        string `yaml:"name"`
	Description string `yaml:"description,omitempty"`
	// Scenario is relative to the case file.
	Scenario     string   `yaml:"scenario"`
	Days         int      `yaml:"days,omitempty"`
	HorizonHours int      `yaml:"horizon_hours,omitempty"`
	FailAgents   []string `yaml:"fail_agents,omitempty"`
	Expected     Expected `yaml:"expected"`
}

// Load reads a case file and resolves its scenario path.
func Load(path string) (*Case, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var c Case
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, err
	}
	if c.Scenario == "" {
		return nil, fmt.Errorf("case %s: scenario is required", path)
	}
	if c.Name == "" {
		return nil, errors.New("case name is required")
	}
	if !filepath.IsAbs(c.Scenario) {
		c.Scenario = filepath.Join(filepath.Dir(path), c.Scenario)
	}
	return &c, nil
}

// RunnerConfig returns the runner settings of the case. Schedules are not
// awaited.
func (c *Case) RunnerConfig() config.RunnerConfig {
	return config.RunnerConfig{
		Scenario:     c.Scenario,
		Days:         c.Days,
		HorizonHours: c.HorizonHours,
	}
}
