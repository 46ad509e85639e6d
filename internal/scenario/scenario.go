// Package scenario loads simulation scenarios: the community members and
// their devices, the tariff and the hourly series, from YAML files with
// optional CSV companions.
package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/kilianp07/lec/core/model"
	"github.com/kilianp07/lec/core/prediction"
)

// AgentDef describes one agent. Series given inline in Profiles are
// overridden column by column by ProfilesCSV.
type AgentDef struct {
	ID          string         `yaml:"id"`
	ProfilesCSV string         `yaml:"profiles_csv,omitempty"`
	Profiles    model.Profiles `yaml:"profiles,omitempty"`
	Battery     model.Battery  `yaml:"battery,omitempty"`
	Tank        model.Tank     `yaml:"tank,omitempty"`
	BITES       model.BITES    `yaml:"bites,omitempty"`
	HeatPump    model.HeatPump `yaml:"heat_pump,omitempty"`
	Booster     model.HeatPump `yaml:"booster,omitempty"`
	Borehole    bool           `yaml:"borehole,omitempty"`
}

// ToModel returns the agent with its full-length profiles.
func (a AgentDef) ToModel() model.Agent {
	return model.Agent{
		ID:       a.ID,
		Profiles: a.Profiles,
		Battery:  a.Battery,
		Tank:     a.Tank,
		BITES:    a.BITES,
		HeatPump: a.HeatPump,
		Booster:  a.Booster,
		Borehole: a.Borehole,
	}
}

// TariffDef is a tariff whose price series may come from a CSV file with
// buy_price and sell_price columns.
type TariffDef struct {
	model.Tariff `yaml:",inline"`
	PricesCSV    string `yaml:"prices_csv,omitempty"`
}

// Scenario is a complete simulation input.
type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description,omitempty"`
	Start       time.Time `yaml:"start"`
	// Hours limits the simulated period. Zero uses the shortest series.
	Hours     int  `yaml:"hours,omitempty"`
	Community bool `yaml:"community"`
	// LowTempShare is the low-temperature part of hot-water demand. Unset
	// uses the default.
	LowTempShare *float64              `yaml:"low_temp_share,omitempty"`
	Tariff       TariffDef             `yaml:"tariff"`
	Grid         model.GridLimits      `yaml:"grid"`
	Chiller      model.Chiller         `yaml:"chiller"`
	Agents       []AgentDef            `yaml:"agents"`
	Peaks        model.PeakLoadHistory `yaml:"initial_peaks,omitempty"`
}

// Load reads a scenario file. CSV paths are relative to the file.
func Load(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	sc := Scenario{Grid: model.DefaultGridLimits(), Chiller: model.DefaultChiller()}
	if err := yaml.Unmarshal(data, &sc); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	dir := filepath.Dir(path)
	if sc.Tariff.PricesCSV != "" {
		cols, err := ReadSeriesCSV(resolve(dir, sc.Tariff.PricesCSV))
		if err != nil {
			return nil, err
		}
		if s, ok := cols["buy_price"]; ok {
			sc.Tariff.BuyPrice = s
		}
		if s, ok := cols["sell_price"]; ok {
			sc.Tariff.SellPrice = s
		}
	}
	for i := range sc.Agents {
		a := &sc.Agents[i]
		if a.ProfilesCSV == "" {
			continue
		}
		cols, err := ReadSeriesCSV(resolve(dir, a.ProfilesCSV))
		if err != nil {
			return nil, fmt.Errorf("agent %s: %w", a.ID, err)
		}
		if err := applyProfiles(&a.Profiles, cols); err != nil {
			return nil, fmt.Errorf("agent %s: %w", a.ID, err)
		}
	}
	if sc.Hours == 0 {
		sc.Hours = sc.dataHours()
	}
	if err := sc.Validate(); err != nil {
		return nil, fmt.Errorf("scenario %s: %w", path, err)
	}
	return &sc, nil
}

// Validate checks the fields the runner relies on. Device and series checks
// happen per horizon in the optimizer.
func (sc *Scenario) Validate() error {
	var errs []error
	if len(sc.Agents) == 0 {
		errs = append(errs, errors.New("no agents"))
	}
	seen := map[string]bool{}
	for i, a := range sc.Agents {
		if a.ID == "" {
			errs = append(errs, fmt.Errorf("agent %d: id is required", i))
		}
		if seen[a.ID] {
			errs = append(errs, fmt.Errorf("agent %d: duplicate id %q", i, a.ID))
		}
		seen[a.ID] = true
	}
	if sc.Hours <= 0 {
		errs = append(errs, errors.New("no hourly data"))
	}
	if sc.Start.IsZero() {
		errs = append(errs, errors.New("start is required"))
	}
	return errors.Join(errs...)
}

// ModelAgents returns the model agents with full-length profiles.
func (sc *Scenario) ModelAgents() []model.Agent {
	out := make([]model.Agent, len(sc.Agents))
	for i, a := range sc.Agents {
		out[i] = a.ToModel()
	}
	return out
}

// Forecaster returns a perfect-foresight forecaster over the scenario data.
func (sc *Scenario) Forecaster() *prediction.Static {
	profiles := make(map[string]model.Profiles, len(sc.Agents))
	for _, a := range sc.Agents {
		profiles[a.ID] = a.Profiles
	}
	return prediction.NewStatic(profiles, sc.Tariff.Tariff, sc.Hours)
}

// dataHours is the length of the shortest non-empty series: the tariff
// prices and every agent's electricity demand.
func (sc *Scenario) dataHours() int {
	n := len(sc.Tariff.BuyPrice)
	for _, a := range sc.Agents {
		if l := len(a.Profiles.ElecDemand); l > 0 && (n == 0 || l < n) {
			n = l
		}
	}
	return n
}

func resolve(dir, p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(dir, p)
}
