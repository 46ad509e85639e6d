package config

import (
	"errors"
	"fmt"
	"slices"
)

// RunnerConfig drives the horizon-by-horizon simulation.
type RunnerConfig struct {
	// Scenario is the path of the scenario file.
	Scenario string `json:"scenario"`
	// HorizonHours is the length of one trading horizon.
	HorizonHours int `json:"horizon_hours"`
	// Days limits the number of simulated days. Zero simulates all data.
	Days int `json:"days"`
	// SummerMonths are the months optimized in summer mode.
	SummerMonths []int `json:"summer_months"`
	// OutputDir receives the exported schedules. Empty disables export.
	OutputDir string `json:"output_dir"`
	// ExportFormat is "json" or "csv".
	ExportFormat string `json:"export_format"`
	// AckTimeoutSeconds bounds the wait for schedule acknowledgments. Zero
	// skips waiting.
	AckTimeoutSeconds int `json:"ack_timeout_seconds"`
}

// SetDefaults applies sane defaults.
func (c *RunnerConfig) SetDefaults() {
	if c.HorizonHours == 0 {
		c.HorizonHours = 24
	}
	if len(c.SummerMonths) == 0 {
		c.SummerMonths = []int{5, 6, 7, 8, 9}
	}
	if c.ExportFormat == "" {
		c.ExportFormat = "json"
	}
}

// Validate checks the runner settings.
func (c RunnerConfig) Validate() error {
	var errs []error
	if c.HorizonHours < 24 {
		errs = append(errs, fmt.Errorf("horizon_hours must be at least 24, got %d", c.HorizonHours))
	}
	if c.Days < 0 {
		errs = append(errs, errors.New("days must not be negative"))
	}
	for _, m := range c.SummerMonths {
		if m < 1 || m > 12 {
			errs = append(errs, fmt.Errorf("summer month %d out of range", m))
		}
	}
	if c.ExportFormat != "json" && c.ExportFormat != "csv" {
		errs = append(errs, fmt.Errorf("unknown export format %q", c.ExportFormat))
	}
	return errors.Join(errs...)
}

// IsSummer reports whether month runs in summer mode.
func (c RunnerConfig) IsSummer(month int) bool {
	return slices.Contains(c.SummerMonths, month)
}
