package scenario

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/kilianp07/lec/core/model"
)

// ReadSeriesCSV reads a CSV file with a header row into one series per
// column. A column named "time" or "hour" is skipped.
func ReadSeriesCSV(path string) (map[string]model.Series, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer func() { _ = f.Close() }()
	cols, err := ParseSeriesCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cols, nil
}

// ParseSeriesCSV parses CSV data as described in ReadSeriesCSV. Empty cells
// read as zero.
func ParseSeriesCSV(r io.Reader) (map[string]model.Series, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.Comment = '#'
	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	names := make([]string, len(header))
	for i, h := range header {
		names[i] = strings.ToLower(strings.TrimSpace(h))
	}
	out := make(map[string]model.Series, len(names))
	for line := 2; ; line++ {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		for i, cell := range rec {
			name := names[i]
			if name == "time" || name == "hour" {
				continue
			}
			v := 0.0
			if cell = strings.TrimSpace(cell); cell != "" {
				if v, err = strconv.ParseFloat(cell, 64); err != nil {
					return nil, fmt.Errorf("line %d column %s: %w", line, name, err)
				}
			}
			out[name] = append(out[name], v)
		}
	}
	return out, nil
}

// applyProfiles copies the named columns into p. Unknown columns are an
// error so that typos do not silently zero a series.
func applyProfiles(p *model.Profiles, cols map[string]model.Series) error {
	targets := map[string]*model.Series{
		"elec_demand":           &p.ElecDemand,
		"pv_production":         &p.PVProduction,
		"space_heat_demand":     &p.SpaceHeatDemand,
		"hot_water_demand":      &p.HotWaterDemand,
		"cooling_demand":        &p.CoolingDemand,
		"excess_heat_low_temp":  &p.ExcessHeatLowTemp,
		"excess_heat_high_temp": &p.ExcessHeatHighTemp,
	}
	for name, s := range cols {
		dst, ok := targets[name]
		if !ok {
			return fmt.Errorf("unknown profile column %q", name)
		}
		*dst = s
	}
	return nil
}
