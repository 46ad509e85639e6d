package prediction

import (
	"fmt"

	"github.com/kilianp07/lec/core/model"
)

// Static is a perfect-foresight forecaster backed by fully known series.
type Static struct {
	profiles map[string]model.Profiles
	tariff   model.Tariff
	hours    int
}

// NewStatic returns a forecaster over hours hours. Series shorter than hours
// are padded with zeros when windowed.
func NewStatic(profiles map[string]model.Profiles, tariff model.Tariff, hours int) *Static {
	cp := make(map[string]model.Profiles, len(profiles))
	for k, v := range profiles {
		cp[k] = v
	}
	return &Static{profiles: cp, tariff: tariff, hours: hours}
}

// Profiles implements Forecaster.
func (s *Static) Profiles(agentID string, start, n int) (model.Profiles, error) {
	if err := s.check(start, n); err != nil {
		return model.Profiles{}, err
	}
	p, ok := s.profiles[agentID]
	if !ok {
		return model.Profiles{}, fmt.Errorf("no profiles for agent %s", agentID)
	}
	return p.Window(start, n), nil
}

// Tariff implements Forecaster.
func (s *Static) Tariff(start, n int) (model.Tariff, error) {
	if err := s.check(start, n); err != nil {
		return model.Tariff{}, err
	}
	return s.tariff.Window(start, n), nil
}

// Hours implements Forecaster.
func (s *Static) Hours() int { return s.hours }

func (s *Static) check(start, n int) error {
	if start < 0 || n <= 0 || start+n > s.hours {
		return fmt.Errorf("%w: [%d, %d) of %d hours", ErrOutOfRange, start, start+n, s.hours)
	}
	return nil
}
