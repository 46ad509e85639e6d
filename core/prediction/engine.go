package prediction

import (
	"errors"

	"github.com/kilianp07/lec/core/model"
)

// ErrOutOfRange is returned when a window extends past the available data.
var ErrOutOfRange = errors.New("forecast window out of range")

// Forecaster returns the inputs of a trading horizon. Indices are hours from
// the start of the simulated period.
type Forecaster interface {
	// Profiles returns the forecast profiles of agentID over [start, start+n).
	Profiles(agentID string, start, n int) (model.Profiles, error)

	// Tariff returns the forecast tariff over [start, start+n).
	Tariff(start, n int) (model.Tariff, error)

	// Hours returns the number of hours the forecaster covers.
	Hours() int
}
