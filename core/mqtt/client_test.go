package mqtt

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/lec/core/cems"
)

func TestNewScheduleMessage(t *testing.T) {
	start := time.Date(2024, 7, 1, 0, 0, 0, 0, time.UTC)
	s := cems.AgentSchedule{
		AgentID:       "house",
		ElecBuy:       []float64{1, 0},
		ElecSell:      []float64{0, 2},
		BatteryCharge: []float64{0.5, 0},
		HeatPumpElec:  []float64{0.2, 0.3},
	}
	msg := NewScheduleMessage("run", start, s)
	assert.Equal(t, "house", msg.AgentID)
	assert.Equal(t, "run", msg.RunID)
	require.Len(t, msg.Setpoints, 2)
	assert.Equal(t, start.Add(time.Hour), msg.Setpoints[1].Time)
	assert.Equal(t, 2.0, msg.Setpoints[1].GridSell)
	assert.Equal(t, 0.5, msg.Setpoints[0].BatteryCharge)
	assert.Zero(t, msg.Setpoints[1].BITESCharge)
}
