package mqtt

import (
	"time"

	"github.com/kilianp07/lec/core/cems"
)

// SchedulePublisher sends optimized schedules to the devices of an agent and
// waits for them to confirm reception.
type SchedulePublisher interface {
	// PublishSchedule sends the schedule and returns the identifier used to
	// track its acknowledgment.
	PublishSchedule(msg ScheduleMessage) (scheduleID string, err error)

	// WaitForAck waits for an acknowledgment of the given schedule or until
	// the timeout expires.
	WaitForAck(scheduleID string, timeout time.Duration) (bool, error)
}

// Setpoint is the dispatch of one agent for one hour.
type Setpoint struct {
	Time             time.Time `json:"time"`
	GridBuy          float64   `json:"grid_buy"`
	GridSell         float64   `json:"grid_sell"`
	BatteryCharge    float64   `json:"battery_charge"`
	BatteryDischarge float64   `json:"battery_discharge"`
	HeatPumpElec     float64   `json:"heat_pump_elec"`
	BoosterElec      float64   `json:"booster_elec"`
	TankCharge       float64   `json:"tank_charge"`
	TankDischarge    float64   `json:"tank_discharge"`
	BITESCharge      float64   `json:"bites_charge,omitempty"`
}

// ScheduleMessage is the payload published for one agent and horizon.
type ScheduleMessage struct {
	ScheduleID string     `json:"schedule_id"`
	RunID      string     `json:"run_id"`
	AgentID    string     `json:"agent_id"`
	Start      time.Time  `json:"start"`
	Setpoints  []Setpoint `json:"setpoints"`
	Timestamp  int64      `json:"timestamp"`
}

// NewScheduleMessage builds the message of an agent schedule starting at
// start. ScheduleID and Timestamp are set by the publisher.
func NewScheduleMessage(runID string, start time.Time, s cems.AgentSchedule) ScheduleMessage {
	msg := ScheduleMessage{RunID: runID, AgentID: s.AgentID, Start: start}
	msg.Setpoints = make([]Setpoint, len(s.ElecBuy))
	for t := range msg.Setpoints {
		msg.Setpoints[t] = Setpoint{
			Time:             start.Add(time.Duration(t) * time.Hour),
			GridBuy:          at(s.ElecBuy, t),
			GridSell:         at(s.ElecSell, t),
			BatteryCharge:    at(s.BatteryCharge, t),
			BatteryDischarge: at(s.BatteryDischarge, t),
			HeatPumpElec:     at(s.HeatPumpElec, t),
			BoosterElec:      at(s.BoosterElec, t),
			TankCharge:       at(s.TankCharge, t),
			TankDischarge:    at(s.TankDischarge, t),
			BITESCharge:      at(s.BITESCharge, t),
		}
	}
	return msg
}

func at(s []float64, t int) float64 {
	if t < len(s) {
		return s[t]
	}
	return 0
}
