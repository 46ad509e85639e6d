// Package export writes optimized schedules and trades as JSON or CSV.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/lec/core/cems"
)

// Horizon is one solved horizon as exported.
type Horizon struct {
	Index    int            `json:"index"`
	Start    time.Time      `json:"start"`
	Scope    string         `json:"scope"`
	Subject  string         `json:"subject"`
	Solution *cems.Solution `json:"solution"`
	Trades   []cems.Trade   `json:"trades,omitempty"`
}

// NewHorizon fills Trades from the solution.
func NewHorizon(index int, start time.Time, scope, subject string, sol *cems.Solution) Horizon {
	h := Horizon{Index: index, Start: start, Scope: scope, Subject: subject, Solution: sol}
	if sol != nil {
		h.Trades = sol.Trades()
	}
	return h
}

// WriteJSON writes the horizons to w as an indented JSON array.
func WriteJSON(w io.Writer, horizons []Horizon) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if horizons == nil {
		horizons = []Horizon{}
	}
	return enc.Encode(horizons)
}

// Field is a named value of a schedule hour.
type Field struct {
	Name  string
	Value float64
}

// ScheduleFields are the columns of an agent schedule, in export order.
var ScheduleFields = []string{
	"elec_buy", "elec_sell", "heat_buy", "heat_sell", "cool_buy", "cool_sell",
	"battery_charge", "battery_discharge", "battery_energy",
	"tank_charge", "tank_discharge", "tank_energy",
	"bites_charge", "bites_shallow", "bites_deep",
	"heat_pump_elec", "heat_pump_heat", "heat_pump_cool",
	"booster_elec", "booster_heat", "heat_dump", "cool_dump",
}

// AgentFields returns the schedule values of hour t in ScheduleFields order.
func AgentFields(s cems.AgentSchedule, t int) []Field {
	series := [][]float64{
		s.ElecBuy, s.ElecSell, s.HeatBuy, s.HeatSell, s.CoolBuy, s.CoolSell,
		s.BatteryCharge, s.BatteryDischarge, s.BatteryEnergy,
		s.TankCharge, s.TankDischarge, s.TankEnergy,
		s.BITESCharge, s.BITESShallow, s.BITESDeep,
		s.HeatPumpElec, s.HeatPumpHeat, s.HeatPumpCool,
		s.BoosterElec, s.BoosterHeat, s.HeatDump, s.CoolDump,
	}
	out := make([]Field, len(series))
	for i, v := range series {
		out[i] = Field{Name: ScheduleFields[i], Value: at(v, t)}
	}
	return out
}

// WriteScheduleCSV writes one row per agent and hour.
func WriteScheduleCSV(w io.Writer, horizons []Horizon) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(append([]string{"time", "agent"}, ScheduleFields...)); err != nil {
		return err
	}
	for _, h := range horizons {
		if h.Solution == nil {
			continue
		}
		for _, a := range h.Solution.Agents {
			for t := 0; t < h.Solution.Horizon; t++ {
				rec := []string{h.Start.Add(time.Duration(t) * time.Hour).Format(time.RFC3339), a.AgentID}
				for _, f := range AgentFields(a, t) {
					rec = append(rec, formatFloat(f.Value))
				}
				if err := cw.Write(rec); err != nil {
					return err
				}
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteTradesCSV writes one row per trade.
func WriteTradesCSV(w io.Writer, horizons []Horizon) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"time", "source", "action", "resource", "market", "quantity", "price", "loss"}); err != nil {
		return err
	}
	for _, h := range horizons {
		for _, tr := range h.Trades {
			rec := []string{
				h.Start.Add(time.Duration(tr.Hour) * time.Hour).Format(time.RFC3339),
				tr.Source,
				tr.Action.String(),
				tr.Resource.String(),
				tr.Market.String(),
				formatFloat(tr.Quantity),
				formatFloat(tr.Price),
				formatFloat(tr.Loss),
			}
			if err := cw.Write(rec); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func at(s []float64, t int) float64 {
	if t < len(s) {
		return s[t]
	}
	return 0
}
