package cems

import (
	"math"

	"github.com/kilianp07/lec/core/milp"
	"github.com/kilianp07/lec/core/model"
)

const minPenalty = 1000.0

// peakTerms are the auxiliaries of the peak-load fees.
type peakTerms struct {
	daily, average     milp.VarID
	dailyHeat, monthly milp.VarID
}

// buildPeaks bounds the daily electricity peak by the net import of every
// step, averages it with the two retained peaks, and tracks the daily and
// monthly heat purchase. It returns the fee terms of the objective.
func buildPeaks(b *builder, buy, sell, heatBuy []milp.VarID, tr model.Tariff, hist model.PeakLoadHistory) (peakTerms, milp.Expr) {
	pt := peakTerms{
		daily:     b.m.Continuous("peak_daily", 0, model.Inf),
		average:   b.m.Continuous("peak_average", 0, model.Inf),
		dailyHeat: b.m.Continuous("heat_daily", 0, model.Inf),
		monthly:   b.m.Continuous("heat_monthly", 0, model.Inf),
	}
	p := hist.DailyElecPeaks
	for t := 0; t < b.h; t++ {
		b.row("peak_daily", t, milp.Expr{}.Add(pt.daily, 1).Add(buy[t], -1).Add(sell[t], 1), milp.GreaterEq, 0)
	}
	b.row("peak_average", 0, milp.Expr{}.Add(pt.average, 3).Add(pt.daily, -1), milp.GreaterEq, p[0]+p[1])
	b.row("peak_average", 1, milp.Expr{}.Add(pt.average, 3), milp.GreaterEq, p[0]+p[1]+p[2])

	heat := milp.Expr{}.Add(pt.dailyHeat, 1)
	for t := 0; t < b.h; t++ {
		heat = heat.Add(heatBuy[t], -1)
	}
	b.row("heat_daily", 0, heat, milp.GreaterEq, 0)
	b.row("heat_monthly", 0, milp.Expr{}.Add(pt.monthly, 1).Add(pt.dailyHeat, -1), milp.GreaterEq, 0)
	b.row("heat_monthly", 1, milp.Expr{}.Add(pt.monthly, 1), milp.GreaterEq, hist.MonthlyHeat)

	h := float64(b.h)
	fees := milp.Expr{}.
		Add(pt.average, h*tr.ElecPeakLoadFee).
		Add(pt.monthly, h/24*tr.HeatPeakLoadFee)
	return pt, fees
}

// penaltyWeight prices dumped heat and curtailed cooling well above any
// trade so they are only used when nothing else balances the model.
func penaltyWeight(tr model.Tariff, h int) float64 {
	m := math.Max(tr.HeatPrice, float64(h)*tr.ElecPeakLoadFee/3)
	m = math.Max(m, float64(h)/24*tr.HeatPeakLoadFee)
	for t := 0; t < h; t++ {
		m = math.Max(m, math.Abs(tr.ImportPrice(t)))
		m = math.Max(m, math.Abs(tr.ExportPrice(t)))
	}
	return math.Max(minPenalty, 10*m)
}

// marketCost prices the external trades of one step.
func marketCost(tr model.Tariff, t int, buy, sell, heatBuy milp.VarID) milp.Expr {
	return milp.Expr{}.
		Add(buy, tr.ImportPrice(t)).
		Add(sell, -tr.ExportPrice(t)).
		Add(heatBuy, tr.HeatPrice)
}
