package model

// Tariff holds the prices of one trading horizon. Prices are per kWh and the
// peak-load fees are per kW (electricity) and per kWh of daily heat (heat).
type Tariff struct {
	BuyPrice  Series `json:"buy_price" yaml:"buy_price"`
	SellPrice Series `json:"sell_price" yaml:"sell_price"`

	TransmissionFee float64 `json:"transmission_fee" yaml:"transmission_fee"`
	Tax             float64 `json:"tax" yaml:"tax"`
	FeedInIncentive float64 `json:"feed_in_incentive" yaml:"feed_in_incentive"`
	HeatPrice       float64 `json:"heat_price" yaml:"heat_price"`
	ElecPeakLoadFee float64 `json:"elec_peak_load_fee" yaml:"elec_peak_load_fee"`
	HeatPeakLoadFee float64 `json:"heat_peak_load_fee" yaml:"heat_peak_load_fee"`
}

// ImportPrice is the full cost of buying one kWh of electricity at hour t.
func (tr Tariff) ImportPrice(t int) float64 {
	return tr.BuyPrice.At(t) + tr.TransmissionFee + tr.Tax
}

// ExportPrice is the revenue of selling one kWh of electricity at hour t.
func (tr Tariff) ExportPrice(t int) float64 {
	return tr.SellPrice.At(t) + tr.FeedInIncentive
}

// Window returns the tariff restricted to [start, start+n).
func (tr Tariff) Window(start, n int) Tariff {
	out := tr
	out.BuyPrice = tr.BuyPrice.Window(start, n)
	out.SellPrice = tr.SellPrice.Window(start, n)
	return out
}

// GridLimits are the transfer caps of the external market and of the internal
// community grid, plus the internal network losses.
type GridLimits struct {
	MarketElecMax   float64 `json:"market_elec_max" yaml:"market_elec_max"`
	MarketHeatMax   float64 `json:"market_heat_max" yaml:"market_heat_max"`
	InternalElecMax float64 `json:"internal_elec_max" yaml:"internal_elec_max"`
	InternalHeatMax float64 `json:"internal_heat_max" yaml:"internal_heat_max"`
	InternalCoolMax float64 `json:"internal_cool_max" yaml:"internal_cool_max"`
	HeatLoss        float64 `json:"heat_loss" yaml:"heat_loss"`
	CoolLoss        float64 `json:"cool_loss" yaml:"cool_loss"`
}

// DefaultGridLimits returns the caps used when a scenario does not set them.
func DefaultGridLimits() GridLimits {
	return GridLimits{
		MarketElecMax:   1000,
		MarketHeatMax:   1000,
		InternalElecMax: 500,
		InternalHeatMax: 500,
		InternalCoolMax: 500,
		HeatLoss:        0.05,
		CoolLoss:        0.05,
	}
}

// PeakLoadHistory carries the peak-load state between horizons. DailyElecPeaks
// holds the three most recent daily electricity peaks, the first two of which
// are combined with the current horizon's peak.
type PeakLoadHistory struct {
	DailyElecPeaks [3]float64 `json:"daily_elec_peaks" yaml:"daily_elec_peaks"`
	MonthlyHeat    float64    `json:"monthly_heat" yaml:"monthly_heat"`
}

// Push records a new daily electricity peak, keeping the three most recent.
func (p *PeakLoadHistory) Push(peak float64) {
	p.DailyElecPeaks[2] = p.DailyElecPeaks[1]
	p.DailyElecPeaks[1] = p.DailyElecPeaks[0]
	p.DailyElecPeaks[0] = peak
}

// RecordHeat raises the monthly heat peak if dayHeat exceeds it.
func (p *PeakLoadHistory) RecordHeat(dayHeat float64) {
	if dayHeat > p.MonthlyHeat {
		p.MonthlyHeat = dayHeat
	}
}

// Calendar is the calendar context of a horizon. Summer is supplied by the
// caller and never derived from Month.
type Calendar struct {
	Month  int  `json:"month" yaml:"month"`
	Summer bool `json:"summer" yaml:"summer"`
}

// IsPeakSummer reports whether month is one of June, July or August, when
// borehole free cooling is unavailable.
func IsPeakSummer(month int) bool {
	return month >= 6 && month <= 8
}
