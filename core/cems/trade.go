package cems

import (
	"fmt"

	"github.com/kilianp07/lec/core/model"
)

// tradeEpsilon is the smallest net quantity reported as a trade.
const tradeEpsilon = 1e-6

type Resource int

const (
	Electricity Resource = iota
	HighTempHeat
	LowTempHeat
	Cooling
)

func (r Resource) String() string {
	switch r {
	case Electricity:
		return "electricity"
	case HighTempHeat:
		return "high_temp_heat"
	case LowTempHeat:
		return "low_temp_heat"
	case Cooling:
		return "cooling"
	default:
		return "unknown"
	}
}

func (r Resource) MarshalText() ([]byte, error) { return []byte(r.String()), nil }

type Action int

const (
	Buy Action = iota
	Sell
)

func (a Action) String() string {
	if a == Sell {
		return "sell"
	}
	return "buy"
}

func (a Action) MarshalText() ([]byte, error) { return []byte(a.String()), nil }

// Market tells whether a trade is made inside the community or with the
// external market.
type Market int

const (
	Local Market = iota
	External
)

func (m Market) String() string {
	if m == External {
		return "external"
	}
	return "local"
}

func (m Market) MarshalText() ([]byte, error) { return []byte(m.String()), nil }

// ParseResource is the inverse of Resource.String.
func ParseResource(s string) (Resource, error) {
	for _, r := range []Resource{Electricity, HighTempHeat, LowTempHeat, Cooling} {
		if r.String() == s {
			return r, nil
		}
	}
	return 0, fmt.Errorf("unknown resource %q", s)
}

// ParseAction is the inverse of Action.String.
func ParseAction(s string) (Action, error) {
	switch s {
	case "buy":
		return Buy, nil
	case "sell":
		return Sell, nil
	}
	return 0, fmt.Errorf("unknown action %q", s)
}

// ParseMarket is the inverse of Market.String.
func ParseMarket(s string) (Market, error) {
	switch s {
	case "local":
		return Local, nil
	case "external":
		return External, nil
	}
	return 0, fmt.Errorf("unknown market %q", s)
}

// Trade is the net exchange of one participant in one hour, seen from the
// participant. Quantities bought over a lossy network are grossed up to what
// left the seller. Price is set for external trades only.
type Trade struct {
	Hour     int      `json:"hour"`
	Source   string   `json:"source"`
	Action   Action   `json:"action"`
	Resource Resource `json:"resource"`
	Market   Market   `json:"market"`
	Quantity float64  `json:"quantity"`
	Price    float64  `json:"price,omitempty"`
	Loss     float64  `json:"loss,omitempty"`
}

// netTrade returns the trade for a net inflow, or false when it is
// negligible. buyPrice and sellPrice are ignored for local trades.
func netTrade(t int, source string, r Resource, m Market, net, loss, buyPrice, sellPrice float64) (Trade, bool) {
	tr := Trade{Hour: t, Source: source, Resource: r, Market: m, Loss: loss}
	switch {
	case net > tradeEpsilon:
		tr.Action, tr.Quantity, tr.Price = Buy, net/(1-loss), buyPrice
	case net < -tradeEpsilon:
		tr.Action, tr.Quantity, tr.Price = Sell, -net, sellPrice
	default:
		return Trade{}, false
	}
	if m == Local {
		tr.Price = 0
	}
	return tr, true
}

func at(s []float64, t int) float64 {
	if t >= len(s) {
		return 0
	}
	return s[t]
}

// agentTrades lists the trades of an agent with its counterparty, the hub
// for a community member or the external market for a standalone agent.
func agentTrades(s AgentSchedule, tr model.Tariff, m Market, heat Resource, heatLoss, coolLoss float64) []Trade {
	var out []Trade
	add := func(t Trade, ok bool) {
		if ok {
			out = append(out, t)
		}
	}
	for t := range s.ElecBuy {
		add(netTrade(t, s.AgentID, Electricity, m, s.ElecBuy[t]-s.ElecSell[t], 0, tr.ImportPrice(t), tr.ExportPrice(t)))
		add(netTrade(t, s.AgentID, heat, m, at(s.HeatBuy, t)-at(s.HeatSell, t), heatLoss, tr.HeatPrice, 0))
		if s.CoolBuy != nil {
			add(netTrade(t, s.AgentID, Cooling, m, s.CoolBuy[t]-s.CoolSell[t], coolLoss, 0, 0))
		}
	}
	return out
}

// hubTrades lists the external trades of the community hub. Heat bought by
// the hub is reported before network losses, as purchased.
func hubTrades(h *HubSchedule, tr model.Tariff, heatLoss float64) []Trade {
	var out []Trade
	for t := range h.ElecBuy {
		if e, ok := netTrade(t, HubID, Electricity, External, h.ElecBuy[t]-h.ElecSell[t], 0, tr.ImportPrice(t), tr.ExportPrice(t)); ok {
			out = append(out, e)
		}
		if q, ok := netTrade(t, HubID, HighTempHeat, External, h.HeatBuy[t], 0, tr.HeatPrice, 0); ok {
			q.Loss = heatLoss
			out = append(out, q)
		}
	}
	return out
}
