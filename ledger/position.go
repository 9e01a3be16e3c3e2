package ledger

import (
	"math"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

// ParseDirection accepts long/short and the buy/sell aliases used by broker
// exports.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "long", "buy":
		return Long, nil
	case "short", "sell":
		return Short, nil
	}
	return "", invalid("direction", "must be long or short")
}

// UnmarshalText routes JSON and YAML input through ParseDirection.
func (d *Direction) UnmarshalText(text []byte) error {
	v, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = v
	return nil
}

type Status string

const (
	StatusOpen   Status = "open"
	StatusClosed Status = "closed"
)

type Position struct {
	ID           string    `json:"id"`
	Instrument   string    `json:"instrument"`
	Direction    Direction `json:"direction"`
	Quantity     float64   `json:"quantity"`
	EntryPrice   float64   `json:"entryPrice"`
	CurrentPrice float64   `json:"currentPrice"`

	StopLoss   *float64 `json:"stopLoss,omitempty"`
	TakeProfit *float64 `json:"takeProfit,omitempty"`
	RiskReward float64  `json:"riskReward,omitempty"`

	// Set once a tick crosses the stop or target. Informational only.
	StopHit   bool `json:"stopHit,omitempty"`
	TargetHit bool `json:"targetHit,omitempty"`

	Status     Status  `json:"status"`
	PnL        float64 `json:"pnl"`
	PnLPercent float64 `json:"pnlPercent"`

	OpenedAt  time.Time  `json:"openedAt"`
	ExitPrice *float64   `json:"exitPrice,omitempty"`
	ClosedAt  *time.Time `json:"closedAt,omitempty"`

	Strategy string   `json:"strategy,omitempty"`
	Notes    string   `json:"notes,omitempty"`
	Tags     []string `json:"tags,omitempty"`
}

func (p Position) IsOpen() bool { return p.Status == StatusOpen }

// Notional is the capital committed at entry.
func (p Position) Notional() float64 {
	n, _ := decimal.NewFromFloat(p.EntryPrice).Mul(decimal.NewFromFloat(p.Quantity)).Float64()
	return n
}

func (p Position) clone() Position {
	c := p
	if p.StopLoss != nil {
		v := *p.StopLoss
		c.StopLoss = &v
	}
	if p.TakeProfit != nil {
		v := *p.TakeProfit
		c.TakeProfit = &v
	}
	if p.ExitPrice != nil {
		v := *p.ExitPrice
		c.ExitPrice = &v
	}
	if p.ClosedAt != nil {
		v := *p.ClosedAt
		c.ClosedAt = &v
	}
	if p.Tags != nil {
		c.Tags = append([]string(nil), p.Tags...)
	}
	return c
}

func (p *Position) hasTag(tag string) bool {
	for _, t := range p.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

func (p *Position) stopCrossed(price float64) bool {
	if p.StopLoss == nil {
		return false
	}
	if p.Direction == Long {
		return price <= *p.StopLoss
	}
	return price >= *p.StopLoss
}

func (p *Position) targetCrossed(price float64) bool {
	if p.TakeProfit == nil {
		return false
	}
	if p.Direction == Long {
		return price >= *p.TakeProfit
	}
	return price <= *p.TakeProfit
}

var hundred = decimal.NewFromInt(100)

// UnrealizedPnL values a position of qty units entered at entry against
// price. pct is relative to the entry notional and 0 when that is not
// positive.
func UnrealizedPnL(dir Direction, qty, entry, price float64) (pnl, pct float64) {
	q := decimal.NewFromFloat(qty)
	e := decimal.NewFromFloat(entry)
	move := decimal.NewFromFloat(price).Sub(e)
	if dir == Short {
		move = move.Neg()
	}

	d := move.Mul(q)
	pnl, _ = d.Float64()

	notional := e.Mul(q)
	if notional.IsPositive() {
		pct, _ = d.Div(notional).Mul(hundred).Float64()
	}
	return pnl, pct
}

func riskReward(entry float64, stop, target *float64) float64 {
	if stop == nil || target == nil {
		return 0
	}
	risk := math.Abs(entry - *stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(*target-entry) / risk
}
