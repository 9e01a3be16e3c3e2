// Package account derives the solvency figures of the virtual account from
// its ledger.
package account

import (
	"github.com/shopspring/decimal"

	"github.com/rustyeddy/papertrade/ledger"
)

// Account is recomputed from scratch after every ledger change and is never
// mutated in place.
type Account struct {
	ID       string `json:"id,omitempty"`
	Currency string `json:"currency,omitempty"`

	Balance       float64 `json:"balance"`
	TotalPnL      float64 `json:"totalPnl"`
	RealizedPnL   float64 `json:"realizedPnl"`
	UnrealizedPnL float64 `json:"unrealizedPnl"`
	Equity        float64 `json:"equity"`
	Margin        float64 `json:"margin"`
	FreeMargin    float64 `json:"freeMargin"`
	MarginLevel   float64 `json:"marginLevel"` // percent

	OpenTrades   int `json:"openTrades"`
	ClosedTrades int `json:"closedTrades"`
}

// Compute derives the account from the starting balance and every position,
// open and closed. Equity includes unrealized P&L; the realized and
// unrealized parts are reported separately as well.
func Compute(balance float64, positions []ledger.Position) Account {
	var (
		realized   decimal.Decimal
		unrealized decimal.Decimal
		margin     decimal.Decimal
		open       int
		closed     int
	)

	for _, p := range positions {
		pnl := decimal.NewFromFloat(p.PnL)
		if p.IsOpen() {
			open++
			unrealized = unrealized.Add(pnl)
			margin = margin.Add(decimal.NewFromFloat(p.EntryPrice).Mul(decimal.NewFromFloat(p.Quantity)))
			continue
		}
		closed++
		realized = realized.Add(pnl)
	}

	total := realized.Add(unrealized)
	equity := decimal.NewFromFloat(balance).Add(total)

	a := Account{
		Balance:      balance,
		OpenTrades:   open,
		ClosedTrades: closed,
	}
	a.RealizedPnL, _ = realized.Float64()
	a.UnrealizedPnL, _ = unrealized.Float64()
	a.TotalPnL, _ = total.Float64()
	a.Equity, _ = equity.Float64()
	a.Margin, _ = margin.Float64()
	a.FreeMargin, _ = equity.Sub(margin).Float64()

	if margin.IsPositive() {
		a.MarginLevel, _ = equity.Div(margin).Mul(decimal.NewFromInt(100)).Float64()
	}
	return a
}
