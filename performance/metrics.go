// Package performance computes trade statistics from closed positions.
package performance

import (
	"math"
	"sort"
	"time"

	"github.com/rustyeddy/papertrade/ledger"
)

// MaxProfitFactor is reported when there are winning trades but no gross
// loss to divide by.
const MaxProfitFactor = 999.0

type EquityPoint struct {
	Time   time.Time `json:"time"`
	Equity float64   `json:"equity"`
}

type Metrics struct {
	TotalTrades   int `json:"totalTrades"`
	WinningTrades int `json:"winningTrades"`
	LosingTrades  int `json:"losingTrades"`

	WinRate      float64 `json:"winRate"` // percent
	TotalPnL     float64 `json:"totalPnl"`
	AveragePnL   float64 `json:"averagePnl"`
	GrossProfit  float64 `json:"grossProfit"`
	GrossLoss    float64 `json:"grossLoss"` // absolute
	ProfitFactor float64 `json:"profitFactor"`
	AverageWin   float64 `json:"averageWin"`
	AverageLoss  float64 `json:"averageLoss"` // absolute
	LargestWin   float64 `json:"largestWin"`
	LargestLoss  float64 `json:"largestLoss"` // signed, <= 0

	MaxDrawdown       float64 `json:"maxDrawdown"` // percent of peak realized equity
	MaxDrawdownAmount float64 `json:"maxDrawdownAmount"`

	// SharpeRatio is mean/stddev of per-trade returns on realized equity.
	// Not annualized; zero risk-free rate.
	SharpeRatio float64 `json:"sharpeRatio"`

	ConsecutiveWins   int `json:"consecutiveWins"`
	ConsecutiveLosses int `json:"consecutiveLosses"`

	EquityCurve []EquityPoint `json:"equityCurve,omitempty"`
}

// Compute derives metrics from the closed positions in ps; open positions
// are ignored. balance anchors the realized equity curve.
//
// A trade with pnl > 0 is a win; everything else, including breakeven, is
// a loss.
func Compute(balance float64, ps []ledger.Position) Metrics {
	closed := chronological(ps)

	var m Metrics
	m.TotalTrades = len(closed)
	if m.TotalTrades == 0 {
		return m
	}

	for _, p := range closed {
		m.TotalPnL += p.PnL
		if p.PnL > 0 {
			m.WinningTrades++
			m.GrossProfit += p.PnL
			if p.PnL > m.LargestWin {
				m.LargestWin = p.PnL
			}
			continue
		}
		m.LosingTrades++
		m.GrossLoss += p.PnL
		if p.PnL < m.LargestLoss {
			m.LargestLoss = p.PnL
		}
	}
	m.GrossLoss = math.Abs(m.GrossLoss)

	m.WinRate = float64(m.WinningTrades) / float64(m.TotalTrades) * 100
	m.AveragePnL = m.TotalPnL / float64(m.TotalTrades)
	if m.WinningTrades > 0 {
		m.AverageWin = m.GrossProfit / float64(m.WinningTrades)
	}
	if m.LosingTrades > 0 {
		m.AverageLoss = m.GrossLoss / float64(m.LosingTrades)
	}
	m.ProfitFactor = profitFactor(m.GrossProfit, m.GrossLoss)

	m.ConsecutiveWins, m.ConsecutiveLosses = streaks(closed)
	m.EquityCurve = equityCurve(balance, closed)
	m.MaxDrawdown, m.MaxDrawdownAmount = maxDrawdown(balance, m.EquityCurve)
	m.SharpeRatio = sharpe(balance, closed)
	return m
}

func profitFactor(gross, loss float64) float64 {
	switch {
	case loss > 0:
		return math.Min(gross/loss, MaxProfitFactor)
	case gross > 0:
		return MaxProfitFactor
	default:
		return 0
	}
}

// chronological returns the closed positions ordered by close time.
func chronological(ps []ledger.Position) []ledger.Position {
	out := make([]ledger.Position, 0, len(ps))
	for _, p := range ps {
		if p.Status == ledger.StatusClosed {
			out = append(out, p)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := closedAt(out[i]), closedAt(out[j])
		if !a.Equal(b) {
			return a.Before(b)
		}
		return out[i].ID < out[j].ID
	})
	return out
}

func closedAt(p ledger.Position) time.Time {
	if p.ClosedAt == nil {
		return time.Time{}
	}
	return *p.ClosedAt
}

func streaks(closed []ledger.Position) (wins, losses int) {
	var w, l int
	for _, p := range closed {
		if p.PnL > 0 {
			w++
			l = 0
		} else {
			l++
			w = 0
		}
		if w > wins {
			wins = w
		}
		if l > losses {
			losses = l
		}
	}
	return wins, losses
}

func equityCurve(balance float64, closed []ledger.Position) []EquityPoint {
	curve := make([]EquityPoint, 0, len(closed))
	eq := balance
	for _, p := range closed {
		eq += p.PnL
		curve = append(curve, EquityPoint{Time: closedAt(p), Equity: eq})
	}
	return curve
}

// maxDrawdown walks the realized equity curve from balance and reports the
// deepest peak-to-trough decline, as a percentage of the peak and in
// account currency.
func maxDrawdown(balance float64, curve []EquityPoint) (pct, amount float64) {
	peak := balance
	for _, pt := range curve {
		if pt.Equity > peak {
			peak = pt.Equity
		}
		dd := peak - pt.Equity
		if dd > amount {
			amount = dd
		}
		if peak > 0 {
			if p := dd / peak * 100; p > pct {
				pct = p
			}
		}
	}
	return pct, amount
}

func sharpe(balance float64, closed []ledger.Position) float64 {
	returns := make([]float64, 0, len(closed))
	eq := balance
	for _, p := range closed {
		if eq > 0 {
			returns = append(returns, p.PnL/eq)
		}
		eq += p.PnL
	}
	if len(returns) < 2 {
		return 0
	}

	var mean float64
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	var ss float64
	for _, r := range returns {
		ss += (r - mean) * (r - mean)
	}
	sd := math.Sqrt(ss / float64(len(returns)-1))
	if sd == 0 {
		return 0
	}
	return mean / sd
}
