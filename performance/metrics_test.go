package performance

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/ledger"
)

var t0 = time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)

func closedSeq(pnls ...float64) []ledger.Position {
	out := make([]ledger.Position, 0, len(pnls))
	for i, pnl := range pnls {
		at := t0.Add(time.Duration(i) * time.Hour)
		exit := 1.0
		out = append(out, ledger.Position{
			ID:         fmt.Sprintf("P%03d", i),
			Instrument: "EURUSD",
			Direction:  ledger.Long,
			Quantity:   1,
			EntryPrice: 1,
			Status:     ledger.StatusClosed,
			PnL:        pnl,
			ExitPrice:  &exit,
			ClosedAt:   &at,
		})
	}
	return out
}

func TestComputeEmpty(t *testing.T) {
	t.Parallel()

	m := Compute(100000, nil)
	assert.Zero(t, m.WinRate)
	assert.Zero(t, m.ProfitFactor)
	assert.Zero(t, m.AverageWin)
	assert.Zero(t, m.AverageLoss)
	assert.Zero(t, m.LargestWin)
	assert.Zero(t, m.LargestLoss)
	assert.Zero(t, m.MaxDrawdown)
	assert.Zero(t, m.SharpeRatio)
}

func TestComputeMixedTrades(t *testing.T) {
	t.Parallel()

	m := Compute(100000, closedSeq(200, -100, 50))

	assert.Equal(t, 3, m.TotalTrades)
	assert.Equal(t, 2, m.WinningTrades)
	assert.Equal(t, 1, m.LosingTrades)
	assert.InDelta(t, 66.7, m.WinRate, 0.05)
	assert.InDelta(t, 2.5, m.ProfitFactor, 1e-9)
	assert.InDelta(t, 125, m.AverageWin, 1e-9)
	assert.InDelta(t, 100, m.AverageLoss, 1e-9)
	assert.InDelta(t, 200, m.LargestWin, 1e-9)
	assert.InDelta(t, -100, m.LargestLoss, 1e-9)
	assert.InDelta(t, 150, m.TotalPnL, 1e-9)
	assert.InDelta(t, 50, m.AveragePnL, 1e-9)
}

func TestComputeIgnoresOpenPositions(t *testing.T) {
	t.Parallel()

	ps := closedSeq(100)
	ps = append(ps, ledger.Position{ID: "OPEN", Status: ledger.StatusOpen, PnL: -5000})

	m := Compute(1000, ps)
	assert.Equal(t, 1, m.TotalTrades)
	assert.Equal(t, 100.0, m.WinRate)
}

func TestProfitFactorConventions(t *testing.T) {
	t.Parallel()

	assert.Equal(t, MaxProfitFactor, Compute(1000, closedSeq(10, 20)).ProfitFactor)
	assert.Zero(t, Compute(1000, closedSeq(-10, -20)).ProfitFactor)
	assert.Equal(t, MaxProfitFactor, Compute(1000, closedSeq(10, 0)).ProfitFactor, "breakeven adds no gross loss")
	assert.Zero(t, profitFactor(0, 0))
}

func TestWinRateBounds(t *testing.T) {
	t.Parallel()

	for _, seq := range [][]float64{{1}, {-1}, {0, 0}, {5, -5, 5, -5, 0}} {
		m := Compute(1000, closedSeq(seq...))
		assert.GreaterOrEqual(t, m.WinRate, 0.0)
		assert.LessOrEqual(t, m.WinRate, 100.0)
	}
}

func TestDrawdownUsesChronologicalOrder(t *testing.T) {
	t.Parallel()

	ps := closedSeq(1000, -2200, 500)
	// Shuffle input order; close times drive the curve.
	ps[0], ps[2] = ps[2], ps[0]

	m := Compute(10000, ps)

	require.Len(t, m.EquityCurve, 3)
	assert.InDelta(t, 11000, m.EquityCurve[0].Equity, 1e-9)
	assert.InDelta(t, 8800, m.EquityCurve[1].Equity, 1e-9)
	assert.InDelta(t, 9300, m.EquityCurve[2].Equity, 1e-9)
	assert.InDelta(t, 2200, m.MaxDrawdownAmount, 1e-9)
	assert.InDelta(t, 20, m.MaxDrawdown, 1e-9)
}

func TestStreaks(t *testing.T) {
	t.Parallel()

	m := Compute(1000, closedSeq(1, 2, -1, 0, -3, 4, 5, 6, -1))
	assert.Equal(t, 3, m.ConsecutiveWins)
	assert.Equal(t, 3, m.ConsecutiveLosses)
}

func TestSharpe(t *testing.T) {
	t.Parallel()

	assert.Zero(t, Compute(1000, closedSeq(10)).SharpeRatio, "needs two returns")
	assert.Zero(t, sharpe(1000, closedSeq(0, 0, 0)), "zero variance")

	m := Compute(1000, closedSeq(100, -50))
	r1 := 100.0 / 1000
	r2 := -50.0 / 1100
	mean := (r1 + r2) / 2
	sd := math.Sqrt(((r1-mean)*(r1-mean) + (r2-mean)*(r2-mean)) / 1)
	assert.InDelta(t, mean/sd, m.SharpeRatio, 1e-12)
}
