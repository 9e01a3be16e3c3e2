package risk

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/papertrade/ledger"
)

func openPos(id, instr string, pnl, pct float64) ledger.Position {
	return ledger.Position{
		ID:         id,
		Instrument: instr,
		Direction:  ledger.Long,
		Quantity:   1,
		EntryPrice: 1,
		Status:     ledger.StatusOpen,
		PnL:        pnl,
		PnLPercent: pct,
		OpenedAt:   time.Unix(0, 0),
	}
}

func TestPositionScore(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name            string
		vol, corr, pct  float64
		want            float64
	}{
		{"defaults", 15, 0.5, 0, 45},
		{"negative correlation", 15, -0.5, 0, 45},
		{"big move adds twenty", 15, 0.5, -12, 65},
		{"exactly ten percent does not", 15, 0.5, 10, 45},
		{"capped", 40, 1, 50, 100},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.InDelta(t, tt.want, PositionScore(tt.vol, tt.corr, tt.pct), 1e-9)
		})
	}
}

func TestLevelFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, Low, LevelFor(0))
	assert.Equal(t, Low, LevelFor(30))
	assert.Equal(t, Medium, LevelFor(30.01))
	assert.Equal(t, Medium, LevelFor(60))
	assert.Equal(t, High, LevelFor(60.5))
}

func TestCompute_NoOpenPositions(t *testing.T) {
	t.Parallel()

	closed := openPos("P1", "EURUSD", 10, 1)
	closed.Status = ledger.StatusClosed

	s := Compute([]ledger.Position{closed}, Inputs{})
	assert.Zero(t, s.CurrentRisk)
	assert.Equal(t, Low, s.RiskLevel)
	assert.Zero(t, s.CorrelationRisk)
	assert.Zero(t, s.PortfolioHeat)
	assert.Equal(t, 100.0, s.DiversificationScore)
	assert.Empty(t, s.Positions)
}

func TestCompute_DefaultInputs(t *testing.T) {
	t.Parallel()

	s := Compute([]ledger.Position{openPos("P1", "EURUSD", 50, 1)}, Inputs{})

	require.Len(t, s.Positions, 1)
	assert.InDelta(t, 45.0, s.CurrentRisk, 1e-9)
	assert.Equal(t, Medium, s.RiskLevel)
	assert.InDelta(t, 50.0, s.CorrelationRisk, 1e-9)
	assert.InDelta(t, 60.0, s.PortfolioHeat, 1e-9)
	assert.InDelta(t, 50.0, s.DiversificationScore, 1e-9)
}

func TestCompute_WeightedByAbsPnL(t *testing.T) {
	t.Parallel()

	in := Inputs{
		Vol:  map[string]float64{"A": 10, "B": 30},
		Corr: map[string]float64{"A": 0, "B": 1},
	}
	// A scores 20, B scores min(100, 60+30) = 90.
	ps := []ledger.Position{
		openPos("P1", "A", 300, 1),
		openPos("P2", "B", -100, -1),
	}

	s := Compute(ps, in)
	assert.InDelta(t, (20*300+90*100)/400.0, s.CurrentRisk, 1e-9)
	assert.Equal(t, Medium, s.RiskLevel)
	assert.InDelta(t, 50.0, s.CorrelationRisk, 1e-9)
}

func TestCompute_ZeroWeightsUsesMean(t *testing.T) {
	t.Parallel()

	in := Inputs{Vol: map[string]float64{"A": 10, "B": 40}, Corr: map[string]float64{"A": 0, "B": 0}}
	s := Compute([]ledger.Position{openPos("P1", "A", 0, 0), openPos("P2", "B", 0, 0)}, in)

	assert.InDelta(t, (20+80)/2.0, s.CurrentRisk, 1e-9)
	assert.Equal(t, Medium, s.RiskLevel)
	assert.InDelta(t, 100.0, s.DiversificationScore, 1e-9)
}

func TestCompute_HighRiskAndBounds(t *testing.T) {
	t.Parallel()

	in := Inputs{Vol: map[string]float64{"X": 80}, Corr: map[string]float64{"X": -1}}
	s := Compute([]ledger.Position{openPos("P1", "X", 5000, 25)}, in)

	assert.Equal(t, 100.0, s.CurrentRisk)
	assert.Equal(t, High, s.RiskLevel)
	assert.Equal(t, 100.0, s.PortfolioHeat)
	assert.Equal(t, 0.0, s.DiversificationScore)

	for _, v := range []float64{s.CurrentRisk, s.CorrelationRisk, s.PortfolioHeat, s.DiversificationScore} {
		assert.GreaterOrEqual(t, v, 0.0)
		assert.LessOrEqual(t, v, 100.0)
	}
}
