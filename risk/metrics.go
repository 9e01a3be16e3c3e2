package risk

import (
	"math"

	"github.com/rustyeddy/papertrade/ledger"
)

type Level string

const (
	Low    Level = "low"
	Medium Level = "medium"
	High   Level = "high"
)

// LevelFor buckets a 0-100 risk score.
func LevelFor(score float64) Level {
	switch {
	case score > 60:
		return High
	case score > 30:
		return Medium
	default:
		return Low
	}
}

type PositionRisk struct {
	PositionID  string  `json:"positionId"`
	Instrument  string  `json:"instrument"`
	Volatility  float64 `json:"volatility"`
	Correlation float64 `json:"correlation"`
	Score       float64 `json:"score"`
	Weight      float64 `json:"weight"`
}

type Snapshot struct {
	CurrentRisk          float64        `json:"currentRisk"`
	RiskLevel            Level          `json:"riskLevel"`
	CorrelationRisk      float64        `json:"correlationRisk"`
	PortfolioHeat        float64        `json:"portfolioHeat"`
	DiversificationScore float64        `json:"diversificationScore"`
	Positions            []PositionRisk `json:"positions,omitempty"`
}

// PositionScore is the 0-100 risk of a single position: twice its
// volatility, plus 30 points per unit of absolute correlation, plus 20 when
// it has moved more than 10% either way.
func PositionScore(volatility, correlation, pnlPercent float64) float64 {
	score := 2*volatility + 30*math.Abs(correlation)
	if math.Abs(pnlPercent) > 10 {
		score += 20
	}
	return math.Min(100, score)
}

// Compute scores the open positions in ps against in. Closed positions are
// ignored. The portfolio score weights each position by |pnl|; when every
// weight is zero the plain mean is used.
func Compute(ps []ledger.Position, in Inputs) Snapshot {
	var (
		rows      []PositionRisk
		weighted  float64
		weights   float64
		plain     float64
		absCorrel float64
	)

	for _, p := range ps {
		if !p.IsOpen() {
			continue
		}
		vol := in.Volatility(p.Instrument)
		corr := in.Correlation(p.Instrument)
		score := PositionScore(vol, corr, p.PnLPercent)
		w := math.Abs(p.PnL)

		rows = append(rows, PositionRisk{
			PositionID:  p.ID,
			Instrument:  p.Instrument,
			Volatility:  vol,
			Correlation: corr,
			Score:       score,
			Weight:      w,
		})
		weighted += score * w
		weights += w
		plain += score
		absCorrel += math.Abs(corr)
	}

	s := Snapshot{RiskLevel: Low, DiversificationScore: 100, Positions: rows}
	n := float64(len(rows))
	if n == 0 {
		return s
	}

	if weights > 0 {
		s.CurrentRisk = weighted / weights
	} else {
		s.CurrentRisk = plain / n
	}
	s.RiskLevel = LevelFor(s.CurrentRisk)
	s.CorrelationRisk = absCorrel / n * 100
	s.PortfolioHeat = math.Min(100, s.CurrentRisk+s.CorrelationRisk*0.3)
	s.DiversificationScore = math.Max(0, 100-s.CorrelationRisk)
	return s
}
