package risk

import "math"

// SizeRequest describes a planned trade for position sizing.
// QuoteToAccount converts the quote currency into the account currency:
// 1.0 for EURUSD in a USD account, 1/USDJPY for USDJPY.
type SizeRequest struct {
	Equity         float64
	RiskPct        float64 // 0.005
	EntryPrice     float64
	StopPrice      float64
	PipLocation    int
	QuoteToAccount float64
}

type SizeResult struct {
	Units      float64
	StopPips   float64
	RiskAmount float64
}

func pipSize(loc int) float64 {
	return math.Pow(10, float64(loc))
}

// PipSize returns the pip size for a pip location, e.g. -4 -> 0.0001.
func PipSize(loc int) float64 {
	return pipSize(loc)
}

// PipLocation guesses the pip location from a quoted price. JPY crosses and
// anything priced above 20 use two decimals.
func PipLocation(price float64) int {
	if price >= 20 {
		return -2
	}
	return -4
}

// Size returns the whole number of units that risks RiskPct of Equity if the
// stop is hit. A zero stop distance yields zero units.
func Size(in SizeRequest) SizeResult {
	pip := pipSize(in.PipLocation)
	stopPips := math.Abs(in.EntryPrice-in.StopPrice) / pip
	riskAmt := in.Equity * in.RiskPct

	q := in.QuoteToAccount
	if q == 0 {
		q = 1
	}
	pipValuePerUnit := pip * q

	var units float64
	if stopPips > 0 {
		units = math.Floor(riskAmt / (stopPips * pipValuePerUnit))
	}

	return SizeResult{
		Units:      units,
		StopPips:   stopPips,
		RiskAmount: riskAmt,
	}
}

// PlannedRisk is the account-currency loss if the stop is hit.
func PlannedRisk(units, entry, stop, quoteToAccount float64) float64 {
	return units * math.Abs(entry-stop) * quoteToAccount
}

func RR(entry, stop, takeProfit float64) float64 {
	risk := math.Abs(entry - stop)
	if risk == 0 {
		return 0
	}
	return math.Abs(takeProfit-entry) / risk
}

func RiskPct(plannedRisk, equity float64) float64 {
	if equity <= 0 {
		return math.Inf(1)
	}
	return plannedRisk / equity
}
