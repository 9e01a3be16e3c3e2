package risk

import "fmt"

// Policy holds advisory limits for a planned trade. They never block an
// open; Review only reports which ones a plan breaks.
type Policy struct {
	MaxRiskPct    float64 `json:"max_risk_pct" yaml:"max_risk_pct" toml:"max_risk_pct"`
	MinRR         float64 `json:"min_rr" yaml:"min_rr" toml:"min_rr"`
	MaxOpenTrades int     `json:"max_open_trades" yaml:"max_open_trades" toml:"max_open_trades"`
	MaxMarginPct  float64 `json:"max_margin_pct" yaml:"max_margin_pct" toml:"max_margin_pct"`
}

func DefaultPolicy() Policy {
	return Policy{
		MaxRiskPct:    0.01,
		MinRR:         1.5,
		MaxOpenTrades: 5,
		MaxMarginPct:  0.5,
	}
}

type Plan struct {
	Units      float64
	Entry      float64
	Stop       float64
	TakeProfit float64 // 0 when unset
}

type AccountState struct {
	Equity     float64
	Margin     float64
	OpenTrades int
}

type Violation struct {
	Code string `json:"code"`
	Msg  string `json:"message"`
}

type Review struct {
	PlannedRisk    float64     `json:"plannedRisk"`
	PlannedRiskPct float64     `json:"plannedRiskPct"`
	PlannedRR      float64     `json:"plannedRR"`
	Violations     []Violation `json:"violations,omitempty"`
}

func (r *Review) add(code, msg string) {
	r.Violations = append(r.Violations, Violation{Code: code, Msg: msg})
}

func (r Review) OK() bool { return len(r.Violations) == 0 }

// Evaluate checks plan against p. Zero limits are not checked.
func Evaluate(p Policy, plan Plan, acct AccountState, quoteToAccount float64) Review {
	var r Review
	if quoteToAccount == 0 {
		quoteToAccount = 1
	}

	if plan.Stop > 0 {
		r.PlannedRisk = PlannedRisk(plan.Units, plan.Entry, plan.Stop, quoteToAccount)
		r.PlannedRiskPct = RiskPct(r.PlannedRisk, acct.Equity)
		if p.MaxRiskPct > 0 && r.PlannedRiskPct > p.MaxRiskPct {
			r.add("RISK_TOO_HIGH", fmt.Sprintf("planned risk %.2f%% exceeds max %.2f%%",
				100*r.PlannedRiskPct, 100*p.MaxRiskPct))
		}
	} else {
		r.add("NO_STOP", "no stop loss set")
	}

	if plan.Stop > 0 && plan.TakeProfit > 0 {
		r.PlannedRR = RR(plan.Entry, plan.Stop, plan.TakeProfit)
		if p.MinRR > 0 && r.PlannedRR < p.MinRR {
			r.add("RR_TOO_LOW", fmt.Sprintf("RR %.2f below minimum %.2f", r.PlannedRR, p.MinRR))
		}
	}

	if p.MaxOpenTrades > 0 && acct.OpenTrades >= p.MaxOpenTrades {
		r.add("TOO_MANY_OPEN_TRADES", fmt.Sprintf("open trades %d >= max %d",
			acct.OpenTrades, p.MaxOpenTrades))
	}

	if p.MaxMarginPct > 0 && acct.Equity > 0 {
		used := (acct.Margin + plan.Units*plan.Entry) / acct.Equity
		if used > p.MaxMarginPct {
			r.add("MARGIN_TOO_HIGH", fmt.Sprintf("margin after open %.2f%% exceeds max %.2f%%",
				100*used, 100*p.MaxMarginPct))
		}
	}

	return r
}
