package journal

import (
	"io"
	"strconv"
	"text/template"
	"time"

	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/performance"
)

// Report summarizes the positions closed in a window as an Org document.
type Report struct {
	Title        string
	Created      time.Time
	Start        time.Time
	End          time.Time
	StartBalance float64
	EndBalance   float64
	ReturnPct    float64
	Metrics      performance.Metrics
	Positions    []PositionRecord
	Notes        []string
}

// NewReport computes performance metrics over recs starting from balance.
func NewReport(title string, start, end time.Time, balance float64, recs []PositionRecord) Report {
	ps := make([]ledger.Position, 0, len(recs))
	for _, r := range recs {
		ps = append(ps, r.Position())
	}
	m := performance.Compute(balance, ps)

	r := Report{
		Title:        title,
		Start:        start,
		End:          end,
		StartBalance: balance,
		EndBalance:   balance + m.TotalPnL,
		Metrics:      m,
		Positions:    recs,
	}
	if balance > 0 {
		r.ReturnPct = m.TotalPnL / balance * 100
	}
	return r
}

var reportFuncs = template.FuncMap{
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
	"pf": func(x float64) string {
		if x >= performance.MaxProfitFactor {
			return "no losses"
		}
		return fmtFloat(x)
	},
}

var reportTmpl = template.Must(template.New("report").Funcs(reportFuncs).Parse(ReportTemplate))

func (r Report) WriteOrg(w io.Writer) error {
	return reportTmpl.Execute(w, r)
}

const ReportTemplate = `* REPORT: {{if .Title}}{{.Title}}{{else}}papertrade session{{end}}
:PROPERTIES:
:START_DATE:  {{.Start.Format "2006-01-02"}}
:END_DATE:    {{.End.Format "2006-01-02"}}
:START_BAL:   {{printf "%.2f" .StartBalance}}
:END_BAL:     {{printf "%.2f" .EndBalance}}
:NET_PL:      {{printf "%.2f" .Metrics.TotalPnL}}
:RETURN_PCT:  {{printf "%.2f" .ReturnPct}}
:MAX_DD_PCT:  {{printf "%.2f" .Metrics.MaxDrawdown}}
:TRADES:      {{.Metrics.TotalTrades}}
:WINS:        {{.Metrics.WinningTrades}}
:LOSSES:      {{.Metrics.LosingTrades}}
:WIN_RATE:    {{printf "%.2f" .Metrics.WinRate}}
:PROFIT_FAC:  {{pf .Metrics.ProfitFactor}}
:CREATED:     [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:

** Performance Summary
- Net P/L:          *{{printf "%.2f" .Metrics.TotalPnL}}*
- Return:           *{{printf "%.2f" .ReturnPct}}%*
- Max Drawdown:     *{{printf "%.2f" .Metrics.MaxDrawdown}}%*
- Win Rate:         *{{printf "%.2f" .Metrics.WinRate}}%*
- Profit Factor:    *{{pf .Metrics.ProfitFactor}}*
- Sharpe:           *{{printf "%.2f" .Metrics.SharpeRatio}}*

** Trade Distribution
| Outcome | Count |
|---------+-------|
| Wins    | {{.Metrics.WinningTrades}} |
| Losses  | {{.Metrics.LosingTrades}} |
| Total   | {{.Metrics.TotalTrades}} |

{{- if .Positions }}

** Positions
| ID | Instrument | Dir | Qty | Entry | Exit | P/L |
|----+------------+-----+-----+-------+------+-----|
{{- range .Positions }}
| {{.PositionID}} | {{.Instrument}} | {{.Direction}} | {{.Quantity}} | {{printf "%.5f" .EntryPrice}} | {{printf "%.5f" .ExitPrice}} | {{printf "%.2f" .RealizedPL}} |
{{- end }}
{{- end }}

{{- if .Notes }}

** Observations
{{- range .Notes }}
- {{.}}
{{- end }}
{{- end }}
`

func fmtFloat(x float64) string {
	return strconv.FormatFloat(x, 'f', 2, 64)
}
