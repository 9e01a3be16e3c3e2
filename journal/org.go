package journal

import (
	"fmt"
	"strings"
	"time"
)

// FormatPositionOrg renders a closed position as an Org-mode block with the
// facts in a PROPERTIES drawer and empty Thesis/Execution/Review sections.
func FormatPositionOrg(r PositionRecord) string {
	heading := fmt.Sprintf("** Position: %s %s (%s)", r.Instrument, strings.ToUpper(r.Direction), shortID(r.PositionID))
	open := r.OpenTime.UTC().Format(time.RFC3339)
	closed := r.CloseTime.UTC().Format(time.RFC3339)

	var b strings.Builder
	b.WriteString(heading)
	b.WriteString("\n")
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":POSITION_ID: %s\n", r.PositionID))
	b.WriteString(fmt.Sprintf(":ID: %s\n", r.PositionID))
	b.WriteString(fmt.Sprintf(":INSTRUMENT: %s\n", r.Instrument))
	b.WriteString(fmt.Sprintf(":DIRECTION: %s\n", r.Direction))
	b.WriteString(fmt.Sprintf(":QUANTITY: %g\n", r.Quantity))
	b.WriteString(fmt.Sprintf(":ENTRY_PRICE: %.5f\n", r.EntryPrice))
	b.WriteString(fmt.Sprintf(":EXIT_PRICE: %.5f\n", r.ExitPrice))
	b.WriteString(fmt.Sprintf(":OPEN_TIME: %s\n", open))
	b.WriteString(fmt.Sprintf(":CLOSE_TIME: %s\n", closed))
	b.WriteString(fmt.Sprintf(":REALIZED_PL: %.2f\n", r.RealizedPL))
	b.WriteString(fmt.Sprintf(":PNL_PCT: %.3f\n", r.PnLPercent))
	if r.Strategy != "" {
		b.WriteString(fmt.Sprintf(":STRATEGY: %s\n", r.Strategy))
	}
	if len(r.Tags) > 0 {
		b.WriteString(fmt.Sprintf(":TAGS: %s\n", strings.Join(r.Tags, " ")))
	}
	b.WriteString(fmt.Sprintf(":REASON: %s\n", r.Reason))
	b.WriteString(":END:\n")
	b.WriteString("\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Execution\n- \n\n")
	b.WriteString("*** Review\n- \n")

	return b.String()
}

// FormatPositionsOrg renders multiple positions separated by blank lines.
func FormatPositionsOrg(rs []PositionRecord) string {
	var b strings.Builder
	for i, r := range rs {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatPositionOrg(r))
	}
	return b.String()
}

// FormatEquityOrg renders equity snapshots as an Org table, one row per
// snapshot in the given order.
func FormatEquityOrg(es []EquitySnapshot) string {
	var b strings.Builder
	b.WriteString("| Time | Event | Equity | Margin | Free Margin | Margin Level | Open | Closed |\n")
	b.WriteString("|------+-------+--------+--------+-------------+--------------+------+--------|\n")
	for _, e := range es {
		b.WriteString(fmt.Sprintf("| %s | %s | %.2f | %.2f | %.2f | %.1f%% | %d | %d |\n",
			e.Time.UTC().Format(time.RFC3339), e.Event,
			e.Equity, e.MarginUsed, e.FreeMargin, e.MarginLevel,
			e.OpenTrades, e.ClosedTrades))
	}
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
