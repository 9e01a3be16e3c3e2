package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/risk"
)

var sizeCmd = &cobra.Command{
	Use:   "size",
	Short: "Size a position from account risk and review the plan",
	Long: `Calculate the units that risk a fixed share of equity if the stop is
hit, then check the plan against the risk policy. The review is advisory:
nothing is opened.

Example:
  papertrade size -i EURUSD --entry 1.0850 --stop 1.0830 --tp 1.0890`,
	Args: cobra.NoArgs,
	RunE: runSize,
}

var (
	sizeInstrument  string
	sizeCurrency    string
	sizeEquity      float64
	sizeRiskPct     float64
	sizeEntry       float64
	sizeStop        float64
	sizeTakeProfit  float64
	sizeQuote       float64
	sizeOpenTrades  int
	sizeMarginInUse float64
)

func init() {
	rootCmd.AddCommand(sizeCmd)

	f := sizeCmd.Flags()
	f.StringVarP(&sizeInstrument, "instrument", "i", "EURUSD", "instrument symbol")
	f.StringVar(&sizeCurrency, "currency", "USD", "account currency")
	f.Float64Var(&sizeEquity, "equity", 100000, "account equity")
	f.Float64Var(&sizeRiskPct, "risk", 0.01, "fraction of equity to risk")
	f.Float64Var(&sizeEntry, "entry", 0, "entry price (required)")
	f.Float64Var(&sizeStop, "stop", 0, "stop loss price (required)")
	f.Float64Var(&sizeTakeProfit, "tp", 0, "take profit price")
	f.Float64Var(&sizeQuote, "quote-to-account", 0, "quote to account conversion (default: derived from the symbol)")
	f.IntVar(&sizeOpenTrades, "open-trades", 0, "positions already open")
	f.Float64Var(&sizeMarginInUse, "margin", 0, "margin already in use")
	sizeCmd.MarkFlagRequired("entry")
	sizeCmd.MarkFlagRequired("stop")
}

func runSize(cmd *cobra.Command, args []string) error {
	if sizeEntry <= 0 || sizeStop <= 0 {
		return fmt.Errorf("entry and stop must be positive")
	}

	q := sizeQuote
	if q == 0 {
		prices := market.NewPriceStore()
		prices.Set(market.Tick{Instrument: sizeInstrument, Price: sizeEntry, Time: time.Now()})

		var err error
		if q, err = market.QuoteToAccountRate(cmd.Context(), sizeInstrument, sizeCurrency, prices); err != nil {
			q = 1
			fmt.Printf("note: %v, assuming 1.0\n\n", err)
		}
	}

	loc := risk.PipLocation(sizeEntry)
	size := risk.Size(risk.SizeRequest{
		Equity:         sizeEquity,
		RiskPct:        sizeRiskPct,
		EntryPrice:     sizeEntry,
		StopPrice:      sizeStop,
		PipLocation:    loc,
		QuoteToAccount: q,
	})

	fmt.Printf("Position Sizing: %s\n", sizeInstrument)
	fmt.Printf("  Equity: $%.2f\n", sizeEquity)
	fmt.Printf("  Risk Amount: $%.2f (%.2f%% of equity)\n", size.RiskAmount, sizeRiskPct*100)
	fmt.Printf("  Stop Distance: %.1f pips (pip size %g)\n", size.StopPips, risk.PipSize(loc))
	fmt.Printf("  Position Size: %.0f units\n", size.Units)
	fmt.Println()

	review := risk.Evaluate(risk.DefaultPolicy(),
		risk.Plan{Units: size.Units, Entry: sizeEntry, Stop: sizeStop, TakeProfit: sizeTakeProfit},
		risk.AccountState{Equity: sizeEquity, Margin: sizeMarginInUse, OpenTrades: sizeOpenTrades},
		q,
	)

	fmt.Println("Plan Review:")
	fmt.Printf("  Planned Risk: $%.2f (%.2f%%)\n", review.PlannedRisk, review.PlannedRiskPct*100)
	if review.PlannedRR > 0 {
		fmt.Printf("  Reward/Risk: %.2f\n", review.PlannedRR)
	}
	if review.OK() {
		fmt.Println("  ✓ Within policy")
		return nil
	}
	for _, v := range review.Violations {
		fmt.Printf("  ✗ %s: %s\n", v.Code, v.Msg)
	}
	return nil
}
