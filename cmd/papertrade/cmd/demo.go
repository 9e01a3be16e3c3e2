package cmd

import (
	"context"
	"fmt"
	"math/rand"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/feed"
	"github.com/rustyeddy/papertrade/journal"
	"github.com/rustyeddy/papertrade/ledger"
	"github.com/rustyeddy/papertrade/market"
	"github.com/rustyeddy/papertrade/risk"
	"github.com/rustyeddy/papertrade/session"
)

var demoCmd = &cobra.Command{
	Use:   "demo",
	Short: "Run a scripted paper trading session",
	Long: `Runs a short session against the simulated feed without a server.

Shows the basic workflow of:
  1. Opening long and short positions with stops and targets
  2. Ticking the feed and marking positions to market, then a price
     shock that crosses a stop
  3. Closing positions and reading the account, performance and risk
  4. Writing an Org report of the closed positions`,
	Args: cobra.NoArgs,
	RunE: runDemo,
}

var (
	demoTicks   int
	demoSeed    int64
	demoJournal bool
)

func init() {
	rootCmd.AddCommand(demoCmd)

	demoCmd.Flags().IntVar(&demoTicks, "ticks", 20, "feed ticks between opening and closing")
	demoCmd.Flags().Int64Var(&demoSeed, "seed", 1, "random seed for the feed")
	demoCmd.Flags().BoolVar(&demoJournal, "journal", false, "write demo-positions.csv and demo-equity.csv")
}

func runDemo(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	fmt.Println("=== Paper Trading Demo ===")
	fmt.Println()

	var j journal.Journal = journal.Nop{}
	if demoJournal {
		csv, err := journal.NewCSV("./demo-positions.csv", "./demo-equity.csv")
		if err != nil {
			return err
		}
		j = csv
	}

	sim := feed.New(market.DefaultInstruments, feed.WithRand(rand.New(rand.NewSource(demoSeed))))
	vols := risk.NewStatic(
		map[string]float64{"EURUSD": 8, "GBPUSD": 9, "BTCUSD": 60, "GOLD": 14},
		map[string]float64{"EURUSD": 0.8, "GBPUSD": 0.75, "BTCUSD": 0.2, "GOLD": -0.3},
	)
	cache := risk.NewInputCache(vols, vols, time.Second, nil)

	sess, err := session.New(session.Options{
		AccountID:       "DEMO-001",
		Currency:        "USD",
		StartingBalance: 100_000,
		Feed:            sim,
		Risk:            cache,
		Journal:         j,
	})
	if err != nil {
		j.Close()
		return err
	}
	defer sess.Shutdown()

	start := time.Now()
	plans := []ledger.OpenRequest{
		{Instrument: "EURUSD", Direction: ledger.Long, Quantity: 10_000, StopLoss: ptr(1.0745), TakeProfit: ptr(1.1045), Strategy: "breakout", Tags: []string{"fx"}},
		{Instrument: "BTCUSD", Direction: ledger.Short, Quantity: 0.5, StopLoss: ptr(45000), TakeProfit: ptr(40000), Strategy: "fade", Tags: []string{"crypto"}},
		{Instrument: "GOLD", Direction: ledger.Long, Quantity: 5, Strategy: "hedge"},
	}

	var opened []ledger.Position
	for _, req := range plans {
		p, err := sess.OpenAtMarket(ctx, req)
		if err != nil {
			return fmt.Errorf("open %s: %w", req.Instrument, err)
		}
		opened = append(opened, p)
		fmt.Printf("Opened %-6s %-5s %10g @ %.5f  (RR %.2f)\n", p.Instrument, p.Direction, p.Quantity, p.EntryPrice, p.RiskReward)
	}
	cache.Refresh(ctx, sess.Instruments())
	fmt.Println()

	fmt.Printf("Ticking the feed %d times...\n", demoTicks)
	for i := 0; i < demoTicks; i++ {
		res := sess.Tick(ctx)
		for _, tr := range res.Triggers {
			fmt.Printf("  tick %d: %s %s crossed at %.5f\n", i+1, tr.Instrument, tr.Kind, tr.Price)
		}
	}
	fmt.Println()

	fmt.Println("Price shock: EURUSD gaps to 1.0650")
	sim.Set("EURUSD", 1.0650)
	for _, tr := range sess.Tick(ctx).Triggers {
		fmt.Printf("  %s %s crossed at %.5f (position stays open)\n", tr.Instrument, tr.Kind, tr.Price)
	}
	fmt.Println()

	printView(sess.View())

	for _, p := range opened[:2] {
		c, err := sess.Close(ctx, p.ID)
		if err != nil {
			return fmt.Errorf("close %s: %w", p.ID, err)
		}
		fmt.Printf("Closed %-6s at %.5f  P&L $%.2f (%.2f%%)\n", c.Instrument, *c.ExitPrice, c.PnL, c.PnLPercent)
	}
	fmt.Println()

	printView(sess.View())

	end := time.Now()
	var recs []journal.PositionRecord
	for _, p := range sess.ClosedBetween(start, end) {
		recs = append(recs, journal.FromPosition(p, "manual"))
	}
	report := journal.NewReport("Demo Session", start, end, 100_000, recs)
	if err := report.WriteOrg(os.Stdout); err != nil {
		return err
	}

	if demoJournal {
		fmt.Printf("\n✓ Check demo-positions.csv and demo-equity.csv for detailed records.\n")
	}
	return nil
}

func printView(v session.View) {
	a := v.Account
	fmt.Println("Account:")
	fmt.Printf("  Balance: $%.2f  Equity: $%.2f\n", a.Balance, a.Equity)
	fmt.Printf("  Realized: $%.2f  Unrealized: $%.2f\n", a.RealizedPnL, a.UnrealizedPnL)
	fmt.Printf("  Margin: $%.2f  Free: $%.2f  Level: %.1f%%\n", a.Margin, a.FreeMargin, a.MarginLevel)
	fmt.Printf("  Open: %d  Closed: %d\n", a.OpenTrades, a.ClosedTrades)

	p := v.Performance
	fmt.Println("Performance:")
	fmt.Printf("  Trades: %d  Win rate: %.1f%%  Profit factor: %.2f\n", p.TotalTrades, p.WinRate, p.ProfitFactor)
	fmt.Printf("  Max drawdown: %.2f%%  Sharpe: %.2f\n", p.MaxDrawdown, p.SharpeRatio)

	r := v.Risk
	fmt.Println("Risk:")
	fmt.Printf("  Current: %.1f (%s)  Heat: %.1f  Diversification: %.1f\n",
		r.CurrentRisk, r.RiskLevel, r.PortfolioHeat, r.DiversificationScore)
	fmt.Println()
}

func ptr(f float64) *float64 { return &f }
