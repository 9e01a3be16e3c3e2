package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/rustyeddy/papertrade/journal"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Query the position journal",
	Long: `Query and display position records from a SQLite journal.

Subcommands:
  position - Get details of a specific position by ID
  today    - List positions closed today
  day      - List positions closed on a specific day
  report   - Write an Org performance report for a date range
  equity   - Show equity snapshots recorded on a specific day

Examples:
  papertrade journal position <position-id>
  papertrade journal today
  papertrade journal day 2024-01-15
  papertrade journal report --from 2024-01-01 --to 2024-01-31
  papertrade journal equity 2024-01-15`,
}

var journalPositionCmd = &cobra.Command{
	Use:   "position <position-id>",
	Short: "Get details of a specific position",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalPosition,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "List positions closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "List positions closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

var journalReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Write an Org performance report",
	Args:  cobra.NoArgs,
	RunE:  runJournalReport,
}

var journalEquityCmd = &cobra.Command{
	Use:   "equity <YYYY-MM-DD>",
	Short: "Show equity snapshots recorded on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalEquity,
}

var (
	journalDBPath string

	reportFrom    string
	reportTo      string
	reportBalance float64
	reportTitle   string
)

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalPositionCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
	journalCmd.AddCommand(journalReportCmd)
	journalCmd.AddCommand(journalEquityCmd)

	journalCmd.PersistentFlags().StringVarP(&journalDBPath, "db", "d", "./papertrade.sqlite", "path to SQLite journal DB")

	journalReportCmd.Flags().StringVar(&reportFrom, "from", "", "first day, YYYY-MM-DD (required)")
	journalReportCmd.Flags().StringVar(&reportTo, "to", "", "last day, YYYY-MM-DD (default: --from)")
	journalReportCmd.Flags().Float64Var(&reportBalance, "balance", 100000, "starting balance for the period")
	journalReportCmd.Flags().StringVar(&reportTitle, "title", "Papertrade Report", "report title")
	journalReportCmd.MarkFlagRequired("from")
}

func runJournalPosition(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	rec, err := j.GetPosition(args[0])
	if err != nil {
		return fmt.Errorf("get position: %w", err)
	}

	fmt.Println(journal.FormatPositionOrg(rec))
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return printClosedOn(time.Now().In(time.Local).Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return printClosedOn(args[0])
}

func printClosedOn(day string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	recs, err := j.ListPositionsClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query positions: %w", err)
	}

	fmt.Println(journal.FormatPositionsOrg(recs))
	return nil
}

func runJournalReport(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	start, _, err := dayBounds(time.Local, reportFrom)
	if err != nil {
		return fmt.Errorf("from: %w", err)
	}
	to := reportTo
	if to == "" {
		to = reportFrom
	}
	_, end, err := dayBounds(time.Local, to)
	if err != nil {
		return fmt.Errorf("to: %w", err)
	}
	if !end.After(start) {
		return fmt.Errorf("--to must not be before --from")
	}

	recs, err := j.ListPositionsClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query positions: %w", err)
	}

	return journal.NewReport(reportTitle, start, end, reportBalance, recs).WriteOrg(os.Stdout)
}

func runJournalEquity(cmd *cobra.Command, args []string) error {
	j, err := journal.NewSQLite(journalDBPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer j.Close()

	start, end, err := dayBounds(time.Local, args[0])
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	snaps, err := j.ListEquityBetween(start, end)
	if err != nil {
		return fmt.Errorf("query equity: %w", err)
	}

	fmt.Print(journal.FormatEquityOrg(snaps))
	return nil
}

// dayBounds returns [start, end) of day in loc.
func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)
	return start, end, nil
}
