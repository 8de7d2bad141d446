package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/acowan/tradebook/currency"
	"github.com/acowan/tradebook/journal"
	"github.com/acowan/tradebook/stats"
)

var journalCmd = &cobra.Command{
	Use:   "journal",
	Short: "Render journal entries as Org-mode text",
	Long: `Render trades as Org-mode blocks for a plain-text trading journal.

Subcommands:
  trade  - Render a specific trade by ID
  today  - Render trades closed today
  day    - Render trades closed on a specific day

Examples:
  tradebook journal trade <trade-id>
  tradebook journal today
  tradebook journal day 2026-02-11`,
}

var journalTradeCmd = &cobra.Command{
	Use:   "trade <trade-id>",
	Short: "Render a specific trade",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalTrade,
}

var journalTodayCmd = &cobra.Command{
	Use:   "today",
	Short: "Render trades closed today",
	Args:  cobra.NoArgs,
	RunE:  runJournalToday,
}

var journalDayCmd = &cobra.Command{
	Use:   "day <YYYY-MM-DD>",
	Short: "Render trades closed on a specific day",
	Args:  cobra.ExactArgs(1),
	RunE:  runJournalDay,
}

func init() {
	rootCmd.AddCommand(journalCmd)
	journalCmd.AddCommand(journalTradeCmd)
	journalCmd.AddCommand(journalTodayCmd)
	journalCmd.AddCommand(journalDayCmd)
}

func runJournalTrade(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer s.Close()

	t, err := s.Get(args[0])
	if err != nil {
		return err
	}

	fmt.Println(journal.FormatTradeOrg(*t))
	return nil
}

func runJournalToday(cmd *cobra.Command, args []string) error {
	return renderDay(time.Now().In(time.Local).Format("2006-01-02"))
}

func runJournalDay(cmd *cobra.Command, args []string) error {
	return renderDay(args[0])
}

func renderDay(day string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer s.Close()

	start, end, err := dayBounds(time.Local, day)
	if err != nil {
		return fmt.Errorf("date: %w", err)
	}

	trades, err := s.FetchClosedBetween(start, end)
	if err != nil {
		return fmt.Errorf("query trades: %w", err)
	}
	if len(trades) == 0 {
		fmt.Printf("* %s\nNo trades closed.\n", day)
		return nil
	}

	conv := currency.NewConverter(currency.Fallback())
	daily := stats.ComputeDaily(trades, cfg.Journal.BaseCurrency, conv)
	fmt.Println(journal.FormatDayOrg(daily[0], trades))
	return nil
}

func dayBounds(loc *time.Location, day string) (time.Time, time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", day, loc)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	start := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
	end := start.Add(24 * time.Hour)
	return start, end, nil
}
