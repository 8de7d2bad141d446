package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/acowan/tradebook/stats"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show performance statistics for the journal",
	Long: `Compute performance statistics over every trade in the journal.

P&L values are converted into the base display currency using cached
exchange rates; prices stay in their traded instrument.

Examples:
  tradebook stats
  tradebook stats --currency EUR
  tradebook stats --daily`,
	Args: cobra.NoArgs,
	RunE: runStats,
}

var (
	statsDaily bool
	statsJSON  bool
)

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().BoolVar(&statsDaily, "daily", false, "group by calendar day instead of the full aggregate")
	statsCmd.Flags().BoolVar(&statsJSON, "json", false, "emit JSON instead of text")
}

func runStats(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer s.Close()

	trades, err := s.FetchAll()
	if err != nil {
		return fmt.Errorf("load trades: %w", err)
	}

	provider := newRateProvider(cfg)
	ctx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	defer cancel()
	provider.Refresh(ctx)
	conv := provider.Converter()

	base := cfg.Journal.BaseCurrency

	if statsDaily {
		daily := stats.ComputeDaily(trades, base, conv)
		if statsJSON {
			return json.NewEncoder(os.Stdout).Encode(daily)
		}
		for _, d := range daily {
			fmt.Printf("%s  %10.2f %s  %3d trade(s)  win rate %5.1f%%\n",
				d.Date, d.PnL, base, d.Trades, d.WinRate)
		}
		return nil
	}

	result := stats.Compute(trades, base, conv)
	if statsJSON {
		return json.NewEncoder(os.Stdout).Encode(result)
	}
	printStats(result, base)
	return nil
}

func printStats(st stats.TradeStats, base string) {
	fmt.Printf("Trades:            %d total, %d closed (%d winners, %d losers)\n",
		st.TotalTrades, st.ClosedTrades, st.WinningTrades, st.LosingTrades)
	fmt.Printf("Total P&L:         %.2f %s\n", st.TotalPnL, base)
	fmt.Printf("Win rate:          %.1f%%\n", st.WinRate)
	if math.IsInf(st.ProfitFactor, 1) {
		fmt.Printf("Profit factor:     inf (no losing trades)\n")
	} else {
		fmt.Printf("Profit factor:     %.2f\n", st.ProfitFactor)
	}
	fmt.Printf("Average win/loss:  %.2f / %.2f\n", st.AverageWin, st.AverageLoss)
	fmt.Printf("Largest win/loss:  %.2f / %.2f\n", st.LargestWin, st.LargestLoss)
	fmt.Printf("Average RRR:       %.2f\n", st.AverageRRR)
	fmt.Printf("Expectancy:        %.2f %s\n", st.Expectancy, base)
	fmt.Printf("Longest streaks:   %d wins, %d losses\n", st.ConsecutiveWins, st.ConsecutiveLosses)
	fmt.Printf("Average holding:   %.1f hours\n", st.AverageHoldingHours)
	fmt.Printf("Sharpe / Sortino:  %.2f / %.2f\n", st.SharpeRatio, st.SortinoRatio)
	fmt.Printf("SQN:               %.2f\n", st.SQN)
	fmt.Printf("Max drawdown:      %.2f %s (%.1f%%)\n", st.MaxDrawdown, base, st.MaxDrawdownPercent)
}
