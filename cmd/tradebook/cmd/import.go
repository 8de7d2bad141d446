package cmd

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/acowan/tradebook/importer"
)

var importCmd = &cobra.Command{
	Use:   "import [file]",
	Short: "Import broker export files into the journal",
	Long: `Import broker exports into the journal.

With --balance (and optionally --orders), the balance history is reconciled
against the order log to recover entry prices and risk levels. With --mt5,
a MetaTrader 5 HTML report is imported directly. A single positional file
argument is sniffed and routed automatically.

Examples:
  tradebook import --balance balance.csv --orders orders.csv
  tradebook import --mt5 ReportHistory.html
  tradebook import export.csv`,
	Args: cobra.MaximumNArgs(1),
	RunE: runImport,
}

var (
	importBalance string
	importOrders  string
	importMT5     string
)

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVar(&importBalance, "balance", "", "balance history CSV export")
	importCmd.Flags().StringVar(&importOrders, "orders", "", "order log CSV export")
	importCmd.Flags().StringVar(&importMT5, "mt5", "", "MetaTrader 5 HTML report")
}

func runImport(cmd *cobra.Command, args []string) error {
	if importMT5 == "" && importBalance == "" && len(args) == 0 {
		return fmt.Errorf("nothing to import: pass --balance, --mt5 or a file argument")
	}
	if importOrders != "" && importBalance == "" {
		return fmt.Errorf("--orders requires --balance")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	s, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer s.Close()

	im := importer.New(s, log.Logger)

	var created int
	switch {
	case importMT5 != "":
		trades, err := im.ImportFile(importMT5, cfg.Journal.BaseCurrency)
		if err != nil {
			return importFailure(err)
		}
		created = len(trades)
	case importBalance != "":
		trades, err := im.ImportFiles(importBalance, importOrders)
		if err != nil {
			return importFailure(err)
		}
		created = len(trades)
	default:
		trades, err := im.ImportFile(args[0], cfg.Journal.BaseCurrency)
		if err != nil {
			return importFailure(err)
		}
		created = len(trades)
	}

	fmt.Printf("Imported %d trade(s) into %s\n", created, cfg.Journal.DBPath)
	return nil
}

func importFailure(err error) error {
	if errors.Is(err, importer.ErrNoTrades) {
		return fmt.Errorf("no trades found in the export; check that the file is a broker export")
	}
	return err
}
