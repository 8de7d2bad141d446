package cmd

import (
	"os"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/acowan/tradebook/config"
	"github.com/acowan/tradebook/currency"
	"github.com/acowan/tradebook/store"
)

var rootCmd = &cobra.Command{
	Use:   "tradebook",
	Short: "A personal trading journal with broker log reconciliation",
	Long: `Tradebook rebuilds your trading history from broker exports and keeps it
in a local journal.

It provides tools for:
  - Importing balance-history and order-log CSV exports
  - Importing MetaTrader 5 HTML reports
  - Reconciling balance events against order activity to recover risk levels
  - Performance statistics in any display currency
  - Org-mode journal output for plain-text note taking
  - An HTTP API for the dashboard`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

var (
	cfgPath      string
	dbPath       string
	baseCurrency string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (YAML or JSON)")
	rootCmd.PersistentFlags().StringVarP(&dbPath, "db", "d", "", "path to the journal database")
	rootCmd.PersistentFlags().StringVarP(&baseCurrency, "currency", "c", "", "base display currency")
}

// loadConfig resolves configuration in order of defaults, config file,
// environment, then flags.
func loadConfig() (*config.Config, error) {
	cfg := config.Default()

	path := cfgPath
	if path == "" {
		path = os.Getenv("TRADEBOOK_CONFIG")
	}
	if path != "" {
		loaded, err := config.LoadFromFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if v := os.Getenv("TRADEBOOK_DB"); v != "" {
		cfg.Journal.DBPath = v
	}
	if v := os.Getenv("TRADEBOOK_CURRENCY"); v != "" {
		cfg.Journal.BaseCurrency = strings.ToUpper(v)
	}
	if v := os.Getenv("TRADEBOOK_RATES_URL"); v != "" {
		cfg.Rates.SourceURL = v
	}

	if dbPath != "" {
		cfg.Journal.DBPath = dbPath
	}
	if baseCurrency != "" {
		cfg.Journal.BaseCurrency = strings.ToUpper(baseCurrency)
	}

	return cfg, nil
}

func openStore(cfg *config.Config) (*store.SQLite, error) {
	return store.NewSQLite(cfg.Journal.DBPath)
}

// newRateProvider builds the rate provider; a broken cache degrades to
// fallback rates rather than failing the command.
func newRateProvider(cfg *config.Config) *currency.Provider {
	var cache *currency.Cache
	if cfg.Rates.CachePath != "" {
		c, err := currency.OpenCache(cfg.Rates.CachePath)
		if err != nil {
			log.Warn().Err(err).Str("path", cfg.Rates.CachePath).Msg("rate cache unavailable")
		} else {
			cache = c
		}
	}
	return currency.NewProvider(cfg.Rates.SourceURL, cache, log.Logger)
}
