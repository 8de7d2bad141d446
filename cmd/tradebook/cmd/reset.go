package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Delete every trade in the journal",
	Long: `Delete every trade in the journal database.

This cannot be undone; pass --yes to confirm.`,
	Args: cobra.NoArgs,
	RunE: runReset,
}

var resetConfirmed bool

func init() {
	rootCmd.AddCommand(resetCmd)

	resetCmd.Flags().BoolVarP(&resetConfirmed, "yes", "y", false, "confirm deletion")
}

func runReset(cmd *cobra.Command, args []string) error {
	if !resetConfirmed {
		return fmt.Errorf("refusing to delete the journal without --yes")
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

	if _, err := s.DeleteAll(); err != nil {
		return fmt.Errorf("delete trades: %w", err)
	}

	fmt.Printf("Journal %s wiped\n", cfg.Journal.DBPath)
	return nil
}
