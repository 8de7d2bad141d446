package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/acowan/tradebook/importer"
	"github.com/acowan/tradebook/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the journal HTTP API",
	Long: `Run the HTTP API used by the dashboard.

The server exposes trades, statistics and imports under /api and refreshes
exchange rates on the configured schedule.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

var serveAddr string

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if serveAddr != "" {
		cfg.Server.Addr = serveAddr
	}

	s, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer s.Close()

	provider := newRateProvider(cfg)

	srv, err := server.New(server.Options{
		Store:           s,
		Importer:        importer.New(s, log.Logger),
		Rates:           provider,
		BaseCurrency:    cfg.Journal.BaseCurrency,
		Config:          cfg.Server,
		RefreshSchedule: cfg.Rates.RefreshSchedule,
		Log:             log.Logger,
	})
	if err != nil {
		return err
	}

	// Warm the rate table before accepting requests.
	warmCtx, cancel := context.WithTimeout(cmd.Context(), 30*time.Second)
	provider.Refresh(warmCtx)
	cancel()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-stop:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
