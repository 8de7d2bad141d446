// Package importer turns broker export files into persisted trades. It wires
// the parsers and the reconciler to the trade store and owns the user-facing
// failure semantics: bad lines are dropped quietly, an import that yields
// nothing reports ErrNoTrades, and only the MT5 structural error is fatal.
package importer

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"

	"github.com/acowan/tradebook/brokerlog"
	"github.com/acowan/tradebook/reconcile"
	"github.com/acowan/tradebook/trade"
)

// ErrNoTrades reports an import that parsed cleanly but detected no trades.
// It is a user-facing condition, not a crash.
var ErrNoTrades = errors.New("no trades found")

// Format is the detected shape of an export file.
type Format int

const (
	FormatUnknown Format = iota
	FormatBalanceCSV
	FormatOrderCSV
	FormatMT5HTML
)

// DetectFormat sniffs an export file: HTML markup means an MT5 report, a
// Texte column means the order log, a balance column means balance history.
func DetectFormat(data []byte) Format {
	head := strings.ToLower(string(data[:min(len(data), 512)]))
	switch {
	case strings.Contains(head, "<html") || strings.Contains(head, "<!doctype html"):
		return FormatMT5HTML
	case strings.Contains(head, "heure,texte"):
		return FormatOrderCSV
	case strings.Contains(head, "balance") || strings.Contains(head, "pertes et profits"):
		return FormatBalanceCSV
	}
	return FormatUnknown
}

type Importer struct {
	store trade.Store
	log   zerolog.Logger
}

func New(store trade.Store, log zerolog.Logger) *Importer {
	return &Importer{
		store: store,
		log:   log.With().Str("component", "importer").Logger(),
	}
}

// ImportBalanceAndOrders reconciles a balance-history export against an
// order log and persists the resulting trades. orders may be nil for the
// single-file mode, which estimates entry times and carries no risk levels.
func (im *Importer) ImportBalanceAndOrders(balance, orders io.Reader) ([]trade.Trade, error) {
	balances, err := brokerlog.ParseBalanceHistory(balance)
	if err != nil {
		return nil, fmt.Errorf("read balance history: %w", err)
	}

	var trades []trade.Trade
	if orders != nil {
		orderEvents, err := brokerlog.ParseOrderLog(orders)
		if err != nil {
			return nil, fmt.Errorf("read order log: %w", err)
		}
		im.log.Debug().
			Int("balance_events", len(balances)).
			Int("order_events", len(orderEvents)).
			Msg("parsed export files")
		trades = reconcile.Reconcile(balances, orderEvents)
	} else {
		trades = reconcile.FromBalanceOnly(balances)
	}

	return im.persist(trades)
}

// ImportMT5 imports an MT5 HTML report; the report carries complete trades,
// so no reconciliation runs. A report without a Positions table fails.
func (im *Importer) ImportMT5(r io.Reader, accountCurrency string) ([]trade.Trade, error) {
	trades, err := brokerlog.ParseMT5Report(r, accountCurrency)
	if err != nil {
		return nil, err
	}
	return im.persist(trades)
}

// ImportFile sniffs a single export file and routes it. Order logs cannot be
// imported alone; pair them with a balance history via ImportFiles.
func (im *Importer) ImportFile(path, accountCurrency string) ([]trade.Trade, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", path, err)
	}

	switch DetectFormat(data) {
	case FormatMT5HTML:
		return im.ImportMT5(bytes.NewReader(data), accountCurrency)
	case FormatBalanceCSV:
		return im.ImportBalanceAndOrders(bytes.NewReader(data), nil)
	case FormatOrderCSV:
		return nil, fmt.Errorf("%s is an order log; import it together with a balance history", path)
	}
	return nil, fmt.Errorf("%s: unrecognized export format", path)
}

// ImportFiles imports a balance history together with its order log.
func (im *Importer) ImportFiles(balancePath, ordersPath string) ([]trade.Trade, error) {
	balance, err := os.Open(balancePath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", balancePath, err)
	}
	defer balance.Close()

	var orders io.Reader
	if ordersPath != "" {
		f, err := os.Open(ordersPath)
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", ordersPath, err)
		}
		defer f.Close()
		orders = f
	}

	return im.ImportBalanceAndOrders(balance, orders)
}

func (im *Importer) persist(trades []trade.Trade) ([]trade.Trade, error) {
	if len(trades) == 0 {
		return nil, ErrNoTrades
	}

	created, err := im.store.BulkCreate(trades)
	if err != nil {
		return nil, fmt.Errorf("persist trades: %w", err)
	}

	estimated := 0
	for _, t := range created {
		if t.Estimated {
			estimated++
		}
	}
	im.log.Info().
		Int("trades", len(created)).
		Int("estimated", estimated).
		Msg("import complete")

	return created, nil
}
