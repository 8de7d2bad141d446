// Package brokerlog parses raw broker export text into typed event lists.
//
// Export logs are noisy: most lines carry no trade data at all. Every parser
// here skips lines it cannot read instead of failing the import; the single
// structural error is an MT5 report without a Positions table.
package brokerlog

import (
	"time"

	"github.com/acowan/tradebook/trade"
)

// BalanceEvent is one line of the balance-history export. The derived trade
// fields are only meaningful when HasTradeInfo is set, which requires the
// action text to be a close-position sentence.
type BalanceEvent struct {
	Time          time.Time
	BalanceBefore float64
	BalanceAfter  float64
	PnL           float64
	Currency      string
	Action        string

	HasTradeInfo bool
	Direction    trade.Direction
	Exchange     string
	Symbol       string
	ExitPrice    float64
	Units        float64
	EntryPrice   float64
}

// FullSymbol returns the EXCHANGE:SYMBOL form used to key reconciliation.
func (e BalanceEvent) FullSymbol() string {
	return e.Exchange + ":" + e.Symbol
}

// OrderEvent is one line of the order-log export. Several independent
// patterns are matched against the free text and each fills its own fields,
// so a single event can be, say, both an order-id mention and an execution
// confirmation. Unmatched fields stay zero; that is expected, not an error.
type OrderEvent struct {
	Time time.Time
	Text string

	OrderID string
	Symbol  string // EXCHANGE:SYMBOL when the text names one
	Action  string // "buy" or "sell" when an order call matched

	Price      *float64 // execution or limit price
	Units      *float64
	StopLoss   *float64
	TakeProfit *float64

	IsEntry  bool // market order carrying SL/TP, i.e. opens a position
	IsMarket bool // any market-order call
	IsLimit  bool
	IsModify bool
	Executed bool
}

// Direction maps the buy/sell action to a trade direction.
func (e OrderEvent) Direction() trade.Direction {
	if e.Action == "sell" {
		return trade.Short
	}
	return trade.Long
}
