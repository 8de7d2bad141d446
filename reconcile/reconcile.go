// Package reconcile pairs closed-position balance events with the order
// events that opened and risk-managed them, producing complete trades. The
// balance history never records stop-loss or take-profit; those only exist in
// the order log, so the two streams have to be matched up by symbol, price
// and time.
package reconcile

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/acowan/tradebook/brokerlog"
	"github.com/acowan/tradebook/trade"
)

const (
	// Relative tolerance when comparing a position's entry price with the
	// average price the broker reports for the closed position.
	priceTolerance = 0.001

	// Window around an entry call in which its execution confirmation is
	// expected to appear.
	executeWindow = 5 * time.Second

	// Window after a matched execute event scanned for SL/TP orders in the
	// secondary heuristic.
	riskScanWindow = 10 * time.Second

	// Entry-time estimate when no order data matches at all. A documented
	// approximation; trades built this way are marked Estimated.
	estimatedHold = 2 * time.Hour
)

// riskPoint is one entry in a position's append-only SL/TP history.
type riskPoint struct {
	at         time.Time
	stopLoss   float64
	takeProfit float64
}

// position is the ephemeral reconciliation state for one open position
// candidate. It is consumed by at most one balance event.
type position struct {
	symbol     string
	entryTime  time.Time
	entryPrice float64
	units      float64
	direction  trade.Direction
	stopLoss   float64
	takeProfit float64
	history    []riskPoint
}

// Reconcile merges a balance-history stream with an order-log stream into
// closed trades, most recent exit first. Both inputs are sorted by time
// before processing, so line order in the source files does not matter.
// Balance events without trade fields are dropped. Every balance event that
// does carry trade fields yields exactly one trade, falling back to estimates
// when nothing in the order log matches.
func Reconcile(balances []brokerlog.BalanceEvent, orders []brokerlog.OrderEvent) []trade.Trade {
	orders = sortedOrders(orders)
	arena := buildPositions(orders)

	sorted := make([]brokerlog.BalanceEvent, len(balances))
	copy(sorted, balances)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time.Before(sorted[j].Time) })

	var trades []trade.Trade
	for _, ev := range sorted {
		if !ev.HasTradeInfo {
			continue
		}
		trades = append(trades, matchBalanceEvent(ev, arena, orders))
	}

	sortExitDesc(trades)
	return trades
}

// FromBalanceOnly is the single-file mode: no order log, so every trade gets
// estimated entry time and no risk levels.
func FromBalanceOnly(balances []brokerlog.BalanceEvent) []trade.Trade {
	var trades []trade.Trade
	for _, ev := range balances {
		if !ev.HasTradeInfo {
			continue
		}
		t := buildTrade(ev, ev.Time.Add(-estimatedHold), nil, nil)
		t.Estimated = true
		trades = append(trades, t)
	}
	sortExitDesc(trades)
	return trades
}

func sortedOrders(orders []brokerlog.OrderEvent) []brokerlog.OrderEvent {
	out := make([]brokerlog.OrderEvent, len(orders))
	copy(out, orders)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Time.Before(out[j].Time) })
	return out
}

// buildPositions scans the sorted order stream once, opening a position
// candidate per entry call and replaying SL/TP modifications onto the most
// recently opened position for the symbol.
func buildPositions(orders []brokerlog.OrderEvent) map[string][]*position {
	arena := make(map[string][]*position)

	for _, ev := range orders {
		switch {
		case ev.IsEntry && ev.StopLoss != nil && ev.TakeProfit != nil && ev.Units != nil:
			p := &position{
				symbol:     ev.Symbol,
				entryTime:  ev.Time,
				entryPrice: findExecutePrice(orders, ev),
				units:      *ev.Units,
				direction:  ev.Direction(),
				stopLoss:   *ev.StopLoss,
				takeProfit: *ev.TakeProfit,
			}
			p.history = append(p.history, riskPoint{ev.Time, p.stopLoss, p.takeProfit})
			arena[ev.Symbol] = append(arena[ev.Symbol], p)

		case ev.IsModify && ev.StopLoss != nil && ev.TakeProfit != nil:
			ps := arena[ev.Symbol]
			if len(ps) == 0 {
				continue
			}
			// Modifications are assumed to apply to the newest open position.
			p := ps[len(ps)-1]
			p.stopLoss = *ev.StopLoss
			p.takeProfit = *ev.TakeProfit
			p.history = append(p.history, riskPoint{ev.Time, *ev.StopLoss, *ev.TakeProfit})
		}
	}

	return arena
}

// findExecutePrice locates the execution confirmation belonging to an entry
// call: same symbol, matching units, within a few seconds either side of the
// call. Falls back to 0 when the log has no confirmation.
func findExecutePrice(orders []brokerlog.OrderEvent, entry brokerlog.OrderEvent) float64 {
	for _, o := range orders {
		if !o.Executed || o.Price == nil || o.Units == nil || o.Symbol != entry.Symbol {
			continue
		}
		if math.Abs(*o.Units-*entry.Units) > 1 {
			continue
		}
		if absDuration(o.Time.Sub(entry.Time)) <= executeWindow {
			return *o.Price
		}
	}
	return 0
}

// matchBalanceEvent resolves one closed-position event against the arena,
// falling through the secondary execute heuristic to the 2-hour estimate.
func matchBalanceEvent(ev brokerlog.BalanceEvent, arena map[string][]*position, orders []brokerlog.OrderEvent) trade.Trade {
	full := ev.FullSymbol()

	if p, idx := findCandidate(arena[full], ev); p != nil {
		sl, tp := p.riskAt(ev.Time)
		// A position candidate is consumed by at most one balance event.
		arena[full] = append(arena[full][:idx], arena[full][idx+1:]...)
		return buildTrade(ev, p.entryTime, &sl, &tp)
	}

	if entryTime, sl, tp, ok := executeHeuristic(ev, full, orders); ok {
		return buildTrade(ev, entryTime, sl, tp)
	}

	t := buildTrade(ev, ev.Time.Add(-estimatedHold), nil, nil)
	t.Estimated = true
	return t
}

// findCandidate picks the first position matching direction, time and entry
// price; when no price match exists, a matching unit count (tolerance 1) is
// accepted instead. Scan order is insertion order.
func findCandidate(candidates []*position, ev brokerlog.BalanceEvent) (*position, int) {
	for i, p := range candidates {
		if p.direction != ev.Direction || !p.entryTime.Before(ev.Time) {
			continue
		}
		if withinTolerance(p.entryPrice, ev.EntryPrice) {
			return p, i
		}
	}
	for i, p := range candidates {
		if p.direction != ev.Direction || !p.entryTime.Before(ev.Time) {
			continue
		}
		if math.Abs(p.units-ev.Units) <= 1 {
			return p, i
		}
	}
	return nil, -1
}

// riskAt returns the last SL/TP pair set at or before the cutoff, falling
// back to the position's current values when the history has no entry yet.
func (p *position) riskAt(cutoff time.Time) (sl, tp float64) {
	sl, tp = p.stopLoss, p.takeProfit
	for i := len(p.history) - 1; i >= 0; i-- {
		if !p.history[i].at.After(cutoff) {
			return p.history[i].stopLoss, p.history[i].takeProfit
		}
	}
	return sl, tp
}

// executeHeuristic recovers entry data when no position candidate matched:
// an execute order at the reported entry price gives the entry time, nearby
// orders give the initial SL/TP, and later modifications override it.
func executeHeuristic(ev brokerlog.BalanceEvent, full string, orders []brokerlog.OrderEvent) (time.Time, *float64, *float64, bool) {
	var entry *brokerlog.OrderEvent
	for i := range orders {
		o := &orders[i]
		if !o.Executed || o.Price == nil || o.Symbol != full || !o.Time.Before(ev.Time) {
			continue
		}
		if withinTolerance(*o.Price, ev.EntryPrice) {
			entry = o
			break
		}
	}
	if entry == nil {
		return time.Time{}, nil, nil, false
	}

	var sl, tp *float64
	for _, o := range orders {
		if o.Symbol != full || o.StopLoss == nil || o.TakeProfit == nil {
			continue
		}
		if absDuration(o.Time.Sub(entry.Time)) <= riskScanWindow {
			sl, tp = o.StopLoss, o.TakeProfit
			break
		}
	}

	// Modifications between entry and exit win over the initial levels,
	// last one standing.
	for _, o := range orders {
		if !o.IsModify || o.Symbol != full || o.StopLoss == nil || o.TakeProfit == nil {
			continue
		}
		if o.Time.After(entry.Time) && !o.Time.After(ev.Time) {
			sl, tp = o.StopLoss, o.TakeProfit
		}
	}

	return entry.Time, sl, tp, true
}

func buildTrade(ev brokerlog.BalanceEvent, entryTime time.Time, sl, tp *float64) trade.Trade {
	t := trade.Trade{
		Symbol:     ev.Symbol,
		Direction:  ev.Direction,
		EntryPrice: ev.EntryPrice,
		ExitPrice:  trade.Ptr(ev.ExitPrice),
		Units:      ev.Units,
		EntryTime:  entryTime,
		ExitTime:   trade.Ptr(ev.Time),
		PnL:        trade.Ptr(ev.PnL),
		Status:     trade.Closed,
		Currency:   ev.Currency,
		Notes:      fmt.Sprintf("Balance %.2f -> %.2f", ev.BalanceBefore, ev.BalanceAfter),
		Tags:       trade.DeriveTags(ev.Exchange, ev.Symbol, ev.PnL),
	}
	if sl != nil {
		t.StopLoss = trade.Ptr(*sl)
	}
	if tp != nil {
		t.TakeProfit = trade.Ptr(*tp)
	}
	if ev.EntryPrice != 0 && ev.Units != 0 {
		t.PnLPercent = trade.Ptr(ev.PnL / (ev.EntryPrice * ev.Units) * 100)
	}
	return t
}

func withinTolerance(price, reported float64) bool {
	if reported == 0 {
		return price == 0
	}
	return math.Abs(price-reported)/math.Abs(reported) <= priceTolerance
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}

func sortExitDesc(trades []trade.Trade) {
	sort.SliceStable(trades, func(i, j int) bool {
		return trades[i].ExitTime.After(*trades[j].ExitTime)
	})
}
