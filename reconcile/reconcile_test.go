package reconcile

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acowan/tradebook/brokerlog"
	"github.com/acowan/tradebook/trade"
)

const balanceLine = `2026-02-11 13:31:49,133009.73,137127.38,4117.65,USD,"Close short position for symbol OANDA:EURUSD at price 1.19018 for 2941176 units. Position AVG Price was 1.191580, currency: USD, rate: 1.000000, point value: 1.000000"`

func parseBalances(t *testing.T, lines ...string) []brokerlog.BalanceEvent {
	t.Helper()
	events, err := brokerlog.ParseBalanceHistory(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	return events
}

func parseOrders(t *testing.T, lines ...string) []brokerlog.OrderEvent {
	t.Helper()
	events, err := brokerlog.ParseOrderLog(strings.NewReader(strings.Join(lines, "\n")))
	require.NoError(t, err)
	return events
}

func TestReconcileNoOrderLog(t *testing.T) {
	t.Parallel()

	trades := Reconcile(parseBalances(t, balanceLine), nil)
	require.Len(t, trades, 1)

	tr := trades[0]
	assert.Equal(t, "EURUSD", tr.Symbol)
	assert.Equal(t, trade.Short, tr.Direction)
	assert.Equal(t, trade.Closed, tr.Status)
	assert.InDelta(t, 2941176, tr.Units, 1e-9)
	assert.InDelta(t, 1.19158, tr.EntryPrice, 1e-9)
	require.NotNil(t, tr.ExitPrice)
	assert.InDelta(t, 1.19018, *tr.ExitPrice, 1e-9)
	require.NotNil(t, tr.PnL)
	assert.InDelta(t, 4117.65, *tr.PnL, 1e-9)

	assert.Nil(t, tr.StopLoss)
	assert.Nil(t, tr.TakeProfit)

	exit := time.Date(2026, 2, 11, 13, 31, 49, 0, time.UTC)
	require.NotNil(t, tr.ExitTime)
	assert.True(t, tr.ExitTime.Equal(exit))
	assert.True(t, tr.EntryTime.Equal(exit.Add(-2*time.Hour)))
	assert.True(t, tr.Estimated)
	assert.Equal(t, "Balance 133009.73 -> 137127.38", tr.Notes)
}

func TestReconcileRecoversRiskLevels(t *testing.T) {
	t.Parallel()

	orders := parseOrders(t,
		`2026-02-11 13:20:00,Call to place market order to sell 2941176 units of symbol OANDA:EURUSD with SL 1.19278 and TP 1.18972`,
	)
	trades := Reconcile(parseBalances(t, balanceLine), orders)
	require.Len(t, trades, 1)

	tr := trades[0]
	require.NotNil(t, tr.StopLoss)
	assert.InDelta(t, 1.19278, *tr.StopLoss, 1e-9)
	require.NotNil(t, tr.TakeProfit)
	assert.InDelta(t, 1.18972, *tr.TakeProfit, 1e-9)
	assert.False(t, tr.Estimated)
	assert.True(t, tr.EntryTime.Equal(time.Date(2026, 2, 11, 13, 20, 0, 0, time.UTC)))
}

func TestReconcileEntryPriceFromExecution(t *testing.T) {
	t.Parallel()

	orders := parseOrders(t,
		`2026-02-11 13:20:00,Call to place market order to sell 2941176 units of symbol OANDA:EURUSD with SL 1.19278 and TP 1.18972`,
		`2026-02-11 13:20:01,Order #8841 for symbol OANDA:EURUSD executed at price 1.19158 for 2941176 units`,
	)
	trades := Reconcile(parseBalances(t, balanceLine), orders)
	require.Len(t, trades, 1)

	// With the execution confirmation present the candidate matches on
	// price, not just units.
	tr := trades[0]
	require.NotNil(t, tr.StopLoss)
	assert.InDelta(t, 1.19278, *tr.StopLoss, 1e-9)
	assert.False(t, tr.Estimated)
}

func TestReconcileModifyAppliesToNewestPosition(t *testing.T) {
	t.Parallel()

	orders := parseOrders(t,
		`2026-02-11 13:20:00,Call to place market order to sell 2941176 units of symbol OANDA:EURUSD with SL 1.19278 and TP 1.18972`,
		`2026-02-11 13:25:00,Call to modify position on symbol OANDA:EURUSD with SL 1.19300 and TP 1.18900`,
	)
	trades := Reconcile(parseBalances(t, balanceLine), orders)
	require.Len(t, trades, 1)

	tr := trades[0]
	require.NotNil(t, tr.StopLoss)
	assert.InDelta(t, 1.193, *tr.StopLoss, 1e-9)
	require.NotNil(t, tr.TakeProfit)
	assert.InDelta(t, 1.189, *tr.TakeProfit, 1e-9)
}

func TestReconcileModifyAfterExitIgnored(t *testing.T) {
	t.Parallel()

	orders := parseOrders(t,
		`2026-02-11 13:20:00,Call to place market order to sell 2941176 units of symbol OANDA:EURUSD with SL 1.19278 and TP 1.18972`,
		`2026-02-11 13:40:00,Call to modify position on symbol OANDA:EURUSD with SL 1.20000 and TP 1.18000`,
	)
	trades := Reconcile(parseBalances(t, balanceLine), orders)
	require.Len(t, trades, 1)

	// The modification is time-stamped after the exit, so the risk levels at
	// exit time are the original ones.
	tr := trades[0]
	require.NotNil(t, tr.StopLoss)
	assert.InDelta(t, 1.19278, *tr.StopLoss, 1e-9)
}

func TestReconcileExecuteHeuristic(t *testing.T) {
	t.Parallel()

	// No entry call at all, only an execution at the reported average price
	// and a limit order with risk levels a few seconds away.
	orders := parseOrders(t,
		`2026-02-11 13:20:01,Order #8841 for symbol OANDA:EURUSD executed at price 1.19158 for 2941176 units`,
		`2026-02-11 13:20:05,Call to place limit order to sell 2941176 units of symbol OANDA:EURUSD at price 1.19160 with SL 1.19278 and TP 1.18972`,
	)
	trades := Reconcile(parseBalances(t, balanceLine), orders)
	require.Len(t, trades, 1)

	tr := trades[0]
	assert.True(t, tr.EntryTime.Equal(time.Date(2026, 2, 11, 13, 20, 1, 0, time.UTC)))
	require.NotNil(t, tr.StopLoss)
	assert.InDelta(t, 1.19278, *tr.StopLoss, 1e-9)
	assert.False(t, tr.Estimated)
}

func TestReconcileDropsNonTradeBalanceEvents(t *testing.T) {
	t.Parallel()

	balances := parseBalances(t,
		balanceLine,
		`2026-02-11 14:00:00,137127.38,137127.38,0.00,USD,"Deposit received"`,
	)
	trades := Reconcile(balances, nil)
	assert.Len(t, trades, 1)
}

func TestReconcileOrderInvariantUnderShuffle(t *testing.T) {
	t.Parallel()

	balanceLines := []string{
		balanceLine,
		`2026-02-12 10:00:00,137127.38,138127.38,1000.00,USD,"Close long position for symbol OANDA:XAUUSD at price 2050.00 for 100 units. Position AVG Price was 2040.00"`,
	}
	orderLines := []string{
		`2026-02-11 13:20:00,Call to place market order to sell 2941176 units of symbol OANDA:EURUSD with SL 1.19278 and TP 1.18972`,
		`2026-02-12 08:00:00,Call to place market order to buy 100 units of symbol OANDA:XAUUSD with SL 2030.00 and TP 2060.00`,
		`2026-02-12 08:00:01,Order #9001 for symbol OANDA:XAUUSD executed at price 2040.00 for 100 units`,
	}

	reference := Reconcile(parseBalances(t, balanceLines...), parseOrders(t, orderLines...))
	require.Len(t, reference, 2)

	rng := rand.New(rand.NewSource(42))
	for i := 0; i < 5; i++ {
		shuffledB := append([]string(nil), balanceLines...)
		shuffledO := append([]string(nil), orderLines...)
		rng.Shuffle(len(shuffledB), func(i, j int) { shuffledB[i], shuffledB[j] = shuffledB[j], shuffledB[i] })
		rng.Shuffle(len(shuffledO), func(i, j int) { shuffledO[i], shuffledO[j] = shuffledO[j], shuffledO[i] })

		got := Reconcile(parseBalances(t, shuffledB...), parseOrders(t, shuffledO...))
		assert.Equal(t, reference, got)
	}
}

func TestReconcileEmitsMostRecentFirst(t *testing.T) {
	t.Parallel()

	balances := parseBalances(t,
		balanceLine,
		`2026-02-12 10:00:00,137127.38,138127.38,1000.00,USD,"Close long position for symbol OANDA:XAUUSD at price 2050.00 for 100 units. Position AVG Price was 2040.00"`,
	)
	trades := Reconcile(balances, nil)
	require.Len(t, trades, 2)
	assert.Equal(t, "XAUUSD", trades[0].Symbol)
	assert.Equal(t, "EURUSD", trades[1].Symbol)
}

func TestPositionConsumedOnce(t *testing.T) {
	t.Parallel()

	// Two identical closes against a single position candidate: only the
	// first consumes it, the second falls back to the estimate.
	balances := parseBalances(t,
		balanceLine,
		`2026-02-11 15:31:49,137127.38,141245.03,4117.65,USD,"Close short position for symbol OANDA:EURUSD at price 1.19018 for 2941176 units. Position AVG Price was 1.191580"`,
	)
	orders := parseOrders(t,
		`2026-02-11 13:20:00,Call to place market order to sell 2941176 units of symbol OANDA:EURUSD with SL 1.19278 and TP 1.18972`,
	)

	trades := Reconcile(balances, orders)
	require.Len(t, trades, 2)

	// Output is exit-desc, so trades[1] is the earlier close that matched.
	assert.NotNil(t, trades[1].StopLoss)
	assert.False(t, trades[1].Estimated)
	assert.Nil(t, trades[0].StopLoss)
	assert.True(t, trades[0].Estimated)
}

func TestFromBalanceOnly(t *testing.T) {
	t.Parallel()

	trades := FromBalanceOnly(parseBalances(t, balanceLine))
	require.Len(t, trades, 1)
	assert.True(t, trades[0].Estimated)
	assert.Nil(t, trades[0].StopLoss)
	assert.Nil(t, trades[0].TakeProfit)
}

func TestPnLPercent(t *testing.T) {
	t.Parallel()

	trades := Reconcile(parseBalances(t, balanceLine), nil)
	require.Len(t, trades, 1)
	require.NotNil(t, trades[0].PnLPercent)
	want := 4117.65 / (1.19158 * 2941176) * 100
	assert.InDelta(t, want, *trades[0].PnLPercent, 1e-9)
}
