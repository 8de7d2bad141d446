package journal

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/acowan/tradebook/stats"
	"github.com/acowan/tradebook/trade"
)

func closedTrade() trade.Trade {
	entry := time.Date(2026, 2, 11, 11, 31, 49, 0, time.UTC)
	exit := entry.Add(2 * time.Hour)
	return trade.Trade{
		ID:         "01J5KXA8B2C3D4E5F6G7H8J9K0",
		Symbol:     "EURUSD",
		Direction:  trade.Short,
		EntryPrice: 1.19158,
		ExitPrice:  trade.Ptr(1.19018),
		Units:      2941176,
		EntryTime:  entry,
		ExitTime:   trade.Ptr(exit),
		StopLoss:   trade.Ptr(1.19278),
		TakeProfit: trade.Ptr(1.18972),
		PnL:        trade.Ptr(4117.65),
		Status:     trade.Closed,
		Currency:   "USD",
		Notes:      "Balance 133009.73 -> 137127.38",
		Tags:       []string{"OANDA", "Forex"},
	}
}

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	out := FormatTradeOrg(closedTrade())

	assert.Contains(t, out, "** Trade: EURUSD short (01J5KXA8)")
	assert.Contains(t, out, ":PROPERTIES:")
	assert.Contains(t, out, ":TRADE_ID: 01J5KXA8B2C3D4E5F6G7H8J9K0")
	assert.Contains(t, out, ":UNITS: 2941176")
	assert.Contains(t, out, ":ENTRY_PRICE: 1.19158")
	assert.Contains(t, out, ":EXIT_PRICE: 1.19018")
	assert.Contains(t, out, ":STOP_LOSS: 1.19278")
	assert.Contains(t, out, ":TAKE_PROFIT: 1.18972")
	assert.Contains(t, out, ":PNL: 4117.65 USD")
	assert.Contains(t, out, ":HOLDING_TIME: 2h0m0s")
	assert.Contains(t, out, ":TAGS: OANDA, Forex")
	assert.Contains(t, out, ":END:")
	assert.Contains(t, out, "Balance 133009.73 -> 137127.38")
	assert.Contains(t, out, "*** Thesis")
	assert.Contains(t, out, "*** Execution")
	assert.Contains(t, out, "*** Review")
	assert.NotContains(t, out, ":ESTIMATED:")
}

func TestFormatTradeOrgOmitsMissingFields(t *testing.T) {
	t.Parallel()

	open := trade.Trade{
		ID:         "short",
		Symbol:     "XAUUSD",
		Direction:  trade.Long,
		EntryPrice: 2040,
		Units:      10,
		EntryTime:  time.Now().UTC(),
		Status:     trade.Open,
		Currency:   "USD",
	}

	out := FormatTradeOrg(open)

	assert.Contains(t, out, "** Trade: XAUUSD long (short)")
	assert.NotContains(t, out, ":EXIT_PRICE:")
	assert.NotContains(t, out, ":STOP_LOSS:")
	assert.NotContains(t, out, ":PNL:")
	assert.NotContains(t, out, ":HOLDING_TIME:")
	assert.NotContains(t, out, ":TAGS:")
}

func TestFormatTradeOrgEstimated(t *testing.T) {
	t.Parallel()

	tr := closedTrade()
	tr.Estimated = true
	tr.StopLoss = nil
	tr.TakeProfit = nil

	out := FormatTradeOrg(tr)

	assert.Contains(t, out, ":ESTIMATED: yes")
	assert.NotContains(t, out, ":STOP_LOSS:")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	a := closedTrade()
	b := closedTrade()
	b.ID = "second-trade-id-longer"
	b.Symbol = "GBPUSD"

	out := FormatTradesOrg([]trade.Trade{a, b})

	assert.Contains(t, out, "EURUSD")
	assert.Contains(t, out, "GBPUSD")
	parts := strings.Split(out, "\n\n\n")
	assert.Len(t, parts, 2)

	assert.Empty(t, FormatTradesOrg(nil))
}

func TestFormatDayOrg(t *testing.T) {
	t.Parallel()

	day := stats.DailyStats{Date: "2026-02-11", PnL: 4117.65, Trades: 1, Wins: 1, WinRate: 100}
	out := FormatDayOrg(day, []trade.Trade{closedTrade()})

	assert.True(t, strings.HasPrefix(out, "* 2026-02-11\n"))
	assert.Contains(t, out, "PnL 4117.65 over 1 trade(s), win rate 100.0%")
	assert.Contains(t, out, "** Trade: EURUSD")
}

func TestShortID(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "01J5KXA8", shortID("01J5KXA8B2C3D4E5F6G7H8J9K0"))
	assert.Equal(t, "12345678", shortID("12345678"))
	assert.Equal(t, "", shortID(""))
}
