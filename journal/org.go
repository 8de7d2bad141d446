// Package journal renders trades as Org-mode text for a plain-text trading
// journal. Structured facts live in a PROPERTIES drawer so they stay
// searchable; the narrative sections are left blank for the trader to fill.
package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/acowan/tradebook/stats"
	"github.com/acowan/tradebook/trade"
)

// FormatTradeOrg renders one trade as an Org-mode block.
func FormatTradeOrg(t trade.Trade) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("** Trade: %s %s (%s)\n", t.Symbol, t.Direction, shortID(t.ID)))
	b.WriteString(":PROPERTIES:\n")
	b.WriteString(fmt.Sprintf(":TRADE_ID: %s\n", t.ID))
	b.WriteString(fmt.Sprintf(":SYMBOL: %s\n", t.Symbol))
	b.WriteString(fmt.Sprintf(":DIRECTION: %s\n", t.Direction))
	b.WriteString(fmt.Sprintf(":UNITS: %.0f\n", t.Units))
	b.WriteString(fmt.Sprintf(":ENTRY_PRICE: %.5f\n", t.EntryPrice))
	if t.ExitPrice != nil {
		b.WriteString(fmt.Sprintf(":EXIT_PRICE: %.5f\n", *t.ExitPrice))
	}
	b.WriteString(fmt.Sprintf(":ENTRY_TIME: %s\n", t.EntryTime.UTC().Format(time.RFC3339)))
	if t.ExitTime != nil {
		b.WriteString(fmt.Sprintf(":EXIT_TIME: %s\n", t.ExitTime.UTC().Format(time.RFC3339)))
	}
	if t.StopLoss != nil {
		b.WriteString(fmt.Sprintf(":STOP_LOSS: %.5f\n", *t.StopLoss))
	}
	if t.TakeProfit != nil {
		b.WriteString(fmt.Sprintf(":TAKE_PROFIT: %.5f\n", *t.TakeProfit))
	}
	if t.PnL != nil {
		b.WriteString(fmt.Sprintf(":PNL: %.2f %s\n", *t.PnL, t.Currency))
	}
	if t.PnLPercent != nil {
		b.WriteString(fmt.Sprintf(":PNL_PERCENT: %.2f\n", *t.PnLPercent))
	}
	if d := stats.HoldingTime(t); d > 0 {
		b.WriteString(fmt.Sprintf(":HOLDING_TIME: %s\n", d))
	}
	b.WriteString(fmt.Sprintf(":STATUS: %s\n", t.Status))
	if t.Estimated {
		b.WriteString(":ESTIMATED: yes\n")
	}
	if t.Strategy != "" {
		b.WriteString(fmt.Sprintf(":STRATEGY: %s\n", t.Strategy))
	}
	if len(t.Tags) > 0 {
		b.WriteString(fmt.Sprintf(":TAGS: %s\n", strings.Join(t.Tags, ", ")))
	}
	b.WriteString(":END:\n")
	if t.Notes != "" {
		b.WriteString("\n")
		b.WriteString(t.Notes)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	b.WriteString("*** Thesis\n- \n\n")
	b.WriteString("*** Execution\n- \n\n")
	b.WriteString("*** Review\n- \n")
	return b.String()
}

// FormatTradesOrg renders multiple trades separated by blank lines.
func FormatTradesOrg(trades []trade.Trade) string {
	var b strings.Builder
	for i, t := range trades {
		if i > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(FormatTradeOrg(t))
	}
	return b.String()
}

// FormatDayOrg renders a dated top-level heading with a day summary followed
// by every trade closed that day.
func FormatDayOrg(day stats.DailyStats, trades []trade.Trade) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("* %s\n", day.Date))
	b.WriteString(fmt.Sprintf("PnL %.2f over %d trade(s), win rate %.1f%%\n\n",
		day.PnL, day.Trades, day.WinRate))
	b.WriteString(FormatTradesOrg(trades))
	return b.String()
}

func shortID(full string) string {
	if len(full) <= 8 {
		return full
	}
	return full[:8]
}
