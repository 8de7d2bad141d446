package brokerlog

import (
	"errors"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/acowan/tradebook/trade"
)

// ErrNoPositionsTable is returned when an MT5 report has no Positions table
// at all. Unlike per-row mismatches this is fatal to the import.
var ErrNoPositionsTable = errors.New("mt5 report: no Positions table found")

// mt5TimeLayout is the dotted timestamp format used in MT5 statements.
const mt5TimeLayout = "2006.01.02 15:04:05"

// Positions-table column order in an MT5 account statement.
const (
	mt5ColOpenTime = iota
	mt5ColTicket
	mt5ColSymbol
	mt5ColType
	mt5ColVolume
	mt5ColEntryPrice
	mt5ColStopLoss
	mt5ColTakeProfit
	mt5ColCloseTime
	mt5ColClosePrice
	mt5ColCommission
	mt5ColSwap
	mt5ColProfit

	mt5MinCells = 14
)

// ParseMT5Report reads an MT5 HTML account statement and returns the closed
// trades from its Positions table. The report already carries complete data,
// so no reconciliation pass is needed. Realized P&L is profit + commission +
// swap. currency is the account currency the statement is denominated in;
// empty defaults to USD.
func ParseMT5Report(r io.Reader, currency string) ([]trade.Trade, error) {
	if currency == "" {
		currency = "USD"
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, err
	}

	rows := doc.Find("tr")
	start := -1
	rows.EachWithBreak(func(i int, row *goquery.Selection) bool {
		title := strings.TrimSpace(row.Find("th, td").First().Text())
		if strings.Contains(title, "Positions") {
			start = i
			return false
		}
		return true
	})
	if start < 0 {
		return nil, ErrNoPositionsTable
	}

	var trades []trade.Trade
	// start+1 is the column-header row; data begins after it.
	for i := start + 2; i < rows.Length(); i++ {
		row := rows.Eq(i)
		if row.Find("th").Length() > 0 {
			break // next section of the report
		}
		cells := row.Find("td")
		if cells.Length() < mt5MinCells {
			break // summary/footer row ends the table
		}

		dir := strings.ToLower(cellText(cells, mt5ColType))
		if dir != "buy" && dir != "sell" {
			continue
		}

		t, ok := mt5Row(cells, dir, currency)
		if !ok {
			continue
		}
		trades = append(trades, t)
	}

	return trades, nil
}

func mt5Row(cells *goquery.Selection, dir, currency string) (trade.Trade, bool) {
	entryTime, err1 := time.Parse(mt5TimeLayout, cellText(cells, mt5ColOpenTime))
	exitTime, err2 := time.Parse(mt5TimeLayout, cellText(cells, mt5ColCloseTime))
	if err1 != nil || err2 != nil {
		return trade.Trade{}, false
	}

	entryPrice, err1 := mt5Float(cellText(cells, mt5ColEntryPrice))
	exitPrice, err2 := mt5Float(cellText(cells, mt5ColClosePrice))
	units, err3 := mt5Float(cellText(cells, mt5ColVolume))
	profit, err4 := mt5Float(cellText(cells, mt5ColProfit))
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		return trade.Trade{}, false
	}

	// Commission and swap are often blank; blanks count as zero.
	commission, _ := mt5Float(cellText(cells, mt5ColCommission))
	swap, _ := mt5Float(cellText(cells, mt5ColSwap))
	pnl := profit + commission + swap

	direction := trade.Long
	if dir == "sell" {
		direction = trade.Short
	}

	symbol := strings.ToUpper(cellText(cells, mt5ColSymbol))
	t := trade.Trade{
		Symbol:     symbol,
		Direction:  direction,
		EntryPrice: entryPrice,
		ExitPrice:  trade.Ptr(exitPrice),
		Units:      units,
		EntryTime:  entryTime,
		ExitTime:   trade.Ptr(exitTime),
		PnL:        trade.Ptr(pnl),
		Status:     trade.Closed,
		Currency:   currency,
		Notes:      "MT5 ticket " + cellText(cells, mt5ColTicket),
		Tags:       trade.DeriveTags("MT5", symbol, pnl),
	}
	if sl, err := mt5Float(cellText(cells, mt5ColStopLoss)); err == nil && sl != 0 {
		t.StopLoss = trade.Ptr(sl)
	}
	if tp, err := mt5Float(cellText(cells, mt5ColTakeProfit)); err == nil && tp != 0 {
		t.TakeProfit = trade.Ptr(tp)
	}
	if entryPrice != 0 && units != 0 {
		t.PnLPercent = trade.Ptr(pnl / (entryPrice * units) * 100)
	}

	return t, true
}

func cellText(cells *goquery.Selection, i int) string {
	return strings.TrimSpace(cells.Eq(i).Text())
}

// mt5Float parses MT5 numbers, which use thin or non-breaking spaces as
// thousands separators.
func mt5Float(s string) (float64, error) {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case ' ', ' ', ' ':
			return -1
		}
		return r
	}, s)
	return strconv.ParseFloat(cleaned, 64)
}
