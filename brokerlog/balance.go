package brokerlog

import (
	"bufio"
	"encoding/csv"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/acowan/tradebook/trade"
)

// timeLayout is the timestamp format shared by both CSV exports.
const timeLayout = "2006-01-02 15:04:05"

// closeActionRe matches the broker's close-position sentence inside the
// quoted action field, e.g.
//
//	Close short position for symbol OANDA:EURUSD at price 1.19018 for
//	2941176 units. Position AVG Price was 1.191580
//
// Trailing rate/point-value noise after the AVG price is ignored.
var closeActionRe = regexp.MustCompile(
	`Close (long|short) position for symbol ([A-Z0-9_.]+):([A-Z0-9_.]+) ` +
		`at price ([0-9]+(?:\.[0-9]+)?) for ([0-9]+(?:\.[0-9]+)?) units\. ` +
		`Position AVG Price was ([0-9]+(?:\.[0-9]+)?)`)

// ParseBalanceHistory reads a balance-history CSV export. Lines that do not
// match the expected shape (timestamp, three numbers, currency, quoted
// action) are skipped silently. Lines whose action text is not a
// close-position sentence become plain balance events without trade fields.
func ParseBalanceHistory(r io.Reader) ([]BalanceEvent, error) {
	var events []BalanceEvent

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || isBalanceHeader(line) {
			continue
		}
		ev, ok := parseBalanceLine(line)
		if !ok {
			continue
		}
		events = append(events, ev)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return events, nil
}

func isBalanceHeader(line string) bool {
	lower := strings.ToLower(line)
	return strings.Contains(lower, "balance avant") ||
		strings.Contains(lower, "pertes et profits") ||
		strings.HasPrefix(lower, "heure,balance")
}

// parseBalanceLine parses one data line. Each line is run through its own CSV
// reader so a malformed line never poisons the rest of the file.
func parseBalanceLine(line string) (BalanceEvent, bool) {
	cr := csv.NewReader(strings.NewReader(line))
	fields, err := cr.Read()
	if err != nil || len(fields) != 6 {
		return BalanceEvent{}, false
	}

	ts, err := time.Parse(timeLayout, strings.TrimSpace(fields[0]))
	if err != nil {
		return BalanceEvent{}, false
	}
	before, err1 := strconv.ParseFloat(strings.TrimSpace(fields[1]), 64)
	after, err2 := strconv.ParseFloat(strings.TrimSpace(fields[2]), 64)
	pnl, err3 := strconv.ParseFloat(strings.TrimSpace(fields[3]), 64)
	if err1 != nil || err2 != nil || err3 != nil {
		return BalanceEvent{}, false
	}
	currency := strings.TrimSpace(fields[4])
	if currency == "" {
		return BalanceEvent{}, false
	}

	ev := BalanceEvent{
		Time:          ts,
		BalanceBefore: before,
		BalanceAfter:  after,
		PnL:           pnl,
		Currency:      currency,
		Action:        fields[5],
	}

	if m := closeActionRe.FindStringSubmatch(ev.Action); m != nil {
		ev.HasTradeInfo = true
		ev.Direction = trade.Direction(m[1])
		ev.Exchange = m[2]
		ev.Symbol = m[3]
		ev.ExitPrice, _ = strconv.ParseFloat(m[4], 64)
		ev.Units, _ = strconv.ParseFloat(m[5], 64)
		ev.EntryPrice, _ = strconv.ParseFloat(m[6], 64)
	}

	return ev, true
}
