package brokerlog

import (
	"bufio"
	"io"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The order log is a grab bag of platform chatter. Each pattern below is
// tried independently against every line; whichever match, their captures
// are all attached to the same event. None are mutually exclusive.
var (
	orderIDRe = regexp.MustCompile(`(?i)order (?:id:? ?|#)([A-Za-z0-9-]+)`)
	symbolRe  = regexp.MustCompile(`symbol ([A-Z0-9_.]+:[A-Z0-9_.]+)`)
	execRe    = regexp.MustCompile(`(?i)executed at price ([0-9]+(?:\.[0-9]+)?) for ([0-9]+(?:\.[0-9]+)?) units`)

	marketSLTPRe = regexp.MustCompile(
		`Call to place market order to (buy|sell) ([0-9]+(?:\.[0-9]+)?) units of symbol ` +
			`([A-Z0-9_.]+:[A-Z0-9_.]+) with SL ([0-9]+(?:\.[0-9]+)?) and TP ([0-9]+(?:\.[0-9]+)?)`)
	marketPlainRe = regexp.MustCompile(
		`Call to place market order to (buy|sell) ([0-9]+(?:\.[0-9]+)?) units of symbol ` +
			`([A-Z0-9_.]+:[A-Z0-9_.]+)\s*$`)
	limitRe = regexp.MustCompile(
		`Call to place limit order to (buy|sell) ([0-9]+(?:\.[0-9]+)?) units of symbol ` +
			`([A-Z0-9_.]+:[A-Z0-9_.]+) at price ([0-9]+(?:\.[0-9]+)?) ` +
			`with SL ([0-9]+(?:\.[0-9]+)?) and TP ([0-9]+(?:\.[0-9]+)?)`)
	modifyRe = regexp.MustCompile(
		`Call to modify (?:position|order) (?:on|for) symbol ([A-Z0-9_.]+:[A-Z0-9_.]+) ` +
			`with SL ([0-9]+(?:\.[0-9]+)?) and TP ([0-9]+(?:\.[0-9]+)?)`)
)

// ParseOrderLog reads an order-log CSV export (timestamp,freeText). Every
// line with a valid timestamp yields one event; informational lines simply
// carry no derived fields.
func ParseOrderLog(r io.Reader) ([]OrderEvent, error) {
	var events []OrderEvent

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(strings.ToLower(line), "heure,") {
			continue
		}
		ev, ok := parseOrderLine(line)
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

func parseOrderLine(line string) (OrderEvent, bool) {
	idx := strings.Index(line, ",")
	if idx < 0 {
		return OrderEvent{}, false
	}
	ts, err := time.Parse(timeLayout, strings.TrimSpace(line[:idx]))
	if err != nil {
		return OrderEvent{}, false
	}

	text := strings.TrimSpace(line[idx+1:])
	// The free text may itself be CSV-quoted.
	if len(text) >= 2 && strings.HasPrefix(text, `"`) && strings.HasSuffix(text, `"`) {
		text = strings.ReplaceAll(text[1:len(text)-1], `""`, `"`)
	}

	ev := OrderEvent{Time: ts, Text: text}

	if m := orderIDRe.FindStringSubmatch(text); m != nil {
		ev.OrderID = m[1]
	}
	if m := symbolRe.FindStringSubmatch(text); m != nil {
		ev.Symbol = m[1]
	}
	if m := execRe.FindStringSubmatch(text); m != nil {
		ev.Executed = true
		ev.Price = parseFloatPtr(m[1])
		ev.Units = parseFloatPtr(m[2])
	}
	if m := marketSLTPRe.FindStringSubmatch(text); m != nil {
		ev.IsMarket = true
		ev.IsEntry = true
		ev.Action = m[1]
		ev.Units = parseFloatPtr(m[2])
		ev.Symbol = m[3]
		ev.StopLoss = parseFloatPtr(m[4])
		ev.TakeProfit = parseFloatPtr(m[5])
	}
	if m := marketPlainRe.FindStringSubmatch(text); m != nil {
		// A market order without SL/TP is a closing order, not an entry.
		ev.IsMarket = true
		ev.IsEntry = false
		ev.Action = m[1]
		ev.Units = parseFloatPtr(m[2])
		ev.Symbol = m[3]
	}
	if m := limitRe.FindStringSubmatch(text); m != nil {
		ev.IsLimit = true
		ev.Action = m[1]
		ev.Units = parseFloatPtr(m[2])
		ev.Symbol = m[3]
		ev.Price = parseFloatPtr(m[4])
		ev.StopLoss = parseFloatPtr(m[5])
		ev.TakeProfit = parseFloatPtr(m[6])
	}
	if m := modifyRe.FindStringSubmatch(text); m != nil {
		ev.IsModify = true
		ev.Symbol = m[1]
		ev.StopLoss = parseFloatPtr(m[2])
		ev.TakeProfit = parseFloatPtr(m[3])
	}

	return ev, true
}

func parseFloatPtr(s string) *float64 {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil
	}
	return &v
}
