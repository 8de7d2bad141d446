package trade

import (
	"math"
	"strings"
)

var (
	metalsHints = []string{"XAU", "XAG", "GOLD", "SILVER", "XPT", "XPD"}
	cryptoHints = []string{"BTC", "ETH", "SOL", "DOGE", "USDT", "USDC", "CRYPTO"}
	forexHints  = []string{"USD", "EUR", "GBP", "JPY", "CHF", "CAD", "AUD", "NZD"}
)

// DeriveTags builds the automatic tag set for an imported trade: the
// exchange, magnitude tags and an asset-class tag from symbol substrings.
// Metals symbols like XAUUSD also contain a currency code, so the metals
// check runs first and suppresses the Forex tag.
func DeriveTags(exchange, symbol string, pnl float64) []string {
	var tags []string
	if exchange != "" {
		tags = append(tags, exchange)
	}

	abs := math.Abs(pnl)
	if abs > 5000 {
		tags = append(tags, "Big Trade")
	}
	if abs > 1000 {
		tags = append(tags, "Good Trade")
	}

	up := strings.ToUpper(symbol)
	switch {
	case containsAny(up, metalsHints):
		tags = append(tags, "Metals")
	case containsAny(up, cryptoHints):
		tags = append(tags, "Crypto")
	case containsAny(up, forexHints):
		tags = append(tags, "Forex")
	}

	return tags
}

func containsAny(s string, hints []string) bool {
	for _, h := range hints {
		if strings.Contains(s, h) {
			return true
		}
	}
	return false
}
