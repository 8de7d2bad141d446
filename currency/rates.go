// Package currency converts monetary amounts between currencies using a rate
// table expressed as units of currency per 1 USD. Lookups are deliberately
// lenient: an unknown code is treated as already-USD-equivalent so a single
// new currency never blocks a statistics run.
package currency

// Rates maps a currency code to units of that currency per 1 USD.
type Rates map[string]float64

// Currency codes with fixed synthetic rates the external source does not
// know about: pegged stablecoins and the cents sub-unit.
const (
	codeUSDC = "USDC"
	codeUSDT = "USDT"
	codeUSC  = "USC"

	rateUSC = 0.01
)

// Fallback returns the hardcoded seed table used until the first successful
// refresh, and kept when every refresh fails.
func Fallback() Rates {
	return Rates{
		"USD":    1,
		"EUR":    0.92,
		"GBP":    0.79,
		"JPY":    149.5,
		"CHF":    0.88,
		"CAD":    1.36,
		"AUD":    1.52,
		"NZD":    1.66,
		"BTC":    0.000016,
		"ETH":    0.00042,
		codeUSDC: 1,
		codeUSDT: 1,
		codeUSC:  rateUSC,
	}
}

// Lookup returns the rate for code, defaulting to 1 for unknown or zero
// entries.
func (r Rates) Lookup(code string) float64 {
	v, ok := r[code]
	if !ok || v == 0 {
		return 1
	}
	return v
}

// Clone returns an independent copy so callers can hold a snapshot per
// computation.
func (r Rates) Clone() Rates {
	out := make(Rates, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// applyPegs forces the synthetic rates regardless of what a rate source
// returned.
func applyPegs(r Rates) {
	r[codeUSDC] = 1
	r[codeUSDT] = 1
	r[codeUSC] = rateUSC
}
