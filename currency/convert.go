package currency

// Converter converts amounts over an immutable rate snapshot.
type Converter struct {
	rates Rates
}

// NewConverter wraps a rate snapshot. The converter never mutates it.
func NewConverter(rates Rates) *Converter {
	if rates == nil {
		rates = Fallback()
	}
	return &Converter{rates: rates}
}

// Convert converts amount from one currency code to another. Equal codes
// return the amount untouched, avoiding float drift on the common case, and
// zero amounts short-circuit without a lookup.
func (c *Converter) Convert(amount float64, from, to string) float64 {
	if from == to || amount == 0 {
		return amount
	}
	return amount / c.rates.Lookup(from) * c.rates.Lookup(to)
}
