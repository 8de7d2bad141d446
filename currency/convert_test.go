package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestConvertIdentity(t *testing.T) {
	t.Parallel()

	conv := NewConverter(Fallback())
	for _, code := range []string{"USD", "EUR", "JPY", "USC", "XYZ", "NOPE"} {
		assert.Equal(t, 123.45, conv.Convert(123.45, code, code), code)
	}
}

func TestConvertZeroShortCircuits(t *testing.T) {
	t.Parallel()

	conv := NewConverter(Fallback())
	assert.Zero(t, conv.Convert(0, "EUR", "JPY"))
}

func TestConvertUSDToEUR(t *testing.T) {
	t.Parallel()

	conv := NewConverter(Rates{"USD": 1, "EUR": 0.9})
	assert.InDelta(t, 90.0, conv.Convert(100, "USD", "EUR"), 1e-9)
	assert.InDelta(t, 100.0, conv.Convert(90, "EUR", "USD"), 1e-9)
}

func TestConvertUnknownCodeIsUSDEquivalent(t *testing.T) {
	t.Parallel()

	conv := NewConverter(Rates{"USD": 1, "EUR": 0.9})
	// Unknown codes default to rate 1 rather than failing.
	assert.InDelta(t, 0.9, conv.Convert(1, "ZZZ", "EUR"), 1e-9)
	assert.InDelta(t, 1.0, conv.Convert(1, "USD", "ZZZ"), 1e-9)
}

func TestConvertRoundTrip(t *testing.T) {
	t.Parallel()

	rates := Fallback()
	conv := NewConverter(rates)
	codes := make([]string, 0, len(rates))
	for code := range rates {
		codes = append(codes, code)
	}

	for _, from := range codes {
		for _, to := range codes {
			got := conv.Convert(conv.Convert(17.5, from, to), to, from)
			assert.InDelta(t, 17.5, got, 1e-9, "%s -> %s -> %s", from, to, from)
		}
	}
}

func TestLookupZeroRateDefaultsToOne(t *testing.T) {
	t.Parallel()

	r := Rates{"BAD": 0}
	assert.Equal(t, 1.0, r.Lookup("BAD"))
}
