package trade

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidateClosedRequiresExitFields(t *testing.T) {
	t.Parallel()

	now := time.Now()
	tr := Trade{
		ID:         "T1",
		Symbol:     "OANDA:EURUSD",
		Direction:  Long,
		EntryPrice: 1.1,
		Units:      1000,
		EntryTime:  now,
		Status:     Closed,
		Currency:   "USD",
	}
	assert.Error(t, tr.Validate())

	tr.ExitPrice = Ptr(1.2)
	tr.ExitTime = Ptr(now.Add(time.Hour))
	tr.PnL = Ptr(100.0)
	assert.NoError(t, tr.Validate())
}

func TestValidateOpenAllowsNilExit(t *testing.T) {
	t.Parallel()

	tr := Trade{
		ID:         "T2",
		Symbol:     "OANDA:EURUSD",
		Direction:  Short,
		EntryPrice: 1.1,
		Units:      1000,
		EntryTime:  time.Now(),
		Status:     Open,
		Currency:   "USD",
	}
	assert.NoError(t, tr.Validate())

	tr.Status = "done"
	assert.Error(t, tr.Validate())
}

func TestNewIDSortable(t *testing.T) {
	t.Parallel()

	a := NewID()
	b := NewID()
	assert.Len(t, a, 26)
	assert.Less(t, a, b)
}

func TestDeriveTags(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		exchange string
		symbol   string
		pnl      float64
		want     []string
	}{
		{"forex small", "OANDA", "EURUSD", 50, []string{"OANDA", "Forex"}},
		{"forex good", "OANDA", "EURUSD", -1500, []string{"OANDA", "Good Trade", "Forex"}},
		{"forex big", "OANDA", "GBPJPY", 6000, []string{"OANDA", "Big Trade", "Good Trade", "Forex"}},
		{"metals never forex", "OANDA", "XAUUSD", 10, []string{"OANDA", "Metals"}},
		{"crypto", "BINANCE", "BTCUSD", 10, []string{"BINANCE", "Crypto"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveTags(tt.exchange, tt.symbol, tt.pnl))
		})
	}
}
