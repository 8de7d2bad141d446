package store

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acowan/tradebook/trade"
)

func newTestStore(t *testing.T) *SQLite {
	t.Helper()

	s, err := NewSQLite(filepath.Join(t.TempDir(), "trades.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func sampleClosed(exit time.Time) trade.Trade {
	return trade.Trade{
		Symbol:     "EURUSD",
		Direction:  trade.Short,
		EntryPrice: 1.19158,
		ExitPrice:  trade.Ptr(1.19018),
		Units:      2941176,
		EntryTime:  exit.Add(-2 * time.Hour),
		ExitTime:   trade.Ptr(exit),
		StopLoss:   trade.Ptr(1.19278),
		TakeProfit: trade.Ptr(1.18972),
		PnL:        trade.Ptr(4117.65),
		Status:     trade.Closed,
		Currency:   "USD",
		Tags:       []string{"OANDA", "Forex"},
	}
}

func TestCreateAndGet(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	exit := time.Date(2026, 2, 11, 13, 31, 49, 0, time.UTC)

	created, err := s.Create(sampleClosed(exit))
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.False(t, created.CreatedAt.IsZero())

	got, err := s.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, created.Symbol, got.Symbol)
	assert.Equal(t, trade.Short, got.Direction)
	require.NotNil(t, got.ExitPrice)
	assert.InDelta(t, 1.19018, *got.ExitPrice, 1e-9)
	require.NotNil(t, got.StopLoss)
	assert.InDelta(t, 1.19278, *got.StopLoss, 1e-9)
	require.NotNil(t, got.ExitTime)
	assert.True(t, got.ExitTime.Equal(exit))
	assert.Equal(t, []string{"OANDA", "Forex"}, got.Tags)
}

func TestCreateRejectsIncompleteClosedTrade(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	tr := sampleClosed(time.Now().UTC())
	tr.PnL = nil

	_, err := s.Create(tr)
	assert.Error(t, err)
}

func TestCreateOpenTrade(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	open := trade.Trade{
		Symbol:     "XAUUSD",
		Direction:  trade.Long,
		EntryPrice: 2040,
		Units:      10,
		EntryTime:  time.Now().UTC(),
		Status:     trade.Open,
		Currency:   "USD",
	}

	created, err := s.Create(open)
	require.NoError(t, err)

	got, err := s.Get(created.ID)
	require.NoError(t, err)
	assert.Nil(t, got.ExitPrice)
	assert.Nil(t, got.ExitTime)
	assert.Nil(t, got.PnL)
}

func TestUpdateCloseTrade(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	entry := time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)
	created, err := s.Create(trade.Trade{
		Symbol: "EURUSD", Direction: trade.Long, EntryPrice: 1.1,
		Units: 1000, EntryTime: entry, Status: trade.Open, Currency: "USD",
	})
	require.NoError(t, err)

	exit := entry.Add(3 * time.Hour)
	updated, err := s.Update(created.ID, trade.Update{
		ExitPrice: trade.Ptr(1.2),
		ExitTime:  trade.Ptr(exit),
		PnL:       trade.Ptr(100.0),
		Status:    trade.Ptr(trade.Closed),
	})
	require.NoError(t, err)
	assert.Equal(t, trade.Closed, updated.Status)
	require.NotNil(t, updated.PnL)
	assert.InDelta(t, 100.0, *updated.PnL, 1e-9)
}

func TestUpdateCannotLeaveClosed(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	created, err := s.Create(sampleClosed(time.Now().UTC()))
	require.NoError(t, err)

	_, err = s.Update(created.ID, trade.Update{Status: trade.Ptr(trade.Open)})
	assert.Error(t, err)
}

func TestUpdateToClosedRequiresExitFields(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	created, err := s.Create(trade.Trade{
		Symbol: "EURUSD", Direction: trade.Long, EntryPrice: 1.1,
		Units: 1000, EntryTime: time.Now().UTC(), Status: trade.Open, Currency: "USD",
	})
	require.NoError(t, err)

	_, err = s.Update(created.ID, trade.Update{Status: trade.Ptr(trade.Closed)})
	assert.Error(t, err)
}

func TestDelete(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	created, err := s.Create(sampleClosed(time.Now().UTC()))
	require.NoError(t, err)

	ok, err := s.Delete(created.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = s.Delete(created.ID)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestBulkCreateAndFetchAll(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	base := time.Date(2026, 2, 11, 13, 0, 0, 0, time.UTC)

	created, err := s.BulkCreate([]trade.Trade{
		sampleClosed(base),
		sampleClosed(base.Add(2 * time.Hour)),
		sampleClosed(base.Add(time.Hour)),
	})
	require.NoError(t, err)
	assert.Len(t, created, 3)

	all, err := s.FetchAll()
	require.NoError(t, err)
	require.Len(t, all, 3)

	// Most recent exit first.
	assert.True(t, all[0].ExitTime.After(*all[1].ExitTime))
	assert.True(t, all[1].ExitTime.After(*all[2].ExitTime))
}

func TestBulkCreateRollsBackOnInvalidTrade(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	bad := sampleClosed(time.Now().UTC())
	bad.PnL = nil

	_, err := s.BulkCreate([]trade.Trade{sampleClosed(time.Now().UTC()), bad})
	require.Error(t, err)

	all, err := s.FetchAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestDeleteAll(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	_, err := s.BulkCreate([]trade.Trade{sampleClosed(time.Now().UTC())})
	require.NoError(t, err)

	ok, err := s.DeleteAll()
	require.NoError(t, err)
	assert.True(t, ok)

	all, err := s.FetchAll()
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestFetchClosedBetween(t *testing.T) {
	t.Parallel()

	s := newTestStore(t)
	day := time.Date(2026, 2, 11, 0, 0, 0, 0, time.UTC)

	_, err := s.BulkCreate([]trade.Trade{
		sampleClosed(day.Add(10 * time.Hour)),
		sampleClosed(day.Add(15 * time.Hour)),
		sampleClosed(day.Add(30 * time.Hour)), // next day
	})
	require.NoError(t, err)

	recs, err := s.FetchClosedBetween(day, day.Add(24*time.Hour))
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.True(t, recs[0].ExitTime.Before(*recs[1].ExitTime))
}
