// Package store persists trades in a local sqlite database. It implements
// the trade.Store collaborator and additionally enforces the status state
// machine: nothing leaves closed or cancelled.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/acowan/tradebook/trade"
)

type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the trades database.
func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	return s.db.Close()
}

const tradeColumns = `id, user_id, symbol, direction, entry_price, exit_price, units,
	entry_time, exit_time, stop_loss, take_profit, pnl, pnl_percent, status,
	currency, notes, tags, strategy, screenshots, estimated, created_at, updated_at`

// Create inserts one trade, filling in identity and timestamps when absent.
func (s *SQLite) Create(t trade.Trade) (*trade.Trade, error) {
	prepared, err := prepare(t)
	if err != nil {
		return nil, err
	}
	if err := s.insert(s.db, prepared); err != nil {
		return nil, fmt.Errorf("insert trade: %w", err)
	}
	return prepared, nil
}

// BulkCreate inserts trades in one transaction; either all land or none do.
func (s *SQLite) BulkCreate(trades []trade.Trade) ([]trade.Trade, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out := make([]trade.Trade, 0, len(trades))
	for _, t := range trades {
		prepared, err := prepare(t)
		if err != nil {
			return nil, err
		}
		if err := s.insert(tx, prepared); err != nil {
			return nil, fmt.Errorf("insert trade %s: %w", prepared.ID, err)
		}
		out = append(out, *prepared)
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// Update applies a partial mutation and returns the updated trade. Closed
// and cancelled trades reject status changes.
func (s *SQLite) Update(id string, upd trade.Update) (*trade.Trade, error) {
	current, err := s.Get(id)
	if err != nil {
		return nil, err
	}

	if upd.Status != nil && *upd.Status != current.Status &&
		(current.Status == trade.Closed || current.Status == trade.Cancelled) {
		return nil, fmt.Errorf("trade %s: cannot change status of %s trade", id, current.Status)
	}

	applyUpdate(current, upd)
	current.UpdatedAt = time.Now().UTC()
	if err := current.Validate(); err != nil {
		return nil, err
	}

	tags, screenshots, err := marshalLists(*current)
	if err != nil {
		return nil, err
	}
	_, err = s.db.Exec(`
		UPDATE trades SET
			exit_price = ?, exit_time = ?, stop_loss = ?, take_profit = ?,
			pnl = ?, pnl_percent = ?, status = ?, notes = ?, tags = ?,
			strategy = ?, screenshots = ?, updated_at = ?
		WHERE id = ?`,
		nullFloat(current.ExitPrice), nullTime(current.ExitTime),
		nullFloat(current.StopLoss), nullFloat(current.TakeProfit),
		nullFloat(current.PnL), nullFloat(current.PnLPercent),
		string(current.Status), current.Notes, tags,
		current.Strategy, screenshots, current.UpdatedAt, id,
	)
	if err != nil {
		return nil, fmt.Errorf("update trade: %w", err)
	}
	return current, nil
}

// Get returns a single trade by ID.
func (s *SQLite) Get(id string) (*trade.Trade, error) {
	row := s.db.QueryRow(`SELECT `+tradeColumns+` FROM trades WHERE id = ?`, id)
	t, err := scanTrade(row)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("trade %q not found", id)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// Delete removes one trade; false when no such trade exists.
func (s *SQLite) Delete(id string) (bool, error) {
	res, err := s.db.Exec(`DELETE FROM trades WHERE id = ?`, id)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// DeleteAll wipes the journal.
func (s *SQLite) DeleteAll() (bool, error) {
	if _, err := s.db.Exec(`DELETE FROM trades`); err != nil {
		return false, err
	}
	return true, nil
}

// FetchAll returns every trade, most recent exit first; open trades (null
// exit) sort last.
func (s *SQLite) FetchAll() ([]trade.Trade, error) {
	return s.query(`SELECT ` + tradeColumns + ` FROM trades ORDER BY exit_time DESC`)
}

// FetchClosedBetween returns closed trades whose exit time is within
// [start, end), oldest first.
func (s *SQLite) FetchClosedBetween(start, end time.Time) ([]trade.Trade, error) {
	return s.query(`SELECT `+tradeColumns+` FROM trades
		WHERE status = 'closed' AND exit_time >= ? AND exit_time < ?
		ORDER BY exit_time ASC`, start, end)
}

type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

func (s *SQLite) insert(db execer, t *trade.Trade) error {
	tags, screenshots, err := marshalLists(*t)
	if err != nil {
		return err
	}
	_, err = db.Exec(`
		INSERT INTO trades (`+tradeColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.UserID, t.Symbol, string(t.Direction), t.EntryPrice,
		nullFloat(t.ExitPrice), t.Units, t.EntryTime, nullTime(t.ExitTime),
		nullFloat(t.StopLoss), nullFloat(t.TakeProfit), nullFloat(t.PnL),
		nullFloat(t.PnLPercent), string(t.Status), t.Currency, t.Notes,
		tags, t.Strategy, screenshots, t.Estimated, t.CreatedAt, t.UpdatedAt,
	)
	return err
}

func (s *SQLite) query(q string, args ...any) ([]trade.Trade, error) {
	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []trade.Trade
	for rows.Next() {
		t, err := scanTrade(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

// prepare validates and fills defaults without mutating the caller's value.
func prepare(t trade.Trade) (*trade.Trade, error) {
	if t.ID == "" {
		t.ID = trade.NewID()
	}
	now := time.Now().UTC()
	if t.CreatedAt.IsZero() {
		t.CreatedAt = now
	}
	t.UpdatedAt = now
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return &t, nil
}

func applyUpdate(t *trade.Trade, upd trade.Update) {
	if upd.ExitPrice != nil {
		t.ExitPrice = upd.ExitPrice
	}
	if upd.ExitTime != nil {
		t.ExitTime = upd.ExitTime
	}
	if upd.StopLoss != nil {
		t.StopLoss = upd.StopLoss
	}
	if upd.TakeProfit != nil {
		t.TakeProfit = upd.TakeProfit
	}
	if upd.PnL != nil {
		t.PnL = upd.PnL
	}
	if upd.PnLPercent != nil {
		t.PnLPercent = upd.PnLPercent
	}
	if upd.Status != nil {
		t.Status = *upd.Status
	}
	if upd.Notes != nil {
		t.Notes = *upd.Notes
	}
	if upd.Tags != nil {
		t.Tags = *upd.Tags
	}
	if upd.Strategy != nil {
		t.Strategy = *upd.Strategy
	}
}

func marshalLists(t trade.Trade) (tags, screenshots string, err error) {
	tb, err := json.Marshal(orEmpty(t.Tags))
	if err != nil {
		return "", "", err
	}
	sb, err := json.Marshal(orEmpty(t.Screenshots))
	if err != nil {
		return "", "", err
	}
	return string(tb), string(sb), nil
}

func orEmpty(xs []string) []string {
	if xs == nil {
		return []string{}
	}
	return xs
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTrade(row rowScanner) (*trade.Trade, error) {
	var (
		t           trade.Trade
		direction   string
		status      string
		exitPrice   sql.NullFloat64
		exitTime    sql.NullTime
		stopLoss    sql.NullFloat64
		takeProfit  sql.NullFloat64
		pnl         sql.NullFloat64
		pnlPercent  sql.NullFloat64
		tags        string
		screenshots string
	)

	err := row.Scan(
		&t.ID, &t.UserID, &t.Symbol, &direction, &t.EntryPrice, &exitPrice,
		&t.Units, &t.EntryTime, &exitTime, &stopLoss, &takeProfit, &pnl,
		&pnlPercent, &status, &t.Currency, &t.Notes, &tags, &t.Strategy,
		&screenshots, &t.Estimated, &t.CreatedAt, &t.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	t.Direction = trade.Direction(direction)
	t.Status = trade.Status(status)
	if exitPrice.Valid {
		t.ExitPrice = trade.Ptr(exitPrice.Float64)
	}
	if exitTime.Valid {
		t.ExitTime = trade.Ptr(exitTime.Time)
	}
	if stopLoss.Valid {
		t.StopLoss = trade.Ptr(stopLoss.Float64)
	}
	if takeProfit.Valid {
		t.TakeProfit = trade.Ptr(takeProfit.Float64)
	}
	if pnl.Valid {
		t.PnL = trade.Ptr(pnl.Float64)
	}
	if pnlPercent.Valid {
		t.PnLPercent = trade.Ptr(pnlPercent.Float64)
	}
	if err := json.Unmarshal([]byte(tags), &t.Tags); err != nil {
		return nil, fmt.Errorf("decode tags for trade %s: %w", t.ID, err)
	}
	if err := json.Unmarshal([]byte(screenshots), &t.Screenshots); err != nil {
		return nil, fmt.Errorf("decode screenshots for trade %s: %w", t.ID, err)
	}
	if len(t.Tags) == 0 {
		t.Tags = nil
	}
	if len(t.Screenshots) == 0 {
		t.Screenshots = nil
	}

	return &t, nil
}

func nullFloat(v *float64) any {
	if v == nil {
		return nil
	}
	return *v
}

func nullTime(v *time.Time) any {
	if v == nil {
		return nil
	}
	return *v
}

var _ trade.Store = (*SQLite)(nil)
