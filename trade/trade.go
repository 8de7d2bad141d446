// Package trade defines the journal's central entity and its lifecycle rules.
package trade

import (
	"fmt"
	"time"
)

type Direction string

const (
	Long  Direction = "long"
	Short Direction = "short"
)

type Status string

const (
	Open      Status = "open"
	Closed    Status = "closed"
	Cancelled Status = "cancelled"
)

// Trade is a single discrete trade. Exit fields are nil while the trade is
// open. Status transitions are open -> closed or open -> cancelled; nothing
// leaves closed or cancelled.
type Trade struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId,omitempty"`
	Symbol      string     `json:"symbol"`
	Direction   Direction  `json:"direction"`
	EntryPrice  float64    `json:"entryPrice"`
	ExitPrice   *float64   `json:"exitPrice,omitempty"`
	Units       float64    `json:"units"`
	EntryTime   time.Time  `json:"entryTime"`
	ExitTime    *time.Time `json:"exitTime,omitempty"`
	StopLoss    *float64   `json:"stopLoss,omitempty"`
	TakeProfit  *float64   `json:"takeProfit,omitempty"`
	PnL         *float64   `json:"pnl,omitempty"`
	PnLPercent  *float64   `json:"pnlPercent,omitempty"`
	Status      Status     `json:"status"`
	Currency    string     `json:"currency"`
	Notes       string     `json:"notes,omitempty"`
	Tags        []string   `json:"tags,omitempty"`
	Strategy    string     `json:"strategy,omitempty"`
	Screenshots []string   `json:"screenshots,omitempty"`

	// Estimated marks trades whose entry time was reconstructed from the
	// exit-minus-2h heuristic rather than recovered from an order log.
	Estimated bool `json:"estimated,omitempty"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Validate checks the closed-trade invariant: a closed trade must carry exit
// price, exit time and realized P&L.
func (t *Trade) Validate() error {
	if t.Symbol == "" {
		return fmt.Errorf("trade %s: symbol is required", t.ID)
	}
	if t.Direction != Long && t.Direction != Short {
		return fmt.Errorf("trade %s: direction must be long or short", t.ID)
	}
	switch t.Status {
	case Open, Cancelled:
	case Closed:
		if t.ExitPrice == nil || t.ExitTime == nil || t.PnL == nil {
			return fmt.Errorf("trade %s: closed trade requires exit price, exit time and pnl", t.ID)
		}
	default:
		return fmt.Errorf("trade %s: unknown status %q", t.ID, t.Status)
	}
	return nil
}

// Update is a partial mutation applied by the store; nil fields are left
// untouched.
type Update struct {
	ExitPrice  *float64
	ExitTime   *time.Time
	StopLoss   *float64
	TakeProfit *float64
	PnL        *float64
	PnLPercent *float64
	Status     *Status
	Notes      *string
	Tags       *[]string
	Strategy   *string
}

// Store is the persistence collaborator. Implementations report failure via
// error or the nil/false returns; callers decide how to degrade.
type Store interface {
	Create(t Trade) (*Trade, error)
	Update(id string, upd Update) (*Trade, error)
	Delete(id string) (bool, error)
	DeleteAll() (bool, error)
	BulkCreate(trades []Trade) ([]Trade, error)
	FetchAll() ([]Trade, error)
}

// Ptr returns a pointer to v. Handy for the many nullable trade fields.
func Ptr[T any](v T) *T { return &v }
