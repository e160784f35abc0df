package ledger

import (
	"errors"
	"fmt"
	"time"

	"papertrade.org/internal/ids"
)

// Money is a monetary amount in minor units (cents). No floats.
type Money int64

func (m Money) IsNegative() bool { return m < 0 }
func (m Money) IsPositive() bool { return m > 0 }

// String renders the amount as major units with two fractional digits,
// e.g. 17050 -> "170.50".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/100, v%100)
}

// Side distinguishes the two trade directions.
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

// Valid reports whether the side is one of the two known values.
func (s Side) Valid() bool { return s == SideBuy || s == SideSell }

// Position is an account's current holding in one symbol. Shares is always
// positive while the position exists; a position sold down to zero is removed
// from the book, never retained.
type Position struct {
	Symbol  string `json:"symbol"`
	Shares  int64  `json:"shares"`
	AvgCost Money  `json:"avg_cost"` // minor units, quantity-weighted
}

// Account holds cash and positions for one trader.
type Account struct {
	ID        string              `json:"id"`
	CreatedAt time.Time           `json:"created_at"`
	Cash      Money               `json:"cash"` // minor units, never negative
	Positions map[string]Position `json:"positions"`
}

// Transaction is one executed trade, immutable once appended to the log.
// Sequence is monotonic per account and defines the committed order.
type Transaction struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Symbol    string    `json:"symbol"`
	Side      Side      `json:"side"`
	Shares    int64     `json:"shares"`
	Price     Money     `json:"price"` // execution price per share, minor units
	Sequence  uint64    `json:"sequence"`
	CreatedAt time.Time `json:"created_at"`
}

// Cost returns the total traded value of the transaction.
func (t Transaction) Cost() Money { return t.Price * Money(t.Shares) }

var (
	ErrNotFound           = errors.New("not found")
	ErrUnknownSymbol      = errors.New("unknown symbol")
	ErrInvalidShares      = errors.New("invalid share count (must be > 0)")
	ErrInsufficientFunds  = errors.New("insufficient funds")
	ErrInsufficientShares = errors.New("insufficient shares")
)

func newID() string {
	return ids.New()
}
