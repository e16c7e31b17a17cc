package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Portfolio is a virtual cash account. UserID is nullable: anonymous
// sessions get a portfolio too.
//
// InitialBalance is fixed at creation; CurrentBalance must always equal
// InitialBalance plus the signed sum of all recorded trades. Both are held
// as NullDecimal so that a NULL or unparseable stored value surfaces as an
// invalid decimal instead of a silently guessed number.
type Portfolio struct {
	ID             int64               `db:"id"`
	UserID         *int64              `db:"user_id"`
	Name           string              `db:"name"`
	Description    string              `db:"description"`
	InitialBalance decimal.NullDecimal `db:"initial_balance"`
	CurrentBalance decimal.NullDecimal `db:"current_balance"`
	CreatedAt      time.Time           `db:"created_at"`
	UpdatedAt      time.Time           `db:"updated_at"`
}

// HasValidBalance reports whether the stored cash balance is a usable,
// non-negative amount.
func (p *Portfolio) HasValidBalance() bool {
	return p.CurrentBalance.Valid && !p.CurrentBalance.Decimal.IsNegative()
}
