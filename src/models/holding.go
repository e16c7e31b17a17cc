package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Holding is a position in one security within one portfolio. Fully sold
// positions are deactivated with quantity pinned to zero, never deleted, so
// the cost-basis history stays available for reporting. At most one active
// holding exists per (portfolio, symbol) pair.
type Holding struct {
	ID              int64           `db:"id"`
	PortfolioID     int64           `db:"portfolio_id"`
	Symbol          string          `db:"symbol"`
	CompanyName     string          `db:"company_name"`
	Quantity        decimal.Decimal `db:"quantity"`
	AverageBuyPrice decimal.Decimal `db:"average_buy_price"`
	Active          bool            `db:"is_active"`
	CreatedAt       time.Time       `db:"created_at"`
	UpdatedAt       time.Time       `db:"updated_at"`
}
