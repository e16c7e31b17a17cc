package models

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TradeSideBuy  = "BUY"
	TradeSideSell = "SELL"
)

// Trade is an append-only record of one executed order. Trades are never
// mutated or deleted; they are the source of truth for balance
// reconstruction.
type Trade struct {
	ID          int64           `db:"id"`
	PortfolioID int64           `db:"portfolio_id"`
	Symbol      string          `db:"symbol"`
	Side        string          `db:"side"`
	Quantity    decimal.Decimal `db:"quantity"`
	Price       decimal.Decimal `db:"price"`
	TotalAmount decimal.Decimal `db:"total_amount"`
	TradeDate   time.Time       `db:"trade_date"`
	CreatedAt   time.Time       `db:"created_at"`
}
