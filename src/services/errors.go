package services

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
)

var (
	ErrPortfolioNotFound = errors.New("portfolio not found")
	// ErrNoPosition is returned on SELL when the portfolio holds no active
	// position in the symbol.
	ErrNoPosition = errors.New("no active position for symbol")
	// ErrStoreUnavailable wraps transient storage failures. The whole
	// operation is safe to retry from the top: nothing commits partially.
	ErrStoreUnavailable = errors.New("storage unavailable")
)

type InvalidInputError struct {
	Reason string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("invalid trade input: %s", e.Reason)
}

type InsufficientFundsError struct {
	Required  decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient balance: need %s but only %s available",
		e.Required.StringFixed(2), e.Available.StringFixed(2))
}

type InsufficientSharesError struct {
	Symbol    string
	Owned     decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientSharesError) Error() string {
	return fmt.Sprintf("insufficient shares of %s: own %s but tried to sell %s",
		e.Symbol, e.Owned.String(), e.Requested.String())
}

// CorruptStateError signals that a stored balance is not a usable amount.
// Trades are rejected until an explicit reconciler repair runs; the executor
// never guesses a replacement value inline.
type CorruptStateError struct {
	PortfolioID int64
	Field       string
}

func (e *CorruptStateError) Error() string {
	return fmt.Sprintf("portfolio %d has a corrupt %s; run a balance repair before trading",
		e.PortfolioID, e.Field)
}

func storeError(err error) error {
	return fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
