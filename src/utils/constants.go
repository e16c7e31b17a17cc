package utils

import "github.com/shopspring/decimal"

// DefaultInitialBalance is the starting virtual cash grant. It is also the
// value the reconciler falls back to when a portfolio's initial balance is
// missing or invalid.
var DefaultInitialBalance = decimal.NewFromInt(150000)

const (
	DefaultPortfolioName        = "Default Paper Portfolio"
	DefaultPortfolioDescription = "Trade with 150,000 virtual money without risk!"
)

const (
	// MoneyScale is the number of fractional digits kept on currency amounts.
	MoneyScale = 2
	// QuantityScale is the number of fractional digits kept on share
	// quantities and per-share prices.
	QuantityScale = 6
)
