package services_test

import (
	"context"
	"testing"

	"server/src/schemas"
	"server/src/services"
	"server/src/utils"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecalculate_ReplaysTradeHistory(t *testing.T) {
	trading, reconciler, ledger := newTradingFixture()
	ctx := context.Background()

	portfolio := createPortfolio(t, trading, 150000)
	_, err := trading.ExecuteTrade(ctx, portfolio.ID, &schemas.TradeRequest{
		Symbol: "ABC", Side: "BUY", Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	_, err = trading.ExecuteTrade(ctx, portfolio.ID, &schemas.TradeRequest{
		Symbol: "ABC", Side: "SELL", Quantity: decimal.NewFromInt(5), Price: decimal.NewFromInt(120),
	})
	require.NoError(t, err)

	// 150000 - 1000 + 600
	calculated, err := reconciler.Recalculate(ctx, portfolio.ID)
	require.NoError(t, err)
	assert.Equal(t, "149600", calculated.String())

	// Recalculate is read-only even when the stored value is wrong.
	ledger.mu.Lock()
	ledger.portfolios[portfolio.ID].CurrentBalance = decimal.NewNullDecimal(decimal.NewFromInt(1))
	ledger.mu.Unlock()

	calculated, err = reconciler.Recalculate(ctx, portfolio.ID)
	require.NoError(t, err)
	assert.Equal(t, "149600", calculated.String())
	assert.Equal(t, "1", storedBalance(t, ledger, portfolio.ID).String())
}

func TestRecalculate_NotFound(t *testing.T) {
	_, reconciler, _ := newTradingFixture()

	_, err := reconciler.Recalculate(context.Background(), 99)
	assert.ErrorIs(t, err, services.ErrPortfolioNotFound)
}

func TestRepair_FixesDriftedBalance(t *testing.T) {
	trading, reconciler, ledger := newTradingFixture()
	ctx := context.Background()

	portfolio := createPortfolio(t, trading, 150000)
	_, err := trading.ExecuteTrade(ctx, portfolio.ID, &schemas.TradeRequest{
		Symbol: "ABC", Side: "BUY", Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(100),
	})
	require.NoError(t, err)

	// Simulate drift from a historical bug.
	ledger.mu.Lock()
	ledger.portfolios[portfolio.ID].CurrentBalance = decimal.NullDecimal{}
	ledger.mu.Unlock()

	repaired, err := reconciler.Repair(ctx, portfolio.ID)
	require.NoError(t, err)
	require.True(t, repaired.CurrentBalance.Valid)
	assert.Equal(t, "149000", repaired.CurrentBalance.Decimal.String())
	assert.Equal(t, "149000", storedBalance(t, ledger, portfolio.ID).String())
}

func TestRepair_Idempotent(t *testing.T) {
	trading, reconciler, ledger := newTradingFixture()
	ctx := context.Background()

	portfolio := createPortfolio(t, trading, 150000)
	_, err := trading.ExecuteTrade(ctx, portfolio.ID, &schemas.TradeRequest{
		Symbol: "ABC", Side: "BUY", Quantity: decimal.NewFromInt(3), Price: decimal.RequireFromString("33.33"),
	})
	require.NoError(t, err)

	_, err = reconciler.Repair(ctx, portfolio.ID)
	require.NoError(t, err)
	first := storedBalance(t, ledger, portfolio.ID)

	_, err = reconciler.Repair(ctx, portfolio.ID)
	require.NoError(t, err)
	second := storedBalance(t, ledger, portfolio.ID)

	assert.True(t, first.Equal(second), "repair must be idempotent: %s != %s", first, second)
}

func TestRepair_DefaultsInvalidInitialBalance(t *testing.T) {
	trading, reconciler, ledger := newTradingFixture()
	ctx := context.Background()

	portfolio := createPortfolio(t, trading, 1000)
	ledger.mu.Lock()
	ledger.portfolios[portfolio.ID].InitialBalance = decimal.NullDecimal{}
	ledger.portfolios[portfolio.ID].CurrentBalance = decimal.NullDecimal{}
	ledger.mu.Unlock()

	repaired, err := reconciler.Repair(ctx, portfolio.ID)
	require.NoError(t, err)

	require.True(t, repaired.InitialBalance.Valid)
	assert.True(t, repaired.InitialBalance.Decimal.Equal(utils.DefaultInitialBalance))
	assert.True(t, repaired.CurrentBalance.Decimal.Equal(utils.DefaultInitialBalance))

	// The corrected initial balance is persisted, not just returned.
	ledger.mu.Lock()
	stored := ledger.portfolios[portfolio.ID]
	assert.True(t, stored.InitialBalance.Valid && stored.InitialBalance.Decimal.Equal(utils.DefaultInitialBalance))
	ledger.mu.Unlock()
}

func TestRepair_NotFound(t *testing.T) {
	_, reconciler, _ := newTradingFixture()

	_, err := reconciler.Repair(context.Background(), 123)
	assert.ErrorIs(t, err, services.ErrPortfolioNotFound)
}

func TestRepairAll_SweepsEveryPortfolio(t *testing.T) {
	trading, reconciler, ledger := newTradingFixture()
	ctx := context.Background()

	healthy := createPortfolio(t, trading, 2000)
	broken := createPortfolio(t, trading, 3000)
	_, err := trading.ExecuteTrade(ctx, broken.ID, &schemas.TradeRequest{
		Symbol: "ABC", Side: "BUY", Quantity: decimal.NewFromInt(2), Price: decimal.NewFromInt(500),
	})
	require.NoError(t, err)

	ledger.mu.Lock()
	ledger.portfolios[broken.ID].CurrentBalance = decimal.NewNullDecimal(decimal.NewFromInt(-1))
	ledger.mu.Unlock()

	require.NoError(t, reconciler.RepairAll(ctx))

	assert.Equal(t, "2000", storedBalance(t, ledger, healthy.ID).String())
	assert.Equal(t, "2000", storedBalance(t, ledger, broken.ID).String())
}
