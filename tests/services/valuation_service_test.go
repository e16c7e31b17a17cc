package services_test

import (
	"context"
	"testing"

	"server/src/models"
	"server/src/repositories"
	"server/src/schemas"
	"server/src/services"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newValuationFixture(prices map[string]decimal.Decimal) (*services.PaperTradingService, *services.ValuationService, *fakeLedger) {
	ledger := newFakeLedger()
	portfolioRepo := &fakePortfolioRepo{ledger: ledger}
	holdingRepo := &fakeHoldingRepo{ledger: ledger}
	tradeRepo := &fakeTradeRepo{ledger: ledger}

	trading := services.NewPaperTradingService(ledger, portfolioRepo, holdingRepo, tradeRepo)
	valuation := services.NewValuationService(ledger, portfolioRepo, holdingRepo, &quoteServiceMock{prices: prices})
	return trading, valuation, ledger
}

// holdingRepoHook runs a callback once before the holdings read, to interleave
// writes between the valuation's two reads.
type holdingRepoHook struct {
	repositories.HoldingRepository
	onList func()
}

func (h *holdingRepoHook) GetActiveByPortfolioID(ctx context.Context, portfolioID int64, tx pgx.Tx) ([]models.Holding, error) {
	if h.onList != nil {
		hook := h.onList
		h.onList = nil
		hook()
	}
	return h.HoldingRepository.GetActiveByPortfolioID(ctx, portfolioID, tx)
}

func TestGetPortfolioDetails_LiveAndFallbackQuotes(t *testing.T) {
	trading, valuation, _ := newValuationFixture(map[string]decimal.Decimal{
		"LIVE": decimal.NewFromInt(120),
	})
	ctx := context.Background()

	portfolio := createPortfolio(t, trading, 10000)
	_, err := trading.ExecuteTrade(ctx, portfolio.ID, &schemas.TradeRequest{
		Symbol: "LIVE", Side: "BUY", Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	_, err = trading.ExecuteTrade(ctx, portfolio.ID, &schemas.TradeRequest{
		Symbol: "DARK", Side: "BUY", Quantity: decimal.NewFromInt(5), Price: decimal.NewFromInt(40),
	})
	require.NoError(t, err)

	view, err := valuation.GetPortfolioDetails(ctx, portfolio.ID)
	require.NoError(t, err)
	require.Len(t, view.Holdings, 2)

	// Holdings come back sorted by symbol: DARK, LIVE.
	dark, live := view.Holdings[0], view.Holdings[1]

	assert.Equal(t, "LIVE", live.Symbol)
	assert.True(t, live.LiveQuote)
	assert.Equal(t, "120", live.CurrentPrice.String())
	assert.Equal(t, "1000", live.InvestmentValue.String())
	assert.Equal(t, "1200", live.MarketValue.String())
	assert.Equal(t, "200", live.Profit.String())
	assert.Equal(t, "20", live.ProfitPercentage.String())

	// No quote for DARK: valuation falls back to cost basis, flagged as such.
	assert.Equal(t, "DARK", dark.Symbol)
	assert.False(t, dark.LiveQuote)
	assert.Equal(t, "40", dark.CurrentPrice.String())
	assert.Equal(t, "200", dark.InvestmentValue.String())
	assert.Equal(t, "200", dark.MarketValue.String())
	assert.True(t, dark.Profit.IsZero())
	assert.True(t, dark.ProfitPercentage.IsZero())

	// Totals: balance 10000-1000-200=8800; market 1200+200=1400.
	assert.Equal(t, "8800", view.CurrentBalance.String())
	assert.Equal(t, "1200", view.TotalInvestment.String())
	assert.Equal(t, "1400", view.TotalMarketValue.String())
	assert.Equal(t, "10200", view.TotalPortfolioValue.String())
	assert.Equal(t, "200", view.TotalProfit.String())
	assert.Equal(t, "16.67", view.ProfitPercentage.String())
}

func TestGetPortfolioDetails_NoHoldings(t *testing.T) {
	trading, valuation, _ := newValuationFixture(nil)
	ctx := context.Background()

	portfolio := createPortfolio(t, trading, 5000)
	view, err := valuation.GetPortfolioDetails(ctx, portfolio.ID)
	require.NoError(t, err)

	assert.Empty(t, view.Holdings)
	assert.True(t, view.TotalInvestment.IsZero())
	assert.True(t, view.TotalMarketValue.IsZero())
	assert.Equal(t, "5000", view.TotalPortfolioValue.String())
	assert.True(t, view.ProfitPercentage.IsZero())
}

func TestGetPortfolioDetails_ExcludesClosedHoldings(t *testing.T) {
	trading, valuation, _ := newValuationFixture(nil)
	ctx := context.Background()

	portfolio := createPortfolio(t, trading, 5000)
	_, err := trading.ExecuteTrade(ctx, portfolio.ID, &schemas.TradeRequest{
		Symbol: "ABC", Side: "BUY", Quantity: decimal.NewFromInt(2), Price: decimal.NewFromInt(100),
	})
	require.NoError(t, err)
	_, err = trading.ExecuteTrade(ctx, portfolio.ID, &schemas.TradeRequest{
		Symbol: "ABC", Side: "SELL", Quantity: decimal.NewFromInt(2), Price: decimal.NewFromInt(110),
	})
	require.NoError(t, err)

	view, err := valuation.GetPortfolioDetails(ctx, portfolio.ID)
	require.NoError(t, err)
	assert.Empty(t, view.Holdings, "soft-closed holdings must not appear in the view")
	assert.Equal(t, "5020", view.CurrentBalance.String())
}

func TestGetPortfolioDetails_SnapshotSurvivesConcurrentTrade(t *testing.T) {
	ledger := newFakeLedger()
	portfolioRepo := &fakePortfolioRepo{ledger: ledger}
	holdingRepo := &fakeHoldingRepo{ledger: ledger}
	tradeRepo := &fakeTradeRepo{ledger: ledger}
	trading := services.NewPaperTradingService(ledger, portfolioRepo, holdingRepo, tradeRepo)

	hooked := &holdingRepoHook{HoldingRepository: holdingRepo}
	valuation := services.NewValuationService(ledger, portfolioRepo, hooked, &quoteServiceMock{})
	ctx := context.Background()

	portfolio := createPortfolio(t, trading, 10000)

	// A BUY commits after the balance read but before the holdings read. The
	// view must not mix the old balance with the new holding.
	hooked.onList = func() {
		_, err := trading.ExecuteTrade(ctx, portfolio.ID, &schemas.TradeRequest{
			Symbol: "ABC", Side: "BUY", Quantity: decimal.NewFromInt(10), Price: decimal.NewFromInt(100),
		})
		require.NoError(t, err)
	}

	view, err := valuation.GetPortfolioDetails(ctx, portfolio.ID)
	require.NoError(t, err)

	assert.Empty(t, view.Holdings)
	assert.Equal(t, "10000", view.CurrentBalance.String())
	assert.Equal(t, "10000", view.TotalPortfolioValue.String())

	// The trade itself still landed.
	assert.Equal(t, "9000", storedBalance(t, ledger, portfolio.ID).String())
}

func TestGetPortfolioDetails_NotFound(t *testing.T) {
	_, valuation, _ := newValuationFixture(nil)

	_, err := valuation.GetPortfolioDetails(context.Background(), 404)
	assert.ErrorIs(t, err, services.ErrPortfolioNotFound)
}

func TestGetPortfolioDetails_CorruptBalance(t *testing.T) {
	trading, valuation, ledger := newValuationFixture(nil)
	ctx := context.Background()

	portfolio := createPortfolio(t, trading, 5000)
	ledger.mu.Lock()
	ledger.portfolios[portfolio.ID].CurrentBalance = decimal.NullDecimal{}
	ledger.mu.Unlock()

	_, err := valuation.GetPortfolioDetails(ctx, portfolio.ID)
	var corruptErr *services.CorruptStateError
	assert.ErrorAs(t, err, &corruptErr)
}
