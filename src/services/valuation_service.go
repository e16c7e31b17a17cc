package services

import (
	"context"
	"errors"

	"server/src/clients/quotes"
	"server/src/repositories"
	"server/src/schemas"
	"server/src/utils"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// SnapshotBeginner opens the read-only transaction valuation reads run in.
// *pgxpool.Pool satisfies it.
type SnapshotBeginner interface {
	BeginTx(ctx context.Context, opts pgx.TxOptions) (pgx.Tx, error)
}

// ValuationService derives investment value, market value and P/L for a
// portfolio. Read-only; a missing quote degrades to the cost-basis price for
// that symbol instead of failing the whole request.
type ValuationServiceI interface {
	GetPortfolioDetails(ctx context.Context, portfolioID int64) (*schemas.PortfolioView, error)
}

type ValuationService struct {
	db            SnapshotBeginner
	portfolioRepo repositories.PortfolioRepository
	holdingRepo   repositories.HoldingRepository
	quotes        quotes.ServiceI
}

func NewValuationService(
	db SnapshotBeginner,
	portfolioRepo repositories.PortfolioRepository,
	holdingRepo repositories.HoldingRepository,
	quotes quotes.ServiceI,
) *ValuationService {
	return &ValuationService{
		db:            db,
		portfolioRepo: portfolioRepo,
		holdingRepo:   holdingRepo,
		quotes:        quotes,
	}
}

func (s *ValuationService) GetPortfolioDetails(ctx context.Context, portfolioID int64) (*schemas.PortfolioView, error) {
	logger := utils.LoggerFromContext(ctx)

	// Balance and holdings must describe the same moment: a trade committing
	// between the two reads would otherwise double-count its amount in the
	// totals. A repeatable-read snapshot is enough; no row lock is taken.
	tx, err := s.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.RepeatableRead, AccessMode: pgx.ReadOnly})
	if err != nil {
		return nil, storeError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	portfolio, err := s.portfolioRepo.GetByID(ctx, portfolioID, tx)
	if err != nil {
		return nil, storeError(err)
	}
	if portfolio == nil {
		return nil, ErrPortfolioNotFound
	}
	if !portfolio.HasValidBalance() {
		return nil, &CorruptStateError{PortfolioID: portfolioID, Field: "current_balance"}
	}

	holdings, err := s.holdingRepo.GetActiveByPortfolioID(ctx, portfolioID, tx)
	if err != nil {
		return nil, storeError(err)
	}

	// Quote lookups are remote calls; end the transaction before making them.
	if err := tx.Commit(ctx); err != nil {
		return nil, storeError(err)
	}

	view := &schemas.PortfolioView{
		ID:             portfolio.ID,
		UserID:         portfolio.UserID,
		Name:           portfolio.Name,
		Description:    portfolio.Description,
		InitialBalance: initialBalanceOrDefault(portfolio),
		CurrentBalance: portfolio.CurrentBalance.Decimal,
		Holdings:       make([]schemas.HoldingView, 0, len(holdings)),
		CreatedAt:      portfolio.CreatedAt,
		UpdatedAt:      portfolio.UpdatedAt,
	}

	for _, h := range holdings {
		currentPrice := h.AverageBuyPrice
		live := false
		if s.quotes != nil {
			price, err := s.quotes.GetPrice(ctx, h.Symbol)
			switch {
			case err == nil:
				currentPrice = price
				live = true
			case errors.Is(err, quotes.ErrUnavailable):
				logger.WithField("symbol", h.Symbol).Debug("no live quote, falling back to cost basis")
			default:
				logger.WithError(err).WithField("symbol", h.Symbol).Warn("quote lookup failed, falling back to cost basis")
			}
		}

		investment := h.Quantity.Mul(h.AverageBuyPrice).Round(utils.MoneyScale)
		market := h.Quantity.Mul(currentPrice).Round(utils.MoneyScale)
		profit := market.Sub(investment)
		profitPct := decimal.Zero
		if investment.IsPositive() {
			profitPct = profit.DivRound(investment, utils.QuantityScale).Mul(hundred).Round(utils.MoneyScale)
		}

		view.Holdings = append(view.Holdings, schemas.HoldingView{
			ID:               h.ID,
			Symbol:           h.Symbol,
			CompanyName:      h.CompanyName,
			Quantity:         h.Quantity,
			AverageBuyPrice:  h.AverageBuyPrice,
			CurrentPrice:     currentPrice,
			LiveQuote:        live,
			InvestmentValue:  investment,
			MarketValue:      market,
			Profit:           profit,
			ProfitPercentage: profitPct,
		})

		view.TotalInvestment = view.TotalInvestment.Add(investment)
		view.TotalMarketValue = view.TotalMarketValue.Add(market)
	}

	view.TotalPortfolioValue = view.CurrentBalance.Add(view.TotalMarketValue)
	view.TotalProfit = view.TotalMarketValue.Sub(view.TotalInvestment)
	if view.TotalInvestment.IsPositive() {
		view.ProfitPercentage = view.TotalProfit.
			DivRound(view.TotalInvestment, utils.QuantityScale).
			Mul(hundred).Round(utils.MoneyScale)
	}
	return view, nil
}
