package services

import (
	"context"
	"strings"
	"time"

	"server/src/models"
	"server/src/repositories"
	"server/src/schemas"
	"server/src/utils"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// TxBeginner opens the transaction every balance-mutating operation runs in.
// *pgxpool.Pool satisfies it.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

type PaperTradingServiceI interface {
	CreatePortfolio(ctx context.Context, req *schemas.CreatePortfolioRequest) (*models.Portfolio, error)
	GetUserPortfolios(ctx context.Context, userID *int64) ([]models.Portfolio, error)
	ExecuteTrade(ctx context.Context, portfolioID int64, order *schemas.TradeRequest) (*schemas.TradeResult, error)
	GetTradeHistory(ctx context.Context, portfolioID int64) ([]models.Trade, error)
	DeletePortfolio(ctx context.Context, portfolioID int64) error
}

type PaperTradingService struct {
	db            TxBeginner
	portfolioRepo repositories.PortfolioRepository
	holdingRepo   repositories.HoldingRepository
	tradeRepo     repositories.TradeRepository
}

func NewPaperTradingService(
	db TxBeginner,
	portfolioRepo repositories.PortfolioRepository,
	holdingRepo repositories.HoldingRepository,
	tradeRepo repositories.TradeRepository,
) *PaperTradingService {
	return &PaperTradingService{
		db:            db,
		portfolioRepo: portfolioRepo,
		holdingRepo:   holdingRepo,
		tradeRepo:     tradeRepo,
	}
}

// CreatePortfolio creates a portfolio with current_balance equal to
// initial_balance. A missing initial balance defaults to the platform's
// starting cash grant.
func (s *PaperTradingService) CreatePortfolio(ctx context.Context, req *schemas.CreatePortfolioRequest) (*models.Portfolio, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, &InvalidInputError{Reason: "portfolio name is required"}
	}

	initial := utils.DefaultInitialBalance
	if req.InitialBalance != nil {
		if !req.InitialBalance.IsPositive() {
			return nil, &InvalidInputError{Reason: "initial balance must be positive"}
		}
		initial = req.InitialBalance.Round(utils.MoneyScale)
	}

	portfolio := &models.Portfolio{
		UserID:         req.UserID,
		Name:           req.Name,
		Description:    req.Description,
		InitialBalance: decimal.NewNullDecimal(initial),
		CurrentBalance: decimal.NewNullDecimal(initial),
	}
	if err := s.portfolioRepo.Create(ctx, portfolio, nil); err != nil {
		return nil, storeError(err)
	}

	utils.LoggerFromContext(ctx).WithFields(logrus.Fields{
		"portfolio_id":    portfolio.ID,
		"initial_balance": initial.String(),
	}).Info("portfolio created")
	return portfolio, nil
}

// GetUserPortfolios lists the user's portfolios, creating the default one
// the first time an empty account asks.
func (s *PaperTradingService) GetUserPortfolios(ctx context.Context, userID *int64) ([]models.Portfolio, error) {
	portfolios, err := s.portfolioRepo.GetByUserID(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	if len(portfolios) > 0 {
		return portfolios, nil
	}

	created, err := s.CreatePortfolio(ctx, &schemas.CreatePortfolioRequest{
		UserID:      userID,
		Name:        utils.DefaultPortfolioName,
		Description: utils.DefaultPortfolioDescription,
	})
	if err != nil {
		// A concurrent first call may have created the default portfolio in
		// between; the partial unique index turns that race into a constraint
		// error, so return the winner's row.
		if isUniqueViolation(err) {
			portfolios, rerr := s.portfolioRepo.GetByUserID(ctx, userID)
			if rerr != nil {
				return nil, storeError(rerr)
			}
			if len(portfolios) > 0 {
				return portfolios, nil
			}
		}
		return nil, err
	}
	return []models.Portfolio{*created}, nil
}

// ExecuteTrade validates and applies a single BUY/SELL order. The portfolio
// row is locked for the whole read-modify-write sequence and the three writes
// (balance, holding, trade) commit together or not at all.
func (s *PaperTradingService) ExecuteTrade(ctx context.Context, portfolioID int64, order *schemas.TradeRequest) (*schemas.TradeResult, error) {
	logger := utils.LoggerFromContext(ctx)

	side := strings.ToUpper(order.Side)
	if side != models.TradeSideBuy && side != models.TradeSideSell {
		return nil, &InvalidInputError{Reason: "side must be BUY or SELL"}
	}
	if strings.TrimSpace(order.Symbol) == "" {
		return nil, &InvalidInputError{Reason: "symbol is required"}
	}
	if !order.Quantity.IsPositive() {
		return nil, &InvalidInputError{Reason: "quantity must be positive"}
	}
	if !order.Price.IsPositive() {
		return nil, &InvalidInputError{Reason: "price must be positive"}
	}
	quantity := order.Quantity.Round(utils.QuantityScale)
	price := order.Price.Round(utils.QuantityScale)
	totalAmount := quantity.Mul(price).Round(utils.MoneyScale)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, storeError(err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	portfolio, err := s.portfolioRepo.GetByIDForUpdate(ctx, portfolioID, tx)
	if err != nil {
		return nil, storeError(err)
	}
	if portfolio == nil {
		return nil, ErrPortfolioNotFound
	}
	if !portfolio.HasValidBalance() {
		logger.WithFields(logrus.Fields{
			"portfolio_id": portfolioID,
			"incident":     "data_integrity",
		}).Error("stored balance is not a valid amount, rejecting trade")
		return nil, &CorruptStateError{PortfolioID: portfolioID, Field: "current_balance"}
	}
	balance := portfolio.CurrentBalance.Decimal

	var newBalance decimal.Decimal
	switch side {
	case models.TradeSideBuy:
		newBalance, err = s.applyBuy(ctx, tx, portfolio, order, quantity, price, totalAmount)
	case models.TradeSideSell:
		newBalance, err = s.applySell(ctx, tx, portfolio, order, quantity, totalAmount)
	}
	if err != nil {
		return nil, err
	}

	if err := s.portfolioRepo.UpdateCurrentBalance(ctx, portfolioID, newBalance, tx); err != nil {
		return nil, storeError(err)
	}

	trade := &models.Trade{
		PortfolioID: portfolioID,
		Symbol:      order.Symbol,
		Side:        side,
		Quantity:    quantity,
		Price:       price,
		TotalAmount: totalAmount,
		TradeDate:   time.Now().UTC(),
	}
	if err := s.tradeRepo.Create(ctx, trade, tx); err != nil {
		return nil, storeError(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, storeError(err)
	}

	logger.WithFields(logrus.Fields{
		"portfolio_id": portfolioID,
		"symbol":       trade.Symbol,
		"side":         side,
		"quantity":     quantity.String(),
		"price":        price.String(),
		"total_amount": totalAmount.String(),
		"old_balance":  balance.String(),
		"new_balance":  newBalance.String(),
	}).Info("trade executed")

	return &schemas.TradeResult{Trade: *trade, NewBalance: newBalance}, nil
}

func (s *PaperTradingService) applyBuy(
	ctx context.Context,
	tx pgx.Tx,
	portfolio *models.Portfolio,
	order *schemas.TradeRequest,
	quantity, price, totalAmount decimal.Decimal,
) (decimal.Decimal, error) {
	balance := portfolio.CurrentBalance.Decimal
	if totalAmount.GreaterThan(balance) {
		return decimal.Zero, &InsufficientFundsError{Required: totalAmount, Available: balance}
	}
	newBalance := balance.Sub(totalAmount)

	holding, err := s.holdingRepo.GetActiveBySymbol(ctx, portfolio.ID, order.Symbol, tx)
	if err != nil {
		return decimal.Zero, storeError(err)
	}

	if holding != nil {
		// Weighted-average cost basis across all accumulated buys.
		newQuantity := holding.Quantity.Add(quantity)
		cost := holding.Quantity.Mul(holding.AverageBuyPrice).Add(totalAmount)
		holding.AverageBuyPrice = cost.DivRound(newQuantity, utils.QuantityScale)
		holding.Quantity = newQuantity
		if err := s.holdingRepo.Update(ctx, holding, tx); err != nil {
			return decimal.Zero, storeError(err)
		}
		return newBalance, nil
	}

	companyName := order.CompanyName
	if companyName == "" {
		companyName = order.Symbol
	}
	holding = &models.Holding{
		PortfolioID:     portfolio.ID,
		Symbol:          order.Symbol,
		CompanyName:     companyName,
		Quantity:        quantity,
		AverageBuyPrice: price,
		Active:          true,
	}
	if err := s.holdingRepo.Create(ctx, holding, tx); err != nil {
		return decimal.Zero, storeError(err)
	}
	return newBalance, nil
}

func (s *PaperTradingService) applySell(
	ctx context.Context,
	tx pgx.Tx,
	portfolio *models.Portfolio,
	order *schemas.TradeRequest,
	quantity, totalAmount decimal.Decimal,
) (decimal.Decimal, error) {
	holding, err := s.holdingRepo.GetActiveBySymbol(ctx, portfolio.ID, order.Symbol, tx)
	if err != nil {
		return decimal.Zero, storeError(err)
	}
	if holding == nil {
		return decimal.Zero, ErrNoPosition
	}
	if holding.Quantity.LessThan(quantity) {
		return decimal.Zero, &InsufficientSharesError{
			Symbol:    order.Symbol,
			Owned:     holding.Quantity,
			Requested: quantity,
		}
	}

	newBalance := portfolio.CurrentBalance.Decimal.Add(totalAmount)

	remaining := holding.Quantity.Sub(quantity)
	if remaining.Sign() <= 0 {
		// Soft-close: quantity pinned to zero, average price retained for
		// history, row kept for the audit trail.
		holding.Quantity = decimal.Zero
		holding.Active = false
	} else {
		holding.Quantity = remaining
	}
	if err := s.holdingRepo.Update(ctx, holding, tx); err != nil {
		return decimal.Zero, storeError(err)
	}
	return newBalance, nil
}

func (s *PaperTradingService) GetTradeHistory(ctx context.Context, portfolioID int64) ([]models.Trade, error) {
	portfolio, err := s.portfolioRepo.GetByID(ctx, portfolioID, nil)
	if err != nil {
		return nil, storeError(err)
	}
	if portfolio == nil {
		return nil, ErrPortfolioNotFound
	}

	trades, err := s.tradeRepo.GetByPortfolioID(ctx, portfolioID)
	if err != nil {
		return nil, storeError(err)
	}
	return trades, nil
}

func (s *PaperTradingService) DeletePortfolio(ctx context.Context, portfolioID int64) error {
	portfolio, err := s.portfolioRepo.GetByID(ctx, portfolioID, nil)
	if err != nil {
		return storeError(err)
	}
	if portfolio == nil {
		return ErrPortfolioNotFound
	}
	if err := s.portfolioRepo.Delete(ctx, portfolioID); err != nil {
		return storeError(err)
	}
	return nil
}
