package services

import (
	"context"

	"server/src/models"
	"server/src/repositories"
	"server/src/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
)

// ReconcilerService reconstructs portfolio cash balances from trade history.
// It is the single place that is allowed to replace a stored balance: every
// code path that finds an unusable balance routes here instead of guessing.
type ReconcilerServiceI interface {
	Recalculate(ctx context.Context, portfolioID int64) (decimal.Decimal, error)
	Repair(ctx context.Context, portfolioID int64) (*models.Portfolio, error)
	RepairAll(ctx context.Context) error
}

type ReconcilerService struct {
	db            TxBeginner
	portfolioRepo repositories.PortfolioRepository
	tradeRepo     repositories.TradeRepository
}

func NewReconcilerService(
	db TxBeginner,
	portfolioRepo repositories.PortfolioRepository,
	tradeRepo repositories.TradeRepository,
) *ReconcilerService {
	return &ReconcilerService{
		db:            db,
		portfolioRepo: portfolioRepo,
		tradeRepo:     tradeRepo,
	}
}

// Recalculate returns what current_balance should be: initial_balance plus
// SELL totals minus BUY totals, replayed in creation order. Read-only.
func (s *ReconcilerService) Recalculate(ctx context.Context, portfolioID int64) (decimal.Decimal, error) {
	portfolio, err := s.portfolioRepo.GetByID(ctx, portfolioID, nil)
	if err != nil {
		return decimal.Zero, storeError(err)
	}
	if portfolio == nil {
		return decimal.Zero, ErrPortfolioNotFound
	}

	trades, err := s.tradeRepo.GetForReplay(ctx, portfolioID, nil)
	if err != nil {
		return decimal.Zero, storeError(err)
	}

	initial := initialBalanceOrDefault(portfolio)
	return replayTrades(initial, trades), nil
}

// Repair recomputes the balance under the same portfolio-row lock trades
// use and persists the result. An invalid initial_balance is first reset to
// the default cash grant and persisted. Idempotent: repairing twice without
// intervening trades stores the same value both times.
func (s *ReconcilerService) Repair(ctx context.Context, portfolioID int64) (*models.Portfolio, error) {
	logger := utils.LoggerFromContext(ctx)

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

	initial := initialBalanceOrDefault(portfolio)
	if !portfolio.InitialBalance.Valid || !portfolio.InitialBalance.Decimal.IsPositive() {
		logger.WithFields(logrus.Fields{
			"portfolio_id": portfolioID,
			"incident":     "data_integrity",
			"default":      initial.String(),
		}).Warn("invalid initial balance, resetting to default grant")
		if err := s.portfolioRepo.UpdateInitialBalance(ctx, portfolioID, initial, tx); err != nil {
			return nil, storeError(err)
		}
		portfolio.InitialBalance = decimal.NewNullDecimal(initial)
	}

	trades, err := s.tradeRepo.GetForReplay(ctx, portfolioID, tx)
	if err != nil {
		return nil, storeError(err)
	}
	calculated := replayTrades(initial, trades)

	if err := s.portfolioRepo.UpdateCurrentBalance(ctx, portfolioID, calculated, tx); err != nil {
		return nil, storeError(err)
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, storeError(err)
	}

	stored := "invalid"
	if portfolio.CurrentBalance.Valid {
		stored = portfolio.CurrentBalance.Decimal.String()
	}
	logger.WithFields(logrus.Fields{
		"portfolio_id":       portfolioID,
		"trades":             len(trades),
		"stored_balance":     stored,
		"calculated_balance": calculated.String(),
	}).Info("portfolio balance repaired")

	portfolio.CurrentBalance = decimal.NewNullDecimal(calculated)
	return portfolio, nil
}

// RepairAll sweeps every portfolio. Failures are logged and skipped so one
// broken portfolio does not stop the sweep.
func (s *ReconcilerService) RepairAll(ctx context.Context) error {
	logger := utils.LoggerFromContext(ctx)

	portfolios, err := s.portfolioRepo.GetAll(ctx)
	if err != nil {
		return storeError(err)
	}

	for _, p := range portfolios {
		if _, err := s.Repair(ctx, p.ID); err != nil {
			logger.WithError(err).WithField("portfolio_id", p.ID).Error("balance repair failed")
		}
	}
	logger.WithField("portfolios", len(portfolios)).Info("balance repair sweep finished")
	return nil
}

func initialBalanceOrDefault(p *models.Portfolio) decimal.Decimal {
	if p.InitialBalance.Valid && p.InitialBalance.Decimal.IsPositive() {
		return p.InitialBalance.Decimal
	}
	return utils.DefaultInitialBalance
}

func replayTrades(initial decimal.Decimal, trades []models.Trade) decimal.Decimal {
	balance := initial
	for _, t := range trades {
		switch t.Side {
		case models.TradeSideBuy:
			balance = balance.Sub(t.TotalAmount)
		case models.TradeSideSell:
			balance = balance.Add(t.TotalAmount)
		}
	}
	return balance.Round(utils.MoneyScale)
}
