package controllers

import (
	"context"

	"server/src/models"
	"server/src/schemas"
)

type PortfoliosControllerI interface {
	GetUserPortfolios(ctx context.Context, userID *int64) ([]models.Portfolio, error)
	CreatePortfolio(ctx context.Context, req *schemas.CreatePortfolioRequest) (*models.Portfolio, error)
	GetPortfolioDetails(ctx context.Context, portfolioID int64) (*schemas.PortfolioView, error)
	DeletePortfolio(ctx context.Context, portfolioID int64) error
	ExecuteTrade(ctx context.Context, portfolioID int64, order *schemas.TradeRequest) (*schemas.TradeResult, error)
	GetTradeHistory(ctx context.Context, portfolioID int64) ([]models.Trade, error)
	RepairBalance(ctx context.Context, portfolioID int64) (*models.Portfolio, error)
}

func (c *Controller) GetUserPortfolios(ctx context.Context, userID *int64) ([]models.Portfolio, error) {
	return c.TradingService.GetUserPortfolios(ctx, userID)
}

func (c *Controller) CreatePortfolio(ctx context.Context, req *schemas.CreatePortfolioRequest) (*models.Portfolio, error) {
	return c.TradingService.CreatePortfolio(ctx, req)
}

func (c *Controller) GetPortfolioDetails(ctx context.Context, portfolioID int64) (*schemas.PortfolioView, error) {
	return c.Valuation.GetPortfolioDetails(ctx, portfolioID)
}

func (c *Controller) DeletePortfolio(ctx context.Context, portfolioID int64) error {
	return c.TradingService.DeletePortfolio(ctx, portfolioID)
}

func (c *Controller) ExecuteTrade(ctx context.Context, portfolioID int64, order *schemas.TradeRequest) (*schemas.TradeResult, error) {
	return c.TradingService.ExecuteTrade(ctx, portfolioID, order)
}

func (c *Controller) GetTradeHistory(ctx context.Context, portfolioID int64) ([]models.Trade, error) {
	return c.TradingService.GetTradeHistory(ctx, portfolioID)
}

func (c *Controller) RepairBalance(ctx context.Context, portfolioID int64) (*models.Portfolio, error) {
	return c.Reconciler.Repair(ctx, portfolioID)
}
