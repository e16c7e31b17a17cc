package controllers

import (
	"server/src/services"
)

type IController interface {
	PortfoliosControllerI
}

type Controller struct {
	TradingService services.PaperTradingServiceI
	Reconciler     services.ReconcilerServiceI
	Valuation      services.ValuationServiceI
}

func NewController(
	tradingService services.PaperTradingServiceI,
	reconciler services.ReconcilerServiceI,
	valuation services.ValuationServiceI,
) *Controller {
	return &Controller{
		TradingService: tradingService,
		Reconciler:     reconciler,
		Valuation:      valuation,
	}
}
