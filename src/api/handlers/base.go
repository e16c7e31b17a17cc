package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"server/src/api/controllers"
	"server/src/clients/quotes"
	"server/src/config"
	"server/src/database"
	"server/src/repositories"
	"server/src/services"
	"server/src/utils"

	"github.com/sirupsen/logrus"
)

type Handler struct {
	Controller controllers.IController
	Logger     *logrus.Logger
}

func NewHandler(cfg *config.Config, logger *logrus.Logger) (*Handler, error) {
	db, err := database.SetupDB(cfg)
	if err != nil {
		return nil, err
	}

	portfolioRepo := repositories.NewPortfolioRepository(db)
	holdingRepo := repositories.NewHoldingRepository(db)
	tradeRepo := repositories.NewTradeRepository(db)

	tradingService := services.NewPaperTradingService(db, portfolioRepo, holdingRepo, tradeRepo)
	reconciler := services.NewReconcilerService(db, portfolioRepo, tradeRepo)
	valuation := services.NewValuationService(db, portfolioRepo, holdingRepo, quotes.NewClient(cfg))

	controller := controllers.NewController(tradingService, reconciler, valuation)
	return &Handler{Controller: controller, Logger: logger}, nil
}

func (h *Handler) respond(w http.ResponseWriter, _ *http.Request, data interface{}, status int) {
	res, err := json.Marshal(data)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.WriteHeader(status)
	_, _ = w.Write(res)
}

// HandleErrors maps the domain error taxonomy onto HTTP statuses.
func (h *Handler) HandleErrors(w http.ResponseWriter, err error) {
	var (
		httpErr    *utils.HTTPError
		invalidErr *services.InvalidInputError
		fundsErr   *services.InsufficientFundsError
		sharesErr  *services.InsufficientSharesError
		corruptErr *services.CorruptStateError
	)

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		h.respond(w, nil, map[string]string{"error": "Request timed out"}, http.StatusGatewayTimeout)
	case errors.Is(err, services.ErrPortfolioNotFound):
		h.respond(w, nil, map[string]string{"error": err.Error()}, http.StatusNotFound)
	case errors.As(err, &invalidErr):
		h.respond(w, nil, map[string]string{"error": err.Error()}, http.StatusBadRequest)
	case errors.Is(err, services.ErrNoPosition),
		errors.As(err, &fundsErr),
		errors.As(err, &sharesErr):
		h.respond(w, nil, map[string]string{"error": err.Error()}, http.StatusUnprocessableEntity)
	case errors.As(err, &corruptErr):
		h.respond(w, nil, map[string]string{"error": err.Error()}, http.StatusConflict)
	case errors.Is(err, services.ErrStoreUnavailable):
		h.respond(w, nil, map[string]string{"error": "storage temporarily unavailable"}, http.StatusServiceUnavailable)
	case errors.As(err, &httpErr):
		h.respond(w, nil, map[string]string{"error": httpErr.Message}, httpErr.Code)
	case err != nil:
		h.respond(w, nil, map[string]string{"error": err.Error()}, http.StatusInternalServerError)
	default:
		h.respond(w, nil, map[string]string{"error": "Unhandled error"}, http.StatusInternalServerError)
	}
}
