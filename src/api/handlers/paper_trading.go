package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"server/src/schemas"
	"server/src/utils"

	"github.com/go-chi/chi/v5"
)

const requestTimeout = 10 * time.Second

func (h *Handler) requestContext(r *http.Request) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	return utils.WithLogger(ctx, h.Logger), cancel
}

func portfolioIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "portfolioId"), 10, 64)
}

func userIDQuery(r *http.Request) (*int64, error) {
	raw := r.URL.Query().Get("userId")
	if raw == "" {
		return nil, nil
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return nil, err
	}
	return &id, nil
}

func (h *Handler) GetUserPortfolios(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	userID, err := userIDQuery(r)
	if err != nil {
		h.HandleErrors(w, utils.BadRequest("userId must be an integer"))
		return
	}

	portfolios, err := h.Controller.GetUserPortfolios(ctx, userID)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, portfolios, http.StatusOK)
}

func (h *Handler) CreatePortfolio(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	var req schemas.CreatePortfolioRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.HandleErrors(w, utils.BadRequest("invalid request body"))
		return
	}

	portfolio, err := h.Controller.CreatePortfolio(ctx, &req)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, portfolio, http.StatusCreated)
}

func (h *Handler) GetPortfolioDetails(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	portfolioID, err := portfolioIDParam(r)
	if err != nil {
		h.HandleErrors(w, utils.BadRequest("portfolioId must be an integer"))
		return
	}

	view, err := h.Controller.GetPortfolioDetails(ctx, portfolioID)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, view, http.StatusOK)
}

func (h *Handler) DeletePortfolio(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	portfolioID, err := portfolioIDParam(r)
	if err != nil {
		h.HandleErrors(w, utils.BadRequest("portfolioId must be an integer"))
		return
	}

	if err := h.Controller.DeletePortfolio(ctx, portfolioID); err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, map[string]string{"message": "portfolio deleted"}, http.StatusOK)
}

func (h *Handler) ExecuteTrade(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	portfolioID, err := portfolioIDParam(r)
	if err != nil {
		h.HandleErrors(w, utils.BadRequest("portfolioId must be an integer"))
		return
	}

	var order schemas.TradeRequest
	if err := json.NewDecoder(r.Body).Decode(&order); err != nil {
		h.HandleErrors(w, utils.BadRequest("invalid request body"))
		return
	}

	result, err := h.Controller.ExecuteTrade(ctx, portfolioID, &order)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, result, http.StatusOK)
}

func (h *Handler) GetTradeHistory(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	portfolioID, err := portfolioIDParam(r)
	if err != nil {
		h.HandleErrors(w, utils.BadRequest("portfolioId must be an integer"))
		return
	}

	trades, err := h.Controller.GetTradeHistory(ctx, portfolioID)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, trades, http.StatusOK)
}

func (h *Handler) RepairBalance(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := h.requestContext(r)
	defer cancel()

	portfolioID, err := portfolioIDParam(r)
	if err != nil {
		h.HandleErrors(w, utils.BadRequest("portfolioId must be an integer"))
		return
	}

	portfolio, err := h.Controller.RepairBalance(ctx, portfolioID)
	if err != nil {
		h.HandleErrors(w, err)
		return
	}
	h.respond(w, r, portfolio, http.StatusOK)
}
