package schemas

import (
	"time"

	"server/src/models"

	"github.com/shopspring/decimal"
)

type CreatePortfolioRequest struct {
	UserID         *int64           `json:"userId,omitempty"`
	Name           string           `json:"name"`
	Description    string           `json:"description,omitempty"`
	InitialBalance *decimal.Decimal `json:"initialBalance,omitempty"`
}

type TradeRequest struct {
	Symbol      string          `json:"symbol"`
	Side        string          `json:"side"`
	Quantity    decimal.Decimal `json:"quantity"`
	Price       decimal.Decimal `json:"price"`
	CompanyName string          `json:"companyName,omitempty"`
}

// TradeResult is the executed trade annotated with the balance it left
// behind, for caller convenience.
type TradeResult struct {
	Trade      models.Trade    `json:"trade"`
	NewBalance decimal.Decimal `json:"newBalance"`
}

type HoldingView struct {
	ID              int64           `json:"id"`
	Symbol          string          `json:"symbol"`
	CompanyName     string          `json:"companyName"`
	Quantity        decimal.Decimal `json:"quantity"`
	AverageBuyPrice decimal.Decimal `json:"averageBuyPrice"`
	// CurrentPrice is the live quote when LiveQuote is true; otherwise it is
	// the average buy price and the valuation is a cost-basis fallback.
	CurrentPrice     decimal.Decimal `json:"currentPrice"`
	LiveQuote        bool            `json:"liveQuote"`
	InvestmentValue  decimal.Decimal `json:"investmentValue"`
	MarketValue      decimal.Decimal `json:"marketValue"`
	Profit           decimal.Decimal `json:"profit"`
	ProfitPercentage decimal.Decimal `json:"profitPercentage"`
}

type PortfolioView struct {
	ID                  int64           `json:"id"`
	UserID              *int64          `json:"userId,omitempty"`
	Name                string          `json:"name"`
	Description         string          `json:"description,omitempty"`
	InitialBalance      decimal.Decimal `json:"initialBalance"`
	CurrentBalance      decimal.Decimal `json:"currentBalance"`
	Holdings            []HoldingView   `json:"holdings"`
	TotalInvestment     decimal.Decimal `json:"totalInvestment"`
	TotalMarketValue    decimal.Decimal `json:"totalMarketValue"`
	TotalPortfolioValue decimal.Decimal `json:"totalPortfolioValue"`
	TotalProfit         decimal.Decimal `json:"totalProfit"`
	ProfitPercentage    decimal.Decimal `json:"profitPercentage"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
}
