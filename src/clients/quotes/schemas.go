package quotes

import "github.com/shopspring/decimal"

type GetPriceResponse struct {
	Success bool      `json:"success"`
	Data    PriceData `json:"data"`
}

type PriceData struct {
	Symbol      string          `json:"symbol"`
	CompanyName string          `json:"companyName,omitempty"`
	Price       decimal.Decimal `json:"price"`
	AsOf        string          `json:"asOf,omitempty"`
}
