package quotes

import (
	"context"
	"errors"
	"fmt"
	"time"

	"server/src/config"

	"github.com/shopspring/decimal"
	"resty.dev/v3"
)

const _priceURL = "/api/market/price"

// ErrUnavailable means the quote source could not supply a usable price.
// Valuation falls back to cost basis; callers must not treat it as fatal.
var ErrUnavailable = errors.New("quote source unavailable")

type ServiceI interface {
	GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error)
}

type ServiceClient struct {
	c *resty.Client
}

func NewClient(cfg *config.Config) *ServiceClient {
	timeout := time.Duration(cfg.ExternalClients.Quotes.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	client := resty.New().
		SetBaseURL(cfg.ExternalClients.Quotes.BaseURL).
		SetTimeout(timeout)

	return &ServiceClient{c: client}
}

// GetPrice fetches the current price for one symbol. Any transport error,
// non-2xx answer or non-positive price is reported as ErrUnavailable.
func (s *ServiceClient) GetPrice(ctx context.Context, symbol string) (decimal.Decimal, error) {
	if symbol == "" {
		return decimal.Zero, fmt.Errorf("%w: empty symbol", ErrUnavailable)
	}

	resp, err := s.c.R().
		SetContext(ctx).
		SetQueryParam("symbol", symbol).
		SetResult(&GetPriceResponse{}).
		Get(_priceURL)
	if err != nil {
		return decimal.Zero, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.IsError() {
		return decimal.Zero, fmt.Errorf("%w: status %s", ErrUnavailable, resp.Status())
	}

	priceResp, ok := resp.Result().(*GetPriceResponse)
	if !ok || priceResp == nil {
		return decimal.Zero, fmt.Errorf("%w: malformed response", ErrUnavailable)
	}
	if !priceResp.Data.Price.IsPositive() {
		return decimal.Zero, fmt.Errorf("%w: no price for %s", ErrUnavailable, symbol)
	}
	return priceResp.Data.Price, nil
}
