package handlers_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"server/src/api/handlers"
	"server/src/services"
	"server/src/utils"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler() *handlers.Handler {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return &handlers.Handler{Logger: logger}
}

func TestHandleErrors_StatusMapping(t *testing.T) {
	h := newTestHandler()

	tests := []struct {
		name string
		err  error
		want int
	}{
		{
			name: "deadline exceeded",
			err:  context.DeadlineExceeded,
			want: http.StatusGatewayTimeout,
		},
		{
			name: "portfolio not found",
			err:  services.ErrPortfolioNotFound,
			want: http.StatusNotFound,
		},
		{
			name: "wrapped not found",
			err:  fmt.Errorf("loading portfolio: %w", services.ErrPortfolioNotFound),
			want: http.StatusNotFound,
		},
		{
			name: "invalid input",
			err:  &services.InvalidInputError{Reason: "quantity must be positive"},
			want: http.StatusBadRequest,
		},
		{
			name: "insufficient funds",
			err: &services.InsufficientFundsError{
				Required:  decimal.NewFromInt(1500),
				Available: decimal.NewFromInt(1000),
			},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "insufficient shares",
			err: &services.InsufficientSharesError{
				Symbol:    "AAPL",
				Owned:     decimal.NewFromInt(2),
				Requested: decimal.NewFromInt(5),
			},
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "no position",
			err:  services.ErrNoPosition,
			want: http.StatusUnprocessableEntity,
		},
		{
			name: "corrupt state",
			err:  &services.CorruptStateError{PortfolioID: 7, Field: "current_balance"},
			want: http.StatusConflict,
		},
		{
			name: "store unavailable",
			err:  fmt.Errorf("%w: connection refused", services.ErrStoreUnavailable),
			want: http.StatusServiceUnavailable,
		},
		{
			name: "explicit http error",
			err:  utils.BadRequest("portfolioId must be an integer"),
			want: http.StatusBadRequest,
		},
		{
			name: "unknown error",
			err:  fmt.Errorf("something unexpected"),
			want: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.HandleErrors(rec, tt.err)

			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

			var body map[string]string
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.NotEmpty(t, body["error"])
		})
	}
}
