package repositories

import (
	"context"

	"server/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TradeRepository interface {
	Create(ctx context.Context, t *models.Trade, tx pgx.Tx) error
	// GetByPortfolioID returns the trade history newest-first.
	GetByPortfolioID(ctx context.Context, portfolioID int64) ([]models.Trade, error)
	// GetForReplay returns trades in deterministic replay order
	// (created_at, then id) for balance reconstruction.
	GetForReplay(ctx context.Context, portfolioID int64, tx pgx.Tx) ([]models.Trade, error)
}

type tradeRepo struct {
	db *pgxpool.Pool
}

func NewTradeRepository(db *pgxpool.Pool) TradeRepository {
	return &tradeRepo{db: db}
}

const tradeColumns = `id, portfolio_id, symbol, side, quantity, price, total_amount, trade_date, created_at`

func (r *tradeRepo) Create(ctx context.Context, t *models.Trade, tx pgx.Tx) error {
	query := `
		INSERT INTO paper_trades (portfolio_id, symbol, side, quantity, price, total_amount, trade_date)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at`

	return pick(r.db, tx).QueryRow(ctx, query,
		t.PortfolioID, t.Symbol, t.Side, t.Quantity, t.Price, t.TotalAmount, t.TradeDate,
	).Scan(&t.ID, &t.CreatedAt)
}

func (r *tradeRepo) GetByPortfolioID(ctx context.Context, portfolioID int64) ([]models.Trade, error) {
	query := `SELECT ` + tradeColumns + `
		FROM paper_trades
		WHERE portfolio_id = $1
		ORDER BY created_at DESC, id DESC`

	rows, err := r.db.Query(ctx, query, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrades(rows)
}

func (r *tradeRepo) GetForReplay(ctx context.Context, portfolioID int64, tx pgx.Tx) ([]models.Trade, error) {
	query := `SELECT ` + tradeColumns + `
		FROM paper_trades
		WHERE portfolio_id = $1
		ORDER BY created_at ASC, id ASC`

	rows, err := pick(r.db, tx).Query(ctx, query, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanTrades(rows)
}

func scanTrades(rows pgx.Rows) ([]models.Trade, error) {
	var trades []models.Trade
	for rows.Next() {
		var t models.Trade
		if err := rows.Scan(
			&t.ID, &t.PortfolioID, &t.Symbol, &t.Side,
			&t.Quantity, &t.Price, &t.TotalAmount, &t.TradeDate, &t.CreatedAt,
		); err != nil {
			return nil, err
		}
		trades = append(trades, t)
	}
	return trades, rows.Err()
}
