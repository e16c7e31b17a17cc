package repositories

import (
	"context"
	"errors"

	"server/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type HoldingRepository interface {
	// GetActiveBySymbol returns (nil, nil) when the portfolio has no active
	// position in the symbol.
	GetActiveBySymbol(ctx context.Context, portfolioID int64, symbol string, tx pgx.Tx) (*models.Holding, error)
	GetActiveByPortfolioID(ctx context.Context, portfolioID int64, tx pgx.Tx) ([]models.Holding, error)
	Create(ctx context.Context, h *models.Holding, tx pgx.Tx) error
	Update(ctx context.Context, h *models.Holding, tx pgx.Tx) error
}

type holdingRepo struct {
	db *pgxpool.Pool
}

func NewHoldingRepository(db *pgxpool.Pool) HoldingRepository {
	return &holdingRepo{db: db}
}

const holdingColumns = `id, portfolio_id, symbol, company_name, quantity, average_buy_price, is_active, created_at, updated_at`

func (r *holdingRepo) GetActiveBySymbol(ctx context.Context, portfolioID int64, symbol string, tx pgx.Tx) (*models.Holding, error) {
	query := `SELECT ` + holdingColumns + `
		FROM paper_holdings
		WHERE portfolio_id = $1 AND symbol = $2 AND is_active`

	var h models.Holding
	err := pick(r.db, tx).QueryRow(ctx, query, portfolioID, symbol).Scan(
		&h.ID, &h.PortfolioID, &h.Symbol, &h.CompanyName,
		&h.Quantity, &h.AverageBuyPrice, &h.Active, &h.CreatedAt, &h.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

func (r *holdingRepo) GetActiveByPortfolioID(ctx context.Context, portfolioID int64, tx pgx.Tx) ([]models.Holding, error) {
	query := `SELECT ` + holdingColumns + `
		FROM paper_holdings
		WHERE portfolio_id = $1 AND is_active
		ORDER BY symbol`

	rows, err := pick(r.db, tx).Query(ctx, query, portfolioID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		var h models.Holding
		if err := rows.Scan(
			&h.ID, &h.PortfolioID, &h.Symbol, &h.CompanyName,
			&h.Quantity, &h.AverageBuyPrice, &h.Active, &h.CreatedAt, &h.UpdatedAt,
		); err != nil {
			return nil, err
		}
		holdings = append(holdings, h)
	}
	return holdings, rows.Err()
}

func (r *holdingRepo) Create(ctx context.Context, h *models.Holding, tx pgx.Tx) error {
	query := `
		INSERT INTO paper_holdings (portfolio_id, symbol, company_name, quantity, average_buy_price, is_active)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at`

	return pick(r.db, tx).QueryRow(ctx, query,
		h.PortfolioID, h.Symbol, h.CompanyName, h.Quantity, h.AverageBuyPrice, h.Active,
	).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
}

func (r *holdingRepo) Update(ctx context.Context, h *models.Holding, tx pgx.Tx) error {
	query := `
		UPDATE paper_holdings
		SET quantity = $1, average_buy_price = $2, is_active = $3, updated_at = NOW()
		WHERE id = $4`

	affected, err := pick(r.db, tx).Exec(ctx, query,
		h.Quantity, h.AverageBuyPrice, h.Active, h.ID,
	)
	if err != nil {
		return err
	}
	if affected == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
