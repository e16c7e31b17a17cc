package repositories

import (
	"context"
	"errors"

	"server/src/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
)

type PortfolioRepository interface {
	Create(ctx context.Context, p *models.Portfolio, tx pgx.Tx) error
	// GetByID returns (nil, nil) when the portfolio does not exist.
	GetByID(ctx context.Context, id int64, tx pgx.Tx) (*models.Portfolio, error)
	// GetByIDForUpdate locks the portfolio row for the lifetime of tx.
	// Every trade or repair against the same portfolio serializes on it.
	GetByIDForUpdate(ctx context.Context, id int64, tx pgx.Tx) (*models.Portfolio, error)
	// GetByUserID returns anonymous portfolios when userID is nil.
	GetByUserID(ctx context.Context, userID *int64) ([]models.Portfolio, error)
	GetAll(ctx context.Context) ([]models.Portfolio, error)
	UpdateCurrentBalance(ctx context.Context, id int64, balance decimal.Decimal, tx pgx.Tx) error
	UpdateInitialBalance(ctx context.Context, id int64, balance decimal.Decimal, tx pgx.Tx) error
	// Delete removes the portfolio; holdings and trades cascade.
	Delete(ctx context.Context, id int64) error
}

type portfolioRepo struct {
	db *pgxpool.Pool
}

func NewPortfolioRepository(db *pgxpool.Pool) PortfolioRepository {
	return &portfolioRepo{db: db}
}

const portfolioColumns = `id, user_id, name, description, initial_balance, current_balance, created_at, updated_at`

func (r *portfolioRepo) Create(ctx context.Context, p *models.Portfolio, tx pgx.Tx) error {
	query := `
		INSERT INTO paper_portfolios (user_id, name, description, initial_balance, current_balance)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at, updated_at`

	return pick(r.db, tx).QueryRow(ctx, query,
		p.UserID, p.Name, p.Description, p.InitialBalance, p.CurrentBalance,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
}

func (r *portfolioRepo) GetByID(ctx context.Context, id int64, tx pgx.Tx) (*models.Portfolio, error) {
	return r.getByID(ctx, id, tx, false)
}

func (r *portfolioRepo) GetByIDForUpdate(ctx context.Context, id int64, tx pgx.Tx) (*models.Portfolio, error) {
	return r.getByID(ctx, id, tx, true)
}

func (r *portfolioRepo) getByID(ctx context.Context, id int64, tx pgx.Tx, forUpdate bool) (*models.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM paper_portfolios WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var p models.Portfolio
	err := pick(r.db, tx).QueryRow(ctx, query, id).Scan(
		&p.ID, &p.UserID, &p.Name, &p.Description,
		&p.InitialBalance, &p.CurrentBalance, &p.CreatedAt, &p.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *portfolioRepo) GetByUserID(ctx context.Context, userID *int64) ([]models.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM paper_portfolios WHERE user_id IS NOT DISTINCT FROM $1 ORDER BY id`

	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPortfolios(rows)
}

func (r *portfolioRepo) GetAll(ctx context.Context) ([]models.Portfolio, error) {
	query := `SELECT ` + portfolioColumns + ` FROM paper_portfolios ORDER BY id`

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return scanPortfolios(rows)
}

func scanPortfolios(rows pgx.Rows) ([]models.Portfolio, error) {
	var portfolios []models.Portfolio
	for rows.Next() {
		var p models.Portfolio
		if err := rows.Scan(
			&p.ID, &p.UserID, &p.Name, &p.Description,
			&p.InitialBalance, &p.CurrentBalance, &p.CreatedAt, &p.UpdatedAt,
		); err != nil {
			return nil, err
		}
		portfolios = append(portfolios, p)
	}
	return portfolios, rows.Err()
}

func (r *portfolioRepo) UpdateCurrentBalance(ctx context.Context, id int64, balance decimal.Decimal, tx pgx.Tx) error {
	query := `UPDATE paper_portfolios SET current_balance = $1, updated_at = NOW() WHERE id = $2`

	affected, err := pick(r.db, tx).Exec(ctx, query, balance, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *portfolioRepo) UpdateInitialBalance(ctx context.Context, id int64, balance decimal.Decimal, tx pgx.Tx) error {
	query := `UPDATE paper_portfolios SET initial_balance = $1, updated_at = NOW() WHERE id = $2`

	affected, err := pick(r.db, tx).Exec(ctx, query, balance, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *portfolioRepo) Delete(ctx context.Context, id int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM paper_portfolios WHERE id = $1`, id)
	return err
}
