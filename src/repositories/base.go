package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier dispatches to a caller-provided transaction when one is set, and to
// the pool otherwise, so every repository method can take an optional pgx.Tx.
type querier struct {
	pool *pgxpool.Pool
	tx   pgx.Tx
}

func pick(pool *pgxpool.Pool, tx pgx.Tx) querier {
	return querier{pool: pool, tx: tx}
}

func (q querier) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	if q.tx != nil {
		return q.tx.Query(ctx, sql, args...)
	}
	return q.pool.Query(ctx, sql, args...)
}

func (q querier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	if q.tx != nil {
		return q.tx.QueryRow(ctx, sql, args...)
	}
	return q.pool.QueryRow(ctx, sql, args...)
}

func (q querier) Exec(ctx context.Context, sql string, args ...any) (int64, error) {
	if q.tx != nil {
		tag, err := q.tx.Exec(ctx, sql, args...)
		return tag.RowsAffected(), err
	}
	tag, err := q.pool.Exec(ctx, sql, args...)
	return tag.RowsAffected(), err
}
