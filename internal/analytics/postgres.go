package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PostgresQuerier reads transactions from the bank's PostgreSQL schema.
// Safe for concurrent use (the pool is).
type PostgresQuerier struct {
	pool *pgxpool.Pool
}

// NewPostgresQuerier wraps a connection pool.
func NewPostgresQuerier(pool *pgxpool.Pool) *PostgresQuerier {
	return &PostgresQuerier{pool: pool}
}

// TransactionsSince returns all transactions at or after since, oldest
// first. A zero since returns the full table.
func (q *PostgresQuerier) TransactionsSince(ctx context.Context, since time.Time) ([]Transaction, error) {
	const query = `
		SELECT id, user_id, from_account_id, occurred_at, amount, currency, category
		FROM transactions
		WHERE occurred_at >= $1
		ORDER BY occurred_at`

	rows, err := q.pool.Query(ctx, query, since)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var txs []Transaction
	for rows.Next() {
		var tx Transaction
		if err := rows.Scan(&tx.ID, &tx.UserID, &tx.FromAccountID, &tx.OccurredAt,
			&tx.Amount, &tx.Currency, &tx.Category); err != nil {
			return nil, fmt.Errorf("scanning transaction: %w", err)
		}
		txs = append(txs, tx)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating transactions: %w", err)
	}
	return txs, nil
}
