package goals

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/zamanbank/assistant/internal/analytics"
)

// PostgresQuerier reads transactions and goals from PostgreSQL.
type PostgresQuerier struct {
	pool *pgxpool.Pool
}

// NewPostgresQuerier wraps a connection pool.
func NewPostgresQuerier(pool *pgxpool.Pool) *PostgresQuerier {
	return &PostgresQuerier{pool: pool}
}

// AllTransactions returns the full transaction table. The feature build
// needs every user, so no window applies here.
func (q *PostgresQuerier) AllTransactions(ctx context.Context) ([]analytics.Transaction, error) {
	const query = `
		SELECT id, user_id, from_account_id, occurred_at, amount, currency, category
		FROM transactions
		ORDER BY occurred_at`

	rows, err := q.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("querying transactions: %w", err)
	}
	defer rows.Close()

	var txs []analytics.Transaction
	for rows.Next() {
		var tx analytics.Transaction
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

// FinishedGoals returns the user's completed savings goals.
func (q *PostgresQuerier) FinishedGoals(ctx context.Context, userID int64) ([]Goal, error) {
	const query = `
		SELECT user_id, name, target_amount, currency, deadline, finished
		FROM financial_goals
		WHERE user_id = $1 AND finished`

	rows, err := q.pool.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("querying goals: %w", err)
	}
	defer rows.Close()

	var out []Goal
	for rows.Next() {
		var g Goal
		if err := rows.Scan(&g.UserID, &g.Name, &g.TargetAmount, &g.Currency,
			&g.Deadline, &g.Finished); err != nil {
			return nil, fmt.Errorf("scanning goal: %w", err)
		}
		out = append(out, g)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating goals: %w", err)
	}
	return out, nil
}
