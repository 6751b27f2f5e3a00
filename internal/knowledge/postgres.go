package knowledge

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// PostgresQuerier implements Querier against the faq_documents table.
type PostgresQuerier struct {
	pool *pgxpool.Pool
}

// NewPostgresQuerier wraps a connection pool.
func NewPostgresQuerier(pool *pgxpool.Pool) *PostgresQuerier {
	return &PostgresQuerier{pool: pool}
}

// UpsertDocument inserts or replaces a document by id.
func (q *PostgresQuerier) UpsertDocument(ctx context.Context, id, content string, embedding pgvector.Vector, metadata []byte, createdAt time.Time) error {
	const query = `
		INSERT INTO faq_documents (id, content, embedding, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO UPDATE SET
			content = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata`

	if _, err := q.pool.Exec(ctx, query, id, content, embedding, metadata, createdAt); err != nil {
		return fmt.Errorf("upserting document: %w", err)
	}
	return nil
}

// SearchDocuments orders by cosine distance. 1 - distance gives the
// similarity the caller thresholds on. A nil filter matches everything.
func (q *PostgresQuerier) SearchDocuments(ctx context.Context, embedding pgvector.Vector, filter []byte, limit int32) ([]Row, error) {
	const query = `
		SELECT id, content, metadata, created_at,
		       1 - (embedding <=> $1) AS similarity
		FROM faq_documents
		WHERE $2::jsonb IS NULL OR metadata @> $2
		ORDER BY embedding <=> $1
		LIMIT $3`

	rows, err := q.pool.Query(ctx, query, embedding, nullableJSON(filter), limit)
	if err != nil {
		return nil, fmt.Errorf("searching documents: %w", err)
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		var r Row
		if err := rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.CreatedAt, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning document: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating documents: %w", err)
	}
	return out, nil
}

// CountDocuments counts documents matching the filter (nil = all).
func (q *PostgresQuerier) CountDocuments(ctx context.Context, filter []byte) (int64, error) {
	const query = `
		SELECT count(*) FROM faq_documents
		WHERE $1::jsonb IS NULL OR metadata @> $1`

	var count int64
	if err := q.pool.QueryRow(ctx, query, nullableJSON(filter)).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting documents: %w", err)
	}
	return count, nil
}

// DeleteDocument removes a document by id.
func (q *PostgresQuerier) DeleteDocument(ctx context.Context, id string) error {
	if _, err := q.pool.Exec(ctx, `DELETE FROM faq_documents WHERE id = $1`, id); err != nil {
		return fmt.Errorf("deleting document: %w", err)
	}
	return nil
}

// nullableJSON maps an empty filter to SQL NULL so the WHERE clause can
// short-circuit.
func nullableJSON(b []byte) any {
	if len(b) == 0 {
		return nil
	}
	return b
}
