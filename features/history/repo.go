package history

import (
	"context"
	"database/sql"
)

type PostgresRepo struct {
	db *sql.DB
}

func NewPostgresRepo(db *sql.DB) *PostgresRepo {
	return &PostgresRepo{db: db}
}

func (r *PostgresRepo) Save(ctx context.Context, rec *Record) error {
	query := `INSERT INTO search_history (query_id, query, source_count, chunk_count, degraded, latency_ms)
		VALUES ($1, $2, $3, $4, $5, $6) RETURNING id, created_at`
	return r.db.QueryRowContext(ctx, query,
		rec.QueryID, rec.Query, rec.SourceCount, rec.ChunkCount, rec.Degraded, rec.LatencyMs,
	).Scan(&rec.ID, &rec.CreatedAt)
}

func (r *PostgresRepo) List(ctx context.Context, limit int) ([]Record, error) {
	query := `SELECT id, query_id, query, source_count, chunk_count, degraded, latency_ms, created_at
		FROM search_history ORDER BY created_at DESC LIMIT $1`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var rec Record
		if err := rows.Scan(&rec.ID, &rec.QueryID, &rec.Query, &rec.SourceCount, &rec.ChunkCount, &rec.Degraded, &rec.LatencyMs, &rec.CreatedAt); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, rows.Err()
}

func (r *PostgresRepo) Count(ctx context.Context) (int, error) {
	var count int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM search_history`).Scan(&count)
	return count, err
}
