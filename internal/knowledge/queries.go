package knowledge

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const (
	insertChunkSQL = `
		INSERT INTO documents (content, embedding, metadata)
		VALUES ($1, $2, $3)`

	searchChunksSQL = `
		SELECT content, metadata, 1 - (embedding <=> $1) AS similarity
		FROM documents
		WHERE metadata @> $2
		ORDER BY embedding <=> $1
		LIMIT $3`

	searchChunksAllSQL = `
		SELECT content, metadata, 1 - (embedding <=> $1) AS similarity
		FROM documents
		ORDER BY embedding <=> $1
		LIMIT $2`

	countChunksSQL = `
		SELECT count(*) FROM documents WHERE metadata @> $1`

	deleteChunksSQL = `
		DELETE FROM documents WHERE metadata @> $1`
)

// PGQuerier implements Querier over a pgx connection pool. The pool
// must have pgvector types registered (see db.NewPool).
type PGQuerier struct {
	pool *pgxpool.Pool
}

// NewPGQuerier wraps a pool in a PGQuerier.
func NewPGQuerier(pool *pgxpool.Pool) *PGQuerier {
	return &PGQuerier{pool: pool}
}

// InsertChunks writes all rows in one batch inside a transaction, so a
// failure leaves no partial ingestion behind.
func (q *PGQuerier) InsertChunks(ctx context.Context, rows []ChunkRow) error {
	if len(rows) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(insertChunkSQL, row.Content, row.Embedding, row.Metadata)
	}

	tx, err := q.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("executing insert batch: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing transaction: %w", err)
	}
	return nil
}

// SearchChunks runs a cosine-distance ordered scan. The JSONB
// containment filter is applied before ordering so session isolation
// holds regardless of limit.
func (q *PGQuerier) SearchChunks(ctx context.Context, arg SearchParams) ([]SearchRow, error) {
	var (
		rows pgx.Rows
		err  error
	)
	if len(arg.Filter) > 0 {
		rows, err = q.pool.Query(ctx, searchChunksSQL, arg.Embedding, arg.Filter, arg.Limit)
	} else {
		rows, err = q.pool.Query(ctx, searchChunksAllSQL, arg.Embedding, arg.Limit)
	}
	if err != nil {
		return nil, fmt.Errorf("querying chunks: %w", err)
	}
	defer rows.Close()

	var results []SearchRow
	for rows.Next() {
		var r SearchRow
		if err := rows.Scan(&r.Content, &r.Metadata, &r.Similarity); err != nil {
			return nil, fmt.Errorf("scanning chunk row: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating chunk rows: %w", err)
	}
	return results, nil
}

// CountChunks returns the number of rows matching the metadata filter.
func (q *PGQuerier) CountChunks(ctx context.Context, filter []byte) (int64, error) {
	var n int64
	if err := q.pool.QueryRow(ctx, countChunksSQL, filter).Scan(&n); err != nil {
		return 0, fmt.Errorf("counting chunks: %w", err)
	}
	return n, nil
}

// DeleteChunks removes rows matching the metadata filter and reports
// how many were deleted.
func (q *PGQuerier) DeleteChunks(ctx context.Context, filter []byte) (int64, error) {
	tag, err := q.pool.Exec(ctx, deleteChunksSQL, filter)
	if err != nil {
		return 0, fmt.Errorf("deleting chunks: %w", err)
	}
	return tag.RowsAffected(), nil
}
