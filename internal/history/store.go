// Package history persists validation run summaries in Postgres so
// operators can review past uploads. Persistence is best-effort from the
// caller's point of view; a failed save never fails a run.
package history

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/agrikit/rsbsa-validator/internal/core"
)

const schema = `
CREATE TABLE IF NOT EXISTS validation_runs (
	id              UUID PRIMARY KEY,
	file_name       TEXT NOT NULL,
	total_rows      INTEGER NOT NULL,
	total_matched   INTEGER NOT NULL,
	total_unmatched INTEGER NOT NULL,
	valid_rows      INTEGER NOT NULL,
	invalid_rows    INTEGER NOT NULL,
	duration_ms     BIGINT NOT NULL,
	created_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_validation_runs_created_at
	ON validation_runs (created_at DESC);
`

// Store is the Postgres-backed run store. It implements core.RunStore.
type Store struct {
	pool *pgxpool.Pool
}

// NewStore creates the store and ensures the schema exists.
func NewStore(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("history: ensure schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

// SaveRun upserts one run summary. Reruns of the same upload overwrite
// the earlier summary.
func (s *Store) SaveRun(ctx context.Context, summary core.RunSummary) error {
	const q = `
		INSERT INTO validation_runs
			(id, file_name, total_rows, total_matched, total_unmatched,
			 valid_rows, invalid_rows, duration_ms, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO UPDATE SET
			total_matched   = EXCLUDED.total_matched,
			total_unmatched = EXCLUDED.total_unmatched,
			valid_rows      = EXCLUDED.valid_rows,
			invalid_rows    = EXCLUDED.invalid_rows,
			duration_ms     = EXCLUDED.duration_ms`

	_, err := s.pool.Exec(ctx, q,
		summary.ID, summary.FileName, summary.TotalRows,
		summary.TotalMatched, summary.TotalUnmatched,
		summary.ValidRows, summary.InvalidRows,
		summary.Duration.Milliseconds(), summary.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("history: save run: %w", err)
	}
	return nil
}

// ListRuns returns the most recent summaries, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]core.RunSummary, error) {
	if limit <= 0 {
		limit = 50
	}

	const q = `
		SELECT id, file_name, total_rows, total_matched, total_unmatched,
		       valid_rows, invalid_rows, duration_ms, created_at
		FROM validation_runs
		ORDER BY created_at DESC
		LIMIT $1`

	rows, err := s.pool.Query(ctx, q, limit)
	if err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	defer rows.Close()

	var summaries []core.RunSummary
	for rows.Next() {
		var sum core.RunSummary
		var durationMS int64
		if err := rows.Scan(
			&sum.ID, &sum.FileName, &sum.TotalRows,
			&sum.TotalMatched, &sum.TotalUnmatched,
			&sum.ValidRows, &sum.InvalidRows,
			&durationMS, &sum.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("history: scan run: %w", err)
		}
		sum.Duration = time.Duration(durationMS) * time.Millisecond
		summaries = append(summaries, sum)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: list runs: %w", err)
	}
	return summaries, nil
}

// PruneOlderThan deletes summaries created before the cutoff, returning
// the number removed.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM validation_runs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("history: prune runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
