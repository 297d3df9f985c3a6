package postgres

import (
	"context"
	"fmt"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS application_scores (
	application_id TEXT PRIMARY KEY,
	score          DOUBLE PRECISION NOT NULL CHECK (score >= 0 AND score <= 100),
	explanation    TEXT NOT NULL,
	ml_prediction  TEXT NOT NULL,
	ml_confidence  TEXT NOT NULL,
	fallback       BOOLEAN NOT NULL DEFAULT FALSE,
	scored_at      TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS application_scores_scored_at_idx ON application_scores (scored_at);
`

// EnsureSchema creates the application_scores table when missing.
func EnsureSchema(ctx context.Context, p PgxPool) error {
	if _, err := p.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("op=postgres.EnsureSchema: %w", err)
	}
	return nil
}
