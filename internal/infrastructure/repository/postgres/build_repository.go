package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kirillkom/hybrid-rag/internal/core/domain"
)

const (
	defaultListLimit = 20
	maxListLimit     = 500
	schemaLockID     = int64(2026101801)
)

// BuildRepository is the build ledger backed by the kb_builds table.
type BuildRepository struct {
	db *sql.DB
}

func NewBuildRepository(db *sql.DB) *BuildRepository {
	return &BuildRepository{db: db}
}

func (r *BuildRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// api and worker may start together.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockID); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS kb_builds (
	id TEXT PRIMARY KEY,
	trigger TEXT NOT NULL,
	chunk_count INTEGER NOT NULL,
	source_documents INTEGER NOT NULL,
	embed_model_id TEXT NOT NULL,
	built_at TIMESTAMPTZ NOT NULL,
	duration_ms BIGINT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_kb_builds_built_at ON kb_builds(built_at DESC);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *BuildRepository) RecordBuild(ctx context.Context, record domain.BuildRecord) error {
	if record.ID == "" {
		return domain.WrapError(domain.ErrInvalidInput, "record build", fmt.Errorf("empty build id"))
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO kb_builds (id, trigger, chunk_count, source_documents, embed_model_id, built_at, duration_ms)
VALUES ($1,$2,$3,$4,$5,$6,$7)
`,
		record.ID, string(record.Trigger), record.ChunkCount, record.SourceDocuments,
		record.EmbedModelID, record.BuiltAt.UTC(), record.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("insert kb build: %w", err)
	}
	return nil
}

// ListBuilds returns the most recent builds first.
func (r *BuildRepository) ListBuilds(ctx context.Context, limit int) ([]domain.BuildRecord, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	rows, err := r.db.QueryContext(ctx, `
SELECT id, trigger, chunk_count, source_documents, embed_model_id, built_at, duration_ms
FROM kb_builds
ORDER BY built_at DESC, id
LIMIT $1
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query kb builds: %w", err)
	}
	defer rows.Close()

	out := make([]domain.BuildRecord, 0, limit)
	for rows.Next() {
		var (
			rec        domain.BuildRecord
			trigger    string
			durationMS int64
		)
		if err := rows.Scan(
			&rec.ID, &trigger, &rec.ChunkCount, &rec.SourceDocuments,
			&rec.EmbedModelID, &rec.BuiltAt, &durationMS,
		); err != nil {
			return nil, fmt.Errorf("scan kb build: %w", err)
		}
		rec.Trigger = domain.BuildTrigger(trigger)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate kb builds: %w", err)
	}
	return out, nil
}
