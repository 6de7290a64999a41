package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"

	"github.com/kirillkom/manual-rag/internal/core/domain"
)

// SourceRepository is the ingestion ledger: one row per source file with
// its content hash and indexing status.
type SourceRepository struct {
	db *sql.DB
}

func NewSourceRepository(db *sql.DB) *SourceRepository {
	return &SourceRepository{db: db}
}

func OpenDB(dsn string) (*sql.DB, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, fmt.Errorf("sql open: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(30 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("db ping: %w", err)
	}
	return db, nil
}

func (r *SourceRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across concurrent populate runs.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026082701)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS sources (
	path TEXT PRIMARY KEY,
	content_hash TEXT NOT NULL,
	pages INTEGER NOT NULL DEFAULT 0,
	chunks INTEGER NOT NULL DEFAULT 0,
	status TEXT NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sources_status ON sources(status);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *SourceRepository) GetByPath(ctx context.Context, path string) (*domain.SourceRecord, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT path, content_hash, pages, chunks, status, error_message, created_at, updated_at
FROM sources
WHERE path = $1
`, path)

	var rec domain.SourceRecord
	var status string
	var errMessage sql.NullString

	err := row.Scan(
		&rec.Path, &rec.ContentHash, &rec.Pages, &rec.Chunks, &status, &errMessage, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrSourceNotFound, "get source", fmt.Errorf("no ledger row for %s", path))
		}
		return nil, fmt.Errorf("scan source: %w", err)
	}

	rec.Status = domain.SourceStatus(status)
	rec.Error = errMessage.String
	return &rec, nil
}

func (r *SourceRepository) Upsert(ctx context.Context, rec *domain.SourceRecord) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO sources (path, content_hash, pages, chunks, status, error_message, created_at, updated_at)
VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
ON CONFLICT (path) DO UPDATE
SET content_hash = EXCLUDED.content_hash,
	pages = EXCLUDED.pages,
	chunks = EXCLUDED.chunks,
	status = EXCLUDED.status,
	error_message = EXCLUDED.error_message,
	updated_at = EXCLUDED.updated_at
`,
		rec.Path, rec.ContentHash, rec.Pages, rec.Chunks, string(rec.Status), rec.Error, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert source: %w", err)
	}
	return nil
}

func (r *SourceRepository) UpdateStatus(ctx context.Context, path string, status domain.SourceStatus, errMessage string) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE sources
SET status = $2, error_message = $3, updated_at = $4
WHERE path = $1
`, path, string(status), errMessage, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update source status: %w", err)
	}
	return requireRowUpdated(res, path, "update source status")
}

func (r *SourceRepository) MarkIndexed(ctx context.Context, path, contentHash string, pages, chunks int) error {
	res, err := r.db.ExecContext(ctx, `
UPDATE sources
SET content_hash = $2, pages = $3, chunks = $4, status = $5, error_message = '', updated_at = $6
WHERE path = $1
`, path, contentHash, pages, chunks, string(domain.StatusIndexed), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark source indexed: %w", err)
	}
	return requireRowUpdated(res, path, "mark source indexed")
}

func requireRowUpdated(res sql.Result, path, operation string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrSourceNotFound, operation, fmt.Errorf("no ledger row for %s", path))
	}
	return nil
}

func (r *SourceRepository) Reset(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM sources`)
	if err != nil {
		return fmt.Errorf("reset sources: %w", err)
	}
	return nil
}
