package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/kirillkom/manual-rag/internal/core/domain"
)

func newRepoWithMock(t *testing.T) (*SourceRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &SourceRepository{db: db}, mock, func() { _ = db.Close() }
}

func TestGetByPathReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectQuery("SELECT path, content_hash, pages, chunks").
		WithArgs("/missing.pdf").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByPath(context.Background(), "/missing.pdf")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestGetByPathScansLedgerRow(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{"path", "content_hash", "pages", "chunks", "status", "error_message", "created_at", "updated_at"}).
		AddRow("/docs/manual.pdf", "abc123", 12, 80, "indexed", nil, now, now)
	mock.ExpectQuery("SELECT path, content_hash, pages, chunks").
		WithArgs("/docs/manual.pdf").
		WillReturnRows(rows)

	rec, err := repo.GetByPath(context.Background(), "/docs/manual.pdf")
	if err != nil {
		t.Fatalf("GetByPath() error = %v", err)
	}
	if rec.ContentHash != "abc123" || rec.Pages != 12 || rec.Chunks != 80 {
		t.Errorf("unexpected record %+v", rec)
	}
	if rec.Status != domain.StatusIndexed {
		t.Errorf("status = %q, want indexed", rec.Status)
	}
	if rec.Error != "" {
		t.Errorf("expected empty error for NULL error_message, got %q", rec.Error)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpsertInsertsOrUpdatesByPath(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	now := time.Now().UTC()
	rec := &domain.SourceRecord{
		Path:        "/docs/manual.pdf",
		ContentHash: "abc123",
		Status:      domain.StatusIndexing,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	mock.ExpectExec("INSERT INTO sources").
		WithArgs(rec.Path, rec.ContentHash, 0, 0, string(domain.StatusIndexing), "", now, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("Upsert() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestUpdateStatusReturnsDomainNotFoundWhenNoRowsAffected(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE sources").
		WithArgs("/missing.pdf", string(domain.StatusFailed), "boom", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateStatus(context.Background(), "/missing.pdf", domain.StatusFailed, "boom")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrSourceNotFound) {
		t.Fatalf("expected ErrSourceNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkIndexedUpdatesLedgerCounts(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE sources").
		WithArgs("/docs/manual.pdf", "abc123", 12, 80, string(domain.StatusIndexed), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.MarkIndexed(context.Background(), "/docs/manual.pdf", "abc123", 12, 80); err != nil {
		t.Fatalf("MarkIndexed() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestResetClearsLedger(t *testing.T) {
	repo, mock, done := newRepoWithMock(t)
	defer done()

	mock.ExpectExec("DELETE FROM sources").
		WillReturnResult(sqlmock.NewResult(0, 3))

	if err := repo.Reset(context.Background()); err != nil {
		t.Fatalf("Reset() error = %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
