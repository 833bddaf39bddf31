package postgres

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"github.com/barros404/finance-sub003/internal/core/domain"
	"github.com/barros404/finance-sub003/internal/core/ports"
)

func newDocRepoWithMock(t *testing.T) (*DocumentRepository, sqlmock.Sqlmock, func()) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New() error = %v", err)
	}
	return &DocumentRepository{db: db}, mock, func() { _ = db.Close() }
}

func documentRow(id string, status domain.DocumentStatus, retries int) *sqlmock.Rows {
	now := time.Now().UTC()
	return sqlmock.NewRows([]string{
		"id", "filename", "mime_type", "storage_path", "size_bytes", "uploaded_by", "status",
		"ocr_confidence", "extracted_text", "suggested_summary", "processed_at",
		"risk_category", "retry_count", "error_message", "created_at", "updated_at",
	}).AddRow(id, "fatura.pdf", "application/pdf", id+"_fatura.pdf", int64(128), "user-1", string(status),
		nil, nil, nil, nil, nil, retries, "", now, now)
}

func itemRow(documentID, itemID, confirmedCode string) *sqlmock.Rows {
	now := time.Now().UTC()
	rows := sqlmock.NewRows([]string{
		"id", "document_id", "line_no", "description", "amount", "kind",
		"suggested_code", "suggested_name", "confidence", "requires_review",
		"confirmed_code", "confirmed_name", "confirmed_by", "confirmed_at", "reconciled", "created_at",
	})
	if confirmedCode == "" {
		rows.AddRow(itemID, documentID, 1, "Compra de combustível", nil, "cost",
			"731", "Fornecimentos combustíveis", 50, false, nil, nil, nil, nil, false, now)
	} else {
		rows.AddRow(itemID, documentID, 1, "Compra de combustível", nil, "cost",
			"731", "Fornecimentos combustíveis", 50, false, confirmedCode, "Conta", "user-1", now, false, now)
	}
	return rows
}

func TestGetByIDReturnsDomainNotFound(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectQuery("FROM documents").
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	if !domain.IsKind(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestBeginProcessingGuardedTransitionFailsAsInvalidState(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectQuery("UPDATE documents").
		WillReturnError(sql.ErrNoRows)
	mock.ExpectQuery("FROM documents").
		WithArgs("doc-1").
		WillReturnRows(documentRow("doc-1", domain.StatusValidated, 0))

	_, err := repo.BeginProcessing(context.Background(), "doc-1", 3)
	if !domain.IsKind(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestConfirmItemApplied(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE document_items").
		WithArgs("doc-1", "item-1", "731", "Fornecimentos combustíveis", "user-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	outcome, err := repo.ConfirmItem(context.Background(), "doc-1", "item-1", "731", "Fornecimentos combustíveis", "user-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("confirm item: %v", err)
	}
	if outcome != ports.ConfirmApplied {
		t.Fatalf("expected ConfirmApplied, got %v", outcome)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestConfirmItemIdempotentWhenSameCodeAlreadyStored(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE document_items").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM document_items").
		WithArgs("doc-1", "item-1").
		WillReturnRows(itemRow("doc-1", "item-1", "731"))

	outcome, err := repo.ConfirmItem(context.Background(), "doc-1", "item-1", "731", "Fornecimentos combustíveis", "user-2", time.Now().UTC())
	if err != nil {
		t.Fatalf("confirm item: %v", err)
	}
	if outcome != ports.ConfirmIdempotent {
		t.Fatalf("expected ConfirmIdempotent, got %v", outcome)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestConfirmItemContradictionReturnsConflict(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE document_items").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery("FROM document_items").
		WithArgs("doc-1", "item-1").
		WillReturnRows(itemRow("doc-1", "item-1", "72"))

	_, err := repo.ConfirmItem(context.Background(), "doc-1", "item-1", "731", "Fornecimentos combustíveis", "user-2", time.Now().UTC())
	if !domain.IsKind(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkErrorRequiresProcessingState(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE documents").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.MarkError(context.Background(), "doc-1", "ocr failed", "")
	if !domain.IsKind(err, domain.ErrInvalidState) {
		t.Fatalf("expected ErrInvalidState, got %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}

func TestMarkItemReconciledReportsWhoWon(t *testing.T) {
	repo, mock, done := newDocRepoWithMock(t)
	defer done()

	mock.ExpectExec("UPDATE document_items").
		WithArgs("item-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec("UPDATE document_items").
		WithArgs("item-1").
		WillReturnResult(sqlmock.NewResult(0, 0))

	won, err := repo.MarkItemReconciled(context.Background(), "item-1")
	if err != nil || !won {
		t.Fatalf("expected first caller to win, got won=%v err=%v", won, err)
	}
	won, err = repo.MarkItemReconciled(context.Background(), "item-1")
	if err != nil || won {
		t.Fatalf("expected second caller to lose, got won=%v err=%v", won, err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatalf("expectations: %v", err)
	}
}
