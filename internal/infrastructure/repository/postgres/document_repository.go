package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/shopspring/decimal"

	"github.com/barros404/finance-sub003/internal/core/domain"
	"github.com/barros404/finance-sub003/internal/core/ports"
)

type DocumentRepository struct {
	db *sql.DB
}

func NewDocumentRepository(db *sql.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
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

func (r *DocumentRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	// Serialize bootstrap DDL across api/worker startups.
	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030101)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS documents (
	id TEXT PRIMARY KEY,
	filename TEXT NOT NULL,
	mime_type TEXT NOT NULL,
	storage_path TEXT NOT NULL,
	size_bytes BIGINT NOT NULL DEFAULT 0,
	uploaded_by TEXT NOT NULL,
	status TEXT NOT NULL,
	ocr_confidence DOUBLE PRECISION,
	extracted_text TEXT,
	suggested_summary JSONB,
	processed_at TIMESTAMPTZ,
	risk_category TEXT,
	retry_count INT NOT NULL DEFAULT 0,
	error_message TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS document_items (
	id TEXT PRIMARY KEY,
	document_id TEXT NOT NULL REFERENCES documents(id) ON DELETE CASCADE,
	line_no INT NOT NULL,
	description TEXT NOT NULL,
	amount NUMERIC,
	kind TEXT NOT NULL,
	suggested_code TEXT NOT NULL,
	suggested_name TEXT NOT NULL,
	confidence INT NOT NULL,
	requires_review BOOLEAN NOT NULL DEFAULT FALSE,
	confirmed_code TEXT,
	confirmed_name TEXT,
	confirmed_by TEXT,
	confirmed_at TIMESTAMPTZ,
	reconciled BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT confirmed_pair CHECK (
		(confirmed_code IS NULL) = (confirmed_name IS NULL)
	),
	CONSTRAINT confidence_range CHECK (confidence BETWEEN 0 AND 100)
);

CREATE TABLE IF NOT EXISTS document_feedback (
	document_id TEXT PRIMARY KEY REFERENCES documents(id) ON DELETE CASCADE,
	suggested_type TEXT NOT NULL,
	type_confidence INT NOT NULL,
	confirmed_type TEXT,
	confirmed_by TEXT,
	confirmed_at TIMESTAMPTZ
);

CREATE INDEX IF NOT EXISTS idx_documents_status ON documents(status);
CREATE INDEX IF NOT EXISTS idx_documents_created_at ON documents(created_at DESC);
CREATE INDEX IF NOT EXISTS idx_document_items_document ON document_items(document_id, line_no);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) Create(ctx context.Context, doc *domain.Document) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO documents (
	id, filename, mime_type, storage_path, size_bytes, uploaded_by, status,
	risk_category, retry_count, error_message, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
`,
		doc.ID, doc.Filename, doc.MimeType, doc.StoragePath, doc.SizeBytes, doc.UploadedBy,
		string(doc.Status), nullString(doc.RiskCategory), doc.RetryCount, doc.Error,
		doc.CreatedAt, doc.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

const documentColumns = `
id, filename, mime_type, storage_path, size_bytes, uploaded_by, status,
ocr_confidence, extracted_text, suggested_summary, processed_at,
risk_category, retry_count, error_message, created_at, updated_at`

func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+documentColumns+`
FROM documents
WHERE id = $1
`, id)

	doc, err := scanDocument(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("document %s", id))
		}
		return nil, fmt.Errorf("scan document: %w", err)
	}
	return doc, nil
}

func (r *DocumentRepository) GetView(ctx context.Context, id string) (*domain.DocumentView, error) {
	doc, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	items, err := r.listItems(ctx, id)
	if err != nil {
		return nil, err
	}

	feedback, err := r.getFeedback(ctx, id)
	if err != nil {
		return nil, err
	}

	return &domain.DocumentView{
		Document: *doc,
		Items:    items,
		Feedback: feedback,
	}, nil
}

func (r *DocumentRepository) BeginProcessing(ctx context.Context, id string, maxRetries int) (*domain.Document, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE documents
SET status = $2, error_message = '', updated_at = $3
WHERE id = $1
  AND (status = $4 OR (status = $5 AND retry_count < $6))
RETURNING `+documentColumns+`
`, id, string(domain.StatusProcessing), time.Now().UTC(),
		string(domain.StatusUploaded), string(domain.StatusError), maxRetries)

	doc, err := scanDocument(row)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("begin processing: %w", err)
	}

	current, getErr := r.GetByID(ctx, id)
	if getErr != nil {
		return nil, getErr
	}
	return nil, domain.WrapError(domain.ErrInvalidState, "begin processing",
		fmt.Errorf("document %s is %s with %d retries", id, current.Status, current.RetryCount))
}

// CompleteProcessing commits the whole classified batch and the
// awaiting_validation transition atomically. Items from a previous run of
// the same document are replaced, never merged.
func (r *DocumentRepository) CompleteProcessing(ctx context.Context, doc *domain.Document, items []domain.DocumentItem, feedback domain.DocumentFeedback) error {
	summaryJSON, err := json.Marshal(doc.SuggestedSummary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin processing tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(ctx, `
UPDATE documents
SET status = $2, ocr_confidence = $3, extracted_text = $4,
    suggested_summary = $5, processed_at = $6, error_message = '', updated_at = $7
WHERE id = $1 AND status = $8
`, doc.ID, string(domain.StatusAwaitingValidation), nullFloat(doc.OCRConfidence),
		doc.ExtractedText, summaryJSON, doc.ProcessedAt, doc.UpdatedAt,
		string(domain.StatusProcessing))
	if err != nil {
		return fmt.Errorf("transition to awaiting_validation: %w", err)
	}
	if affected, err := result.RowsAffected(); err != nil {
		return fmt.Errorf("transition rows affected: %w", err)
	} else if affected == 0 {
		return domain.WrapError(domain.ErrInvalidState, "complete processing",
			fmt.Errorf("document %s left processing state", doc.ID))
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM document_items WHERE document_id = $1`, doc.ID); err != nil {
		return fmt.Errorf("clear previous items: %w", err)
	}
	for _, item := range items {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO document_items (
	id, document_id, line_no, description, amount, kind,
	suggested_code, suggested_name, confidence, requires_review, created_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
`,
			item.ID, item.DocumentID, item.LineNo, item.Description, nullDecimal(item.Amount),
			string(item.Kind), item.SuggestedCode, item.SuggestedName, item.Confidence,
			item.RequiresReview, item.CreatedAt,
		); err != nil {
			return fmt.Errorf("insert item line %d: %w", item.LineNo, err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
INSERT INTO document_feedback (document_id, suggested_type, type_confidence)
VALUES ($1,$2,$3)
ON CONFLICT (document_id) DO UPDATE
SET suggested_type = EXCLUDED.suggested_type,
    type_confidence = EXCLUDED.type_confidence,
    confirmed_type = NULL, confirmed_by = NULL, confirmed_at = NULL
`, feedback.DocumentID, string(feedback.SuggestedType), feedback.TypeConfidence); err != nil {
		return fmt.Errorf("upsert feedback suggestion: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit processing tx: %w", err)
	}
	return nil
}

func (r *DocumentRepository) MarkError(ctx context.Context, id, reason, partialText string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3,
    extracted_text = CASE WHEN $4 <> '' THEN $4 ELSE extracted_text END,
    retry_count = retry_count + 1, updated_at = $5
WHERE id = $1 AND status = $6
`, id, string(domain.StatusError), reason, partialText, time.Now().UTC(),
		string(domain.StatusProcessing))
	if err != nil {
		return fmt.Errorf("mark document error: %w", err)
	}
	return requireRow(result, "mark document error", id)
}

func (r *DocumentRepository) MarkUnusable(ctx context.Context, id, reason string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, error_message = $3, updated_at = $4
WHERE id = $1 AND status = $5
`, id, string(domain.StatusError), reason, time.Now().UTC(),
		string(domain.StatusAwaitingValidation))
	if err != nil {
		return fmt.Errorf("mark document unusable: %w", err)
	}
	return requireRow(result, "mark document unusable", id)
}

func (r *DocumentRepository) MarkValidated(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE documents
SET status = $2, updated_at = $3
WHERE id = $1 AND status = $4
`, id, string(domain.StatusValidated), time.Now().UTC(),
		string(domain.StatusAwaitingValidation))
	if err != nil {
		return fmt.Errorf("mark document validated: %w", err)
	}
	return requireRow(result, "mark document validated", id)
}

func (r *DocumentRepository) GetItem(ctx context.Context, documentID, itemID string) (*domain.DocumentItem, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+itemColumns+`
FROM document_items
WHERE document_id = $1 AND id = $2
`, documentID, itemID)

	item, err := scanItem(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get item", fmt.Errorf("item %s", itemID))
		}
		return nil, fmt.Errorf("scan item: %w", err)
	}
	return item, nil
}

// ConfirmItem writes the confirmation only when no confirmation exists yet.
// The guarded UPDATE is the concurrency control: of two racing confirmers
// exactly one writes, the other resolves against the stored value.
func (r *DocumentRepository) ConfirmItem(ctx context.Context, documentID, itemID, code, name, userID string, at time.Time) (ports.ConfirmOutcome, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE document_items
SET confirmed_code = $3, confirmed_name = $4, confirmed_by = $5, confirmed_at = $6
WHERE document_id = $1 AND id = $2 AND confirmed_code IS NULL
`, documentID, itemID, code, name, userID, at)
	if err != nil {
		return 0, fmt.Errorf("confirm item: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("confirm item rows affected: %w", err)
	}
	if affected == 1 {
		return ports.ConfirmApplied, nil
	}

	item, err := r.GetItem(ctx, documentID, itemID)
	if err != nil {
		return 0, err
	}
	if item.ConfirmedCode == code {
		return ports.ConfirmIdempotent, nil
	}
	return 0, domain.WrapError(domain.ErrConflict, "confirm item",
		fmt.Errorf("item %s already confirmed as %s by %s", itemID, item.ConfirmedCode, item.ConfirmedBy))
}

func (r *DocumentRepository) ConfirmFeedback(ctx context.Context, documentID string, docType domain.DocumentType, userID string, at time.Time) (ports.ConfirmOutcome, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE document_feedback
SET confirmed_type = $2, confirmed_by = $3, confirmed_at = $4
WHERE document_id = $1 AND confirmed_type IS NULL
`, documentID, string(docType), userID, at)
	if err != nil {
		return 0, fmt.Errorf("confirm feedback: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("confirm feedback rows affected: %w", err)
	}
	if affected == 1 {
		return ports.ConfirmApplied, nil
	}

	feedback, err := r.getFeedback(ctx, documentID)
	if err != nil {
		return 0, err
	}
	if feedback == nil {
		return 0, domain.WrapError(domain.ErrNotFound, "confirm feedback", fmt.Errorf("document %s", documentID))
	}
	if feedback.ConfirmedType == docType {
		return ports.ConfirmIdempotent, nil
	}
	return 0, domain.WrapError(domain.ErrConflict, "confirm feedback",
		fmt.Errorf("document %s type already confirmed as %s by %s", documentID, feedback.ConfirmedType, feedback.ConfirmedBy))
}

func (r *DocumentRepository) MarkItemReconciled(ctx context.Context, itemID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE document_items
SET reconciled = TRUE
WHERE id = $1 AND reconciled = FALSE
`, itemID)
	if err != nil {
		return false, fmt.Errorf("mark item reconciled: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark item reconciled rows affected: %w", err)
	}
	return affected == 1, nil
}

const itemColumns = `
id, document_id, line_no, description, amount, kind,
suggested_code, suggested_name, confidence, requires_review,
confirmed_code, confirmed_name, confirmed_by, confirmed_at, reconciled, created_at`

func (r *DocumentRepository) listItems(ctx context.Context, documentID string) ([]domain.DocumentItem, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+itemColumns+`
FROM document_items
WHERE document_id = $1
ORDER BY line_no
`, documentID)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	defer rows.Close()

	out := make([]domain.DocumentItem, 0)
	for rows.Next() {
		item, err := scanItem(rows)
		if err != nil {
			return nil, fmt.Errorf("scan item row: %w", err)
		}
		out = append(out, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate items: %w", err)
	}
	return out, nil
}

func (r *DocumentRepository) getFeedback(ctx context.Context, documentID string) (*domain.DocumentFeedback, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT document_id, suggested_type, type_confidence, confirmed_type, confirmed_by, confirmed_at
FROM document_feedback
WHERE document_id = $1
`, documentID)

	var feedback domain.DocumentFeedback
	var suggested string
	var confirmedType, confirmedBy sql.NullString
	var confirmedAt sql.NullTime
	err := row.Scan(&feedback.DocumentID, &suggested, &feedback.TypeConfidence, &confirmedType, &confirmedBy, &confirmedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("scan feedback: %w", err)
	}
	feedback.SuggestedType = domain.DocumentType(suggested)
	feedback.ConfirmedType = domain.DocumentType(confirmedType.String)
	feedback.ConfirmedBy = confirmedBy.String
	if confirmedAt.Valid {
		at := confirmedAt.Time
		feedback.ConfirmedAt = &at
	}
	return &feedback, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDocument(row rowScanner) (*domain.Document, error) {
	var doc domain.Document
	var status string
	var ocrConfidence sql.NullFloat64
	var extractedText, riskCategory sql.NullString
	var summaryRaw []byte
	var processedAt sql.NullTime

	err := row.Scan(
		&doc.ID, &doc.Filename, &doc.MimeType, &doc.StoragePath, &doc.SizeBytes,
		&doc.UploadedBy, &status, &ocrConfidence, &extractedText, &summaryRaw,
		&processedAt, &riskCategory, &doc.RetryCount, &doc.Error,
		&doc.CreatedAt, &doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.Status = domain.DocumentStatus(status)
	doc.ExtractedText = extractedText.String
	doc.RiskCategory = riskCategory.String
	if ocrConfidence.Valid {
		v := ocrConfidence.Float64
		doc.OCRConfidence = &v
	}
	if processedAt.Valid {
		at := processedAt.Time
		doc.ProcessedAt = &at
	}
	if len(summaryRaw) > 0 {
		var summary domain.Summary
		if err := json.Unmarshal(summaryRaw, &summary); err != nil {
			return nil, fmt.Errorf("unmarshal summary: %w", err)
		}
		doc.SuggestedSummary = &summary
	}
	return &doc, nil
}

func scanItem(row rowScanner) (*domain.DocumentItem, error) {
	var item domain.DocumentItem
	var kind string
	var amount decimal.NullDecimal
	var confirmedCode, confirmedName, confirmedBy sql.NullString
	var confirmedAt sql.NullTime

	err := row.Scan(
		&item.ID, &item.DocumentID, &item.LineNo, &item.Description, &amount, &kind,
		&item.SuggestedCode, &item.SuggestedName, &item.Confidence, &item.RequiresReview,
		&confirmedCode, &confirmedName, &confirmedBy, &confirmedAt, &item.Reconciled,
		&item.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	item.Kind = domain.ItemKind(kind)
	if amount.Valid {
		v := amount.Decimal
		item.Amount = &v
	}
	item.ConfirmedCode = confirmedCode.String
	item.ConfirmedName = confirmedName.String
	item.ConfirmedBy = confirmedBy.String
	if confirmedAt.Valid {
		at := confirmedAt.Time
		item.ConfirmedAt = &at
	}
	return &item, nil
}

func requireRow(result sql.Result, operation, id string) error {
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows affected: %w", operation, err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrInvalidState, operation,
			fmt.Errorf("document %s not in required state", id))
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
