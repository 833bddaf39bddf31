package ports

import (
	"context"
	"io"
	"time"

	"github.com/shopspring/decimal"

	"github.com/barros404/finance-sub003/internal/core/domain"
)

// ConfirmOutcome describes how a guarded confirmation write resolved.
type ConfirmOutcome int

const (
	// ConfirmApplied means the confirmation was written for the first time.
	ConfirmApplied ConfirmOutcome = iota
	// ConfirmIdempotent means an identical confirmation already existed.
	ConfirmIdempotent
)

// DocumentRepository persists document, item and feedback state. All status
// transitions are guarded: a write from the wrong source state fails with
// domain.ErrInvalidState instead of overwriting.
type DocumentRepository interface {
	Create(ctx context.Context, doc *domain.Document) error
	GetByID(ctx context.Context, id string) (*domain.Document, error)
	GetView(ctx context.Context, id string) (*domain.DocumentView, error)
	GetItem(ctx context.Context, documentID, itemID string) (*domain.DocumentItem, error)

	// BeginProcessing moves uploaded or retry-eligible error documents into
	// processing and returns the refreshed record.
	BeginProcessing(ctx context.Context, id string, maxRetries int) (*domain.Document, error)

	// CompleteProcessing writes every item, the feedback suggestion and the
	// awaiting_validation transition in one transaction. Partial batches are
	// never visible.
	CompleteProcessing(ctx context.Context, doc *domain.Document, items []domain.DocumentItem, feedback domain.DocumentFeedback) error

	// MarkError records a pipeline failure, keeps partial extracted text for
	// diagnostics and bumps the retry counter.
	MarkError(ctx context.Context, id, reason, partialText string) error

	// MarkUnusable is the awaiting_validation escape hatch back to error.
	MarkUnusable(ctx context.Context, id, reason string) error

	// MarkValidated finishes the pipeline. Callers verify confirmation
	// coverage first; the transition itself is still guarded.
	MarkValidated(ctx context.Context, id string) error

	// ConfirmItem writes the confirmed account for an unconfirmed item.
	// Re-confirming the same code resolves ConfirmIdempotent; a different
	// already-confirmed code fails with domain.ErrConflict.
	ConfirmItem(ctx context.Context, documentID, itemID, code, name, userID string, at time.Time) (ConfirmOutcome, error)

	// ConfirmFeedback applies the exactly-once document-type confirmation
	// with the same idempotency and conflict semantics as ConfirmItem.
	ConfirmFeedback(ctx context.Context, documentID string, docType domain.DocumentType, userID string, at time.Time) (ConfirmOutcome, error)

	// MarkItemReconciled sets the per-item reconciliation marker and reports
	// whether this call won it. A false return means the learning signal was
	// already counted.
	MarkItemReconciled(ctx context.Context, itemID string) (bool, error)
}

// MappingRepository persists budget-scoped PGC mapping records.
type MappingRepository interface {
	CreateAll(ctx context.Context, mappings []domain.PgcMapping) error
	GetByID(ctx context.Context, id string) (*domain.PgcMapping, error)
	ListByBudget(ctx context.Context, budgetID string) ([]domain.PgcMapping, error)

	// Confirm applies a user confirmation with compare-and-set on version.
	// A stale version fails with domain.ErrConflict.
	Confirm(ctx context.Context, m *domain.PgcMapping) error

	// SaveReclassification updates the suggestion or candidate lane produced
	// by an explicit reclassify run. The original snapshot column is never
	// touched.
	SaveReclassification(ctx context.Context, m *domain.PgcMapping) error

	// MarkReconciled sets the mapping's learning-signal marker, reporting
	// whether this call won it.
	MarkReconciled(ctx context.Context, id string) (bool, error)
}

// AccountCatalog is the read-mostly chart-of-accounts reference.
type AccountCatalog interface {
	Accounts() []domain.PgcAccount
	Get(code string) (domain.PgcAccount, bool)
}

// CatalogRepository persists the seeded PGC account catalog.
type CatalogRepository interface {
	UpsertAccounts(ctx context.Context, accounts []domain.PgcAccount) error
	ListAccounts(ctx context.Context) ([]domain.PgcAccount, error)
}

// LexiconStore persists the per-account learned token sets used to bias
// future classification. Implementations bound the per-account size with
// oldest-first eviction.
type LexiconStore interface {
	AddTokens(ctx context.Context, code string, tokens []string, learnedAt time.Time) error
	AllTokens(ctx context.Context) (map[string][]string, error)
}

// ObjectStorage stores source document blobs.
type ObjectStorage interface {
	Save(ctx context.Context, key string, data io.Reader) error
	Open(ctx context.Context, key string) (io.ReadCloser, error)
}

// MessageQueue publishes/consumes document processing events.
type MessageQueue interface {
	PublishDocumentQueued(ctx context.Context, documentID string) error
	SubscribeDocumentQueued(ctx context.Context, handler func(context.Context, string) error) error
}

// TextRecognizer is the black-box OCR collaborator contract.
type TextRecognizer interface {
	Recognize(ctx context.Context, doc *domain.Document) (domain.Extraction, error)
}

// ItemClassifier scores one line item against the catalog. Stateless per
// call; learning-signal updates happen only through the reconciler.
type ItemClassifier interface {
	Classify(description string, kind domain.ItemKind, amount *decimal.Decimal) (domain.ClassificationResult, error)
}

// TypeSuggester proposes the document-level type from extracted text.
type TypeSuggester interface {
	SuggestType(text string) (domain.DocumentType, int)
}

// BudgetDirectory is the budget collaborator supplying committed financial
// items for PGC mapping. The engine writes nothing back through it.
type BudgetDirectory interface {
	CommittedItems(ctx context.Context, budgetID string) ([]domain.BudgetItem, error)
}
