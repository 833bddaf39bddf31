package ports

import (
	"context"
	"io"

	"github.com/barros404/finance-sub003/internal/core/domain"
)

// DocumentIngestor is the inbound contract for document upload.
type DocumentIngestor interface {
	Upload(ctx context.Context, filename, mimeType, uploaderID string, size int64, body io.Reader) (*domain.Document, error)
}

// DocumentProcessor drives the asynchronous pipeline for one document.
type DocumentProcessor interface {
	ProcessByID(ctx context.Context, documentID string) error
}

// DocumentReader is the inbound read model for documents with their items
// and feedback.
type DocumentReader interface {
	GetView(ctx context.Context, id string) (*domain.DocumentView, error)
}

// DocumentValidator covers the user-facing confirmation surface.
type DocumentValidator interface {
	ConfirmItem(ctx context.Context, documentID, itemID, code, userID string) (*domain.DocumentItem, error)
	ConfirmFeedback(ctx context.Context, documentID string, docType domain.DocumentType, userID string) error
	Validate(ctx context.Context, documentID, userID string) error
	MarkUnusable(ctx context.Context, documentID, reason string) error
	Retry(ctx context.Context, documentID string) error
}

// BudgetMapper is the inbound contract for budget-scoped PGC mapping.
type BudgetMapper interface {
	MapBudget(ctx context.Context, budgetID string) ([]domain.PgcMapping, error)
	ListMappings(ctx context.Context, budgetID string) ([]domain.PgcMapping, error)
	Reclassify(ctx context.Context, mappingID string) (*domain.PgcMapping, error)
	ConfirmMapping(ctx context.Context, mappingID, code, customCategory, userID string, version int) (*domain.PgcMapping, error)
}
