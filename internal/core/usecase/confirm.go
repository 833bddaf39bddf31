package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/barros404/finance-sub003/internal/core/domain"
	"github.com/barros404/finance-sub003/internal/core/ports"
)

// ValidateDocumentUseCase covers the user-facing confirmation surface:
// per-item account confirmation, document-type confirmation, final
// validation and the error-state escape hatches.
type ValidateDocumentUseCase struct {
	repo       ports.DocumentRepository
	catalog    ports.AccountCatalog
	queue      ports.MessageQueue
	reconciler *ReconcileUseCase
	maxRetries int
}

func NewValidateDocumentUseCase(
	repo ports.DocumentRepository,
	catalog ports.AccountCatalog,
	queue ports.MessageQueue,
	reconciler *ReconcileUseCase,
	maxRetries int,
) *ValidateDocumentUseCase {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &ValidateDocumentUseCase{
		repo:       repo,
		catalog:    catalog,
		queue:      queue,
		reconciler: reconciler,
		maxRetries: maxRetries,
	}
}

// ConfirmItem records the user's account choice for one item. Identical
// re-confirmations are no-ops; a concurrent contradictory confirmation
// surfaces as domain.ErrConflict for manual resolution.
func (uc *ValidateDocumentUseCase) ConfirmItem(ctx context.Context, documentID, itemID, code, userID string) (*domain.DocumentItem, error) {
	if userID == "" {
		return nil, domain.WrapError(domain.ErrValidation, "confirm item", errors.New("user id is required"))
	}
	account, ok := uc.catalog.Get(code)
	if !ok || !account.Usable() {
		return nil, domain.WrapError(domain.ErrValidation, "confirm item", fmt.Errorf("unknown account code %q", code))
	}

	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("load document: %w", err)
	}
	if doc.Status != domain.StatusAwaitingValidation {
		return nil, domain.WrapError(domain.ErrInvalidState, "confirm item",
			fmt.Errorf("document %s is %s, expected %s", documentID, doc.Status, domain.StatusAwaitingValidation))
	}

	outcome, err := uc.repo.ConfirmItem(ctx, documentID, itemID, account.Code, account.Description, userID, time.Now().UTC())
	if err != nil {
		return nil, err
	}

	item, err := uc.repo.GetItem(ctx, documentID, itemID)
	if err != nil {
		return nil, fmt.Errorf("reload item: %w", err)
	}

	if outcome == ports.ConfirmApplied {
		if err := uc.reconciler.ReconcileItem(ctx, item); err != nil {
			// confirmation already durable; the learning signal can lag
			slog.Warn("item_reconcile_failed", "document_id", documentID, "item_id", itemID, "error", err)
		}
	}
	return item, nil
}

// ConfirmFeedback applies the exactly-once document-type confirmation.
func (uc *ValidateDocumentUseCase) ConfirmFeedback(ctx context.Context, documentID string, docType domain.DocumentType, userID string) error {
	if userID == "" {
		return domain.WrapError(domain.ErrValidation, "confirm feedback", errors.New("user id is required"))
	}
	if !docType.Valid() {
		return domain.WrapError(domain.ErrValidation, "confirm feedback", fmt.Errorf("unknown document type %q", docType))
	}

	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc.Status != domain.StatusAwaitingValidation {
		return domain.WrapError(domain.ErrInvalidState, "confirm feedback",
			fmt.Errorf("document %s is %s, expected %s", documentID, doc.Status, domain.StatusAwaitingValidation))
	}

	_, err = uc.repo.ConfirmFeedback(ctx, documentID, docType, userID, time.Now().UTC())
	return err
}

// Validate finishes the pipeline once every item and the feedback record are
// confirmed.
func (uc *ValidateDocumentUseCase) Validate(ctx context.Context, documentID, userID string) error {
	if userID == "" {
		return domain.WrapError(domain.ErrValidation, "validate document", errors.New("user id is required"))
	}

	view, err := uc.repo.GetView(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if view.Document.Status != domain.StatusAwaitingValidation {
		return domain.WrapError(domain.ErrInvalidState, "validate document",
			fmt.Errorf("document %s is %s, expected %s", documentID, view.Document.Status, domain.StatusAwaitingValidation))
	}

	var unconfirmed int
	for _, item := range view.Items {
		if !item.Confirmed() {
			unconfirmed++
		}
	}
	if unconfirmed > 0 {
		return domain.WrapError(domain.ErrInvalidState, "validate document",
			fmt.Errorf("%d item(s) still unconfirmed", unconfirmed))
	}
	if view.Feedback == nil || !view.Feedback.Confirmed() {
		return domain.WrapError(domain.ErrInvalidState, "validate document",
			errors.New("document type not confirmed"))
	}

	return uc.repo.MarkValidated(ctx, documentID)
}

// MarkUnusable forces a document in awaiting_validation back to error so it
// can be re-processed, used when validation discovers the extraction was
// garbage.
func (uc *ValidateDocumentUseCase) MarkUnusable(ctx context.Context, documentID, reason string) error {
	if reason == "" {
		reason = "extraction unusable"
	}
	return uc.repo.MarkUnusable(ctx, documentID, reason)
}

// Retry re-enters the pipeline for a document in error state, carrying over
// only the original file reference. Documents past the retry limit stay in
// error permanently and must be re-uploaded.
func (uc *ValidateDocumentUseCase) Retry(ctx context.Context, documentID string) error {
	doc, err := uc.repo.GetByID(ctx, documentID)
	if err != nil {
		return fmt.Errorf("load document: %w", err)
	}
	if doc.Status != domain.StatusError {
		return domain.WrapError(domain.ErrInvalidState, "retry document",
			fmt.Errorf("document %s is %s, expected %s", documentID, doc.Status, domain.StatusError))
	}
	if doc.RetryCount >= uc.maxRetries {
		return domain.WrapError(domain.ErrInvalidState, "retry document",
			fmt.Errorf("document %s exhausted %d retries", documentID, uc.maxRetries))
	}

	if err := uc.queue.PublishDocumentQueued(ctx, documentID); err != nil {
		return fmt.Errorf("publish retry event: %w", err)
	}
	return nil
}
