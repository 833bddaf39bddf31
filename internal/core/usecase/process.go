package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/barros404/finance-sub003/internal/core/domain"
	"github.com/barros404/finance-sub003/internal/core/ports"
	"github.com/barros404/finance-sub003/internal/extract"
)

const summarySchemaVersion = 1

type ProcessDocumentUseCase struct {
	repo       ports.DocumentRepository
	recognizer ports.TextRecognizer
	splitter   *extract.Splitter
	classifier ports.ItemClassifier
	typer      ports.TypeSuggester

	maxRetries      int
	classifyWorkers int
}

func NewProcessDocumentUseCase(
	repo ports.DocumentRepository,
	recognizer ports.TextRecognizer,
	splitter *extract.Splitter,
	classifier ports.ItemClassifier,
	typer ports.TypeSuggester,
	maxRetries int,
	classifyWorkers int,
) *ProcessDocumentUseCase {
	if maxRetries <= 0 {
		maxRetries = 3
	}
	if classifyWorkers <= 0 {
		classifyWorkers = 4
	}
	return &ProcessDocumentUseCase{
		repo:            repo,
		recognizer:      recognizer,
		splitter:        splitter,
		classifier:      classifier,
		typer:           typer,
		maxRetries:      maxRetries,
		classifyWorkers: classifyWorkers,
	}
}

// ProcessByID drives one document from processing to awaiting_validation.
// Items are classified concurrently but committed as a single batch: any
// failure discards the whole batch and parks the document in error with its
// retry counter bumped.
func (uc *ProcessDocumentUseCase) ProcessByID(ctx context.Context, documentID string) error {
	doc, err := uc.repo.BeginProcessing(ctx, documentID, uc.maxRetries)
	if err != nil {
		return fmt.Errorf("enter processing state: %w", err)
	}

	extraction, err := uc.recognizer.Recognize(ctx, doc)
	if err != nil {
		reason := "ocr extraction failed"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			reason = "cancelled"
		}
		return uc.fail(ctx, documentID, reason, extraction.Text, domain.WrapError(domain.ErrExtraction, "recognize text", err))
	}

	items, feedback, err := uc.buildSuggestions(ctx, doc, extraction)
	if err != nil {
		return uc.fail(ctx, documentID, "classification failed", extraction.Text, err)
	}

	uc.applyResult(doc, extraction, items)
	if err := uc.repo.CompleteProcessing(ctx, doc, items, *feedback); err != nil {
		return uc.fail(ctx, documentID, "persist suggestions", extraction.Text, err)
	}

	slog.Info("document_processed",
		"document_id", doc.ID,
		"items", len(items),
		"suggested_type", feedback.SuggestedType,
		"ocr_confidence", extraction.Confidence,
	)
	return nil
}

func (uc *ProcessDocumentUseCase) buildSuggestions(
	ctx context.Context,
	doc *domain.Document,
	extraction domain.Extraction,
) ([]domain.DocumentItem, *domain.DocumentFeedback, error) {
	lines := uc.splitter.Split(extraction.Text)
	if len(lines) == 0 {
		return nil, nil, domain.WrapError(domain.ErrExtraction, "split line items", errors.New("no usable line items in extracted text"))
	}

	docType, typeConfidence := uc.typer.SuggestType(extraction.Text)
	kind := domain.KindForType(docType)
	now := time.Now().UTC()

	items := make([]domain.DocumentItem, len(lines))
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(uc.classifyWorkers)
	for i, line := range lines {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			result, err := uc.classifier.Classify(line.Description, kind, line.Amount)
			if err != nil {
				return fmt.Errorf("classify line %d: %w", line.LineNo, err)
			}
			best := result.Best()
			items[i] = domain.DocumentItem{
				ID:             uuid.NewString(),
				DocumentID:     doc.ID,
				LineNo:         line.LineNo,
				Description:    line.Description,
				Amount:         line.Amount,
				Kind:           kind,
				SuggestedCode:  best.Code,
				SuggestedName:  best.Name,
				Confidence:     best.Confidence,
				RequiresReview: result.RequiresReview,
				CreatedAt:      now,
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, nil, domain.WrapError(domain.ErrExtraction, "classify items", err)
		}
		return nil, nil, domain.WrapError(domain.ErrClassification, "classify items", err)
	}

	feedback := &domain.DocumentFeedback{
		DocumentID:     doc.ID,
		SuggestedType:  docType,
		TypeConfidence: typeConfidence,
	}
	return items, feedback, nil
}

func (uc *ProcessDocumentUseCase) applyResult(
	doc *domain.Document,
	extraction domain.Extraction,
	items []domain.DocumentItem,
) {
	now := time.Now().UTC()
	confidence := extraction.Confidence
	doc.Status = domain.StatusAwaitingValidation
	doc.OCRConfidence = &confidence
	doc.ExtractedText = extraction.Text
	doc.ProcessedAt = &now
	doc.UpdatedAt = now
	doc.Error = ""

	summary := &domain.Summary{
		SchemaVersion: summarySchemaVersion,
		ItemCount:     len(items),
		TotalAmount:   decimal.Zero,
		ByKind:        make(map[string]int),
	}
	for _, item := range items {
		summary.ByKind[string(item.Kind)]++
		if item.Amount != nil {
			summary.TotalAmount = summary.TotalAmount.Add(*item.Amount)
		}
		if item.RequiresReview {
			summary.ReviewCount++
		}
	}
	doc.SuggestedSummary = summary
}

// fail parks the document in error state. The original failure is always
// returned; a failure of the error write itself is attached alongside.
// The triggering context is often already cancelled when we get here, so
// the write runs on a detached context or the document would be stranded
// in processing with no transition out.
func (uc *ProcessDocumentUseCase) fail(ctx context.Context, documentID, reason, partialText string, cause error) error {
	markCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if markErr := uc.repo.MarkError(markCtx, documentID, reason, partialText); markErr != nil {
		return fmt.Errorf("%w; mark error state: %v", cause, markErr)
	}
	slog.Warn("document_process_failed", "document_id", documentID, "reason", reason, "error", cause)
	return cause
}
