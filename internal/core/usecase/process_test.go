package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/barros404/finance-sub003/internal/core/domain"
	"github.com/barros404/finance-sub003/internal/extract"
)

func uploadedDoc(id string) *domain.Document {
	now := time.Now().UTC()
	return &domain.Document{
		ID:          id,
		Filename:    "fatura.txt",
		MimeType:    "text/plain",
		StoragePath: id + "_fatura.txt",
		SizeBytes:   128,
		UploadedBy:  "user-1",
		Status:      domain.StatusUploaded,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

func newProcessUC(repo *fakeDocumentRepo, recognizer *fakeRecognizer, cls *fakeClassifier, typer *fakeTyper) *ProcessDocumentUseCase {
	return NewProcessDocumentUseCase(repo, recognizer, extract.NewSplitter(), cls, typer, 3, 2)
}

func TestProcessByIDHappyPath(t *testing.T) {
	repo := newFakeDocumentRepo()
	repo.put(uploadedDoc("doc-1"))
	recognizer := &fakeRecognizer{extraction: domain.Extraction{
		Text:       "Compra de combustível 5.000,00\nManutenção de viaturas 1.250,00",
		Confidence: 93.5,
	}}
	cls := &fakeClassifier{}
	typer := &fakeTyper{docType: domain.DocTypeSaida, confidence: 67}

	uc := newProcessUC(repo, recognizer, cls, typer)
	if err := uc.ProcessByID(context.Background(), "doc-1"); err != nil {
		t.Fatalf("process: %v", err)
	}

	view, err := repo.GetView(context.Background(), "doc-1")
	if err != nil {
		t.Fatalf("get view: %v", err)
	}
	doc := view.Document
	if doc.Status != domain.StatusAwaitingValidation {
		t.Fatalf("expected awaiting_validation, got %s", doc.Status)
	}
	if doc.OCRConfidence == nil || *doc.OCRConfidence != 93.5 {
		t.Fatalf("expected ocr confidence 93.5, got %v", doc.OCRConfidence)
	}
	if doc.ProcessedAt == nil {
		t.Fatalf("expected processed_at to be set")
	}
	if len(view.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(view.Items))
	}
	for i, item := range view.Items {
		if item.LineNo != i+1 {
			t.Fatalf("item %d has line_no %d", i, item.LineNo)
		}
		if item.Kind != domain.KindCost {
			t.Fatalf("saida document must yield cost items, got %s", item.Kind)
		}
		if item.SuggestedCode == "" {
			t.Fatalf("item %d has no suggestion", i)
		}
	}
	if view.Feedback == nil || view.Feedback.SuggestedType != domain.DocTypeSaida {
		t.Fatalf("expected saida feedback suggestion, got %+v", view.Feedback)
	}
	if doc.SuggestedSummary == nil || doc.SuggestedSummary.ItemCount != 2 {
		t.Fatalf("expected summary with 2 items, got %+v", doc.SuggestedSummary)
	}
	if got := doc.SuggestedSummary.TotalAmount.String(); got != "6250" {
		t.Fatalf("expected total amount 6250, got %s", got)
	}
}

func TestProcessByIDEntradaYieldsRevenueItems(t *testing.T) {
	repo := newFakeDocumentRepo()
	repo.put(uploadedDoc("doc-2"))
	recognizer := &fakeRecognizer{extraction: domain.Extraction{Text: "Venda de mercadorias 9.000,00", Confidence: 88}}
	uc := newProcessUC(repo, recognizer, &fakeClassifier{}, &fakeTyper{docType: domain.DocTypeEntrada, confidence: 60})

	if err := uc.ProcessByID(context.Background(), "doc-2"); err != nil {
		t.Fatalf("process: %v", err)
	}

	view, _ := repo.GetView(context.Background(), "doc-2")
	if len(view.Items) != 1 || view.Items[0].Kind != domain.KindRevenue {
		t.Fatalf("expected one revenue item, got %+v", view.Items)
	}
}

// timeoutRecognizer cancels the processing context before failing, the way
// a worker deadline expires mid-recognition.
type timeoutRecognizer struct {
	cancel context.CancelFunc
}

func (r *timeoutRecognizer) Recognize(context.Context, *domain.Document) (domain.Extraction, error) {
	r.cancel()
	return domain.Extraction{}, context.Canceled
}

func TestProcessByIDCancellationStillParksInError(t *testing.T) {
	repo := newFakeDocumentRepo()
	repo.put(uploadedDoc("doc-9"))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	recognizer := &timeoutRecognizer{cancel: cancel}
	uc := NewProcessDocumentUseCase(repo, recognizer, extract.NewSplitter(), &fakeClassifier{}, &fakeTyper{docType: domain.DocTypeSaida}, 3, 2)

	err := uc.ProcessByID(ctx, "doc-9")
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected cancellation to surface, got %v", err)
	}

	doc, getErr := repo.GetByID(context.Background(), "doc-9")
	if getErr != nil {
		t.Fatalf("get document: %v", getErr)
	}
	if doc.Status != domain.StatusError {
		t.Fatalf("cancelled run must park the document in error, got %s", doc.Status)
	}
	if doc.Error != "cancelled" {
		t.Fatalf("expected cancelled reason, got %q", doc.Error)
	}
	if doc.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", doc.RetryCount)
	}
}

func TestProcessByIDRecognizerFailureParksInError(t *testing.T) {
	repo := newFakeDocumentRepo()
	repo.put(uploadedDoc("doc-3"))
	recognizer := &fakeRecognizer{err: errors.New("ocr service down")}
	uc := newProcessUC(repo, recognizer, &fakeClassifier{}, &fakeTyper{docType: domain.DocTypeSaida})

	err := uc.ProcessByID(context.Background(), "doc-3")
	if err == nil {
		t.Fatalf("expected error")
	}
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction kind, got %v", err)
	}

	doc, _ := repo.GetByID(context.Background(), "doc-3")
	if doc.Status != domain.StatusError {
		t.Fatalf("expected error status, got %s", doc.Status)
	}
	if doc.RetryCount != 1 {
		t.Fatalf("expected retry count 1, got %d", doc.RetryCount)
	}
}

func TestProcessByIDNoUsableLinesIsExtractionError(t *testing.T) {
	repo := newFakeDocumentRepo()
	repo.put(uploadedDoc("doc-4"))
	recognizer := &fakeRecognizer{extraction: domain.Extraction{Text: "123\n456\n", Confidence: 70}}
	uc := newProcessUC(repo, recognizer, &fakeClassifier{}, &fakeTyper{docType: domain.DocTypeSaida})

	err := uc.ProcessByID(context.Background(), "doc-4")
	if !domain.IsKind(err, domain.ErrExtraction) {
		t.Fatalf("expected extraction kind, got %v", err)
	}
	doc, _ := repo.GetByID(context.Background(), "doc-4")
	if doc.Status != domain.StatusError {
		t.Fatalf("expected error status, got %s", doc.Status)
	}
}

func TestProcessByIDClassifierFailureDiscardsWholeBatch(t *testing.T) {
	repo := newFakeDocumentRepo()
	repo.put(uploadedDoc("doc-5"))
	recognizer := &fakeRecognizer{extraction: domain.Extraction{
		Text:       "Compra de combustível 5.000,00\nManutenção 1.000,00\nSalários 2.000,00",
		Confidence: 90,
	}}
	cls := &fakeClassifier{err: errors.New("catalog unavailable")}
	uc := newProcessUC(repo, recognizer, cls, &fakeTyper{docType: domain.DocTypeSaida})

	err := uc.ProcessByID(context.Background(), "doc-5")
	if !domain.IsKind(err, domain.ErrClassification) {
		t.Fatalf("expected classification kind, got %v", err)
	}

	view, _ := repo.GetView(context.Background(), "doc-5")
	if view.Document.Status != domain.StatusError {
		t.Fatalf("expected error status, got %s", view.Document.Status)
	}
	if len(view.Items) != 0 {
		t.Fatalf("partial batches must never be visible, got %d items", len(view.Items))
	}
	// partial extracted text is kept for diagnostics
	if view.Document.ExtractedText == "" {
		t.Fatalf("expected partial extracted text to survive the failure")
	}
}

func TestProcessByIDRejectsWrongState(t *testing.T) {
	repo := newFakeDocumentRepo()
	doc := uploadedDoc("doc-6")
	doc.Status = domain.StatusValidated
	repo.put(doc)
	uc := newProcessUC(repo, &fakeRecognizer{}, &fakeClassifier{}, &fakeTyper{})

	err := uc.ProcessByID(context.Background(), "doc-6")
	if !domain.IsKind(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state, got %v", err)
	}
}

func TestProcessByIDRetryExhaustionBlocksProcessing(t *testing.T) {
	repo := newFakeDocumentRepo()
	doc := uploadedDoc("doc-7")
	doc.Status = domain.StatusError
	doc.RetryCount = 3
	repo.put(doc)
	uc := newProcessUC(repo, &fakeRecognizer{}, &fakeClassifier{}, &fakeTyper{})

	err := uc.ProcessByID(context.Background(), "doc-7")
	if !domain.IsKind(err, domain.ErrInvalidState) {
		t.Fatalf("expected invalid state for exhausted retries, got %v", err)
	}
}

func TestProcessByIDReviewItemsCountedInSummary(t *testing.T) {
	repo := newFakeDocumentRepo()
	repo.put(uploadedDoc("doc-8"))
	recognizer := &fakeRecognizer{extraction: domain.Extraction{Text: "Linha obscura 100,00", Confidence: 80}}
	cls := &fakeClassifier{results: map[string]domain.ClassificationResult{
		"Linha obscura": {
			Candidates:     []domain.Candidate{{Code: "72", Name: "Transportes", Confidence: 10}},
			RequiresReview: true,
		},
	}}
	uc := newProcessUC(repo, recognizer, cls, &fakeTyper{docType: domain.DocTypeSaida})

	if err := uc.ProcessByID(context.Background(), "doc-8"); err != nil {
		t.Fatalf("process: %v", err)
	}

	view, _ := repo.GetView(context.Background(), "doc-8")
	if !view.Items[0].RequiresReview {
		t.Fatalf("expected review flag on item")
	}
	if view.Document.SuggestedSummary.ReviewCount != 1 {
		t.Fatalf("expected review count 1, got %d", view.Document.SuggestedSummary.ReviewCount)
	}
}
