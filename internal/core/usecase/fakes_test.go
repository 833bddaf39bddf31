package usecase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/barros404/finance-sub003/internal/core/domain"
	"github.com/barros404/finance-sub003/internal/core/ports"
)

type fakeDocumentRepo struct {
	mu       sync.Mutex
	docs     map[string]*domain.Document
	items    map[string][]domain.DocumentItem
	feedback map[string]*domain.DocumentFeedback

	completeErr    error
	markErrorCalls []string
}

func newFakeDocumentRepo() *fakeDocumentRepo {
	return &fakeDocumentRepo{
		docs:     make(map[string]*domain.Document),
		items:    make(map[string][]domain.DocumentItem),
		feedback: make(map[string]*domain.DocumentFeedback),
	}
}

func (f *fakeDocumentRepo) put(doc *domain.Document) {
	f.mu.Lock()
	defer f.mu.Unlock()
	copied := *doc
	f.docs[doc.ID] = &copied
}

func (f *fakeDocumentRepo) Create(_ context.Context, doc *domain.Document) error {
	f.put(doc)
	return nil
}

func (f *fakeDocumentRepo) GetByID(_ context.Context, id string) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get document", fmt.Errorf("document %s", id))
	}
	copied := *doc
	return &copied, nil
}

func (f *fakeDocumentRepo) GetView(ctx context.Context, id string) (*domain.DocumentView, error) {
	doc, err := f.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	view := &domain.DocumentView{Document: *doc}
	view.Items = append(view.Items, f.items[id]...)
	if fb, ok := f.feedback[id]; ok {
		copied := *fb
		view.Feedback = &copied
	}
	return view, nil
}

func (f *fakeDocumentRepo) GetItem(_ context.Context, documentID, itemID string) (*domain.DocumentItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, item := range f.items[documentID] {
		if item.ID == itemID {
			copied := item
			return &copied, nil
		}
	}
	return nil, domain.WrapError(domain.ErrNotFound, "get item", fmt.Errorf("item %s", itemID))
}

func (f *fakeDocumentRepo) BeginProcessing(_ context.Context, id string, maxRetries int) (*domain.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "begin processing", fmt.Errorf("document %s", id))
	}
	eligible := doc.Status == domain.StatusUploaded ||
		(doc.Status == domain.StatusError && doc.RetryCount < maxRetries)
	if !eligible {
		return nil, domain.WrapError(domain.ErrInvalidState, "begin processing",
			fmt.Errorf("document %s is %s with %d retries", id, doc.Status, doc.RetryCount))
	}
	doc.Status = domain.StatusProcessing
	doc.Error = ""
	copied := *doc
	return &copied, nil
}

func (f *fakeDocumentRepo) CompleteProcessing(_ context.Context, doc *domain.Document, items []domain.DocumentItem, feedback domain.DocumentFeedback) error {
	if f.completeErr != nil {
		return f.completeErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.docs[doc.ID]
	if !ok || stored.Status != domain.StatusProcessing {
		return domain.WrapError(domain.ErrInvalidState, "complete processing",
			fmt.Errorf("document %s left processing state", doc.ID))
	}
	copied := *doc
	f.docs[doc.ID] = &copied
	f.items[doc.ID] = append([]domain.DocumentItem(nil), items...)
	fb := feedback
	f.feedback[doc.ID] = &fb
	return nil
}

func (f *fakeDocumentRepo) MarkError(ctx context.Context, id, reason, partialText string) error {
	// the real repository runs a query and surfaces context errors
	if err := ctx.Err(); err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.Status != domain.StatusProcessing {
		return domain.WrapError(domain.ErrInvalidState, "mark document error", fmt.Errorf("document %s", id))
	}
	doc.Status = domain.StatusError
	doc.Error = reason
	if partialText != "" {
		doc.ExtractedText = partialText
	}
	doc.RetryCount++
	f.markErrorCalls = append(f.markErrorCalls, reason)
	return nil
}

func (f *fakeDocumentRepo) MarkUnusable(_ context.Context, id, reason string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.Status != domain.StatusAwaitingValidation {
		return domain.WrapError(domain.ErrInvalidState, "mark document unusable", fmt.Errorf("document %s", id))
	}
	doc.Status = domain.StatusError
	doc.Error = reason
	return nil
}

func (f *fakeDocumentRepo) MarkValidated(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	doc, ok := f.docs[id]
	if !ok || doc.Status != domain.StatusAwaitingValidation {
		return domain.WrapError(domain.ErrInvalidState, "mark document validated", fmt.Errorf("document %s", id))
	}
	doc.Status = domain.StatusValidated
	return nil
}

func (f *fakeDocumentRepo) ConfirmItem(_ context.Context, documentID, itemID, code, name, userID string, at time.Time) (ports.ConfirmOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	items := f.items[documentID]
	for i := range items {
		if items[i].ID != itemID {
			continue
		}
		if items[i].ConfirmedCode == "" {
			items[i].ConfirmedCode = code
			items[i].ConfirmedName = name
			items[i].ConfirmedBy = userID
			items[i].ConfirmedAt = &at
			return ports.ConfirmApplied, nil
		}
		if items[i].ConfirmedCode == code {
			return ports.ConfirmIdempotent, nil
		}
		return 0, domain.WrapError(domain.ErrConflict, "confirm item",
			fmt.Errorf("item %s already confirmed as %s", itemID, items[i].ConfirmedCode))
	}
	return 0, domain.WrapError(domain.ErrNotFound, "confirm item", fmt.Errorf("item %s", itemID))
}

func (f *fakeDocumentRepo) ConfirmFeedback(_ context.Context, documentID string, docType domain.DocumentType, userID string, at time.Time) (ports.ConfirmOutcome, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fb, ok := f.feedback[documentID]
	if !ok {
		return 0, domain.WrapError(domain.ErrNotFound, "confirm feedback", fmt.Errorf("document %s", documentID))
	}
	if fb.ConfirmedType == "" {
		fb.ConfirmedType = docType
		fb.ConfirmedBy = userID
		fb.ConfirmedAt = &at
		return ports.ConfirmApplied, nil
	}
	if fb.ConfirmedType == docType {
		return ports.ConfirmIdempotent, nil
	}
	return 0, domain.WrapError(domain.ErrConflict, "confirm feedback",
		fmt.Errorf("document %s type already confirmed as %s", documentID, fb.ConfirmedType))
}

func (f *fakeDocumentRepo) MarkItemReconciled(_ context.Context, itemID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for docID := range f.items {
		items := f.items[docID]
		for i := range items {
			if items[i].ID == itemID {
				if items[i].Reconciled {
					return false, nil
				}
				items[i].Reconciled = true
				return true, nil
			}
		}
	}
	return false, domain.WrapError(domain.ErrNotFound, "mark item reconciled", fmt.Errorf("item %s", itemID))
}

type fakeMappingRepo struct {
	mu       sync.Mutex
	mappings map[string]*domain.PgcMapping

	// reconciled markers live beside the record in the real schema; the
	// fake tracks them in a side map keyed by mapping ID.
	reconciledIDs map[string]bool
}

func newFakeMappingRepo() *fakeMappingRepo {
	return &fakeMappingRepo{
		mappings:      make(map[string]*domain.PgcMapping),
		reconciledIDs: make(map[string]bool),
	}
}

func (f *fakeMappingRepo) CreateAll(_ context.Context, mappings []domain.PgcMapping) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, m := range mappings {
		for _, existing := range f.mappings {
			if existing.BudgetID == m.BudgetID && existing.ItemKind == m.ItemKind && existing.ItemID == m.ItemID {
				return domain.WrapError(domain.ErrConflict, "create mappings",
					fmt.Errorf("item %s in budget %s already mapped", m.ItemID, m.BudgetID))
			}
		}
	}
	for _, m := range mappings {
		copied := m
		f.mappings[m.ID] = &copied
	}
	return nil
}

func (f *fakeMappingRepo) GetByID(_ context.Context, id string) (*domain.PgcMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	m, ok := f.mappings[id]
	if !ok {
		return nil, domain.WrapError(domain.ErrNotFound, "get mapping", fmt.Errorf("mapping %s", id))
	}
	copied := *m
	return &copied, nil
}

func (f *fakeMappingRepo) ListByBudget(_ context.Context, budgetID string) ([]domain.PgcMapping, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.PgcMapping, 0)
	for _, m := range f.mappings {
		if m.BudgetID == budgetID {
			out = append(out, *m)
		}
	}
	return out, nil
}

func (f *fakeMappingRepo) Confirm(_ context.Context, m *domain.PgcMapping) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.mappings[m.ID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "confirm mapping", fmt.Errorf("mapping %s", m.ID))
	}
	if stored.Version != m.Version {
		return domain.WrapError(domain.ErrConflict, "confirm mapping",
			fmt.Errorf("mapping %s version %d is stale", m.ID, m.Version))
	}
	copied := *m
	copied.Version = stored.Version + 1
	f.mappings[m.ID] = &copied
	m.Version = copied.Version
	return nil
}

func (f *fakeMappingRepo) SaveReclassification(_ context.Context, m *domain.PgcMapping) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.mappings[m.ID]
	if !ok {
		return domain.WrapError(domain.ErrNotFound, "save reclassification", fmt.Errorf("mapping %s", m.ID))
	}
	copied := *m
	copied.Version = stored.Version + 1
	f.mappings[m.ID] = &copied
	m.Version = copied.Version
	return nil
}

func (f *fakeMappingRepo) MarkReconciled(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.mappings[id]; !ok {
		return false, domain.WrapError(domain.ErrNotFound, "mark mapping reconciled", fmt.Errorf("mapping %s", id))
	}
	if f.reconciledIDs[id] {
		return false, nil
	}
	f.reconciledIDs[id] = true
	return true, nil
}

type fakeQueue struct {
	mu         sync.Mutex
	published  []string
	publishErr error
}

func (f *fakeQueue) PublishDocumentQueued(_ context.Context, documentID string) error {
	if f.publishErr != nil {
		return f.publishErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published = append(f.published, documentID)
	return nil
}

func (f *fakeQueue) SubscribeDocumentQueued(context.Context, func(context.Context, string) error) error {
	return errors.New("not used in tests")
}

type fakeStorage struct {
	mu    sync.Mutex
	blobs map[string][]byte
}

func newFakeStorage() *fakeStorage {
	return &fakeStorage{blobs: make(map[string][]byte)}
}

func (f *fakeStorage) Save(_ context.Context, key string, data io.Reader) error {
	raw, err := io.ReadAll(data)
	if err != nil {
		return err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.blobs[key] = raw
	return nil
}

func (f *fakeStorage) Open(_ context.Context, key string) (io.ReadCloser, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	raw, ok := f.blobs[key]
	if !ok {
		return nil, fmt.Errorf("blob %s not found", key)
	}
	return io.NopCloser(bytes.NewReader(raw)), nil
}

type fakeRecognizer struct {
	extraction domain.Extraction
	err        error
}

func (f *fakeRecognizer) Recognize(context.Context, *domain.Document) (domain.Extraction, error) {
	return f.extraction, f.err
}

type fakeClassifier struct {
	mu      sync.Mutex
	results map[string]domain.ClassificationResult
	err     error
	calls   []string
}

func (f *fakeClassifier) Classify(description string, _ domain.ItemKind, _ *decimal.Decimal) (domain.ClassificationResult, error) {
	f.mu.Lock()
	f.calls = append(f.calls, description)
	f.mu.Unlock()
	if f.err != nil {
		return domain.ClassificationResult{}, f.err
	}
	if result, ok := f.results[description]; ok {
		return result, nil
	}
	return domain.ClassificationResult{
		Candidates: []domain.Candidate{{Code: "731", Name: "Fornecimentos combustíveis e lubrificantes", Confidence: 50}},
	}, nil
}

type fakeTyper struct {
	docType    domain.DocumentType
	confidence int
}

func (f *fakeTyper) SuggestType(string) (domain.DocumentType, int) {
	if f.docType == "" {
		return domain.DocTypeDesconhecido, 0
	}
	return f.docType, f.confidence
}

type fakeCatalog struct {
	accounts []domain.PgcAccount
}

func (f *fakeCatalog) Accounts() []domain.PgcAccount {
	return f.accounts
}

func (f *fakeCatalog) Get(code string) (domain.PgcAccount, bool) {
	for _, account := range f.accounts {
		if account.Code == code {
			return account, true
		}
	}
	return domain.PgcAccount{}, false
}

type fakeLexiconStore struct {
	mu    sync.Mutex
	added map[string][]string
}

func newFakeLexiconStore() *fakeLexiconStore {
	return &fakeLexiconStore{added: make(map[string][]string)}
}

func (f *fakeLexiconStore) AddTokens(_ context.Context, code string, tokens []string, _ time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.added[code] = append(f.added[code], tokens...)
	return nil
}

func (f *fakeLexiconStore) AllTokens(context.Context) (map[string][]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string][]string, len(f.added))
	for code, tokens := range f.added {
		out[code] = append([]string(nil), tokens...)
	}
	return out, nil
}

type fakeBudgetDirectory struct {
	items []domain.BudgetItem
	err   error
}

func (f *fakeBudgetDirectory) CommittedItems(context.Context, string) ([]domain.BudgetItem, error) {
	return f.items, f.err
}
