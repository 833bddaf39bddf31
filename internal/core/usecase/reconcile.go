package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/barros404/finance-sub003/internal/classifier"
	"github.com/barros404/finance-sub003/internal/core/domain"
	"github.com/barros404/finance-sub003/internal/core/ports"
)

// ReconcileUseCase applies the learning signal from user corrections: when a
// confirmed account differs from the suggestion, the item's normalized
// tokens join the confirmed account's lexicon. Each record feeds the signal
// at most once, guarded by its reconciled marker, so repeated confirmations
// never double-count.
type ReconcileUseCase struct {
	docs       ports.DocumentRepository
	mappings   ports.MappingRepository
	store      ports.LexiconStore
	lexicon    *classifier.Lexicon
	normalizer *classifier.Normalizer

	onLexiconUpdate func()
}

func NewReconcileUseCase(
	docs ports.DocumentRepository,
	mappings ports.MappingRepository,
	store ports.LexiconStore,
	lexicon *classifier.Lexicon,
	normalizer *classifier.Normalizer,
) *ReconcileUseCase {
	return &ReconcileUseCase{
		docs:       docs,
		mappings:   mappings,
		store:      store,
		lexicon:    lexicon,
		normalizer: normalizer,
	}
}

// SetLexiconObserver registers a hook invoked after every persisted lexicon
// write. Used for metrics; a nil observer is fine.
func (uc *ReconcileUseCase) SetLexiconObserver(fn func()) {
	uc.onLexiconUpdate = fn
}

// ReconcileItem consumes a confirmed document item. The automated suggestion
// fields are never touched.
func (uc *ReconcileUseCase) ReconcileItem(ctx context.Context, item *domain.DocumentItem) error {
	if item == nil || !item.Confirmed() {
		return nil
	}

	won, err := uc.docs.MarkItemReconciled(ctx, item.ID)
	if err != nil {
		return fmt.Errorf("mark item reconciled: %w", err)
	}
	if !won {
		return nil
	}
	if item.ConfirmedCode == item.SuggestedCode {
		// agreement confirms the model; no corrective signal needed
		return nil
	}

	return uc.learn(ctx, item.ConfirmedCode, item.Description)
}

// ReconcileMapping consumes a confirmed budget mapping record.
func (uc *ReconcileUseCase) ReconcileMapping(ctx context.Context, m *domain.PgcMapping) error {
	if m == nil || !m.AdjustedByUser {
		return nil
	}

	won, err := uc.mappings.MarkReconciled(ctx, m.ID)
	if err != nil {
		return fmt.Errorf("mark mapping reconciled: %w", err)
	}
	if !won {
		return nil
	}

	return uc.learn(ctx, m.Code, m.Description)
}

func (uc *ReconcileUseCase) learn(ctx context.Context, code, description string) error {
	tokens := uc.normalizer.Normalize(description)
	if len(tokens) == 0 {
		return nil
	}

	uc.lexicon.Add(code, tokens)
	if err := uc.store.AddTokens(ctx, code, tokens, time.Now().UTC()); err != nil {
		return fmt.Errorf("persist lexicon tokens: %w", err)
	}

	if uc.onLexiconUpdate != nil {
		uc.onLexiconUpdate()
	}
	slog.Info("lexicon_updated", "account_code", code, "tokens", len(tokens))
	return nil
}
