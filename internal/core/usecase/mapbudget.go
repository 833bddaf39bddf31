package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/barros404/finance-sub003/internal/core/domain"
	"github.com/barros404/finance-sub003/internal/core/ports"
)

const originalMappingSchemaVersion = 1

// MapBudgetUseCase classifies financial items already committed to a budget
// and maintains their canonical PGC mapping records.
type MapBudgetUseCase struct {
	budgets    ports.BudgetDirectory
	repo       ports.MappingRepository
	catalog    ports.AccountCatalog
	classifier ports.ItemClassifier
	reconciler *ReconcileUseCase
}

func NewMapBudgetUseCase(
	budgets ports.BudgetDirectory,
	repo ports.MappingRepository,
	catalog ports.AccountCatalog,
	classifier ports.ItemClassifier,
	reconciler *ReconcileUseCase,
) *MapBudgetUseCase {
	return &MapBudgetUseCase{
		budgets:    budgets,
		repo:       repo,
		catalog:    catalog,
		classifier: classifier,
		reconciler: reconciler,
	}
}

// MapBudget classifies every committed item of a budget and persists one
// mapping record per item, with the automated result frozen into the
// original snapshot at creation. A budget whose items are already mapped is
// rejected; re-runs go through Reclassify.
func (uc *MapBudgetUseCase) MapBudget(ctx context.Context, budgetID string) ([]domain.PgcMapping, error) {
	items, err := uc.budgets.CommittedItems(ctx, budgetID)
	if err != nil {
		return nil, domain.WrapError(domain.ErrClassification, "fetch budget items", err)
	}
	if len(items) == 0 {
		return nil, domain.WrapError(domain.ErrValidation, "map budget", errors.New("budget has no committed items"))
	}

	now := time.Now().UTC()
	mappings := make([]domain.PgcMapping, 0, len(items))
	for _, item := range items {
		result, err := uc.classifier.Classify(item.Description, item.Kind, item.Amount)
		if err != nil {
			return nil, fmt.Errorf("classify budget item %s: %w", item.ID, err)
		}
		best := result.Best()

		mapping := domain.PgcMapping{
			ID:          uuid.NewString(),
			BudgetID:    budgetID,
			ItemKind:    item.Kind,
			ItemID:      item.ID,
			Description: item.Description,
			Code:        best.Code,
			Name:        best.Name,
			Confidence:  best.Confidence,
			Original: domain.OriginalMapping{
				SchemaVersion: originalMappingSchemaVersion,
				Code:          best.Code,
				Name:          best.Name,
				Confidence:    best.Confidence,
				ClassifiedAt:  now,
				Candidates:    result.Candidates,
			},
			Version:   1,
			CreatedAt: now,
			UpdatedAt: now,
		}
		if result.RequiresReview {
			mapping.CustomCategory = "revisao manual"
		}
		mappings = append(mappings, mapping)
	}

	if err := uc.repo.CreateAll(ctx, mappings); err != nil {
		return nil, err
	}
	return mappings, nil
}

func (uc *MapBudgetUseCase) ListMappings(ctx context.Context, budgetID string) ([]domain.PgcMapping, error) {
	return uc.repo.ListByBudget(ctx, budgetID)
}

// Reclassify re-runs the classifier for one mapping. For user-adjusted
// records the fresh result lands in the candidate lane for re-confirmation
// and never overwrites the confirmed fields; otherwise the previous
// suggestion is versioned aside and replaced.
func (uc *MapBudgetUseCase) Reclassify(ctx context.Context, mappingID string) (*domain.PgcMapping, error) {
	mapping, err := uc.repo.GetByID(ctx, mappingID)
	if err != nil {
		return nil, err
	}

	result, err := uc.classifier.Classify(mapping.Description, mapping.ItemKind, nil)
	if err != nil {
		return nil, fmt.Errorf("reclassify mapping %s: %w", mappingID, err)
	}
	best := result.Best()
	now := time.Now().UTC()

	if mapping.AdjustedByUser {
		mapping.CandidateCode = best.Code
		mapping.CandidateName = best.Name
		mapping.CandidateConfidence = best.Confidence
	} else {
		mapping.PreviousSuggestions = append(mapping.PreviousSuggestions, domain.Candidate{
			Code:       mapping.Code,
			Name:       mapping.Name,
			Confidence: mapping.Confidence,
		})
		mapping.Code = best.Code
		mapping.Name = best.Name
		mapping.Confidence = best.Confidence
	}
	mapping.UpdatedAt = now

	if err := uc.repo.SaveReclassification(ctx, mapping); err != nil {
		return nil, err
	}
	return mapping, nil
}

// ConfirmMapping applies a user decision with compare-and-set on the record
// version; a stale version surfaces as domain.ErrConflict instead of
// last-write-wins.
func (uc *MapBudgetUseCase) ConfirmMapping(ctx context.Context, mappingID, code, customCategory, userID string, version int) (*domain.PgcMapping, error) {
	if userID == "" {
		return nil, domain.WrapError(domain.ErrValidation, "confirm mapping", errors.New("user id is required"))
	}
	account, ok := uc.catalog.Get(code)
	if !ok || !account.Usable() {
		return nil, domain.WrapError(domain.ErrValidation, "confirm mapping", fmt.Errorf("unknown account code %q", code))
	}

	mapping, err := uc.repo.GetByID(ctx, mappingID)
	if err != nil {
		return nil, err
	}
	if mapping.AdjustedBy != "" && mapping.Code == account.Code && mapping.CustomCategory == customCategory {
		// identical re-confirmation is a no-op, adjusted or not
		return mapping, nil
	}

	// an adjustment is a decision against the live suggestion: the candidate
	// lane after a reclassify of an adjusted record, the suggestion fields
	// otherwise. The original snapshot is history, not the baseline.
	suggested := mapping.Code
	if mapping.AdjustedByUser && mapping.CandidateCode != "" {
		suggested = mapping.CandidateCode
	}

	mapping.Version = version
	mapping.Code = account.Code
	mapping.Name = account.Description
	mapping.CustomCategory = customCategory
	mapping.AdjustedByUser = suggested != account.Code
	mapping.AdjustedBy = userID
	mapping.CandidateCode = ""
	mapping.CandidateName = ""
	mapping.CandidateConfidence = 0
	mapping.UpdatedAt = time.Now().UTC()

	if err := uc.repo.Confirm(ctx, mapping); err != nil {
		return nil, err
	}

	if mapping.AdjustedByUser {
		if err := uc.reconciler.ReconcileMapping(ctx, mapping); err != nil {
			return nil, fmt.Errorf("reconcile mapping: %w", err)
		}
	}
	return mapping, nil
}
