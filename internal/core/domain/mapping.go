package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemKind partitions financial line items. Each kind is compatible with a
// fixed range of PGC account classes.
type ItemKind string

const (
	KindRevenue ItemKind = "revenue"
	KindCost    ItemKind = "cost"
	KindAsset   ItemKind = "asset"
)

func (k ItemKind) Valid() bool {
	switch k {
	case KindRevenue, KindCost, KindAsset:
		return true
	}
	return false
}

// Candidate is one scored account suggestion.
type Candidate struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Confidence int    `json:"confidence"`
}

// ClassificationResult is the ordered candidate list for one item, strictly
// descending by confidence with ties broken by ascending account code.
type ClassificationResult struct {
	Candidates     []Candidate `json:"candidates"`
	RequiresReview bool        `json:"requires_review"`
}

// Best returns the top candidate. Callers must check Empty first.
func (r ClassificationResult) Best() Candidate {
	return r.Candidates[0]
}

func (r ClassificationResult) Empty() bool {
	return len(r.Candidates) == 0
}

// BudgetItem is a financial line item already committed to a budget, supplied
// by the budget collaborator as input for PGC mapping.
type BudgetItem struct {
	ID          string           `json:"id"`
	Kind        ItemKind         `json:"kind"`
	Description string           `json:"description"`
	Amount      *decimal.Decimal `json:"amount,omitempty"`
}

// OriginalMapping is the immutable snapshot of the first automated result for
// a mapping record, frozen at creation and preserved after user adjustment.
type OriginalMapping struct {
	SchemaVersion int         `json:"schema_version"`
	Code          string      `json:"code"`
	Name          string      `json:"name"`
	Confidence    int         `json:"confidence"`
	ClassifiedAt  time.Time   `json:"classified_at"`
	Candidates    []Candidate `json:"candidates"`
}

// PgcMapping is the canonical budget-scoped mapping record for a committed
// financial item. Version supports compare-and-set confirmation.
type PgcMapping struct {
	ID             string          `json:"id"`
	BudgetID       string          `json:"budget_id"`
	ItemKind       ItemKind        `json:"item_kind"`
	ItemID         string          `json:"item_id"`
	Description    string          `json:"description"`
	Code           string          `json:"code"`
	Name           string          `json:"name"`
	Confidence     int             `json:"confidence"`
	CustomCategory string          `json:"custom_category,omitempty"`
	AdjustedByUser bool            `json:"adjusted_by_user"`
	AdjustedBy     string          `json:"adjusted_by,omitempty"`
	Original       OriginalMapping `json:"original_mapping"`

	// PreviousSuggestions versions suggestions displaced by explicit
	// reclassification runs, oldest first. The Original snapshot itself is
	// never rewritten.
	PreviousSuggestions []Candidate `json:"previous_suggestions,omitempty"`

	// Candidate* carry a fresh automated proposal produced after the user
	// already adjusted the record. They never overwrite the confirmed fields.
	CandidateCode       string `json:"candidate_code,omitempty"`
	CandidateName       string `json:"candidate_name,omitempty"`
	CandidateConfidence int    `json:"candidate_confidence,omitempty"`

	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
