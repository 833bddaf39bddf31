package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type DocumentStatus string

const (
	StatusUploaded           DocumentStatus = "uploaded"
	StatusProcessing         DocumentStatus = "processing"
	StatusAwaitingValidation DocumentStatus = "awaiting_validation"
	StatusValidated          DocumentStatus = "validated"
	StatusError              DocumentStatus = "error"
)

// DocumentType is the document-level classification proposed by the pipeline
// and confirmed by a user.
type DocumentType string

const (
	DocTypeEntrada      DocumentType = "entrada"
	DocTypeSaida        DocumentType = "saida"
	DocTypeContrato     DocumentType = "contrato"
	DocTypeDesconhecido DocumentType = "desconhecido"
)

func (t DocumentType) Valid() bool {
	switch t {
	case DocTypeEntrada, DocTypeSaida, DocTypeContrato, DocTypeDesconhecido:
		return true
	}
	return false
}

type Document struct {
	ID               string         `json:"id"`
	Filename         string         `json:"filename"`
	MimeType         string         `json:"mime_type"`
	StoragePath      string         `json:"storage_path"`
	SizeBytes        int64          `json:"size_bytes"`
	UploadedBy       string         `json:"uploaded_by"`
	Status           DocumentStatus `json:"status"`
	OCRConfidence    *float64       `json:"ocr_confidence,omitempty"`
	ExtractedText    string         `json:"extracted_text,omitempty"`
	SuggestedSummary *Summary       `json:"suggested_summary,omitempty"`
	ProcessedAt      *time.Time     `json:"processed_at,omitempty"`
	RiskCategory     string         `json:"risk_category,omitempty"`
	RetryCount       int            `json:"retry_count"`
	Error            string         `json:"error,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Summary is the structured suggestion summary written when a document
// reaches awaiting_validation. SchemaVersion tags the layout so old rows stay
// readable after the structure evolves.
type Summary struct {
	SchemaVersion int             `json:"schema_version"`
	ItemCount     int             `json:"item_count"`
	TotalAmount   decimal.Decimal `json:"total_amount"`
	ByKind        map[string]int  `json:"by_kind"`
	ReviewCount   int             `json:"review_count"`
}

// DocumentItem is one extracted line item. Description is immutable after
// extraction; the suggested fields are written once by the classifier and the
// confirmed fields only by a user confirmation.
type DocumentItem struct {
	ID             string           `json:"id"`
	DocumentID     string           `json:"document_id"`
	LineNo         int              `json:"line_no"`
	Description    string           `json:"description"`
	Amount         *decimal.Decimal `json:"amount,omitempty"`
	Kind           ItemKind         `json:"kind"`
	SuggestedCode  string           `json:"suggested_code"`
	SuggestedName  string           `json:"suggested_name"`
	Confidence     int              `json:"confidence"`
	RequiresReview bool             `json:"requires_review"`
	ConfirmedCode  string           `json:"confirmed_code,omitempty"`
	ConfirmedName  string           `json:"confirmed_name,omitempty"`
	ConfirmedBy    string           `json:"confirmed_by,omitempty"`
	ConfirmedAt    *time.Time       `json:"confirmed_at,omitempty"`
	Reconciled     bool             `json:"reconciled"`
	CreatedAt      time.Time        `json:"created_at"`
}

// Confirmed reports whether the item has a user-confirmed account. The
// confirmed code and name are always set together.
func (i *DocumentItem) Confirmed() bool {
	return i.ConfirmedCode != ""
}

// DocumentFeedback is the one-per-document record of the document-level
// classification. Created when the pipeline proposes a type, updated exactly
// once when a user confirms or overrides it.
type DocumentFeedback struct {
	DocumentID     string       `json:"document_id"`
	SuggestedType  DocumentType `json:"suggested_type"`
	TypeConfidence int          `json:"type_confidence"`
	ConfirmedType  DocumentType `json:"confirmed_type,omitempty"`
	ConfirmedBy    string       `json:"confirmed_by,omitempty"`
	ConfirmedAt    *time.Time   `json:"confirmed_at,omitempty"`
}

func (f *DocumentFeedback) Confirmed() bool {
	return f.ConfirmedType != ""
}

// Extraction is the black-box OCR collaborator result.
type Extraction struct {
	Text       string  `json:"text"`
	Confidence float64 `json:"confidence"`
}

// DocumentView is the read model returned to display collaborators.
type DocumentView struct {
	Document Document          `json:"document"`
	Items    []DocumentItem    `json:"items"`
	Feedback *DocumentFeedback `json:"feedback,omitempty"`
}

// KindForType derives the item kind implied by a document-level type.
// Contracts and unknown documents default to cost, the common case for
// uploaded supplier paperwork.
func KindForType(t DocumentType) ItemKind {
	if t == DocTypeEntrada {
		return KindRevenue
	}
	return KindCost
}
