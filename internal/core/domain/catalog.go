package domain

type AccountType string

const (
	AccountDebit  AccountType = "debit"
	AccountCredit AccountType = "credit"
)

type AccountValidation string

const (
	AccountPendente AccountValidation = "pendente"
	AccountValidada AccountValidation = "validada"
	AccountErro     AccountValidation = "erro"
	AccountRevisao  AccountValidation = "revisao"
)

// PgcAccount is one entry of the Plano Geral de Contas catalog. The catalog
// is read-mostly; mutations happen through an administrative collaborator
// outside this engine.
type PgcAccount struct {
	Code        string            `json:"code"`
	Description string            `json:"description"`
	Class       int               `json:"class"`
	Type        AccountType       `json:"type,omitempty"`
	Category    string            `json:"category,omitempty"`
	Subcategory string            `json:"subcategory,omitempty"`
	Validation  AccountValidation `json:"validation_status"`
}

// Usable reports whether the account may be offered as a classification
// candidate. Accounts flagged erro are excluded before scoring.
func (a PgcAccount) Usable() bool {
	return a.Validation != AccountErro
}
