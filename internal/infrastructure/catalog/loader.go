package catalog

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/barros404/finance-sub003/internal/core/domain"
)

// LoadXLSX reads a PGC account seed workbook. Expected columns on the first
// sheet: code, description, class, type, category, subcategory, status. The
// first row is treated as a header.
func LoadXLSX(path string) ([]domain.PgcAccount, error) {
	file, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open catalog workbook: %w", err)
	}
	defer file.Close()

	sheet := file.GetSheetName(0)
	rows, err := file.GetRows(sheet)
	if err != nil {
		return nil, fmt.Errorf("read catalog sheet %q: %w", sheet, err)
	}
	if len(rows) < 2 {
		return nil, fmt.Errorf("catalog sheet %q has no data rows", sheet)
	}

	accounts := make([]domain.PgcAccount, 0, len(rows)-1)
	for i, row := range rows[1:] {
		account, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("catalog row %d: %w", i+2, err)
		}
		if account.Code == "" {
			continue
		}
		accounts = append(accounts, account)
	}
	if len(accounts) == 0 {
		return nil, fmt.Errorf("catalog sheet %q yielded no accounts", sheet)
	}
	return accounts, nil
}

func parseRow(row []string) (domain.PgcAccount, error) {
	account := domain.PgcAccount{
		Code:        cell(row, 0),
		Description: cell(row, 1),
		Validation:  domain.AccountPendente,
	}
	if account.Code == "" {
		return account, nil
	}
	if account.Description == "" {
		return domain.PgcAccount{}, fmt.Errorf("account %s missing description", account.Code)
	}

	class, err := strconv.Atoi(cell(row, 2))
	if err != nil || class < 1 || class > 8 {
		return domain.PgcAccount{}, fmt.Errorf("account %s has invalid class %q", account.Code, cell(row, 2))
	}
	account.Class = class

	switch strings.ToLower(cell(row, 3)) {
	case "debit", "debito":
		account.Type = domain.AccountDebit
	case "credit", "credito":
		account.Type = domain.AccountCredit
	case "":
	default:
		return domain.PgcAccount{}, fmt.Errorf("account %s has invalid type %q", account.Code, cell(row, 3))
	}

	account.Category = cell(row, 4)
	account.Subcategory = cell(row, 5)

	switch status := strings.ToLower(cell(row, 6)); status {
	case "validada":
		account.Validation = domain.AccountValidada
	case "erro":
		account.Validation = domain.AccountErro
	case "revisao":
		account.Validation = domain.AccountRevisao
	case "", "pendente":
		account.Validation = domain.AccountPendente
	default:
		return domain.PgcAccount{}, fmt.Errorf("account %s has invalid status %q", account.Code, status)
	}

	return account, nil
}

func cell(row []string, idx int) string {
	if idx >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[idx])
}
