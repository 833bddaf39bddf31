package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/barros404/finance-sub003/internal/core/domain"
)

type CatalogRepository struct {
	db *sql.DB
}

func NewCatalogRepository(db *sql.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

func (r *CatalogRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030103)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS pgc_accounts (
	code TEXT PRIMARY KEY,
	description TEXT NOT NULL,
	class INT NOT NULL,
	account_type TEXT NOT NULL DEFAULT '',
	category TEXT NOT NULL DEFAULT '',
	subcategory TEXT NOT NULL DEFAULT '',
	validation_status TEXT NOT NULL DEFAULT 'pendente',
	CONSTRAINT class_range CHECK (class BETWEEN 1 AND 8)
);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

func (r *CatalogRepository) UpsertAccounts(ctx context.Context, accounts []domain.PgcAccount) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin catalog tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, account := range accounts {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO pgc_accounts (code, description, class, account_type, category, subcategory, validation_status)
VALUES ($1,$2,$3,$4,$5,$6,$7)
ON CONFLICT (code) DO UPDATE
SET description = EXCLUDED.description,
    class = EXCLUDED.class,
    account_type = EXCLUDED.account_type,
    category = EXCLUDED.category,
    subcategory = EXCLUDED.subcategory,
    validation_status = EXCLUDED.validation_status
`,
			account.Code, account.Description, account.Class, string(account.Type),
			account.Category, account.Subcategory, string(account.Validation),
		); err != nil {
			return fmt.Errorf("upsert account %s: %w", account.Code, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit catalog tx: %w", err)
	}
	return nil
}

func (r *CatalogRepository) ListAccounts(ctx context.Context) ([]domain.PgcAccount, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT code, description, class, account_type, category, subcategory, validation_status
FROM pgc_accounts
ORDER BY code
`)
	if err != nil {
		return nil, fmt.Errorf("list accounts: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PgcAccount, 0)
	for rows.Next() {
		var account domain.PgcAccount
		var accountType, validation string
		if err := rows.Scan(&account.Code, &account.Description, &account.Class,
			&accountType, &account.Category, &account.Subcategory, &validation); err != nil {
			return nil, fmt.Errorf("scan account row: %w", err)
		}
		account.Type = domain.AccountType(accountType)
		account.Validation = domain.AccountValidation(validation)
		out = append(out, account)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate accounts: %w", err)
	}
	return out, nil
}
