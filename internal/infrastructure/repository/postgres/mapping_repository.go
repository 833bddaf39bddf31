package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/barros404/finance-sub003/internal/core/domain"
)

type MappingRepository struct {
	db *sql.DB
}

func NewMappingRepository(db *sql.DB) *MappingRepository {
	return &MappingRepository{db: db}
}

func (r *MappingRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030102)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS pgc_mappings (
	id TEXT PRIMARY KEY,
	budget_id TEXT NOT NULL,
	item_kind TEXT NOT NULL,
	item_id TEXT NOT NULL,
	description TEXT NOT NULL,
	code TEXT NOT NULL,
	name TEXT NOT NULL,
	confidence INT NOT NULL,
	custom_category TEXT NOT NULL DEFAULT '',
	adjusted_by_user BOOLEAN NOT NULL DEFAULT FALSE,
	adjusted_by TEXT NOT NULL DEFAULT '',
	original_mapping JSONB NOT NULL,
	previous_suggestions JSONB,
	candidate_code TEXT NOT NULL DEFAULT '',
	candidate_name TEXT NOT NULL DEFAULT '',
	candidate_confidence INT NOT NULL DEFAULT 0,
	version INT NOT NULL DEFAULT 1,
	reconciled BOOLEAN NOT NULL DEFAULT FALSE,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL,
	CONSTRAINT uq_pgc_mappings_item UNIQUE (budget_id, item_kind, item_id)
);

CREATE INDEX IF NOT EXISTS idx_pgc_mappings_budget ON pgc_mappings(budget_id);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// CreateAll inserts the batch in one transaction. A duplicate
// (budget_id, item_kind, item_id) aborts the whole batch with
// domain.ErrConflict: a budget is mapped once, re-runs go through
// reclassification.
func (r *MappingRepository) CreateAll(ctx context.Context, mappings []domain.PgcMapping) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin mapping tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, m := range mappings {
		originalJSON, err := json.Marshal(m.Original)
		if err != nil {
			return fmt.Errorf("marshal original snapshot: %w", err)
		}
		previousJSON, err := marshalSuggestions(m.PreviousSuggestions)
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx, `
INSERT INTO pgc_mappings (
	id, budget_id, item_kind, item_id, description, code, name, confidence,
	custom_category, adjusted_by_user, adjusted_by, original_mapping,
	previous_suggestions, candidate_code, candidate_name, candidate_confidence,
	version, created_at, updated_at
) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19)
`,
			m.ID, m.BudgetID, string(m.ItemKind), m.ItemID, m.Description,
			m.Code, m.Name, m.Confidence, m.CustomCategory, m.AdjustedByUser,
			m.AdjustedBy, originalJSON, previousJSON, m.CandidateCode,
			m.CandidateName, m.CandidateConfidence, m.Version, m.CreatedAt, m.UpdatedAt,
		)
		if err != nil {
			if isUniqueViolation(err) {
				return domain.WrapError(domain.ErrConflict, "create mappings",
					fmt.Errorf("item %s in budget %s already mapped", m.ItemID, m.BudgetID))
			}
			return fmt.Errorf("insert mapping %s: %w", m.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit mapping tx: %w", err)
	}
	return nil
}

const mappingColumns = `
id, budget_id, item_kind, item_id, description, code, name, confidence,
custom_category, adjusted_by_user, adjusted_by, original_mapping,
previous_suggestions, candidate_code, candidate_name, candidate_confidence,
version, created_at, updated_at`

func (r *MappingRepository) GetByID(ctx context.Context, id string) (*domain.PgcMapping, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+mappingColumns+`
FROM pgc_mappings
WHERE id = $1
`, id)

	m, err := scanMapping(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.WrapError(domain.ErrNotFound, "get mapping", fmt.Errorf("mapping %s", id))
		}
		return nil, fmt.Errorf("scan mapping: %w", err)
	}
	return m, nil
}

func (r *MappingRepository) ListByBudget(ctx context.Context, budgetID string) ([]domain.PgcMapping, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+mappingColumns+`
FROM pgc_mappings
WHERE budget_id = $1
ORDER BY item_kind, item_id
`, budgetID)
	if err != nil {
		return nil, fmt.Errorf("list mappings: %w", err)
	}
	defer rows.Close()

	out := make([]domain.PgcMapping, 0)
	for rows.Next() {
		m, err := scanMapping(rows)
		if err != nil {
			return nil, fmt.Errorf("scan mapping row: %w", err)
		}
		out = append(out, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate mappings: %w", err)
	}
	return out, nil
}

// Confirm applies the user decision only when the caller's version still
// matches the stored row. The original snapshot column stays untouched.
func (r *MappingRepository) Confirm(ctx context.Context, m *domain.PgcMapping) error {
	result, err := r.db.ExecContext(ctx, `
UPDATE pgc_mappings
SET code = $2, name = $3, custom_category = $4, adjusted_by_user = $5,
    adjusted_by = $6, candidate_code = '', candidate_name = '',
    candidate_confidence = 0, version = version + 1, updated_at = $7
WHERE id = $1 AND version = $8
`, m.ID, m.Code, m.Name, m.CustomCategory, m.AdjustedByUser, m.AdjustedBy,
		m.UpdatedAt, m.Version)
	if err != nil {
		return fmt.Errorf("confirm mapping: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("confirm mapping rows affected: %w", err)
	}
	if affected == 1 {
		m.Version++
		return nil
	}

	if _, err := r.GetByID(ctx, m.ID); err != nil {
		return err
	}
	return domain.WrapError(domain.ErrConflict, "confirm mapping",
		fmt.Errorf("mapping %s version %d is stale", m.ID, m.Version))
}

func (r *MappingRepository) SaveReclassification(ctx context.Context, m *domain.PgcMapping) error {
	previousJSON, err := marshalSuggestions(m.PreviousSuggestions)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `
UPDATE pgc_mappings
SET code = $2, name = $3, confidence = $4, previous_suggestions = $5,
    candidate_code = $6, candidate_name = $7, candidate_confidence = $8,
    version = version + 1, updated_at = $9
WHERE id = $1
`, m.ID, m.Code, m.Name, m.Confidence, previousJSON,
		m.CandidateCode, m.CandidateName, m.CandidateConfidence, m.UpdatedAt)
	if err != nil {
		return fmt.Errorf("save reclassification: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("save reclassification rows affected: %w", err)
	}
	if affected == 0 {
		return domain.WrapError(domain.ErrNotFound, "save reclassification", fmt.Errorf("mapping %s", m.ID))
	}
	m.Version++
	return nil
}

func (r *MappingRepository) MarkReconciled(ctx context.Context, id string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE pgc_mappings
SET reconciled = TRUE
WHERE id = $1 AND reconciled = FALSE
`, id)
	if err != nil {
		return false, fmt.Errorf("mark mapping reconciled: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark mapping reconciled rows affected: %w", err)
	}
	return affected == 1, nil
}

func scanMapping(row rowScanner) (*domain.PgcMapping, error) {
	var m domain.PgcMapping
	var kind string
	var originalRaw []byte
	var previousRaw []byte

	err := row.Scan(
		&m.ID, &m.BudgetID, &kind, &m.ItemID, &m.Description, &m.Code, &m.Name,
		&m.Confidence, &m.CustomCategory, &m.AdjustedByUser, &m.AdjustedBy,
		&originalRaw, &previousRaw, &m.CandidateCode, &m.CandidateName,
		&m.CandidateConfidence, &m.Version, &m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	m.ItemKind = domain.ItemKind(kind)
	if err := json.Unmarshal(originalRaw, &m.Original); err != nil {
		return nil, fmt.Errorf("unmarshal original snapshot: %w", err)
	}
	if len(previousRaw) > 0 {
		if err := json.Unmarshal(previousRaw, &m.PreviousSuggestions); err != nil {
			return nil, fmt.Errorf("unmarshal previous suggestions: %w", err)
		}
	}
	return &m, nil
}

func marshalSuggestions(candidates []domain.Candidate) ([]byte, error) {
	if len(candidates) == 0 {
		return nil, nil
	}
	data, err := json.Marshal(candidates)
	if err != nil {
		return nil, fmt.Errorf("marshal previous suggestions: %w", err)
	}
	return data, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
