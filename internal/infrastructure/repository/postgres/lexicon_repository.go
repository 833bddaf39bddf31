package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// LexiconRepository persists learned tokens per account with a bounded set
// size. Eviction is oldest-first so the lexicon tracks recent vocabulary.
type LexiconRepository struct {
	db         *sql.DB
	maxPerAcct int
}

func NewLexiconRepository(db *sql.DB, maxPerAccount int) *LexiconRepository {
	if maxPerAccount <= 0 {
		maxPerAccount = 64
	}
	return &LexiconRepository{db: db, maxPerAcct: maxPerAccount}
}

func (r *LexiconRepository) EnsureSchema(ctx context.Context) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if _, err := tx.ExecContext(ctx, `SELECT pg_advisory_xact_lock($1)`, int64(2026030104)); err != nil {
		return fmt.Errorf("acquire schema lock: %w", err)
	}

	const query = `
CREATE TABLE IF NOT EXISTS account_lexicon (
	account_code TEXT NOT NULL,
	token TEXT NOT NULL,
	learned_at TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (account_code, token)
);

CREATE INDEX IF NOT EXISTS idx_account_lexicon_age ON account_lexicon(account_code, learned_at);
`
	if _, err := tx.ExecContext(ctx, query); err != nil {
		return fmt.Errorf("execute schema ddl: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema tx: %w", err)
	}
	return nil
}

// AddTokens inserts the tokens for one account and trims the account's set
// back to the bound, dropping the oldest entries first. Re-learning an
// existing token refreshes its age instead of duplicating it.
func (r *LexiconRepository) AddTokens(ctx context.Context, code string, tokens []string, learnedAt time.Time) error {
	if len(tokens) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin lexicon tx: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	for _, token := range tokens {
		if _, err := tx.ExecContext(ctx, `
INSERT INTO account_lexicon (account_code, token, learned_at)
VALUES ($1,$2,$3)
ON CONFLICT (account_code, token) DO UPDATE SET learned_at = EXCLUDED.learned_at
`, code, token, learnedAt); err != nil {
			return fmt.Errorf("insert lexicon token: %w", err)
		}
	}

	if _, err := tx.ExecContext(ctx, `
DELETE FROM account_lexicon
WHERE account_code = $1 AND token IN (
	SELECT token FROM account_lexicon
	WHERE account_code = $1
	ORDER BY learned_at DESC, token
	OFFSET $2
)
`, code, r.maxPerAcct); err != nil {
		return fmt.Errorf("trim lexicon: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit lexicon tx: %w", err)
	}
	return nil
}

func (r *LexiconRepository) AllTokens(ctx context.Context) (map[string][]string, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT account_code, token
FROM account_lexicon
ORDER BY account_code, learned_at, token
`)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]string)
	for rows.Next() {
		var code, token string
		if err := rows.Scan(&code, &token); err != nil {
			return nil, fmt.Errorf("scan lexicon row: %w", err)
		}
		out[code] = append(out[code], token)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate lexicon: %w", err)
	}
	return out, nil
}
