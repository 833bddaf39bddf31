// Package catalog holds the in-memory PGC chart-of-accounts reference.
package catalog

import (
	"sort"
	"sync"

	"github.com/barros404/finance-sub003/internal/core/domain"
)

// Catalog is a read-mostly snapshot of the PGC account reference, safe for
// concurrent readers. Replace swaps the whole snapshot atomically.
type Catalog struct {
	mu       sync.RWMutex
	accounts []domain.PgcAccount
	byCode   map[string]domain.PgcAccount
}

func New(accounts []domain.PgcAccount) *Catalog {
	c := &Catalog{}
	c.Replace(accounts)
	return c
}

func (c *Catalog) Replace(accounts []domain.PgcAccount) {
	sorted := make([]domain.PgcAccount, len(accounts))
	copy(sorted, accounts)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Code < sorted[j].Code })

	byCode := make(map[string]domain.PgcAccount, len(sorted))
	for _, account := range sorted {
		byCode[account.Code] = account
	}

	c.mu.Lock()
	c.accounts = sorted
	c.byCode = byCode
	c.mu.Unlock()
}

func (c *Catalog) Accounts() []domain.PgcAccount {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.accounts
}

func (c *Catalog) Get(code string) (domain.PgcAccount, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	account, ok := c.byCode[code]
	return account, ok
}

func (c *Catalog) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.accounts)
}
