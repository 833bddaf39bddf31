package budget

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/barros404/finance-sub003/internal/core/domain"
)

// Client reads committed financial items from the budgeting service. The
// mapping engine is a pure consumer of this API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

type budgetItemPayload struct {
	ID          string `json:"id"`
	Kind        string `json:"kind"`
	Description string `json:"description"`
	Amount      string `json:"amount,omitempty"`
}

func (c *Client) CommittedItems(ctx context.Context, budgetID string) ([]domain.BudgetItem, error) {
	endpoint := fmt.Sprintf("%s/v1/budgets/%s/items?status=committed", c.baseURL, url.PathEscape(budgetID))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create budget request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("budget items request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, domain.WrapError(domain.ErrNotFound, "fetch budget items", fmt.Errorf("budget %s", budgetID))
	}
	if resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("budget items status %s: %s", resp.Status, strings.TrimSpace(string(raw)))
	}

	var payload struct {
		Items []budgetItemPayload `json:"items"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode budget items: %w", err)
	}

	items := make([]domain.BudgetItem, 0, len(payload.Items))
	for _, raw := range payload.Items {
		item := domain.BudgetItem{
			ID:          raw.ID,
			Kind:        domain.ItemKind(raw.Kind),
			Description: raw.Description,
		}
		if !item.Kind.Valid() {
			return nil, fmt.Errorf("budget item %s has unknown kind %q", raw.ID, raw.Kind)
		}
		if raw.Amount != "" {
			amount, err := decimal.NewFromString(raw.Amount)
			if err != nil {
				return nil, fmt.Errorf("budget item %s amount %q: %w", raw.ID, raw.Amount, err)
			}
			item.Amount = &amount
		}
		items = append(items, item)
	}
	return items, nil
}
