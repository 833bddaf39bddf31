package classifier

import (
	"errors"
	"math"
	"sort"

	"github.com/shopspring/decimal"

	"github.com/barros404/finance-sub003/internal/core/domain"
	"github.com/barros404/finance-sub003/internal/core/ports"
)

// Classifier scores line items against the PGC catalog by token overlap
// between the normalized item description and each account's token set
// (account description plus learned lexicon tokens). It is stateless per
// call; lexicon updates arrive only through the reconciler.
type Classifier struct {
	catalog    ports.AccountCatalog
	lexicon    *Lexicon
	normalizer *Normalizer
	policy     Policy

	baseTokens  map[string]map[string]struct{}
	amountFloor decimal.Decimal
}

func New(catalog ports.AccountCatalog, lexicon *Lexicon, normalizer *Normalizer, policy Policy) *Classifier {
	c := &Classifier{
		catalog:    catalog,
		lexicon:    lexicon,
		normalizer: normalizer,
		policy:     policy,
		baseTokens: make(map[string]map[string]struct{}),
	}
	if floor, err := decimal.NewFromString(policy.LargeAmountFloor); err == nil {
		c.amountFloor = floor
	}
	for _, account := range catalog.Accounts() {
		set := make(map[string]struct{})
		seed := account.Description
		if account.Category != "" {
			seed += " " + account.Category
		}
		if account.Subcategory != "" {
			seed += " " + account.Subcategory
		}
		for _, tok := range normalizer.Normalize(seed) {
			set[tok] = struct{}{}
		}
		c.baseTokens[account.Code] = set
	}
	return c
}

// Classify returns at most Policy.TopN candidates ordered by descending
// confidence, ties broken by ascending account code. Accounts whose class is
// incompatible with the item kind never appear. When even the best candidate
// misses the confidence threshold the result is flagged for manual review
// rather than suppressed.
func (c *Classifier) Classify(description string, kind domain.ItemKind, amount *decimal.Decimal) (domain.ClassificationResult, error) {
	if !kind.Valid() {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrValidation, "classify", errors.New("unknown item kind: "+string(kind)))
	}
	classes := c.policy.ClassesFor(kind)
	if len(classes) == 0 {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrClassification, "classify", errors.New("no account classes configured for kind "+string(kind)))
	}

	tokens := c.normalizer.Normalize(description)
	candidates := make([]domain.Candidate, 0, 16)
	for _, account := range c.catalog.Accounts() {
		if !account.Usable() || !classCompatible(account.Class, classes) {
			continue
		}
		confidence := c.score(tokens, account.Code)
		confidence += c.amountBonus(account, kind, amount)
		if confidence > 100 {
			confidence = 100
		}
		candidates = append(candidates, domain.Candidate{
			Code:       account.Code,
			Name:       account.Description,
			Confidence: confidence,
		})
	}
	if len(candidates) == 0 {
		return domain.ClassificationResult{}, domain.WrapError(domain.ErrClassification, "classify", errors.New("catalog has no usable accounts for kind "+string(kind)))
	}

	sort.Slice(candidates, func(i, j int) bool {
		if candidates[i].Confidence != candidates[j].Confidence {
			return candidates[i].Confidence > candidates[j].Confidence
		}
		return codeLess(candidates[i].Code, candidates[j].Code)
	})
	if len(candidates) > c.policy.TopN {
		candidates = candidates[:c.policy.TopN]
	}

	return domain.ClassificationResult{
		Candidates:     candidates,
		RequiresReview: candidates[0].Confidence < c.policy.MinConfidence,
	}, nil
}

// score maps the weighted token overlap ratio into [0,100]. Zero overlap is
// floored at zero; a full match of every item token reaches 100.
func (c *Classifier) score(tokens []string, code string) int {
	if len(tokens) == 0 {
		return 0
	}
	base := c.baseTokens[code]

	seen := make(map[string]struct{}, len(tokens))
	var matched float64
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := base[tok]; ok {
			matched++
			continue
		}
		if c.lexicon != nil && c.lexicon.Contains(code, tok) {
			matched += c.policy.LexiconWeight
		}
	}
	if matched == 0 {
		return 0
	}
	return int(math.Round(100 * matched / float64(len(seen))))
}

// amountBonus is the weak amount signal: a single confidence point nudging
// high-value asset items toward fixed-asset accounts. Never a primary signal.
func (c *Classifier) amountBonus(account domain.PgcAccount, kind domain.ItemKind, amount *decimal.Decimal) int {
	if amount == nil || kind != domain.KindAsset || account.Class != 1 {
		return 0
	}
	if c.amountFloor.IsZero() || amount.LessThan(c.amountFloor) {
		return 0
	}
	return c.policy.LargeAmountBonus
}

func classCompatible(class int, allowed []int) bool {
	for _, a := range allowed {
		if class == a {
			return true
		}
	}
	return false
}

// codeLess orders account codes numerically: PGC codes carry no leading
// zeros, so a shorter digit string is always the smaller number and equal
// lengths compare byte-wise. Non-numeric codes fall back to lexicographic.
func codeLess(a, b string) bool {
	if len(a) != len(b) && isNumericCode(a) && isNumericCode(b) {
		return len(a) < len(b)
	}
	return a < b
}

func isNumericCode(s string) bool {
	if s == "" {
		return false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return false
		}
	}
	return true
}
