package classifier

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/barros404/finance-sub003/internal/core/domain"
)

// Policy carries the tunable classification constants. Defaults cover the
// Angola PGC; a YAML file can override any field.
type Policy struct {
	TopN          int     `yaml:"top_n"`
	MinConfidence int     `yaml:"min_confidence"`
	LexiconWeight float64 `yaml:"lexicon_weight"`

	// LargeAmountBonus is the weak amount signal: one confidence point for
	// fixed-asset classes when the item amount crosses LargeAmountFloor.
	LargeAmountBonus int    `yaml:"large_amount_bonus"`
	LargeAmountFloor string `yaml:"large_amount_floor"`

	StopWords      []string         `yaml:"stop_words"`
	CurrencyTokens []string         `yaml:"currency_tokens"`
	KindClasses    map[string][]int `yaml:"kind_classes"`
}

// DefaultPolicy returns the built-in Angola PGC policy: class 6 carries
// proveitos e ganhos, class 7 custos e perdas, classes 1-4 the asset-side
// accounts (meios fixos, existencias, terceiros, meios monetarios).
func DefaultPolicy() Policy {
	return Policy{
		TopN:             5,
		MinConfidence:    30,
		LexiconWeight:    0.8,
		LargeAmountBonus: 1,
		LargeAmountFloor: "1000000",
		StopWords: []string{
			"de", "da", "do", "das", "dos", "e", "a", "o", "as", "os",
			"em", "no", "na", "nos", "nas", "para", "por", "com",
			"ao", "aos", "um", "uma", "umas", "uns", "que", "ref",
		},
		CurrencyTokens: []string{
			"aoa", "akz", "kz", "kwanza", "kwanzas", "usd", "eur",
		},
		KindClasses: map[string][]int{
			string(domain.KindRevenue): {6},
			string(domain.KindCost):    {7},
			string(domain.KindAsset):   {1, 2, 3, 4},
		},
	}
}

// LoadPolicy reads overrides from a YAML file on top of the defaults. An
// empty path returns the defaults unchanged.
func LoadPolicy(path string) (Policy, error) {
	policy := DefaultPolicy()
	if path == "" {
		return policy, nil
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		return Policy{}, fmt.Errorf("read classifier policy: %w", err)
	}
	if err := yaml.Unmarshal(raw, &policy); err != nil {
		return Policy{}, fmt.Errorf("parse classifier policy: %w", err)
	}
	if policy.TopN <= 0 {
		policy.TopN = DefaultPolicy().TopN
	}
	if policy.MinConfidence < 0 || policy.MinConfidence > 100 {
		return Policy{}, fmt.Errorf("parse classifier policy: min_confidence %d out of [0,100]", policy.MinConfidence)
	}
	return policy, nil
}

// ClassesFor returns the account classes compatible with kind. Accounts
// outside the range are excluded before scoring, not merely down-ranked.
func (p Policy) ClassesFor(kind domain.ItemKind) []int {
	return p.KindClasses[string(kind)]
}
