package classifier

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer turns a raw line-item description into the token representation
// the classifier scores against. Normalization is pure and idempotent:
// re-joining the output and normalizing again yields the same tokens.
type Normalizer struct {
	stopWords map[string]struct{}
	currency  map[string]struct{}
}

func NewNormalizer(stopWords, currencyTokens []string) *Normalizer {
	n := &Normalizer{
		stopWords: make(map[string]struct{}, len(stopWords)),
		currency:  make(map[string]struct{}, len(currencyTokens)),
	}
	for _, w := range stopWords {
		n.stopWords[foldToken(w)] = struct{}{}
	}
	for _, c := range currencyTokens {
		n.currency[foldToken(c)] = struct{}{}
	}
	return n
}

// Normalize lowercases, strips diacritics, splits on non-alphanumeric runes,
// discards currency codes, stop words and bare numbers, and reduces common
// Portuguese plural forms.
func (n *Normalizer) Normalize(text string) []string {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	raw := tokenize(stripDiacritics(strings.ToLower(text)))
	out := make([]string, 0, len(raw))
	for _, tok := range raw {
		if isNumeric(tok) {
			continue
		}
		stemmed := stemToken(tok)
		// check both forms so stemmed output never reintroduces a stop or
		// currency word on a second pass
		if n.dropped(tok) || n.dropped(stemmed) {
			continue
		}
		out = append(out, stemmed)
	}
	return out
}

func (n *Normalizer) dropped(tok string) bool {
	if _, ok := n.currency[tok]; ok {
		return true
	}
	_, ok := n.stopWords[tok]
	return ok
}

var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

func stripDiacritics(s string) string {
	out, _, err := transform.String(deaccent, s)
	if err != nil {
		return s
	}
	return out
}

func foldToken(s string) string {
	return stripDiacritics(strings.ToLower(strings.TrimSpace(s)))
}

func tokenize(s string) []string {
	out := make([]string, 0, 16)
	var b strings.Builder
	for _, r := range s {
		if (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9') {
			b.WriteRune(r)
			continue
		}
		if b.Len() > 0 {
			out = append(out, b.String())
			b.Reset()
		}
	}
	if b.Len() > 0 {
		out = append(out, b.String())
	}
	return out
}

func isNumeric(tok string) bool {
	for _, r := range tok {
		if r < '0' || r > '9' {
			return false
		}
	}
	return len(tok) > 0
}

// plural reductions ordered most specific first; applied once per token so
// stemming is stable under repeated normalization.
var pluralSuffixes = []struct{ from, to string }{
	{"oes", "ao"},
	{"aes", "ao"},
	{"ais", "al"},
	{"eis", "el"},
	{"ois", "ol"},
	{"ns", "m"},
	{"s", ""},
}

func stemToken(tok string) string {
	if len(tok) < 4 {
		return tok
	}
	for _, suf := range pluralSuffixes {
		if strings.HasSuffix(tok, suf.from) && len(tok)-len(suf.from) >= 3 {
			return tok[:len(tok)-len(suf.from)] + suf.to
		}
	}
	return tok
}
