package classifier

import "sync"

// Lexicon is the slowly-adapting per-account token store fed by confirmed
// user corrections. Each account set is bounded; when full, the oldest
// learned token is evicted first. Adds are commutative set unions, so
// concurrent writers only contend on the short critical section.
type Lexicon struct {
	mu         sync.RWMutex
	maxPerAcct int
	perAccount map[string]*tokenSet
}

type tokenSet struct {
	order []string
	seen  map[string]struct{}
}

func NewLexicon(maxPerAccount int) *Lexicon {
	if maxPerAccount <= 0 {
		maxPerAccount = 64
	}
	return &Lexicon{
		maxPerAcct: maxPerAccount,
		perAccount: make(map[string]*tokenSet),
	}
}

// Add merges tokens into the account's set, evicting oldest-first past the
// capacity bound. Duplicate tokens are ignored.
func (l *Lexicon) Add(code string, tokens []string) {
	if code == "" || len(tokens) == 0 {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	set := l.perAccount[code]
	if set == nil {
		set = &tokenSet{seen: make(map[string]struct{}, l.maxPerAcct)}
		l.perAccount[code] = set
	}
	for _, tok := range tokens {
		if tok == "" {
			continue
		}
		if _, ok := set.seen[tok]; ok {
			continue
		}
		for len(set.order) >= l.maxPerAcct {
			oldest := set.order[0]
			set.order = set.order[1:]
			delete(set.seen, oldest)
		}
		set.order = append(set.order, tok)
		set.seen[tok] = struct{}{}
	}
}

// Load replaces the lexicon contents, used to hydrate from the persisted
// store at startup.
func (l *Lexicon) Load(all map[string][]string) {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.perAccount = make(map[string]*tokenSet, len(all))
	for code, tokens := range all {
		set := &tokenSet{seen: make(map[string]struct{}, len(tokens))}
		for _, tok := range tokens {
			if _, ok := set.seen[tok]; ok {
				continue
			}
			if len(set.order) >= l.maxPerAcct {
				break
			}
			set.order = append(set.order, tok)
			set.seen[tok] = struct{}{}
		}
		l.perAccount[code] = set
	}
}

// Contains reports whether the account has learned the token.
func (l *Lexicon) Contains(code, token string) bool {
	l.mu.RLock()
	defer l.mu.RUnlock()

	set := l.perAccount[code]
	if set == nil {
		return false
	}
	_, ok := set.seen[token]
	return ok
}

// Size returns the current token count for an account.
func (l *Lexicon) Size(code string) int {
	l.mu.RLock()
	defer l.mu.RUnlock()

	set := l.perAccount[code]
	if set == nil {
		return 0
	}
	return len(set.order)
}
