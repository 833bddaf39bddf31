package classifier

import (
	"math"

	"github.com/barros404/finance-sub003/internal/core/domain"
)

// DocTyper proposes the document-level classification from extracted text by
// counting normalized keyword-family hits.
type DocTyper struct {
	normalizer *Normalizer
	families   map[domain.DocumentType]map[string]struct{}
}

// ordered so ties resolve deterministically
var docTypePriority = []domain.DocumentType{
	domain.DocTypeContrato,
	domain.DocTypeSaida,
	domain.DocTypeEntrada,
}

func NewDocTyper(normalizer *Normalizer) *DocTyper {
	d := &DocTyper{
		normalizer: normalizer,
		families:   make(map[domain.DocumentType]map[string]struct{}),
	}
	seed := map[domain.DocumentType][]string{
		domain.DocTypeEntrada: {
			"recibo", "venda", "vendas", "recebimento", "entrada",
			"cliente", "deposito", "cobranca",
		},
		domain.DocTypeSaida: {
			"compra", "pagamento", "despesa", "fornecedor", "fatura",
			"saida", "aquisicao", "custo",
		},
		domain.DocTypeContrato: {
			"contrato", "clausula", "partes", "acordo", "vigencia",
			"outorgante", "adenda",
		},
	}
	for docType, words := range seed {
		set := make(map[string]struct{}, len(words))
		for _, w := range words {
			for _, tok := range normalizer.Normalize(w) {
				set[tok] = struct{}{}
			}
		}
		d.families[docType] = set
	}
	return d
}

// SuggestType returns the best-scoring type and a confidence in [0,100].
// Text matching no family at all comes back as desconhecido with zero
// confidence.
func (d *DocTyper) SuggestType(text string) (domain.DocumentType, int) {
	tokens := d.normalizer.Normalize(text)
	if len(tokens) == 0 {
		return domain.DocTypeDesconhecido, 0
	}

	hits := make(map[domain.DocumentType]int, len(d.families))
	seen := make(map[string]struct{}, len(tokens))
	for _, tok := range tokens {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		for docType, family := range d.families {
			if _, ok := family[tok]; ok {
				hits[docType]++
			}
		}
	}

	best := domain.DocTypeDesconhecido
	bestHits := 0
	for _, docType := range docTypePriority {
		if hits[docType] > bestHits {
			best = docType
			bestHits = hits[docType]
		}
	}
	if bestHits == 0 {
		return domain.DocTypeDesconhecido, 0
	}

	// saturating transform: one hit is a weak signal, a handful is strong
	confidence := int(math.Round(100 * float64(bestHits) / float64(bestHits+2)))
	return best, confidence
}
