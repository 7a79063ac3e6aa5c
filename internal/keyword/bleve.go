package keyword

import (
	"fmt"

	"github.com/blevesearch/bleve/v2"
	blevequery "github.com/blevesearch/bleve/v2/search/query"
	"github.com/hyperjump/compendium/internal/models"
)

// allTermsField holds the union of an entry's declared search field terms.
const allTermsField = "terms"

// TokenIndex is an in-memory bleve index over whole whitespace tokens.
// Tokens are stored as keyword terms so a "*tok*" wildcard matches any term
// containing tok.
type TokenIndex struct {
	index bleve.Index
	size  int
}

var _ CandidateIndex = (*TokenIndex)(nil)

// NewTokenIndex creates an empty in-memory index.
func NewTokenIndex() (*TokenIndex, error) {
	im := bleve.NewIndexMapping()

	docMapping := bleve.NewDocumentMapping()
	docMapping.Dynamic = false
	keywordFieldMapping := bleve.NewKeywordFieldMapping()
	keywordFieldMapping.Store = false
	keywordFieldMapping.IncludeInAll = false
	keywordFieldMapping.IncludeTermVectors = false
	docMapping.AddFieldMappingsAt(allTermsField, keywordFieldMapping)
	for _, f := range models.AllFields() {
		docMapping.AddFieldMappingsAt(string(f), keywordFieldMapping)
	}
	im.DefaultMapping = docMapping

	index, err := bleve.NewMemOnly(im)
	if err != nil {
		return nil, fmt.Errorf("failed to create token index: %w", err)
	}
	return &TokenIndex{index: index}, nil
}

// Add indexes docs in a single batch.
func (t *TokenIndex) Add(docs []Document) error {
	batch := t.index.NewBatch()
	for _, d := range docs {
		body := make(map[string]interface{}, len(d.Fields)+1)
		body[allTermsField] = d.AllTerms
		for f, terms := range d.Fields {
			body[string(f)] = terms
		}
		if err := batch.Index(d.ID, body); err != nil {
			return fmt.Errorf("failed to index %s: %w", d.ID, err)
		}
	}
	if err := t.index.Batch(batch); err != nil {
		return fmt.Errorf("failed to apply token batch: %w", err)
	}
	t.size += len(docs)
	return nil
}

// Candidates returns every indexed id having, for each query token, a term
// that contains it.
func (t *TokenIndex) Candidates(field models.Field, query string) ([]string, bool, error) {
	tokens := Tokenize(query)
	if len(tokens) == 0 {
		return nil, false, nil
	}
	target := allTermsField
	if field != "" {
		target = string(field)
	}

	conjuncts := make([]blevequery.Query, 0, len(tokens))
	for _, tok := range tokens {
		wq := bleve.NewWildcardQuery("*" + tok + "*")
		wq.SetField(target)
		conjuncts = append(conjuncts, wq)
	}
	req := bleve.NewSearchRequest(bleve.NewConjunctionQuery(conjuncts...))
	req.Size = t.size
	results, err := t.index.Search(req)
	if err != nil {
		return nil, false, fmt.Errorf("token search failed: %w", err)
	}
	ids := make([]string, len(results.Hits))
	for i, hit := range results.Hits {
		ids[i] = hit.ID
	}
	return ids, true, nil
}

// DocCount returns the number of indexed documents.
func (t *TokenIndex) DocCount() (uint64, error) {
	return t.index.DocCount()
}

// Close closes the index.
func (t *TokenIndex) Close() error {
	return t.index.Close()
}
