// Package indexer derives the read-side indexes of a content store: category
// buckets, the tag index, per-entry search documents, and the optional token
// index.
package indexer

import (
	"fmt"
	"strings"

	"github.com/hyperjump/compendium/internal/keyword"
	"github.com/hyperjump/compendium/internal/models"
	"github.com/hyperjump/compendium/internal/storage"
	"go.uber.org/zap"
)

// FieldSeparator joins an entry's field values into one searchable string.
// It cannot appear in a typed query, so a match never spans two values.
const FieldSeparator = "\x1f"

// SearchDoc is the lower-cased searchable text of one entry.
type SearchDoc struct {
	ID   string
	Kind models.Kind
	// Values holds the declared search field values, in field order.
	Values []string
	// Joined is Values joined by FieldSeparator.
	Joined string
	// Fields holds the values of every field the entry carries.
	Fields map[models.Field][]string
}

// Indexes are the derived structures over one store. Positions refer to the
// store's declaration order and every slice is sorted ascending.
type Indexes struct {
	Categories map[models.Category][]int
	Tags       map[string][]int
	Docs       []SearchDoc
	// Tokens is nil when the token index is disabled or failed to build.
	Tokens keyword.CandidateIndex
}

// Close releases the token index.
func (ix *Indexes) Close() error {
	if ix.Tokens == nil {
		return nil
	}
	return ix.Tokens.Close()
}

// Indexer builds Indexes for a kind set.
type Indexer struct {
	kinds      models.KindSet
	tokenIndex bool
	logger     *zap.Logger
}

// Option configures an Indexer.
type Option func(*Indexer)

// WithLogger sets a logger for build events.
func WithLogger(l *zap.Logger) Option {
	return func(idx *Indexer) { idx.logger = l }
}

// WithTokenIndex enables or disables the bleve token index. Enabled by default.
func WithTokenIndex(enabled bool) Option {
	return func(idx *Indexer) { idx.tokenIndex = enabled }
}

// New creates an indexer for kinds.
func New(kinds models.KindSet, opts ...Option) *Indexer {
	idx := &Indexer{
		kinds:      kinds,
		tokenIndex: true,
		logger:     zap.NewNop(),
	}
	for _, opt := range opts {
		opt(idx)
	}
	return idx
}

// Build derives every index from store. It does not fail: if the token index
// cannot be built, searches fall back to scanning the search documents.
func (idx *Indexer) Build(store *storage.Store) *Indexes {
	ix := &Indexes{
		Categories: make(map[models.Category][]int),
		Tags:       make(map[string][]int),
		Docs:       make([]SearchDoc, store.Len()),
	}
	for _, c := range idx.kinds.Categories() {
		ix.Categories[c] = []int{}
	}

	for pos, e := range store.All() {
		ix.Categories[e.Category] = append(ix.Categories[e.Category], pos)

		seen := make(map[string]bool, len(e.Tags))
		for _, tag := range e.Tags {
			key := models.NormalizeTag(tag)
			if key == "" || seen[key] {
				continue
			}
			seen[key] = true
			ix.Tags[key] = append(ix.Tags[key], pos)
		}

		ix.Docs[pos] = idx.searchDoc(&e)
	}

	if idx.tokenIndex {
		tokens, err := idx.buildTokens(ix.Docs)
		if err != nil {
			idx.logger.Warn("token index unavailable, searches will scan", zap.Error(err))
		} else {
			ix.Tokens = tokens
		}
	}

	idx.logger.Debug("indexes built",
		zap.Int("entries", len(ix.Docs)),
		zap.Int("categories", len(ix.Categories)),
		zap.Int("tags", len(ix.Tags)),
		zap.Bool("token_index", ix.Tokens != nil),
	)
	return ix
}

func (idx *Indexer) searchDoc(e *models.Entry) SearchDoc {
	doc := SearchDoc{
		ID:     e.ID,
		Kind:   e.Kind,
		Fields: make(map[models.Field][]string),
	}
	for _, f := range models.AllFields() {
		if vals := foldAll(e.FieldValues(f)); len(vals) > 0 {
			doc.Fields[f] = vals
		}
	}
	if spec, ok := idx.kinds.Spec(e.Kind); ok {
		for _, f := range spec.SearchFields {
			doc.Values = append(doc.Values, doc.Fields[f]...)
		}
	}
	doc.Joined = strings.Join(doc.Values, FieldSeparator)
	return doc
}

func (idx *Indexer) buildTokens(docs []SearchDoc) (*keyword.TokenIndex, error) {
	tokens, err := keyword.NewTokenIndex()
	if err != nil {
		return nil, err
	}
	kdocs := make([]keyword.Document, len(docs))
	for i, d := range docs {
		fields := make(map[models.Field][]string, len(d.Fields))
		for f, vals := range d.Fields {
			fields[f] = keyword.Terms(vals)
		}
		kdocs[i] = keyword.Document{
			ID:       d.ID,
			AllTerms: keyword.Terms(d.Values),
			Fields:   fields,
		}
	}
	if err := tokens.Add(kdocs); err != nil {
		_ = tokens.Close()
		return nil, err
	}
	n, err := tokens.DocCount()
	if err == nil && n != uint64(len(kdocs)) {
		err = fmt.Errorf("token index holds %d documents, want %d", n, len(kdocs))
	}
	if err != nil {
		_ = tokens.Close()
		return nil, err
	}
	return tokens, nil
}

func foldAll(vals []string) []string {
	if len(vals) == 0 {
		return nil
	}
	out := make([]string, len(vals))
	for i, v := range vals {
		out[i] = models.Fold(v)
	}
	return out
}
