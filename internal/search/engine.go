// Package search provides the query engine: lookup, substring search,
// category and tag filtering, and counting over an immutable store.
package search

import (
	"sort"
	"strings"

	"github.com/hyperjump/compendium/internal/indexer"
	"github.com/hyperjump/compendium/internal/models"
	"github.com/hyperjump/compendium/internal/storage"
	"go.uber.org/zap"
)

// Engine answers read queries. It holds no mutable state and is safe for
// concurrent use.
type Engine struct {
	store   *storage.Store
	kinds   models.KindSet
	indexes *indexer.Indexes
	logger  *zap.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets a logger for index fallbacks.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an engine over store and its indexes.
func NewEngine(store *storage.Store, kinds models.KindSet, indexes *indexer.Indexes, opts ...Option) *Engine {
	e := &Engine{
		store:   store,
		kinds:   kinds,
		indexes: indexes,
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search returns every entry whose declared search fields contain query,
// ignoring case, in declaration order. An empty query matches nothing.
func (e *Engine) Search(query string) []models.Entry {
	if query == "" {
		return []models.Entry{}
	}
	q := normalizeQuery(query)
	positions := e.match("", q, func(d *indexer.SearchDoc) bool {
		return matches(d.Values, d.Joined, q)
	})
	return e.materialize(positions)
}

// SearchField is Search restricted to one field, whether or not the field
// is declared searchable for the entry's kind.
func (e *Engine) SearchField(field models.Field, query string) []models.Entry {
	if query == "" {
		return []models.Entry{}
	}
	q := normalizeQuery(query)
	positions := e.match(field, q, func(d *indexer.SearchDoc) bool {
		for _, v := range d.Fields[field] {
			if strings.Contains(v, q) {
				return true
			}
		}
		return false
	})
	return e.materialize(positions)
}

// SearchRedFlags searches the red flags of flat references.
func (e *Engine) SearchRedFlags(query string) []models.Entry {
	return e.SearchField(models.FieldRedFlags, query)
}

// match collects the positions accepted by verify. Candidates come from the
// token index when it can handle the query; every candidate is still
// verified, so results equal a full scan.
func (e *Engine) match(field models.Field, q string, verify func(*indexer.SearchDoc) bool) []int {
	docs := e.indexes.Docs
	var positions []int

	if tokens := e.indexes.Tokens; tokens != nil {
		ids, ok, err := tokens.Candidates(field, q)
		if err != nil {
			e.logger.Warn("token index query failed, scanning", zap.String("query", q), zap.Error(err))
		}
		if ok && err == nil {
			for _, id := range ids {
				pos, found := e.store.Position(id)
				if found && verify(&docs[pos]) {
					positions = append(positions, pos)
				}
			}
			sort.Ints(positions)
			return positions
		}
	}

	for pos := range docs {
		if verify(&docs[pos]) {
			positions = append(positions, pos)
		}
	}
	return positions
}

// FilterByCategory returns the entries in any of categories, each once, in
// declaration order. Unknown categories contribute nothing.
func (e *Engine) FilterByCategory(categories ...models.Category) []models.Entry {
	seen := make(map[int]bool)
	var positions []int
	for _, c := range categories {
		for _, pos := range e.indexes.Categories[c] {
			if !seen[pos] {
				seen[pos] = true
				positions = append(positions, pos)
			}
		}
	}
	sort.Ints(positions)
	return e.materialize(positions)
}

// FilterByKeyword returns the entries tagged with keyword after trimming and
// lower-casing.
func (e *Engine) FilterByKeyword(keyword string) []models.Entry {
	return e.materialize(e.indexes.Tags[models.NormalizeTag(keyword)])
}

// GetByID returns the entry with id.
func (e *Engine) GetByID(id string) (models.Entry, bool) {
	return e.store.Get(id)
}

// AllIDs returns every id in declaration order.
func (e *Engine) AllIDs() []string {
	return e.store.IDs()
}

// All returns every entry in declaration order.
func (e *Engine) All() []models.Entry {
	return e.store.All()
}

// Kinds returns the kind declarations in effect.
func (e *Engine) Kinds() models.KindSet {
	out := make(models.KindSet, len(e.kinds))
	copy(out, e.kinds)
	return out
}

// CountsByCategory maps every category of every declared kind to its number
// of entries. Categories without entries map to zero.
func (e *Engine) CountsByCategory() models.CategoryCounts {
	counts := make(models.CategoryCounts)
	for _, c := range e.kinds.Categories() {
		counts[c] = len(e.indexes.Categories[c])
	}
	return counts
}

// CountsByKind counts entries of kind per category of that kind's
// vocabulary. The counts sum to the number of entries of kind.
func (e *Engine) CountsByKind(kind models.Kind) (models.CategoryCounts, bool) {
	spec, ok := e.kinds.Spec(kind)
	if !ok {
		return nil, false
	}
	counts := make(models.CategoryCounts, len(spec.Categories))
	for _, c := range spec.Categories {
		n := 0
		for _, pos := range e.indexes.Categories[c] {
			if e.indexes.Docs[pos].Kind == kind {
				n++
			}
		}
		counts[c] = n
	}
	return counts, true
}

// Snippet returns a window of the first declared search field value of id
// containing query, or of the entry name when nothing matches.
func (e *Engine) Snippet(id, query string, maxLen int) string {
	entry, ok := e.store.Get(id)
	if !ok {
		return ""
	}
	if spec, ok := e.kinds.Spec(entry.Kind); ok && query != "" {
		q := normalizeQuery(query)
		for _, f := range spec.SearchFields {
			for _, v := range entry.FieldValues(f) {
				if containsFold(v, q) {
					return Highlight(v, query, maxLen)
				}
			}
		}
	}
	return Highlight(entry.Name.Primary, query, maxLen)
}

func (e *Engine) materialize(positions []int) []models.Entry {
	out := make([]models.Entry, 0, len(positions))
	for _, pos := range positions {
		if entry, ok := e.store.At(pos); ok {
			out = append(out, entry)
		}
	}
	return out
}
