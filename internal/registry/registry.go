// Package registry assembles a validated, immutable content registry from
// literal entry definitions and exposes its read-only query surface.
package registry

import (
	"fmt"
	"sync"

	"github.com/hyperjump/compendium/internal/content"
	"github.com/hyperjump/compendium/internal/indexer"
	"github.com/hyperjump/compendium/internal/models"
	"github.com/hyperjump/compendium/internal/schema"
	"github.com/hyperjump/compendium/internal/search"
	"github.com/hyperjump/compendium/internal/storage"
	"github.com/hyperjump/compendium/internal/xref"
	"go.uber.org/zap"
)

// Registry is built once and never changes. All methods are safe for
// concurrent use.
type Registry struct {
	name     string
	kinds    models.KindSet
	store    *storage.Store
	indexes  *indexer.Indexes
	engine   *search.Engine
	resolver *xref.Resolver
}

type options struct {
	name       string
	kinds      models.KindSet
	logger     *zap.Logger
	tokenIndex bool
	siblings   []xref.Module
}

// Option configures Build.
type Option func(*options)

// WithName sets the module name reported in resolutions and logs.
func WithName(name string) Option {
	return func(o *options) { o.name = name }
}

// WithKinds replaces the default kind declarations.
func WithKinds(kinds models.KindSet) Option {
	return func(o *options) { o.kinds = kinds }
}

// WithLogger sets a logger for build events and validation warnings.
func WithLogger(l *zap.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithTokenIndex enables or disables the bleve token index.
func WithTokenIndex(enabled bool) Option {
	return func(o *options) { o.tokenIndex = enabled }
}

// WithSiblings adds modules consulted for cross-references that are not
// found locally.
func WithSiblings(modules ...xref.Module) Option {
	return func(o *options) { o.siblings = append(o.siblings, modules...) }
}

// Build validates raws and assembles the registry. On any validation error
// it returns a nil registry and an error wrapping *schema.ValidationError.
// The report is returned in both cases and carries the warnings.
func Build(raws []schema.RawEntry, opts ...Option) (*Registry, *schema.Report, error) {
	o := &options{
		name:       "default",
		kinds:      models.DefaultKinds(),
		logger:     zap.NewNop(),
		tokenIndex: true,
	}
	for _, opt := range opts {
		opt(o)
	}
	log := o.logger.With(zap.String("module", o.name))

	entries, report := schema.ValidateAll(raws, o.kinds)
	for _, w := range report.Warnings() {
		log.Warn("content warning",
			zap.String("entry", w.EntryID),
			zap.String("field", w.Field),
			zap.String("message", w.Message),
		)
	}
	if err := report.Err(); err != nil {
		log.Error("content validation failed", zap.Int("errors", len(report.Errors())))
		return nil, report, fmt.Errorf("build registry %s: %w", o.name, err)
	}

	store, err := storage.NewStore(entries)
	if err != nil {
		return nil, report, fmt.Errorf("build registry %s: %w", o.name, err)
	}
	indexes := indexer.New(o.kinds,
		indexer.WithLogger(log),
		indexer.WithTokenIndex(o.tokenIndex),
	).Build(store)

	r := &Registry{
		name:    o.name,
		kinds:   o.kinds,
		store:   store,
		indexes: indexes,
		engine:  search.NewEngine(store, o.kinds, indexes, search.WithLogger(log)),
	}
	r.resolver = xref.NewResolver(xref.Module{Name: o.name, Lookup: r}, o.siblings...)

	fields := []zap.Field{zap.Int("entries", store.Len()), zap.Int("warnings", len(report.Warnings()))}
	for _, spec := range o.kinds {
		counts, _ := r.engine.CountsByKind(spec.Kind)
		fields = append(fields, zap.Int(string(spec.Kind), counts.Total()))
	}
	log.Info("registry built", fields...)
	return r, report, nil
}

// FromBundle builds a registry named after the bundle's module.
func FromBundle(b *content.Bundle, opts ...Option) (*Registry, *schema.Report, error) {
	if b.Module != "" {
		opts = append([]Option{WithName(b.Module)}, opts...)
	}
	return Build(b.Entries, opts...)
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
	defaultErr      error
)

// Default returns the registry built from the embedded seed bundle. It is
// built on first use and shared afterwards; callers must not Close it.
func Default() (*Registry, error) {
	defaultOnce.Do(func() {
		b, err := content.Seed()
		if err != nil {
			defaultErr = fmt.Errorf("load seed bundle: %w", err)
			return
		}
		defaultRegistry, _, defaultErr = FromBundle(b)
	})
	return defaultRegistry, defaultErr
}

// Module returns the registry as a cross-reference module for siblings.
func (r *Registry) Module() xref.Module {
	return xref.Module{Name: r.name, Lookup: r}
}

// Name returns the module name.
func (r *Registry) Name() string { return r.name }

// Len returns the number of entries.
func (r *Registry) Len() int { return r.store.Len() }

// Kinds returns the kind declarations in effect.
func (r *Registry) Kinds() models.KindSet { return r.engine.Kinds() }

// GetByID returns the entry with id.
func (r *Registry) GetByID(id string) (models.Entry, bool) { return r.engine.GetByID(id) }

// AllIDs returns every id in declaration order.
func (r *Registry) AllIDs() []string { return r.engine.AllIDs() }

// All returns every entry in declaration order.
func (r *Registry) All() []models.Entry { return r.engine.All() }

// Search runs a case-insensitive substring search over declared fields.
func (r *Registry) Search(query string) []models.Entry { return r.engine.Search(query) }

// SearchField runs a substring search over one field.
func (r *Registry) SearchField(field models.Field, query string) []models.Entry {
	return r.engine.SearchField(field, query)
}

// SearchRedFlags runs a substring search over red flags.
func (r *Registry) SearchRedFlags(query string) []models.Entry { return r.engine.SearchRedFlags(query) }

// FilterByCategory returns the entries in any of categories.
func (r *Registry) FilterByCategory(categories ...models.Category) []models.Entry {
	return r.engine.FilterByCategory(categories...)
}

// FilterByKeyword returns the entries carrying the tag keyword.
func (r *Registry) FilterByKeyword(keyword string) []models.Entry {
	return r.engine.FilterByKeyword(keyword)
}

// CountsByCategory counts entries per category across all kinds.
func (r *Registry) CountsByCategory() models.CategoryCounts { return r.engine.CountsByCategory() }

// CountsByKind counts entries of kind per category of its vocabulary.
func (r *Registry) CountsByKind(kind models.Kind) (models.CategoryCounts, bool) {
	return r.engine.CountsByKind(kind)
}

// Snippet returns a display window of the value of id matching query.
func (r *Registry) Snippet(id, query string, maxLen int) string {
	return r.engine.Snippet(id, query, maxLen)
}

// ResolveCrossReferences resolves every reference declared by entry.
func (r *Registry) ResolveCrossReferences(entry models.Entry) []models.Resolution {
	return r.resolver.Resolve(entry)
}

// ResolveByID resolves the references of the entry with id.
func (r *Registry) ResolveByID(id string) ([]models.Resolution, bool) {
	e, ok := r.store.Get(id)
	if !ok {
		return nil, false
	}
	return r.resolver.Resolve(e), true
}

// Related returns the entries linked to entry in either direction. Empty
// relationship or targetType match anything. Incoming links are looked up in
// this registry only.
func (r *Registry) Related(entry models.Entry, relationship, targetType string) []models.Resolution {
	return r.resolver.Related(entry, r.store.All(), xref.RelatedFilter{
		Relationship: relationship,
		TargetType:   targetType,
	})
}

// RelatedByID is Related for the entry with id.
func (r *Registry) RelatedByID(id, relationship, targetType string) ([]models.Resolution, bool) {
	e, ok := r.store.Get(id)
	if !ok {
		return nil, false
	}
	return r.Related(e, relationship, targetType), true
}

// Dangling lists references that resolve nowhere.
func (r *Registry) Dangling() []xref.Dangling {
	return r.resolver.Dangling(r.store.All())
}

// Close releases the token index.
func (r *Registry) Close() error {
	return r.indexes.Close()
}
