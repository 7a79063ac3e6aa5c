// Package xref resolves declared cross-references against the local registry
// and any sibling modules. Resolution is best-effort and never fails.
package xref

import (
	"github.com/hyperjump/compendium/internal/models"
)

// Lookup finds entries by id.
type Lookup interface {
	GetByID(id string) (models.Entry, bool)
}

// Module is a named lookup.
type Module struct {
	Name   string
	Lookup Lookup
}

// Resolver follows references in the primary module first, then in each
// sibling in the order given.
type Resolver struct {
	primary string
	modules []Module
}

// NewResolver creates a resolver. Modules with a nil Lookup are skipped.
func NewResolver(primary Module, siblings ...Module) *Resolver {
	r := &Resolver{primary: primary.Name}
	for _, m := range append([]Module{primary}, siblings...) {
		if m.Lookup != nil {
			r.modules = append(r.modules, m)
		}
	}
	return r
}

// Resolve returns one result per declared reference of entry, in declaration
// order. Targets that cannot be found keep a nil Entry.
func (r *Resolver) Resolve(entry models.Entry) []models.Resolution {
	out := make([]models.Resolution, len(entry.CrossReferences))
	for i, ref := range entry.CrossReferences {
		res := models.Resolution{
			TargetID:     ref.TargetID,
			Relationship: ref.Relationship,
			Label:        ref.Label,
		}
		if target, module, ok := r.find(ref.TargetID); ok {
			res.Entry = &target
			res.Module = module
		}
		out[i] = res
	}
	return out
}

// RelatedFilter narrows Related. Empty fields match anything.
type RelatedFilter struct {
	Relationship string
	// TargetType is compared with the reference's declared target type, or
	// with the linked entry's category when none is declared.
	TargetType   string
}

func (f RelatedFilter) accepts(relationship, declaredType string, linked models.Entry) bool {
	if f.Relationship != "" && relationship != f.Relationship {
		return false
	}
	switch {
	case f.TargetType == "":
		return true
	case declaredType != "":
		return declaredType == f.TargetType
	default:
		return string(linked.Category) == f.TargetType
	}
}

// Related returns the entries linked to entry in either direction. Outgoing
// references come first in declaration order, followed by the peers that
// reference entry, in peer order. Unresolved targets are skipped and every
// linked entry appears once.
func (r *Resolver) Related(entry models.Entry, peers []models.Entry, f RelatedFilter) []models.Resolution {
	out := []models.Resolution{}
	seen := map[string]bool{entry.ID: true}

	for _, ref := range entry.CrossReferences {
		target, module, ok := r.find(ref.TargetID)
		if !ok || seen[target.ID] || !f.accepts(ref.Relationship, ref.TargetType, target) {
			continue
		}
		seen[target.ID] = true
		out = append(out, models.Resolution{
			TargetID:     ref.TargetID,
			Entry:        &target,
			Module:       module,
			Relationship: ref.Relationship,
			Label:        ref.Label,
		})
	}

	for _, peer := range peers {
		if seen[peer.ID] {
			continue
		}
		for _, ref := range peer.CrossReferences {
			if ref.TargetID != entry.ID || !f.accepts(ref.Relationship, "", peer) {
				continue
			}
			seen[peer.ID] = true
			out = append(out, models.Resolution{
				TargetID:     peer.ID,
				Entry:        &peer,
				Module:       r.primary,
				Relationship: ref.Relationship,
				Label:        ref.Label,
				Incoming:     true,
			})
			break
		}
	}
	return out
}

func (r *Resolver) find(id string) (models.Entry, string, bool) {
	if id == "" {
		return models.Entry{}, "", false
	}
	for _, m := range r.modules {
		if e, ok := m.Lookup.GetByID(id); ok {
			return e, m.Name, true
		}
	}
	return models.Entry{}, "", false
}

// Dangling is one reference that did not resolve.
type Dangling struct {
	SourceID     string `json:"source_id"`
	TargetID     string `json:"target_id"`
	Relationship string `json:"relationship"`
}

// Dangling lists every unresolved reference of entries.
func (r *Resolver) Dangling(entries []models.Entry) []Dangling {
	var out []Dangling
	for _, e := range entries {
		for _, ref := range e.CrossReferences {
			if _, _, ok := r.find(ref.TargetID); !ok {
				out = append(out, Dangling{
					SourceID:     e.ID,
					TargetID:     ref.TargetID,
					Relationship: ref.Relationship,
				})
			}
		}
	}
	return out
}
