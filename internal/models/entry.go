// Package models defines the entry types shared by the registry: the tagged
// entry union, its kind-specific payloads, and the kind declarations.
package models

import (
	"strings"
	"time"
)

// Kind discriminates entry shapes.
type Kind string

const (
	// KindFlatReference is a single-description reference card.
	KindFlatReference Kind = "flat-reference"
	// KindLeveledTopic exposes the same subject at complexity levels 1 through 5.
	KindLeveledTopic Kind = "leveled-topic"
)

// Category is one value of a kind's closed vocabulary.
type Category string

// Status is the editorial state of an entry.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusReview    Status = "review"
	StatusPublished Status = "published"
)

// Relationship kinds for cross-references.
const (
	RelParent  = "parent"
	RelChild   = "child"
	RelSibling = "sibling"
	RelRelated = "related"
	RelSeeAlso = "see-also"
)

// Text is a natural-language field with an optional parallel translation.
// Both halves are opaque to the registry.
type Text struct {
	Primary   string `json:"primary" yaml:"primary"`
	Secondary string `json:"secondary,omitempty" yaml:"secondary,omitempty"`
}

// T returns a Text with only the primary string set.
func T(primary string) Text {
	return Text{Primary: primary}
}

// IsZero reports whether both halves are empty.
func (t Text) IsZero() bool {
	return t.Primary == "" && t.Secondary == ""
}

// Values returns the non-empty halves, primary first.
func (t Text) Values() []string {
	out := make([]string, 0, 2)
	if t.Primary != "" {
		out = append(out, t.Primary)
	}
	if t.Secondary != "" {
		out = append(out, t.Secondary)
	}
	return out
}

// String returns the primary text.
func (t Text) String() string {
	return t.Primary
}

// CrossReference is a declared, possibly unresolved link to another entry.
type CrossReference struct {
	TargetID     string `json:"target_id" yaml:"targetId"`
	TargetType   string `json:"target_type,omitempty" yaml:"targetType,omitempty"`
	Relationship string `json:"relationship" yaml:"relationship"`
	Label        Text   `json:"label" yaml:"label"`
}

// Citation is passed through unexamined apart from its shape.
type Citation struct {
	ID      string   `json:"id" yaml:"id"`
	Type    string   `json:"type,omitempty" yaml:"type,omitempty"`
	Title   string   `json:"title,omitempty" yaml:"title,omitempty"`
	Authors []string `json:"authors,omitempty" yaml:"authors,omitempty"`
	Source  string   `json:"source,omitempty" yaml:"source,omitempty"`
	URL     string   `json:"url,omitempty" yaml:"url,omitempty"`
}

// MediaRef points at an image, diagram, or video owned by the UI layer.
type MediaRef struct {
	ID      string `json:"id" yaml:"id"`
	Type    string `json:"type,omitempty" yaml:"type,omitempty"`
	URI     string `json:"uri,omitempty" yaml:"uri,omitempty"`
	Caption Text   `json:"caption,omitempty" yaml:"caption,omitempty"`
}

// Entry is one uniquely identified unit of content. Exactly one of Reference
// or Topic is set, matching Kind.
type Entry struct {
	ID              string           `json:"id"`
	Kind            Kind             `json:"kind"`
	Category        Category         `json:"category"`
	Name            Text             `json:"name"`
	AlternateNames  []Text           `json:"alternate_names,omitempty"`
	Tags            []string         `json:"tags,omitempty"`
	CrossReferences []CrossReference `json:"cross_references,omitempty"`
	Citations       []Citation       `json:"citations,omitempty"`
	Media           []MediaRef       `json:"media,omitempty"`
	Status          Status           `json:"status"`
	Version         int              `json:"version"`
	CreatedAt       time.Time        `json:"created_at,omitzero"`
	UpdatedAt       time.Time        `json:"updated_at,omitzero"`

	Reference *Reference `json:"reference,omitempty"`
	Topic     *Topic     `json:"topic,omitempty"`
}

// Reference is the flat-reference payload.
type Reference struct {
	Description       Text   `json:"description"`
	KeyQuestions      []Text `json:"key_questions,omitempty"`
	Mnemonic          Text   `json:"mnemonic,omitempty"`
	RedFlags          []Text `json:"red_flags,omitempty"`
	ClinicalPearls    []Text `json:"clinical_pearls,omitempty"`
	Findings          []Text `json:"findings,omitempty"`
	Approach          Text   `json:"approach,omitempty"`
	Treatment         Text   `json:"treatment,omitempty"`
	DocumentationTips Text   `json:"documentation_tips,omitempty"`
}

// Topic is the leveled-topic payload. Levels are sorted 1 through 5.
type Topic struct {
	Levels []LevelContent `json:"levels"`
}

// Level returns the content for level n.
func (t *Topic) Level(n int) (LevelContent, bool) {
	for _, l := range t.Levels {
		if l.Level == n {
			return l, true
		}
	}
	return LevelContent{}, false
}

// LevelContent is one complexity tier of a leveled topic.
type LevelContent struct {
	Level         int       `json:"level"`
	Summary       Text      `json:"summary"`
	Body          Text      `json:"body"`
	KeyTerms      []KeyTerm `json:"key_terms,omitempty"`
	ClinicalNotes Text      `json:"clinical_notes,omitempty"`
}

// KeyTerm is a term and its definition within one level.
type KeyTerm struct {
	Term       Text `json:"term"`
	Definition Text `json:"definition"`
}

// FieldValues returns the raw strings held by field for this entry, or nil if
// the field does not apply to the entry's kind.
func (e *Entry) FieldValues(field Field) []string {
	switch field {
	case FieldName:
		return e.Name.Values()
	case FieldAlternateNames:
		return textValues(e.AlternateNames)
	}
	if r := e.Reference; r != nil {
		switch field {
		case FieldDescription:
			return r.Description.Values()
		case FieldKeyQuestions:
			return textValues(r.KeyQuestions)
		case FieldMnemonic:
			return r.Mnemonic.Values()
		case FieldRedFlags:
			return textValues(r.RedFlags)
		case FieldClinicalPearls:
			return textValues(r.ClinicalPearls)
		case FieldFindings:
			return textValues(r.Findings)
		case FieldApproach:
			return r.Approach.Values()
		case FieldTreatment:
			return r.Treatment.Values()
		case FieldDocumentationTips:
			return r.DocumentationTips.Values()
		}
	}
	if t := e.Topic; t != nil {
		var out []string
		for _, l := range t.Levels {
			switch field {
			case FieldSummary:
				out = append(out, l.Summary.Values()...)
			case FieldBody:
				out = append(out, l.Body.Values()...)
			case FieldKeyTerms:
				for _, kt := range l.KeyTerms {
					out = append(out, kt.Term.Values()...)
				}
			case FieldClinicalNotes:
				out = append(out, l.ClinicalNotes.Values()...)
			}
		}
		return out
	}
	return nil
}

func textValues(ts []Text) []string {
	var out []string
	for _, t := range ts {
		out = append(out, t.Values()...)
	}
	return out
}

// NormalizeTag case-folds and trims a tag or keyword.
func NormalizeTag(tag string) string {
	return Fold(strings.TrimSpace(tag))
}

// Fold maps s to the case-insensitive form used by every index and query.
// Upper-casing first sends runes such as U+017F (long s) and U+212A (Kelvin
// sign) to the same lower-case form as their ASCII counterparts.
func Fold(s string) string {
	return strings.ToLower(strings.ToUpper(s))
}

// Clone returns a deep copy so callers never share slices with the store.
func (e Entry) Clone() Entry {
	out := e
	out.AlternateNames = append([]Text(nil), e.AlternateNames...)
	out.Tags = append([]string(nil), e.Tags...)
	out.CrossReferences = append([]CrossReference(nil), e.CrossReferences...)
	out.Media = append([]MediaRef(nil), e.Media...)
	if e.Citations != nil {
		out.Citations = make([]Citation, len(e.Citations))
		for i, c := range e.Citations {
			c.Authors = append([]string(nil), c.Authors...)
			out.Citations[i] = c
		}
	}
	if e.Reference != nil {
		r := *e.Reference
		r.KeyQuestions = append([]Text(nil), r.KeyQuestions...)
		r.RedFlags = append([]Text(nil), r.RedFlags...)
		r.ClinicalPearls = append([]Text(nil), r.ClinicalPearls...)
		r.Findings = append([]Text(nil), r.Findings...)
		out.Reference = &r
	}
	if e.Topic != nil {
		levels := make([]LevelContent, len(e.Topic.Levels))
		for i, l := range e.Topic.Levels {
			l.KeyTerms = append([]KeyTerm(nil), l.KeyTerms...)
			levels[i] = l
		}
		out.Topic = &Topic{Levels: levels}
	}
	return out
}
