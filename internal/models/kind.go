package models

// Field names a searchable or filterable entry field.
type Field string

const (
	FieldName              Field = "name"
	FieldAlternateNames    Field = "alternateNames"
	FieldDescription       Field = "description"
	FieldKeyQuestions      Field = "keyQuestions"
	FieldMnemonic          Field = "mnemonic"
	FieldRedFlags          Field = "redFlags"
	FieldClinicalPearls    Field = "clinicalPearls"
	FieldFindings          Field = "findings"
	FieldApproach          Field = "approach"
	FieldTreatment         Field = "treatment"
	FieldDocumentationTips Field = "documentationTips"
	FieldSummary           Field = "summary"
	FieldBody              Field = "body"
	FieldKeyTerms          Field = "keyTerms"
	FieldClinicalNotes     Field = "clinicalNotes"
)

// AllFields returns every field an entry can carry.
func AllFields() []Field {
	return []Field{
		FieldName, FieldAlternateNames,
		FieldDescription, FieldKeyQuestions, FieldMnemonic, FieldRedFlags,
		FieldClinicalPearls, FieldFindings, FieldApproach, FieldTreatment,
		FieldDocumentationTips,
		FieldSummary, FieldBody, FieldKeyTerms, FieldClinicalNotes,
	}
}

// ParseField returns the field named s.
func ParseField(s string) (Field, bool) {
	for _, f := range AllFields() {
		if string(f) == s {
			return f, true
		}
	}
	return "", false
}

// KindSpec declares the closed category vocabulary and the searchable fields
// of one entry kind.
type KindSpec struct {
	Kind         Kind
	Categories   []Category
	SearchFields []Field
}

// HasCategory reports whether c is in the vocabulary.
func (s KindSpec) HasCategory(c Category) bool {
	for _, v := range s.Categories {
		if v == c {
			return true
		}
	}
	return false
}

// KindSet is an ordered collection of kind declarations.
type KindSet []KindSpec

// Spec returns the declaration for k.
func (ks KindSet) Spec(k Kind) (KindSpec, bool) {
	for _, s := range ks {
		if s.Kind == k {
			return s, true
		}
	}
	return KindSpec{}, false
}

// Categories returns every declared category once, in declaration order.
func (ks KindSet) Categories() []Category {
	seen := make(map[Category]struct{})
	var out []Category
	for _, s := range ks {
		for _, c := range s.Categories {
			if _, ok := seen[c]; ok {
				continue
			}
			seen[c] = struct{}{}
			out = append(out, c)
		}
	}
	return out
}

// DefaultKinds returns the kinds present in the shipped corpus.
func DefaultKinds() KindSet {
	return KindSet{
		{
			Kind: KindFlatReference,
			Categories: []Category{
				"framework",
				"system-specific",
				"population-specific",
				"screening-tool",
				"assessment-tool",
			},
			SearchFields: []Field{
				FieldName,
				FieldDescription,
				FieldKeyQuestions,
				FieldClinicalPearls,
				FieldRedFlags,
			},
		},
		{
			Kind: KindLeveledTopic,
			Categories: []Category{
				"structure",
				"system",
				"pathway",
				"process",
				"condition",
				"concept",
				"topic",
			},
			SearchFields: []Field{
				FieldName,
				FieldAlternateNames,
				FieldSummary,
				FieldKeyTerms,
			},
		},
	}
}

// CategoryCounts maps each category to its number of entries.
type CategoryCounts map[Category]int

// Total returns the sum over all categories.
func (c CategoryCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}
