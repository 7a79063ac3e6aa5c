// Package keyword provides the token index used to narrow substring searches
// to a candidate set before exact verification.
package keyword

import (
	"strings"

	"github.com/hyperjump/compendium/internal/models"
)

// CandidateIndex narrows a substring query to a superset of the entry ids
// that can match it. An empty field means every declared search field.
// ok is false when the query has no tokens and the caller must scan.
type CandidateIndex interface {
	Candidates(field models.Field, query string) (ids []string, ok bool, err error)
	Close() error
}

// Document is the token view of one entry. AllTerms covers the entry's
// declared search fields; Fields covers every field it carries.
type Document struct {
	ID       string
	AllTerms []string
	Fields   map[models.Field][]string
}

// Tokenize case-folds s and splits it on whitespace.
func Tokenize(s string) []string {
	return strings.Fields(models.Fold(s))
}

// Terms returns the distinct whitespace tokens of every value, case-folded,
// in first-seen order.
func Terms(values []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, v := range values {
		for _, tok := range Tokenize(v) {
			if _, ok := seen[tok]; ok {
				continue
			}
			seen[tok] = struct{}{}
			out = append(out, tok)
		}
	}
	return out
}
