package search

import (
	"strings"

	"github.com/hyperjump/compendium/internal/indexer"
	"github.com/hyperjump/compendium/internal/models"
)

// normalizeQuery folds a query the same way search documents are folded.
func normalizeQuery(q string) string {
	return models.Fold(q)
}

// matches reports whether q, already normalized, occurs inside one value or
// inside the separator-joined form. q containing the separator can only match
// a single value that itself contains it.
func matches(values []string, joined, q string) bool {
	if !strings.Contains(q, indexer.FieldSeparator) && strings.Contains(joined, q) {
		return true
	}
	for _, v := range values {
		if strings.Contains(v, q) {
			return true
		}
	}
	return false
}

// containsFold reports whether s contains the normalized query q, ignoring case.
func containsFold(s, q string) bool {
	return strings.Contains(models.Fold(s), q)
}
