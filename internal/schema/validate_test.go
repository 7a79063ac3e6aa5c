package schema

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/hyperjump/compendium/internal/models"
)

func validFlat(id string) RawEntry {
	return RawEntry{
		ID:           id,
		Kind:         models.KindFlatReference,
		Category:     "framework",
		Name:         models.T("OLDCARTS"),
		Description:  models.T("Onset, location, duration"),
		KeyQuestions: []models.Text{models.T("When did it start?")},
		RedFlags:     []models.Text{models.T("Sudden severe headache")},
	}
}

func validTopic(id string, levels ...int) RawEntry {
	if len(levels) == 0 {
		levels = []int{1, 2, 3, 4, 5}
	}
	raw := RawEntry{
		ID:       id,
		Kind:     models.KindLeveledTopic,
		Category: "condition",
		Name:     models.T("ADHD"),
	}
	for _, l := range levels {
		raw.Levels = append(raw.Levels, RawLevel{
			Level:   l,
			Summary: models.T("summary"),
			Body:    models.T("body"),
			KeyTerms: []RawKeyTerm{
				{Term: models.T("attention"), Definition: models.T("focus")},
			},
		})
	}
	return raw
}

func hasIssue(issues []Issue, field, contains string) bool {
	for _, i := range issues {
		if i.Field == field && strings.Contains(i.Message, contains) {
			return true
		}
	}
	return false
}

func TestValidate_FlatReference(t *testing.T) {
	kinds := models.DefaultKinds()
	entry, report := Validate(validFlat("hpi-oldcarts"), kinds)
	if err := report.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Reference == nil || entry.Topic != nil {
		t.Fatalf("expected flat payload, got %+v", entry)
	}
	if entry.Status != models.StatusPublished {
		t.Errorf("status default = %q", entry.Status)
	}
	if entry.Version != 1 {
		t.Errorf("version default = %d", entry.Version)
	}
}

func TestValidate_LeveledTopicSortsLevels(t *testing.T) {
	kinds := models.DefaultKinds()
	entry, report := Validate(validTopic("adhd", 5, 3, 1, 2, 4), kinds)
	if err := report.Err(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for i, l := range entry.Topic.Levels {
		if l.Level != i+1 {
			t.Fatalf("levels not sorted: %v", entry.Topic.Levels)
		}
	}
}

func TestValidate_MissingLevel(t *testing.T) {
	kinds := models.DefaultKinds()
	_, report := Validate(validTopic("adhd", 1, 2, 4, 5), kinds)
	err := report.Err()
	if err == nil {
		t.Fatal("expected error for missing level 3")
	}
	if !hasIssue(report.Errors(), "levels", "missing 3") {
		t.Errorf("missing-level issue not reported: %v", report.Errors())
	}
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("Err() should be *ValidationError, got %T", err)
	}
}

func TestValidate_Errors(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(r *RawEntry)
		field    string
		contains string
	}{
		{"missing id", func(r *RawEntry) { r.ID = "" }, "id", "required"},
		{"blank name", func(r *RawEntry) { r.Name = models.T("   ") }, "name", "required"},
		{"unknown kind", func(r *RawEntry) { r.Kind = "essay" }, "kind", "unknown kind"},
		{"unknown category", func(r *RawEntry) { r.Category = "condition" }, "category", "unknown category"},
		{"missing description", func(r *RawEntry) { r.Description = models.Text{} }, "description", "required"},
		{"bad status", func(r *RawEntry) { r.Status = "archived" }, "status", "must be one of"},
		{"levels on flat", func(r *RawEntry) { r.Levels = validTopic("x").Levels }, "levels", "only allowed"},
		{"bad relationship", func(r *RawEntry) {
			r.CrossReferences = []models.CrossReference{{TargetID: "x", Relationship: "cousin"}}
		}, "crossReferences[0].relationship", "must be one of"},
		{"citation without id", func(r *RawEntry) {
			r.Citations = []models.Citation{{Title: "Bates"}}
		}, "citations[0].id", "required"},
		{"blank id", func(r *RawEntry) { r.ID = "   " }, "id", "must not be blank"},
		{"blank target", func(r *RawEntry) {
			r.CrossReferences = []models.CrossReference{{TargetID: "  ", Relationship: models.RelRelated}}
		}, "crossReferences[0].targetId", "must not be blank"},
		{"updated before created", func(r *RawEntry) {
			r.CreatedAt = time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
			r.UpdatedAt = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
		}, "updatedAt", "before createdAt"},
	}
	kinds := models.DefaultKinds()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := validFlat("hpi-oldcarts")
			tt.mutate(&raw)
			_, report := Validate(raw, kinds)
			if !hasIssue(report.Errors(), tt.field, tt.contains) {
				t.Errorf("want error on %q containing %q, got %v", tt.field, tt.contains, report.Issues)
			}
		})
	}
}

func TestValidate_LevelErrors(t *testing.T) {
	tests := []struct {
		name     string
		levels   []int
		field    string
		contains string
	}{
		{"duplicate level", []int{1, 1, 2, 3, 4, 5}, "levels", "level 1 declared 2 times"},
		{"level above range", []int{1, 2, 3, 4, 5, 6}, "levels[5].level", "at most 5"},
		{"level zero", []int{0, 1, 2, 3, 4, 5}, "levels[0].level", "required"},
	}
	kinds := models.DefaultKinds()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, report := Validate(validTopic("adhd", tt.levels...), kinds)
			if !hasIssue(report.Errors(), tt.field, tt.contains) {
				t.Errorf("want error on %q containing %q, got %v", tt.field, tt.contains, report.Issues)
			}
		})
	}
}

func TestValidate_DuplicateLevelOrder(t *testing.T) {
	for i := 0; i < 20; i++ {
		_, report := Validate(validTopic("adhd", 4, 4, 2, 2, 1, 3, 5), models.DefaultKinds())
		var got []string
		for _, issue := range report.Errors() {
			got = append(got, issue.Message)
		}
		want := "level 2 declared 2 times|level 4 declared 2 times"
		if strings.Join(got, "|") != want {
			t.Fatalf("errors = %v, want %s", got, want)
		}
	}
}

func TestValidate_Dates(t *testing.T) {
	raw := validFlat("hpi-oldcarts")
	raw.CreatedAt = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	raw.UpdatedAt = raw.CreatedAt
	if _, report := Validate(raw, models.DefaultKinds()); report.Err() != nil {
		t.Errorf("equal dates rejected: %v", report.Err())
	}
	raw.CreatedAt = time.Time{}
	if _, report := Validate(raw, models.DefaultKinds()); report.Err() != nil {
		t.Errorf("updatedAt without createdAt rejected: %v", report.Err())
	}
}

func TestValidate_DuplicateKeyTerm(t *testing.T) {
	raw := validTopic("adhd")
	raw.Levels[0].KeyTerms = append(raw.Levels[0].KeyTerms,
		RawKeyTerm{Term: models.T("Attention"), Definition: models.T("again")})
	_, report := Validate(raw, models.DefaultKinds())
	if !hasIssue(report.Errors(), "levels[0].keyTerms[1].term", "repeated") {
		t.Errorf("duplicate key term not reported: %v", report.Issues)
	}
}

func TestValidate_Warnings(t *testing.T) {
	raw := validTopic("adhd")
	raw.Levels[2].KeyTerms = nil
	raw.Levels[1].Summary = models.T("TODO write this")
	entry, report := Validate(raw, models.DefaultKinds())
	if err := report.Err(); err != nil {
		t.Fatalf("warnings must not fail validation: %v", err)
	}
	if entry.ID != "adhd" {
		t.Errorf("entry not converted: %+v", entry)
	}
	if !hasIssue(report.Warnings(), "levels[2].keyTerms", "no key terms") {
		t.Errorf("missing key terms warning: %v", report.Warnings())
	}
	if !hasIssue(report.Warnings(), "levels[1].summary", "placeholder") {
		t.Errorf("missing placeholder warning: %v", report.Warnings())
	}
}

func TestValidateAll(t *testing.T) {
	bad := validTopic("broken", 1, 2, 3)
	dup := validFlat("hpi-oldcarts")
	dup.Name = models.T("Duplicate")
	dangling := validFlat("hpi-opqrst")
	dangling.CrossReferences = []models.CrossReference{
		{TargetID: "hpi-oldcarts", Relationship: models.RelSibling},
		{TargetID: "anatomy-heart", Relationship: models.RelRelated},
	}

	entries, report := ValidateAll([]RawEntry{
		validFlat("hpi-oldcarts"), bad, dup, dangling, validTopic("adhd"),
	}, models.DefaultKinds())

	if !hasIssue(report.Errors(), "levels", "missing 4, 5") {
		t.Errorf("missing levels not reported: %v", report.Errors())
	}
	if !hasIssue(report.Errors(), "id", "duplicate id") {
		t.Errorf("duplicate id not reported: %v", report.Errors())
	}
	if len(report.Errors()) != 2 {
		t.Errorf("want 2 aggregated errors, got %d: %v", len(report.Errors()), report.Errors())
	}
	if !hasIssue(report.Warnings(), "crossReferences[1].targetId", "anatomy-heart") {
		t.Errorf("dangling reference warning missing: %v", report.Warnings())
	}
	if hasIssue(report.Warnings(), "crossReferences[0].targetId", "hpi-oldcarts") {
		t.Error("resolvable reference reported as dangling")
	}

	var ids []string
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	if got := strings.Join(ids, ","); got != "hpi-oldcarts,hpi-opqrst,adhd" {
		t.Errorf("entries = %s", got)
	}

	msg := report.Err().Error()
	if !strings.Contains(msg, "2 error(s)") || !strings.Contains(msg, "broken") {
		t.Errorf("aggregated message = %q", msg)
	}
}
