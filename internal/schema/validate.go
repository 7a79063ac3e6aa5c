package schema

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
	"github.com/hyperjump/compendium/internal/models"
)

var placeholderPattern = regexp.MustCompile(`(?i)\b(todo|fixme|placeholder)\b`)

var structValidator = newStructValidator()

func newStructValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" || name == "" {
			return fld.Name
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	// A Text validates as its trimmed primary string.
	v.RegisterCustomTypeFunc(func(field reflect.Value) interface{} {
		if t, ok := field.Interface().(models.Text); ok {
			return strings.TrimSpace(t.Primary)
		}
		return nil
	}, models.Text{})
	v.RegisterStructValidationMapRules(crossReferenceRules, models.CrossReference{})
	v.RegisterStructValidationMapRules(citationRules, models.Citation{})
	v.RegisterStructValidationMapRules(mediaRules, models.MediaRef{})
	return v
}

// Validate checks one entry against kinds and converts it. The returned entry
// is only meaningful when the report holds no errors.
func Validate(raw RawEntry, kinds models.KindSet) (models.Entry, *Report) {
	report := &Report{}
	id := raw.ID

	if err := structValidator.Struct(raw); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			for _, fe := range fieldErrs {
				report.errorf(id, fieldPath(fe), "%s", describe(fe))
			}
		} else {
			report.errorf(id, "", "%v", err)
		}
	}

	spec, known := kinds.Spec(raw.Kind)
	switch {
	case raw.Kind == "":
		// reported by the struct validator
	case !known:
		report.errorf(id, "kind", "unknown kind %q", raw.Kind)
	case raw.Category != "" && !spec.HasCategory(raw.Category):
		report.errorf(id, "category", "unknown category %q for kind %s (allowed: %s)",
			raw.Category, raw.Kind, joinCategories(spec.Categories))
	}

	switch raw.Kind {
	case models.KindFlatReference:
		checkFlatReference(report, raw)
	case models.KindLeveledTopic:
		checkLeveledTopic(report, raw)
	}

	for i, ref := range raw.CrossReferences {
		if ref.TargetID == id && id != "" {
			report.warnf(id, fmt.Sprintf("crossReferences[%d].targetId", i), "entry references itself")
		}
	}
	if !raw.CreatedAt.IsZero() && !raw.UpdatedAt.IsZero() && raw.UpdatedAt.Before(raw.CreatedAt) {
		report.errorf(id, "updatedAt", "%s is before createdAt %s",
			raw.UpdatedAt.Format(time.RFC3339), raw.CreatedAt.Format(time.RFC3339))
	}
	checkPlaceholders(report, raw)

	if len(report.Errors()) > 0 {
		return models.Entry{}, report
	}
	return convert(raw), report
}

// ValidateAll validates every entry, then checks id uniqueness and warns about
// cross-references that do not resolve inside the bundle. Entries come back in
// declaration order; entries with errors are omitted.
func ValidateAll(raws []RawEntry, kinds models.KindSet) ([]models.Entry, *Report) {
	report := &Report{}
	entries := make([]models.Entry, 0, len(raws))
	firstSeen := make(map[string]int, len(raws))

	for pos, raw := range raws {
		entry, r := Validate(raw, kinds)
		report.merge(r)
		duplicate := false
		if raw.ID != "" {
			if first, ok := firstSeen[raw.ID]; ok {
				report.errorf(raw.ID, "id", "duplicate id (first declared at position %d, again at %d)", first, pos)
				duplicate = true
			} else {
				firstSeen[raw.ID] = pos
			}
		}
		if len(r.Errors()) == 0 && !duplicate {
			entries = append(entries, entry)
		}
	}

	for _, raw := range raws {
		for i, ref := range raw.CrossReferences {
			if strings.TrimSpace(ref.TargetID) == "" {
				continue
			}
			if _, ok := firstSeen[ref.TargetID]; !ok {
				report.warnf(raw.ID, fmt.Sprintf("crossReferences[%d].targetId", i),
					"target %q is not in this bundle", ref.TargetID)
			}
		}
	}
	return entries, report
}

func checkFlatReference(report *Report, raw RawEntry) {
	if strings.TrimSpace(raw.Description.Primary) == "" {
		report.errorf(raw.ID, "description", "is required for flat-reference entries")
	}
	if len(raw.Levels) > 0 {
		report.errorf(raw.ID, "levels", "levels are only allowed on leveled-topic entries")
	}
}

func checkLeveledTopic(report *Report, raw RawEntry) {
	if hasReferenceFields(raw) {
		report.errorf(raw.ID, "", "flat-reference fields are not allowed on leveled-topic entries")
	}
	seen := make(map[int]int)
	for _, l := range raw.Levels {
		seen[l.Level]++
	}
	for lvl := 1; lvl <= 5; lvl++ {
		if n := seen[lvl]; n > 1 {
			report.errorf(raw.ID, "levels", "level %d declared %d times", lvl, n)
		}
	}
	var missing []string
	for lvl := 1; lvl <= 5; lvl++ {
		if seen[lvl] == 0 {
			missing = append(missing, fmt.Sprint(lvl))
		}
	}
	if len(missing) > 0 {
		report.errorf(raw.ID, "levels", "leveled topics need levels 1-5; missing %s", strings.Join(missing, ", "))
	}

	for i, l := range raw.Levels {
		path := fmt.Sprintf("levels[%d]", i)
		if len(l.KeyTerms) == 0 {
			report.warnf(raw.ID, path+".keyTerms", "level %d has no key terms", l.Level)
		}
		terms := make(map[string]bool)
		for j, kt := range l.KeyTerms {
			key := strings.ToLower(strings.TrimSpace(kt.Term.Primary))
			if key == "" {
				continue
			}
			if terms[key] {
				report.errorf(raw.ID, fmt.Sprintf("%s.keyTerms[%d].term", path, j),
					"term %q repeated within level %d", kt.Term.Primary, l.Level)
			}
			terms[key] = true
		}
	}
}

func hasReferenceFields(raw RawEntry) bool {
	return !raw.Description.IsZero() || len(raw.KeyQuestions) > 0 || !raw.Mnemonic.IsZero() ||
		len(raw.RedFlags) > 0 || len(raw.ClinicalPearls) > 0 || len(raw.Findings) > 0 ||
		!raw.Approach.IsZero() || !raw.Treatment.IsZero() || !raw.DocumentationTips.IsZero()
}

func checkPlaceholders(report *Report, raw RawEntry) {
	check := func(field string, t models.Text) {
		for _, s := range t.Values() {
			if placeholderPattern.MatchString(s) {
				report.warnf(raw.ID, field, "contains placeholder text")
				return
			}
		}
	}
	check("name", raw.Name)
	check("description", raw.Description)
	for i, l := range raw.Levels {
		check(fmt.Sprintf("levels[%d].summary", i), l.Summary)
		check(fmt.Sprintf("levels[%d].body", i), l.Body)
	}
}

func convert(raw RawEntry) models.Entry {
	e := models.Entry{
		ID:              raw.ID,
		Kind:            raw.Kind,
		Category:        raw.Category,
		Name:            raw.Name,
		AlternateNames:  raw.AlternateNames,
		Tags:            raw.Tags,
		CrossReferences: raw.CrossReferences,
		Citations:       raw.Citations,
		Media:           raw.Media,
		Status:          raw.Status,
		Version:         raw.Version,
		CreatedAt:       raw.CreatedAt,
		UpdatedAt:       raw.UpdatedAt,
	}
	if e.Status == "" {
		e.Status = models.StatusPublished
	}
	if e.Version == 0 {
		e.Version = 1
	}
	switch raw.Kind {
	case models.KindFlatReference:
		e.Reference = &models.Reference{
			Description:       raw.Description,
			KeyQuestions:      raw.KeyQuestions,
			Mnemonic:          raw.Mnemonic,
			RedFlags:          raw.RedFlags,
			ClinicalPearls:    raw.ClinicalPearls,
			Findings:          raw.Findings,
			Approach:          raw.Approach,
			Treatment:         raw.Treatment,
			DocumentationTips: raw.DocumentationTips,
		}
	case models.KindLeveledTopic:
		levels := make([]models.LevelContent, len(raw.Levels))
		for i, l := range raw.Levels {
			terms := make([]models.KeyTerm, len(l.KeyTerms))
			for j, kt := range l.KeyTerms {
				terms[j] = models.KeyTerm{Term: kt.Term, Definition: kt.Definition}
			}
			levels[i] = models.LevelContent{
				Level:         l.Level,
				Summary:       l.Summary,
				Body:          l.Body,
				KeyTerms:      terms,
				ClinicalNotes: l.ClinicalNotes,
			}
		}
		sort.Slice(levels, func(i, j int) bool { return levels[i].Level < levels[j].Level })
		e.Topic = &models.Topic{Levels: levels}
	}
	return e
}

// fieldPath drops the root struct name from the validator namespace.
func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func describe(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "notblank":
		return "must not be blank"
	case "oneof":
		return fmt.Sprintf("must be one of: %s", strings.ReplaceAll(fe.Param(), " ", ", "))
	case "url":
		return "must be a valid URL"
	case "min":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gte":
		return fmt.Sprintf("must be >= %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q check", fe.Tag())
	}
}

func joinCategories(cs []models.Category) string {
	s := make([]string, len(cs))
	for i, c := range cs {
		s[i] = string(c)
	}
	return strings.Join(s, ", ")
}
