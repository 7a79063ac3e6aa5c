// Package schema validates literal entry definitions and converts them into
// registry entries. Validation never stops at the first problem.
package schema

import (
	"time"

	"github.com/hyperjump/compendium/internal/models"
)

// RawEntry is the literal shape of one entry as authored in a content bundle.
// Kind-specific fields are flattened; which ones may be set depends on Kind.
type RawEntry struct {
	ID              string                  `yaml:"id" validate:"required,notblank"`
	Kind            models.Kind             `yaml:"kind" validate:"required"`
	Category        models.Category         `yaml:"category" validate:"required"`
	Name            models.Text             `yaml:"name" validate:"required"`
	AlternateNames  []models.Text           `yaml:"alternateNames" validate:"dive,required"`
	Tags            []string                `yaml:"tags" validate:"dive,required"`
	CrossReferences []models.CrossReference `yaml:"crossReferences" validate:"dive"`
	Citations       []models.Citation       `yaml:"citations" validate:"dive"`
	Media           []models.MediaRef       `yaml:"media" validate:"dive"`
	Status          models.Status           `yaml:"status" validate:"omitempty,oneof=draft review published"`
	Version         int                     `yaml:"version" validate:"gte=0"`
	CreatedAt       time.Time               `yaml:"createdAt"`
	UpdatedAt       time.Time               `yaml:"updatedAt"`

	// flat-reference
	Description       models.Text   `yaml:"description"`
	KeyQuestions      []models.Text `yaml:"keyQuestions" validate:"dive,required"`
	Mnemonic          models.Text   `yaml:"mnemonic"`
	RedFlags          []models.Text `yaml:"redFlags" validate:"dive,required"`
	ClinicalPearls    []models.Text `yaml:"clinicalPearls" validate:"dive,required"`
	Findings          []models.Text `yaml:"findings" validate:"dive,required"`
	Approach          models.Text   `yaml:"approach"`
	Treatment         models.Text   `yaml:"treatment"`
	DocumentationTips models.Text   `yaml:"documentationTips"`

	// leveled-topic
	Levels []RawLevel `yaml:"levels" validate:"dive"`
}

// RawLevel is one authored complexity tier.
type RawLevel struct {
	Level         int           `yaml:"level" validate:"required,min=1,max=5"`
	Summary       models.Text   `yaml:"summary" validate:"required"`
	Body          models.Text   `yaml:"body" validate:"required"`
	KeyTerms      []RawKeyTerm  `yaml:"keyTerms" validate:"dive"`
	ClinicalNotes models.Text   `yaml:"clinicalNotes"`
}

// RawKeyTerm is an authored term/definition pair.
type RawKeyTerm struct {
	Term       models.Text `yaml:"term" validate:"required"`
	Definition models.Text `yaml:"definition" validate:"required"`
}

// crossReferenceRules and friends attach tags to model types the schema does
// not own.
var (
	crossReferenceRules = map[string]string{
		"TargetID":     "required,notblank",
		"Relationship": "required,oneof=parent child sibling related see-also",
	}
	citationRules = map[string]string{
		"ID":  "required",
		"URL": "omitempty,url",
	}
	mediaRules = map[string]string{
		"ID": "required",
	}
)
