package catalog

import (
	"time"

	"github.com/google/uuid"
)

// DocumentType is a registered document category. It carries the visual
// cues used for classification, the default fields to extract, and the
// validators that apply to matched documents.
type DocumentType struct {
	ID          uuid.UUID
	Code        string
	Name        string
	Description string
	Nature      DocumentNature

	// Visual identification
	VisualDescription string
	VisualCues        []string
	SampleKeywords    []string

	// Classification
	ClassificationInstructions        string
	ClassificationConfidenceThreshold float64

	// Extraction
	DefaultFieldCodes      []string
	ExtractionInstructions string

	// Validation
	ValidatorIDs []uuid.UUID

	Version   string
	IsActive  bool
	Tags      []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// FieldValidationRule is a validation rule embedded in a catalog field.
// Rules share the validator type and severity enums with standalone
// validator definitions so they run through the same engine; they are
// materialized into ephemeral ValidatorDefinition values at validation
// time and never persisted.
type FieldValidationRule struct {
	RuleType ValidatorType
	Severity ValidatorSeverity
	Config   map[string]any
	Message  string
}

// CatalogField is a reusable, typed field definition. Simple validation
// logic travels with the field via embedded rules.
type CatalogField struct {
	ID           uuid.UUID
	Code         string
	DisplayName  string
	FieldType    FieldType
	Description  string
	Required     bool
	DefaultValue any

	// Validation hints
	FormatPattern string
	MinValue      *float64
	MaxValue      *float64
	AllowedValues []string

	// Table fields describe their columns with nested field definitions.
	TableColumns []CatalogField

	LocationHint string

	ValidationRules []FieldValidationRule

	Tags      []string
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ValidatorDefinition is a reusable validation rule. Validators can be
// scoped to document natures, document types, or individual fields and
// run after extraction.
type ValidatorDefinition struct {
	ID          uuid.UUID
	Code        string
	Name        string
	Description string
	Type        ValidatorType
	Severity    ValidatorSeverity

	Config map[string]any

	// Applicability
	ApplicableNatures       []DocumentNature
	ApplicableDocumentTypes []uuid.UUID
	ApplicableFields        []string

	// Visual validator config
	VisualPrompt   string
	VisualExpected string

	// Business rule config
	RuleExpression string

	IsActive  bool
	Version   string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// AppliesTo reports whether the validator is in scope for the given
// document type. A validator with no applicability constraints applies
// to everything.
func (v ValidatorDefinition) AppliesTo(dt *DocumentType) bool {
	if len(v.ApplicableNatures) == 0 && len(v.ApplicableDocumentTypes) == 0 {
		return true
	}
	if dt == nil {
		return false
	}
	for _, n := range v.ApplicableNatures {
		if n == dt.Nature {
			return true
		}
	}
	for _, id := range v.ApplicableDocumentTypes {
		if id == dt.ID {
			return true
		}
	}
	return false
}
