package catalog

import (
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"
)

// catalogFile is the YAML seed format. Validators are referenced from
// document types by code so seed files stay hand-writable.
type catalogFile struct {
	DocumentTypes []documentTypeSpec        `yaml:"document_types"`
	Fields        []fieldSpec               `yaml:"fields"`
	Validators    []validatorDefinitionSpec `yaml:"validators"`
}

type documentTypeSpec struct {
	Code                string   `yaml:"code"`
	Name                string   `yaml:"name"`
	Description         string   `yaml:"description"`
	Nature              string   `yaml:"nature"`
	VisualDescription   string   `yaml:"visual_description"`
	VisualCues          []string `yaml:"visual_cues"`
	SampleKeywords      []string `yaml:"sample_keywords"`
	Instructions        string   `yaml:"classification_instructions"`
	ConfidenceThreshold float64  `yaml:"confidence_threshold"`
	DefaultFieldCodes   []string `yaml:"default_field_codes"`
	ExtractionNotes     string   `yaml:"extraction_instructions"`
	ValidatorCodes      []string `yaml:"validator_codes"`
	Tags                []string `yaml:"tags"`
	Inactive            bool     `yaml:"inactive"`
}

type fieldSpec struct {
	Code          string               `yaml:"code"`
	DisplayName   string               `yaml:"display_name"`
	FieldType     string               `yaml:"field_type"`
	Description   string               `yaml:"description"`
	Required      bool                 `yaml:"required"`
	DefaultValue  any                  `yaml:"default_value"`
	FormatPattern string               `yaml:"format_pattern"`
	MinValue      *float64             `yaml:"min_value"`
	MaxValue      *float64             `yaml:"max_value"`
	AllowedValues []string             `yaml:"allowed_values"`
	Columns       []fieldSpec          `yaml:"columns"`
	LocationHint  string               `yaml:"location_hint"`
	Rules         []validationRuleSpec `yaml:"validation_rules"`
	Tags          []string             `yaml:"tags"`
	Inactive      bool                 `yaml:"inactive"`
}

type validationRuleSpec struct {
	RuleType string         `yaml:"rule_type"`
	Severity string         `yaml:"severity"`
	Config   map[string]any `yaml:"config"`
	Message  string         `yaml:"message"`
}

type validatorDefinitionSpec struct {
	Code             string         `yaml:"code"`
	Name             string         `yaml:"name"`
	Description      string         `yaml:"description"`
	Type             string         `yaml:"type"`
	Severity         string         `yaml:"severity"`
	Config           map[string]any `yaml:"config"`
	Natures          []string       `yaml:"applicable_natures"`
	DocumentTypes    []string       `yaml:"applicable_document_types"`
	ApplicableFields []string       `yaml:"applicable_fields"`
	VisualPrompt     string         `yaml:"visual_prompt"`
	VisualExpected   string         `yaml:"visual_expected"`
	RuleExpression   string         `yaml:"rule_expression"`
	Inactive         bool           `yaml:"inactive"`
}

// LoadFile reads a YAML catalog seed file into a memory catalog.
func LoadFile(path string) (*MemoryCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog file: %w", err)
	}
	return Parse(data)
}

// Parse builds a memory catalog from YAML seed data.
func Parse(data []byte) (*MemoryCatalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse catalog file: %w", err)
	}

	cat := NewMemoryCatalog()
	now := time.Now()

	// Document type IDs are assigned up front so validators can scope
	// themselves to types by code.
	typeIDs := make(map[string]uuid.UUID, len(file.DocumentTypes))
	for _, dt := range file.DocumentTypes {
		if dt.Code == "" {
			return nil, fmt.Errorf("document type missing code")
		}
		typeIDs[dt.Code] = uuid.New()
	}

	validatorIDs := make(map[string]uuid.UUID, len(file.Validators))
	for _, v := range file.Validators {
		if v.Code == "" {
			return nil, fmt.Errorf("validator missing code")
		}
		applicableTypes := make([]uuid.UUID, 0, len(v.DocumentTypes))
		for _, code := range v.DocumentTypes {
			id, ok := typeIDs[code]
			if !ok {
				return nil, fmt.Errorf("validator %s references unknown document type %s", v.Code, code)
			}
			applicableTypes = append(applicableTypes, id)
		}
		def := ValidatorDefinition{
			ID:                      uuid.New(),
			Code:                    v.Code,
			Name:                    v.Name,
			Description:             v.Description,
			Type:                    ValidatorType(v.Type),
			Severity:                severityOrDefault(v.Severity),
			Config:                  v.Config,
			ApplicableNatures:       natures(v.Natures),
			ApplicableDocumentTypes: applicableTypes,
			ApplicableFields:        v.ApplicableFields,
			VisualPrompt:            v.VisualPrompt,
			VisualExpected:          v.VisualExpected,
			RuleExpression:          v.RuleExpression,
			IsActive:                !v.Inactive,
			CreatedAt:               now,
			UpdatedAt:               now,
		}
		validatorIDs[v.Code] = def.ID
		cat.PutValidator(def)
	}

	for _, f := range file.Fields {
		field, err := toCatalogField(f, now)
		if err != nil {
			return nil, err
		}
		cat.PutField(field)
	}

	for _, dt := range file.DocumentTypes {
		ids := make([]uuid.UUID, 0, len(dt.ValidatorCodes))
		for _, code := range dt.ValidatorCodes {
			id, ok := validatorIDs[code]
			if !ok {
				return nil, fmt.Errorf("document type %s references unknown validator %s", dt.Code, code)
			}
			ids = append(ids, id)
		}
		cat.PutDocumentType(DocumentType{
			ID:                                typeIDs[dt.Code],
			Code:                              dt.Code,
			Name:                              dt.Name,
			Description:                       dt.Description,
			Nature:                            DocumentNature(dt.Nature),
			VisualDescription:                 dt.VisualDescription,
			VisualCues:                        dt.VisualCues,
			SampleKeywords:                    dt.SampleKeywords,
			ClassificationInstructions:        dt.Instructions,
			ClassificationConfidenceThreshold: dt.ConfidenceThreshold,
			DefaultFieldCodes:                 dt.DefaultFieldCodes,
			ExtractionInstructions:            dt.ExtractionNotes,
			ValidatorIDs:                      ids,
			Version:                           "1",
			IsActive:                          !dt.Inactive,
			Tags:                              dt.Tags,
			CreatedAt:                         now,
			UpdatedAt:                         now,
		})
	}

	return cat, nil
}

func toCatalogField(f fieldSpec, now time.Time) (CatalogField, error) {
	if f.Code == "" {
		return CatalogField{}, fmt.Errorf("field missing code")
	}
	columns := make([]CatalogField, 0, len(f.Columns))
	for _, c := range f.Columns {
		col, err := toCatalogField(c, now)
		if err != nil {
			return CatalogField{}, err
		}
		columns = append(columns, col)
	}
	rules := make([]FieldValidationRule, 0, len(f.Rules))
	for _, r := range f.Rules {
		rules = append(rules, FieldValidationRule{
			RuleType: ValidatorType(r.RuleType),
			Severity: severityOrDefault(r.Severity),
			Config:   r.Config,
			Message:  r.Message,
		})
	}
	fieldType := FieldType(f.FieldType)
	if f.FieldType == "" {
		fieldType = FieldTypeText
	}
	return CatalogField{
		ID:              uuid.New(),
		Code:            f.Code,
		DisplayName:     f.DisplayName,
		FieldType:       fieldType,
		Description:     f.Description,
		Required:        f.Required,
		DefaultValue:    f.DefaultValue,
		FormatPattern:   f.FormatPattern,
		MinValue:        f.MinValue,
		MaxValue:        f.MaxValue,
		AllowedValues:   f.AllowedValues,
		TableColumns:    columns,
		LocationHint:    f.LocationHint,
		ValidationRules: rules,
		IsActive:        !f.Inactive,
		Tags:            f.Tags,
		CreatedAt:       now,
		UpdatedAt:       now,
	}, nil
}

func severityOrDefault(s string) ValidatorSeverity {
	if s == "" {
		return SeverityError
	}
	return ValidatorSeverity(s)
}

func natures(values []string) []DocumentNature {
	out := make([]DocumentNature, 0, len(values))
	for _, v := range values {
		out = append(out, DocumentNature(v))
	}
	return out
}
