package pipeline

import (
	"github.com/google/uuid"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/classify"
)

// InlineField is a field definition supplied inline with a request. It
// shadows the catalog field shape so requests can describe extraction
// targets without touching the catalog.
type InlineField struct {
	Code          string            `json:"code"`
	DisplayName   string            `json:"display_name,omitempty"`
	FieldType     catalog.FieldType `json:"field_type,omitempty"`
	Description   string            `json:"description,omitempty"`
	Required      bool              `json:"required,omitempty"`
	DefaultValue  any               `json:"default_value,omitempty"`
	FormatPattern string            `json:"format_pattern,omitempty"`
	MinValue      *float64          `json:"min_value,omitempty"`
	MaxValue      *float64          `json:"max_value,omitempty"`
	AllowedValues []string          `json:"allowed_values,omitempty"`
	LocationHint  string            `json:"location_hint,omitempty"`
	Columns       []InlineField     `json:"columns,omitempty"`
}

// ToCatalogField converts an inline field into a transient catalog field.
func (f InlineField) ToCatalogField() catalog.CatalogField {
	name := f.DisplayName
	if name == "" {
		name = f.Code
	}
	fieldType := f.FieldType
	if fieldType == "" {
		fieldType = catalog.FieldTypeText
	}
	out := catalog.CatalogField{
		ID:            uuid.New(),
		Code:          f.Code,
		DisplayName:   name,
		FieldType:     fieldType,
		Description:   f.Description,
		Required:      f.Required,
		DefaultValue:  f.DefaultValue,
		FormatPattern: f.FormatPattern,
		MinValue:      f.MinValue,
		MaxValue:      f.MaxValue,
		AllowedValues: f.AllowedValues,
		LocationHint:  f.LocationHint,
		IsActive:      true,
	}
	for _, c := range f.Columns {
		out.TableColumns = append(out.TableColumns, c.ToCatalogField())
	}
	return out
}

// TargetSchema overrides which fields get extracted, bypassing the
// classified type's defaults.
type TargetSchema struct {
	FieldCodes   []string      `json:"field_codes,omitempty"`
	InlineFields []InlineField `json:"inline_fields,omitempty"`
}

// Request is a file processing submission.
type Request struct {
	SourceType      string `json:"source_type"`
	SourceReference string `json:"source_reference"`
	Filename        string `json:"filename,omitempty"`

	ExpectedType      string                 `json:"expected_type,omitempty"`
	ExpectedNature    catalog.DocumentNature `json:"expected_nature,omitempty"`
	SplittingStrategy string                 `json:"splitting_strategy,omitempty"`

	TargetSchema  *TargetSchema        `json:"target_schema,omitempty"`
	DocumentTypes []classify.AdHocType `json:"document_types,omitempty"`

	WebhookURL    string `json:"webhook_url,omitempty"`
	WebhookSecret string `json:"webhook_secret,omitempty"`

	TenantID      string            `json:"tenant_id,omitempty"`
	CorrelationID string            `json:"correlation_id,omitempty"`
	Tags          map[string]string `json:"tags,omitempty"`
}

// inlineFields returns the request's inline field definitions.
func (r Request) inlineFields() []InlineField {
	if r.TargetSchema == nil {
		return nil
	}
	return r.TargetSchema.InlineFields
}

// fieldCodes returns the request's explicit catalog field codes.
func (r Request) fieldCodes() []string {
	if r.TargetSchema == nil {
		return nil
	}
	return r.TargetSchema.FieldCodes
}
