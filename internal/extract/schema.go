package extract

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/spherical-ai/intellidoc/internal/catalog"
)

// BuildFieldsJSONSchema returns a JSON-Schema (draft 2020-12 subset) for
// the extracted-fields object, as a generic map. Presence of required
// fields is not enforced here: missing data is the validation engine's
// concern, while the schema only guards value shapes.
func BuildFieldsJSONSchema(fields []catalog.CatalogField) map[string]any {
	props := make(map[string]any, len(fields))
	for _, f := range fields {
		props[f.Code] = fieldProp(f)
	}
	return map[string]any{
		"type":                 "object",
		"additionalProperties": false,
		"properties":           props,
	}
}

func fieldProp(f catalog.CatalogField) map[string]any {
	switch f.FieldType {
	case catalog.FieldTypeNumber, catalog.FieldTypeCurrency:
		prop := map[string]any{"type": "number"}
		if f.MinValue != nil {
			prop["minimum"] = *f.MinValue
		}
		if f.MaxValue != nil {
			prop["maximum"] = *f.MaxValue
		}
		return prop
	case catalog.FieldTypeBoolean:
		return map[string]any{"type": "boolean"}
	case catalog.FieldTypeDate:
		return map[string]any{"type": "string", "pattern": `^\d{4}-\d{2}-\d{2}$`}
	case catalog.FieldTypeEnum:
		if len(f.AllowedValues) > 0 {
			return map[string]any{"type": "string", "enum": f.AllowedValues}
		}
		return map[string]any{"type": "string"}
	case catalog.FieldTypeList:
		return map[string]any{
			"type":  "array",
			"items": map[string]any{"type": "string"},
		}
	case catalog.FieldTypeTable:
		cols := make(map[string]any, len(f.TableColumns))
		for _, c := range f.TableColumns {
			cols[c.Code] = fieldProp(c)
		}
		return map[string]any{
			"type": "array",
			"items": map[string]any{
				"type":                 "object",
				"additionalProperties": false,
				"properties":           cols,
			},
		}
	default: // text, email, phone, address
		prop := map[string]any{"type": "string"}
		if f.FormatPattern != "" {
			prop["pattern"] = f.FormatPattern
		}
		return prop
	}
}

// ValidateAgainstSchema validates raw JSON data against a schema map.
func ValidateAgainstSchema(schemaMap map[string]any, data []byte) error {
	b, err := json.Marshal(schemaMap)
	if err != nil {
		return fmt.Errorf("marshal schema: %w", err)
	}
	compiler := jsonschema.NewCompiler()
	if err := compiler.AddResource("schema.json", bytes.NewReader(b)); err != nil {
		return fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile("schema.json")
	if err != nil {
		return fmt.Errorf("compile schema: %w", err)
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("unmarshal data: %w", err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("extracted fields do not match schema: %w", err)
	}
	return nil
}
