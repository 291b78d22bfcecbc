package catalog

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCatalog_ActiveDocumentTypes_FiltersByNatureAndActive(t *testing.T) {
	cat := NewMemoryCatalog()
	cat.PutDocumentType(DocumentType{Code: "invoice", Nature: NatureFinancial, IsActive: true})
	cat.PutDocumentType(DocumentType{Code: "receipt", Nature: NatureFinancial, IsActive: true})
	cat.PutDocumentType(DocumentType{Code: "passport", Nature: NatureIdentity, IsActive: true})
	cat.PutDocumentType(DocumentType{Code: "old_invoice", Nature: NatureFinancial, IsActive: false})

	all, err := cat.ActiveDocumentTypes(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, all, 3)

	financial, err := cat.ActiveDocumentTypes(context.Background(), NatureFinancial)
	require.NoError(t, err)
	require.Len(t, financial, 2)
	assert.Equal(t, "invoice", financial[0].Code)
	assert.Equal(t, "receipt", financial[1].Code)
}

func TestMemoryCatalog_DocumentTypeByCode(t *testing.T) {
	cat := NewMemoryCatalog()
	cat.PutDocumentType(DocumentType{Code: "invoice", IsActive: true})
	cat.PutDocumentType(DocumentType{Code: "draft", IsActive: false})

	dt, err := cat.DocumentTypeByCode(context.Background(), "invoice")
	require.NoError(t, err)
	assert.Equal(t, "invoice", dt.Code)

	_, err = cat.DocumentTypeByCode(context.Background(), "draft")
	assert.ErrorIs(t, err, ErrTypeNotFound)

	_, err = cat.DocumentTypeByCode(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrTypeNotFound)
}

func TestMemoryCatalog_ResolveFields_FailsOnAnyMissingCode(t *testing.T) {
	cat := NewMemoryCatalog()
	cat.PutField(CatalogField{Code: "invoice_number", FieldType: FieldTypeText, IsActive: true})
	cat.PutField(CatalogField{Code: "retired", FieldType: FieldTypeText, IsActive: false})

	fields, err := cat.ResolveFields(context.Background(), []string{"invoice_number"})
	require.NoError(t, err)
	require.Len(t, fields, 1)

	_, err = cat.ResolveFields(context.Background(), []string{"invoice_number", "retired", "ghost"})
	var unresolved *UnresolvedFieldsError
	require.ErrorAs(t, err, &unresolved)
	assert.ElementsMatch(t, []string{"retired", "ghost"}, unresolved.Codes)
}

func TestMemoryCatalog_ValidatorsByIDs_SkipsUnknownAndInactive(t *testing.T) {
	cat := NewMemoryCatalog()
	active := ValidatorDefinition{ID: uuid.New(), Code: "a", IsActive: true}
	inactive := ValidatorDefinition{ID: uuid.New(), Code: "b", IsActive: false}
	cat.PutValidator(active)
	cat.PutValidator(inactive)

	out, err := cat.ValidatorsByIDs(context.Background(), []uuid.UUID{active.ID, inactive.ID, uuid.New()})
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "a", out[0].Code)
}

func TestValidatorDefinition_AppliesTo(t *testing.T) {
	invoice := &DocumentType{ID: uuid.New(), Code: "invoice", Nature: NatureFinancial}

	unconstrained := ValidatorDefinition{}
	assert.True(t, unconstrained.AppliesTo(invoice))
	assert.True(t, unconstrained.AppliesTo(nil))

	byNature := ValidatorDefinition{ApplicableNatures: []DocumentNature{NatureFinancial}}
	assert.True(t, byNature.AppliesTo(invoice))
	assert.False(t, byNature.AppliesTo(&DocumentType{Nature: NatureIdentity}))
	assert.False(t, byNature.AppliesTo(nil))

	byType := ValidatorDefinition{ApplicableDocumentTypes: []uuid.UUID{invoice.ID}}
	assert.True(t, byType.AppliesTo(invoice))
	assert.False(t, byType.AppliesTo(&DocumentType{ID: uuid.New()}))
}

const seedYAML = `
fields:
  - code: invoice_number
    display_name: Invoice Number
    field_type: text
    required: true
    validation_rules:
      - rule_type: format
        severity: error
        config:
          pattern: "^INV-\\d+$"
  - code: total_amount
    display_name: Total Amount
    field_type: currency

validators:
  - code: totals_consistent
    name: Totals consistent
    type: cross_field
    severity: error
    config:
      rule: sum
      fields: [subtotal, tax_amount]
      total_field: total_amount
    applicable_natures: [financial]

document_types:
  - code: invoice
    name: Invoice
    nature: financial
    confidence_threshold: 0.75
    default_field_codes: [invoice_number, total_amount]
    validator_codes: [totals_consistent]
`

func TestParse_SeedFile(t *testing.T) {
	cat, err := Parse([]byte(seedYAML))
	require.NoError(t, err)

	dt, err := cat.DocumentTypeByCode(context.Background(), "invoice")
	require.NoError(t, err)
	assert.Equal(t, NatureFinancial, dt.Nature)
	assert.Equal(t, 0.75, dt.ClassificationConfidenceThreshold)
	assert.Equal(t, "1", dt.Version)
	assert.True(t, dt.IsActive)
	require.Len(t, dt.ValidatorIDs, 1)

	defs, err := cat.ValidatorsByIDs(context.Background(), dt.ValidatorIDs)
	require.NoError(t, err)
	require.Len(t, defs, 1)
	assert.Equal(t, ValidatorCrossField, defs[0].Type)
	assert.Equal(t, "sum", defs[0].Config["rule"])

	fields, err := cat.ResolveFields(context.Background(), dt.DefaultFieldCodes)
	require.NoError(t, err)
	require.Len(t, fields, 2)
	assert.Equal(t, FieldTypeText, fields[0].FieldType)
	require.Len(t, fields[0].ValidationRules, 1)
	assert.Equal(t, ValidatorFormat, fields[0].ValidationRules[0].RuleType)
}

func TestParse_UnknownValidatorReference(t *testing.T) {
	_, err := Parse([]byte(`
document_types:
  - code: invoice
    validator_codes: [ghost]
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown validator")
}
