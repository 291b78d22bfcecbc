package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/classify"
	"github.com/spherical-ai/intellidoc/internal/observability"
)

func resolverCatalog(t *testing.T) *catalog.MemoryCatalog {
	t.Helper()
	cat := catalog.NewMemoryCatalog()
	cat.PutField(catalog.CatalogField{Code: "invoice_number", DisplayName: "Invoice Number", FieldType: catalog.FieldTypeText, IsActive: true})
	cat.PutField(catalog.CatalogField{Code: "total_amount", DisplayName: "Total", FieldType: catalog.FieldTypeCurrency, IsActive: true})
	return cat
}

func matched(code string, confidence float64, threshold float64, fieldCodes ...string) *classify.Result {
	return &classify.Result{
		BestMatch: &classify.Candidate{
			DocumentType: catalog.DocumentType{
				Code:                              code,
				ClassificationConfidenceThreshold: threshold,
				DefaultFieldCodes:                 fieldCodes,
			},
			Confidence: confidence,
		},
		Confidence: confidence,
	}
}

func TestFieldResolver_InlineFieldsWin(t *testing.T) {
	r := NewFieldResolver(resolverCatalog(t), 0.7, observability.NopLogger())

	req := Request{TargetSchema: &TargetSchema{
		InlineFields: []InlineField{{Code: "member_id"}},
	}}
	fields, err := r.Resolve(context.Background(), req, matched("invoice", 0.99, 0, "invoice_number", "total_amount"))
	require.NoError(t, err)

	require.Len(t, fields, 1, "type defaults are bypassed entirely")
	assert.Equal(t, "member_id", fields[0].Code)
	assert.Equal(t, catalog.FieldTypeText, fields[0].FieldType)
}

func TestFieldResolver_UnionsInlineAndCodes(t *testing.T) {
	r := NewFieldResolver(resolverCatalog(t), 0.7, observability.NopLogger())

	req := Request{TargetSchema: &TargetSchema{
		FieldCodes:   []string{"invoice_number", "member_id"},
		InlineFields: []InlineField{{Code: "member_id", FieldType: catalog.FieldTypeText}},
	}}
	fields, err := r.Resolve(context.Background(), req, nil)
	require.NoError(t, err)

	var codes []string
	for _, f := range fields {
		codes = append(codes, f.Code)
	}
	assert.ElementsMatch(t, []string{"member_id", "invoice_number"}, codes, "inline definition shadows the same code")
}

func TestFieldResolver_UnresolvableCodeFails(t *testing.T) {
	r := NewFieldResolver(resolverCatalog(t), 0.7, observability.NopLogger())

	req := Request{TargetSchema: &TargetSchema{FieldCodes: []string{"no_such_field"}}}
	_, err := r.Resolve(context.Background(), req, nil)
	require.Error(t, err)

	var unresolved *catalog.UnresolvedFieldsError
	require.ErrorAs(t, err, &unresolved)
	assert.Equal(t, []string{"no_such_field"}, unresolved.Codes)
}

func TestFieldResolver_TypeDefaultsWhenConfident(t *testing.T) {
	r := NewFieldResolver(resolverCatalog(t), 0.7, observability.NopLogger())

	fields, err := r.Resolve(context.Background(), Request{}, matched("invoice", 0.85, 0, "invoice_number", "total_amount"))
	require.NoError(t, err)
	require.Len(t, fields, 2)
}

func TestFieldResolver_BelowThresholdSkipsDefaults(t *testing.T) {
	r := NewFieldResolver(resolverCatalog(t), 0.7, observability.NopLogger())

	fields, err := r.Resolve(context.Background(), Request{}, matched("invoice", 0.6, 0, "invoice_number"))
	require.NoError(t, err)
	assert.Empty(t, fields)
}

func TestFieldResolver_TypeThresholdOverridesDefault(t *testing.T) {
	r := NewFieldResolver(resolverCatalog(t), 0.7, observability.NopLogger())

	// Type's own threshold 0.5 admits a 0.6 classification the global
	// default would reject.
	fields, err := r.Resolve(context.Background(), Request{}, matched("invoice", 0.6, 0.5, "invoice_number"))
	require.NoError(t, err)
	require.Len(t, fields, 1)
}

func TestFieldResolver_NoMatchNoFields(t *testing.T) {
	r := NewFieldResolver(resolverCatalog(t), 0.7, observability.NopLogger())

	fields, err := r.Resolve(context.Background(), Request{}, nil)
	require.NoError(t, err)
	assert.Empty(t, fields)

	fields, err = r.Resolve(context.Background(), Request{}, &classify.Result{Confidence: 0.2})
	require.NoError(t, err)
	assert.Empty(t, fields)
}
