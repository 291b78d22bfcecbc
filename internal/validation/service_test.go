package validation

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/observability"
)

func newTestService(cat catalog.Catalog) *Service {
	engine := NewEngine(observability.NopLogger(),
		FormatHandler{},
		RangeHandler{},
		RequiredHandler{},
	)
	return NewService(cat, engine, observability.NopLogger())
}

func TestService_Validate_DocumentTypeValidators(t *testing.T) {
	cat := catalog.NewMemoryCatalog()

	v := catalog.ValidatorDefinition{
		ID:               uuid.New(),
		Code:             "amount_positive",
		Type:             catalog.ValidatorRange,
		Severity:         catalog.SeverityError,
		Config:           map[string]any{"min": 0.0},
		ApplicableFields: []string{"total_amount"},
		IsActive:         true,
	}
	cat.PutValidator(v)

	docType := catalog.DocumentType{
		ID:           uuid.New(),
		Code:         "invoice",
		Nature:       catalog.NatureFinancial,
		ValidatorIDs: []uuid.UUID{v.ID},
		IsActive:     true,
	}
	cat.PutDocumentType(docType)

	svc := newTestService(cat)
	out, err := svc.Validate(context.Background(), nil, map[string]any{"total_amount": -3.0}, &docType, nil)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "amount_positive", out[0].ValidatorCode)
	assert.False(t, out[0].Passed)
}

func TestService_Validate_SkipsInapplicableValidators(t *testing.T) {
	cat := catalog.NewMemoryCatalog()

	v := catalog.ValidatorDefinition{
		ID:                uuid.New(),
		Code:              "identity_only",
		Type:              catalog.ValidatorRequired,
		Severity:          catalog.SeverityError,
		ApplicableNatures: []catalog.DocumentNature{catalog.NatureIdentity},
		ApplicableFields:  []string{"id_number"},
		IsActive:          true,
	}
	cat.PutValidator(v)

	docType := catalog.DocumentType{
		ID:           uuid.New(),
		Code:         "invoice",
		Nature:       catalog.NatureFinancial,
		ValidatorIDs: []uuid.UUID{v.ID},
		IsActive:     true,
	}
	cat.PutDocumentType(docType)

	svc := newTestService(cat)
	out, err := svc.Validate(context.Background(), nil, map[string]any{}, &docType, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
}

func TestService_Validate_MaterializesFieldRules(t *testing.T) {
	cat := catalog.NewMemoryCatalog()
	svc := newTestService(cat)

	fields := []catalog.CatalogField{
		{
			Code:      "contact_email",
			FieldType: catalog.FieldTypeEmail,
			ValidationRules: []catalog.FieldValidationRule{
				{RuleType: catalog.ValidatorFormat, Severity: catalog.SeverityError, Config: map[string]any{"format": "email"}},
				{RuleType: catalog.ValidatorRequired, Severity: catalog.SeverityWarning},
			},
		},
	}

	out, err := svc.Validate(context.Background(), nil, map[string]any{"contact_email": "bad"}, nil, fields)
	require.NoError(t, err)
	require.Len(t, out, 2)

	assert.Equal(t, "contact_email_format", out[0].ValidatorCode)
	assert.False(t, out[0].Passed)
	assert.Equal(t, "contact_email_required", out[1].ValidatorCode)
	assert.True(t, out[1].Passed)
}

func TestService_Validate_NoValidatorsNoResults(t *testing.T) {
	svc := newTestService(catalog.NewMemoryCatalog())

	out, err := svc.Validate(context.Background(), nil, map[string]any{"x": 1}, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, out)
	assert.Equal(t, 1.0, Score(out))
	assert.True(t, IsValid(out))
}
