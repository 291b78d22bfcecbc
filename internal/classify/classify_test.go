package classify

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/intellidoc/internal/catalog"
	"github.com/spherical-ai/intellidoc/internal/model"
	"github.com/spherical-ai/intellidoc/internal/observability"
)

type fakeAgent struct {
	model.Agent
	result       *model.ClassifyResult
	lastCodes    []string
	lastExpected string
}

func (a *fakeAgent) Classify(ctx context.Context, req model.ClassifyRequest) (*model.ClassifyResult, error) {
	a.lastCodes = nil
	for _, c := range req.Candidates {
		a.lastCodes = append(a.lastCodes, c.Code)
	}
	a.lastExpected = req.ExpectedType
	return a.result, nil
}

func seededCatalog(t *testing.T) *catalog.MemoryCatalog {
	t.Helper()
	cat := catalog.NewMemoryCatalog()
	cat.PutDocumentType(catalog.DocumentType{
		Code: "invoice", Name: "Invoice", Nature: catalog.NatureFinancial, IsActive: true,
	})
	cat.PutDocumentType(catalog.DocumentType{
		Code: "passport", Name: "Passport", Nature: catalog.NatureIdentity, IsActive: true,
	})
	return cat
}

func TestService_Classify_CatalogCandidates(t *testing.T) {
	agent := &fakeAgent{result: &model.ClassifyResult{
		TypeCode:   "invoice",
		Confidence: 0.93,
		Reasoning:  "Header and line items match an invoice",
		Usage:      model.Usage{Tokens: 120, CostMicroUSD: 40},
	}}
	svc := NewService(seededCatalog(t), agent, observability.NopLogger())

	result, err := svc.Classify(context.Background(), Request{})
	require.NoError(t, err)
	require.NotNil(t, result.BestMatch)

	assert.Equal(t, "invoice", result.BestMatch.DocumentType.Code)
	assert.Equal(t, 0.93, result.Confidence)
	assert.Equal(t, int64(120), result.Usage.Tokens)
	assert.ElementsMatch(t, []string{"invoice", "passport"}, agent.lastCodes)
}

func TestService_Classify_NatureFilter(t *testing.T) {
	agent := &fakeAgent{result: &model.ClassifyResult{TypeCode: "passport", Confidence: 0.8}}
	svc := NewService(seededCatalog(t), agent, observability.NopLogger())

	_, err := svc.Classify(context.Background(), Request{ExpectedNature: catalog.NatureIdentity})
	require.NoError(t, err)
	assert.Equal(t, []string{"passport"}, agent.lastCodes)
}

func TestService_Classify_AdHocTypes(t *testing.T) {
	agent := &fakeAgent{result: &model.ClassifyResult{TypeCode: "gym_membership", Confidence: 0.85}}
	svc := NewService(catalog.NewMemoryCatalog(), agent, observability.NopLogger())

	result, err := svc.Classify(context.Background(), Request{
		AdHocTypes: []AdHocType{{Code: "gym_membership", FieldCodes: []string{"member_name"}}},
	})
	require.NoError(t, err)
	require.NotNil(t, result.BestMatch)

	assert.Equal(t, "gym_membership", result.BestMatch.DocumentType.Code)
	assert.Equal(t, "Gym Membership", result.BestMatch.DocumentType.Name)
	assert.Equal(t, catalog.NatureOther, result.BestMatch.DocumentType.Nature)
	assert.Equal(t, []string{"member_name"}, result.BestMatch.DocumentType.DefaultFieldCodes)
}

func TestService_Classify_SynthesizesExpectedType(t *testing.T) {
	agent := &fakeAgent{result: &model.ClassifyResult{TypeCode: "utility_bill", Confidence: 0.7}}
	svc := NewService(catalog.NewMemoryCatalog(), agent, observability.NopLogger())

	result, err := svc.Classify(context.Background(), Request{ExpectedType: "utility_bill"})
	require.NoError(t, err)
	require.NotNil(t, result.BestMatch)

	assert.Equal(t, "utility_bill", result.BestMatch.DocumentType.Code)
	assert.Equal(t, "Utility Bill", result.BestMatch.DocumentType.Name)
}

func TestService_Classify_ExpectedTypeNarrowsToAcceptReject(t *testing.T) {
	agent := &fakeAgent{result: &model.ClassifyResult{TypeCode: "invoice", Confidence: 0.9}}
	svc := NewService(seededCatalog(t), agent, observability.NopLogger())

	result, err := svc.Classify(context.Background(), Request{ExpectedType: "invoice"})
	require.NoError(t, err)
	require.NotNil(t, result.BestMatch)

	// The registered type is the only candidate and the hint travels
	// with the agent request.
	assert.Equal(t, []string{"invoice"}, agent.lastCodes)
	assert.Equal(t, "invoice", agent.lastExpected)
	assert.Equal(t, catalog.NatureFinancial, result.BestMatch.DocumentType.Nature)
}

func TestService_Classify_ExpectedTypeUnregisteredStillReachesAgent(t *testing.T) {
	agent := &fakeAgent{result: &model.ClassifyResult{TypeCode: "", Confidence: 0.2, Reasoning: "not a receipt"}}
	svc := NewService(seededCatalog(t), agent, observability.NopLogger())

	result, err := svc.Classify(context.Background(), Request{ExpectedType: "receipt"})
	require.NoError(t, err)
	assert.Nil(t, result.BestMatch)

	// Catalog types do not drown out the expected type: the agent sees
	// a synthesized "receipt" candidate, not invoice/passport.
	assert.Equal(t, []string{"receipt"}, agent.lastCodes)
	assert.Equal(t, "receipt", agent.lastExpected)
}

func TestService_Classify_RankedAlternatives(t *testing.T) {
	agent := &fakeAgent{result: &model.ClassifyResult{
		TypeCode:   "invoice",
		Confidence: 0.82,
		Alternatives: []model.RankedType{
			{TypeCode: "passport", Confidence: 0.3},
			{TypeCode: "ghost", Confidence: 0.2},
		},
	}}
	svc := NewService(seededCatalog(t), agent, observability.NopLogger())

	result, err := svc.Classify(context.Background(), Request{})
	require.NoError(t, err)
	require.NotNil(t, result.BestMatch)

	// Alternatives with codes outside the candidate set are dropped.
	require.Len(t, result.Alternatives, 1)
	assert.Equal(t, "passport", result.Alternatives[0].DocumentType.Code)
	assert.Equal(t, 0.3, result.Alternatives[0].Confidence)
}

func TestService_Classify_NoCandidates(t *testing.T) {
	svc := NewService(catalog.NewMemoryCatalog(), &fakeAgent{}, observability.NopLogger())

	result, err := svc.Classify(context.Background(), Request{})
	require.NoError(t, err)
	assert.Nil(t, result.BestMatch)
	assert.Zero(t, result.Confidence)
	assert.Equal(t, "no document types available", result.Reasoning)
}

func TestService_Classify_UnknownTypeCodeHasNoMatch(t *testing.T) {
	agent := &fakeAgent{result: &model.ClassifyResult{TypeCode: "receipt", Confidence: 0.4, Reasoning: "weak match"}}
	svc := NewService(seededCatalog(t), agent, observability.NopLogger())

	result, err := svc.Classify(context.Background(), Request{})
	require.NoError(t, err)
	assert.Nil(t, result.BestMatch)
	assert.Equal(t, 0.4, result.Confidence)
}
