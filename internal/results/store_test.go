package results

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/intellidoc/internal/catalog"
)

func TestMemoryStore_JobLifecycle(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	job := &ProcessingJob{SourceType: "local", SourceReference: "/tmp/a.pdf", Status: StatusPending}
	require.NoError(t, store.CreateJob(ctx, job))
	require.NotEqual(t, uuid.Nil, job.ID)

	got, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusPending, got.Status)

	got.Status = StatusCompleted
	got.ProgressPercent = 100
	require.NoError(t, store.UpdateJob(ctx, got))

	updated, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)

	// GetJob returns a copy, not a live reference.
	updated.Status = StatusFailed
	again, err := store.GetJob(ctx, job.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, again.Status)
}

func TestMemoryStore_GetJob_NotFound(t *testing.T) {
	store := NewMemoryStore()
	_, err := store.GetJob(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMemoryStore_UpdateJob_NotFound(t *testing.T) {
	store := NewMemoryStore()
	err := store.UpdateJob(context.Background(), &ProcessingJob{ID: uuid.New()})
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestMemoryStore_ListJobs_Filters(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, store.CreateJob(ctx, &ProcessingJob{Status: StatusCompleted, TenantID: "acme"}))
	}
	require.NoError(t, store.CreateJob(ctx, &ProcessingJob{Status: StatusFailed, TenantID: "acme"}))
	require.NoError(t, store.CreateJob(ctx, &ProcessingJob{Status: StatusCompleted, TenantID: "globex"}))

	all, err := store.ListJobs(ctx, ListFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 5)

	completed, err := store.ListJobs(ctx, ListFilter{Status: StatusCompleted})
	require.NoError(t, err)
	assert.Len(t, completed, 4)

	acme, err := store.ListJobs(ctx, ListFilter{TenantID: "acme"})
	require.NoError(t, err)
	assert.Len(t, acme, 4)

	page, err := store.ListJobs(ctx, ListFilter{Limit: 2, Offset: 4})
	require.NoError(t, err)
	assert.Len(t, page, 1)

	past, err := store.ListJobs(ctx, ListFilter{Offset: 10})
	require.NoError(t, err)
	assert.Empty(t, past)
}

func TestMemoryStore_DocumentResultsOrderedByPage(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()
	jobID := uuid.New()

	require.NoError(t, store.SaveDocumentResult(ctx, &DocumentResult{JobID: jobID, PageRangeStart: 4, PageRangeEnd: 6}))
	require.NoError(t, store.SaveDocumentResult(ctx, &DocumentResult{JobID: jobID, PageRangeStart: 1, PageRangeEnd: 3}))

	docs, err := store.DocumentResultsByJob(ctx, jobID)
	require.NoError(t, err)
	require.Len(t, docs, 2)
	assert.Equal(t, 1, docs[0].PageRangeStart)
	assert.Equal(t, 4, docs[1].PageRangeStart)
	assert.NotEqual(t, uuid.Nil, docs[0].ID)
	assert.False(t, docs[0].CreatedAt.IsZero())
}

func TestJobStatus_IsTerminal(t *testing.T) {
	for _, s := range []JobStatus{StatusCompleted, StatusFailed, StatusPartiallyCompleted, StatusCancelled} {
		assert.True(t, s.IsTerminal(), string(s))
	}
	for _, s := range []JobStatus{StatusPending, StatusIngesting, StatusClassifying, StatusValidating} {
		assert.False(t, s.IsTerminal(), string(s))
	}
}

func TestTierFromScore(t *testing.T) {
	assert.Equal(t, ConfidenceHigh, TierFromScore(0.95))
	assert.Equal(t, ConfidenceHigh, TierFromScore(0.9))
	assert.Equal(t, ConfidenceMedium, TierFromScore(0.7))
	assert.Equal(t, ConfidenceLow, TierFromScore(0.5))
	assert.Equal(t, ConfidenceVeryLow, TierFromScore(0.49))
}

func TestProcessingResult_Summarize(t *testing.T) {
	result := &ProcessingResult{
		Job: ProcessingJob{CreatedAt: time.Now()},
		Documents: []DocumentResult{
			{
				ExtractedFields:   map[string]any{"a": "x", "b": nil, "c": 1},
				OverallConfidence: ConfidenceHigh,
				ValidationResults: []ValidationResult{
					{Passed: true, Severity: catalog.SeverityError},
					{Passed: false, Severity: catalog.SeverityError},
					{Passed: false, Severity: catalog.SeverityWarning},
				},
			},
			{
				ExtractedFields:   map[string]any{"d": "y"},
				OverallConfidence: ConfidenceLow,
			},
		},
	}

	result.Summarize()

	assert.Equal(t, 3, result.TotalFieldsExtracted)
	assert.Equal(t, 1, result.TotalValidationsPassed)
	assert.Equal(t, 1, result.TotalValidationsFailed)
	assert.Equal(t, 1, result.TotalValidationsWarned)
	assert.Equal(t, ConfidenceLow, result.OverallConfidence, "aggregate takes the worst document tier")
}
