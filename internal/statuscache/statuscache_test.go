package statuscache

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/intellidoc/internal/results"
)

func TestMemoryCache_PutGet(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()
	jobID := uuid.New()

	snap := Snapshot{
		JobID:           jobID,
		Status:          results.StatusExtracting,
		CurrentStep:     "extract",
		ProgressPercent: 55,
		TotalDocuments:  2,
		UpdatedAt:       time.Now(),
	}
	require.NoError(t, cache.Put(ctx, snap))

	got, err := cache.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, results.StatusExtracting, got.Status)
	assert.Equal(t, 55.0, got.ProgressPercent)

	// Later write replaces the snapshot wholesale.
	snap.Status = results.StatusCompleted
	snap.ProgressPercent = 100
	require.NoError(t, cache.Put(ctx, snap))

	got, err = cache.Get(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, results.StatusCompleted, got.Status)
}

func TestMemoryCache_Get_NotFound(t *testing.T) {
	cache := NewMemoryCache()
	_, err := cache.Get(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryCache_ConcurrentPollers(t *testing.T) {
	cache := NewMemoryCache()
	ctx := context.Background()
	jobID := uuid.New()
	require.NoError(t, cache.Put(ctx, Snapshot{JobID: jobID, Status: results.StatusPending}))

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(n int) {
			defer wg.Done()
			_ = cache.Put(ctx, Snapshot{JobID: jobID, Status: results.StatusClassifying, ProgressPercent: float64(n)})
		}(i)
		go func() {
			defer wg.Done()
			snap, err := cache.Get(ctx, jobID)
			assert.NoError(t, err)
			assert.NotEqual(t, uuid.Nil, snap.JobID)
		}()
	}
	wg.Wait()
}
