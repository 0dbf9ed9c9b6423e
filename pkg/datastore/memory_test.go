package datastore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/codescribe-ai/codescribe/pkg/interfaces"
)

func TestInMemoryStoreCreateAndGet(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	job := &interfaces.Job{ID: "job-1", Mode: "documentation", Status: interfaces.JobQueued}
	require.NoError(t, store.CreateJob(ctx, job))
	assert.False(t, job.CreatedAt.IsZero())

	loaded, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "documentation", loaded.Mode)
	assert.Equal(t, interfaces.JobQueued, loaded.Status)
}

func TestInMemoryStoreRejectsDuplicates(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateJob(ctx, &interfaces.Job{ID: "job-1"}))
	err := store.CreateJob(ctx, &interfaces.Job{ID: "job-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")
}

func TestInMemoryStoreRequiresID(t *testing.T) {
	err := NewInMemoryStore().CreateJob(context.Background(), &interfaces.Job{})
	require.Error(t, err)
}

func TestInMemoryStoreUpdate(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	job := &interfaces.Job{ID: "job-1", Status: interfaces.JobQueued}
	require.NoError(t, store.CreateJob(ctx, job))

	job.Status = interfaces.JobFailed
	job.Error = "sandbox unavailable"
	require.NoError(t, store.UpdateJob(ctx, job))

	loaded, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, interfaces.JobFailed, loaded.Status)
	assert.Equal(t, "sandbox unavailable", loaded.Error)

	err = store.UpdateJob(ctx, &interfaces.Job{ID: "missing"})
	require.Error(t, err)
}

func TestInMemoryStoreGetReturnsCopy(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	require.NoError(t, store.CreateJob(ctx, &interfaces.Job{ID: "job-1", Mode: "code_generation"}))

	first, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	first.Mode = "mutated"

	second, err := store.GetJob(ctx, "job-1")
	require.NoError(t, err)
	assert.Equal(t, "code_generation", second.Mode)
}

func TestInMemoryStoreListNewestFirst(t *testing.T) {
	store := NewInMemoryStore()
	ctx := context.Background()

	base := time.Now()
	for i, id := range []string{"old", "mid", "new"} {
		require.NoError(t, store.CreateJob(ctx, &interfaces.Job{
			ID:        id,
			CreatedAt: base.Add(time.Duration(i) * time.Second),
		}))
	}

	jobs, err := store.ListJobs(ctx, 0)
	require.NoError(t, err)
	require.Len(t, jobs, 3)
	assert.Equal(t, "new", jobs[0].ID)
	assert.Equal(t, "old", jobs[2].ID)

	limited, err := store.ListJobs(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
