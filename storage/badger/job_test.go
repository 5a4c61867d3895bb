package badger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

func TestJobRepository_AddAndGet(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	job, err := stores.Jobs.AddJob(ctx, &core.ProcessingJob{})
	require.NoError(t, err)
	assert.NotZero(t, job.Id)
	assert.Equal(t, core.JobPending, job.Status)

	got, err := stores.Jobs.GetJob(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, job.Id, got.Id)
}

func TestJobRepository_UpdateJob(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	job, err := stores.Jobs.AddJob(ctx, &core.ProcessingJob{})
	require.NoError(t, err)

	job.Status = core.JobProcessing
	job.Stage = "embedding"
	job.Progress = 0.5
	job.DocumentId = 7
	require.NoError(t, stores.Jobs.UpdateJob(ctx, job))

	got, err := stores.Jobs.GetJob(ctx, job.Id)
	require.NoError(t, err)
	assert.Equal(t, core.JobProcessing, got.Status)
	assert.Equal(t, "embedding", got.Stage)
	assert.InDelta(t, 0.5, got.Progress, 1e-9)

	// Index picked up the late-bound document.
	jobs, err := stores.Jobs.ListJobsByDocument(ctx, 7)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, job.Id, jobs[0].Id)
}

func TestJobRepository_UpdateMissing(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	err := stores.Jobs.UpdateJob(ctx, &core.ProcessingJob{Id: 12345})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestJobRepository_ListJobsByDocument_NewestFirst(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	first, err := stores.Jobs.AddJob(ctx, &core.ProcessingJob{DocumentId: 3})
	require.NoError(t, err)
	second, err := stores.Jobs.AddJob(ctx, &core.ProcessingJob{DocumentId: 3})
	require.NoError(t, err)

	jobs, err := stores.Jobs.ListJobsByDocument(ctx, 3)
	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, second.Id, jobs[0].Id)
	assert.Equal(t, first.Id, jobs[1].Id)
}
