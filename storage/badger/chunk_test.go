package badger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

func addLiveChunks(t *testing.T, stores *MemoryStores, docID core.DocumentID, version int, contents ...string) []*core.Chunk {
	t.Helper()
	chunks := stageChunks(t, stores, docID, version, contents...)
	ids := make([]core.ChunkID, len(chunks))
	for i, c := range chunks {
		ids[i] = c.Id
	}
	doc, err := stores.Documents.GetDocument(context.Background(), docID)
	require.NoError(t, err)
	doc.CurrentVersion = version
	require.NoError(t, stores.Documents.CommitVersion(context.Background(), &storage.VersionCommit{
		Document: doc,
		Version:  &core.DocumentVersion{DocumentId: docID, Version: version, ChunkCount: len(chunks)},
		Activate: ids,
	}))
	return chunks
}

func TestChunkRepository_AddAndGet(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	doc, err := stores.Documents.AddDocument(ctx, &core.Document{Name: "c.txt"})
	require.NoError(t, err)

	chunks := addLiveChunks(t, stores, doc.Id, 1, "alpha chunk", "beta chunk")
	assert.NotZero(t, chunks[0].Id)
	assert.NotEqual(t, chunks[0].Id, chunks[1].Id)

	got, err := stores.Chunks.GetChunk(ctx, chunks[0].Id)
	require.NoError(t, err)
	assert.Equal(t, "alpha chunk", got.Content)
	assert.False(t, got.Deleted)

	many, err := stores.Chunks.GetChunks(ctx, chunks[0].Id, chunks[1].Id, 424242)
	require.NoError(t, err)
	assert.Len(t, many, 2)
}

func TestChunkRepository_AddInvalid(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	_, err := stores.Chunks.AddChunks(ctx, &core.Chunk{
		DocumentId: 1,
		Version:    1,
		Content:    "",
		EndOffset:  1,
		TokenCount: 1,
		Class:      core.ClassText,
	})
	assert.ErrorIs(t, err, core.ErrEmptyContent)
}

func TestChunkRepository_ListChunks_SequenceOrder(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	doc, err := stores.Documents.AddDocument(ctx, &core.Document{Name: "seq.txt"})
	require.NoError(t, err)

	addLiveChunks(t, stores, doc.Id, 1, "one", "two", "three")

	listed, err := stores.Chunks.ListChunks(ctx, doc.Id, 1, false)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, "one", listed[0].Content)
	assert.Equal(t, "two", listed[1].Content)
	assert.Equal(t, "three", listed[2].Content)
}

func TestChunkRepository_AdjacentChunks(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	doc, err := stores.Documents.AddDocument(ctx, &core.Document{Name: "adj.txt"})
	require.NoError(t, err)

	chunks := addLiveChunks(t, stores, doc.Id, 1, "first", "middle", "last")

	prev, next, err := stores.Chunks.AdjacentChunks(ctx, chunks[1])
	require.NoError(t, err)
	require.NotNil(t, prev)
	require.NotNil(t, next)
	assert.Equal(t, "first", prev.Content)
	assert.Equal(t, "last", next.Content)

	prev, next, err = stores.Chunks.AdjacentChunks(ctx, chunks[0])
	require.NoError(t, err)
	assert.Nil(t, prev)
	require.NotNil(t, next)
	assert.Equal(t, "middle", next.Content)

	prev, next, err = stores.Chunks.AdjacentChunks(ctx, chunks[2])
	require.NoError(t, err)
	require.NotNil(t, prev)
	assert.Nil(t, next)
}

func TestChunkRepository_PurgeLifecycle(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	doc, err := stores.Documents.AddDocument(ctx, &core.Document{Name: "purge.txt"})
	require.NoError(t, err)

	// Staged but never committed: deleted with zero DeletedAt.
	staged := stageChunks(t, stores, doc.Id, 1, "orphan staging leftovers")

	purgeable, err := stores.Chunks.ListPurgeable(ctx, time.Now().UTC().Add(time.Minute))
	require.NoError(t, err)
	assert.Contains(t, purgeable, staged[0].Id)

	// Nothing qualifies with a cutoff in the past.
	purgeable, err = stores.Chunks.ListPurgeable(ctx, time.Now().UTC().Add(-time.Hour))
	require.NoError(t, err)
	assert.Empty(t, purgeable)

	require.NoError(t, stores.Chunks.PurgeChunks(ctx, staged[0].Id))
	_, err = stores.Chunks.GetChunk(ctx, staged[0].Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	ids, err := stores.Chunks.ChunkIds(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, ids)
}
