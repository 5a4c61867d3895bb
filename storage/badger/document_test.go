package badger

import (
	"context"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

func newTestStores(t *testing.T) *MemoryStores {
	t.Helper()
	stores, err := NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })
	return stores
}

func TestDocumentRepository_AddAndGet(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	doc, err := stores.Documents.AddDocument(ctx, &core.Document{
		Name:   "guide.md",
		Source: core.SourceFile,
	})
	require.NoError(t, err)
	assert.NotZero(t, doc.Id)
	assert.False(t, doc.CreatedAt.IsZero())

	got, err := stores.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, "guide.md", got.Name)

	byName, err := stores.Documents.GetDocumentByName(ctx, "guide.md")
	require.NoError(t, err)
	assert.Equal(t, doc.Id, byName.Id)
}

func TestDocumentRepository_DuplicateName(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	_, err := stores.Documents.AddDocument(ctx, &core.Document{Name: "dup.txt"})
	require.NoError(t, err)

	_, err = stores.Documents.AddDocument(ctx, &core.Document{Name: "dup.txt"})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestDocumentRepository_GetMissing(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	_, err := stores.Documents.GetDocument(ctx, 9999)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = stores.Documents.GetDocumentByName(ctx, "nope")
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestDocumentRepository_ListDocuments(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
		_, err := stores.Documents.AddDocument(ctx, &core.Document{Name: name})
		require.NoError(t, err)
	}

	docs, err := stores.Documents.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 3)
	// Ordered by ID.
	assert.Less(t, uint64(docs[0].Id), uint64(docs[1].Id))
	assert.Less(t, uint64(docs[1].Id), uint64(docs[2].Id))
}

// stageChunks adds chunks in staged (deleted) state the way ingestion does.
func stageChunks(t *testing.T, stores *MemoryStores, docID core.DocumentID, version int, contents ...string) []*core.Chunk {
	t.Helper()
	ctx := context.Background()
	chunks := make([]*core.Chunk, len(contents))
	offset := 0
	for i, content := range contents {
		chunks[i] = &core.Chunk{
			DocumentId:  docID,
			Version:     version,
			Content:     content,
			StartOffset: offset,
			EndOffset:   offset + len(content),
			TokenCount:  1 + len(content)/4,
			Class:       core.ClassText,
			Metadata:    core.ChunkMetadata{Sequence: i},
			Deleted:     true,
		}
		offset += len(content)
	}
	added, err := stores.Chunks.AddChunks(ctx, chunks...)
	require.NoError(t, err)
	return added
}

func TestDocumentRepository_CommitVersion(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	doc, err := stores.Documents.AddDocument(ctx, &core.Document{Name: "v.md"})
	require.NoError(t, err)

	v1 := stageChunks(t, stores, doc.Id, 1, "first version alpha", "first version beta")
	doc.CurrentVersion = 1
	doc.ContentHash = core.HashContent("v1")
	err = stores.Documents.CommitVersion(ctx, &storage.VersionCommit{
		Document: doc,
		Version:  &core.DocumentVersion{DocumentId: doc.Id, Version: 1, ContentHash: doc.ContentHash, ChunkCount: 2},
		Activate: []core.ChunkID{v1[0].Id, v1[1].Id},
	})
	require.NoError(t, err)

	live, err := stores.Chunks.ListChunks(ctx, doc.Id, 1, false)
	require.NoError(t, err)
	assert.Len(t, live, 2)

	// Second version retires the first.
	v2 := stageChunks(t, stores, doc.Id, 2, "second version alpha")
	doc.CurrentVersion = 2
	err = stores.Documents.CommitVersion(ctx, &storage.VersionCommit{
		Document: doc,
		Version:  &core.DocumentVersion{DocumentId: doc.Id, Version: 2, ContentHash: core.HashContent("v2"), ChunkCount: 1},
		Activate: []core.ChunkID{v2[0].Id},
		Retire:   []core.ChunkID{v1[0].Id, v1[1].Id},
	})
	require.NoError(t, err)

	// Old version chunks are soft-deleted, new ones live.
	oldLive, err := stores.Chunks.ListChunks(ctx, doc.Id, 1, false)
	require.NoError(t, err)
	assert.Empty(t, oldLive)

	newLive, err := stores.Chunks.ListChunks(ctx, doc.Id, 2, false)
	require.NoError(t, err)
	require.Len(t, newLive, 1)
	assert.Equal(t, "second version alpha", newLive[0].Content)

	got, err := stores.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	assert.Equal(t, 2, got.CurrentVersion)

	versions, err := stores.Documents.ListVersions(ctx, doc.Id)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].Version)
	assert.Equal(t, 2, versions[1].Version)
}

func TestDocumentRepository_CommitVersion_DuplicateVersion(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	doc, err := stores.Documents.AddDocument(ctx, &core.Document{Name: "dup.md"})
	require.NoError(t, err)

	chunks := stageChunks(t, stores, doc.Id, 1, "content")
	commit := &storage.VersionCommit{
		Document: doc,
		Version:  &core.DocumentVersion{DocumentId: doc.Id, Version: 1, ChunkCount: 1},
		Activate: []core.ChunkID{chunks[0].Id},
	}
	require.NoError(t, stores.Documents.CommitVersion(ctx, commit))

	err = stores.Documents.CommitVersion(ctx, &storage.VersionCommit{
		Document: doc,
		Version:  &core.DocumentVersion{DocumentId: doc.Id, Version: 1, ChunkCount: 1},
	})
	assert.ErrorIs(t, err, storage.ErrDuplicateKey)
}

func TestDocumentRepository_RemoveDocument(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	doc, err := stores.Documents.AddDocument(ctx, &core.Document{Name: "gone.md"})
	require.NoError(t, err)

	chunks := stageChunks(t, stores, doc.Id, 1, "soon gone")
	require.NoError(t, stores.Vectors.UpsertVectors(ctx, &storage.VectorEntry{
		ChunkId:    chunks[0].Id,
		Vector:     []float32{1, 0},
		DocumentId: doc.Id,
		Version:    1,
		Class:      core.ClassText,
		CreatedAt:  time.Now().UTC(),
	}))

	require.NoError(t, stores.Documents.RemoveDocument(ctx, doc.Id))

	_, err = stores.Documents.GetDocument(ctx, doc.Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = stores.Chunks.GetChunk(ctx, chunks[0].Id)
	assert.ErrorIs(t, err, storage.ErrNotFound)

	// Name is free again.
	_, err = stores.Documents.AddDocument(ctx, &core.Document{Name: "gone.md"})
	assert.NoError(t, err)
}

func TestDocumentRepository_RemoveDocument_CleansLexicalIndex(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()

	removed, err := stores.Documents.AddDocument(ctx, &core.Document{Name: "removed.txt"})
	require.NoError(t, err)
	kept, err := stores.Documents.AddDocument(ctx, &core.Document{Name: "kept.txt"})
	require.NoError(t, err)

	removedChunks := addLiveChunks(t, stores, removed.Id, 1, "vanishing tokens about moles")
	keptChunks := addLiveChunks(t, stores, kept.Id, 1, "surviving tokens about voles")
	require.NoError(t, stores.Lexical.IndexChunks(ctx, removedChunks...))
	require.NoError(t, stores.Lexical.IndexChunks(ctx, keptChunks...))

	require.NoError(t, stores.Documents.RemoveDocument(ctx, removed.Id))

	// No posting, term-list or length keys survive for the removed chunks.
	err = stores.Backend.WithTx(func(tx *badger.Txn) error {
		for _, term := range []string{"vanishing", "moles", "tokens"} {
			postings, err := readPostings(tx, term)
			require.NoError(t, err)
			assert.NotContains(t, postings, removedChunks[0].Id, "term %q", term)
		}
		_, err := tx.Get(makeLexicalDocKey(removedChunks[0].Id))
		assert.ErrorIs(t, err, badger.ErrKeyNotFound)
		_, err = tx.Get(makeLexicalLenKey(removedChunks[0].Id))
		assert.ErrorIs(t, err, badger.ErrKeyNotFound)

		// Corpus stats count the surviving chunk only.
		stats, err := readStats(tx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.DocCount)
		return nil
	}, false)
	require.NoError(t, err)

	matches, err := stores.Lexical.Search(ctx, "vanishing moles", 10, nil)
	require.NoError(t, err)
	assert.Empty(t, matches)

	// The shared term still resolves to the surviving document.
	matches, err = stores.Lexical.Search(ctx, "tokens", 10, nil)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, keptChunks[0].Id, matches[0].ChunkId)
}
