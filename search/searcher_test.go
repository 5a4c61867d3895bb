package search

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docindex/ai/mock"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
	"github.com/poiesic/docindex/storage/badger"
)

type searchHarness struct {
	searcher   *Searcher
	stores     *badger.MemoryStores
	embedder   *mock.MockEmbedder
	classifier *mock.MockClassifier
	reranker   *mock.MockReranker
}

func newSearchHarness(t *testing.T, opts ...Option) *searchHarness {
	t.Helper()

	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	t.Cleanup(func() { stores.Close() })

	embedder := mock.NewMockEmbedder()
	classifier := mock.NewMockClassifier()
	reranker := mock.NewMockReranker()
	provider := mock.NewMockProviderWithServices(embedder, classifier, reranker)

	searcher, err := NewSearcher(Stores{
		Chunks:  stores.Chunks,
		Vectors: stores.Vectors,
		Lexical: stores.Lexical,
	}, provider, opts...)
	require.NoError(t, err)

	return &searchHarness{
		searcher:   searcher,
		stores:     stores,
		embedder:   embedder,
		classifier: classifier,
		reranker:   reranker,
	}
}

// seedDocument commits one document version with the given chunk contents,
// indexed in both the vector and lexical indexes.
func (h *searchHarness) seedDocument(t *testing.T, name string, contents ...string) *core.Document {
	t.Helper()
	ctx := context.Background()

	doc, err := h.stores.Documents.AddDocument(ctx, &core.Document{
		Name:   name,
		Source: core.SourceFile,
	})
	require.NoError(t, err)

	chunks := make([]*core.Chunk, len(contents))
	offset := 0
	for i, content := range contents {
		chunks[i] = &core.Chunk{
			DocumentId:  doc.Id,
			Version:     1,
			Content:     content,
			StartOffset: offset,
			EndOffset:   offset + len(content),
			TokenCount:  len(content)/4 + 1,
			Class:       core.ClassText,
			Metadata:    core.ChunkMetadata{Sequence: i},
			Deleted:     true,
		}
		offset += len(content)
	}
	chunks, err = h.stores.Chunks.AddChunks(ctx, chunks...)
	require.NoError(t, err)

	now := time.Now().UTC()
	entries := make([]*storage.VectorEntry, len(chunks))
	activate := make([]core.ChunkID, len(chunks))
	for i, chunk := range chunks {
		vec, err := h.embedder.EmbedText(ctx, chunk.Content)
		require.NoError(t, err)
		entries[i] = &storage.VectorEntry{
			ChunkId:    chunk.Id,
			Vector:     storage.NormalizeVector(vec),
			DocumentId: doc.Id,
			Version:    1,
			Class:      chunk.Class,
			Deleted:    true,
			CreatedAt:  now,
		}
		activate[i] = chunk.Id
	}
	require.NoError(t, h.stores.Vectors.UpsertVectors(ctx, entries...))
	require.NoError(t, h.stores.Lexical.IndexChunks(ctx, chunks...))

	updated := *doc
	updated.CurrentVersion = 1
	updated.ContentHash = core.HashContent(strings.Join(contents, "\n"))
	require.NoError(t, h.stores.Documents.CommitVersion(ctx, &storage.VersionCommit{
		Document: &updated,
		Version: &core.DocumentVersion{
			DocumentId:  doc.Id,
			Version:     1,
			ContentHash: updated.ContentHash,
			ChunkCount:  len(chunks),
			CreatedAt:   now,
		},
		Activate: activate,
	}))

	committed, err := h.stores.Documents.GetDocument(ctx, doc.Id)
	require.NoError(t, err)
	return committed
}

func boolPtr(b bool) *bool { return &b }

func TestNewSearcher_Validation(t *testing.T) {
	stores, err := badger.NewMemoryStores()
	require.NoError(t, err)
	defer stores.Close()

	full := Stores{Chunks: stores.Chunks, Vectors: stores.Vectors, Lexical: stores.Lexical}

	_, err = NewSearcher(Stores{}, mock.NewMockProvider())
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)

	missing := full
	missing.Lexical = nil
	_, err = NewSearcher(missing, mock.NewMockProvider())
	assert.ErrorIs(t, err, ErrLexicalIndexRequired)

	_, err = NewSearcher(full, nil)
	assert.ErrorIs(t, err, ErrAIProviderRequired)
}

func TestSearch_EmptyQuery(t *testing.T) {
	h := newSearchHarness(t)
	_, err := h.searcher.Search(context.Background(), &core.SearchRequest{Query: ""})
	assert.ErrorIs(t, err, core.ErrEmptyQuery)
}

func TestSearch_EmptyIndex(t *testing.T) {
	h := newSearchHarness(t)
	results, err := h.searcher.Search(context.Background(), &core.SearchRequest{Query: "anything"})
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestSearch_HybridTopResult(t *testing.T) {
	h := newSearchHarness(t)
	ctx := context.Background()

	target := "echo foxtrot golf hotel"
	h.seedDocument(t, "doc.txt",
		"alpha bravo charlie delta",
		target,
		"india juliet kilo lima",
	)

	results, err := h.searcher.Search(ctx, &core.SearchRequest{Query: target, TopK: 3})
	require.NoError(t, err)
	require.NotEmpty(t, results)

	top := results[0]
	assert.Equal(t, target, top.Chunk.Content)
	// Verbatim query hits rank 1 on both legs: 1/61 + 1/61
	assert.Equal(t, 1, top.VectorRank)
	assert.Equal(t, 1, top.LexicalRank)
	assert.InDelta(t, 2.0/61.0, top.Score, 1e-12)
}

func TestSearch_Deterministic(t *testing.T) {
	h := newSearchHarness(t)
	ctx := context.Background()
	h.seedDocument(t, "doc.txt",
		"shared words one extra",
		"shared words two extra",
		"shared words three extra",
	)

	req := &core.SearchRequest{Query: "shared words", TopK: 3}
	first, err := h.searcher.Search(ctx, req)
	require.NoError(t, err)
	second, err := h.searcher.Search(ctx, req)
	require.NoError(t, err)

	require.Equal(t, len(first), len(second))
	for i := range first {
		assert.Equal(t, first[i].Chunk.Id, second[i].Chunk.Id)
		assert.Equal(t, first[i].Score, second[i].Score)
	}
}

func TestSearch_VectorLegDegradation(t *testing.T) {
	h := newSearchHarness(t)
	ctx := context.Background()
	h.seedDocument(t, "doc.txt", "searchable lexical content")

	h.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, errors.New("embedder offline")
	}

	results, err := h.searcher.Search(ctx, &core.SearchRequest{Query: "searchable lexical content"})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	assert.Equal(t, 0, results[0].VectorRank)
	assert.Positive(t, results[0].LexicalRank)
}

func TestSearch_CancelledContext(t *testing.T) {
	h := newSearchHarness(t)
	h.seedDocument(t, "doc.txt", "content that would match")

	h.embedder.EmbedTextFunc = func(ctx context.Context, text string) ([]float32, error) {
		return nil, ctx.Err()
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.searcher.Search(ctx, &core.SearchRequest{Query: "content that would match"})
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrAllLegsFailed)
}

func TestSearch_RerankFailureKeepsFusedOrder(t *testing.T) {
	h := newSearchHarness(t)
	ctx := context.Background()
	h.seedDocument(t, "doc.txt",
		"first passage about retrieval",
		"second passage about storage",
		"third passage about fusion",
	)

	req := &core.SearchRequest{Query: "passage about retrieval", TopK: 3}
	baseline, err := h.searcher.Search(ctx, req)
	require.NoError(t, err)
	require.NotEmpty(t, baseline)

	h.reranker.RerankFunc = func(ctx context.Context, query string, candidates []string) ([]float64, error) {
		return nil, errors.New("reranker offline")
	}

	reranked := *req
	reranked.Rerank = boolPtr(true)
	results, err := h.searcher.Search(ctx, &reranked)
	require.NoError(t, err)

	require.Equal(t, len(baseline), len(results), "failed rerank must not change the result count")
	for i := range baseline {
		assert.Equal(t, baseline[i].Chunk.Id, results[i].Chunk.Id)
	}
}

func TestSearch_RerankReorders(t *testing.T) {
	h := newSearchHarness(t)
	ctx := context.Background()
	h.seedDocument(t, "doc.txt",
		"common topic variant one",
		"common topic variant two",
	)

	// Score the lexicographically larger content higher
	h.reranker.RerankFunc = func(ctx context.Context, query string, candidates []string) ([]float64, error) {
		scores := make([]float64, len(candidates))
		for i, candidate := range candidates {
			if strings.Contains(candidate, "two") {
				scores[i] = 10
			} else {
				scores[i] = 1
			}
		}
		return scores, nil
	}

	results, err := h.searcher.Search(ctx, &core.SearchRequest{
		Query:  "common topic",
		TopK:   2,
		Rerank: boolPtr(true),
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Contains(t, results[0].Chunk.Content, "two")
	assert.Equal(t, 10.0, results[0].Score)
}

func TestSearch_FilterByDocument(t *testing.T) {
	h := newSearchHarness(t)
	ctx := context.Background()
	first := h.seedDocument(t, "first.txt", "orange umbrella victor whiskey")
	h.seedDocument(t, "second.txt", "orange umbrella xray yankee")

	results, err := h.searcher.Search(ctx, &core.SearchRequest{
		Query:   "orange umbrella",
		Filters: core.SearchFilters{DocumentIds: []core.DocumentID{first.Id}},
	})
	require.NoError(t, err)
	require.NotEmpty(t, results)
	for _, result := range results {
		assert.Equal(t, first.Id, result.Chunk.DocumentId)
	}
}

func TestSearch_IncludeContext(t *testing.T) {
	h := newSearchHarness(t)
	ctx := context.Background()
	target := "middle section with unique terms"
	h.seedDocument(t, "doc.txt",
		"opening section of the document",
		target,
		"closing section of the document",
	)

	results, err := h.searcher.Search(ctx, &core.SearchRequest{
		Query:          target,
		TopK:           1,
		IncludeContext: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	require.Equal(t, target, results[0].Chunk.Content)
	require.NotNil(t, results[0].Previous)
	require.NotNil(t, results[0].Next)
	assert.Contains(t, results[0].Previous.Content, "opening")
	assert.Contains(t, results[0].Next.Content, "closing")
}
