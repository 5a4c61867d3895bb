package maintenance

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docindex/ai/mock"
	"github.com/poiesic/docindex/storage"
)

func TestNewReembedder_Validation(t *testing.T) {
	stores := newTestStores(t)
	embedder := mock.NewMockEmbedder()

	_, err := NewReembedder(nil, stores.Vectors, embedder, nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrChunkRepositoryRequired)

	_, err = NewReembedder(stores.Chunks, nil, embedder, nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrVectorIndexRequired)

	_, err = NewReembedder(stores.Chunks, stores.Vectors, nil, nil, &bytes.Buffer{})
	assert.ErrorIs(t, err, ErrEmbedderRequired)
}

func TestReembedder_RegeneratesVectors(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	embedder := mock.NewMockEmbedder()

	addChunk(t, stores, "alpha bravo charlie", false, time.Now().UTC())
	second := addChunk(t, stores, "delta echo foxtrot", false, time.Now().UTC())

	// The seeded placeholder vectors are 3-dimensional; the rebuild must
	// replace them with the embedder's dimensionality.
	var progress bytes.Buffer
	reembedder, err := NewReembedder(stores.Chunks, stores.Vectors, embedder, nil, &progress)
	require.NoError(t, err)
	require.NoError(t, reembedder.Run(ctx))

	dims, err := stores.Vectors.Dimensions(ctx)
	require.NoError(t, err)
	assert.Equal(t, embedder.Dimensions(), dims)

	query, err := embedder.EmbedText(ctx, second.Content)
	require.NoError(t, err)
	matches, err := stores.Vectors.Search(ctx, storage.NormalizeVector(query), 2, nil)
	require.NoError(t, err)
	require.NotEmpty(t, matches)
	assert.Equal(t, second.Id, matches[0].ChunkId)

	assert.Contains(t, progress.String(), "Reembedding complete")
}

func TestReembedder_SkipsDeletedChunks(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	embedder := mock.NewMockEmbedder()

	addChunk(t, stores, "live chunk content", false, time.Now().UTC())
	retired := addChunk(t, stores, "retired chunk content", true, time.Now().UTC())

	reembedder, err := NewReembedder(stores.Chunks, stores.Vectors, embedder, nil, &bytes.Buffer{})
	require.NoError(t, err)
	require.NoError(t, reembedder.Run(ctx))

	query, err := embedder.EmbedText(ctx, retired.Content)
	require.NoError(t, err)
	matches, err := stores.Vectors.Search(ctx, storage.NormalizeVector(query), 10, nil)
	require.NoError(t, err)
	for _, match := range matches {
		assert.NotEqual(t, retired.Id, match.ChunkId)
	}
}

func TestReembedder_EmptyStore(t *testing.T) {
	stores := newTestStores(t)

	var progress bytes.Buffer
	reembedder, err := NewReembedder(stores.Chunks, stores.Vectors, mock.NewMockEmbedder(), nil, &progress)
	require.NoError(t, err)

	require.NoError(t, reembedder.Run(context.Background()))
	assert.Contains(t, progress.String(), "No live chunks")
}

func TestReembedder_EmbedderFailure(t *testing.T) {
	stores := newTestStores(t)
	ctx := context.Background()
	addChunk(t, stores, "some content", false, time.Now().UTC())

	embedder := mock.NewMockEmbedder()
	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
		return nil, errors.New("embedder offline")
	}

	config := DefaultReembedConfig()
	config.MaxRetries = 2
	config.RetryDelay = time.Millisecond

	reembedder, err := NewReembedder(stores.Chunks, stores.Vectors, embedder, config, &bytes.Buffer{})
	require.NoError(t, err)

	err = reembedder.Run(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedder offline")
	assert.Equal(t, 2, embedder.CallCount())
}
