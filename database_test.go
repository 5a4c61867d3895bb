package docindex

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/docindex/ai/mock"
	"github.com/poiesic/docindex/storage"
)

func TestNewDatabase(t *testing.T) {
	t.Run("create new database", func(t *testing.T) {
		tmpDir := filepath.Join(t.TempDir(), "test_db")
		db, err := NewDatabase(tmpDir, WithProvider(mock.NewMockProvider()))
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		// Verify components are initialized
		assert.NotNil(t, db.DocumentRepository())
		assert.NotNil(t, db.ChunkRepository())
		assert.NotNil(t, db.JobRepository())
		assert.NotNil(t, db.VectorIndex())
		assert.NotNil(t, db.LexicalIndex())
		assert.NotNil(t, db.Provider())
		assert.NotNil(t, db.backend)
		assert.NotNil(t, db.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		// Try to create a database at a file path instead of directory
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		err := os.WriteFile(tmpFile, []byte("test"), 0644)
		require.NoError(t, err)

		db, err := NewDatabase(tmpFile, WithProvider(mock.NewMockProvider()))
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestNewDatabase_DimensionMismatch(t *testing.T) {
	tmpDir := filepath.Join(t.TempDir(), "test_db")
	ctx := context.Background()

	db, err := NewDatabase(tmpDir, WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	require.NoError(t, db.VectorIndex().UpsertVectors(ctx, &storage.VectorEntry{
		ChunkId:   1,
		Vector:    []float32{1, 0, 0},
		CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, db.Close())

	// Default mock embedder produces 384-dimensional vectors, the stored
	// index holds 3
	_, err = NewDatabase(tmpDir, WithProvider(mock.NewMockProvider()))
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)

	// An embedder matching the stored dimensionality opens fine
	embedder := mock.NewMockEmbedder()
	embedder.Dim = 3
	provider := mock.NewMockProviderWithServices(embedder, mock.NewMockClassifier(), mock.NewMockReranker())
	db, err = NewDatabase(tmpDir, WithProvider(provider))
	require.NoError(t, err)
	require.NoError(t, db.Close())
}

func TestDatabase_Close(t *testing.T) {
	db, err := NewDatabase("", WithInMemory(), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	require.NotNil(t, db)

	// Close the database
	err = db.Close()
	assert.NoError(t, err)
}

func TestDatabase_FactoryMethods(t *testing.T) {
	db, err := NewDatabase("", WithInMemory(), WithProvider(mock.NewMockProvider()))
	require.NoError(t, err)
	require.NotNil(t, db)
	defer db.Close()

	t.Run("can create ingestion pipeline", func(t *testing.T) {
		pipeline, err := db.NewIngestionPipeline()
		require.NoError(t, err)
		require.NotNil(t, pipeline)
		pipeline.Release()
	})

	t.Run("can create searcher", func(t *testing.T) {
		searcher, err := db.NewSearcher()
		require.NoError(t, err)
		require.NotNil(t, searcher)
	})

	t.Run("can create collector", func(t *testing.T) {
		collector, err := db.NewCollector()
		require.NoError(t, err)
		require.NotNil(t, collector)
	})

	t.Run("can create reembedder", func(t *testing.T) {
		reembedder, err := db.NewReembedder(nil, &bytes.Buffer{})
		require.NoError(t, err)
		require.NotNil(t, reembedder)
	})
}
