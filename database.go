// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package docindex

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/ai/openai"
	"github.com/poiesic/docindex/ingestion"
	"github.com/poiesic/docindex/maintenance"
	"github.com/poiesic/docindex/search"
	"github.com/poiesic/docindex/storage"
	"github.com/poiesic/docindex/storage/badger"
)

// Database wires the storage backend, repositories, indexes and AI provider
// into one handle. It is the entry point for embedding the retrieval core
// into an application.
type Database struct {
	backend   *badger.Backend
	documents storage.DocumentRepository
	chunks    storage.ChunkRepository
	jobs      storage.JobRepository
	vectors   storage.VectorIndex
	lexical   storage.LexicalIndex
	provider  ai.Provider
	aiConfig  *ai.Config
	logger    *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	aiConfig *ai.Config
	provider ai.Provider
	inMemory bool
}

// WithAIConfig sets the AI provider configuration.
// Default is ai.DefaultConfig().
func WithAIConfig(config *ai.Config) DatabaseOption {
	return func(o *databaseOptions) {
		o.aiConfig = config
	}
}

// WithProvider injects a pre-built AI provider instead of constructing the
// openai one from config. Used by tests with ai/mock.
func WithProvider(provider ai.Provider) DatabaseOption {
	return func(o *databaseOptions) {
		o.provider = provider
	}
}

// WithInMemory opens the backend in memory, discarding data on Close.
func WithInMemory() DatabaseOption {
	return func(o *databaseOptions) {
		o.inMemory = true
	}
}

// NewDatabase opens (or creates) a database at filePath.
// The embedder's dimensionality is checked against a non-empty vector index
// at startup so a model mismatch fails here instead of corrupting searches.
func NewDatabase(filePath string, opts ...DatabaseOption) (*Database, error) {
	// Apply options
	options := &databaseOptions{
		aiConfig: ai.DefaultConfig(), // Default if not provided
	}
	for _, opt := range opts {
		opt(options)
	}

	// Open backend
	backend, err := badger.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}

	documents, err := badger.NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	chunks, err := badger.NewChunkRepository(backend)
	if err != nil {
		documents.Close()
		backend.Close()
		return nil, err
	}

	jobs, err := badger.NewJobRepository(backend)
	if err != nil {
		chunks.Close()
		documents.Close()
		backend.Close()
		return nil, err
	}

	vectors, err := badger.NewVectorIndex(backend)
	if err != nil {
		jobs.Close()
		chunks.Close()
		documents.Close()
		backend.Close()
		return nil, err
	}

	lexical, err := badger.NewLexicalIndex(backend)
	if err != nil {
		vectors.Close()
		jobs.Close()
		chunks.Close()
		documents.Close()
		backend.Close()
		return nil, err
	}

	closeAll := func() {
		lexical.Close()
		vectors.Close()
		jobs.Close()
		chunks.Close()
		documents.Close()
		backend.Close()
	}

	// Create AI provider with configured settings
	provider := options.provider
	if provider == nil {
		provider, err = openai.NewProvider(options.aiConfig)
		if err != nil {
			closeAll()
			return nil, err
		}
	}

	// Startup dimension check against a non-empty index
	dims, err := vectors.Dimensions(context.Background())
	if err != nil {
		provider.Close()
		closeAll()
		return nil, err
	}
	if dims != 0 && dims != provider.Embedder().Dimensions() {
		provider.Close()
		closeAll()
		return nil, fmt.Errorf("%w: index holds %d-dimensional vectors, embedder produces %d",
			storage.ErrDimensionMismatch, dims, provider.Embedder().Dimensions())
	}

	return &Database{
		backend:   backend,
		documents: documents,
		chunks:    chunks,
		jobs:      jobs,
		vectors:   vectors,
		lexical:   lexical,
		provider:  provider,
		aiConfig:  options.aiConfig,
		logger:    slog.Default(),
	}, nil
}

// Close releases the provider, repositories and backend.
func (db *Database) Close() error {
	// Close AI provider first
	if err := db.provider.Close(); err != nil {
		db.logger.Error("error closing AI provider", "err", err)
	}

	// Close repositories and indexes
	if err := db.lexical.Close(); err != nil {
		db.logger.Error("error closing lexical index", "err", err)
		return err
	}
	if err := db.vectors.Close(); err != nil {
		db.logger.Error("error closing vector index", "err", err)
		return err
	}
	if err := db.jobs.Close(); err != nil {
		db.logger.Error("error closing job repository", "err", err)
		return err
	}
	if err := db.chunks.Close(); err != nil {
		db.logger.Error("error closing chunk repository", "err", err)
		return err
	}
	if err := db.documents.Close(); err != nil {
		db.logger.Error("error closing document repository", "err", err)
		return err
	}

	// Close backend
	if err := db.backend.Close(); err != nil {
		db.logger.Error("error closing backend storage", "err", err)
		return err
	}
	return nil
}

func (db *Database) DocumentRepository() storage.DocumentRepository {
	return db.documents
}

func (db *Database) ChunkRepository() storage.ChunkRepository {
	return db.chunks
}

func (db *Database) JobRepository() storage.JobRepository {
	return db.jobs
}

func (db *Database) VectorIndex() storage.VectorIndex {
	return db.vectors
}

func (db *Database) LexicalIndex() storage.LexicalIndex {
	return db.lexical
}

func (db *Database) Provider() ai.Provider {
	return db.provider
}

// NewIngestionPipeline creates a pipeline over this database's stores.
func (db *Database) NewIngestionPipeline(opts ...ingestion.Option) (*ingestion.Pipeline, error) {
	return ingestion.NewPipeline(ingestion.Stores{
		Documents: db.documents,
		Chunks:    db.chunks,
		Jobs:      db.jobs,
		Vectors:   db.vectors,
		Lexical:   db.lexical,
	}, db.provider, opts...)
}

// NewSearcher creates a searcher over this database's indexes. The
// configured rerank default applies unless overridden by an option.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	merged := append([]search.Option{
		search.WithRerankByDefault(db.aiConfig.RerankEnabled),
	}, opts...)
	return search.NewSearcher(search.Stores{
		Chunks:  db.chunks,
		Vectors: db.vectors,
		Lexical: db.lexical,
	}, db.provider, merged...)
}

// NewCollector creates a garbage collector over this database's stores.
func (db *Database) NewCollector(opts ...maintenance.CollectorOption) (*maintenance.Collector, error) {
	return maintenance.NewCollector(maintenance.Stores{
		Chunks:  db.chunks,
		Vectors: db.vectors,
		Lexical: db.lexical,
	}, opts...)
}

// NewReembedder creates a vector index rebuilder over this database's
// stores.
func (db *Database) NewReembedder(config *maintenance.ReembedConfig, progress io.Writer) (*maintenance.Reembedder, error) {
	return maintenance.NewReembedder(db.chunks, db.vectors, db.provider.Embedder(), config, progress)
}
