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


package maintenance

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/ingestion"
	"github.com/poiesic/docindex/storage"
)

// ReembedConfig holds configuration for the reembedding operation.
type ReembedConfig struct {
	// BatchSize is the number of chunks to process in each batch
	BatchSize int

	// ReportInterval is how often to report progress (number of chunks)
	ReportInterval int

	// MaxRetries is the maximum number of retry attempts for failed operations
	MaxRetries int

	// RetryDelay is the base delay for exponential backoff
	RetryDelay time.Duration
}

// DefaultReembedConfig returns a ReembedConfig with sensible defaults.
func DefaultReembedConfig() *ReembedConfig {
	return &ReembedConfig{
		BatchSize:      100,
		ReportInterval: 100,
		MaxRetries:     3,
		RetryDelay:     1 * time.Second,
	}
}

// Reembedder regenerates the vector index from stored chunk content, for
// example after switching embedding models. The index is reset first and
// rebuilt from live chunks only, so retired entries drop out with it.
type Reembedder struct {
	chunks   storage.ChunkRepository
	vectors  storage.VectorIndex
	embedder ai.Embedder
	config   *ReembedConfig
	progress io.Writer
}

// NewReembedder creates a new reembedder.
// progress: where to write progress output (typically os.Stderr)
func NewReembedder(chunks storage.ChunkRepository, vectors storage.VectorIndex, embedder ai.Embedder, config *ReembedConfig, progress io.Writer) (*Reembedder, error) {
	if chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if vectors == nil {
		return nil, ErrVectorIndexRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}
	if config == nil {
		config = DefaultReembedConfig()
	}

	return &Reembedder{
		chunks:   chunks,
		vectors:  vectors,
		embedder: embedder,
		config:   config,
		progress: progress,
	}, nil
}

// Run executes the reembedding operation.
// Every live chunk gets a fresh vector entry from the configured embedder.
// Progress is reported to the configured writer.
func (r *Reembedder) Run(ctx context.Context) error {
	ids, err := r.chunks.ChunkIds(ctx, false)
	if err != nil {
		return fmt.Errorf("failed to list chunks: %w", err)
	}

	total := len(ids)
	if total == 0 {
		fmt.Fprintf(r.progress, "No live chunks found (0 chunks)\n")
		return nil
	}

	fmt.Fprintf(r.progress, "Starting reembedding of %d chunks (batch size: %d)\n",
		total, r.config.BatchSize)

	// Drop the old index so a dimensionality change cannot collide with
	// stale entries.
	if err := r.vectors.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset vector index: %w", err)
	}

	tracker := NewProgressTracker(r.progress, total, r.config.ReportInterval)
	tracker.Start()

	processed := 0
	for start := 0; start < total; start += r.config.BatchSize {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		end := start + r.config.BatchSize
		if end > total {
			end = total
		}

		batch, err := r.chunks.GetChunks(ctx, ids[start:end]...)
		if err != nil {
			return fmt.Errorf("failed to load chunk batch: %w", err)
		}
		if err := r.processBatch(ctx, batch); err != nil {
			return fmt.Errorf("failed to process batch: %w", err)
		}

		processed += len(batch)
		tracker.Update(processed)
	}

	tracker.Finish()

	elapsed := tracker.Elapsed()
	fmt.Fprintf(r.progress, "Reembedding complete. Processed %d chunks in %v (%.1f chunks/sec)\n",
		processed, elapsed.Round(time.Second), float64(processed)/elapsed.Seconds())

	return nil
}

// processBatch generates embeddings for a batch of chunks and replaces
// their vector entries. Vectors are normalized after embedding so the dot
// product stays equal to cosine similarity.
func (r *Reembedder) processBatch(ctx context.Context, chunks []*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	texts := make([]string, len(chunks))
	for i, chunk := range chunks {
		texts[i] = chunk.Content
	}

	var embeddings [][]float32
	err := ingestion.RetryWithBackoff(ctx, func() error {
		var err error
		embeddings, err = r.embedder.EmbedTexts(ctx, texts)
		return err
	}, r.config.MaxRetries, r.config.RetryDelay)

	if err != nil {
		return fmt.Errorf("failed to generate embeddings after %d attempts: %w", r.config.MaxRetries, err)
	}

	if len(embeddings) != len(chunks) {
		return fmt.Errorf("embedding count mismatch: expected %d, got %d", len(chunks), len(embeddings))
	}

	entries := make([]*storage.VectorEntry, len(chunks))
	for i, chunk := range chunks {
		entries[i] = &storage.VectorEntry{
			ChunkId:    chunk.Id,
			Vector:     storage.NormalizeVector(embeddings[i]),
			DocumentId: chunk.DocumentId,
			Version:    chunk.Version,
			Class:      chunk.Class,
			Language:   chunk.Metadata.Language,
			Deleted:    chunk.Deleted,
			CreatedAt:  chunk.CreatedAt,
		}
	}

	return r.vectors.UpsertVectors(ctx, entries...)
}
