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
	"log/slog"
	"time"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

const (
	// DefaultRetention is how long retired chunks stay purgeable before GC
	// removes them.
	DefaultRetention = 7 * 24 * time.Hour

	// DefaultGCBatchSize is the number of chunks purged per transaction.
	DefaultGCBatchSize = 100
)

// Stores bundles the storage interfaces the collector purges from.
type Stores struct {
	Chunks  storage.ChunkRepository
	Vectors storage.VectorIndex
	Lexical storage.LexicalIndex
}

// Collector permanently removes soft-deleted chunks past the retention
// period, together with their vector entries and lexical postings. Retired
// chunks stay queryable-by-ID until a GC pass claims them, so context
// expansion on stale search results degrades rather than errors.
type Collector struct {
	stores    Stores
	retention time.Duration
	batchSize int
	logger    *slog.Logger
}

// CollectorOption configures a Collector.
type CollectorOption func(*Collector) error

// WithRetention sets how long soft-deleted chunks are kept.
// Default is DefaultRetention.
func WithRetention(retention time.Duration) CollectorOption {
	return func(c *Collector) error {
		if retention <= 0 {
			return ErrInvalidRetention
		}
		c.retention = retention
		return nil
	}
}

// WithGCBatchSize sets the number of chunks purged per batch.
// Default is DefaultGCBatchSize.
func WithGCBatchSize(size int) CollectorOption {
	return func(c *Collector) error {
		if size > 0 {
			c.batchSize = size
		}
		return nil
	}
}

// WithGCLogger sets a custom logger.
// Default is slog.Default().
func WithGCLogger(logger *slog.Logger) CollectorOption {
	return func(c *Collector) error {
		if logger == nil {
			logger = slog.Default()
		}
		c.logger = logger
		return nil
	}
}

// NewCollector creates a new garbage collector.
func NewCollector(stores Stores, opts ...CollectorOption) (*Collector, error) {
	if stores.Chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if stores.Vectors == nil {
		return nil, ErrVectorIndexRequired
	}
	if stores.Lexical == nil {
		return nil, ErrLexicalIndexRequired
	}

	c := &Collector{
		stores:    stores,
		retention: DefaultRetention,
		batchSize: DefaultGCBatchSize,
		logger:    slog.Default().With("component", "gc"),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(c); err != nil {
			return nil, err
		}
	}

	return c, nil
}

// Run executes one GC pass and returns the number of chunks purged.
// Postings and vector entries go first so an interrupted pass leaves the
// chunk row behind for the next pass to reclaim. Context cancellation is
// checked between batches.
func (c *Collector) Run(ctx context.Context) (int, error) {
	cutoff := time.Now().UTC().Add(-c.retention)

	ids, err := c.stores.Chunks.ListPurgeable(ctx, cutoff)
	if err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		c.logger.Debug("nothing to purge", "cutoff", cutoff)
		return 0, nil
	}

	c.logger.Info("starting GC pass", "purgeable", len(ids), "cutoff", cutoff)

	purged := 0
	for start := 0; start < len(ids); start += c.batchSize {
		select {
		case <-ctx.Done():
			return purged, ctx.Err()
		default:
		}

		end := start + c.batchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch := ids[start:end]

		if err := c.purgeBatch(ctx, batch); err != nil {
			return purged, err
		}
		purged += len(batch)
	}

	c.logger.Info("GC pass complete", "purged", purged)
	return purged, nil
}

func (c *Collector) purgeBatch(ctx context.Context, ids []core.ChunkID) error {
	if err := c.stores.Lexical.RemoveChunks(ctx, ids...); err != nil {
		return err
	}
	if err := c.stores.Vectors.DeleteVectors(ctx, ids...); err != nil {
		return err
	}
	return c.stores.Chunks.PurgeChunks(ctx, ids...)
}
