package badger

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

// BM25 parameters, conventional defaults.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// LexicalIndex implements storage.LexicalIndex with BM25 scoring over
// BadgerDB posting lists. Per term, postings live under a shared key
// prefix; per chunk, a token-length record and the indexed term list are
// kept for scoring and removal.
type LexicalIndex struct {
	backend *Backend
}

var _ storage.LexicalIndex = (*LexicalIndex)(nil)

// lexicalStats aggregates corpus-level numbers needed by BM25.
type lexicalStats struct {
	DocCount    int
	TotalTokens int
}

// NewLexicalIndex creates a new LexicalIndex.
func NewLexicalIndex(backend *Backend) (*LexicalIndex, error) {
	return &LexicalIndex{backend: backend}, nil
}

// Close is a no-op; the shared backend is closed by its owner.
func (l *LexicalIndex) Close() error {
	return nil
}

// IndexChunks tokenizes chunk content and writes posting lists, length
// records and corpus stats. Already-indexed chunks are re-indexed.
func (l *LexicalIndex) IndexChunks(ctx context.Context, chunks ...*core.Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	return l.backend.WithTx(func(tx *badger.Txn) error {
		stats, err := readStats(tx)
		if err != nil {
			return err
		}

		for _, chunk := range chunks {
			if err := ctx.Err(); err != nil {
				return err
			}

			// Drop any previous postings of this chunk first.
			if err := removeChunkPostings(tx, chunk.Id, stats); err != nil {
				return err
			}

			freqs := termFrequencies(chunk.Content)
			terms := make([]string, 0, len(freqs))
			tokens := 0
			for term, tf := range freqs {
				terms = append(terms, term)
				tokens += tf
				if err := tx.Set(makeTermKey(term, chunk.Id), storage.MarshalUint64(uint64(tf))); err != nil {
					return err
				}
			}
			slices.Sort(terms)

			termsValue, err := json.Marshal(terms)
			if err != nil {
				return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
			}
			if err := tx.Set(makeLexicalDocKey(chunk.Id), termsValue); err != nil {
				return err
			}
			if err := tx.Set(makeLexicalLenKey(chunk.Id), storage.MarshalUint64(uint64(tokens))); err != nil {
				return err
			}

			stats.DocCount++
			stats.TotalTokens += tokens
		}

		if err := writeStats(tx, stats); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// RemoveChunks deletes postings, length records and stats contributions.
func (l *LexicalIndex) RemoveChunks(ctx context.Context, ids ...core.ChunkID) error {
	if len(ids) == 0 {
		return nil
	}

	return l.backend.WithTx(func(tx *badger.Txn) error {
		stats, err := readStats(tx)
		if err != nil {
			return err
		}
		for _, id := range ids {
			if err := removeChunkPostings(tx, id, stats); err != nil {
				return err
			}
		}
		if err := writeStats(tx, stats); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Search scores chunks containing query terms with BM25 and returns the
// top limit passing the filter, ties broken by ascending chunk ID.
// Filter attributes are resolved from the chunk records held in the same
// store.
func (l *LexicalIndex) Search(ctx context.Context, query string, limit int, filter *storage.Filter) ([]storage.LexicalMatch, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: non-positive limit", storage.ErrInvalidQuery)
	}

	terms := tokenizeAndFilter(query)
	if len(terms) == 0 {
		return nil, nil
	}
	// Deduplicate query terms; BM25 counts document frequency, not query
	// repetition.
	slices.Sort(terms)
	terms = slices.Compact(terms)

	var matches []storage.LexicalMatch
	err := l.backend.WithTx(func(tx *badger.Txn) error {
		stats, err := readStats(tx)
		if err != nil {
			return err
		}
		if stats.DocCount == 0 {
			return nil
		}
		avgLen := float64(stats.TotalTokens) / float64(stats.DocCount)
		if avgLen == 0 {
			avgLen = 1
		}

		scores := make(map[core.ChunkID]float64)
		for _, term := range terms {
			if err := ctx.Err(); err != nil {
				return err
			}

			postings, err := readPostings(tx, term)
			if err != nil {
				return err
			}
			if len(postings) == 0 {
				continue
			}

			df := float64(len(postings))
			idf := math.Log(1 + (float64(stats.DocCount)-df+0.5)/(df+0.5))

			for chunkID, tf := range postings {
				length, err := readLength(tx, chunkID)
				if err != nil {
					return err
				}
				norm := float64(tf) * (bm25K1 + 1) /
					(float64(tf) + bm25K1*(1-bm25B+bm25B*float64(length)/avgLen))
				scores[chunkID] += idf * norm
			}
		}

		for chunkID, score := range scores {
			chunk, err := readChunk(tx, makeChunkKey(chunkID))
			if err != nil {
				return err
			}
			if chunk == nil {
				continue
			}
			if !filter.Matches(chunk.DocumentId, chunk.Class, chunk.Metadata.Language, chunk.CreatedAt, chunk.Deleted) {
				continue
			}
			matches = append(matches, storage.LexicalMatch{ChunkId: chunkID, Score: score})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(matches, func(a, b storage.LexicalMatch) int {
		if a.Score > b.Score {
			return -1
		}
		if a.Score < b.Score {
			return 1
		}
		if a.ChunkId < b.ChunkId {
			return -1
		}
		if a.ChunkId > b.ChunkId {
			return 1
		}
		return 0
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// Helper methods

// removeChunkPostings deletes one chunk's postings and adjusts stats.
// No-op when the chunk was never indexed.
func removeChunkPostings(tx *badger.Txn, id core.ChunkID, stats *lexicalStats) error {
	item, err := tx.Get(makeLexicalDocKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	}

	var terms []string
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &terms)
	}); err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}

	for _, term := range terms {
		if err := tx.Delete(makeTermKey(term, id)); err != nil {
			return err
		}
	}

	length, err := readLength(tx, id)
	if err != nil {
		return err
	}
	stats.DocCount--
	stats.TotalTokens -= length
	if stats.DocCount < 0 {
		stats.DocCount = 0
	}
	if stats.TotalTokens < 0 {
		stats.TotalTokens = 0
	}

	if err := tx.Delete(makeLexicalLenKey(id)); err != nil {
		return err
	}
	return tx.Delete(makeLexicalDocKey(id))
}

// readPostings collects one term's posting list as chunkID -> tf.
func readPostings(tx *badger.Txn, term string) (map[core.ChunkID]uint64, error) {
	postings := make(map[core.ChunkID]uint64)

	prefix := makePartialTermKey(term)
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		key := iter.Item().Key()
		// Terms may themselves contain ':' (timestamps, URLs), which makes
		// one term's prefix cover another's keys. Real postings end in
		// exactly 8 ID bytes; skip anything else.
		if len(key) != len(prefix)+8 {
			continue
		}
		chunkID, err := storage.UnmarshalUint64(key[len(prefix):])
		if err != nil {
			return nil, err
		}
		var tf uint64
		if err := iter.Item().Value(func(val []byte) error {
			var err error
			tf, err = storage.UnmarshalUint64(val)
			return err
		}); err != nil {
			return nil, err
		}
		postings[core.ChunkID(chunkID)] = tf
	}
	return postings, nil
}

// readLength reads a chunk's token length, 0 when unindexed.
func readLength(tx *badger.Txn, id core.ChunkID) (int, error) {
	item, err := tx.Get(makeLexicalLenKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}
	var length uint64
	if err := item.Value(func(val []byte) error {
		var err error
		length, err = storage.UnmarshalUint64(val)
		return err
	}); err != nil {
		return 0, err
	}
	return int(length), nil
}

// readStats reads the corpus stats record, zero-valued when unset.
func readStats(tx *badger.Txn) (*lexicalStats, error) {
	stats := &lexicalStats{}
	item, err := tx.Get([]byte(lexicalStatsKey))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return stats, nil
		}
		return nil, err
	}
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, stats)
	}); err != nil {
		return nil, fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return stats, nil
}

// writeStats stores the corpus stats record.
func writeStats(tx *badger.Txn, stats *lexicalStats) error {
	value, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("%w: %w", storage.ErrSerializationFailed, err)
	}
	return tx.Set([]byte(lexicalStatsKey), value)
}
