package badger

import (
	"context"
	"fmt"
	"slices"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

// VectorIndex implements storage.VectorIndex for BadgerDB with a
// brute-force scan. Entries carry denormalized chunk attributes so the
// pre-filter never touches chunk rows.
type VectorIndex struct {
	backend *Backend
}

var _ storage.VectorIndex = (*VectorIndex)(nil)

// NewVectorIndex creates a new VectorIndex.
func NewVectorIndex(backend *Backend) (*VectorIndex, error) {
	return &VectorIndex{backend: backend}, nil
}

// Close is a no-op; the shared backend is closed by its owner.
func (v *VectorIndex) Close() error {
	return nil
}

// UpsertVectors inserts or replaces entries, enforcing one dimensionality
// across the index.
func (v *VectorIndex) UpsertVectors(ctx context.Context, entries ...*storage.VectorEntry) error {
	if len(entries) == 0 {
		return nil
	}

	return v.backend.WithTx(func(tx *badger.Txn) error {
		dims, err := readDimensions(tx)
		if err != nil {
			return err
		}

		for _, entry := range entries {
			if len(entry.Vector) == 0 {
				return fmt.Errorf("%w: empty vector for chunk %d", storage.ErrInvalidQuery, entry.ChunkId)
			}
			if dims == 0 {
				dims = len(entry.Vector)
				if err := tx.Set([]byte(vectorDimsKey), storage.MarshalUint64(uint64(dims))); err != nil {
					return err
				}
			}
			if len(entry.Vector) != dims {
				return fmt.Errorf("%w: got %d, index holds %d", storage.ErrDimensionMismatch, len(entry.Vector), dims)
			}

			value, err := storage.MarshalVectorEntry(entry)
			if err != nil {
				return err
			}
			if err := tx.Set(makeVectorKey(entry.ChunkId), value); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// SetDeleted flips the deletion flag on existing entries.
func (v *VectorIndex) SetDeleted(ctx context.Context, deleted bool, ids ...core.ChunkID) error {
	return v.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := setVectorDeleted(tx, id, deleted); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// DeleteVectors removes entries permanently.
func (v *VectorIndex) DeleteVectors(ctx context.Context, ids ...core.ChunkID) error {
	return v.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			if err := tx.Delete(makeVectorKey(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Reset drops every entry and the dimensionality record.
func (v *VectorIndex) Reset(ctx context.Context) error {
	return v.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorPrefix + ":")
		opts.PrefetchValues = false
		iter := tx.NewIterator(opts)

		var keys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			keys = append(keys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for _, key := range keys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}
		if err := tx.Delete([]byte(vectorDimsKey)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Dimensions returns the stored dimensionality, 0 for an empty index.
func (v *VectorIndex) Dimensions(ctx context.Context) (int, error) {
	var dims int
	err := v.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		dims, err = readDimensions(tx)
		return err
	}, false)
	return dims, err
}

// Search scans all live entries passing the filter and returns the top
// limit by dot product. Ties are broken by ascending chunk ID.
func (v *VectorIndex) Search(ctx context.Context, vector []float32, limit int, filter *storage.Filter) ([]storage.VectorMatch, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: non-positive limit", storage.ErrInvalidQuery)
	}

	var matches []storage.VectorMatch
	err := v.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(vectorPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}

			var entry *storage.VectorEntry
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				entry, err = storage.UnmarshalVectorEntry(val)
				return err
			}); err != nil {
				return err
			}

			if !filter.Matches(entry.DocumentId, entry.Class, entry.Language, entry.CreatedAt, entry.Deleted) {
				continue
			}

			matches = append(matches, storage.VectorMatch{
				ChunkId: entry.ChunkId,
				Score:   dotProduct(vector, entry.Vector),
			})
		}
		return nil
	}, false)
	if err != nil {
		return nil, err
	}

	slices.SortFunc(matches, func(a, b storage.VectorMatch) int {
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

// readDimensions reads the index dimensionality record, 0 when unset.
func readDimensions(tx *badger.Txn) (int, error) {
	item, err := tx.Get([]byte(vectorDimsKey))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return 0, nil
		}
		return 0, err
	}
	var dims uint64
	if err := item.Value(func(val []byte) error {
		var err error
		dims, err = storage.UnmarshalUint64(val)
		return err
	}); err != nil {
		return 0, err
	}
	return int(dims), nil
}
