package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

// ChunkRepository implements storage.ChunkRepository for BadgerDB.
type ChunkRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.ChunkRepository = (*ChunkRepository)(nil)

// NewChunkRepository creates a new ChunkRepository.
func NewChunkRepository(backend *Backend) (*ChunkRepository, error) {
	idSeq, err := backend.GetSequence(chunkIDSeq)
	if err != nil {
		return nil, err
	}

	return &ChunkRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *ChunkRepository) Close() error {
	return r.idSeq.Release()
}

// AddChunks adds chunks, generating sequence IDs for chunks with ID=0 and
// maintaining the (document, version, sequence) index.
func (r *ChunkRepository) AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error) {
	for _, chunk := range chunks {
		if err := core.ValidateChunk(chunk); err != nil {
			return nil, err
		}
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		now := time.Now().UTC()
		for _, chunk := range chunks {
			if chunk.Id == 0 {
				next, err := nextID(r.idSeq)
				if err != nil {
					return err
				}
				chunk.Id = core.ChunkID(next)
			}
			if chunk.CreatedAt.IsZero() {
				chunk.CreatedAt = now
			}

			value, err := storage.MarshalChunk(chunk)
			if err != nil {
				return err
			}
			if err := tx.Set(makeChunkKey(chunk.Id), value); err != nil {
				return err
			}

			seqKey := makeChunkSeqKey(chunk.DocumentId, chunk.Version, chunk.Metadata.Sequence)
			if err := tx.Set(seqKey, storage.MarshalUint64(uint64(chunk.Id))); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return chunks, nil
}

// GetChunk retrieves a single chunk by ID.
func (r *ChunkRepository) GetChunk(ctx context.Context, id core.ChunkID) (*core.Chunk, error) {
	var result *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readChunk(tx, makeChunkKey(id))
		if err != nil {
			return err
		}
		if result == nil {
			return storage.ErrNotFound
		}
		return nil
	}, false)
	return result, err
}

// GetChunks retrieves multiple chunks by ID, skipping missing ones.
func (r *ChunkRepository) GetChunks(ctx context.Context, ids ...core.ChunkID) ([]*core.Chunk, error) {
	var result []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			chunk, err := readChunk(tx, makeChunkKey(id))
			if err != nil {
				return err
			}
			if chunk != nil {
				result = append(result, chunk)
			}
		}
		return nil
	}, false)
	return result, err
}

// ListChunks returns one version's chunks in sequence order.
func (r *ChunkRepository) ListChunks(ctx context.Context, docID core.DocumentID, version int, includeDeleted bool) ([]*core.Chunk, error) {
	var results []*core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialChunkSeqKey(docID, version)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunkID uint64
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunkID, err = storage.UnmarshalUint64(val)
				return err
			}); err != nil {
				return err
			}

			chunk, err := readChunk(tx, makeChunkKey(core.ChunkID(chunkID)))
			if err != nil {
				return err
			}
			if chunk == nil {
				continue
			}
			if chunk.Deleted && !includeDeleted {
				continue
			}
			results = append(results, chunk)
		}
		return nil
	}, false)
	return results, err
}

// AdjacentChunks returns the live neighbours of a chunk within its version.
func (r *ChunkRepository) AdjacentChunks(ctx context.Context, chunk *core.Chunk) (*core.Chunk, *core.Chunk, error) {
	if chunk == nil {
		return nil, nil, storage.ErrInvalidQuery
	}

	var prev, next *core.Chunk
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		if chunk.Metadata.Sequence > 0 {
			prev, err = r.chunkAtSequence(tx, chunk.DocumentId, chunk.Version, chunk.Metadata.Sequence-1)
			if err != nil {
				return err
			}
		}
		next, err = r.chunkAtSequence(tx, chunk.DocumentId, chunk.Version, chunk.Metadata.Sequence+1)
		return err
	}, false)
	return prev, next, err
}

// ChunkIds returns every stored chunk ID in ascending order.
func (r *ChunkRepository) ChunkIds(ctx context.Context, includeDeleted bool) ([]core.ChunkID, error) {
	var ids []core.ChunkID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			}); err != nil {
				return err
			}
			if chunk.Deleted && !includeDeleted {
				continue
			}
			ids = append(ids, chunk.Id)
		}
		return nil
	}, false)
	return ids, err
}

// ListPurgeable returns soft-deleted chunks eligible for permanent removal.
// Chunks staged by a failed ingestion never get a DeletedAt, so their
// CreatedAt decides.
func (r *ChunkRepository) ListPurgeable(ctx context.Context, cutoff time.Time) ([]core.ChunkID, error) {
	var ids []core.ChunkID
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(chunkPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunk *core.Chunk
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunk, err = storage.UnmarshalChunk(val)
				return err
			}); err != nil {
				return err
			}
			if !chunk.Deleted {
				continue
			}
			reference := chunk.DeletedAt
			if reference.IsZero() {
				reference = chunk.CreatedAt
			}
			if reference.Before(cutoff) {
				ids = append(ids, chunk.Id)
			}
		}
		return nil
	}, false)
	return ids, err
}

// PurgeChunks removes chunk records and their sequence index entries.
func (r *ChunkRepository) PurgeChunks(ctx context.Context, ids ...core.ChunkID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		for _, id := range ids {
			chunk, err := readChunk(tx, makeChunkKey(id))
			if err != nil {
				return err
			}
			if chunk == nil {
				continue
			}
			seqKey := makeChunkSeqKey(chunk.DocumentId, chunk.Version, chunk.Metadata.Sequence)
			if err := tx.Delete(seqKey); err != nil {
				return err
			}
			if err := tx.Delete(makeChunkKey(id)); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)
}

// Helper methods

// chunkAtSequence resolves the live chunk at a sequence position, nil when
// absent or deleted.
func (r *ChunkRepository) chunkAtSequence(tx *badger.Txn, docID core.DocumentID, version, sequence int) (*core.Chunk, error) {
	item, err := tx.Get(makeChunkSeqKey(docID, version, sequence))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var chunkID uint64
	if err := item.Value(func(val []byte) error {
		var err error
		chunkID, err = storage.UnmarshalUint64(val)
		return err
	}); err != nil {
		return nil, err
	}

	chunk, err := readChunk(tx, makeChunkKey(core.ChunkID(chunkID)))
	if err != nil {
		return nil, err
	}
	if chunk != nil && chunk.Deleted {
		return nil, nil
	}
	return chunk, nil
}

// readChunk reads a chunk from the transaction.
func readChunk(tx *badger.Txn, key []byte) (*core.Chunk, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var chunk *core.Chunk
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		chunk, unmarshalErr = storage.UnmarshalChunk(val)
		return unmarshalErr
	})
	return chunk, err
}
