package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

// DocumentRepository implements storage.DocumentRepository for BadgerDB.
type DocumentRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.DocumentRepository = (*DocumentRepository)(nil)

// NewDocumentRepository creates a new DocumentRepository.
func NewDocumentRepository(backend *Backend) (*DocumentRepository, error) {
	idSeq, err := backend.GetSequence(documentIDSeq)
	if err != nil {
		return nil, err
	}

	return &DocumentRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *DocumentRepository) Close() error {
	return r.idSeq.Release()
}

// AddDocument adds a document, assigning a sequence ID when unset.
func (r *DocumentRepository) AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error) {
	if err := core.ValidateDocument(doc); err != nil {
		return nil, err
	}

	err := r.backend.WithTx(func(tx *badger.Txn) error {
		// Names are unique: a second document under the same name is a
		// duplicate, not a new row.
		if _, err := tx.Get(makeDocumentNameKey(doc.Name)); err == nil {
			return storage.ErrDuplicateKey
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		if doc.Id == 0 {
			next, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			doc.Id = core.DocumentID(next)
		}

		now := time.Now().UTC()
		if doc.CreatedAt.IsZero() {
			doc.CreatedAt = now
		}
		doc.UpdatedAt = doc.CreatedAt

		if err := writeDocument(tx, doc); err != nil {
			return err
		}
		if err := tx.Set(makeDocumentNameKey(doc.Name), storage.MarshalUint64(uint64(doc.Id))); err != nil {
			return err
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return doc, nil
}

// UpdateDocument updates an existing document in place.
func (r *DocumentRepository) UpdateDocument(ctx context.Context, doc *core.Document) error {
	if err := core.ValidateDocument(doc); err != nil {
		return err
	}

	return r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := readDocument(tx, makeDocumentKey(doc.Id))
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		doc.UpdatedAt = time.Now().UTC()

		if old.Name != doc.Name {
			if err := tx.Delete(makeDocumentNameKey(old.Name)); err != nil {
				return err
			}
			if err := tx.Set(makeDocumentNameKey(doc.Name), storage.MarshalUint64(uint64(doc.Id))); err != nil {
				return err
			}
		}

		if err := writeDocument(tx, doc); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetDocument retrieves a document by ID.
func (r *DocumentRepository) GetDocument(ctx context.Context, id core.DocumentID) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readDocument(tx, makeDocumentKey(id))
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

// GetDocumentByName retrieves a document through the name index.
func (r *DocumentRepository) GetDocumentByName(ctx context.Context, name string) (*core.Document, error) {
	var result *core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeDocumentNameKey(name))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}

		var id uint64
		if err := item.Value(func(val []byte) error {
			var err error
			id, err = storage.UnmarshalUint64(val)
			return err
		}); err != nil {
			return err
		}

		result, err = readDocument(tx, makeDocumentKey(core.DocumentID(id)))
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

// ListDocuments returns all documents ordered by ID.
func (r *DocumentRepository) ListDocuments(ctx context.Context) ([]*core.Document, error) {
	var results []*core.Document
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = []byte(documentPrefix + ":")
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var doc *core.Document
			err := iter.Item().Value(func(val []byte) error {
				var err error
				doc, err = storage.UnmarshalDocument(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, doc)
		}
		return nil
	}, false)
	return results, err
}

// GetVersion retrieves one version row of a document.
func (r *DocumentRepository) GetVersion(ctx context.Context, docID core.DocumentID, version int) (*core.DocumentVersion, error) {
	var result *core.DocumentVersion
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		item, err := tx.Get(makeVersionKey(docID, version))
		if err != nil {
			if err == badger.ErrKeyNotFound {
				return storage.ErrNotFound
			}
			return err
		}
		return item.Value(func(val []byte) error {
			var err error
			result, err = storage.UnmarshalVersion(val)
			return err
		})
	}, false)
	return result, err
}

// ListVersions returns a document's versions in ascending order.
func (r *DocumentRepository) ListVersions(ctx context.Context, docID core.DocumentID) ([]*core.DocumentVersion, error) {
	var results []*core.DocumentVersion
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialVersionKey(docID)
		iter := tx.NewIterator(opts)
		defer iter.Close()

		for iter.Rewind(); iter.Valid(); iter.Next() {
			var version *core.DocumentVersion
			err := iter.Item().Value(func(val []byte) error {
				var err error
				version, err = storage.UnmarshalVersion(val)
				return err
			})
			if err != nil {
				return err
			}
			results = append(results, version)
		}
		return nil
	}, false)
	return results, err
}

// CommitVersion applies the version switch in one write transaction:
// the version row is created, activated chunks and their vector entries
// flip live, retired chunks flip deleted, and the document row is updated.
// Badger's snapshot isolation guarantees readers see either the state
// before the commit or after it.
func (r *DocumentRepository) CommitVersion(ctx context.Context, commit *storage.VersionCommit) error {
	if commit == nil || commit.Document == nil || commit.Version == nil {
		return storage.ErrInvalidQuery
	}

	now := time.Now().UTC()

	return r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := readDocument(tx, makeDocumentKey(commit.Document.Id))
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		// Version rows are immutable: refuse to overwrite.
		if _, err := tx.Get(makeVersionKey(commit.Version.DocumentId, commit.Version.Version)); err == nil {
			return storage.ErrDuplicateKey
		} else if err != badger.ErrKeyNotFound {
			return err
		}

		if commit.Version.CreatedAt.IsZero() {
			commit.Version.CreatedAt = now
		}
		versionValue, err := storage.MarshalVersion(commit.Version)
		if err != nil {
			return err
		}
		if err := tx.Set(makeVersionKey(commit.Version.DocumentId, commit.Version.Version), versionValue); err != nil {
			return err
		}

		for _, id := range commit.Activate {
			if err := setChunkDeleted(tx, id, false, now); err != nil {
				return err
			}
			if err := setVectorDeleted(tx, id, false); err != nil {
				return err
			}
		}
		for _, id := range commit.Retire {
			if err := setChunkDeleted(tx, id, true, now); err != nil {
				return err
			}
			if err := setVectorDeleted(tx, id, true); err != nil {
				return err
			}
		}

		commit.Document.UpdatedAt = now
		if err := writeDocument(tx, commit.Document); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// RemoveDocument deletes a document with all its versions, chunks, vector
// entries, lexical postings and sequence index entries in one transaction.
// The corpus stats lose the removed chunks' contribution so BM25 keeps
// scoring against the surviving corpus only.
func (r *DocumentRepository) RemoveDocument(ctx context.Context, id core.DocumentID) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		doc, err := readDocument(tx, makeDocumentKey(id))
		if err != nil {
			return err
		}
		if doc == nil {
			return storage.ErrNotFound
		}

		stats, err := readStats(tx)
		if err != nil {
			return err
		}

		// Walk the chunk sequence index of every version to find this
		// document's chunks.
		opts := badger.DefaultIteratorOptions
		opts.Prefix = composite(chunkSeqPrefix, uint64(id))
		iter := tx.NewIterator(opts)
		var chunkIDs []core.ChunkID
		var seqKeys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			var chunkID uint64
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				chunkID, err = storage.UnmarshalUint64(val)
				return err
			}); err != nil {
				iter.Close()
				return err
			}
			chunkIDs = append(chunkIDs, core.ChunkID(chunkID))
			seqKeys = append(seqKeys, iter.Item().KeyCopy(nil))
		}
		iter.Close()

		for i, chunkID := range chunkIDs {
			if err := removeChunkPostings(tx, chunkID, stats); err != nil {
				return err
			}
			if err := tx.Delete(makeChunkKey(chunkID)); err != nil {
				return err
			}
			if err := tx.Delete(makeVectorKey(chunkID)); err != nil {
				return err
			}
			if err := tx.Delete(seqKeys[i]); err != nil {
				return err
			}
		}
		if len(chunkIDs) > 0 {
			if err := writeStats(tx, stats); err != nil {
				return err
			}
		}

		// Version rows.
		opts = badger.DefaultIteratorOptions
		opts.Prefix = makePartialVersionKey(id)
		iter = tx.NewIterator(opts)
		var versionKeys [][]byte
		for iter.Rewind(); iter.Valid(); iter.Next() {
			versionKeys = append(versionKeys, iter.Item().KeyCopy(nil))
		}
		iter.Close()
		for _, key := range versionKeys {
			if err := tx.Delete(key); err != nil {
				return err
			}
		}

		if err := tx.Delete(makeDocumentNameKey(doc.Name)); err != nil {
			return err
		}
		if err := tx.Delete(makeDocumentKey(id)); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// Helper methods

// readDocument reads a document from the transaction.
func readDocument(tx *badger.Txn, key []byte) (*core.Document, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var doc *core.Document
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		doc, unmarshalErr = storage.UnmarshalDocument(val)
		return unmarshalErr
	})
	return doc, err
}

// writeDocument serializes and stores a document record.
func writeDocument(tx *badger.Txn, doc *core.Document) error {
	value, err := storage.MarshalDocument(doc)
	if err != nil {
		return err
	}
	return tx.Set(makeDocumentKey(doc.Id), value)
}

// setChunkDeleted flips a chunk's soft-delete flag inside a transaction.
func setChunkDeleted(tx *badger.Txn, id core.ChunkID, deleted bool, now time.Time) error {
	chunk, err := readChunk(tx, makeChunkKey(id))
	if err != nil {
		return err
	}
	if chunk == nil {
		return storage.ErrNotFound
	}
	chunk.Deleted = deleted
	if deleted {
		chunk.DeletedAt = now
	} else {
		chunk.DeletedAt = time.Time{}
	}
	value, err := storage.MarshalChunk(chunk)
	if err != nil {
		return err
	}
	return tx.Set(makeChunkKey(id), value)
}

// setVectorDeleted flips a vector entry's deletion flag inside a transaction.
// Entries without a vector (never embedded) are skipped silently.
func setVectorDeleted(tx *badger.Txn, id core.ChunkID, deleted bool) error {
	item, err := tx.Get(makeVectorKey(id))
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil
		}
		return err
	}
	var entry *storage.VectorEntry
	if err := item.Value(func(val []byte) error {
		var err error
		entry, err = storage.UnmarshalVectorEntry(val)
		return err
	}); err != nil {
		return err
	}
	entry.Deleted = deleted
	value, err := storage.MarshalVectorEntry(entry)
	if err != nil {
		return err
	}
	return tx.Set(makeVectorKey(id), value)
}
