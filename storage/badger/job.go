package badger

import (
	"context"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

// JobRepository implements storage.JobRepository for BadgerDB.
type JobRepository struct {
	backend *Backend
	idSeq   *badger.Sequence
}

var _ storage.JobRepository = (*JobRepository)(nil)

// NewJobRepository creates a new JobRepository.
func NewJobRepository(backend *Backend) (*JobRepository, error) {
	idSeq, err := backend.GetSequence(jobIDSeq)
	if err != nil {
		return nil, err
	}

	return &JobRepository{
		backend: backend,
		idSeq:   idSeq,
	}, nil
}

// Close releases the ID sequence.
func (r *JobRepository) Close() error {
	return r.idSeq.Release()
}

// AddJob adds a job, assigning a sequence ID when unset.
func (r *JobRepository) AddJob(ctx context.Context, job *core.ProcessingJob) (*core.ProcessingJob, error) {
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		if job.Id == 0 {
			next, err := nextID(r.idSeq)
			if err != nil {
				return err
			}
			job.Id = core.JobID(next)
		}

		now := time.Now().UTC()
		if job.CreatedAt.IsZero() {
			job.CreatedAt = now
		}
		job.UpdatedAt = job.CreatedAt
		if job.Status == "" {
			job.Status = core.JobPending
		}

		if err := writeJob(tx, job); err != nil {
			return err
		}
		if job.DocumentId != 0 {
			if err := tx.Set(makeJobDocKey(job.DocumentId, job.Id), storage.MarshalUint64(uint64(job.Id))); err != nil {
				return err
			}
		}
		return tx.Commit()
	}, true)

	if err != nil {
		return nil, err
	}
	return job, nil
}

// UpdateJob updates an existing job, maintaining the document index when
// the document becomes known mid-flight.
func (r *JobRepository) UpdateJob(ctx context.Context, job *core.ProcessingJob) error {
	return r.backend.WithTx(func(tx *badger.Txn) error {
		old, err := readJob(tx, makeJobKey(job.Id))
		if err != nil {
			return err
		}
		if old == nil {
			return storage.ErrNotFound
		}

		job.UpdatedAt = time.Now().UTC()

		if job.DocumentId != 0 && old.DocumentId != job.DocumentId {
			if old.DocumentId != 0 {
				if err := tx.Delete(makeJobDocKey(old.DocumentId, job.Id)); err != nil {
					return err
				}
			}
			if err := tx.Set(makeJobDocKey(job.DocumentId, job.Id), storage.MarshalUint64(uint64(job.Id))); err != nil {
				return err
			}
		}

		if err := writeJob(tx, job); err != nil {
			return err
		}
		return tx.Commit()
	}, true)
}

// GetJob retrieves a job by ID.
func (r *JobRepository) GetJob(ctx context.Context, id core.JobID) (*core.ProcessingJob, error) {
	var result *core.ProcessingJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		var err error
		result, err = readJob(tx, makeJobKey(id))
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

// ListJobsByDocument returns a document's jobs, newest first.
func (r *JobRepository) ListJobsByDocument(ctx context.Context, docID core.DocumentID) ([]*core.ProcessingJob, error) {
	var results []*core.ProcessingJob
	err := r.backend.WithTx(func(tx *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = makePartialJobDocKey(docID)
		opts.Reverse = true
		iter := tx.NewIterator(opts)
		defer iter.Close()

		// Reverse iteration needs a seek past the last key of the prefix.
		seek := append(makePartialJobDocKey(docID), 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff, 0xff)
		for iter.Seek(seek); iter.Valid(); iter.Next() {
			var jobID uint64
			if err := iter.Item().Value(func(val []byte) error {
				var err error
				jobID, err = storage.UnmarshalUint64(val)
				return err
			}); err != nil {
				return err
			}

			job, err := readJob(tx, makeJobKey(core.JobID(jobID)))
			if err != nil {
				return err
			}
			if job != nil {
				results = append(results, job)
			}
		}
		return nil
	}, false)
	return results, err
}

// Helper methods

// readJob reads a job from the transaction.
func readJob(tx *badger.Txn, key []byte) (*core.ProcessingJob, error) {
	item, err := tx.Get(key)
	if err != nil {
		if err == badger.ErrKeyNotFound {
			return nil, nil
		}
		return nil, err
	}

	var job *core.ProcessingJob
	err = item.Value(func(val []byte) error {
		var unmarshalErr error
		job, unmarshalErr = storage.UnmarshalJob(val)
		return unmarshalErr
	})
	return job, err
}

// writeJob serializes and stores a job record.
func writeJob(tx *badger.Txn, job *core.ProcessingJob) error {
	value, err := storage.MarshalJob(job)
	if err != nil {
		return err
	}
	return tx.Set(makeJobKey(job.Id), value)
}
