package storage

import (
	"context"
	"time"

	"github.com/poiesic/docindex/core"
)

// Filter narrows the candidate universe of chunks before any scoring.
// Zero-value fields mean "no constraint". Both indexes apply the filter
// before ranking so filtered-out candidates never crowd out matches.
type Filter struct {
	Classes     []core.DocumentClass
	Languages   []string
	DocumentIds []core.DocumentID
	After       time.Time
	Before      time.Time
}

// Matches reports whether a candidate with the given attributes passes the
// filter. Deleted candidates never match.
func (f *Filter) Matches(docID core.DocumentID, class core.DocumentClass, language string, createdAt time.Time, deleted bool) bool {
	if deleted {
		return false
	}
	if f == nil {
		return true
	}
	if len(f.Classes) > 0 && !containsClass(f.Classes, class) {
		return false
	}
	if len(f.Languages) > 0 && !containsString(f.Languages, language) {
		return false
	}
	if len(f.DocumentIds) > 0 && !containsDocument(f.DocumentIds, docID) {
		return false
	}
	if !f.After.IsZero() && createdAt.Before(f.After) {
		return false
	}
	if !f.Before.IsZero() && !createdAt.Before(f.Before) {
		return false
	}
	return true
}

func containsClass(classes []core.DocumentClass, c core.DocumentClass) bool {
	for _, candidate := range classes {
		if candidate == c {
			return true
		}
	}
	return false
}

func containsString(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

func containsDocument(ids []core.DocumentID, id core.DocumentID) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}

// VersionCommit describes the atomic switch that makes a newly staged
// document version visible. Applied in one transaction: the version row is
// created, Activate chunks flip live, Retire chunks and their vector
// entries flip deleted, and the document row is updated in place.
type VersionCommit struct {
	Document *core.Document
	Version  *core.DocumentVersion
	Activate []core.ChunkID
	Retire   []core.ChunkID
}

// DocumentRepository provides operations for documents and their versions.
// Implementations must be thread-safe and support concurrent access.
type DocumentRepository interface {
	// AddDocument adds a document. For documents with ID=0, generates a new
	// ID from sequence. Sets CreatedAt/UpdatedAt if not already set.
	AddDocument(ctx context.Context, doc *core.Document) (*core.Document, error)

	// UpdateDocument updates an existing document, bumping UpdatedAt.
	// Returns ErrNotFound if the document doesn't exist.
	UpdateDocument(ctx context.Context, doc *core.Document) error

	// GetDocument retrieves a document by ID.
	// Returns ErrNotFound if the document doesn't exist.
	GetDocument(ctx context.Context, id core.DocumentID) (*core.Document, error)

	// GetDocumentByName retrieves a document by its stable name.
	// Returns ErrNotFound if no document with that name exists.
	GetDocumentByName(ctx context.Context, name string) (*core.Document, error)

	// ListDocuments returns all documents ordered by ID.
	ListDocuments(ctx context.Context) ([]*core.Document, error)

	// GetVersion retrieves one version row of a document.
	// Returns ErrNotFound if it doesn't exist.
	GetVersion(ctx context.Context, docID core.DocumentID, version int) (*core.DocumentVersion, error)

	// ListVersions returns a document's versions in ascending order.
	ListVersions(ctx context.Context, docID core.DocumentID) ([]*core.DocumentVersion, error)

	// CommitVersion applies a VersionCommit atomically. Readers observe
	// either the state before the commit or after it, never a mix.
	CommitVersion(ctx context.Context, commit *VersionCommit) error

	// RemoveDocument deletes a document with all its versions, chunks and
	// vector entries in one transaction.
	// Returns ErrNotFound if the document doesn't exist.
	RemoveDocument(ctx context.Context, id core.DocumentID) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// ChunkRepository provides operations for chunk records.
type ChunkRepository interface {
	// AddChunks adds chunks, generating sequence IDs for chunks with ID=0
	// and setting CreatedAt. Returns the chunks with IDs populated.
	AddChunks(ctx context.Context, chunks ...*core.Chunk) ([]*core.Chunk, error)

	// GetChunk retrieves a single chunk by ID.
	// Returns ErrNotFound if the chunk doesn't exist.
	GetChunk(ctx context.Context, id core.ChunkID) (*core.Chunk, error)

	// GetChunks retrieves multiple chunks by ID. Missing chunks are
	// skipped, no error is returned for them.
	GetChunks(ctx context.Context, ids ...core.ChunkID) ([]*core.Chunk, error)

	// ListChunks returns the chunks of one document version in sequence
	// order, excluding soft-deleted chunks unless includeDeleted is set.
	ListChunks(ctx context.Context, docID core.DocumentID, version int, includeDeleted bool) ([]*core.Chunk, error)

	// AdjacentChunks returns the live chunks immediately before and after
	// the given chunk within its document version. Either may be nil at
	// the edges.
	AdjacentChunks(ctx context.Context, chunk *core.Chunk) (prev, next *core.Chunk, err error)

	// ChunkIds returns every stored chunk ID, optionally including
	// soft-deleted chunks.
	ChunkIds(ctx context.Context, includeDeleted bool) ([]core.ChunkID, error)

	// ListPurgeable returns IDs of soft-deleted chunks whose deletion (or,
	// for never-committed staged chunks, creation) happened before cutoff.
	ListPurgeable(ctx context.Context, cutoff time.Time) ([]core.ChunkID, error)

	// PurgeChunks removes chunk records permanently. Missing IDs are
	// ignored.
	PurgeChunks(ctx context.Context, ids ...core.ChunkID) error

	// Close closes the storage backend and releases resources.
	Close() error
}

// JobRepository provides operations for ingestion job records.
type JobRepository interface {
	// AddJob adds a job, generating a sequence ID when ID=0.
	AddJob(ctx context.Context, job *core.ProcessingJob) (*core.ProcessingJob, error)

	// UpdateJob updates an existing job, bumping UpdatedAt.
	// Returns ErrNotFound if the job doesn't exist.
	UpdateJob(ctx context.Context, job *core.ProcessingJob) error

	// GetJob retrieves a job by ID.
	// Returns ErrNotFound if the job doesn't exist.
	GetJob(ctx context.Context, id core.JobID) (*core.ProcessingJob, error)

	// ListJobsByDocument returns all jobs recorded for a document, newest
	// first.
	ListJobsByDocument(ctx context.Context, docID core.DocumentID) ([]*core.ProcessingJob, error)

	// Close closes the storage backend and releases resources.
	Close() error
}

// VectorEntry is a vector index record. The filter fields are denormalized
// copies of chunk attributes so Search never joins against chunk rows.
type VectorEntry struct {
	ChunkId    core.ChunkID
	Vector     []float32
	DocumentId core.DocumentID
	Version    int
	Class      core.DocumentClass
	Language   string
	Deleted    bool
	CreatedAt  time.Time
}

// VectorMatch is a single KNN hit.
type VectorMatch struct {
	ChunkId core.ChunkID
	Score   float32
}

// VectorIndex provides approximate-nearest-neighbour retrieval over chunk
// embeddings. Vectors are expected normalized; similarity is the dot
// product, equal to cosine similarity for unit vectors.
type VectorIndex interface {
	// UpsertVectors inserts or replaces entries keyed by chunk ID.
	// Returns ErrDimensionMismatch when an entry's dimensionality differs
	// from already-stored entries.
	UpsertVectors(ctx context.Context, entries ...*VectorEntry) error

	// SetDeleted flips the deletion flag of existing entries. Missing IDs
	// are ignored.
	SetDeleted(ctx context.Context, deleted bool, ids ...core.ChunkID) error

	// DeleteVectors removes entries permanently. Missing IDs are ignored.
	DeleteVectors(ctx context.Context, ids ...core.ChunkID) error

	// Reset drops every entry and the dimensionality record, leaving an
	// empty index. Used when rebuilding after an embedding model change.
	Reset(ctx context.Context) error

	// Dimensions returns the dimensionality of stored vectors, or 0 when
	// the index is empty.
	Dimensions(ctx context.Context) (int, error)

	// Search returns up to limit entries passing the filter, ordered by
	// similarity to the query vector, highest first. Ties are broken by
	// ascending chunk ID so results are deterministic.
	Search(ctx context.Context, vector []float32, limit int, filter *Filter) ([]VectorMatch, error)

	// Close closes the storage backend and releases resources.
	Close() error
}

// LexicalMatch is a single BM25 hit.
type LexicalMatch struct {
	ChunkId core.ChunkID
	Score   float64
}

// LexicalIndex provides keyword retrieval with BM25 scoring over chunk
// content.
type LexicalIndex interface {
	// IndexChunks tokenizes chunk content and records posting lists and
	// length statistics. Re-indexing an already indexed chunk replaces its
	// postings.
	IndexChunks(ctx context.Context, chunks ...*core.Chunk) error

	// RemoveChunks deletes postings and statistics for the given chunks.
	// Missing IDs are ignored.
	RemoveChunks(ctx context.Context, ids ...core.ChunkID) error

	// Search returns up to limit chunks passing the filter, ordered by
	// BM25 score descending, ties broken by ascending chunk ID.
	Search(ctx context.Context, query string, limit int, filter *Filter) ([]LexicalMatch, error)

	// Close closes the storage backend and releases resources.
	Close() error
}
