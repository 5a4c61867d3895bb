package core

import (
	"encoding/binary"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// DocumentID is a unique identifier for documents, assigned from a sequence.
type DocumentID uint64

// ChunkID is a unique identifier for chunks, assigned from a sequence.
type ChunkID uint64

// JobID is a unique identifier for processing jobs.
type JobID uint64

// HashContent computes a deterministic 64-bit content hash using BLAKE2b.
// Identical content always produces the identical hash, which is what makes
// same-content re-ingestion a no-op.
func HashContent(text string) uint64 {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return binary.LittleEndian.Uint64(sum)
}

// DocumentClass is the structural class of a document, assigned during
// ingestion and used to pick a chunking strategy.
type DocumentClass string

const (
	ClassText     DocumentClass = "text"
	ClassCode     DocumentClass = "code"
	ClassTable    DocumentClass = "table"
	ClassMarkdown DocumentClass = "markdown"
	ClassConfig   DocumentClass = "config"
	ClassLog      DocumentClass = "log"
	ClassMixed    DocumentClass = "mixed"
)

// DocumentClasses lists every valid document class.
var DocumentClasses = []DocumentClass{
	ClassText,
	ClassCode,
	ClassTable,
	ClassMarkdown,
	ClassConfig,
	ClassLog,
	ClassMixed,
}

// ParseClass maps a free-form label to a DocumentClass. Unknown labels map
// to ClassMixed with ok=false, so classification is total.
func ParseClass(label string) (DocumentClass, bool) {
	c := DocumentClass(label)
	for _, known := range DocumentClasses {
		if c == known {
			return c, true
		}
	}
	return ClassMixed, false
}

// Valid reports whether the class is one of the known document classes.
func (c DocumentClass) Valid() bool {
	_, ok := ParseClass(string(c))
	return ok && DocumentClass(string(c)) == c
}

// SourceType identifies where a document came from.
type SourceType string

const (
	SourceFile SourceType = "file"
	SourceWeb  SourceType = "web"
	SourceWiki SourceType = "wiki"
)

// Valid reports whether the source type is one of the known kinds.
func (s SourceType) Valid() bool {
	switch s {
	case SourceFile, SourceWeb, SourceWiki:
		return true
	}
	return false
}

// Document is the top-level ingested unit. Name is the stable external
// identity (filename or origin URL); re-ingesting the same name with changed
// content produces a new version of the same document.
type Document struct {
	Id             DocumentID
	Name           string
	Source         SourceType
	ContentHash    uint64
	Class          DocumentClass
	Language       string // "ru", "en", or "" when undetected
	CurrentVersion int    // 0 until the first version commit
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// DocumentVersion records one immutable snapshot of a document's content.
// Versions are monotonically increasing and unique per document.
type DocumentVersion struct {
	DocumentId  DocumentID
	Version     int
	ContentHash uint64
	ChunkCount  int
	CreatedAt   time.Time
}

// ChunkMetadata carries per-chunk provenance used for filtering and display.
type ChunkMetadata struct {
	Language  string // chunk language, usually inherited from the document
	Symbol    string // function/class name or section heading, when known
	LineStart int
	LineEnd   int
	Sequence  int // position of the chunk within its document version
}

// Chunk is a retrievable span of a document version. Offsets are byte
// offsets into the version's content; spans of adjacent chunks may overlap
// by the strategy's declared overlap.
type Chunk struct {
	Id          ChunkID
	DocumentId  DocumentID
	Version     int
	Content     string
	StartOffset int
	EndOffset   int
	TokenCount  int
	Class       DocumentClass
	Metadata    ChunkMetadata
	Deleted     bool
	DeletedAt   time.Time // zero while the chunk is live
	CreatedAt   time.Time
}

// JobStatus is the lifecycle state of a processing job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobCompleted || s == JobFailed
}

// ProcessingJob tracks one ingestion attempt through its stages.
type ProcessingJob struct {
	Id         JobID
	DocumentId DocumentID // 0 until the document row exists
	Status     JobStatus
	Stage      string
	Progress   float64 // [0,1], non-decreasing
	Error      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// SearchFilters narrows the candidate universe before ranking. Zero values
// mean "no constraint".
type SearchFilters struct {
	Classes     []DocumentClass
	Languages   []string
	DocumentIds []DocumentID
	After       time.Time // chunks created at or after
	Before      time.Time // chunks created before
}

// SearchRequest describes one retrieval call.
type SearchRequest struct {
	Query          string
	TopK           int // <= 0 means the searcher default
	Filters        SearchFilters
	IncludeContext bool
	Rerank         *bool // nil defers to the searcher's configured default
}

// SearchResult is one ranked hit. VectorRank and LexicalRank are 1-based
// positions in the respective candidate lists, 0 when the leg did not
// return the chunk.
type SearchResult struct {
	Chunk       *Chunk
	Score       float64
	VectorRank  int
	LexicalRank int
	Previous    *Chunk // populated when context expansion is requested
	Next        *Chunk
}
