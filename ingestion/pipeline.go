package ingestion

import (
	"context"
	"errors"
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/chunker"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

// Stores bundles the storage interfaces the pipeline writes to.
type Stores struct {
	Documents storage.DocumentRepository
	Chunks    storage.ChunkRepository
	Jobs      storage.JobRepository
	Vectors   storage.VectorIndex
	Lexical   storage.LexicalIndex
}

// Pipeline orchestrates document ingestion: classify, chunk, embed, index
// and atomically commit a new document version. Each accepted document runs
// as a tracked job on a worker pool; ingestion for a single document is
// serialized while distinct documents process concurrently.
type Pipeline struct {
	stores   Stores
	provider ai.Provider
	chunker  *chunker.Chunker
	pool     *ants.Pool

	batchSize    int
	retryAttempt int
	retryDelay   time.Duration

	mu       sync.Mutex
	inflight map[core.DocumentID]struct{}
	cancels  map[core.JobID]context.CancelFunc

	logger *slog.Logger
}

// Option configures a Pipeline.
type Option func(*Pipeline) error

// WithPoolSize sets the worker pool size for concurrent processing.
// Default is runtime.NumCPU() / 2, with a minimum of 1.
func WithPoolSize(size int) Option {
	return func(p *Pipeline) error {
		if size < 1 {
			size = 1
		}
		if p.pool != nil {
			p.pool.Release()
		}
		pool, err := ants.NewPool(size)
		if err != nil {
			return err
		}
		p.pool = pool
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(p *Pipeline) error {
		if logger == nil {
			logger = slog.Default()
		}
		p.logger = logger
		return nil
	}
}

// WithChunker replaces the default chunker.
func WithChunker(c *chunker.Chunker) Option {
	return func(p *Pipeline) error {
		if c != nil {
			p.chunker = c
		}
		return nil
	}
}

// WithBatchSize sets how many chunks are embedded per provider call.
// Default is 32.
func WithBatchSize(size int) Option {
	return func(p *Pipeline) error {
		if size > 0 {
			p.batchSize = size
		}
		return nil
	}
}

// WithRetry configures retry behavior for embedding calls.
func WithRetry(maxAttempts int, baseDelay time.Duration) Option {
	return func(p *Pipeline) error {
		if maxAttempts <= 0 {
			return ErrInvalidMaxAttempts
		}
		p.retryAttempt = maxAttempts
		p.retryDelay = baseDelay
		return nil
	}
}

// NewPipeline creates a new ingestion pipeline.
func NewPipeline(stores Stores, provider ai.Provider, opts ...Option) (*Pipeline, error) {
	if stores.Documents == nil {
		return nil, ErrDocumentRepositoryRequired
	}
	if stores.Chunks == nil {
		return nil, ErrChunkRepositoryRequired
	}
	if stores.Jobs == nil {
		return nil, ErrJobRepositoryRequired
	}
	if stores.Vectors == nil {
		return nil, ErrVectorIndexRequired
	}
	if stores.Lexical == nil {
		return nil, ErrLexicalIndexRequired
	}
	if provider == nil {
		return nil, ErrAIProviderRequired
	}

	poolSize := runtime.NumCPU() / 2
	if poolSize < 1 {
		poolSize = 1
	}
	pool, err := ants.NewPool(poolSize)
	if err != nil {
		return nil, err
	}

	chk, err := chunker.New()
	if err != nil {
		pool.Release()
		return nil, err
	}

	p := &Pipeline{
		stores:       stores,
		provider:     provider,
		chunker:      chk,
		pool:         pool,
		batchSize:    32,
		retryAttempt: 2,
		retryDelay:   500 * time.Millisecond,
		inflight:     make(map[core.DocumentID]struct{}),
		cancels:      make(map[core.JobID]context.CancelFunc),
		logger:       slog.Default(),
	}

	for _, opt := range opts {
		if optErr := opt(p); optErr != nil {
			p.Release()
			return nil, optErr
		}
	}

	return p, nil
}

// IngestRequest carries one document into the pipeline.
type IngestRequest struct {
	Name    string
	Source  core.SourceType
	Content string
}

// Ingest accepts a document and processes it asynchronously, returning the
// tracking job. Re-submitting unchanged content (same hash) completes
// immediately without creating a new version. A second submission for a
// document whose job is still running is rejected with
// ErrIngestionInFlight.
func (p *Pipeline) Ingest(ctx context.Context, req IngestRequest) (*core.ProcessingJob, error) {
	if req.Name == "" {
		return nil, core.ErrEmptyName
	}
	if req.Content == "" {
		return nil, core.ErrEmptyContent
	}
	if req.Source != "" && !req.Source.Valid() {
		return nil, core.ErrInvalidSourceType
	}

	doc, err := p.resolveDocument(ctx, req)
	if err != nil {
		return nil, err
	}

	hash := core.HashContent(req.Content)
	if doc.ContentHash == hash {
		// Unchanged content is a completed no-op job
		job, err := p.stores.Jobs.AddJob(ctx, &core.ProcessingJob{
			DocumentId: doc.Id,
			Status:     core.JobCompleted,
			Stage:      StageCompleted,
			Progress:   1.0,
		})
		if err != nil {
			return nil, err
		}
		p.logger.Debug("content unchanged, skipping ingestion", "document", doc.Id)
		return job, nil
	}

	p.mu.Lock()
	if _, busy := p.inflight[doc.Id]; busy {
		p.mu.Unlock()
		return nil, ErrIngestionInFlight
	}
	p.inflight[doc.Id] = struct{}{}
	p.mu.Unlock()

	job, err := p.stores.Jobs.AddJob(ctx, &core.ProcessingJob{
		DocumentId: doc.Id,
		Status:     core.JobPending,
		Stage:      StageReceived,
	})
	if err != nil {
		p.clearInflight(doc.Id)
		return nil, err
	}

	jobCtx, cancel := context.WithCancel(context.Background())
	p.mu.Lock()
	p.cancels[job.Id] = cancel
	p.mu.Unlock()

	jobID := job.Id
	if err := p.pool.Submit(func() {
		defer p.finishJob(jobID, doc.Id)
		p.process(jobCtx, jobID, doc, req)
	}); err != nil {
		p.finishJob(jobID, doc.Id)
		return nil, err
	}

	return job, nil
}

// Cancel requests cancellation of a running job. The job observes the
// request at its next stage boundary and transitions to failed.
func (p *Pipeline) Cancel(jobID core.JobID) error {
	p.mu.Lock()
	cancel, ok := p.cancels[jobID]
	p.mu.Unlock()
	if !ok {
		return ErrJobNotRunning
	}
	cancel()
	return nil
}

// Job returns the current state of a tracking job.
func (p *Pipeline) Job(ctx context.Context, jobID core.JobID) (*core.ProcessingJob, error) {
	return p.stores.Jobs.GetJob(ctx, jobID)
}

// Release releases the worker pool. In-flight jobs are cancelled.
// The pipeline should not be used after calling Release.
func (p *Pipeline) Release() {
	p.mu.Lock()
	for _, cancel := range p.cancels {
		cancel()
	}
	p.mu.Unlock()
	if p.pool != nil {
		p.pool.Release()
	}
}

// resolveDocument fetches the document by name or registers a new one.
func (p *Pipeline) resolveDocument(ctx context.Context, req IngestRequest) (*core.Document, error) {
	doc, err := p.stores.Documents.GetDocumentByName(ctx, req.Name)
	if err == nil {
		return doc, nil
	}
	if !errors.Is(err, storage.ErrNotFound) {
		return nil, err
	}

	return p.stores.Documents.AddDocument(ctx, &core.Document{
		Name:   req.Name,
		Source: req.Source,
	})
}

func (p *Pipeline) clearInflight(docID core.DocumentID) {
	p.mu.Lock()
	delete(p.inflight, docID)
	p.mu.Unlock()
}

func (p *Pipeline) finishJob(jobID core.JobID, docID core.DocumentID) {
	p.mu.Lock()
	if cancel, ok := p.cancels[jobID]; ok {
		cancel()
		delete(p.cancels, jobID)
	}
	delete(p.inflight, docID)
	p.mu.Unlock()
}
