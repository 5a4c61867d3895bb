package search

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/core"
	"github.com/poiesic/docindex/storage"
)

// DefaultTopK is used when a request does not specify a result count.
const DefaultTopK = 10

// DefaultFanOut sizes the candidate pool as TopK * fan-out, leaving
// headroom for fusion and reranking.
const DefaultFanOut = 3

// Stores bundles the storage interfaces the searcher reads from.
type Stores struct {
	Chunks  storage.ChunkRepository
	Vectors storage.VectorIndex
	Lexical storage.LexicalIndex
}

// Searcher provides hybrid retrieval over indexed chunks: a vector KNN leg
// and a BM25 lexical leg run concurrently against the same filtered
// candidate universe, their rankings fused with reciprocal rank fusion and
// optionally reordered by a reranker.
type Searcher struct {
	stores   Stores
	embedder ai.Embedder
	reranker ai.Reranker

	fanOut        int
	rrfK          int
	rerankDefault bool

	logger *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// WithFanOut sets the candidate pool multiplier.
// Default is DefaultFanOut.
func WithFanOut(fanOut int) Option {
	return func(s *Searcher) error {
		if fanOut > 0 {
			s.fanOut = fanOut
		}
		return nil
	}
}

// WithRRFK sets the reciprocal rank fusion constant.
// Default is DefaultRRFK.
func WithRRFK(k int) Option {
	return func(s *Searcher) error {
		if k > 0 {
			s.rrfK = k
		}
		return nil
	}
}

// WithRerankByDefault controls whether requests that leave Rerank unset
// are reranked. Default is false.
func WithRerankByDefault(enabled bool) Option {
	return func(s *Searcher) error {
		s.rerankDefault = enabled
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(stores Stores, provider ai.Provider, opts ...Option) (*Searcher, error) {
	if stores.Chunks == nil {
		return nil, ErrChunkRepositoryRequired
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

	s := &Searcher{
		stores:   stores,
		embedder: provider.Embedder(),
		reranker: provider.Reranker(),
		fanOut:   DefaultFanOut,
		rrfK:     DefaultRRFK,
		logger:   slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Search executes a hybrid retrieval request.
// Returns up to TopK results ranked by fused (or reranked) relevance.
func (s *Searcher) Search(ctx context.Context, req *core.SearchRequest) ([]*core.SearchResult, error) {
	return s.SearchWithMonitor(ctx, req, nil)
}

// SearchWithMonitor executes a hybrid retrieval request with monitoring.
// The monitor receives callbacks at each stage of the search process.
func (s *Searcher) SearchWithMonitor(ctx context.Context, req *core.SearchRequest, monitor SearchMonitor) ([]*core.SearchResult, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}
	if err := core.ValidateSearchRequest(req); err != nil {
		return nil, err
	}

	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}
	pool := topK * s.fanOut
	filter := toStorageFilter(req.Filters)

	monitor.Start(req.Query)

	vector, lexical, err := s.runLegs(ctx, req.Query, pool, filter, monitor)
	if err != nil {
		return nil, err
	}

	fused := fuseRankings(vector, lexical, s.rrfK)
	fusedIds := make([]core.ChunkID, len(fused))
	for i, hit := range fused {
		fusedIds[i] = hit.chunkID
	}
	monitor.AfterFusion(fusedIds)

	rerank := s.rerankDefault
	if req.Rerank != nil {
		rerank = *req.Rerank
	}

	// Without reranking only TopK candidates need hydration
	if !rerank && len(fused) > topK {
		fused = fused[:topK]
	}

	results, err := s.hydrate(ctx, fused)
	if err != nil {
		return nil, err
	}

	if rerank {
		results = s.rerankResults(ctx, req.Query, results, monitor)
	}
	if len(results) > topK {
		results = results[:topK]
	}

	if req.IncludeContext {
		s.expandContext(ctx, results)
	}

	monitor.Finish(results)
	return results, nil
}

// runLegs performs the vector and lexical searches concurrently. One leg
// failing degrades the search to the surviving leg; both failing fails the
// request.
func (s *Searcher) runLegs(ctx context.Context, query string, pool int, filter *storage.Filter, monitor SearchMonitor) ([]storage.VectorMatch, []storage.LexicalMatch, error) {
	var (
		wg         sync.WaitGroup
		vector     []storage.VectorMatch
		lexical    []storage.LexicalMatch
		vectorErr  error
		lexicalErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		embedding, err := s.embedder.EmbedText(ctx, query)
		if err != nil {
			vectorErr = err
			return
		}
		vector, vectorErr = s.stores.Vectors.Search(ctx, storage.NormalizeVector(embedding), pool, filter)
	}()
	go func() {
		defer wg.Done()
		lexical, lexicalErr = s.stores.Lexical.Search(ctx, query, pool, filter)
	}()
	wg.Wait()

	if vectorErr != nil && lexicalErr != nil {
		// A fired context takes both legs down at once; report the
		// cancellation rather than a backend failure.
		if err := ctx.Err(); err != nil {
			return nil, nil, err
		}
		s.logger.Error("both retrieval legs failed", "vectorErr", vectorErr, "lexicalErr", lexicalErr)
		return nil, nil, ErrAllLegsFailed
	}
	if vectorErr != nil {
		s.logger.Warn("vector leg failed, serving lexical results only", "err", vectorErr)
		monitor.LegFailed("vector", vectorErr)
		vector = nil
	}
	if lexicalErr != nil {
		s.logger.Warn("lexical leg failed, serving vector results only", "err", lexicalErr)
		monitor.LegFailed("lexical", lexicalErr)
		lexical = nil
	}

	monitor.AfterVectorSearch(vector)
	monitor.AfterLexicalSearch(lexical)
	return vector, lexical, nil
}

// hydrate loads chunk records for the fused hits, preserving fused order.
// Hits whose chunk record disappeared are dropped.
func (s *Searcher) hydrate(ctx context.Context, fused []fusedHit) ([]*core.SearchResult, error) {
	if len(fused) == 0 {
		return []*core.SearchResult{}, nil
	}

	ids := make([]core.ChunkID, len(fused))
	for i, hit := range fused {
		ids[i] = hit.chunkID
	}
	chunks, err := s.stores.Chunks.GetChunks(ctx, ids...)
	if err != nil {
		return nil, err
	}
	byID := make(map[core.ChunkID]*core.Chunk, len(chunks))
	for _, chunk := range chunks {
		byID[chunk.Id] = chunk
	}

	results := make([]*core.SearchResult, 0, len(fused))
	for _, hit := range fused {
		chunk, ok := byID[hit.chunkID]
		if !ok {
			s.logger.Debug("fused hit has no chunk record", "chunk", hit.chunkID)
			continue
		}
		results = append(results, &core.SearchResult{
			Chunk:       chunk,
			Score:       hit.score,
			VectorRank:  hit.vectorRank,
			LexicalRank: hit.lexicalRank,
		})
	}
	return results, nil
}

// rerankResults rescores the candidates pairwise against the query. A
// reranker failure keeps the fused order and scores untouched.
func (s *Searcher) rerankResults(ctx context.Context, query string, results []*core.SearchResult, monitor SearchMonitor) []*core.SearchResult {
	if len(results) == 0 {
		return results
	}

	texts := make([]string, len(results))
	for i, result := range results {
		texts[i] = result.Chunk.Content
	}

	scores, err := s.reranker.Rerank(ctx, query, texts)
	if err != nil || len(scores) != len(results) {
		s.logger.Warn("rerank failed, keeping fused order", "err", err)
		monitor.RerankSkipped(err)
		return results
	}

	for i, result := range results {
		result.Score = scores[i]
	}
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Chunk.Id < results[j].Chunk.Id
	})

	reordered := make([]core.ChunkID, len(results))
	for i, result := range results {
		reordered[i] = result.Chunk.Id
	}
	monitor.AfterRerank(reordered)
	return results
}

// expandContext attaches the neighboring live chunks of each result.
// Best-effort: failures leave the neighbors nil.
func (s *Searcher) expandContext(ctx context.Context, results []*core.SearchResult) {
	for _, result := range results {
		prev, next, err := s.stores.Chunks.AdjacentChunks(ctx, result.Chunk)
		if err != nil {
			s.logger.Debug("context expansion failed", "chunk", result.Chunk.Id, "err", err)
			continue
		}
		result.Previous = prev
		result.Next = next
	}
}

// toStorageFilter maps request filters onto the storage filter. A request
// without constraints maps to nil so the indexes skip filtering entirely.
func toStorageFilter(filters core.SearchFilters) *storage.Filter {
	if len(filters.Classes) == 0 && len(filters.Languages) == 0 &&
		len(filters.DocumentIds) == 0 && filters.After.IsZero() && filters.Before.IsZero() {
		return nil
	}
	return &storage.Filter{
		Classes:     filters.Classes,
		Languages:   filters.Languages,
		DocumentIds: filters.DocumentIds,
		After:       filters.After,
		Before:      filters.Before,
	}
}
