package ai

import "context"

// Embedder generates vector embeddings from text for semantic similarity search.
// Implementations must be thread-safe for concurrent use.
type Embedder interface {
	// EmbedText generates a vector embedding for a single text string.
	// The returned vector represents the semantic meaning of the text.
	// Returns an error if the embedding generation fails.
	EmbedText(ctx context.Context, text string) ([]float32, error)

	// EmbedTexts generates vector embeddings for multiple text strings in a batch.
	// Batch processing is more efficient than calling EmbedText multiple times.
	// The returned slice contains embeddings in the same order as the input texts,
	// one vector per input.
	// Returns an error if any embedding generation fails.
	EmbedTexts(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the dimensionality of the vectors this embedder
	// produces. Used at startup to verify the vector index matches.
	Dimensions() int
}

// Classifier assigns a document class label to a content sample.
// Implementations must be thread-safe for concurrent use.
type Classifier interface {
	// Classify inspects a bounded sample of document content, plus the
	// document name for extension hints, and returns one of ClassLabels.
	// Classification is total: implementations return the mixed label
	// rather than failing on unrecognizable content.
	Classify(ctx context.Context, name, sample string) (string, error)
}

// Reranker rescores retrieval candidates against the query.
// Implementations must be thread-safe for concurrent use.
type Reranker interface {
	// Rerank scores each (query, candidate) pair independently and returns
	// one score per candidate, aligned with the input order. Higher means
	// more relevant.
	// Returns an error if scoring fails; callers fall back to their
	// existing order.
	Rerank(ctx context.Context, query string, candidates []string) ([]float64, error)
}

// Provider aggregates AI services for convenient initialization and lifecycle management.
// A provider creates and manages Embedder, Classifier and Reranker instances,
// ensuring they share configuration and resources appropriately.
type Provider interface {
	// Embedder returns the text embedding service.
	// The returned Embedder is safe for concurrent use.
	Embedder() Embedder

	// Classifier returns the document classification service.
	// The returned Classifier is safe for concurrent use.
	Classifier() Classifier

	// Reranker returns the candidate rescoring service.
	// The returned Reranker is safe for concurrent use.
	Reranker() Reranker

	// Close releases resources held by the provider and its services.
	// After Close is called, the provider and its services should not be used.
	Close() error
}
