package maintenance

import "errors"

var (
	// ErrChunkRepositoryRequired is returned when no chunk repository is provided
	ErrChunkRepositoryRequired = errors.New("chunk repository is required")

	// ErrVectorIndexRequired is returned when no vector index is provided
	ErrVectorIndexRequired = errors.New("vector index is required")

	// ErrLexicalIndexRequired is returned when no lexical index is provided
	ErrLexicalIndexRequired = errors.New("lexical index is required")

	// ErrEmbedderRequired is returned when no embedder is provided
	ErrEmbedderRequired = errors.New("embedder is required")

	// ErrInvalidRetention is returned when the retention period is <= 0
	ErrInvalidRetention = errors.New("retention must be greater than 0")
)
