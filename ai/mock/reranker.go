package mock

import (
	"context"
	"strings"
)

// MockReranker is a test double for ai.Reranker.
// It allows custom behavior injection via function fields.
type MockReranker struct {
	// RerankFunc is called by Rerank if set.
	// If nil, uses default term overlap scoring.
	RerankFunc func(ctx context.Context, query string, candidates []string) ([]float64, error)

	callCount int
}

// NewMockReranker creates a mock reranker with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockReranker().
func NewMockReranker() *MockReranker {
	return &MockReranker{}
}

// Rerank scores candidates against the query.
// Default behavior: counts query terms present in each candidate, so
// candidates sharing more words with the query score higher. Scores stay on
// the production 0 to 10 scale.
func (m *MockReranker) Rerank(ctx context.Context, query string, candidates []string) ([]float64, error) {
	m.callCount++

	if m.RerankFunc != nil {
		return m.RerankFunc(ctx, query, candidates)
	}

	terms := strings.Fields(strings.ToLower(query))
	scores := make([]float64, len(candidates))
	for i, candidate := range candidates {
		lower := strings.ToLower(candidate)
		var hits float64
		for _, term := range terms {
			if strings.Contains(lower, term) {
				hits++
			}
		}
		if len(terms) > 0 {
			scores[i] = 10 * hits / float64(len(terms))
		}
	}
	return scores, nil
}

// CallCount returns the number of times Rerank was called.
func (m *MockReranker) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockReranker) Reset() {
	m.callCount = 0
	m.RerankFunc = nil
}
