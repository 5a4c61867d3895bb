package mock

import (
	"context"

	"github.com/poiesic/docindex/ai/heuristic"
)

// MockClassifier is a test double for ai.Classifier.
// It allows custom behavior injection via function fields.
type MockClassifier struct {
	// ClassifyFunc is called by Classify if set.
	// If nil, delegates to the heuristic classifier.
	ClassifyFunc func(ctx context.Context, name, sample string) (string, error)

	callCount int
	fallback  *heuristic.Classifier
}

// NewMockClassifier creates a mock classifier with default behavior.
// Note: Returns concrete type to allow test assertions via GetMockClassifier().
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{fallback: heuristic.NewClassifier()}
}

// Classify returns a class label for the sample.
// Default behavior: rule-based classification via the heuristic package,
// which keeps mock results consistent with the production fallback path.
func (m *MockClassifier) Classify(ctx context.Context, name, sample string) (string, error) {
	m.callCount++

	if m.ClassifyFunc != nil {
		return m.ClassifyFunc(ctx, name, sample)
	}

	return m.fallback.Classify(ctx, name, sample)
}

// CallCount returns the number of times Classify was called.
func (m *MockClassifier) CallCount() int {
	return m.callCount
}

// Reset clears the call count and custom functions.
func (m *MockClassifier) Reset() {
	m.callCount = 0
	m.ClassifyFunc = nil
}
