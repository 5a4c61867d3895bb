// Copyright 2026 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


package core

import "fmt"

// ValidateDocument validates a Document according to domain rules.
//
// Validation rules:
//   - Name must not be empty
//   - Source must be a known source type (empty defaults to file upstream)
//   - Class must be a known document class when set
//
// NOT validated (populated by the ingestion pipeline):
//   - ContentHash, CurrentVersion, Language
//   - ID (0 is valid before the database sequence assigns one)
func ValidateDocument(doc *Document) error {
	if doc == nil {
		return fmt.Errorf("%w: document is nil", ErrInvalidDocument)
	}

	if doc.Name == "" {
		return fmt.Errorf("%w: %w", ErrInvalidDocument, ErrEmptyName)
	}

	if doc.Source != "" && doc.Source != SourceFile && doc.Source != SourceWeb && doc.Source != SourceWiki {
		return fmt.Errorf("%w: %w: %q", ErrInvalidDocument, ErrInvalidSourceType, doc.Source)
	}

	if doc.Class != "" && !doc.Class.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidDocument, ErrInvalidClass, doc.Class)
	}

	return nil
}

// ValidateChunk validates a Chunk according to domain rules.
//
// Validation rules:
//   - Content must not be empty
//   - Offsets must satisfy 0 <= start < end
//   - TokenCount must be positive
//   - Class must be a known document class
func ValidateChunk(chunk *Chunk) error {
	if chunk == nil {
		return fmt.Errorf("%w: chunk is nil", ErrInvalidChunk)
	}

	if chunk.Content == "" {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrEmptyContent)
	}

	if chunk.StartOffset < 0 || chunk.StartOffset >= chunk.EndOffset {
		return fmt.Errorf("%w: %w: [%d,%d)", ErrInvalidChunk, ErrInvalidOffsets, chunk.StartOffset, chunk.EndOffset)
	}

	if chunk.TokenCount <= 0 {
		return fmt.Errorf("%w: %w", ErrInvalidChunk, ErrInvalidTokenCount)
	}

	if !chunk.Class.Valid() {
		return fmt.Errorf("%w: %w: %q", ErrInvalidChunk, ErrInvalidClass, chunk.Class)
	}

	return nil
}

// ValidateSearchRequest validates a SearchRequest before any retrieval work.
func ValidateSearchRequest(req *SearchRequest) error {
	if req == nil {
		return fmt.Errorf("%w: request is nil", ErrInvalidSearchRequest)
	}

	if req.Query == "" {
		return fmt.Errorf("%w: %w", ErrInvalidSearchRequest, ErrEmptyQuery)
	}

	for _, class := range req.Filters.Classes {
		if !class.Valid() {
			return fmt.Errorf("%w: %w: %q", ErrInvalidSearchRequest, ErrInvalidClass, class)
		}
	}

	if !req.Filters.After.IsZero() && !req.Filters.Before.IsZero() && req.Filters.Before.Before(req.Filters.After) {
		return fmt.Errorf("%w: date range is inverted", ErrInvalidSearchRequest)
	}

	return nil
}
