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

import "errors"

// Domain validation errors
var (
	// ErrInvalidDocument indicates a Document failed validation.
	ErrInvalidDocument = errors.New("invalid document")

	// ErrInvalidChunk indicates a Chunk failed validation.
	ErrInvalidChunk = errors.New("invalid chunk")

	// ErrInvalidSearchRequest indicates a SearchRequest failed validation.
	ErrInvalidSearchRequest = errors.New("invalid search request")

	// ErrEmptyContent indicates required content is empty.
	ErrEmptyContent = errors.New("content cannot be empty")

	// ErrEmptyName indicates the document Name field is empty.
	ErrEmptyName = errors.New("document name cannot be empty")

	// ErrEmptyQuery indicates the search query is empty.
	ErrEmptyQuery = errors.New("query cannot be empty")

	// ErrInvalidClass indicates an unknown document class value.
	ErrInvalidClass = errors.New("invalid document class")

	// ErrInvalidSourceType indicates an unknown source type value.
	ErrInvalidSourceType = errors.New("invalid source type")

	// ErrInvalidOffsets indicates chunk offsets do not satisfy 0 <= start < end.
	ErrInvalidOffsets = errors.New("invalid chunk offsets")

	// ErrInvalidTokenCount indicates a chunk token count is not positive.
	ErrInvalidTokenCount = errors.New("token count must be positive")

	// ErrInvalidJobStatus indicates an unknown job status value.
	ErrInvalidJobStatus = errors.New("invalid job status")

	// ErrProvider wraps failures from an external AI provider.
	ErrProvider = errors.New("provider failure")
)
