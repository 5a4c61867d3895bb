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


// Package storage provides the storage abstraction layer for docindex.
//
// This package defines repository and index interfaces that decouple the
// storage implementation from business logic. It allows different storage
// backends (BadgerDB, in-memory, etc.) to be used interchangeably.
//
// # Constructor Return Type Pattern
//
// This package follows a strict "return interface" pattern for all public
// constructors to enforce abstraction and enable multiple storage backend
// implementations:
//
//	docs, err := badger.NewDocumentRepository(backend)  // returns storage.DocumentRepository
//
// Internal package constructors may return concrete types since they're only
// used within the implementation package.
//
// # Architecture
//
// The storage layer splits the persistence surface into cooperating pieces
// that may share one physical backend:
//
//   - DocumentRepository: documents and their immutable versions, plus the
//     atomic version-commit operation
//   - ChunkRepository: chunk records, sequence-ordered listing, purge
//   - JobRepository: ingestion job records
//   - VectorIndex: embedding KNN with denormalized pre-filtering
//   - LexicalIndex: BM25 keyword retrieval
//
// # Visibility model
//
// Chunks carry a soft-delete flag. New versions are staged with the flag
// set, then a single CommitVersion transaction flips the new chunks live
// and retires the previous version's chunks. Search paths treat flagged
// chunks as nonexistent; a maintenance pass purges them past a retention
// threshold.
//
// # Thread Safety
//
// All implementations must be thread-safe and support concurrent access
// from multiple goroutines.
//
// # Context Support
//
// All methods accept context.Context for cancellation and timeout support.
// Pass context.Background() for operations without specific timeout
// requirements.
package storage
