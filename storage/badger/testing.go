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


package badger

import "github.com/poiesic/docindex/storage"

// MemoryStores bundles all stores opened over one in-memory backend for
// testing. Close releases everything.
type MemoryStores struct {
	Documents storage.DocumentRepository
	Chunks    storage.ChunkRepository
	Jobs      storage.JobRepository
	Vectors   storage.VectorIndex
	Lexical   storage.LexicalIndex
	Backend   *Backend
}

// Close closes the repositories and the shared backend.
func (m *MemoryStores) Close() error {
	m.Documents.Close()
	m.Chunks.Close()
	m.Jobs.Close()
	m.Vectors.Close()
	m.Lexical.Close()
	return m.Backend.Close()
}

// NewMemoryStores creates in-memory stores for testing.
// Caller must Close the returned bundle when done.
func NewMemoryStores() (*MemoryStores, error) {
	backend, err := OpenBackend("", true)
	if err != nil {
		return nil, err
	}

	documents, err := NewDocumentRepository(backend)
	if err != nil {
		backend.Close()
		return nil, err
	}

	chunks, err := NewChunkRepository(backend)
	if err != nil {
		documents.Close()
		backend.Close()
		return nil, err
	}

	jobs, err := NewJobRepository(backend)
	if err != nil {
		chunks.Close()
		documents.Close()
		backend.Close()
		return nil, err
	}

	vectors, err := NewVectorIndex(backend)
	if err != nil {
		jobs.Close()
		chunks.Close()
		documents.Close()
		backend.Close()
		return nil, err
	}

	lexical, err := NewLexicalIndex(backend)
	if err != nil {
		vectors.Close()
		jobs.Close()
		chunks.Close()
		documents.Close()
		backend.Close()
		return nil, err
	}

	return &MemoryStores{
		Documents: documents,
		Chunks:    chunks,
		Jobs:      jobs,
		Vectors:   vectors,
		Lexical:   lexical,
		Backend:   backend,
	}, nil
}
