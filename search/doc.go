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


// Package search provides hybrid retrieval over indexed document chunks.
//
// The Searcher type runs two retrieval legs concurrently against the same
// filtered candidate universe:
//   - Vector KNN search using query embeddings
//   - Lexical BM25 search over chunk content
//
// The two rankings are combined with reciprocal rank fusion and optionally
// reordered by a pairwise reranker. One leg failing degrades the search to
// the surviving leg; a reranker failure keeps the fused order. Results are
// deterministic: exact score ties break by ascending chunk ID.
package search
