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


// Package maintenance provides offline upkeep of the index stores.
//
// Collector purges soft-deleted chunks past a retention period, cascading
// to their lexical postings and vector entries. Reembedder regenerates the
// vector index from stored chunk content, typically after an embedding
// model change. Both are batch operations meant to run from the CLI or a
// scheduler, not from the request path.
package maintenance
