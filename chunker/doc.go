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


// Package chunker splits document content into retrievable chunks.
//
// Each document class has its own strategy: markdown splits at ATX
// headers without breaking fenced code blocks, code aligns to top-level
// function and class declarations, tables and logs use line windows with
// row/line overlap, config files split at top-level blocks, and mixed
// content is segmented into homogeneous regions first. Any strategy that
// produces nothing falls back to a generic token window, so chunking
// never fails on non-empty input.
//
// Chunk sizes are governed by per-class token limits (see Config). Token
// counts come from a pluggable TokenCounter; the default estimates one
// token per four runes.
//
// The resulting chunks carry byte offsets into the source, token counts
// and positional metadata. The union of chunk spans always covers the
// whole source text; adjacent chunks may overlap by the configured
// amount.
package chunker
