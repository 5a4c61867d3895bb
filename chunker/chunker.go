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


package chunker

import (
	"log/slog"

	"github.com/poiesic/docindex/core"
)

// Chunker splits document content into retrievable chunks using a
// class-specific strategy. Chunks carry byte offsets, token counts and
// positional metadata; document references and IDs are filled in by the
// ingestion pipeline.
type Chunker struct {
	config *Config
	logger *slog.Logger
}

// New creates a chunker with the given options applied to the default
// configuration.
func New(opts ...Option) (*Chunker, error) {
	config := NewConfig(opts...)
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Chunker{
		config: config,
		logger: slog.Default().With("component", "chunker"),
	}, nil
}

// Chunk splits content according to the strategy for its class. A strategy
// that produces nothing falls back to the generic token window, so any
// non-empty content yields at least one chunk.
func (c *Chunker) Chunk(content string, class core.DocumentClass) ([]core.Chunk, error) {
	if content == "" {
		return nil, core.ErrEmptyContent
	}

	lines := splitLines(content, c.config.Counter)
	limits := c.config.limitsFor(class)

	var spans []span
	switch class {
	case core.ClassMarkdown:
		spans = markdownSpans(lines, limits)
	case core.ClassCode:
		spans = codeSpans(lines, limits)
	case core.ClassTable:
		spans = tableSpans(lines, limits)
	case core.ClassConfig:
		spans = configSpans(lines, limits)
	case core.ClassLog:
		spans = logSpans(lines, limits)
	case core.ClassMixed:
		spans = mixedSpans(lines, c.config)
	default:
		spans = windowSpans(lines, limits)
	}

	if len(spans) == 0 {
		c.logger.Debug("strategy produced no spans, using token window", "class", class)
		spans = windowSpans(lines, c.config.Code)
	}

	return c.assemble(content, lines, spans, class), nil
}

// assemble materializes spans as chunks with offsets, token counts and
// sequence numbers.
func (c *Chunker) assemble(content string, lines []line, spans []span, class core.DocumentClass) []core.Chunk {
	chunks := make([]core.Chunk, 0, len(spans))
	for i, s := range spans {
		start := lines[s.startLine].start
		end := lines[s.endLine-1].end
		text := content[start:end]
		tokens := c.config.Counter(text)
		if tokens < 1 {
			tokens = 1
		}
		chunks = append(chunks, core.Chunk{
			Content:     text,
			StartOffset: start,
			EndOffset:   end,
			TokenCount:  tokens,
			Class:       class,
			Metadata: core.ChunkMetadata{
				Symbol:    s.symbol,
				LineStart: s.startLine + 1,
				LineEnd:   s.endLine,
				Sequence:  i,
			},
		})
	}
	return chunks
}
