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


package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/docindex/ai"
)

// Reranker implements ai.Reranker using OpenAI-compatible chat APIs.
// Each candidate is scored in its own model call. Unlike the classifier it
// has no fallback; callers keep their original ordering when it errors.
type Reranker struct {
	client llms.Model
	logger *slog.Logger
}

// relevance is an internal type used for JSON unmarshaling.
type relevance struct {
	Score float64 `json:"score"`
}

// newReranker is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newReranker(config *ai.Config) (*Reranker, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &Reranker{
		client: client,
		logger: slog.Default().With("component", "openai-reranker"),
	}, nil
}

// NewReranker creates a new reranker using the provided configuration.
//
// Returns ai.Reranker interface to enforce abstraction.
func NewReranker(config *ai.Config) (ai.Reranker, error) {
	return newReranker(config)
}

// Rerank scores each candidate passage for relevance to the query.
// Scores are on a 0 to 10 scale. Any model or parse failure aborts the
// whole operation.
func (r *Reranker) Rerank(ctx context.Context, query string, candidates []string) ([]float64, error) {
	scores := make([]float64, len(candidates))
	for i, candidate := range candidates {
		score, err := r.scoreCandidate(ctx, query, candidate)
		if err != nil {
			r.logger.Warn("rerank aborted", "candidate", i, "err", err)
			return nil, err
		}
		scores[i] = score
	}
	return scores, nil
}

func (r *Reranker) scoreCandidate(ctx context.Context, query, candidate string) (float64, error) {
	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(rerankPrompt),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart(fmt.Sprintf("Query: %s\n\nPassage:\n%s", query, candidate)),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result relevance
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := r.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			return 0, err
		}

		if len(response.Choices) < 1 {
			return 0, ErrNoResponse
		}

		responseText := stripFences(response.Choices[0].Content)
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			r.logger.Warn("error parsing reranker response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		// Clamp to the advertised scale; small models wander
		if result.Score < 0 {
			result.Score = 0
		}
		if result.Score > 10 {
			result.Score = 10
		}
		return result.Score, nil
	}

	return 0, lastErr
}
