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
	"log/slog"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/poiesic/docindex/ai"
	"github.com/poiesic/docindex/ai/heuristic"
)

// Classifier implements ai.Classifier using OpenAI-compatible chat APIs.
// On any model or parse failure it falls back to the heuristic classifier,
// so classification as a whole never fails.
type Classifier struct {
	client      llms.Model
	sampleBytes int
	fallback    *heuristic.Classifier
	logger      *slog.Logger
}

// classification is an internal type used for JSON unmarshaling.
// It matches the structure expected from the LLM.
type classification struct {
	Class string `json:"class"`
}

// newClassifier is an internal constructor that returns the concrete type.
// Used by Provider to manage the instance.
func newClassifier(config *ai.Config) (*Classifier, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	// Create OpenAI client configured for chat/classification
	// Use "none" as token for local OpenAI-compatible services that don't require authentication
	client, err := openai.New(
		openai.WithBaseURL(config.ChatHost),
		openai.WithToken("none"),
		openai.WithModel(config.ChatModel),
	)
	if err != nil {
		return nil, err
	}

	return &Classifier{
		client:      client,
		sampleBytes: config.ClassifierSampleBytes,
		fallback:    heuristic.NewClassifier(),
		logger:      slog.Default().With("component", "openai-classifier"),
	}, nil
}

// NewClassifier creates a new document classifier using the provided configuration.
//
// Returns ai.Classifier interface to enforce abstraction.
func NewClassifier(config *ai.Config) (ai.Classifier, error) {
	return newClassifier(config)
}

// Classify asks the LLM to assign one of the known class labels to the
// content sample. The sample is truncated to the configured byte budget
// before it reaches the model.
func (c *Classifier) Classify(ctx context.Context, name, sample string) (string, error) {
	sample = truncateSample(sample, c.sampleBytes)

	content := []llms.MessageContent{
		{
			Role: llms.ChatMessageTypeSystem,
			Parts: []llms.ContentPart{
				llms.TextPart(buildClassifyPrompt()),
			},
		},
		{
			Role: llms.ChatMessageTypeHuman,
			Parts: []llms.ContentPart{
				llms.TextPart("Filename: " + name + "\n\nContent:\n" + sample),
			},
		},
	}

	// Try up to 3 times in case of malformed JSON
	var result classification
	var lastErr error
	for attempt := 0; attempt < 3; attempt++ {
		response, err := c.client.GenerateContent(ctx, content, llms.WithTemperature(0.0), llms.WithJSONMode())
		if err != nil {
			c.logger.Warn("model call failed, using heuristic fallback", "attempt", attempt+1, "err", err)
			return c.fallback.Classify(ctx, name, sample)
		}

		if len(response.Choices) < 1 {
			c.logger.Debug("no choices returned from model, using heuristic fallback")
			return c.fallback.Classify(ctx, name, sample)
		}

		responseText := stripFences(response.Choices[0].Content)
		responseText = repairJSON(responseText)

		if err := json.Unmarshal([]byte(responseText), &result); err != nil {
			lastErr = err
			c.logger.Warn("error parsing classifier response",
				"attempt", attempt+1,
				"response", responseText,
				"err", err)
			continue
		}

		result.Class = strings.ToLower(strings.TrimSpace(result.Class))
		if !ai.ValidClassLabel(result.Class) {
			lastErr = ErrUnknownLabel
			c.logger.Warn("model returned unknown label",
				"attempt", attempt+1,
				"label", result.Class)
			continue
		}

		return result.Class, nil
	}

	c.logger.Warn("failed to parse classifier response after retries, using heuristic fallback", "err", lastErr)
	return c.fallback.Classify(ctx, name, sample)
}

// truncateSample limits the sample to maxBytes without splitting a rune.
func truncateSample(sample string, maxBytes int) string {
	if maxBytes <= 0 || len(sample) <= maxBytes {
		return sample
	}
	cut := maxBytes
	for cut > 0 && !isRuneStart(sample[cut]) {
		cut--
	}
	return sample[:cut]
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

// stripFences removes markdown code fences around a JSON response.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
