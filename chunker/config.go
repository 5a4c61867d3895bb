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
	"errors"

	"github.com/poiesic/docindex/core"
)

// Limits bounds chunk sizes for one document class.
//
// Overlap is measured in tokens for text, markdown and code, in rows for
// tables and in lines for logs.
type Limits struct {
	MinTokens int
	MaxTokens int
	Overlap   int
}

// Config holds per-class chunking limits and the token counter.
type Config struct {
	Text     Limits
	Markdown Limits
	Table    Limits
	Settings Limits // the "config" document class
	Log      Limits
	Code     Limits // also the generic fallback window

	Counter TokenCounter
}

// Option is a functional option for configuring chunking.
type Option func(*Config)

// DefaultConfig returns a configuration with the standard per-class limits.
func DefaultConfig() *Config {
	return &Config{
		Text:     Limits{MinTokens: 512, MaxTokens: 1024, Overlap: 64},
		Markdown: Limits{MinTokens: 512, MaxTokens: 1024, Overlap: 64},
		Table:    Limits{MinTokens: 256, MaxTokens: 512, Overlap: 1},
		Settings: Limits{MinTokens: 256, MaxTokens: 512, Overlap: 0},
		Log:      Limits{MinTokens: 128, MaxTokens: 256, Overlap: 2},
		Code:     Limits{MinTokens: 256, MaxTokens: 1024, Overlap: 64},
		Counter:  EstimateTokens,
	}
}

// NewConfig creates a configuration with the given options applied to the defaults.
func NewConfig(opts ...Option) *Config {
	config := DefaultConfig()
	for _, opt := range opts {
		opt(config)
	}
	return config
}

// WithLimits overrides the limits for one document class.
func WithLimits(class core.DocumentClass, limits Limits) Option {
	return func(c *Config) {
		switch class {
		case core.ClassText:
			c.Text = limits
		case core.ClassMarkdown:
			c.Markdown = limits
		case core.ClassTable:
			c.Table = limits
		case core.ClassConfig:
			c.Settings = limits
		case core.ClassLog:
			c.Log = limits
		case core.ClassCode:
			c.Code = limits
		}
	}
}

// WithTokenCounter replaces the default token estimator.
func WithTokenCounter(counter TokenCounter) Option {
	return func(c *Config) {
		c.Counter = counter
	}
}

// Validate checks the configuration for consistency.
func (c *Config) Validate() error {
	for _, limits := range []Limits{c.Text, c.Markdown, c.Table, c.Settings, c.Log, c.Code} {
		if limits.MaxTokens <= 0 {
			return errors.New("max tokens must be positive")
		}
		if limits.MinTokens < 0 || limits.MinTokens > limits.MaxTokens {
			return errors.New("min tokens must be within [0, max tokens]")
		}
		if limits.Overlap < 0 {
			return errors.New("overlap must be non-negative")
		}
	}
	if c.Counter == nil {
		return errors.New("token counter is required")
	}
	return nil
}

// limitsFor returns the limits governing one document class. Unknown and
// mixed classes fall back to the generic window limits.
func (c *Config) limitsFor(class core.DocumentClass) Limits {
	switch class {
	case core.ClassText:
		return c.Text
	case core.ClassMarkdown:
		return c.Markdown
	case core.ClassTable:
		return c.Table
	case core.ClassConfig:
		return c.Settings
	case core.ClassLog:
		return c.Log
	case core.ClassCode:
		return c.Code
	default:
		return c.Code
	}
}
