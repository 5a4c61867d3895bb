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


// Package heuristic implements deterministic, dependency-free document
// classification. It decides from the filename extension first and falls
// back to structural markers in a bounded content sample. The openai
// classifier uses it as its failure fallback.
package heuristic

import (
	"context"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/poiesic/docindex/ai"
)

// extensionLabels maps well-known file extensions straight to a label.
var extensionLabels = map[string]string{
	".go":    "code",
	".py":    "code",
	".js":    "code",
	".ts":    "code",
	".java":  "code",
	".c":     "code",
	".h":     "code",
	".cpp":   "code",
	".rs":    "code",
	".rb":    "code",
	".php":   "code",
	".sh":    "code",
	".sql":   "code",
	".md":    "markdown",
	".markdown": "markdown",
	".csv":   "table",
	".tsv":   "table",
	".json":  "config",
	".yaml":  "config",
	".yml":   "config",
	".toml":  "config",
	".ini":   "config",
	".conf":  "config",
	".env":   "config",
	".log":   "log",
	".txt":   "text",
}

var (
	codeLineRe      = regexp.MustCompile(`^\s*(func |def |class |function |import |package |const |var |return |if |for |while |#include|public |private )`)
	configLineRe    = regexp.MustCompile(`^\s*[A-Za-z0-9_.\-]+\s*[:=]\s*\S`)
	sectionLineRe   = regexp.MustCompile(`^\s*\[[^\]]+\]\s*$`)
	logTimestampRe  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}|\[\d{4}-\d{2}-\d{2}|\d{2}:\d{2}:\d{2})`)
	logLevelRe      = regexp.MustCompile(`\b(DEBUG|INFO|WARN|WARNING|ERROR|FATAL|TRACE)\b`)
	markdownHeadRe  = regexp.MustCompile(`^#{1,6}\s+\S`)
)

// Classifier is a rule-based ai.Classifier. It never returns an error.
type Classifier struct{}

var _ ai.Classifier = (*Classifier)(nil)

// NewClassifier creates a heuristic classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify decides a label from the name extension when conclusive,
// otherwise from structural markers in the sample. Classification is total:
// ambiguous content maps to the mixed label, unrecognizable content to text.
func (c *Classifier) Classify(ctx context.Context, name, sample string) (string, error) {
	if ext := strings.ToLower(filepath.Ext(name)); ext != "" {
		if label, ok := extensionLabels[ext]; ok {
			return label, nil
		}
	}
	return classifyContent(sample), nil
}

// classifyContent scores structural markers line by line.
func classifyContent(sample string) string {
	lines := nonEmptyLines(sample)
	if len(lines) == 0 {
		return "text"
	}

	total := float64(len(lines))
	var code, table, config, log, markdown float64
	fenced := false

	for _, line := range lines {
		if strings.HasPrefix(line, "```") {
			fenced = !fenced
			markdown++
			continue
		}
		if fenced {
			code++
			continue
		}
		if markdownHeadRe.MatchString(line) {
			markdown++
			continue
		}
		if logTimestampRe.MatchString(line) || logLevelRe.MatchString(line) {
			log++
			continue
		}
		if strings.Count(line, "|") >= 2 {
			table++
			continue
		}
		trimmed := strings.TrimSpace(line)
		if codeLineRe.MatchString(line) || strings.HasSuffix(trimmed, "{") || strings.HasSuffix(trimmed, "}") || strings.HasSuffix(trimmed, ";") {
			code++
			continue
		}
		if sectionLineRe.MatchString(line) || configLineRe.MatchString(line) {
			config++
			continue
		}
	}

	scores := map[string]float64{
		"code":     code / total,
		"table":    table / total,
		"config":   config / total,
		"log":      log / total,
		"markdown": markdown / total,
	}

	best, second := "", ""
	for _, label := range []string{"code", "table", "config", "log", "markdown"} {
		if best == "" || scores[label] > scores[best] {
			second = best
			best = label
		} else if second == "" || scores[label] > scores[second] {
			second = label
		}
	}

	// One dominant signal wins; two competing strong signals mean mixed
	// content; no strong signal at all reads as prose.
	const dominant, strong = 0.5, 0.25
	switch {
	case scores[best] >= dominant && scores[second] < strong:
		return best
	case scores[best] >= strong && scores[second] >= strong:
		return ai.ClassLabelMixed
	case scores[best] >= dominant:
		return ai.ClassLabelMixed
	default:
		return "text"
	}
}

func nonEmptyLines(sample string) []string {
	var lines []string
	for _, line := range strings.Split(sample, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}
	return lines
}

// DetectLanguage guesses the document language from its script: "ru" for
// mostly-cyrillic text, "en" for mostly-latin, "" when neither dominates.
func DetectLanguage(text string) string {
	var cyrillic, latin int
	for _, r := range text {
		switch {
		case r >= 'а' && r <= 'я', r >= 'А' && r <= 'Я', r == 'ё', r == 'Ё':
			cyrillic++
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z':
			latin++
		}
	}
	total := cyrillic + latin
	if total == 0 {
		return ""
	}
	if float64(cyrillic)/float64(total) > 0.3 {
		return "ru"
	}
	return "en"
}
