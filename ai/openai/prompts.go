package openai

import (
	"fmt"
	"strings"

	"github.com/poiesic/docindex/ai"
)

const classifyResponseSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "properties": {
    "class": {
      "type": "string",
      "enum": [%s]
    }
  },
  "required": ["class"],
  "additionalProperties": false
}`

const classifyPromptTemplate = `Classify the given document into exactly one content class and return it as JSON.

Output ONLY valid JSON which complies with the schema given below. Do not include any preamble, explanation,
greeting, or acknowledgment. Start your response directly with the opening brace { and end with the closing
brace }. Your output must exactly follow this schema:

%s

Classes:
- text: natural language prose, articles, documentation without structure
- code: source code in any programming language
- table: tabular data such as CSV, TSV or pipe-delimited rows
- markdown: markdown documents with headers, lists or fenced blocks
- config: configuration files, key-value pairs, JSON/YAML/TOML/INI
- log: application or system log output with timestamps or levels
- mixed: documents combining several of the above with no clear majority

Rules:
- Pick the single class that describes the majority of the content.
- The filename is a hint, the content decides.
- Use "mixed" only when two or more classes genuinely compete.
- The JSON must parse without errors; no trailing commas, no extra keys, and no extraneous text outside the object.

Example:
Input:
Filename: deploy.yaml
Content:
replicas: 3
image: registry/app:v2
Output:
{"class":"config"}

Example:
Input:
Filename: unknown
Content:
func Sum(a, b int) int { return a + b }
Output:
{"class":"code"}`

const rerankPrompt = `Rate how relevant the given passage is to the query and return the rating as JSON.

Output ONLY valid JSON of the form {"score": N} where N is a number from 0 to 10.
Do not include any preamble, explanation, greeting, or acknowledgment.

Scale:
- 0-2: unrelated to the query
- 3-5: mentions the topic but does not address the query
- 6-8: addresses the query partially
- 9-10: directly and completely answers the query

Example:
Query: how to rotate TLS certificates
Passage: Certificates are rotated by the cert-manager controller every 60 days.
Output:
{"score": 9}`

// buildClassifyPrompt creates the classification system prompt with the
// label enum embedded in the schema.
func buildClassifyPrompt() string {
	quoted := make([]string, len(ai.ClassLabels))
	for i, label := range ai.ClassLabels {
		quoted[i] = fmt.Sprintf("%q", label)
	}
	schema := fmt.Sprintf(classifyResponseSchema, strings.Join(quoted, ", "))
	return fmt.Sprintf(classifyPromptTemplate, schema)
}
