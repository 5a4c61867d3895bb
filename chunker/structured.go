package chunker

import "strings"

// tableSpans packs rows into token-bounded chunks. Each chunk after the
// first rewinds by the configured number of rows so neighboring chunks
// share row context. The header row stays in the first chunk only; its
// offsets are recoverable from the document.
func tableSpans(lines []line, limits Limits) []span {
	return lineWindow(lines, limits)
}

// logSpans packs log lines into token-bounded chunks with a fixed number
// of overlap lines carrying context across chunk boundaries.
func logSpans(lines []line, limits Limits) []span {
	return lineWindow(lines, limits)
}

// lineWindow cuts at the token budget and rewinds limits.Overlap whole
// lines for the next span. Trailing fragments below the min merge into the
// previous span.
func lineWindow(lines []line, limits Limits) []span {
	if len(lines) == 0 {
		return nil
	}

	var spans []span
	start := 0
	for start < len(lines) {
		tokens := 0
		end := start
		for end < len(lines) {
			if tokens > 0 && tokens+lines[end].tokens > limits.MaxTokens {
				break
			}
			tokens += lines[end].tokens
			end++
		}

		spans = append(spans, span{startLine: start, endLine: end})
		if end >= len(lines) {
			break
		}
		next := end - limits.Overlap
		if next <= start {
			next = start + 1
		}
		start = next
	}

	return mergeTrailing(lines, spans, limits.MinTokens)
}

// configSpans splits at top-level blocks, where a block starts at any
// non-blank line without leading whitespace. Blocks pack together up to
// the token budget with no overlap; an oversized block splits at line
// granularity.
func configSpans(lines []line, limits Limits) []span {
	var units []span
	start := 0
	for i, ln := range lines {
		if i == start {
			continue
		}
		if isBlockStart(ln.text) {
			units = append(units, span{startLine: start, endLine: i})
			start = i
		}
	}
	units = append(units, span{startLine: start, endLine: len(lines)})

	var expanded []span
	for _, unit := range units {
		if spanTokens(lines, unit) <= limits.MaxTokens {
			expanded = append(expanded, unit)
			continue
		}
		for _, part := range windowSpans(lines[unit.startLine:unit.endLine], limits) {
			expanded = append(expanded, span{
				startLine: unit.startLine + part.startLine,
				endLine:   unit.startLine + part.endLine,
			})
		}
	}

	return packUnits(lines, expanded, limits.MaxTokens)
}

func isBlockStart(text string) bool {
	if strings.TrimSpace(text) == "" {
		return false
	}
	return text[0] != ' ' && text[0] != '\t'
}
