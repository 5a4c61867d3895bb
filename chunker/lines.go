package chunker

import "strings"

// line is one source line with its byte offsets. end excludes the
// trailing newline of all but the last line, which keeps chunk spans
// contiguous when consecutive lines join.
type line struct {
	text   string
	start  int
	end    int
	tokens int
}

// span is a half-open line range [startLine, endLine) selected by a
// chunking strategy, optionally tagged with the enclosing symbol name.
type span struct {
	startLine int
	endLine   int
	symbol    string
}

// splitLines breaks content into lines with byte offsets. The newline
// belongs to the line it terminates so that the union of line spans covers
// the whole source.
func splitLines(content string, counter TokenCounter) []line {
	var lines []line
	start := 0
	for start <= len(content) {
		idx := strings.IndexByte(content[start:], '\n')
		var end int
		if idx < 0 {
			end = len(content)
		} else {
			end = start + idx + 1
		}
		text := content[start:end]
		if idx < 0 && text == "" && len(lines) > 0 {
			break
		}
		lines = append(lines, line{
			text:   text,
			start:  start,
			end:    end,
			tokens: counter(text),
		})
		if idx < 0 {
			break
		}
		start = end
	}
	return lines
}

// spanTokens sums the token counts of the lines in a span.
func spanTokens(lines []line, s span) int {
	total := 0
	for i := s.startLine; i < s.endLine; i++ {
		total += lines[i].tokens
	}
	return total
}

// windowSpans packs lines into fixed-size spans. A new span is cut when the
// running token count reaches the max; the next span rewinds far enough to
// carry roughly overlapTokens of trailing context. A trailing span below the
// min merges into the previous one. A single line never splits, so one
// oversized line yields one oversized span.
func windowSpans(lines []line, limits Limits) []span {
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
		next := overlapStart(lines, end, limits.Overlap)
		// Keep forward progress regardless of the overlap size
		if next <= start {
			next = start + 1
		}
		if next > end {
			next = end
		}
		start = next
	}

	return mergeTrailing(lines, spans, limits.MinTokens)
}

// overlapStart walks back from end until roughly overlapTokens of context
// are included.
func overlapStart(lines []line, end, overlapTokens int) int {
	if overlapTokens <= 0 {
		return end
	}
	start := end
	tokens := 0
	for start > 0 && tokens < overlapTokens {
		start--
		tokens += lines[start].tokens
	}
	return start
}

// mergeTrailing folds a final span below minTokens into its predecessor.
func mergeTrailing(lines []line, spans []span, minTokens int) []span {
	if len(spans) < 2 {
		return spans
	}
	last := spans[len(spans)-1]
	if spanTokens(lines, last) >= minTokens {
		return spans
	}
	prev := &spans[len(spans)-2]
	if last.endLine > prev.endLine {
		prev.endLine = last.endLine
	}
	return spans[:len(spans)-1]
}
