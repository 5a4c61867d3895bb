package chunker

import (
	"regexp"
	"strings"
)

var atxHeaderRe = regexp.MustCompile(`^#{1,6}\s+\S`)

// degenerateTokens is the floor below which a section is considered a
// fragment and merged with a neighbor instead of becoming its own chunk.
const degenerateTokens = 8

// markdownSpans splits at ATX headers. Each section becomes one chunk;
// sections over the token budget are split further at unit granularity
// where a fenced code block is one indivisible unit.
func markdownSpans(lines []line, limits Limits) []span {
	sections := markdownSections(lines)
	sections = mergeDegenerate(lines, sections)

	var spans []span
	for _, section := range sections {
		if spanTokens(lines, section) <= limits.MaxTokens {
			spans = append(spans, section)
			continue
		}
		units := fenceUnits(lines, section)
		spans = append(spans, packUnits(lines, units, limits.MaxTokens)...)
	}
	return spans
}

// markdownSections returns one span per header-delimited section. Content
// before the first header forms its own section. Headers inside fenced
// blocks do not split.
func markdownSections(lines []line) []span {
	var sections []span
	start := 0
	fenced := false
	for i, ln := range lines {
		trimmed := strings.TrimSpace(ln.text)
		if strings.HasPrefix(trimmed, "```") {
			fenced = !fenced
			continue
		}
		if fenced {
			continue
		}
		if atxHeaderRe.MatchString(ln.text) && i > start {
			sections = append(sections, span{startLine: start, endLine: i})
			start = i
		}
	}
	sections = append(sections, span{startLine: start, endLine: len(lines)})
	return sections
}

// mergeDegenerate folds fragment sections into a neighbor: a tiny leading
// section joins the one after it, any other tiny section joins the one
// before it.
func mergeDegenerate(lines []line, sections []span) []span {
	if len(sections) < 2 {
		return sections
	}
	merged := make([]span, 0, len(sections))
	for _, section := range sections {
		if len(merged) == 0 {
			merged = append(merged, section)
			continue
		}
		prev := &merged[len(merged)-1]
		if spanTokens(lines, section) < degenerateTokens || spanTokens(lines, *prev) < degenerateTokens {
			prev.endLine = section.endLine
			continue
		}
		merged = append(merged, section)
	}
	return merged
}

// fenceUnits breaks a section into indivisible units: each fenced block is
// one unit, every other line is its own unit.
func fenceUnits(lines []line, section span) []span {
	var units []span
	i := section.startLine
	for i < section.endLine {
		trimmed := strings.TrimSpace(lines[i].text)
		if strings.HasPrefix(trimmed, "```") {
			end := i + 1
			for end < section.endLine {
				if strings.HasPrefix(strings.TrimSpace(lines[end].text), "```") {
					end++
					break
				}
				end++
			}
			units = append(units, span{startLine: i, endLine: end})
			i = end
			continue
		}
		units = append(units, span{startLine: i, endLine: i + 1})
		i++
	}
	return units
}

// packUnits greedily joins adjacent units until the token budget is
// reached. A single unit over the budget is emitted alone.
func packUnits(lines []line, units []span, maxTokens int) []span {
	var spans []span
	var current span
	tokens, count := 0, 0
	for _, unit := range units {
		unitTokens := spanTokens(lines, unit)
		if count > 0 && tokens+unitTokens > maxTokens {
			spans = append(spans, current)
			tokens, count = 0, 0
		}
		if count == 0 {
			current = unit
		} else {
			current.endLine = unit.endLine
		}
		tokens += unitTokens
		count++
	}
	if count > 0 {
		spans = append(spans, current)
	}
	return spans
}
