package chunker

import (
	"regexp"
	"strings"

	"github.com/poiesic/docindex/core"
)

var (
	logStampRe  = regexp.MustCompile(`^(\d{4}-\d{2}-\d{2}[ T]\d{2}:\d{2}|\[\d{4}-\d{2}-\d{2}|\d{2}:\d{2}:\d{2})`)
	logLevelRe  = regexp.MustCompile(`\b(DEBUG|INFO|WARN|WARNING|ERROR|FATAL|TRACE)\b`)
	keyValueRe  = regexp.MustCompile(`^\s*[A-Za-z0-9_.\-]+\s*[:=]\s*\S`)
	iniBlockRe  = regexp.MustCompile(`^\s*\[[^\]]+\]\s*$`)
)

// region is a run of lines sharing one class signal.
type region struct {
	class     core.DocumentClass
	startLine int
	endLine   int
}

// minRegionLines keeps segmentation from shattering on single stray lines.
const minRegionLines = 3

// mixedSpans segments mixed content into homogeneous regions by
// class-signalling boundaries, then chunks each region with its own
// class strategy.
func mixedSpans(lines []line, config *Config) []span {
	regions := segmentRegions(lines)

	var spans []span
	for _, reg := range regions {
		sub := lines[reg.startLine:reg.endLine]
		limits := config.limitsFor(reg.class)

		var regionSpans []span
		switch reg.class {
		case core.ClassMarkdown:
			regionSpans = markdownSpans(sub, limits)
		case core.ClassCode:
			regionSpans = codeSpans(sub, limits)
			if regionSpans == nil {
				regionSpans = windowSpans(sub, limits)
			}
		case core.ClassTable:
			regionSpans = tableSpans(sub, limits)
		case core.ClassConfig:
			regionSpans = configSpans(sub, limits)
		case core.ClassLog:
			regionSpans = logSpans(sub, limits)
		default:
			regionSpans = windowSpans(sub, limits)
		}

		for _, s := range regionSpans {
			spans = append(spans, span{
				startLine: reg.startLine + s.startLine,
				endLine:   reg.startLine + s.endLine,
				symbol:    s.symbol,
			})
		}
	}
	return spans
}

// segmentRegions groups consecutive lines by class signal. Runs shorter
// than minRegionLines merge into the preceding region so a single stray
// line cannot open a region of its own.
func segmentRegions(lines []line) []region {
	var regions []region
	fenced := false
	for i, ln := range lines {
		class := classifyLine(ln.text, &fenced)
		if len(regions) > 0 {
			last := &regions[len(regions)-1]
			if last.class == class {
				last.endLine = i + 1
				continue
			}
			if last.endLine-last.startLine < minRegionLines && len(regions) > 1 {
				// Fold the short run backwards and keep going
				regions = regions[:len(regions)-1]
				regions[len(regions)-1].endLine = i
			}
			if regions[len(regions)-1].class == class {
				regions[len(regions)-1].endLine = i + 1
				continue
			}
		}
		regions = append(regions, region{class: class, startLine: i, endLine: i + 1})
	}

	// A short trailing region joins its predecessor
	if n := len(regions); n > 1 && regions[n-1].endLine-regions[n-1].startLine < minRegionLines {
		regions[n-2].endLine = regions[n-1].endLine
		regions = regions[:n-1]
	}
	return regions
}

// classifyLine assigns a class signal to one line. Fences toggle code
// regions; blank lines inherit by matching nothing and defaulting to text,
// which the short-run merge then folds into the surrounding region.
func classifyLine(text string, fenced *bool) core.DocumentClass {
	trimmed := strings.TrimSpace(text)
	if strings.HasPrefix(trimmed, "```") {
		*fenced = !*fenced
		return core.ClassCode
	}
	if *fenced {
		return core.ClassCode
	}
	switch {
	case atxHeaderRe.MatchString(text):
		return core.ClassMarkdown
	case logStampRe.MatchString(text) || logLevelRe.MatchString(text):
		return core.ClassLog
	case strings.Count(text, "|") >= 2:
		return core.ClassTable
	case iniBlockRe.MatchString(text) || keyValueRe.MatchString(text):
		return core.ClassConfig
	default:
		return core.ClassText
	}
}
