package chunker

import "regexp"

// Top-level declaration matchers. Capture group 1 is the symbol name.
var (
	goFuncRe  = regexp.MustCompile(`^func\s+(?:\([^)]+\)\s+)?([A-Za-z_]\w*)`)
	pyDefRe   = regexp.MustCompile(`^(?:async\s+)?def\s+([A-Za-z_]\w*)`)
	pyClassRe = regexp.MustCompile(`^class\s+([A-Za-z_]\w*)\s*[(:]`)
	jsFuncRe  = regexp.MustCompile(`^(?:export\s+)?(?:async\s+)?function\s*\*?\s*([A-Za-z_$][\w$]*)`)
	classRe   = regexp.MustCompile(`^(?:export\s+)?(?:public\s+|private\s+|protected\s+|abstract\s+|final\s+|static\s+)*class\s+([A-Za-z_$][\w$]*)`)
)

// declaration is a recognized top-level symbol definition.
type declaration struct {
	line   int
	symbol string
}

// codeSpans aligns chunks to top-level syntactic units. Each unit runs from
// its declaration to the next one, so imports and other preamble merge into
// the first unit and trailing lines attach to the last. When no declaration
// is recognized it returns nil and the caller falls back to the token
// window.
func codeSpans(lines []line, limits Limits) []span {
	decls := findDeclarations(lines)
	if len(decls) == 0 {
		return nil
	}

	var spans []span
	for i, decl := range decls {
		start := decl.line
		if i == 0 {
			start = 0
		}
		end := len(lines)
		if i+1 < len(decls) {
			end = decls[i+1].line
		}

		unit := span{startLine: start, endLine: end, symbol: decl.symbol}
		if spanTokens(lines, unit) > limits.MaxTokens {
			// Oversized unit, split it but keep the symbol on every part
			for _, part := range windowSpans(lines[start:end], limits) {
				spans = append(spans, span{
					startLine: start + part.startLine,
					endLine:   start + part.endLine,
					symbol:    decl.symbol,
				})
			}
			continue
		}
		spans = append(spans, unit)
	}
	return spans
}

// findDeclarations scans for top-level symbol definitions. Only unindented
// declarations count, so methods stay inside their class unit.
func findDeclarations(lines []line) []declaration {
	var decls []declaration
	for i, ln := range lines {
		if len(ln.text) == 0 || ln.text[0] == ' ' || ln.text[0] == '\t' {
			continue
		}
		if m := goFuncRe.FindStringSubmatch(ln.text); m != nil {
			decls = append(decls, declaration{line: i, symbol: m[1]})
		} else if m := jsFuncRe.FindStringSubmatch(ln.text); m != nil {
			decls = append(decls, declaration{line: i, symbol: m[1]})
		} else if m := pyDefRe.FindStringSubmatch(ln.text); m != nil {
			decls = append(decls, declaration{line: i, symbol: m[1]})
		} else if m := pyClassRe.FindStringSubmatch(ln.text); m != nil {
			decls = append(decls, declaration{line: i, symbol: m[1]})
		} else if m := classRe.FindStringSubmatch(ln.text); m != nil {
			decls = append(decls, declaration{line: i, symbol: m[1]})
		}
	}
	return decls
}
