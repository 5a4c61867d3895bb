package chunker

import "unicode/utf8"

// TokenCounter estimates the number of model tokens in a text.
// Implementations must be pure and cheap; they run once per line.
type TokenCounter func(text string) int

// EstimateTokens is the default TokenCounter. It approximates tokens as
// one per four runes, which tracks common BPE vocabularies closely enough
// for sizing chunks. Non-empty text always counts as at least one token.
func EstimateTokens(text string) int {
	runes := utf8.RuneCountInString(text)
	if runes == 0 {
		return 0
	}
	tokens := (runes + 3) / 4
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}
