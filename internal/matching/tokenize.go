package matching

import (
	"strings"
	"unicode"
)

// Separator joins the contents of several uploaded files into one qualification text.
const Separator = ", "

// Tokenize splits qualification text on commas, trims every piece and drops empty ones.
// Trimming covers Unicode whitespace and the byte order mark. Order and duplicates are kept.
func Tokenize(text string) []string {
	tokens := make([]string, 0)
	if text == "" {
		return tokens
	}

	for _, piece := range strings.Split(text, ",") {
		piece = strings.TrimFunc(piece, isTrimmable)
		if piece == "" {
			continue
		}
		tokens = append(tokens, piece)
	}

	return tokens
}

func isTrimmable(r rune) bool {
	return unicode.IsSpace(r) || r == '\uFEFF'
}

// JoinQualifications concatenates per-file contents into a single qualification text.
func JoinQualifications(parts ...string) string {
	return strings.Join(parts, Separator)
}

// dedupe keeps the first occurrence of every token.
func dedupe(tokens []string) []string {
	seen := make(map[string]struct{}, len(tokens))
	result := make([]string, 0, len(tokens))
	for _, token := range tokens {
		if _, ok := seen[token]; ok {
			continue
		}
		seen[token] = struct{}{}
		result = append(result, token)
	}
	return result
}
