package engine

import (
	"regexp"
	"strings"
	"unicode"
)

// Sentences splits text into sentences. Line breaks always end a sentence;
// requirement documents put one statement per line far more often than
// they wrap prose.
func Sentences(text string) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		out = append(out, splitSentences(line)...)
	}
	return out
}

// splitSentences does basic sentence splitting on terminal punctuation
// followed by a space. A numbered-list marker like "1." is not a sentence.
func splitSentences(text string) []string {
	var sentences []string
	var current strings.Builder

	for i, r := range text {
		current.WriteRune(r)
		if (r == '.' || r == '!' || r == '?') && i+1 < len(text) && text[i+1] == ' ' {
			if isListMarker(current.String()) {
				continue
			}
			sentences = append(sentences, strings.TrimSpace(current.String()))
			current.Reset()
		}
	}
	if s := strings.TrimSpace(current.String()); s != "" {
		sentences = append(sentences, s)
	}

	return sentences
}

func isListMarker(s string) bool {
	s = strings.TrimSuffix(strings.TrimSpace(s), ".")
	if s == "" {
		return false
	}
	for _, r := range s {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

var (
	quotedRe   = regexp.MustCompile(`"[^"]*"`)
	nonAlnumRe = regexp.MustCompile(`[^a-z0-9]+`)
	digitsRe   = regexp.MustCompile(`\d+`)
)

// identifierWords reduces step text to lowercase words suitable for a
// function name. Quoted arguments and numbers are dropped because they
// become parameters.
func identifierWords(text string) []string {
	s := quotedRe.ReplaceAllString(text, " ")
	s = digitsRe.ReplaceAllString(s, " ")
	s = strings.ToLower(s)
	s = nonAlnumRe.ReplaceAllString(s, " ")
	return strings.Fields(s)
}

// SnakeName converts step text to snake_case. The result never starts with
// a digit and is never empty.
func SnakeName(text string) string {
	words := identifierWords(text)
	if len(words) == 0 {
		return "step"
	}
	return strings.Join(words, "_")
}

// CamelName converts step text to camelCase, or PascalCase when upper is set.
func CamelName(text string, upper bool) string {
	words := identifierWords(text)
	if len(words) == 0 {
		words = []string{"step"}
	}
	var sb strings.Builder
	for i, w := range words {
		if i == 0 && !upper {
			sb.WriteString(w)
			continue
		}
		sb.WriteString(strings.ToUpper(w[:1]) + w[1:])
	}
	return sb.String()
}

// titleCase upper-cases the first letter of s.
func titleCase(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToUpper(r[0])
	return string(r)
}

// lowerFirst lower-cases the first letter of s.
func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	r := []rune(s)
	r[0] = unicode.ToLower(r[0])
	return string(r)
}

// shorten trims s to at most n runes on a word boundary.
func shorten(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	cut := string(r[:n])
	if i := strings.LastIndex(cut, " "); i > n/2 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,;:")
}
