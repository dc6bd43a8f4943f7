package bdd

import "strings"

// StepKeyword is the effective keyword of a step. And/But steps inherit the
// keyword of the step before them.
type StepKeyword string

const (
	KeywordGiven StepKeyword = "Given"
	KeywordWhen  StepKeyword = "When"
	KeywordThen  StepKeyword = "Then"
)

// Step is one Given/When/Then line of a feature.
type Step struct {
	Keyword StepKeyword // effective keyword
	Written string      // keyword as written: Given, When, Then, And, But, or *
	Text    string
	Line    int // 1-based
}

// ExtractSteps returns every step line in content, in order. Lines inside
// doc strings are skipped. An And/But/* step before any Given/When/Then is
// treated as a Given.
func ExtractSteps(content string) []Step {
	var steps []Step
	last := KeywordGiven
	inDocString := false

	for i, raw := range strings.Split(content, "\n") {
		lineNo := i + 1
		line := strings.TrimSpace(raw)
		if strings.HasPrefix(line, `"""`) || strings.HasPrefix(line, "```") {
			inDocString = !inDocString
			continue
		}
		if inDocString || line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		written, text, ok := strings.Cut(line, " ")
		if !ok {
			continue
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		var kw StepKeyword
		switch written {
		case "Given":
			kw = KeywordGiven
		case "When":
			kw = KeywordWhen
		case "Then":
			kw = KeywordThen
		case "And", "But", "*":
			kw = last
		default:
			continue
		}
		last = kw
		steps = append(steps, Step{Keyword: kw, Written: written, Text: text, Line: lineNo})
	}
	return steps
}

// HasFeatureHeader reports whether content contains a "Feature:" line.
func HasFeatureHeader(content string) bool {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(strings.TrimSpace(line), "Feature:") {
			return true
		}
	}
	return false
}
