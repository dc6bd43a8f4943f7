package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dgallion1/bddgen/internal/bdd"
)

const maxStepLen = 300

var injectionPattern = regexp.MustCompile(
	`(?i)(ignore\s+(previous|all|above)|system\s*prompt|you\s+are\s+now|` +
		`act\s+as\s+|pretend\s+|forget\s+(everything|all)|` +
		`new\s+instructions)`,
)

// ValidateFeature checks model-written Gherkin before it is returned to a
// caller. A feature needs a header, at least one scenario, steps under
// every scenario, and no steps that look like echoed prompt injection.
func ValidateFeature(content string) error {
	if !bdd.HasFeatureHeader(content) {
		return bdd.ParseErrorf("missing Feature: header")
	}

	scenarios := 0
	stepsInScenario := -1
	for i, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		switch {
		case strings.HasPrefix(line, "Scenario:"), strings.HasPrefix(line, "Scenario Outline:"):
			if stepsInScenario == 0 {
				return bdd.ParseErrorf("line %d: previous scenario has no steps", i+1)
			}
			scenarios++
			stepsInScenario = 0
		case isStepLine(line):
			if len(line) > maxStepLen {
				return bdd.ParseErrorf("line %d: step longer than %d characters", i+1, maxStepLen)
			}
			if injectionPattern.MatchString(line) {
				return bdd.ParseErrorf("line %d: suspicious step text", i+1)
			}
			if stepsInScenario >= 0 {
				stepsInScenario++
			}
		}
	}
	if scenarios == 0 {
		return bdd.ParseErrorf("no scenarios")
	}
	if stepsInScenario == 0 {
		return bdd.ParseErrorf("last scenario has no steps")
	}
	return nil
}

func isStepLine(line string) bool {
	kw, _, ok := strings.Cut(line, " ")
	if !ok {
		return false
	}
	switch kw {
	case "Given", "When", "Then", "And", "But", "*":
		return true
	}
	return false
}

// EstimateTokens gives a rough token count using a words-to-tokens ratio.
func EstimateTokens(text string) int {
	if text == "" {
		return 0
	}
	// Roughly 0.75 tokens per word for English text.
	tokens := int(float64(len(strings.Fields(text))) * 1.33)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

// checkPromptSize rejects documents too large to send in one request.
func checkPromptSize(text string, limit int) error {
	if limit <= 0 {
		return nil
	}
	if n := EstimateTokens(text); n > limit {
		return fmt.Errorf("document is ~%d tokens, limit %d", n, limit)
	}
	return nil
}
