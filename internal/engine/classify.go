package engine

import (
	"regexp"
	"strings"

	"github.com/dgallion1/bddgen/internal/bdd"
)

// SuggestThreshold is the minimum score a category needs to be suggested.
const SuggestThreshold = 0.3

var categoryPatterns = map[bdd.DocumentCategory][]*regexp.Regexp{
	bdd.CategoryBRD: compileAll(
		`business\s+requirements?\s+documents?`,
		`stakeholder\s+requirements?`,
		`business\s+needs?`,
		`business\s+objectives?`,
		`scope\s+and\s+limitations?`,
	),
	bdd.CategoryFRD: compileAll(
		`functional\s+requirements?\s+documents?`,
		`system\s+requirements?`,
		`functional\s+specifications?`,
		`technical\s+requirements?`,
		`system\s+functionality`,
	),
	bdd.CategoryUserStory: compileAll(
		`as\s+an?\s+.*\s+i\s+want\s+to`,
		`as\s+an?\s+.*\s+i\s+need\s+to`,
		`as\s+an?\s+.*\s+i\s+should\s+be\s+able\s+to`,
		`given.*when.*then`,
		`acceptance\s+criteria`,
	),
	bdd.CategoryTestCase: compileAll(
		`test\s+cases?`,
		`test\s+scenarios?`,
		`steps?\s+to\s+test`,
		`expected\s+results?`,
		`preconditions?`,
		`test\s+data`,
	),
}

var (
	asARoleRe   = regexp.MustCompile(`\bas an?\b`)
	gwtStartRe  = regexp.MustCompile(`^(Given|When|Then)\b`)
	numberedRe  = regexp.MustCompile(`^\d+\.`)
	shallRe     = regexp.MustCompile(`system\s+shall|must\s+have`)
	scopeRe     = regexp.MustCompile(`\bscope\b`)
	objectiveRe = regexp.MustCompile(`\bobjectives?\b`)
)

func compileAll(patterns ...string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, len(patterns))
	for i, p := range patterns {
		out[i] = regexp.MustCompile(p)
	}
	return out
}

// Classify scores text against every category and suggests the best one
// when its score reaches SuggestThreshold. Ties go to the category listed
// first in bdd.Categories.
func Classify(text string) Analysis {
	lower := strings.ToLower(text)
	scores := make(map[bdd.DocumentCategory]float64, len(bdd.Categories))

	for _, cat := range bdd.Categories {
		patterns := categoryPatterns[cat]
		matches := 0
		for _, re := range patterns {
			if re.MatchString(lower) {
				matches++
			}
		}
		scores[cat] = float64(matches) / float64(len(patterns))
	}

	var hasRole, hasGWT, hasNumbered bool
	for _, sent := range Sentences(text) {
		if asARoleRe.MatchString(strings.ToLower(sent)) {
			hasRole = true
		}
		if gwtStartRe.MatchString(sent) {
			hasGWT = true
		}
		if numberedRe.MatchString(sent) {
			hasNumbered = true
		}
	}
	if hasRole {
		scores[bdd.CategoryUserStory] += 0.3
	}
	if hasGWT {
		scores[bdd.CategoryUserStory] += 0.2
	}
	if hasNumbered {
		scores[bdd.CategoryTestCase] += 0.2
	}
	if scopeRe.MatchString(lower) && objectiveRe.MatchString(lower) {
		scores[bdd.CategoryBRD] += 0.2
	}
	if shallRe.MatchString(lower) {
		scores[bdd.CategoryFRD] += 0.2
	}

	result := Analysis{Scores: scores}
	best, bestScore := bdd.DocumentCategory(""), -1.0
	for _, cat := range bdd.Categories {
		if scores[cat] > bestScore {
			best, bestScore = cat, scores[cat]
		}
	}
	if bestScore >= SuggestThreshold {
		result.Suggested = &best
	}
	return result
}
