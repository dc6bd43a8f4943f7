package engine

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/bddgen/internal/bdd"
)

// Parsed is the structured reading of a requirements document. Which
// fields are populated depends on the category.
type Parsed struct {
	Category bdd.DocumentCategory `json:"category"`

	// BRD / FRD
	Requirements []string `json:"requirements,omitempty"`
	Actors       []string `json:"actors,omitempty"`
	Scenarios    []string `json:"scenarios,omitempty"`

	// User Story
	Stories []Story `json:"stories,omitempty"`

	// Test Case
	Preconditions   []string `json:"preconditions,omitempty"`
	Steps           []string `json:"steps,omitempty"`
	ExpectedResults []string `json:"expected_results,omitempty"`
}

// Story is one "As a ... I want to ... so that ..." statement.
type Story struct {
	Role               string      `json:"role"`
	Want               string      `json:"want"`
	Benefit            string      `json:"benefit,omitempty"`
	AcceptanceCriteria []Criterion `json:"acceptance_criteria,omitempty"`
}

// Criterion is an acceptance-criteria sentence.
type Criterion struct {
	Type string `json:"type"` // given, when, then, verification
	Text string `json:"text"`
}

var (
	requirementRe = regexp.MustCompile(`(?i)\b(?:must|should|will)\s+(?:be able to|have|provide|support|allow)\b|\bneeds?\s+to\b|\bshall\b`)
	actorRe       = regexp.MustCompile(`(?i)\b(?:the\s+)?(user|system|admin|administrator|customer|client|application|platform|service)s?\b`)
	scenarioRe    = regexp.MustCompile(`(?i)\bwhen\b.*\bthen\b|\bif\b.*\bthen\b|\bgiven\b.*\bwhen\b.*\bthen\b`)

	storyRe     = regexp.MustCompile(`(?i)^as\s+(?:an?|the)\s+(.+?),?\s+i\s+(?:want|need|would like)\s+to\s+(.+?)(?:,?\s+so\s+that\s+(.+?))?[.!]?$`)
	storyAbleRe = regexp.MustCompile(`(?i)^as\s+(?:an?|the)\s+(.+?),?\s+i\s+should\s+be\s+able\s+to\s+(.+?)(?:,?\s+so\s+that\s+(.+?))?[.!]?$`)

	criteriaKeywords = []string{"given", "when", "then", "verify", "check", "ensure"}

	preconditionRe = regexp.MustCompile(`(?i)^(?:pre-?conditions?|prerequisites?|given)\b:?\s*(.*)$`)
	beforeRe       = regexp.MustCompile(`(?i)^before\s+(?:the\s+test|testing)\b:?\s*(.*)$`)
	stepHeaderRe   = regexp.MustCompile(`(?i)^(?:steps?|actions?|test\s+steps)\s*:\s*(.*)$`)
	stepNumberedRe = regexp.MustCompile(`(?i)^(?:step|action)\s*\d+\s*[:.)-]?\s*(.*)$`)
	listItemRe     = regexp.MustCompile(`^\d+[.)]\s*(.*)$`)
	stepWhenRe     = regexp.MustCompile(`(?i)^when\s+(.*)$`)
	expectedRe     = regexp.MustCompile(`(?i)^(?:expected\s+results?|expected|then)\b:?\s*(.*)$`)
	verifyRe       = regexp.MustCompile(`(?i)^(?:verify|validate)\b:?\s*(.*)$`)
	shouldRe       = regexp.MustCompile(`(?i)^should\s+(.*)$`)
)

// ParseDocument reads text according to its category.
func ParseDocument(text string, category bdd.DocumentCategory) (*Parsed, error) {
	switch category {
	case bdd.CategoryBRD, bdd.CategoryFRD:
		p := parseRequirements(text)
		p.Category = category
		return p, nil
	case bdd.CategoryUserStory:
		return parseUserStories(text), nil
	case bdd.CategoryTestCase:
		return parseTestCase(text), nil
	default:
		return nil, fmt.Errorf("%w: %q", bdd.ErrUnknownCategory, category)
	}
}

func parseRequirements(text string) *Parsed {
	p := &Parsed{}
	actors := make(map[string]bool)

	for _, sent := range Sentences(text) {
		if requirementRe.MatchString(sent) {
			p.Requirements = append(p.Requirements, sent)
			for _, m := range actorRe.FindAllStringSubmatch(sent, -1) {
				actors[normalizeActor(m[1])] = true
			}
		}
		if scenarioRe.MatchString(sent) {
			p.Scenarios = append(p.Scenarios, sent)
		}
	}

	for a := range actors {
		p.Actors = append(p.Actors, a)
	}
	sort.Strings(p.Actors)
	return p
}

func normalizeActor(s string) string {
	s = strings.ToLower(s)
	if s == "administrator" {
		return "admin"
	}
	return s
}

func parseUserStories(text string) *Parsed {
	p := &Parsed{Category: bdd.CategoryUserStory}
	criteria := extractAcceptanceCriteria(text)

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimLeft(strings.TrimSpace(line), "-*•"))
		if line == "" {
			continue
		}
		m := storyAbleRe.FindStringSubmatch(line)
		if m == nil {
			m = storyRe.FindStringSubmatch(line)
		}
		if m == nil {
			continue
		}
		p.Stories = append(p.Stories, Story{
			Role:               strings.TrimSpace(m[1]),
			Want:               strings.TrimSpace(m[2]),
			Benefit:            strings.TrimSpace(m[3]),
			AcceptanceCriteria: criteria,
		})
	}
	return p
}

func extractAcceptanceCriteria(text string) []Criterion {
	var criteria []Criterion
	for _, sent := range Sentences(text) {
		lower := strings.ToLower(sent)
		if storyRe.MatchString(sent) || storyAbleRe.MatchString(sent) {
			continue
		}
		matched := false
		for _, kw := range criteriaKeywords {
			if strings.Contains(lower, kw) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		switch {
		case strings.HasPrefix(lower, "given"):
			criteria = append(criteria, Criterion{Type: "given", Text: sent})
		case strings.HasPrefix(lower, "when"):
			criteria = append(criteria, Criterion{Type: "when", Text: sent})
		case strings.HasPrefix(lower, "then"):
			criteria = append(criteria, Criterion{Type: "then", Text: sent})
		default:
			criteria = append(criteria, Criterion{Type: "verification", Text: sent})
		}
	}
	return criteria
}

func parseTestCase(text string) *Parsed {
	p := &Parsed{Category: bdd.CategoryTestCase}
	section := ""

	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}

		var rest string
		switch {
		case matchInto(preconditionRe, line, &rest), matchInto(beforeRe, line, &rest):
			section = "preconditions"
		case matchInto(stepHeaderRe, line, &rest), matchInto(stepNumberedRe, line, &rest),
			matchInto(listItemRe, line, &rest), matchInto(stepWhenRe, line, &rest):
			section = "steps"
		case matchInto(expectedRe, line, &rest), matchInto(verifyRe, line, &rest),
			matchInto(shouldRe, line, &rest):
			section = "expected_results"
			if shouldRe.MatchString(line) {
				rest = "it should " + rest
			}
		default:
			rest = strings.TrimLeft(line, "-*• ")
		}

		rest = strings.TrimSpace(rest)
		if rest == "" {
			continue
		}
		switch section {
		case "preconditions":
			p.Preconditions = append(p.Preconditions, rest)
		case "steps":
			p.Steps = append(p.Steps, rest)
		case "expected_results":
			p.ExpectedResults = append(p.ExpectedResults, rest)
		}
	}
	return p
}

func matchInto(re *regexp.Regexp, line string, rest *string) bool {
	m := re.FindStringSubmatch(line)
	if m == nil {
		return false
	}
	*rest = m[1]
	return true
}
