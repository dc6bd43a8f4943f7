package engine

import (
	"fmt"
	"regexp"
	"strings"
	"text/template"

	"github.com/dgallion1/bddgen/internal/bdd"
)

// Scenario is one generated Gherkin scenario.
type Scenario struct {
	Name  string
	Steps []string // full step lines, keyword included
}

var featureTmpl = template.Must(template.New("feature").Parse(`Feature: {{.Name}}
{{- range .Description}}
  {{.}}
{{- end}}
{{- if not .Scenarios}}

  # No scenarios could be derived from the source document.
{{- end}}
{{- range .Scenarios}}

  Scenario: {{.Name}}
{{- range .Steps}}
    {{.}}
{{- end}}
{{- end}}
`))

type featureData struct {
	Name        string
	Description []string
	Scenarios   []Scenario
}

var (
	listPrefixRe = regexp.MustCompile(`^(?:\d+[.)]|[-*•])\s*`)
	modalRe      = regexp.MustCompile(`(?i)^(.*?)\b(must|should|shall|will|needs? to)\s+(be able to\s+)?(.+)$`)
	gwtSplitRe   = regexp.MustCompile(`(?i)^(?:(?:given|if)\s+(.+?),?\s+)?(?:when|if)\s+(.+?),?\s+then\s+(.+)$`)
	givenOnlyRe  = regexp.MustCompile(`(?i)^given\s+(.+?),?\s+when\s+(.+?),?\s+then\s+(.+)$`)
)

// RenderFeature builds the Gherkin feature text for a parsed document.
func RenderFeature(p *Parsed, featureName string) (string, error) {
	data := featureData{Name: featureTitle(featureName, p.Category)}

	switch p.Category {
	case bdd.CategoryUserStory:
		data.Description = []string{"Derived from user stories."}
		data.Scenarios = storyScenarios(p.Stories)
	case bdd.CategoryTestCase:
		data.Description = []string{"Automated test case execution."}
		if s, ok := testCaseScenario(p); ok {
			data.Scenarios = []Scenario{s}
		}
	case bdd.CategoryBRD, bdd.CategoryFRD:
		data.Description = []string{fmt.Sprintf("Derived from the %s.", categoryLongName(p.Category))}
		if len(p.Actors) > 0 {
			data.Description = append(data.Description, "Actors: "+strings.Join(p.Actors, ", "))
		}
		data.Scenarios = requirementScenarios(p)
	default:
		return "", fmt.Errorf("%w: %q", bdd.ErrUnknownCategory, p.Category)
	}

	dedupScenarioNames(data.Scenarios)

	var sb strings.Builder
	if err := featureTmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("render feature: %w", err)
	}
	return sb.String(), nil
}

// SuggestSteps maps every step in a feature to a suggested function name.
func SuggestSteps(feature string) map[string]string {
	out := make(map[string]string)
	for _, st := range bdd.ExtractSteps(feature) {
		key := string(st.Keyword) + " " + st.Text
		if _, ok := out[key]; !ok {
			out[key] = "step_" + SnakeName(st.Text)
		}
	}
	return out
}

func featureTitle(name string, cat bdd.DocumentCategory) string {
	name = strings.TrimSpace(strings.NewReplacer("_", " ", "-", " ").Replace(name))
	if name == "" {
		return categoryLongName(cat)
	}
	return titleCase(name)
}

func categoryLongName(cat bdd.DocumentCategory) string {
	switch cat {
	case bdd.CategoryBRD:
		return "Business Requirements Document"
	case bdd.CategoryFRD:
		return "Functional Requirements Document"
	case bdd.CategoryUserStory:
		return "User Story Implementation"
	case bdd.CategoryTestCase:
		return "Test Case Execution"
	}
	return string(cat)
}

func storyScenarios(stories []Story) []Scenario {
	var out []Scenario
	for _, s := range stories {
		want := trimSentence(s.Want)
		steps := []string{
			"Given I am " + withArticle(s.Role),
			"When I " + want,
		}
		if s.Benefit != "" {
			steps = append(steps, "Then "+trimSentence(s.Benefit))
		} else {
			steps = append(steps, "Then I should be able to "+want)
		}
		out = append(out, Scenario{Name: titleCase(shorten(want, 80)), Steps: steps})
	}

	// Acceptance criteria are shared by every story in the document, so
	// they become one scenario of their own.
	if len(stories) > 0 && len(stories[0].AcceptanceCriteria) > 0 {
		var lines []string
		for _, c := range stories[0].AcceptanceCriteria {
			text := trimSentence(c.Text)
			switch c.Type {
			case "given", "when", "then":
				lines = append(lines, splitGWT(text)...)
			default:
				lines = append(lines, "Then "+lowerFirst(text))
			}
		}
		if len(lines) > 0 {
			out = append(out, Scenario{Name: "Acceptance criteria", Steps: chainKeywords(lines)})
		}
	}
	return out
}

func testCaseScenario(p *Parsed) (Scenario, bool) {
	var lines []string
	for _, s := range p.Preconditions {
		lines = append(lines, "Given "+lowerFirst(trimSentence(s)))
	}
	for _, s := range p.Steps {
		lines = append(lines, "When "+lowerFirst(trimSentence(s)))
	}
	for _, s := range p.ExpectedResults {
		lines = append(lines, "Then "+lowerFirst(trimSentence(s)))
	}
	if len(lines) == 0 {
		return Scenario{}, false
	}
	return Scenario{Name: "Execute test case", Steps: chainKeywords(lines)}, true
}

func requirementScenarios(p *Parsed) []Scenario {
	var out []Scenario
	for _, req := range p.Requirements {
		text := trimSentence(listPrefixRe.ReplaceAllString(req, ""))
		m := modalRe.FindStringSubmatch(text)
		if m == nil {
			continue
		}
		subject := strings.TrimSpace(m[1])
		if subject == "" {
			subject = "the system"
		}
		subject = lowerFirst(subject)
		action := strings.TrimSpace(m[4])
		ability := "should "
		if m[3] != "" {
			ability = "should be able to "
		}
		out = append(out, Scenario{
			Name: titleCase(shorten(text, 80)),
			Steps: []string{
				"Given " + subject + " is available",
				"When " + subject + " attempts to " + action,
				"Then " + subject + " " + ability + action,
			},
		})
	}
	for _, sc := range p.Scenarios {
		text := trimSentence(listPrefixRe.ReplaceAllString(sc, ""))
		lines := splitGWT(text)
		if len(lines) < 2 {
			continue
		}
		out = append(out, Scenario{Name: titleCase(shorten(text, 80)), Steps: chainKeywords(lines)})
	}
	return out
}

// splitGWT breaks a one-line "Given A when B then C" or "If B then C"
// sentence into separate step lines. Text that does not split is returned
// as a single step keyed by its leading word.
func splitGWT(text string) []string {
	if m := givenOnlyRe.FindStringSubmatch(text); m != nil {
		return []string{"Given " + m[1], "When " + m[2], "Then " + m[3]}
	}
	if m := gwtSplitRe.FindStringSubmatch(text); m != nil {
		var lines []string
		if m[1] != "" {
			lines = append(lines, "Given "+m[1])
		}
		return append(lines, "When "+m[2], "Then "+m[3])
	}
	first, rest, _ := strings.Cut(text, " ")
	switch strings.ToLower(first) {
	case "given":
		return []string{"Given " + rest}
	case "when":
		return []string{"When " + rest}
	case "then":
		return []string{"Then " + rest}
	}
	return []string{"Then " + lowerFirst(text)}
}

// chainKeywords replaces a keyword that repeats the previous line's keyword
// with "And".
func chainKeywords(lines []string) []string {
	out := make([]string, len(lines))
	prev := ""
	for i, line := range lines {
		kw, rest, _ := strings.Cut(line, " ")
		if kw == prev {
			out[i] = "And " + rest
		} else {
			out[i] = line
		}
		prev = kw
	}
	return out
}

func dedupScenarioNames(scenarios []Scenario) {
	seen := make(map[string]int)
	for i := range scenarios {
		name := scenarios[i].Name
		seen[name]++
		if n := seen[name]; n > 1 {
			scenarios[i].Name = fmt.Sprintf("%s (%d)", name, n)
		}
	}
}

func trimSentence(s string) string {
	return strings.TrimRight(strings.TrimSpace(s), ".!;")
}

func withArticle(role string) string {
	lower := strings.ToLower(role)
	if strings.HasPrefix(lower, "a ") || strings.HasPrefix(lower, "an ") || strings.HasPrefix(lower, "the ") {
		return role
	}
	if lower != "" && strings.ContainsRune("aeiou", rune(lower[0])) {
		return "an " + role
	}
	return "a " + role
}
