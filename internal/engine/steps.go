package engine

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/dgallion1/bddgen/internal/bdd"
)

type paramKind int

const (
	paramInt paramKind = iota
	paramString
)

// stepPattern is one unique step signature and every keyword it was used
// with.
type stepPattern struct {
	Pattern  string // anchored regular expression
	Example  string // first step text that produced it
	Keywords []bdd.StepKeyword
	Params   []paramKind
	parts    []patternPart
}

type patternPart struct {
	literal string
	param   bool
	kind    paramKind
}

var argRe = regexp.MustCompile(`"[^"]*"|\b\d+\b`)

func buildPattern(text string) stepPattern {
	sp := stepPattern{Example: text}
	last := 0
	for _, loc := range argRe.FindAllStringIndex(text, -1) {
		if loc[0] > last {
			sp.parts = append(sp.parts, patternPart{literal: text[last:loc[0]]})
		}
		kind := paramInt
		if text[loc[0]] == '"' {
			kind = paramString
		}
		sp.parts = append(sp.parts, patternPart{param: true, kind: kind})
		sp.Params = append(sp.Params, kind)
		last = loc[1]
	}
	if last < len(text) {
		sp.parts = append(sp.parts, patternPart{literal: text[last:]})
	}
	sp.Pattern = sp.regex(false)
	return sp
}

// regex renders the anchored pattern. Named groups are arg1, arg2, ...
// when named is set.
func (sp stepPattern) regex(named bool) string {
	var sb strings.Builder
	sb.WriteString("^")
	n := 0
	for _, p := range sp.parts {
		if !p.param {
			sb.WriteString(regexp.QuoteMeta(p.literal))
			continue
		}
		n++
		group := "("
		if named {
			group = fmt.Sprintf("(?P<arg%d>", n)
		}
		switch p.kind {
		case paramInt:
			sb.WriteString(group + `\d+)`)
		case paramString:
			sb.WriteString(`"` + group + `[^"]*)"`)
		}
	}
	sb.WriteString("$")
	return sb.String()
}

func (sp stepPattern) argNames() []string {
	names := make([]string, len(sp.Params))
	for i := range sp.Params {
		names[i] = fmt.Sprintf("arg%d", i+1)
	}
	return names
}

// collectPatterns returns the feature's unique step signatures in order of
// first appearance.
func collectPatterns(steps []bdd.Step) []*stepPattern {
	var out []*stepPattern
	index := make(map[string]*stepPattern)
	for _, st := range steps {
		sp := buildPattern(st.Text)
		if existing, ok := index[sp.Pattern]; ok {
			if !slices.Contains(existing.Keywords, st.Keyword) {
				existing.Keywords = append(existing.Keywords, st.Keyword)
			}
			continue
		}
		sp.Keywords = []bdd.StepKeyword{st.Keyword}
		p := &sp
		index[sp.Pattern] = p
		out = append(out, p)
	}
	return out
}

// GenerateSteps produces one step-definition stub per unique step signature
// in feature, rendered for target.
func GenerateSteps(feature string, target bdd.Target) (*bdd.StepDefinitionArtifact, error) {
	if strings.TrimSpace(feature) == "" {
		return nil, bdd.ErrEmptyFeature
	}
	if err := target.Validate(); err != nil {
		return nil, err
	}
	target = target.Resolved()

	steps := bdd.ExtractSteps(feature)
	if len(steps) == 0 {
		return nil, bdd.ErrNoSteps
	}
	patterns := collectPatterns(steps)

	r, err := rendererFor(target)
	if err != nil {
		return nil, err
	}

	names := newNameSet()
	art := &bdd.StepDefinitionArtifact{StepDefinitions: make(map[string]string, len(patterns))}
	used := make(map[bdd.StepKeyword]bool)
	for _, sp := range patterns {
		for _, kw := range sp.Keywords {
			used[kw] = true
		}
		art.StepDefinitions[sp.Pattern] = r.stub(sp, names)
	}

	var keywords []bdd.StepKeyword
	for _, kw := range []bdd.StepKeyword{bdd.KeywordGiven, bdd.KeywordWhen, bdd.KeywordThen} {
		if used[kw] {
			keywords = append(keywords, kw)
		}
	}
	art.Imports = bdd.DedupImports(r.imports(keywords))
	art.SetupCode = r.setup(feature, keywords)
	return art, nil
}

type renderer interface {
	stub(sp *stepPattern, names *nameSet) string
	imports(keywords []bdd.StepKeyword) []string
	setup(feature string, keywords []bdd.StepKeyword) string
}

func rendererFor(t bdd.Target) (renderer, error) {
	switch {
	case t.Language == bdd.LanguagePython && t.Framework == bdd.FrameworkBehave:
		return behaveRenderer{}, nil
	case t.Language == bdd.LanguagePython && t.Framework == bdd.FrameworkPytestBDD:
		return pytestBDDRenderer{}, nil
	case t.Language == bdd.LanguageJavaScript && t.Framework == bdd.FrameworkCucumber:
		return cucumberJSRenderer{}, nil
	case t.Language == bdd.LanguageJavaScript && t.Framework == bdd.FrameworkJestCucumber:
		return jestCucumberRenderer{}, nil
	case t.Language == bdd.LanguageJava && t.Framework == bdd.FrameworkCucumber:
		return javaRenderer{}, nil
	case t.Language == bdd.LanguageCSharp && t.Framework == bdd.FrameworkCucumber:
		return csharpRenderer{}, nil
	}
	return nil, fmt.Errorf("%w: %s", bdd.ErrIncompatibleFramework, t)
}

// nameSet hands out unique function names. A repeated name gets the first
// free numeric suffix, so generated names never collide with derived ones.
type nameSet struct {
	used map[string]bool
	next map[string]int
}

func newNameSet() *nameSet {
	return &nameSet{used: make(map[string]bool), next: make(map[string]int)}
}

func (n *nameSet) unique(name, sep string) string {
	candidate := name
	for n.used[candidate] {
		n.next[name]++
		candidate = fmt.Sprintf("%s%s%d", name, sep, n.next[name]+1)
	}
	n.used[candidate] = true
	return candidate
}

func lowerKeywords(keywords []bdd.StepKeyword) []string {
	out := make([]string, len(keywords))
	for i, kw := range keywords {
		out[i] = strings.ToLower(string(kw))
	}
	return out
}

func pendingComment(sp *stepPattern) string {
	return string(sp.Keywords[0]) + " " + sp.Example
}

// Python

func pyRaw(pattern string) string {
	return "r'" + strings.ReplaceAll(pattern, "'", `\'`) + "'"
}

func pyString(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, "'", `\'`).Replace(s) + "'"
}

type behaveRenderer struct{}

func (behaveRenderer) stub(sp *stepPattern, names *nameSet) string {
	var sb strings.Builder
	for _, kw := range lowerKeywords(sp.Keywords) {
		fmt.Fprintf(&sb, "@%s(%s)\n", kw, pyRaw(sp.Pattern))
	}
	params := append([]string{"context"}, sp.argNames()...)
	fmt.Fprintf(&sb, "def %s(%s):\n", names.unique("step_"+SnakeName(sp.Example), "_"), strings.Join(params, ", "))
	fmt.Fprintf(&sb, "    raise NotImplementedError(%s)\n", pyString("STEP: "+pendingComment(sp)))
	return sb.String()
}

func (behaveRenderer) imports(keywords []bdd.StepKeyword) []string {
	names := append(lowerKeywords(keywords), "use_step_matcher")
	return []string{"from behave import " + strings.Join(names, ", ")}
}

func (behaveRenderer) setup(string, []bdd.StepKeyword) string {
	return `use_step_matcher("re")`
}

type pytestBDDRenderer struct{}

func (pytestBDDRenderer) stub(sp *stepPattern, names *nameSet) string {
	var sb strings.Builder
	for _, kw := range lowerKeywords(sp.Keywords) {
		fmt.Fprintf(&sb, "@%s(parsers.re(%s))\n", kw, pyRaw(sp.regex(true)))
	}
	fmt.Fprintf(&sb, "def %s(%s):\n", names.unique("step_"+SnakeName(sp.Example), "_"), strings.Join(sp.argNames(), ", "))
	fmt.Fprintf(&sb, "    raise NotImplementedError(%s)\n", pyString("STEP: "+pendingComment(sp)))
	return sb.String()
}

func (pytestBDDRenderer) imports(keywords []bdd.StepKeyword) []string {
	names := append([]string{"scenarios"}, lowerKeywords(keywords)...)
	names = append(names, "parsers")
	return []string{"from pytest_bdd import " + strings.Join(names, ", ")}
}

func (pytestBDDRenderer) setup(string, []bdd.StepKeyword) string {
	return `scenarios("features/")`
}

// JavaScript

func jsRegex(pattern string) string {
	return "/" + strings.ReplaceAll(pattern, "/", `\/`) + "/"
}

type cucumberJSRenderer struct{}

func (cucumberJSRenderer) stub(sp *stepPattern, _ *nameSet) string {
	var sb strings.Builder
	args := strings.Join(sp.argNames(), ", ")
	for i, kw := range sp.Keywords {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s(%s, function (%s) {\n", kw, jsRegex(sp.Pattern), args)
		fmt.Fprintf(&sb, "  // %s\n", pendingComment(sp))
		sb.WriteString("  return 'pending';\n")
		sb.WriteString("});\n")
	}
	return sb.String()
}

func (cucumberJSRenderer) imports(keywords []bdd.StepKeyword) []string {
	names := make([]string, len(keywords))
	for i, kw := range keywords {
		names[i] = string(kw)
	}
	return []string{"const { " + strings.Join(names, ", ") + " } = require('@cucumber/cucumber');"}
}

func (cucumberJSRenderer) setup(string, []bdd.StepKeyword) string { return "" }

type jestCucumberRenderer struct{}

func (jestCucumberRenderer) stub(sp *stepPattern, _ *nameSet) string {
	var sb strings.Builder
	args := strings.Join(sp.argNames(), ", ")
	for i, kw := range lowerKeywords(sp.Keywords) {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s(%s, (%s) => {\n", kw, jsRegex(sp.Pattern), args)
		fmt.Fprintf(&sb, "  // %s\n", pendingComment(sp))
		sb.WriteString("});\n")
	}
	return sb.String()
}

func (jestCucumberRenderer) imports([]bdd.StepKeyword) []string {
	return []string{"const { defineFeature, loadFeature } = require('jest-cucumber');"}
}

func (jestCucumberRenderer) setup(feature string, keywords []bdd.StepKeyword) string {
	name := "feature"
	if t := featureHeaderName(feature); t != "" {
		name = SnakeName(t)
	}
	var sb strings.Builder
	fmt.Fprintf(&sb, "const feature = loadFeature('./features/%s.feature');\n\n", name)
	sb.WriteString("defineFeature(feature, (test) => {\n")
	kws := strings.Join(lowerKeywords(keywords), ", ")
	for _, sc := range scenarioNames(feature) {
		fmt.Fprintf(&sb, "  test(%s, ({ %s }) => {\n", jsString(sc), kws)
		sb.WriteString("  });\n")
	}
	sb.WriteString("});\n")
	return sb.String()
}

func jsString(s string) string {
	return "'" + strings.NewReplacer(`\`, `\\`, "'", `\'`).Replace(s) + "'"
}

// Java

func javaString(s string) string {
	return `"` + strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s) + `"`
}

func typedParams(sp *stepPattern, intType, stringType string) string {
	params := make([]string, len(sp.Params))
	for i, k := range sp.Params {
		typ := stringType
		if k == paramInt {
			typ = intType
		}
		params[i] = fmt.Sprintf("%s arg%d", typ, i+1)
	}
	return strings.Join(params, ", ")
}

type javaRenderer struct{}

func (javaRenderer) stub(sp *stepPattern, names *nameSet) string {
	var sb strings.Builder
	for _, kw := range sp.Keywords {
		fmt.Fprintf(&sb, "@%s(%s)\n", kw, javaString(sp.Pattern))
	}
	name := strings.ToLower(string(sp.Keywords[0])) + CamelName(sp.Example, true)
	fmt.Fprintf(&sb, "public void %s(%s) {\n", names.unique(name, ""), typedParams(sp, "int", "String"))
	fmt.Fprintf(&sb, "    // %s\n", pendingComment(sp))
	sb.WriteString("    throw new PendingException();\n")
	sb.WriteString("}\n")
	return sb.String()
}

func (javaRenderer) imports(keywords []bdd.StepKeyword) []string {
	var out []string
	for _, kw := range keywords {
		out = append(out, "import io.cucumber.java.en."+string(kw)+";")
	}
	return append(out, "import io.cucumber.java.PendingException;")
}

func (javaRenderer) setup(string, []bdd.StepKeyword) string { return "" }

// C#

func csVerbatim(s string) string {
	return `@"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}

type csharpRenderer struct{}

func (csharpRenderer) stub(sp *stepPattern, names *nameSet) string {
	var sb strings.Builder
	for _, kw := range sp.Keywords {
		fmt.Fprintf(&sb, "[%s(%s)]\n", kw, csVerbatim(sp.Pattern))
	}
	name := string(sp.Keywords[0]) + CamelName(sp.Example, true)
	fmt.Fprintf(&sb, "public void %s(%s)\n{\n", names.unique(name, ""), typedParams(sp, "int", "string"))
	fmt.Fprintf(&sb, "    // %s\n", pendingComment(sp))
	sb.WriteString("    throw new PendingStepException();\n")
	sb.WriteString("}\n")
	return sb.String()
}

func (csharpRenderer) imports([]bdd.StepKeyword) []string {
	return []string{"using Reqnroll;"}
}

func (csharpRenderer) setup(string, []bdd.StepKeyword) string {
	return "[Binding]\npublic class StepDefinitions\n{\n}\n"
}

func featureHeaderName(feature string) string {
	for _, line := range strings.Split(feature, "\n") {
		if rest, ok := strings.CutPrefix(strings.TrimSpace(line), "Feature:"); ok {
			return strings.TrimSpace(rest)
		}
	}
	return ""
}

func scenarioNames(feature string) []string {
	var out []string
	for _, line := range strings.Split(feature, "\n") {
		line = strings.TrimSpace(line)
		for _, prefix := range []string{"Scenario Outline:", "Scenario:"} {
			if rest, ok := strings.CutPrefix(line, prefix); ok {
				out = append(out, strings.TrimSpace(rest))
				break
			}
		}
	}
	return out
}
