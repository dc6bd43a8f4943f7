package bdd

import (
	"fmt"
	"slices"
	"strings"
)

// ProgrammingLanguage is a step-definition target language.
type ProgrammingLanguage string

const (
	LanguagePython     ProgrammingLanguage = "python"
	LanguageJavaScript ProgrammingLanguage = "javascript"
	LanguageJava       ProgrammingLanguage = "java"
	LanguageCSharp     ProgrammingLanguage = "csharp"
)

// Framework is a BDD test framework.
type Framework string

const (
	FrameworkBehave       Framework = "behave"
	FrameworkPytestBDD    Framework = "pytest-bdd"
	FrameworkCucumber     Framework = "cucumber"
	FrameworkJestCucumber Framework = "jest-cucumber"
)

// Compatibility lists the frameworks each language supports. The first
// entry is the language's default framework.
var Compatibility = map[ProgrammingLanguage][]Framework{
	LanguagePython:     {FrameworkBehave, FrameworkPytestBDD},
	LanguageJavaScript: {FrameworkCucumber, FrameworkJestCucumber},
	LanguageJava:       {FrameworkCucumber},
	LanguageCSharp:     {FrameworkCucumber},
}

// Languages lists the supported languages in display order.
var Languages = []ProgrammingLanguage{LanguagePython, LanguageJavaScript, LanguageJava, LanguageCSharp}

// Target is a (language, framework) selection. An empty Framework means
// "none chosen".
type Target struct {
	Language  ProgrammingLanguage
	Framework Framework
}

// NewTarget normalizes user input into a Target without validating it.
func NewTarget(language, framework string) Target {
	return Target{
		Language:  ProgrammingLanguage(strings.ToLower(strings.TrimSpace(language))),
		Framework: Framework(strings.ToLower(strings.TrimSpace(framework))),
	}
}

// IsZero reports whether no language was selected.
func (t Target) IsZero() bool { return t.Language == "" }

// Validate checks the selection against the compatibility table.
func (t Target) Validate() error {
	frameworks, ok := Compatibility[t.Language]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnsupportedLanguage, t.Language)
	}
	if t.Framework == "" {
		return nil
	}
	if !slices.Contains(frameworks, t.Framework) {
		return fmt.Errorf("%w: %s does not support %q", ErrIncompatibleFramework, t.Language, t.Framework)
	}
	return nil
}

// Resolved fills in the language's default framework when none was chosen.
// It assumes t is valid.
func (t Target) Resolved() Target {
	if t.Framework == "" {
		if frameworks := Compatibility[t.Language]; len(frameworks) > 0 {
			t.Framework = frameworks[0]
		}
	}
	return t
}

func (t Target) String() string {
	if t.Framework == "" {
		return string(t.Language)
	}
	return string(t.Language) + "/" + string(t.Framework)
}
