package engine

import (
	"fmt"
	"strings"

	"github.com/dgallion1/bddgen/internal/bdd"
)

const FeatureSystemPrompt = `You convert software requirement documents into Gherkin feature files for BDD test automation.`

const featureInstructions = `Write one Gherkin feature file for the document below.

Rules:
- Start with "Feature: <name>" using the feature name given
- Write one Scenario per distinct requirement, user story or test case
- Use Given for context, When for actions, Then for outcomes; use And for repeated keywords
- Keep quoted values in double quotes and numbers as digits so they can become step parameters
- Do not invent behavior the document does not describe
- Indent scenarios by two spaces and steps by four

Respond with ONLY the feature file, no other text.`

// categoryHints tell the model how each document type is organized.
var categoryHints = map[bdd.DocumentCategory]string{
	bdd.CategoryBRD:       "This is a Business Requirements Document. Turn each business requirement into a scenario from the stakeholder's point of view.",
	bdd.CategoryFRD:       "This is a Functional Requirements Document. Turn each system requirement into a scenario that exercises the system behavior.",
	bdd.CategoryUserStory: `This document contains user stories. Each "As a ... I want ... so that ..." becomes a scenario; acceptance criteria become steps.`,
	bdd.CategoryTestCase:  "This is a test case. Preconditions become Given steps, test steps become When steps and expected results become Then steps.",
}

// BuildFeaturePrompt creates the user prompt for feature generation.
func BuildFeaturePrompt(category bdd.DocumentCategory, featureName, text string) string {
	var sb strings.Builder
	sb.WriteString(featureInstructions)
	sb.WriteString("\n\n---\n")
	sb.WriteString(fmt.Sprintf("Feature name: %q\n", featureName))
	sb.WriteString(fmt.Sprintf("Document type: %s\n", category))
	if hint := categoryHints[category]; hint != "" {
		sb.WriteString(hint)
		sb.WriteString("\n")
	}
	sb.WriteString("---\n")
	sb.WriteString(text)
	return sb.String()
}
