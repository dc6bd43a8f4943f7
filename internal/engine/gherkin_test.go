package engine

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/bddgen/internal/bdd"
)

const brdText = `1. The system must be able to export reports.
2. Users should have access to the dashboard.
When the user logs in then the dashboard is shown.
Background information only.`

const storyText = `As a customer, I want to reset my password so that I can regain access.
As an admin, I should be able to lock accounts.
Acceptance Criteria:
Given a registered user when they request a reset then an email is sent.
Verify the link expires after 24 hours.`

const testCaseText = `Test Case: Login
Preconditions: user account exists
Steps:
1. Open the login page
2. Enter valid credentials
Expected Result: the dashboard is displayed`

func TestParseDocument_Requirements(t *testing.T) {
	p, err := ParseDocument(brdText, bdd.CategoryBRD)
	require.NoError(t, err)
	assert.Equal(t, bdd.CategoryBRD, p.Category)
	assert.Len(t, p.Requirements, 2)
	assert.Equal(t, []string{"system", "user"}, p.Actors)
	assert.Equal(t, []string{"When the user logs in then the dashboard is shown."}, p.Scenarios)
}

func TestParseDocument_UserStories(t *testing.T) {
	p, err := ParseDocument(storyText, bdd.CategoryUserStory)
	require.NoError(t, err)
	require.Len(t, p.Stories, 2)

	assert.Equal(t, "customer", p.Stories[0].Role)
	assert.Equal(t, "reset my password", p.Stories[0].Want)
	assert.Equal(t, "I can regain access", p.Stories[0].Benefit)
	assert.Equal(t, "admin", p.Stories[1].Role)
	assert.Equal(t, "lock accounts", p.Stories[1].Want)
	assert.Empty(t, p.Stories[1].Benefit)

	require.Len(t, p.Stories[0].AcceptanceCriteria, 2)
	assert.Equal(t, "given", p.Stories[0].AcceptanceCriteria[0].Type)
	assert.Equal(t, "verification", p.Stories[0].AcceptanceCriteria[1].Type)
}

func TestParseDocument_TestCase(t *testing.T) {
	p, err := ParseDocument(testCaseText, bdd.CategoryTestCase)
	require.NoError(t, err)
	assert.Equal(t, []string{"user account exists"}, p.Preconditions)
	assert.Equal(t, []string{"Open the login page", "Enter valid credentials"}, p.Steps)
	assert.Equal(t, []string{"the dashboard is displayed"}, p.ExpectedResults)
}

func TestParseDocument_TestCaseShouldLines(t *testing.T) {
	p, err := ParseDocument("Step 1: Click save\nShould show a confirmation", bdd.CategoryTestCase)
	require.NoError(t, err)
	assert.Equal(t, []string{"Click save"}, p.Steps)
	assert.Equal(t, []string{"it should show a confirmation"}, p.ExpectedResults)
}

func TestParseDocument_UnknownCategory(t *testing.T) {
	_, err := ParseDocument("x", bdd.DocumentCategory("Epic"))
	assert.ErrorIs(t, err, bdd.ErrUnknownCategory)
}

func TestRenderFeature_Requirements(t *testing.T) {
	p, err := ParseDocument(brdText, bdd.CategoryBRD)
	require.NoError(t, err)

	out, err := RenderFeature(p, "requirements")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "Feature: Requirements\n"))
	assert.Contains(t, out, "  Actors: system, user\n")
	assert.Contains(t, out, "  Scenario: The system must be able to export reports\n")
	assert.Contains(t, out, "    Given the system is available\n")
	assert.Contains(t, out, "    When the system attempts to export reports\n")
	assert.Contains(t, out, "    Then the system should be able to export reports\n")
	assert.Contains(t, out, "    Then users should have access to the dashboard\n")
	assert.Contains(t, out, "    When the user logs in\n    Then the dashboard is shown\n")
	assert.Len(t, bdd.ExtractSteps(out), 8)
}

func TestRenderFeature_UserStories(t *testing.T) {
	p, err := ParseDocument(storyText, bdd.CategoryUserStory)
	require.NoError(t, err)

	out, err := RenderFeature(p, "login-stories")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "Feature: Login stories\n"))
	assert.Contains(t, out, "  Scenario: Reset my password\n    Given I am a customer\n    When I reset my password\n    Then I can regain access\n")
	assert.Contains(t, out, "    Given I am an admin\n")
	assert.Contains(t, out, "    Then I should be able to lock accounts\n")
	assert.Contains(t, out, "  Scenario: Acceptance criteria\n")
	assert.Contains(t, out, "    Given a registered user\n    When they request a reset\n    Then an email is sent\n    And verify the link expires after 24 hours\n")
}

func TestRenderFeature_TestCase(t *testing.T) {
	p, err := ParseDocument(testCaseText, bdd.CategoryTestCase)
	require.NoError(t, err)

	out, err := RenderFeature(p, "")
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(out, "Feature: Test Case Execution\n"))
	assert.Contains(t, out, `  Scenario: Execute test case
    Given user account exists
    When open the login page
    And enter valid credentials
    Then the dashboard is displayed
`)
}

func TestRenderFeature_NothingRecognized(t *testing.T) {
	p, err := ParseDocument("Just some notes.", bdd.CategoryFRD)
	require.NoError(t, err)

	out, err := RenderFeature(p, "notes")
	require.NoError(t, err)
	assert.True(t, bdd.HasFeatureHeader(out))
	assert.Contains(t, out, "# No scenarios could be derived")
	assert.Empty(t, bdd.ExtractSteps(out))
}

func TestRenderFeature_DuplicateScenarioNames(t *testing.T) {
	p := &Parsed{
		Category:     bdd.CategoryFRD,
		Requirements: []string{"The system must log in.", "The system must log in."},
	}
	out, err := RenderFeature(p, "dup")
	require.NoError(t, err)
	assert.Contains(t, out, "Scenario: The system must log in\n")
	assert.Contains(t, out, "Scenario: The system must log in (2)\n")
}

func TestRuleWriter_SuggestedSteps(t *testing.T) {
	art, err := RuleWriter{}.WriteFeature(context.Background(), brdText, bdd.CategoryBRD, "requirements")
	require.NoError(t, err)
	assert.True(t, bdd.HasFeatureHeader(art.Content))
	assert.Equal(t, "step_the_system_is_available", art.SuggestedSteps["Given the system is available"])
	assert.Equal(t, "step_the_user_logs_in", art.SuggestedSteps["When the user logs in"])
}

func TestFeatureName(t *testing.T) {
	assert.Equal(t, "requirements", FeatureName("requirements.pdf"))
	assert.Equal(t, "stories", FeatureName(`C:\docs\stories.docx`))
	assert.Equal(t, ".env", FeatureName(".env"))
}
