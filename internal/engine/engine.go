// Package engine holds the conversion service's text understanding:
// document classification, requirement parsing, Gherkin generation and
// step-definition generation.
package engine

import (
	"context"
	"strings"

	"github.com/dgallion1/bddgen/internal/bdd"
)

// Analysis is the classifier's result. Suggested is nil when no category
// reached SuggestThreshold.
type Analysis struct {
	Suggested *bdd.DocumentCategory
	Scores    map[bdd.DocumentCategory]float64
}

// FeatureWriter turns extracted document text into a Gherkin feature.
type FeatureWriter interface {
	WriteFeature(ctx context.Context, text string, category bdd.DocumentCategory, name string) (*bdd.FeatureArtifact, error)
}

// RuleWriter generates features from the rule-based requirement parser.
type RuleWriter struct{}

// WriteFeature parses text according to category and renders it.
func (RuleWriter) WriteFeature(_ context.Context, text string, category bdd.DocumentCategory, name string) (*bdd.FeatureArtifact, error) {
	parsed, err := ParseDocument(text, category)
	if err != nil {
		return nil, err
	}
	content, err := RenderFeature(parsed, name)
	if err != nil {
		return nil, err
	}
	return &bdd.FeatureArtifact{
		Content:        content,
		SuggestedSteps: SuggestSteps(content),
	}, nil
}

// FeatureName derives a feature name from an uploaded file name.
func FeatureName(filename string) string {
	base := filename
	if i := strings.LastIndexAny(base, `/\`); i >= 0 {
		base = base[i+1:]
	}
	if i := strings.LastIndex(base, "."); i > 0 {
		base = base[:i]
	}
	return base
}
