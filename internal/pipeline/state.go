package pipeline

import (
	"maps"
	"slices"

	"github.com/dgallion1/bddgen/internal/bdd"
)

// FeatureState is the document-to-feature pipeline's state.
type FeatureState string

const (
	FeatureIdle              FeatureState = "idle"
	FeatureDocumentSelected  FeatureState = "document_selected"
	FeatureAnalyzing         FeatureState = "analyzing"
	FeatureAnalysisDone      FeatureState = "analysis_done"
	FeatureCategoryConfirmed FeatureState = "category_confirmed"
	FeatureCompiling         FeatureState = "compiling"
	FeatureReady             FeatureState = "feature_ready"
)

// hasConfirmedCategory reports whether s carries a confirmed category.
func (s FeatureState) hasConfirmedCategory() bool {
	switch s {
	case FeatureCategoryConfirmed, FeatureCompiling, FeatureReady:
		return true
	}
	return false
}

// StepState is the feature-to-steps pipeline's state.
type StepState string

const (
	StepIdle               StepState = "idle"
	StepFeatureTextEntered StepState = "feature_text_entered"
	StepLanguageSelected   StepState = "language_selected"
	StepCompiling          StepState = "compiling"
	StepsReady             StepState = "steps_ready"
)

// featurePipeline holds every slot of the feature pipeline. Generation
// counters identify the newest request of each kind; a response whose
// generation is stale is discarded.
type featurePipeline struct {
	state FeatureState

	doc         bdd.Document
	suggested   *bdd.DocumentCategory
	analysisErr error
	confirmed   *bdd.DocumentCategory
	artifact    *bdd.FeatureArtifact
	lastErr     error

	// preCompile is the state to restore when a compile fails.
	preCompile FeatureState

	analyzeGen uint64
	compileGen uint64
}

type stepPipeline struct {
	state StepState

	feature  string
	target   bdd.Target
	artifact *bdd.StepDefinitionArtifact
	lastErr  error

	preCompile StepState
	compileGen uint64
}

// inputState derives the resting state from the entered inputs.
func (p *stepPipeline) inputState() StepState {
	switch {
	case p.feature == "":
		return StepIdle
	case p.target.IsZero():
		return StepFeatureTextEntered
	default:
		return StepLanguageSelected
	}
}

// FeatureSnapshot is a read-only copy of the feature pipeline.
type FeatureSnapshot struct {
	State             FeatureState          `json:"state"`
	Filename          string                `json:"filename,omitempty"`
	Format            bdd.DocumentFormat    `json:"format,omitempty"`
	SuggestedCategory *bdd.DocumentCategory `json:"suggested_category"`
	ConfirmedCategory *bdd.DocumentCategory `json:"confirmed_category"`
	Artifact          *bdd.FeatureArtifact  `json:"artifact,omitempty"`
	AnalysisError     string                `json:"analysis_error,omitempty"`
	LastError         string                `json:"last_error,omitempty"`
}

// StepSnapshot is a read-only copy of the step pipeline.
type StepSnapshot struct {
	State       StepState                   `json:"state"`
	FeatureText string                      `json:"feature_text,omitempty"`
	Target      bdd.Target                  `json:"target"`
	Artifact    *bdd.StepDefinitionArtifact `json:"artifact,omitempty"`
	LastError   string                      `json:"last_error,omitempty"`
}

// Snapshot is a read-only copy of a whole session.
type Snapshot struct {
	SessionID string          `json:"session_id"`
	Feature   FeatureSnapshot `json:"feature"`
	Steps     StepSnapshot    `json:"steps"`
}

func (p *featurePipeline) snapshot() FeatureSnapshot {
	s := FeatureSnapshot{
		State:             p.state,
		SuggestedCategory: copyCategory(p.suggested),
		ConfirmedCategory: copyCategory(p.confirmed),
		Artifact:          cloneFeature(p.artifact),
		AnalysisError:     errString(p.analysisErr),
		LastError:         errString(p.lastErr),
	}
	if !p.doc.IsZero() {
		s.Filename = p.doc.Filename()
		s.Format = p.doc.Format()
	}
	return s
}

func (p *stepPipeline) snapshot() StepSnapshot {
	return StepSnapshot{
		State:       p.state,
		FeatureText: p.feature,
		Target:      p.target,
		Artifact:    cloneSteps(p.artifact),
		LastError:   errString(p.lastErr),
	}
}

func copyCategory(c *bdd.DocumentCategory) *bdd.DocumentCategory {
	if c == nil {
		return nil
	}
	v := *c
	return &v
}

func cloneFeature(a *bdd.FeatureArtifact) *bdd.FeatureArtifact {
	if a == nil {
		return nil
	}
	return &bdd.FeatureArtifact{
		Content:        a.Content,
		SuggestedSteps: maps.Clone(a.SuggestedSteps),
	}
}

func cloneSteps(a *bdd.StepDefinitionArtifact) *bdd.StepDefinitionArtifact {
	if a == nil {
		return nil
	}
	return &bdd.StepDefinitionArtifact{
		StepDefinitions: maps.Clone(a.StepDefinitions),
		Imports:         slices.Clone(a.Imports),
		SetupCode:       a.SetupCode,
	}
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
