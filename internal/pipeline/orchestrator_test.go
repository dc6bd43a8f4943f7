package pipeline

import (
	"context"
	"io"
	"log/slog"
	"slices"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dgallion1/bddgen/internal/bdd"
)

// Fakes with fixed answers.

type stubAnalyzer struct {
	calls atomic.Int32
	res   *bdd.AnalysisResult
	err   error
}

func (s *stubAnalyzer) Analyze(context.Context, bdd.Document) (*bdd.AnalysisResult, error) {
	s.calls.Add(1)
	return s.res, s.err
}

type stubFeatures struct {
	calls atomic.Int32
	art   *bdd.FeatureArtifact
	err   error
}

func (s *stubFeatures) CompileFeature(_ context.Context, _ bdd.Document, cat bdd.DocumentCategory) (*bdd.FeatureArtifact, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	if s.art != nil {
		return s.art, nil
	}
	return featureFor(string(cat)), nil
}

type stubSteps struct {
	calls atomic.Int32
	art   *bdd.StepDefinitionArtifact
	err   error
}

func (s *stubSteps) CompileSteps(context.Context, string, bdd.Target) (*bdd.StepDefinitionArtifact, error) {
	s.calls.Add(1)
	if s.err != nil {
		return nil, s.err
	}
	if s.art != nil {
		return s.art, nil
	}
	return stepsFor("a user"), nil
}

// Gated fakes: every call announces itself on calls and blocks until the
// test sends its result.

type result[T any] struct {
	val T
	err error
}

type gatedCall[T any] struct {
	arg     string
	release chan result[T]
}

type gate[T any] struct {
	calls chan *gatedCall[T]
}

func newGate[T any]() *gate[T] {
	return &gate[T]{calls: make(chan *gatedCall[T])}
}

func (g *gate[T]) wait(arg string) (T, error) {
	c := &gatedCall[T]{arg: arg, release: make(chan result[T], 1)}
	g.calls <- c
	r := <-c.release
	return r.val, r.err
}

type gatedAnalyzer struct{ *gate[*bdd.AnalysisResult] }

func (g gatedAnalyzer) Analyze(_ context.Context, doc bdd.Document) (*bdd.AnalysisResult, error) {
	return g.wait(doc.Filename())
}

type gatedFeatures struct{ *gate[*bdd.FeatureArtifact] }

func (g gatedFeatures) CompileFeature(_ context.Context, _ bdd.Document, cat bdd.DocumentCategory) (*bdd.FeatureArtifact, error) {
	return g.wait(string(cat))
}

type gatedSteps struct{ *gate[*bdd.StepDefinitionArtifact] }

func (g gatedSteps) CompileSteps(_ context.Context, _ string, target bdd.Target) (*bdd.StepDefinitionArtifact, error) {
	return g.wait(target.String())
}

// async runs fn in a goroutine and delivers its outcome.
func async[T any](fn func() (T, error)) <-chan result[T] {
	ch := make(chan result[T], 1)
	go func() {
		v, err := fn()
		ch <- result[T]{val: v, err: err}
	}()
	return ch
}

func featureFor(name string) *bdd.FeatureArtifact {
	return &bdd.FeatureArtifact{
		Content:        "Feature: " + name + "\n  Scenario: s\n    Given a user\n",
		SuggestedSteps: map[string]string{"Given a user": "step_a_user"},
	}
}

func stepsFor(step string) *bdd.StepDefinitionArtifact {
	return &bdd.StepDefinitionArtifact{
		StepDefinitions: map[string]string{"^" + step + "$": "stub"},
		Imports:         []string{"from behave import given", "from behave import given"},
	}
}

func ptr[T any](v T) *T { return &v }

var testDoc = bdd.NewDocument("requirements.pdf", []byte("%PDF-1.4"))

const testFeature = "Feature: Login\n  Scenario: ok\n    Given a user\n"

func newTestOrchestrator(a Analyzer, f FeatureCompiler, s StepCompiler) *Orchestrator {
	return NewOrchestrator(a, f, s, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestNewOrchestrator_Idle(t *testing.T) {
	o := newTestOrchestrator(&stubAnalyzer{}, &stubFeatures{}, &stubSteps{})
	assert.Equal(t, FeatureIdle, o.FeatureState())
	assert.Equal(t, StepIdle, o.StepState())
	assert.NotEmpty(t, o.SessionID())
	assert.NotEqual(t, o.SessionID(), newTestOrchestrator(nil, nil, nil).SessionID())
}

func TestSelectDocument(t *testing.T) {
	features := &stubFeatures{}
	o := newTestOrchestrator(&stubAnalyzer{}, features, &stubSteps{})

	assert.ErrorIs(t, o.SelectDocument(bdd.Document{}), bdd.ErrValidation)
	assert.Equal(t, FeatureIdle, o.FeatureState())

	require.NoError(t, o.SelectDocument(testDoc))
	require.NoError(t, o.ConfirmCategory(bdd.CategoryBRD))
	_, err := o.GenerateFeature(context.Background())
	require.NoError(t, err)
	require.Equal(t, FeatureReady, o.FeatureState())

	require.NoError(t, o.SelectDocument(bdd.NewDocument("other.docx", []byte("x"))))
	snap := o.Snapshot().Feature
	assert.Equal(t, FeatureDocumentSelected, snap.State)
	assert.Equal(t, "other.docx", snap.Filename)
	assert.Equal(t, bdd.FormatDOCX, snap.Format)
	assert.Nil(t, snap.Artifact)
	assert.Nil(t, snap.ConfirmedCategory)
}

func TestAnalyze_Suggestion(t *testing.T) {
	analyzer := &stubAnalyzer{res: &bdd.AnalysisResult{SuggestedCategory: ptr(bdd.CategoryBRD)}}
	o := newTestOrchestrator(analyzer, &stubFeatures{}, &stubSteps{})
	require.NoError(t, o.SelectDocument(testDoc))

	res, err := o.Analyze(context.Background())
	require.NoError(t, err)
	require.NotNil(t, res.SuggestedCategory)
	assert.Equal(t, bdd.CategoryBRD, *res.SuggestedCategory)

	snap := o.Snapshot().Feature
	assert.Equal(t, FeatureAnalysisDone, snap.State)
	assert.Equal(t, bdd.CategoryBRD, *snap.SuggestedCategory)
	assert.Nil(t, snap.ConfirmedCategory)

	// Re-analysis from AnalysisDone is allowed.
	_, err = o.Analyze(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(2), analyzer.calls.Load())
}

func TestAnalyze_Preconditions(t *testing.T) {
	analyzer := &stubAnalyzer{res: &bdd.AnalysisResult{}}
	o := newTestOrchestrator(analyzer, &stubFeatures{}, &stubSteps{})

	_, err := o.Analyze(context.Background())
	assert.ErrorIs(t, err, bdd.ErrPrecondition)

	require.NoError(t, o.SelectDocument(testDoc))
	require.NoError(t, o.ConfirmCategory(bdd.CategoryFRD))
	_, err = o.Analyze(context.Background())
	assert.ErrorIs(t, err, bdd.ErrPrecondition)
	assert.Zero(t, analyzer.calls.Load())
}

func TestAnalyze_FailureIsNotFatal(t *testing.T) {
	analyzer := &stubAnalyzer{err: &bdd.UpstreamError{Op: "analyze", StatusCode: 503, Message: "down"}}
	features := &stubFeatures{}
	o := newTestOrchestrator(analyzer, features, &stubSteps{})
	require.NoError(t, o.SelectDocument(testDoc))

	res, err := o.Analyze(context.Background())
	require.NotNil(t, res)
	assert.Nil(t, res.SuggestedCategory)
	var ae *bdd.AnalysisError
	require.ErrorAs(t, err, &ae)
	assert.ErrorIs(t, err, bdd.ErrUpstream)

	snap := o.Snapshot().Feature
	assert.Equal(t, FeatureAnalysisDone, snap.State)
	assert.Nil(t, snap.SuggestedCategory)
	assert.Contains(t, snap.AnalysisError, "status 503")

	require.NoError(t, o.ConfirmCategory(bdd.CategoryTestCase))
	art, err := o.GenerateFeature(context.Background())
	require.NoError(t, err)
	assert.Contains(t, art.Content, "Feature: Test Case")
}

func TestAnalyze_OutOfEnumerationSuggestion(t *testing.T) {
	analyzer := &stubAnalyzer{res: &bdd.AnalysisResult{SuggestedCategory: ptr(bdd.DocumentCategory("Epic"))}}
	o := newTestOrchestrator(analyzer, &stubFeatures{}, &stubSteps{})
	require.NoError(t, o.SelectDocument(testDoc))

	res, err := o.Analyze(context.Background())
	assert.ErrorIs(t, err, bdd.ErrParse)
	assert.Nil(t, res.SuggestedCategory)
	assert.Nil(t, o.Snapshot().Feature.SuggestedCategory)
}

func TestAnalyze_ValidationFailureRevertsState(t *testing.T) {
	analyzer := &stubAnalyzer{err: bdd.ErrUnsupportedFormat}
	o := newTestOrchestrator(analyzer, &stubFeatures{}, &stubSteps{})
	require.NoError(t, o.SelectDocument(bdd.NewDocument("notes.md", []byte("x"))))

	res, err := o.Analyze(context.Background())
	assert.Nil(t, res)
	assert.ErrorIs(t, err, bdd.ErrValidation)
	assert.Equal(t, FeatureDocumentSelected, o.FeatureState())
}

func TestAnalyze_LateResultAfterConfirm(t *testing.T) {
	g := newGate[*bdd.AnalysisResult]()
	o := newTestOrchestrator(gatedAnalyzer{g}, &stubFeatures{}, &stubSteps{})
	require.NoError(t, o.SelectDocument(testDoc))

	done := async(func() (*bdd.AnalysisResult, error) { return o.Analyze(context.Background()) })
	call := <-g.calls
	assert.Equal(t, FeatureAnalyzing, o.FeatureState())

	require.NoError(t, o.ConfirmCategory(bdd.CategoryFRD))
	call.release <- result[*bdd.AnalysisResult]{val: &bdd.AnalysisResult{SuggestedCategory: ptr(bdd.CategoryBRD)}}
	r := <-done
	require.NoError(t, r.err)

	snap := o.Snapshot().Feature
	assert.Equal(t, FeatureCategoryConfirmed, snap.State)
	assert.Equal(t, bdd.CategoryBRD, *snap.SuggestedCategory)
	assert.Equal(t, bdd.CategoryFRD, *snap.ConfirmedCategory)
}

func TestAnalyze_Superseded(t *testing.T) {
	g := newGate[*bdd.AnalysisResult]()
	o := newTestOrchestrator(gatedAnalyzer{g}, &stubFeatures{}, &stubSteps{})
	require.NoError(t, o.SelectDocument(testDoc))

	first := async(func() (*bdd.AnalysisResult, error) { return o.Analyze(context.Background()) })
	c1 := <-g.calls
	second := async(func() (*bdd.AnalysisResult, error) { return o.Analyze(context.Background()) })
	c2 := <-g.calls

	c1.release <- result[*bdd.AnalysisResult]{val: &bdd.AnalysisResult{SuggestedCategory: ptr(bdd.CategoryBRD)}}
	r1 := <-first
	assert.ErrorIs(t, r1.err, bdd.ErrSuperseded)
	assert.Equal(t, FeatureAnalyzing, o.FeatureState())

	c2.release <- result[*bdd.AnalysisResult]{val: &bdd.AnalysisResult{SuggestedCategory: ptr(bdd.CategoryFRD)}}
	r2 := <-second
	require.NoError(t, r2.err)
	assert.Equal(t, bdd.CategoryFRD, *o.Snapshot().Feature.SuggestedCategory)
}

func TestGenerateFeature_RequiresConfirmedCategory(t *testing.T) {
	g := newGate[*bdd.AnalysisResult]()
	features := &stubFeatures{}
	o := newTestOrchestrator(gatedAnalyzer{g}, features, &stubSteps{})
	ctx := context.Background()

	assertRejected := func(want FeatureState) {
		t.Helper()
		require.Equal(t, want, o.FeatureState())
		_, err := o.GenerateFeature(ctx)
		assert.ErrorIs(t, err, bdd.ErrPrecondition, "from %s", want)
		assert.Equal(t, want, o.FeatureState())
	}

	assertRejected(FeatureIdle)

	require.NoError(t, o.SelectDocument(testDoc))
	assertRejected(FeatureDocumentSelected)

	done := async(func() (*bdd.AnalysisResult, error) { return o.Analyze(ctx) })
	call := <-g.calls
	assertRejected(FeatureAnalyzing)

	call.release <- result[*bdd.AnalysisResult]{val: &bdd.AnalysisResult{SuggestedCategory: ptr(bdd.CategoryBRD)}}
	require.NoError(t, (<-done).err)
	// A suggestion alone is not a confirmation.
	assertRejected(FeatureAnalysisDone)

	assert.Zero(t, features.calls.Load())
}

func TestConfirmCategory(t *testing.T) {
	features := &stubFeatures{}
	o := newTestOrchestrator(&stubAnalyzer{}, features, &stubSteps{})

	assert.ErrorIs(t, o.ConfirmCategory(bdd.CategoryBRD), bdd.ErrPrecondition)
	require.NoError(t, o.SelectDocument(testDoc))
	assert.ErrorIs(t, o.ConfirmCategory(bdd.DocumentCategory("Epic")), bdd.ErrUnknownCategory)

	// Legal straight from DocumentSelected.
	require.NoError(t, o.ConfirmCategory(bdd.CategoryBRD))
	assert.Equal(t, FeatureCategoryConfirmed, o.FeatureState())
}

func TestConfirmCategory_Idempotent(t *testing.T) {
	o := newTestOrchestrator(&stubAnalyzer{}, &stubFeatures{}, &stubSteps{})
	require.NoError(t, o.SelectDocument(testDoc))

	require.NoError(t, o.ConfirmCategory(bdd.CategoryBRD))
	before := o.Snapshot()
	require.NoError(t, o.ConfirmCategory(bdd.CategoryBRD))
	assert.Equal(t, before, o.Snapshot())

	_, err := o.GenerateFeature(context.Background())
	require.NoError(t, err)
	before = o.Snapshot()
	require.NoError(t, o.ConfirmCategory(bdd.CategoryBRD))
	assert.Equal(t, before, o.Snapshot())
	assert.Equal(t, FeatureReady, o.FeatureState())

	// A different category discards the artifact.
	require.NoError(t, o.ConfirmCategory(bdd.CategoryFRD))
	snap := o.Snapshot().Feature
	assert.Equal(t, FeatureCategoryConfirmed, snap.State)
	assert.Nil(t, snap.Artifact)
	assert.Equal(t, bdd.CategoryFRD, *snap.ConfirmedCategory)
}

func TestGenerateFeature_LastWriterWins(t *testing.T) {
	for _, order := range []string{"second resolves first", "first resolves first"} {
		t.Run(order, func(t *testing.T) {
			g := newGate[*bdd.FeatureArtifact]()
			o := newTestOrchestrator(&stubAnalyzer{}, gatedFeatures{g}, &stubSteps{})
			require.NoError(t, o.SelectDocument(testDoc))
			require.NoError(t, o.ConfirmCategory(bdd.CategoryBRD))
			ctx := context.Background()

			first := async(func() (*bdd.FeatureArtifact, error) { return o.GenerateFeature(ctx) })
			c1 := <-g.calls
			second := async(func() (*bdd.FeatureArtifact, error) { return o.GenerateFeature(ctx) })
			c2 := <-g.calls

			var r1, r2 result[*bdd.FeatureArtifact]
			if order == "first resolves first" {
				c1.release <- result[*bdd.FeatureArtifact]{val: featureFor("First")}
				r1 = <-first
				assert.Equal(t, FeatureCompiling, o.FeatureState())
				c2.release <- result[*bdd.FeatureArtifact]{val: featureFor("Second")}
				r2 = <-second
			} else {
				c2.release <- result[*bdd.FeatureArtifact]{val: featureFor("Second")}
				r2 = <-second
				c1.release <- result[*bdd.FeatureArtifact]{val: featureFor("First")}
				r1 = <-first
			}

			assert.ErrorIs(t, r1.err, bdd.ErrSuperseded)
			assert.Nil(t, r1.val)
			require.NoError(t, r2.err)
			assert.Contains(t, r2.val.Content, "Feature: Second")

			snap := o.Snapshot().Feature
			assert.Equal(t, FeatureReady, snap.State)
			assert.Contains(t, snap.Artifact.Content, "Feature: Second")
		})
	}
}

func TestGenerateFeature_SupersededByNewCategory(t *testing.T) {
	g := newGate[*bdd.FeatureArtifact]()
	o := newTestOrchestrator(&stubAnalyzer{}, gatedFeatures{g}, &stubSteps{})
	require.NoError(t, o.SelectDocument(testDoc))
	require.NoError(t, o.ConfirmCategory(bdd.CategoryBRD))

	done := async(func() (*bdd.FeatureArtifact, error) { return o.GenerateFeature(context.Background()) })
	call := <-g.calls
	assert.Equal(t, "BRD", call.arg)

	require.NoError(t, o.ConfirmCategory(bdd.CategoryFRD))
	call.release <- result[*bdd.FeatureArtifact]{val: featureFor("Stale")}
	r := <-done
	assert.ErrorIs(t, r.err, bdd.ErrSuperseded)

	snap := o.Snapshot().Feature
	assert.Equal(t, FeatureCategoryConfirmed, snap.State)
	assert.Nil(t, snap.Artifact)
}

func TestGenerateFeature_FailureRevertsToPreCallState(t *testing.T) {
	features := &stubFeatures{err: &bdd.UpstreamError{Op: "convert to feature", StatusCode: 500, Message: "boom"}}
	o := newTestOrchestrator(&stubAnalyzer{}, features, &stubSteps{})
	require.NoError(t, o.SelectDocument(testDoc))
	require.NoError(t, o.ConfirmCategory(bdd.CategoryBRD))
	ctx := context.Background()

	_, err := o.GenerateFeature(ctx)
	assert.ErrorIs(t, err, bdd.ErrUpstream)
	snap := o.Snapshot().Feature
	assert.Equal(t, FeatureCategoryConfirmed, snap.State)
	assert.Nil(t, snap.Artifact)
	assert.Contains(t, snap.LastError, "boom")

	// Retrying is just issuing the call again.
	features.err = nil
	_, err = o.GenerateFeature(ctx)
	require.NoError(t, err)
	assert.Empty(t, o.Snapshot().Feature.LastError)

	// A failed regenerate keeps the ready artifact.
	features.err = &bdd.UpstreamError{Op: "convert to feature", Err: context.DeadlineExceeded}
	_, err = o.GenerateFeature(ctx)
	assert.ErrorIs(t, err, bdd.ErrUpstream)
	snap = o.Snapshot().Feature
	assert.Equal(t, FeatureReady, snap.State)
	assert.Contains(t, snap.Artifact.Content, "Feature: BRD")
	assert.Equal(t, int32(3), features.calls.Load())
}

func TestGenerateFeature_RejectsHeaderlessResult(t *testing.T) {
	features := &stubFeatures{art: &bdd.FeatureArtifact{Content: "Scenario: x"}}
	o := newTestOrchestrator(&stubAnalyzer{}, features, &stubSteps{})
	require.NoError(t, o.SelectDocument(testDoc))
	require.NoError(t, o.ConfirmCategory(bdd.CategoryBRD))

	_, err := o.GenerateFeature(context.Background())
	assert.ErrorIs(t, err, bdd.ErrParse)
	assert.Equal(t, FeatureCategoryConfirmed, o.FeatureState())
}

func TestStepPipeline_States(t *testing.T) {
	steps := &stubSteps{}
	o := newTestOrchestrator(&stubAnalyzer{}, &stubFeatures{}, steps)
	ctx := context.Background()

	_, err := o.GenerateSteps(ctx)
	assert.ErrorIs(t, err, bdd.ErrPrecondition)

	o.SetFeatureText("   ")
	assert.Equal(t, StepIdle, o.StepState())

	o.SetFeatureText(testFeature)
	assert.Equal(t, StepFeatureTextEntered, o.StepState())
	_, err = o.GenerateSteps(ctx)
	assert.ErrorIs(t, err, bdd.ErrPrecondition)

	o.SelectLanguage(bdd.NewTarget("python", "behave"))
	assert.Equal(t, StepLanguageSelected, o.StepState())

	art, err := o.GenerateSteps(ctx)
	require.NoError(t, err)
	assert.Equal(t, StepsReady, o.StepState())
	assert.Equal(t, []string{"from behave import given"}, art.Imports)
	assert.Equal(t, int32(1), steps.calls.Load())

	// Editing inputs after success moves back to the input states.
	o.SetFeatureText("")
	assert.Equal(t, StepIdle, o.StepState())
}

func TestGenerateSteps_IncompatiblePairsNeverCallCompiler(t *testing.T) {
	languages := append(slices.Clone(bdd.Languages), "cobol")
	frameworks := []bdd.Framework{"", bdd.FrameworkBehave, bdd.FrameworkPytestBDD, bdd.FrameworkCucumber, bdd.FrameworkJestCucumber, "mocha"}

	for _, lang := range languages {
		for _, fw := range frameworks {
			target := bdd.Target{Language: lang, Framework: fw}
			steps := &stubSteps{}
			o := newTestOrchestrator(&stubAnalyzer{}, &stubFeatures{}, steps)
			o.SetFeatureText(testFeature)
			o.SelectLanguage(target)

			_, err := o.GenerateSteps(context.Background())

			compatible := fw == "" || slices.Contains(bdd.Compatibility[lang], fw)
			if _, known := bdd.Compatibility[lang]; !known {
				compatible = false
			}
			if compatible {
				assert.NoError(t, err, target.String())
				assert.Equal(t, int32(1), steps.calls.Load(), target.String())
			} else {
				assert.ErrorIs(t, err, bdd.ErrValidation, target.String())
				assert.Zero(t, steps.calls.Load(), target.String())
				assert.Equal(t, StepLanguageSelected, o.StepState(), target.String())
			}
		}
	}
}

func TestGenerateSteps_FailureAndEmptyResult(t *testing.T) {
	steps := &stubSteps{err: &bdd.UpstreamError{Op: "generate steps", StatusCode: 502}}
	o := newTestOrchestrator(&stubAnalyzer{}, &stubFeatures{}, steps)
	o.SetFeatureText(testFeature)
	o.SelectLanguage(bdd.NewTarget("java", ""))
	ctx := context.Background()

	_, err := o.GenerateSteps(ctx)
	assert.ErrorIs(t, err, bdd.ErrUpstream)
	assert.Equal(t, StepLanguageSelected, o.StepState())
	assert.Nil(t, o.Snapshot().Steps.Artifact)

	steps.err = nil
	steps.art = &bdd.StepDefinitionArtifact{}
	_, err = o.GenerateSteps(ctx)
	assert.ErrorIs(t, err, bdd.ErrParse)
	assert.Equal(t, StepLanguageSelected, o.StepState())

	// A failure after success keeps the previous definitions.
	steps.art = nil
	_, err = o.GenerateSteps(ctx)
	require.NoError(t, err)
	steps.err = &bdd.UpstreamError{Op: "generate steps", StatusCode: 500}
	_, err = o.GenerateSteps(ctx)
	assert.Error(t, err)
	snap := o.Snapshot().Steps
	assert.Equal(t, StepsReady, snap.State)
	assert.NotNil(t, snap.Artifact)
}

func TestGenerateSteps_LastWriterWins(t *testing.T) {
	g := newGate[*bdd.StepDefinitionArtifact]()
	o := newTestOrchestrator(&stubAnalyzer{}, &stubFeatures{}, gatedSteps{g})
	o.SetFeatureText(testFeature)
	o.SelectLanguage(bdd.NewTarget("python", ""))
	ctx := context.Background()

	first := async(func() (*bdd.StepDefinitionArtifact, error) { return o.GenerateSteps(ctx) })
	c1 := <-g.calls
	o.SelectLanguage(bdd.NewTarget("javascript", "cucumber"))
	second := async(func() (*bdd.StepDefinitionArtifact, error) { return o.GenerateSteps(ctx) })
	c2 := <-g.calls
	assert.Equal(t, "python", c1.arg)
	assert.Equal(t, "javascript/cucumber", c2.arg)

	c2.release <- result[*bdd.StepDefinitionArtifact]{val: stepsFor("second")}
	require.NoError(t, (<-second).err)
	c1.release <- result[*bdd.StepDefinitionArtifact]{val: stepsFor("first")}
	assert.ErrorIs(t, (<-first).err, bdd.ErrSuperseded)

	snap := o.Snapshot().Steps
	assert.Equal(t, StepsReady, snap.State)
	assert.Contains(t, snap.Artifact.StepDefinitions, "^second$")
}

func TestPipelinesAreIndependent(t *testing.T) {
	g := newGate[*bdd.FeatureArtifact]()
	o := newTestOrchestrator(&stubAnalyzer{}, gatedFeatures{g}, &stubSteps{})
	require.NoError(t, o.SelectDocument(testDoc))
	require.NoError(t, o.ConfirmCategory(bdd.CategoryBRD))

	done := async(func() (*bdd.FeatureArtifact, error) { return o.GenerateFeature(context.Background()) })
	call := <-g.calls

	// The step pipeline runs while a feature compile is outstanding.
	o.SetFeatureText(testFeature)
	o.SelectLanguage(bdd.NewTarget("csharp", ""))
	_, err := o.GenerateSteps(context.Background())
	require.NoError(t, err)
	assert.Equal(t, FeatureCompiling, o.FeatureState())

	call.release <- result[*bdd.FeatureArtifact]{val: featureFor("Done")}
	require.NoError(t, (<-done).err)
}

func TestUseGeneratedFeature(t *testing.T) {
	o := newTestOrchestrator(&stubAnalyzer{}, &stubFeatures{}, &stubSteps{})
	assert.ErrorIs(t, o.UseGeneratedFeature(), bdd.ErrPrecondition)

	require.NoError(t, o.SelectDocument(testDoc))
	require.NoError(t, o.ConfirmCategory(bdd.CategoryUserStory))
	art, err := o.GenerateFeature(context.Background())
	require.NoError(t, err)

	require.NoError(t, o.UseGeneratedFeature())
	snap := o.Snapshot().Steps
	assert.Equal(t, StepFeatureTextEntered, snap.State)
	assert.Equal(t, art.Content, snap.FeatureText)
}

func TestReset(t *testing.T) {
	g := newGate[*bdd.StepDefinitionArtifact]()
	o := newTestOrchestrator(&stubAnalyzer{}, &stubFeatures{}, gatedSteps{g})
	require.NoError(t, o.SelectDocument(testDoc))
	require.NoError(t, o.ConfirmCategory(bdd.CategoryBRD))
	o.SetFeatureText(testFeature)
	o.SelectLanguage(bdd.NewTarget("python", ""))

	done := async(func() (*bdd.StepDefinitionArtifact, error) { return o.GenerateSteps(context.Background()) })
	call := <-g.calls
	o.Reset()
	call.release <- result[*bdd.StepDefinitionArtifact]{val: stepsFor("late")}
	assert.ErrorIs(t, (<-done).err, bdd.ErrSuperseded)

	snap := o.Snapshot()
	assert.Equal(t, FeatureIdle, snap.Feature.State)
	assert.Nil(t, snap.Feature.ConfirmedCategory)
	assert.Equal(t, StepIdle, snap.Steps.State)
	assert.Nil(t, snap.Steps.Artifact)
	assert.Empty(t, snap.Steps.FeatureText)
}

func TestSnapshot_IsACopy(t *testing.T) {
	o := newTestOrchestrator(&stubAnalyzer{}, &stubFeatures{}, &stubSteps{})
	require.NoError(t, o.SelectDocument(testDoc))
	require.NoError(t, o.ConfirmCategory(bdd.CategoryBRD))
	art, err := o.GenerateFeature(context.Background())
	require.NoError(t, err)

	art.SuggestedSteps["Given x"] = "mutated"
	snap := o.Snapshot()
	snap.Feature.Artifact.SuggestedSteps["Given y"] = "mutated"
	*snap.Feature.ConfirmedCategory = bdd.CategoryFRD

	again := o.Snapshot().Feature
	assert.Len(t, again.Artifact.SuggestedSteps, 1)
	assert.Equal(t, bdd.CategoryBRD, *again.ConfirmedCategory)
}
