package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dgallion1/bddgen/internal/bdd"
)

// Analyzer suggests a category for a document.
type Analyzer interface {
	Analyze(ctx context.Context, doc bdd.Document) (*bdd.AnalysisResult, error)
}

// FeatureCompiler converts a document into Gherkin.
type FeatureCompiler interface {
	CompileFeature(ctx context.Context, doc bdd.Document, category bdd.DocumentCategory) (*bdd.FeatureArtifact, error)
}

// StepCompiler converts Gherkin into step-definition code.
type StepCompiler interface {
	CompileSteps(ctx context.Context, feature string, target bdd.Target) (*bdd.StepDefinitionArtifact, error)
}

// Orchestrator drives one session's two pipelines: document to feature,
// and feature to step definitions. Calls that reach a collaborator run
// outside the lock; a call superseded by a newer one of the same kind
// returns bdd.ErrSuperseded and leaves no trace.
type Orchestrator struct {
	id       string
	analyzer Analyzer
	features FeatureCompiler
	steps    StepCompiler
	log      *slog.Logger

	featureMu sync.Mutex
	feature   featurePipeline

	stepMu sync.Mutex
	step   stepPipeline
}

// NewOrchestrator creates an orchestrator with both pipelines idle.
func NewOrchestrator(analyzer Analyzer, features FeatureCompiler, steps StepCompiler, log *slog.Logger) *Orchestrator {
	id := uuid.NewString()
	return &Orchestrator{
		id:       id,
		analyzer: analyzer,
		features: features,
		steps:    steps,
		log:      log.With("session", id),
		feature:  featurePipeline{state: FeatureIdle},
		step:     stepPipeline{state: StepIdle},
	}
}

// SessionID identifies this orchestrator in logs.
func (o *Orchestrator) SessionID() string { return o.id }

// SelectDocument replaces the current document and clears everything
// derived from the previous one. In-flight analyze and compile calls are
// superseded.
func (o *Orchestrator) SelectDocument(doc bdd.Document) error {
	if doc.IsZero() {
		return fmt.Errorf("%w: no document", bdd.ErrValidation)
	}

	o.featureMu.Lock()
	defer o.featureMu.Unlock()

	p := &o.feature
	p.analyzeGen++
	p.compileGen++
	*p = featurePipeline{
		state:      FeatureDocumentSelected,
		doc:        doc,
		analyzeGen: p.analyzeGen,
		compileGen: p.compileGen,
	}
	o.log.Debug("document selected", "filename", doc.Filename(), "format", doc.Format(), "size", doc.Size())
	return nil
}

// Analyze asks the analyzer for a category suggestion. An analyzer failure
// is not fatal: the pipeline moves to AnalysisDone with no suggestion and
// the returned error is a *bdd.AnalysisError alongside an empty result.
// Local validation failures return the pipeline to DocumentSelected.
func (o *Orchestrator) Analyze(ctx context.Context) (*bdd.AnalysisResult, error) {
	o.featureMu.Lock()
	p := &o.feature
	switch p.state {
	case FeatureDocumentSelected, FeatureAnalysisDone, FeatureAnalyzing:
	default:
		state := p.state
		o.featureMu.Unlock()
		return nil, bdd.PreconditionErrorf("analyze requires a selected document without a confirmed category (state %s)", state)
	}
	p.analyzeGen++
	gen := p.analyzeGen
	doc := p.doc
	p.state = FeatureAnalyzing
	o.featureMu.Unlock()

	log := o.log.With("pipeline", "feature", "op", "analyze", "gen", gen)
	log.Debug("analyzing")

	res, err := o.analyzer.Analyze(ctx, doc)
	if err == nil && res != nil && res.SuggestedCategory != nil && !res.SuggestedCategory.Valid() {
		err = &bdd.AnalysisError{Reason: bdd.ParseErrorf("suggested category %q is not a known category", *res.SuggestedCategory)}
	}

	o.featureMu.Lock()
	defer o.featureMu.Unlock()
	if gen != p.analyzeGen {
		log.Debug("analysis superseded")
		return nil, bdd.ErrSuperseded
	}

	if err != nil && errors.Is(err, bdd.ErrValidation) {
		if p.state == FeatureAnalyzing {
			p.state = FeatureDocumentSelected
		}
		p.lastErr = err
		return nil, err
	}

	if p.state == FeatureAnalyzing {
		p.state = FeatureAnalysisDone
	}
	if err != nil {
		var ae *bdd.AnalysisError
		if !errors.As(err, &ae) {
			ae = &bdd.AnalysisError{Reason: err}
		}
		p.suggested = nil
		p.analysisErr = ae
		log.Warn("analysis failed, continuing without a suggestion", "error", ae)
		return &bdd.AnalysisResult{}, ae
	}

	p.analysisErr = nil
	p.suggested = nil
	out := &bdd.AnalysisResult{}
	if res != nil {
		p.suggested = copyCategory(res.SuggestedCategory)
		out.SuggestedCategory = copyCategory(res.SuggestedCategory)
		out.Scores = res.Scores
	}
	log.Debug("analysis done", "suggested", categoryAttr(p.suggested))
	return out, nil
}

// ConfirmCategory records the user's authoritative category. It is legal
// from any state with a selected document. Confirming the category that is
// already confirmed changes nothing. Confirming a different category while
// a compile is in flight supersedes that compile.
func (o *Orchestrator) ConfirmCategory(cat bdd.DocumentCategory) error {
	if !cat.Valid() {
		return fmt.Errorf("%w: %q", bdd.ErrUnknownCategory, cat)
	}

	o.featureMu.Lock()
	defer o.featureMu.Unlock()

	p := &o.feature
	if p.state == FeatureIdle {
		return bdd.PreconditionErrorf("confirm category requires a selected document")
	}
	if p.state.hasConfirmedCategory() && p.confirmed != nil && *p.confirmed == cat {
		return nil
	}

	if p.state == FeatureCompiling {
		p.compileGen++
	}
	c := cat
	p.confirmed = &c
	p.artifact = nil
	p.lastErr = nil
	p.state = FeatureCategoryConfirmed
	o.log.Debug("category confirmed", "category", cat)
	return nil
}

// GenerateFeature compiles the selected document with the confirmed
// category. On failure the pipeline returns to the state it was in before
// the call and keeps any previous artifact.
func (o *Orchestrator) GenerateFeature(ctx context.Context) (*bdd.FeatureArtifact, error) {
	o.featureMu.Lock()
	p := &o.feature
	if !p.state.hasConfirmedCategory() || p.confirmed == nil {
		state := p.state
		o.featureMu.Unlock()
		return nil, bdd.PreconditionErrorf("generate feature requires a confirmed category (state %s)", state)
	}
	if p.state != FeatureCompiling {
		p.preCompile = p.state
	}
	p.compileGen++
	gen := p.compileGen
	doc, cat := p.doc, *p.confirmed
	p.state = FeatureCompiling
	o.featureMu.Unlock()

	log := o.log.With("pipeline", "feature", "op", "compile", "gen", gen, "category", cat)
	log.Debug("compiling feature")

	art, err := o.features.CompileFeature(ctx, doc, cat)

	o.featureMu.Lock()
	defer o.featureMu.Unlock()
	if gen != p.compileGen {
		log.Debug("feature compile superseded")
		return nil, bdd.ErrSuperseded
	}
	if err == nil && (art == nil || !bdd.HasFeatureHeader(art.Content)) {
		err = bdd.ParseErrorf("feature compiler returned no Feature: header")
	}
	if err != nil {
		p.state = p.preCompile
		p.lastErr = err
		log.Warn("feature compile failed", "error", err)
		return nil, err
	}

	p.artifact = cloneFeature(art)
	if p.artifact.SuggestedSteps == nil {
		p.artifact.SuggestedSteps = map[string]string{}
	}
	p.lastErr = nil
	p.state = FeatureReady
	log.Info("feature ready", "bytes", len(art.Content))
	return cloneFeature(p.artifact), nil
}

// SetFeatureText replaces the step pipeline's feature text. An in-flight
// step compile is left alone and the last artifact is kept.
func (o *Orchestrator) SetFeatureText(text string) {
	o.stepMu.Lock()
	defer o.stepMu.Unlock()

	p := &o.step
	if strings.TrimSpace(text) == "" {
		text = ""
	}
	p.feature = text
	if p.state != StepCompiling {
		p.state = p.inputState()
	}
}

// UseGeneratedFeature copies the ready feature into the step pipeline.
func (o *Orchestrator) UseGeneratedFeature() error {
	o.featureMu.Lock()
	var content string
	if o.feature.state == FeatureReady && o.feature.artifact != nil {
		content = o.feature.artifact.Content
	}
	state := o.feature.state
	o.featureMu.Unlock()

	if content == "" {
		return bdd.PreconditionErrorf("no generated feature to use (state %s)", state)
	}
	o.SetFeatureText(content)
	return nil
}

// SelectLanguage records the target. Compatibility is checked when steps
// are generated; use bdd.Target.Validate for earlier feedback.
func (o *Orchestrator) SelectLanguage(target bdd.Target) {
	o.stepMu.Lock()
	defer o.stepMu.Unlock()

	p := &o.step
	p.target = target
	if p.state != StepCompiling {
		p.state = p.inputState()
	}
}

// GenerateSteps compiles the feature text for the selected target. An
// incompatible target fails with a validation error before the step
// compiler is called.
func (o *Orchestrator) GenerateSteps(ctx context.Context) (*bdd.StepDefinitionArtifact, error) {
	o.stepMu.Lock()
	p := &o.step
	if p.feature == "" || p.target.IsZero() {
		state := p.state
		o.stepMu.Unlock()
		return nil, bdd.PreconditionErrorf("generate steps requires feature text and a language (state %s)", state)
	}
	if err := p.target.Validate(); err != nil {
		o.stepMu.Unlock()
		return nil, err
	}
	if p.state != StepCompiling {
		p.preCompile = p.state
	}
	p.compileGen++
	gen := p.compileGen
	feature, target := p.feature, p.target
	p.state = StepCompiling
	o.stepMu.Unlock()

	log := o.log.With("pipeline", "steps", "op", "compile", "gen", gen, "target", target.String())
	log.Debug("compiling steps")

	art, err := o.steps.CompileSteps(ctx, feature, target)

	o.stepMu.Lock()
	defer o.stepMu.Unlock()
	if gen != p.compileGen {
		log.Debug("step compile superseded")
		return nil, bdd.ErrSuperseded
	}
	if err == nil && (art == nil || len(art.StepDefinitions) == 0) {
		err = bdd.ParseErrorf("step compiler returned no step definitions")
	}
	if err != nil {
		p.state = p.resumeState()
		p.lastErr = err
		log.Warn("step compile failed", "error", err)
		return nil, err
	}

	p.artifact = cloneSteps(art)
	p.artifact.Imports = bdd.DedupImports(p.artifact.Imports)
	p.lastErr = nil
	p.state = StepsReady
	log.Info("steps ready", "definitions", len(art.StepDefinitions))
	return cloneSteps(p.artifact), nil
}

// resumeState is the state a failed compile returns to. Inputs edited
// while the compile was in flight take precedence over the pre-call state.
func (p *stepPipeline) resumeState() StepState {
	if p.preCompile == StepsReady && p.artifact != nil {
		return StepsReady
	}
	return p.inputState()
}

// Reset returns both pipelines to Idle and supersedes every in-flight call.
func (o *Orchestrator) Reset() {
	o.featureMu.Lock()
	o.feature = featurePipeline{
		state:      FeatureIdle,
		analyzeGen: o.feature.analyzeGen + 1,
		compileGen: o.feature.compileGen + 1,
	}
	o.featureMu.Unlock()

	o.stepMu.Lock()
	o.step = stepPipeline{
		state:      StepIdle,
		compileGen: o.step.compileGen + 1,
	}
	o.stepMu.Unlock()
	o.log.Debug("session reset")
}

// Snapshot returns a read-only copy of both pipelines.
func (o *Orchestrator) Snapshot() Snapshot {
	o.featureMu.Lock()
	f := o.feature.snapshot()
	o.featureMu.Unlock()

	o.stepMu.Lock()
	s := o.step.snapshot()
	o.stepMu.Unlock()

	return Snapshot{SessionID: o.id, Feature: f, Steps: s}
}

// FeatureState returns the feature pipeline's current state.
func (o *Orchestrator) FeatureState() FeatureState {
	o.featureMu.Lock()
	defer o.featureMu.Unlock()
	return o.feature.state
}

// StepState returns the step pipeline's current state.
func (o *Orchestrator) StepState() StepState {
	o.stepMu.Lock()
	defer o.stepMu.Unlock()
	return o.step.state
}

func categoryAttr(c *bdd.DocumentCategory) string {
	if c == nil {
		return "none"
	}
	return string(*c)
}
