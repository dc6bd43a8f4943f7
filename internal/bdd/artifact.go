package bdd

// AnalysisResult is the DocumentAnalyzer's advisory output. A nil
// SuggestedCategory means the service could not classify the document.
type AnalysisResult struct {
	SuggestedCategory *DocumentCategory
	Scores            map[DocumentCategory]float64
}

// FeatureArtifact is generated Gherkin plus per-step implementation hints.
// Content is free text once generated: it is passed verbatim to the step
// compiler.
type FeatureArtifact struct {
	Content        string
	SuggestedSteps map[string]string
}

// StepDefinitionArtifact is generated step-definition code, treated as
// opaque text.
type StepDefinitionArtifact struct {
	StepDefinitions map[string]string
	Imports         []string
	SetupCode       string
}

// DedupImports removes repeated import lines, keeping first occurrences in
// order.
func DedupImports(imports []string) []string {
	seen := make(map[string]bool, len(imports))
	out := make([]string, 0, len(imports))
	for _, imp := range imports {
		if imp == "" || seen[imp] {
			continue
		}
		seen[imp] = true
		out = append(out, imp)
	}
	return out
}
