package api

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/patrickmn/go-cache"

	"github.com/dgallion1/bddgen/internal/bdd"
	"github.com/dgallion1/bddgen/internal/engine"
)

type analyzeResponse struct {
	SuggestedType    *bdd.DocumentCategory `json:"suggested_type"`
	Filename         string                `json:"filename"`
	FileFormat       bdd.DocumentFormat    `json:"file_format"`
	ConfidenceScores map[string]float64    `json:"confidence_scores"`
}

type featureResponse struct {
	FeatureContent string            `json:"feature_content"`
	SuggestedSteps map[string]string `json:"suggested_steps"`
}

type validateResponse struct {
	Status          string         `json:"status"`
	Filename        string         `json:"filename"`
	ParsedStructure *engine.Parsed `json:"parsed_structure"`
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	analysis, err := s.analyze(doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	scores := make(map[string]float64, len(analysis.Scores))
	for cat, v := range analysis.Scores {
		scores[string(cat)] = v
	}
	writeJSON(w, analyzeResponse{
		SuggestedType:    analysis.Suggested,
		Filename:         doc.Filename(),
		FileFormat:       doc.Format(),
		ConfidenceScores: scores,
	})
}

// analyze classifies doc. Results are cached by format and content hash;
// concurrent requests for the same upload share one extraction.
func (s *Server) analyze(doc bdd.Document) (engine.Analysis, error) {
	key := string(doc.Format()) + ":" + doc.Hash()
	if v, ok := s.analyses.Get(key); ok {
		return v.(engine.Analysis), nil
	}

	v, err, shared := s.flight.Do(key, func() (any, error) {
		text, err := s.extractText(doc)
		if err != nil {
			return nil, err
		}
		a := engine.Classify(text)
		s.analyses.Set(key, a, cache.DefaultExpiration)
		return a, nil
	})
	if err != nil {
		return engine.Analysis{}, err
	}
	if shared {
		s.log.Debug("analysis shared", "filename", doc.Filename())
	}
	return v.(engine.Analysis), nil
}

func (s *Server) handleConvertToFeature(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	category, err := readCategory(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	text, err := s.extractText(doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	art, err := s.writer.WriteFeature(r.Context(), text, category, engine.FeatureName(doc.Filename()))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("feature generated",
		"filename", doc.Filename(),
		"doc_type", category,
		"steps", len(art.SuggestedSteps),
	)

	steps := art.SuggestedSteps
	if steps == nil {
		steps = map[string]string{}
	}
	writeJSON(w, featureResponse{
		FeatureContent: art.Content,
		SuggestedSteps: steps,
	})
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	doc, err := s.readUpload(w, r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	category, err := readCategory(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	text, err := s.extractText(doc)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	parsed, err := engine.ParseDocument(text, category)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, validateResponse{
		Status:          "success",
		Filename:        doc.Filename(),
		ParsedStructure: parsed,
	})
}

type batchResult struct {
	Filename       string         `json:"filename"`
	FeatureContent string         `json:"feature_content"`
	ParsedContent  *engine.Parsed `json:"parsed_content"`
}

type batchResponse struct {
	Status  string        `json:"status"`
	Results []batchResult `json:"results"`
}

// handleConvertBatch converts every "files" part under one doc_type. The
// batch fails as a whole on the first file that cannot be converted.
func (s *Server) handleConvertBatch(w http.ResponseWriter, r *http.Request) {
	if err := s.parseUploadForm(w, r); err != nil {
		s.writeError(w, r, err)
		return
	}
	defer r.MultipartForm.RemoveAll()

	category, err := readCategory(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	headers := r.MultipartForm.File["files"]
	if len(headers) == 0 {
		s.writeError(w, r, badRequest("files is required"))
		return
	}

	results := make([]batchResult, 0, len(headers))
	for _, h := range headers {
		res, err := s.convertPart(r, h, category)
		if err != nil {
			s.writeError(w, r, fmt.Errorf("processing %s: %w", sanitizeFilename(h.Filename), err))
			return
		}
		results = append(results, res)
	}
	s.log.Info("batch converted", "doc_type", category, "files", len(results))

	writeJSON(w, batchResponse{Status: "success", Results: results})
}

func (s *Server) convertPart(r *http.Request, h *multipart.FileHeader, category bdd.DocumentCategory) (batchResult, error) {
	doc, err := s.readPart(h)
	if err != nil {
		return batchResult{}, err
	}
	text, err := s.extractText(doc)
	if err != nil {
		return batchResult{}, err
	}
	parsed, err := engine.ParseDocument(text, category)
	if err != nil {
		return batchResult{}, err
	}
	art, err := s.writer.WriteFeature(r.Context(), text, category, engine.FeatureName(doc.Filename()))
	if err != nil {
		return batchResult{}, err
	}
	return batchResult{
		Filename:       doc.Filename(),
		FeatureContent: art.Content,
		ParsedContent:  parsed,
	}, nil
}
