package api

import (
	"encoding/json"
	"net/http"

	"github.com/dgallion1/bddgen/internal/bdd"
	"github.com/dgallion1/bddgen/internal/engine"
)

type generateStepsRequest struct {
	FeatureContent      string  `json:"feature_content" validate:"required"`
	ProgrammingLanguage string  `json:"programming_language" validate:"required"`
	Framework           *string `json:"framework"`
}

type generateStepsResponse struct {
	StepDefinitions map[string]string `json:"step_definitions"`
	Imports         []string          `json:"imports"`
	SetupCode       *string           `json:"setup_code"`
}

func (s *Server) handleGenerateSteps(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	var req generateStepsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, r, badRequest("invalid JSON body: %v", err))
		return
	}
	if err := s.validator.Struct(req); err != nil {
		s.writeError(w, r, badRequest("%s", validationMessage(err)))
		return
	}

	framework := ""
	if req.Framework != nil {
		framework = *req.Framework
	}
	target := bdd.NewTarget(req.ProgrammingLanguage, framework)

	art, err := engine.GenerateSteps(req.FeatureContent, target)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	s.log.Info("steps generated",
		"target", target.Resolved().String(),
		"definitions", len(art.StepDefinitions),
	)

	resp := generateStepsResponse{
		StepDefinitions: art.StepDefinitions,
		Imports:         art.Imports,
	}
	if resp.Imports == nil {
		resp.Imports = []string{}
	}
	if art.SetupCode != "" {
		resp.SetupCode = &art.SetupCode
	}
	writeJSON(w, resp)
}
