package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/dgallion1/bddgen/internal/config"
	"github.com/dgallion1/bddgen/internal/engine"
	"github.com/dgallion1/bddgen/internal/parser"
)

// Server is the HTTP API of the conversion service.
type Server struct {
	router    chi.Router
	writer    engine.FeatureWriter
	claude    *engine.ClaudeClient
	analyses  *cache.Cache
	flight    singleflight.Group
	validator *validator.Validate
	parseOpts parser.Options
	log       *slog.Logger
	cfg       config.Config
}

// NewServer creates and configures the HTTP server. A nil writer means
// rule-based features; claude is only used for stats and may be nil.
func NewServer(writer engine.FeatureWriter, claude *engine.ClaudeClient, log *slog.Logger, cfg config.Config) *Server {
	if writer == nil {
		writer = engine.RuleWriter{}
	}
	s := &Server{
		writer:    writer,
		claude:    claude,
		analyses:  cache.New(cfg.AnalysisCacheTTL, 10*time.Minute),
		validator: newValidator(),
		parseOpts: parser.Options{FallbackPdftotext: cfg.PDFFallbackPdftotext},
		log:       log,
		cfg:       cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Post("/conversion/analyze", s.handleAnalyze)
		r.Post("/conversion/validate", s.handleValidate)
		r.Post("/conversion/convert", s.handleConvertBatch)
		r.Post("/convert-to-feature", s.handleConvertToFeature)
		r.Post("/generate-steps", s.handleGenerateSteps)
		r.Get("/stats/llm", s.handleLLMStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
