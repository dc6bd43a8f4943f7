package api

import (
	"net/http"
)

// handleLLMStats reports rolling latency of the Claude feature writer.
func (s *Server) handleLLMStats(w http.ResponseWriter, r *http.Request) {
	if s.claude == nil || s.claude.Stats == nil {
		jsonError(w, "llm feature writer is not configured", http.StatusServiceUnavailable)
		return
	}

	writeJSON(w, map[string]any{
		"model": s.claude.Model(),
		"stats": s.claude.Stats.Snapshot(),
	})
}
