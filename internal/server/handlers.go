package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/finetunelab/websearch/internal/models"
	"github.com/finetunelab/websearch/internal/search"
)

type searchRequest struct {
	Query      string               `json:"query"`
	MaxResults int                  `json:"max_results,omitempty"`
	Options    models.SearchOptions `json:"options,omitempty"`
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req searchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	s.logger.Debug("search request",
		zap.String("query", req.Query),
		zap.Int("max_results", req.MaxResults))

	response, err := s.orchestrator.Search(r.Context(), req.Query, req.MaxResults, req.Options)
	if err != nil {
		s.respondSearchError(w, err)
		return
	}
	s.respondJSON(w, http.StatusOK, response)
}

// respondSearchError maps the orchestrator's error taxonomy onto HTTP codes:
// bad input is the caller's fault, a disabled subsystem is unavailable, and
// upstream failure is a bad gateway.
func (s *Server) respondSearchError(w http.ResponseWriter, err error) {
	var ve *search.ValidationError
	var ce *search.ConfigurationError
	var ee *search.ExecutionError
	switch {
	case errors.As(err, &ve):
		s.respondError(w, http.StatusBadRequest, ve.Error())
	case errors.As(err, &ce):
		s.respondError(w, http.StatusServiceUnavailable, ce.Error())
	case errors.As(err, &ee):
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusBadGateway, ee.Error())
	default:
		s.logger.Error("search failed", zap.Error(err))
		s.respondError(w, http.StatusInternalServerError, err.Error())
	}
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]interface{}{
		"providers": s.registry.Names(),
	})
}

func (s *Server) handleTelemetry(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, s.tracker.Snapshot())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"error": message})
}
