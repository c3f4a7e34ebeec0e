package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/steveyegge/contentfactory/internal/contracts"
	"github.com/steveyegge/contentfactory/internal/pipeline"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error  string `json:"error"`
	Parser string `json:"parser,omitempty"`
	Source string `json:"source,omitempty"`
	Status string `json:"status,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

func (s *Server) handleListModules(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ListAll())
}

func (s *Server) handleListKind(w http.ResponseWriter, r *http.Request) {
	kind, err := contracts.ParseKind(chi.URLParam(r, "kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	list, err := s.svc.ListKind(kind)
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{kind.Plural(): list})
}

func (s *Server) handleDescribeParser(w http.ResponseWriter, r *http.Request) {
	d, err := s.svc.DescribeParser(chi.URLParam(r, "name"))
	if err != nil {
		writeError(w, http.StatusNotFound, "parser not found")
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleTestParser(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	source := r.URL.Query().Get("source")
	if source == "" {
		writeError(w, http.StatusBadRequest, "source query parameter is required")
		return
	}

	result, err := s.svc.TestParser(r.Context(), name, source)
	if err != nil {
		writeError(w, http.StatusNotFound, "parser not found")
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleParse(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	source := r.URL.Query().Get("source")
	if source == "" {
		writeError(w, http.StatusBadRequest, "source query parameter is required")
		return
	}

	result, err := s.svc.Parse(r.Context(), name, source)
	if err != nil {
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, contracts.ErrNotFound):
			status = http.StatusNotFound
		case errors.Is(err, pipeline.ErrInvalidSource):
			status = http.StatusBadRequest
		}
		writeJSON(w, status, ErrorResponse{
			Error:  err.Error(),
			Parser: name,
			Source: source,
			Status: pipeline.StatusError,
		})
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, ErrorResponse{Error: msg})
}
