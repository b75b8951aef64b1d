package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	chi "github.com/go-chi/chi/v5"
)

const sourceSeparator = "\n\n---\n\n"

func (s *Server) handleCreatePersona(w http.ResponseWriter, r *http.Request) {
	var req createPersonaRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.RawText) == "" && len(req.URLs) == 0 {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("raw_text or urls required"))
		return
	}

	parts := []string{}
	if strings.TrimSpace(req.RawText) != "" {
		parts = append(parts, req.RawText)
	}
	if len(req.URLs) > 0 {
		fetched, err := s.fetcher.FetchAll(r.Context(), req.URLs)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		parts = append(parts, fetched)
	}

	created, err := s.personas.Generate(r.Context(), strings.Join(parts, sourceSeparator))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, personaCreated(created))
}

func (s *Server) handleGetPersona(w http.ResponseWriter, r *http.Request) {
	row, err := s.personas.Get(r.Context(), chi.URLParam(r, "persona_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleListPersonas(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	rows, total, err := s.personas.List(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: rows, Total: total, Limit: limit, Offset: offset})
}

func (s *Server) handleRegeneratePersona(w http.ResponseWriter, r *http.Request) {
	var req regenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if strings.TrimSpace(req.RawText) == "" {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("raw_text required"))
		return
	}
	row, err := s.personas.Regenerate(r.Context(), chi.URLParam(r, "persona_id"), req.RawText)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleDeletePersona(w http.ResponseWriter, r *http.Request) {
	if err := s.personas.Delete(r.Context(), chi.URLParam(r, "persona_id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSearchPersonas(w http.ResponseWriter, r *http.Request) {
	query := strings.TrimSpace(r.URL.Query().Get("q"))
	if query == "" {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("q required"))
		return
	}
	limit, _ := pageParams(r)
	results, err := s.personas.Search(r.Context(), query, limit)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, searchResponse{Query: query, Count: len(results), Results: results})
}

func (s *Server) handlePersonaStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.personas.StatsSummary(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleExportPersonas(w http.ResponseWriter, r *http.Request) {
	format := r.URL.Query().Get("format")
	if format == "" {
		format = "json"
	}
	export, err := s.personas.ExportAll(r.Context(), format, exportLimit(r))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, export)
}

func (s *Server) handleMergePersonas(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	id1 := strings.TrimSpace(query.Get("persona_id_1"))
	id2 := strings.TrimSpace(query.Get("persona_id_2"))
	if id1 == "" || id2 == "" {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("persona_id_1 and persona_id_2 required"))
		return
	}
	if id1 == id2 {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("cannot merge a persona with itself"))
		return
	}
	merged, err := s.personas.Merge(r.Context(), id1, id2, query.Get("merged_raw_text"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, mergeResponse{Merged: merged, Removed: id2})
}

func (s *Server) handleBatchPersonas(w http.ResponseWriter, r *http.Request) {
	var rawTexts []string
	if err := json.NewDecoder(r.Body).Decode(&rawTexts); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("decode request: %w", err))
		return
	}
	if len(rawTexts) == 0 {
		writeError(w, http.StatusUnprocessableEntity, fmt.Errorf("at least one raw text required"))
		return
	}
	created, err := s.personas.BatchGenerate(r.Context(), rawTexts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	resp := batchResponse{Count: len(created), Personas: make([]personaCreatedResponse, 0, len(created))}
	for i := range created {
		resp.Personas = append(resp.Personas, personaCreated(&created[i]))
	}
	writeJSON(w, http.StatusCreated, resp)
}
