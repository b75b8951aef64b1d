package api

import (
	"fmt"
	"net/http"

	chi "github.com/go-chi/chi/v5"
)

func (s *Server) handleCreatePerson(w http.ResponseWriter, r *http.Request) {
	created, err := s.persons.CreatePerson(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetPerson(w http.ResponseWriter, r *http.Request) {
	overview, err := s.persons.GetPerson(r.Context(), chi.URLParam(r, "person_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (s *Server) handleListPersons(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	persons, total, err := s.persons.ListPersons(r.Context(), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: persons, Total: total, Limit: limit, Offset: offset})
}

func (s *Server) handleDeletePerson(w http.ResponseWriter, r *http.Request) {
	if err := s.persons.DeletePerson(r.Context(), chi.URLParam(r, "person_id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// submissionParams reads the raw_text and source query parameters shared by
// the two data-append endpoints.
func submissionParams(r *http.Request) (rawText, source string) {
	query := r.URL.Query()
	return query.Get("raw_text"), query.Get("source")
}

func (s *Server) handleAddData(w http.ResponseWriter, r *http.Request) {
	rawText, source := submissionParams(r)
	row, err := s.persons.AddData(r.Context(), chi.URLParam(r, "person_id"), rawText, source)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, row)
}

func (s *Server) handleDataHistory(w http.ResponseWriter, r *http.Request) {
	limit, offset := pageParams(r)
	rows, total, err := s.persons.DataHistory(r.Context(), chi.URLParam(r, "person_id"), limit, offset)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Items: rows, Total: total, Limit: limit, Offset: offset})
}

func (s *Server) handlePersonPersona(w http.ResponseWriter, r *http.Request) {
	row, err := s.persons.CurrentPersona(r.Context(), chi.URLParam(r, "person_id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) handleAddDataAndRegenerate(w http.ResponseWriter, r *http.Request) {
	rawText, source := submissionParams(r)
	submission, regenerated, err := s.persons.AddDataAndRegenerate(r.Context(), chi.URLParam(r, "person_id"), rawText, source)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if regenerated == nil {
		// unreachable after a successful append, but never report a
		// persona that was not written
		writeServiceError(w, fmt.Errorf("persona regeneration produced no result"))
		return
	}
	writeJSON(w, http.StatusCreated, dataAndPersonaResponse{PersonData: submission, Persona: regenerated})
}
