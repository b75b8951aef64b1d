package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	chi "github.com/go-chi/chi/v5"
	"github.com/rs/cors"

	"github.com/personaforge/personad/internal/common"
	"github.com/personaforge/personad/internal/fetcher"
	"github.com/personaforge/personad/internal/llm"
	"github.com/personaforge/personad/internal/person"
	"github.com/personaforge/personad/internal/persona"
	"github.com/personaforge/personad/internal/store"
	"github.com/personaforge/personad/internal/synth"
)

const (
	defaultLimit = 20
	maxLimit     = 100

	// Export is a bulk dump, not a page; it gets a bound wide enough to
	// cover the whole persona set at the system's intended scale.
	maxExportLimit = 1000
)

type Server struct {
	router   chi.Router
	persons  *person.Service
	personas *persona.Service
	fetcher  *fetcher.Fetcher
	provider llm.Provider
}

func NewServer(st *store.Store, provider llm.Provider) *Server {
	logger := common.Logger()
	pipeline := synth.NewPipeline(provider)
	srv := &Server{
		router:   chi.NewRouter(),
		persons:  person.NewService(st, pipeline),
		personas: persona.NewService(st, pipeline),
		fetcher:  fetcher.New(),
		provider: provider,
	}
	srv.routes()
	logger.Info("api: server ready", "provider", provider.Name(), "model", provider.Model())
	return srv
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() {
	logger := common.Logger()
	logger.Info("api: configuring routes")

	s.router.Use(cors.New(cors.Options{
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete},
		AllowedHeaders: []string{"Content-Type"},
	}).Handler)
	s.router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			next.ServeHTTP(w, r)
			logger.Debug("request", "method", r.Method, "path", r.URL.Path, "dur", time.Since(start), "remote", r.RemoteAddr)
		})
	})

	s.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	s.router.Get("/v1/logs", s.handleLogs)

	s.router.Post("/v1/person", s.handleCreatePerson)
	s.router.Get("/v1/person", s.handleListPersons)
	s.router.Get("/v1/person/{person_id}", s.handleGetPerson)
	s.router.Delete("/v1/person/{person_id}", s.handleDeletePerson)
	s.router.Post("/v1/person/{person_id}/data", s.handleAddData)
	s.router.Get("/v1/person/{person_id}/data", s.handleDataHistory)
	s.router.Get("/v1/person/{person_id}/persona", s.handlePersonPersona)
	s.router.Post("/v1/person/{person_id}/data-and-regenerate", s.handleAddDataAndRegenerate)

	// Literal persona routes must register before the id pattern so
	// "search" is never captured as a persona_id.
	s.router.Get("/v1/persona/search", s.handleSearchPersonas)
	s.router.Get("/v1/persona/stats", s.handlePersonaStats)
	s.router.Get("/v1/persona/export", s.handleExportPersonas)
	s.router.Post("/v1/persona/merge", s.handleMergePersonas)
	s.router.Post("/v1/persona/batch", s.handleBatchPersonas)

	s.router.Post("/v1/persona", s.handleCreatePersona)
	s.router.Get("/v1/persona", s.handleListPersonas)
	s.router.Get("/v1/persona/{persona_id}", s.handleGetPersona)
	s.router.Patch("/v1/persona/{persona_id}", s.handleRegeneratePersona)
	s.router.Delete("/v1/persona/{persona_id}", s.handleDeletePersona)
}

func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"entries": common.LogEntries()})
}

// pageParams reads limit/offset query params, clamping limit to [1,100].
func pageParams(r *http.Request) (limit, offset int) {
	limit = defaultLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			offset = parsed
		}
	}
	return limit, offset
}

// exportLimit reads the limit query param for exports, defaulting to the
// full bulk bound and clamping to [1,1000].
func exportLimit(r *http.Request) int {
	limit := maxExportLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil {
			limit = parsed
		}
	}
	if limit < 1 {
		limit = 1
	}
	if limit > maxExportLimit {
		limit = maxExportLimit
	}
	return limit
}

func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, err error) {
	logger := common.Logger()
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request failed", "status", status, "error", err)
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

// writeServiceError maps service-layer errors onto the HTTP taxonomy:
// not-found to 404, validation failures to 422, everything else (storage,
// LLM, unparseable model output) to a generic 500 with detail kept in the
// server logs.
func writeServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, err)
	case errors.Is(err, person.ErrEmptyRawText),
		errors.Is(err, person.ErrRawTextTooLong),
		errors.Is(err, persona.ErrUnsupportedFormat):
		writeError(w, http.StatusUnprocessableEntity, err)
	default:
		common.Logger().Error("request failed", "status", http.StatusInternalServerError, "error", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}
