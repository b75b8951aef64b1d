package api

import (
	"time"

	"github.com/personaforge/personad/internal/store"
)

// listResponse is the shared pagination envelope.
type listResponse struct {
	Items  any `json:"items"`
	Total  int `json:"total"`
	Limit  int `json:"limit"`
	Offset int `json:"offset"`
}

type dataAndPersonaResponse struct {
	PersonData *store.PersonData `json:"person_data"`
	Persona    *store.Persona    `json:"persona"`
}

type createPersonaRequest struct {
	RawText string   `json:"raw_text"`
	URLs    []string `json:"urls"`
}

type regenerateRequest struct {
	RawText string `json:"raw_text"`
}

// personaCreatedResponse deliberately omits the document and raw text;
// persona bodies can be large and creation callers only need the handle.
type personaCreatedResponse struct {
	ID        string    `json:"id"`
	Version   int       `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type batchResponse struct {
	Count    int                      `json:"count"`
	Personas []personaCreatedResponse `json:"personas"`
}

type searchResponse struct {
	Query   string          `json:"query"`
	Count   int             `json:"count"`
	Results []store.Persona `json:"results"`
}

type mergeResponse struct {
	Merged  *store.Persona `json:"merged"`
	Removed string         `json:"removed_persona_id"`
}

func personaCreated(row *store.Persona) personaCreatedResponse {
	return personaCreatedResponse{
		ID:        row.ID,
		Version:   row.Version,
		CreatedAt: row.CreatedAt,
		UpdatedAt: row.UpdatedAt,
	}
}
