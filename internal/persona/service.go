package persona

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/personaforge/personad/internal/common"
	"github.com/personaforge/personad/internal/store"
)

const (
	// mergeSeparator joins the source texts when a merge supplies no
	// combined text of its own.
	mergeSeparator = "\n\n---\n\n"

	// searchScanLimit bounds how many personas a substring search will
	// examine. Search is a linear scan over JSON documents, not an index.
	searchScanLimit = 1000
)

// ErrUnsupportedFormat is a validation failure for export formats other
// than "json".
var ErrUnsupportedFormat = errors.New(`only "json" export format is supported`)

// Synthesizer generates a persona document from raw text. Satisfied by
// *synth.Pipeline; tests substitute a stub.
type Synthesizer interface {
	GeneratePersona(ctx context.Context, rawText string) (store.Document, error)
}

// Service manages standalone personas: rows generated directly from raw
// text with no owning person and no version history beyond 1.
type Service struct {
	store *store.Store
	synth Synthesizer
}

func NewService(st *store.Store, synth Synthesizer) *Service {
	return &Service{store: st, synth: synth}
}

// Stats summarises the persona table.
type Stats struct {
	TotalPersonas int    `json:"total_personas"`
	OldestCreated string `json:"oldest_created"`
	NewestCreated string `json:"newest_created"`
	DaysActive    int    `json:"days_active"`
}

// Export is the full-table export payload.
type Export struct {
	ExportFormat  string          `json:"export_format"`
	ExportedAt    time.Time       `json:"exported_at"`
	TotalExported int             `json:"total_exported"`
	TotalInSystem int             `json:"total_in_system"`
	Personas      []store.Persona `json:"personas"`
}

// Generate synthesizes a persona document from raw text and persists it as
// a new standalone row.
func (s *Service) Generate(ctx context.Context, rawText string) (*store.Persona, error) {
	logger := common.Logger()
	doc, err := s.synth.GeneratePersona(ctx, rawText)
	if err != nil {
		return nil, err
	}
	row, err := s.store.InsertPersona(ctx, rawText, doc)
	if err != nil {
		return nil, fmt.Errorf("save persona: %w", err)
	}
	logger.Info("persona: generated", "id", row.ID, "input_chars", len(rawText))
	return row, nil
}

// Get returns the persona or store.ErrNotFound.
func (s *Service) Get(ctx context.Context, id string) (*store.Persona, error) {
	return s.store.GetPersona(ctx, id)
}

// List returns a page of personas newest first plus the total count.
func (s *Service) List(ctx context.Context, limit, offset int) ([]store.Persona, int, error) {
	return s.store.ListPersonas(ctx, limit, offset)
}

// Regenerate re-runs synthesis on new raw text and replaces the existing
// persona's document in place, keeping its id and creation timestamp.
func (s *Service) Regenerate(ctx context.Context, id, rawText string) (*store.Persona, error) {
	logger := common.Logger()
	if _, err := s.store.GetPersona(ctx, id); err != nil {
		return nil, err
	}
	doc, err := s.synth.GeneratePersona(ctx, rawText)
	if err != nil {
		return nil, err
	}
	row, err := s.store.UpdatePersona(ctx, id, rawText, doc)
	if err != nil {
		return nil, fmt.Errorf("save regenerated persona: %w", err)
	}
	logger.Info("persona: regenerated", "id", id)
	return row, nil
}

// Delete removes the persona, returning store.ErrNotFound when absent.
func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.store.DeletePersona(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return store.ErrNotFound
	}
	common.Logger().Info("persona: deleted", "id", id)
	return nil
}

// Merge combines two personas into the first. The merged raw text defaults
// to both source texts joined with a separator when none is supplied.
// Synthesis runs on the combined text, the result replaces the first
// persona, and the second is deleted. The second persona is gone for good:
// merge is destructive and there is no unmerge.
func (s *Service) Merge(ctx context.Context, id1, id2, mergedText string) (*store.Persona, error) {
	logger := common.Logger()
	first, err := s.store.GetPersona(ctx, id1)
	if err != nil {
		return nil, fmt.Errorf("load persona %s: %w", id1, err)
	}
	second, err := s.store.GetPersona(ctx, id2)
	if err != nil {
		return nil, fmt.Errorf("load persona %s: %w", id2, err)
	}

	if strings.TrimSpace(mergedText) == "" {
		mergedText = first.RawText + mergeSeparator + second.RawText
	}

	doc, err := s.synth.GeneratePersona(ctx, mergedText)
	if err != nil {
		return nil, err
	}
	merged, err := s.store.UpdatePersona(ctx, id1, mergedText, doc)
	if err != nil {
		return nil, fmt.Errorf("save merged persona: %w", err)
	}
	if _, err := s.store.DeletePersona(ctx, id2); err != nil {
		return nil, fmt.Errorf("delete merged-away persona: %w", err)
	}
	logger.Info("persona: merged", "kept", id1, "removed", id2)
	return merged, nil
}

// Search returns personas whose raw text or key document fields contain the
// query, case-insensitively. It scans at most searchScanLimit rows and
// returns at most limit matches.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]store.Persona, error) {
	rows, _, err := s.store.ListPersonas(ctx, searchScanLimit, 0)
	if err != nil {
		return nil, err
	}
	needle := strings.ToLower(query)
	matches := []store.Persona{}
	for _, row := range rows {
		if personaMatches(&row, needle) {
			matches = append(matches, row)
			if len(matches) >= limit {
				break
			}
		}
	}
	common.Logger().Debug("persona: search", "query", query, "matches", len(matches))
	return matches, nil
}

// personaMatches checks the raw text plus the fields users actually search
// by: name, role and location from meta, and the identity description.
func personaMatches(row *store.Persona, needle string) bool {
	if strings.Contains(strings.ToLower(row.RawText), needle) {
		return true
	}
	if meta, ok := row.Document["meta"].(map[string]any); ok {
		for _, key := range []string{"name", "role", "location"} {
			if value, ok := meta[key].(string); ok &&
				strings.Contains(strings.ToLower(value), needle) {
				return true
			}
		}
	}
	if identity, ok := row.Document["identity"].(map[string]any); ok {
		if description, ok := identity["core_description"].(string); ok &&
			strings.Contains(strings.ToLower(description), needle) {
			return true
		}
	}
	return false
}

// StatsSummary reports totals and the active date range. All fields are
// zero values when no personas exist.
func (s *Service) StatsSummary(ctx context.Context) (*Stats, error) {
	total, oldest, newest, err := s.store.PersonaStats(ctx)
	if err != nil {
		return nil, err
	}
	stats := &Stats{TotalPersonas: total}
	if oldest != nil && newest != nil {
		stats.OldestCreated = oldest.UTC().Format(time.RFC3339)
		stats.NewestCreated = newest.UTC().Format(time.RFC3339)
		stats.DaysActive = int(newest.Sub(*oldest).Hours() / 24)
	}
	return stats, nil
}

// ExportAll dumps up to limit personas. Only the "json" format exists; any
// other requested format fails before touching the store.
func (s *Service) ExportAll(ctx context.Context, format string, limit int) (*Export, error) {
	if format != "json" {
		return nil, fmt.Errorf("%w: got %q", ErrUnsupportedFormat, format)
	}
	rows, total, err := s.store.ListPersonas(ctx, limit, 0)
	if err != nil {
		return nil, err
	}
	common.Logger().Info("persona: export", "exported", len(rows), "total", total)
	return &Export{
		ExportFormat:  "json",
		ExportedAt:    time.Now().UTC(),
		TotalExported: len(rows),
		TotalInSystem: total,
		Personas:      rows,
	}, nil
}

// BatchGenerate synthesizes one persona per input sequentially. The first
// failure aborts the batch; personas already created are kept.
func (s *Service) BatchGenerate(ctx context.Context, rawTexts []string) ([]store.Persona, error) {
	logger := common.Logger()
	created := make([]store.Persona, 0, len(rawTexts))
	for i, rawText := range rawTexts {
		row, err := s.Generate(ctx, rawText)
		if err != nil {
			return created, fmt.Errorf("batch item %d: %w", i+1, err)
		}
		created = append(created, *row)
	}
	logger.Info("persona: batch generated", "count", len(created))
	return created, nil
}
