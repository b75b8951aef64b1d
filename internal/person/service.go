package person

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/personaforge/personad/internal/common"
	"github.com/personaforge/personad/internal/store"
)

// MaxRawTextLen bounds a single data submission.
const MaxRawTextLen = 100000

const defaultSource = "api"

var (
	// ErrEmptyRawText and ErrRawTextTooLong are validation failures,
	// detected before any row is written.
	ErrEmptyRawText   = errors.New("raw_text must not be empty")
	ErrRawTextTooLong = errors.New("raw_text exceeds 100000 characters")
)

// Synthesizer generates a persona document from accumulated raw text.
// Satisfied by *synth.Pipeline; tests substitute a stub.
type Synthesizer interface {
	GeneratePersona(ctx context.Context, rawText string) (store.Document, error)
}

// Service coordinates the person aggregate root: lifecycle, append-only
// data accumulation, and persona recomputation with versioning and lineage.
type Service struct {
	store *store.Store
	synth Synthesizer
}

func NewService(st *store.Store, synth Synthesizer) *Service {
	return &Service{store: st, synth: synth}
}

// Overview is a person enriched with submission count and the current
// persona version, if one has been computed.
type Overview struct {
	store.Person
	PersonDataCount      int  `json:"person_data_count"`
	LatestPersonaVersion *int `json:"latest_persona_version"`
}

// CreatePerson creates a new aggregate root with no required input.
func (s *Service) CreatePerson(ctx context.Context) (*store.Person, error) {
	logger := common.Logger()
	person, err := s.store.CreatePerson(ctx)
	if err != nil {
		return nil, fmt.Errorf("create person: %w", err)
	}
	logger.Info("person: created", "id", person.ID)
	return person, nil
}

// GetPerson returns the person with its metadata, or store.ErrNotFound.
func (s *Service) GetPerson(ctx context.Context, id string) (*Overview, error) {
	person, err := s.store.GetPerson(ctx, id)
	if err != nil {
		return nil, err
	}
	count, err := s.store.CountPersonData(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("count submissions: %w", err)
	}
	overview := &Overview{Person: *person, PersonDataCount: count}
	persona, err := s.store.PersonaByPersonID(ctx, id)
	switch {
	case err == nil:
		version := persona.Version
		overview.LatestPersonaVersion = &version
	case errors.Is(err, store.ErrNotFound):
		// no persona computed yet
	default:
		return nil, fmt.Errorf("load persona: %w", err)
	}
	return overview, nil
}

// ListPersons returns a page of persons newest first plus the total count.
func (s *Service) ListPersons(ctx context.Context, limit, offset int) ([]store.Person, int, error) {
	persons, err := s.store.ListPersons(ctx, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountPersons(ctx)
	if err != nil {
		return nil, 0, err
	}
	return persons, total, nil
}

// DeletePerson removes the person; the store's foreign-key cascade removes
// all person_data and persona rows atomically with it.
func (s *Service) DeletePerson(ctx context.Context, id string) error {
	deleted, err := s.store.DeletePerson(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return store.ErrNotFound
	}
	common.Logger().Info("person: deleted", "id", id)
	return nil
}

// AddData validates and appends one immutable submission. It never
// triggers recomputation.
func (s *Service) AddData(ctx context.Context, personID, rawText, source string) (*store.PersonData, error) {
	if err := validateRawText(rawText); err != nil {
		return nil, err
	}
	if _, err := s.store.GetPerson(ctx, personID); err != nil {
		return nil, err
	}
	if strings.TrimSpace(source) == "" {
		source = defaultSource
	}
	row, err := s.store.InsertPersonData(ctx, personID, rawText, source)
	if err != nil {
		return nil, fmt.Errorf("append submission: %w", err)
	}
	common.Logger().Debug("person: data appended", "person_id", personID, "data_id", row.ID)
	return row, nil
}

// DataHistory returns a page of submissions oldest first plus the total,
// mirroring the order recomputation concatenates them in.
func (s *Service) DataHistory(ctx context.Context, personID string, limit, offset int) ([]store.PersonData, int, error) {
	rows, err := s.store.PersonDataPage(ctx, personID, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.store.CountPersonData(ctx, personID)
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

// AddDataAndRegenerate appends a submission and recomputes the persona
// from the full accumulated history. The new submission persists even when
// synthesis fails afterwards: data capture must not be lost, so the
// recompute error is surfaced rather than rolled back.
func (s *Service) AddDataAndRegenerate(ctx context.Context, personID, rawText, source string) (*store.PersonData, *store.Persona, error) {
	logger := common.Logger()
	submission, err := s.AddData(ctx, personID, rawText, source)
	if err != nil {
		return nil, nil, err
	}
	persona, err := s.RecomputePersona(ctx, personID)
	if err != nil {
		logger.Error("person: recompute after append failed", "person_id", personID, "error", err)
		return submission, nil, err
	}
	logger.Info("person: data appended and persona regenerated",
		"person_id", personID, "data_id", submission.ID, "version", persona.Version)
	return submission, persona, nil
}

// CurrentPersona returns the person's computed persona, or
// store.ErrNotFound when none exists yet.
func (s *Service) CurrentPersona(ctx context.Context, personID string) (*store.Persona, error) {
	return s.store.PersonaByPersonID(ctx, personID)
}

// RecomputePersona regenerates the persona from the complete accumulated
// history:
//
//  1. fetch ALL submissions, ordered oldest first
//  2. concatenate with deterministic separator headers
//  3. synthesize a new document
//  4. next version = current + 1, or 1 for the first computation
//  5. lineage = the full set of submission ids used, never a delta
//  6. upsert the single persona row for the person
//
// Returns (nil, nil) when the person has no submissions; nothing to
// synthesize is not an error. A synthesis failure aborts with no write, so
// the prior persona version is left untouched.
func (s *Service) RecomputePersona(ctx context.Context, personID string) (*store.Persona, error) {
	logger := common.Logger()
	all, err := s.store.AllPersonData(ctx, personID)
	if err != nil {
		return nil, err
	}
	if len(all) == 0 {
		logger.Debug("person: no data to synthesize", "person_id", personID)
		return nil, nil
	}

	accumulated := concatenateSubmissions(all)
	logger.Debug("person: recomputing persona",
		"person_id", personID, "submissions", len(all), "chars", len(accumulated))

	doc, err := s.synth.GeneratePersona(ctx, accumulated)
	if err != nil {
		return nil, fmt.Errorf("recompute persona: %w", err)
	}

	version := 1
	current, err := s.store.PersonaByPersonID(ctx, personID)
	switch {
	case err == nil:
		version = current.Version + 1
	case errors.Is(err, store.ErrNotFound):
		// first computation
	default:
		return nil, fmt.Errorf("read current persona: %w", err)
	}

	lineage := make(store.IDList, 0, len(all))
	for _, row := range all {
		lineage = append(lineage, row.ID)
	}

	persona, err := s.store.UpsertPersonaForPerson(ctx, personID, doc, lineage, version)
	if err != nil {
		return nil, fmt.Errorf("persist persona: %w", err)
	}
	logger.Info("person: persona recomputed",
		"person_id", personID, "version", persona.Version, "lineage", len(lineage))
	return persona, nil
}

// concatenateSubmissions joins all raw text oldest first, each preceded by
// a header carrying its sequence number and submission timestamp so
// submission boundaries stay visible to the model and to auditors.
func concatenateSubmissions(submissions []store.PersonData) string {
	var b strings.Builder
	for i, submission := range submissions {
		fmt.Fprintf(&b, "\n--- Data Submission #%d (submitted %s) ---\n",
			i+1, submission.CreatedAt.UTC().Format(time.RFC3339))
		b.WriteString(submission.RawText)
	}
	return b.String()
}

func validateRawText(rawText string) error {
	if rawText == "" {
		return ErrEmptyRawText
	}
	if len(rawText) > MaxRawTextLen {
		return ErrRawTextTooLong
	}
	return nil
}
