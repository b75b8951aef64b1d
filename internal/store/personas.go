package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InsertPersona creates a standalone persona row (no owning person).
func (s *Store) InsertPersona(ctx context.Context, rawText string, doc Document) (*Persona, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialised")
	}
	now := time.Now().UTC()
	row := &Persona{
		ID:        uuid.NewString(),
		RawText:   rawText,
		Document:  doc,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO personas (id, raw_text, persona, computed_from_data_ids, version, created_at, updated_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		row.ID, row.RawText, row.Document, row.ComputedFromDataIDs, row.Version, row.CreatedAt, row.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert persona: %w", err)
	}
	return row, nil
}

// GetPersona returns the persona row or ErrNotFound.
func (s *Store) GetPersona(ctx context.Context, id string) (*Persona, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialised")
	}
	var row Persona
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM personas WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select persona: %w", err)
	}
	return &row, nil
}

// ListPersonas returns a page ordered newest first plus the total count.
func (s *Store) ListPersonas(ctx context.Context, limit, offset int) ([]Persona, int, error) {
	if s == nil || s.db == nil {
		return nil, 0, fmt.Errorf("store not initialised")
	}
	var total int
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM personas`); err != nil {
		return nil, 0, fmt.Errorf("count personas: %w", err)
	}
	rows := []Persona{}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM personas ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset); err != nil {
		return nil, 0, fmt.Errorf("select personas: %w", err)
	}
	return rows, total, nil
}

// UpdatePersona replaces the raw text and document of an existing persona,
// leaving its identity, version and creation timestamp untouched.
func (s *Store) UpdatePersona(ctx context.Context, id, rawText string, doc Document) (*Persona, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialised")
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE personas SET raw_text = ?, persona = ?, updated_at = ? WHERE id = ?`,
		rawText, doc, time.Now().UTC(), id)
	if err != nil {
		return nil, fmt.Errorf("update persona: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("update persona rows affected: %w", err)
	}
	if affected == 0 {
		return nil, ErrNotFound
	}
	return s.GetPersona(ctx, id)
}

// DeletePersona removes a persona row. Returns false when it does not exist.
func (s *Store) DeletePersona(ctx context.Context, id string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("store not initialised")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM personas WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete persona: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete persona rows affected: %w", err)
	}
	return affected > 0, nil
}

// PersonaByPersonID returns the single computed persona owned by a person,
// or ErrNotFound when none has been computed yet.
func (s *Store) PersonaByPersonID(ctx context.Context, personID string) (*Persona, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialised")
	}
	var row Persona
	if err := s.db.GetContext(ctx, &row, `SELECT * FROM personas WHERE person_id = ?`, personID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select persona by person: %w", err)
	}
	return &row, nil
}

// UpsertPersonaForPerson writes the recomputed persona for a person in one
// statement. On first computation it inserts version 1; afterwards the
// UNIQUE(person_id) conflict arm updates the document, lineage, version and
// update timestamp in place while the row id and created_at survive.
func (s *Store) UpsertPersonaForPerson(ctx context.Context, personID string, doc Document, dataIDs IDList, version int) (*Persona, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialised")
	}
	now := time.Now().UTC()
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO personas (id, person_id, persona, computed_from_data_ids, version, created_at, updated_at)
                 VALUES (?, ?, ?, ?, ?, ?, ?)
                 ON CONFLICT(person_id) DO UPDATE SET
                        persona = excluded.persona,
                        computed_from_data_ids = excluded.computed_from_data_ids,
                        version = excluded.version,
                        updated_at = excluded.updated_at`,
		uuid.NewString(), personID, doc, dataIDs, version, now, now); err != nil {
		return nil, fmt.Errorf("upsert persona: %w", err)
	}
	return s.PersonaByPersonID(ctx, personID)
}

// PersonaStats reports the total persona count and the oldest/newest
// creation timestamps. Bounds are nil when the table is empty.
func (s *Store) PersonaStats(ctx context.Context) (total int, oldest, newest *time.Time, err error) {
	if s == nil || s.db == nil {
		return 0, nil, nil, fmt.Errorf("store not initialised")
	}
	if err := s.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM personas`); err != nil {
		return 0, nil, nil, fmt.Errorf("count personas: %w", err)
	}
	if total == 0 {
		return 0, nil, nil, nil
	}
	// MIN/MAX strip the column's DATETIME decltype, which breaks
	// time.Time scanning; select the column itself instead.
	var oldestAt, newestAt time.Time
	if err := s.db.GetContext(ctx, &oldestAt,
		`SELECT created_at FROM personas ORDER BY created_at ASC LIMIT 1`); err != nil {
		return 0, nil, nil, fmt.Errorf("oldest persona: %w", err)
	}
	if err := s.db.GetContext(ctx, &newestAt,
		`SELECT created_at FROM personas ORDER BY created_at DESC LIMIT 1`); err != nil {
		return 0, nil, nil, fmt.Errorf("newest persona: %w", err)
	}
	return total, &oldestAt, &newestAt, nil
}
