package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// InsertPersonData appends one immutable submission row for a person.
// Rows are never updated afterwards.
func (s *Store) InsertPersonData(ctx context.Context, personID, rawText, source string) (*PersonData, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialised")
	}
	row := &PersonData{
		ID:        uuid.NewString(),
		PersonID:  personID,
		RawText:   rawText,
		Source:    source,
		CreatedAt: time.Now().UTC(),
	}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO person_data (id, person_id, raw_text, source, created_at) VALUES (?, ?, ?, ?, ?)`,
		row.ID, row.PersonID, row.RawText, row.Source, row.CreatedAt); err != nil {
		return nil, fmt.Errorf("insert person data: %w", err)
	}
	return row, nil
}

// PersonDataPage returns a page of submissions for a person ordered oldest
// first, mirroring the accumulation order used at recompute time.
func (s *Store) PersonDataPage(ctx context.Context, personID string, limit, offset int) ([]PersonData, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialised")
	}
	rows := []PersonData{}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM person_data WHERE person_id = ? ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`,
		personID, limit, offset); err != nil {
		return nil, fmt.Errorf("select person data page: %w", err)
	}
	return rows, nil
}

// AllPersonData returns every submission for a person ordered oldest first.
// The ordering is the deterministic concatenation order for recomputation.
func (s *Store) AllPersonData(ctx context.Context, personID string) ([]PersonData, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialised")
	}
	rows := []PersonData{}
	if err := s.db.SelectContext(ctx, &rows,
		`SELECT * FROM person_data WHERE person_id = ? ORDER BY created_at ASC, id ASC`,
		personID); err != nil {
		return nil, fmt.Errorf("select person data: %w", err)
	}
	return rows, nil
}

// CountPersonData returns the number of submissions for a person.
func (s *Store) CountPersonData(ctx context.Context, personID string) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("store not initialised")
	}
	var count int
	if err := s.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM person_data WHERE person_id = ?`, personID); err != nil {
		return 0, fmt.Errorf("count person data: %w", err)
	}
	return count, nil
}
