package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// CreatePerson inserts a new aggregate root row and returns it.
func (s *Store) CreatePerson(ctx context.Context) (*Person, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialised")
	}
	now := time.Now().UTC()
	person := &Person{ID: uuid.NewString(), CreatedAt: now, UpdatedAt: now}
	if _, err := s.db.ExecContext(ctx,
		`INSERT INTO persons (id, created_at, updated_at) VALUES (?, ?, ?)`,
		person.ID, person.CreatedAt, person.UpdatedAt); err != nil {
		return nil, fmt.Errorf("insert person: %w", err)
	}
	return person, nil
}

// GetPerson returns the person row or ErrNotFound.
func (s *Store) GetPerson(ctx context.Context, id string) (*Person, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialised")
	}
	var person Person
	if err := s.db.GetContext(ctx, &person, `SELECT * FROM persons WHERE id = ?`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("select person: %w", err)
	}
	return &person, nil
}

// ListPersons returns a page of persons ordered newest first.
func (s *Store) ListPersons(ctx context.Context, limit, offset int) ([]Person, error) {
	if s == nil || s.db == nil {
		return nil, fmt.Errorf("store not initialised")
	}
	persons := []Person{}
	if err := s.db.SelectContext(ctx, &persons,
		`SELECT * FROM persons ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		limit, offset); err != nil {
		return nil, fmt.Errorf("select persons: %w", err)
	}
	return persons, nil
}

// CountPersons returns the total number of persons.
func (s *Store) CountPersons(ctx context.Context) (int, error) {
	if s == nil || s.db == nil {
		return 0, fmt.Errorf("store not initialised")
	}
	var count int
	if err := s.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM persons`); err != nil {
		return 0, fmt.Errorf("count persons: %w", err)
	}
	return count, nil
}

// DeletePerson removes the person row. Foreign-key cascade removes all
// person_data and persona rows in the same statement. Returns false when
// the id does not exist.
func (s *Store) DeletePerson(ctx context.Context, id string) (bool, error) {
	if s == nil || s.db == nil {
		return false, fmt.Errorf("store not initialised")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM persons WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("delete person: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete person rows affected: %w", err)
	}
	return affected > 0, nil
}
