package store

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Person is the aggregate root row. It carries identity only; submissions
// and the computed persona hang off it by foreign key.
type Person struct {
	ID        string    `db:"id" json:"id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// PersonData is one immutable submission of unstructured text. Rows are
// append-only; the ordered set of them is the person's accumulation history.
type PersonData struct {
	ID        string    `db:"id" json:"id"`
	PersonID  string    `db:"person_id" json:"person_id"`
	RawText   string    `db:"raw_text" json:"raw_text"`
	Source    string    `db:"source" json:"source"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Persona is a computed profile row. Aggregate personas have PersonID set
// (unique per person) plus version and lineage; standalone personas keep
// the raw text they were generated from and a nil PersonID.
type Persona struct {
	ID                  string    `db:"id" json:"id"`
	PersonID            *string   `db:"person_id" json:"person_id,omitempty"`
	RawText             string    `db:"raw_text" json:"raw_text"`
	Document            Document  `db:"persona" json:"persona"`
	ComputedFromDataIDs IDList    `db:"computed_from_data_ids" json:"computed_from_data_ids"`
	Version             int       `db:"version" json:"version"`
	CreatedAt           time.Time `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time `db:"updated_at" json:"updated_at"`
}

// Document is the synthesized persona profile. Its internal shape is model
// output and not contractually fixed, so it stays an opaque JSON object.
type Document map[string]any

func (d Document) Value() (driver.Value, error) {
	if d == nil {
		return "{}", nil
	}
	data, err := json.Marshal(d)
	if err != nil {
		return nil, fmt.Errorf("marshal persona document: %w", err)
	}
	return string(data), nil
}

func (d *Document) Scan(src any) error {
	data, err := sqlText(src)
	if err != nil {
		return fmt.Errorf("scan persona document: %w", err)
	}
	if len(data) == 0 {
		*d = nil
		return nil
	}
	return json.Unmarshal(data, d)
}

// IDList is the lineage column: the ordered person_data identifiers that
// produced a persona version, stored as a JSON array.
type IDList []string

func (l IDList) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	data, err := json.Marshal(l)
	if err != nil {
		return nil, fmt.Errorf("marshal lineage: %w", err)
	}
	return string(data), nil
}

func (l *IDList) Scan(src any) error {
	data, err := sqlText(src)
	if err != nil {
		return fmt.Errorf("scan lineage: %w", err)
	}
	if len(data) == 0 {
		*l = nil
		return nil
	}
	return json.Unmarshal(data, l)
}

func sqlText(src any) ([]byte, error) {
	switch v := src.(type) {
	case nil:
		return nil, nil
	case string:
		return []byte(v), nil
	case []byte:
		return v, nil
	default:
		return nil, fmt.Errorf("unsupported column type %T", src)
	}
}
