package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	st, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	return st
}

func TestPersonLifecycle(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	created, err := st.CreatePerson(ctx)
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected a generated id")
	}

	fetched, err := st.GetPerson(ctx, created.ID)
	if err != nil {
		t.Fatalf("get person: %v", err)
	}
	if fetched.ID != created.ID {
		t.Fatalf("expected id %s, got %s", created.ID, fetched.ID)
	}

	if _, err := st.GetPerson(ctx, "does-not-exist"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	deleted, err := st.DeletePerson(ctx, created.ID)
	if err != nil {
		t.Fatalf("delete person: %v", err)
	}
	if !deleted {
		t.Fatal("expected delete to report a removed row")
	}
	if deleted, _ := st.DeletePerson(ctx, created.ID); deleted {
		t.Fatal("second delete should remove nothing")
	}
}

func TestListPersonsNewestFirst(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	var ids []string
	for i := 0; i < 3; i++ {
		p, err := st.CreatePerson(ctx)
		if err != nil {
			t.Fatalf("create person %d: %v", i, err)
		}
		ids = append(ids, p.ID)
	}

	persons, err := st.ListPersons(ctx, 10, 0)
	if err != nil {
		t.Fatalf("list persons: %v", err)
	}
	if len(persons) != 3 {
		t.Fatalf("expected 3 persons, got %d", len(persons))
	}
	total, err := st.CountPersons(ctx)
	if err != nil {
		t.Fatalf("count persons: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected total 3, got %d", total)
	}
	if persons[len(persons)-1].ID != ids[0] {
		t.Fatalf("expected oldest person last, got %s", persons[len(persons)-1].ID)
	}
}

func TestPersonDataOrderingAndCounts(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	p, err := st.CreatePerson(ctx)
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	texts := []string{"first", "second", "third"}
	for _, text := range texts {
		if _, err := st.InsertPersonData(ctx, p.ID, text, "api"); err != nil {
			t.Fatalf("insert %q: %v", text, err)
		}
	}

	all, err := st.AllPersonData(ctx, p.ID)
	if err != nil {
		t.Fatalf("all person data: %v", err)
	}
	if len(all) != len(texts) {
		t.Fatalf("expected %d rows, got %d", len(texts), len(all))
	}
	for i, row := range all {
		if row.RawText != texts[i] {
			t.Fatalf("row %d: expected %q, got %q", i, texts[i], row.RawText)
		}
	}

	page, err := st.PersonDataPage(ctx, p.ID, 2, 1)
	if err != nil {
		t.Fatalf("person data page: %v", err)
	}
	if len(page) != 2 || page[0].RawText != "second" {
		t.Fatalf("expected page starting at 'second', got %+v", page)
	}

	count, err := st.CountPersonData(ctx, p.ID)
	if err != nil {
		t.Fatalf("count person data: %v", err)
	}
	if count != 3 {
		t.Fatalf("expected 3, got %d", count)
	}
}

func TestDeletePersonCascades(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	p, err := st.CreatePerson(ctx)
	if err != nil {
		t.Fatalf("create person: %v", err)
	}
	data, err := st.InsertPersonData(ctx, p.ID, "some notes", "api")
	if err != nil {
		t.Fatalf("insert data: %v", err)
	}
	if _, err := st.UpsertPersonaForPerson(ctx, p.ID, Document{"identity": "x"}, IDList{data.ID}, 1); err != nil {
		t.Fatalf("upsert persona: %v", err)
	}

	if _, err := st.DeletePerson(ctx, p.ID); err != nil {
		t.Fatalf("delete person: %v", err)
	}

	count, err := st.CountPersonData(ctx, p.ID)
	if err != nil {
		t.Fatalf("count after delete: %v", err)
	}
	if count != 0 {
		t.Fatalf("expected data rows cascaded away, got %d", count)
	}
	if _, err := st.PersonaByPersonID(ctx, p.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected persona cascaded away, got %v", err)
	}
}

func TestUpsertPersonaForPersonKeepsIdentity(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	p, err := st.CreatePerson(ctx)
	if err != nil {
		t.Fatalf("create person: %v", err)
	}

	v1, err := st.UpsertPersonaForPerson(ctx, p.ID, Document{"v": float64(1)}, IDList{"d1"}, 1)
	if err != nil {
		t.Fatalf("first upsert: %v", err)
	}
	v2, err := st.UpsertPersonaForPerson(ctx, p.ID, Document{"v": float64(2)}, IDList{"d1", "d2"}, 2)
	if err != nil {
		t.Fatalf("second upsert: %v", err)
	}

	if v2.ID != v1.ID {
		t.Fatalf("expected row id preserved across upserts: %s vs %s", v1.ID, v2.ID)
	}
	if !v2.CreatedAt.Equal(v1.CreatedAt) {
		t.Fatal("expected created_at preserved across upserts")
	}
	if v2.Version != 2 {
		t.Fatalf("expected version 2, got %d", v2.Version)
	}
	if len(v2.ComputedFromDataIDs) != 2 {
		t.Fatalf("expected lineage of 2, got %v", v2.ComputedFromDataIDs)
	}
	if v2.Document["v"] != float64(2) {
		t.Fatalf("expected updated document, got %v", v2.Document)
	}
}

func TestStandalonePersonaCRUD(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	created, err := st.InsertPersona(ctx, "alice raw text", Document{"meta": map[string]any{"name": "Alice"}})
	if err != nil {
		t.Fatalf("insert persona: %v", err)
	}
	if created.PersonID != nil {
		t.Fatal("standalone persona must not have an owner")
	}
	if created.Version != 1 {
		t.Fatalf("expected version 1, got %d", created.Version)
	}

	// a second standalone persona must not collide on the person_id
	// uniqueness constraint
	if _, err := st.InsertPersona(ctx, "bob raw text", Document{}); err != nil {
		t.Fatalf("second standalone persona: %v", err)
	}

	updated, err := st.UpdatePersona(ctx, created.ID, "new text", Document{"k": "v"})
	if err != nil {
		t.Fatalf("update persona: %v", err)
	}
	if updated.RawText != "new text" {
		t.Fatalf("expected updated raw text, got %q", updated.RawText)
	}
	if !updated.CreatedAt.Equal(created.CreatedAt) {
		t.Fatal("update must not touch created_at")
	}

	if _, err := st.UpdatePersona(ctx, "missing", "x", Document{}); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	deleted, err := st.DeletePersona(ctx, created.ID)
	if err != nil || !deleted {
		t.Fatalf("delete persona: deleted=%v err=%v", deleted, err)
	}
	if _, err := st.GetPersona(ctx, created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestPersonaStats(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)

	total, oldest, newest, err := st.PersonaStats(ctx)
	if err != nil {
		t.Fatalf("stats on empty store: %v", err)
	}
	if total != 0 || oldest != nil || newest != nil {
		t.Fatalf("expected zeroed stats, got total=%d oldest=%v newest=%v", total, oldest, newest)
	}

	for i := 0; i < 2; i++ {
		if _, err := st.InsertPersona(ctx, "text", Document{}); err != nil {
			t.Fatalf("insert persona %d: %v", i, err)
		}
	}
	total, oldest, newest, err = st.PersonaStats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if total != 2 || oldest == nil || newest == nil {
		t.Fatalf("expected populated stats, got total=%d oldest=%v newest=%v", total, oldest, newest)
	}
	if newest.Before(*oldest) {
		t.Fatal("newest must not precede oldest")
	}
}
