package persona

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/personaforge/personad/internal/store"
)

type stubSynth struct {
	doc       store.Document
	err       error
	calls     int
	lastInput string
}

func (s *stubSynth) GeneratePersona(ctx context.Context, rawText string) (store.Document, error) {
	s.calls++
	s.lastInput = rawText
	if s.err != nil {
		return nil, s.err
	}
	if s.doc == nil {
		return store.Document{"identity": map[string]any{"core_description": "stub"}}, nil
	}
	return s.doc, nil
}

func newTestService(t *testing.T) (*Service, *stubSynth) {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = st.Close() })
	synth := &stubSynth{}
	return NewService(st, synth), synth
}

func TestGenerateAndGet(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	created, err := svc.Generate(ctx, "Alice is a nurse from Oslo")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	fetched, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if fetched.RawText != "Alice is a nurse from Oslo" {
		t.Fatalf("unexpected raw text %q", fetched.RawText)
	}
	if fetched.PersonID != nil {
		t.Fatal("standalone persona must have no owner")
	}
}

func TestRegenerateReplacesInPlace(t *testing.T) {
	ctx := context.Background()
	svc, synth := newTestService(t)

	created, err := svc.Generate(ctx, "original text")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	synth.doc = store.Document{"identity": map[string]any{"core_description": "updated"}}

	updated, err := svc.Regenerate(ctx, created.ID, "better text")
	if err != nil {
		t.Fatalf("regenerate: %v", err)
	}
	if updated.ID != created.ID {
		t.Fatal("regenerate must keep the persona id")
	}
	if updated.RawText != "better text" {
		t.Fatalf("expected replaced raw text, got %q", updated.RawText)
	}

	if _, err := svc.Regenerate(ctx, "missing", "text"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMergeDestroysSecondPersona(t *testing.T) {
	ctx := context.Background()
	svc, synth := newTestService(t)

	first, err := svc.Generate(ctx, "Alice likes hiking")
	if err != nil {
		t.Fatalf("generate first: %v", err)
	}
	second, err := svc.Generate(ctx, "Alice is a nurse")
	if err != nil {
		t.Fatalf("generate second: %v", err)
	}

	merged, err := svc.Merge(ctx, first.ID, second.ID, "")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if merged.ID != first.ID {
		t.Fatal("merge must keep the first persona's identity")
	}
	if !strings.Contains(synth.lastInput, "Alice likes hiking") || !strings.Contains(synth.lastInput, "Alice is a nurse") {
		t.Fatalf("expected combined input, got %q", synth.lastInput)
	}
	if _, err := svc.Get(ctx, second.ID); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected second persona unresolvable after merge, got %v", err)
	}

	if _, err := svc.Merge(ctx, first.ID, "missing", ""); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing merge source, got %v", err)
	}
}

func TestMergeHonoursSuppliedText(t *testing.T) {
	ctx := context.Background()
	svc, synth := newTestService(t)

	first, err := svc.Generate(ctx, "one")
	if err != nil {
		t.Fatalf("generate first: %v", err)
	}
	second, err := svc.Generate(ctx, "two")
	if err != nil {
		t.Fatalf("generate second: %v", err)
	}

	merged, err := svc.Merge(ctx, first.ID, second.ID, "hand-written combination")
	if err != nil {
		t.Fatalf("merge: %v", err)
	}
	if synth.lastInput != "hand-written combination" {
		t.Fatalf("expected supplied text used verbatim, got %q", synth.lastInput)
	}
	if merged.RawText != "hand-written combination" {
		t.Fatalf("expected merged raw text stored, got %q", merged.RawText)
	}
}

func TestSearchMatchesDocumentFields(t *testing.T) {
	ctx := context.Background()
	svc, synth := newTestService(t)

	synth.doc = store.Document{"meta": map[string]any{"name": "Dr. Strangelove", "location": "War Room"}}
	if _, err := svc.Generate(ctx, "classified"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	synth.doc = store.Document{"identity": map[string]any{"core_description": "an avid gardener"}}
	if _, err := svc.Generate(ctx, "likes tulips"); err != nil {
		t.Fatalf("generate: %v", err)
	}

	for query, want := range map[string]int{
		"strangelove": 1,
		"GARDENER":    1,
		"tulips":      1,
		"nothing":     0,
	} {
		results, err := svc.Search(ctx, query, 10)
		if err != nil {
			t.Fatalf("search %q: %v", query, err)
		}
		if len(results) != want {
			t.Fatalf("search %q: expected %d matches, got %d", query, want, len(results))
		}
	}
}

func TestStatsEmptyAndPopulated(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	stats, err := svc.StatsSummary(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalPersonas != 0 || stats.OldestCreated != "" || stats.DaysActive != 0 {
		t.Fatalf("expected zeroed stats, got %+v", stats)
	}

	if _, err := svc.Generate(ctx, "text"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	stats, err = svc.StatsSummary(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.TotalPersonas != 1 || stats.OldestCreated == "" || stats.NewestCreated == "" {
		t.Fatalf("expected populated stats, got %+v", stats)
	}
}

func TestExportFormatValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(t)

	if _, err := svc.ExportAll(ctx, "xml", 100); !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("expected ErrUnsupportedFormat, got %v", err)
	}

	export, err := svc.ExportAll(ctx, "json", 100)
	if err != nil {
		t.Fatalf("export empty set: %v", err)
	}
	if export.TotalExported != 0 || len(export.Personas) != 0 {
		t.Fatalf("expected empty export, got %+v", export)
	}

	if _, err := svc.Generate(ctx, "one"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := svc.Generate(ctx, "two"); err != nil {
		t.Fatalf("generate: %v", err)
	}
	export, err = svc.ExportAll(ctx, "json", 1)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if export.TotalExported != 1 || export.TotalInSystem != 2 {
		t.Fatalf("expected 1 of 2 exported, got %+v", export)
	}
}

func TestBatchGenerate(t *testing.T) {
	ctx := context.Background()
	svc, synth := newTestService(t)

	created, err := svc.BatchGenerate(ctx, []string{"one", "two", "three"})
	if err != nil {
		t.Fatalf("batch: %v", err)
	}
	if len(created) != 3 {
		t.Fatalf("expected 3 personas, got %d", len(created))
	}
	if synth.calls != 3 {
		t.Fatalf("expected 3 synthesis calls, got %d", synth.calls)
	}

	_, total, err := svc.List(ctx, 10, 0)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if total != 3 {
		t.Fatalf("expected 3 stored, got %d", total)
	}
}
