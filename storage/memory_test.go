package storage

import (
	"context"
	"errors"
	"testing"

	"meetingSummarize/core"
)

func TestMemoryStoreCRUD(t *testing.T) {
	s := NewMemoryTranscriptStore()
	ctx := context.Background()

	rec, err := s.Create(ctx, "meeting.mp3", "base")
	if err != nil {
		t.Fatal(err)
	}
	if rec.Status != core.TranscriptProcessing || rec.DisplayName != "meeting.mp3" {
		t.Errorf("new record = %+v", rec)
	}

	if err := s.SetTranscript(ctx, rec.ID, "hello"); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(ctx, rec.ID)
	if got.Status != core.TranscriptCompleted || got.Transcript != "hello" {
		t.Errorf("after SetTranscript: %+v", got)
	}

	if err := s.SetSummary(ctx, rec.ID, `{"title":"x"}`); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(ctx, rec.ID)
	if got.SummaryJSON == nil || *got.SummaryJSON != `{"title":"x"}` {
		t.Errorf("after SetSummary: %v", got.SummaryJSON)
	}

	if err := s.Rename(ctx, rec.ID, "Friday standup"); err != nil {
		t.Fatal(err)
	}
	got, _ = s.Get(ctx, rec.ID)
	if got.DisplayName != "Friday standup" || got.OriginalFilename != "meeting.mp3" {
		t.Errorf("rename must only change display_name: %+v", got)
	}

	if err := s.Delete(ctx, rec.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.Get(ctx, rec.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("deleted record still found: %v", err)
	}
}

func TestMemoryStoreNotFound(t *testing.T) {
	s := NewMemoryTranscriptStore()
	ctx := context.Background()

	for name, err := range map[string]error{
		"get":            errOf(s.Get(ctx, "x")),
		"set transcript": s.SetTranscript(ctx, "x", "t"),
		"set summary":    s.SetSummary(ctx, "x", "{}"),
		"set error":      s.SetError(ctx, "x", "boom"),
		"rename":         s.Rename(ctx, "x", "n"),
		"delete":         s.Delete(ctx, "x"),
	} {
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("%s: error = %v, want ErrNotFound", name, err)
		}
	}
}

func errOf(_ *core.TranscriptRecord, err error) error { return err }

func TestMemoryStoreSetError(t *testing.T) {
	s := NewMemoryTranscriptStore()
	ctx := context.Background()
	rec, _ := s.Create(ctx, "bad.mp3", "base")

	if err := s.SetError(ctx, rec.ID, "transcription failed (bad_input): corrupt"); err != nil {
		t.Fatal(err)
	}
	got, _ := s.Get(ctx, rec.ID)
	if got.Status != core.TranscriptError || got.Error == "" {
		t.Errorf("after SetError: %+v", got)
	}
}

func TestMemoryStoreListPagination(t *testing.T) {
	s := NewMemoryTranscriptStore()
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := s.Create(ctx, "f.mp3", "base"); err != nil {
			t.Fatal(err)
		}
	}

	items, total, err := s.List(ctx, 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if total != 5 || len(items) != 2 {
		t.Errorf("page 1: total=%d len=%d", total, len(items))
	}

	items, _, _ = s.List(ctx, 2, 4)
	if len(items) != 1 {
		t.Errorf("last page len=%d, want 1", len(items))
	}

	items, total, _ = s.List(ctx, 2, 100)
	if total != 5 || len(items) != 0 {
		t.Errorf("past-the-end page: total=%d len=%d", total, len(items))
	}

	// Default and clamped limits.
	items, _, _ = s.List(ctx, 0, 0)
	if len(items) != 5 {
		t.Errorf("default limit returned %d items", len(items))
	}
}

func TestMemoryStoreSearch(t *testing.T) {
	s := NewMemoryTranscriptStore()
	ctx := context.Background()

	a, _ := s.Create(ctx, "a.mp3", "base")
	s.SetTranscript(ctx, a.ID, "kubernetes cluster migration planning went well")
	b, _ := s.Create(ctx, "b.mp3", "base")
	s.SetTranscript(ctx, b.ID, "quarterly budget review with finance")
	c, _ := s.Create(ctx, "c.mp3", "base") // never completed

	hits, err := s.Search(ctx, "kubernetes migration", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) == 0 {
		t.Fatal("no hits for matching query")
	}
	if hits[0].ID != a.ID {
		t.Errorf("top hit = %s, want the kubernetes transcript", hits[0].ID)
	}
	for _, h := range hits {
		if h.ID == c.ID {
			t.Error("incomplete transcript surfaced in search")
		}
		if h.Snippet == "" {
			t.Error("hit missing snippet")
		}
	}
}

func TestMemoryStoreSearchTopK(t *testing.T) {
	s := NewMemoryTranscriptStore()
	ctx := context.Background()
	for i := 0; i < 4; i++ {
		rec, _ := s.Create(ctx, "x.mp3", "base")
		s.SetTranscript(ctx, rec.ID, "shared vocabulary meeting notes")
	}

	hits, err := s.Search(ctx, "meeting notes", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("topK=2 returned %d hits", len(hits))
	}
}

func TestSnippetTruncates(t *testing.T) {
	long := ""
	for i := 0; i < 50; i++ {
		long += "wordiness "
	}
	got := snippet(long)
	if len(got) > 210 {
		t.Errorf("snippet too long: %d chars", len(got))
	}
	if got[len(got)-3:] != "..." {
		t.Errorf("snippet not ellipsized: %q", got)
	}
}
