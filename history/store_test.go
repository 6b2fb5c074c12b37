package history

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"parlo/segment"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s := NewStore(filepath.Join(t.TempDir(), "history.db"))
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("init: %v", err)
	}
	return s
}

func item(id, filename string) segment.HistoryItem {
	return segment.HistoryItem{
		ID:       id,
		Filename: filename,
		Date:     "2026-08-31T10:00:00Z",
		Analysis: segment.Analysis{
			Metadata: segment.Metadata{CEFR: "B2", WPM: 140, WordCount: 42, Duration: 18},
			Segments: []segment.Segment{
				{ID: 1, Start: 0, End: 3, Text: "hello", Translation: "你好",
					NativeRewrite: "hey there", RewriteReason: "更口语化"},
			},
		},
	}
}

func TestInitIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.Init(context.Background()); err != nil {
		t.Fatalf("second init: %v", err)
	}
}

func TestPutThenList(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, item("1700000000000", "clip.mp3")); err != nil {
		t.Fatalf("put: %v", err)
	}

	items, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	got := items[0]
	if got.Filename != "clip.mp3" || got.Analysis.Metadata.CEFR != "B2" {
		t.Fatalf("round-trip mangled item: %+v", got)
	}
	if len(got.Analysis.Segments) != 1 || got.Analysis.Segments[0].NativeRewrite != "hey there" {
		t.Fatalf("round-trip mangled segments: %+v", got.Analysis.Segments)
	}
}

func TestPutDuplicateIDOverwrites(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, item("42", "first.mp3")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, item("42", "second.mp3")); err != nil {
		t.Fatalf("overwrite put: %v", err)
	}

	items, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("duplicate id produced %d rows, want 1", len(items))
	}
	if items[0].Filename != "second.mp3" {
		t.Fatalf("filename = %q, want overwrite to win", items[0].Filename)
	}
}

func TestListOrdersByDescendingNumericID(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"2", "1", "10"} {
		if err := s.Put(ctx, item(id, id+".mp3")); err != nil {
			t.Fatalf("put %s: %v", id, err)
		}
	}

	items, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var got []string
	for _, it := range items {
		got = append(got, it.ID)
	}
	want := []string{"10", "2", "1"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestDeleteMissingIDIsNotAnError(t *testing.T) {
	s := newTestStore(t)
	if err := s.Delete(context.Background(), "nope"); err != nil {
		t.Fatalf("delete of absent id: %v", err)
	}
}

func TestDeleteRemovesItem(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.Put(ctx, item("7", "x.mp3")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Delete(ctx, "7"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	items, err := s.List(ctx)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(items) != 0 {
		t.Fatalf("item survived delete: %v", items)
	}
}

func TestGetReportsPresence(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, ok, err := s.Get(ctx, "missing"); err != nil || ok {
		t.Fatalf("get missing = (%v, %v), want absent without error", ok, err)
	}
	if err := s.Put(ctx, item("5", "y.mp3")); err != nil {
		t.Fatalf("put: %v", err)
	}
	got, ok, err := s.Get(ctx, "5")
	if err != nil || !ok {
		t.Fatalf("get = (%v, %v)", ok, err)
	}
	if got.Filename != "y.mp3" {
		t.Fatalf("got %+v", got)
	}
}

func TestIOFailureSurfacesStoreError(t *testing.T) {
	s := NewStore(filepath.Join("/nonexistent-dir", "history.db"))
	err := s.Init(context.Background())
	var se *StoreError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want StoreError", err)
	}
}
