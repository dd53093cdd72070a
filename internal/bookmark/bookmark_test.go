package bookmark

import (
	"os"
	"path/filepath"
	"testing"
)

func TestSaveAndGet(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if err := store.Save("/sessions/a.jsonl", 42, 2.0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	bm := store.Get("/sessions/a.jsonl")
	if bm == nil {
		t.Fatal("expected a bookmark")
	}
	if bm.Position != 42 || bm.Speed != 2.0 {
		t.Errorf("wrong bookmark: %+v", bm)
	}
	if store.Get("/sessions/other.jsonl") != nil {
		t.Error("expected nil for unknown session")
	}
}

func TestLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()

	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := store.Save("/sessions/a.jsonl", 7, 1.0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save("/sessions/b.jsonl", 99, 4.0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	reloaded, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	if err := reloaded.Load(); err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	a := reloaded.Get("/sessions/a.jsonl")
	b := reloaded.Get("/sessions/b.jsonl")
	if a == nil || a.Position != 7 {
		t.Errorf("bookmark a not restored: %+v", a)
	}
	if b == nil || b.Position != 99 || b.Speed != 4.0 {
		t.Errorf("bookmark b not restored: %+v", b)
	}
}

func TestSaveOverwrites(t *testing.T) {
	store, err := NewStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	store.Save("/s.jsonl", 5, 1.0)
	store.Save("/s.jsonl", 10, 1.5)

	bm := store.Get("/s.jsonl")
	if bm.Position != 10 || bm.Speed != 1.5 {
		t.Errorf("expected latest save to win: %+v", bm)
	}
}

func TestSaveWritesAtomically(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	if err := store.Save("/s.jsonl", 5, 1.0); err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if err := store.Save("/s.jsonl", 10, 1.5); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	// The rename must leave exactly one .json file and no temp residue.
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	var jsonFiles int
	for _, entry := range entries {
		switch filepath.Ext(entry.Name()) {
		case ".json":
			jsonFiles++
		case ".tmp":
			t.Errorf("temp file left behind: %s", entry.Name())
		}
	}
	if jsonFiles != 1 {
		t.Errorf("expected 1 bookmark file, got %d", jsonFiles)
	}
}

func TestDelete(t *testing.T) {
	dir := t.TempDir()
	store, err := NewStore(dir)
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}

	store.Save("/s.jsonl", 5, 1.0)
	if err := store.Delete("/s.jsonl"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if store.Get("/s.jsonl") != nil {
		t.Error("bookmark should be gone")
	}

	// Deleting again is fine.
	if err := store.Delete("/s.jsonl"); err != nil {
		t.Errorf("repeat delete should be a no-op, got %v", err)
	}

	// And it stays gone across a reload.
	reloaded, _ := NewStore(dir)
	reloaded.Load()
	if reloaded.Get("/s.jsonl") != nil {
		t.Error("deleted bookmark came back after reload")
	}
}
