package cache

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
)

func testEntry(fp string) Entry {
	return Entry{
		Fingerprint:  fp,
		Title:        "Fixing the build",
		Bullets:      []string{"diagnosed linker flags", "patched the makefile"},
		MessageCount: 12,
		ComputedAt:   "2026-08-30T10:00:00Z",
	}
}

func TestJSONStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	const project = "-Users-jack-dev-foo"
	const key = project + "/abc.jsonl"

	if _, miss := store.Lookup(project, key, "fp1"); miss != MissNever {
		t.Fatalf("miss=%v, want never", miss)
	}

	if err := store.Put(project, key, testEntry("fp1")); err != nil {
		t.Fatal(err)
	}

	// a fresh store instance must read the persisted file, not memory
	reopened, err := NewJSONStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	entry, miss := reopened.Lookup(project, key, "fp1")
	if miss != Hit {
		t.Fatalf("miss=%v, want hit", miss)
	}
	if entry.Title != "Fixing the build" || entry.MessageCount != 12 {
		t.Fatalf("entry=%+v", entry)
	}
	if len(entry.Bullets) != 2 {
		t.Fatalf("bullets=%v", entry.Bullets)
	}

	if _, miss := reopened.Lookup(project, key, "fp2"); miss != MissStale {
		t.Fatalf("miss=%v, want stale", miss)
	}
}

func TestJSONStoreOneFilePerProject(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if err := store.Put("-proj-a", "-proj-a/x.jsonl", testEntry("fp")); err != nil {
		t.Fatal(err)
	}
	if err := store.Put("-proj-b", "-proj-b/y.jsonl", testEntry("fp")); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"-proj-a.json", "-proj-b.json"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Fatalf("expected cache file %s: %v", name, err)
		}
	}
}

func TestJSONStoreCorruptFileIsEmptyCache(t *testing.T) {
	dir := t.TempDir()
	const project = "-proj"
	if err := os.WriteFile(filepath.Join(dir, project+".json"), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	store, err := NewJSONStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, miss := store.Lookup(project, project+"/x.jsonl", "fp"); miss != MissNever {
		t.Fatalf("corrupt cache must behave as empty, miss=%v", miss)
	}

	// the store must still accept writes and heal the file
	if err := store.Put(project, project+"/x.jsonl", testEntry("fp")); err != nil {
		t.Fatal(err)
	}
	reopened, err := NewJSONStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if _, miss := reopened.Lookup(project, project+"/x.jsonl", "fp"); miss != Hit {
		t.Fatalf("healed cache miss=%v, want hit", miss)
	}
}

func TestJSONStoreDelete(t *testing.T) {
	store, err := NewJSONStore(t.TempDir(), zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	const project = "-proj"
	const key = project + "/x.jsonl"
	if err := store.Put(project, key, testEntry("fp")); err != nil {
		t.Fatal(err)
	}
	if err := store.Delete(project, key); err != nil {
		t.Fatal(err)
	}
	if _, miss := store.Lookup(project, key, "fp"); miss != MissNever {
		t.Fatalf("miss=%v, want never", miss)
	}
	// deleting a missing key is not an error
	if err := store.Delete(project, "nope"); err != nil {
		t.Fatal(err)
	}
}

func TestJSONStoreInvalidateProject(t *testing.T) {
	dir := t.TempDir()
	store, err := NewJSONStore(dir, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	const project = "-proj"
	if err := store.Put(project, project+"/x.jsonl", testEntry("fp")); err != nil {
		t.Fatal(err)
	}
	if err := store.InvalidateProject(project); err != nil {
		t.Fatal(err)
	}
	if _, miss := store.Lookup(project, project+"/x.jsonl", "fp"); miss != MissNever {
		t.Fatalf("miss=%v, want never", miss)
	}
	if _, err := os.Stat(filepath.Join(dir, project+".json")); !os.IsNotExist(err) {
		t.Fatal("cache file must be removed on invalidation")
	}
}
