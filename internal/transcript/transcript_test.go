package transcript

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestProjects(t *testing.T) {
	root := t.TempDir()
	log := zerolog.Nop()

	writeFile(t, filepath.Join(root, "-Users-jack-dev-foo", "a.jsonl"), `{"type":"user"}`)
	writeFile(t, filepath.Join(root, "-Users-jack-dev-bar", "b.jsonl"), `{"type":"user"}`)
	writeFile(t, filepath.Join(root, "-Users-jack-dev-bar", "c.jsonl"), `{"type":"user"}`)
	// directories without transcripts are not projects
	if err := os.MkdirAll(filepath.Join(root, "-Users-jack-empty"), 0o755); err != nil {
		t.Fatal(err)
	}
	// dot directories are ignored
	writeFile(t, filepath.Join(root, ".hidden", "x.jsonl"), `{"type":"user"}`)
	// stray files at the root are ignored
	writeFile(t, filepath.Join(root, "notes.txt"), "hi")

	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(root, "-Users-jack-dev-foo"), old, old); err != nil {
		t.Fatal(err)
	}

	projects, err := Projects(root, log)
	if err != nil {
		t.Fatal(err)
	}
	if len(projects) != 2 {
		t.Fatalf("got %d projects", len(projects))
	}
	if projects[0].Name != "-Users-jack-dev-bar" {
		t.Fatalf("most recent first, got %q", projects[0].Name)
	}
	if projects[0].SessionCount != 2 {
		t.Fatalf("session count=%d", projects[0].SessionCount)
	}
}

func TestProjectsMissingRoot(t *testing.T) {
	if _, err := Projects(filepath.Join(t.TempDir(), "nope"), zerolog.Nop()); err == nil {
		t.Fatal("missing root must be an error")
	}
}

func TestSessions(t *testing.T) {
	root := t.TempDir()
	dir := filepath.Join(root, "-Users-jack-dev-foo")
	writeFile(t, filepath.Join(dir, "older.jsonl"), `{"type":"user"}`)
	writeFile(t, filepath.Join(dir, "newer.jsonl"), `{"type":"user"}`)
	// subagent logs live in subdirectories and are not sessions
	writeFile(t, filepath.Join(dir, "subagents", "x.jsonl"), `{"type":"user"}`)
	writeFile(t, filepath.Join(dir, "README.md"), "not a transcript")

	old := time.Now().Add(-time.Hour)
	if err := os.Chtimes(filepath.Join(dir, "older.jsonl"), old, old); err != nil {
		t.Fatal(err)
	}

	files, err := Sessions(Project{Name: "-Users-jack-dev-foo", Path: dir}, zerolog.Nop())
	if err != nil {
		t.Fatal(err)
	}
	if len(files) != 2 {
		t.Fatalf("got %d files", len(files))
	}
	if files[0].SessionID != "newer" {
		t.Fatalf("most recent first, got %q", files[0].SessionID)
	}
	if files[0].Counted() {
		t.Fatal("message count must be unknown before parsing")
	}
	if got := files[0].Key(); got != "-Users-jack-dev-foo/newer.jsonl" {
		t.Fatalf("key=%q", got)
	}
}

func TestParse(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.jsonl")
	content := `{"type":"summary","summary":"Fixing the build"}
{"type":"user","cwd":"/Users/jack/dev/foo","message":{"role":"user","content":"why does the build fail?"}}
not json at all
{"type":"assistant","message":{"role":"assistant","content":[{"type":"text","text":"The linker flags"},{"type":"tool_use","id":"t1"},{"type":"text","text":"are wrong."}]}}
{"type":"system","subtype":"init"}
`
	writeFile(t, path, content)

	conv, err := Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Messages) != 2 {
		t.Fatalf("got %d messages", len(conv.Messages))
	}
	if conv.Messages[0].Role != "user" || conv.Messages[0].Text != "why does the build fail?" {
		t.Fatalf("message[0]=%+v", conv.Messages[0])
	}
	if conv.Messages[1].Text != "The linker flags\nare wrong." {
		t.Fatalf("text blocks not joined: %q", conv.Messages[1].Text)
	}
	if len(conv.Summaries) != 1 || conv.Summaries[0] != "Fixing the build" {
		t.Fatalf("summaries=%v", conv.Summaries)
	}
	if conv.CWD != "/Users/jack/dev/foo" {
		t.Fatalf("cwd=%q", conv.CWD)
	}
}

func TestParseEmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.jsonl")
	writeFile(t, path, "")

	conv, err := Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Messages) != 0 {
		t.Fatalf("got %d messages", len(conv.Messages))
	}

	f := File{MessageCount: len(conv.Messages)}
	if !f.Empty() {
		t.Fatal("zero messages must flag the session empty")
	}
}

func TestParseMetadataOnlyFileIsEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "meta.jsonl")
	writeFile(t, path, `{"type":"system","cwd":"/tmp"}`+"\n")

	conv, err := Parse(path)
	if err != nil {
		t.Fatal(err)
	}
	if len(conv.Messages) != 0 {
		t.Fatalf("metadata-only file yielded %d messages", len(conv.Messages))
	}
}

func TestFingerprintChangesWithContent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.jsonl")
	writeFile(t, path, `{"type":"user","message":{"role":"user","content":"hi"}}`+"\n")

	fp1, err := Fingerprint(path)
	if err != nil {
		t.Fatal(err)
	}
	fp2, err := Fingerprint(path)
	if err != nil {
		t.Fatal(err)
	}
	if fp1 != fp2 {
		t.Fatal("fingerprint must be stable for unchanged content")
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(`{"type":"assistant","message":{"role":"assistant","content":"hello"}}` + "\n"); err != nil {
		t.Fatal(err)
	}
	f.Close()

	fp3, err := Fingerprint(path)
	if err != nil {
		t.Fatal(err)
	}
	if fp3 == fp1 {
		t.Fatal("appending a message must change the fingerprint")
	}
}

func TestProjectDisplayName(t *testing.T) {
	cases := map[string]string{
		"-Users-jack-dev-foo": "Users/jack/dev/foo",
		"plain":               "plain",
	}
	for in, want := range cases {
		if got := (Project{Name: in}).DisplayName(); got != want {
			t.Errorf("DisplayName(%q)=%q, want %q", in, got, want)
		}
	}
}
