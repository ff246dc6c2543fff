package launch

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sessionpick/internal/transcript"
)

func TestDecodeProjectDir(t *testing.T) {
	cases := map[string]string{
		"-Users-jack-dev-foo": "/Users/jack/dev/foo",
		"-home-jack":          "/home/jack",
		"no-leading-dash":     "",
		"":                    "",
	}
	for in, want := range cases {
		if got := DecodeProjectDir(in); got != want {
			t.Errorf("DecodeProjectDir(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestResolvePrefersTranscriptCWD(t *testing.T) {
	workdir := t.TempDir()
	path := filepath.Join(t.TempDir(), "s.jsonl")
	line := `{"type":"user","cwd":"` + workdir + `","message":{"role":"user","content":"hi"}}` + "\n"
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		t.Fatal(err)
	}

	req := Resolve(transcript.File{Path: path, Project: "-nonexistent-dir", SessionID: "s"})
	if req.WorkDir != workdir {
		t.Fatalf("workdir=%q, want %q", req.WorkDir, workdir)
	}
	if req.SessionID != "s" {
		t.Fatalf("session=%q", req.SessionID)
	}
}

func TestResolveFallsBackToDecodedProject(t *testing.T) {
	// cwd in the transcript points at a directory that no longer exists
	path := filepath.Join(t.TempDir(), "s.jsonl")
	line := `{"type":"user","cwd":"/definitely/gone/by/now","message":{"role":"user","content":"hi"}}` + "\n"
	if err := os.WriteFile(path, []byte(line), 0o644); err != nil {
		t.Fatal(err)
	}

	decoded := t.TempDir()
	encoded := strings.ReplaceAll(decoded, string(os.PathSeparator), "-")

	req := Resolve(transcript.File{Path: path, Project: encoded, SessionID: "s"})
	if req.WorkDir != decoded {
		t.Fatalf("workdir=%q, want %q", req.WorkDir, decoded)
	}
}

func TestResolveNoDirectoryAvailable(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s.jsonl")
	if err := os.WriteFile(path, []byte(""), 0o644); err != nil {
		t.Fatal(err)
	}
	req := Resolve(transcript.File{Path: path, Project: "-gone-project", SessionID: "s"})
	if req.WorkDir != "" {
		t.Fatalf("workdir=%q, want empty", req.WorkDir)
	}
}

func TestShellCommand(t *testing.T) {
	req := Request{SessionID: "abc-123", WorkDir: "/Users/jack/it's here"}
	got := ShellCommand(req)
	want := `cd '/Users/jack/it'\''s here' && claude -r 'abc-123'`
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}

	bare := ShellCommand(Request{SessionID: "abc"})
	if bare != "claude -r 'abc'" {
		t.Fatalf("got %q", bare)
	}
}

func TestRunRejectsEmptySession(t *testing.T) {
	if err := Run(Request{}); err == nil {
		t.Fatal("empty session id must be rejected")
	}
}

func TestExitCode(t *testing.T) {
	if got := ExitCode(os.ErrNotExist); got != -1 {
		t.Fatalf("exit code=%d, want -1", got)
	}
}
