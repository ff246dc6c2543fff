package main

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"sessionpick/internal/config"
)

func inputFrom(lines ...string) lineInput {
	return newBasicLineInput(strings.NewReader(strings.Join(lines, "\n")+"\n"), io.Discard)
}

func TestConfirm(t *testing.T) {
	cases := map[string]bool{
		"y":   true,
		"Y":   true,
		"yes": true,
		"":    true, // default answer
		"n":   false,
		"no":  false,
	}
	for answer, want := range cases {
		got, err := confirm(inputFrom(answer), "? ")
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("confirm(%q)=%v, want %v", answer, got, want)
		}
	}
}

func TestPromptRootsRetriesUntilValid(t *testing.T) {
	dir := t.TempDir()
	in := inputFrom("", "/definitely/not/a/dir", dir)

	roots, err := promptRoots(in, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if roots.TranscriptsDir != dir {
		t.Fatalf("transcripts=%q", roots.TranscriptsDir)
	}
	if roots.SummariesDir == "" {
		t.Fatal("summaries dir must be derived")
	}
}

func TestFinishWizardPersistsConfig(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "config.json")
	roots := config.RootsConfig{
		TranscriptsDir: dir,
		SummariesDir:   filepath.Join(dir, "summaries"),
	}

	cfg, err := finishWizard(config.Default(), roots, configPath, io.Discard)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Roots.TranscriptsDir != dir {
		t.Fatalf("transcripts=%q", cfg.Roots.TranscriptsDir)
	}
	if info, err := os.Stat(roots.SummariesDir); err != nil || !info.IsDir() {
		t.Fatal("summaries dir was not created")
	}

	loaded, err := config.Load(configPath)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Roots.TranscriptsDir != dir {
		t.Fatalf("persisted transcripts=%q", loaded.Roots.TranscriptsDir)
	}
}

func TestExpandHome(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home dir")
	}
	if got := expandHome("~/x"); got != filepath.Join(home, "x") {
		t.Fatalf("got %q", got)
	}
	if got := expandHome("/abs/path"); got != "/abs/path" {
		t.Fatalf("got %q", got)
	}
}
