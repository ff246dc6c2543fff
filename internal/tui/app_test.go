package tui

import (
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"sessionpick/internal/pipeline"
	"sessionpick/internal/summarize"
	"sessionpick/internal/transcript"
)

func TestShortID(t *testing.T) {
	cases := map[string]string{
		"0b2c4d6e-1111-2222-3333-444455556666": "0b2c..6666",
		"short":                                "short",
		"":                                     "",
	}
	for in, want := range cases {
		if got := shortID(in); got != want {
			t.Errorf("shortID(%q)=%q, want %q", in, got, want)
		}
	}
}

func TestPadAndTruncate(t *testing.T) {
	if got := pad("ab", 5); got != "ab   " {
		t.Fatalf("pad=%q", got)
	}
	if got := pad("abcdef", 4); got != "abcd" {
		t.Fatalf("pad=%q", got)
	}
	if got := truncate("hello world", 7); got != "hello.." {
		t.Fatalf("truncate=%q", got)
	}
	if got := truncate("hi", 7); got != "hi" {
		t.Fatalf("truncate=%q", got)
	}
}

func TestClampOffset(t *testing.T) {
	// cursor above the window pulls the offset up
	if got := clampOffset(2, 5, 10); got != 2 {
		t.Fatalf("offset=%d", got)
	}
	// cursor below the window pushes the offset down
	if got := clampOffset(15, 0, 10); got != 6 {
		t.Fatalf("offset=%d", got)
	}
	// cursor inside the window leaves it alone
	if got := clampOffset(5, 3, 10); got != 3 {
		t.Fatalf("offset=%d", got)
	}
}

func testProjects() []transcript.Project {
	now := time.Now()
	return []transcript.Project{
		{Name: "-Users-jack-dev-foo", Path: "/tmp/foo", ModTime: now, SessionCount: 2},
		{Name: "-Users-jack-dev-bar", Path: "/tmp/bar", ModTime: now.Add(-time.Hour), SessionCount: 1},
	}
}

func keyMsg(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func TestModelProjectNavigation(t *testing.T) {
	m := NewModel(testProjects(), &pipeline.Runner{Log: zerolog.Nop()}, zerolog.Nop())

	updated, _ := m.Update(keyMsg("j"))
	m = updated.(Model)
	if m.cursor != 1 {
		t.Fatalf("cursor=%d", m.cursor)
	}
	updated, _ = m.Update(keyMsg("j"))
	m = updated.(Model)
	if m.cursor != 1 {
		t.Fatal("cursor must stop at the last project")
	}
	updated, _ = m.Update(keyMsg("k"))
	m = updated.(Model)
	if m.cursor != 0 {
		t.Fatalf("cursor=%d", m.cursor)
	}
}

func TestModelQuitWithoutSelection(t *testing.T) {
	m := NewModel(testProjects(), &pipeline.Runner{Log: zerolog.Nop()}, zerolog.Nop())
	updated, cmd := m.Update(keyMsg("q"))
	m = updated.(Model)
	if cmd == nil {
		t.Fatal("q must quit")
	}
	if m.LaunchRequest() != nil {
		t.Fatal("quit without selection must not produce a launch request")
	}
}

func TestModelEnterOpensSessions(t *testing.T) {
	m := NewModel(testProjects(), &pipeline.Runner{Log: zerolog.Nop()}, zerolog.Nop())
	updated, cmd := m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	m = updated.(Model)
	if m.stage != stageSessions {
		t.Fatalf("stage=%d", m.stage)
	}
	if cmd == nil {
		t.Fatal("entering a project must load its sessions")
	}
	if m.project.Name != "-Users-jack-dev-foo" {
		t.Fatalf("project=%q", m.project.Name)
	}
}

func TestProcessedMsgFromStaleProjectIgnored(t *testing.T) {
	m := NewModel(testProjects(), &pipeline.Runner{Log: zerolog.Nop()}, zerolog.Nop())
	m.stage = stageSessions
	m.project = m.projects[0]
	m.sessions = []sessionItem{{file: transcript.File{SessionID: "abc"}}}

	updated, _ := m.Update(processedMsg{
		project: "-some-other-project",
		index:   0,
		result:  pipeline.Result{Digest: summarize.Digest{Title: "stale"}},
	})
	m = updated.(Model)
	if m.sessions[0].done {
		t.Fatal("result for another project must be discarded")
	}
}

func TestRenderSessionRowStates(t *testing.T) {
	m := NewModel(testProjects(), &pipeline.Runner{Log: zerolog.Nop()}, zerolog.Nop())

	pending := sessionItem{file: transcript.File{SessionID: "abc", ModTime: time.Now(), MessageCount: -1}}
	if row := m.renderSessionRow(pending, false); !strings.Contains(row, "?") {
		t.Fatalf("pending row=%q", row)
	}

	empty := sessionItem{file: transcript.File{SessionID: "abc", ModTime: time.Now(), MessageCount: 0}, done: true}
	if row := m.renderSessionRow(empty, false); !strings.Contains(row, "[empty]") {
		t.Fatalf("empty row=%q", row)
	}

	summarized := sessionItem{
		file:   transcript.File{SessionID: "abc", ModTime: time.Now(), MessageCount: 4},
		digest: summarize.Digest{Title: "Fixed the build"},
		done:   true,
	}
	if row := m.renderSessionRow(summarized, false); !strings.Contains(row, "Fixed the build") {
		t.Fatalf("row=%q", row)
	}
}
