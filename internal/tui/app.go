package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/rs/zerolog"

	"sessionpick/internal/launch"
	"sessionpick/internal/pipeline"
	"sessionpick/internal/summarize"
	"sessionpick/internal/transcript"
)

type stage int

const (
	stageProjects stage = iota
	stageSessions
	stageDetail
	stageCleanup
)

// sessionItem pairs a discovered transcript with its pipeline result.
type sessionItem struct {
	file   transcript.File
	digest summarize.Digest
	cached bool
	done   bool
}

// --- Tea messages ---

type sessionsLoadedMsg struct {
	project string
	files   []transcript.File
	err     error
}

type processedMsg struct {
	project string
	index   int
	result  pipeline.Result
}

type detailLoadedMsg struct {
	path    string
	content string
}

type cleanupDoneMsg struct {
	deleted int
	failed  int
}

// Model is the interactive two-level picker: project list, then session
// list with lazily computed summaries, then an implicit launch.
type Model struct {
	runner *pipeline.Runner
	log    zerolog.Logger

	stage  stage
	width  int
	height int

	// project list
	projects []transcript.Project
	cursor   int
	offset   int

	// session list for the selected project
	project    transcript.Project
	sessions   []sessionItem
	sCursor    int
	sOffset    int
	processing bool

	spinner spinner.Model
	status  string

	// detail view
	detail        viewport.Model
	detailPath    string
	detailID      string
	detailLoading bool

	launchReq *launch.Request
	quitting  bool
}

func NewModel(projects []transcript.Project, runner *pipeline.Runner, log zerolog.Logger) Model {
	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	return Model{
		runner:   runner,
		log:      log,
		projects: projects,
		spinner:  sp,
		width:    100,
		height:   30,
	}
}

// LaunchRequest returns the session chosen for resume, if any. The caller
// performs the actual handoff after the program exits, so the terminal is
// back in its normal state.
func (m Model) LaunchRequest() *launch.Request {
	return m.launchReq
}

func (m Model) Init() tea.Cmd {
	return nil
}

// --- Commands ---

func loadSessions(project transcript.Project, log zerolog.Logger) tea.Cmd {
	return func() tea.Msg {
		files, err := transcript.Sessions(project, log)
		return sessionsLoadedMsg{project: project.Name, files: files, err: err}
	}
}

// processSession runs the pipeline for one transcript. Sessions are
// processed one at a time, in display order; each completion schedules
// the next pending one.
func processSession(runner *pipeline.Runner, project string, index int, file transcript.File) tea.Cmd {
	return func() tea.Msg {
		result := runner.Process(context.Background(), file)
		return processedMsg{project: project, index: index, result: result}
	}
}

func loadDetail(item sessionItem, width int) tea.Cmd {
	return func() tea.Msg {
		return detailLoadedMsg{
			path:    item.file.Path,
			content: buildDetailContent(item, width),
		}
	}
}

func runCleanup(runner *pipeline.Runner, items []sessionItem) tea.Cmd {
	return func() tea.Msg {
		deleted, failed := 0, 0
		for _, item := range items {
			if err := runner.DeleteEmpty(item.file); err != nil {
				failed++
				continue
			}
			deleted++
		}
		return cleanupDoneMsg{deleted: deleted, failed: failed}
	}
}

// --- Update ---

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.detail.Width = msg.Width
		m.detail.Height = max(1, msg.Height-3)
		return m, nil

	case spinner.TickMsg:
		if !m.processing {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case sessionsLoadedMsg:
		if msg.project != m.project.Name {
			return m, nil // stale: user already moved on
		}
		if msg.err != nil {
			m.status = warnStyle.Render("cannot read project: " + msg.err.Error())
			m.stage = stageProjects
			return m, nil
		}
		m.sessions = make([]sessionItem, len(msg.files))
		for i, f := range msg.files {
			m.sessions[i] = sessionItem{file: f}
		}
		m.sCursor, m.sOffset = 0, 0
		return m.startProcessing()

	case processedMsg:
		if msg.project != m.project.Name || msg.index >= len(m.sessions) {
			return m, nil
		}
		item := &m.sessions[msg.index]
		item.file = msg.result.File
		item.digest = msg.result.Digest
		item.cached = msg.result.FromCache
		item.done = true
		return m.continueProcessing()

	case detailLoadedMsg:
		if m.stage != stageDetail || msg.path != m.detailPath {
			return m, nil
		}
		m.detailLoading = false
		m.detail = viewport.New(m.width, max(1, m.height-3))
		m.detail.SetContent(msg.content)
		return m, nil

	case cleanupDoneMsg:
		m.stage = stageSessions
		m.status = fmt.Sprintf("deleted %d empty session(s)", msg.deleted)
		if msg.failed > 0 {
			m.status += warnStyle.Render(fmt.Sprintf(", %d failed", msg.failed))
		}
		kept := m.sessions[:0]
		for _, item := range m.sessions {
			if !item.done || !item.file.Empty() {
				kept = append(kept, item)
			}
		}
		m.sessions = kept
		if m.sCursor >= len(m.sessions) {
			m.sCursor = max(0, len(m.sessions)-1)
		}
		return m, nil

	case tea.KeyMsg:
		switch m.stage {
		case stageProjects:
			return m.updateProjects(msg)
		case stageSessions:
			return m.updateSessions(msg)
		case stageDetail:
			return m.updateDetail(msg)
		case stageCleanup:
			return m.updateCleanup(msg)
		}
	}
	return m, nil
}

func (m Model) startProcessing() (tea.Model, tea.Cmd) {
	for i, item := range m.sessions {
		if !item.done {
			m.processing = true
			return m, tea.Batch(
				m.spinner.Tick,
				processSession(m.runner, m.project.Name, i, item.file),
			)
		}
	}
	m.processing = false
	return m, nil
}

func (m Model) continueProcessing() (tea.Model, tea.Cmd) {
	for i, item := range m.sessions {
		if !item.done {
			m.processing = true
			return m, processSession(m.runner, m.project.Name, i, item.file)
		}
	}
	m.processing = false
	return m, nil
}

func (m Model) updateProjects(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "down", "j":
		if m.cursor < len(m.projects)-1 {
			m.cursor++
		}
	case "home", "g":
		m.cursor = 0
	case "end", "G":
		m.cursor = max(0, len(m.projects)-1)

	case "enter":
		if len(m.projects) > 0 {
			m.project = m.projects[m.cursor]
			m.sessions = nil
			m.status = ""
			m.stage = stageSessions
			return m, loadSessions(m.project, m.log)
		}
	}
	m.clampProjectOffset()
	return m, nil
}

func (m Model) updateSessions(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		m.quitting = true
		return m, tea.Quit

	case "esc":
		m.stage = stageProjects
		m.status = ""
		return m, nil

	case "up", "k":
		if m.sCursor > 0 {
			m.sCursor--
		}
	case "down", "j":
		if m.sCursor < len(m.sessions)-1 {
			m.sCursor++
		}
	case "home", "g":
		m.sCursor = 0
	case "end", "G":
		m.sCursor = max(0, len(m.sessions)-1)

	case "enter":
		if len(m.sessions) > 0 {
			req := launch.Resolve(m.sessions[m.sCursor].file)
			m.launchReq = &req
			m.quitting = true
			return m, tea.Quit
		}

	case "d":
		if len(m.sessions) > 0 {
			item := m.sessions[m.sCursor]
			m.detailPath = item.file.Path
			m.detailID = item.file.SessionID
			m.detailLoading = true
			m.stage = stageDetail
			return m, loadDetail(item, m.width)
		}

	case "c":
		if len(m.emptySessions()) > 0 {
			m.stage = stageCleanup
		} else {
			m.status = "no empty sessions found"
		}

	case "R":
		if err := m.runner.ResetProject(m.project.Name); err != nil {
			m.status = warnStyle.Render("cache reset failed: " + err.Error())
			return m, nil
		}
		m.status = "project cache cleared, re-summarizing"
		for i := range m.sessions {
			m.sessions[i].done = false
			m.sessions[i].cached = false
			m.sessions[i].digest = summarize.Digest{}
		}
		return m.startProcessing()
	}
	m.clampSessionOffset()
	return m, nil
}

func (m Model) updateDetail(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "esc":
		m.stage = stageSessions
		return m, nil
	case "enter":
		for _, item := range m.sessions {
			if item.file.Path == m.detailPath {
				req := launch.Resolve(item.file)
				m.launchReq = &req
				m.quitting = true
				return m, tea.Quit
			}
		}
		return m, nil
	}
	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m Model) updateCleanup(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "y", "Y":
		return m, runCleanup(m.runner, m.emptySessions())
	case "n", "N", "esc", "q":
		m.stage = stageSessions
		return m, nil
	}
	return m, nil
}

func (m Model) emptySessions() []sessionItem {
	var empty []sessionItem
	for _, item := range m.sessions {
		if item.done && item.file.Empty() {
			empty = append(empty, item)
		}
	}
	return empty
}

// --- View ---

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	switch m.stage {
	case stageProjects:
		return m.viewProjects()
	case stageSessions:
		return m.viewSessions()
	case stageDetail:
		return m.viewDetail()
	case stageCleanup:
		return m.viewCleanup()
	}
	return ""
}

func (m Model) viewProjects() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("sessionpick"))
	b.WriteString(dimStyle.Render(fmt.Sprintf("  %d projects", len(m.projects))))
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(pad("Project", m.projectNameWidth()) + " " + pad("Sessions", 9) + " " + "Modified"))
	b.WriteString("\n")

	visible := m.visibleRows()
	end := min(m.offset+visible, len(m.projects))
	for i := m.offset; i < end; i++ {
		p := m.projects[i]
		row := pad(p.DisplayName(), m.projectNameWidth()) + " " +
			pad(fmt.Sprintf("%d", p.SessionCount), 9) + " " +
			p.ModTime.Format("Jan 02 15:04")
		if i == m.cursor {
			row = selectedStyle.Render(row)
		}
		b.WriteString(row + "\n")
	}
	for i := end - m.offset; i < visible; i++ {
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render("  Enter: open project  q: quit"))
	return b.String()
}

func (m Model) viewSessions() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.project.DisplayName()))
	if m.processing {
		pending := 0
		for _, item := range m.sessions {
			if !item.done {
				pending++
			}
		}
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %s summarizing (%d left)", m.spinner.View(), pending)))
	} else {
		b.WriteString(dimStyle.Render(fmt.Sprintf("  %d sessions", len(m.sessions))))
	}
	b.WriteString("\n")
	b.WriteString(headerStyle.Render(pad("Modified", 13) + " " + pad("Msgs", 5) + " " + pad("Session", 12) + " Summary"))
	b.WriteString("\n")

	visible := m.visibleRows()
	end := min(m.sOffset+visible, len(m.sessions))
	for i := m.sOffset; i < end; i++ {
		b.WriteString(m.renderSessionRow(m.sessions[i], i == m.sCursor) + "\n")
	}
	for i := end - m.sOffset; i < visible; i++ {
		b.WriteString("\n")
	}

	if m.status != "" {
		b.WriteString(statusBarStyle.Render(m.status) + "\n")
	} else {
		b.WriteString(helpStyle.Render("  Enter: resume  d: detail  c: clean empty  R: reset cache  Esc: back  q: quit"))
	}
	return b.String()
}

func (m Model) renderSessionRow(item sessionItem, selected bool) string {
	msgs := "?"
	if item.file.Counted() {
		msgs = fmt.Sprintf("%d", item.file.MessageCount)
	}

	var summary string
	switch {
	case !item.done:
		summary = pendingStyle.Render("…")
	case item.file.Empty():
		summary = emptyTagStyle.Render("[empty]")
	case item.digest.Unavailable:
		summary = dimStyle.Render(item.digest.Title)
	default:
		summary = item.digest.Title
		if item.cached && !selected {
			summary = cachedTagStyle.Render("● ") + summary
		}
	}

	row := pad(item.file.ModTime.Format("Jan 02 15:04"), 13) + " " +
		pad(msgs, 5) + " " +
		pad(shortID(item.file.SessionID), 12) + " " +
		truncate(summary, max(20, m.width-36))

	if selected {
		plain := pad(item.file.ModTime.Format("Jan 02 15:04"), 13) + " " +
			pad(msgs, 5) + " " +
			pad(shortID(item.file.SessionID), 12) + " " +
			truncate(plainSummary(item), max(20, m.width-36))
		return selectedStyle.Render(plain)
	}
	return row
}

func plainSummary(item sessionItem) string {
	switch {
	case !item.done:
		return "…"
	case item.file.Empty():
		return "[empty]"
	default:
		return item.digest.Title
	}
}

func (m Model) viewDetail() string {
	var b strings.Builder
	b.WriteString(detailTitleStyle.Render("session " + m.detailID))
	b.WriteString("\n")
	if m.detailLoading {
		b.WriteString(dimStyle.Render("loading…") + "\n")
	} else {
		b.WriteString(m.detail.View() + "\n")
	}
	b.WriteString(helpStyle.Render("  Enter: resume  ↑/↓: scroll  Esc: back"))
	return b.String()
}

func (m Model) viewCleanup() string {
	empty := m.emptySessions()
	var b strings.Builder
	b.WriteString(titleStyle.Render("clean up empty sessions"))
	b.WriteString("\n\n")
	for _, item := range empty {
		b.WriteString(fmt.Sprintf("  %s  %s\n",
			item.file.ModTime.Format("Jan 02 15:04"), item.file.SessionID))
	}
	b.WriteString("\n")
	b.WriteString(warnStyle.Render(fmt.Sprintf("  Delete these %d empty session(s)? (y/n)", len(empty))))
	return b.String()
}

// --- Helpers ---

func (m Model) projectNameWidth() int {
	w := m.width - 26
	if w < 20 {
		w = 20
	}
	return w
}

func (m Model) visibleRows() int {
	rows := m.height - 3
	if rows < 1 {
		rows = 1
	}
	return rows
}

func (m *Model) clampProjectOffset() {
	m.offset = clampOffset(m.cursor, m.offset, m.visibleRows())
}

func (m *Model) clampSessionOffset() {
	m.sOffset = clampOffset(m.sCursor, m.sOffset, m.visibleRows())
}

func clampOffset(cursor, offset, visible int) int {
	if cursor < offset {
		offset = cursor
	}
	if cursor >= offset+visible {
		offset = cursor - visible + 1
	}
	if offset < 0 {
		offset = 0
	}
	return offset
}

func shortID(id string) string {
	if len(id) < 9 {
		return id
	}
	return id[:4] + ".." + id[len(id)-4:]
}

func pad(s string, width int) string {
	runes := []rune(s)
	if len(runes) >= width {
		return string(runes[:width])
	}
	return s + strings.Repeat(" ", width-len(runes))
}

func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	return string(runes[:maxLen-2]) + ".."
}
