// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// model.go - Dashboard state and the bubbletea update loop.
package dashboard

import (
	"context"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/locktower/internal/client"
	"github.com/jeranaias/locktower/internal/config"
	"github.com/jeranaias/locktower/internal/locks"
	"github.com/jeranaias/locktower/internal/util"
)

// =============================================================================
// CONSTANTS
// =============================================================================

const (
	// maxLogLines bounds the in-memory activity log.
	maxLogLines = 400

	// simulatedHold is how long a dashboard-fired simulated workload keeps
	// its lock. Long enough to watch contention play out on screen.
	simulatedHold = 15 * time.Second

	// streamRetryDelay paces websocket redials while the coordinator is
	// unreachable.
	streamRetryDelay = 3 * time.Second

	// Reserved rows around the panels.
	headerRows = 2
	statusRows = 2
	promptRows = 3

	// panelChrome is the rows a panel spends on its title and border.
	panelChrome = 3

	// panelPad is the columns a panel spends on border and padding.
	panelPad = 4

	// wideLayoutMin is the width at which the two tables sit side by side.
	wideLayoutMin = 100

	minTableRows = 4
	minLogRows   = 4
)

// panel identifies which pane has keyboard focus.
type panel int

const (
	panelLocks panel = iota
	panelQueue
	panelLog
)

// promptAction is the pending operation a prompt is collecting input for.
type promptAction int

const (
	promptNone promptAction = iota
	promptSimRead
	promptSimWrite
	promptUnlock
	promptClear
)

// label returns the prompt line shown for the action.
func (a promptAction) label() string {
	switch a {
	case promptSimRead:
		return "simulate read on:"
	case promptSimWrite:
		return "simulate write on:"
	case promptUnlock:
		return "force unlock resource:"
	case promptClear:
		return "clear every lock and queued request? enter to confirm, esc to cancel"
	default:
		return ""
	}
}

// =============================================================================
// MODEL
// =============================================================================

// Model is the dashboard state. It satisfies tea.Model.
type Model struct {
	client *client.Client
	theme  *Theme
	keys   KeyMap
	help   help.Model

	// ctx scopes every client call and the websocket tail; cancel fires
	// on quit so the stream reader goroutine exits with the program.
	ctx    context.Context
	cancel context.CancelFunc

	poll time.Duration

	// compact hides the activity log pane and gives its rows to the tables.
	compact bool

	locksTable table.Model
	queueTable table.Model
	logView    viewport.Model
	prompt     textinput.Model

	focus  panel
	action promptAction

	status   *client.StatusSnapshot
	queue    *client.QueueSnapshot
	health   *client.Health
	logLines []string

	// events is the live audit line channel; live flips false whenever
	// the stream drops and the log falls back to polling.
	events <-chan string
	live   bool

	notice  string
	lastErr string

	width  int
	height int
	ready  bool
}

// New builds a dashboard over an existing coordinator client.
func New(c *client.Client, cfg config.DashConfig) Model {
	theme := NewTheme(cfg.Theme)

	poll := cfg.PollInterval()
	if poll <= 0 {
		poll = 500 * time.Millisecond
	}

	prompt := textinput.New()
	prompt.Placeholder = "resource name"
	prompt.CharLimit = 128
	prompt.Width = 48

	h := help.New()
	h.Styles.ShortKey = theme.ShortcutKey
	h.Styles.ShortDesc = theme.ShortcutDesc
	h.Styles.FullKey = theme.ShortcutKey
	h.Styles.FullDesc = theme.ShortcutDesc

	ctx, cancel := context.WithCancel(context.Background())

	m := Model{
		client:     c,
		theme:      theme,
		keys:       DefaultKeyMap(),
		help:       h,
		ctx:        ctx,
		cancel:     cancel,
		poll:       poll,
		compact:    cfg.CompactMode,
		locksTable: newPanelTable(lockColumns(76)),
		queueTable: newPanelTable(queueColumns(76)),
		logView:    viewport.New(76, 10),
		prompt:     prompt,
		focus:      panelLocks,
	}
	m.locksTable.Focus()
	return m
}

// newPanelTable builds a table with the shared dashboard styling.
func newPanelTable(cols []table.Column) table.Model {
	t := table.New(
		table.WithColumns(cols),
		table.WithRows([]table.Row{}),
		table.WithFocused(false),
		table.WithHeight(8),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(Overlay).
		BorderBottom(true).
		Bold(true).
		Foreground(Cyan)
	s.Selected = s.Selected.
		Foreground(TextInverse).
		Background(Purple).
		Bold(false)
	t.SetStyles(s)

	return t
}

// lockColumns sizes the active lock table for the given inner width.
func lockColumns(w int) []table.Column {
	sessionW := 22
	if w < 72 {
		sessionW = 13
	}
	resourceW := w - sessionW - 6 - 9 - 8
	if resourceW < 10 {
		resourceW = 10
	}
	return []table.Column{
		{Title: "RESOURCE", Width: resourceW},
		{Title: "MODE", Width: 6},
		{Title: "SESSION", Width: sessionW},
		{Title: "HELD", Width: 9},
	}
}

// queueColumns sizes the wait queue table for the given inner width.
func queueColumns(w int) []table.Column {
	sessionW := 22
	if w < 72 {
		sessionW = 13
	}
	resourceW := w - sessionW - 3 - 6 - 9 - 10
	if resourceW < 10 {
		resourceW = 10
	}
	return []table.Column{
		{Title: "#", Width: 3},
		{Title: "RESOURCE", Width: resourceW},
		{Title: "MODE", Width: 6},
		{Title: "SESSION", Width: sessionW},
		{Title: "WAIT", Width: 9},
	}
}

// =============================================================================
// TEA.MODEL
// =============================================================================

// Init kicks off the first snapshot fetches, the event stream dial, and
// the poll timer.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.fetchHealth(),
		m.fetchStatus(),
		m.fetchQueue(),
		m.openStream(),
		m.tickCmd(),
	)
}

// Update routes messages to their handlers.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		return m.handleResize(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		return m.handleTick()

	case statusMsg:
		return m.handleStatus(msg)

	case queueMsg:
		return m.handleQueue(msg)

	case healthMsg:
		m.health = msg.health
		return m, nil

	case auditMsg:
		return m.handleAudit(msg)

	case streamOpenMsg:
		m.live = true
		m.events = msg.lines
		// The stream replays the recent ring on connect, so start clean.
		m.logLines = nil
		m.refreshLog()
		return m, waitForLine(m.events)

	case streamLineMsg:
		m.appendLog(msg.line)
		return m, waitForLine(m.events)

	case streamClosedMsg:
		if m.ctx.Err() != nil {
			return m, nil
		}
		m.live = false
		return m, retryStreamCmd()

	case streamRetryMsg:
		return m, m.openStream()

	case actionDoneMsg:
		return m.handleActionDone(msg)
	}

	return m.updateFocused(msg)
}

// =============================================================================
// MESSAGE HANDLERS
// =============================================================================

func (m Model) handleResize(msg tea.WindowSizeMsg) (tea.Model, tea.Cmd) {
	m.width = msg.Width
	m.height = msg.Height
	m.help.Width = msg.Width
	m.ready = true
	m.layout()
	m.refreshLog()
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// ctrl+c quits from anywhere, including inside the prompt.
	if msg.String() == "ctrl+c" {
		m.cancel()
		return m, tea.Quit
	}

	if m.action != promptNone {
		return m.handlePromptKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.cancel()
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
		return m, nil

	case key.Matches(msg, m.keys.Tab):
		return m.cycleFocus(), nil

	case key.Matches(msg, m.keys.Refresh):
		return m, tea.Batch(m.fetchHealth(), m.fetchStatus(), m.fetchQueue())

	case key.Matches(msg, m.keys.SimRead):
		return m.openPrompt(promptSimRead)

	case key.Matches(msg, m.keys.SimWrite):
		return m.openPrompt(promptSimWrite)

	case key.Matches(msg, m.keys.Unlock):
		// Unlock the selected row when a table is focused; otherwise ask.
		if m.focus == panelLocks {
			if row := m.locksTable.SelectedRow(); len(row) > 0 {
				return m, m.runUnlock(row[0])
			}
		}
		if m.focus == panelQueue {
			if row := m.queueTable.SelectedRow(); len(row) > 1 {
				return m, m.runUnlock(row[1])
			}
		}
		return m.openPrompt(promptUnlock)

	case key.Matches(msg, m.keys.Clear):
		return m.openPrompt(promptClear)
	}

	return m.updateFocused(msg)
}

func (m Model) handlePromptKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Cancel):
		return m.closePrompt(), nil
	case key.Matches(msg, m.keys.Confirm):
		return m.confirmPrompt()
	}

	var cmd tea.Cmd
	m.prompt, cmd = m.prompt.Update(msg)
	return m, cmd
}

func (m Model) confirmPrompt() (tea.Model, tea.Cmd) {
	action := m.action
	resource := strings.TrimSpace(m.prompt.Value())

	if action != promptClear && resource == "" {
		m.lastErr = "resource name required"
		return m, nil
	}

	next := m.closePrompt()
	switch action {
	case promptSimRead:
		return next, next.runSimulate("read", resource)
	case promptSimWrite:
		return next, next.runSimulate("write", resource)
	case promptUnlock:
		return next, next.runUnlock(resource)
	case promptClear:
		return next, next.runClear()
	}
	return next, nil
}

func (m Model) handleTick() (tea.Model, tea.Cmd) {
	cmds := []tea.Cmd{
		m.fetchHealth(),
		m.fetchStatus(),
		m.fetchQueue(),
		m.tickCmd(),
	}
	// With the stream down the audit tail is polled like everything else,
	// unless compact mode hides the log pane entirely.
	if !m.live && !m.compact {
		cmds = append(cmds, m.fetchAudit())
	}
	return m, tea.Batch(cmds...)
}

func (m Model) handleStatus(msg statusMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.lastErr = shortError(msg.err, m.client.BaseURL())
		return m, nil
	}
	m.lastErr = ""
	m.status = msg.snap
	m.locksTable.SetRows(lockRows(msg.snap.Active))
	return m, nil
}

func (m Model) handleQueue(msg queueMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.lastErr = shortError(msg.err, m.client.BaseURL())
		return m, nil
	}
	m.queue = msg.snap
	m.queueTable.SetRows(queueRows(msg.snap.Pending))
	return m, nil
}

func (m Model) handleAudit(msg auditMsg) (tea.Model, tea.Cmd) {
	// The live stream owns the log; polled tails only fill the gap.
	if msg.err != nil || m.live {
		return m, nil
	}
	// The server returns most recent first; the log reads top down.
	lines := make([]string, 0, len(msg.lines))
	for i := len(msg.lines) - 1; i >= 0; i-- {
		lines = append(lines, msg.lines[i])
	}
	m.logLines = lines
	m.refreshLog()
	return m, nil
}

func (m Model) handleActionDone(msg actionDoneMsg) (tea.Model, tea.Cmd) {
	if msg.err != nil {
		m.lastErr = shortError(msg.err, m.client.BaseURL())
		return m, nil
	}
	m.notice = msg.detail
	m.lastErr = ""
	return m, tea.Batch(m.fetchStatus(), m.fetchQueue())
}

// updateFocused forwards a message to whichever pane has focus.
func (m Model) updateFocused(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.focus {
	case panelLocks:
		m.locksTable, cmd = m.locksTable.Update(msg)
	case panelQueue:
		m.queueTable, cmd = m.queueTable.Update(msg)
	case panelLog:
		m.logView, cmd = m.logView.Update(msg)
	}
	return m, cmd
}

// =============================================================================
// STATE TRANSITIONS
// =============================================================================

func (m Model) cycleFocus() Model {
	panels := panel(3)
	if m.compact {
		panels = 2 // no log pane to land on
	}
	m.focus = (m.focus + 1) % panels
	m.locksTable.Blur()
	m.queueTable.Blur()
	switch m.focus {
	case panelLocks:
		m.locksTable.Focus()
	case panelQueue:
		m.queueTable.Focus()
	}
	return m
}

func (m Model) openPrompt(a promptAction) (tea.Model, tea.Cmd) {
	m.action = a
	m.lastErr = ""
	m.notice = ""
	m.prompt.SetValue("")
	m.layout()
	if a == promptClear {
		m.prompt.Blur()
		return m, nil
	}
	return m, m.prompt.Focus()
}

func (m Model) closePrompt() Model {
	m.action = promptNone
	m.prompt.Blur()
	m.prompt.SetValue("")
	m.layout()
	return m
}

// appendLog adds one live line, keeping the log bounded.
func (m *Model) appendLog(line string) {
	m.logLines = append(m.logLines, line)
	if len(m.logLines) > maxLogLines {
		m.logLines = m.logLines[len(m.logLines)-maxLogLines:]
	}
	m.refreshLog()
}

// refreshLog re-renders the viewport content and keeps it tailing unless
// the user scrolled away while the log pane is focused.
func (m *Model) refreshLog() {
	if len(m.logLines) == 0 {
		m.logView.SetContent(m.theme.PanelEmpty.Render("no activity yet"))
		return
	}

	width := m.logView.Width
	styled := make([]string, len(m.logLines))
	for i, line := range m.logLines {
		styled[i] = m.theme.styleLogLine(util.TruncateWidth(line, width))
	}

	atBottom := m.logView.AtBottom()
	m.logView.SetContent(strings.Join(styled, "\n"))
	if atBottom || m.focus != panelLog {
		m.logView.GotoBottom()
	}
}

// layout recomputes component sizes from the window size and prompt state.
func (m *Model) layout() {
	if m.width <= 0 || m.height <= 0 {
		return
	}

	prompt := 0
	if m.action != promptNone {
		prompt = promptRows
	}
	avail := m.height - headerRows - statusRows - prompt

	blocks := 3
	if m.wide() {
		blocks = 2 // the two tables share a row
	}
	if m.compact {
		blocks--
	}
	content := avail - blocks*panelChrome

	var tableRows, logRows int
	switch {
	case m.compact && m.wide():
		tableRows = content
	case m.compact:
		tableRows = content / 2
	case m.wide():
		tableRows = content / 2
		logRows = content - tableRows
	default:
		tableRows = content / 3
		logRows = content - tableRows*2
	}
	if tableRows < minTableRows {
		tableRows = minTableRows
	}
	if logRows < minLogRows {
		logRows = minLogRows
	}

	inner := m.panelWidth() - panelPad
	if inner < 30 {
		inner = 30
	}

	// The table header and its underline take two of the panel rows.
	m.locksTable.SetColumns(lockColumns(inner))
	m.locksTable.SetHeight(maxInt(1, tableRows-2))
	m.queueTable.SetColumns(queueColumns(inner))
	m.queueTable.SetHeight(maxInt(1, tableRows-2))

	m.logView.Width = m.width - panelPad
	m.logView.Height = logRows
}

func (m Model) wide() bool {
	return m.width >= wideLayoutMin
}

// panelWidth is the outer width of one table panel.
func (m Model) panelWidth() int {
	if m.wide() {
		return (m.width - 1) / 2
	}
	return m.width
}

// =============================================================================
// ROW BUILDERS
// =============================================================================

func lockRows(active []locks.HeldLock) []table.Row {
	rows := make([]table.Row, 0, len(active))
	for _, h := range active {
		rows = append(rows, table.Row{
			h.Resource,
			h.Mode.String(),
			h.Session,
			sinceString(h.HeldSince),
		})
	}
	return rows
}

func queueRows(pending []locks.QueuedRequest) []table.Row {
	rows := make([]table.Row, 0, len(pending))
	for i, q := range pending {
		rows = append(rows, table.Row{
			strconv.Itoa(i + 1),
			q.Resource,
			q.Mode.String(),
			q.Session,
			sinceString(q.WaitingSince),
		})
	}
	return rows
}

// sinceString renders elapsed time since t, second granularity.
func sinceString(t time.Time) string {
	d := time.Since(t)
	if d < 0 {
		d = 0
	}
	return d.Round(time.Second).String()
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
