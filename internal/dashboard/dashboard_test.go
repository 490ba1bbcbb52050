// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package dashboard

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/locktower/internal/audit"
	"github.com/jeranaias/locktower/internal/client"
	"github.com/jeranaias/locktower/internal/config"
	"github.com/jeranaias/locktower/internal/locks"
	"github.com/jeranaias/locktower/internal/server"
)

// =============================================================================
// HELPERS
// =============================================================================

// newTestModel builds a dashboard over a client that never dials anything.
func newTestModel(t *testing.T) Model {
	t.Helper()

	c := client.New(&client.ClientConfig{
		BaseURL: "http://127.0.0.1:1",
		Session: "sess_dash",
	})
	m := New(c, config.Default().Dash)
	t.Cleanup(m.cancel)
	return m
}

// resized returns the model after a window size message.
func resized(t *testing.T, m Model, w, h int) Model {
	t.Helper()

	updated, _ := m.Update(tea.WindowSizeMsg{Width: w, Height: h})
	next, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", updated)
	}
	return next
}

// press sends a single key and returns the next model and command.
func press(t *testing.T, m Model, k string) (Model, tea.Cmd) {
	t.Helper()

	var msg tea.KeyMsg
	switch k {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "ctrl+c":
		msg = tea.KeyMsg{Type: tea.KeyCtrlC}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(k)}
	}

	updated, cmd := m.Update(msg)
	next, ok := updated.(Model)
	if !ok {
		t.Fatalf("Update returned %T, want Model", updated)
	}
	return next, cmd
}

// typeText feeds each rune through the prompt.
func typeText(t *testing.T, m Model, text string) Model {
	t.Helper()

	for _, r := range text {
		m, _ = press(t, m, string(r))
	}
	return m
}

// =============================================================================
// MODEL STATE TESTS
// =============================================================================

func TestNewModelDefaults(t *testing.T) {
	m := newTestModel(t)

	if m.ready {
		t.Error("model ready before the first window size message")
	}
	if m.poll != 500*time.Millisecond {
		t.Errorf("poll = %v, want 500ms from defaults", m.poll)
	}
	if m.focus != panelLocks {
		t.Errorf("focus = %d, want the lock table", m.focus)
	}
	if m.action != promptNone {
		t.Errorf("action = %d, want no prompt", m.action)
	}
	if m.live {
		t.Error("live before the stream ever connected")
	}
}

func TestResizeComputesLayout(t *testing.T) {
	m := resized(t, newTestModel(t), 120, 40)

	if !m.ready {
		t.Fatal("model not ready after resize")
	}
	if !m.wide() {
		t.Error("120 columns should use the side-by-side layout")
	}
	if m.logView.Width != 120-panelPad {
		t.Errorf("logView.Width = %d, want %d", m.logView.Width, 120-panelPad)
	}
	if m.logView.Height < minLogRows {
		t.Errorf("logView.Height = %d, want at least %d", m.logView.Height, minLogRows)
	}

	narrow := resized(t, m, 80, 30)
	if narrow.wide() {
		t.Error("80 columns should stack the panels")
	}
}

func TestStatusSnapshotFillsLockTable(t *testing.T) {
	m := newTestModel(t)

	snap := &client.StatusSnapshot{
		Stats: locks.Stats{Resources: 1, Writers: 1},
		Active: []locks.HeldLock{
			{Resource: "orders", Session: "sess_a", Mode: locks.ModeWrite, HeldSince: time.Now().Add(-3 * time.Second)},
		},
	}
	updated, _ := m.Update(statusMsg{snap: snap})
	m = updated.(Model)

	rows := m.locksTable.Rows()
	if len(rows) != 1 {
		t.Fatalf("lock table rows = %d, want 1", len(rows))
	}
	if rows[0][0] != "orders" || rows[0][1] != "write" {
		t.Errorf("row = %v, want orders/write", rows[0])
	}
	if m.status.Stats.Writers != 1 {
		t.Errorf("Stats.Writers = %d, want 1", m.status.Stats.Writers)
	}
}

func TestQueueSnapshotFillsQueueTable(t *testing.T) {
	m := newTestModel(t)

	snap := &client.QueueSnapshot{
		Pending: []locks.QueuedRequest{
			{Resource: "orders", Session: "sess_b", Mode: locks.ModeRead, WaitingSince: time.Now()},
			{Resource: "orders", Session: "sess_c", Mode: locks.ModeWrite, WaitingSince: time.Now()},
		},
		Count: 2,
	}
	updated, _ := m.Update(queueMsg{snap: snap})
	m = updated.(Model)

	rows := m.queueTable.Rows()
	if len(rows) != 2 {
		t.Fatalf("queue table rows = %d, want 2", len(rows))
	}
	if rows[0][0] != "1" || rows[1][0] != "2" {
		t.Errorf("positions = %q, %q, want 1, 2", rows[0][0], rows[1][0])
	}
	if rows[1][3] != "sess_c" {
		t.Errorf("second row session = %q, want sess_c", rows[1][3])
	}
}

func TestStatusErrorSurfacesInStatusBar(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(statusMsg{err: client.ErrServerDown})
	m = updated.(Model)

	if m.lastErr == "" {
		t.Fatal("fetch error not recorded")
	}
	if !strings.Contains(m.lastErr, "unreachable") {
		t.Errorf("lastErr = %q, want the unreachable wording", m.lastErr)
	}
}

// =============================================================================
// EVENT STREAM TESTS
// =============================================================================

func TestStreamLifecycle(t *testing.T) {
	m := newTestModel(t)

	lines := make(chan string, 4)
	updated, cmd := m.Update(streamOpenMsg{lines: lines})
	m = updated.(Model)
	if !m.live {
		t.Fatal("stream open did not mark the model live")
	}
	if cmd == nil {
		t.Fatal("stream open must arm the line reader")
	}

	updated, cmd = m.Update(streamLineMsg{line: "10:00:00.000 | GRANTED | resource=orders"})
	m = updated.(Model)
	if len(m.logLines) != 1 {
		t.Fatalf("logLines = %d, want 1", len(m.logLines))
	}
	if cmd == nil {
		t.Fatal("stream line must re-arm the line reader")
	}

	updated, cmd = m.Update(streamClosedMsg{})
	m = updated.(Model)
	if m.live {
		t.Error("stream close did not drop live mode")
	}
	if cmd == nil {
		t.Error("stream close must schedule a redial")
	}
}

func TestAuditTailIgnoredWhileLive(t *testing.T) {
	m := newTestModel(t)

	updated, _ := m.Update(streamOpenMsg{lines: make(chan string)})
	m = updated.(Model)

	updated, _ = m.Update(auditMsg{lines: []string{"x"}})
	m = updated.(Model)
	if len(m.logLines) != 0 {
		t.Errorf("polled tail applied while live: %v", m.logLines)
	}
}

func TestAuditTailReversedIntoLog(t *testing.T) {
	m := newTestModel(t)

	// Server order is most recent first.
	updated, _ := m.Update(auditMsg{lines: []string{
		"10:00:01.000 | GRANTED | resource=orders",
		"10:00:00.000 | QUEUED | resource=orders",
	}})
	m = updated.(Model)

	if len(m.logLines) != 2 {
		t.Fatalf("logLines = %d, want 2", len(m.logLines))
	}
	if !strings.Contains(m.logLines[0], "QUEUED") {
		t.Errorf("first log line = %q, want the oldest entry", m.logLines[0])
	}
	if !strings.Contains(m.logLines[1], "GRANTED") {
		t.Errorf("last log line = %q, want the newest entry", m.logLines[1])
	}
}

func TestLogStaysBounded(t *testing.T) {
	m := newTestModel(t)

	for i := 0; i < maxLogLines+25; i++ {
		m.appendLog(fmt.Sprintf("line-%d", i))
	}

	if len(m.logLines) != maxLogLines {
		t.Fatalf("logLines = %d, want cap %d", len(m.logLines), maxLogLines)
	}
	if m.logLines[0] != "line-25" {
		t.Errorf("oldest retained = %q, want line-25", m.logLines[0])
	}
}

// =============================================================================
// KEY HANDLING TESTS
// =============================================================================

func TestQuitKey(t *testing.T) {
	m := resized(t, newTestModel(t), 100, 30)

	_, cmd := press(t, m, "q")
	if cmd == nil {
		t.Fatal("quit key returned no command")
	}
	if _, ok := cmd().(tea.QuitMsg); !ok {
		t.Error("quit key did not produce tea.QuitMsg")
	}
}

func TestTabCyclesFocus(t *testing.T) {
	m := resized(t, newTestModel(t), 100, 30)

	m, _ = press(t, m, "tab")
	if m.focus != panelQueue {
		t.Fatalf("focus = %d, want queue panel", m.focus)
	}
	if !m.queueTable.Focused() {
		t.Error("queue table not focused")
	}

	m, _ = press(t, m, "tab")
	if m.focus != panelLog {
		t.Fatalf("focus = %d, want log panel", m.focus)
	}

	m, _ = press(t, m, "tab")
	if m.focus != panelLocks {
		t.Fatalf("focus = %d, want lock panel again", m.focus)
	}
	if !m.locksTable.Focused() {
		t.Error("lock table not focused")
	}
}

func TestSimulatePromptFlow(t *testing.T) {
	m := resized(t, newTestModel(t), 100, 30)

	m, _ = press(t, m, "w")
	if m.action != promptSimWrite {
		t.Fatalf("action = %d, want the write prompt", m.action)
	}

	m = typeText(t, m, "orders")
	if got := m.prompt.Value(); got != "orders" {
		t.Fatalf("prompt value = %q, want orders", got)
	}

	m, cmd := press(t, m, "enter")
	if m.action != promptNone {
		t.Error("prompt still open after confirm")
	}
	if cmd == nil {
		t.Error("confirm returned no command")
	}
}

func TestPromptRequiresResource(t *testing.T) {
	m := resized(t, newTestModel(t), 100, 30)

	m, _ = press(t, m, "r")
	m, cmd := press(t, m, "enter")

	if m.action != promptSimRead {
		t.Error("empty confirm should keep the prompt open")
	}
	if cmd != nil {
		t.Error("empty confirm should fire nothing")
	}
	if m.lastErr == "" {
		t.Error("empty confirm should explain itself")
	}
}

func TestPromptEscCancels(t *testing.T) {
	m := resized(t, newTestModel(t), 100, 30)

	m, _ = press(t, m, "u")
	if m.action != promptUnlock {
		t.Fatalf("action = %d, want the unlock prompt", m.action)
	}

	m, _ = press(t, m, "esc")
	if m.action != promptNone {
		t.Error("esc did not close the prompt")
	}
}

func TestPromptSwallowsActionKeys(t *testing.T) {
	m := resized(t, newTestModel(t), 100, 30)

	m, _ = press(t, m, "w")
	// "q" and "w" must type into the input, not quit or re-prompt.
	m, cmd := press(t, m, "q")
	if cmd != nil {
		if _, quit := cmd().(tea.QuitMsg); quit {
			t.Fatal("q inside the prompt quit the program")
		}
	}
	m = typeText(t, m, "w")
	if got := m.prompt.Value(); got != "qw" {
		t.Errorf("prompt value = %q, want qw", got)
	}
}

func TestUnlockUsesSelectedRow(t *testing.T) {
	m := resized(t, newTestModel(t), 100, 30)

	snap := &client.StatusSnapshot{
		Active: []locks.HeldLock{
			{Resource: "orders", Session: "sess_a", Mode: locks.ModeWrite, HeldSince: time.Now()},
		},
	}
	updated, _ := m.Update(statusMsg{snap: snap})
	m = updated.(Model)

	m, cmd := press(t, m, "u")
	if m.action != promptNone {
		t.Error("unlock with a selected row should not prompt")
	}
	if cmd == nil {
		t.Error("unlock with a selected row should fire immediately")
	}
}

func TestClearAsksForConfirmation(t *testing.T) {
	m := resized(t, newTestModel(t), 100, 30)

	m, _ = press(t, m, "C")
	if m.action != promptClear {
		t.Fatalf("action = %d, want the clear confirmation", m.action)
	}

	m, cmd := press(t, m, "enter")
	if m.action != promptNone {
		t.Error("confirm did not close the prompt")
	}
	if cmd == nil {
		t.Error("confirm did not fire the clear")
	}
}

// =============================================================================
// RENDER TESTS
// =============================================================================

func TestViewBeforeFirstResize(t *testing.T) {
	m := newTestModel(t)

	if got := m.View(); !strings.Contains(got, "starting") {
		t.Errorf("pre-resize view = %q, want the startup placeholder", got)
	}
}

func TestViewShowsPanelsAndStatus(t *testing.T) {
	m := resized(t, newTestModel(t), 120, 40)

	view := m.View()
	for _, want := range []string{"LOCKTOWER", "ACTIVE LOCKS", "WAIT QUEUE", "ACTIVITY", "POLL"} {
		if !strings.Contains(view, want) {
			t.Errorf("view missing %q", want)
		}
	}
}

func TestCompactModeHidesActivityPanel(t *testing.T) {
	c := client.New(&client.ClientConfig{
		BaseURL: "http://127.0.0.1:1",
		Session: "sess_dash",
	})
	cfg := config.Default().Dash
	cfg.CompactMode = true
	m := New(c, cfg)
	t.Cleanup(m.cancel)

	m = resized(t, m, 120, 40)
	if view := m.View(); strings.Contains(view, "ACTIVITY") {
		t.Error("compact mode still renders the activity panel")
	}

	// Focus cycling skips the hidden pane.
	m, _ = press(t, m, "tab")
	if m.focus != panelQueue {
		t.Fatalf("focus = %d, want queue panel", m.focus)
	}
	m, _ = press(t, m, "tab")
	if m.focus != panelLocks {
		t.Errorf("focus = %d, want lock table back", m.focus)
	}
}

func TestSinceString(t *testing.T) {
	if got := sinceString(time.Now().Add(-90 * time.Second)); got != "1m30s" {
		t.Errorf("sinceString(-90s) = %q, want 1m30s", got)
	}
	if got := sinceString(time.Now().Add(time.Minute)); got != "0s" {
		t.Errorf("sinceString(future) = %q, want 0s", got)
	}
}

func TestThemeHonorsPreference(t *testing.T) {
	if th := NewTheme("dark"); !th.IsDark {
		t.Error("dark preference ignored")
	}
	if th := NewTheme("light"); th.IsDark {
		t.Error("light preference ignored")
	}
}

// =============================================================================
// COORDINATOR-BACKED ACTION TESTS
// =============================================================================

func TestActionsAgainstCoordinator(t *testing.T) {
	rec := audit.NewRecorder(audit.NewRing(128), nil)
	t.Cleanup(func() { rec.Close() })

	mgr := locks.NewManager(locks.Config{Timeout: 200 * time.Millisecond}, rec)
	srv := server.New(config.Default(), mgr, rec)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	c := client.New(&client.ClientConfig{BaseURL: ts.URL, Session: "sess_dash"})
	m := New(c, config.Default().Dash)
	t.Cleanup(m.cancel)

	msg := m.runSimulate("write", "orders")()
	done, ok := msg.(actionDoneMsg)
	if !ok {
		t.Fatalf("runSimulate returned %T, want actionDoneMsg", msg)
	}
	if done.err != nil {
		t.Fatalf("simulate write: %v", done.err)
	}
	if !strings.Contains(done.detail, "simulated write on orders") {
		t.Errorf("detail = %q, want the simulate summary", done.detail)
	}

	// The simulated workload acquires in the background.
	deadline := time.Now().Add(2 * time.Second)
	for {
		snap, err := c.Status(m.ctx)
		if err == nil && snap.Stats.Writers == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("simulated writer never showed up in status")
		}
		time.Sleep(10 * time.Millisecond)
	}

	msg = m.runClear()()
	done, ok = msg.(actionDoneMsg)
	if !ok {
		t.Fatalf("runClear returned %T, want actionDoneMsg", msg)
	}
	if done.err != nil {
		t.Fatalf("clear: %v", done.err)
	}
	if !strings.Contains(done.detail, "cleared 1") {
		t.Errorf("detail = %q, want one cleared resource", done.detail)
	}
}
