// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// commands.go - Async commands and the messages they deliver.
package dashboard

import (
	"errors"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/locktower/internal/client"
)

// =============================================================================
// MESSAGES
// =============================================================================

// tickMsg fires on the poll interval and drives snapshot refreshes.
type tickMsg struct{}

// statusMsg delivers a lock table snapshot or the error fetching it.
type statusMsg struct {
	snap *client.StatusSnapshot
	err  error
}

// queueMsg delivers a wait queue snapshot or the error fetching it.
type queueMsg struct {
	snap *client.QueueSnapshot
	err  error
}

// healthMsg delivers the coordinator health report. A nil report means
// the coordinator was unreachable.
type healthMsg struct {
	health *client.Health
}

// auditMsg delivers the audit tail, most recent first, for the polling
// fallback when the event stream is down.
type auditMsg struct {
	lines []string
	err   error
}

// streamOpenMsg reports a connected event stream.
type streamOpenMsg struct {
	lines <-chan string
}

// streamLineMsg is one live line off the event stream.
type streamLineMsg struct {
	line string
}

// streamClosedMsg reports the event stream dropping, either at dial time
// or mid-tail.
type streamClosedMsg struct{}

// streamRetryMsg fires when it is time to redial the event stream.
type streamRetryMsg struct{}

// actionDoneMsg reports the outcome of a fired action (simulate, unlock,
// clear).
type actionDoneMsg struct {
	detail string
	err    error
}

// =============================================================================
// COMMANDS
// =============================================================================

// tickCmd arms the next poll tick.
func (m Model) tickCmd() tea.Cmd {
	return tea.Tick(m.poll, func(time.Time) tea.Msg { return tickMsg{} })
}

func (m Model) fetchStatus() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.client.Status(m.ctx)
		return statusMsg{snap: snap, err: err}
	}
}

func (m Model) fetchQueue() tea.Cmd {
	return func() tea.Msg {
		snap, err := m.client.Queue(m.ctx)
		return queueMsg{snap: snap, err: err}
	}
}

func (m Model) fetchHealth() tea.Cmd {
	return func() tea.Msg {
		h, err := m.client.Health(m.ctx)
		if err != nil {
			return healthMsg{}
		}
		return healthMsg{health: h}
	}
}

func (m Model) fetchAudit() tea.Cmd {
	return func() tea.Msg {
		tail, err := m.client.Audit(m.ctx, maxLogLines)
		if err != nil {
			return auditMsg{err: err}
		}
		return auditMsg{lines: tail.Lines}
	}
}

// openStream dials the websocket event stream. On failure the model falls
// back to polling and retries later.
func (m Model) openStream() tea.Cmd {
	return func() tea.Msg {
		lines, err := m.client.WatchEvents(m.ctx)
		if err != nil {
			return streamClosedMsg{}
		}
		return streamOpenMsg{lines: lines}
	}
}

// waitForLine blocks on the event stream until the next line arrives.
// The Update loop re-issues it after every delivery.
func waitForLine(lines <-chan string) tea.Cmd {
	return func() tea.Msg {
		line, ok := <-lines
		if !ok {
			return streamClosedMsg{}
		}
		return streamLineMsg{line: line}
	}
}

// retryStreamCmd schedules the next dial attempt.
func retryStreamCmd() tea.Cmd {
	return tea.Tick(streamRetryDelay, func(time.Time) tea.Msg { return streamRetryMsg{} })
}

func (m Model) runSimulate(mode, resource string) tea.Cmd {
	return func() tea.Msg {
		var (
			res *client.SimulateResult
			err error
		)
		if mode == "write" {
			res, err = m.client.SimulateWrite(m.ctx, resource, simulatedHold)
		} else {
			res, err = m.client.SimulateRead(m.ctx, resource, simulatedHold)
		}
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{
			detail: fmt.Sprintf("simulated %s on %s as %s", res.Mode, res.Resource, res.Session),
		}
	}
}

func (m Model) runUnlock(resource string) tea.Cmd {
	return func() tea.Msg {
		if err := m.client.Unlock(m.ctx, resource); err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{detail: "force unlocked " + resource}
	}
}

func (m Model) runClear() tea.Cmd {
	return func() tea.Msg {
		n, err := m.client.Clear(m.ctx)
		if err != nil {
			return actionDoneMsg{err: err}
		}
		return actionDoneMsg{detail: fmt.Sprintf("cleared %d resources", n)}
	}
}

// shortError renders an error for the status bar, collapsing the common
// connection failure into something readable.
func shortError(err error, baseURL string) string {
	if errors.Is(err, client.ErrServerDown) {
		return "coordinator unreachable at " + baseURL
	}
	return err.Error()
}
