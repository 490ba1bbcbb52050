// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// view.go - Rendering for the dashboard panels.
package dashboard

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jeranaias/locktower/internal/util"
)

// View renders the full dashboard frame.
func (m Model) View() string {
	if !m.ready {
		return "starting locktower dashboard..."
	}

	var b strings.Builder

	b.WriteString(m.renderHeader())
	b.WriteString("\n")

	locksPanel := m.renderPanel("ACTIVE LOCKS", m.locksTable.View(), m.focus == panelLocks, m.panelWidth())
	queuePanel := m.renderPanel("WAIT QUEUE", m.queueTable.View(), m.focus == panelQueue, m.panelWidth())
	if m.wide() {
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, locksPanel, " ", queuePanel))
	} else {
		b.WriteString(locksPanel)
		b.WriteString("\n")
		b.WriteString(queuePanel)
	}
	if !m.compact {
		b.WriteString("\n")
		b.WriteString(m.renderPanel("ACTIVITY", m.logView.View(), m.focus == panelLog, m.width))
	}

	if m.action != promptNone {
		b.WriteString("\n")
		b.WriteString(m.renderPrompt())
	}

	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())

	return b.String()
}

// renderHeader shows the brand, the coordinator address, its health, and
// the headline counters.
func (m Model) renderHeader() string {
	brand := m.theme.Brand.Render("LOCKTOWER")
	addr := m.theme.HeaderInfo.Render(" " + util.TruncateWidth(m.client.BaseURL(), 40))

	var health string
	if m.health != nil {
		health = m.theme.HealthUp.Render(fmt.Sprintf("  up %s", m.health.Version))
	} else {
		health = m.theme.HealthDown.Render("  unreachable")
	}

	var stats string
	if m.status != nil {
		s := m.status.Stats
		readers := m.theme.ReadBadge.Render(fmt.Sprintf("%d readers", s.Readers))
		writers := m.theme.WriteBadge.Render(fmt.Sprintf("%d writers", s.Writers))
		stats = m.theme.HeaderInfo.Render(fmt.Sprintf("  %d resources | ", s.Resources)) +
			readers + m.theme.HeaderInfo.Render(" | ") +
			writers + m.theme.HeaderInfo.Render(fmt.Sprintf(" | %d queued", s.Queued))
	}

	return brand + addr + health + stats
}

// renderPanel wraps content in a titled border, highlighted when focused.
func (m Model) renderPanel(title, content string, focused bool, width int) string {
	style := m.theme.Panel
	if focused {
		style = m.theme.PanelFocused
	}
	head := m.theme.PanelTitle.Render(title)
	return style.Width(width - 2).Render(head + "\n" + content)
}

// renderPrompt shows the pending action and, unless it is a bare
// confirmation, the resource input.
func (m Model) renderPrompt() string {
	label := m.theme.PromptLabel.Render(m.action.label())
	body := label
	if m.action != promptClear {
		body = label + " " + m.prompt.View()
	}
	return m.theme.PromptBox.Width(m.width - 2).Render(body)
}

// renderStatusBar shows the stream state, the latest notice or error, and
// the key help line.
func (m Model) renderStatusBar() string {
	var stream string
	if m.live {
		stream = m.theme.StreamLive.Render("LIVE")
	} else {
		stream = m.theme.StreamPoll.Render("POLL")
	}

	msgWidth := m.width - 12
	var note string
	switch {
	case m.lastErr != "":
		note = m.theme.StatusError.Render(" " + util.TruncateWidth(m.lastErr, msgWidth))
	case m.notice != "":
		note = m.theme.StatusNotice.Render(" " + util.TruncateWidth(m.notice, msgWidth))
	}

	bar := m.theme.StatusBar.Width(m.width).Render(stream + note)
	return bar + "\n" + m.help.View(m.keys)
}
