// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// theme.go - Styled components for the dashboard panels.
package dashboard

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds every styled component the dashboard renders with.
// It detects the terminal's color capability and adjusts accordingly.
type Theme struct {
	// Terminal capabilities
	IsDark       bool
	HasTrueColor bool
	ColorProfile termenv.Profile

	// ==========================================================================
	// HEADER STYLES
	// ==========================================================================

	Brand      lipgloss.Style
	HeaderInfo lipgloss.Style
	HealthUp   lipgloss.Style
	HealthDown lipgloss.Style

	// ==========================================================================
	// PANEL STYLES
	// ==========================================================================

	Panel        lipgloss.Style
	PanelFocused lipgloss.Style
	PanelTitle   lipgloss.Style
	PanelEmpty   lipgloss.Style

	// ==========================================================================
	// LOCK MODE BADGES
	// ==========================================================================

	ReadBadge  lipgloss.Style
	WriteBadge lipgloss.Style

	// ==========================================================================
	// ACTIVITY LOG STYLES
	// ==========================================================================

	LogLine    lipgloss.Style
	LogGranted lipgloss.Style
	LogDenied  lipgloss.Style
	LogForced  lipgloss.Style

	// ==========================================================================
	// PROMPT STYLES
	// ==========================================================================

	PromptBox   lipgloss.Style
	PromptLabel lipgloss.Style

	// ==========================================================================
	// STATUS BAR STYLES
	// ==========================================================================

	StatusBar    lipgloss.Style
	StreamLive   lipgloss.Style
	StreamPoll   lipgloss.Style
	StatusNotice lipgloss.Style
	StatusError  lipgloss.Style
	ShortcutKey  lipgloss.Style
	ShortcutDesc lipgloss.Style
}

// NewTheme creates a theme with all styles configured. pref forces the
// background assumption: "dark", "light", or anything else to auto-detect.
func NewTheme(pref string) *Theme {
	switch strings.ToLower(pref) {
	case "dark":
		lipgloss.SetHasDarkBackground(true)
	case "light":
		lipgloss.SetHasDarkBackground(false)
	}

	colorProfile := termenv.ColorProfile()

	t := &Theme{
		IsDark:       lipgloss.HasDarkBackground(),
		HasTrueColor: colorProfile == termenv.TrueColor,
		ColorProfile: colorProfile,
	}

	t.initStyles()
	return t
}

// initStyles initializes all the lip gloss styles.
func (t *Theme) initStyles() {
	// Header
	t.Brand = lipgloss.NewStyle().
		Bold(true).
		Foreground(Cyan)

	t.HeaderInfo = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.HealthUp = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.HealthDown = lipgloss.NewStyle().
		Foreground(Rose).
		Bold(true)

	// Panels
	t.Panel = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1)

	t.PanelFocused = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Purple).
		Padding(0, 1)

	t.PanelTitle = lipgloss.NewStyle().
		Bold(true).
		Foreground(Purple)

	t.PanelEmpty = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	// Mode badges
	t.ReadBadge = lipgloss.NewStyle().
		Foreground(Emerald)

	t.WriteBadge = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	// Activity log
	t.LogLine = lipgloss.NewStyle().
		Foreground(TextSecondary)

	t.LogGranted = lipgloss.NewStyle().
		Foreground(Emerald)

	t.LogDenied = lipgloss.NewStyle().
		Foreground(Rose)

	t.LogForced = lipgloss.NewStyle().
		Foreground(Amber)

	// Prompt
	t.PromptBox = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Amber).
		Padding(0, 1)

	t.PromptLabel = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	// Status bar
	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1)

	t.StreamLive = lipgloss.NewStyle().
		Foreground(Emerald).
		Bold(true)

	t.StreamPoll = lipgloss.NewStyle().
		Foreground(Amber).
		Bold(true)

	t.StatusNotice = lipgloss.NewStyle().
		Foreground(Cyan)

	t.StatusError = lipgloss.NewStyle().
		Foreground(Rose)

	t.ShortcutKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.ShortcutDesc = lipgloss.NewStyle().
		Foreground(TextMuted)
}

// styleLogLine colors an audit line by its event kind.
func (t *Theme) styleLogLine(line string) string {
	switch {
	case strings.Contains(line, "GRANTED"):
		return t.LogGranted.Render(line)
	case strings.Contains(line, "TIMEOUT"), strings.Contains(line, "CANCELLED"):
		return t.LogDenied.Render(line)
	case strings.Contains(line, "FORCE_UNLOCK"), strings.Contains(line, "CLEAR_ALL"):
		return t.LogForced.Render(line)
	default:
		return t.LogLine.Render(line)
	}
}
