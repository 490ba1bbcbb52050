// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// colors.go - Adaptive color palette for the dashboard.
package dashboard

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// COLOR PALETTE
// =============================================================================

// Each color carries a light and a dark variant; lipgloss picks per the
// detected (or forced) terminal background.
var (
	// Brand and accent colors
	Purple  = lipgloss.AdaptiveColor{Light: "#6B21A8", Dark: "#C084FC"}
	Cyan    = lipgloss.AdaptiveColor{Light: "#0E7490", Dark: "#67E8F9"}
	Emerald = lipgloss.AdaptiveColor{Light: "#047857", Dark: "#6EE7B7"}
	Rose    = lipgloss.AdaptiveColor{Light: "#BE123C", Dark: "#FDA4AF"}
	Amber   = lipgloss.AdaptiveColor{Light: "#B45309", Dark: "#FCD34D"}

	// Surfaces and separators
	Surface    = lipgloss.AdaptiveColor{Light: "#F4F4F5", Dark: "#27272A"}
	SurfaceDim = lipgloss.AdaptiveColor{Light: "#E4E4E7", Dark: "#18181B"}
	Overlay    = lipgloss.AdaptiveColor{Light: "#A1A1AA", Dark: "#52525B"}

	// Text hierarchy
	TextPrimary   = lipgloss.AdaptiveColor{Light: "#18181B", Dark: "#FAFAFA"}
	TextSecondary = lipgloss.AdaptiveColor{Light: "#3F3F46", Dark: "#D4D4D8"}
	TextMuted     = lipgloss.AdaptiveColor{Light: "#71717A", Dark: "#A1A1AA"}
	TextInverse   = lipgloss.AdaptiveColor{Light: "#FAFAFA", Dark: "#18181B"}
)
