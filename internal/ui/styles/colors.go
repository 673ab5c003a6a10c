// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "github.com/charmbracelet/lipgloss"

// =============================================================================
// COLORS
// =============================================================================

// Cyan - Brand color, headers, document ids
var Cyan = lipgloss.AdaptiveColor{Light: "#0891B2", Dark: "#22D3EE"}

// Emerald - Succeeded tasks
var Emerald = lipgloss.AdaptiveColor{Light: "#059669", Dark: "#34D399"}

// Rose - Failed tasks, rejections
var Rose = lipgloss.AdaptiveColor{Light: "#E11D48", Dark: "#FB7185"}

// Amber - Streaming tasks, warnings
var Amber = lipgloss.AdaptiveColor{Light: "#D97706", Dark: "#FBBF24"}

// TextMuted - Hints, timestamps, log lines
var TextMuted = lipgloss.AdaptiveColor{Light: "#9CA3AF", Dark: "#6C7086"}

// Overlay - Borders and separators
var Overlay = lipgloss.AdaptiveColor{Light: "#E5E5E5", Dark: "#313244"}

// =============================================================================
// STATUS INDICATORS
// =============================================================================

// Indicators are ASCII so they survive any terminal and don't rely on color.
const (
	IndicatorSuccess = "[OK]"
	IndicatorError   = "[X]"
	IndicatorWarning = "[!]"
	IndicatorPending = "[ ]"
)

// =============================================================================
// STYLES
// =============================================================================

var (
	Header  = lipgloss.NewStyle().Bold(true).Foreground(Cyan)
	Muted   = lipgloss.NewStyle().Foreground(TextMuted)
	Success = lipgloss.NewStyle().Bold(true).Foreground(Emerald)
	Error   = lipgloss.NewStyle().Bold(true).Foreground(Rose)
	Warning = lipgloss.NewStyle().Bold(true).Foreground(Amber)

	// TableHeader underlines column titles in list output.
	TableHeader = lipgloss.NewStyle().
			Bold(true).
			Foreground(Cyan).
			BorderStyle(lipgloss.NormalBorder()).
			BorderBottom(true).
			BorderForeground(Overlay)
)

// RenderSuccess renders a success message with its indicator.
func RenderSuccess(message string) string {
	return Success.Render(IndicatorSuccess + " " + message)
}

// RenderError renders an error message with its indicator.
func RenderError(message string) string {
	return Error.Render(IndicatorError + " " + message)
}

// RenderWarning renders a warning message with its indicator.
func RenderWarning(message string) string {
	return Warning.Render(IndicatorWarning + " " + message)
}

// RenderStatus picks RenderSuccess or RenderError.
func RenderStatus(success bool, message string) string {
	if success {
		return RenderSuccess(message)
	}
	return RenderError(message)
}
