// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles holds the lipgloss palette shared by the CLI tables and the
// task progress view. Colors are AdaptiveColor so they follow the terminal's
// light or dark background.
//
// Every status rendering carries an ASCII indicator ([OK], [X], [!]) next to
// the color, so output stays readable when piped or on a monochrome terminal.
package styles
