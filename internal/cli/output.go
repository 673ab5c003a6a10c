// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// output.go - Human-readable tables and confirmations.
package cli

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bears-chj7/studying-vibe/internal/backend"
	"github.com/bears-chj7/studying-vibe/internal/ui/styles"
	"github.com/bears-chj7/studying-vibe/internal/util"
)

const createdLayout = "2006-01-02 15:04"

// report prints a success line, or the JSON envelope with data.
func (e *Env) report(command, message string, data any) error {
	if e.JSON {
		return NewJSONResponse(command, data).Write(e.Out)
	}
	fmt.Fprintln(e.Out, styles.RenderSuccess(message))
	return nil
}

// width is the table width for this environment.
func (e *Env) width() int {
	if e.Width > 0 {
		return max(e.Width, MinTerminalWidth)
	}
	return DefaultTerminalWidth
}

// renderDocumentTable lays out documents in four columns. The description
// column takes whatever width is left.
func renderDocumentTable(docs []backend.Document, width int) string {
	const (
		idWidth       = 8
		filenameWidth = 28
		createdWidth  = len(createdLayout)
		gaps          = 3 * 2
	)
	descWidth := max(width-idWidth-filenameWidth-createdWidth-gaps, 10)

	row := func(id, filename, description, created string) string {
		return strings.Join([]string{
			util.Cell(id, idWidth),
			util.Cell(filename, filenameWidth),
			util.Cell(description, descWidth),
			util.Cell(created, createdWidth),
		}, "  ")
	}

	var b strings.Builder
	b.WriteString(styles.TableHeader.Render(row("ID", "FILENAME", "DESCRIPTION", "CREATED")))
	b.WriteString("\n")
	for _, doc := range docs {
		created := ""
		if !doc.CreatedAt.IsZero() {
			created = doc.CreatedAt.Local().Format(createdLayout)
		}
		b.WriteString(strings.TrimRight(row(doc.ID, doc.Filename, doc.Description, created), " "))
		b.WriteString("\n")
	}
	return b.String()
}

// renderChunks prints each chunk as a header line, its metadata and a
// single-line preview of the content.
func renderChunks(chunks []backend.Chunk, width int) string {
	var b strings.Builder
	for i, chunk := range chunks {
		header := fmt.Sprintf("#%d", i+1)
		if chunk.ID != "" {
			header += " " + chunk.ID
		}
		b.WriteString(styles.Header.Render(header))
		b.WriteString("\n")

		if meta := formatMetadata(chunk.Metadata); meta != "" {
			b.WriteString(styles.Muted.Render(util.TruncateWidth(meta, width)))
			b.WriteString("\n")
		}
		b.WriteString(util.TruncateWidth(util.SingleLine(chunk.Content), width))
		b.WriteString("\n\n")
	}
	return b.String()
}

// formatMetadata renders metadata as sorted key=value pairs.
func formatMetadata(meta map[string]any) string {
	if len(meta) == 0 {
		return ""
	}
	keys := make([]string, 0, len(meta))
	for k := range meta {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s=%v", k, meta[k]))
	}
	return strings.Join(parts, " ")
}
