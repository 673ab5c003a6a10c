// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// json_output.go - JSON output for --json.
//
// Every command answers with the same envelope so scripts can check
// "success" before looking at "data".
package cli

import (
	"encoding/json"
	"io"
	"time"

	"github.com/bears-chj7/studying-vibe/internal/backend"
	"github.com/bears-chj7/studying-vibe/internal/registry"
	"github.com/bears-chj7/studying-vibe/internal/settings"
	"github.com/bears-chj7/studying-vibe/internal/tasks"
)

// JSONResponse is the envelope for all --json output.
type JSONResponse struct {
	// Success indicates whether the command completed successfully
	Success bool `json:"success"`

	// Data contains the command-specific response data
	Data interface{} `json:"data"`

	// Error contains the error message if Success is false, null otherwise
	Error *string `json:"error"`

	// ErrorType is the backend.ErrorType name of a failed command
	ErrorType string `json:"error_type,omitempty"`

	// Timestamp is the RFC 3339 time the response was generated
	Timestamp string `json:"timestamp"`

	// Command is the command that was executed
	Command string `json:"command,omitempty"`
}

// NewJSONResponse creates a new successful JSON response.
func NewJSONResponse(command string, data interface{}) *JSONResponse {
	return &JSONResponse{
		Success:   true,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
}

// NewJSONErrorResponse creates a new error JSON response.
func NewJSONErrorResponse(command string, err error) *JSONResponse {
	errStr := err.Error()
	resp := &JSONResponse{
		Error:     &errStr,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Command:   command,
	}
	if t := backend.TypeOf(err); t != backend.ErrTypeUnknown {
		resp.ErrorType = t.String()
	}
	return resp
}

// Write encodes the response, indented, to w.
func (r *JSONResponse) Write(w io.Writer) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(r)
}

// =============================================================================
// DATA TYPES
// =============================================================================

// DocumentListData is the data of "docs list".
type DocumentListData struct {
	Documents  []backend.Document `json:"documents"`
	Page       int                `json:"page"`
	Limit      int                `json:"limit"`
	TotalItems int                `json:"total_items"`
	TotalPages int                `json:"total_pages"`
}

func newDocumentListData(s registry.Snapshot) DocumentListData {
	docs := s.Documents
	if docs == nil {
		docs = []backend.Document{}
	}
	return DocumentListData{
		Documents:  docs,
		Page:       s.Pagination.Page,
		Limit:      s.Pagination.Limit,
		TotalItems: s.Pagination.TotalItems,
		TotalPages: s.Pagination.TotalPages,
	}
}

// TaskData is the data of a streamed ingestion command.
type TaskData struct {
	ID              string   `json:"id"`
	Kind            string   `json:"kind"`
	DocumentID      string   `json:"document_id,omitempty"`
	FileName        string   `json:"file_name,omitempty"`
	State           string   `json:"state"`
	Log             []string `json:"log"`
	TerminalMessage string   `json:"terminal_message"`
	ErrorType       string   `json:"error_type,omitempty"`
	DurationMs      int64    `json:"duration_ms"`
}

func newTaskData(s tasks.Snapshot) TaskData {
	data := TaskData{
		ID:              s.ID,
		Kind:            string(s.Kind),
		DocumentID:      s.DocumentID,
		FileName:        s.FileName,
		State:           s.State.String(),
		Log:             s.Log,
		TerminalMessage: s.TerminalMessage,
		DurationMs:      s.Duration().Milliseconds(),
	}
	if data.Log == nil {
		data.Log = []string{}
	}
	if s.State == tasks.StateFailed {
		data.ErrorType = s.ErrorType.String()
	}
	return data
}

// ChunkListData is the data of "docs chunks".
type ChunkListData struct {
	DocumentID string          `json:"document_id"`
	Chunks     []backend.Chunk `json:"chunks"`
}

// SettingsData is the data of "settings show" and "settings set".
type SettingsData struct {
	ChunkSize    int    `json:"chunk_size"`
	ChunkOverlap int    `json:"chunk_overlap"`
	Model        string `json:"model"`
}

func newSettingsData(s settings.IngestSettings, model string) SettingsData {
	return SettingsData{ChunkSize: s.ChunkSize, ChunkOverlap: s.ChunkOverlap, Model: model}
}

// AskData is the data of "ask".
type AskData struct {
	Question   string `json:"question"`
	Model      string `json:"model"`
	Response   string `json:"response"`
	DurationMs int64  `json:"duration_ms"`
}

// VersionData is the data of "version".
type VersionData struct {
	Version   string `json:"version"`
	GitCommit string `json:"git_commit"`
	BuildDate string `json:"build_date"`
}
