// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package backend

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// =============================================================================
// DOCUMENT TYPES
// =============================================================================

// Document is one ingested document as reported by the backend.
type Document struct {
	ID          string    `json:"id"`
	Filename    string    `json:"filename"`
	Description string    `json:"description,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// createdAtLayouts are tried in order. Flask's jsonify emits RFC 1123 dates.
var createdAtLayouts = []string{
	time.RFC3339Nano,
	time.RFC1123,
	time.RFC1123Z,
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
}

// UnmarshalJSON accepts numeric or string ids and the date formats the backend uses.
func (d *Document) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID          json.RawMessage `json:"id"`
		Filename    string          `json:"filename"`
		Description *string         `json:"description"`
		CreatedAt   string          `json:"created_at"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.ID = opaqueID(raw.ID)
	d.Filename = raw.Filename
	d.Description = ""
	if raw.Description != nil {
		d.Description = *raw.Description
	}
	d.CreatedAt = parseCreatedAt(raw.CreatedAt)
	return nil
}

// opaqueID turns a JSON number or string into the string form used by the client.
func opaqueID(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || string(raw) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

func parseCreatedAt(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range createdAtLayouts {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

// ListResult is one page of the document list.
type ListResult struct {
	Documents  []Document `json:"documents"`
	Total      int        `json:"total"`
	TotalPages int        `json:"total_pages"`

	// Unpaginated is set for the legacy bare-array response, which always
	// holds every document in one page.
	Unpaginated bool `json:"-"`
}

// decodeListResult accepts both the paginated object and the legacy bare array.
func decodeListResult(body []byte) (*ListResult, error) {
	body = bytes.TrimSpace(body)
	if len(body) > 0 && body[0] == '[' {
		var docs []Document
		if err := json.Unmarshal(body, &docs); err != nil {
			return nil, err
		}
		pages := 0
		if len(docs) > 0 {
			pages = 1
		}
		return &ListResult{Documents: docs, Total: len(docs), TotalPages: pages, Unpaginated: true}, nil
	}

	var result ListResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, err
	}
	if result.Documents == nil {
		result.Documents = []Document{}
	}
	return &result, nil
}

// DocumentUpdate carries the fields of a partial document update.
// Nil fields are left untouched on the server.
type DocumentUpdate struct {
	Description *string `json:"description,omitempty"`
}

// =============================================================================
// CHUNK TYPES
// =============================================================================

// Chunk is one vector-store record produced for a document.
type Chunk struct {
	ID       string         `json:"id"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// =============================================================================
// INGEST TYPES
// =============================================================================

// IngestParams are the chunking parameters sent with every ingestion request.
type IngestParams struct {
	ChunkSize    int
	ChunkOverlap int
}

// UploadFile is the file part of an upload request.
type UploadFile struct {
	Name string
	Data []byte
}

// =============================================================================
// CHAT TYPES
// =============================================================================

// ChatRequest is the body of POST /api/chat.
type ChatRequest struct {
	Message string `json:"message"`
	Model   string `json:"model"`
}

// chatReply carries either the model's answer or an error.
type chatReply struct {
	Response *string `json:"response"`
	Error    string  `json:"error"`
}

// errorPayload is the body of an immediate rejection.
type errorPayload struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}
