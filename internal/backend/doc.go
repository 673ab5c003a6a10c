// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package backend provides the HTTP client for the document-assistant backend.
//
// The client covers plain request/response endpoints (document list, update,
// delete, chunk inspection) and the streamed ingestion endpoints, whose
// bodies are newline-delimited JSON progress records.
//
// # Key Types
//
//   - Client: HTTP client, rate limited, safe for concurrent use
//   - ClientError: typed error carrying an ErrorType and optional HTTP status
//   - Document, ListResult, Chunk: wire types
//
// # Usage
//
//	client := backend.NewClientWithConfig(&backend.ClientConfig{BaseURL: "http://localhost:5000"})
//	page, err := client.ListDocuments(ctx, "alice", 1, 10)
//
// Streamed endpoints return the raw body; decode it with package stream:
//
//	body, err := client.OpenReingestAll(ctx, "alice", backend.IngestParams{ChunkSize: 1000, ChunkOverlap: 200})
//	defer body.Close()
//	err = stream.NewReader(body).Process(ctx, func(ev stream.Event) { ... })
package backend
