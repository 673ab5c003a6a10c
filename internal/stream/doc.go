// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream decodes newline-delimited JSON progress records.
//
// The backend flushes ingestion progress as one JSON object per line:
//
//	{"status": "info", "message": "Loading PDF file..."}
//	{"status": "success", "message": "Ingested 42 chunks from report.pdf"}
//
// Fragments arrive with arbitrary boundaries. Decoder keeps the unterminated
// tail between calls so the emitted events never depend on how the bytes
// were split. Decoder is pure: no I/O, no goroutines. Reader drives it from
// an io.Reader.
//
// Lines that are not valid JSON or carry no recognizable status are dropped
// and decoding continues with the next line.
package stream
