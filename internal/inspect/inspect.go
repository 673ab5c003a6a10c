// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package inspect shows the vector chunks stored for a document.
package inspect

import (
	"context"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/bears-chj7/studying-vibe/internal/backend"
)

// ChunkLister is the backend call the viewer needs.
type ChunkLister interface {
	ListChunks(ctx context.Context, username, id string) ([]backend.Chunk, error)
}

// View is the inspected document and its chunks. Err is set when loading failed.
type View struct {
	Document backend.Document
	Chunks   []backend.Chunk
	Err      error
}

// Viewer loads chunk views and keeps the one currently open.
type Viewer struct {
	lister   ChunkLister
	username string

	mu      sync.Mutex
	current *View
}

// NewViewer creates a viewer for username.
func NewViewer(lister ChunkLister, username string) *Viewer {
	return &Viewer{lister: lister, username: username}
}

// Open fetches the chunks of doc and makes it the current view.
// A failure is recorded in the returned View.
func (v *Viewer) Open(ctx context.Context, doc backend.Document) View {
	view := View{Document: doc, Chunks: []backend.Chunk{}}

	chunks, err := v.lister.ListChunks(ctx, v.username, doc.ID)
	if err != nil {
		log.Warn().Err(err).Str("doc_id", doc.ID).Msg("failed to load chunks")
		view.Err = err
	} else if chunks != nil {
		view.Chunks = chunks
	}

	v.mu.Lock()
	v.current = &view
	v.mu.Unlock()
	return view
}

// Current returns the open view, if any.
func (v *Viewer) Current() (View, bool) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current == nil {
		return View{}, false
	}
	return *v.current, true
}

// ApplyUpdate reflects a metadata change of doc in the open view.
// Updates to other documents are ignored.
func (v *Viewer) ApplyUpdate(doc backend.Document) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.current == nil || v.current.Document.ID != doc.ID {
		return
	}
	v.current.Document.Description = doc.Description
	if doc.Filename != "" {
		v.current.Document.Filename = doc.Filename
	}
}

// Close forgets the open view.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.current = nil
}
