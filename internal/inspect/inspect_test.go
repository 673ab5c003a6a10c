// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package inspect

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bears-chj7/studying-vibe/internal/backend"
)

type fakeLister struct {
	chunks map[string][]backend.Chunk
	err    error
}

func (f *fakeLister) ListChunks(ctx context.Context, username, id string) ([]backend.Chunk, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.chunks[id], nil
}

func TestViewer_Open(t *testing.T) {
	lister := &fakeLister{chunks: map[string][]backend.Chunk{
		"1": {{ID: "c1", Content: "alpha"}, {ID: "c2", Content: "beta"}},
	}}
	v := NewViewer(lister, "alice")

	view := v.Open(context.Background(), backend.Document{ID: "1", Filename: "a.pdf"})
	require.NoError(t, view.Err)
	assert.Len(t, view.Chunks, 2)

	current, ok := v.Current()
	require.True(t, ok)
	assert.Equal(t, "a.pdf", current.Document.Filename)
}

func TestViewer_OpenFailure(t *testing.T) {
	v := NewViewer(&fakeLister{err: errors.New("backend down")}, "alice")

	view := v.Open(context.Background(), backend.Document{ID: "1"})
	assert.EqualError(t, view.Err, "backend down")
	assert.Empty(t, view.Chunks)
}

func TestViewer_ApplyUpdate(t *testing.T) {
	v := NewViewer(&fakeLister{}, "alice")
	v.Open(context.Background(), backend.Document{ID: "1", Filename: "a.pdf", Description: "old"})

	v.ApplyUpdate(backend.Document{ID: "2", Description: "other"})
	current, _ := v.Current()
	assert.Equal(t, "old", current.Document.Description)

	v.ApplyUpdate(backend.Document{ID: "1", Description: "new"})
	current, _ = v.Current()
	assert.Equal(t, "new", current.Document.Description)
	assert.Equal(t, "a.pdf", current.Document.Filename)

	v.Close()
	_, ok := v.Current()
	assert.False(t, ok)
}
