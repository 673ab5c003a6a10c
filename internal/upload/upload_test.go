// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package upload

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bears-chj7/studying-vibe/internal/backend"
)

func writeFile(t *testing.T, name string, data []byte) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, data, 0600))
	return path
}

func TestOpen_Rejections(t *testing.T) {
	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"empty path", func(t *testing.T) string { return "  " }},
		{"wrong extension", func(t *testing.T) string { return writeFile(t, "notes.txt", []byte("hello")) }},
		{"missing file", func(t *testing.T) string { return filepath.Join(t.TempDir(), "gone.pdf") }},
		{"directory", func(t *testing.T) string {
			dir := filepath.Join(t.TempDir(), "folder.pdf")
			require.NoError(t, os.Mkdir(dir, 0700))
			return dir
		}},
		{"empty file", func(t *testing.T) string { return writeFile(t, "empty.pdf", nil) }},
		{"not a pdf", func(t *testing.T) string { return writeFile(t, "fake.pdf", []byte("just some text")) }},
		{"truncated pdf", func(t *testing.T) string { return writeFile(t, "cut.pdf", []byte("%PDF-1.4\n1 0 obj\n<<")) }},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f, err := Open(tc.path(t))
			require.Error(t, err)
			assert.Nil(t, f)
			assert.True(t, backend.IsInvalidRequest(err), "got %v", err)
		})
	}
}

func TestFile_UploadFile(t *testing.T) {
	f := &File{Name: "a.pdf", Data: []byte("%PDF")}
	up := f.UploadFile()
	assert.Equal(t, "a.pdf", up.Name)
	assert.Equal(t, 4, f.Size())
}
