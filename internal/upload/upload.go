// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package upload prepares local PDF files for ingestion.
package upload

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"

	"github.com/bears-chj7/studying-vibe/internal/backend"
)

// MaxFileSize bounds the files accepted for upload (64 MiB).
const MaxFileSize = 64 << 20

// File is a validated PDF ready to be sent to the backend.
type File struct {
	Path  string
	Name  string
	Data  []byte
	Pages int
}

// Open reads and validates the PDF at path.
// All rejections are backend.ErrTypeInvalidRequest so they surface before any network call.
func Open(path string) (*File, error) {
	if strings.TrimSpace(path) == "" {
		return nil, backend.NewInvalidRequest("no file selected")
	}

	name := filepath.Base(path)
	if !strings.EqualFold(filepath.Ext(name), ".pdf") {
		return nil, backend.NewInvalidRequest(fmt.Sprintf("%s: only PDF files can be uploaded", name))
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &backend.ClientError{Type: backend.ErrTypeInvalidRequest, Message: "cannot read " + name, Cause: err}
	}
	if info.IsDir() {
		return nil, backend.NewInvalidRequest(name + " is a directory")
	}
	if info.Size() == 0 {
		return nil, backend.NewInvalidRequest(name + " is empty")
	}
	if info.Size() > MaxFileSize {
		return nil, backend.NewInvalidRequest(fmt.Sprintf("%s is too large (%d bytes, max %d)", name, info.Size(), MaxFileSize))
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &backend.ClientError{Type: backend.ErrTypeInvalidRequest, Message: "cannot read " + name, Cause: err}
	}

	pages, err := countPages(data)
	if err != nil {
		return nil, &backend.ClientError{Type: backend.ErrTypeInvalidRequest, Message: name + " is not a readable PDF", Cause: err}
	}

	return &File{Path: path, Name: name, Data: data, Pages: pages}, nil
}

// countPages parses the PDF structure. The parser panics on some corrupt
// inputs, so a panic is reported as an error.
func countPages(data []byte) (pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("malformed pdf: %v", r)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return 0, err
	}
	pages = reader.NumPage()
	if pages == 0 {
		return 0, fmt.Errorf("pdf has no pages")
	}
	return pages, nil
}

// UploadFile converts f to the backend request form.
func (f *File) UploadFile() backend.UploadFile {
	return backend.UploadFile{Name: f.Name, Data: f.Data}
}

// Size returns the file size in bytes.
func (f *File) Size() int {
	return len(f.Data)
}
