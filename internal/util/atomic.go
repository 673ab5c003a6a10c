// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package util

import (
	"fmt"
	"os"
	"path/filepath"
)

// AtomicWriteFile writes data to path so that readers see either the old
// file or the complete new one. Missing parent directories are created 0700.
func AtomicWriteFile(path string, data []byte, perm os.FileMode) error {
	return AtomicWriteFileWithDir(path, data, perm, 0700)
}

// AtomicWriteFileWithDir is AtomicWriteFile with an explicit permission for
// created parent directories.
//
// The data goes to a temp file in the target directory, is fsynced, and is
// renamed over the target. The rename is atomic because both live on the
// same filesystem.
func AtomicWriteFileWithDir(path string, data []byte, filePerm, dirPerm os.FileMode) error {
	target, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", path, err)
	}

	dir, base := filepath.Split(target)
	if err := os.MkdirAll(dir, dirPerm); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+base+".tmp-")
	if err != nil {
		return fmt.Errorf("create temp file for %s: %w", base, err)
	}
	discard := func(cause error) error {
		tmp.Close()
		os.Remove(tmp.Name())
		return cause
	}

	if _, err := tmp.Write(data); err != nil {
		return discard(fmt.Errorf("write %s: %w", base, err))
	}
	if err := tmp.Sync(); err != nil {
		return discard(fmt.Errorf("sync %s: %w", base, err))
	}
	// Windows refuses to rename an open file.
	if err := tmp.Close(); err != nil {
		return discard(fmt.Errorf("close %s: %w", base, err))
	}
	if err := os.Chmod(tmp.Name(), filePerm); err != nil {
		return discard(fmt.Errorf("chmod %s: %w", base, err))
	}
	if err := os.Rename(tmp.Name(), target); err != nil {
		return discard(fmt.Errorf("replace %s: %w", base, err))
	}
	return nil
}
