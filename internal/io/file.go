// Package ioutils provides file system utilities for mediavault.
//
// This package contains functions for:
//   - Atomic file writing
//   - Materializing streamed downloads into the downloads folder
//   - Filename sanitization
//   - Directory creation
//
// All functions that accept a context.Context check it before touching the
// file system, though the file operations themselves are not interruptible.
package ioutils

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

var (
	invalidChars   = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1f]`)
	trailingDots   = regexp.MustCompile(`\.+$`)
	repeatedSpaces = regexp.MustCompile(`\s+`)
)

// WriteFile writes data to path atomically.
//
// The data is first written to a temporary file in the same directory and
// then renamed over path, so readers never observe a partially written file.
// Parent directories are created as needed.
//
// Example:
//
//	err := WriteFile(ctx, "/state/url-cache.json", payload)
func WriteFile(ctx context.Context, path string, data []byte) error {
	_, err := WriteStream(ctx, path, bytes.NewReader(data))
	return err
}

// WriteStream is WriteFile for a reader: r is copied into a temporary file
// next to path, which then replaces path. Returns the number of bytes written.
func WriteStream(ctx context.Context, path string, r io.Reader) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	dir := filepath.Dir(path)
	if err := EnsureDir(dir); err != nil {
		return 0, err
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return 0, err
	}
	tmpName := tmp.Name()

	n, err := io.Copy(tmp, contextReader{ctx: ctx, r: r})
	if err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return n, err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return n, err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return n, err
	}
	return n, nil
}

// Materialize streams r into a new file inside dir named after name.
//
// The bytes land in a hidden ".part" file first. Only once the copy has
// completed is the file renamed to its final name; on any failure the part
// file is removed. If name is already taken, a numeric suffix is added
// ("photo (1).png") rather than overwriting.
//
// Returns the final path and the number of bytes written.
func Materialize(ctx context.Context, dir, name string, r io.Reader) (string, int64, error) {
	if err := ctx.Err(); err != nil {
		return "", 0, err
	}
	if err := EnsureDir(dir); err != nil {
		return "", 0, err
	}

	part, err := os.CreateTemp(dir, ".download-*.part")
	if err != nil {
		return "", 0, err
	}
	partName := part.Name()
	cleanup := func() {
		part.Close()
		os.Remove(partName)
	}

	n, err := io.Copy(part, contextReader{ctx: ctx, r: r})
	if err != nil {
		cleanup()
		return "", n, err
	}
	if err := part.Close(); err != nil {
		os.Remove(partName)
		return "", n, err
	}

	final, err := UniquePath(dir, name)
	if err != nil {
		os.Remove(partName)
		return "", n, err
	}
	if err := os.Rename(partName, final); err != nil {
		os.Remove(partName)
		return "", n, err
	}
	return final, n, nil
}

// UniquePath returns a path inside dir for name that does not exist yet.
func UniquePath(dir, name string) (string, error) {
	name = SanitizeFileName(name)
	if name == "" {
		name = "download"
	}
	candidate := filepath.Join(dir, name)
	ext := filepath.Ext(name)
	stem := strings.TrimSuffix(name, ext)

	for i := 1; i < 10000; i++ {
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate, nil
		} else if err != nil {
			return "", err
		}
		candidate = filepath.Join(dir, stem+" ("+strconv.Itoa(i)+")"+ext)
	}
	return "", fmt.Errorf("no free file name for %s in %s", name, dir)
}

// SanitizeFileName removes or replaces characters that are invalid in file/folder names.
//
// This function ensures filenames are valid across different operating systems,
// particularly Windows which has the most restrictive naming rules.
//
// The following transformations are applied:
//   - Invalid characters (<>:"/\|?* and control chars 0x00-0x1f) → underscore
//   - Trailing dots → removed (Windows limitation)
//   - Multiple whitespace → single space
//   - Leading and trailing whitespace → removed
//
// Example:
//
//	SanitizeFileName("Photo: Part 1/2")     // Returns "Photo_ Part 1_2"
//	SanitizeFileName("clip...")             // Returns "clip"
//	SanitizeFileName("Name   with  spaces") // Returns "Name with spaces"
func SanitizeFileName(name string) string {
	name = invalidChars.ReplaceAllString(name, "_")
	name = trailingDots.ReplaceAllString(name, "")
	name = repeatedSpaces.ReplaceAllString(name, " ")
	return strings.TrimSpace(name)
}

// EnsureDir creates a directory and all parent directories if they don't exist.
//
// Directories are created with mode 0755 (rwxr-xr-x).
// If the directory already exists, no error is returned.
func EnsureDir(path string) error {
	return os.MkdirAll(path, 0755)
}

type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c contextReader) Read(p []byte) (int, error) {
	if err := c.ctx.Err(); err != nil {
		return 0, err
	}
	return c.r.Read(p)
}
