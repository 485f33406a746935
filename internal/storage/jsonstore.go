package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
)

// JSONStore reads and writes JSON documents with corruption detection and
// crash-safe atomic replacement. Writers serialize to a sibling temporary
// file and rename it over the target, so readers observe either the fully-old
// or the fully-new document, never a partial one.
type JSONStore struct{}

// NewJSONStore returns a ready JSONStore.
func NewJSONStore() *JSONStore {
	return &JSONStore{}
}

// Read unmarshals the document at path into out. It returns false with a nil
// error if the file does not exist, so callers can apply their own default.
// A file that exists but does not parse yields ErrCorrupted.
func (s *JSONStore) Read(path string, out any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return false, nil
		}
		return false, fmt.Errorf("%w: read %s: %v", ErrStorage, path, err)
	}

	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrCorrupted, path, err)
	}

	return true, nil
}

// Write atomically replaces the document at path with the serialized form of
// in. On any mid-write failure the temporary file is removed best-effort and
// the original document is left untouched.
func (s *JSONStore) Write(path string, in any) error {
	data, err := json.MarshalIndent(in, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: marshal %s: %v", ErrStorage, path, err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return fmt.Errorf("%w: mkdir %s: %v", ErrStorage, dir, err)
	}

	// Temp file in the same directory so the rename stays on one filesystem.
	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("%w: create temp for %s: %v", ErrStorage, path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: write %s: %v", ErrStorage, tmpName, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: sync %s: %v", ErrStorage, tmpName, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: close %s: %v", ErrStorage, tmpName, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: rename %s -> %s: %v", ErrStorage, tmpName, path, err)
	}

	return nil
}
