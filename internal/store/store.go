// Package store persists cache entries as flat files under a single root
// directory. The file system is the only index: one file per entry, the
// file's mtime carries the server-reported modification time.
package store

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"path/filepath"
	"time"
)

var (
	// ErrNotFound reports that no entry exists at the given path.
	ErrNotFound = errors.New("cache entry not found")
	// ErrTooLarge reports an entry whose size does not fit a 32-bit
	// signed byte count and cannot be read whole.
	ErrTooLarge = errors.New("cache entry too large")
)

// DeleteResult describes the outcome of a best-effort delete.
type DeleteResult int

const (
	// Deleted means the entry existed and was removed.
	Deleted DeleteResult = iota
	// NotFound means there was nothing to remove.
	NotFound
	// DeleteFailed means the entry could not be removed. The failure is
	// deliberately not retried later: the entry may legitimately be
	// recreated by a subsequent successful download, so a deferred
	// delete would be wrong.
	DeleteFailed
)

// Store reads and writes cache entries under a fixed directory.
type Store struct {
	dir string
}

// Open creates (if needed) and returns a store rooted at the "cache"
// subdirectory of stateRoot.
func Open(stateRoot string) (*Store, error) {
	dir := filepath.Join(stateRoot, "cache")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the cache directory.
func (s *Store) Dir() string { return s.dir }

// Locate joins key onto the cache directory. No I/O is performed.
func (s *Store) Locate(key string) string {
	return filepath.Join(s.dir, key)
}

// Read returns the full content of the entry at path.
func (s *Store) Read(path string) ([]byte, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("stat entry: %w", err)
	}
	if fi.Size() > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %d bytes", ErrTooLarge, fi.Size())
	}
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return nil, fmt.Errorf("read entry: %w", err)
	}
	return b, nil
}

// Write replaces the entry at path with data. The write goes to a
// temporary sibling first and is renamed into place, so readers never
// observe a half-written entry.
func (s *Store) Write(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create entry dir: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write entry: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("replace entry: %w", err)
	}
	return nil
}

// SetModTime stamps the entry's modification time.
func (s *Store) SetModTime(path string, t time.Time) error {
	if err := os.Chtimes(path, t, t); err != nil {
		return fmt.Errorf("stamp entry: %w", err)
	}
	return nil
}

// ModTime returns the entry's modification time.
func (s *Store) ModTime(path string) (time.Time, error) {
	fi, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return time.Time{}, fmt.Errorf("%w: %s", ErrNotFound, path)
		}
		return time.Time{}, fmt.Errorf("stat entry: %w", err)
	}
	return fi.ModTime(), nil
}

// Has reports whether an entry exists at path.
func (s *Store) Has(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// Remove deletes the entry at path, best effort.
func (s *Store) Remove(path string) DeleteResult {
	err := os.Remove(path)
	switch {
	case err == nil:
		return Deleted
	case errors.Is(err, fs.ErrNotExist):
		return NotFound
	default:
		return DeleteFailed
	}
}

// Clear removes every entry and leaves an empty, valid cache directory.
func (s *Store) Clear() error {
	if err := os.RemoveAll(s.dir); err != nil {
		return fmt.Errorf("clear cache: %w", err)
	}
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("recreate cache dir: %w", err)
	}
	return nil
}
